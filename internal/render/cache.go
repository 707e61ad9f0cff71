package render

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/a3tai/pdf-answer-key/internal/answerkey"
)

// DefaultCacheSize is the number of rendered tables kept by NewCache
const DefaultCacheSize = 64

// Cache wraps a renderer and keeps the most recently rendered bitmaps, so
// annotating the same document again does not start the browser. Failed
// renders are not cached.
type Cache struct {
	next answerkey.Renderer

	mu       sync.Mutex
	capacity int
	items    map[string]*cacheNode
	head     *cacheNode // most recently used
	tail     *cacheNode // least recently used
	hits     int64
	misses   int64
}

type cacheNode struct {
	key  string
	png  []byte
	prev *cacheNode
	next *cacheNode
}

// CacheStats reports cache effectiveness
type CacheStats struct {
	Hits     int64
	Misses   int64
	Size     int
	Capacity int
}

var _ answerkey.Renderer = (*Cache)(nil)

// NewCache returns a cache holding up to capacity bitmaps rendered by next
func NewCache(next answerkey.Renderer, capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}

	c := &Cache{
		next:     next,
		capacity: capacity,
		items:    make(map[string]*cacheNode),
		head:     &cacheNode{},
		tail:     &cacheNode{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// Render returns the cached bitmap for html and cfg, rendering it on a miss
func (c *Cache) Render(ctx context.Context, html string, cfg answerkey.RenderConfig) ([]byte, error) {
	key := cacheKey(html, cfg)
	if png, ok := c.get(key); ok {
		return png, nil
	}

	png, err := c.next.Render(ctx, html, cfg)
	if err != nil {
		return nil, err
	}
	c.put(key, png)
	return png, nil
}

// Stats returns hit and miss counters
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Hits: c.hits, Misses: c.misses, Size: len(c.items), Capacity: c.capacity}
}

func cacheKey(html string, cfg answerkey.RenderConfig) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%t|%t|%s\n", cfg.Format, cfg.TransparentBackground, cfg.CropToContent, cfg.Selector)
	h.Write([]byte(html))
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Cache) get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.moveToFront(node)
	c.hits++
	return node.png, true
}

func (c *Cache) put(key string, png []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if node, ok := c.items[key]; ok {
		node.png = png
		c.moveToFront(node)
		return
	}

	node := &cacheNode{key: key, png: png}
	c.addToFront(node)
	c.items[key] = node

	if len(c.items) > c.capacity {
		lru := c.tail.prev
		c.removeNode(lru)
		delete(c.items, lru.key)
	}
}

func (c *Cache) moveToFront(node *cacheNode) {
	c.removeNode(node)
	c.addToFront(node)
}

func (c *Cache) addToFront(node *cacheNode) {
	node.prev = c.head
	node.next = c.head.next
	c.head.next.prev = node
	c.head.next = node
}

func (c *Cache) removeNode(node *cacheNode) {
	node.prev.next = node.next
	node.next.prev = node.prev
}
