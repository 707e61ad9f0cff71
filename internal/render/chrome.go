// Package render rasterizes answer-sheet HTML with headless Chrome.
package render

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/a3tai/pdf-answer-key/internal/answerkey"
)

// Sentinel errors for browser operations.
var (
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrPageLoad       = errors.New("failed to load page")
	ErrScreenshot     = errors.New("failed to capture screenshot")
	ErrUnsupported    = errors.New("unsupported render format")
)

// DefaultTimeout bounds page load when the caller's context has no deadline.
const DefaultTimeout = 30 * time.Second

// Options configures the browser launch.
type Options struct {
	// BrowserBin is a pre-installed Chrome; empty lets rod locate or
	// download one.
	BrowserBin string
	NoSandbox  bool
	Timeout    time.Duration
	Debug      bool
}

// Chrome renders HTML documents to PNG. The browser is launched on first
// use and shared by later calls until Close.
type Chrome struct {
	opts Options

	mu      sync.Mutex
	browser *rod.Browser
}

var _ answerkey.Renderer = (*Chrome)(nil)

// NewChrome creates a renderer. No browser is started until Render.
func NewChrome(opts Options) *Chrome {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Chrome{opts: opts}
}

func (c *Chrome) ensureBrowser() (*rod.Browser, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.browser != nil {
		return c.browser, nil
	}

	l := launcher.New()
	if c.opts.BrowserBin != "" {
		l = l.Bin(c.opts.BrowserBin)
	}
	if c.opts.NoSandbox {
		l = l.NoSandbox(true)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	if c.opts.Debug {
		log.Printf("Launched headless browser at %s", u)
	}
	c.browser = browser
	return browser, nil
}

// Close shuts the browser down if one was started.
func (c *Chrome) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.browser == nil {
		return nil
	}
	err := c.browser.Close()
	c.browser = nil
	return err
}

// Render loads html in a fresh tab and screenshots the element matched by
// cfg.Selector, or the whole viewport when no selector is set. The HTML is
// staged in a temporary file that is removed before Render returns.
func (c *Chrome) Render(ctx context.Context, html string, cfg answerkey.RenderConfig) ([]byte, error) {
	if cfg.Format != "" && cfg.Format != "png" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, cfg.Format)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, cleanup, err := writeTempHTML(html)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	browser, err := c.ensureBrowser()
	if err != nil {
		return nil, err
	}

	timeout, err := c.timeout(ctx)
	if err != nil {
		return nil, err
	}

	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	defer page.Close()
	page = page.Timeout(timeout)

	if cfg.TransparentBackground {
		alpha := 0.0
		err := proto.EmulationSetDefaultBackgroundColorOverride{
			Color: &proto.DOMRGBA{R: 0, G: 0, B: 0, A: &alpha},
		}.Call(page)
		if err != nil {
			return nil, fmt.Errorf("%w: background override: %v", ErrPageCreate, err)
		}
	}

	if err := page.Navigate(fileURL(path)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}

	if cfg.Selector == "" {
		data, err := page.Screenshot(true, &proto.PageCaptureScreenshot{
			Format: proto.PageCaptureScreenshotFormatPng,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrScreenshot, err)
		}
		return data, nil
	}

	el, err := page.Element(cfg.Selector)
	if err != nil {
		return nil, fmt.Errorf("%w: element %q: %v", ErrPageLoad, cfg.Selector, err)
	}
	data, err := el.Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScreenshot, err)
	}
	return data, nil
}

func (c *Chrome) timeout(ctx context.Context) (time.Duration, error) {
	timeout := c.opts.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return 0, context.DeadlineExceeded
		}
	}
	return timeout, nil
}

// writeTempHTML stages html on disk and returns a cleanup that removes it.
func writeTempHTML(html string) (string, func(), error) {
	f, err := os.CreateTemp("", "answersheet-*.html")
	if err != nil {
		return "", func() {}, fmt.Errorf("failed to create temp file: %w", err)
	}
	path := f.Name()
	cleanup := func() { _ = os.Remove(path) }

	if _, err := f.WriteString(html); err != nil {
		_ = f.Close()
		cleanup()
		return "", func() {}, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", func() {}, fmt.Errorf("failed to close temp file: %w", err)
	}
	return path, cleanup, nil
}

func fileURL(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return "file://" + filepath.ToSlash(abs)
}
