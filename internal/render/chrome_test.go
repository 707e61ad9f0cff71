package render

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/pdf-answer-key/internal/answerkey"
)

func TestNewChrome_DefaultTimeout(t *testing.T) {
	c := NewChrome(Options{})
	assert.Equal(t, DefaultTimeout, c.opts.Timeout)

	c = NewChrome(Options{Timeout: time.Second})
	assert.Equal(t, time.Second, c.opts.Timeout)
}

func TestChrome_CloseWithoutBrowser(t *testing.T) {
	c := NewChrome(Options{})
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}

func TestChrome_RenderRejectsBeforeLaunch(t *testing.T) {
	c := NewChrome(Options{BrowserBin: "/nonexistent/chrome"})

	_, err := c.Render(context.Background(), "<p>x</p>", answerkey.RenderConfig{Format: "jpeg"})
	assert.True(t, errors.Is(err, ErrUnsupported))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Render(ctx, "<p>x</p>", answerkey.DefaultRenderConfig())
	assert.True(t, errors.Is(err, context.Canceled))

	assert.Nil(t, c.browser)
}

func TestChrome_Timeout(t *testing.T) {
	c := NewChrome(Options{Timeout: 5 * time.Second})

	d, err := c.timeout(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, d)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	d, err = c.timeout(ctx)
	require.NoError(t, err)
	assert.Greater(t, d, 50*time.Second)

	expired, cancel2 := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel2()
	_, err = c.timeout(expired)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestWriteTempHTML(t *testing.T) {
	path, cleanup, err := writeTempHTML("<table id=\"answersheet\"></table>")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<table id=\"answersheet\"></table>", string(data))
	assert.True(t, strings.HasSuffix(path, ".html"))

	cleanup()
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestFileURL(t *testing.T) {
	assert.Equal(t, "file:///tmp/answersheet.html", fileURL("/tmp/answersheet.html"))
}

func TestChrome_RenderIntegration(t *testing.T) {
	bin := os.Getenv("ROD_BROWSER_BIN")
	if bin == "" {
		t.Skip("ROD_BROWSER_BIN not set")
	}

	c := NewChrome(Options{BrowserBin: bin, NoSandbox: true})
	defer c.Close()

	table := answerkey.Compose(answerkey.Entries{{Question: "1", QuestionFont: "Arial", Answer: "Paris", AnswerFont: "Arial"}})
	html, err := table.HTML()
	require.NoError(t, err)

	img, err := answerkey.NewRasterizer(c).Rasterize(context.Background(), table)
	require.NoError(t, err)
	assert.Greater(t, img.Width, 0)
	assert.Greater(t, img.Height, 0)

	data, err := c.Render(context.Background(), html, answerkey.DefaultRenderConfig())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "\x89PNG"))
}
