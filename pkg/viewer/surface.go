package viewer

import (
	"image"
	"image/png"
	"io"
	"sync"
)

// Canvas is an in-memory Surface. It keeps the last committed frame.
type Canvas struct {
	mu      sync.RWMutex
	img     *image.RGBA
	commits int
}

func NewCanvas() *Canvas {
	return &Canvas{}
}

func (c *Canvas) Commit(img *image.RGBA) {
	c.mu.Lock()
	c.img = img
	c.commits++
	c.mu.Unlock()
}

// Image returns the last committed frame, or nil. The frame must not be
// modified.
func (c *Canvas) Image() *image.RGBA {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.img
}

// Commits returns how many frames have been committed.
func (c *Canvas) Commits() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.commits
}

// EncodePNG writes the last committed frame as PNG. It returns ErrNoDocument
// before the first commit.
func (c *Canvas) EncodePNG(w io.Writer) error {
	img := c.Image()
	if img == nil {
		return ErrNoDocument
	}
	return png.Encode(w, img)
}
