package ssd1315

import (
	"errors"

	"github.com/fogleman/gg"
)

// ErrCanvasReleased is returned by Commit on a canvas that was already
// committed or discarded.
var ErrCanvasReleased = errors.New("ssd1315: canvas already released")

// Canvas is a drawing surface bound to a display.
//
// It wraps a gg raster context so callers get lines, shapes and text, and
// commits the result to the device in a single frame: Commit converts the
// surface to 1 bit, loads it into the framebuffer and flushes once. Discard
// releases the canvas without touching the device. Whatever happens, a canvas
// commits at most once.
//
// Draw lit pixels in white (SetRGB(1, 1, 1)) and dark pixels in black; the
// conversion thresholds on luminance.
//
// A canvas must not be used concurrently with other access to the same Dev,
// as it holds a snapshot that would go stale.
type Canvas struct {
	d        *Dev
	gc       *gg.Context
	released bool
}

// NewCanvas returns a canvas pre-populated with the current framebuffer
// content.
func (d *Dev) NewCanvas() *Canvas {
	return newCanvas(d, true)
}

func newCanvas(d *Dev, keep bool) *Canvas {
	gc := gg.NewContext(d.rect.Dx(), d.rect.Dy())
	if keep {
		gc.DrawImage(d, 0, 0)
	}
	return &Canvas{d: d, gc: gc}
}

// Context returns the drawing context.
func (c *Canvas) Context() *gg.Context {
	return c.gc
}

// Commit copies the canvas content into the framebuffer and flushes it to
// the panel. The canvas is released afterwards, even on a transfer error.
func (c *Canvas) Commit() error {
	if c.released {
		return ErrCanvasReleased
	}
	c.released = true
	if err := c.d.LoadImage(c.gc.Image()); err != nil {
		return err
	}
	return c.d.Display()
}

// Discard releases the canvas without committing. It is safe to call after
// Commit and may be called multiple times.
func (c *Canvas) Discard() {
	c.released = true
}

// Paint runs fn on a blank canvas and commits the result as one frame.
//
// If fn returns an error the canvas is discarded: nothing is loaded into the
// framebuffer and no transfer happens. The canvas is released in every case.
func (d *Dev) Paint(fn func(gc *gg.Context) error) error {
	c := newCanvas(d, false)
	defer c.Discard()
	if err := fn(c.Context()); err != nil {
		return err
	}
	return c.Commit()
}
