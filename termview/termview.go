// Package termview implements a monochrome display.Drawer that renders to a
// terminal (stdout) using ANSI color codes.
//
// Useful to develop against the 64x32 OLED module without the hardware
// attached: it accepts the same vertical-LSB page-packed buffer the real
// panel receives.
package termview

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/conn/v3/display"

	"github.com/Kihltech/waveshare-0.49inch-oled/ssd1315/image1bit"
)

// Opts represents the options available for this display.
type Opts struct {
	W       int
	H       int
	Palette *ansi256.Palette
}

// Dev is a monochrome display emulator that outputs to the console.
type Dev struct {
	w    io.Writer
	rect image.Rectangle

	pixels *image1bit.VerticalLSB
	on     string
	off    string
	buf    bytes.Buffer
}

// New returns a Dev that displays at the console.
func New(opts *Opts) *Dev {
	return NewWriter(colorable.NewColorableStdout(), opts)
}

// NewWriter returns a Dev that displays at the specified writer.
func NewWriter(w io.Writer, opts *Opts) *Dev {
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	rect := image.Rect(0, 0, opts.W, opts.H)
	return &Dev{
		w:      w,
		rect:   rect,
		pixels: image1bit.New(rect),
		on:     p.Block(color.NRGBA{255, 255, 255, 255}),
		off:    p.Block(color.NRGBA{0, 0, 0, 255}),
	}
}

func (d *Dev) String() string {
	return fmt.Sprintf("termview.Dev{%dx%d}", d.rect.Dx(), d.rect.Dy())
}

// Halt implements conn.Resource.
//
// It resets the terminal attributes so the console is not left corrupted.
func (d *Dev) Halt() error {
	_, err := d.w.Write([]byte("\033[0m\n"))
	return err
}

// Write accepts a vertical-LSB page-packed pixel stream, the same format
// ssd1315.Display sends to the panel, and renders it.
func (d *Dev) Write(pixels []byte) (int, error) {
	if len(pixels) != len(d.pixels.Pix) {
		return 0, fmt.Errorf("termview: invalid pixel stream length; expected %d bytes, got %d bytes", len(d.pixels.Pix), len(pixels))
	}
	copy(d.pixels.Pix, pixels)
	return len(pixels), d.refresh()
}

// ColorModel implements display.Drawer.
func (d *Dev) ColorModel() color.Model {
	return image1bit.BitModel
}

// Bounds implements display.Drawer.
func (d *Dev) Bounds() image.Rectangle {
	return d.rect
}

// Draw implements display.Drawer.
func (d *Dev) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	r = r.Intersect(d.rect)
	if r.Empty() {
		return nil
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			d.pixels.Set(x, y, src.At(sp.X+x-r.Min.X, sp.Y+y-r.Min.Y))
		}
	}
	return d.refresh()
}

func (d *Dev) refresh() error {
	// This code is designed to minimize the amount of memory allocated per
	// call.
	d.buf.Reset()
	_, _ = d.buf.WriteString("\033[H")
	for y := 0; y < d.rect.Dy(); y++ {
		for x := 0; x < d.rect.Dx(); x++ {
			if d.pixels.BitAt(x, y) {
				_, _ = d.buf.WriteString(d.on)
			} else {
				_, _ = d.buf.WriteString(d.off)
			}
		}
		_, _ = d.buf.WriteString("\033[0m\n")
	}
	_, err := d.buf.WriteTo(d.w)
	return err
}

var _ display.Drawer = &Dev{}
var _ fmt.Stringer = &Dev{}
