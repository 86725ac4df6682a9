// Package image1bit implements black and white (1 bit per pixel) images in
// the vertical-LSB packing used by SSD13xx OLED controllers.
//
// Each byte of Pix holds a column of 8 vertically stacked pixels with the
// least significant bit on top, so a band of 8 rows occupies Stride
// consecutive bytes. This is exactly the layout of the controller's display
// RAM pages, which makes a full-frame transfer a plain copy.
package image1bit

import (
	"image"
	"image/color"
	"image/draw"
)

// Bit implements a 1 bit color.
type Bit bool

// Possible bit values.
const (
	On  Bit = true
	Off Bit = false
)

// RGBA returns either all white or all black.
func (b Bit) RGBA() (uint32, uint32, uint32, uint32) {
	if b {
		return 65535, 65535, 65535, 65535
	}
	return 0, 0, 0, 65535
}

func (b Bit) String() string {
	if b {
		return "On"
	}
	return "Off"
}

// BitModel is the color model for Bit.
var BitModel = color.ModelFunc(convertBit)

func convertBit(c color.Color) color.Color {
	if b, ok := c.(Bit); ok {
		return b
	}
	// Use the perceived luminance with the midpoint as threshold.
	r, g, b, _ := c.RGBA()
	y := (299*r + 587*g + 114*b + 500) / 1000
	return Bit(y >= 0x8000)
}

// VerticalLSB is a 1 bit per pixel image in vertical-LSB band packing.
type VerticalLSB struct {
	// Pix holds the image's pixels, as vertically LSB-first packed bitmap.
	Pix []byte
	// Stride is the Pix stride (in bytes) between vertically adjacent 8 pixel
	// high bands.
	Stride int
	// Rect is the image's bounds.
	Rect image.Rectangle
}

// New returns an initialized VerticalLSB instance.
//
// The height of r is rounded up to the next multiple of 8 so partial bands
// always have backing bytes.
func New(r image.Rectangle) *VerticalLSB {
	w := r.Dx()
	bands := (r.Dy() + 7) / 8
	return &VerticalLSB{
		Pix:    make([]byte, w*bands),
		Stride: w,
		Rect:   r,
	}
}

// ColorModel implements image.Image.
func (i *VerticalLSB) ColorModel() color.Model {
	return BitModel
}

// Bounds implements image.Image.
func (i *VerticalLSB) Bounds() image.Rectangle {
	return i.Rect
}

// At implements image.Image.
func (i *VerticalLSB) At(x, y int) color.Color {
	return i.BitAt(x, y)
}

// BitAt is the optimized version of At().
func (i *VerticalLSB) BitAt(x, y int) Bit {
	if !(image.Point{x, y}.In(i.Rect)) {
		return Off
	}
	offset, mask := i.PixOffset(x, y)
	return Bit(i.Pix[offset]&mask != 0)
}

// Set implements draw.Image.
func (i *VerticalLSB) Set(x, y int, c color.Color) {
	i.SetBit(x, y, convertBit(c).(Bit))
}

// SetBit is the optimized version of Set().
func (i *VerticalLSB) SetBit(x, y int, b Bit) {
	if !(image.Point{x, y}.In(i.Rect)) {
		return
	}
	offset, mask := i.PixOffset(x, y)
	if b {
		i.Pix[offset] |= mask
	} else {
		i.Pix[offset] &^= mask
	}
}

// PixOffset returns the index into Pix and the bit mask for the pixel at
// (x, y).
func (i *VerticalLSB) PixOffset(x, y int) (int, byte) {
	pY := y - i.Rect.Min.Y
	return pY/8*i.Stride + x - i.Rect.Min.X, 1 << uint(pY&7)
}

// DrawHLine draws a horizontal line between x1 and x2 inclusive.
func (i *VerticalLSB) DrawHLine(x1, x2, y int, b Bit) {
	for x := x1; x <= x2; x++ {
		i.SetBit(x, y, b)
	}
}

// DrawVLine draws a vertical line between y1 and y2 inclusive.
func (i *VerticalLSB) DrawVLine(y1, y2, x int, b Bit) {
	for y := y1; y <= y2; y++ {
		i.SetBit(x, y, b)
	}
}

var _ draw.Image = &VerticalLSB{}
