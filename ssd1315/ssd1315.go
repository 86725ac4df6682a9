package ssd1315

// The SSD1315 is the successor of the SSD1306 and keeps its command set.
// Waveshare uses it on the 0.49" 64x32 OLED module this driver targets.
//
// https://www.waveshare.com/wiki/0.49inch_OLED_Module

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/i2c"

	"github.com/Kihltech/waveshare-0.49inch-oled/ssd1315/image1bit"
)

// Command set, see the SSD1315 datasheet section 9.
const (
	_CHARGEPUMP          = 0x8D
	_COLUMNADDR          = 0x21
	_COMSCANDEC          = 0xC8
	_COMSCANINC          = 0xC0
	_DISPLAYALLON_RESUME = 0xA4
	_DISPLAYOFF          = 0xAE
	_DISPLAYON           = 0xAF
	_INVERTDISPLAY       = 0xA7
	_MEMORYMODE          = 0x20
	_NORMALDISPLAY       = 0xA6
	_PAGEADDR            = 0x22
	_SEGREMAP            = 0xA0
	_SETCOMPINS          = 0xDA
	_SETCONTRAST         = 0x81
	_SETDISPLAYCLOCKDIV  = 0xD5
	_SETDISPLAYOFFSET    = 0xD3
	_SETMULTIPLEX        = 0xA8
	_SETPRECHARGE        = 0xD9
	_SETSEGMENTREMAP     = 0xA1
	_SETSTARTLINE        = 0x40
	_SETVCOMDETECT       = 0xDB
)

const (
	i2cCmd  = 0x00 // I²C transaction has a stream of command bytes
	i2cData = 0x40 // I²C transaction has a stream of data bytes
)

// Errors returned by the driver. Bus transport failures are reported as
// *DeviceError instead.
var (
	// ErrInvalidParameter is returned when a color or contrast value is out of
	// range. The operation has no side effect.
	ErrInvalidParameter = errors.New("ssd1315: invalid parameter")
	// ErrOutOfBounds is returned when a pixel coordinate falls outside the
	// display. The framebuffer is not modified.
	ErrOutOfBounds = errors.New("ssd1315: coordinate out of bounds")
	// ErrDimensionMismatch is returned when a supplied image does not match
	// the display dimensions exactly.
	ErrDimensionMismatch = errors.New("ssd1315: image dimension mismatch")
	// ErrClosed is returned, wrapped in a *DeviceError, when an operation
	// requiring the bus is attempted after Close.
	ErrClosed = errors.New("ssd1315: device closed")
)

// DeviceError reports a failed bus transaction.
//
// The in-memory framebuffer is left untouched by a failed transfer; the panel
// itself may be left partially updated.
type DeviceError struct {
	Op  string // failing operation, e.g. "display"
	Err error
}

func (e *DeviceError) Error() string {
	return "ssd1315: " + e.Op + ": " + e.Err.Error()
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// DefaultOpts is the recommended default options, matching the Waveshare
// 0.49" module.
var DefaultOpts = Opts{
	W:    64,
	H:    32,
	Addr: 0x3C,
}

// Opts defines the options for the device. The configuration is immutable
// after NewI2C.
type Opts struct {
	W int
	H int
	// Rotated determines if the display content is rotated by 180°. The
	// rotation is applied when mapping logical coordinates to framebuffer bit
	// positions; the transfer format on the wire is unchanged.
	Rotated bool
	// The I²C address of the display.
	Addr uint16
}

// Dev is an open handle to the display controller.
//
// Dev is not safe for concurrent use; at most one logical caller may drive an
// instance at a time.
type Dev struct {
	c    conn.Conn
	rect image.Rectangle

	// buffer mirrors the controller's display RAM: pages of 8 vertically
	// stacked pixels, one byte per column per page.
	buffer  []byte
	pages   int
	rotated bool

	on     bool
	closed bool
}

// NewI2C returns a Dev object that communicates over I²C to an SSD1315
// display controller.
//
// The bus stays owned by the caller; Close powers the panel off but does not
// close the bus.
func NewI2C(b i2c.Bus, opts *Opts) (*Dev, error) {
	if opts == nil {
		o := DefaultOpts
		opts = &o
	}
	if opts.Addr == 0x00 {
		opts.Addr = DefaultOpts.Addr
	}
	if opts.W < 8 || opts.W > 128 || opts.W&7 != 0 {
		return nil, fmt.Errorf("%w: width %d", ErrInvalidParameter, opts.W)
	}
	if opts.H < 8 || opts.H > 64 || opts.H&7 != 0 {
		return nil, fmt.Errorf("%w: height %d", ErrInvalidParameter, opts.H)
	}
	d := &Dev{
		c:       &i2c.Dev{Bus: b, Addr: opts.Addr},
		rect:    image.Rect(0, 0, opts.W, opts.H),
		pages:   opts.H / 8,
		buffer:  make([]byte, opts.W*opts.H/8),
		rotated: opts.Rotated,
	}
	if err := d.sendCommand("init", initCmds(opts)); err != nil {
		return nil, err
	}
	d.on = true
	// The controller powers up with random RAM content; push the zeroed
	// framebuffer so the panel starts blank.
	if err := d.Display(); err != nil {
		return nil, err
	}
	return d, nil
}

// initCmds returns the power-up sequence for the SSD1315.
//
// Ordering matters: segment remap and COM scan direction precede any data
// write, and display-on is the terminal command.
func initCmds(opts *Opts) []byte {
	comPins := byte(0x12)
	if opts.H <= 32 {
		comPins = 0x02
	}
	return []byte{
		_DISPLAYOFF,
		_SETDISPLAYCLOCKDIV, 0x80,
		_SETMULTIPLEX, byte(opts.H - 1),
		_SETDISPLAYOFFSET, 0x00,
		_SETSTARTLINE | 0x00,
		_CHARGEPUMP, 0x14,
		_MEMORYMODE, 0x00, // horizontal addressing
		_SETSEGMENTREMAP,
		_COMSCANDEC,
		_SETCOMPINS, comPins,
		_SETCONTRAST, 0xCF,
		_SETPRECHARGE, 0xF1,
		_SETVCOMDETECT, 0x40,
		_DISPLAYALLON_RESUME,
		_NORMALDISPLAY,
		_DISPLAYON,
	}
}

func (d *Dev) String() string {
	return fmt.Sprintf("ssd1315.Dev{%dx%d}", d.rect.Dx(), d.rect.Dy())
}

// ColorModel implements display.Drawer.
//
// It is a one bit color model, as implemented by image1bit.Bit.
func (d *Dev) ColorModel() color.Model {
	return image1bit.BitModel
}

// Bounds implements display.Drawer. Min is guaranteed to be {0, 0}.
func (d *Dev) Bounds() image.Rectangle {
	return d.rect
}

// At returns the logical pixel at (x, y). With that, Dev doubles as a
// read-only image.Image view of the framebuffer.
func (d *Dev) At(x, y int) color.Color {
	if !(image.Point{x, y}.In(d.rect)) {
		return image1bit.Off
	}
	offset, mask := d.pixOffset(x, y)
	return image1bit.Bit(d.buffer[offset]&mask != 0)
}

// pixOffset maps a logical coordinate to its physical bit position, applying
// the 180° rotation transform when configured.
func (d *Dev) pixOffset(x, y int) (int, byte) {
	if d.rotated {
		x = d.rect.Dx() - 1 - x
		y = d.rect.Dy() - 1 - y
	}
	return y/8*d.rect.Dx() + x, 1 << uint(y&7)
}

// Clear zeroes the framebuffer. It performs no device I/O; call Display to
// push the blank frame to the panel.
func (d *Dev) Clear() {
	for i := range d.buffer {
		d.buffer[i] = 0
	}
}

// Fill sets every pixel to color (0 or 1). No device I/O.
func (d *Dev) Fill(color int) error {
	b, err := colorByte(color)
	if err != nil {
		return err
	}
	for i := range d.buffer {
		d.buffer[i] = b
	}
	return nil
}

func colorByte(color int) (byte, error) {
	switch color {
	case 0:
		return 0x00, nil
	case 1:
		return 0xFF, nil
	default:
		return 0, fmt.Errorf("%w: color %d", ErrInvalidParameter, color)
	}
}

// SetPixel sets the logical pixel (x, y) to color (0 or 1). No device I/O.
func (d *Dev) SetPixel(x, y, color int) error {
	if color != 0 && color != 1 {
		return fmt.Errorf("%w: color %d", ErrInvalidParameter, color)
	}
	if !(image.Point{x, y}.In(d.rect)) {
		return fmt.Errorf("%w: (%d,%d)", ErrOutOfBounds, x, y)
	}
	d.setBit(x, y, color == 1)
	return nil
}

func (d *Dev) setBit(x, y int, on bool) {
	offset, mask := d.pixOffset(x, y)
	if on {
		d.buffer[offset] |= mask
	} else {
		d.buffer[offset] &^= mask
	}
}

// LoadImage replaces the framebuffer with src, which must match the display
// dimensions exactly. Any color model is accepted and converted through
// image1bit.BitModel. No device I/O.
func (d *Dev) LoadImage(src image.Image) error {
	r := src.Bounds()
	if r.Dx() != d.rect.Dx() || r.Dy() != d.rect.Dy() {
		return fmt.Errorf("%w: got %dx%d, want %dx%d", ErrDimensionMismatch, r.Dx(), r.Dy(), d.rect.Dx(), d.rect.Dy())
	}
	if img, ok := src.(*image1bit.VerticalLSB); ok && !d.rotated && img.Rect == d.rect && img.Stride == d.rect.Dx() {
		// Same packing as the framebuffer: plain copy.
		copy(d.buffer, img.Pix)
		return nil
	}
	for y := 0; y < d.rect.Dy(); y++ {
		for x := 0; x < d.rect.Dx(); x++ {
			c := src.At(r.Min.X+x, r.Min.Y+y)
			d.setBit(x, y, bool(image1bit.BitModel.Convert(c).(image1bit.Bit)))
		}
	}
	return nil
}

// Display writes the framebuffer to the panel, one addressing window plus one
// data burst per page. Every call re-sends the full frame.
func (d *Dev) Display() error {
	w := d.rect.Dx()
	for page := 0; page < d.pages; page++ {
		err := d.sendCommand("display", []byte{
			_COLUMNADDR, 0, byte(w - 1),
			_PAGEADDR, byte(page), byte(page),
		})
		if err != nil {
			return err
		}
		if err := d.sendData("display", d.buffer[page*w:(page+1)*w]); err != nil {
			return err
		}
	}
	return nil
}

// Draw implements display.Drawer.
//
// It draws synchronously; once this function returns, the panel is updated.
func (d *Dev) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	r = r.Intersect(d.rect)
	if r.Empty() {
		return nil
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			c := src.At(sp.X+x-r.Min.X, sp.Y+y-r.Min.Y)
			d.setBit(x, y, bool(image1bit.BitModel.Convert(c).(image1bit.Bit)))
		}
	}
	return d.Display()
}

// Contrast sets the display contrast. level must be in [0, 255].
func (d *Dev) Contrast(level int) error {
	if level < 0 || level > 255 {
		return fmt.Errorf("%w: contrast %d", ErrInvalidParameter, level)
	}
	return d.sendCommand("contrast", []byte{_SETCONTRAST, byte(level)})
}

// Invert inverts the display colors (lit becomes dark and vice versa). The
// framebuffer content is unchanged.
func (d *Dev) Invert(enable bool) error {
	c := byte(_NORMALDISPLAY)
	if enable {
		c = _INVERTDISPLAY
	}
	return d.sendCommand("invert", []byte{c})
}

// Power turns the panel on or off. Requesting the current state is a
// successful no-op; the framebuffer and the controller RAM are preserved
// while off.
func (d *Dev) Power(on bool) error {
	if d.closed {
		return &DeviceError{Op: "power", Err: ErrClosed}
	}
	if d.on == on {
		return nil
	}
	c := byte(_DISPLAYOFF)
	if on {
		c = _DISPLAYON
	}
	if err := d.sendCommand("power", []byte{c}); err != nil {
		return err
	}
	d.on = on
	return nil
}

// Halt implements conn.Resource. It turns the panel off.
//
// Unlike Close, the device stays usable: any later command turns it back on
// through Power.
func (d *Dev) Halt() error {
	return d.Power(false)
}

// Close powers the panel off and releases the device handle. The power-off
// is best effort: a transport error is logged, not returned. Close is
// idempotent. The underlying bus stays open; its lifetime belongs to the
// caller.
func (d *Dev) Close() error {
	if d.closed {
		return nil
	}
	if err := d.Power(false); err != nil {
		log.Printf("ssd1315: power off on close: %v", err)
	}
	d.closed = true
	d.c = nil
	return nil
}

func (d *Dev) sendCommand(op string, c []byte) error {
	if d.closed {
		return &DeviceError{Op: op, Err: ErrClosed}
	}
	if err := d.c.Tx(append([]byte{i2cCmd}, c...), nil); err != nil {
		return &DeviceError{Op: op, Err: err}
	}
	return nil
}

func (d *Dev) sendData(op string, data []byte) error {
	if d.closed {
		return &DeviceError{Op: op, Err: ErrClosed}
	}
	if err := d.c.Tx(append([]byte{i2cData}, data...), nil); err != nil {
		return &DeviceError{Op: op, Err: err}
	}
	return nil
}

var _ display.Drawer = &Dev{}
var _ image.Image = &Dev{}
