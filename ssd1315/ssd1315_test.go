package ssd1315

import (
	"bytes"
	"errors"
	"image"
	"testing"

	"periph.io/x/conn/v3/i2c/i2ctest"

	"github.com/Kihltech/waveshare-0.49inch-oled/ssd1315/image1bit"
)

const addr uint16 = 0x3C

func cmdOp(c ...byte) i2ctest.IO {
	return i2ctest.IO{Addr: addr, W: append([]byte{i2cCmd}, c...)}
}

func dataOp(data []byte) i2ctest.IO {
	return i2ctest.IO{Addr: addr, W: append([]byte{i2cData}, data...)}
}

func windowOp(page int) i2ctest.IO {
	return cmdOp(_COLUMNADDR, 0, 63, _PAGEADDR, byte(page), byte(page))
}

// frameOps is the full page transfer for a 64x32 frame: one addressing
// window plus one data burst per page.
func frameOps(buffer []byte) []i2ctest.IO {
	var ops []i2ctest.IO
	for page := 0; page < 4; page++ {
		ops = append(ops, windowOp(page), dataOp(buffer[page*64:(page+1)*64]))
	}
	return ops
}

// initOps is the construction traffic: the init command sequence followed by
// a blank full-frame transfer.
func initOps() []i2ctest.IO {
	ops := []i2ctest.IO{{Addr: addr, W: append([]byte{i2cCmd}, initCmds(&DefaultOpts)...)}}
	return append(ops, frameOps(make([]byte, 64*4))...)
}

func newTestDev(t *testing.T, opts *Opts, extra ...i2ctest.IO) (*Dev, *i2ctest.Playback) {
	t.Helper()
	pb := &i2ctest.Playback{Ops: append(initOps(), extra...), DontPanic: true}
	d, err := NewI2C(pb, opts)
	if err != nil {
		t.Fatalf("NewI2C: %v", err)
	}
	return d, pb
}

func checkConsumed(t *testing.T, pb *i2ctest.Playback) {
	t.Helper()
	if pb.Count != len(pb.Ops) {
		t.Errorf("bus traffic mismatch: %d of %d expected operations seen", pb.Count, len(pb.Ops))
	}
}

func TestNew(t *testing.T) {
	d, pb := newTestDev(t, nil)
	checkConsumed(t, pb)
	if s := d.String(); s != "ssd1315.Dev{64x32}" {
		t.Errorf("String() = %q", s)
	}
	if got := d.Bounds(); got != image.Rect(0, 0, 64, 32) {
		t.Errorf("Bounds() = %v", got)
	}
	if d.ColorModel() != image1bit.BitModel {
		t.Error("ColorModel() is not BitModel")
	}
}

func TestNewInvalidGeometry(t *testing.T) {
	tests := []struct {
		name string
		opts Opts
	}{
		{"width not multiple of 8", Opts{W: 60, H: 32}},
		{"width too small", Opts{W: 0, H: 32}},
		{"width too large", Opts{W: 256, H: 32}},
		{"height not multiple of 8", Opts{W: 64, H: 12}},
		{"height too large", Opts{W: 64, H: 128}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pb := &i2ctest.Playback{DontPanic: true}
			if _, err := NewI2C(pb, &tt.opts); !errors.Is(err, ErrInvalidParameter) {
				t.Errorf("NewI2C() error = %v, want ErrInvalidParameter", err)
			}
			if pb.Count != 0 {
				t.Error("invalid geometry must not touch the bus")
			}
		})
	}
}

func TestNewTransportError(t *testing.T) {
	// An empty playback rejects the init sequence.
	pb := &i2ctest.Playback{DontPanic: true}
	_, err := NewI2C(pb, nil)
	var devErr *DeviceError
	if !errors.As(err, &devErr) {
		t.Fatalf("NewI2C() error = %v, want *DeviceError", err)
	}
}

func TestSetPixelReadback(t *testing.T) {
	d, _ := newTestDev(t, nil)
	for _, p := range []image.Point{{0, 0}, {63, 0}, {0, 31}, {63, 31}, {17, 9}} {
		if err := d.SetPixel(p.X, p.Y, 1); err != nil {
			t.Fatalf("SetPixel(%v, 1): %v", p, err)
		}
		if d.At(p.X, p.Y) != image1bit.On {
			t.Errorf("pixel %v not set", p)
		}
		if err := d.SetPixel(p.X, p.Y, 0); err != nil {
			t.Fatalf("SetPixel(%v, 0): %v", p, err)
		}
		if d.At(p.X, p.Y) != image1bit.Off {
			t.Errorf("pixel %v not cleared", p)
		}
	}
}

func TestSetPixelValidation(t *testing.T) {
	d, _ := newTestDev(t, nil)
	if err := d.SetPixel(1, 1, 2); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("color 2: error = %v, want ErrInvalidParameter", err)
	}
	before := append([]byte(nil), d.buffer...)
	for _, p := range []image.Point{{-1, 0}, {0, -1}, {64, 0}, {0, 32}} {
		if err := d.SetPixel(p.X, p.Y, 1); !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("SetPixel(%v) error = %v, want ErrOutOfBounds", p, err)
		}
	}
	if !bytes.Equal(before, d.buffer) {
		t.Error("out of bounds SetPixel mutated the framebuffer")
	}
}

func TestClearFill(t *testing.T) {
	d, _ := newTestDev(t, nil)
	if err := d.Fill(2); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("Fill(2) error = %v, want ErrInvalidParameter", err)
	}
	if err := d.Fill(1); err != nil {
		t.Fatal(err)
	}
	for _, b := range d.buffer {
		if b != 0xFF {
			t.Fatal("Fill(1) did not set every bit")
		}
	}
	// fill(1) then fill(0) leaves the same bit pattern as clear().
	if err := d.Fill(0); err != nil {
		t.Fatal(err)
	}
	filled := append([]byte(nil), d.buffer...)
	if err := d.Fill(1); err != nil {
		t.Fatal(err)
	}
	d.Clear()
	if !bytes.Equal(filled, d.buffer) {
		t.Error("Fill(0) and Clear() disagree")
	}
}

func TestRotation(t *testing.T) {
	d0, _ := newTestDev(t, &Opts{W: 64, H: 32})
	d180, _ := newTestDev(t, &Opts{W: 64, H: 32, Rotated: true})

	if err := d180.SetPixel(0, 0, 1); err != nil {
		t.Fatal(err)
	}
	if err := d0.SetPixel(63, 31, 1); err != nil {
		t.Fatal(err)
	}
	// Rotation is a pure coordinate transform: logical (0,0) at 180° lands on
	// the physical bit of logical (63,31) at 0°.
	if !bytes.Equal(d0.buffer, d180.buffer) {
		t.Error("rotated (0,0) and unrotated (63,31) produced different framebuffers")
	}
	if d180.At(0, 0) != image1bit.On {
		t.Error("rotated read-back does not see the logical pixel")
	}
}

func TestLoadImageRoundTrip(t *testing.T) {
	d, _ := newTestDev(t, nil)
	img := image1bit.New(d.Bounds())
	for y := 0; y < 32; y++ {
		for x := 0; x < 64; x++ {
			img.SetBit(x, y, image1bit.Bit((x+y)%3 == 0))
		}
	}
	if err := d.LoadImage(img); err != nil {
		t.Fatal(err)
	}
	for y := 0; y < 32; y++ {
		for x := 0; x < 64; x++ {
			if d.At(x, y) != img.BitAt(x, y) {
				t.Fatalf("pixel (%d,%d) differs after load", x, y)
			}
		}
	}
}

func TestLoadImageDimensionMismatch(t *testing.T) {
	d, _ := newTestDev(t, nil)
	before := append([]byte(nil), d.buffer...)
	img := image1bit.New(image.Rect(0, 0, 32, 32))
	if err := d.LoadImage(img); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("LoadImage error = %v, want ErrDimensionMismatch", err)
	}
	if !bytes.Equal(before, d.buffer) {
		t.Error("failed LoadImage mutated the framebuffer")
	}
}

func TestLoadImageRotated(t *testing.T) {
	d, _ := newTestDev(t, &Opts{W: 64, H: 32, Rotated: true})
	img := image1bit.New(d.Bounds())
	img.SetBit(0, 0, image1bit.On)
	if err := d.LoadImage(img); err != nil {
		t.Fatal(err)
	}
	// Logical (0,0) read-back is stable under rotation.
	if d.At(0, 0) != image1bit.On {
		t.Error("rotated LoadImage lost logical (0,0)")
	}
	// Physically the bit lives at the far corner.
	offset, mask := d.pixOffset(0, 0)
	if offset != 3*64+63 || mask != 1<<7 {
		t.Errorf("rotated pixel landed at offset %d mask %#x", offset, mask)
	}
}

func TestDisplayFullRepaint(t *testing.T) {
	full := bytes.Repeat([]byte{0xFF}, 64*4)
	// Two Display calls with no intervening mutation send two identical full
	// frames: no caching, no dirty tracking.
	extra := append(frameOps(full), frameOps(full)...)
	d, pb := newTestDev(t, nil, extra...)
	if err := d.Fill(1); err != nil {
		t.Fatal(err)
	}
	if err := d.Display(); err != nil {
		t.Fatal(err)
	}
	if err := d.Display(); err != nil {
		t.Fatal(err)
	}
	checkConsumed(t, pb)
}

func TestDisplayTransportError(t *testing.T) {
	// No ops beyond construction: the next transfer fails at the bus.
	d, _ := newTestDev(t, nil)
	if err := d.Fill(1); err != nil {
		t.Fatal(err)
	}
	err := d.Display()
	var devErr *DeviceError
	if !errors.As(err, &devErr) {
		t.Fatalf("Display() error = %v, want *DeviceError", err)
	}
	// The in-memory framebuffer is untouched by the failure.
	for _, b := range d.buffer {
		if b != 0xFF {
			t.Fatal("failed Display mutated the framebuffer")
		}
	}
}

func TestContrast(t *testing.T) {
	d, pb := newTestDev(t, nil,
		cmdOp(_SETCONTRAST, 0x00),
		cmdOp(_SETCONTRAST, 0xFF),
	)
	for _, level := range []int{-1, 256} {
		if err := d.Contrast(level); !errors.Is(err, ErrInvalidParameter) {
			t.Errorf("Contrast(%d) error = %v, want ErrInvalidParameter", level, err)
		}
	}
	if err := d.Contrast(0); err != nil {
		t.Fatal(err)
	}
	if err := d.Contrast(255); err != nil {
		t.Fatal(err)
	}
	checkConsumed(t, pb)
}

func TestInvert(t *testing.T) {
	d, pb := newTestDev(t, nil,
		cmdOp(_INVERTDISPLAY),
		cmdOp(_NORMALDISPLAY),
	)
	if err := d.Invert(true); err != nil {
		t.Fatal(err)
	}
	if err := d.Invert(false); err != nil {
		t.Fatal(err)
	}
	checkConsumed(t, pb)
}

func TestPowerIdempotent(t *testing.T) {
	d, pb := newTestDev(t, nil,
		cmdOp(_DISPLAYOFF),
		cmdOp(_DISPLAYON),
	)
	// Already on after init: a protocol-level no-op.
	if err := d.Power(true); err != nil {
		t.Fatal(err)
	}
	if err := d.Power(false); err != nil {
		t.Fatal(err)
	}
	if err := d.Power(false); err != nil {
		t.Fatal(err)
	}
	if err := d.Power(true); err != nil {
		t.Fatal(err)
	}
	checkConsumed(t, pb)
}

func TestHalt(t *testing.T) {
	d, pb := newTestDev(t, nil,
		cmdOp(_DISPLAYOFF),
		cmdOp(_DISPLAYON),
	)
	if err := d.Halt(); err != nil {
		t.Fatal(err)
	}
	// Halt is a power-off, not a close: a second Halt is a no-op and the
	// device comes back with Power.
	if err := d.Halt(); err != nil {
		t.Fatal(err)
	}
	if err := d.Power(true); err != nil {
		t.Fatal(err)
	}
	checkConsumed(t, pb)
}

func TestCloseIdempotent(t *testing.T) {
	d, pb := newTestDev(t, nil, cmdOp(_DISPLAYOFF))
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	// Second close is a no-op: no second power-off write.
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	checkConsumed(t, pb)
	if d.c != nil {
		t.Error("Close must release the device handle")
	}

	err := d.Display()
	var devErr *DeviceError
	if !errors.As(err, &devErr) {
		t.Fatalf("Display() after Close error = %v, want *DeviceError", err)
	}
	if !errors.Is(err, ErrClosed) {
		t.Errorf("Display() after Close error = %v, want ErrClosed", err)
	}
}

func TestDraw(t *testing.T) {
	img := image1bit.New(image.Rect(0, 0, 64, 32))
	img.DrawHLine(0, 63, 0, image1bit.On)
	extra := frameOps(append(bytes.Repeat([]byte{0x01}, 64), make([]byte, 64*3)...))
	d, pb := newTestDev(t, nil, extra...)
	if err := d.Draw(d.Bounds(), img, image.Point{}); err != nil {
		t.Fatal(err)
	}
	checkConsumed(t, pb)
}
