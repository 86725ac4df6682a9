// oled-demo drives the Waveshare 0.49" OLED module, or an ANSI terminal
// emulation of it, through a few demo scenes.
package main

import (
	"flag"
	"fmt"
	"image"
	"log"
	"math"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/Kihltech/waveshare-0.49inch-oled/ssd1315"
	"github.com/Kihltech/waveshare-0.49inch-oled/ssd1315/image1bit"
	"github.com/Kihltech/waveshare-0.49inch-oled/termview"
)

func main() {
	bus := flag.String("bus", "", "I²C bus name, empty for the first available")
	addr := flag.Uint("addr", uint(ssd1315.DefaultOpts.Addr), "I²C device address")
	width := flag.Int("width", ssd1315.DefaultOpts.W, "display width")
	height := flag.Int("height", ssd1315.DefaultOpts.H, "display height")
	rotated := flag.Bool("rotate", false, "rotate the display 180°")
	term := flag.Bool("term", false, "render to the terminal instead of hardware")
	scene := flag.String("scene", "hello", "scene to show: hello, shapes or sine")
	flag.Parse()

	if err := run(*bus, uint16(*addr), *width, *height, *rotated, *term, *scene); err != nil {
		log.Fatal(err)
	}
}

func run(busName string, addr uint16, w, h int, rotated, term bool, scene string) error {
	if term {
		d := termview.New(&termview.Opts{W: w, H: h})
		defer d.Halt()
		img, err := renderScene(scene, w, h)
		if err != nil {
			return err
		}
		return d.Draw(d.Bounds(), img, image.Point{})
	}

	if _, err := host.Init(); err != nil {
		return err
	}
	b, err := i2creg.Open(busName)
	if err != nil {
		return err
	}
	defer b.Close()

	dev, err := ssd1315.NewI2C(b, &ssd1315.Opts{W: w, H: h, Rotated: rotated, Addr: addr})
	if err != nil {
		return err
	}
	defer dev.Close()
	fmt.Printf("device=%s\n", dev)

	switch scene {
	case "hello", "shapes":
		if err := dev.Paint(sceneFunc(scene, w, h)); err != nil {
			return err
		}
	case "sine":
		if err := dev.Draw(dev.Bounds(), sineImage(w, h), image.Point{}); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown scene %q", scene)
	}
	time.Sleep(5 * time.Second)
	return nil
}

// renderScene rasterizes a scene offscreen for non-hardware targets.
func renderScene(scene string, w, h int) (image.Image, error) {
	switch scene {
	case "hello", "shapes":
		gc := gg.NewContext(w, h)
		if err := sceneFunc(scene, w, h)(gc); err != nil {
			return nil, err
		}
		return gc.Image(), nil
	case "sine":
		return sineImage(w, h), nil
	default:
		return nil, fmt.Errorf("unknown scene %q", scene)
	}
}

func sceneFunc(scene string, w, h int) func(gc *gg.Context) error {
	if scene == "hello" {
		return func(gc *gg.Context) error {
			f, err := truetype.Parse(goregular.TTF)
			if err != nil {
				return err
			}
			gc.SetFontFace(truetype.NewFace(f, &truetype.Options{Size: 11}))
			gc.SetRGB(1, 1, 1)
			gc.DrawStringAnchored("Hello!", float64(w)/2, float64(h)/2, 0.5, 0.5)
			return nil
		}
	}
	return func(gc *gg.Context) error {
		gc.SetRGB(1, 1, 1)
		gc.SetLineWidth(1)
		gc.DrawRectangle(0.5, 0.5, float64(w)-1, float64(h)-1)
		gc.Stroke()
		gc.DrawEllipse(float64(w)/4, float64(h)/2, float64(w)/5, float64(h)/3)
		gc.Stroke()
		gc.DrawLine(float64(w)/2, float64(h)-3, float64(w)-3, 3)
		gc.Stroke()
		return nil
	}
}

// sineImage plots a sine wave with axes, pixel by pixel.
func sineImage(w, h int) *image1bit.VerticalLSB {
	img := image1bit.New(image.Rect(0, 0, w, h))
	img.DrawHLine(0, w-1, h/2, image1bit.On)
	img.DrawVLine(0, h-1, w/2, image1bit.On)
	scale := float64(h/2 - 2)
	step := 4 * math.Pi / float64(w)
	for x := 0; x < w; x++ {
		y := int(math.Sin(float64(x)*step)*scale) + h/2
		img.SetBit(x, y, image1bit.On)
	}
	return img
}
