package hardware

import (
	"fmt"
	"image"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// face6x13 is the 7x13 glyph set on a 6 pixel advance so 21 columns fit
// on a 128 pixel panel
var face6x13 = &basicfont.Face{
	Advance: 6,
	Width:   6,
	Height:  13,
	Ascent:  11,
	Descent: 2,
	Mask:    basicfont.Face7x13.Mask,
	Ranges:  basicfont.Face7x13.Ranges,
}

// drawer is the panel a frame is pushed to
type drawer interface {
	Bounds() image.Rectangle
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
	Halt() error
}

// OLEDScreen renders text frames on an SSD1306 over I²C
type OLEDScreen struct {
	dev   drawer
	frame *image1bit.VerticalLSB
}

// NewOLEDScreen opens a 128x64 SSD1306 on bus
func NewOLEDScreen(bus i2c.Bus) (*OLEDScreen, error) {
	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return nil, fmt.Errorf("open ssd1306: %w", err)
	}
	return newOLEDScreen(dev), nil
}

func newOLEDScreen(dev drawer) *OLEDScreen {
	return &OLEDScreen{
		dev:   dev,
		frame: image1bit.NewVerticalLSB(dev.Bounds()),
	}
}

func (s *OLEDScreen) Clear() error {
	for i := range s.frame.Pix {
		s.frame.Pix[i] = 0
	}
	return nil
}

// DrawText draws text with its top-left corner at (x, y)
func (s *OLEDScreen) DrawText(x, y int, text string) error {
	d := font.Drawer{
		Dst:  s.frame,
		Src:  &image.Uniform{C: image1bit.On},
		Face: face6x13,
		Dot:  fixed.P(x, y+face6x13.Ascent),
	}
	d.DrawString(text)
	return nil
}

func (s *OLEDScreen) Flush() error {
	return s.dev.Draw(s.dev.Bounds(), s.frame, image.Point{})
}

// Close blanks the panel and powers it down
func (s *OLEDScreen) Close() error {
	if err := s.Clear(); err != nil {
		return err
	}
	if err := s.Flush(); err != nil {
		return err
	}
	return s.dev.Halt()
}
