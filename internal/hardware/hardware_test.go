package hardware

import (
	"errors"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// fakeBus answers ADS1115 transactions from a canned conversion value
type fakeBus struct {
	writes     [][]byte
	conversion []byte
	err        error
}

func (b *fakeBus) String() string { return "fake" }

func (b *fakeBus) Tx(addr uint16, w, r []byte) error {
	if b.err != nil {
		return b.err
	}
	b.writes = append(b.writes, append([]byte(nil), w...))
	if len(r) > 0 {
		copy(r, b.conversion)
	}
	return nil
}

func (b *fakeBus) SetSpeed(physic.Frequency) error { return nil }

func newTestADC(t *testing.T, bus *fakeBus, channel int) *ADS1115 {
	adc, err := NewADS1115(bus, 0x48, channel)
	require.NoError(t, err)
	adc.sleep = func(time.Duration) {}
	return adc
}

func TestADS1115ReadU16(t *testing.T) {
	bus := &fakeBus{conversion: []byte{0x40, 0x00}}
	adc := newTestADC(t, bus, 2)

	assert.Equal(t, uint16(0x8000), adc.ReadU16())
	require.Len(t, bus.writes, 2)
	// OS | MUX=110 (AIN2) | PGA=001 | MODE | DR=100 | COMP off
	assert.Equal(t, []byte{0x01, 0xE3, 0x83}, bus.writes[0])
	assert.Equal(t, []byte{0x00}, bus.writes[1])

	bus.conversion = []byte{0xFF, 0x00}
	assert.Equal(t, uint16(0), adc.ReadU16(), "negative conversions clamp to zero")

	bus.conversion = []byte{0x7F, 0xFF}
	assert.Equal(t, uint16(65534), adc.ReadU16())
	t.Log("✅ ADS1115 conversions scale to 16 bits")
}

func TestADS1115HoldsLastGoodValue(t *testing.T) {
	bus := &fakeBus{conversion: []byte{0x20, 0x00}}
	adc := newTestADC(t, bus, 0)

	first := adc.ReadU16()
	bus.err = errors.New("nack")
	assert.Equal(t, first, adc.ReadU16())
	assert.Equal(t, first, adc.ReadU16())
	assert.Equal(t, 2, adc.failures)

	bus.err = nil
	adc.ReadU16()
	assert.Equal(t, 0, adc.failures)
}

func TestADS1115RejectsChannel(t *testing.T) {
	_, err := NewADS1115(&fakeBus{}, 0x48, 4)
	assert.Error(t, err)
}

type fakePanel struct {
	last   *image1bit.VerticalLSB
	draws  int
	halted bool
}

func (p *fakePanel) Bounds() image.Rectangle { return image.Rect(0, 0, 128, 64) }

func (p *fakePanel) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	p.draws++
	img := src.(*image1bit.VerticalLSB)
	p.last = image1bit.NewVerticalLSB(img.Bounds())
	copy(p.last.Pix, img.Pix)
	return nil
}

func (p *fakePanel) Halt() error {
	p.halted = true
	return nil
}

func litPixels(img *image1bit.VerticalLSB, r image.Rectangle) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if img.BitAt(x, y) == image1bit.On {
				n++
			}
		}
	}
	return n
}

func TestOLEDScreenDrawsText(t *testing.T) {
	panel := &fakePanel{}
	screen := newOLEDScreen(panel)

	require.NoError(t, screen.Clear())
	require.NoError(t, screen.DrawText(0, 16, "Temp: 23.0 C"))
	require.NoError(t, screen.Flush())

	require.Equal(t, 1, panel.draws)
	assert.Greater(t, litPixels(panel.last, image.Rect(0, 16, 128, 29)), 0, "row drawn in its band")
	assert.Equal(t, 0, litPixels(panel.last, image.Rect(0, 0, 128, 16)), "nothing above the row")

	require.NoError(t, screen.Close())
	assert.True(t, panel.halted)
	assert.Equal(t, 0, litPixels(panel.last, panel.Bounds()), "blanked on close")
}

func TestOLEDFullRowFitsPanel(t *testing.T) {
	panel := &fakePanel{}
	screen := newOLEDScreen(panel)
	require.NoError(t, screen.DrawText(0, 0, "Distance: 123.4 cm!!"))
	require.NoError(t, screen.Flush())
	// 20 glyphs at 6px end before column 120
	assert.Equal(t, 0, litPixels(panel.last, image.Rect(121, 0, 128, 13)))
}

func TestSimulatedReadings(t *testing.T) {
	sim := NewSimulated(1)
	misses := 0
	for i := 0; i < 20; i++ {
		if sim.MeasureDistance() == nil {
			misses++
		}
		temp, hum := sim.Measure()
		require.NotNil(t, temp)
		require.NotNil(t, hum)
		light := sim.ReadLightPercent()
		assert.GreaterOrEqual(t, light, 0.0)
		assert.LessOrEqual(t, light, 100.0)
	}
	assert.Equal(t, 2, misses)
}
