package sensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLightPercent(t *testing.T) {
	assert.Equal(t, 0.0, LightPercent(0, FullScale))
	assert.Equal(t, 100.0, LightPercent(65535, FullScale))
	assert.Equal(t, 50.0, LightPercent(32767, FullScale))
	assert.Equal(t, 100.0, LightPercent(40000, 32767), "clamped above full scale")
	assert.Equal(t, 0.0, LightPercent(100, 0))

	for raw := 0; raw <= FullScale; raw += 97 {
		p := LightPercent(uint16(raw), FullScale)
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 100.0)
	}
	t.Log("✅ Light percent stays within [0, 100]")
}

func TestLightSensorDefaultsToFullScale(t *testing.T) {
	assert.Equal(t, 50.0, NewLightSensor(fixedADC(32767), 0).ReadLightPercent())
}
