package display

import (
	"fmt"

	"pico-monitor/internal/sensor"
)

// Row origins in pixels from the top of the panel
const (
	sensorRowPitch = 16
	messageHeaderY = 0
	messageLine1Y  = 20
	messageLine2Y  = 35
)

// Line is one positioned text row. X and Y are the top-left pixel.
type Line struct {
	X, Y int
	Text string
}

// Layout returns the rows for state. The sample is ignored while a message
// override is shown.
func Layout(state State, sample sensor.Sample) []Line {
	if state.Mode == ModeMessageOverride {
		return []Line{
			{Y: messageHeaderY, Text: "Message:"},
			{Y: messageLine1Y, Text: state.Line1},
			{Y: messageLine2Y, Text: state.Line2},
		}
	}

	rows := []string{
		reading("Distance", sample.Distance, " cm"),
		reading("Temp", sample.Temperature, " C"),
		reading("Humidity", sample.Humidity, "%"),
		fmt.Sprintf("Light: %.1f%%", sample.LightPercent),
	}
	lines := make([]Line, len(rows))
	for i, text := range rows {
		lines[i] = Line{Y: i * sensorRowPitch, Text: text}
	}
	return lines
}

func reading(label string, v *float64, unit string) string {
	if v == nil {
		return label + ": Error"
	}
	return fmt.Sprintf("%s: %.1f%s", label, *v, unit)
}
