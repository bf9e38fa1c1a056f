// Package display lays out the two screens the node shows and renders
// them to a Screen.
package display

import "unicode/utf8"

// Panel geometry in characters of the 6x13 OLED font
const (
	Columns      = 21
	LineCapacity = 20
)

// Mode selects which layout the renderer draws
type Mode int

const (
	ModeSensorView Mode = iota
	ModeMessageOverride
)

func (m Mode) String() string {
	if m == ModeMessageOverride {
		return "message_override"
	}
	return "sensor_view"
}

// State is what the screen currently shows. Line1 and Line2 are only
// meaningful in ModeMessageOverride.
type State struct {
	Mode  Mode
	Line1 string
	Line2 string
}

// SensorState is the default state
func SensorState() State {
	return State{Mode: ModeSensorView}
}

// MessageState truncates text into the two override lines
func MessageState(text string) State {
	line1, line2 := SplitMessage(text)
	return State{Mode: ModeMessageOverride, Line1: line1, Line2: line2}
}

// SplitMessage cuts text into two lines of at most LineCapacity runes.
// Anything past the second line is dropped.
func SplitMessage(text string) (line1, line2 string) {
	if utf8.RuneCountInString(text) <= LineCapacity {
		return text, ""
	}
	r := []rune(text)
	line1 = string(r[:LineCapacity])
	rest := r[LineCapacity:]
	if len(rest) > LineCapacity {
		rest = rest[:LineCapacity]
	}
	return line1, string(rest)
}
