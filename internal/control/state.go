// Package control runs the sense, render and publish cycle and owns the
// display state.
package control

import "pico-monitor/internal/display"

// DefaultHoldTicks is how many iterations an operator message stays up
const DefaultHoldTicks = 12

// EventKind distinguishes the inputs of Transition
type EventKind int

const (
	// EventMessage is an operator message from the command topic
	EventMessage EventKind = iota
	// EventTick is one completed iteration spent in the override screen
	EventTick
)

// Event drives a View change
type Event struct {
	Kind EventKind
	Text string
}

// MessageEvent wraps an operator message
func MessageEvent(text string) Event {
	return Event{Kind: EventMessage, Text: text}
}

// TickEvent is one override iteration
func TickEvent() Event {
	return Event{Kind: EventTick}
}

// View is the display state plus the override countdown
type View struct {
	Display   display.State
	Remaining int
}

// SensorView is the initial view
func SensorView() View {
	return View{Display: display.SensorState()}
}

// Overriding reports whether an operator message is on screen
func (v View) Overriding() bool {
	return v.Display.Mode == display.ModeMessageOverride
}

// Transition applies ev to v. A message always replaces the current
// screen and restarts the countdown at holdTicks. A tick counts the
// override down and returns to the sensor view when it reaches zero.
func Transition(v View, ev Event, holdTicks int) View {
	if holdTicks < 1 {
		holdTicks = 1
	}
	switch ev.Kind {
	case EventMessage:
		return View{Display: display.MessageState(ev.Text), Remaining: holdTicks}
	case EventTick:
		if !v.Overriding() {
			return v
		}
		v.Remaining--
		if v.Remaining <= 0 {
			return SensorView()
		}
		return v
	}
	return v
}
