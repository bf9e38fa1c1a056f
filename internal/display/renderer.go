package display

import (
	"fmt"

	"pico-monitor/internal/sensor"
)

// Screen is a monochrome text surface. Nothing is visible until Flush.
type Screen interface {
	Clear() error
	DrawText(x, y int, text string) error
	Flush() error
}

// Renderer draws display states onto a Screen
type Renderer struct {
	screen Screen
}

// NewRenderer creates a renderer for screen
func NewRenderer(screen Screen) *Renderer {
	return &Renderer{screen: screen}
}

// Render clears the screen, draws the layout for state and flushes once.
// Rendering the same inputs twice produces the same frame.
func (r *Renderer) Render(state State, sample sensor.Sample) error {
	if err := r.screen.Clear(); err != nil {
		return fmt.Errorf("clear screen: %w", err)
	}
	for _, line := range Layout(state, sample) {
		if line.Text == "" {
			continue
		}
		if err := r.screen.DrawText(line.X, line.Y, line.Text); err != nil {
			return fmt.Errorf("draw %q: %w", line.Text, err)
		}
	}
	if err := r.screen.Flush(); err != nil {
		return fmt.Errorf("flush screen: %w", err)
	}
	return nil
}

// Blank clears the panel and flushes, used on shutdown
func (r *Renderer) Blank() error {
	if err := r.screen.Clear(); err != nil {
		return err
	}
	return r.screen.Flush()
}
