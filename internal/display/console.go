package display

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// ConsoleScreen renders frames as a bordered text box, for hosts without
// a panel attached
type ConsoleScreen struct {
	mu      sync.Mutex
	out     io.Writer
	pending []Line
	last    []Line
	frames  int
	style   lipgloss.Style
}

// NewConsoleScreen creates a console screen writing to out
func NewConsoleScreen(out io.Writer) *ConsoleScreen {
	return &ConsoleScreen{
		out: out,
		style: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("39")).
			Width(Columns).
			Padding(0, 1),
	}
}

func (s *ConsoleScreen) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = s.pending[:0]
	return nil
}

func (s *ConsoleScreen) DrawText(x, y int, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, Line{X: x, Y: y, Text: text})
	return nil
}

// Flush prints the pending rows top to bottom
func (s *ConsoleScreen) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	frame := make([]Line, len(s.pending))
	copy(frame, s.pending)
	sort.SliceStable(frame, func(i, j int) bool { return frame[i].Y < frame[j].Y })
	s.last = frame
	s.frames++

	rows := make([]string, len(frame))
	for i, line := range frame {
		rows[i] = line.Text
	}
	_, err := fmt.Fprintln(s.out, s.style.Render(strings.Join(rows, "\n")))
	return err
}

// LastFrame returns the rows of the most recent flush
func (s *ConsoleScreen) LastFrame() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	frame := make([]Line, len(s.last))
	copy(frame, s.last)
	return frame
}

// Frames returns how many frames have been flushed
func (s *ConsoleScreen) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Texts returns the text of each row in the last frame
func (s *ConsoleScreen) Texts() []string {
	frame := s.LastFrame()
	texts := make([]string, len(frame))
	for i, line := range frame {
		texts[i] = line.Text
	}
	return texts
}
