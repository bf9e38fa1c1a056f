package sensor

import (
	"errors"
	"time"
)

// fakeClock advances by step on every Now call so busy-wait loops terminate
type fakeClock struct {
	now  time.Duration
	step time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{step: time.Microsecond}
}

func (c *fakeClock) Now() time.Duration {
	c.now += c.step
	return c.now
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.now += d
}

type recordingPin struct {
	levels []bool
	err    error
}

func (p *recordingPin) Out(high bool) error {
	if p.err != nil {
		return p.err
	}
	p.levels = append(p.levels, high)
	return nil
}

// echoPin reads high between rise and fall on the fake clock
type echoPin struct {
	clock      *fakeClock
	rise, fall time.Duration
}

func (p *echoPin) Read() bool {
	return p.clock.now >= p.rise && p.clock.now < p.fall
}

type segment struct {
	length time.Duration
	high   bool
}

// timelinePin replays a DHT reply starting from the moment it is released.
// After the last segment the line idles high.
type timelinePin struct {
	clock    *fakeClock
	start    time.Duration
	released bool
	segments []segment
}

func (p *timelinePin) Out(bool) error { return nil }

func (p *timelinePin) Release() error {
	p.start = p.clock.now
	p.released = true
	return nil
}

func (p *timelinePin) Read() bool {
	if !p.released {
		return false
	}
	elapsed := p.clock.now - p.start
	for _, s := range p.segments {
		if elapsed < s.length {
			return s.high
		}
		elapsed -= s.length
	}
	return true
}

// dhtReply builds the line activity for a complete frame
func dhtReply(f Frame) []segment {
	segs := []segment{{30 * time.Microsecond, true}, {80 * time.Microsecond, false}, {80 * time.Microsecond, true}}
	for i := 0; i < frameBits; i++ {
		width := 26 * time.Microsecond
		if f[i/8]&(1<<(7-uint(i%8))) != 0 {
			width = 70 * time.Microsecond
		}
		segs = append(segs, segment{50 * time.Microsecond, false}, segment{width, true})
	}
	return append(segs, segment{50 * time.Microsecond, false})
}

type frameTransport struct {
	frames []Frame
	err    error
	calls  int
}

func (t *frameTransport) ReadFrame() (Frame, error) {
	t.calls++
	if t.err != nil {
		return Frame{}, t.err
	}
	f := t.frames[0]
	if len(t.frames) > 1 {
		t.frames = t.frames[1:]
	}
	return f, nil
}

type fixedADC uint16

func (a fixedADC) ReadU16() uint16 { return uint16(a) }

var errPinBusy = errors.New("pin busy")
