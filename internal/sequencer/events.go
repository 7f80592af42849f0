package sequencer

import (
	"sync"
	"time"

	"github.com/beatroom/beatroom/internal/domain"
)

// Trigger is one scheduled step hit. At is an absolute time in the audio
// clock's domain; the backend renders the sound at exactly that time.
type Trigger struct {
	Track    string
	Step     int
	Velocity float64
	At       time.Duration
}

// TriggerSink receives scheduled triggers. Both methods must be
// non-blocking: they are called from the scheduling loop's hot path.
type TriggerSink interface {
	ScheduleTrigger(Trigger)
	// CancelPending discards every scheduled-but-not-yet-rendered trigger.
	CancelPending()
}

// TrackGrid is the per-track step row the scheduler reads each pass.
type TrackGrid struct {
	Track string
	Steps []float64
}

// Source supplies the current grid. The scheduler reads it once per
// scheduling pass; what to render is shared state, when is always local.
type Source interface {
	Grid() []TrackGrid
}

// SourceFunc adapts a closure to Source.
type SourceFunc func() []TrackGrid

func (f SourceFunc) Grid() []TrackGrid { return f() }

// GridFromPatterns flattens pattern store contents into scheduler rows.
func GridFromPatterns(patterns []domain.Pattern) []TrackGrid {
	var out []TrackGrid
	for _, p := range patterns {
		for _, row := range p.Tracks {
			steps := make([]float64, len(row.Steps))
			copy(steps, row.Steps)
			out = append(out, TrackGrid{Track: row.Track, Steps: steps})
		}
	}
	return out
}

// ChannelSink buffers triggers on a channel for an audio backend to drain.
// A full buffer sheds the trigger rather than blocking the scheduler.
type ChannelSink struct {
	C chan Trigger

	mu      sync.Mutex
	dropped int
}

func NewChannelSink(buf int) *ChannelSink {
	return &ChannelSink{C: make(chan Trigger, buf)}
}

func (s *ChannelSink) ScheduleTrigger(t Trigger) {
	select {
	case s.C <- t:
	default:
		s.mu.Lock()
		s.dropped++
		s.mu.Unlock()
	}
}

func (s *ChannelSink) CancelPending() {
	for {
		select {
		case <-s.C:
		default:
			return
		}
	}
}

func (s *ChannelSink) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}
