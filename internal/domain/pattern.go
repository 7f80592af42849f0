package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidResolution = errors.New("unsupported pattern resolution")
	ErrStepCountMismatch = errors.New("step count does not match pattern resolution")
)

// Supported step-grid resolutions. Resolution is fixed for a pattern's
// lifetime; changing it means creating a new pattern.
var validResolutions = map[int]bool{8: true, 16: true, 32: true, 64: true}

func ValidResolution(r int) bool { return validResolutions[r] }

// TrackSteps is one instrument row of a pattern: a fixed-length sequence of
// step velocities in [0,1]. Zero means the step does not trigger.
type TrackSteps struct {
	Track string    `json:"track"`
	Steps []float64 `json:"steps"`
}

// Pattern is a fixed-length step grid across a set of instrument tracks.
// Updates replace the whole grid; last writer wins at pattern granularity.
type Pattern struct {
	ID         string       `json:"id"`
	Resolution int          `json:"resolution"`
	Tracks     []TrackSteps `json:"tracks"`
	UpdatedAt  time.Time    `json:"updatedAt"`
	UpdatedBy  UserID       `json:"updatedBy"`
}

// NewPattern creates an empty grid for the given tracks. The resolution is
// validated here and never changes afterwards.
func NewPattern(tracks []string, resolution int, editor UserID, at time.Time) (*Pattern, error) {
	if !ValidResolution(resolution) {
		return nil, ErrInvalidResolution
	}
	rows := make([]TrackSteps, 0, len(tracks))
	for _, t := range tracks {
		rows = append(rows, TrackSteps{Track: t, Steps: make([]float64, resolution)})
	}
	return &Pattern{
		ID:         uuid.NewString(),
		Resolution: resolution,
		Tracks:     rows,
		UpdatedAt:  at,
		UpdatedBy:  editor,
	}, nil
}

// ReplaceSteps overwrites the entire grid. There is no per-cell merge:
// callers wanting cell granularity read-modify-write the full grid.
func (p *Pattern) ReplaceSteps(tracks []TrackSteps, editor UserID, at time.Time) error {
	for _, row := range tracks {
		if len(row.Steps) != p.Resolution {
			return ErrStepCountMismatch
		}
	}
	rows := make([]TrackSteps, 0, len(tracks))
	for _, row := range tracks {
		steps := make([]float64, len(row.Steps))
		for i, v := range row.Steps {
			steps[i] = ClampVelocity(v)
		}
		rows = append(rows, TrackSteps{Track: row.Track, Steps: steps})
	}
	p.Tracks = rows
	p.UpdatedAt = at
	p.UpdatedBy = editor
	return nil
}

// Clone returns a deep copy safe to hand across goroutines.
func (p *Pattern) Clone() Pattern {
	out := *p
	out.Tracks = make([]TrackSteps, len(p.Tracks))
	for i, row := range p.Tracks {
		steps := make([]float64, len(row.Steps))
		copy(steps, row.Steps)
		out.Tracks[i] = TrackSteps{Track: row.Track, Steps: steps}
	}
	return out
}

func ClampVelocity(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
