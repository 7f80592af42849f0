package domain

import "time"

// MixerState is a flat parameter map. Updates merge field by field, so
// concurrent edits to different parameters never clobber each other;
// the same key resolves last-writer-wins by arrival order.
type MixerState struct {
	Params    map[string]float64 `json:"params"`
	UpdatedAt time.Time          `json:"updatedAt"`
	UpdatedBy UserID             `json:"updatedBy"`
}

func NewMixerState() MixerState {
	return MixerState{Params: make(map[string]float64)}
}

// Apply overwrites only the keys present in partial.
func (m *MixerState) Apply(partial map[string]float64, editor UserID, at time.Time) {
	if m.Params == nil {
		m.Params = make(map[string]float64)
	}
	for k, v := range partial {
		m.Params[k] = v
	}
	m.UpdatedAt = at
	m.UpdatedBy = editor
}

// Replace swaps the whole parameter map, used when loading a snapshot.
func (m *MixerState) Replace(params map[string]float64, editor UserID, at time.Time) {
	m.Params = make(map[string]float64, len(params))
	for k, v := range params {
		m.Params[k] = v
	}
	m.UpdatedAt = at
	m.UpdatedBy = editor
}

// Clone returns a copy safe to hand across goroutines.
func (m MixerState) Clone() MixerState {
	out := m
	out.Params = make(map[string]float64, len(m.Params))
	for k, v := range m.Params {
		out.Params[k] = v
	}
	return out
}
