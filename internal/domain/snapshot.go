package domain

import "time"

// Snapshot is an immutable serialized copy of a room's patterns and mixer
// state. Stored under a fresh id with a time-to-live; loading one replaces
// a room's patterns and mixer state wholesale.
type Snapshot struct {
	Patterns   []Pattern          `json:"patterns"`
	MixerState map[string]float64 `json:"mixerState"`
	CreatedAt  time.Time          `json:"createdAt"`
	CreatedBy  UserID             `json:"createdBy"`
}
