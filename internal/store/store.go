// Package store persists room snapshots under generated keys with a
// time-to-live. Backends share the SnapshotStore interface; the server
// picks Redis, SQLite or memory at startup from config.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/beatroom/beatroom/internal/domain"
)

// DefaultTTL matches the one-week expiry of saved sessions.
const DefaultTTL = 7 * 24 * time.Hour

var (
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrSnapshotExpired  = errors.New("snapshot expired")
	ErrUnavailable      = errors.New("snapshot store unavailable")
)

// SnapshotStore is the only I/O boundary of the core. Callers bound every
// call with a context deadline; a failed save must not have mutated
// anything the caller can observe.
type SnapshotStore interface {
	// Save stores the snapshot and returns a fresh opaque id.
	// Ids are never reused, so overwriting an old snapshot is impossible.
	Save(ctx context.Context, snap *domain.Snapshot) (string, error)
	Load(ctx context.Context, id string) (*domain.Snapshot, error)
	Close() error
}

// newSnapshotID returns a fresh, lexically time-ordered id.
func newSnapshotID() string {
	return ulid.Make().String()
}

// snapshotKey returns the storage key for a snapshot id.
func snapshotKey(id string) string {
	return fmt.Sprintf("session:%s", id)
}
