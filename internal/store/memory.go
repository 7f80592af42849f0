package store

import (
	"context"
	"sync"
	"time"

	"github.com/beatroom/beatroom/internal/domain"
)

type memoryEntry struct {
	snap      domain.Snapshot
	expiresAt time.Time
}

// MemoryStore is the in-process fallback when neither Redis nor a SQLite
// path is configured. Expired entries are kept until the next save so a
// load can report Expired distinctly from NotFound.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration

	// Now is the clock used for expiry checks; tests override it.
	Now func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		Now:     time.Now,
	}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) Save(_ context.Context, snap *domain.Snapshot) (string, error) {
	id := newSnapshotID()
	cp := *snap
	cp.Patterns = make([]domain.Pattern, 0, len(snap.Patterns))
	for _, p := range snap.Patterns {
		cp.Patterns = append(cp.Patterns, p.Clone())
	}
	cp.MixerState = make(map[string]float64, len(snap.MixerState))
	for k, v := range snap.MixerState {
		cp.MixerState[k] = v
	}
	now := s.Now()
	s.mu.Lock()
	s.entries[snapshotKey(id)] = memoryEntry{snap: cp, expiresAt: now.Add(s.ttl)}
	for key, e := range s.entries {
		if now.Sub(e.expiresAt) > expiredRowGrace {
			delete(s.entries, key)
		}
	}
	s.mu.Unlock()
	return id, nil
}

func (s *MemoryStore) Load(_ context.Context, id string) (*domain.Snapshot, error) {
	s.mu.RLock()
	e, ok := s.entries[snapshotKey(id)]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	if s.Now().After(e.expiresAt) {
		return nil, ErrSnapshotExpired
	}
	snap := e.snap
	return &snap, nil
}
