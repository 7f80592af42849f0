package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/beatroom/beatroom/internal/domain"
)

func testSnapshot() *domain.Snapshot {
	return &domain.Snapshot{
		Patterns: []domain.Pattern{{
			ID:         "p1",
			Resolution: 16,
			Tracks:     []domain.TrackSteps{{Track: "kick", Steps: make([]float64, 16)}},
		}},
		MixerState: map[string]float64{"volume": 0.8},
		CreatedAt:  time.Now(),
		CreatedBy:  "u1",
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore(DefaultTTL)
	ctx := context.Background()

	id, err := s.Save(ctx, testSnapshot())
	if err != nil {
		t.Fatal(err)
	}
	if id == "" {
		t.Fatal("empty snapshot id")
	}

	snap, err := s.Load(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if snap.MixerState["volume"] != 0.8 {
		t.Errorf("mixer = %v", snap.MixerState)
	}
	if len(snap.Patterns) != 1 || snap.Patterns[0].ID != "p1" {
		t.Errorf("patterns = %+v", snap.Patterns)
	}
}

func TestMemoryStoreIDsAreFresh(t *testing.T) {
	s := NewMemoryStore(DefaultTTL)
	ctx := context.Background()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := s.Save(ctx, testSnapshot())
		if err != nil {
			t.Fatal(err)
		}
		if seen[id] {
			t.Fatalf("id %q reused", id)
		}
		seen[id] = true
	}
}

func TestMemoryStoreSaveIsolatesFromCaller(t *testing.T) {
	s := NewMemoryStore(DefaultTTL)
	ctx := context.Background()

	snap := testSnapshot()
	id, err := s.Save(ctx, snap)
	if err != nil {
		t.Fatal(err)
	}

	// Mutating the caller's copy after save must not leak into the store.
	snap.MixerState["volume"] = 0
	snap.Patterns[0].Tracks[0].Steps[0] = 1

	got, err := s.Load(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.MixerState["volume"] != 0.8 {
		t.Error("stored mixer state aliases the caller's map")
	}
	if got.Patterns[0].Tracks[0].Steps[0] != 0 {
		t.Error("stored pattern aliases the caller's steps")
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	s := NewMemoryStore(DefaultTTL)
	ctx := context.Background()
	base := time.Now()
	s.Now = func() time.Time { return base }

	id, err := s.Save(ctx, testSnapshot())
	if err != nil {
		t.Fatal(err)
	}

	// Just inside the TTL: still loadable.
	s.Now = func() time.Time { return base.Add(DefaultTTL - time.Second) }
	if _, err := s.Load(ctx, id); err != nil {
		t.Fatalf("load inside ttl: %v", err)
	}

	// Past the TTL: expired, not absent.
	s.Now = func() time.Time { return base.Add(DefaultTTL + time.Second) }
	if _, err := s.Load(ctx, id); !errors.Is(err, ErrSnapshotExpired) {
		t.Fatalf("expected ErrSnapshotExpired, got %v", err)
	}

	// A save past the grace window purges the stale row for good.
	s.Now = func() time.Time { return base.Add(DefaultTTL + expiredRowGrace + time.Second) }
	if _, err := s.Save(ctx, testSnapshot()); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Load(ctx, id); !errors.Is(err, ErrSnapshotNotFound) {
		t.Fatalf("expected ErrSnapshotNotFound after purge, got %v", err)
	}
}

func TestMemoryStoreUnknownID(t *testing.T) {
	s := NewMemoryStore(DefaultTTL)
	if _, err := s.Load(context.Background(), "01A0000000000000000000000A"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Fatalf("expected ErrSnapshotNotFound, got %v", err)
	}
}
