package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestSQLiteStore(t *testing.T, ttl time.Duration) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "snapshots.db"), ttl)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	s := newTestSQLiteStore(t, DefaultTTL)
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

func TestSQLiteStoreExpiredDistinctFromNotFound(t *testing.T) {
	s := newTestSQLiteStore(t, 50*time.Millisecond)
	ctx := context.Background()

	id, err := s.Save(ctx, testSnapshot())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Load(ctx, id); err != nil {
		t.Fatalf("load inside ttl: %v", err)
	}

	time.Sleep(80 * time.Millisecond)
	if _, err := s.Load(ctx, id); !errors.Is(err, ErrSnapshotExpired) {
		t.Fatalf("expected ErrSnapshotExpired, got %v", err)
	}

	if _, err := s.Load(ctx, "01A0000000000000000000000A"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Fatalf("unknown id: expected ErrSnapshotNotFound, got %v", err)
	}
}

func TestSQLiteStorePurgesLongExpiredRows(t *testing.T) {
	s := newTestSQLiteStore(t, DefaultTTL)
	ctx := context.Background()

	// Seed a row whose expiry is already past the grace window.
	stale := time.Now().Add(-expiredRowGrace - time.Hour)
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (key, data, created_at, expires_at)
		VALUES (?, ?, ?, ?)
	`, snapshotKey("stale"), []byte(`{}`), stale.Add(-DefaultTTL), stale); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Load(ctx, "stale"); !errors.Is(err, ErrSnapshotExpired) {
		t.Fatalf("before purge: expected ErrSnapshotExpired, got %v", err)
	}

	// The next save sweeps it; the tombstone becomes a plain miss.
	if _, err := s.Save(ctx, testSnapshot()); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Load(ctx, "stale"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Fatalf("after purge: expected ErrSnapshotNotFound, got %v", err)
	}
}

func TestSQLiteStoreIDsAreFresh(t *testing.T) {
	s := newTestSQLiteStore(t, DefaultTTL)
	ctx := context.Background()
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
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
