package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/beatroom/beatroom/internal/domain"
	"github.com/beatroom/beatroom/internal/metrics"
)

// Expired rows are kept around for a grace period so loads can report
// Expired rather than NotFound, then purged on the next save.
const expiredRowGrace = 24 * time.Hour

// SQLiteStore is the file-backed snapshot store for single-node deployments
// without Redis.
type SQLiteStore struct {
	db  *sql.DB
	ttl time.Duration
}

func NewSQLiteStore(ctx context.Context, dbPath string, ttl time.Duration) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/snapshots.db"
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &SQLiteStore{db: db, ttl: ttl}
	if err := s.initSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		key        TEXT PRIMARY KEY,
		data       BLOB NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_expires ON snapshots(expires_at);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Save(ctx context.Context, snap *domain.Snapshot) (string, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return "", err
	}
	id := newSnapshotID()
	now := time.Now()
	start := now
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (key, data, created_at, expires_at)
		VALUES (?, ?, ?, ?)
	`, snapshotKey(id), data, now, now.Add(s.ttl))
	metrics.SnapshotStoreLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	// Opportunistic purge of long-expired rows.
	_, _ = s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE expires_at < ?`, now.Add(-expiredRowGrace))
	return id, nil
}

func (s *SQLiteStore) Load(ctx context.Context, id string) (*domain.Snapshot, error) {
	var data []byte
	var expiresAt time.Time
	start := time.Now()
	err := s.db.QueryRowContext(ctx, `
		SELECT data, expires_at FROM snapshots WHERE key = ?
	`, snapshotKey(id)).Scan(&data, &expiresAt)
	metrics.SnapshotStoreLatency.Observe(time.Since(start).Seconds())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if time.Now().After(expiresAt) {
		return nil, ErrSnapshotExpired
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
