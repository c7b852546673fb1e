package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/brucargo/qmsync/internal/model"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLiteStateStore implements StateStore on a local SQLite file. It is the
// default backend: the state file travels with the sync host the same way
// the store's durability contract expects (every Record/Remove is flushed
// before the call returns, hence synchronous=FULL rather than NORMAL).
type SQLiteStateStore struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
}

var _ StateStore = (*SQLiteStateStore)(nil)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sync_state (
	source_type        TEXT NOT NULL,
	source_id          TEXT NOT NULL,
	target_type        TEXT NOT NULL,
	target_id          TEXT NOT NULL,
	target_parent_id   TEXT NOT NULL DEFAULT '',
	target_location_id TEXT NOT NULL DEFAULT '',
	synced_at          TIMESTAMP NOT NULL,
	PRIMARY KEY (source_type, source_id)
);
CREATE INDEX IF NOT EXISTS idx_sync_state_target_type ON sync_state(target_type);
`

// NewSQLiteStateStore opens (creating if needed) the state database at path.
func NewSQLiteStateStore(path string, logger *zap.Logger) (*SQLiteStateStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}

	// Full sync: a Record/Remove acknowledged here must survive a crash.
	if _, err := db.Exec(`PRAGMA synchronous = FULL;` + sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize state schema: %w", err)
	}

	logger.Info("Sync state store opened", zap.String("backend", "sqlite"), zap.String("path", path))

	return &SQLiteStateStore{db: db, path: path, logger: logger}, nil
}

// Lookup returns the entry for the key, or ErrNotFound.
func (s *SQLiteStateStore) Lookup(ctx context.Context, sourceType model.EntityType, sourceID string) (*model.SyncStateEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT source_type, source_id, target_type, target_id, target_parent_id, target_location_id, synced_at
		FROM sync_state WHERE source_type = ? AND source_id = ?`,
		string(sourceType), sourceID)

	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up sync state: %w", err)
	}
	return entry, nil
}

// Record upserts the entry for its composite key.
func (s *SQLiteStateStore) Record(ctx context.Context, entry *model.SyncStateEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO sync_state
			(source_type, source_id, target_type, target_id, target_parent_id, target_location_id, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(entry.SourceType), entry.SourceID,
		string(entry.TargetType), entry.TargetID,
		entry.TargetParentID, entry.TargetLocationID, entry.SyncedAt)
	if err != nil {
		return fmt.Errorf("failed to record sync state: %w", err)
	}
	return nil
}

// Remove deletes the entry for the key.
func (s *SQLiteStateStore) Remove(ctx context.Context, sourceType model.EntityType, sourceID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM sync_state WHERE source_type = ? AND source_id = ?`,
		string(sourceType), sourceID)
	if err != nil {
		return fmt.Errorf("failed to remove sync state: %w", err)
	}
	return nil
}

// ListAll returns every entry, assets first then locations, each group in
// insertion-stable key order so cleanup runs are deterministic.
func (s *SQLiteStateStore) ListAll(ctx context.Context) ([]*model.SyncStateEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source_type, source_id, target_type, target_id, target_parent_id, target_location_id, synced_at
		FROM sync_state ORDER BY target_type ASC, source_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync state: %w", err)
	}
	defer rows.Close()

	var entries []*model.SyncStateEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync state row: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sync state rows: %w", err)
	}
	return entries, nil
}

// Ping checks the underlying database connection.
func (s *SQLiteStateStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLiteStateStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*model.SyncStateEntry, error) {
	var entry model.SyncStateEntry
	var sourceType, targetType string
	err := row.Scan(
		&sourceType, &entry.SourceID,
		&targetType, &entry.TargetID,
		&entry.TargetParentID, &entry.TargetLocationID, &entry.SyncedAt,
	)
	if err != nil {
		return nil, err
	}
	entry.SourceType = model.EntityType(sourceType)
	entry.TargetType = model.EntityType(targetType)
	return &entry, nil
}
