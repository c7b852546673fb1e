package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/brucargo/qmsync/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PostgresStateStore implements StateStore for PostgreSQL, for deployments
// where several sync hosts share one state database (still one pass at a
// time; the store does not arbitrate concurrent passes).
type PostgresStateStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

var _ StateStore = (*PostgresStateStore)(nil)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS sync_state (
	source_type        TEXT NOT NULL,
	source_id          TEXT NOT NULL,
	target_type        TEXT NOT NULL,
	target_id          TEXT NOT NULL,
	target_parent_id   TEXT NOT NULL DEFAULT '',
	target_location_id TEXT NOT NULL DEFAULT '',
	synced_at          TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (source_type, source_id)
)`

// NewPostgresStateStore creates a PostgreSQL-backed state store.
func NewPostgresStateStore(
	host string,
	port int,
	database, user, password string,
	maxConns int,
	logger *zap.Logger,
) (*PostgresStateStore, error) {
	connString := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s pool_max_conns=%d",
		host, port, database, user, password, maxConns,
	)

	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(context.Background(), postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize state schema: %w", err)
	}

	logger.Info("Sync state store opened",
		zap.String("backend", "postgres"),
		zap.String("host", host),
		zap.String("database", database))

	return &PostgresStateStore{pool: pool, logger: logger}, nil
}

// Lookup returns the entry for the key, or ErrNotFound.
func (s *PostgresStateStore) Lookup(ctx context.Context, sourceType model.EntityType, sourceID string) (*model.SyncStateEntry, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT source_type, source_id, target_type, target_id, target_parent_id, target_location_id, synced_at
		FROM sync_state WHERE source_type = $1 AND source_id = $2`,
		string(sourceType), sourceID)

	entry, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up sync state: %w", err)
	}
	return entry, nil
}

// Record upserts the entry for its composite key.
func (s *PostgresStateStore) Record(ctx context.Context, entry *model.SyncStateEntry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sync_state
			(source_type, source_id, target_type, target_id, target_parent_id, target_location_id, synced_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (source_type, source_id) DO UPDATE SET
			target_type = EXCLUDED.target_type,
			target_id = EXCLUDED.target_id,
			target_parent_id = EXCLUDED.target_parent_id,
			target_location_id = EXCLUDED.target_location_id,
			synced_at = EXCLUDED.synced_at`,
		string(entry.SourceType), entry.SourceID,
		string(entry.TargetType), entry.TargetID,
		entry.TargetParentID, entry.TargetLocationID, entry.SyncedAt)
	if err != nil {
		return fmt.Errorf("failed to record sync state: %w", err)
	}
	return nil
}

// Remove deletes the entry for the key.
func (s *PostgresStateStore) Remove(ctx context.Context, sourceType model.EntityType, sourceID string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM sync_state WHERE source_type = $1 AND source_id = $2`,
		string(sourceType), sourceID)
	if err != nil {
		return fmt.Errorf("failed to remove sync state: %w", err)
	}
	return nil
}

// ListAll returns every entry in deterministic order.
func (s *PostgresStateStore) ListAll(ctx context.Context) ([]*model.SyncStateEntry, error) {
	rows, err := s.pool.Query(ctx, `
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

// Ping checks the connection pool.
func (s *PostgresStateStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool.
func (s *PostgresStateStore) Close() error {
	s.pool.Close()
	return nil
}
