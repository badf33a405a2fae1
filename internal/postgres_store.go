package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lychee-technology/propgrid"
	"go.uber.org/zap"
)

// collapseStatePool is the part of pgxpool.Pool the Postgres store needs.
type collapseStatePool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps one row per view key:
//
//	view_key TEXT PRIMARY KEY, snapshot_id UUID, names JSONB, saved_at TIMESTAMPTZ
type PostgresStore struct {
	pool    collapseStatePool
	table   string
	closeFn func()
}

func NewPostgresStore(pool collapseStatePool, table string) *PostgresStore {
	return &PostgresStore{pool: pool, table: sanitizeIdentifier(table)}
}

// OpenPostgresStore connects a pool from cfg, verifies the connection and
// creates the table when missing. Closing the store closes the pool.
func OpenPostgresStore(ctx context.Context, cfg *pgxpool.Config, table string) (*PostgresStore, error) {
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, propgrid.NewStorageError("connect postgres", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, propgrid.NewStorageError("postgres ping failed", err)
	}
	store := NewPostgresStore(pool, table)
	store.closeFn = pool.Close
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// EnsureSchema creates the state table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	view_key TEXT PRIMARY KEY,
	snapshot_id UUID NOT NULL,
	names JSONB NOT NULL,
	saved_at TIMESTAMPTZ NOT NULL
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return propgrid.NewStorageError(fmt.Sprintf("failed to create table %s", s.table), err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, key string, names *propgrid.CollapsedNames) (*propgrid.Snapshot, error) {
	snap := propgrid.NewSnapshot(key, names)
	encoded, err := json.Marshal(snap.Names)
	if err != nil {
		return nil, propgrid.NewStorageError("failed to encode collapsed names", err)
	}

	query := fmt.Sprintf(`INSERT INTO %s (view_key, snapshot_id, names, saved_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (view_key) DO UPDATE
SET snapshot_id = EXCLUDED.snapshot_id, names = EXCLUDED.names, saved_at = EXCLUDED.saved_at`, s.table)
	if _, err := s.pool.Exec(ctx, query, key, snap.ID, encoded, snap.SavedAt); err != nil {
		return nil, propgrid.NewStorageError(fmt.Sprintf("failed to save collapse state %q", key), err)
	}
	zap.S().Debugw("collapse state saved", "backend", propgrid.BackendPostgres, "key", key, "snapshotID", snap.ID)
	return snap, nil
}

func (s *PostgresStore) Load(ctx context.Context, key string) (*propgrid.Snapshot, error) {
	query := fmt.Sprintf(`SELECT snapshot_id, names, saved_at FROM %s WHERE view_key = $1`, s.table)

	var (
		id      uuid.UUID
		encoded []byte
		savedAt time.Time
	)
	if err := s.pool.QueryRow(ctx, query, key).Scan(&id, &encoded, &savedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, propgrid.NewStateNotFoundError(key)
		}
		return nil, propgrid.NewStorageError(fmt.Sprintf("failed to load collapse state %q", key), err)
	}

	names := propgrid.NewCollapsedNames()
	if err := json.Unmarshal(encoded, names); err != nil {
		return nil, propgrid.NewStorageError(fmt.Sprintf("failed to decode collapse state %q", key), err)
	}
	return &propgrid.Snapshot{ID: id, Key: key, Names: names, SavedAt: savedAt.UTC()}, nil
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE view_key = $1`, s.table)
	if _, err := s.pool.Exec(ctx, query, key); err != nil {
		return propgrid.NewStorageError(fmt.Sprintf("failed to delete collapse state %q", key), err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}
