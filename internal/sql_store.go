package internal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/lychee-technology/propgrid"
	"go.uber.org/zap"
)

// SQLStore keeps collapse state in a database/sql table. It runs on lib/pq
// ("postgres") and on DuckDB ("duckdb"); both accept $n placeholders and
// ON CONFLICT upserts. Times are stored as unix milliseconds.
type SQLStore struct {
	db     *sql.DB
	driver string
	table  string
}

// OpenSQLStore opens dsn with driver, verifies the connection and creates the
// table when missing. An empty DuckDB dsn opens an in-memory database.
func OpenSQLStore(ctx context.Context, driver, dsn, table string) (*SQLStore, error) {
	if driver == "duckdb" && dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, propgrid.NewStorageError("open "+driver, err)
	}
	if driver == "duckdb" {
		// DuckDB typically uses a single connection
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, propgrid.NewStorageError("ping "+driver, err)
	}
	store := &SQLStore{db: db, driver: driver, table: sanitizeIdentifier(table)}
	if err := store.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	view_key TEXT PRIMARY KEY,
	snapshot_id TEXT NOT NULL,
	names TEXT NOT NULL,
	saved_at BIGINT NOT NULL
)`, s.table)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return propgrid.NewStorageError(fmt.Sprintf("failed to create table %s", s.table), err)
	}
	return nil
}

func (s *SQLStore) Save(ctx context.Context, key string, names *propgrid.CollapsedNames) (*propgrid.Snapshot, error) {
	snap := propgrid.NewSnapshot(key, names)
	encoded, err := json.Marshal(snap.Names)
	if err != nil {
		return nil, propgrid.NewStorageError("failed to encode collapsed names", err)
	}

	query := fmt.Sprintf(`INSERT INTO %s (view_key, snapshot_id, names, saved_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (view_key) DO UPDATE
SET snapshot_id = EXCLUDED.snapshot_id, names = EXCLUDED.names, saved_at = EXCLUDED.saved_at`, s.table)
	if _, err := s.db.ExecContext(ctx, query, key, snap.ID.String(), string(encoded), snap.SavedAt.UnixMilli()); err != nil {
		return nil, propgrid.NewStorageError(fmt.Sprintf("failed to save collapse state %q", key), err)
	}
	zap.S().Debugw("collapse state saved", "backend", propgrid.BackendSQL, "driver", s.driver, "key", key)
	// stored precision
	snap.SavedAt = time.UnixMilli(snap.SavedAt.UnixMilli()).UTC()
	return snap, nil
}

func (s *SQLStore) Load(ctx context.Context, key string) (*propgrid.Snapshot, error) {
	query := fmt.Sprintf(`SELECT snapshot_id, names, saved_at FROM %s WHERE view_key = $1`, s.table)

	var (
		rawID   string
		encoded string
		savedMs int64
	)
	err := s.db.QueryRowContext(ctx, query, key).Scan(&rawID, &encoded, &savedMs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, propgrid.NewStateNotFoundError(key)
	}
	if err != nil {
		return nil, propgrid.NewStorageError(fmt.Sprintf("failed to load collapse state %q", key), err)
	}

	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, propgrid.NewStorageError(fmt.Sprintf("invalid snapshot id for %q", key), err)
	}
	names := propgrid.NewCollapsedNames()
	if err := json.Unmarshal([]byte(encoded), names); err != nil {
		return nil, propgrid.NewStorageError(fmt.Sprintf("failed to decode collapse state %q", key), err)
	}
	return &propgrid.Snapshot{ID: id, Key: key, Names: names, SavedAt: time.UnixMilli(savedMs).UTC()}, nil
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE view_key = $1`, s.table)
	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return propgrid.NewStorageError(fmt.Sprintf("failed to delete collapse state %q", key), err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
