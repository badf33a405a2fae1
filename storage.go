package propgrid

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Snapshot is one persisted version of a view's collapsed-name set.
type Snapshot struct {
	ID      uuid.UUID       `json:"id"`
	Key     string          `json:"key"`
	Names   *CollapsedNames `json:"names"`
	SavedAt time.Time       `json:"savedAt"`
}

// NewSnapshot stamps names with a fresh time-ordered ID.
func NewSnapshot(key string, names *CollapsedNames) *Snapshot {
	return &Snapshot{
		ID:      uuid.Must(uuid.NewV7()),
		Key:     key,
		Names:   names.Clone(),
		SavedAt: time.Now().UTC(),
	}
}

// CollapseStore persists collapsed-name sets keyed by view.
type CollapseStore interface {
	// Save stores names under key, replacing any previous snapshot.
	Save(ctx context.Context, key string, names *CollapsedNames) (*Snapshot, error)
	// Load returns the latest snapshot for key, or a not found error.
	Load(ctx context.Context, key string) (*Snapshot, error)
	// Delete removes the snapshot for key. Deleting a missing key is not an
	// error.
	Delete(ctx context.Context, key string) error
	Close() error
}

// RestoreFrom loads the snapshot stored under key into m. A missing snapshot
// leaves m unchanged and is not an error.
func RestoreFrom(ctx context.Context, store CollapseStore, key string, m *RowModel) error {
	snap, err := store.Load(ctx, key)
	if err != nil {
		if IsNotFoundError(err) {
			return nil
		}
		return err
	}
	m.RestoreCollapsedNames(snap.Names)
	return nil
}

// SaveFrom stores the current collapsed-name set of m under key.
func SaveFrom(ctx context.Context, store CollapseStore, key string, m *RowModel) (*Snapshot, error) {
	return store.Save(ctx, key, m.CollapsedNames())
}
