package propgrid

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapStore struct {
	snaps   map[string]*Snapshot
	loadErr error
}

func (s *mapStore) Save(_ context.Context, key string, names *CollapsedNames) (*Snapshot, error) {
	snap := NewSnapshot(key, names)
	s.snaps[key] = snap
	return snap, nil
}

func (s *mapStore) Load(_ context.Context, key string) (*Snapshot, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	snap, ok := s.snaps[key]
	if !ok {
		return nil, NewStateNotFoundError(key)
	}
	return snap, nil
}

func (s *mapStore) Delete(_ context.Context, key string) error {
	delete(s.snaps, key)
	return nil
}

func (s *mapStore) Close() error { return nil }

func TestNewSnapshot(t *testing.T) {
	names := NewCollapsedNames("a")
	snap := NewSnapshot("view", names)
	names.Add("b")

	assert.Equal(t, "view", snap.Key)
	assert.Equal(t, []string{"a"}, snap.Names.Names())
	assert.Equal(t, byte(7), byte(snap.ID.Version()))

	data, err := json.Marshal(snap)
	require.NoError(t, err)
	var decoded Snapshot
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, snap.ID, decoded.ID)
	assert.True(t, snap.Names.Equal(decoded.Names))
}

func TestSaveFromAndRestoreFrom(t *testing.T) {
	ctx := context.Background()
	store := &mapStore{snaps: map[string]*Snapshot{}}

	root, a, _, _ := chain(t)
	m := NewRowModel()
	m.SetModel(root)
	require.True(t, m.ToggleCollapsed(a))

	snap, err := SaveFrom(ctx, store, "view", m)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, snap.Names.Names())

	other := NewRowModel()
	other.SetModel(root)
	require.NoError(t, RestoreFrom(ctx, store, "view", other))
	assert.Equal(t, []string{"A"}, rowNames(other))

	// a missing key leaves the model untouched
	require.NoError(t, RestoreFrom(ctx, store, "unknown", other))
	assert.Equal(t, []string{"A"}, rowNames(other))

	store.loadErr = errors.New("boom")
	assert.Error(t, RestoreFrom(ctx, store, "view", other))
}
