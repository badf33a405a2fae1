package internal

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lychee-technology/propgrid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDoc(t *testing.T, path, label string) {
	t.Helper()
	doc := []byte("label: " + label + "\nproperties:\n  - name: host\n    type: String\n")
	require.NoError(t, os.WriteFile(path, doc, 0o644))
}

func startWatcher(t *testing.T, path string) (chan *propgrid.ComposedProperty, chan error, context.CancelFunc) {
	t.Helper()
	w, err := NewDocumentWatcher(path, 20*time.Millisecond, func(p string) (*propgrid.ComposedProperty, error) {
		return BuildFile(p, propgrid.FormatAuto, BuilderOptions{})
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	trees := make(chan *propgrid.ComposedProperty, 16)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(root *propgrid.ComposedProperty) {
			select {
			case trees <- root:
			default:
			}
		})
	}()
	return trees, done, cancel
}

// waitTree returns the first reloaded tree carrying label. Trees built from
// a partially written file are skipped.
func waitTree(t *testing.T, trees <-chan *propgrid.ComposedProperty, label string) *propgrid.ComposedProperty {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case root := <-trees:
			if root.Label() == label {
				return root
			}
		case <-timeout:
			t.Fatalf("no reload with label %q observed", label)
			return nil
		}
	}
}

func TestDocumentWatcher_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	writeDoc(t, path, "First")

	trees, done, cancel := startWatcher(t, path)
	writeDoc(t, path, "Second")

	root := waitTree(t, trees, "Second")
	require.Equal(t, 1, root.Subproperties().Len())
	assert.Equal(t, "host", root.Subproperties().At(0).Name())

	cancel()
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestDocumentWatcher_SkipsBrokenDocuments(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	writeDoc(t, path, "First")

	trees, _, cancel := startWatcher(t, path)
	defer cancel()

	// other files in the directory are ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("properties:\n  - name: host\n"), 0o644))
	time.Sleep(200 * time.Millisecond)
	writeDoc(t, path, "Fixed")

	root := waitTree(t, trees, "Fixed")
	assert.Equal(t, 1, root.Subproperties().Len())
}

func TestDocumentWatcher_CloseStopsRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	writeDoc(t, path, "First")

	w, err := NewDocumentWatcher(path, time.Millisecond, func(string) (*propgrid.ComposedProperty, error) {
		return nil, errors.New("unused")
	})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- w.Run(context.Background(), func(*propgrid.ComposedProperty) {})
	}()

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after Close")
	}
}
