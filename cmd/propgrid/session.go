package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/lychee-technology/propgrid"
	"github.com/lychee-technology/propgrid/factory"
	"go.uber.org/zap"
)

// session is one document projected onto rows, with its collapse state
// restored from the configured store.
type session struct {
	root  *propgrid.ComposedProperty
	model *propgrid.RowModel
	store propgrid.CollapseStore
	key   string
}

func openSession(ctx context.Context, path string) (*session, error) {
	root, err := factory.BuildFile(cfg, path, nil)
	if err != nil {
		return nil, err
	}
	store, err := factory.NewCollapseStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	model := factory.NewRowModel(cfg)
	model.SetModel(root)
	if err := propgrid.RestoreFrom(ctx, store, cfg.Storage.Key, model); err != nil {
		store.Close()
		return nil, err
	}
	zap.S().Debugw("opened view", "path", path, "key", cfg.Storage.Key, "rows", model.RowCount(),
		"collapsed", model.CollapsedNames().Names())
	return &session{root: root, model: model, store: store, key: cfg.Storage.Key}, nil
}

func (s *session) save(ctx context.Context) error {
	snap, err := propgrid.SaveFrom(ctx, s.store, s.key, s.model)
	if err != nil {
		return err
	}
	zap.S().Debugw("saved collapse state", "key", s.key, "snapshot", snap.ID, "names", snap.Names.Names())
	return nil
}

func (s *session) Close() error {
	return s.store.Close()
}

// lookup finds a property by its dotted path below the root, e.g. "tls.enabled".
func (s *session) lookup(path string) (propgrid.Property, error) {
	var found propgrid.Property
	s.root.Walk(func(p propgrid.Property) bool {
		if propertyPath(p) == path {
			found = p
			return false
		}
		return true
	})
	if found == nil {
		return nil, fmt.Errorf("no property at %q", path)
	}
	return found, nil
}

// propertyPath joins the names below the root.
func propertyPath(p propgrid.Property) string {
	names := propgrid.Path(p)
	if len(names) > 0 {
		names = names[1:]
	}
	return strings.Join(names, ".")
}
