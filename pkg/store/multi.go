package store

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ShroXd/cascade"
)

// MultiStore hands every result to all of its stores concurrently and returns once each of
// them is done, so the crawler still sees a synchronous store.
type MultiStore struct {
	stores []cascade.Store
}

func NewMultiStore(stores ...cascade.Store) *MultiStore {
	return &MultiStore{stores: stores}
}

func (ms *MultiStore) SetLogger(logger cascade.Logger) {
	for _, s := range ms.stores {
		if ls, ok := s.(interface{ SetLogger(cascade.Logger) }); ok {
			ls.SetLogger(logger)
		}
	}
}

// Store returns the first error of any store.
func (ms *MultiStore) Store(ctx context.Context, result *cascade.Result) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, s := range ms.stores {
		g.Go(func() error {
			return s.Store(ctx, result)
		})
	}
	return g.Wait()
}
