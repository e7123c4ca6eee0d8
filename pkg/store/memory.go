// Package store holds sinks for finished crawl results.
package store

import (
	"context"
	"sync"

	"github.com/ShroXd/cascade"
)

// MemoryStore keeps every result in memory, mostly for tests and small crawls.
type MemoryStore struct {
	mu      sync.Mutex
	results cascade.Results
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (ms *MemoryStore) Store(_ context.Context, result *cascade.Result) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.results = append(ms.results, result)
	return nil
}

// Results returns a copy of the stored results in arrival order.
func (ms *MemoryStore) Results() cascade.Results {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	return append(cascade.Results(nil), ms.results...)
}

func (ms *MemoryStore) Reset() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.results = nil
}
