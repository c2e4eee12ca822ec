// Package memory implements in-memory content storage.
//
// This file contains the store type, constructor and lifecycle management.
package memory

import (
	"context"
	"sync"

	"github.com/marmos91/clusterfs/pkg/store/content"
)

// MemoryContentStore implements content.ContentStore with a map.
//
// It is meant for tests and for running the server without touching disk.
// Data is lost on restart, which matches the allocator: it is never rebuilt
// from the store either.
//
// Thread Safety:
// All operations are protected by a sync.RWMutex. Data is copied on the way
// in and out so callers can reuse their buffers.
type MemoryContentStore struct {
	// data stores blob bytes keyed by ContentID
	data map[content.ContentID][]byte

	// mu protects data
	mu sync.RWMutex
}

// NewMemoryContentStore creates an empty in-memory store.
//
// Returns an error only if ctx is already cancelled.
func NewMemoryContentStore(ctx context.Context) (*MemoryContentStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &MemoryContentStore{
		data: make(map[content.ContentID][]byte),
	}, nil
}

// ListContent returns every stored id in lexicographic order.
func (s *MemoryContentStore) ListContent(ctx context.Context) ([]content.ContentID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]content.ContentID, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return content.SortIDs(ids), nil
}

// Reset drops every blob.
func (s *MemoryContentStore) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[content.ContentID][]byte)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryContentStore) Close() error {
	return nil
}
