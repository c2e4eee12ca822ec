package memory

import (
	"bytes"
	"context"
	"fmt"

	"github.com/marmos91/clusterfs/pkg/store/content"
)

// ReadContent returns a copy of the blob identified by id.
//
// Context Cancellation:
// Only checked before acquiring the lock.
func (s *MemoryContentStore) ReadContent(ctx context.Context, id content.ContentID) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, exists := s.data[id]
	if !exists {
		return nil, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
	}

	return bytes.Clone(data), nil
}
