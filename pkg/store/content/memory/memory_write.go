package memory

import (
	"context"
	"fmt"

	"github.com/marmos91/clusterfs/pkg/store/content"
)

// WriteContent stores a copy of data under id, replacing any previous blob.
func (s *MemoryContentStore) WriteContent(ctx context.Context, id content.ContentID, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if id == "" {
		return fmt.Errorf("%w: %w", content.ErrCannotCreate, content.ErrInvalidContentID)
	}

	buf := make([]byte, len(data))
	copy(buf, data)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[id] = buf
	return nil
}

// DeleteContent removes the blob identified by id.
func (s *MemoryContentStore) DeleteContent(ctx context.Context, id content.ContentID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[id]; !exists {
		return fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
	}

	delete(s.data, id)
	return nil
}
