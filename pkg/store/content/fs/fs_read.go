package fs

import (
	"context"
	"fmt"
	"os"

	"github.com/marmos91/clusterfs/pkg/store/content"
)

// ReadContent returns the whole file for id.
func (s *FSContentStore) ReadContent(ctx context.Context, id content.ContentID) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := s.getFilePath(id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
		}
		return nil, fmt.Errorf("content %s: %w: %w", id, content.ErrCannotRead, err)
	}

	return data, nil
}
