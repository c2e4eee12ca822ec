package fs

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/marmos91/clusterfs/pkg/store/content"
)

// WriteContent creates (or truncates) the file for id and writes data to it.
//
// Error mapping:
//   - Invalid id, missing directory, permission denied: content.ErrCannotCreate
//   - Short or failed write, failed close: content.ErrCannotWrite
func (s *FSContentStore) WriteContent(ctx context.Context, id content.ContentID, data []byte) error {
	// ========================================================================
	// Step 1: Check context and resolve the path
	// ========================================================================

	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.getFilePath(id)
	if err != nil {
		return fmt.Errorf("%w: %w", content.ErrCannotCreate, err)
	}

	// ========================================================================
	// Step 2: Create the file
	// ========================================================================

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("content %s: %w: %w", id, content.ErrCannotCreate, err)
	}

	// ========================================================================
	// Step 3: Write the bytes
	// ========================================================================

	n, err := f.Write(data)
	if err == nil && n != len(data) {
		err = errors.New("short write")
	}
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("content %s: %w: %w", id, content.ErrCannotWrite, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("content %s: %w: %w", id, content.ErrCannotWrite, err)
	}

	return nil
}

// DeleteContent removes the file for id.
func (s *FSContentStore) DeleteContent(ctx context.Context, id content.ContentID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.getFilePath(id)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
		}
		return fmt.Errorf("failed to delete content %s: %w", id, err)
	}

	return nil
}
