// Package fs implements filesystem-based content storage.
//
// This file contains the store type, constructor, path mapping and
// lifecycle management. Reads and writes live in fs_read.go and fs_write.go.
package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/marmos91/clusterfs/pkg/store/content"
)

// FSContentStore implements content.ContentStore on a local directory.
//
// Each blob is one regular file directly under basePath, named after its
// content id. Ids that would escape the directory are rejected.
//
// Thread Safety:
// The underlying filesystem operations are thread-safe at the OS level, but
// concurrent writes to the same id may interleave. The server never issues
// them because the disk lock serializes every store call.
type FSContentStore struct {
	basePath string
}

// NewFSContentStore creates a filesystem content store rooted at basePath.
//
// The directory is created with permissions 0755 if it doesn't exist.
// Existing contents are kept; call Reset to wipe them.
//
// Parameters:
//   - ctx: Context for cancellation
//   - basePath: Directory holding one file per blob
//
// Returns:
//   - *FSContentStore: Initialized store
//   - error: Directory creation failure or context cancellation
func NewFSContentStore(ctx context.Context, basePath string) (*FSContentStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if basePath == "" {
		return nil, fmt.Errorf("filesystem content store: base path is required")
	}

	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FSContentStore{basePath: basePath}, nil
}

// BasePath returns the directory the store writes to.
func (s *FSContentStore) BasePath() string {
	return s.basePath
}

// getFilePath maps an id onto a path under basePath.
//
// Ids are client-supplied file names, so anything containing a separator or
// naming the directory itself is refused.
func (s *FSContentStore) getFilePath(id content.ContentID) (string, error) {
	name := string(id)
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return "", fmt.Errorf("content %q: %w", name, content.ErrInvalidContentID)
	}
	return filepath.Join(s.basePath, name), nil
}

// Reset removes the base directory and everything in it, then recreates it.
func (s *FSContentStore) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.RemoveAll(s.basePath); err != nil {
		return fmt.Errorf("failed to remove %s: %w", s.basePath, err)
	}

	if err := os.MkdirAll(s.basePath, 0755); err != nil {
		return fmt.Errorf("failed to recreate %s: %w", s.basePath, err)
	}

	return nil
}

// ListContent returns the ids of every regular file under basePath.
func (s *FSContentStore) ListContent(ctx context.Context) ([]content.ContentID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.basePath, err)
	}

	ids := make([]content.ContentID, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		ids = append(ids, content.ContentID(entry.Name()))
	}

	return content.SortIDs(ids), nil
}

// Close is a no-op; the store holds no open descriptors between calls.
func (s *FSContentStore) Close() error {
	return nil
}
