// Package content defines the backing store for file bytes.
//
// The allocator only tracks which blocks a file owns; the bytes themselves
// live in a ContentStore keyed by the file name. Implementations exist for
// the local filesystem, memory, S3-compatible object storage and BadgerDB.
package content

import (
	"context"
	"sort"
)

// ContentID identifies a blob. The server uses the client-supplied file
// name verbatim.
type ContentID string

// ContentStore persists whole blobs.
//
// Every method checks ctx before doing I/O. Implementations must be safe for
// concurrent use, although the server serializes all calls behind the disk
// lock.
type ContentStore interface {
	// WriteContent creates or replaces the blob identified by id.
	//
	// Errors wrap ErrCannotCreate when the blob cannot be created and
	// ErrCannotWrite when the bytes cannot be written.
	WriteContent(ctx context.Context, id ContentID, data []byte) error

	// ReadContent returns the full blob.
	//
	// Errors wrap ErrContentNotFound or ErrCannotRead.
	ReadContent(ctx context.Context, id ContentID) ([]byte, error)

	// DeleteContent removes the blob.
	//
	// Errors wrap ErrContentNotFound when no such blob exists.
	DeleteContent(ctx context.Context, id ContentID) error

	// ListContent returns every stored id in lexicographic order.
	ListContent(ctx context.Context) ([]ContentID, error)

	// Reset wipes the storage location and recreates it empty.
	Reset(ctx context.Context) error

	// Close releases resources held by the store.
	Close() error
}

// SortIDs sorts ids in place and returns them.
func SortIDs(ids []ContentID) []ContentID {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
