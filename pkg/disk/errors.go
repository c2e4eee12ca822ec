package disk

import (
	"errors"

	"github.com/marmos91/clusterfs/pkg/alloc"
)

var (
	// ErrFileExists is returned by Store for a name already on the disk.
	ErrFileExists = alloc.ErrFileExists

	// ErrNoSpace is returned by Store when the payload needs more blocks
	// than are free.
	ErrNoSpace = alloc.ErrNoSpace

	// ErrNoIdentifiers is returned by Store when every identifier is taken.
	ErrNoIdentifiers = alloc.ErrNoIdentifiers

	// ErrNoSuchFile is returned by Read and Delete for unknown names.
	ErrNoSuchFile = errors.New("disk: no such file")

	// ErrInvalidRange is returned by Read when offset+length runs past the
	// end of the stored blob.
	ErrInvalidRange = errors.New("disk: invalid byte range")
)
