package content

import "errors"

// Standard content store errors.
//
// Implementations wrap them with the content id and the underlying cause:
//
//	return fmt.Errorf("content %s: %w: %w", id, content.ErrCannotCreate, err)
//
// The protocol layer maps them onto client responses with errors.Is.
var (
	// ErrContentNotFound indicates the requested blob does not exist.
	ErrContentNotFound = errors.New("content not found")

	// ErrCannotCreate indicates the blob could not be created (permissions,
	// missing storage location, invalid name).
	ErrCannotCreate = errors.New("cannot create content")

	// ErrCannotWrite indicates the blob was created but its bytes could not
	// be written completely.
	ErrCannotWrite = errors.New("cannot write content")

	// ErrCannotRead indicates an existing blob could not be read back.
	ErrCannotRead = errors.New("cannot read content")

	// ErrInvalidContentID indicates the id cannot be mapped onto the backend,
	// for example a name containing a path separator on the filesystem store.
	ErrInvalidContentID = errors.New("invalid content ID")
)
