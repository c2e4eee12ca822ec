package alloc

import "github.com/pkg/errors"

// Allocator errors. Callers match them with errors.Is; the pool wraps them
// with the offending file name and a stack trace.
var (
	// ErrFileExists is returned by AddFile when the name is already registered.
	ErrFileExists = errors.New("alloc: file already exists")

	// ErrFileNotFound is returned by RemoveFile for unknown names.
	ErrFileNotFound = errors.New("alloc: file not found")

	// ErrNoSpace is returned by AddFile when the pool has fewer free blocks
	// than requested. The pool is left untouched.
	ErrNoSpace = errors.New("alloc: not enough free blocks")

	// ErrNoIdentifiers is returned by AddFile when every symbol of the
	// alphabet is owned by a registered file.
	ErrNoIdentifiers = errors.New("alloc: no identifiers available")

	// ErrInvalidConfig is returned by NewPool for unusable geometry or alphabets.
	ErrInvalidConfig = errors.New("alloc: invalid pool configuration")
)
