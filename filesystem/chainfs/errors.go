package chainfs

import "errors"

// Errors surfaced by the filesystem core. Callers test with errors.Is;
// the core wraps them with context via fmt.Errorf and %w.
var (
	// ErrNotFound indicates a missing node, name, or block chain
	ErrNotFound = errors.New("file or directory not found")
	// ErrExists indicates a duplicate sibling name on create
	ErrExists = errors.New("file or directory already exists")
	// ErrInvalidName indicates a name containing the reserved separator
	ErrInvalidName = errors.New("invalid name")
	// ErrIsDirectory indicates a directory where a file was expected
	ErrIsDirectory = errors.New("is a directory")
	// ErrNotDirectory indicates a file where a directory was expected
	ErrNotDirectory = errors.New("is not a directory")
	// ErrNotEmpty indicates removal of a directory that still has children
	ErrNotEmpty = errors.New("directory not empty")
	// ErrNoSpace indicates the free list could not satisfy an allocation
	ErrNoSpace = errors.New("no space left on device")
)
