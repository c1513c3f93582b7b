// Package backend abstracts the block device underneath a filesystem.
// It allows the same filesystem code to work against a disk image file,
// an in-memory buffer, or any other random-access store.
package backend

// Storage is the device boundary consumed by the filesystem packages.
// Offsets are in bytes; the filesystem core converts block addresses to
// byte offsets before calling down here.
type Storage interface {
	// ReadAt reads len(p) bytes starting at byte offset off
	ReadAt(p []byte, off int64) (int, error)
	// WriteAt writes len(p) bytes starting at byte offset off
	WriteAt(p []byte, off int64) (int, error)
	// Size returns the total size of the device in bytes
	Size() (int64, error)
	// Sync flushes any buffered writes to the underlying store
	Sync() error
	// Close releases the device
	Close() error
}
