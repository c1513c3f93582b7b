package chainfs

import (
	"os"
	"time"
)

// FileInfo represents the information for an individual file or
// directory, satisfying os.FileInfo.
type FileInfo struct {
	name    string
	size    int64
	mode    os.FileMode
	modTime time.Time
	isDir   bool
}

// Name returns the base name of the file
func (fi FileInfo) Name() string {
	return fi.name
}

// Size returns the length in bytes of the file
func (fi FileInfo) Size() int64 {
	return fi.size
}

// Mode returns the file mode bits
func (fi FileInfo) Mode() os.FileMode {
	return fi.mode
}

// ModTime returns the modification time
func (fi FileInfo) ModTime() time.Time {
	return fi.modTime
}

// IsDir reports whether the entry is a directory
func (fi FileInfo) IsDir() bool {
	return fi.isDir
}

// Sys returns the underlying data source; always nil here
func (fi FileInfo) Sys() interface{} {
	return nil
}
