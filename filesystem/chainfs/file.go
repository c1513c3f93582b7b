package chainfs

import (
	"errors"
	"fmt"
	"io"
	"time"
)

// File represents a single open file in a chainfs filesystem. Reads and
// writes go through the byte-range node I/O engine at the last known
// offset; use Seek to move it.
type File struct {
	fs          *FileSystem
	block       uint64
	offset      int64
	isReadWrite bool
}

// Read reads up to len(b) bytes from the file. At end of file it
// returns 0, io.EOF.
func (fl *File) Read(b []byte) (int, error) {
	size, err := fl.fs.NodeLen(fl.block)
	if err != nil {
		return 0, err
	}
	if fl.offset >= int64(size) {
		return 0, io.EOF
	}
	n, err := fl.fs.ReadNode(fl.block, uint64(fl.offset), b)
	fl.offset += int64(n)
	if err != nil {
		return n, err
	}
	if n < len(b) {
		return n, io.EOF
	}
	return n, nil
}

// Write writes len(b) bytes to the file, growing it as needed. It
// returns a non-nil error when n != len(b).
func (fl *File) Write(b []byte) (int, error) {
	if !fl.isReadWrite {
		return 0, errors.New("file not opened for writing")
	}
	n, err := fl.fs.WriteNode(fl.block, uint64(fl.offset), b, time.Now())
	fl.offset += int64(n)
	if err != nil {
		return n, err
	}
	if n != len(b) {
		return n, fmt.Errorf("wrote %d bytes instead of %d", n, len(b))
	}
	return n, nil
}

// Seek sets the offset for the next Read or Write.
func (fl *File) Seek(offset int64, whence int) (int64, error) {
	newOffset := int64(0)
	switch whence {
	case io.SeekStart:
		newOffset = offset
	case io.SeekEnd:
		size, err := fl.fs.NodeLen(fl.block)
		if err != nil {
			return fl.offset, err
		}
		newOffset = int64(size) + offset
	case io.SeekCurrent:
		newOffset = fl.offset + offset
	}
	if newOffset < 0 {
		return fl.offset, fmt.Errorf("cannot set offset %d before start of file", offset)
	}
	fl.offset = newOffset
	return fl.offset, nil
}

// Close closes the file handle.
func (fl *File) Close() error {
	return nil
}
