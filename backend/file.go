package backend

import (
	"fmt"
	"os"
)

// FileStorage implements Storage over a regular file, typically a disk
// image. The file is used as-is; callers size it with Truncate before
// formatting a filesystem onto it.
type FileStorage struct {
	f *os.File
}

var _ Storage = (*FileStorage)(nil)

// OpenFileStorage opens the file at path for use as a block device. If
// size is greater than zero the file is created if missing and truncated
// to that size; otherwise the file must already exist.
func OpenFileStorage(path string, size int64) (*FileStorage, error) {
	flag := os.O_RDWR
	if size > 0 {
		flag |= os.O_CREATE
	}
	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return nil, fmt.Errorf("could not open device file %s: %w", path, err)
	}
	if size > 0 {
		if err := f.Truncate(size); err != nil {
			f.Close()
			return nil, fmt.Errorf("could not size device file %s to %d bytes: %w", path, size, err)
		}
	}
	return &FileStorage{f: f}, nil
}

func (fb *FileStorage) ReadAt(p []byte, off int64) (int, error) {
	n, err := fb.f.ReadAt(p, off)
	if err != nil {
		return n, fmt.Errorf("device read at %d: %w", off, err)
	}
	return n, nil
}

func (fb *FileStorage) WriteAt(p []byte, off int64) (int, error) {
	n, err := fb.f.WriteAt(p, off)
	if err != nil {
		return n, fmt.Errorf("device write at %d: %w", off, err)
	}
	return n, nil
}

func (fb *FileStorage) Size() (int64, error) {
	st, err := fb.f.Stat()
	if err != nil {
		return 0, fmt.Errorf("device stat: %w", err)
	}
	return st.Size(), nil
}

func (fb *FileStorage) Sync() error {
	if err := fb.f.Sync(); err != nil {
		return fmt.Errorf("device sync: %w", err)
	}
	return nil
}

func (fb *FileStorage) Close() error {
	if err := fb.f.Close(); err != nil {
		return fmt.Errorf("device close: %w", err)
	}
	return nil
}
