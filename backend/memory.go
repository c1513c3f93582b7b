package backend

import (
	"fmt"
)

// MemoryStorage implements Storage over an in-memory byte slice.
// Used for tests and benchmarks to avoid file I/O overhead.
type MemoryStorage struct {
	data []byte
}

var _ Storage = (*MemoryStorage)(nil)

// NewMemoryStorage returns an in-memory device of the given size in bytes.
func NewMemoryStorage(size int64) *MemoryStorage {
	return &MemoryStorage{data: make([]byte, size)}
}

func (m *MemoryStorage) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > int64(len(m.data)) {
		return 0, fmt.Errorf("memory read: offset %d length %d out of range (size %d)", off, len(p), len(m.data))
	}
	return copy(p, m.data[off:]), nil
}

func (m *MemoryStorage) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > int64(len(m.data)) {
		return 0, fmt.Errorf("memory write: offset %d length %d out of range (size %d)", off, len(p), len(m.data))
	}
	return copy(m.data[off:], p), nil
}

func (m *MemoryStorage) Size() (int64, error) {
	return int64(len(m.data)), nil
}

func (m *MemoryStorage) Sync() error {
	return nil
}

func (m *MemoryStorage) Close() error {
	return nil
}
