package chainfs

import (
	"bytes"
	"errors"
	"io"
	"os"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/chainfs/go-chainfs/backend"
)

// flakyStorage wraps a memory device and, once armed, fails reads after
// a set budget.
type flakyStorage struct {
	*backend.MemoryStorage
	armed     bool
	remaining int
}

func (s *flakyStorage) ReadAt(p []byte, off int64) (int, error) {
	if s.armed {
		if s.remaining == 0 {
			return 0, errors.New("device read failure")
		}
		s.remaining--
	}
	return s.MemoryStorage.ReadAt(p, off)
}

func TestMkdirAndReadDir(t *testing.T) {
	fs := newTestFS(t, testDeviceSize, nil)

	if err := fs.Mkdir("/a/b/c"); err != nil {
		t.Fatalf("Mkdir error: %v", err)
	}
	// idempotent
	if err := fs.Mkdir("/a/b/c"); err != nil {
		t.Fatalf("repeated Mkdir error: %v", err)
	}
	if err := fs.Mkdir("/a/d"); err != nil {
		t.Fatalf("Mkdir error: %v", err)
	}

	infos, err := fs.ReadDir("/a")
	if err != nil {
		t.Fatalf("ReadDir error: %v", err)
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		if !info.IsDir() {
			t.Errorf("%q should be a directory", info.Name())
		}
		names = append(names, info.Name())
	}
	sort.Strings(names)
	if len(names) != 2 || names[0] != "b" || names[1] != "d" {
		t.Errorf("ReadDir(/a) = %v, expected [b d]", names)
	}

	if _, err := fs.ReadDir("/missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStat(t *testing.T) {
	fs := newTestFS(t, testDeviceSize, nil)

	root, err := fs.Stat("/")
	if err != nil {
		t.Fatalf("Stat error: %v", err)
	}
	if root.Name() != "/" || !root.IsDir() {
		t.Errorf("root stat = %q dir=%v", root.Name(), root.IsDir())
	}

	f, err := fs.OpenFile("/f", os.O_CREATE|os.O_RDWR)
	if err != nil {
		t.Fatalf("OpenFile error: %v", err)
	}
	if _, err := f.Write([]byte("hello")); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	info, err := fs.Stat("/f")
	if err != nil {
		t.Fatalf("Stat error: %v", err)
	}
	if info.Name() != "f" || info.IsDir() || info.Size() != 5 {
		t.Errorf("stat = %q dir=%v size=%d", info.Name(), info.IsDir(), info.Size())
	}
	if info.Mode().Perm() != 0o644 {
		t.Errorf("mode = %v, expected 0644", info.Mode())
	}
}

func TestOpenFileFlags(t *testing.T) {
	fs := newTestFS(t, testDeviceSize, nil)

	// missing file without O_CREATE
	if _, err := fs.OpenFile("/f", os.O_RDWR); err == nil {
		t.Fatal("expected error opening a missing file without os.O_CREATE")
	}

	f, err := fs.OpenFile("/f", os.O_CREATE|os.O_RDWR)
	if err != nil {
		t.Fatalf("OpenFile error: %v", err)
	}
	if _, err := f.Write([]byte("hello world")); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	// append positions the offset at the current size
	f, err = fs.OpenFile("/f", os.O_APPEND|os.O_WRONLY)
	if err != nil {
		t.Fatalf("OpenFile error: %v", err)
	}
	if _, err := f.Write([]byte("!")); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	info, err := fs.Stat("/f")
	if err != nil {
		t.Fatalf("Stat error: %v", err)
	}
	if info.Size() != 12 {
		t.Errorf("size after append = %d, expected 12", info.Size())
	}

	// truncate discards the contents
	f, err = fs.OpenFile("/f", os.O_TRUNC|os.O_RDWR)
	if err != nil {
		t.Fatalf("OpenFile error: %v", err)
	}
	if _, err := f.Read(make([]byte, 1)); err != io.EOF {
		t.Errorf("expected io.EOF reading a truncated file, got %v", err)
	}

	// a read-only handle must not write
	f, err = fs.OpenFile("/f", os.O_RDONLY)
	if err != nil {
		t.Fatalf("OpenFile error: %v", err)
	}
	if _, err := f.Write([]byte("x")); err == nil {
		t.Error("expected error writing a read-only handle")
	}

	// directories are not openable as files
	if err := fs.Mkdir("/d"); err != nil {
		t.Fatalf("Mkdir error: %v", err)
	}
	if _, err := fs.OpenFile("/d", os.O_RDWR); !errors.Is(err, ErrIsDirectory) {
		t.Fatalf("expected ErrIsDirectory, got %v", err)
	}
}

func TestOpenFileLookupFailure(t *testing.T) {
	dev := &flakyStorage{MemoryStorage: backend.NewMemoryStorage(testDeviceSize)}
	fs, err := Create(dev, time.Now(), nil)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	// a genuinely missing file is a not-found complaining about os.O_CREATE
	_, err = fs.OpenFile("/missing", os.O_RDWR)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "os.O_CREATE") {
		t.Errorf("missing-file error should mention os.O_CREATE: %v", err)
	}

	// a device failure during the lookup must not masquerade as a
	// missing file
	dev.armed = true
	dev.remaining = 1 // the root resolves, the child scan fails
	_, err = fs.OpenFile("/missing", os.O_RDWR)
	if err == nil {
		t.Fatal("expected an error from a failing device")
	}
	if errors.Is(err, ErrNotFound) {
		t.Errorf("device failure reported as ErrNotFound: %v", err)
	}
	if strings.Contains(err.Error(), "os.O_CREATE") {
		t.Errorf("device failure blamed on os.O_CREATE: %v", err)
	}
}

func TestFileReadWriteSeek(t *testing.T) {
	fs := newTestFS(t, testDeviceSize, nil)

	f, err := fs.OpenFile("/f", os.O_CREATE|os.O_RDWR)
	if err != nil {
		t.Fatalf("OpenFile error: %v", err)
	}
	data := patternData(int(BlockSize) + 500)
	if _, err := f.Write(data); err != nil {
		t.Fatalf("Write error: %v", err)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		t.Fatalf("Seek error: %v", err)
	}
	buf := make([]byte, len(data))
	if _, err := io.ReadFull(f, buf); err != nil {
		t.Fatalf("ReadFull error: %v", err)
	}
	if !bytes.Equal(buf, data) {
		t.Fatal("read data does not match written data")
	}

	// seek relative to the end
	off, err := f.Seek(-500, io.SeekEnd)
	if err != nil {
		t.Fatalf("Seek error: %v", err)
	}
	if off != int64(BlockSize) {
		t.Fatalf("Seek(-500, SeekEnd) = %d, expected %d", off, BlockSize)
	}
	tail := make([]byte, 500)
	if _, err := io.ReadFull(f, tail); err != nil {
		t.Fatalf("ReadFull error: %v", err)
	}
	if !bytes.Equal(tail, data[BlockSize:]) {
		t.Fatal("tail read does not match written data")
	}

	// reading at the end returns io.EOF
	if _, err := f.Read(make([]byte, 1)); err != io.EOF {
		t.Errorf("expected io.EOF at end of file, got %v", err)
	}

	if _, err := f.Seek(-1, io.SeekStart); err == nil {
		t.Error("expected error seeking before start of file")
	}
}

func TestRemovePath(t *testing.T) {
	fs := newTestFS(t, testDeviceSize, nil)

	if err := fs.Mkdir("/d"); err != nil {
		t.Fatalf("Mkdir error: %v", err)
	}
	f, err := fs.OpenFile("/d/f", os.O_CREATE|os.O_RDWR)
	if err != nil {
		t.Fatalf("OpenFile error: %v", err)
	}
	if _, err := f.Write([]byte("contents")); err != nil {
		t.Fatalf("Write error: %v", err)
	}

	if err := fs.Remove("/d"); !errors.Is(err, ErrNotEmpty) {
		t.Fatalf("expected ErrNotEmpty, got %v", err)
	}
	if err := fs.Remove("/d/f"); err != nil {
		t.Fatalf("Remove error: %v", err)
	}
	if _, err := fs.Stat("/d/f"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := fs.Remove("/d"); err != nil {
		t.Fatalf("Remove error: %v", err)
	}
	if err := fs.Remove("/"); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName removing root, got %v", err)
	}
}
