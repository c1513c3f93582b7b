package chainfs

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/chainfs/go-chainfs/filesystem"
)

// resolvePath walks from the root directory to the node at the
// '/'-separated path p, returning its block and record.
func (fs *FileSystem) resolvePath(p string) (uint64, *node, error) {
	block := fs.header.root
	n, err := fs.readNode(block)
	if err != nil {
		return 0, nil, err
	}
	for _, part := range strings.Split(p, "/") {
		if part == "" || part == "." {
			continue
		}
		if !n.isDir() {
			return 0, nil, fmt.Errorf("%w: %q", ErrNotDirectory, part)
		}
		block, n, err = fs.FindNode(part, block)
		if err != nil {
			return 0, nil, err
		}
	}
	return block, n, nil
}

// Mkdir makes a directory at the given path, along with any missing
// parents. It is idempotent: an existing directory is not an error.
func (fs *FileSystem) Mkdir(p string) error {
	block := fs.header.root
	for _, part := range strings.Split(p, "/") {
		if part == "" || part == "." {
			continue
		}
		childBlock, child, err := fs.FindNode(part, block)
		switch {
		case err == nil:
			if !child.isDir() {
				return fmt.Errorf("%w: %q", ErrNotDirectory, part)
			}
			block = childBlock
		case errors.Is(err, ErrNotFound):
			childBlock, _, err = fs.CreateNode(ModeDir|0o755, part, block, time.Now())
			if err != nil {
				return fmt.Errorf("could not create directory %q: %w", part, err)
			}
			block = childBlock
		default:
			return err
		}
	}
	return nil
}

// ReadDir returns the contents of the directory at the given path.
func (fs *FileSystem) ReadDir(p string) ([]os.FileInfo, error) {
	block, n, err := fs.resolvePath(p)
	if err != nil {
		return nil, fmt.Errorf("error reading directory %s: %w", p, err)
	}
	if !n.isDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, p)
	}
	childBlocks, children, err := fs.childNodes(block)
	if err != nil {
		return nil, err
	}
	ret := make([]os.FileInfo, 0, len(children))
	for i, child := range children {
		size, err := fs.NodeLen(childBlocks[i])
		if err != nil {
			return nil, err
		}
		ret = append(ret, FileInfo{
			name:    child.name,
			size:    int64(size),
			mode:    toFileMode(child.mode),
			modTime: time.Unix(int64(child.mtime), int64(child.mtimeNsec)),
			isDir:   child.isDir(),
		})
	}
	return ret, nil
}

// Stat returns information about the node at the given path.
func (fs *FileSystem) Stat(p string) (os.FileInfo, error) {
	block, n, err := fs.resolvePath(p)
	if err != nil {
		return nil, err
	}
	size, err := fs.NodeLen(block)
	if err != nil {
		return nil, err
	}
	name := n.name
	if block == fs.header.root {
		name = "/"
	}
	return FileInfo{
		name:    name,
		size:    int64(size),
		mode:    toFileMode(n.mode),
		modTime: time.Unix(int64(n.mtime), int64(n.mtimeNsec)),
		isDir:   n.isDir(),
	}, nil
}

// OpenFile opens the file at the given path for reading and writing,
// honoring os.O_CREATE, os.O_TRUNC, os.O_APPEND and os.O_RDWR /
// os.O_WRONLY.
func (fs *FileSystem) OpenFile(p string, flag int) (filesystem.File, error) {
	dir := path.Dir(p)
	filename := path.Base(p)
	if filename == "/" || filename == "." {
		return nil, fmt.Errorf("%w: cannot open %q as file", ErrIsDirectory, p)
	}

	parentBlock, parent, err := fs.resolvePath(dir)
	if err != nil {
		return nil, fmt.Errorf("could not read directory %s: %w", dir, err)
	}
	if !parent.isDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, dir)
	}

	block, n, err := fs.FindNode(filename, parentBlock)
	switch {
	case err == nil:
		if n.isDir() {
			return nil, fmt.Errorf("%w: cannot open %q as file", ErrIsDirectory, p)
		}
		if flag&os.O_TRUNC != 0 {
			if err := fs.NodeSetLen(block, 0); err != nil {
				return nil, err
			}
		}
	case errors.Is(err, ErrNotFound):
		if flag&os.O_CREATE == 0 {
			return nil, fmt.Errorf("target file %s does not exist and os.O_CREATE not given: %w", p, err)
		}
		block, _, err = fs.CreateNode(ModeFile|0o644, filename, parentBlock, time.Now())
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("could not look up %s: %w", p, err)
	}

	f := &File{
		fs:          fs,
		block:       block,
		isReadWrite: flag&(os.O_RDWR|os.O_WRONLY) != 0,
	}
	if flag&os.O_APPEND != 0 {
		size, err := fs.NodeLen(block)
		if err != nil {
			return nil, err
		}
		f.offset = int64(size)
	}
	return f, nil
}

// Remove deletes the file or empty directory at the given path.
func (fs *FileSystem) Remove(p string) error {
	dir := path.Dir(p)
	filename := path.Base(p)
	if filename == "/" || filename == "." {
		return fmt.Errorf("%w: cannot remove root", ErrInvalidName)
	}
	parentBlock, _, err := fs.resolvePath(dir)
	if err != nil {
		return err
	}
	_, n, err := fs.FindNode(filename, parentBlock)
	if err != nil {
		return err
	}
	return fs.RemoveNode(n.mode, filename, parentBlock)
}

// toFileMode converts on-disk mode bits to an os.FileMode
func toFileMode(mode uint16) os.FileMode {
	fm := os.FileMode(mode & ModePerm)
	if mode&ModeType == ModeDir {
		fm |= os.ModeDir
	}
	return fm
}
