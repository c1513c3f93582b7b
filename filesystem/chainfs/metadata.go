package chainfs

import (
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// FindNode looks up a child by name under the node at parentBlock,
// following the parent's overflow chain. Only blocks fully covered by an
// extent hold child records; a trailing partial block never does.
func (fs *FileSystem) FindNode(name string, parentBlock uint64) (uint64, *node, error) {
	if parentBlock == 0 {
		return 0, nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	parent, err := fs.readNode(parentBlock)
	if err != nil {
		return 0, nil, err
	}
	for _, e := range parent.extents {
		for i := uint64(0); i < e.blockCount(); i++ {
			if e.coverage(i) < BlockSize {
				continue
			}
			childBlock := e.block + i
			child, err := fs.readNode(childBlock)
			if err != nil {
				return 0, nil, err
			}
			if child.name == name {
				return childBlock, child, nil
			}
		}
	}

	return fs.FindNode(name, parent.next)
}

// childNodes collects every child record under the node at parentBlock,
// across the whole overflow chain.
func (fs *FileSystem) childNodes(parentBlock uint64) ([]uint64, []*node, error) {
	var (
		blocks []uint64
		nodes  []*node
	)
	for parentBlock != 0 {
		parent, err := fs.readNode(parentBlock)
		if err != nil {
			return nil, nil, err
		}
		for _, e := range parent.extents {
			for i := uint64(0); i < e.blockCount(); i++ {
				if e.coverage(i) < BlockSize {
					continue
				}
				child, err := fs.readNode(e.block + i)
				if err != nil {
					return nil, nil, err
				}
				blocks = append(blocks, e.block+i)
				nodes = append(nodes, child)
			}
		}
		parentBlock = parent.next
	}
	return blocks, nodes, nil
}

// CreateNode makes a new file or directory node named name under the
// node at parentBlock and links it into the parent's extent list.
func (fs *FileSystem) CreateNode(mode uint16, name string, parentBlock uint64, ctime time.Time) (uint64, *node, error) {
	if strings.Contains(name, NameSeparator) {
		return 0, nil, fmt.Errorf("%w: %q contains reserved separator %q", ErrInvalidName, name, NameSeparator)
	}
	if _, _, err := fs.FindNode(name, parentBlock); err == nil {
		return 0, nil, fmt.Errorf("%w: %q", ErrExists, name)
	}

	n, err := newNode(mode, name, parentBlock, uint64(ctime.Unix()), uint32(ctime.Nanosecond()))
	if err != nil {
		return 0, nil, err
	}
	block, err := fs.Allocate(1)
	if err != nil {
		return 0, nil, err
	}
	if err := fs.writeNode(block, n); err != nil {
		return 0, nil, err
	}
	if err := fs.insertBlocks(block, BlockSize, parentBlock); err != nil {
		return 0, nil, err
	}

	log.WithFields(log.Fields{
		"name":   name,
		"block":  block,
		"parent": parentBlock,
	}).Debug("chainfs: created node")

	return block, n, nil
}

// RemoveNode deletes the child named name under the node at parentBlock.
// mode must match the node's type: removing a directory with a file mode
// fails with ErrIsDirectory and the reverse with ErrNotDirectory. A
// directory must be empty.
func (fs *FileSystem) RemoveNode(mode uint16, name string, parentBlock uint64) error {
	block, n, err := fs.FindNode(name, parentBlock)
	if err != nil {
		return err
	}
	if n.mode&ModeType != mode&ModeType {
		if n.isDir() {
			return fmt.Errorf("%w: %q", ErrIsDirectory, name)
		}
		return fmt.Errorf("%w: %q", ErrNotDirectory, name)
	}
	if n.isDir() {
		childBlocks, _, err := fs.childNodes(block)
		if err != nil {
			return err
		}
		if len(childBlocks) > 0 {
			return fmt.Errorf("%w: %q", ErrNotEmpty, name)
		}
	}

	// release data extents, unlink from the parent, wipe, free the block
	if err := fs.NodeSetLen(block, 0); err != nil {
		return err
	}
	if err := fs.removeBlocks(block, 1, parentBlock); err != nil {
		return err
	}
	if err := fs.writeNode(block, &node{}); err != nil {
		return err
	}
	if err := fs.Deallocate(block, BlockSize); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"name":   name,
		"block":  block,
		"parent": parentBlock,
	}).Debug("chainfs: removed node")

	return nil
}
