package chainfs

import "fmt"

// nodeEnsureLen grows the extent chain of the node at block until it
// backs at least length bytes. Existing extents are extended up to their
// allocated capacity (length rounded up to a whole block) before any new
// blocks are allocated.
func (fs *FileSystem) nodeEnsureLen(block, length uint64) error {
	if block == 0 {
		return fmt.Errorf("%w: no such node", ErrNotFound)
	}

	changed := false

	n, err := fs.readNode(block)
	if err != nil {
		return err
	}
	for i := range n.extents {
		e := &n.extents[i]
		if e.length >= length {
			length = 0
			break
		}
		allocated := (e.length + BlockSize - 1) / BlockSize * BlockSize
		if allocated >= length {
			e.length = length
			length = 0
			changed = true
			break
		}
		if e.length != allocated {
			e.length = allocated
			changed = true
		}
		length -= allocated
	}

	if changed {
		if err := fs.writeNode(block, n); err != nil {
			return err
		}
	}

	if length == 0 {
		return nil
	}
	if n.next > 0 {
		return fs.nodeEnsureLen(n.next, length)
	}
	newBlock, err := fs.Allocate((length + BlockSize - 1) / BlockSize)
	if err != nil {
		return err
	}
	return fs.insertBlocks(newBlock, length, block)
}

// NodeSetLen truncates or zero-extends the node at block to exactly
// length logical bytes, returning any whole trailing blocks to the
// allocator.
func (fs *FileSystem) NodeSetLen(block, length uint64) error {
	if block == 0 {
		return fmt.Errorf("%w: no such node", ErrNotFound)
	}

	changed := false

	n, err := fs.readNode(block)
	if err != nil {
		return err
	}
	for i := range n.extents {
		e := &n.extents[i]
		if e.length > length {
			start := (length + BlockSize - 1) / BlockSize
			end := (e.length + BlockSize - 1) / BlockSize
			if end > start {
				if err := fs.Deallocate(e.block+start, (end-start)*BlockSize); err != nil {
					return err
				}
			}
			e.length = length
			changed = true
			length = 0
		} else {
			length -= e.length
		}
	}

	if changed {
		if err := fs.writeNode(block, n); err != nil {
			return err
		}
	}

	if n.next > 0 {
		return fs.NodeSetLen(n.next, length)
	}
	return nil
}

// NodeLen returns the logical length in bytes of the node at block,
// summing extent lengths across the whole overflow chain.
func (fs *FileSystem) NodeLen(block uint64) (uint64, error) {
	if block == 0 {
		return 0, fmt.Errorf("%w: no such node", ErrNotFound)
	}

	n, err := fs.readNode(block)
	if err != nil {
		return 0, err
	}
	size := n.inlineSize()

	if n.next > 0 {
		rest, err := fs.NodeLen(n.next)
		if err != nil {
			return 0, err
		}
		size += rest
	}
	return size, nil
}
