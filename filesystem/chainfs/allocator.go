package chainfs

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Allocate reserves length blocks of contiguous space and returns the
// address of the first one. It scans the free-list node's inline extents
// first-fit and shrinks the chosen extent from its front.
//
// TODO: traverse the free node's next pointer. Free space that
// insertBlocks parked in an overflow node is invisible here, so Allocate
// can report ErrNoSpace while the free chain still holds room. Preserved
// as-is because fixing it changes allocation order on existing images.
func (fs *FileSystem) Allocate(length uint64) (uint64, error) {
	freeNodeBlock := fs.header.free
	free, err := fs.readNode(freeNodeBlock)
	if err != nil {
		return 0, fmt.Errorf("could not read free node: %w", err)
	}

	var (
		block uint64
		found bool
	)
	for i := range free.extents {
		if free.extents[i].length/BlockSize >= length {
			block = free.extents[i].block
			free.extents[i].length -= length * BlockSize
			free.extents[i].block += length
			found = true
			break
		}
	}
	if !found {
		return 0, fmt.Errorf("%w: no free extent of %d blocks", ErrNoSpace, length)
	}
	if err := fs.writeNode(freeNodeBlock, free); err != nil {
		return 0, fmt.Errorf("could not persist free node: %w", err)
	}
	log.WithFields(log.Fields{"block": block, "length": length}).Trace("chainfs: allocate")
	return block, nil
}

// Deallocate returns length bytes starting at block to the free list,
// coalescing with adjacent free extents where possible.
func (fs *FileSystem) Deallocate(block, length uint64) error {
	log.WithFields(log.Fields{"block": block, "length": length}).Trace("chainfs: deallocate")
	return fs.insertBlocks(block, length, fs.header.free)
}

// insertBlocks records the range [block, block+length bytes) in the
// extent list of the node at parentBlock. In priority order it fills an
// empty slot, merges with an extent that immediately follows the range
// (coalesce-left), or grows an extent that immediately precedes it
// (coalesce-right). When the inline array has no room it extends the
// chain by one zeroed overflow node and recurses.
func (fs *FileSystem) insertBlocks(block, length, parentBlock uint64) error {
	if parentBlock == 0 {
		return fmt.Errorf("%w: extent chain exhausted", ErrNoSpace)
	}

	parent, err := fs.readNode(parentBlock)
	if err != nil {
		return err
	}

	inserted := false
	for i := range parent.extents {
		e := &parent.extents[i]
		switch {
		case e.length == 0:
			// new extent
			inserted = true
			e.block = block
			e.length = length
		case length%BlockSize == 0 && e.block == block+length/BlockSize:
			// at beginning
			inserted = true
			e.block = block
			e.length += length
		case e.length%BlockSize == 0 && e.block+e.length/BlockSize == block:
			// at end
			inserted = true
			e.length += length
		default:
			continue
		}
		break
	}

	if inserted {
		return fs.writeNode(parentBlock, parent)
	}

	if parent.next == 0 {
		next, err := fs.Allocate(1)
		if err != nil {
			return err
		}
		// the allocation may have rewritten this very node on disk
		if parentBlock == fs.header.free {
			if parent, err = fs.readNode(parentBlock); err != nil {
				return err
			}
		}
		parent.next = next
		if err := fs.writeNode(parentBlock, parent); err != nil {
			return err
		}
		if err := fs.writeNode(parent.next, &node{}); err != nil {
			return err
		}
	}

	return fs.insertBlocks(block, length, parent.next)
}

// removeBlocks takes the range [block, block+length blocks) out of the
// extent list of the node at parentBlock. The containing extent is split
// into a left remainder kept in place and a right remainder reinserted
// into the same chain.
func (fs *FileSystem) removeBlocks(block, length, parentBlock uint64) error {
	if parentBlock == 0 {
		return fmt.Errorf("%w: block %d not in extent chain", ErrNotFound, block)
	}

	parent, err := fs.readNode(parentBlock)
	if err != nil {
		return err
	}

	removed := false
	var replace *extent
	for i := range parent.extents {
		e := &parent.extents[i]
		if block >= e.block && block+length <= e.block+e.length/BlockSize {
			removed = true

			left := extent{block: e.block, length: (block - e.block) * BlockSize}
			right := extent{
				block:  block + length,
				length: ((e.block + e.length/BlockSize) - (block + length)) * BlockSize,
			}

			switch {
			case left.length > 0:
				*e = left
				if right.length > 0 {
					r := right
					replace = &r
				}
			case right.length > 0:
				*e = right
			default:
				*e = extent{}
			}
			break
		}
	}

	if !removed {
		return fs.removeBlocks(block, length, parent.next)
	}

	if err := fs.writeNode(parentBlock, parent); err != nil {
		return err
	}
	if replace != nil {
		return fs.insertBlocks(replace.block, replace.length, parentBlock)
	}
	return nil
}

// FreeSpace returns the total number of free bytes recorded in the free
// list, across its whole overflow chain.
func (fs *FileSystem) FreeSpace() (uint64, error) {
	return fs.NodeLen(fs.header.free)
}
