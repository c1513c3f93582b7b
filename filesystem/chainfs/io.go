package chainfs

import (
	"fmt"
	"time"
)

// nodeExtents resolves a byte range of the node at block into a flat
// list of device extents: skip startBlock whole blocks into the chain,
// then cover up to byteCount bytes. Contiguous runs within one source
// extent come back as a single output extent.
func (fs *FileSystem) nodeExtents(block, startBlock uint64, byteCount int, out []extent) ([]extent, error) {
	if block == 0 {
		return out, nil
	}

	n, err := fs.readNode(block)
	if err != nil {
		return nil, err
	}
	for _, e := range n.extents {
		var push extent
		for i := uint64(0); i < e.blockCount(); i++ {
			if startBlock > 0 {
				startBlock--
				continue
			}
			size := e.coverage(i)
			if push.block == 0 {
				push.block = e.block + i
			}
			if uint64(byteCount) >= size {
				push.length += size
				byteCount -= int(size)
			} else if byteCount > 0 {
				push.length += uint64(byteCount)
				byteCount = 0
				break
			} else {
				break
			}
		}
		if push.length > 0 {
			out = append(out, push)
		}
		if byteCount == 0 {
			break
		}
	}

	if byteCount > 0 {
		return fs.nodeExtents(n.next, startBlock, byteCount, out)
	}
	return out, nil
}

// checkSplice is the per-extent integrity assertion: after an extent has
// been spliced, every one of its bytes must have been consumed and the
// cursor must sit exactly past its last block. A mismatch means the
// extent chain is corrupt, which is not a recoverable condition.
func checkSplice(e extent, remaining uint64, cursor uint64) {
	if remaining != 0 || cursor != e.block+e.blockCount() {
		panic(fmt.Sprintf("chainfs: extent bookkeeping mismatch: extent {%d %d}, %d bytes unconsumed, cursor %d",
			e.block, e.length, remaining, cursor))
	}
}

// ReadNode reads len(buf) bytes of the node at block starting at byte
// offset, returning how many bytes were read. Partial leading and
// trailing sectors go through a scratch block; the block-aligned middle
// of each extent transfers directly into buf.
func (fs *FileSystem) ReadNode(block, offset uint64, buf []byte) (int, error) {
	atime := time.Now()
	blockOffset := offset / BlockSize
	byteOffset := int(offset % BlockSize)

	extents, err := fs.nodeExtents(block, blockOffset, byteOffset+len(buf), nil)
	if err != nil {
		return 0, err
	}

	i := 0
	for _, e := range extents {
		blk := e.block
		length := e.length

		if byteOffset > 0 && length > 0 {
			sector := make([]byte, BlockSize)
			if err := fs.readBlocks(blk, sector); err != nil {
				return i, err
			}
			sectorSize := int(minU64(BlockSize, length))
			if sectorSize > byteOffset {
				i += copy(buf[i:], sector[byteOffset:sectorSize])
			}
			blk++
			length -= uint64(sectorSize)
			byteOffset = 0
		}

		lengthAligned := int(minU64(length, uint64(len(buf)-i)) / BlockSize * BlockSize)
		if lengthAligned > 0 {
			if err := fs.readBlocks(blk, buf[i:i+lengthAligned]); err != nil {
				return i, err
			}
			i += lengthAligned
			blk += uint64(lengthAligned) / BlockSize
			length -= uint64(lengthAligned)
		}

		if length > 0 {
			sector := make([]byte, BlockSize)
			if err := fs.readBlocks(blk, sector); err != nil {
				return i, err
			}
			sectorSize := int(minU64(BlockSize, length))
			i += copy(buf[i:], sector[:sectorSize])
			blk++
			length -= uint64(sectorSize)
		}

		checkSplice(e, length, blk)
	}

	if i > 0 {
		if err := fs.touchAccessTime(block, atime); err != nil {
			return i, err
		}
	}

	return i, nil
}

// touchAccessTime refreshes the node's access time, persisting it only
// when the stored one is staler than the flush threshold. Skipping the
// write keeps a read-heavy workload from rewriting metadata blocks on
// every read.
func (fs *FileSystem) touchAccessTime(block uint64, atime time.Time) error {
	secs, nsecs := uint64(atime.Unix()), uint32(atime.Nanosecond())
	n, err := fs.readNode(block)
	if err != nil {
		return err
	}
	if secs > n.atime || (secs == n.atime && nsecs > n.atimeNsec) {
		stale := time.Duration(secs-n.atime) * time.Second
		n.atime = secs
		n.atimeNsec = nsecs
		if stale > fs.atimeFlush {
			return fs.writeNode(block, n)
		}
	}
	return nil
}

// WriteNode writes buf into the node at block starting at byte offset,
// growing the node's extent chain first so that the whole range is
// backed, then splicing: read-modify-write for partial leading and
// trailing sectors, direct bulk writes for the aligned middle.
func (fs *FileSystem) WriteNode(block, offset uint64, buf []byte, mtime time.Time) (int, error) {
	blockOffset := offset / BlockSize
	byteOffset := int(offset % BlockSize)

	if err := fs.nodeEnsureLen(block, blockOffset*BlockSize+uint64(byteOffset+len(buf))); err != nil {
		return 0, err
	}

	extents, err := fs.nodeExtents(block, blockOffset, byteOffset+len(buf), nil)
	if err != nil {
		return 0, err
	}

	i := 0
	for _, e := range extents {
		blk := e.block
		length := e.length

		if byteOffset > 0 && length > 0 {
			sector := make([]byte, BlockSize)
			if err := fs.readBlocks(blk, sector); err != nil {
				return i, err
			}
			sectorSize := int(minU64(BlockSize, length))
			if sectorSize > byteOffset {
				i += copy(sector[byteOffset:sectorSize], buf[i:])
			}
			if err := fs.writeBlocks(blk, sector); err != nil {
				return i, err
			}
			blk++
			length -= uint64(sectorSize)
			byteOffset = 0
		}

		lengthAligned := int(minU64(length, uint64(len(buf)-i)) / BlockSize * BlockSize)
		if lengthAligned > 0 {
			if err := fs.writeBlocks(blk, buf[i:i+lengthAligned]); err != nil {
				return i, err
			}
			i += lengthAligned
			blk += uint64(lengthAligned) / BlockSize
			length -= uint64(lengthAligned)
		}

		if length > 0 {
			sector := make([]byte, BlockSize)
			if err := fs.readBlocks(blk, sector); err != nil {
				return i, err
			}
			sectorSize := int(minU64(BlockSize, length))
			i += copy(sector[:sectorSize], buf[i:])
			if err := fs.writeBlocks(blk, sector); err != nil {
				return i, err
			}
			blk++
			length -= uint64(sectorSize)
		}

		checkSplice(e, length, blk)
	}

	if i > 0 {
		secs, nsecs := uint64(mtime.Unix()), uint32(mtime.Nanosecond())
		n, err := fs.readNode(block)
		if err != nil {
			return i, err
		}
		if secs > n.mtime || (secs == n.mtime && nsecs > n.mtimeNsec) {
			n.mtime = secs
			n.mtimeNsec = nsecs
			if err := fs.writeNode(block, n); err != nil {
				return i, err
			}
		}
	}

	return i, nil
}

func minU64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
