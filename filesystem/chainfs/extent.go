package chainfs

import "encoding/binary"

const extentLength = 16

// extent is a contiguous run of blocks, recorded as a starting block
// address and a byte length. The zero value is a hole (an unused slot).
//
// For free-list extents the length is always a multiple of BlockSize.
// For a live node every extent except the logically last one is
// block-aligned in length; the last one may end mid-block at the logical
// end of file.
type extent struct {
	block  uint64
	length uint64
}

func extentFromBytes(b []byte) extent {
	return extent{
		block:  binary.LittleEndian.Uint64(b[0:8]),
		length: binary.LittleEndian.Uint64(b[8:16]),
	}
}

func (e extent) toBytes(b []byte) {
	binary.LittleEndian.PutUint64(b[0:8], e.block)
	binary.LittleEndian.PutUint64(b[8:16], e.length)
}

// blockCount returns how many blocks the extent covers, counting a
// trailing partial block as one.
func (e extent) blockCount() uint64 {
	return (e.length + BlockSize - 1) / BlockSize
}

// coverage returns how many of the extent's bytes fall in block i:
// BlockSize for every block except a short final one.
func (e extent) coverage(i uint64) uint64 {
	remaining := e.length - i*BlockSize
	if remaining > BlockSize {
		return BlockSize
	}
	return remaining
}
