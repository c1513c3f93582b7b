// Package chainfs implements an extent-chain filesystem: fixed-size node
// records holding inline extent arrays, chained through overflow blocks,
// over any backend.Storage block device.
package chainfs

import (
	"fmt"
	"time"

	"github.com/chainfs/go-chainfs/backend"
	"github.com/chainfs/go-chainfs/filesystem"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	// BlockSize is the fixed size in bytes of one device block
	BlockSize = 4096
	// headerScanLimit is how many leading blocks Read probes for a header
	// when the region start is not pinned
	headerScanLimit uint64 = 65536
	// minimum viable region: header, root, free, one data block
	minBlocks uint64 = 4

	rootBlock uint64 = 1
	freeBlock uint64 = 2

	// DefaultAccessTimeFlush is how stale a node's persisted access time
	// may get before a read writes it back to disk
	DefaultAccessTimeFlush = time.Hour
)

// Params controls filesystem creation.
type Params struct {
	// UUID pins the volume UUID; a random one is generated when nil
	UUID *uuid.UUID
	// Reserved is raw boot data placed before the filesystem region,
	// zero padded up to the nearest block. The core never interprets it.
	Reserved []byte
	// AccessTimeFlush overrides DefaultAccessTimeFlush; zero keeps the default
	AccessTimeFlush time.Duration
}

// FileSystem implements the filesystem.FileSystem interface over an
// extent-chain on-disk layout.
//
// The handle assumes exclusive access to the device. No operation is
// reentrant-safe; an embedder mounting this for concurrent access must
// serialize every entry point.
type FileSystem struct {
	dev        backend.Storage
	block      uint64 // region offset, in blocks, past any reserved data
	header     *header
	atimeFlush time.Duration
}

// Create formats a filesystem onto a device and returns a handle to it.
// Any reserved data in params is written in front of the filesystem
// region. ctime initializes the root and free node timestamps.
func Create(dev backend.Storage, ctime time.Time, params *Params) (*FileSystem, error) {
	if params == nil {
		params = &Params{}
	}
	size, err := dev.Size()
	if err != nil {
		return nil, fmt.Errorf("could not get device size: %w", err)
	}
	blockOffset := (uint64(len(params.Reserved)) + BlockSize - 1) / BlockSize
	if uint64(size) < (blockOffset+minBlocks)*BlockSize {
		return nil, fmt.Errorf("%w: device of %d bytes cannot hold a filesystem with %d reserved blocks", ErrNoSpace, size, blockOffset)
	}

	volID := uuid.New()
	if params.UUID != nil {
		volID = *params.UUID
	}

	fs := &FileSystem{
		dev:        dev,
		block:      blockOffset,
		atimeFlush: params.AccessTimeFlush,
	}
	if fs.atimeFlush == 0 {
		fs.atimeFlush = DefaultAccessTimeFlush
	}

	secs, nsecs := uint64(ctime.Unix()), uint32(ctime.Nanosecond())

	// the free node starts out owning everything past the fixed blocks
	free, err := newNode(ModeFile, "free", 0, secs, nsecs)
	if err != nil {
		return nil, err
	}
	free.extents[0] = extent{
		block:  minBlocks,
		length: uint64(size) - (blockOffset+minBlocks)*BlockSize,
	}
	if err := fs.writeNode(freeBlock, free); err != nil {
		return nil, fmt.Errorf("could not write free node: %w", err)
	}

	root, err := newNode(ModeDir|0o755, "root", 0, secs, nsecs)
	if err != nil {
		return nil, err
	}
	if err := fs.writeNode(rootBlock, root); err != nil {
		return nil, fmt.Errorf("could not write root node: %w", err)
	}

	fs.header = &header{
		uuid: volID.String(),
		size: uint64(size),
		root: rootBlock,
		free: freeBlock,
	}
	hb, err := fs.header.toBytes()
	if err != nil {
		return nil, err
	}
	if err := fs.writeBlocks(0, hb); err != nil {
		return nil, fmt.Errorf("could not write header: %w", err)
	}

	// zero-padded reserved prefix, one block at a time
	for blk := uint64(0); blk < blockOffset; blk++ {
		data := make([]byte, BlockSize)
		start := blk * BlockSize
		if start < uint64(len(params.Reserved)) {
			copy(data, params.Reserved[start:])
		}
		if _, err := dev.WriteAt(data, int64(start)); err != nil {
			return nil, fmt.Errorf("could not write reserved block %d: %w", blk, err)
		}
	}

	log.WithFields(log.Fields{
		"uuid":   fs.header.uuid,
		"size":   size,
		"offset": blockOffset,
	}).Debug("chainfs: created filesystem")

	return fs, nil
}

// Read opens an existing filesystem on a device, scanning the leading
// blocks for a valid header so that reserved boot data of unknown size
// may precede the region.
func Read(dev backend.Storage) (*FileSystem, error) {
	return readAt(dev, 0, headerScanLimit)
}

// ReadAt opens an existing filesystem whose region is known to start at
// the given block.
func ReadAt(dev backend.Storage, block uint64) (*FileSystem, error) {
	return readAt(dev, block, block+1)
}

func readAt(dev backend.Storage, from, to uint64) (*FileSystem, error) {
	buf := make([]byte, BlockSize)
	for block := from; block < to; block++ {
		if _, err := dev.ReadAt(buf, int64(block*BlockSize)); err != nil {
			return nil, fmt.Errorf("could not read block %d: %w", block, err)
		}
		hdr, err := headerFromBytes(buf)
		if err != nil {
			continue
		}
		log.WithFields(log.Fields{
			"uuid":  hdr.uuid,
			"block": block,
		}).Debug("chainfs: opened filesystem")
		return &FileSystem{
			dev:        dev,
			block:      block,
			header:     hdr,
			atimeFlush: DefaultAccessTimeFlush,
		}, nil
	}
	return nil, fmt.Errorf("%w: no valid filesystem header", ErrNotFound)
}

// Type returns the type code for the filesystem
func (fs *FileSystem) Type() filesystem.Type {
	return filesystem.TypeChainFS
}

// Label returns the volume UUID
func (fs *FileSystem) Label() string {
	return fs.header.uuid
}

// Size returns the total device size recorded at format time, in bytes
func (fs *FileSystem) Size() uint64 {
	return fs.header.size
}

// SetAccessTimeFlush adjusts how stale a persisted access time may get
// before ReadNode writes it back.
func (fs *FileSystem) SetAccessTimeFlush(d time.Duration) {
	fs.atimeFlush = d
}

// readBlocks reads into buf starting at a block address within the
// filesystem region.
func (fs *FileSystem) readBlocks(block uint64, buf []byte) error {
	n, err := fs.dev.ReadAt(buf, int64((fs.block+block)*BlockSize))
	if err != nil {
		return fmt.Errorf("could not read %d bytes at block %d: %w", len(buf), block, err)
	}
	if n != len(buf) {
		return fmt.Errorf("read %d bytes at block %d instead of %d", n, block, len(buf))
	}
	return nil
}

// writeBlocks writes buf starting at a block address within the
// filesystem region.
func (fs *FileSystem) writeBlocks(block uint64, buf []byte) error {
	n, err := fs.dev.WriteAt(buf, int64((fs.block+block)*BlockSize))
	if err != nil {
		return fmt.Errorf("could not write %d bytes at block %d: %w", len(buf), block, err)
	}
	if n != len(buf) {
		return fmt.Errorf("wrote %d bytes at block %d instead of %d", n, block, len(buf))
	}
	return nil
}

// readNode reads the node record stored at a block
func (fs *FileSystem) readNode(block uint64) (*node, error) {
	buf := make([]byte, BlockSize)
	if err := fs.readBlocks(block, buf); err != nil {
		return nil, err
	}
	return nodeFromBytes(buf)
}

// writeNode persists a node record to its block
func (fs *FileSystem) writeNode(block uint64, n *node) error {
	b, err := n.toBytes()
	if err != nil {
		return err
	}
	return fs.writeBlocks(block, b)
}
