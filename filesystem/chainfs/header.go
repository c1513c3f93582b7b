package chainfs

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
)

const (
	headerVersion uint64 = 1
	// offsets within the header block
	headerSignatureStart = 0x0
	headerVersionStart   = 0x8
	headerUUIDStart      = 0x10
	headerSizeStart      = 0x20
	headerRootStart      = 0x28
	headerFreeStart      = 0x30
	headerEnd            = 0x38
)

// headerSignature marks a formatted filesystem region
var headerSignature = []byte("ChainFS\x00")

// header is the one fixed-block record describing the filesystem: the
// total device size, and the block addresses of the root directory node
// and the free-list node. Written once at format time.
type header struct {
	uuid string
	size uint64
	root uint64
	free uint64
}

// headerFromBytes creates a header struct from a raw block, validating
// signature and version.
func headerFromBytes(b []byte) (*header, error) {
	if len(b) != BlockSize {
		return nil, fmt.Errorf("cannot read header from %d bytes instead of expected %d", len(b), BlockSize)
	}
	if !bytes.Equal(b[headerSignatureStart:headerVersionStart], headerSignature) {
		return nil, fmt.Errorf("invalid header signature %x", b[headerSignatureStart:headerVersionStart])
	}
	if version := binary.LittleEndian.Uint64(b[headerVersionStart:headerUUIDStart]); version != headerVersion {
		return nil, fmt.Errorf("unsupported header version %d, expected %d", version, headerVersion)
	}
	volID, err := uuid.FromBytes(b[headerUUIDStart : headerUUIDStart+16])
	if err != nil {
		return nil, fmt.Errorf("unable to read volume UUID: %w", err)
	}
	return &header{
		uuid: volID.String(),
		size: binary.LittleEndian.Uint64(b[headerSizeStart:headerRootStart]),
		root: binary.LittleEndian.Uint64(b[headerRootStart:headerFreeStart]),
		free: binary.LittleEndian.Uint64(b[headerFreeStart:headerEnd]),
	}, nil
}

// toBytes returns a header block ready to be written to disk
func (h *header) toBytes() ([]byte, error) {
	b := make([]byte, BlockSize)
	copy(b[headerSignatureStart:headerVersionStart], headerSignature)
	binary.LittleEndian.PutUint64(b[headerVersionStart:headerUUIDStart], headerVersion)
	volID, err := uuid.Parse(h.uuid)
	if err != nil {
		return nil, fmt.Errorf("invalid volume UUID %q: %w", h.uuid, err)
	}
	copy(b[headerUUIDStart:headerUUIDStart+16], volID[:])
	binary.LittleEndian.PutUint64(b[headerSizeStart:headerRootStart], h.size)
	binary.LittleEndian.PutUint64(b[headerRootStart:headerFreeStart], h.root)
	binary.LittleEndian.PutUint64(b[headerFreeStart:headerEnd], h.free)
	return b, nil
}
