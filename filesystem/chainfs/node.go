package chainfs

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	// MaxNameLength is the longest name a node can carry
	MaxNameLength = 226
	// NameSeparator is reserved and may not appear in node names
	NameSeparator = ":"
	// ExtentsPerNode is the number of inline extent slots in one node record
	ExtentsPerNode = (BlockSize - nodeExtentsStart) / extentLength

	// mode bits: the type mask and the two types this core uses
	ModeType uint16 = 0xF000
	ModeFile uint16 = 0x8000
	ModeDir  uint16 = 0x4000
	ModePerm uint16 = 0x0FFF

	// offsets within the node block
	nodeModeStart      = 0x0
	nodeUIDStart       = 0x2
	nodeGIDStart       = 0x6
	nodeCtimeStart     = 0xa
	nodeCtimeNsecStart = 0x12
	nodeMtimeStart     = 0x16
	nodeMtimeNsecStart = 0x1e
	nodeAtimeStart     = 0x22
	nodeAtimeNsecStart = 0x2a
	nodeNameStart      = 0x2e
	nodeParentStart    = 0x110
	nodeNextStart      = 0x118
	nodeExtentsStart   = 0x120
)

// node is the fixed-size on-disk record for one file or directory. A
// directory node's extents enumerate child node blocks; a file node's
// extents enumerate data blocks. When the inline extent array fills up,
// next chains to an overflow node holding further extents.
//
// parent is a back-reference used for validation only; ownership always
// flows from the parent's extent list to the child block.
type node struct {
	mode      uint16
	uid       uint32
	gid       uint32
	ctime     uint64
	ctimeNsec uint32
	mtime     uint64
	mtimeNsec uint32
	atime     uint64
	atimeNsec uint32
	name      string
	parent    uint64
	next      uint64
	extents   [ExtentsPerNode]extent
}

// newNode creates a node record, validating the name length. Separator
// validation belongs to CreateNode, which rejects names before any
// allocation happens.
func newNode(mode uint16, name string, parent uint64, ctime uint64, ctimeNsec uint32) (*node, error) {
	if len(name) > MaxNameLength {
		return nil, fmt.Errorf("%w: %q is longer than %d bytes", ErrInvalidName, name, MaxNameLength)
	}
	return &node{
		mode:      mode,
		ctime:     ctime,
		ctimeNsec: ctimeNsec,
		mtime:     ctime,
		mtimeNsec: ctimeNsec,
		atime:     ctime,
		atimeNsec: ctimeNsec,
		name:      name,
		parent:    parent,
	}, nil
}

func (n *node) isDir() bool {
	return n.mode&ModeType == ModeDir
}

func (n *node) isFile() bool {
	return n.mode&ModeType == ModeFile
}

// inlineSize sums the lengths of the inline extents only; NodeLen
// follows the overflow chain as well.
func (n *node) inlineSize() uint64 {
	var size uint64
	for _, e := range n.extents {
		size += e.length
	}
	return size
}

// nodeFromBytes creates a node struct from a raw block
func nodeFromBytes(b []byte) (*node, error) {
	if len(b) != BlockSize {
		return nil, fmt.Errorf("cannot read node from %d bytes instead of expected %d", len(b), BlockSize)
	}
	n := node{
		mode:      binary.LittleEndian.Uint16(b[nodeModeStart:nodeUIDStart]),
		uid:       binary.LittleEndian.Uint32(b[nodeUIDStart:nodeGIDStart]),
		gid:       binary.LittleEndian.Uint32(b[nodeGIDStart:nodeCtimeStart]),
		ctime:     binary.LittleEndian.Uint64(b[nodeCtimeStart:nodeCtimeNsecStart]),
		ctimeNsec: binary.LittleEndian.Uint32(b[nodeCtimeNsecStart:nodeMtimeStart]),
		mtime:     binary.LittleEndian.Uint64(b[nodeMtimeStart:nodeMtimeNsecStart]),
		mtimeNsec: binary.LittleEndian.Uint32(b[nodeMtimeNsecStart:nodeAtimeStart]),
		atime:     binary.LittleEndian.Uint64(b[nodeAtimeStart:nodeAtimeNsecStart]),
		atimeNsec: binary.LittleEndian.Uint32(b[nodeAtimeNsecStart:nodeNameStart]),
		parent:    binary.LittleEndian.Uint64(b[nodeParentStart:nodeNextStart]),
		next:      binary.LittleEndian.Uint64(b[nodeNextStart:nodeExtentsStart]),
	}
	name := b[nodeNameStart:nodeParentStart]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	n.name = string(name)
	for i := 0; i < ExtentsPerNode; i++ {
		start := nodeExtentsStart + i*extentLength
		n.extents[i] = extentFromBytes(b[start : start+extentLength])
	}
	return &n, nil
}

// toBytes returns a node block ready to be written to disk
func (n *node) toBytes() ([]byte, error) {
	if len(n.name) > MaxNameLength {
		return nil, fmt.Errorf("%w: %q is longer than %d bytes", ErrInvalidName, n.name, MaxNameLength)
	}
	b := make([]byte, BlockSize)
	binary.LittleEndian.PutUint16(b[nodeModeStart:nodeUIDStart], n.mode)
	binary.LittleEndian.PutUint32(b[nodeUIDStart:nodeGIDStart], n.uid)
	binary.LittleEndian.PutUint32(b[nodeGIDStart:nodeCtimeStart], n.gid)
	binary.LittleEndian.PutUint64(b[nodeCtimeStart:nodeCtimeNsecStart], n.ctime)
	binary.LittleEndian.PutUint32(b[nodeCtimeNsecStart:nodeMtimeStart], n.ctimeNsec)
	binary.LittleEndian.PutUint64(b[nodeMtimeStart:nodeMtimeNsecStart], n.mtime)
	binary.LittleEndian.PutUint32(b[nodeMtimeNsecStart:nodeAtimeStart], n.mtimeNsec)
	binary.LittleEndian.PutUint64(b[nodeAtimeStart:nodeAtimeNsecStart], n.atime)
	binary.LittleEndian.PutUint32(b[nodeAtimeNsecStart:nodeNameStart], n.atimeNsec)
	copy(b[nodeNameStart:nodeParentStart], n.name)
	binary.LittleEndian.PutUint64(b[nodeParentStart:nodeNextStart], n.parent)
	binary.LittleEndian.PutUint64(b[nodeNextStart:nodeExtentsStart], n.next)
	for i := 0; i < ExtentsPerNode; i++ {
		start := nodeExtentsStart + i*extentLength
		n.extents[i].toBytes(b[start : start+extentLength])
	}
	return b, nil
}
