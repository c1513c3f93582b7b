// Package filesystem provides the interfaces that every filesystem
// implementation in this repository satisfies.
package filesystem

import (
	"io"
	"os"
)

// FileSystem is the interface to a filesystem on a block device.
type FileSystem interface {
	// Type returns the type code of this filesystem
	Type() Type
	// Mkdir makes a directory, and any necessary parents, at the given path
	Mkdir(p string) error
	// ReadDir returns the contents of the given directory
	ReadDir(p string) ([]os.FileInfo, error)
	// OpenFile opens the file at the given path with the given os.OpenFile flags
	OpenFile(p string, flag int) (File, error)
	// Remove removes the file or empty directory at the given path
	Remove(p string) error
	// Label returns the volume label, if any
	Label() string
}

// File is a single file on a filesystem. It mirrors the parts of os.File
// that make sense for an embedded filesystem.
type File interface {
	io.ReadWriteSeeker
	io.Closer
}

// Type is the type of a filesystem
type Type int

const (
	// TypeChainFS is an extent-chain filesystem
	TypeChainFS Type = iota
)
