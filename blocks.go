package chainfs // import "github.com/keks/chainfs"

import (
	"io"
)

// Basic Types

// ReadWriterAt is both a ReaderAt and a WriterAt.
type ReadWriterAt interface {
	io.ReaderAt
	io.WriterAt
}

// Block Layer

// BlockSize is the size of every block on a volume, in bytes.
const BlockSize = 4096

// BlockDevice is a fixed-size array of BlockSize blocks. Transfers are always
// exactly one block.
type BlockDevice interface {
	BlockCount() int
	ReadBlock(idx int, buf []byte) error
	WriteBlock(idx int, buf []byte) error
	Close() error
}

// OpenFunc opens the block device called name.
type OpenFunc func(name string) (BlockDevice, error)

// Volume Layout

// Signature is the magic value at the start of the superblock ("ECS150FS").
const Signature uint64 = 0x5346303531534345

const (
	// MaxFiles is the number of slots in the directory table.
	MaxFiles = 128

	// MaxOpenFiles is the number of descriptors that can be open at once.
	MaxOpenFiles = 32

	// MaxFileNameLen is the longest file name in bytes. The on-disk field
	// is one byte longer to hold the terminator.
	MaxFileNameLen = 15
)
