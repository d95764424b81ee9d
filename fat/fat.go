// Package fat implements the allocation table of a chainfs volume: one
// 16-bit link per data block, chaining the blocks of each file together.
//
// Entry 0 is reserved and always holds EndOfChain, so a link value of 0 can
// only ever mean "free". Every traversal checks that it stays inside the
// table and stops after Len steps, so a corrupt or cyclic table yields
// chainfs.ErrCorruptVolume instead of a hang.
package fat

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/keks/chainfs"
)

// Index is the number of a data block, relative to the start of the data
// region, or one of the Free and EndOfChain link values.
type Index uint16

const (
	// Free marks an unused block.
	Free Index = 0

	// EndOfChain marks the last block of a chain. As a chain head it means
	// the file is empty.
	EndOfChain Index = 0xFFFF
)

// Table is the in-memory allocation table.
type Table struct {
	entries []Index

	// rest holds the bytes of the last table block that follow the final
	// entry; they are written back untouched.
	rest []byte
}

// New returns an empty table for dataBlocks data blocks whose encoded form
// spans fatBlocks blocks. A region can be larger than the entries need; the
// slack is encoded as zeros. Too small a fatBlocks is raised to the minimum.
func New(dataBlocks, fatBlocks int) *Table {
	t := &Table{entries: make([]Index, dataBlocks)}
	t.entries[0] = EndOfChain
	if slack := fatBlocks*chainfs.BlockSize - 2*dataBlocks; slack > 0 {
		t.rest = make([]byte, slack)
	}
	return t
}

// Decode parses an allocation table region read from disk. The region must
// span whole blocks and hold at least dataBlocks entries.
func Decode(region []byte, dataBlocks int) (*Table, error) {
	if len(region)%chainfs.BlockSize != 0 {
		return nil, fmt.Errorf("allocation table region is %d bytes, not whole blocks: %w",
			len(region), chainfs.ErrInvalidArgument)
	}
	if dataBlocks < 1 || 2*dataBlocks > len(region) {
		return nil, fmt.Errorf("allocation table region of %d bytes cannot hold %d entries: %w",
			len(region), dataBlocks, chainfs.ErrCorruptVolume)
	}

	entries := make([]Index, dataBlocks)
	if err := binary.Read(bytes.NewReader(region), binary.LittleEndian, entries); err != nil {
		return nil, fmt.Errorf("decoding allocation table: %w", err)
	}

	if entries[0] != EndOfChain {
		return nil, fmt.Errorf("reserved allocation table entry is %#04x: %w", uint16(entries[0]), chainfs.ErrCorruptVolume)
	}

	return &Table{
		entries: entries,
		rest:    bytes.Clone(region[2*dataBlocks:]),
	}, nil
}

// Encode returns the on-disk form of the table, padded to whole blocks.
func (t *Table) Encode() []byte {
	var buf bytes.Buffer
	buf.Grow(2*len(t.entries) + len(t.rest))

	// writing fixed-size values to a bytes.Buffer cannot fail
	_ = binary.Write(&buf, binary.LittleEndian, t.entries)
	buf.Write(t.rest)

	if pad := buf.Len() % chainfs.BlockSize; pad != 0 {
		buf.Write(make([]byte, chainfs.BlockSize-pad))
	}

	return buf.Bytes()
}

// Len returns the number of entries, which is the number of data blocks.
func (t *Table) Len() int {
	return len(t.entries)
}

// Valid reports whether i names a data block that can be part of a chain.
func (t *Table) Valid(i Index) bool {
	return i != Free && int(i) < len(t.entries)
}

// Link returns the raw entry of block i.
func (t *Table) Link(i Index) Index {
	return t.entries[i]
}

// FreeCount returns the number of free blocks.
func (t *Table) FreeCount() int {
	n := 0
	for _, e := range t.entries[1:] {
		if e == Free {
			n++
		}
	}
	return n
}

// UsedCount returns the number of blocks in use, not counting the reserved
// entry.
func (t *Table) UsedCount() int {
	return len(t.entries) - 1 - t.FreeCount()
}
