// Package dirtab implements the directory table of a chainfs volume: a
// single block of fixed-size records mapping file names to their size and
// the head of their block chain.
package dirtab

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/keks/chainfs"
	"github.com/keks/chainfs/fat"
)

// nameFieldSize is the size of the on-disk name field, including the
// terminating null byte.
const nameFieldSize = chainfs.MaxFileNameLen + 1

// Entry is one slot of the directory table. A slot with an empty name is
// unused.
type Entry struct {
	Name  chainfs.FileName
	Size  uint32
	First fat.Index
}

// InUse reports whether the slot holds a file.
func (e Entry) InUse() bool {
	return e.Name != ""
}

// Blocks returns the number of data blocks a file of this size occupies.
func (e Entry) Blocks() int {
	return int((int64(e.Size) + chainfs.BlockSize - 1) / chainfs.BlockSize)
}

type rawEntry struct {
	Name    [nameFieldSize]byte
	Size    uint32
	First   uint16
	Padding [10]byte
}

// Table is the in-memory directory table.
type Table struct {
	slots [chainfs.MaxFiles]Entry
}

// New returns a table with every slot empty.
func New() *Table {
	t := &Table{}
	for i := range t.slots {
		t.slots[i].First = fat.EndOfChain
	}
	return t
}

// Decode parses a directory block. Names must be null terminated and
// unique among the used slots.
func Decode(block []byte) (*Table, error) {
	if len(block) != chainfs.BlockSize {
		return nil, fmt.Errorf("directory buffer is %d bytes, want %d: %w",
			len(block), chainfs.BlockSize, chainfs.ErrInvalidArgument)
	}

	var raw [chainfs.MaxFiles]rawEntry
	if err := binary.Read(bytes.NewReader(block), binary.LittleEndian, &raw); err != nil {
		return nil, fmt.Errorf("decoding directory: %w", err)
	}

	t := &Table{}
	seen := make(map[chainfs.FileName]int)
	for i, re := range raw {
		end := bytes.IndexByte(re.Name[:], 0)
		if end < 0 {
			return nil, fmt.Errorf("directory slot %d: name is not terminated: %w", i, chainfs.ErrCorruptVolume)
		}

		e := Entry{
			Name:  chainfs.FileName(re.Name[:end]),
			Size:  re.Size,
			First: fat.Index(re.First),
		}
		if e.InUse() {
			if prev, ok := seen[e.Name]; ok {
				return nil, fmt.Errorf("directory slots %d and %d are both named %q: %w",
					prev, i, e.Name, chainfs.ErrCorruptVolume)
			}
			seen[e.Name] = i
		}

		t.slots[i] = e
	}

	return t, nil
}

// Encode returns the on-disk form of the table, exactly one block long.
func (t *Table) Encode() []byte {
	var raw [chainfs.MaxFiles]rawEntry
	for i, e := range t.slots {
		copy(raw[i].Name[:], e.Name)
		raw[i].Size = e.Size
		raw[i].First = uint16(e.First)
	}

	var buf bytes.Buffer
	buf.Grow(chainfs.BlockSize)

	// writing fixed-size values to a bytes.Buffer cannot fail
	_ = binary.Write(&buf, binary.LittleEndian, &raw)

	return buf.Bytes()
}

// Clone returns a copy of the table. Changes can be made to the copy and
// committed once they are persisted.
func (t *Table) Clone() *Table {
	c := *t
	return &c
}

// Lookup returns the slot of the file called name.
func (t *Table) Lookup(name chainfs.FileName) (int, bool) {
	if name == "" {
		return 0, false
	}

	for i := range t.slots {
		if t.slots[i].Name == name {
			return i, true
		}
	}
	return 0, false
}

// Insert claims the first empty slot for a new, empty file called name.
func (t *Table) Insert(name chainfs.FileName) (int, error) {
	if err := name.Validate(); err != nil {
		return 0, err
	}
	if _, ok := t.Lookup(name); ok {
		return 0, fmt.Errorf("%q: %w", name, chainfs.ErrAlreadyExists)
	}

	for i := range t.slots {
		if !t.slots[i].InUse() {
			t.slots[i] = Entry{Name: name, First: fat.EndOfChain}
			return i, nil
		}
	}

	return 0, fmt.Errorf("no free directory slot for %q: %w", name, chainfs.ErrTableFull)
}

// Remove clears slot and returns the entry it held.
func (t *Table) Remove(slot int) Entry {
	e := t.slots[slot]
	t.slots[slot] = Entry{First: fat.EndOfChain}
	return e
}

// At returns the entry in slot. Callers may update the size and chain head
// through it.
func (t *Table) At(slot int) *Entry {
	return &t.slots[slot]
}

// List returns the used slots in slot order.
func (t *Table) List() []Entry {
	var entries []Entry
	for _, e := range t.slots {
		if e.InUse() {
			entries = append(entries, e)
		}
	}
	return entries
}

// EmptyCount returns the number of unused slots.
func (t *Table) EmptyCount() int {
	n := 0
	for _, e := range t.slots {
		if !e.InUse() {
			n++
		}
	}
	return n
}
