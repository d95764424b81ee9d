package volume

import (
	"fmt"

	"github.com/keks/chainfs"
	"github.com/keks/chainfs/dirtab"
)

// Create adds an empty file called name and writes the directory table.
func (v *Volume) Create(name string) error {
	m, err := v.mounted()
	if err != nil {
		return fmt.Errorf("creating %q: %w", name, err)
	}

	next := m.dir.Clone()
	if _, err := next.Insert(chainfs.FileName(name)); err != nil {
		return fmt.Errorf("creating %q: %w", name, err)
	}
	if err := m.writeDir(next); err != nil {
		return fmt.Errorf("creating %q: %w", name, err)
	}
	m.dir = next

	v.log.Debug("created file", "name", name)
	return nil
}

// Delete removes the file called name and frees its blocks. It fails with
// chainfs.ErrNotFound if there is no such file, and with chainfs.ErrBusy
// while the file is open through any descriptor.
func (v *Volume) Delete(name string) error {
	m, err := v.mounted()
	if err != nil {
		return fmt.Errorf("deleting %q: %w", name, err)
	}

	slot, ok := m.dir.Lookup(chainfs.FileName(name))
	if !ok {
		return fmt.Errorf("deleting %q: %w", name, chainfs.ErrNotFound)
	}
	if m.isOpen(slot) {
		return fmt.Errorf("deleting %q: file is open: %w", name, chainfs.ErrBusy)
	}

	// make sure the chain can be released before anything is written
	blocks, err := m.fat.Chain(m.dir.At(slot).First)
	if err != nil {
		return fmt.Errorf("deleting %q: %w", name, err)
	}

	next := m.dir.Clone()
	removed := next.Remove(slot)
	if err := m.writeDir(next); err != nil {
		return fmt.Errorf("deleting %q: %w", name, err)
	}
	m.dir = next

	if err := m.fat.Release(removed.First); err != nil {
		// the chain was walked above, so this cannot happen
		return fmt.Errorf("deleting %q: %w", name, err)
	}

	v.log.Debug("deleted file", "name", name, "blocks", len(blocks))
	return nil
}

// List returns the files on the volume in directory order.
func (v *Volume) List() ([]dirtab.Entry, error) {
	m, err := v.mounted()
	if err != nil {
		return nil, err
	}
	return m.dir.List(), nil
}
