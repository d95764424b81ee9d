package volume

import (
	"fmt"

	"github.com/keks/chainfs"
	"github.com/keks/chainfs/dirtab"
)

// FD is a file descriptor of a mounted volume.
type FD int

// descriptor binds an open file to a directory slot and a byte cursor.
type descriptor struct {
	open   bool
	slot   int
	offset int64
}

func (m *mount) openCount() int {
	n := 0
	for _, d := range m.fds {
		if d.open {
			n++
		}
	}
	return n
}

func (m *mount) isOpen(slot int) bool {
	for _, d := range m.fds {
		if d.open && d.slot == slot {
			return true
		}
	}
	return false
}

func (m *mount) descriptor(fd FD) (*descriptor, error) {
	if fd < 0 || int(fd) >= len(m.fds) {
		return nil, fmt.Errorf("descriptor %d out of range [0, %d): %w", fd, len(m.fds), chainfs.ErrInvalidArgument)
	}

	d := &m.fds[fd]
	if !d.open {
		return nil, fmt.Errorf("descriptor %d: %w", fd, chainfs.ErrDescriptorInactive)
	}
	return d, nil
}

// file returns the descriptor fd and the directory entry it refers to.
func (v *Volume) file(fd FD) (*mount, *descriptor, *dirtab.Entry, error) {
	m, err := v.mounted()
	if err != nil {
		return nil, nil, nil, err
	}

	d, err := m.descriptor(fd)
	if err != nil {
		return nil, nil, nil, err
	}

	return m, d, m.dir.At(d.slot), nil
}

// Open opens the file called name with the cursor at the start. The same
// file can be open through several descriptors, each with its own cursor.
func (v *Volume) Open(name string) (FD, error) {
	m, err := v.mounted()
	if err != nil {
		return -1, fmt.Errorf("opening %q: %w", name, err)
	}

	slot, ok := m.dir.Lookup(chainfs.FileName(name))
	if !ok {
		return -1, fmt.Errorf("opening %q: %w", name, chainfs.ErrNotFound)
	}

	for i := range m.fds {
		if !m.fds[i].open {
			m.fds[i] = descriptor{open: true, slot: slot}
			return FD(i), nil
		}
	}

	return -1, fmt.Errorf("opening %q: no free descriptor: %w", name, chainfs.ErrTableFull)
}

// Close closes fd.
func (v *Volume) Close(fd FD) error {
	m, err := v.mounted()
	if err != nil {
		return err
	}

	d, err := m.descriptor(fd)
	if err != nil {
		return err
	}

	*d = descriptor{}
	return nil
}

// Stat returns the size of the file open as fd.
func (v *Volume) Stat(fd FD) (int64, error) {
	_, _, e, err := v.file(fd)
	if err != nil {
		return 0, err
	}
	return int64(e.Size), nil
}

// Seek moves the cursor of fd to offset, which can be at most the size of
// the file.
func (v *Volume) Seek(fd FD, offset int64) error {
	_, d, e, err := v.file(fd)
	if err != nil {
		return err
	}

	if offset < 0 {
		return fmt.Errorf("seeking to %d: %w", offset, chainfs.ErrInvalidArgument)
	}
	if offset > int64(e.Size) {
		return fmt.Errorf("seeking to %d in %q of %d bytes: %w", offset, e.Name, e.Size, chainfs.ErrOffsetOutOfRange)
	}

	d.offset = offset
	return nil
}

// Tell returns the cursor of fd.
func (v *Volume) Tell(fd FD) (int64, error) {
	_, d, _, err := v.file(fd)
	if err != nil {
		return 0, err
	}
	return d.offset, nil
}
