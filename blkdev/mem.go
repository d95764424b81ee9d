package blkdev

import (
	"fmt"
	"io"
	"io/fs"
	"sync"

	"github.com/keks/chainfs"
)

// memRWA is a fixed-size in-memory ReadWriterAt.
type memRWA struct {
	buf []byte
}

func (rwa *memRWA) ReadAt(buf []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(rwa.buf)) {
		return 0, io.EOF
	}

	n := copy(buf, rwa.buf[off:])
	if n < len(buf) {
		return n, io.EOF
	}

	return n, nil
}

func (rwa *memRWA) WriteAt(data []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(data)) > int64(len(rwa.buf)) {
		return 0, fmt.Errorf("write of %d bytes at offset %d exceeds memory disk size %d",
			len(data), off, len(rwa.buf))
	}

	return copy(rwa.buf[off:], data), nil
}

// MemStore holds named in-memory disks. Like a physical disk, each one can
// only be opened by one user at a time.
type MemStore struct {
	l sync.Mutex

	disks map[string]*memDisk
}

type memDisk struct {
	data []byte
	open bool
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{disks: make(map[string]*memDisk)}
}

// Create adds a zero-filled disk of the given number of blocks.
func (s *MemStore) Create(name string, blocks int) error {
	if blocks <= 0 {
		return fmt.Errorf("disk block count must be positive, got %d: %w", blocks, chainfs.ErrInvalidArgument)
	}

	s.l.Lock()
	defer s.l.Unlock()

	if _, ok := s.disks[name]; ok {
		return fmt.Errorf("memory disk %q: %w", name, fs.ErrExist)
	}

	s.disks[name] = &memDisk{data: make([]byte, blocks*chainfs.BlockSize)}
	return nil
}

// Open opens the disk called name. It is a chainfs.OpenFunc.
func (s *MemStore) Open(name string) (chainfs.BlockDevice, error) {
	s.l.Lock()
	defer s.l.Unlock()

	disk, ok := s.disks[name]
	if !ok {
		return nil, fmt.Errorf("memory disk %q: %w", name, fs.ErrNotExist)
	}
	if disk.open {
		return nil, fmt.Errorf("memory disk %q is already open", name)
	}
	disk.open = true

	release := closerFunc(func() error {
		s.l.Lock()
		defer s.l.Unlock()
		disk.open = false
		return nil
	})

	return New(&memRWA{buf: disk.data}, len(disk.data)/chainfs.BlockSize, release), nil
}

// Image returns the live contents of the disk called name. Writes to the
// returned slice change the disk.
func (s *MemStore) Image(name string) ([]byte, error) {
	s.l.Lock()
	defer s.l.Unlock()

	disk, ok := s.disks[name]
	if !ok {
		return nil, fmt.Errorf("memory disk %q: %w", name, fs.ErrNotExist)
	}

	return disk.data, nil
}

// Remove deletes the disk called name. Open disks cannot be removed.
func (s *MemStore) Remove(name string) error {
	s.l.Lock()
	defer s.l.Unlock()

	disk, ok := s.disks[name]
	if !ok {
		return fmt.Errorf("memory disk %q: %w", name, fs.ErrNotExist)
	}
	if disk.open {
		return fmt.Errorf("memory disk %q is open", name)
	}

	delete(s.disks, name)
	return nil
}
