//go:build unix

package blkdev

import (
	"errors"
	"fmt"
	"io"

	"github.com/keks/chainfs"
	"golang.org/x/sys/unix"
)

// fileRWA reads and writes a file with pread and pwrite, so no file offset
// is shared between calls.
type fileRWA struct {
	fd int
}

func (f *fileRWA) ReadAt(p []byte, off int64) (int, error) {
	total := 0
	for len(p) > 0 {
		n, err := unix.Pread(f.fd, p, off)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return total, fmt.Errorf("pread at offset %d: %w", off, err)
		}
		if n == 0 {
			return total, io.EOF
		}
		total += n
		p = p[n:]
		off += int64(n)
	}
	return total, nil
}

func (f *fileRWA) WriteAt(p []byte, off int64) (int, error) {
	total := 0
	for len(p) > 0 {
		n, err := unix.Pwrite(f.fd, p, off)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return total, fmt.Errorf("pwrite at offset %d: %w", off, err)
		}
		total += n
		p = p[n:]
		off += int64(n)
	}
	return total, nil
}

// Close flushes the file to stable storage and closes it.
func (f *fileRWA) Close() error {
	var firstErr error
	if err := unix.Fsync(f.fd); err != nil {
		firstErr = fmt.Errorf("syncing disk file: %w", err)
	}
	if err := unix.Close(f.fd); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing disk file: %w", err)
	}
	f.fd = -1
	return firstErr
}

// OpenFile opens the disk image at path. The file size must be a positive
// multiple of chainfs.BlockSize.
func OpenFile(path string) (*Disk, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("opening disk file %s: %w", path, err)
	}

	var stat unix.Stat_t
	if err := unix.Fstat(fd, &stat); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("stating disk file %s: %w", path, err)
	}

	if stat.Size <= 0 || stat.Size%chainfs.BlockSize != 0 {
		unix.Close(fd)
		return nil, fmt.Errorf("disk file %s is %d bytes, not a multiple of the %d byte block size",
			path, stat.Size, chainfs.BlockSize)
	}

	rwa := &fileRWA{fd: fd}
	return New(rwa, int(stat.Size/chainfs.BlockSize), rwa), nil
}

// CreateFile creates a zero-filled disk image of the given number of blocks
// at path. It fails if the file already exists.
func CreateFile(path string, blocks int) (*Disk, error) {
	if blocks <= 0 {
		return nil, fmt.Errorf("disk block count must be positive, got %d: %w", blocks, chainfs.ErrInvalidArgument)
	}

	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT|unix.O_EXCL|unix.O_CLOEXEC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("creating disk file %s: %w", path, err)
	}

	if err := unix.Ftruncate(fd, int64(blocks)*chainfs.BlockSize); err != nil {
		unix.Close(fd)
		unix.Unlink(path)
		return nil, fmt.Errorf("truncating disk file %s to %d blocks: %w", path, blocks, err)
	}

	rwa := &fileRWA{fd: fd}
	return New(rwa, blocks, rwa), nil
}

// OpenFileDevice is a chainfs.OpenFunc that treats device names as paths.
func OpenFileDevice(name string) (chainfs.BlockDevice, error) {
	return OpenFile(name)
}
