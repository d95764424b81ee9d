// Package blkdev provides block devices for chainfs volumes: a Disk that
// splits any ReadWriterAt into fixed-size blocks, backed either by a file or
// by memory.
package blkdev

import (
	"errors"
	"fmt"
	"io"

	"github.com/keks/chainfs"
)

// Disk is a chainfs.BlockDevice made of count consecutive blocks of the
// lower ReadWriterAt.
type Disk struct {
	lower  chainfs.ReadWriterAt
	count  int
	closer io.Closer

	closed bool
}

var _ chainfs.BlockDevice = (*Disk)(nil)

// New returns a Disk of count blocks on top of lower. If closer is not nil
// it is closed together with the disk.
func New(lower chainfs.ReadWriterAt, count int, closer io.Closer) *Disk {
	return &Disk{
		lower:  lower,
		count:  count,
		closer: closer,
	}
}

// BlockCount returns the number of blocks on the disk.
func (d *Disk) BlockCount() int {
	return d.count
}

func (d *Disk) block(idx int, buf []byte) (*block, error) {
	if d.closed {
		return nil, errors.New("disk is closed")
	}
	if idx < 0 || idx >= d.count {
		return nil, fmt.Errorf("block %d out of range [0, %d): %w", idx, d.count, chainfs.ErrInvalidArgument)
	}
	if len(buf) != chainfs.BlockSize {
		return nil, fmt.Errorf("buffer is %d bytes, want %d: %w", len(buf), chainfs.BlockSize, chainfs.ErrInvalidArgument)
	}

	return &block{
		off:   int64(idx) * chainfs.BlockSize,
		size:  chainfs.BlockSize,
		lower: d.lower,
	}, nil
}

// ReadBlock reads block idx into buf, which must be exactly one block long.
func (d *Disk) ReadBlock(idx int, buf []byte) error {
	blk, err := d.block(idx, buf)
	if err != nil {
		return err
	}

	n, err := blk.ReadAt(buf, 0)
	if err != nil {
		return fmt.Errorf("disk read error at block %d: %w", idx, err)
	}
	if n != len(buf) {
		return fmt.Errorf("disk read error at block %d: %w", idx, io.ErrUnexpectedEOF)
	}

	return nil
}

// WriteBlock writes buf, which must be exactly one block long, to block idx.
func (d *Disk) WriteBlock(idx int, buf []byte) error {
	blk, err := d.block(idx, buf)
	if err != nil {
		return err
	}

	n, err := blk.WriteAt(buf, 0)
	if err != nil {
		return fmt.Errorf("disk write error at block %d: %w", idx, err)
	}
	if n != len(buf) {
		return fmt.Errorf("disk write error at block %d: %w", idx, io.ErrShortWrite)
	}

	return nil
}

// Close closes the disk. Further reads and writes fail.
func (d *Disk) Close() error {
	if d.closed {
		return errors.New("disk already closed")
	}
	d.closed = true

	if d.closer == nil {
		return nil
	}

	if err := d.closer.Close(); err != nil {
		return fmt.Errorf("disk close error: %w", err)
	}

	return nil
}
