package blkdev

import (
	"io"

	"github.com/keks/chainfs"
)

// block is a size-bounded window of the lower ReadWriterAt starting at off.
// Reads and writes that run past the end of the window are cut short and
// return io.EOF.
type block struct {
	off  int64
	size int

	lower chainfs.ReadWriterAt
}

func (blk *block) ReadAt(dst []byte, off int64) (int, error) {
	if off < 0 || off >= int64(blk.size) {
		return 0, io.EOF
	}

	max := blk.size - int(off)
	var retEOF bool
	if max < len(dst) {
		dst = dst[:max]
		retEOF = true
	}

	n, err := blk.lower.ReadAt(dst, off+blk.off)
	if err == io.EOF && n == len(dst) {
		// the lower layer may report EOF together with a full read
		err = nil
	}
	if err != nil {
		return n, err
	}

	// return EOF if the caller wanted to read beyond the end of the block
	if retEOF {
		return n, io.EOF
	}

	return n, nil
}

func (blk *block) WriteAt(data []byte, off int64) (int, error) {
	if off < 0 || off >= int64(blk.size) {
		return 0, io.EOF
	}

	max := blk.size - int(off)
	var retErr bool
	if max < len(data) {
		data = data[:max]
		retErr = true
	}

	n, err := blk.lower.WriteAt(data, off+blk.off)
	if err != nil {
		// NOTE: this is only expected if the lower layer has failures,
		//       like e.g. running out of disk space.
		return n, err
	}

	// return EOF if the caller wanted to write beyond the end of the block
	if retErr {
		return n, io.EOF
	}

	return n, nil
}
