package volume

import (
	"errors"
	"fmt"

	"github.com/keks/chainfs"
	"github.com/keks/chainfs/fat"
)

func (m *mount) readData(blk fat.Index, buf []byte) error {
	return m.dev.ReadBlock(int(m.sb.DataStart)+int(blk), buf)
}

func (m *mount) writeData(blk fat.Index, buf []byte) error {
	return m.dev.WriteBlock(int(m.sb.DataStart)+int(blk), buf)
}

// locate returns the block holding byte offset of the chain starting at
// head and the offset inside that block. The block is EndOfChain if offset
// lies just past the last block of the chain.
func (m *mount) locate(head fat.Index, offset int64) (fat.Index, int, error) {
	blk, err := m.fat.Seek(head, int(offset/chainfs.BlockSize))
	if err != nil {
		return 0, 0, err
	}
	return blk, int(offset % chainfs.BlockSize), nil
}

// Write writes p at the cursor of fd, growing the file as needed, and
// advances the cursor. When the volume runs out of space, or a block cannot
// be written, it stops early and returns the number of bytes written with a
// nil error; the file then holds exactly those bytes.
func (v *Volume) Write(fd FD, p []byte) (int, error) {
	m, d, e, err := v.file(fd)
	if err != nil {
		return 0, err
	}

	blk, intra, err := m.locate(e.First, d.offset)
	if err != nil {
		return 0, fmt.Errorf("writing %q: %w", e.Name, err)
	}

	// scratch holds one whole block, so bytes around the written range
	// survive the block-sized device write
	scratch := make([]byte, chainfs.BlockSize)
	written := 0
	for written < len(p) {
		n := min(chainfs.BlockSize-intra, len(p)-written)

		extended := false
		if blk == fat.EndOfChain {
			var head fat.Index
			head, blk, err = m.fat.Extend(e.First)
			if errors.Is(err, chainfs.ErrTableFull) {
				v.log.Warn("write stopped early", "file", e.Name, "written", written, "wanted", len(p), "error", err)
				err = nil
				break
			}
			if err != nil {
				err = fmt.Errorf("writing %q: %w", e.Name, err)
				break
			}
			e.First = head
			extended = true
			clear(scratch)
		} else if err = m.readData(blk, scratch); err != nil {
			v.log.Warn("write stopped early", "file", e.Name, "written", written, "wanted", len(p), "error", err)
			err = nil
			break
		}

		copy(scratch[intra:], p[written:written+n])

		if err = m.writeData(blk, scratch); err != nil {
			v.log.Warn("write stopped early", "file", e.Name, "written", written, "wanted", len(p), "error", err)
			err = nil
			if extended {
				if e.First, err = m.fat.TrimTail(e.First); err != nil {
					err = fmt.Errorf("writing %q: %w", e.Name, err)
				}
			}
			break
		}

		written += n
		intra = 0

		if written < len(p) {
			if blk, err = m.fat.Next(blk); err != nil {
				err = fmt.Errorf("writing %q: %w", e.Name, err)
				break
			}
		}
	}

	d.offset += int64(written)
	if d.offset > int64(e.Size) {
		e.Size = uint32(d.offset)
	}

	return written, err
}

// Read reads up to len(p) bytes from the cursor of fd and advances the
// cursor. It stops at the end of the file; at the end it returns 0 and a
// nil error.
func (v *Volume) Read(fd FD, p []byte) (int, error) {
	m, d, e, err := v.file(fd)
	if err != nil {
		return 0, err
	}

	if left := int64(e.Size) - d.offset; int64(len(p)) > left {
		p = p[:max(left, 0)]
	}
	if len(p) == 0 {
		return 0, nil
	}

	blk, intra, err := m.locate(e.First, d.offset)
	if err != nil {
		return 0, fmt.Errorf("reading %q: %w", e.Name, err)
	}

	scratch := make([]byte, chainfs.BlockSize)
	read := 0
	for read < len(p) && blk != fat.EndOfChain {
		if err = m.readData(blk, scratch); err != nil {
			err = fmt.Errorf("reading %q: %w", e.Name, err)
			break
		}

		read += copy(p[read:], scratch[intra:])
		intra = 0

		if read < len(p) {
			if blk, err = m.fat.Next(blk); err != nil {
				err = fmt.Errorf("reading %q: %w", e.Name, err)
				break
			}
		}
	}

	d.offset += int64(read)
	return read, err
}
