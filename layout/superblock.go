// Package layout describes where things live on a chainfs volume: the
// superblock in block 0, the allocation table right after it, one block of
// directory table, and the data region filling the rest of the device.
package layout

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/keks/chainfs"
)

const superblockFieldsSize = 8 + 2 + 2 + 2 + 2 + 1

// FATEntriesPerBlock is the number of 16-bit allocation table entries in a block.
const FATEntriesPerBlock = chainfs.BlockSize / 2

// Superblock holds the layout parameters of a volume.
type Superblock struct {
	Signature    uint64
	TotalBlocks  uint16
	RootDirBlock uint16
	DataStart    uint16
	DataBlocks   uint16
	FATBlocks    uint8
}

type rawSuperblock struct {
	Superblock
	Padding [chainfs.BlockSize - superblockFieldsSize]byte
}

// DecodeSuperblock parses block 0 of a volume. It does not validate the
// contents; see Validate.
func DecodeSuperblock(block []byte) (Superblock, error) {
	if len(block) != chainfs.BlockSize {
		return Superblock{}, fmt.Errorf("superblock buffer is %d bytes, want %d: %w",
			len(block), chainfs.BlockSize, chainfs.ErrInvalidArgument)
	}

	var raw rawSuperblock
	if err := binary.Read(bytes.NewReader(block), binary.LittleEndian, &raw); err != nil {
		return Superblock{}, fmt.Errorf("decoding superblock: %w", err)
	}

	return raw.Superblock, nil
}

// Encode returns the on-disk form of the superblock, exactly one block long.
func (sb Superblock) Encode() []byte {
	var buf bytes.Buffer
	buf.Grow(chainfs.BlockSize)

	// writing fixed-size values to a bytes.Buffer cannot fail
	_ = binary.Write(&buf, binary.LittleEndian, rawSuperblock{Superblock: sb})

	return buf.Bytes()
}

// Validate checks the superblock against the device it was read from.
func (sb Superblock) Validate(deviceBlocks int) error {
	if sb.Signature != chainfs.Signature {
		return fmt.Errorf("bad signature %#016x: %w", sb.Signature, chainfs.ErrCorruptVolume)
	}
	if int(sb.TotalBlocks) != deviceBlocks {
		return fmt.Errorf("superblock says %d blocks but device has %d: %w",
			sb.TotalBlocks, deviceBlocks, chainfs.ErrCorruptVolume)
	}

	return sb.validateGeometry()
}

func (sb Superblock) validateGeometry() error {
	switch {
	case sb.DataBlocks == 0:
		return fmt.Errorf("volume has no data blocks: %w", chainfs.ErrCorruptVolume)
	case sb.FATBlocks == 0:
		return fmt.Errorf("volume has no allocation table: %w", chainfs.ErrCorruptVolume)
	case int(sb.FATBlocks)*FATEntriesPerBlock < int(sb.DataBlocks):
		return fmt.Errorf("%d allocation table blocks cannot hold %d entries: %w",
			sb.FATBlocks, sb.DataBlocks, chainfs.ErrCorruptVolume)
	case int(sb.RootDirBlock) <= int(sb.FATBlocks) || sb.RootDirBlock >= sb.DataStart:
		return fmt.Errorf("root directory block %d outside [%d, %d): %w",
			sb.RootDirBlock, int(sb.FATBlocks)+1, sb.DataStart, chainfs.ErrCorruptVolume)
	case int(sb.DataStart)+int(sb.DataBlocks) != int(sb.TotalBlocks):
		return fmt.Errorf("data region [%d, %d) does not end at block %d: %w",
			sb.DataStart, int(sb.DataStart)+int(sb.DataBlocks), sb.TotalBlocks, chainfs.ErrCorruptVolume)
	}

	return nil
}

// FATRegion returns the first block and the number of blocks of the
// allocation table.
func (sb Superblock) FATRegion() (start, count int) {
	return 1, int(sb.FATBlocks)
}
