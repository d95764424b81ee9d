package layout

import (
	"fmt"
	"math"

	"github.com/keks/chainfs"
)

const (
	// maxFATBlocks is the largest allocation table the superblock can describe.
	maxFATBlocks = math.MaxUint8

	// maxTotalBlocks is the largest device the superblock can describe.
	maxTotalBlocks = math.MaxUint16
)

func fatBlocksFor(dataBlocks int) int {
	return (dataBlocks + FATEntriesPerBlock - 1) / FATEntriesPerBlock
}

// GeometryFor returns the superblock of a volume with the given number of
// data blocks. Entry 0 of the allocation table is reserved, so a volume
// can store dataBlocks-1 blocks of file content.
func GeometryFor(dataBlocks int) (Superblock, error) {
	if dataBlocks < 2 {
		return Superblock{}, fmt.Errorf("volume needs at least 2 data blocks, got %d: %w",
			dataBlocks, chainfs.ErrInvalidArgument)
	}

	fatBlocks := fatBlocksFor(dataBlocks)
	total := dataBlocks + fatBlocks + 2

	if fatBlocks > maxFATBlocks || total > maxTotalBlocks {
		return Superblock{}, fmt.Errorf("volume of %d data blocks needs %d blocks, more than %d: %w",
			dataBlocks, total, maxTotalBlocks, chainfs.ErrInvalidArgument)
	}

	return Superblock{
		Signature:    chainfs.Signature,
		TotalBlocks:  uint16(total),
		RootDirBlock: uint16(fatBlocks + 1),
		DataStart:    uint16(fatBlocks + 2),
		DataBlocks:   uint16(dataBlocks),
		FATBlocks:    uint8(fatBlocks),
	}, nil
}

// GeometryForDevice returns the superblock of a volume that uses all
// totalBlocks blocks of a device, with as many data blocks as fit.
func GeometryForDevice(totalBlocks int) (Superblock, error) {
	if totalBlocks > maxTotalBlocks {
		return Superblock{}, fmt.Errorf("device of %d blocks is larger than %d: %w",
			totalBlocks, maxTotalBlocks, chainfs.ErrInvalidArgument)
	}

	for fatBlocks := 1; fatBlocks <= maxFATBlocks; fatBlocks++ {
		dataBlocks := totalBlocks - 2 - fatBlocks
		if dataBlocks < 2 {
			break
		}
		if fatBlocksFor(dataBlocks) > fatBlocks {
			continue
		}

		return Superblock{
			Signature:    chainfs.Signature,
			TotalBlocks:  uint16(totalBlocks),
			RootDirBlock: uint16(fatBlocks + 1),
			DataStart:    uint16(fatBlocks + 2),
			DataBlocks:   uint16(dataBlocks),
			FATBlocks:    uint8(fatBlocks),
		}, nil
	}

	return Superblock{}, fmt.Errorf("device of %d blocks is too small for a volume: %w",
		totalBlocks, chainfs.ErrInvalidArgument)
}
