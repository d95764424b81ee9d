package volume

import (
	"errors"
	"fmt"
	"os"

	"github.com/keks/chainfs"
	"github.com/keks/chainfs/blkdev"
	"github.com/keks/chainfs/dirtab"
	"github.com/keks/chainfs/fat"
	"github.com/keks/chainfs/layout"
)

// Format writes an empty volume spanning the whole device. The contents of
// the data region are left as they are.
func Format(dev chainfs.BlockDevice) error {
	sb, err := layout.GeometryForDevice(dev.BlockCount())
	if err != nil {
		return fmt.Errorf("formatting: %w", err)
	}
	return format(dev, sb)
}

func format(dev chainfs.BlockDevice, sb layout.Superblock) error {
	if err := dev.WriteBlock(0, sb.Encode()); err != nil {
		return fmt.Errorf("formatting: writing superblock: %w", err)
	}

	start, count := sb.FATRegion()
	region := fat.New(int(sb.DataBlocks), count).Encode()
	for i := 0; i < count; i++ {
		if err := dev.WriteBlock(start+i, region[i*chainfs.BlockSize:(i+1)*chainfs.BlockSize]); err != nil {
			return fmt.Errorf("formatting: writing allocation table: %w", err)
		}
	}

	if err := dev.WriteBlock(int(sb.RootDirBlock), dirtab.New().Encode()); err != nil {
		return fmt.Errorf("formatting: writing directory: %w", err)
	}

	return nil
}

// MakeFile creates a disk image file at path holding an empty volume as
// described by cfg. If the volume cannot be written the file is removed.
func MakeFile(path string, cfg layout.Config) error {
	return makeFile(path, cfg, func(path string, blocks int) (chainfs.BlockDevice, error) {
		return blkdev.CreateFile(path, blocks)
	})
}

func makeFile(path string, cfg layout.Config, create func(string, int) (chainfs.BlockDevice, error)) error {
	sb, err := cfg.Geometry()
	if err != nil {
		return fmt.Errorf("making volume %s: %w", path, err)
	}

	dev, err := create(path, int(sb.TotalBlocks))
	if err != nil {
		return fmt.Errorf("making volume %s: %w", path, err)
	}

	if err := format(dev, sb); err != nil {
		err = errors.Join(err, dev.Close(), os.Remove(path))
		return fmt.Errorf("making volume %s: %w", path, err)
	}

	return dev.Close()
}
