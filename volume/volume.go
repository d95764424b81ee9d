// Package volume mounts chainfs volumes and provides the file operations
// on them: creating, deleting and listing files, and opening, seeking,
// reading and writing them through descriptors.
//
// A Volume is not safe for concurrent use. All state lives in memory while
// the volume is mounted; the directory table is written on every create and
// delete, the allocation table only on Unmount.
package volume

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/keks/chainfs"
	"github.com/keks/chainfs/blkdev"
	"github.com/keks/chainfs/dirtab"
	"github.com/keks/chainfs/fat"
	"github.com/keks/chainfs/layout"
)

// Option configures a Volume.
type Option func(*Volume)

// WithOpener sets how Mount opens block devices. The default treats device
// names as paths of disk image files.
func WithOpener(open chainfs.OpenFunc) Option {
	return func(v *Volume) {
		v.opener = open
	}
}

// WithLogger sets the logger. The default discards all output.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Volume) {
		v.log = logger
	}
}

// WithStrictMount makes Mount run Check and refuse volumes with problems.
func WithStrictMount(strict bool) Option {
	return func(v *Volume) {
		v.strict = strict
	}
}

// Volume is a chainfs volume that can be mounted from a block device.
type Volume struct {
	opener chainfs.OpenFunc
	log    *slog.Logger
	strict bool

	m *mount
}

// mount is the state of a mounted volume.
type mount struct {
	name string
	dev  chainfs.BlockDevice
	sb   layout.Superblock
	fat  *fat.Table
	dir  *dirtab.Table
	fds  [chainfs.MaxOpenFiles]descriptor
}

// New returns an unmounted Volume.
func New(opts ...Option) *Volume {
	v := &Volume{
		opener: blkdev.OpenFileDevice,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.log == nil {
		v.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return v
}

// Mounted reports whether the volume is mounted.
func (v *Volume) Mounted() bool {
	return v.m != nil
}

func (v *Volume) mounted() (*mount, error) {
	if v.m == nil {
		return nil, chainfs.ErrNotMounted
	}
	return v.m, nil
}

// Mount opens the device called name and loads the volume on it. On
// failure the device is closed again and the Volume stays unmounted.
func (v *Volume) Mount(name string) error {
	if v.m != nil {
		return fmt.Errorf("mounting %q: %w", name, chainfs.ErrAlreadyMounted)
	}

	dev, err := v.opener(name)
	if err != nil {
		return fmt.Errorf("mounting %q: opening device: %w", name, err)
	}

	m, err := load(dev)
	if err == nil && v.strict {
		_, err = m.check()
	}
	if err != nil {
		if cerr := dev.Close(); cerr != nil {
			v.log.Warn("closing device after failed mount", "device", name, "error", cerr)
		}
		return fmt.Errorf("mounting %q: %w", name, err)
	}

	m.name = name
	v.m = m

	v.log.Debug("mounted volume",
		"device", name,
		"blocks", m.sb.TotalBlocks,
		"data_blocks", m.sb.DataBlocks,
		"files", len(m.dir.List()),
	)
	return nil
}

func load(dev chainfs.BlockDevice) (*mount, error) {
	buf := make([]byte, chainfs.BlockSize)
	if err := dev.ReadBlock(0, buf); err != nil {
		return nil, fmt.Errorf("reading superblock: %w", err)
	}

	sb, err := layout.DecodeSuperblock(buf)
	if err != nil {
		return nil, err
	}
	if err := sb.Validate(dev.BlockCount()); err != nil {
		return nil, err
	}

	start, count := sb.FATRegion()
	region := make([]byte, count*chainfs.BlockSize)
	for i := 0; i < count; i++ {
		if err := dev.ReadBlock(start+i, region[i*chainfs.BlockSize:(i+1)*chainfs.BlockSize]); err != nil {
			return nil, fmt.Errorf("reading allocation table: %w", err)
		}
	}

	table, err := fat.Decode(region, int(sb.DataBlocks))
	if err != nil {
		return nil, err
	}

	if err := dev.ReadBlock(int(sb.RootDirBlock), buf); err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}

	dir, err := dirtab.Decode(buf)
	if err != nil {
		return nil, err
	}

	for _, e := range dir.List() {
		if e.First == fat.EndOfChain {
			if e.Size != 0 {
				return nil, fmt.Errorf("file %q has %d bytes but no blocks: %w", e.Name, e.Size, chainfs.ErrCorruptVolume)
			}
			continue
		}
		if !table.Valid(e.First) {
			return nil, fmt.Errorf("file %q starts at block %d, outside the data region: %w",
				e.Name, e.First, chainfs.ErrCorruptVolume)
		}
	}

	return &mount{
		dev: dev,
		sb:  sb,
		fat: table,
		dir: dir,
	}, nil
}

// Unmount writes the allocation and directory tables back and closes the
// device. It fails with chainfs.ErrBusy while files are open.
func (v *Volume) Unmount() error {
	m, err := v.mounted()
	if err != nil {
		return fmt.Errorf("unmounting: %w", err)
	}

	if n := m.openCount(); n > 0 {
		return fmt.Errorf("unmounting %q: %d files open: %w", m.name, n, chainfs.ErrBusy)
	}

	if err := m.flush(); err != nil {
		return fmt.Errorf("unmounting %q: %w", m.name, err)
	}

	v.m = nil
	if err := m.dev.Close(); err != nil {
		return fmt.Errorf("unmounting %q: closing device: %w", m.name, err)
	}

	v.log.Debug("unmounted volume", "device", m.name)
	return nil
}

func (m *mount) flush() error {
	region := m.fat.Encode()
	start, count := m.sb.FATRegion()
	for i := 0; i < count; i++ {
		if err := m.dev.WriteBlock(start+i, region[i*chainfs.BlockSize:(i+1)*chainfs.BlockSize]); err != nil {
			return fmt.Errorf("writing allocation table: %w", err)
		}
	}

	return m.writeDir(m.dir)
}

func (m *mount) writeDir(dir *dirtab.Table) error {
	if err := m.dev.WriteBlock(int(m.sb.RootDirBlock), dir.Encode()); err != nil {
		return fmt.Errorf("writing directory: %w", err)
	}
	return nil
}
