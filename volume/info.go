package volume

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/keks/chainfs"
)

// Info describes the layout and free space of a mounted volume.
type Info struct {
	TotalBlocks  int
	FATBlocks    int
	RootDirBlock int
	DataStart    int
	DataBlocks   int

	// FreeDataBlocks is the number of unallocated data blocks.
	FreeDataBlocks int

	// FreeDirEntries is the number of unused directory slots out of
	// DirEntries.
	FreeDirEntries int
	DirEntries     int
}

// String formats the info the way fs_info tools print it, one key=value
// pair per line.
func (info Info) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "FS Info:\n")
	fmt.Fprintf(&b, "total_blk_count=%d\n", info.TotalBlocks)
	fmt.Fprintf(&b, "fat_blk_count=%d\n", info.FATBlocks)
	fmt.Fprintf(&b, "rdir_blk=%d\n", info.RootDirBlock)
	fmt.Fprintf(&b, "data_blk=%d\n", info.DataStart)
	fmt.Fprintf(&b, "data_blk_count=%d\n", info.DataBlocks)
	fmt.Fprintf(&b, "fat_free_ratio=%d/%d\n", info.FreeDataBlocks, info.DataBlocks)
	fmt.Fprintf(&b, "rdir_free_ratio=%d/%d\n", info.FreeDirEntries, info.DirEntries)
	fmt.Fprintf(&b, "capacity=%s free=%s\n",
		humanize.IBytes(uint64(info.DataBlocks)*chainfs.BlockSize),
		humanize.IBytes(uint64(info.FreeDataBlocks)*chainfs.BlockSize))
	return b.String()
}

// Info returns the layout and free space of the mounted volume.
func (v *Volume) Info() (Info, error) {
	m, err := v.mounted()
	if err != nil {
		return Info{}, err
	}

	return Info{
		TotalBlocks:    int(m.sb.TotalBlocks),
		FATBlocks:      int(m.sb.FATBlocks),
		RootDirBlock:   int(m.sb.RootDirBlock),
		DataStart:      int(m.sb.DataStart),
		DataBlocks:     int(m.sb.DataBlocks),
		FreeDataBlocks: m.fat.FreeCount(),
		FreeDirEntries: m.dir.EmptyCount(),
		DirEntries:     chainfs.MaxFiles,
	}, nil
}
