package volume

import (
	"errors"
	"fmt"

	"github.com/keks/chainfs"
	"github.com/keks/chainfs/fat"
)

// Problem is an inconsistency found by Check.
type Problem struct {
	// File is the file the problem was found in, empty for orphaned blocks.
	File  chainfs.FileName
	Block fat.Index
	Msg   string
}

func (p Problem) String() string {
	if p.File == "" {
		return fmt.Sprintf("block %d: %s", p.Block, p.Msg)
	}
	return fmt.Sprintf("%q: block %d: %s", p.File, p.Block, p.Msg)
}

// Report is the result of Check.
type Report struct {
	Files      int
	UsedBlocks int
	FreeBlocks int
	Problems   []Problem
}

// Check verifies that the allocation table and the directory agree: every
// chain is well formed, no block belongs to two files, every file has
// exactly as many blocks as its size needs and no allocated block is
// unreachable. It returns an error wrapping chainfs.ErrCorruptVolume if
// there are problems; the report lists them.
func (v *Volume) Check() (Report, error) {
	m, err := v.mounted()
	if err != nil {
		return Report{}, err
	}
	return m.check()
}

var errSharedBlock = errors.New("block already in use")

func (m *mount) check() (Report, error) {
	report := Report{
		UsedBlocks: m.fat.UsedCount(),
		FreeBlocks: m.fat.FreeCount(),
	}

	owner := make(map[fat.Index]chainfs.FileName)
	for _, e := range m.dir.List() {
		report.Files++

		blocks := 0
		var last fat.Index
		err := m.fat.Walk(e.First, func(i fat.Index) error {
			last = i
			if prev, ok := owner[i]; ok {
				msg := fmt.Sprintf("also used by %q", prev)
				if prev == e.Name {
					msg = "chain loops back onto itself"
				}
				report.Problems = append(report.Problems, Problem{File: e.Name, Block: i, Msg: msg})
				return errSharedBlock
			}
			owner[i] = e.Name
			blocks++
			return nil
		})

		switch {
		case errors.Is(err, errSharedBlock):
		case err != nil:
			report.Problems = append(report.Problems, Problem{File: e.Name, Block: last, Msg: err.Error()})
		case blocks != e.Blocks():
			report.Problems = append(report.Problems, Problem{
				File:  e.Name,
				Block: e.First,
				Msg:   fmt.Sprintf("size %d needs %d blocks but chain has %d", e.Size, e.Blocks(), blocks),
			})
		}
	}

	for i := 1; i < m.fat.Len(); i++ {
		blk := fat.Index(i)
		if m.fat.Link(blk) == fat.Free {
			continue
		}
		if _, ok := owner[blk]; !ok {
			report.Problems = append(report.Problems, Problem{Block: blk, Msg: "allocated but not part of any file"})
		}
	}

	if len(report.Problems) > 0 {
		return report, fmt.Errorf("%d problems, first: %s: %w",
			len(report.Problems), report.Problems[0], chainfs.ErrCorruptVolume)
	}
	return report, nil
}
