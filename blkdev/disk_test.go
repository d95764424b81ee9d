package blkdev

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/keks/chainfs"
	"github.com/stretchr/testify/require"
)

func TestDisk(t *testing.T) {
	type testcase struct {
		name   string
		blocks int
		ops    []op
	}

	mktest := func(tc testcase) func(*testing.T) {
		return func(t *testing.T) {
			// test with a memory disk
			store := NewMemStore()
			require.NoError(t, store.Create("disk", tc.blocks))
			dev, err := store.Open("disk")
			require.NoError(t, err)
			for _, op := range tc.ops {
				op.Do(t, dev)
				t.Logf("ok: %T", op)
			}

			// test with a file disk
			dev, err = CreateFile(filepath.Join(t.TempDir(), "disk.img"), tc.blocks)
			require.NoError(t, err)
			for _, op := range tc.ops {
				op.Do(t, dev)
				t.Logf("ok: %T", op)
			}
		}
	}

	var tcs = []testcase{
		{
			name:   "fresh disk reads zeros",
			blocks: 4,
			ops: []op{
				diskCountOp{exp: 4},
				diskReadOp{idx: 0, exp: filled(0)},
				diskReadOp{idx: 3, exp: filled(0)},
				diskCloseOp{},
			},
		},
		{
			name:   "write then read",
			blocks: 4,
			ops: []op{
				diskWriteOp{idx: 1, data: filled('a')},
				diskWriteOp{idx: 3, data: filled('c')},
				diskReadOp{idx: 0, exp: filled(0)},
				diskReadOp{idx: 1, exp: filled('a')},
				diskReadOp{idx: 2, exp: filled(0)},
				diskReadOp{idx: 3, exp: filled('c')},
				diskCloseOp{},
			},
		},
		{
			name:   "overwrite",
			blocks: 2,
			ops: []op{
				diskWriteOp{idx: 1, data: filled('a')},
				diskWriteOp{idx: 1, data: filled('b')},
				diskReadOp{idx: 1, exp: filled('b')},
				diskCloseOp{},
			},
		},
		{
			name:   "out of range",
			blocks: 2,
			ops: []op{
				diskWriteOp{idx: 2, data: filled('a'), expErr: "block 2 out of range [0, 2): invalid argument"},
				diskReadOp{idx: -1, expErr: "block -1 out of range [0, 2): invalid argument"},
				diskCloseOp{},
			},
		},
		{
			name:   "partial block transfers",
			blocks: 2,
			ops: []op{
				diskWriteOp{idx: 0, data: []byte("test"), expErr: "buffer is 4 bytes, want 4096: invalid argument"},
				diskReadOp{idx: 0, readlen: 8192, expErr: "buffer is 8192 bytes, want 4096: invalid argument"},
				diskCloseOp{},
			},
		},
		{
			name:   "use after close",
			blocks: 2,
			ops: []op{
				diskCloseOp{},
				diskReadOp{idx: 0, expErr: "disk is closed"},
				diskWriteOp{idx: 0, data: filled('a'), expErr: "disk is closed"},
				diskCloseOp{expErr: "disk already closed"},
			},
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, mktest(tc))
	}
}

func TestFileDiskPersists(t *testing.T) {
	r := require.New(t)
	path := filepath.Join(t.TempDir(), "disk.img")

	dev, err := CreateFile(path, 3)
	r.NoError(err)
	r.NoError(dev.WriteBlock(2, filled('z')))
	r.NoError(dev.Close())

	_, err = CreateFile(path, 3)
	r.ErrorIs(err, fs.ErrExist)

	dev2, err := OpenFileDevice(path)
	r.NoError(err)
	r.Equal(3, dev2.BlockCount())

	buf := make([]byte, chainfs.BlockSize)
	r.NoError(dev2.ReadBlock(2, buf))
	r.Equal(filled('z'), buf)
	r.NoError(dev2.Close())
}

func TestOpenFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := OpenFile(filepath.Join(dir, "missing.img"))
	require.ErrorIs(t, err, fs.ErrNotExist)

	odd := filepath.Join(dir, "odd.img")
	require.NoError(t, os.WriteFile(odd, []byte("not a disk"), 0o644))
	_, err = OpenFile(odd)
	require.Error(t, err)

	_, err = CreateFile(filepath.Join(dir, "empty.img"), 0)
	require.ErrorIs(t, err, chainfs.ErrInvalidArgument)
}

func TestMemStore(t *testing.T) {
	r := require.New(t)
	store := NewMemStore()

	r.NoError(store.Create("a", 2))
	r.ErrorIs(store.Create("a", 2), fs.ErrExist)
	r.ErrorIs(store.Create("b", 0), chainfs.ErrInvalidArgument)

	_, err := store.Open("b")
	r.ErrorIs(err, fs.ErrNotExist)

	dev, err := store.Open("a")
	r.NoError(err)

	_, err = store.Open("a")
	r.EqualError(err, `memory disk "a" is already open`)
	r.EqualError(store.Remove("a"), `memory disk "a" is open`)

	r.NoError(dev.WriteBlock(1, filled('x')))
	img, err := store.Image("a")
	r.NoError(err)
	r.Len(img, 2*chainfs.BlockSize)
	r.Equal(byte('x'), img[chainfs.BlockSize])

	r.NoError(dev.Close())

	dev, err = store.Open("a")
	r.NoError(err)
	r.NoError(dev.Close())

	r.NoError(store.Remove("a"))
	_, err = store.Image("a")
	r.ErrorIs(err, fs.ErrNotExist)
}
