package volume

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/keks/chainfs"
	"github.com/keks/chainfs/blkdev"
	"github.com/keks/chainfs/layout"
	"github.com/stretchr/testify/require"
)

// env is a volume under test together with the name of its device.
type env struct {
	v      *Volume
	device string
}

func newMemEnv(t *testing.T, dataBlocks int, opts ...Option) (*env, *blkdev.MemStore) {
	t.Helper()

	sb, err := layout.GeometryFor(dataBlocks)
	require.NoError(t, err)

	store := blkdev.NewMemStore()
	require.NoError(t, store.Create("disk", int(sb.TotalBlocks)))

	dev, err := store.Open("disk")
	require.NoError(t, err)
	require.NoError(t, Format(dev))
	require.NoError(t, dev.Close())

	v := New(append([]Option{WithOpener(store.Open)}, opts...)...)
	require.NoError(t, v.Mount("disk"))

	return &env{v: v, device: "disk"}, store
}

func newFileEnv(t *testing.T, dataBlocks int, opts ...Option) *env {
	t.Helper()

	path := filepath.Join(t.TempDir(), "disk.img")
	require.NoError(t, MakeFile(path, layout.Config{DataBlocks: dataBlocks}))

	v := New(opts...)
	require.NoError(t, v.Mount(path))

	return &env{v: v, device: path}
}

// pattern returns n bytes that differ from block to block and from
// position to position, so misplaced data shows up in comparisons.
func pattern(n int, seed byte) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = seed + byte(i%251) + byte(i/chainfs.BlockSize)
	}
	return buf
}

var errInjected = errors.New("injected device failure")

// faultyDevice fails block writes once failAfter writes have succeeded.
// A negative failAfter never fails.
type faultyDevice struct {
	chainfs.BlockDevice

	failAfter int
	writes    int
}

func (d *faultyDevice) WriteBlock(idx int, buf []byte) error {
	if d.failAfter >= 0 && d.writes >= d.failAfter {
		return errInjected
	}
	d.writes++
	return d.BlockDevice.WriteBlock(idx, buf)
}
