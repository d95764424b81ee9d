package blkdev

import (
	"bytes"
	"testing"

	"github.com/keks/chainfs"
	"github.com/stretchr/testify/require"
)

type op interface {
	Do(*testing.T, chainfs.BlockDevice)
}

type diskWriteOp struct {
	idx  int
	data []byte

	expErr string
}

func (op diskWriteOp) Do(t *testing.T, dev chainfs.BlockDevice) {
	err := dev.WriteBlock(op.idx, op.data)
	if op.expErr == "" {
		require.NoError(t, err)
	} else {
		require.EqualError(t, err, op.expErr)
	}
}

type diskReadOp struct {
	idx     int
	readlen int

	exp    []byte
	expErr string
}

func (op diskReadOp) Do(t *testing.T, dev chainfs.BlockDevice) {
	r := require.New(t)
	if op.readlen == 0 {
		op.readlen = chainfs.BlockSize
	}

	buf := make([]byte, op.readlen)
	err := dev.ReadBlock(op.idx, buf)
	if op.expErr != "" {
		r.EqualError(err, op.expErr)
		return
	}

	r.NoError(err)
	t.Logf("block %d starts with %q", op.idx, buf[:8])
	r.True(bytes.Equal(op.exp, buf), "block %d contents", op.idx)
}

type diskCountOp struct {
	exp int
}

func (op diskCountOp) Do(t *testing.T, dev chainfs.BlockDevice) {
	require.Equal(t, op.exp, dev.BlockCount())
}

type diskCloseOp struct {
	expErr string
}

func (op diskCloseOp) Do(t *testing.T, dev chainfs.BlockDevice) {
	err := dev.Close()
	if op.expErr == "" {
		require.NoError(t, err)
	} else {
		require.EqualError(t, err, op.expErr)
	}
}

func filled(b byte) []byte {
	return bytes.Repeat([]byte{b}, chainfs.BlockSize)
}
