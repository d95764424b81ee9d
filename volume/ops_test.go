package volume

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

type op interface {
	Do(*testing.T, *env)
}

func checkErr(t *testing.T, err, expErr error) {
	t.Helper()
	if expErr == nil {
		require.NoError(t, err)
	} else {
		require.ErrorIs(t, err, expErr)
	}
}

type mountOp struct {
	expErr error
}

func (op mountOp) Do(t *testing.T, e *env) {
	checkErr(t, e.v.Mount(e.device), op.expErr)
}

type unmountOp struct {
	expErr error
}

func (op unmountOp) Do(t *testing.T, e *env) {
	checkErr(t, e.v.Unmount(), op.expErr)
}

type createOp struct {
	name string

	expErr error
}

func (op createOp) Do(t *testing.T, e *env) {
	checkErr(t, e.v.Create(op.name), op.expErr)
}

type deleteOp struct {
	name string

	expErr error
}

func (op deleteOp) Do(t *testing.T, e *env) {
	checkErr(t, e.v.Delete(op.name), op.expErr)
}

type listEntry struct {
	name string
	size uint32
}

type listOp struct {
	exp []listEntry
}

func (op listOp) Do(t *testing.T, e *env) {
	entries, err := e.v.List()
	require.NoError(t, err)

	var got []listEntry
	for _, ent := range entries {
		got = append(got, listEntry{string(ent.Name), ent.Size})
	}
	require.Equal(t, op.exp, got)
}

type openOp struct {
	name string
	fd   *FD

	expFD  FD
	expErr error
}

func (op openOp) Do(t *testing.T, e *env) {
	fd, err := e.v.Open(op.name)
	checkErr(t, err, op.expErr)
	if op.expErr != nil {
		return
	}

	require.Equal(t, op.expFD, fd, "descriptor returned by open")
	*op.fd = fd
}

type closeOp struct {
	fd *FD

	expErr error
}

func (op closeOp) Do(t *testing.T, e *env) {
	checkErr(t, e.v.Close(*op.fd), op.expErr)
}

type seekOp struct {
	fd  *FD
	off int64

	expErr error
}

func (op seekOp) Do(t *testing.T, e *env) {
	checkErr(t, e.v.Seek(*op.fd, op.off), op.expErr)
}

type statOp struct {
	fd *FD

	exp    int64
	expErr error
}

func (op statOp) Do(t *testing.T, e *env) {
	size, err := e.v.Stat(*op.fd)
	checkErr(t, err, op.expErr)
	require.Equal(t, op.exp, size)
}

type tellOp struct {
	fd *FD

	exp int64
}

func (op tellOp) Do(t *testing.T, e *env) {
	off, err := e.v.Tell(*op.fd)
	require.NoError(t, err)
	require.Equal(t, op.exp, off)
}

type writeOp struct {
	fd   *FD
	data []byte

	expN   int
	expErr error
}

func (op writeOp) Do(t *testing.T, e *env) {
	n, err := e.v.Write(*op.fd, op.data)
	t.Logf("writeOp, n: %d, err: %v", n, err)

	checkErr(t, err, op.expErr)
	require.Equal(t, op.expN, n)
}

type readOp struct {
	fd      *FD
	readlen int

	exp    []byte
	expErr error
}

func (op readOp) Do(t *testing.T, e *env) {
	r := require.New(t)
	if op.readlen == 0 {
		op.readlen = len(op.exp)
	}

	buf := make([]byte, op.readlen)
	n, err := e.v.Read(*op.fd, buf)
	t.Logf("readOp, n: %d, err: %v", n, err)

	checkErr(t, err, op.expErr)
	r.Equal(len(op.exp), n)
	r.True(bytes.Equal(op.exp, buf[:n]), "read %q", buf[:min(n, 32)])
}

type infoOp struct {
	expFreeBlocks int
	expFreeDir    int
}

func (op infoOp) Do(t *testing.T, e *env) {
	info, err := e.v.Info()
	require.NoError(t, err)
	require.Equal(t, op.expFreeBlocks, info.FreeDataBlocks, "free data blocks")
	require.Equal(t, op.expFreeDir, info.FreeDirEntries, "free directory entries")
}

// checkOp asserts that the volume is consistent.
type checkOp struct{}

func (op checkOp) Do(t *testing.T, e *env) {
	report, err := e.v.Check()
	require.NoError(t, err, "problems: %v", report.Problems)
	require.Empty(t, report.Problems)
}
