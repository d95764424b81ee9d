package blkdev

// growRWA is a memRWA that grows to fit writes past its end, so tests can
// start from an empty buffer.
type growRWA struct {
	memRWA
}

func (rwa *growRWA) WriteAt(data []byte, off int64) (int, error) {
	if end := off + int64(len(data)); off >= 0 && end > int64(len(rwa.buf)) {
		rwa.buf = append(rwa.buf, make([]byte, end-int64(len(rwa.buf)))...)
	}

	return rwa.memRWA.WriteAt(data, off)
}
