package blkdev

type closerFunc func() error

func (c closerFunc) Close() error {
	return c()
}
