package chainfs

import "errors"

// Errors returned by the volume layers. Callers match them with errors.Is;
// the returned errors usually wrap one of these with more context.
var (
	ErrNotMounted         = errors.New("volume not mounted")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrNotFound           = errors.New("file not found")
	ErrAlreadyExists      = errors.New("file already exists")
	ErrTableFull          = errors.New("table full")
	ErrOffsetOutOfRange   = errors.New("offset out of range")
	ErrDescriptorInactive = errors.New("descriptor not open")
	ErrBusy               = errors.New("volume has open files")
	ErrCorruptVolume      = errors.New("corrupt volume")
)

// ErrAlreadyMounted is returned when mounting a volume that is mounted. It
// also matches ErrNotMounted: both report the mount state being wrong for
// the operation.
var ErrAlreadyMounted error = alreadyMounted{}

type alreadyMounted struct{}

func (alreadyMounted) Error() string { return "volume already mounted" }

func (alreadyMounted) Is(target error) bool { return target == ErrNotMounted }
