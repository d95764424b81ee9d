package chainfs

import (
	"fmt"
	"strings"
)

// FileName is the name of a file in the flat namespace of a volume.
type FileName string

// Validate checks that name can be stored in a directory slot.
func (name FileName) Validate() error {
	if len(name) == 0 {
		return fmt.Errorf("file name cannot be empty: %w", ErrInvalidArgument)
	}
	if len(name) > MaxFileNameLen {
		return fmt.Errorf("file name too long: %d > %d: %w", len(name), MaxFileNameLen, ErrInvalidArgument)
	}
	if strings.ContainsRune(string(name), 0) {
		return fmt.Errorf("file name cannot contain null byte: %w", ErrInvalidArgument)
	}
	return nil
}
