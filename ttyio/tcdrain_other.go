//go:build !linux

package ttyio

import (
	"errors"
	"fmt"
)

func tcdrain(fd int) error {
	return fmt.Errorf("ttyio: tcdrain on descriptor %d: %w", fd, errors.ErrUnsupported)
}
