package ttyio

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

var (
	// ErrMisuse is wrapped by the panic value raised when a caller breaks the
	// single-reader contract or requests an unsupported readcond timeout.
	ErrMisuse = errors.New("ttyio: contract violation")

	// ErrBrokenPipe is returned by Write when the other end of the pair has been closed.
	// It wraps EPIPE.
	ErrBrokenPipe = fmt.Errorf("ttyio: peer closed: %w", unix.EPIPE)

	// ErrUnsupportedWaitMode is returned by ReadCond on a plain descriptor when a
	// timer is requested.
	ErrUnsupportedWaitMode = fmt.Errorf("ttyio: readcond timers: %w", errors.ErrUnsupported)
)
