package ttyio

import (
	"golang.org/x/sys/unix"
)

// sysIO is the set of OS primitives the registry delegates to. Tests swap it to
// inject failures.
type sysIO interface {
	socketpair(domain, typ, proto int) ([2]int, error)
	open(path string, flags int, mode uint32) (int, error)
	read(fd int, p []byte) (int, error)
	write(fd int, p []byte) (int, error)
	close(fd int) error
	tcdrain(fd int) error
}

type unixIO struct{}

var _ sysIO = unixIO{}

func (unixIO) socketpair(domain, typ, proto int) ([2]int, error) {
	return unix.Socketpair(domain, typ, proto)
}

func (unixIO) open(path string, flags int, mode uint32) (int, error) {
	return unix.Open(path, flags|unix.O_CLOEXEC, mode)
}

func (unixIO) read(fd int, p []byte) (int, error) {
	n, err := unix.Read(fd, p)
	if n < 0 {
		n = 0
	}

	return n, err
}

func (unixIO) write(fd int, p []byte) (int, error) {
	n, err := unix.Write(fd, p)
	if n < 0 {
		n = 0
	}

	return n, err
}

func (unixIO) close(fd int) error {
	return unix.Close(fd)
}

func (unixIO) tcdrain(fd int) error {
	return tcdrain(fd)
}
