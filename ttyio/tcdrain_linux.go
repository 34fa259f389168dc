//go:build linux

package ttyio

import "golang.org/x/sys/unix"

// tcdrain is glibc's tcdrain(3): TCSBRK with a non-zero argument waits for output
// to drain without sending a break.
func tcdrain(fd int) error {
	return unix.IoctlSetInt(fd, unix.TCSBRK, 1)
}
