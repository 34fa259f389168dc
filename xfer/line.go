package xfer

import (
	"fmt"
	"io"
)

// Port is the line a transfer runs over.
type Port interface {
	io.Writer
	// ReadCond waits until at least minimum bytes are available, or the peer has
	// closed, and returns 0 only in the latter case.
	ReadCond(p []byte, minimum int) (int, error)
	// Drain waits until the peer has consumed everything written so far.
	Drain() error
}

// line wraps a Port with the byte-level helpers both sides use.
type line struct {
	port Port
	one  [1]byte
}

// readByte reads one byte, returning ErrPeerClosed at end of file.
func (l *line) readByte() (byte, error) {
	n, err := l.port.ReadCond(l.one[:], 1)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrPeerClosed
	}

	return l.one[0], nil
}

// readFull reads exactly len(buf) bytes.
func (l *line) readFull(buf []byte) error {
	for read := 0; read < len(buf); {
		n, err := l.port.ReadCond(buf[read:], len(buf)-read)
		read += n

		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: after %d of %d bytes", ErrPeerClosed, read, len(buf))
		}
	}

	return nil
}

// writeByte writes a single control byte.
func (l *line) writeByte(b byte) error {
	l.one[0] = b
	_, err := l.port.Write(l.one[:])

	return err
}

// writeAndDrain writes data and waits until the peer has taken all of it.
func (l *line) writeAndDrain(data []byte) error {
	if _, err := l.port.Write(data); err != nil {
		return err
	}

	return l.port.Drain()
}

// cancel tells the peer to give up. Errors are ignored; the peer may already be gone.
func (l *line) cancel() {
	_, _ = l.port.Write([]byte{CAN, CAN})
}

// readControl reads a control byte. A CAN followed by another CAN is ErrCanceled; a
// lone CAN is dropped and the byte after it is returned.
func (l *line) readControl() (byte, error) {
	b, err := l.readByte()
	if err != nil || b != CAN {
		return b, err
	}

	b, err = l.readByte()
	if err != nil {
		return 0, err
	}
	if b == CAN {
		return 0, ErrCanceled
	}

	return b, nil
}
