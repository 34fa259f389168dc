package ttyio

import (
	"io"
	"runtime"
)

// Port is one end of a managed pair seen as an io.ReadWriteCloser.
type Port struct {
	reg *Registry
	des int
}

var _ io.ReadWriteCloser = (*Port)(nil)

// Port wraps des. It does not check that des is managed; a plain descriptor gets the
// OS behavior of every call.
func (r *Registry) Port(des int) *Port {
	return &Port{reg: r, des: des}
}

// OpenPair creates a managed pair and wraps both ends.
func (r *Registry) OpenPair() (*Port, *Port, error) {
	a, b, err := r.CreatePair()
	if err != nil {
		return nil, nil, err
	}

	return r.Port(a), r.Port(b), nil
}

// Fd returns the descriptor number.
func (p *Port) Fd() int { return p.des }

// Read waits for at least one byte. It returns io.EOF once the peer has closed and
// nothing is left to read.
func (p *Port) Read(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}

	n, err := p.reg.Read(p.des, b)
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, io.EOF
	}

	return n, nil
}

// ReadCond waits until at least minimum bytes are available or the peer has closed.
func (p *Port) ReadCond(b []byte, minimum int) (int, error) {
	return p.reg.ReadCond(p.des, b, minimum, NoTimeout)
}

// Write writes all of b. When the peer's buffer fills up it drains and retries, so
// Write blocks as long as the peer does not read.
func (p *Port) Write(b []byte) (int, error) {
	written := 0
	for written < len(b) {
		n, err := p.reg.Write(p.des, b[written:])
		written += n
		if err != nil {
			return written, err
		}
		if written < len(b) {
			if err := p.reg.Drain(p.des); err != nil {
				return written, err
			}
			// A reader that claimed the whole buffer lets Drain return before it
			// has run.
			if n == 0 {
				runtime.Gosched()
			}
		}
	}

	return written, nil
}

// WriteSome writes what fits in the peer's buffer and returns the count.
func (p *Port) WriteSome(b []byte) (int, error) {
	return p.reg.Write(p.des, b)
}

// Drain waits until the peer has consumed everything written so far.
func (p *Port) Drain() error {
	return p.reg.Drain(p.des)
}

// Close closes the descriptor.
func (p *Port) Close() error {
	return p.reg.Close(p.des)
}
