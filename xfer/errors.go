package xfer

import "errors"

var (
	ErrRetryExhausted   = errors.New("xfer: retries exhausted")
	ErrCanceled         = errors.New("xfer: transfer canceled by peer")
	ErrPeerClosed       = errors.New("xfer: peer closed the line")
	ErrChecksumMismatch = errors.New("xfer: checksum mismatch")
	ErrBlockLength      = errors.New("xfer: invalid block length")
	ErrBlockNumber      = errors.New("xfer: block number complement mismatch")
	ErrBlockSequence    = errors.New("xfer: block out of sequence")
	ErrUnexpectedByte   = errors.New("xfer: unexpected control byte")
)
