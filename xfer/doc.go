// Package xfer transfers a byte stream over a serial-like port with the XMODEM
// protocol: 128-byte blocks, an 8-bit checksum or CRC-16, NAK driven retries and an
// EOT handshake.
//
// The protocol only needs what a terminal line offers: a blocking read with a minimum
// byte count, a write, and a drain that waits until the other side has consumed the
// output. A ttyio.Port provides all three.
//
// The receiver picks the error-detection mode by its start byte: 'C' asks for
// CRC-16, NAK for the arithmetic checksum. The sender follows whatever it is sent.
//
// Reads never time out, so the context is only consulted between protocol steps.
// Closing the other end of the port is what unblocks a stuck transfer.
package xfer
