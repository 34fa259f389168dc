package xfer

import (
	"encoding/binary"
	"fmt"
)

// BlockDataSize is the number of payload bytes in every block.
const BlockDataSize = 128

// XMODEM control bytes.
const (
	// SOH starts a block.
	SOH byte = 0x01
	// EOT ends the transfer. The receiver answers with ACK.
	EOT byte = 0x04
	// ACK acknowledges a good block or EOT.
	ACK byte = 0x06
	// NAK rejects a block. Sent as the start byte it selects checksum mode.
	NAK byte = 0x15
	// CAN aborts the transfer when received twice in a row.
	CAN byte = 0x18
	// CRCStart is the start byte that selects CRC-16 mode.
	CRCStart byte = 'C'
	// CtrlZ pads the last block.
	CtrlZ byte = 0x1A
)

// blockHeaderSize covers SOH, the block number and its complement.
const blockHeaderSize = 3

// Block is one XMODEM block.
//
// On the wire a block is: [SOH][Number][255-Number][Data(128)][Check(1 or 2)].
// Check is the low byte of the sum of the data bytes, or a big-endian CRC-16.
type Block struct {
	Number byte
	Data   [BlockDataSize]byte
}

// NewBlock builds block number n from data, padding with CtrlZ when data is short.
// At most BlockDataSize bytes of data are used.
func NewBlock(n byte, data []byte) *Block {
	blk := &Block{Number: n}
	copied := copy(blk.Data[:], data)
	for i := copied; i < BlockDataSize; i++ {
		blk.Data[i] = CtrlZ
	}

	return blk
}

// WireSize returns the length of a packed block, including SOH.
func WireSize(crc bool) int {
	return blockHeaderSize + BlockDataSize + checkSize(crc)
}

func checkSize(crc bool) int {
	if crc {
		return 2
	}

	return 1
}

// Checksum returns the 8-bit arithmetic checksum of the payload.
func (b *Block) Checksum() byte {
	var sum byte
	for _, v := range b.Data {
		sum += v
	}

	return sum
}

// CRC returns the CRC-16/XMODEM of the payload.
func (b *Block) CRC() uint16 {
	return crc16(b.Data[:])
}

// Pack serializes the block to its wire format.
func (b *Block) Pack(crc bool) []byte {
	buf := make([]byte, WireSize(crc))

	buf[0] = SOH
	buf[1] = b.Number
	buf[2] = ^b.Number
	copy(buf[blockHeaderSize:], b.Data[:])

	tail := buf[blockHeaderSize+BlockDataSize:]
	if crc {
		binary.BigEndian.PutUint16(tail, b.CRC())
	} else {
		tail[0] = b.Checksum()
	}

	return buf
}

// ParseBlock deserializes a block. data holds everything after SOH:
// WireSize(crc)-1 bytes.
//
// ParseBlock validates:
//   - data has the correct size.
//   - The block number complement matches.
//   - The checksum or CRC matches.
func ParseBlock(data []byte, crc bool) (*Block, error) {
	if want := WireSize(crc) - 1; len(data) != want {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrBlockLength, len(data), want)
	}

	if data[0] != ^data[1] {
		return nil, fmt.Errorf("%w: number 0x%02X, complement 0x%02X", ErrBlockNumber, data[0], data[1])
	}

	blk := &Block{Number: data[0]}
	copy(blk.Data[:], data[2:2+BlockDataSize])

	tail := data[2+BlockDataSize:]
	if crc {
		wire, calc := binary.BigEndian.Uint16(tail), blk.CRC()
		if wire != calc {
			return nil, fmt.Errorf("%w: wire=0x%04X, computed=0x%04X", ErrChecksumMismatch, wire, calc)
		}
	} else if wire, calc := tail[0], blk.Checksum(); wire != calc {
		return nil, fmt.Errorf("%w: wire=0x%02X, computed=0x%02X", ErrChecksumMismatch, wire, calc)
	}

	return blk, nil
}
