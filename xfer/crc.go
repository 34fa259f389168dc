package xfer

// crc16Table is the lookup table for CRC-16 with polynomial 0x1021, MSB first.
var crc16Table = func() [256]uint16 {
	var table [256]uint16
	for i := range table {
		crc := uint16(i) << 8 //nolint:gosec // i < 256
		for range 8 {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
		table[i] = crc
	}

	return table
}()

// crc16 computes CRC-16/XMODEM: polynomial 0x1021, initial value 0, no reflection.
func crc16(data []byte) uint16 {
	var crc uint16
	for _, v := range data {
		crc = crc<<8 ^ crc16Table[byte(crc>>8)^v]
	}

	return crc
}
