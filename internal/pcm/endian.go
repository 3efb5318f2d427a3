package pcm

import "encoding/binary"

// ReadU16LE reads a little-endian uint16 at offset 0 of b.
func ReadU16LE(b []byte) uint16 { return binary.LittleEndian.Uint16(b) }

// ReadU16BE reads a big-endian uint16 at offset 0 of b.
func ReadU16BE(b []byte) uint16 { return binary.BigEndian.Uint16(b) }

// ReadU32LE reads a little-endian uint32 at offset 0 of b.
func ReadU32LE(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }

// ReadU32BE reads a big-endian uint32 at offset 0 of b.
func ReadU32BE(b []byte) uint32 { return binary.BigEndian.Uint32(b) }

// PutU16LE writes v little-endian into b[0:2].
func PutU16LE(b []byte, v uint16) { binary.LittleEndian.PutUint16(b, v) }

// PutU16BE writes v big-endian into b[0:2].
func PutU16BE(b []byte, v uint16) { binary.BigEndian.PutUint16(b, v) }

// PutU32LE writes v little-endian into b[0:4].
func PutU32LE(b []byte, v uint32) { binary.LittleEndian.PutUint32(b, v) }

// PutU32BE writes v big-endian into b[0:4].
func PutU32BE(b []byte, v uint32) { binary.BigEndian.PutUint32(b, v) }

// Swap16 byte-swaps every 16-bit word of b in place. len(b) must be even.
func Swap16(b []byte) {
	for i := 0; i+1 < len(b); i += 2 {
		b[i], b[i+1] = b[i+1], b[i]
	}
}

// Swap32 byte-swaps every 32-bit word of b in place. len(b) must be a
// multiple of 4.
func Swap32(b []byte) {
	for i := 0; i+3 < len(b); i += 4 {
		b[i], b[i+1], b[i+2], b[i+3] = b[i+3], b[i+2], b[i+1], b[i]
	}
}

// ExtendedToUint32 converts an 80-bit IEEE-754 extended-precision value
// (as used by AIFF's COMM sample rate field) to a uint32, truncating any
// fractional part. AIFF sample rates are always representable exactly.
func ExtendedToUint32(b [10]byte) uint32 {
	sign := 1
	if b[0]&0x80 != 0 {
		sign = -1
	}
	exponent := int(binary.BigEndian.Uint16(b[0:2])&0x7FFF) - 16383
	mantissa := binary.BigEndian.Uint64(b[2:10])
	if exponent < 0 || exponent > 63 {
		return 0
	}
	var value uint64
	switch {
	case exponent >= 63:
		value = mantissa
	default:
		shift := 63 - exponent
		if shift >= 64 {
			value = 0
		} else {
			value = mantissa >> uint(shift)
		}
	}
	if sign < 0 {
		return 0
	}
	return uint32(value)
}
