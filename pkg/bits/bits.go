// Package bits holds the small bit helpers shared by the CLA/INS, status word
// and BER-TLV code. Bits are numbered 1 (LSB) to 8 (MSB), the way ISO 7816
// and EMV books number them.
package bits

// Bit returns a byte with only bit n set. Out of range positions yield 0.
func Bit(n uint) byte {
	if n < 1 || n > 8 {
		return 0
	}
	return 1 << (n - 1)
}

// IsSet reports whether bit n of b is set.
func IsSet(b byte, n uint) bool {
	return b&Bit(n) != 0
}

// GetRange extracts bits high..low of b, right aligned.
// GetRange(0b00001100, 4, 3) == 3.
func GetRange(b byte, high, low uint) byte {
	if high < low || high > 8 || low < 1 {
		return 0
	}

	width := high - low + 1
	mask := byte((1 << width) - 1)

	return (b >> (low - 1)) & mask
}

// Set returns b with bit n set.
func Set(b byte, n uint) byte {
	return b | Bit(n)
}

// High returns the upper nibble of b.
func High(b byte) byte {
	return b >> 4
}

// Low returns the lower nibble of b.
func Low(b byte) byte {
	return b & 0x0F
}
