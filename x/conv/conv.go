// Package conv holds allocation-free number formatting for MCU builds.
// No fmt/strconv dependency.
package conv

const hexd = "0123456789ABCDEF"

// AppendHex appends n as uppercase hex, zero-padded to digits, without 0x.
// digits is clamped to 1..16.
func AppendHex(dst []byte, n uint64, digits int) []byte {
	if digits < 1 {
		digits = 1
	}
	if digits > 16 {
		digits = 16
	}
	for i := digits - 1; i >= 0; i-- {
		dst = append(dst, hexd[(n>>(uint(i)*4))&0xF])
	}
	return dst
}

// AppendUint appends the base-10 representation of n.
func AppendUint(dst []byte, n uint64) []byte {
	var tmp [20]byte
	i := len(tmp)
	if n == 0 {
		i--
		tmp[i] = '0'
	}
	for n > 0 {
		i--
		tmp[i] = byte('0' + n%10)
		n /= 10
	}
	return append(dst, tmp[i:]...)
}
