package conv

// UtoaPad writes base-10 representation of n into buf, left-padded with
// zeros to at least width digits (as far as buf allows). Returns the used
// slice. No allocations.
func UtoaPad(buf []byte, n uint64, width int) []byte {
	if len(buf) == 0 {
		return buf[:0]
	}
	i := len(buf)
	for (n > 0 || len(buf)-i < width || i == len(buf)) && i > 0 {
		i--
		buf[i] = byte('0' + (n % 10))
		n /= 10
	}
	return buf[i:]
}
