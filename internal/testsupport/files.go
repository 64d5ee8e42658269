package testsupport

// Payload returns size bytes of a simple repeating pattern. A size <= 0
// returns a single byte.
func Payload(size int) []byte {
	if size <= 0 {
		size = 1
	}
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = byte('A' + i%26)
	}
	return buf
}
