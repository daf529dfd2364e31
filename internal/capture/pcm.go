package capture

import "encoding/binary"

// appendInt16LE appends samples to dst as 16-bit little-endian PCM.
func appendInt16LE(dst []byte, samples []int16) []byte {
	for _, s := range samples {
		dst = binary.LittleEndian.AppendUint16(dst, uint16(s))
	}
	return dst
}
