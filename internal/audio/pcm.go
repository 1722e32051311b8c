package audio

import "encoding/binary"

// MaxSampleValue is the magnitude of the most negative 16-bit sample.
const MaxSampleValue = 32768.0

// DecodeS16LE converts little-endian signed 16-bit mono PCM to samples in [-1, 1).
// A trailing odd byte is ignored; callers carry it over to the next chunk.
func DecodeS16LE(dst []float64, buf []byte) []float64 {
	dst = dst[:0]

	for i := 0; i+1 < len(buf); i += 2 {
		sample := int16(binary.LittleEndian.Uint16(buf[i:]))
		dst = append(dst, float64(sample)/MaxSampleValue)
	}

	return dst
}
