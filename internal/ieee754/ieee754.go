// Package ieee754 decodes and encodes the little-endian IEEE 754
// binary32/binary64 float immediates used by the WebAssembly binary
// format (f32.const/f64.const payloads and float memory values).
package ieee754

import (
	"encoding/binary"
	"io"
	"math"
)

// DecodeFloat32 reads 4 little-endian bytes from r and reinterprets
// them as an IEEE 754 binary32 value.
func DecodeFloat32(r io.Reader) (float32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[:])), nil
}

// DecodeFloat64 reads 8 little-endian bytes from r and reinterprets
// them as an IEEE 754 binary64 value.
func DecodeFloat64(r io.Reader) (float64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(buf[:])), nil
}

// EncodeFloat32 returns v's 4-byte little-endian binary32 encoding.
func EncodeFloat32(v float32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
	return buf
}

// EncodeFloat64 returns v's 8-byte little-endian binary64 encoding.
func EncodeFloat64(v float64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
	return buf
}
