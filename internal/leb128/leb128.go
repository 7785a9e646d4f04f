// Package leb128 implements the Little-Endian Base 128 variable-length
// integer encoding used throughout the WebAssembly binary format.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-int
package leb128

import (
	"fmt"
	"io"
)

// maxByteLen is the largest number of bytes a 64-bit LEB128 value can
// occupy: ceil(64/7) 7-bit groups, the last of which is the terminal
// byte.
const maxByteLen = 10

// DecodeUint32 reads an unsigned LEB128 value from r, rejecting any
// encoding that does not fit in 32 bits. It returns the decoded value
// and the number of bytes consumed.
func DecodeUint32(r io.Reader) (uint32, uint64, error) {
	v, n, err := decodeUint(r, 32)
	return uint32(v), n, err
}

// DecodeUint64 reads an unsigned LEB128 value from r, rejecting any
// encoding that does not fit in 64 bits.
func DecodeUint64(r io.Reader) (uint64, uint64, error) {
	return decodeUint(r, 64)
}

func decodeUint(r io.Reader, bitSize int) (result uint64, bytesRead uint64, err error) {
	var shift int
	var buf [1]byte
	for {
		if shift >= 64 {
			return 0, 0, fmt.Errorf("leb128: overflow decoding %d-bit uint", bitSize)
		}
		if _, err = io.ReadFull(r, buf[:]); err != nil {
			if err == io.EOF && bytesRead > 0 {
				err = io.ErrUnexpectedEOF
			}
			return 0, 0, err
		}
		b := buf[0]
		bytesRead++

		if shift == 63 && b > 1 {
			return 0, 0, fmt.Errorf("leb128: integer representation too long")
		}

		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			if bitSize < 64 {
				maskedOut := result >> uint(bitSize)
				if maskedOut != 0 {
					return 0, 0, fmt.Errorf("leb128: %d-bit uint overflow", bitSize)
				}
			}
			return result, bytesRead, nil
		}
		shift += 7
	}
}

// DecodeInt32 reads a signed LEB128 value from r, rejecting any
// encoding that does not fit (after sign extension) in 32 bits.
func DecodeInt32(r io.Reader) (int32, uint64, error) {
	v, n, err := decodeInt(r, 32)
	return int32(v), n, err
}

// DecodeInt64 reads a signed LEB128 value from r, rejecting any
// encoding that does not fit in 64 bits.
func DecodeInt64(r io.Reader) (int64, uint64, error) {
	return decodeInt(r, 64)
}

// DecodeInt33AsInt64 reads a signed LEB128 value encoded with up to 33
// significant bits, as used for block type immediates where the
// one-byte negative encodings double as type tags. It returns the
// sign-extended 64-bit result.
func DecodeInt33AsInt64(r io.Reader) (int64, uint64, error) {
	return decodeInt(r, 33)
}

func decodeInt(r io.Reader, bitSize int) (result int64, bytesRead uint64, err error) {
	var shift int
	var buf [1]byte
	var b byte
	for {
		if shift >= 64 {
			return 0, 0, fmt.Errorf("leb128: overflow decoding %d-bit int", bitSize)
		}
		if _, err = io.ReadFull(r, buf[:]); err != nil {
			if err == io.EOF && bytesRead > 0 {
				err = io.ErrUnexpectedEOF
			}
			return 0, 0, err
		}
		b = buf[0]
		bytesRead++

		if shift == 63 && b != 0 && b != 0x7f {
			return 0, 0, fmt.Errorf("leb128: integer representation too long")
		}

		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}
	// Sign-extend if the sign bit of the last byte read is set and we
	// have not already consumed every bit of the destination width.
	if shift < 64 && b&0x40 != 0 {
		result |= -1 << uint(shift)
	}
	if bitSize < 64 {
		// The value must fit, once sign-extended, into bitSize bits.
		top := result >> uint(bitSize-1)
		if top != 0 && top != -1 {
			return 0, 0, fmt.Errorf("leb128: %d-bit int overflow", bitSize)
		}
	}
	return result, bytesRead, nil
}

// EncodeUint32 returns the canonical (shortest) unsigned LEB128
// encoding of v.
func EncodeUint32(v uint32) []byte { return encodeUint(uint64(v)) }

// EncodeUint64 returns the canonical unsigned LEB128 encoding of v.
func EncodeUint64(v uint64) []byte { return encodeUint(v) }

func encodeUint(v uint64) []byte {
	out := make([]byte, 0, maxByteLen)
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
			continue
		}
		out = append(out, b)
		return out
	}
}

// EncodeInt32 returns the canonical signed LEB128 encoding of v.
func EncodeInt32(v int32) []byte { return encodeInt(int64(v)) }

// EncodeInt64 returns the canonical signed LEB128 encoding of v.
func EncodeInt64(v int64) []byte { return encodeInt(v) }

func encodeInt(v int64) []byte {
	out := make([]byte, 0, maxByteLen)
	for {
		b := byte(v & 0x7f)
		v >>= 7
		// Sign bit of b, extended: more bytes are needed unless v is
		// the all-0s or all-1s pattern consistent with b's sign bit.
		signBitSet := b&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			out = append(out, b)
			return out
		}
		out = append(out, b|0x80)
	}
}
