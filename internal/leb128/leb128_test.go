package leb128

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeInt32(t *testing.T) {
	tests := []struct {
		input    int32
		expected []byte
	}{
		{input: -165675008, expected: []byte{0x80, 0x80, 0x80, 0xb1, 0x7f}},
		{input: -624485, expected: []byte{0x9b, 0xf1, 0x59}},
		{input: -16256, expected: []byte{0x80, 0x81, 0x7f}},
		{input: -4, expected: []byte{0x7c}},
		{input: -1, expected: []byte{0x7f}},
		{input: 0, expected: []byte{0x00}},
		{input: 1, expected: []byte{0x01}},
		{input: 4, expected: []byte{0x04}},
		{input: 16256, expected: []byte{0x80, 0xff, 0x0}},
		{input: 624485, expected: []byte{0xe5, 0x8e, 0x26}},
		{input: 165675008, expected: []byte{0x80, 0x80, 0x80, 0xcf, 0x0}},
		{input: int32(math.MaxInt32), expected: []byte{0xff, 0xff, 0xff, 0xff, 0x7}},
	}
	for _, tc := range tests {
		require.Equal(t, tc.expected, EncodeInt32(tc.input))
		v, n, err := DecodeInt32(bytes.NewReader(tc.expected))
		require.NoError(t, err)
		require.Equal(t, tc.input, v)
		require.Equal(t, uint64(len(tc.expected)), n)
	}
}

func TestEncodeDecodeInt64(t *testing.T) {
	tests := []struct {
		input    int64
		expected []byte
	}{
		{input: -math.MaxInt32, expected: []byte{0x81, 0x80, 0x80, 0x80, 0x78}},
		{input: -624485, expected: []byte{0x9b, 0xf1, 0x59}},
		{input: -1, expected: []byte{0x7f}},
		{input: 0, expected: []byte{0x00}},
		{input: math.MaxInt32, expected: []byte{0xff, 0xff, 0xff, 0xff, 0x7}},
		{input: math.MaxInt64, expected: []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x0}},
	}
	for _, tc := range tests {
		require.Equal(t, tc.expected, EncodeInt64(tc.input))
		v, _, err := DecodeInt64(bytes.NewReader(tc.expected))
		require.NoError(t, err)
		require.Equal(t, tc.input, v)
	}
}

func TestEncodeDecodeUint32(t *testing.T) {
	tests := []struct {
		input    uint32
		expected []byte
	}{
		{input: 0, expected: []byte{0x00}},
		{input: 1, expected: []byte{0x01}},
		{input: 16256, expected: []byte{0x80, 0x7f}},
		{input: 624485, expected: []byte{0xe5, 0x8e, 0x26}},
		{input: uint32(math.MaxUint32), expected: []byte{0xff, 0xff, 0xff, 0xff, 0xf}},
	}
	for _, tc := range tests {
		require.Equal(t, tc.expected, EncodeUint32(tc.input))
		v, _, err := DecodeUint32(bytes.NewReader(tc.expected))
		require.NoError(t, err)
		require.Equal(t, tc.input, v)
	}
}

func TestDecodeUint32_overflow(t *testing.T) {
	// 5 bytes, all continuation, top byte sets bits above bit 31.
	_, _, err := DecodeUint32(bytes.NewReader([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0x01}))
	require.Error(t, err)
}

func TestDecodeInt32_overflow(t *testing.T) {
	_, _, err := DecodeInt32(bytes.NewReader([]byte{0x80, 0x80, 0x80, 0x80, 0x08}))
	require.Error(t, err)
}

func TestDecodeInt32_allOnesIsNegativeOne(t *testing.T) {
	// 5-byte encoding where every group is 0x7f sign-extends to -1, which
	// fits in 32 bits and must not be rejected as an overflow.
	v, _, err := DecodeInt32(bytes.NewReader([]byte{0xff, 0xff, 0xff, 0xff, 0x7f}))
	require.NoError(t, err)
	require.Equal(t, int32(-1), v)
}

func TestDecode_truncated(t *testing.T) {
	_, _, err := DecodeUint32(bytes.NewReader([]byte{0x80}))
	require.Error(t, err)
}

func TestRoundTripRandomish(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 300, 1 << 20, 1 << 40, math.MaxUint64}
	for _, v := range values {
		enc := EncodeUint64(v)
		got, n, err := DecodeUint64(bytes.NewReader(enc))
		require.NoError(t, err)
		require.Equal(t, v, got)
		require.Equal(t, uint64(len(enc)), n)
	}
}
