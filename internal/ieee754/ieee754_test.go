package ieee754

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFloat32RoundTrip(t *testing.T) {
	for _, v := range []float32{0, 1, -1, 3.14159, float32(math.Inf(1)), float32(math.Inf(-1))} {
		enc := EncodeFloat32(v)
		require.Len(t, enc, 4)
		got, err := DecodeFloat32(bytes.NewReader(enc))
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}

func TestFloat32NaN(t *testing.T) {
	enc := EncodeFloat32(float32(math.NaN()))
	got, err := DecodeFloat32(bytes.NewReader(enc))
	require.NoError(t, err)
	require.True(t, math.IsNaN(float64(got)))
}

func TestFloat64RoundTrip(t *testing.T) {
	for _, v := range []float64{0, 1, -1, 2.71828182845, math.Inf(1), math.Inf(-1)} {
		enc := EncodeFloat64(v)
		require.Len(t, enc, 8)
		got, err := DecodeFloat64(bytes.NewReader(enc))
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}

func TestDecodeFloat32Truncated(t *testing.T) {
	_, err := DecodeFloat32(bytes.NewReader([]byte{1, 2}))
	require.Error(t, err)
}
