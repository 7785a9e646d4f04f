package numeric

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDivS32Overflow(t *testing.T) {
	_, err := DivS32(math.MinInt32, -1)
	require.ErrorIs(t, err, ErrIntegerOverflow)
}

func TestRemS32OverflowCaseReturnsZero(t *testing.T) {
	v, err := RemS32(math.MinInt32, -1)
	require.NoError(t, err)
	require.Equal(t, int32(0), v)
}

func TestDivByZero(t *testing.T) {
	_, err := DivS32(10, 0)
	require.ErrorIs(t, err, ErrIntegerDivideByZero)
	_, err = DivU32(10, 0)
	require.ErrorIs(t, err, ErrIntegerDivideByZero)
	_, err = DivS64(10, 0)
	require.ErrorIs(t, err, ErrIntegerDivideByZero)
}

func TestWrappingAdditionIsCallerResponsibility(t *testing.T) {
	// numeric does not implement add/sub/mul: wrap-around is just Go's
	// native uint32/uint64 arithmetic, so the interpreter performs it
	// directly without calling into this package.
	var a uint32 = math.MaxUint32
	require.Equal(t, uint32(0), a+1)
}

func TestRotate(t *testing.T) {
	require.Equal(t, uint32(0x00000001), Rotl32(0x80000000, 1))
	require.Equal(t, uint32(0x80000000), Rotr32(0x00000001, 1))
	require.Equal(t, uint32(1), Rotl32(1, 32)) // shift count mod 32
}

func TestClzCtzPopcnt(t *testing.T) {
	require.Equal(t, uint32(32), Clz32(0))
	require.Equal(t, uint32(32), Ctz32(0))
	require.Equal(t, uint32(0), Popcnt32(0))
	require.Equal(t, uint32(1), Clz32(0x40000000))
	require.Equal(t, uint32(32), Popcnt32(0xFFFFFFFF))
}

func TestWasmMinMaxNaN(t *testing.T) {
	require.True(t, math.IsNaN(WasmMin64(math.NaN(), 1)))
	require.True(t, math.IsNaN(WasmMax64(1, math.NaN())))
}

func TestWasmMinMaxSignedZero(t *testing.T) {
	negZero := math.Copysign(0, -1)
	require.Equal(t, negZero, WasmMin64(negZero, 0))
	require.Equal(t, float64(0), WasmMax64(negZero, 0))
}

func TestTruncToInt32Traps(t *testing.T) {
	_, err := TruncToInt32(math.NaN(), true)
	require.ErrorIs(t, err, ErrInvalidConversion)
	_, err = TruncToInt32(1e20, true)
	require.ErrorIs(t, err, ErrIntegerOverflow)
	v, err := TruncToInt32(3.9, true)
	require.NoError(t, err)
	require.Equal(t, int32(3), v)
}

func TestTruncToInt64InRange(t *testing.T) {
	v, err := TruncToInt64(-3.9, true)
	require.NoError(t, err)
	require.Equal(t, int64(-3), v)
}
