package numeric

import "math"

// WasmMin64 implements the f64.min / f32.min (widened) semantics: NaN
// is propagated regardless of which operand carries it, and -0 is
// ordered strictly below +0. math.Min does not have either property,
// so this is adapted from the reference runtime's compatibility shim
// rather than delegating to the standard library.
func WasmMin64(x, y float64) float64 {
	switch {
	case math.IsNaN(x) || math.IsNaN(y):
		return math.NaN()
	case math.IsInf(x, -1) || math.IsInf(y, -1):
		return math.Inf(-1)
	case x == 0 && x == y:
		if math.Signbit(x) {
			return x
		}
		return y
	}
	if x < y {
		return x
	}
	return y
}

// WasmMax64 implements the f64.max / f32.max (widened) semantics.
func WasmMax64(x, y float64) float64 {
	switch {
	case math.IsNaN(x) || math.IsNaN(y):
		return math.NaN()
	case math.IsInf(x, 1) || math.IsInf(y, 1):
		return math.Inf(1)
	case x == 0 && x == y:
		if math.Signbit(x) {
			return y
		}
		return x
	}
	if x > y {
		return x
	}
	return y
}

// WasmMin32 is WasmMin64 narrowed to float32 operands and result.
func WasmMin32(x, y float32) float32 {
	return float32(WasmMin64(float64(x), float64(y)))
}

// WasmMax32 is WasmMax64 narrowed to float32 operands and result.
func WasmMax32(x, y float32) float32 {
	return float32(WasmMax64(float64(x), float64(y)))
}

// Nearest64 implements f64.nearest: round to the nearest integer,
// ties to even, matching math.RoundToEven.
func Nearest64(x float64) float64 { return math.RoundToEven(x) }

// Nearest32 implements f32.nearest.
func Nearest32(x float32) float32 { return float32(math.RoundToEven(float64(x))) }

// TruncToInt32 implements trunc_fN_s/u to i32: it traps on NaN, on
// infinities, and whenever the truncated value falls outside the
// target's range (§4.1).
func TruncToInt32(v float64, signed bool) (int32, error) {
	if math.IsNaN(v) {
		return 0, ErrInvalidConversion
	}
	t := math.Trunc(v)
	if signed {
		if t < -2147483648 || t >= 2147483648 {
			return 0, ErrIntegerOverflow
		}
		return int32(t), nil
	}
	if t < 0 || t >= 4294967296 {
		return 0, ErrIntegerOverflow
	}
	return int32(uint32(t)), nil
}

// TruncToInt64 implements trunc_fN_s/u to i64.
func TruncToInt64(v float64, signed bool) (int64, error) {
	if math.IsNaN(v) {
		return 0, ErrInvalidConversion
	}
	t := math.Trunc(v)
	if signed {
		if t < -9223372036854775808 || t >= 9223372036854775808 {
			return 0, ErrIntegerOverflow
		}
		return int64(t), nil
	}
	if t < 0 || t >= 18446744073709551616 {
		return 0, ErrIntegerOverflow
	}
	return int64(uint64(t)), nil
}
