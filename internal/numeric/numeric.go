// Package numeric implements the fixed-width integer and IEEE 754
// primitives with exact WebAssembly 1.0 semantics (§4.1 of the
// specification): trapping division and remainder (including the
// signed division corner case), rotations and bit counts, float
// nearest and float-to-integer truncation, and the min/max/NaN rules
// for floats. Wrapping add/sub/mul and shifts are not implemented
// here; the interpreter performs them with Go's native operators.
//
// Operations that the Wasm spec defines as trapping return one of the
// sentinel errors below instead of a result; callers (the interpreter)
// translate that into a wasm.TrapError with the appropriate TrapKind.
package numeric

import "errors"

// Sentinel errors returned by the operations below that can trap.
// These are compared with errors.Is by the interpreter, never surfaced
// to a host caller directly.
var (
	ErrIntegerDivideByZero = errors.New("integer divide by zero")
	ErrIntegerOverflow     = errors.New("integer overflow")
	ErrInvalidConversion   = errors.New("invalid conversion to integer")
)

// DivS32 implements i32.div_s: truncated signed division, trapping on
// division by zero and on the INT32_MIN / -1 overflow case.
func DivS32(a, b int32) (int32, error) {
	if b == 0 {
		return 0, ErrIntegerDivideByZero
	}
	if a == -1<<31 && b == -1 {
		return 0, ErrIntegerOverflow
	}
	return a / b, nil
}

// RemS32 implements i32.rem_s. Unlike DivS32, the INT32_MIN / -1 case
// does not trap: the result is defined to be 0.
func RemS32(a, b int32) (int32, error) {
	if b == 0 {
		return 0, ErrIntegerDivideByZero
	}
	if a == -1<<31 && b == -1 {
		return 0, nil
	}
	return a % b, nil
}

// DivU32 implements i32.div_u.
func DivU32(a, b uint32) (uint32, error) {
	if b == 0 {
		return 0, ErrIntegerDivideByZero
	}
	return a / b, nil
}

// RemU32 implements i32.rem_u.
func RemU32(a, b uint32) (uint32, error) {
	if b == 0 {
		return 0, ErrIntegerDivideByZero
	}
	return a % b, nil
}

// DivS64 implements i64.div_s.
func DivS64(a, b int64) (int64, error) {
	if b == 0 {
		return 0, ErrIntegerDivideByZero
	}
	if a == -1<<63 && b == -1 {
		return 0, ErrIntegerOverflow
	}
	return a / b, nil
}

// RemS64 implements i64.rem_s.
func RemS64(a, b int64) (int64, error) {
	if b == 0 {
		return 0, ErrIntegerDivideByZero
	}
	if a == -1<<63 && b == -1 {
		return 0, nil
	}
	return a % b, nil
}

// DivU64 implements i64.div_u.
func DivU64(a, b uint64) (uint64, error) {
	if b == 0 {
		return 0, ErrIntegerDivideByZero
	}
	return a / b, nil
}

// RemU64 implements i64.rem_u.
func RemU64(a, b uint64) (uint64, error) {
	if b == 0 {
		return 0, ErrIntegerDivideByZero
	}
	return a % b, nil
}

