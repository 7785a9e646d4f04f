// Package api holds the value and type vocabulary shared between the
// embedding surface (package wasmone) and its internal implementation.
package api

import (
	"fmt"
	"math"
)

// ValueType is one of the four value types defined by WebAssembly 1.0.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-valtype
type ValueType = byte

const (
	// ValueTypeI32 is a 32-bit integer.
	ValueTypeI32 ValueType = 0x7f
	// ValueTypeI64 is a 64-bit integer.
	ValueTypeI64 ValueType = 0x7e
	// ValueTypeF32 is a 32-bit IEEE 754 floating point number.
	ValueTypeF32 ValueType = 0x7d
	// ValueTypeF64 is a 64-bit IEEE 754 floating point number.
	ValueTypeF64 ValueType = 0x7c
)

// ValueTypeName returns the WebAssembly text format name of t, or
// "unknown" if t is not one of the ValueType constants.
func ValueTypeName(t ValueType) string {
	switch t {
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	}
	return "unknown"
}

// ExternKind classifies an import or export.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#external-types%E2%91%A0
type ExternKind = byte

const (
	ExternKindFunc   ExternKind = 0x00
	ExternKindTable  ExternKind = 0x01
	ExternKindMemory ExternKind = 0x02
	ExternKindGlobal ExternKind = 0x03
)

// ExternKindName returns the WebAssembly text format name of k.
func ExternKindName(k ExternKind) string {
	switch k {
	case ExternKindFunc:
		return "func"
	case ExternKindTable:
		return "table"
	case ExternKindMemory:
		return "memory"
	case ExternKindGlobal:
		return "global"
	}
	return fmt.Sprintf("unknown(%#x)", k)
}

// Value is a tagged Wasm runtime value. The zero Value is not valid;
// use the I32/I64/F32/F64 constructors.
//
// Values travel across the embedding boundary and within the engine as
// a (Type, bits) pair rather than as a Go interface, matching the
// uint64-bit-pattern representation the interpreter's value stack uses
// internally (see internal/wasm.callEngine.stack).
type Value struct {
	Type ValueType
	bits uint64
}

// I32 constructs an i32 value, reinterpreting v's bits as unsigned.
func I32(v int32) Value { return Value{Type: ValueTypeI32, bits: uint64(uint32(v))} }

// U32 constructs an i32 value from its unsigned bit pattern.
func U32(v uint32) Value { return Value{Type: ValueTypeI32, bits: uint64(v)} }

// I64 constructs an i64 value.
func I64(v int64) Value { return Value{Type: ValueTypeI64, bits: uint64(v)} }

// U64 constructs an i64 value from its unsigned bit pattern.
func U64(v uint64) Value { return Value{Type: ValueTypeI64, bits: v} }

// F32 constructs an f32 value.
func F32(v float32) Value { return Value{Type: ValueTypeF32, bits: uint64(math.Float32bits(v))} }

// F64 constructs an f64 value.
func F64(v float64) Value { return Value{Type: ValueTypeF64, bits: math.Float64bits(v)} }

// I32 returns v's bits reinterpreted as a signed 32-bit integer.
func (v Value) I32() int32 { return int32(uint32(v.bits)) }

// U32 returns v's low 32 bits.
func (v Value) U32() uint32 { return uint32(v.bits) }

// I64 returns v's bits as a signed 64-bit integer.
func (v Value) I64() int64 { return int64(v.bits) }

// U64 returns v's raw 64-bit pattern.
func (v Value) U64() uint64 { return v.bits }

// F32 returns v's bits reinterpreted as a float32.
func (v Value) F32() float32 { return math.Float32frombits(uint32(v.bits)) }

// F64 returns v's bits reinterpreted as a float64.
func (v Value) F64() float64 { return math.Float64frombits(v.bits) }

// String renders v the way the WebAssembly text format would.
func (v Value) String() string {
	switch v.Type {
	case ValueTypeI32:
		return fmt.Sprintf("i32:%d", v.I32())
	case ValueTypeI64:
		return fmt.Sprintf("i64:%d", v.I64())
	case ValueTypeF32:
		return fmt.Sprintf("f32:%g", v.F32())
	case ValueTypeF64:
		return fmt.Sprintf("f64:%g", v.F64())
	default:
		return "invalid"
	}
}
