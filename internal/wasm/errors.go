package wasm

import "fmt"

// DecodeError reports a malformed binary module (§7.1): bad magic or
// version, a truncated LEB128, an unknown opcode, invalid UTF-8, or a
// section-ordering violation. Offset is the byte position at which the
// decoder detected the problem, relative to the start of the input.
type DecodeError struct {
	Offset int64
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("wasm: decode error at offset %d: %s", e.Offset, e.Reason)
}

// ValidationError reports a well-formed but ill-typed module (§7.2).
// FuncIndex is -1 for whole-module checks (duplicate export names,
// out-of-range start function, and so on).
type ValidationError struct {
	FuncIndex int
	Reason    string
}

func (e *ValidationError) Error() string {
	if e.FuncIndex < 0 {
		return fmt.Sprintf("wasm: invalid module: %s", e.Reason)
	}
	return fmt.Sprintf("wasm: invalid function[%d]: %s", e.FuncIndex, e.Reason)
}

// LinkError reports an instantiation-time mismatch between a module's
// imports and the extern values supplied for them (§7.3).
type LinkError struct {
	ImportIndex int
	Reason      string
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("wasm: link error: import[%d]: %s", e.ImportIndex, e.Reason)
}

// TrapKind classifies why an invocation trapped (§7.4). These strings
// are also used by the test harness's assert_trap substring matching
// (§6), so they double as the human-readable reason.
type TrapKind string

const (
	TrapUnreachable           TrapKind = "unreachable"
	TrapIntegerDivideByZero   TrapKind = "integer divide by zero"
	TrapIntegerOverflow       TrapKind = "integer overflow"
	TrapInvalidConversion     TrapKind = "invalid conversion to integer"
	TrapOutOfBoundsMemory     TrapKind = "out of bounds memory access"
	TrapOutOfBoundsTable      TrapKind = "undefined element"
	TrapIndirectCallTypeMismatch TrapKind = "indirect call type mismatch"
	TrapCallStackExhausted    TrapKind = "call stack exhausted"
	TrapUninitializedElement  TrapKind = "uninitialized element"
)

// TrapError is returned by Invoke when execution traps. It unwinds the
// entire invocation; the store's existing instances and any writes
// already performed to memory/globals/tables before the trap are not
// rolled back, per the WebAssembly specification.
type TrapError struct {
	Kind TrapKind
}

func (e *TrapError) Error() string { return "wasm: trap: " + string(e.Kind) }

func trap(kind TrapKind) error { return &TrapError{Kind: kind} }
