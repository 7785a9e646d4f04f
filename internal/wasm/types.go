// Package wasm implements the core of a WebAssembly 1.0 runtime: the
// binary decoder, the validator, the store and its instances, module
// instantiation, and the stack-based execution engine. It is the
// engine room behind the host-facing package wasmone.
package wasm

import (
	"fmt"

	"github.com/wasmone/wasmone/api"
)

// ValueType re-exports api.ValueType so the rest of this package need
// not import api directly for the common case.
type ValueType = api.ValueType

const (
	ValueTypeI32 = api.ValueTypeI32
	ValueTypeI64 = api.ValueTypeI64
	ValueTypeF32 = api.ValueTypeF32
	ValueTypeF64 = api.ValueTypeF64
)

// Value re-exports api.Value, the tagged runtime value that crosses
// the value stack, locals, globals, and the host boundary uniformly.
type Value = api.Value

// I32, U32, I64, U64, F32, F64 re-export api's Value constructors.
var (
	I32 = api.I32
	U32 = api.U32
	I64 = api.I64
	U64 = api.U64
	F32 = api.F32
	F64 = api.F64
)

// ExternKind re-exports api.ExternKind.
type ExternKind = api.ExternKind

const (
	ExternKindFunc   = api.ExternKindFunc
	ExternKindTable  = api.ExternKindTable
	ExternKindMemory = api.ExternKindMemory
	ExternKindGlobal = api.ExternKindGlobal
)

// Index is a 0-based position into one of a module's index spaces
// (type, function, table, memory, global, local, or label).
type Index = uint32

// FuncType is a function signature: a parameter sequence and a result
// sequence. WebAssembly 1.0 allows at most one result.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#function-types%E2%91%A0
type FuncType struct {
	Params  []ValueType
	Results []ValueType
}

// EqualsSignature reports whether t has exactly the given parameter
// and result types, used when checking import/export compatibility.
func (t *FuncType) EqualsSignature(params, results []ValueType) bool {
	return valueTypesEqual(t.Params, params) && valueTypesEqual(t.Results, results)
}

func valueTypesEqual(a, b []ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// String renders t the way the WebAssembly text format would, e.g.
// "(func (param i32 i32) (result i32))".
func (t *FuncType) String() string {
	s := "(func"
	if len(t.Params) > 0 {
		s += " (param"
		for _, p := range t.Params {
			s += " " + api.ValueTypeName(p)
		}
		s += ")"
	}
	if len(t.Results) > 0 {
		s += " (result"
		for _, r := range t.Results {
			s += " " + api.ValueTypeName(r)
		}
		s += ")"
	}
	return s + ")"
}

// Limits describes the min (required) and max (optional) size of a
// table or memory, in units of table elements or 64KiB memory pages.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#limits%E2%91%A0
type Limits struct {
	Min uint32
	Max *uint32 // nil when unbounded
}

// TableType describes a table of function references. WebAssembly 1.0
// has exactly one element kind: funcref.
type TableType struct {
	Limits Limits
}

// MemoryType describes a linear memory, in units of 64KiB pages.
type MemoryType struct {
	Limits Limits
}

// GlobalType describes a global variable's value type and mutability.
type GlobalType struct {
	ValType ValueType
	Mutable bool
}

// BlockType is the result type of a structured control instruction:
// either no result (void) or a single value type. WebAssembly 1.0
// does not support multi-value block types.
type BlockType struct {
	Empty  bool
	Result ValueType
}

// Results returns bt's result arity as a value type slice, for reuse
// with FuncType-shaped code.
func (bt BlockType) Results() []ValueType {
	if bt.Empty {
		return nil
	}
	return []ValueType{bt.Result}
}

// Import describes one entry of the import section: a two-level name
// plus a typed descriptor selected by Kind.
type Import struct {
	Module, Name string
	Kind         ExternKind

	// Exactly one of the following is meaningful, selected by Kind.
	DescFunc   Index // type index, when Kind == ExternKindFunc
	DescTable  TableType
	DescMemory MemoryType
	DescGlobal GlobalType
}

// Export describes one entry of the export section.
type Export struct {
	Name  string
	Kind  ExternKind
	Index Index
}

// ConstExpr is a constant expression as used for global initializers
// and element/data segment offsets: a single const or global.get,
// followed by end.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#constant-expressions%E2%91%A0
type ConstExpr struct {
	Opcode    Opcode
	ImmI32    int32
	ImmI64    int64
	ImmF32    float32
	ImmF64    float64
	GlobalIdx Index // meaningful only when Opcode == OpGlobalGet
}

// Global is a module-defined global variable: its type plus its
// initializer expression.
type Global struct {
	Type GlobalType
	Init ConstExpr
}

// ElementSegment initializes a range of a table with function indices.
type ElementSegment struct {
	TableIndex  Index
	Offset      ConstExpr
	FuncIndices []Index
}

// DataSegment initializes a range of linear memory with bytes.
type DataSegment struct {
	MemIndex Index
	Offset   ConstExpr
	Init     []byte
}

// Local is one run of declared locals of a single type, as they are
// encoded in a function body (count-compressed).
type Local struct {
	Count uint32
	Type  ValueType
}

// Function is a module-defined function: its signature (by type
// index), its declared locals, and its instruction sequence.
type Function struct {
	TypeIndex Index
	Locals    []Local
	Body      []Instr
}

// NumLocals returns the number of locals declared by f, not counting
// parameters.
func (f *Function) NumLocals() int {
	n := 0
	for _, l := range f.Locals {
		n += int(l.Count)
	}
	return n
}

// CustomSection is an opaque, name-tagged blob carried between known
// sections. The decoder preserves these but assigns them no meaning.
type CustomSection struct {
	Name    string
	Payload []byte
}

// Module is the decoded abstract syntax tree of a WebAssembly binary,
// as produced by Decode and consumed by Validate and Instantiate.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#modules%E2%91%A0
type Module struct {
	Types    []FuncType
	Imports  []Import
	Funcs    []Function // module-defined functions only, imports excluded
	Tables   []TableType
	Memories []MemoryType
	Globals  []Global
	Exports  []Export
	Start    *Index
	Elements []ElementSegment
	Data     []DataSegment
	Customs  []CustomSection

	// funcBodiesDecoded counts how many function bodies decodeCodeSection
	// filled in, so Decode can catch a code section whose vector length
	// silently disagreed with the function section's (decodeCodeSection
	// already checks this directly; this is a second, whole-module check
	// for the case where the code section was absent entirely).
	funcBodiesDecoded int
}

// ImportedFuncCount returns how many of m's imports are functions.
func (m *Module) ImportedFuncCount() int {
	n := 0
	for _, i := range m.Imports {
		if i.Kind == ExternKindFunc {
			n++
		}
	}
	return n
}

// ImportedTableCount, ImportedMemoryCount, ImportedGlobalCount mirror
// ImportedFuncCount for the other three index spaces.
func (m *Module) ImportedTableCount() int  { return m.importedCount(ExternKindTable) }
func (m *Module) ImportedMemoryCount() int { return m.importedCount(ExternKindMemory) }
func (m *Module) ImportedGlobalCount() int { return m.importedCount(ExternKindGlobal) }

func (m *Module) importedCount(k ExternKind) int {
	n := 0
	for _, i := range m.Imports {
		if i.Kind == k {
			n++
		}
	}
	return n
}

// FuncTypeOf returns the signature of the funcIdx'th function in the
// function index space (imports first, then module-defined), or an
// error if the index is out of range.
func (m *Module) FuncTypeOf(funcIdx Index) (*FuncType, error) {
	importedFuncs := 0
	for _, i := range m.Imports {
		if i.Kind != ExternKindFunc {
			continue
		}
		if Index(importedFuncs) == funcIdx {
			if int(i.DescFunc) >= len(m.Types) {
				return nil, fmt.Errorf("wasm: import %d: type index %d out of range", importedFuncs, i.DescFunc)
			}
			return &m.Types[i.DescFunc], nil
		}
		importedFuncs++
	}
	idx := int(funcIdx) - importedFuncs
	if idx < 0 || idx >= len(m.Funcs) {
		return nil, fmt.Errorf("wasm: function index %d out of range", funcIdx)
	}
	ti := m.Funcs[idx].TypeIndex
	if int(ti) >= len(m.Types) {
		return nil, fmt.Errorf("wasm: function %d: type index %d out of range", funcIdx, ti)
	}
	return &m.Types[ti], nil
}
