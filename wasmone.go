// Package wasmone is a host-facing API for decoding, validating,
// instantiating, and running WebAssembly 1.0 modules. It is a thin
// wrapper over internal/wasm, mirroring the layering the teacher
// (wazero) keeps between its root package and internal/wasm: the
// internal package owns every algorithm, and this package exists only
// to present a stable, documented surface to embedders (§4.8).
package wasmone

import (
	"github.com/wasmone/wasmone/api"
	"github.com/wasmone/wasmone/internal/wasm"
)

// ValueType and its constants re-export api's, so callers building
// host functions never need to import the api package.
type ValueType = api.ValueType

const (
	ValueTypeI32 = api.ValueTypeI32
	ValueTypeI64 = api.ValueTypeI64
	ValueTypeF32 = api.ValueTypeF32
	ValueTypeF64 = api.ValueTypeF64
)

// Value is a tagged Wasm runtime value, crossing the embedding
// boundary the same way it crosses the interpreter's own value stack.
type Value = api.Value

// I32, U32, I64, U64, F32, F64 construct Values of the matching type.
var (
	I32 = api.I32
	U32 = api.U32
	I64 = api.I64
	U64 = api.U64
	F32 = api.F32
	F64 = api.F64
)

// Addr is an opaque store address, returned by Instance.Exports and
// consumed by Store.Invoke and the accessor methods.
type Addr = wasm.Addr

// ExternKind classifies which of a module's four index spaces an
// ExternVal refers to (§3, GLOSSARY "Extern value").
type ExternKind int

const (
	ExternKindFunc ExternKind = iota
	ExternKindTable
	ExternKindMemory
	ExternKindGlobal
)

// ExternVal is a reference into a Store, returned by Instance.Exports
// and accepted by Store.Instantiate as an import value.
type ExternVal struct {
	Kind ExternKind
	Addr Addr
}

func toInternalExternVal(ev ExternVal) wasm.ExternVal {
	return wasm.ExternVal{Kind: wasm.ExternKindTag(ev.Kind), Addr: ev.Addr}
}

func fromInternalExternVal(ev wasm.ExternVal) ExternVal {
	return ExternVal{Kind: ExternKind(ev.Kind), Addr: ev.Addr}
}

// Module is a decoded, optionally validated WebAssembly module (§3
// "Module (static)").
type Module struct {
	m *wasm.Module
}

// Decode parses a binary WebAssembly module, returning a DecodeError
// if data is malformed (§4.2, §7.1). Decode does not validate the
// module; call Validate before Instantiate.
func Decode(data []byte) (*Module, error) {
	m, err := wasm.Decode(data)
	if err != nil {
		return nil, err
	}
	return &Module{m: m}, nil
}

// Validate runs algorithmic validation over m (§4.4, §7.2). A module
// must validate successfully before it can be instantiated.
func (m *Module) Validate() error {
	return m.m.Validate()
}

// ValidateWithConfig runs Validate, then additionally rejects any
// memory m declares or imports whose minimum or maximum exceeds
// cfg's configured page ceiling.
func (m *Module) ValidateWithConfig(cfg *RuntimeConfig) error {
	if err := m.m.Validate(); err != nil {
		return err
	}
	return m.m.CheckMemoryCeiling(cfg.memoryMaxPages)
}

// HostFunction is an embedder-supplied function importable by a
// module, described by the signature the importing module expects
// (§4.5, §6 "Extern values at the host boundary").
type HostFunction struct {
	Params  []ValueType
	Results []ValueType
	Func    func(args []Value) ([]Value, error)
}

// Store owns every runtime allocation shared by the module instances
// created from it (§3 "Store (runtime)", §4.5).
type Store struct {
	s *wasm.Store
}

// NewStore allocates an empty store.
func NewStore() *Store {
	return &Store{s: wasm.NewStore()}
}

// AddHostFunc registers fn in s and returns its address as an
// ExternVal, ready to be passed to Instantiate's imports list.
func (s *Store) AddHostFunc(fn HostFunction) ExternVal {
	addr := s.s.AddHostFunc(&wasm.HostFunction{
		Type: wasm.FuncType{Params: fn.Params, Results: fn.Results},
		Func: fn.Func,
	})
	return ExternVal{Kind: ExternKindFunc, Addr: addr}
}

// Instance is a module instance allocated into a Store (§3 "Module
// instance", §4.6).
type Instance struct {
	inst *wasm.ModuleInstance
}

// Instantiate allocates a new instance of m into s, resolving imports
// in declaration order against the supplied extern values (§4.6).
func (s *Store) Instantiate(m *Module, imports []ExternVal) (*Instance, error) {
	wasmImports := make([]wasm.ExternVal, len(imports))
	for i, ev := range imports {
		wasmImports[i] = toInternalExternVal(ev)
	}
	inst, err := wasm.Instantiate(s.s, m.m, wasmImports)
	if err != nil {
		return nil, err
	}
	return &Instance{inst: inst}, nil
}

// Exports returns i's export name-to-value map (§3 "Module instance").
func (i *Instance) Exports() map[string]ExternVal {
	out := make(map[string]ExternVal, len(i.inst.Exports))
	for name, ev := range i.inst.Exports {
		out[name] = fromInternalExternVal(ev)
	}
	return out
}

// Invoke calls the function at funcAddr with args, returning its
// result values or an error; a trap is reported as internal/wasm's
// *TrapError (§4.8 "invoke").
func (s *Store) Invoke(funcAddr Addr, args ...Value) ([]Value, error) {
	return wasm.Invoke(s.s, funcAddr, args)
}

// MemorySize returns the current size, in pages, of the memory at addr.
func (s *Store) MemorySize(addr Addr) (uint32, error) { return s.s.MemorySize(addr) }

// MemoryGrow grows the memory at addr by delta pages, returning its
// previous size, or -1 if growth would exceed its maximum (§4.7).
func (s *Store) MemoryGrow(addr Addr, delta uint32) (int32, error) { return s.s.MemoryGrow(addr, delta) }

// MemoryRead copies length bytes from the memory at addr starting at
// offset, trapping on out-of-bounds access.
func (s *Store) MemoryRead(addr Addr, offset, length uint64) ([]byte, error) {
	return s.s.MemoryRead(addr, offset, length)
}

// MemoryWrite copies data into the memory at addr starting at offset,
// trapping on out-of-bounds access.
func (s *Store) MemoryWrite(addr Addr, offset uint64, data []byte) error {
	return s.s.MemoryWrite(addr, offset, data)
}

// GlobalGet returns the current value of the global at addr.
func (s *Store) GlobalGet(addr Addr) (Value, error) { return s.s.GlobalGet(addr) }

// GlobalSet writes v to the global at addr, failing if it is immutable.
func (s *Store) GlobalSet(addr Addr, v Value) error { return s.s.GlobalSet(addr, v) }

// TableGet returns the function address stored at index in the table
// at addr, or nil if the slot is empty.
func (s *Store) TableGet(addr Addr, index uint32) (*Addr, error) { return s.s.TableGet(addr, index) }

// TableSet stores funcAddr at index in the table at addr.
func (s *Store) TableSet(addr Addr, index uint32, funcAddr *Addr) error {
	return s.s.TableSet(addr, index, funcAddr)
}
