package wasm

import "fmt"

// PageSize is the fixed size, in bytes, of one WebAssembly linear
// memory page (§3 invariants, GLOSSARY "Page").
const PageSize = 65536

// maxMemoryPages is the format's own absolute ceiling on linear memory
// size: a 32-bit address space divided into PageSize pages (§3
// invariants). A memory with no declared maximum is still bound by
// this limit; an embedder-configured ceiling below it is layered on
// top by Module.CheckMemoryCeiling, not a replacement for it.
const maxMemoryPages = 65536

// Addr is an opaque, dense index into one of the store's instance
// pools. Addresses are never reused and never dereferenced as
// pointers, keeping the store self-contained and its instances
// reference-cycle free (§9 "Store addresses").
type Addr = int

// HostFunction is a trampoline supplied by the embedder for an
// imported function (§4.5, §6 "Extern values at the host boundary").
// It receives already-converted argument values and returns result
// values or a trap.
type HostFunction struct {
	Type FuncType
	Func func(args []Value) ([]Value, error)
}

// FuncInstance is a store-owned function: either a Wasm-defined
// function closed over its defining module instance, or a host
// function trampoline (§3 "Store (runtime)").
type FuncInstance struct {
	Type   FuncType
	Module *ModuleInstance // nil for host functions
	Code   *Function       // nil for host functions
	Host   *HostFunction   // nil for Wasm functions
}

func (f *FuncInstance) IsHost() bool { return f.Host != nil }

// TableInstance is a store-owned table: a dense vector of optional
// function addresses (funcref, Wasm 1.0's only element kind) plus an
// optional maximum (§3, §4.5).
type TableInstance struct {
	Elems []*Addr // nil entry means no function at that slot
	Max   *uint32
}

// MemInstance is a store-owned linear memory: a byte vector whose
// length is always a page multiple, plus an optional maximum in pages
// (§3 invariants).
type MemInstance struct {
	Data []byte
	Max  *uint32
}

// PageCount returns the memory's current size in pages.
func (m *MemInstance) PageCount() uint32 { return uint32(len(m.Data) / PageSize) }

// GlobalInstance is a store-owned global variable: its current value
// and whether it may be written by global.set (§3, §4.7).
type GlobalInstance struct {
	Type  GlobalType
	Value Value
}

// Store is the runtime-wide container of every mutable allocation
// (§3 "Store (runtime)", §4.5). Its four pools are append-only: once
// an instance is allocated its address is stable for the store's
// entire lifetime (§3 invariants).
type Store struct {
	Funcs   []*FuncInstance
	Tables  []*TableInstance
	Mems    []*MemInstance
	Globals []*GlobalInstance
}

// NewStore allocates an empty store, ready to host one or more module
// instances (§4.5).
func NewStore() *Store { return &Store{} }

func (s *Store) allocFunc(fi *FuncInstance) Addr {
	s.Funcs = append(s.Funcs, fi)
	return len(s.Funcs) - 1
}

func (s *Store) allocTable(tt TableType) Addr {
	ti := &TableInstance{Elems: make([]*Addr, tt.Limits.Min), Max: tt.Limits.Max}
	s.Tables = append(s.Tables, ti)
	return len(s.Tables) - 1
}

func (s *Store) allocMemory(mt MemoryType) Addr {
	mi := &MemInstance{Data: make([]byte, int(mt.Limits.Min)*PageSize), Max: mt.Limits.Max}
	s.Mems = append(s.Mems, mi)
	return len(s.Mems) - 1
}

func (s *Store) allocGlobal(gt GlobalType, v Value) Addr {
	s.Globals = append(s.Globals, &GlobalInstance{Type: gt, Value: v})
	return len(s.Globals) - 1
}

// AddHostFunc registers fn in the store and returns its address, for
// embedders building an import list to pass to Instantiate (§4.8).
func (s *Store) AddHostFunc(fn *HostFunction) Addr {
	return s.allocFunc(&FuncInstance{Type: fn.Type, Host: fn})
}

// MemorySize returns the current size, in pages, of the memory at addr.
func (s *Store) MemorySize(addr Addr) (uint32, error) {
	mi, err := s.memAt(addr)
	if err != nil {
		return 0, err
	}
	return mi.PageCount(), nil
}

// MemoryGrow grows the memory at addr by delta pages, returning the
// previous size on success or -1 (as the spec's sentinel) if growth
// would exceed the memory's maximum (§4.7 "memory.grow").
func (s *Store) MemoryGrow(addr Addr, delta uint32) (int32, error) {
	mi, err := s.memAt(addr)
	if err != nil {
		return 0, err
	}
	prev := mi.PageCount()
	next := prev + delta
	if next < prev { // overflow
		return -1, nil
	}
	if next > maxMemoryPages {
		return -1, nil
	}
	if mi.Max != nil && next > *mi.Max {
		return -1, nil
	}
	grown := make([]byte, int(next)*PageSize)
	copy(grown, mi.Data)
	mi.Data = grown
	return int32(prev), nil
}

// MemoryRead copies length bytes starting at offset out of the memory
// at addr, trapping on out-of-bounds access (§4.7).
func (s *Store) MemoryRead(addr Addr, offset uint64, length uint64) ([]byte, error) {
	mi, err := s.memAt(addr)
	if err != nil {
		return nil, err
	}
	if offset+length > uint64(len(mi.Data)) || offset+length < offset {
		return nil, trap(TrapOutOfBoundsMemory)
	}
	out := make([]byte, length)
	copy(out, mi.Data[offset:offset+length])
	return out, nil
}

// MemoryWrite copies data into the memory at addr starting at offset,
// trapping on out-of-bounds access.
func (s *Store) MemoryWrite(addr Addr, offset uint64, data []byte) error {
	mi, err := s.memAt(addr)
	if err != nil {
		return err
	}
	length := uint64(len(data))
	if offset+length > uint64(len(mi.Data)) || offset+length < offset {
		return trap(TrapOutOfBoundsMemory)
	}
	copy(mi.Data[offset:offset+length], data)
	return nil
}

// GlobalGet returns the current value of the global at addr.
func (s *Store) GlobalGet(addr Addr) (Value, error) {
	gi, err := s.globalAt(addr)
	if err != nil {
		return Value{}, err
	}
	return gi.Value, nil
}

// GlobalSet writes v to the global at addr. Mutability is enforced by
// the validator (§4.4 "global.set"); this accessor additionally
// checks it for host callers that bypass validated Wasm code (§4.8).
func (s *Store) GlobalSet(addr Addr, v Value) error {
	gi, err := s.globalAt(addr)
	if err != nil {
		return err
	}
	if !gi.Type.Mutable {
		return fmt.Errorf("wasm: global %d is immutable", addr)
	}
	gi.Value = v
	return nil
}

// TableGet returns the function address stored at index in the table
// at addr, or nil if the slot is empty. It traps if index is out of
// bounds (§4.7 "call_indirect").
func (s *Store) TableGet(addr Addr, index uint32) (*Addr, error) {
	ti, err := s.tableAt(addr)
	if err != nil {
		return nil, err
	}
	if int(index) >= len(ti.Elems) {
		return nil, trap(TrapOutOfBoundsTable)
	}
	return ti.Elems[index], nil
}

// TableSet stores funcAddr at index in the table at addr, used for
// host table mutation (§4.8).
func (s *Store) TableSet(addr Addr, index uint32, funcAddr *Addr) error {
	ti, err := s.tableAt(addr)
	if err != nil {
		return err
	}
	if int(index) >= len(ti.Elems) {
		return trap(TrapOutOfBoundsTable)
	}
	ti.Elems[index] = funcAddr
	return nil
}

func (s *Store) memAt(addr Addr) (*MemInstance, error) {
	if addr < 0 || addr >= len(s.Mems) {
		return nil, fmt.Errorf("wasm: memory address %d out of range", addr)
	}
	return s.Mems[addr], nil
}

func (s *Store) tableAt(addr Addr) (*TableInstance, error) {
	if addr < 0 || addr >= len(s.Tables) {
		return nil, fmt.Errorf("wasm: table address %d out of range", addr)
	}
	return s.Tables[addr], nil
}

func (s *Store) globalAt(addr Addr) (*GlobalInstance, error) {
	if addr < 0 || addr >= len(s.Globals) {
		return nil, fmt.Errorf("wasm: global address %d out of range", addr)
	}
	return s.Globals[addr], nil
}

func (s *Store) funcAt(addr Addr) (*FuncInstance, error) {
	if addr < 0 || addr >= len(s.Funcs) {
		return nil, fmt.Errorf("wasm: function address %d out of range", addr)
	}
	return s.Funcs[addr], nil
}
