package wasm

// ModuleInstance is a resolved view of a decoded module inside a
// store: symbolic indices (import order, then own allocations, in
// declaration order) are replaced by store addresses, and export
// names resolve directly to extern values (§3 "Module instance").
type ModuleInstance struct {
	Types   []FuncType
	Funcs   []Addr
	Tables  []Addr
	Mems    []Addr
	Globals []Addr
	Exports map[string]ExternVal
}

// ExternKindTag identifies which of the four extern value variants a
// given ExternVal holds.
type ExternKindTag int

const (
	ExternFunc ExternKindTag = iota
	ExternTable
	ExternMemory
	ExternGlobal
)

// ExternVal is a reference into a store, crossing the host/Wasm
// boundary as either an import value supplied by the embedder or an
// export value returned to it (§3, §6 "Extern values at the host
// boundary", GLOSSARY "Extern value").
type ExternVal struct {
	Kind ExternKindTag
	Addr Addr
}

func (m *ModuleInstance) funcAddr(idx Index) Addr   { return m.Funcs[idx] }
func (m *ModuleInstance) tableAddr(idx Index) Addr  { return m.Tables[idx] }
func (m *ModuleInstance) memAddr(idx Index) Addr    { return m.Mems[idx] }
func (m *ModuleInstance) globalAddr(idx Index) Addr { return m.Globals[idx] }
