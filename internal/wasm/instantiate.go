package wasm

import "fmt"

// Instantiate allocates a new module instance into s for the validated
// module m, resolving m's imports against the supplied extern values
// in declaration order (§4.6). It evaluates global initializers,
// bounds-checks and copies element/data segments, and — if m declares
// one — invokes the start function before returning.
//
// Instantiation either fully succeeds or leaves no partially-copied
// segment behind (§4.6 step 4): every offset is checked before any
// copy begins.
func Instantiate(s *Store, m *Module, imports []ExternVal) (*ModuleInstance, error) {
	if len(imports) != len(m.Imports) {
		return nil, &LinkError{ImportIndex: len(imports), Reason: fmt.Sprintf("module requires %d imports, got %d", len(m.Imports), len(imports))}
	}

	inst := &ModuleInstance{Types: m.Types, Exports: map[string]ExternVal{}}
	for i, imp := range m.Imports {
		ev := imports[i]
		if err := linkImport(s, m, imp, ev); err != nil {
			return nil, &LinkError{ImportIndex: i, Reason: err.Error()}
		}
		switch imp.Kind {
		case ExternKindFunc:
			inst.Funcs = append(inst.Funcs, ev.Addr)
		case ExternKindTable:
			inst.Tables = append(inst.Tables, ev.Addr)
		case ExternKindMemory:
			inst.Mems = append(inst.Mems, ev.Addr)
		case ExternKindGlobal:
			inst.Globals = append(inst.Globals, ev.Addr)
		}
	}

	// Auxiliary instance used only to evaluate constant expressions:
	// they may reference imported globals but never module-defined
	// ones, so this view need not see the allocations made below
	// (§4.6 step 3).
	auxInst := &ModuleInstance{Globals: inst.Globals}

	for _, g := range m.Globals {
		v, err := evalConstExpr(s, auxInst, g.Init)
		if err != nil {
			return nil, err
		}
		inst.Globals = append(inst.Globals, s.allocGlobal(g.Type, v))
	}
	for _, tt := range m.Tables {
		inst.Tables = append(inst.Tables, s.allocTable(tt))
	}
	for _, mt := range m.Memories {
		inst.Mems = append(inst.Mems, s.allocMemory(mt))
	}
	for i := range m.Funcs {
		inst.Funcs = append(inst.Funcs, s.allocFunc(&FuncInstance{
			Type:   m.Types[m.Funcs[i].TypeIndex],
			Module: inst,
			Code:   &m.Funcs[i],
		}))
	}

	type pendingElem struct {
		tableAddr Addr
		offset    uint32
		funcAddrs []Addr
	}
	var elemWrites []pendingElem
	for i, el := range m.Elements {
		offVal, err := evalConstExpr(s, inst, el.Offset)
		if err != nil {
			return nil, err
		}
		offset := offVal.U32()
		tableAddr := inst.tableAddr(el.TableIndex)
		ti, err := s.tableAt(tableAddr)
		if err != nil {
			return nil, err
		}
		end := uint64(offset) + uint64(len(el.FuncIndices))
		if end > uint64(len(ti.Elems)) {
			return nil, fmt.Errorf("wasm: element segment %d: offset %d + %d entries exceeds table size %d", i, offset, len(el.FuncIndices), len(ti.Elems))
		}
		funcAddrs := make([]Addr, len(el.FuncIndices))
		for j, fi := range el.FuncIndices {
			funcAddrs[j] = inst.funcAddr(fi)
		}
		elemWrites = append(elemWrites, pendingElem{tableAddr: tableAddr, offset: offset, funcAddrs: funcAddrs})
	}

	type pendingData struct {
		memAddr Addr
		offset  uint32
		bytes   []byte
	}
	var dataWrites []pendingData
	for i, d := range m.Data {
		offVal, err := evalConstExpr(s, inst, d.Offset)
		if err != nil {
			return nil, err
		}
		offset := offVal.U32()
		memAddr := inst.memAddr(d.MemIndex)
		mi, err := s.memAt(memAddr)
		if err != nil {
			return nil, err
		}
		end := uint64(offset) + uint64(len(d.Init))
		if end > uint64(len(mi.Data)) {
			return nil, fmt.Errorf("wasm: data segment %d: offset %d + %d bytes exceeds memory size %d", i, offset, len(d.Init), len(mi.Data))
		}
		dataWrites = append(dataWrites, pendingData{memAddr: memAddr, offset: offset, bytes: d.Init})
	}

	for _, w := range elemWrites {
		ti, _ := s.tableAt(w.tableAddr)
		for j, fa := range w.funcAddrs {
			addr := fa
			ti.Elems[int(w.offset)+j] = &addr
		}
	}
	for _, w := range dataWrites {
		mi, _ := s.memAt(w.memAddr)
		copy(mi.Data[w.offset:], w.bytes)
	}

	for _, e := range m.Exports {
		var ev ExternVal
		switch e.Kind {
		case ExternKindFunc:
			ev = ExternVal{Kind: ExternFunc, Addr: inst.funcAddr(e.Index)}
		case ExternKindTable:
			ev = ExternVal{Kind: ExternTable, Addr: inst.tableAddr(e.Index)}
		case ExternKindMemory:
			ev = ExternVal{Kind: ExternMemory, Addr: inst.memAddr(e.Index)}
		case ExternKindGlobal:
			ev = ExternVal{Kind: ExternGlobal, Addr: inst.globalAddr(e.Index)}
		}
		inst.Exports[e.Name] = ev
	}

	if m.Start != nil {
		if _, err := Invoke(s, inst.funcAddr(*m.Start), nil); err != nil {
			return nil, err
		}
	}
	return inst, nil
}

// linkImport checks that ev is compatible with the type imp declares,
// per the subsumption rules of §4.6 step 1.
func linkImport(s *Store, m *Module, imp Import, ev ExternVal) error {
	switch imp.Kind {
	case ExternKindFunc:
		if ev.Kind != ExternFunc {
			return fmt.Errorf("%s.%s: expected a function, got %s", imp.Module, imp.Name, externKindTagName(ev.Kind))
		}
		fi, err := s.funcAt(ev.Addr)
		if err != nil {
			return err
		}
		want := m.Types[imp.DescFunc]
		if !fi.Type.EqualsSignature(want.Params, want.Results) {
			return fmt.Errorf("%s.%s: function type mismatch: module wants %s, got %s", imp.Module, imp.Name, want.String(), fi.Type.String())
		}
	case ExternKindTable:
		if ev.Kind != ExternTable {
			return fmt.Errorf("%s.%s: expected a table, got %s", imp.Module, imp.Name, externKindTagName(ev.Kind))
		}
		ti, err := s.tableAt(ev.Addr)
		if err != nil {
			return err
		}
		if err := limitsSubsume(Limits{Min: uint32(len(ti.Elems)), Max: ti.Max}, imp.DescTable.Limits); err != nil {
			return fmt.Errorf("%s.%s: table %s", imp.Module, imp.Name, err)
		}
	case ExternKindMemory:
		if ev.Kind != ExternMemory {
			return fmt.Errorf("%s.%s: expected a memory, got %s", imp.Module, imp.Name, externKindTagName(ev.Kind))
		}
		mi, err := s.memAt(ev.Addr)
		if err != nil {
			return err
		}
		if err := limitsSubsume(Limits{Min: mi.PageCount(), Max: mi.Max}, imp.DescMemory.Limits); err != nil {
			return fmt.Errorf("%s.%s: memory %s", imp.Module, imp.Name, err)
		}
	case ExternKindGlobal:
		if ev.Kind != ExternGlobal {
			return fmt.Errorf("%s.%s: expected a global, got %s", imp.Module, imp.Name, externKindTagName(ev.Kind))
		}
		gi, err := s.globalAt(ev.Addr)
		if err != nil {
			return err
		}
		if gi.Type.ValType != imp.DescGlobal.ValType || gi.Type.Mutable != imp.DescGlobal.Mutable {
			return fmt.Errorf("%s.%s: global type mismatch", imp.Module, imp.Name)
		}
	}
	return nil
}

// limitsSubsume checks that `provided` may satisfy a requirement of
// `required`: provided.min must be at least as large, and if the
// required max is set, provided must also cap out at or below it
// (§4.6 step 1).
func limitsSubsume(provided, required Limits) error {
	if provided.Min < required.Min {
		return fmt.Errorf("minimum %d is smaller than required minimum %d", provided.Min, required.Min)
	}
	if required.Max != nil {
		if provided.Max == nil || *provided.Max > *required.Max {
			return fmt.Errorf("maximum does not satisfy required maximum %d", *required.Max)
		}
	}
	return nil
}

func externKindTagName(k ExternKindTag) string {
	switch k {
	case ExternFunc:
		return "function"
	case ExternTable:
		return "table"
	case ExternMemory:
		return "memory"
	case ExternGlobal:
		return "global"
	default:
		return "unknown"
	}
}

// evalConstExpr evaluates a constant expression (§4.3, GLOSSARY
// "Constant expression") against the given module instance, whose
// Globals must already resolve any global.get the expression uses.
func evalConstExpr(s *Store, inst *ModuleInstance, ce ConstExpr) (Value, error) {
	switch ce.Opcode {
	case OpI32Const:
		return I32(ce.ImmI32), nil
	case OpI64Const:
		return I64(ce.ImmI64), nil
	case OpF32Const:
		return F32(ce.ImmF32), nil
	case OpF64Const:
		return F64(ce.ImmF64), nil
	case OpGlobalGet:
		return s.GlobalGet(inst.globalAddr(ce.GlobalIdx))
	default:
		return Value{}, fmt.Errorf("wasm: opcode %#x is not a valid constant expression", ce.Opcode)
	}
}
