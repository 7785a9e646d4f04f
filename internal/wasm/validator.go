package wasm

import "fmt"

// stackType is one entry of the validator's abstract value-type stack.
// unknownType is the polymorphic sentinel pushed in place of the
// values an unreachable instruction's dead code would have produced;
// it unifies with any ValueType (§4.4, §9 "Polymorphic unknown type").
type stackType struct {
	unknown bool
	vt      ValueType
}

func known(vt ValueType) stackType { return stackType{vt: vt} }

var unknownType = stackType{unknown: true}

func (s stackType) matches(other stackType) bool {
	if s.unknown || other.unknown {
		return true
	}
	return s.vt == other.vt
}

func (s stackType) String() string {
	if s.unknown {
		return "unknown"
	}
	return valueTypeName(s.vt)
}

func valueTypeName(vt ValueType) string {
	switch vt {
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	}
	return "invalid"
}

// ctrlFrame is one entry of the validator's control stack, tracking
// enough about the enclosing block/loop/if/function to check branches
// and the stack shape at `end` (§4.4).
type ctrlFrame struct {
	op          Opcode // OpBlock, OpLoop, OpIf, or 0 for the function's implicit frame
	startTypes  []ValueType // the label's branch arity, i.e. what br targets (loop: params; else: block results)
	endTypes    []ValueType // what must be on the stack at this frame's `end`
	height      int         // value-stack height at the frame's start
	unreachable bool
	sawElse     bool // only meaningful for op == OpIf
}

// validator holds the mutable state threaded through validation of a
// single function body: the abstract value stack and the control
// stack, plus read-only context about the enclosing module needed to
// check instruction operands (§4.4).
type validator struct {
	m *Module

	funcIdx  int
	locals   []ValueType // params then declared locals
	valStack []stackType
	ctrl     []ctrlFrame
}

// Validate runs the Wasm 1.0 algorithmic validation over m (§4.4): it
// checks every function body's instruction sequence against the
// abstract stack typing rules, and the whole-module constraints on
// index spaces, exports, start function, and segment counts.
func (m *Module) Validate() error {
	if len(m.Tables) > 1 {
		return &ValidationError{FuncIndex: -1, Reason: "at most one table is allowed"}
	}
	if len(m.Memories) > 1 {
		return &ValidationError{FuncIndex: -1, Reason: "at most one memory is allowed"}
	}
	if err := validateImports(m); err != nil {
		return err
	}
	if err := validateGlobalInits(m); err != nil {
		return err
	}
	if err := validateExports(m); err != nil {
		return err
	}
	if err := validateStart(m); err != nil {
		return err
	}
	if err := validateElements(m); err != nil {
		return err
	}
	if err := validateData(m); err != nil {
		return err
	}

	importedFuncs := m.ImportedFuncCount()
	for i := range m.Funcs {
		if err := validateFunc(m, i, importedFuncs+i); err != nil {
			return err
		}
	}
	return nil
}

// CheckMemoryCeiling verifies that every memory m declares or imports
// — its declared minimum, and its maximum if one is given — fits under
// maxPages. This is an embedder-configurable ceiling (wasmone's
// RuntimeConfig.WithMemoryMaxPages) layered on top of, not part of,
// the Wasm 1.0 validation algorithm itself (§4.4 says nothing about a
// ceiling below the format's own 65536-page limit).
func (m *Module) CheckMemoryCeiling(maxPages uint32) error {
	for i, mt := range m.Memories {
		if mt.Limits.Min > maxPages {
			return &ValidationError{FuncIndex: -1, Reason: fmt.Sprintf("memory[%d]: minimum %d pages exceeds configured ceiling %d", i, mt.Limits.Min, maxPages)}
		}
		if mt.Limits.Max != nil && *mt.Limits.Max > maxPages {
			return &ValidationError{FuncIndex: -1, Reason: fmt.Sprintf("memory[%d]: maximum %d pages exceeds configured ceiling %d", i, *mt.Limits.Max, maxPages)}
		}
	}
	for i, imp := range m.Imports {
		if imp.Kind != ExternKindMemory {
			continue
		}
		if imp.DescMemory.Limits.Min > maxPages {
			return &ValidationError{FuncIndex: -1, Reason: fmt.Sprintf("import[%d]: memory minimum %d pages exceeds configured ceiling %d", i, imp.DescMemory.Limits.Min, maxPages)}
		}
		if imp.DescMemory.Limits.Max != nil && *imp.DescMemory.Limits.Max > maxPages {
			return &ValidationError{FuncIndex: -1, Reason: fmt.Sprintf("import[%d]: memory maximum %d pages exceeds configured ceiling %d", i, *imp.DescMemory.Limits.Max, maxPages)}
		}
	}
	return nil
}

func validateImports(m *Module) error {
	for i, imp := range m.Imports {
		switch imp.Kind {
		case ExternKindFunc:
			if int(imp.DescFunc) >= len(m.Types) {
				return &ValidationError{FuncIndex: -1, Reason: fmt.Sprintf("import[%d]: type index %d out of range", i, imp.DescFunc)}
			}
		case ExternKindTable, ExternKindMemory, ExternKindGlobal:
			// Descriptor shape already checked structurally by the decoder.
		default:
			return &ValidationError{FuncIndex: -1, Reason: fmt.Sprintf("import[%d]: invalid kind", i)}
		}
	}
	return nil
}

// validateGlobalInits checks that each module-defined global's
// initializer is a well-typed constant expression referencing only
// imported, immutable globals (§4.3, §4.4).
func validateGlobalInits(m *Module) error {
	importedGlobals := m.ImportedGlobalCount()
	for i, g := range m.Globals {
		vt, err := constExprType(m, g.Init, importedGlobals)
		if err != nil {
			return &ValidationError{FuncIndex: -1, Reason: fmt.Sprintf("global[%d]: %s", i, err)}
		}
		if vt != g.Type.ValType {
			return &ValidationError{FuncIndex: -1, Reason: fmt.Sprintf("global[%d]: initializer type %s does not match declared type %s", i, valueTypeName(vt), valueTypeName(g.Type.ValType))}
		}
	}
	return nil
}

// constExprType returns the static type of a constant expression, or
// an error if it references a global that is not an imported
// immutable global (constant expressions cannot observe module-defined
// globals, since those are not yet initialized).
func constExprType(m *Module, ce ConstExpr, importedGlobals int) (ValueType, error) {
	switch ce.Opcode {
	case OpI32Const:
		return ValueTypeI32, nil
	case OpI64Const:
		return ValueTypeI64, nil
	case OpF32Const:
		return ValueTypeF32, nil
	case OpF64Const:
		return ValueTypeF64, nil
	case OpGlobalGet:
		if int(ce.GlobalIdx) >= importedGlobals {
			return 0, fmt.Errorf("constant expression may only reference imported globals, got index %d", ce.GlobalIdx)
		}
		gt, err := m.globalTypeOf(ce.GlobalIdx)
		if err != nil {
			return 0, err
		}
		if gt.Mutable {
			return 0, fmt.Errorf("constant expression may not reference mutable global %d", ce.GlobalIdx)
		}
		return gt.ValType, nil
	default:
		return 0, fmt.Errorf("opcode %#x is not valid in a constant expression", ce.Opcode)
	}
}

// globalTypeOf returns the type of the globalIdx'th global in the
// global index space (imports first, then module-defined).
func (m *Module) globalTypeOf(globalIdx Index) (GlobalType, error) {
	imported := 0
	for _, imp := range m.Imports {
		if imp.Kind != ExternKindGlobal {
			continue
		}
		if Index(imported) == globalIdx {
			return imp.DescGlobal, nil
		}
		imported++
	}
	idx := int(globalIdx) - imported
	if idx < 0 || idx >= len(m.Globals) {
		return GlobalType{}, fmt.Errorf("global index %d out of range", globalIdx)
	}
	return m.Globals[idx].Type, nil
}

func validateExports(m *Module) error {
	seen := make(map[string]bool, len(m.Exports))
	for i, e := range m.Exports {
		if seen[e.Name] {
			return &ValidationError{FuncIndex: -1, Reason: fmt.Sprintf("export[%d]: duplicate export name %q", i, e.Name)}
		}
		seen[e.Name] = true
		var count int
		switch e.Kind {
		case ExternKindFunc:
			count = m.ImportedFuncCount() + len(m.Funcs)
		case ExternKindTable:
			count = m.ImportedTableCount() + len(m.Tables)
		case ExternKindMemory:
			count = m.ImportedMemoryCount() + len(m.Memories)
		case ExternKindGlobal:
			count = m.ImportedGlobalCount() + len(m.Globals)
		default:
			return &ValidationError{FuncIndex: -1, Reason: fmt.Sprintf("export[%d]: invalid kind", i)}
		}
		if int(e.Index) >= count {
			return &ValidationError{FuncIndex: -1, Reason: fmt.Sprintf("export[%d] %q: index %d out of range", i, e.Name, e.Index)}
		}
	}
	return nil
}

func validateStart(m *Module) error {
	if m.Start == nil {
		return nil
	}
	ft, err := m.FuncTypeOf(*m.Start)
	if err != nil {
		return &ValidationError{FuncIndex: -1, Reason: fmt.Sprintf("start function: %s", err)}
	}
	if len(ft.Params) != 0 || len(ft.Results) != 0 {
		return &ValidationError{FuncIndex: -1, Reason: "start function must have type [] -> []"}
	}
	return nil
}

func validateElements(m *Module) error {
	importedGlobals := m.ImportedGlobalCount()
	nTables := m.ImportedTableCount() + len(m.Tables)
	funcCount := m.ImportedFuncCount() + len(m.Funcs)
	for i, el := range m.Elements {
		if int(el.TableIndex) >= nTables {
			return &ValidationError{FuncIndex: -1, Reason: fmt.Sprintf("element[%d]: table index %d out of range", i, el.TableIndex)}
		}
		vt, err := constExprType(m, el.Offset, importedGlobals)
		if err != nil {
			return &ValidationError{FuncIndex: -1, Reason: fmt.Sprintf("element[%d]: offset: %s", i, err)}
		}
		if vt != ValueTypeI32 {
			return &ValidationError{FuncIndex: -1, Reason: fmt.Sprintf("element[%d]: offset must be i32", i)}
		}
		for _, fi := range el.FuncIndices {
			if int(fi) >= funcCount {
				return &ValidationError{FuncIndex: -1, Reason: fmt.Sprintf("element[%d]: function index %d out of range", i, fi)}
			}
		}
	}
	return nil
}

func validateData(m *Module) error {
	importedGlobals := m.ImportedGlobalCount()
	nMems := m.ImportedMemoryCount() + len(m.Memories)
	for i, d := range m.Data {
		if int(d.MemIndex) >= nMems {
			return &ValidationError{FuncIndex: -1, Reason: fmt.Sprintf("data[%d]: memory index %d out of range", i, d.MemIndex)}
		}
		vt, err := constExprType(m, d.Offset, importedGlobals)
		if err != nil {
			return &ValidationError{FuncIndex: -1, Reason: fmt.Sprintf("data[%d]: offset: %s", i, err)}
		}
		if vt != ValueTypeI32 {
			return &ValidationError{FuncIndex: -1, Reason: fmt.Sprintf("data[%d]: offset must be i32", i)}
		}
	}
	return nil
}

func validateFunc(m *Module, declIdx, funcIdx int) error {
	f := &m.Funcs[declIdx]
	if int(f.TypeIndex) >= len(m.Types) {
		return &ValidationError{FuncIndex: funcIdx, Reason: fmt.Sprintf("type index %d out of range", f.TypeIndex)}
	}
	ft := m.Types[f.TypeIndex]

	locals := make([]ValueType, 0, len(ft.Params)+f.NumLocals())
	locals = append(locals, ft.Params...)
	for _, l := range f.Locals {
		for i := uint32(0); i < l.Count; i++ {
			locals = append(locals, l.Type)
		}
	}

	v := &validator{m: m, funcIdx: funcIdx, locals: locals}
	v.ctrl = append(v.ctrl, ctrlFrame{startTypes: ft.Results, endTypes: ft.Results, height: 0})
	if err := v.validateSeq(f.Body); err != nil {
		return &ValidationError{FuncIndex: funcIdx, Reason: err.Error()}
	}
	if err := v.popResults(ft.Results); err != nil {
		return &ValidationError{FuncIndex: funcIdx, Reason: err.Error()}
	}
	if len(v.valStack) != v.ctrl[0].height {
		return &ValidationError{FuncIndex: funcIdx, Reason: "function body leaves extra values on the stack"}
	}
	return nil
}

func (v *validator) push(vt stackType)      { v.valStack = append(v.valStack, vt) }
func (v *validator) pushKnown(vt ValueType) { v.push(known(vt)) }

// pop pops one value, matching it against want. In an unreachable
// (dead-code) region, popping below the current frame's height
// succeeds with the unknown sentinel instead of underflowing (§4.4
// "Stack-polymorphic rule").
func (v *validator) pop(want stackType) (stackType, error) {
	top := &v.ctrl[len(v.ctrl)-1]
	if len(v.valStack) == top.height {
		if top.unreachable {
			return unknownType, nil
		}
		return stackType{}, fmt.Errorf("type mismatch: expected %s, stack is empty", want)
	}
	got := v.valStack[len(v.valStack)-1]
	if !got.matches(want) {
		return stackType{}, fmt.Errorf("type mismatch: expected %s, got %s", want, got)
	}
	v.valStack = v.valStack[:len(v.valStack)-1]
	return got, nil
}

func (v *validator) popKnown(vt ValueType) error {
	_, err := v.pop(known(vt))
	return err
}

func (v *validator) popResults(results []ValueType) error {
	for i := len(results) - 1; i >= 0; i-- {
		if err := v.popKnown(results[i]); err != nil {
			return err
		}
	}
	return nil
}

// setUnreachable marks the current control frame as unreachable and
// truncates the value stack to its entry height: subsequent pops in
// this frame report the unknown type until the next `end`/`else`
// closes it (§4.4, §9).
func (v *validator) setUnreachable() {
	top := &v.ctrl[len(v.ctrl)-1]
	v.valStack = v.valStack[:top.height]
	top.unreachable = true
}

func (v *validator) curUnreachable() bool { return v.ctrl[len(v.ctrl)-1].unreachable }

func (v *validator) labelArity(l Index) ([]ValueType, error) {
	if int(l) >= len(v.ctrl) {
		return nil, fmt.Errorf("branch depth %d exceeds enclosing block depth", l)
	}
	return v.ctrl[len(v.ctrl)-1-int(l)].startTypes, nil
}

func (v *validator) validateSeq(body []Instr) error {
	for i := range body {
		if err := v.validateInstr(&body[i]); err != nil {
			return err
		}
	}
	return nil
}

func (v *validator) validateInstr(in *Instr) error {
	switch in.Op {
	case OpUnreachable:
		v.setUnreachable()
		return nil
	case OpNop:
		return nil

	case OpBlock, OpLoop:
		if err := v.popParams(in.BlockType); err != nil {
			return err
		}
		results := in.BlockType.Results()
		start := results
		if in.Op == OpLoop {
			start = nil // a branch to a loop re-enters at the top: arity 0 in Wasm 1.0
		}
		v.ctrl = append(v.ctrl, ctrlFrame{op: in.Op, startTypes: start, endTypes: results, height: len(v.valStack)})
		if err := v.validateSeq(in.Then); err != nil {
			return err
		}
		return v.endBlock()

	case OpIf:
		if err := v.popKnown(ValueTypeI32); err != nil {
			return err
		}
		if err := v.popParams(in.BlockType); err != nil {
			return err
		}
		results := in.BlockType.Results()
		v.ctrl = append(v.ctrl, ctrlFrame{op: OpIf, startTypes: results, endTypes: results, height: len(v.valStack)})
		if err := v.validateSeq(in.Then); err != nil {
			return err
		}
		if in.Else != nil {
			if err := v.swapToElse(); err != nil {
				return err
			}
			if err := v.validateSeq(in.Else); err != nil {
				return err
			}
		} else if len(results) != 0 {
			return fmt.Errorf("if without else cannot have a non-empty result type")
		}
		return v.endBlock()

	case OpBr:
		arity, err := v.labelArity(in.LabelIdx)
		if err != nil {
			return err
		}
		if err := v.popResults(arity); err != nil {
			return err
		}
		v.setUnreachable()
		return nil

	case OpBrIf:
		if err := v.popKnown(ValueTypeI32); err != nil {
			return err
		}
		arity, err := v.labelArity(in.LabelIdx)
		if err != nil {
			return err
		}
		if err := v.popResults(arity); err != nil {
			return err
		}
		for i := len(arity) - 1; i >= 0; i-- {
			v.pushKnown(arity[i])
		}
		return nil

	case OpBrTable:
		if err := v.popKnown(ValueTypeI32); err != nil {
			return err
		}
		defArity, err := v.labelArity(in.LabelDefault)
		if err != nil {
			return err
		}
		for _, l := range in.LabelTable {
			arity, err := v.labelArity(l)
			if err != nil {
				return err
			}
			if len(arity) != len(defArity) {
				return fmt.Errorf("br_table arity mismatch between branch targets")
			}
		}
		if err := v.popResults(defArity); err != nil {
			return err
		}
		v.setUnreachable()
		return nil

	case OpReturn:
		if err := v.popResults(v.ctrl[0].endTypes); err != nil {
			return err
		}
		v.setUnreachable()
		return nil

	case OpCall:
		ft, err := v.m.FuncTypeOf(in.FuncIdx)
		if err != nil {
			return err
		}
		return v.applySignature(ft.Params, ft.Results)

	case OpCallIndirect:
		if len(v.m.Tables)+v.m.ImportedTableCount() == 0 {
			return fmt.Errorf("call_indirect requires a table")
		}
		if int(in.TypeIdx) >= len(v.m.Types) {
			return fmt.Errorf("call_indirect: type index %d out of range", in.TypeIdx)
		}
		if err := v.popKnown(ValueTypeI32); err != nil {
			return err
		}
		ft := v.m.Types[in.TypeIdx]
		return v.applySignature(ft.Params, ft.Results)

	case OpDrop:
		_, err := v.pop(unknownType)
		return err

	case OpSelect:
		if err := v.popKnown(ValueTypeI32); err != nil {
			return err
		}
		b, err := v.pop(unknownType)
		if err != nil {
			return err
		}
		a, err := v.pop(b)
		if err != nil {
			return err
		}
		v.push(a)
		return nil

	case OpLocalGet:
		vt, err := v.localType(in.VarIdx)
		if err != nil {
			return err
		}
		v.pushKnown(vt)
		return nil

	case OpLocalSet:
		vt, err := v.localType(in.VarIdx)
		if err != nil {
			return err
		}
		return v.popKnown(vt)

	case OpLocalTee:
		vt, err := v.localType(in.VarIdx)
		if err != nil {
			return err
		}
		if err := v.popKnown(vt); err != nil {
			return err
		}
		v.pushKnown(vt)
		return nil

	case OpGlobalGet:
		gt, err := v.m.globalTypeOf(in.VarIdx)
		if err != nil {
			return err
		}
		v.pushKnown(gt.ValType)
		return nil

	case OpGlobalSet:
		gt, err := v.m.globalTypeOf(in.VarIdx)
		if err != nil {
			return err
		}
		if !gt.Mutable {
			return fmt.Errorf("global.set %d: global is immutable", in.VarIdx)
		}
		return v.popKnown(gt.ValType)

	case OpMemorySize, OpMemoryGrow:
		if err := v.requireMemory(); err != nil {
			return err
		}
		if in.Op == OpMemoryGrow {
			if err := v.popKnown(ValueTypeI32); err != nil {
				return err
			}
		}
		v.pushKnown(ValueTypeI32)
		return nil

	case OpI32Const:
		v.pushKnown(ValueTypeI32)
		return nil
	case OpI64Const:
		v.pushKnown(ValueTypeI64)
		return nil
	case OpF32Const:
		v.pushKnown(ValueTypeF32)
		return nil
	case OpF64Const:
		v.pushKnown(ValueTypeF64)
		return nil

	default:
		if isMemoryInstr(in.Op) {
			return v.validateMemoryInstr(in)
		}
		return v.validateNumericInstr(in.Op)
	}
}

// popParams pops bt's (empty, in Wasm 1.0) parameter types before
// entering a block/loop/if body. Wasm 1.0's BlockType never carries
// parameters, so this is a no-op kept for symmetry with the spec's
// instruction-typing rule and to ease a future multi-value extension.
func (v *validator) popParams(BlockType) error { return nil }

func (v *validator) applySignature(params, results []ValueType) error {
	for i := len(params) - 1; i >= 0; i-- {
		if err := v.popKnown(params[i]); err != nil {
			return err
		}
	}
	for _, r := range results {
		v.pushKnown(r)
	}
	return nil
}

func (v *validator) localType(idx Index) (ValueType, error) {
	if int(idx) >= len(v.locals) {
		return 0, fmt.Errorf("local index %d out of range", idx)
	}
	return v.locals[idx], nil
}

func (v *validator) requireMemory() error {
	if len(v.m.Memories)+v.m.ImportedMemoryCount() == 0 {
		return fmt.Errorf("instruction requires a memory, but module declares none")
	}
	return nil
}

// endBlock closes the current control frame at its `end`: the stack
// must match endTypes exactly, after which the frame is popped and
// its results are pushed to the enclosing frame.
func (v *validator) endBlock() error {
	top := v.ctrl[len(v.ctrl)-1]
	if err := v.popResults(top.endTypes); err != nil {
		return err
	}
	if len(v.valStack) != top.height {
		return fmt.Errorf("block leaves extra values on the stack")
	}
	v.ctrl = v.ctrl[:len(v.ctrl)-1]
	for _, r := range top.endTypes {
		v.pushKnown(r)
	}
	return nil
}

// swapToElse closes the then-branch of an if (checking it against the
// block's result types, same as endBlock) and reopens a fresh frame
// with the same shape for the else-branch, since both arms must
// independently produce the block's result types.
func (v *validator) swapToElse() error {
	top := v.ctrl[len(v.ctrl)-1]
	if err := v.popResults(top.endTypes); err != nil {
		return err
	}
	if len(v.valStack) != top.height {
		return fmt.Errorf("if-branch leaves extra values on the stack")
	}
	v.ctrl[len(v.ctrl)-1] = ctrlFrame{op: OpIf, startTypes: top.startTypes, endTypes: top.endTypes, height: top.height}
	return nil
}
