package wasm

import (
	"errors"
	"math"

	"github.com/wasmone/wasmone/internal/numeric"
)

// maxCallDepth bounds recursive Wasm-to-Wasm call nesting. WebAssembly
// itself places no limit on call depth; an embedding must impose one
// to turn unbounded host-stack recursion into a catchable trap rather
// than a process crash (§5 "the host may impose bounds externally").
const maxCallDepth = 8192

// frame is one activation record (§3 "Store (runtime)", §4.7 "Frame
// stack"): the module instance the running code belongs to, its
// locals array (parameters then declared locals, zero-initialized),
// and the function's own result arity, needed to size a `return`.
type frame struct {
	module      *ModuleInstance
	locals      []Value
	resultArity int
}

// callEngine is the per-Invoke interpreter state: the value stack
// (§4.7 "Value stack") shared across the whole call tree, plus the
// store it operates over. Label nesting is realized by Go's own call
// stack via recursion over the block-tree AST (§9 Design Notes:
// "operationally identical" to an explicit label stack, since the AST
// is already a tree rather than a flat instruction stream); the
// per-label branch arity that an explicit label stack would carry is
// threaded through the recursion as the `labels` parameter instead.
// Call depth is bounded by maxCallDepth so unbounded recursion traps
// instead of exhausting the host stack.
type callEngine struct {
	store *Store
	stack []Value
	depth int
}

// signalKind classifies how a block/function body execution returned
// control, mirroring the spec's "Continue | Trap | Return" step result
// (§9 "Trap propagation") generalized to also carry a structured branch.
type signalKind int

const (
	sigNone signalKind = iota
	sigBranch
	sigReturn
)

// signal is returned up the recursive call tree by the instruction
// executor in place of host exceptions. A branch signal carries how
// many enclosing labels remain to unwind (depth) and the operand
// values saved off the stack for the target label's arity; a return
// signal always unwinds to the nearest function-call frame regardless
// of depth.
type signal struct {
	kind   signalKind
	depth  int
	values []Value
}

// Invoke runs the function at funcAddr in s with args, returning its
// result values or a trap (§4.8 "invoke"). It is the sole entry point
// into Wasm execution: each call runs to completion before returning,
// per the single-threaded cooperative model of §5.
func Invoke(s *Store, funcAddr Addr, args []Value) ([]Value, error) {
	ce := &callEngine{store: s}
	return ce.call(funcAddr, args)
}

func (ce *callEngine) call(funcAddr Addr, args []Value) ([]Value, error) {
	fi, err := ce.store.funcAt(funcAddr)
	if err != nil {
		return nil, err
	}
	if fi.IsHost() {
		return fi.Host.Func(args)
	}

	ce.depth++
	if ce.depth > maxCallDepth {
		ce.depth--
		return nil, trap(TrapCallStackExhausted)
	}
	defer func() { ce.depth-- }()

	locals := make([]Value, len(args)+fi.Code.NumLocals())
	copy(locals, args)
	li := len(args)
	for _, l := range fi.Code.Locals {
		for i := uint32(0); i < l.Count; i++ {
			locals[li] = zeroValue(l.Type)
			li++
		}
	}

	fr := &frame{module: fi.Module, locals: locals, resultArity: len(fi.Type.Results)}
	entryHeight := len(ce.stack)

	// The function body is itself an implicit block with the function's
	// own result arity (§4.4's ctrlFrame seeding counts the function
	// frame in branch depth, so e.g. `block ... br 1 ... end` validates
	// as a branch to the enclosing function label). Running the body
	// through runLabel rather than bare runSeq gives that label a home
	// in the `labels` depth stack, so such a branch is absorbed here
	// exactly like a branch out of any other block instead of indexing
	// past the end of `labels`.
	sig, err := ce.runLabel(fr, fi.Code.Body, fr.resultArity, false, nil)
	if err != nil {
		return nil, err
	}
	// sig is now sigNone (fell off the end, or a branch to the function
	// label was absorbed and its values already pushed back onto the
	// stack) or sigReturn. An explicit `return` already popped exactly
	// its operands into sig.values at the point it fired, possibly
	// leaving an enclosing block's own abandoned operands still sitting
	// above entryHeight; the sigNone cases instead leave exactly the
	// results in place. Either way, truncating to entryHeight discards
	// whatever junk remains once the real results are in hand.
	var results []Value
	if sig.kind == sigReturn {
		results = sig.values
	} else {
		results = append([]Value(nil), ce.stack[entryHeight:]...)
	}
	ce.stack = ce.stack[:entryHeight]
	return results, nil
}

func zeroValue(vt ValueType) Value {
	switch vt {
	case ValueTypeI32:
		return I32(0)
	case ValueTypeI64:
		return I64(0)
	case ValueTypeF32:
		return F32(0)
	default:
		return F64(0)
	}
}

func (ce *callEngine) push(v Value) { ce.stack = append(ce.stack, v) }

func (ce *callEngine) pop() Value {
	v := ce.stack[len(ce.stack)-1]
	ce.stack = ce.stack[:len(ce.stack)-1]
	return v
}

// popN pops and returns the top n values in original stack order.
func (ce *callEngine) popN(n int) []Value {
	if n == 0 {
		return nil
	}
	start := len(ce.stack) - n
	out := make([]Value, n)
	copy(out, ce.stack[start:])
	ce.stack = ce.stack[:start]
	return out
}

// runSeq executes a flat instruction sequence (a function body, or a
// block/loop/if arm) until it completes normally, a branch/return
// signal propagates out of it, or a trap occurs. labels holds the
// branch arity of each enclosing block/loop, innermost first.
func (ce *callEngine) runSeq(fr *frame, body []Instr, labels []int) (signal, error) {
	for i := range body {
		sig, err := ce.exec(fr, &body[i], labels)
		if err != nil {
			return signal{}, err
		}
		if sig.kind != sigNone {
			return sig, nil
		}
	}
	return signal{}, nil
}

// runLabel executes a block/loop/if arm whose label has the given
// result arity, absorbing a branch signal targeting depth 0 (this
// label) and re-running the body for a loop target, or propagating
// any other signal up one level closer to its target.
func (ce *callEngine) runLabel(fr *frame, body []Instr, arity int, isLoop bool, labels []int) (signal, error) {
	inner := append([]int{arity}, labels...)
	entryHeight := len(ce.stack)
	for {
		sig, err := ce.runSeq(fr, body, inner)
		if err != nil {
			return signal{}, err
		}
		switch sig.kind {
		case sigNone, sigReturn:
			return sig, nil
		default: // sigBranch
			if sig.depth > 0 {
				sig.depth--
				return sig, nil
			}
			ce.stack = ce.stack[:entryHeight]
			for _, v := range sig.values {
				ce.push(v)
			}
			if isLoop {
				continue // branch to a loop's label re-enters at the top
			}
			return signal{}, nil
		}
	}
}

func (ce *callEngine) exec(fr *frame, in *Instr, labels []int) (signal, error) {
	switch in.Op {
	case OpUnreachable:
		return signal{}, trap(TrapUnreachable)
	case OpNop:
		return signal{}, nil

	case OpBlock:
		arity := len(in.BlockType.Results())
		return ce.runLabel(fr, in.Then, arity, false, labels)
	case OpLoop:
		return ce.runLabel(fr, in.Then, 0, true, labels)
	case OpIf:
		cond := ce.pop()
		arity := len(in.BlockType.Results())
		if cond.I32() != 0 {
			return ce.runLabel(fr, in.Then, arity, false, labels)
		}
		return ce.runLabel(fr, in.Else, arity, false, labels)

	case OpBr:
		return ce.branchSignal(int(in.LabelIdx), labels), nil
	case OpBrIf:
		cond := ce.pop()
		if cond.I32() == 0 {
			return signal{}, nil
		}
		return ce.branchSignal(int(in.LabelIdx), labels), nil
	case OpBrTable:
		idx := ce.pop().U32()
		target := in.LabelDefault
		if int(idx) < len(in.LabelTable) {
			target = in.LabelTable[idx]
		}
		return ce.branchSignal(int(target), labels), nil

	case OpReturn:
		return signal{kind: sigReturn, values: ce.popN(fr.resultArity)}, nil

	case OpCall:
		return ce.doCall(fr.module.funcAddr(in.FuncIdx))
	case OpCallIndirect:
		return ce.doCallIndirect(fr, in)

	case OpDrop:
		ce.pop()
		return signal{}, nil
	case OpSelect:
		cond := ce.pop()
		v2 := ce.pop()
		v1 := ce.pop()
		if cond.I32() != 0 {
			ce.push(v1)
		} else {
			ce.push(v2)
		}
		return signal{}, nil

	case OpLocalGet:
		ce.push(fr.locals[in.VarIdx])
		return signal{}, nil
	case OpLocalSet:
		fr.locals[in.VarIdx] = ce.pop()
		return signal{}, nil
	case OpLocalTee:
		fr.locals[in.VarIdx] = ce.stack[len(ce.stack)-1]
		return signal{}, nil
	case OpGlobalGet:
		v, err := ce.store.GlobalGet(fr.module.globalAddr(in.VarIdx))
		if err != nil {
			return signal{}, err
		}
		ce.push(v)
		return signal{}, nil
	case OpGlobalSet:
		return signal{}, ce.store.GlobalSet(fr.module.globalAddr(in.VarIdx), ce.pop())

	case OpMemorySize:
		n, err := ce.store.MemorySize(fr.module.memAddr(0))
		if err != nil {
			return signal{}, err
		}
		ce.push(U32(n))
		return signal{}, nil
	case OpMemoryGrow:
		delta := ce.pop().U32()
		prev, err := ce.store.MemoryGrow(fr.module.memAddr(0), delta)
		if err != nil {
			return signal{}, err
		}
		ce.push(I32(prev))
		return signal{}, nil

	case OpI32Const:
		ce.push(I32(in.ImmI32))
		return signal{}, nil
	case OpI64Const:
		ce.push(I64(in.ImmI64))
		return signal{}, nil
	case OpF32Const:
		ce.push(F32(in.ImmF32))
		return signal{}, nil
	case OpF64Const:
		ce.push(F64(in.ImmF64))
		return signal{}, nil

	default:
		if isMemoryInstr(in.Op) {
			return signal{}, ce.execMemoryInstr(fr, in)
		}
		return signal{}, ce.execNumericInstr(in.Op)
	}
}

// branchSignal resolves a br/br_if/br_table target: labels[depth] is
// the target label's branch arity (§4.7 "br l"), so exactly that many
// values are saved off the top of the stack to be restored once the
// signal reaches its target in runLabel.
func (ce *callEngine) branchSignal(depth int, labels []int) signal {
	arity := labels[depth]
	return signal{kind: sigBranch, depth: depth, values: ce.popN(arity)}
}

func (ce *callEngine) doCall(funcAddr Addr) (signal, error) {
	fi, err := ce.store.funcAt(funcAddr)
	if err != nil {
		return signal{}, err
	}
	args := ce.popN(len(fi.Type.Params))
	results, err := ce.call(funcAddr, args)
	if err != nil {
		return signal{}, err
	}
	for _, v := range results {
		ce.push(v)
	}
	return signal{}, nil
}

func (ce *callEngine) doCallIndirect(fr *frame, in *Instr) (signal, error) {
	idx := ce.pop().U32()
	tableAddr := fr.module.tableAddr(0)
	funcAddr, err := ce.store.TableGet(tableAddr, idx)
	if err != nil {
		return signal{}, err
	}
	if funcAddr == nil {
		return signal{}, trap(TrapUninitializedElement)
	}
	fi, err := ce.store.funcAt(*funcAddr)
	if err != nil {
		return signal{}, err
	}
	want := fr.module.Types[in.TypeIdx]
	if !fi.Type.EqualsSignature(want.Params, want.Results) {
		return signal{}, trap(TrapIndirectCallTypeMismatch)
	}
	return ce.doCall(*funcAddr)
}

func (ce *callEngine) effectiveAddr(mem *Instr, base uint32) uint64 {
	return uint64(base) + uint64(mem.Mem.Offset)
}

// execMemoryInstr implements every load/store instruction (§4.7
// "Memory"): effective address is operand + static offset, widened to
// 64 bits before the bounds check so a wraparound in 32-bit arithmetic
// can never mask an out-of-bounds access.
func (ce *callEngine) execMemoryInstr(fr *frame, in *Instr) error {
	memAddr := fr.module.memAddr(0)
	acc := memAccessTable[in.Op]
	width := uint64(1) << memNaturalWidthLog2(in.Op)

	if acc.store {
		v := ce.pop()
		base := ce.pop().U32()
		addr := ce.effectiveAddr(in, base)
		data := encodeStoreValue(in.Op, v)
		return ce.store.MemoryWrite(memAddr, addr, data)
	}

	base := ce.pop().U32()
	addr := ce.effectiveAddr(in, base)
	raw, err := ce.store.MemoryRead(memAddr, addr, width)
	if err != nil {
		return err
	}
	ce.push(decodeLoadValue(in.Op, raw))
	return nil
}

// memNaturalWidthLog2 returns the log2 of the number of bytes the
// instruction actually touches in memory, which for the narrow
// load/store variants (load8/load16/load32) is smaller than the
// result type's own width.
func memNaturalWidthLog2(op Opcode) uint {
	switch op {
	case OpI32Load8S, OpI32Load8U, OpI64Load8S, OpI64Load8U, OpI32Store8, OpI64Store8:
		return 0
	case OpI32Load16S, OpI32Load16U, OpI64Load16S, OpI64Load16U, OpI32Store16, OpI64Store16:
		return 1
	case OpI32Load, OpF32Load, OpI64Load32S, OpI64Load32U, OpI32Store, OpF32Store, OpI64Store32:
		return 2
	default: // OpI64Load, OpF64Load, OpI64Store, OpF64Store
		return 3
	}
}

func encodeStoreValue(op Opcode, v Value) []byte {
	switch op {
	case OpI32Store8, OpI64Store8:
		return []byte{byte(v.U64())}
	case OpI32Store16, OpI64Store16:
		b := make([]byte, 2)
		putLE(b, v.U64())
		return b
	case OpI32Store, OpI64Store32:
		b := make([]byte, 4)
		putLE(b, v.U64())
		return b
	case OpF32Store:
		b := make([]byte, 4)
		putLE(b, uint64(math.Float32bits(v.F32())))
		return b
	default: // OpI64Store, OpF64Store
		b := make([]byte, 8)
		putLE(b, v.U64())
		return b
	}
}

func putLE(b []byte, v uint64) {
	for i := range b {
		b[i] = byte(v >> (8 * uint(i)))
	}
}

func getLE(b []byte) uint64 {
	var v uint64
	for i, by := range b {
		v |= uint64(by) << (8 * uint(i))
	}
	return v
}

func decodeLoadValue(op Opcode, raw []byte) Value {
	u := getLE(raw)
	switch op {
	case OpI32Load:
		return U32(uint32(u))
	case OpI64Load:
		return U64(u)
	case OpF32Load:
		return F32(math.Float32frombits(uint32(u)))
	case OpF64Load:
		return F64(math.Float64frombits(u))
	case OpI32Load8S:
		return I32(int32(int8(u)))
	case OpI32Load8U:
		return U32(uint32(u))
	case OpI32Load16S:
		return I32(int32(int16(u)))
	case OpI32Load16U:
		return U32(uint32(u))
	case OpI64Load8S:
		return I64(int64(int8(u)))
	case OpI64Load8U:
		return U64(u)
	case OpI64Load16S:
		return I64(int64(int16(u)))
	case OpI64Load16U:
		return U64(u)
	case OpI64Load32S:
		return I64(int64(int32(u)))
	case OpI64Load32U:
		return U64(u)
	default:
		return U64(u)
	}
}

// execNumericInstr implements every instruction in §4.1's numeric
// catalogue: arithmetic, bitwise/shift, comparison, and conversion.
// Traps come back as an error from the numeric/math helpers and
// propagate directly; ordinary results are pushed.
func (ce *callEngine) execNumericInstr(op Opcode) error {
	switch op {
	case OpI32Eqz:
		ce.push(boolValue(ce.pop().U32() == 0))
		return nil
	case OpI64Eqz:
		ce.push(boolValue(ce.pop().U64() == 0))
		return nil

	case OpI32Eq, OpI32Ne, OpI32LtS, OpI32LtU, OpI32GtS, OpI32GtU, OpI32LeS, OpI32LeU, OpI32GeS, OpI32GeU:
		b, a := ce.pop(), ce.pop()
		ce.push(i32RelOp(op, a, b))
		return nil
	case OpI64Eq, OpI64Ne, OpI64LtS, OpI64LtU, OpI64GtS, OpI64GtU, OpI64LeS, OpI64LeU, OpI64GeS, OpI64GeU:
		b, a := ce.pop(), ce.pop()
		ce.push(i64RelOp(op, a, b))
		return nil
	case OpF32Eq, OpF32Ne, OpF32Lt, OpF32Gt, OpF32Le, OpF32Ge:
		b, a := ce.pop(), ce.pop()
		ce.push(floatRelOp(op, float64(a.F32()), float64(b.F32())))
		return nil
	case OpF64Eq, OpF64Ne, OpF64Lt, OpF64Gt, OpF64Le, OpF64Ge:
		b, a := ce.pop(), ce.pop()
		ce.push(floatRelOp(op, a.F64(), b.F64()))
		return nil

	case OpI32Clz, OpI32Ctz, OpI32Popcnt:
		v := ce.pop().U32()
		ce.push(U32(i32UnaryBits(op, v)))
		return nil
	case OpI64Clz, OpI64Ctz, OpI64Popcnt:
		v := ce.pop().U64()
		ce.push(U64(i64UnaryBits(op, v)))
		return nil

	case OpI32Add, OpI32Sub, OpI32Mul, OpI32And, OpI32Or, OpI32Xor, OpI32Shl, OpI32ShrS, OpI32ShrU, OpI32Rotl, OpI32Rotr:
		b, a := ce.pop(), ce.pop()
		ce.push(U32(i32BinOp(op, a.U32(), b.U32())))
		return nil
	case OpI32DivS:
		b, a := ce.pop(), ce.pop()
		r, err := numeric.DivS32(a.I32(), b.I32())
		if err != nil {
			return translateTrap(err)
		}
		ce.push(I32(r))
		return nil
	case OpI32DivU:
		b, a := ce.pop(), ce.pop()
		r, err := numeric.DivU32(a.U32(), b.U32())
		if err != nil {
			return translateTrap(err)
		}
		ce.push(U32(r))
		return nil
	case OpI32RemS:
		b, a := ce.pop(), ce.pop()
		r, err := numeric.RemS32(a.I32(), b.I32())
		if err != nil {
			return translateTrap(err)
		}
		ce.push(I32(r))
		return nil
	case OpI32RemU:
		b, a := ce.pop(), ce.pop()
		r, err := numeric.RemU32(a.U32(), b.U32())
		if err != nil {
			return translateTrap(err)
		}
		ce.push(U32(r))
		return nil

	case OpI64Add, OpI64Sub, OpI64Mul, OpI64And, OpI64Or, OpI64Xor, OpI64Shl, OpI64ShrS, OpI64ShrU, OpI64Rotl, OpI64Rotr:
		b, a := ce.pop(), ce.pop()
		ce.push(U64(i64BinOp(op, a.U64(), b.U64())))
		return nil
	case OpI64DivS:
		b, a := ce.pop(), ce.pop()
		r, err := numeric.DivS64(a.I64(), b.I64())
		if err != nil {
			return translateTrap(err)
		}
		ce.push(I64(r))
		return nil
	case OpI64DivU:
		b, a := ce.pop(), ce.pop()
		r, err := numeric.DivU64(a.U64(), b.U64())
		if err != nil {
			return translateTrap(err)
		}
		ce.push(U64(r))
		return nil
	case OpI64RemS:
		b, a := ce.pop(), ce.pop()
		r, err := numeric.RemS64(a.I64(), b.I64())
		if err != nil {
			return translateTrap(err)
		}
		ce.push(I64(r))
		return nil
	case OpI64RemU:
		b, a := ce.pop(), ce.pop()
		r, err := numeric.RemU64(a.U64(), b.U64())
		if err != nil {
			return translateTrap(err)
		}
		ce.push(U64(r))
		return nil

	case OpF32Abs, OpF32Neg, OpF32Ceil, OpF32Floor, OpF32Trunc, OpF32Nearest, OpF32Sqrt:
		ce.push(F32(f32UnaryOp(op, ce.pop().F32())))
		return nil
	case OpF64Abs, OpF64Neg, OpF64Ceil, OpF64Floor, OpF64Trunc, OpF64Nearest, OpF64Sqrt:
		ce.push(F64(f64UnaryOp(op, ce.pop().F64())))
		return nil
	case OpF32Add, OpF32Sub, OpF32Mul, OpF32Div, OpF32Min, OpF32Max, OpF32Copysign:
		b, a := ce.pop(), ce.pop()
		ce.push(F32(f32BinOp(op, a.F32(), b.F32())))
		return nil
	case OpF64Add, OpF64Sub, OpF64Mul, OpF64Div, OpF64Min, OpF64Max, OpF64Copysign:
		b, a := ce.pop(), ce.pop()
		ce.push(F64(f64BinOp(op, a.F64(), b.F64())))
		return nil

	case OpI32WrapI64:
		ce.push(U32(uint32(ce.pop().U64())))
		return nil
	case OpI64ExtendI32S:
		ce.push(I64(int64(ce.pop().I32())))
		return nil
	case OpI64ExtendI32U:
		ce.push(U64(uint64(ce.pop().U32())))
		return nil

	case OpI32TruncF32S, OpI32TruncF32U, OpI32TruncF64S, OpI32TruncF64U:
		return ce.execTruncToI32(op)
	case OpI64TruncF32S, OpI64TruncF32U, OpI64TruncF64S, OpI64TruncF64U:
		return ce.execTruncToI64(op)

	case OpF32ConvertI32S:
		ce.push(F32(float32(ce.pop().I32())))
		return nil
	case OpF32ConvertI32U:
		ce.push(F32(float32(ce.pop().U32())))
		return nil
	case OpF32ConvertI64S:
		ce.push(F32(float32(ce.pop().I64())))
		return nil
	case OpF32ConvertI64U:
		ce.push(F32(float32(ce.pop().U64())))
		return nil
	case OpF32DemoteF64:
		ce.push(F32(float32(ce.pop().F64())))
		return nil
	case OpF64ConvertI32S:
		ce.push(F64(float64(ce.pop().I32())))
		return nil
	case OpF64ConvertI32U:
		ce.push(F64(float64(ce.pop().U32())))
		return nil
	case OpF64ConvertI64S:
		ce.push(F64(float64(ce.pop().I64())))
		return nil
	case OpF64ConvertI64U:
		ce.push(F64(float64(ce.pop().U64())))
		return nil
	case OpF64PromoteF32:
		ce.push(F64(float64(ce.pop().F32())))
		return nil

	case OpI32ReinterpretF32:
		ce.push(U32(math.Float32bits(ce.pop().F32())))
		return nil
	case OpI64ReinterpretF64:
		ce.push(U64(math.Float64bits(ce.pop().F64())))
		return nil
	case OpF32ReinterpretI32:
		ce.push(F32(math.Float32frombits(ce.pop().U32())))
		return nil
	case OpF64ReinterpretI64:
		ce.push(F64(math.Float64frombits(ce.pop().U64())))
		return nil

	default:
		return trap(TrapUnreachable) // unreachable in validated code
	}
}

func (ce *callEngine) execTruncToI32(op Opcode) error {
	v := ce.pop()
	var f float64
	signed := op == OpI32TruncF32S || op == OpI32TruncF64S
	if op == OpI32TruncF32S || op == OpI32TruncF32U {
		f = float64(v.F32())
	} else {
		f = v.F64()
	}
	r, err := numeric.TruncToInt32(f, signed)
	if err != nil {
		return translateTrap(err)
	}
	ce.push(I32(r))
	return nil
}

func (ce *callEngine) execTruncToI64(op Opcode) error {
	v := ce.pop()
	var f float64
	signed := op == OpI64TruncF32S || op == OpI64TruncF64S
	if op == OpI64TruncF32S || op == OpI64TruncF32U {
		f = float64(v.F32())
	} else {
		f = v.F64()
	}
	r, err := numeric.TruncToInt64(f, signed)
	if err != nil {
		return translateTrap(err)
	}
	ce.push(I64(r))
	return nil
}

func translateTrap(err error) error {
	switch {
	case errors.Is(err, numeric.ErrIntegerDivideByZero):
		return trap(TrapIntegerDivideByZero)
	case errors.Is(err, numeric.ErrIntegerOverflow):
		return trap(TrapIntegerOverflow)
	case errors.Is(err, numeric.ErrInvalidConversion):
		return trap(TrapInvalidConversion)
	default:
		return err
	}
}

func boolValue(b bool) Value {
	if b {
		return I32(1)
	}
	return I32(0)
}

func i32RelOp(op Opcode, a, b Value) Value {
	au, bu := a.U32(), b.U32()
	as, bs := a.I32(), b.I32()
	switch op {
	case OpI32Eq:
		return boolValue(au == bu)
	case OpI32Ne:
		return boolValue(au != bu)
	case OpI32LtS:
		return boolValue(as < bs)
	case OpI32LtU:
		return boolValue(au < bu)
	case OpI32GtS:
		return boolValue(as > bs)
	case OpI32GtU:
		return boolValue(au > bu)
	case OpI32LeS:
		return boolValue(as <= bs)
	case OpI32LeU:
		return boolValue(au <= bu)
	case OpI32GeS:
		return boolValue(as >= bs)
	default: // OpI32GeU
		return boolValue(au >= bu)
	}
}

func i64RelOp(op Opcode, a, b Value) Value {
	au, bu := a.U64(), b.U64()
	as, bs := a.I64(), b.I64()
	switch op {
	case OpI64Eq:
		return boolValue(au == bu)
	case OpI64Ne:
		return boolValue(au != bu)
	case OpI64LtS:
		return boolValue(as < bs)
	case OpI64LtU:
		return boolValue(au < bu)
	case OpI64GtS:
		return boolValue(as > bs)
	case OpI64GtU:
		return boolValue(au > bu)
	case OpI64LeS:
		return boolValue(as <= bs)
	case OpI64LeU:
		return boolValue(au <= bu)
	case OpI64GeS:
		return boolValue(as >= bs)
	default: // OpI64GeU
		return boolValue(au >= bu)
	}
}

// floatRelOp implements both the f32.* and f64.* comparisons, widened
// to float64: unordered (NaN-involving) comparisons return 0, except
// ne, which returns 1 when either operand is NaN.
func floatRelOp(op Opcode, a, b float64) Value {
	unordered := math.IsNaN(a) || math.IsNaN(b)
	switch op {
	case OpF32Eq, OpF64Eq:
		return boolValue(!unordered && a == b)
	case OpF32Ne, OpF64Ne:
		return boolValue(unordered || a != b)
	case OpF32Lt, OpF64Lt:
		return boolValue(!unordered && a < b)
	case OpF32Gt, OpF64Gt:
		return boolValue(!unordered && a > b)
	case OpF32Le, OpF64Le:
		return boolValue(!unordered && a <= b)
	default: // OpF32Ge, OpF64Ge
		return boolValue(!unordered && a >= b)
	}
}

func i32UnaryBits(op Opcode, v uint32) uint32 {
	switch op {
	case OpI32Clz:
		return numeric.Clz32(v)
	case OpI32Ctz:
		return numeric.Ctz32(v)
	default: // OpI32Popcnt
		return numeric.Popcnt32(v)
	}
}

func i64UnaryBits(op Opcode, v uint64) uint64 {
	switch op {
	case OpI64Clz:
		return numeric.Clz64(v)
	case OpI64Ctz:
		return numeric.Ctz64(v)
	default: // OpI64Popcnt
		return numeric.Popcnt64(v)
	}
}

// i32BinOp implements the non-trapping i32 binary operators: wrapping
// arithmetic is just Go's native uint32 overflow, and shift/rotate
// counts are taken modulo 32 by Go's own `%` and by
// numeric.Rotl32/Rotr32 respectively (§4.1).
func i32BinOp(op Opcode, a, b uint32) uint32 {
	switch op {
	case OpI32Add:
		return a + b
	case OpI32Sub:
		return a - b
	case OpI32Mul:
		return a * b
	case OpI32And:
		return a & b
	case OpI32Or:
		return a | b
	case OpI32Xor:
		return a ^ b
	case OpI32Shl:
		return a << (b % 32)
	case OpI32ShrS:
		return uint32(int32(a) >> (b % 32))
	case OpI32ShrU:
		return a >> (b % 32)
	case OpI32Rotl:
		return numeric.Rotl32(a, b)
	default: // OpI32Rotr
		return numeric.Rotr32(a, b)
	}
}

func i64BinOp(op Opcode, a, b uint64) uint64 {
	switch op {
	case OpI64Add:
		return a + b
	case OpI64Sub:
		return a - b
	case OpI64Mul:
		return a * b
	case OpI64And:
		return a & b
	case OpI64Or:
		return a | b
	case OpI64Xor:
		return a ^ b
	case OpI64Shl:
		return a << (b % 64)
	case OpI64ShrS:
		return uint64(int64(a) >> (b % 64))
	case OpI64ShrU:
		return a >> (b % 64)
	case OpI64Rotl:
		return numeric.Rotl64(a, b)
	default: // OpI64Rotr
		return numeric.Rotr64(a, b)
	}
}

func f32UnaryOp(op Opcode, v float32) float32 {
	switch op {
	case OpF32Abs:
		return float32(math.Abs(float64(v)))
	case OpF32Neg:
		return -v
	case OpF32Ceil:
		return float32(math.Ceil(float64(v)))
	case OpF32Floor:
		return float32(math.Floor(float64(v)))
	case OpF32Trunc:
		return float32(math.Trunc(float64(v)))
	case OpF32Nearest:
		return numeric.Nearest32(v)
	default: // OpF32Sqrt
		return float32(math.Sqrt(float64(v)))
	}
}

func f64UnaryOp(op Opcode, v float64) float64 {
	switch op {
	case OpF64Abs:
		return math.Abs(v)
	case OpF64Neg:
		return -v
	case OpF64Ceil:
		return math.Ceil(v)
	case OpF64Floor:
		return math.Floor(v)
	case OpF64Trunc:
		return math.Trunc(v)
	case OpF64Nearest:
		return numeric.Nearest64(v)
	default: // OpF64Sqrt
		return math.Sqrt(v)
	}
}

func f32BinOp(op Opcode, a, b float32) float32 {
	switch op {
	case OpF32Add:
		return a + b
	case OpF32Sub:
		return a - b
	case OpF32Mul:
		return a * b
	case OpF32Div:
		return a / b
	case OpF32Min:
		return numeric.WasmMin32(a, b)
	case OpF32Max:
		return numeric.WasmMax32(a, b)
	default: // OpF32Copysign
		return float32(math.Copysign(float64(a), float64(b)))
	}
}

func f64BinOp(op Opcode, a, b float64) float64 {
	switch op {
	case OpF64Add:
		return a + b
	case OpF64Sub:
		return a - b
	case OpF64Mul:
		return a * b
	case OpF64Div:
		return a / b
	case OpF64Min:
		return numeric.WasmMin64(a, b)
	case OpF64Max:
		return numeric.WasmMax64(a, b)
	default: // OpF64Copysign
		return math.Copysign(a, b)
	}
}
