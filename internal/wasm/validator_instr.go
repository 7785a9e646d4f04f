package wasm

import "fmt"

// memAccess describes one memory instruction's operand/result type and
// the natural alignment (as log2 of bytes) of the width it accesses,
// used by the validator's "alignment must not exceed natural alignment"
// check (§4.4); the interpreter reads only its store flag (§4.7).
type memAccess struct {
	valueType  ValueType
	store      bool // true for store instructions, false for load
	naturalLog uint32
}

var memAccessTable = map[Opcode]memAccess{
	OpI32Load:    {ValueTypeI32, false, 2},
	OpI64Load:    {ValueTypeI64, false, 3},
	OpF32Load:    {ValueTypeF32, false, 2},
	OpF64Load:    {ValueTypeF64, false, 3},
	OpI32Load8S:  {ValueTypeI32, false, 0},
	OpI32Load8U:  {ValueTypeI32, false, 0},
	OpI32Load16S: {ValueTypeI32, false, 1},
	OpI32Load16U: {ValueTypeI32, false, 1},
	OpI64Load8S:  {ValueTypeI64, false, 0},
	OpI64Load8U:  {ValueTypeI64, false, 0},
	OpI64Load16S: {ValueTypeI64, false, 1},
	OpI64Load16U: {ValueTypeI64, false, 1},
	OpI64Load32S: {ValueTypeI64, false, 2},
	OpI64Load32U: {ValueTypeI64, false, 2},
	OpI32Store:   {ValueTypeI32, true, 2},
	OpI64Store:   {ValueTypeI64, true, 3},
	OpF32Store:   {ValueTypeF32, true, 2},
	OpF64Store:   {ValueTypeF64, true, 3},
	OpI32Store8:  {ValueTypeI32, true, 0},
	OpI32Store16: {ValueTypeI32, true, 1},
	OpI64Store8:  {ValueTypeI64, true, 0},
	OpI64Store16: {ValueTypeI64, true, 1},
	OpI64Store32: {ValueTypeI64, true, 2},
}

func isMemoryInstr(op Opcode) bool {
	_, ok := memAccessTable[op]
	return ok
}

func (v *validator) validateMemoryInstr(in *Instr) error {
	acc, ok := memAccessTable[in.Op]
	if !ok {
		return fmt.Errorf("invalid or unsupported opcode %#x", in.Op)
	}
	if err := v.requireMemory(); err != nil {
		return err
	}
	if in.Mem.Align > acc.naturalLog {
		return fmt.Errorf("alignment %d exceeds natural alignment of opcode %#x", in.Mem.Align, in.Op)
	}
	if acc.store {
		if err := v.popKnown(acc.valueType); err != nil {
			return err
		}
		return v.popKnown(ValueTypeI32)
	}
	if err := v.popKnown(ValueTypeI32); err != nil {
		return err
	}
	v.pushKnown(acc.valueType)
	return nil
}

// numericSig is a numeric instruction's static signature: the operand
// types it pops (in push order, so the last entry is popped first)
// and the type it pushes.
type numericSig struct {
	operands []ValueType
	result   ValueType
}

func unop(t ValueType) numericSig          { return numericSig{operands: []ValueType{t}, result: t} }
func unopTo(t, result ValueType) numericSig { return numericSig{operands: []ValueType{t}, result: result} }
func binop(t ValueType) numericSig          { return numericSig{operands: []ValueType{t, t}, result: t} }
func testop(t ValueType) numericSig         { return numericSig{operands: []ValueType{t}, result: ValueTypeI32} }
func relop(t ValueType) numericSig          { return numericSig{operands: []ValueType{t, t}, result: ValueTypeI32} }

var numericSigTable = map[Opcode]numericSig{
	OpI32Eqz: testop(ValueTypeI32), OpI64Eqz: testop(ValueTypeI64),

	OpI32Eq: relop(ValueTypeI32), OpI32Ne: relop(ValueTypeI32),
	OpI32LtS: relop(ValueTypeI32), OpI32LtU: relop(ValueTypeI32),
	OpI32GtS: relop(ValueTypeI32), OpI32GtU: relop(ValueTypeI32),
	OpI32LeS: relop(ValueTypeI32), OpI32LeU: relop(ValueTypeI32),
	OpI32GeS: relop(ValueTypeI32), OpI32GeU: relop(ValueTypeI32),

	OpI64Eq: relop(ValueTypeI64), OpI64Ne: relop(ValueTypeI64),
	OpI64LtS: relop(ValueTypeI64), OpI64LtU: relop(ValueTypeI64),
	OpI64GtS: relop(ValueTypeI64), OpI64GtU: relop(ValueTypeI64),
	OpI64LeS: relop(ValueTypeI64), OpI64LeU: relop(ValueTypeI64),
	OpI64GeS: relop(ValueTypeI64), OpI64GeU: relop(ValueTypeI64),

	OpF32Eq: relop(ValueTypeF32), OpF32Ne: relop(ValueTypeF32),
	OpF32Lt: relop(ValueTypeF32), OpF32Gt: relop(ValueTypeF32),
	OpF32Le: relop(ValueTypeF32), OpF32Ge: relop(ValueTypeF32),

	OpF64Eq: relop(ValueTypeF64), OpF64Ne: relop(ValueTypeF64),
	OpF64Lt: relop(ValueTypeF64), OpF64Gt: relop(ValueTypeF64),
	OpF64Le: relop(ValueTypeF64), OpF64Ge: relop(ValueTypeF64),

	OpI32Clz: unop(ValueTypeI32), OpI32Ctz: unop(ValueTypeI32), OpI32Popcnt: unop(ValueTypeI32),
	OpI32Add: binop(ValueTypeI32), OpI32Sub: binop(ValueTypeI32), OpI32Mul: binop(ValueTypeI32),
	OpI32DivS: binop(ValueTypeI32), OpI32DivU: binop(ValueTypeI32),
	OpI32RemS: binop(ValueTypeI32), OpI32RemU: binop(ValueTypeI32),
	OpI32And: binop(ValueTypeI32), OpI32Or: binop(ValueTypeI32), OpI32Xor: binop(ValueTypeI32),
	OpI32Shl: binop(ValueTypeI32), OpI32ShrS: binop(ValueTypeI32), OpI32ShrU: binop(ValueTypeI32),
	OpI32Rotl: binop(ValueTypeI32), OpI32Rotr: binop(ValueTypeI32),

	OpI64Clz: unop(ValueTypeI64), OpI64Ctz: unop(ValueTypeI64), OpI64Popcnt: unop(ValueTypeI64),
	OpI64Add: binop(ValueTypeI64), OpI64Sub: binop(ValueTypeI64), OpI64Mul: binop(ValueTypeI64),
	OpI64DivS: binop(ValueTypeI64), OpI64DivU: binop(ValueTypeI64),
	OpI64RemS: binop(ValueTypeI64), OpI64RemU: binop(ValueTypeI64),
	OpI64And: binop(ValueTypeI64), OpI64Or: binop(ValueTypeI64), OpI64Xor: binop(ValueTypeI64),
	OpI64Shl: binop(ValueTypeI64), OpI64ShrS: binop(ValueTypeI64), OpI64ShrU: binop(ValueTypeI64),
	OpI64Rotl: binop(ValueTypeI64), OpI64Rotr: binop(ValueTypeI64),

	OpF32Abs: unop(ValueTypeF32), OpF32Neg: unop(ValueTypeF32), OpF32Ceil: unop(ValueTypeF32),
	OpF32Floor: unop(ValueTypeF32), OpF32Trunc: unop(ValueTypeF32), OpF32Nearest: unop(ValueTypeF32),
	OpF32Sqrt: unop(ValueTypeF32), OpF32Add: binop(ValueTypeF32), OpF32Sub: binop(ValueTypeF32),
	OpF32Mul: binop(ValueTypeF32), OpF32Div: binop(ValueTypeF32),
	OpF32Min: binop(ValueTypeF32), OpF32Max: binop(ValueTypeF32), OpF32Copysign: binop(ValueTypeF32),

	OpF64Abs: unop(ValueTypeF64), OpF64Neg: unop(ValueTypeF64), OpF64Ceil: unop(ValueTypeF64),
	OpF64Floor: unop(ValueTypeF64), OpF64Trunc: unop(ValueTypeF64), OpF64Nearest: unop(ValueTypeF64),
	OpF64Sqrt: unop(ValueTypeF64), OpF64Add: binop(ValueTypeF64), OpF64Sub: binop(ValueTypeF64),
	OpF64Mul: binop(ValueTypeF64), OpF64Div: binop(ValueTypeF64),
	OpF64Min: binop(ValueTypeF64), OpF64Max: binop(ValueTypeF64), OpF64Copysign: binop(ValueTypeF64),

	OpI32WrapI64:    unopTo(ValueTypeI64, ValueTypeI32),
	OpI32TruncF32S:  unopTo(ValueTypeF32, ValueTypeI32),
	OpI32TruncF32U:  unopTo(ValueTypeF32, ValueTypeI32),
	OpI32TruncF64S:  unopTo(ValueTypeF64, ValueTypeI32),
	OpI32TruncF64U:  unopTo(ValueTypeF64, ValueTypeI32),
	OpI64ExtendI32S: unopTo(ValueTypeI32, ValueTypeI64),
	OpI64ExtendI32U: unopTo(ValueTypeI32, ValueTypeI64),
	OpI64TruncF32S:  unopTo(ValueTypeF32, ValueTypeI64),
	OpI64TruncF32U:  unopTo(ValueTypeF32, ValueTypeI64),
	OpI64TruncF64S:  unopTo(ValueTypeF64, ValueTypeI64),
	OpI64TruncF64U:  unopTo(ValueTypeF64, ValueTypeI64),

	OpF32ConvertI32S:    unopTo(ValueTypeI32, ValueTypeF32),
	OpF32ConvertI32U:    unopTo(ValueTypeI32, ValueTypeF32),
	OpF32ConvertI64S:    unopTo(ValueTypeI64, ValueTypeF32),
	OpF32ConvertI64U:    unopTo(ValueTypeI64, ValueTypeF32),
	OpF32DemoteF64:      unopTo(ValueTypeF64, ValueTypeF32),
	OpF64ConvertI32S:    unopTo(ValueTypeI32, ValueTypeF64),
	OpF64ConvertI32U:    unopTo(ValueTypeI32, ValueTypeF64),
	OpF64ConvertI64S:    unopTo(ValueTypeI64, ValueTypeF64),
	OpF64ConvertI64U:    unopTo(ValueTypeI64, ValueTypeF64),
	OpF64PromoteF32:     unopTo(ValueTypeF32, ValueTypeF64),
	OpI32ReinterpretF32: unopTo(ValueTypeF32, ValueTypeI32),
	OpI64ReinterpretF64: unopTo(ValueTypeF64, ValueTypeI64),
	OpF32ReinterpretI32: unopTo(ValueTypeI32, ValueTypeF32),
	OpF64ReinterpretI64: unopTo(ValueTypeI64, ValueTypeF64),
}

func (v *validator) validateNumericInstr(op Opcode) error {
	sig, ok := numericSigTable[op]
	if !ok {
		return fmt.Errorf("invalid or unsupported opcode %#x", op)
	}
	for i := len(sig.operands) - 1; i >= 0; i-- {
		if err := v.popKnown(sig.operands[i]); err != nil {
			return err
		}
	}
	v.pushKnown(sig.result)
	return nil
}
