package wasm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func addTwoModule() *Module {
	return &Module{
		Types: []FuncType{{Params: []ValueType{ValueTypeI32, ValueTypeI32}, Results: []ValueType{ValueTypeI32}}},
		Funcs: []Function{{
			TypeIndex: 0,
			Body: []Instr{
				{Op: OpLocalGet, VarIdx: 0},
				{Op: OpLocalGet, VarIdx: 1},
				{Op: OpI32Add},
			},
		}},
		Exports: []Export{{Name: "add", Kind: ExternKindFunc, Index: 0}},
	}
}

func TestValidateAddTwoModule(t *testing.T) {
	require.NoError(t, addTwoModule().Validate())
}

func TestValidateTypeMismatchOnPop(t *testing.T) {
	m := &Module{
		Types: []FuncType{{Results: []ValueType{ValueTypeI32}}},
		Funcs: []Function{{Body: []Instr{
			{Op: OpI64Const, ImmI64: 1},
		}}},
	}
	err := m.Validate()
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestValidateStackUnderflow(t *testing.T) {
	m := &Module{
		Types: []FuncType{{Results: []ValueType{ValueTypeI32}}},
		Funcs: []Function{{Body: []Instr{{Op: OpI32Add}}}},
	}
	require.Error(t, m.Validate())
}

// TestValidateUnreachablePolymorphic checks that dead code after
// unreachable may carry any stack shape (§4.4 "Stack-polymorphic
// rule"): a function returning i32 whose body is unreachable;i64.eqz
// still validates because pops after the unreachable marker yield the
// unknown type, so i64.eqz consumes an i64 that was never pushed.
func TestValidateUnreachablePolymorphic(t *testing.T) {
	m := &Module{
		Types: []FuncType{{Results: []ValueType{ValueTypeI32}}},
		Funcs: []Function{{Body: []Instr{
			{Op: OpUnreachable},
			{Op: OpI64Eqz}, // would be a stack underflow if code were live
		}}},
	}
	require.NoError(t, m.Validate())
}

func TestValidateBranchDepthOutOfRange(t *testing.T) {
	m := &Module{
		Types: []FuncType{{}},
		Funcs: []Function{{Body: []Instr{
			{Op: OpBr, LabelIdx: 5},
		}}},
	}
	require.Error(t, m.Validate())
}

func TestValidateBlockLabelArityResolvesAtBr(t *testing.T) {
	// (block (result i32) i32.const 1 br 0) followed by drop
	m := &Module{
		Types: []FuncType{{}},
		Funcs: []Function{{Body: []Instr{
			{Op: OpBlock, BlockType: BlockType{Result: ValueTypeI32}, Then: []Instr{
				{Op: OpI32Const, ImmI32: 1},
				{Op: OpBr, LabelIdx: 0},
			}},
			{Op: OpDrop},
		}}},
	}
	require.NoError(t, m.Validate())
}

func TestValidateMemoryInstrRequiresMemory(t *testing.T) {
	m := &Module{
		Types: []FuncType{{}},
		Funcs: []Function{{Body: []Instr{
			{Op: OpI32Const, ImmI32: 0},
			{Op: OpI32Load, Mem: MemArg{Align: 2}},
			{Op: OpDrop},
		}}},
	}
	require.Error(t, m.Validate())
}

func TestValidateAtMostOneMemory(t *testing.T) {
	one := uint32(1)
	m := &Module{
		Memories: []MemoryType{{Limits: Limits{Min: 1}}, {Limits: Limits{Min: 1, Max: &one}}},
	}
	require.Error(t, m.Validate())
}

func TestValidateDuplicateExportName(t *testing.T) {
	m := &Module{
		Types: []FuncType{{}},
		Funcs: []Function{{Body: nil}, {Body: nil}},
		Exports: []Export{
			{Name: "f", Kind: ExternKindFunc, Index: 0},
			{Name: "f", Kind: ExternKindFunc, Index: 1},
		},
	}
	require.Error(t, m.Validate())
}

func TestValidateGlobalInitMustBeImportedImmutable(t *testing.T) {
	m := &Module{
		Globals: []Global{{
			Type: GlobalType{ValType: ValueTypeI32},
			Init: ConstExpr{Opcode: OpGlobalGet, GlobalIdx: 0}, // no imported globals exist
		}},
	}
	require.Error(t, m.Validate())
}

func TestValidateStartFunctionMustBeNiladic(t *testing.T) {
	start := Index(0)
	m := &Module{
		Types: []FuncType{{Results: []ValueType{ValueTypeI32}}},
		Funcs: []Function{{Body: []Instr{{Op: OpI32Const, ImmI32: 1}}}},
		Start: &start,
	}
	require.Error(t, m.Validate())
}

func TestCheckMemoryCeilingRejectsOversizedMemory(t *testing.T) {
	m := &Module{Memories: []MemoryType{{Limits: Limits{Min: 100}}}}
	require.NoError(t, m.Validate())
	require.Error(t, m.CheckMemoryCeiling(10))
	require.NoError(t, m.CheckMemoryCeiling(100))
}
