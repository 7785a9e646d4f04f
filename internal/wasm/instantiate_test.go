package wasm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInstantiateAndInvokeAddTwo(t *testing.T) {
	m := addTwoModule()
	require.NoError(t, m.Validate())

	s := NewStore()
	inst, err := Instantiate(s, m, nil)
	require.NoError(t, err)

	ev, ok := inst.Exports["add"]
	require.True(t, ok)
	results, err := Invoke(s, ev.Addr, []Value{I32(3), I32(4)})
	require.NoError(t, err)
	require.Equal(t, int32(7), results[0].I32())
}

func TestInstantiateRejectsWrongImportCount(t *testing.T) {
	m := &Module{Imports: []Import{{Module: "env", Name: "f", Kind: ExternKindFunc, DescFunc: 0}}, Types: []FuncType{{}}}
	s := NewStore()
	_, err := Instantiate(s, m, nil)
	require.Error(t, err)
	var le *LinkError
	require.ErrorAs(t, err, &le)
}

func TestInstantiateRejectsIncompatibleImportSignature(t *testing.T) {
	s := NewStore()
	hostAddr := s.AddHostFunc(&HostFunction{
		Type: FuncType{Params: []ValueType{ValueTypeI32}},
		Func: func(args []Value) ([]Value, error) { return nil, nil },
	})
	m := &Module{
		Types:   []FuncType{{Results: []ValueType{ValueTypeI32}}},
		Imports: []Import{{Module: "env", Name: "f", Kind: ExternKindFunc, DescFunc: 0}},
	}
	_, err := Instantiate(s, m, []ExternVal{{Kind: ExternFunc, Addr: hostAddr}})
	require.Error(t, err)
}

func TestInstantiateRunsStartFunction(t *testing.T) {
	start := Index(0)
	mutable := true
	m := &Module{
		Types: []FuncType{{}},
		Funcs: []Function{{Body: []Instr{
			{Op: OpI32Const, ImmI32: 99},
			{Op: OpGlobalSet, VarIdx: 0},
		}}},
		Globals: []Global{{
			Type: GlobalType{ValType: ValueTypeI32, Mutable: mutable},
			Init: ConstExpr{Opcode: OpI32Const, ImmI32: 0},
		}},
		Start: &start,
	}
	require.NoError(t, m.Validate())

	s := NewStore()
	inst, err := Instantiate(s, m, nil)
	require.NoError(t, err)
	v, err := s.GlobalGet(inst.globalAddr(0))
	require.NoError(t, err)
	require.Equal(t, int32(99), v.I32())
}

func TestInstantiateElementSegmentOutOfRangeFailsBeforeAnyWrite(t *testing.T) {
	m := &Module{
		Types:  []FuncType{{}},
		Funcs:  []Function{{Body: nil}},
		Tables: []TableType{{Limits: Limits{Min: 1}}},
		Elements: []ElementSegment{{
			TableIndex:  0,
			Offset:      ConstExpr{Opcode: OpI32Const, ImmI32: 0},
			FuncIndices: []Index{0},
		}, {
			TableIndex:  0,
			Offset:      ConstExpr{Opcode: OpI32Const, ImmI32: 10}, // out of range for a 1-entry table
			FuncIndices: []Index{0},
		}},
	}
	s := NewStore()
	_, err := Instantiate(s, m, nil)
	require.Error(t, err)
	// the store's table was allocated but must be left untouched: no
	// partial writes across the element segment list (§4.6 step 4).
	require.Len(t, s.Tables, 1)
	require.Nil(t, s.Tables[0].Elems[0])
}

func TestInstantiateDataSegmentWrites(t *testing.T) {
	m := &Module{
		Memories: []MemoryType{{Limits: Limits{Min: 1}}},
		Data: []DataSegment{{
			MemIndex: 0,
			Offset:   ConstExpr{Opcode: OpI32Const, ImmI32: 8},
			Init:     []byte{0xDE, 0xAD, 0xBE, 0xEF},
		}},
	}
	s := NewStore()
	inst, err := Instantiate(s, m, nil)
	require.NoError(t, err)
	data, err := s.MemoryRead(inst.memAddr(0), 8, 4)
	require.NoError(t, err)
	require.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, data)
}

func TestInstantiateImportedGlobalVisibleToConstExpr(t *testing.T) {
	s := NewStore()
	importedGlobal := s.allocGlobal(GlobalType{ValType: ValueTypeI32, Mutable: false}, I32(41))

	m := &Module{
		Imports: []Import{{Module: "env", Name: "base", Kind: ExternKindGlobal, DescGlobal: GlobalType{ValType: ValueTypeI32, Mutable: false}}},
		Globals: []Global{{
			Type: GlobalType{ValType: ValueTypeI32, Mutable: false},
			Init: ConstExpr{Opcode: OpGlobalGet, GlobalIdx: 0},
		}},
	}
	inst, err := Instantiate(s, m, []ExternVal{{Kind: ExternGlobal, Addr: importedGlobal}})
	require.NoError(t, err)
	v, err := s.GlobalGet(inst.globalAddr(1))
	require.NoError(t, err)
	require.Equal(t, int32(41), v.I32())
}
