package wasm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStoreMemoryGrowWithinMax(t *testing.T) {
	s := NewStore()
	max := uint32(2)
	addr := s.allocMemory(MemoryType{Limits: Limits{Min: 1, Max: &max}})

	prev, err := s.MemoryGrow(addr, 1)
	require.NoError(t, err)
	require.Equal(t, int32(1), prev)
	size, err := s.MemorySize(addr)
	require.NoError(t, err)
	require.Equal(t, uint32(2), size)
}

func TestStoreMemoryGrowBeyondMaxFails(t *testing.T) {
	s := NewStore()
	max := uint32(1)
	addr := s.allocMemory(MemoryType{Limits: Limits{Min: 1, Max: &max}})

	prev, err := s.MemoryGrow(addr, 1)
	require.NoError(t, err)
	require.Equal(t, int32(-1), prev)
}

func TestStoreMemoryGrowBeyondFormatCeilingFails(t *testing.T) {
	s := NewStore()
	addr := s.allocMemory(MemoryType{Limits: Limits{Min: 0}}) // no declared max

	prev, err := s.MemoryGrow(addr, maxMemoryPages+1)
	require.NoError(t, err)
	require.Equal(t, int32(-1), prev)
}

func TestStoreMemoryReadWriteBounds(t *testing.T) {
	s := NewStore()
	addr := s.allocMemory(MemoryType{Limits: Limits{Min: 1}})

	require.NoError(t, s.MemoryWrite(addr, 0, []byte{1, 2, 3, 4}))
	data, err := s.MemoryRead(addr, 0, 4)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, data)

	_, err = s.MemoryRead(addr, PageSize-2, 4)
	require.Error(t, err)
	var te *TrapError
	require.ErrorAs(t, err, &te)
	require.Equal(t, TrapOutOfBoundsMemory, te.Kind)
}

func TestStoreGlobalMutability(t *testing.T) {
	s := NewStore()
	addr := s.allocGlobal(GlobalType{ValType: ValueTypeI32, Mutable: false}, I32(7))

	v, err := s.GlobalGet(addr)
	require.NoError(t, err)
	require.Equal(t, int32(7), v.I32())

	err = s.GlobalSet(addr, I32(8))
	require.Error(t, err)
}

func TestStoreTableGetSetAndBounds(t *testing.T) {
	s := NewStore()
	addr := s.allocTable(TableType{Limits: Limits{Min: 2}})

	got, err := s.TableGet(addr, 0)
	require.NoError(t, err)
	require.Nil(t, got)

	funcAddr := 3
	require.NoError(t, s.TableSet(addr, 1, &funcAddr))
	got, err = s.TableGet(addr, 1)
	require.NoError(t, err)
	require.Equal(t, funcAddr, *got)

	_, err = s.TableGet(addr, 5)
	require.Error(t, err)
	var te *TrapError
	require.ErrorAs(t, err, &te)
	require.Equal(t, TrapOutOfBoundsTable, te.Kind)
}

func TestStoreAddHostFunc(t *testing.T) {
	s := NewStore()
	addr := s.AddHostFunc(&HostFunction{
		Type: FuncType{Params: []ValueType{ValueTypeI32}, Results: []ValueType{ValueTypeI32}},
		Func: func(args []Value) ([]Value, error) {
			return []Value{I32(args[0].I32() * 2)}, nil
		},
	})
	fi, err := s.funcAt(addr)
	require.NoError(t, err)
	require.True(t, fi.IsHost())
	out, err := fi.Host.Func([]Value{I32(21)})
	require.NoError(t, err)
	require.Equal(t, int32(42), out[0].I32())
}
