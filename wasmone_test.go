package wasmone_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasmone/wasmone"
)

func leb(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}

func section(id byte, payload []byte) []byte {
	return append(append([]byte{id}, leb(uint32(len(payload)))...), payload...)
}

// addTwoWasm hand-assembles a module exporting add: (i32,i32)->i32.
func addTwoWasm() []byte {
	b := []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}
	b = append(b, section(1, []byte{0x01, 0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7f})...)
	b = append(b, section(3, []byte{0x01, 0x00})...)
	b = append(b, section(7, append([]byte{0x01, 0x03}, append([]byte("add"), 0x00, 0x00)...))...)
	body := []byte{0x00, 0x20, 0x00, 0x20, 0x01, 0x6A, 0x0B}
	b = append(b, section(10, append([]byte{0x01, byte(len(body))}, body...))...)
	return b
}

func TestDecodeValidateInstantiateInvoke(t *testing.T) {
	m, err := wasmone.Decode(addTwoWasm())
	require.NoError(t, err)
	require.NoError(t, m.Validate())

	store := wasmone.NewStore()
	inst, err := store.Instantiate(m, nil)
	require.NoError(t, err)

	ev, ok := inst.Exports()["add"]
	require.True(t, ok)
	require.Equal(t, wasmone.ExternKindFunc, ev.Kind)

	results, err := store.Invoke(ev.Addr, wasmone.I32(7), wasmone.I32(35))
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, int32(42), results[0].I32())
}

func TestDecodeRejectsMalformedModule(t *testing.T) {
	_, err := wasmone.Decode([]byte{0x00, 0x61, 0x73, 0x6C})
	require.Error(t, err)
}

func TestValidateWithConfigRejectsOversizedMemory(t *testing.T) {
	b := []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}
	// memory section: 1 memory, limits flag=0 (min only), min=100 pages.
	b = append(b, section(5, []byte{0x01, 0x00, 0x64})...)

	m, err := wasmone.Decode(b)
	require.NoError(t, err)
	require.NoError(t, m.Validate())

	cfg := wasmone.NewRuntimeConfig().WithMemoryMaxPages(10)
	require.Error(t, m.ValidateWithConfig(cfg))
}

func TestAddHostFuncIsInvokedThroughImport(t *testing.T) {
	b := []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}
	b = append(b, section(1, []byte{0x01, 0x60, 0x01, 0x7f, 0x01, 0x7f})...)
	importPayload := []byte{0x01} // 1 import
	importPayload = append(importPayload, 0x03)
	importPayload = append(importPayload, "env"...)
	importPayload = append(importPayload, 0x03)
	importPayload = append(importPayload, "dbl"...)
	importPayload = append(importPayload, 0x00, 0x00) // kind=func, typeidx=0
	b = append(b, section(2, importPayload)...)
	b = append(b, section(3, []byte{0x01, 0x00})...)
	b = append(b, section(7, append([]byte{0x01, 0x05}, append([]byte("apply"), 0x00, 0x01)...))...)
	body := []byte{0x00, 0x20, 0x00, 0x10, 0x00, 0x0B}
	b = append(b, section(10, append([]byte{0x01, byte(len(body))}, body...))...)

	m, err := wasmone.Decode(b)
	require.NoError(t, err)
	require.NoError(t, m.Validate())

	store := wasmone.NewStore()
	double := store.AddHostFunc(wasmone.HostFunction{
		Params:  []wasmone.ValueType{wasmone.ValueTypeI32},
		Results: []wasmone.ValueType{wasmone.ValueTypeI32},
		Func: func(args []wasmone.Value) ([]wasmone.Value, error) {
			return []wasmone.Value{wasmone.I32(args[0].I32() * 2)}, nil
		},
	})

	inst, err := store.Instantiate(m, []wasmone.ExternVal{double})
	require.NoError(t, err)

	ev := inst.Exports()["apply"]
	results, err := store.Invoke(ev.Addr, wasmone.I32(21))
	require.NoError(t, err)
	require.Equal(t, int32(42), results[0].I32())
}
