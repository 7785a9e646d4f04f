package wasm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func header() []byte { return []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00} }

func TestDecodeRejectsBadMagic(t *testing.T) {
	_, err := Decode([]byte{0x00, 0x61, 0x73, 0x6C, 0x01, 0x00, 0x00, 0x00})
	require.Error(t, err)
	var de *DecodeError
	require.ErrorAs(t, err, &de)
}

func TestDecodeRejectsBadVersion(t *testing.T) {
	_, err := Decode([]byte{0x00, 0x61, 0x73, 0x6D, 0x02, 0x00, 0x00, 0x00})
	require.Error(t, err)
}

func TestDecodeRejectsTruncatedHeader(t *testing.T) {
	_, err := Decode([]byte{0x00, 0x61, 0x73})
	require.Error(t, err)
}

func TestDecodeEmptyModule(t *testing.T) {
	m, err := Decode(header())
	require.NoError(t, err)
	require.Empty(t, m.Types)
	require.Empty(t, m.Funcs)
}

// buildAddTwoModule hand-assembles a module exporting a single function
// "add" of type (i32 i32) -> i32 that returns local0 + local1: the
// canonical smallest nontrivial Wasm 1.0 binary.
func buildAddTwoModule(t *testing.T) []byte {
	t.Helper()
	b := append([]byte{}, header()...)

	// type section: [(func (param i32 i32) (result i32))]
	typeSec := []byte{
		0x01,       // n types
		0x60,       // func form
		0x02,       // n params
		0x7f, 0x7f, // i32 i32
		0x01,       // n results
		0x7f,       // i32
	}
	b = appendSection(b, sectionType, typeSec)

	// function section: [0] (one function, type index 0)
	b = appendSection(b, sectionFunction, []byte{0x01, 0x00})

	// export section: [("add", func, 0)]
	exportSec := []byte{
		0x01,                         // n exports
		0x03, 'a', 'd', 'd',          // name "add"
		0x00, // func kind
		0x00, // func index 0
	}
	b = appendSection(b, sectionExport, exportSec)

	// code section: one body, no locals, local.get 0; local.get 1; i32.add; end
	body := []byte{
		0x00, // 0 local entries
		0x20, 0x00, // local.get 0
		0x20, 0x01, // local.get 1
		0x6A,       // i32.add
		0x0B,       // end
	}
	codeSec := append([]byte{0x01, byte(len(body))}, body...)
	b = appendSection(b, sectionCode, codeSec)

	return b
}

func appendSection(b []byte, id byte, payload []byte) []byte {
	b = append(b, id)
	b = append(b, encodeU32Test(uint32(len(payload)))...)
	return append(b, payload...)
}

func encodeU32Test(v uint32) []byte {
	var out []byte
	for {
		x := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, x|0x80)
			continue
		}
		out = append(out, x)
		return out
	}
}

func TestDecodeAddTwoModule(t *testing.T) {
	m, err := Decode(buildAddTwoModule(t))
	require.NoError(t, err)
	require.Len(t, m.Types, 1)
	require.Equal(t, []ValueType{ValueTypeI32, ValueTypeI32}, m.Types[0].Params)
	require.Equal(t, []ValueType{ValueTypeI32}, m.Types[0].Results)
	require.Len(t, m.Funcs, 1)
	require.Equal(t, Index(0), m.Funcs[0].TypeIndex)
	require.Len(t, m.Funcs[0].Body, 3)
	require.Equal(t, OpLocalGet, m.Funcs[0].Body[0].Op)
	require.Equal(t, Index(1), m.Funcs[0].Body[1].VarIdx)
	require.Equal(t, OpI32Add, m.Funcs[0].Body[2].Op)
	require.Len(t, m.Exports, 1)
	require.Equal(t, "add", m.Exports[0].Name)
}

func TestDecodeNestedIfElse(t *testing.T) {
	b := append([]byte{}, header()...)
	b = appendSection(b, sectionType, []byte{0x01, 0x60, 0x00, 0x00})
	b = appendSection(b, sectionFunction, []byte{0x01, 0x00})
	body := []byte{
		0x00,       // 0 locals
		0x41, 0x01, // i32.const 1
		0x04, 0x40, // if (block type empty)
		0x41, 0x02, // i32.const 2
		0x05,       // else
		0x41, 0x03, // i32.const 3
		0x0B, // end (if)
		0x1A, // drop
		0x0B, // end (function)
	}
	codeSec := append([]byte{0x01, byte(len(body))}, body...)
	b = appendSection(b, sectionCode, codeSec)

	m, err := Decode(b)
	require.NoError(t, err)
	ifInstr := m.Funcs[0].Body[1]
	require.Equal(t, OpIf, ifInstr.Op)
	require.Len(t, ifInstr.Then, 1)
	require.Equal(t, int32(2), ifInstr.Then[0].ImmI32)
	require.Len(t, ifInstr.Else, 1)
	require.Equal(t, int32(3), ifInstr.Else[0].ImmI32)
}

func TestDecodeRejectsSectionOutOfOrder(t *testing.T) {
	b := append([]byte{}, header()...)
	b = appendSection(b, sectionFunction, []byte{0x00})
	b = appendSection(b, sectionType, []byte{0x00})
	_, err := Decode(b)
	require.Error(t, err)
}

func TestDecodeRejectsCodeFunctionCountMismatch(t *testing.T) {
	b := append([]byte{}, header()...)
	b = appendSection(b, sectionType, []byte{0x01, 0x60, 0x00, 0x00})
	b = appendSection(b, sectionFunction, []byte{0x01, 0x00})
	b = appendSection(b, sectionCode, []byte{0x00}) // 0 bodies, 1 declared
	_, err := Decode(b)
	require.Error(t, err)
}

func TestDecodeCustomSectionPreserved(t *testing.T) {
	b := append([]byte{}, header()...)
	payload := append([]byte{0x04, 'n', 'a', 'm', 'e'}, []byte{0xAA, 0xBB}...)
	b = appendSection(b, sectionCustom, payload)
	m, err := Decode(b)
	require.NoError(t, err)
	require.Len(t, m.Customs, 1)
	require.Equal(t, "name", m.Customs[0].Name)
	require.Equal(t, []byte{0xAA, 0xBB}, m.Customs[0].Payload)
}
