package spectest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
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

func writeFile(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
}

func TestRunnerAssertReturn(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "add.0.wasm", addTwoWasm())

	f := &File{Commands: []Command{
		{Type: "module", Filename: "add.0.wasm", Line: 1},
		{Type: "assert_return", Line: 2,
			Action:   &Action{Type: "invoke", Field: "add", Args: []ValJSON{{Type: "i32", Value: "7"}, {Type: "i32", Value: "35"}}},
			Expected: []ValJSON{{Type: "i32", Value: "42"}},
		},
	}}

	rep := NewRunner(dir).Run(f)
	require.Empty(t, rep.Failed())
}

func TestRunnerAssertReturnMismatchFails(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "add.0.wasm", addTwoWasm())

	f := &File{Commands: []Command{
		{Type: "module", Filename: "add.0.wasm"},
		{Type: "assert_return",
			Action:   &Action{Type: "invoke", Field: "add", Args: []ValJSON{{Type: "i32", Value: "1"}, {Type: "i32", Value: "1"}}},
			Expected: []ValJSON{{Type: "i32", Value: "3"}},
		},
	}}

	rep := NewRunner(dir).Run(f)
	require.Len(t, rep.Failed(), 1)
}

func TestRunnerAssertMalformed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.0.wasm", []byte{0x00, 0x61, 0x73, 0x6C})

	f := &File{Commands: []Command{
		{Type: "assert_malformed", Filename: "bad.0.wasm", Text: "invalid magic number"},
	}}

	rep := NewRunner(dir).Run(f)
	require.Empty(t, rep.Failed())
}

func TestLoadFileParsesJSON(t *testing.T) {
	dir := t.TempDir()
	doc := File{SourceFilename: "x.wast", Commands: []Command{{Type: "module", Filename: "x.0.wasm", Line: 1}}}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	writeFile(t, dir, "x.json", data)

	f, err := LoadFile(filepath.Join(dir, "x.json"))
	require.NoError(t, err)
	require.Len(t, f.Commands, 1)
	require.Equal(t, "module", f.Commands[0].Type)
}
