package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
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

func addTwoWasm() []byte {
	b := []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}
	b = append(b, section(1, []byte{0x01, 0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7f})...)
	b = append(b, section(3, []byte{0x01, 0x00})...)
	b = append(b, section(7, append([]byte{0x01, 0x03}, append([]byte("add"), 0x00, 0x00)...))...)
	body := []byte{0x00, 0x20, 0x00, 0x20, 0x01, 0x6A, 0x0B}
	b = append(b, section(10, append([]byte{0x01, byte(len(body))}, body...))...)
	return b
}

func writeWasm(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "add.wasm")
	require.NoError(t, os.WriteFile(path, addTwoWasm(), 0o644))
	return path
}

func TestValidateCmdAcceptsValidModule(t *testing.T) {
	root := NewRootCmd(zaptest.NewLogger(t))
	root.SetArgs([]string{"validate", writeWasm(t)})
	require.NoError(t, root.Execute())
}

func TestValidateCmdRejectsMalformedModule(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wasm")
	require.NoError(t, os.WriteFile(path, []byte{0x00, 0x61, 0x73, 0x6C}, 0o644))

	root := NewRootCmd(zaptest.NewLogger(t))
	root.SetArgs([]string{"validate", path})
	require.Error(t, root.Execute())
}

func TestRunCmdInvokesExportedFunction(t *testing.T) {
	var out bytes.Buffer
	root := NewRootCmd(zaptest.NewLogger(t))
	root.SetOut(&out)
	root.SetArgs([]string{"run", writeWasm(t), "add", "7", "35"})
	require.NoError(t, root.Execute())
	require.Contains(t, out.String(), "i32:42")
}

func TestParseArgsRejectsNonInteger(t *testing.T) {
	_, err := parseArgs([]string{"notanumber"})
	require.Error(t, err)
}
