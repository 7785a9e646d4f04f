package wasmone

// RuntimeConfig holds embedder limits applied at validation time by
// Module.ValidateWithConfig; Decode and Instantiate take no config. The
// zero value is not ready for use; start from NewRuntimeConfig.
//
// Following the teacher's clone-and-mutate pattern (wazero's own
// config.go), every With* method returns a new config derived from the
// receiver rather than mutating it in place, so a shared base config
// can be safely specialized per caller.
type RuntimeConfig struct {
	memoryMaxPages uint32
}

// defaultMemoryMaxPages is the hard ceiling WebAssembly 1.0 itself
// imposes: a 32-bit address space's worth of 64KiB pages.
const defaultMemoryMaxPages = 65536

// defaultConfig holds every field's default value, so NewRuntimeConfig
// and clone never risk a zero-value field slipping through unset.
var defaultConfig = &RuntimeConfig{
	memoryMaxPages: defaultMemoryMaxPages,
}

// NewRuntimeConfig returns a config with Wasm 1.0's defaults: no
// additional memory ceiling below the format's own 4GiB limit.
func NewRuntimeConfig() *RuntimeConfig {
	return defaultConfig.clone()
}

func (c *RuntimeConfig) clone() *RuntimeConfig {
	ret := *c
	return &ret
}

// WithMemoryMaxPages caps the number of 64KiB pages any memory a
// module declares or imports may have, below Wasm 1.0's own
// 65536-page ceiling: Module.ValidateWithConfig rejects a module whose
// declared minimum or maximum exceeds this value. Growth at runtime
// (memory.grow, Store.MemoryGrow) is not limited by it.
func (c *RuntimeConfig) WithMemoryMaxPages(pages uint32) *RuntimeConfig {
	ret := c.clone()
	if pages > defaultMemoryMaxPages {
		pages = defaultMemoryMaxPages
	}
	ret.memoryMaxPages = pages
	return ret
}
