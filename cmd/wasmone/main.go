// Command wasmone runs or validates a WebAssembly 1.0 binary module,
// giving the host-facing API in package wasmone (§4.8) a runnable
// entry point.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/wasmone/wasmone/cmd/wasmone/internal/cli"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "wasmone: failed to initialize logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := cli.NewRootCmd(logger).Execute(); err != nil {
		os.Exit(1)
	}
}
