// Package cli wires the wasmone command's subcommands to cobra, the
// same role cobra plays for k6's top-level command tree
// (grafana-k6/cmd/root.go), with structured lifecycle logging the way
// wippyai-wasm-runtime/runtime/runtime.go logs around its embedded
// wazero.Runtime.
package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wasmone/wasmone"
)

// NewRootCmd builds the wasmone command tree, logging lifecycle events
// through logger.
func NewRootCmd(logger *zap.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:           "wasmone",
		Short:         "Decode, validate, and run WebAssembly 1.0 modules",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newValidateCmd(logger), newRunCmd(logger))
	return root
}

func newValidateCmd(logger *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <module.wasm>",
		Short: "Decode and validate a module without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			logger.Info("validating module", zap.String("path", path))

			data, err := os.ReadFile(path)
			if err != nil {
				logger.Error("failed to read module", zap.Error(err))
				return err
			}
			m, err := wasmone.Decode(data)
			if err != nil {
				logger.Error("decode failed", zap.Error(err))
				return err
			}
			if err := m.Validate(); err != nil {
				logger.Error("validation failed", zap.Error(err))
				return err
			}
			logger.Info("module is valid")
			return nil
		},
	}
}

func newRunCmd(logger *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "run <module.wasm> <function> [args...]",
		Short: "Instantiate a module and invoke an exported function",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, fn, rawArgs := args[0], args[1], args[2:]
			logger.Info("running module", zap.String("path", path), zap.String("func", fn))

			data, err := os.ReadFile(path)
			if err != nil {
				logger.Error("failed to read module", zap.Error(err))
				return err
			}
			m, err := wasmone.Decode(data)
			if err != nil {
				logger.Error("decode failed", zap.Error(err))
				return err
			}
			if err := m.Validate(); err != nil {
				logger.Error("validation failed", zap.Error(err))
				return err
			}

			store := wasmone.NewStore()
			inst, err := store.Instantiate(m, nil)
			if err != nil {
				logger.Error("instantiation failed", zap.Error(err))
				return err
			}
			ev, ok := inst.Exports()[fn]
			if !ok || ev.Kind != wasmone.ExternKindFunc {
				err := fmt.Errorf("no exported function %q", fn)
				logger.Error("run failed", zap.Error(err))
				return err
			}

			values, err := parseArgs(rawArgs)
			if err != nil {
				logger.Error("invalid argument", zap.Error(err))
				return err
			}

			results, err := store.Invoke(ev.Addr, values...)
			if err != nil {
				logger.Error("execution trapped", zap.Error(err))
				return err
			}
			logger.Info("execution finished", zap.Int("num_results", len(results)))
			for _, r := range results {
				fmt.Fprintln(cmd.OutOrStdout(), r.String())
			}
			return nil
		},
	}
}

// parseArgs converts the CLI's plain decimal string arguments into i32
// values, the signature every example scenario in §8 uses; functions
// taking other value types are out of reach of this minimal CLI and
// must be called through the Go embedding API instead.
func parseArgs(rawArgs []string) ([]wasmone.Value, error) {
	out := make([]wasmone.Value, len(rawArgs))
	for i, a := range rawArgs {
		n, err := strconv.ParseInt(a, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", a, err)
		}
		out[i] = wasmone.I32(int32(n))
	}
	return out, nil
}
