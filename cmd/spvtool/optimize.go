package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gogpu/spvgen/diag"
	"github.com/gogpu/spvgen/spvtools"
)

var (
	optimizeLevel  int
	optimizeOutput string
)

func init() {
	optimizeCmd.Flags().IntVarP(&optimizeLevel, "level", "O", -1, "optimization level 1-3 (default: opt_level from spvgen.toml)")
	optimizeCmd.Flags().StringVarP(&optimizeOutput, "output", "o", "", "output file (default: <input>.opt.spv)")
}

var optimizeCmd = &cobra.Command{
	Use:   "optimize [-O level] [-o out.spv] <file.spv>",
	Short: "Optimize a SPIR-V module with spirv-opt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		level := optimizeLevel
		if level < 0 {
			level = cfg.Compile.OptLevel
		}
		if level > spvtools.MaxOptLevel {
			return fmt.Errorf("invalid optimization level %d", level)
		}

		in := args[0]
		data, err := os.ReadFile(in)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", in, err)
		}
		tc := spvtools.Lookup(cfg.Tools)
		var buf diag.Buffer
		result, optErr := spvtools.Optimize(cmd.Context(), tc.Optimizer, tc.Validator, data, level, &buf)
		p := diag.NewPrinter(cmd.ErrOrStderr())
		for _, m := range buf.Messages() {
			p.Message(m)
		}
		if optErr != nil {
			return optErr
		}

		out := optimizeOutput
		if out == "" {
			out = strings.TrimSuffix(in, ".spv") + ".opt.spv"
		}
		if err := os.WriteFile(out, result, 0o644); err != nil { //nolint:gosec // G306: output is not sensitive
			return fmt.Errorf("failed to write %s: %w", out, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d -> %d bytes (O%d)\n", out, len(data), len(result), level)
		return nil
	},
}
