package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gogpu/spvgen/diag"
	"github.com/gogpu/spvgen/spvtools"
)

var validateStructural bool

func init() {
	validateCmd.Flags().BoolVar(&validateStructural, "structural", false, "use the built-in structural checks even if spirv-val is installed")
}

var validateCmd = &cobra.Command{
	Use:   "validate <file.spv>...",
	Short: "Validate SPIR-V modules",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		var val spvtools.Validator = spvtools.StructuralValidator{}
		if !validateStructural {
			val = spvtools.Lookup(cfg.Tools).Validator
		}

		buffers, err := forEachFile(cmd, args, func(ctx context.Context, _ string, data []byte) (*diag.Buffer, error) {
			var buf diag.Buffer
			if err := val.Validate(ctx, data, &buf); err != nil {
				return nil, err
			}
			return &buf, nil
		})
		if err != nil {
			return err
		}

		p := diag.NewPrinter(cmd.ErrOrStderr())
		failed := 0
		for i, buf := range buffers {
			if buf.Len() > 0 {
				p.Header("%s", args[i])
			}
			for _, m := range buf.Messages() {
				p.Message(m)
			}
			if buf.HasErrors() {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d modules: %w", failed, len(args), spvtools.ErrValidationFailed)
		}
		return nil
	},
}
