package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gogpu/spvgen/diag"
	"github.com/gogpu/spvgen/spirv"
)

var disCmd = &cobra.Command{
	Use:   "dis <file.spv>...",
	Short: "Disassemble SPIR-V modules",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		texts, err := forEachFile(cmd, args, func(_ context.Context, _ string, data []byte) (string, error) {
			return spirv.Disassemble(data)
		})
		if err != nil {
			return err
		}
		p := diag.NewPrinter(cmd.OutOrStdout())
		for i, text := range texts {
			if len(args) > 1 {
				p.Header("%s", args[i])
			}
			fmt.Fprint(p.Writer(), text)
		}
		return nil
	},
}
