package main

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/gogpu/spvgen/spirv"
)

// version is overridden with -ldflags "-X main.version=...".
var version = "0.1.0-dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show spvtool build information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "spvtool %s\n", version)
		v := spirv.DefaultOptions().Version
		fmt.Fprintf(w, "generator 0x%08X, SPIR-V %d.%d\n", uint32(spirv.GeneratorID), v.Major, v.Minor)
		fmt.Fprintf(w, "go %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, s := range info.Settings {
				if s.Key == "vcs.revision" {
					fmt.Fprintf(w, "commit %s\n", s.Value)
				}
			}
		}
		return nil
	},
}
