package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gogpu/spvgen/glsl"
	"github.com/gogpu/spvgen/spvtools"
)

var (
	glslVersion int
	glslES      bool
	glslVulkan  bool
	glslOutDir  string
)

func init() {
	glslCmd.Flags().IntVar(&glslVersion, "version", 0, "GLSL version, e.g. 450 or 300 (default: glsl_version from spvgen.toml)")
	glslCmd.Flags().BoolVar(&glslES, "es", false, "target GLSL ES")
	glslCmd.Flags().BoolVar(&glslVulkan, "vulkan-semantics", false, "emit Vulkan GLSL")
	glslCmd.Flags().StringVarP(&glslOutDir, "output-dir", "d", "", "write <name>.glsl files here instead of stdout")
}

var glslCmd = &cobra.Command{
	Use:   "glsl [--version N] [--es] <file.spv>...",
	Short: "Cross compile SPIR-V modules to GLSL",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		number, es := cfg.Compile.GLSLVersion, cfg.Compile.GLSLES
		if cmd.Flags().Changed("version") {
			number = glslVersion
		}
		if cmd.Flags().Changed("es") {
			es = glslES
		}
		v, err := glsl.NewVersion(number, es)
		if err != nil {
			return err
		}
		opts := glsl.DefaultOptions()
		opts.LangVersion = v
		opts.VulkanSemantics = glslVulkan
		cross := spvtools.Lookup(cfg.Tools).Cross

		sources, err := forEachFile(cmd, args, func(ctx context.Context, _ string, data []byte) (string, error) {
			source, _, err := glsl.Compile(ctx, cross, data, opts)
			return source, err
		})
		if err != nil {
			return err
		}

		for i, source := range sources {
			if glslOutDir == "" {
				fmt.Fprint(cmd.OutOrStdout(), source)
				continue
			}
			name := strings.TrimSuffix(args[i], ".spv") + ".glsl"
			out := filepath.Join(glslOutDir, filepath.Base(name))
			if err := os.WriteFile(out, []byte(source), 0o644); err != nil { //nolint:gosec // G306: output is not sensitive
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
		}
		return nil
	},
}
