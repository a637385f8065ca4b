// Command spvtool inspects and post-processes SPIR-V modules: it
// disassembles, validates, optimizes and cross compiles them to GLSL.
package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/spvgen/config"
	"github.com/gogpu/spvgen/diag"
)

var rootCmd = &cobra.Command{
	Use:           "spvtool",
	Short:         "SPIR-V module tools",
	Long:          `spvtool disassembles, validates, optimizes and cross compiles SPIR-V modules`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		mode, err := cmd.Flags().GetString("color")
		if err != nil {
			return err
		}
		switch strings.ToLower(mode) {
		case "auto":
		case "on":
			color.NoColor = false
		case "off":
			color.NoColor = true
		default:
			return fmt.Errorf("invalid --color %q (want auto|on|off)", mode)
		}
		return nil
	},
}

func init() {
	rootCmd.Version = version

	rootCmd.AddCommand(disCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(optimizeCmd)
	rootCmd.AddCommand(glslCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("config", "", "path to spvgen.toml (default: search upwards from the working directory)")
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Int("jobs", 0, "files processed in parallel (0 = GOMAXPROCS)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		diag.NewPrinter(os.Stderr).Error(err)
		os.Exit(1)
	}
}

// loadConfig reads --config, or the nearest spvgen.toml.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, err
	}
	if path != "" {
		return config.Load(path)
	}
	return config.Discover(".")
}

// forEachFile runs fn for every path concurrently and returns the results in
// argument order. The first error cancels the remaining work.
func forEachFile[T any](cmd *cobra.Command, paths []string, fn func(ctx context.Context, path string, data []byte) (T, error)) ([]T, error) {
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return nil, err
	}
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	results := make([]T, len(paths))
	g, gctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(min(jobs, max(len(paths), 1)))
	for i, path := range paths {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			res, err := fn(gctx, path, data)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
