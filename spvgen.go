// Package spvgen compiles label IR to SPIR-V, and through a cross compiler
// to GLSL.
//
// The pipeline is:
//  1. Verify the entry label and generate SPIR-V (package spirv)
//  2. Validate the module (package spvtools)
//  3. Optimize and validate again, when an optimization flag is set
//  4. For GLSL, cross compile the binary (package glsl)
//
// Example usage:
//
//	main := ir.NewFunction("main")
//	main.Return(main)
//	binary, err := spvgen.CompileSPIRV(spirv.TargetFragment, main, spvgen.FlagO1)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Dump flags write the IR, the unoptimized module or the final disassembly
// to Options.Diagnostics.
package spvgen

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/gogpu/spvgen/config"
	"github.com/gogpu/spvgen/diag"
	"github.com/gogpu/spvgen/glsl"
	"github.com/gogpu/spvgen/ir"
	"github.com/gogpu/spvgen/spirv"
	"github.com/gogpu/spvgen/spvtools"
)

// Flags select dumps and the optimization level.
type Flags uint32

const (
	// FlagDumpDisassembly disassembles the final binary.
	FlagDumpDisassembly Flags = 1 << iota
	// FlagDumpModule disassembles the module before optimization.
	FlagDumpModule
	// FlagDumpFunction dumps the IR reachable from the entry label.
	FlagDumpFunction
	// FlagNoDebugInfo suppresses OpSource, OpLine and OpName.
	FlagNoDebugInfo
	FlagO1
	FlagO2

	// FlagO3 shares its bits with FlagO1 and FlagO2.
	FlagO3 = FlagO1 | FlagO2
)

// OptLevel returns the optimization level encoded in f.
func OptLevel(f Flags) int {
	switch f & FlagO3 {
	case FlagO1:
		return 1
	case FlagO2:
		return 2
	case FlagO3:
		return 3
	}
	return 0
}

// LevelFlag returns the flag for an optimization level.
func LevelFlag(level int) Flags {
	switch {
	case level <= 0:
		return 0
	case level == 1:
		return FlagO1
	case level == 2:
		return FlagO2
	}
	return FlagO3
}

// Options configures a compilation.
type Options struct {
	Flags Flags

	// Target is used when the target argument is empty.
	Target string

	// Toolchain runs validation, optimization and cross compilation. A nil
	// Validator skips validation.
	Toolchain spvtools.Toolchain

	// Diagnostics receives dumps and tool messages. Defaults to os.Stderr.
	Diagnostics io.Writer

	SPIRV spirv.Options
	GLSL  glsl.Options
}

var defaultToolchain = sync.OnceValue(spvtools.Default)

// DefaultOptions returns options using the tools found on PATH.
func DefaultOptions() Options {
	return Options{
		Toolchain:   defaultToolchain(),
		Diagnostics: os.Stderr,
		SPIRV:       spirv.DefaultOptions(),
		GLSL:        glsl.DefaultOptions(),
	}
}

// OptionsFromConfig returns options for the compile defaults and tools of cfg.
func OptionsFromConfig(cfg config.Config) (Options, error) {
	version, err := glsl.NewVersion(cfg.Compile.GLSLVersion, cfg.Compile.GLSLES)
	if err != nil {
		return Options{}, err
	}
	opts := DefaultOptions()
	opts.Toolchain = spvtools.Lookup(cfg.Tools)
	opts.Target = cfg.Compile.Target
	opts.Flags = LevelFlag(cfg.Compile.OptLevel)
	if !cfg.Compile.DebugInfo {
		opts.Flags |= FlagNoDebugInfo
	}
	opts.SPIRV.LocalSize = cfg.Compile.LocalSize
	opts.GLSL.LangVersion = version
	return opts, nil
}

// CompileSPIRV compiles entry for target with the default options.
func CompileSPIRV(target string, entry *ir.Label, flags Flags) ([]byte, error) {
	opts := DefaultOptions()
	opts.Flags = flags
	return CompileSPIRVWithOptions(context.Background(), target, entry, opts)
}

// CompileGLSL compiles entry for target and cross compiles it to GLSL with
// the default options.
func CompileGLSL(target string, entry *ir.Label, flags Flags) (string, error) {
	opts := DefaultOptions()
	opts.Flags = flags
	return CompileGLSLWithOptions(context.Background(), target, entry, opts)
}

// CompileSPIRVWithOptions compiles entry for target.
func CompileSPIRVWithOptions(ctx context.Context, target string, entry *ir.Label, opts Options) ([]byte, error) {
	w := opts.Diagnostics
	if w == nil {
		w = os.Stderr
	}
	if target == "" {
		target = opts.Target
	}
	p := diag.NewPrinter(w)
	flags := opts.Flags
	tc := opts.Toolchain

	if flags&FlagDumpFunction != 0 {
		p.Header("function %s", entry.Name)
		if err := ir.Dump(p.Writer(), entry); err != nil {
			return nil, fmt.Errorf("failed to dump function: %w", err)
		}
	}

	spvOpts := opts.SPIRV
	if flags&FlagNoDebugInfo != 0 {
		spvOpts.Debug = false
	}
	if spvOpts.Validate == nil && tc.Validator != nil {
		debug := spvOpts.Debug
		spvOpts.Validate = func(binary []byte) error {
			return spvtools.Verify(ctx, tc.Validator, binary, debug, w)
		}
	}

	binary, err := spirv.NewGenerator(spvOpts).Generate(target, entry)
	if err != nil {
		return nil, fmt.Errorf("SPIR-V generation error: %w", err)
	}
	if flags&FlagDumpModule != 0 {
		if err := dump(p, "module", binary); err != nil {
			return nil, err
		}
	}

	if level := OptLevel(flags); level > 0 {
		if tc.Optimizer == nil {
			return nil, fmt.Errorf("optimization level %d: no optimizer: %w", level, spvtools.ErrToolUnavailable)
		}
		var buf diag.Buffer
		binary, err = spvtools.Optimize(ctx, tc.Optimizer, tc.Validator, binary, level, &buf)
		for _, m := range buf.Messages() {
			if m.Severity > diag.SevInfo {
				p.Message(m)
			}
		}
		if err != nil {
			return nil, err
		}
	}

	if flags&FlagDumpDisassembly != 0 {
		if err := dump(p, "disassembly", binary); err != nil {
			return nil, err
		}
	}
	return binary, nil
}

// CompileGLSLWithOptions compiles entry for target and cross compiles the
// module with opts.GLSL.
func CompileGLSLWithOptions(ctx context.Context, target string, entry *ir.Label, opts Options) (string, error) {
	binary, err := CompileSPIRVWithOptions(ctx, target, entry, opts)
	if err != nil {
		return "", err
	}
	if opts.Toolchain.Cross == nil {
		return "", fmt.Errorf("no cross compiler: %w", spvtools.ErrToolUnavailable)
	}
	source, _, err := glsl.Compile(ctx, opts.Toolchain.Cross, binary, opts.GLSL)
	if err != nil {
		return "", err
	}
	return source, nil
}

func dump(p *diag.Printer, what string, binary []byte) error {
	p.Header("%s", what)
	if err := spirv.DisassembleTo(p.Writer(), binary); err != nil {
		return fmt.Errorf("failed to disassemble %s: %w", what, err)
	}
	return nil
}
