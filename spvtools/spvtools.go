// Package spvtools wraps the tools that run on a finished SPIR-V module: a
// validator, an optimizer and a SPIR-V to GLSL cross compiler.
//
// The exec implementations drive the SPIRV-Tools and SPIRV-Cross command
// line programs. StructuralValidator checks the module in process and is used
// when spirv-val is not installed.
//
// Typical use after generation:
//
//	tc := spvtools.Lookup(cfg.Tools)
//	var out diag.Buffer
//	binary, err = spvtools.Optimize(ctx, tc.Optimizer, tc.Validator, binary, 2, &out)
package spvtools

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/gogpu/spvgen/config"
	"github.com/gogpu/spvgen/diag"
	"github.com/gogpu/spvgen/spirv"
)

var (
	// ErrToolUnavailable is returned when the external tool needed for a
	// step is not installed.
	ErrToolUnavailable = errors.New("tool unavailable")

	// ErrValidationFailed is returned when the validator reported errors.
	ErrValidationFailed = errors.New("SPIR-V validation found errors")
)

// Validator checks a module. It is the same contract the generator uses.
type Validator = spirv.Validator

// Optimizer rewrites a module with the given passes. Diagnostics the tool
// prints are added to out.
type Optimizer interface {
	Optimize(ctx context.Context, binary []byte, passes []string, out *diag.Buffer) ([]byte, error)
}

// CrossCompiler translates a module to shading language source.
type CrossCompiler interface {
	CrossCompile(ctx context.Context, binary []byte, args []string) (string, error)
}

// Toolchain bundles the tools used by one compilation.
type Toolchain struct {
	Validator Validator
	Optimizer Optimizer
	Cross     CrossCompiler
}

// Lookup resolves the configured tools. A tool missing from PATH is replaced
// by StructuralValidator for validation and by a stub reporting
// ErrToolUnavailable otherwise.
func Lookup(tools config.Tools) Toolchain {
	var tc Toolchain
	if path, err := exec.LookPath(tools.Validator); err == nil {
		tc.Validator = &ExecValidator{Path: path}
	} else {
		tc.Validator = StructuralValidator{}
	}
	if path, err := exec.LookPath(tools.Optimizer); err == nil {
		tc.Optimizer = &ExecOptimizer{Path: path}
	} else {
		tc.Optimizer = unavailable(tools.Optimizer)
	}
	if path, err := exec.LookPath(tools.Cross); err == nil {
		tc.Cross = &ExecCrossCompiler{Path: path}
	} else {
		tc.Cross = unavailable(tools.Cross)
	}
	return tc
}

// Default returns the toolchain for the default tool names.
func Default() Toolchain {
	return Lookup(config.Defaults().Tools)
}

// unavailable stands in for a tool that could not be found.
type unavailable string

func (u unavailable) err() error {
	return fmt.Errorf("%s: %w", string(u), ErrToolUnavailable)
}

func (u unavailable) Optimize(context.Context, []byte, []string, *diag.Buffer) ([]byte, error) {
	return nil, u.err()
}

func (u unavailable) CrossCompile(context.Context, []byte, []string) (string, error) {
	return "", u.err()
}
