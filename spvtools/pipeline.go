package spvtools

import (
	"context"
	"fmt"
	"io"

	"github.com/gogpu/spvgen/diag"
	"github.com/gogpu/spvgen/spirv"
)

// MaxOptLevel is the highest optimization level.
const MaxOptLevel = 3

var passesByLevel = [MaxOptLevel + 1][]string{
	1: {
		"--eliminate-dead-const",
		"--eliminate-local-single-block",
		"--merge-blocks",
	},
	2: {
		"--eliminate-local-single-store",
		"--eliminate-dead-branches",
		"--eliminate-common-uniform",
		"--flatten-decorations",
	},
	3: {
		"--inline-entry-points-exhaustive",
		"--freeze-spec-const",
		"--strip-debug",
		"--eliminate-dead-code-aggressive",
	},
}

// Passes returns the spirv-opt passes for level. Each level includes the
// passes of the levels below it. Level 0 returns nil.
func Passes(level int) []string {
	level = min(level, MaxOptLevel)
	var out []string
	for l := 1; l <= level; l++ {
		out = append(out, passesByLevel[l]...)
	}
	return out
}

// Optimize runs the passes for level and validates the result with val.
// Diagnostics from both tools are added to out. Level 0 returns binary
// unchanged.
func Optimize(ctx context.Context, opt Optimizer, val Validator, binary []byte, level int, out *diag.Buffer) ([]byte, error) {
	if level <= 0 {
		return binary, nil
	}
	result, err := opt.Optimize(ctx, binary, Passes(level), out)
	if err != nil {
		return nil, fmt.Errorf("optimization failed: %w", err)
	}
	if val == nil {
		return result, nil
	}
	var check diag.Buffer
	if err := val.Validate(ctx, result, &check); err != nil {
		return nil, fmt.Errorf("failed to validate optimized module: %w", err)
	}
	for _, m := range check.Messages() {
		out.Add(m.Severity, m.Anchor, m.Text)
	}
	if check.HasErrors() {
		return nil, fmt.Errorf("optimized module: %w", ErrValidationFailed)
	}
	return result, nil
}

// Verify validates binary. When validation fails and debug is set, the
// disassembly and the validator's messages are written to w before
// ErrValidationFailed is returned. Warnings alone do not fail.
func Verify(ctx context.Context, val Validator, binary []byte, debug bool, w io.Writer) error {
	var buf diag.Buffer
	if err := val.Validate(ctx, binary, &buf); err != nil {
		return fmt.Errorf("failed to validate: %w", err)
	}
	if !buf.HasErrors() {
		return nil
	}
	if debug && w != nil {
		p := diag.NewPrinter(w)
		p.Header("validation failed: %d errors, %d warnings",
			buf.Count(diag.SevError), buf.Count(diag.SevWarning))
		if err := spirv.DisassembleTo(p.Writer(), binary); err != nil {
			p.Error(err)
		}
		for _, m := range buf.Messages() {
			p.Message(m)
		}
	}
	return ErrValidationFailed
}
