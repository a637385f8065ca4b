package spvtools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/gogpu/spvgen/diag"
)

// ExecValidator runs spirv-val.
type ExecValidator struct {
	// Path is the executable.
	Path string
	// Args are passed before the module path, e.g. --target-env vulkan1.1.
	Args []string
}

// Validate implements Validator. A non-zero exit is a finding, not an error.
func (v *ExecValidator) Validate(ctx context.Context, binary []byte, out *diag.Buffer) error {
	in, cleanup, err := writeTemp(binary)
	if err != nil {
		return err
	}
	defer cleanup()

	args := append(append([]string(nil), v.Args...), in)
	output, runErr := run(ctx, v.Path, args, nil)
	parseMessages(output, out)

	var exitErr *exec.ExitError
	switch {
	case runErr == nil:
		return nil
	case errors.As(runErr, &exitErr):
		if !out.HasErrors() {
			out.Addf(diag.SevError, "%s exited with status %d", filepath.Base(v.Path), exitErr.ExitCode())
		}
		return nil
	default:
		return fmt.Errorf("failed to run %s: %w", v.Path, runErr)
	}
}

// ExecOptimizer runs spirv-opt.
type ExecOptimizer struct {
	Path string
	Args []string
}

// Optimize implements Optimizer.
func (o *ExecOptimizer) Optimize(ctx context.Context, binary []byte, passes []string, out *diag.Buffer) ([]byte, error) {
	in, cleanup, err := writeTemp(binary)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	outPath := in + ".opt"
	defer os.Remove(outPath)

	args := append(append([]string(nil), o.Args...), passes...)
	args = append(args, in, "-o", outPath)
	output, runErr := run(ctx, o.Path, args, nil)
	parseMessages(output, out)
	if runErr != nil {
		return nil, toolError(o.Path, output, runErr)
	}
	result, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read optimized module: %w", err)
	}
	return result, nil
}

// ExecCrossCompiler runs spirv-cross and returns what it prints.
type ExecCrossCompiler struct {
	Path string
	Args []string
}

// CrossCompile implements CrossCompiler.
func (c *ExecCrossCompiler) CrossCompile(ctx context.Context, binary []byte, args []string) (string, error) {
	in, cleanup, err := writeTemp(binary)
	if err != nil {
		return "", err
	}
	defer cleanup()

	all := append(append([]string(nil), c.Args...), args...)
	all = append(all, in)
	var stdout bytes.Buffer
	stderr, runErr := run(ctx, c.Path, all, &stdout)
	if runErr != nil {
		return "", toolError(c.Path, stderr, runErr)
	}
	return stdout.String(), nil
}

// run executes name with args. Stdout goes to stdout when it is non-nil and
// is otherwise captured together with stderr.
func run(ctx context.Context, name string, args []string, stdout *bytes.Buffer) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec // G204: tool path comes from configuration
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if stdout != nil {
		cmd.Stdout = stdout
	} else {
		cmd.Stdout = &stderr
	}
	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil && err != nil {
		return stderr.String(), ctxErr
	}
	return stderr.String(), err
}

func toolError(path, output string, err error) error {
	name := filepath.Base(path)
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return fmt.Errorf("failed to run %s: %w", name, err)
	}
	msg := strings.TrimSpace(output)
	if msg == "" {
		return fmt.Errorf("%s: %w", name, err)
	}
	return fmt.Errorf("%s: %s", name, msg)
}

func writeTemp(binary []byte) (string, func(), error) {
	f, err := os.CreateTemp("", "spvgen-*.spv")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp module: %w", err)
	}
	name := f.Name()
	cleanup := func() { _ = os.Remove(name) }
	if _, err := f.Write(binary); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, fmt.Errorf("failed to write temp module: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to write temp module: %w", err)
	}
	return name, cleanup, nil
}

// parseMessages buckets "error:" and "warning:" lines of tool output.
// Continuation lines, such as the offending instruction spirv-val prints
// after an error, become info messages.
func parseMessages(output string, out *diag.Buffer) {
	for _, line := range strings.Split(output, "\n") {
		text := strings.TrimSpace(line)
		if text == "" {
			continue
		}
		sev := diag.SevInfo
		for _, p := range []struct {
			prefix string
			sev    diag.Severity
		}{
			{"error:", diag.SevError},
			{"internal error:", diag.SevError},
			{"warning:", diag.SevWarning},
			{"info:", diag.SevInfo},
		} {
			if rest, ok := strings.CutPrefix(text, p.prefix); ok {
				sev, text = p.sev, strings.TrimSpace(rest)
				break
			}
		}
		out.Add(sev, diag.Anchor{}, text)
	}
}
