package spvtools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/spvgen/config"
	"github.com/gogpu/spvgen/diag"
)

const helperEnv = "SPVTOOLS_HELPER_PROCESS"

// TestHelperProcess is not a real test. The exec tests run the test binary
// itself as the external tool, selecting its behavior by the argument after
// "--".
func TestHelperProcess(t *testing.T) {
	if os.Getenv(helperEnv) != "1" {
		return
	}
	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	if len(args) < 2 {
		os.Exit(2)
	}
	mode, args := args[1], args[2:]
	switch mode {
	case "val-ok":
		os.Exit(0)
	case "val-fail":
		fmt.Fprintln(os.Stderr, "error: line 3: ID '7[%7]' has not been defined")
		fmt.Fprintln(os.Stderr, "  %8 = OpIAdd %uint %7 %7")
		fmt.Fprintln(os.Stderr, "warning: unused capability")
		os.Exit(1)
	case "val-silent":
		os.Exit(3)
	case "opt":
		// passes... in -o out
		n := len(args)
		data, err := os.ReadFile(args[n-3])
		if err != nil {
			os.Exit(4)
		}
		if err := os.WriteFile(args[n-1], append(data, 0, 0, 0, 0), 0o600); err != nil {
			os.Exit(4)
		}
		fmt.Fprintf(os.Stderr, "warning: ran %s\n", strings.Join(args[:n-3], " "))
		os.Exit(0)
	case "opt-fail":
		fmt.Fprintln(os.Stderr, "error: invalid input module")
		os.Exit(1)
	case "cross":
		fmt.Printf("#version 450\n// %s\n", strings.Join(args[:len(args)-1], " "))
		os.Exit(0)
	}
	os.Exit(2)
}

// helper returns a path and argument prefix running TestHelperProcess in mode.
func helper(t *testing.T, mode string) (string, []string) {
	t.Helper()
	t.Setenv(helperEnv, "1")
	return os.Args[0], []string{"-test.run=^TestHelperProcess$", "--", mode}
}

func TestExecValidator(t *testing.T) {
	path, args := helper(t, "val-ok")
	v := &ExecValidator{Path: path, Args: args}
	var buf diag.Buffer
	if err := v.Validate(context.Background(), []byte{1, 2, 3, 4}, &buf); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("unexpected diagnostics:\n%s", buf.String())
	}
}

func TestExecValidator_Findings(t *testing.T) {
	path, args := helper(t, "val-fail")
	v := &ExecValidator{Path: path, Args: args}
	var buf diag.Buffer
	if err := v.Validate(context.Background(), nil, &buf); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	want := []diag.Message{
		{Severity: diag.SevError, Text: "line 3: ID '7[%7]' has not been defined"},
		{Severity: diag.SevInfo, Text: "%8 = OpIAdd %uint %7 %7"},
		{Severity: diag.SevWarning, Text: "unused capability"},
	}
	if diff := cmp.Diff(want, buf.Messages()); diff != "" {
		t.Errorf("messages (-want +got):\n%s", diff)
	}
}

func TestExecValidator_SilentFailure(t *testing.T) {
	path, args := helper(t, "val-silent")
	v := &ExecValidator{Path: path, Args: args}
	var buf diag.Buffer
	if err := v.Validate(context.Background(), nil, &buf); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !buf.HasErrors() || !strings.Contains(buf.String(), "exited with status 3") {
		t.Errorf("diagnostics:\n%s", buf.String())
	}
}

func TestExecValidator_Missing(t *testing.T) {
	v := &ExecValidator{Path: "/nonexistent/spirv-val"}
	var buf diag.Buffer
	if err := v.Validate(context.Background(), nil, &buf); err == nil {
		t.Error("expected an error for a missing executable")
	}
}

func TestExecOptimizer(t *testing.T) {
	path, args := helper(t, "opt")
	o := &ExecOptimizer{Path: path, Args: args}
	var buf diag.Buffer
	got, err := o.Optimize(context.Background(), []byte{1, 2, 3, 4}, []string{"--merge-blocks", "--strip-debug"}, &buf)
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if diff := cmp.Diff([]byte{1, 2, 3, 4, 0, 0, 0, 0}, got); diff != "" {
		t.Errorf("output (-want +got):\n%s", diff)
	}
	if !strings.Contains(buf.String(), "ran --merge-blocks --strip-debug") {
		t.Errorf("diagnostics:\n%s", buf.String())
	}
}

func TestExecOptimizer_Failure(t *testing.T) {
	path, args := helper(t, "opt-fail")
	o := &ExecOptimizer{Path: path, Args: args}
	var buf diag.Buffer
	_, err := o.Optimize(context.Background(), nil, Passes(1), &buf)
	if err == nil || !strings.Contains(err.Error(), "invalid input module") {
		t.Errorf("error = %v", err)
	}
	if buf.Count(diag.SevError) != 1 {
		t.Errorf("diagnostics:\n%s", buf.String())
	}
}

func TestExecCrossCompiler(t *testing.T) {
	path, args := helper(t, "cross")
	c := &ExecCrossCompiler{Path: path, Args: args}
	got, err := c.CrossCompile(context.Background(), []byte{1, 2, 3, 4}, []string{"--version", "310", "--es"})
	if err != nil {
		t.Fatalf("CrossCompile: %v", err)
	}
	if want := "#version 450\n// --version 310 --es\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestLookup_Fallback(t *testing.T) {
	tc := Lookup(config.Tools{
		Validator: "spvgen-no-such-validator",
		Optimizer: "spvgen-no-such-optimizer",
		Cross:     "spvgen-no-such-cross",
	})
	if _, ok := tc.Validator.(StructuralValidator); !ok {
		t.Errorf("Validator = %T, want StructuralValidator", tc.Validator)
	}
	_, err := tc.Optimizer.Optimize(context.Background(), nil, nil, &diag.Buffer{})
	if !errors.Is(err, ErrToolUnavailable) || !strings.Contains(err.Error(), "spvgen-no-such-optimizer") {
		t.Errorf("Optimize error = %v", err)
	}
	if _, err := tc.Cross.CrossCompile(context.Background(), nil, nil); !errors.Is(err, ErrToolUnavailable) {
		t.Errorf("CrossCompile error = %v", err)
	}
}

func TestLookup_Found(t *testing.T) {
	tc := Lookup(config.Tools{Validator: os.Args[0], Optimizer: os.Args[0], Cross: os.Args[0]})
	if v, ok := tc.Validator.(*ExecValidator); !ok || v.Path == "" {
		t.Errorf("Validator = %#v", tc.Validator)
	}
	if _, ok := tc.Optimizer.(*ExecOptimizer); !ok {
		t.Errorf("Optimizer = %T", tc.Optimizer)
	}
	if _, ok := tc.Cross.(*ExecCrossCompiler); !ok {
		t.Errorf("Cross = %T", tc.Cross)
	}
}
