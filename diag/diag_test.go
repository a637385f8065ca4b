package diag

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Format(t *testing.T) {
	err := Errorf(KindStructure, Anchor{Path: "a.sc", Line: 3, Column: 5}, "duplicate continue label").
		WithNote(Anchor{Path: "a.sc", Line: 7, Column: 1}, "first candidate").
		WithNote(Anchor{}, "only one continue label is permitted per loop")

	want := "a.sc:3:5: error: duplicate continue label\n" +
		"a.sc:7:1: note: first candidate\n" +
		"note: only one continue label is permitted per loop"
	if got := err.Error(); got != want {
		t.Errorf("Error() =\n%s\nwant\n%s", got, want)
	}
}

func TestError_WrapAndKind(t *testing.T) {
	cause := errors.New("opaque type")
	err := fmt.Errorf("lowering: %w", Wrap(KindUnsupported, Anchor{}, cause, "cannot lower %s", "T"))
	if !errors.Is(err, cause) {
		t.Error("wrapped cause lost")
	}
	if !IsKind(err, KindUnsupported) {
		t.Error("IsKind(KindUnsupported) = false")
	}
	if IsKind(err, KindStructure) {
		t.Error("IsKind(KindStructure) = true")
	}
	if Wrap(KindInternal, Anchor{}, nil, "x") != nil {
		t.Error("Wrap(nil) should be nil")
	}
}

func TestBuffer_Buckets(t *testing.T) {
	var b Buffer
	b.Add(SevError, Anchor{Path: "m.spv", Line: 1}, "bad id")
	b.Addf(SevWarning, "unused %s", "thing")
	b.Addf(SevInfo, "done")
	b.Addf(SevError, "second")

	if b.Count(SevError) != 2 || b.Count(SevWarning) != 1 || b.Count(SevInfo) != 1 {
		t.Errorf("counts = %d/%d/%d", b.Count(SevError), b.Count(SevWarning), b.Count(SevInfo))
	}
	if !b.HasErrors() {
		t.Error("HasErrors() = false")
	}
	out := b.String()
	for _, want := range []string{"m.spv:1:0: error: bad id", "warning: unused thing", "info: done"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrinter_NoColorForBuffers(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)
	p.Error(Errorf(KindConsistency, Anchor{Path: "x", Line: 1, Column: 2}, "free variable access").
		WithNote(Anchor{Path: "x", Line: 9, Column: 9}, "declared here"))
	out := buf.String()
	if strings.Contains(out, "\x1b[") {
		t.Errorf("unexpected escape codes in %q", out)
	}
	if !strings.Contains(out, "x:9:9: note: declared here") {
		t.Errorf("missing note in %q", out)
	}
}
