package diag

import (
	"errors"
	"fmt"
	"strings"
)

// Anchor is a source location.
type Anchor struct {
	Path   string
	Line   int
	Column int
}

// IsZero reports whether the anchor carries no location.
func (a Anchor) IsZero() bool {
	return a.Path == "" && a.Line == 0 && a.Column == 0
}

func (a Anchor) String() string {
	if a.IsZero() {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", a.Path, a.Line, a.Column)
}

// ErrorKind categorizes location errors.
type ErrorKind uint8

const (
	// KindUnsupported is an op, type, cast, constant or symbol the backend
	// cannot express.
	KindUnsupported ErrorKind = iota

	// KindStructure is control flow that cannot be made structured.
	KindStructure

	// KindConsistency indicates malformed IR.
	KindConsistency

	// KindTarget is a target or external toolchain failure.
	KindTarget

	// KindInternal is a backend bug.
	KindInternal
)

// String returns a human-readable error kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindUnsupported:
		return "Unsupported"
	case KindStructure:
		return "Structure"
	case KindConsistency:
		return "Consistency"
	case KindTarget:
		return "Target"
	case KindInternal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// Note attaches an additional location to an error.
type Note struct {
	Anchor Anchor
	Text   string
}

// Error is a compile error with one primary and any number of secondary
// locations.
type Error struct {
	Kind    ErrorKind
	Anchor  Anchor
	Message string
	Notes   []Note

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder
	if !e.Anchor.IsZero() {
		sb.WriteString(e.Anchor.String())
		sb.WriteString(": ")
	}
	sb.WriteString("error: ")
	sb.WriteString(e.Message)
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	for _, n := range e.Notes {
		sb.WriteByte('\n')
		if !n.Anchor.IsZero() {
			sb.WriteString(n.Anchor.String())
			sb.WriteString(": ")
		}
		sb.WriteString("note: ")
		sb.WriteString(n.Text)
	}
	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithNote appends a secondary location and returns e.
func (e *Error) WithNote(anchor Anchor, text string) *Error {
	e.Notes = append(e.Notes, Note{Anchor: anchor, Text: text})
	return e
}

// Errorf creates a location error.
func Errorf(kind ErrorKind, anchor Anchor, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Anchor:  anchor,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap attaches a location and message to err. A nil err yields nil.
func Wrap(kind ErrorKind, anchor Anchor, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{
		Kind:    kind,
		Anchor:  anchor,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// AsError returns the first *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsKind reports whether err carries a location error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	e, ok := AsError(err)
	return ok && e.Kind == kind
}
