package diag

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// Message is one diagnostic reported by a tool.
type Message struct {
	Severity Severity
	Anchor   Anchor
	Text     string
}

// Buffer collects diagnostics bucketed by severity.
type Buffer struct {
	messages []Message
	counts   [numSeverities]int
}

// Add records a diagnostic.
func (b *Buffer) Add(sev Severity, anchor Anchor, text string) {
	if sev >= numSeverities {
		sev = SevError
	}
	b.messages = append(b.messages, Message{Severity: sev, Anchor: anchor, Text: text})
	b.counts[sev]++
}

// Addf records a formatted diagnostic without location.
func (b *Buffer) Addf(sev Severity, format string, args ...any) {
	b.Add(sev, Anchor{}, fmt.Sprintf(format, args...))
}

// Messages returns the recorded diagnostics in order.
func (b *Buffer) Messages() []Message {
	return b.messages
}

// Count returns the number of diagnostics of the given severity.
func (b *Buffer) Count(sev Severity) int {
	if sev >= numSeverities {
		return 0
	}
	return b.counts[sev]
}

// HasErrors reports whether any error was recorded.
func (b *Buffer) HasErrors() bool {
	return b.counts[SevError] > 0
}

// Len returns the number of recorded diagnostics.
func (b *Buffer) Len() int {
	return len(b.messages)
}

// String renders the buffer without color.
func (b *Buffer) String() string {
	var sb strings.Builder
	p := &Printer{w: &sb}
	for _, m := range b.messages {
		p.Message(m)
	}
	return sb.String()
}

// WriteTo renders the buffer to w, colored when w is a terminal.
func (b *Buffer) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	p := NewPrinter(cw)
	for _, m := range b.messages {
		p.Message(m)
	}
	return cw.n, cw.err
}

type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
	return n, err
}

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	infoColor    = color.New(color.FgCyan, color.Bold)
	anchorColor  = color.New(color.Bold)
	headerColor  = color.New(color.FgGreen, color.Bold)
)

// Printer writes styled diagnostic text.
type Printer struct {
	w     io.Writer
	color bool
}

// NewPrinter returns a printer for w. Color is enabled only when w is a
// terminal and color output has not been disabled globally.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, color: IsTerminal(w) && !color.NoColor}
}

// IsTerminal reports whether w is attached to a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Writer returns the underlying writer.
func (p *Printer) Writer() io.Writer {
	return p.w
}

func (p *Printer) paint(c *color.Color, s string) string {
	if !p.color {
		return s
	}
	c.EnableColor()
	return c.Sprint(s)
}

// Message writes one diagnostic line.
func (p *Printer) Message(m Message) {
	var c *color.Color
	switch m.Severity {
	case SevError:
		c = errorColor
	case SevWarning:
		c = warningColor
	default:
		c = infoColor
	}
	if !m.Anchor.IsZero() {
		fmt.Fprintf(p.w, "%s: ", p.paint(anchorColor, m.Anchor.String()))
	}
	fmt.Fprintf(p.w, "%s: %s\n", p.paint(c, m.Severity.String()), m.Text)
}

// Header writes a section heading, used to delimit dumps.
func (p *Printer) Header(format string, args ...any) {
	fmt.Fprintf(p.w, "%s\n", p.paint(headerColor, "; "+fmt.Sprintf(format, args...)))
}

// Error writes err as a diagnostic, expanding location notes.
func (p *Printer) Error(err error) {
	e, ok := AsError(err)
	if !ok {
		p.Message(Message{Severity: SevError, Text: err.Error()})
		return
	}
	text := e.Message
	if e.Err != nil {
		text += ": " + e.Err.Error()
	}
	p.Message(Message{Severity: SevError, Anchor: e.Anchor, Text: text})
	for _, n := range e.Notes {
		if !n.Anchor.IsZero() {
			fmt.Fprintf(p.w, "%s: ", p.paint(anchorColor, n.Anchor.String()))
		}
		fmt.Fprintf(p.w, "note: %s\n", n.Text)
	}
}
