// Package diag provides location errors and styled diagnostics.
//
// Compile failures are reported as *Error values carrying a primary Anchor
// and optional notes. Tool output (validator, optimizer) is collected in a
// Buffer and rendered by a Printer, which colors output only on terminals.
package diag
