// Copyright © 2024 The ELPS authors

// Package diagnostic understands the error output of the Lua formatter.
// It recovers error positions from the formatter's stderr, tidies the
// message for display, and renders annotated source snippets for terminal
// output.
package diagnostic

// Span identifies a region of source code to highlight in the diagnostic.
type Span struct {
	File   string // path for reading source; display name if unreadable
	Line   int    // 1-based line number
	Col    int    // 1-based start column
	EndCol int    // 1-based end column (0 = auto-detect from source)
}

// Diagnostic is a formatter error with optional source annotations and
// trailing notes.
type Diagnostic struct {
	Message string
	Spans   []Span
	Notes   []string // "= note:" lines
}

// FromRange builds a Diagnostic for an error in file between the zero-based
// positions start and end. The span covers the range when it sits on a
// single line and points at end otherwise.
func FromRange(file string, start, end Position, message string) Diagnostic {
	span := Span{File: file, Line: end.Line + 1, Col: end.Column + 1}
	if start.Line == end.Line && start.Column <= end.Column {
		span.Col = start.Column + 1
		span.EndCol = end.Column + 1
	}
	return Diagnostic{
		Message: message,
		Spans:   []Span{span},
	}
}
