// Copyright © 2024 The ELPS authors

package formatter

import (
	"strings"

	"github.com/luthersystems/prettylua/diagnostic"
)

// Kind identifies what an invocation should do to the editor.
type Kind int

const (
	Noop Kind = iota
	ApplyText
	Alert
	Annotate
	AnnotateAndScroll
)

func (k Kind) String() string {
	switch k {
	case Noop:
		return "noop"
	case ApplyText:
		return "apply-text"
	case Alert:
		return "alert"
	case Annotate:
		return "annotate"
	case AnnotateAndScroll:
		return "annotate-and-scroll"
	default:
		return "unknown"
	}
}

// commandNotFound is what shells print when the formatter binary is missing.
const commandNotFound = "command not found"

// Options are the presentation preferences consulted by Decide.
type Options struct {
	ShowInline bool
	Scroll     bool
}

// Outcome is the single action chosen for one invocation.
type Outcome struct {
	Kind Kind
	// Text replaces the buffer for ApplyText.
	Text string
	// Message is shown by Alert, Annotate and AnnotateAndScroll.
	Message string
	// Position is the error point for Annotate and AnnotateAndScroll.
	Position diagnostic.Position
}

// HasPosition reports whether the outcome points into the buffer.
func (o Outcome) HasPosition() bool {
	return o.Kind == Annotate || o.Kind == AnnotateAndScroll
}

// Decide picks the outcome for a formatter run. pos is the error position
// parsed from stderr, nil when none was found. The buffer is only ever
// replaced when stderr is empty.
func Decide(stdout, stderr string, pos *diagnostic.Position, opts Options) Outcome {
	switch {
	case strings.Contains(stderr, commandNotFound):
		return Outcome{Kind: Alert, Message: stderr}
	case stderr != "" && pos == nil:
		return Outcome{Kind: Alert, Message: diagnostic.CleanMessage(stderr)}
	case stderr == "" && stdout != "":
		return Outcome{Kind: ApplyText, Text: stdout}
	case stderr != "" && !opts.ShowInline:
		return Outcome{Kind: Noop}
	case stderr != "" && opts.Scroll:
		return Outcome{Kind: AnnotateAndScroll, Message: diagnostic.CleanMessage(stderr), Position: *pos}
	case stderr != "":
		return Outcome{Kind: Annotate, Message: diagnostic.CleanMessage(stderr), Position: *pos}
	default:
		return Outcome{Kind: Noop}
	}
}
