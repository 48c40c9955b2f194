// Copyright © 2024 The ELPS authors

package formatter

import (
	"sync"

	"github.com/luthersystems/prettylua/diagnostic"
)

// Point is a viewport scroll offset in host units.
type Point struct {
	X float64
	Y float64
}

// Annotation is an inline error marker anchored in a buffer.
type Annotation struct {
	// Start is where the offending range begins, when the formatter
	// reported one; it equals End otherwise.
	Start diagnostic.Position
	// End is the error point the annotation is anchored to.
	End diagnostic.Position
	// Message is markup-escaped.
	Message string
}

// View is the editor surface an invocation reads from and reports to.
// Implementations belong to the host (LSP session, terminal, ...).
type View interface {
	// ID identifies the buffer for as long as it stays open.
	ID() string
	Text() string
	Replace(text string)

	Viewport() Point
	SetViewport(p Point)
	// SetSelection replaces the selection with a caret at pos.
	SetSelection(pos diagnostic.Position)
	ShowAtCenter(pos diagnostic.Position)

	ShowAnnotation(a Annotation)
	EraseAnnotations()
	// Alert shows a blocking message.
	Alert(message string)

	// Variables describe the buffer for config path expansion.
	Variables() Variables
}

// Annotations tracks the annotation shown in each open buffer. Entries
// are keyed by View.ID and removed with Close when the buffer goes away;
// the registry never holds on to views themselves.
type Annotations struct {
	mu     sync.Mutex
	byView map[string][]Annotation
}

// NewAnnotations returns an empty registry.
func NewAnnotations() *Annotations {
	return &Annotations{byView: make(map[string][]Annotation)}
}

// Set replaces the annotations of a buffer.
func (a *Annotations) Set(id string, anns ...Annotation) {
	a.mu.Lock()
	a.byView[id] = append([]Annotation(nil), anns...)
	a.mu.Unlock()
}

// Erase clears the annotations of a buffer, keeping it registered.
func (a *Annotations) Erase(id string) {
	a.mu.Lock()
	if _, ok := a.byView[id]; ok {
		a.byView[id] = nil
	}
	a.mu.Unlock()
}

// Get returns the current annotations of a buffer.
func (a *Annotations) Get(id string) []Annotation {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Annotation(nil), a.byView[id]...)
}

// Tracked reports whether the buffer has an entry.
func (a *Annotations) Tracked(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.byView[id]
	return ok
}

// Close forgets a buffer.
func (a *Annotations) Close(id string) {
	a.mu.Lock()
	delete(a.byView, id)
	a.mu.Unlock()
}
