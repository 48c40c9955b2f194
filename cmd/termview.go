// Copyright © 2024 The ELPS authors

package cmd

import (
	"context"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"

	"github.com/luthersystems/prettylua/diagnostic"
	"github.com/luthersystems/prettylua/formatter"
	"github.com/muesli/reflow/wordwrap"
)

// alertWidth is the column alerts are wrapped at.
const alertWidth = 80

// termView presents formatter outcomes on a terminal. The formatted text
// is collected for the caller; alerts and annotations go to stderr. A
// terminal has no viewport, so viewport calls are no-ops.
type termView struct {
	name   string // display name
	path   string // file on disk, empty for anonymous stdin
	src    []byte
	stderr io.Writer
	svc    *formatter.Service

	formatted []byte
	replaced  bool
	reported  bool
}

var _ formatter.View = (*termView)(nil)

func newTermView(name, path string, src []byte, stderr io.Writer) *termView {
	return &termView{name: name, path: path, src: src, stderr: stderr}
}

// format runs svc over the view and returns the formatted source. Failures
// already shown on stderr are returned as errReported.
func (v *termView) format(ctx context.Context, svc *formatter.Service) ([]byte, error) {
	v.svc = svc
	out := svc.Format(ctx, v)
	switch {
	case v.replaced:
		return v.formatted, nil
	case len(v.src) == 0:
		return v.src, nil
	case v.reported:
		return nil, errReported
	default:
		return nil, fmt.Errorf("%s: formatter produced no output (%s)", v.name, out.Kind)
	}
}

func (v *termView) ID() string   { return v.name }
func (v *termView) Text() string { return string(v.src) }

func (v *termView) Replace(text string) {
	v.formatted = []byte(text)
	v.replaced = true
}

func (v *termView) Viewport() formatter.Point     { return formatter.Point{} }
func (v *termView) SetViewport(_ formatter.Point) {}

func (v *termView) SetSelection(_ diagnostic.Position) {}

// ShowAtCenter prints the error location in the file:line:col form
// editors and terminals can jump to.
func (v *termView) ShowAtCenter(pos diagnostic.Position) {
	fmt.Fprintf(v.stderr, "%s:%d:%d\n", v.name, pos.Line+1, pos.Column+1)
}

func (v *termView) ShowAnnotation(a formatter.Annotation) {
	d := diagnostic.FromRange(v.name, a.Start, a.End, html.UnescapeString(a.Message))
	if v.svc != nil {
		if path := v.svc.Config().LastValidConfigPath(); path != "" {
			d.Notes = append(d.Notes, "config: "+path)
		}
	}
	_ = newRenderer(v.name, v.src).Render(v.stderr, d)
	v.reported = true
}

// EraseAnnotations has nothing to erase; terminal output is append-only.
func (v *termView) EraseAnnotations() {}

func (v *termView) Alert(message string) {
	fmt.Fprintln(v.stderr, wordwrap.String(html.UnescapeString(message), alertWidth))
	v.reported = true
}

func (v *termView) Variables() formatter.Variables {
	cwd, _ := os.Getwd()
	file := v.path
	if file != "" && !filepath.IsAbs(file) {
		if abs, err := filepath.Abs(file); err == nil {
			file = abs
		}
	}
	return formatter.FileVariables(file, cwd)
}
