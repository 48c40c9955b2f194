// Copyright © 2024 The ELPS authors

package lsp

import (
	"html"

	"github.com/luthersystems/prettylua/diagnostic"
	"github.com/luthersystems/prettylua/formatter"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

const diagnosticSource = "stylua"

// documentView presents formatter outcomes for one document. Edits are
// collected for the request's response and diagnostics are published once
// the invocation finishes. LSP has no notion of a viewport, so viewport
// calls are no-ops.
type documentView struct {
	srv     *Server
	uri     string
	content string

	edits       []protocol.TextEdit
	diagnostics []protocol.Diagnostic
	publish     bool
	selection   *diagnostic.Position
}

var _ formatter.View = (*documentView)(nil)

func newDocumentView(srv *Server, doc *Document) *documentView {
	uri, content := doc.snapshot()
	return &documentView{srv: srv, uri: uri, content: content}
}

func (v *documentView) ID() string   { return v.uri }
func (v *documentView) Text() string { return v.content }

func (v *documentView) Replace(text string) {
	if text == v.content {
		return
	}
	v.edits = []protocol.TextEdit{{Range: fullRange(v.content), NewText: text}}
}

func (v *documentView) Viewport() formatter.Point     { return formatter.Point{} }
func (v *documentView) SetViewport(_ formatter.Point) {}

func (v *documentView) SetSelection(pos diagnostic.Position) {
	v.selection = &pos
}

func (v *documentView) ShowAtCenter(pos diagnostic.Position) {
	p := toLSPPosition(v.content, pos)
	v.srv.showDocument(&protocol.ShowDocumentParams{
		URI:       v.uri,
		TakeFocus: boolPtr(true),
		Selection: &protocol.Range{Start: p, End: p},
	})
}

func (v *documentView) ShowAnnotation(a formatter.Annotation) {
	sev := protocol.DiagnosticSeverityError
	v.diagnostics = append(v.diagnostics, protocol.Diagnostic{
		Range:    toLSPRange(v.content, a.Start, a.End),
		Severity: &sev,
		Source:   strPtr(diagnosticSource),
		Message:  html.UnescapeString(a.Message),
	})
	v.publish = true
}

func (v *documentView) EraseAnnotations() {
	v.diagnostics = nil
	v.publish = true
}

func (v *documentView) Alert(message string) {
	v.srv.sendNotification(protocol.ServerWindowShowMessage, &protocol.ShowMessageParams{
		Type:    protocol.MessageTypeError,
		Message: html.UnescapeString(message),
	})
}

func (v *documentView) Variables() formatter.Variables {
	return formatter.FileVariables(uriToPath(v.uri), v.srv.rootPath)
}

// flush publishes the diagnostics gathered during the invocation.
func (v *documentView) flush() {
	if !v.publish {
		return
	}
	diags := v.diagnostics
	if diags == nil {
		diags = []protocol.Diagnostic{}
	}
	v.srv.sendNotification(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         v.uri,
		Diagnostics: diags,
	})
	v.publish = false
}

func strPtr(s string) *string {
	return &s
}
