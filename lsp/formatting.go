// Copyright © 2024 The ELPS authors

package lsp

import (
	"context"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// textDocumentFormatting handles textDocument/formatting requests. It
// pipes the document through the formatter and returns a single
// whole-document edit, or nil when nothing changes. Formatter errors are
// reported as diagnostics or messages rather than as a failed request.
func (s *Server) textDocumentFormatting(ctx *glsp.Context, params *protocol.DocumentFormattingParams) ([]protocol.TextEdit, error) {
	s.captureContext(ctx)
	return s.format(params.TextDocument.URI), nil
}

// textDocumentWillSaveWaitUntil formats on save when enabled for the file.
func (s *Server) textDocumentWillSaveWaitUntil(ctx *glsp.Context, params *protocol.WillSaveTextDocumentParams) ([]protocol.TextEdit, error) {
	s.captureContext(ctx)
	if !s.formatter.ShouldFormatOnSave(uriToPath(params.TextDocument.URI)) {
		return nil, nil
	}
	return s.format(params.TextDocument.URI), nil
}

func (s *Server) format(uri string) []protocol.TextEdit {
	doc := s.docs.Get(uri)
	if doc == nil {
		return nil
	}
	view := newDocumentView(s, doc)
	s.formatter.Format(context.Background(), view)
	view.flush()
	return view.edits
}
