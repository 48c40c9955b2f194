// Copyright © 2024 The ELPS authors

package lsp

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/luthersystems/prettylua/diagnostic"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"go.lsp.dev/uri"
)

// safeUint converts a non-negative int to protocol.UInteger, clamping
// negative values to zero.
func safeUint(n int) protocol.UInteger {
	if n < 0 {
		return 0
	}
	return protocol.UInteger(n) // #nosec G115 -- line/col are always small positive ints
}

// toLSPPosition converts a formatter position, whose column counts
// characters, to an LSP position, whose character counts UTF-16 units on
// the line. Columns past the end of the line are kept as-is.
func toLSPPosition(content string, pos diagnostic.Position) protocol.Position {
	line, ok := lineAt(content, pos.Line)
	if !ok {
		return protocol.Position{Line: safeUint(pos.Line), Character: safeUint(pos.Column)}
	}
	units := 0
	col := 0
	for _, r := range line {
		if col == pos.Column {
			return protocol.Position{Line: safeUint(pos.Line), Character: safeUint(units)}
		}
		units += utf16Len(r)
		col++
	}
	return protocol.Position{Line: safeUint(pos.Line), Character: safeUint(units + pos.Column - col)}
}

// toLSPRange converts a formatter range. An inverted range collapses to
// its end.
func toLSPRange(content string, start, end diagnostic.Position) protocol.Range {
	if start.Line > end.Line || (start.Line == end.Line && start.Column > end.Column) {
		start = end
	}
	return protocol.Range{
		Start: toLSPPosition(content, start),
		End:   toLSPPosition(content, end),
	}
}

// fullRange returns the range covering the whole of content.
func fullRange(content string) protocol.Range {
	lines := strings.Count(content, "\n")
	last := content[strings.LastIndexByte(content, '\n')+1:]
	return protocol.Range{
		Start: protocol.Position{Line: 0, Character: 0},
		End:   protocol.Position{Line: safeUint(lines), Character: safeUint(utf16Width(last))},
	}
}

// lineAt returns the n-th (0-based) line of content without its newline.
func lineAt(content string, n int) (string, bool) {
	if n < 0 {
		return "", false
	}
	for i := 0; i < n; i++ {
		idx := strings.IndexByte(content, '\n')
		if idx < 0 {
			return "", false
		}
		content = content[idx+1:]
	}
	if idx := strings.IndexByte(content, '\n'); idx >= 0 {
		content = content[:idx]
	}
	return strings.TrimSuffix(content, "\r"), true
}

func utf16Len(r rune) int {
	if r == utf8.RuneError {
		return 1
	}
	return len(utf16.Encode([]rune{r}))
}

func utf16Width(s string) int {
	n := 0
	for _, r := range s {
		n += utf16Len(r)
	}
	return n
}

// uriToPath converts a file:// URI to a filesystem path. Other URIs are
// returned unchanged.
func uriToPath(u string) (path string) {
	if !strings.HasPrefix(u, uri.FileScheme+"://") {
		return u
	}
	defer func() {
		if recover() != nil {
			path = strings.TrimPrefix(u, uri.FileScheme+"://")
		}
	}()
	return uri.URI(u).Filename()
}

// pathToURI converts a filesystem path to a file:// URI.
func pathToURI(path string) string {
	if path == "" {
		return ""
	}
	return string(uri.File(path))
}
