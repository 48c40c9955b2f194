// Copyright © 2024 The ELPS authors

package lsp

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/luthersystems/prettylua/formatter"
	"github.com/luthersystems/prettylua/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// jsonRPCRequest builds a JSON-RPC 2.0 request.
func jsonRPCRequest(id int, method string, params any) []byte {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  method,
		"params":  params,
	}
	b, _ := json.Marshal(msg)
	return b
}

// jsonRPCNotification builds a JSON-RPC 2.0 notification (no id).
func jsonRPCNotification(method string, params any) []byte {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
	}
	b, _ := json.Marshal(msg)
	return b
}

// lspMessage wraps JSON content with the LSP Content-Length header.
func lspMessage(content []byte) []byte {
	return fmt.Appendf(nil, "Content-Length: %d\r\n\r\n%s", len(content), content)
}

// readLSPMessage reads a single LSP message from a buffered reader.
// Returns the parsed JSON as a map.
func readLSPMessage(t *testing.T, r *bufio.Reader) map[string]any {
	t.Helper()

	// Read headers until blank line.
	var contentLength int
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("failed to read LSP header: %v", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		if val, ok := strings.CutPrefix(line, "Content-Length: "); ok {
			n, err := strconv.Atoi(val)
			require.NoError(t, err, "parsing Content-Length")
			contentLength = n
		}
	}
	require.Greater(t, contentLength, 0, "Content-Length must be positive")

	// Read content body.
	body := make([]byte, contentLength)
	_, err := io.ReadFull(r, body)
	require.NoError(t, err, "reading message body")

	var msg map[string]any
	require.NoError(t, json.Unmarshal(body, &msg), "parsing JSON body")
	return msg
}

// readResponse reads LSP messages until a response with the given id appears.
// Returns the response and any notifications received along the way.
func readResponse(t *testing.T, r *bufio.Reader, id int) (map[string]any, []map[string]any) {
	t.Helper()
	var notifications []map[string]any
	deadline := time.After(10 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatalf("timeout waiting for response id=%d", id)
		default:
		}
		msg := readLSPMessage(t, r)
		// If this message has the expected id, it's our response.
		if msgID, ok := msg["id"]; ok {
			var msgIDFloat float64
			switch v := msgID.(type) {
			case float64:
				msgIDFloat = v
			case json.Number:
				f, _ := v.Float64()
				msgIDFloat = f
			}
			if int(msgIDFloat) == id {
				return msg, notifications
			}
		}
		// Otherwise it's a notification (no id, or different id).
		notifications = append(notifications, msg)
	}
}

// e2eServer starts an LSP server on a random TCP port and returns the
// connection and a cleanup function. Formatting runs are answered by
// runner.
func e2eServer(t *testing.T, runner formatter.Runner) (net.Conn, func()) {
	t.Helper()

	st := settings.Default()
	st.ConfigPaths = nil
	srv := New(WithService(formatter.New(st, formatter.WithRunner(runner))))
	srv.exitFn = func(int) {}

	// Find a free port.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	_ = listener.Close()

	// Start the server in the background.
	done := make(chan error, 1)
	go func() {
		done <- srv.RunTCP(addr)
	}()

	// Give server a moment to start listening, then connect.
	var conn net.Conn
	for range 50 {
		conn, err = net.Dial("tcp", addr)
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	require.NoError(t, err, "failed to connect to LSP server at %s", addr)

	cleanup := func() {
		_ = conn.Close()
	}

	return conn, cleanup
}

// send writes an LSP message to the connection.
func send(t *testing.T, conn net.Conn, data []byte) {
	t.Helper()
	_, err := conn.Write(lspMessage(data))
	require.NoError(t, err, "writing LSP message")
}

// findNotification returns the last notification with the given method.
func findNotification(notifications []map[string]any, method string) map[string]any {
	var found map[string]any
	for _, n := range notifications {
		if n["method"] == method {
			found = n
		}
	}
	return found
}

func TestE2E_FormatLifecycle(t *testing.T) {
	runner := &stubRunner{}
	conn, cleanup := e2eServer(t, runner)
	defer cleanup()

	reader := bufio.NewReader(conn)

	uri := "file:///tmp/e2e-test/main.lua"
	content := "local  t = {1,2}\nprint( #t )\n"

	// --- Step 1: Initialize ---
	send(t, conn, jsonRPCRequest(1, "initialize", map[string]any{
		"capabilities": map[string]any{},
		"rootUri":      "file:///tmp/e2e-test",
		// No window/showDocument round trips on this connection.
		"initializationOptions": map[string]any{"scroll_to_error_point": false},
	}))

	resp, _ := readResponse(t, reader, 1)
	result := resp["result"].(map[string]any)
	caps := result["capabilities"].(map[string]any)
	assert.Equal(t, true, caps["documentFormattingProvider"], "should format documents")
	sync := caps["textDocumentSync"].(map[string]any)
	assert.Equal(t, true, sync["willSaveWaitUntil"], "should format on save")

	serverInfo := result["serverInfo"].(map[string]any)
	assert.Equal(t, "prettylua-lsp", serverInfo["name"])

	// --- Step 2: Initialized ---
	send(t, conn, jsonRPCNotification("initialized", map[string]any{}))

	// --- Step 3: Open document ---
	send(t, conn, jsonRPCNotification("textDocument/didOpen", map[string]any{
		"textDocument": map[string]any{
			"uri":        uri,
			"languageId": "lua",
			"version":    1,
			"text":       content,
		},
	}))
	time.Sleep(200 * time.Millisecond)

	// --- Step 4: Format successfully ---
	runner.set(formatter.RunResult{Stdout: "local t = { 1, 2 }\nprint(#t)\n"})
	send(t, conn, jsonRPCRequest(2, "textDocument/formatting", map[string]any{
		"textDocument": map[string]any{"uri": uri},
		"options":      map[string]any{"tabSize": 4, "insertSpaces": true},
	}))

	fmtResp, notes := readResponse(t, reader, 2)
	edits, ok := fmtResp["result"].([]any)
	require.True(t, ok, "formatting should return edits")
	require.Len(t, edits, 1)
	edit := edits[0].(map[string]any)
	assert.Equal(t, "local t = { 1, 2 }\nprint(#t)\n", edit["newText"])
	end := edit["range"].(map[string]any)["end"].(map[string]any)
	assert.Equal(t, float64(2), end["line"])
	assert.Equal(t, float64(0), end["character"])

	published := findNotification(notes, "textDocument/publishDiagnostics")
	require.NotNil(t, published, "success should clear diagnostics")
	assert.Empty(t, published["params"].(map[string]any)["diagnostics"])

	// --- Step 5: Format with a parse error ---
	send(t, conn, jsonRPCNotification("textDocument/didChange", map[string]any{
		"textDocument":   map[string]any{"uri": uri, "version": 2},
		"contentChanges": []any{map[string]any{"text": "local x = \n"}},
	}))
	runner.set(formatter.RunResult{
		Stderr: "error: error parsing: unexpected token `<eof>` (starting from line 1, character 11 and ending on line 1, character 11)",
	})
	time.Sleep(100 * time.Millisecond)
	send(t, conn, jsonRPCRequest(3, "textDocument/formatting", map[string]any{
		"textDocument": map[string]any{"uri": uri},
		"options":      map[string]any{"tabSize": 4, "insertSpaces": true},
	}))

	errResp, notes := readResponse(t, reader, 3)
	assert.Nil(t, errResp["error"], "formatter errors are not request failures")
	assert.Empty(t, errResp["result"], "buffer stays as it was")

	published = findNotification(notes, "textDocument/publishDiagnostics")
	require.NotNil(t, published, "parse error should be published")
	diags := published["params"].(map[string]any)["diagnostics"].([]any)
	require.Len(t, diags, 1)
	diag := diags[0].(map[string]any)
	assert.Equal(t, "Unexpected token `<eof>`)", diag["message"])
	assert.Equal(t, "stylua", diag["source"])
	start := diag["range"].(map[string]any)["start"].(map[string]any)
	assert.Equal(t, float64(0), start["line"])
	assert.Equal(t, float64(10), start["character"])

	// --- Step 6: Close clears diagnostics ---
	send(t, conn, jsonRPCNotification("textDocument/didClose", map[string]any{
		"textDocument": map[string]any{"uri": uri},
	}))

	// --- Step 7: Shutdown ---
	send(t, conn, jsonRPCRequest(4, "shutdown", nil))
	shutResp, notes := readResponse(t, reader, 4)
	assert.Nil(t, shutResp["error"])
	if closed := findNotification(notes, "textDocument/publishDiagnostics"); closed != nil {
		assert.Empty(t, closed["params"].(map[string]any)["diagnostics"])
	}
}
