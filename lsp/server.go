// Copyright © 2024 The ELPS authors

// Package lsp exposes the Lua formatter integration as a Language Server
// Protocol server. Formatting results come back as text edits, formatter
// errors as diagnostics and alerts as window messages.
package lsp

import (
	"os"
	"sync"

	"github.com/luthersystems/prettylua/formatter"
	"github.com/luthersystems/prettylua/settings"
	"github.com/tliron/glsp"
	glspserver "github.com/tliron/glsp/server"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

const (
	serverName    = "prettylua-lsp"
	serverVersion = "0.1.0"
)

// Server is the Pretty Lua language server.
type Server struct {
	handler  protocol.Handler
	glspSrv  *glspserver.Server
	docs     *DocumentStore
	rootURI  string
	rootPath string

	formatter *formatter.Service

	// Settings from the settings file (base) and the latest values sent by
	// the client, which are layered on top of base.
	settingsMu sync.Mutex
	base       *settings.Settings
	client     map[string]any

	// Context for sending notifications (captured from latest request).
	notifyMu sync.Mutex
	notify   glsp.NotifyFunc
	call     glsp.CallFunc

	// showDocument sends window/showDocument; overridable for testing.
	showDocument func(params *protocol.ShowDocumentParams)

	// exitFn is called on the LSP exit notification. Defaults to os.Exit.
	// Overridable for testing.
	exitFn func(int)
}

// Option configures the LSP server.
type Option func(*Server)

// WithService injects the formatter service shared with the host process.
func WithService(svc *formatter.Service) Option {
	return func(s *Server) { s.formatter = svc }
}

// New creates a new Pretty Lua LSP server.
func New(opts ...Option) *Server {
	s := &Server{
		docs:   NewDocumentStore(),
		exitFn: os.Exit,
	}
	s.showDocument = s.callShowDocument
	for _, o := range opts {
		o(s)
	}
	if s.formatter == nil {
		s.formatter = formatter.New(nil)
	}
	s.base = s.formatter.Settings()

	s.handler = protocol.Handler{
		Initialize: s.initialize,
		Shutdown:   s.shutdown,
		Exit:       s.exit,
		SetTrace:   s.setTrace,

		TextDocumentDidOpen:           s.textDocumentDidOpen,
		TextDocumentDidChange:         s.textDocumentDidChange,
		TextDocumentDidClose:          s.textDocumentDidClose,
		TextDocumentWillSaveWaitUntil: s.textDocumentWillSaveWaitUntil,
		TextDocumentFormatting:        s.textDocumentFormatting,

		WorkspaceDidChangeConfiguration: s.workspaceDidChangeConfiguration,
	}

	s.glspSrv = glspserver.NewServer(&s.handler, serverName, false)
	return s
}

// RunStdio starts the server using stdio transport.
func (s *Server) RunStdio() error {
	return s.glspSrv.RunStdio()
}

// RunTCP starts the server listening on the given address.
func (s *Server) RunTCP(addr string) error {
	return s.glspSrv.RunTCP(addr)
}

// initialize handles the LSP initialize request.
func (s *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	s.captureContext(ctx)

	if params.RootURI != nil {
		s.rootURI = *params.RootURI
		s.rootPath = uriToPath(s.rootURI)
	} else if params.RootPath != nil {
		s.rootPath = *params.RootPath
		s.rootURI = pathToURI(s.rootPath)
	}

	if params.InitializationOptions != nil {
		s.applySettings(params.InitializationOptions)
	}

	capabilities := s.handler.CreateServerCapabilities()

	// Override text document sync to full.
	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose:         boolPtr(true),
		Change:            &syncKind,
		WillSaveWaitUntil: boolPtr(true),
	}

	version := serverVersion
	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    serverName,
			Version: &version,
		},
	}, nil
}

// shutdown handles the LSP shutdown request.
func (s *Server) shutdown(_ *glsp.Context) error {
	return nil
}

// exit handles the LSP exit notification by terminating the process.
func (s *Server) exit(_ *glsp.Context) error {
	s.exitFn(0)
	return nil
}

// setTrace handles the $/setTrace notification (required by some clients).
func (s *Server) setTrace(_ *glsp.Context, _ *protocol.SetTraceParams) error {
	return nil
}

// captureContext stores the notification and call functions from the
// context for use outside the request that delivered them.
func (s *Server) captureContext(ctx *glsp.Context) {
	s.notifyMu.Lock()
	s.notify = ctx.Notify
	s.call = ctx.Call
	s.notifyMu.Unlock()
}

// sendNotification sends a notification to the client.
func (s *Server) sendNotification(method string, params any) {
	s.notifyMu.Lock()
	fn := s.notify
	s.notifyMu.Unlock()
	if fn != nil {
		fn(method, params)
	}
}

// callShowDocument asks the client to reveal a range. The request is sent
// asynchronously so a formatting request never waits on the client.
func (s *Server) callShowDocument(params *protocol.ShowDocumentParams) {
	s.notifyMu.Lock()
	fn := s.call
	s.notifyMu.Unlock()
	if fn == nil {
		return
	}
	go func() {
		defer func() { _ = recover() }() // client may not support showDocument
		var result protocol.ShowDocumentResult
		fn(protocol.ServerWindowShowDocument, params, &result)
	}()
}

func boolPtr(b bool) *bool {
	return &b
}
