// Copyright © 2024 The ELPS authors

package lsp

import (
	"maps"

	"github.com/luthersystems/prettylua/settings"
	log "github.com/sirupsen/logrus"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// settingsSection is the key clients nest Pretty Lua settings under.
const settingsSection = "prettylua"

// workspaceDidChangeConfiguration handles workspace/didChangeConfiguration
// by merging the sent settings and reloading the formatter.
func (s *Server) workspaceDidChangeConfiguration(ctx *glsp.Context, params *protocol.DidChangeConfigurationParams) error {
	s.captureContext(ctx)
	s.applySettings(params.Settings)
	return nil
}

// SetBaseSettings replaces the settings the client's values are layered
// on, typically after the settings file changed, and reloads the
// formatter. Values sent by the client keep precedence.
func (s *Server) SetBaseSettings(st *settings.Settings) {
	if st == nil {
		st = settings.Default()
	}
	s.settingsMu.Lock()
	defer s.settingsMu.Unlock()

	s.base = st
	if len(s.client) == 0 {
		s.formatter.Reload(st)
		return
	}
	merged, err := settings.Overlay(st, s.client)
	if err != nil {
		log.WithError(err).Warn("Dropping client settings")
		s.client = nil
		s.formatter.Reload(st)
		return
	}
	s.formatter.Reload(merged)
}

// applySettings merges client-sent settings, either nested under
// "prettylua" or flat, over the base settings and reloads the formatter
// with the result. Anything else is ignored.
func (s *Server) applySettings(raw any) {
	values, ok := raw.(map[string]any)
	if !ok {
		return
	}
	if nested, ok := values[settingsSection].(map[string]any); ok {
		values = nested
	}
	if len(values) == 0 {
		return
	}

	s.settingsMu.Lock()
	defer s.settingsMu.Unlock()

	client := maps.Clone(s.client)
	if client == nil {
		client = make(map[string]any, len(values))
	}
	maps.Copy(client, values)

	st, err := settings.Overlay(s.base, client)
	if err != nil {
		log.WithError(err).Warn("Ignoring client settings")
		return
	}
	s.client = client
	s.formatter.Reload(st)
}
