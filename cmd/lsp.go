// Copyright © 2024 The ELPS authors

package cmd

import (
	"fmt"
	"os"

	"github.com/luthersystems/prettylua/formatter"
	"github.com/luthersystems/prettylua/lsp"
	"github.com/luthersystems/prettylua/settings"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// LSPCommand creates the "lsp" cobra command.
func LSPCommand() *cobra.Command {
	var (
		stdio bool
		port  int
	)

	cmd := &cobra.Command{
		Use:   "lsp [flags]",
		Short: "Start the Pretty Lua Language Server Protocol server",
		Long: `Start an LSP server that formats Lua documents with StyLua.

The server answers textDocument/formatting with a whole-document edit,
formats on save through textDocument/willSaveWaitUntil (for the
extensions setting), publishes StyLua parse errors as diagnostics and
reveals the error point with window/showDocument. Other failures are
shown with window/showMessage.

Settings are taken from the settings file, which is watched for changes,
and from a "prettylua" section sent with workspace/didChangeConfiguration
or as initializationOptions.

Transport modes:
  --stdio      Use stdin/stdout for LSP communication (default)
  --port N     Listen for an LSP client on TCP port N

Examples:
  prettylua lsp                      Start with stdio transport
  prettylua lsp --stdio              Same as above (explicit)
  prettylua lsp --port 7998          Start with TCP on port 7998`,
		Args: cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			st, err := loadSettings()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			srv := lsp.New(lsp.WithService(formatter.New(st)))
			if viper.ConfigFileUsed() != "" {
				settings.Watch(viper.GetViper(), srv.SetBaseSettings)
			}

			if !stdio && port > 0 {
				addr := fmt.Sprintf("localhost:%d", port)
				log.WithField("addr", addr).Info("Pretty Lua LSP server listening")
				if err := srv.RunTCP(addr); err != nil {
					fmt.Fprintf(os.Stderr, "lsp server error: %v\n", err)
					os.Exit(1)
				}
			} else {
				if err := srv.RunStdio(); err != nil {
					fmt.Fprintf(os.Stderr, "lsp server error: %v\n", err)
					os.Exit(1)
				}
			}
		},
	}

	cmd.Flags().BoolVar(&stdio, "stdio", false,
		"Use stdin/stdout for LSP communication (default behavior)")
	cmd.Flags().IntVar(&port, "port", 0,
		"TCP port for LSP server (use instead of --stdio)")

	return cmd
}

func init() {
	rootCmd.AddCommand(LSPCommand())
}
