// Copyright © 2024 The ELPS authors

package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/luthersystems/prettylua/formatter"
	"github.com/luthersystems/prettylua/settings"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var settingsFile string

// effectiveSettings is the document printed by the settings command.
type effectiveSettings struct {
	SettingsFile string `yaml:"settings_file,omitempty"`

	settings.Settings `yaml:",inline"`

	// Command is the formatter invocation for --file, when given.
	Command string `yaml:"command,omitempty"`
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Print the effective settings",
	Long: `Print the settings in effect after merging defaults, the settings file
and PRETTYLUA_* environment variables, as YAML.

With --file, also print the formatter command line that would be used for
that file, including the StyLua config file found through config_paths.

Examples:
  prettylua settings
  prettylua settings --file src/init.lua
  PRETTYLUA_BINARY=/opt/bin/stylua prettylua settings`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		st, err := loadSettings()
		if err != nil {
			return err
		}
		return printSettings(os.Stdout, st, viper.ConfigFileUsed(), settingsFile)
	},
}

func printSettings(w io.Writer, st *settings.Settings, used, file string) error {
	doc := effectiveSettings{SettingsFile: used, Settings: *st}
	if file != "" {
		abs, err := filepath.Abs(file)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", file, err)
		}
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolving project path: %w", err)
		}
		cfg := formatter.NewConfig(st)
		doc.Command = cfg.CommandLine(cfg.ResolveConfigFlag(formatter.FileVariables(abs, cwd)))
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	return enc.Close()
}

func init() {
	rootCmd.AddCommand(settingsCmd)

	settingsCmd.Flags().StringVar(&settingsFile, "file", "",
		"Show the formatter command line for this Lua file.")
}
