// Copyright © 2024 The ELPS authors

package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/luthersystems/prettylua/settings"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile   string
	colorFlag string
	logLevel  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "prettylua",
	Short: "Pretty Lua: StyLua integration for editors and the terminal",
	Long: `Pretty Lua pipes Lua source through the StyLua formatter and turns its
output into an editor action: the buffer is replaced with the formatted
text, a parse error is annotated at its location, or an alert is shown.

Getting started:
  prettylua fmt file.lua          Print formatted output
  prettylua fmt -w ./...          Format every Lua file in place
  prettylua lsp                   Serve editors over LSP (stdio)
  prettylua settings              Show the effective settings

Settings are read from $HOME/prettylua.{yaml,json,toml} or the file given
with --config, and may be overridden with PRETTYLUA_* environment
variables (e.g. PRETTYLUA_BINARY=/opt/bin/stylua).

StyLua config files are searched with the config_paths setting. Each
pattern may reference ${project_path}, ${file_path}, ${file_name},
${file_base_name}, ${file_extension}, ${file} and ${folder}, written as
$name or ${name}. Use ${name:default} to fall back when a value is empty,
e.g. ${folder:/etc/lua}/stylua.toml. Unknown names are looked up in the
environment. Backslashes are kept literally.`,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return setupLogging()
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "settings file (default is $HOME/prettylua.yaml)")
	rootCmd.PersistentFlags().StringVar(&colorFlag, "color", "auto",
		`Control colored output: "auto", "always", or "never".`)
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn",
		`Log verbosity: "debug", "info", "warn" or "error".`)
}

// initConfig reads in the settings file and ENV variables if set.
func initConfig() {
	settings.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			// Search config in home directory with name "prettylua" (without extension).
			viper.AddConfigPath(home)
		}
		viper.SetConfigName("prettylua")
	}

	viper.SetEnvPrefix(settings.EnvPrefix)
	viper.AutomaticEnv() // read in environment variables that match

	err := viper.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	switch {
	case err == nil:
		log.WithField("file", viper.ConfigFileUsed()).Debug("Using settings file")
	case errors.As(err, &notFound):
	default:
		log.WithError(err).Warn("Could not read settings file")
	}
}

// setupLogging points logrus at stderr with the level from --log-level.
// Stdout is reserved for formatted code and the LSP stream.
func setupLogging() error {
	lvl, err := log.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	log.SetOutput(os.Stderr)
	log.SetLevel(lvl)
	return nil
}

// loadSettings decodes the global settings snapshot.
func loadSettings() (*settings.Settings, error) {
	return settings.Load(viper.GetViper())
}
