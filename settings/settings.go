// Copyright © 2024 The ELPS authors

// Package settings loads the user-facing configuration of the formatter
// integration and keeps it current while the settings file changes.
package settings

import (
	"fmt"

	"github.com/spf13/viper"
)

// Setting keys as they appear in the settings file.
const (
	KeyBinary             = "binary"
	KeyFormatOnSave       = "format_on_save"
	KeyShowErrorInline    = "show_error_inline"
	KeyScrollToErrorPoint = "scroll_to_error_point"
	KeyConfigPaths        = "config_paths"
	KeyWorkingDir         = "working_dir"
	KeyExtensions         = "extensions"
)

// EnvPrefix prefixes environment variable overrides, e.g. PRETTYLUA_BINARY.
const EnvPrefix = "PRETTYLUA"

// DefaultConfigPaths are the StyLua config files searched when the user
// has not configured any. Patterns accept $name, ${name} and
// ${name:default} placeholders; backslashes are literal.
var DefaultConfigPaths = []string{
	"${project_path}/stylua.toml",
	"${project_path}/.stylua.toml",
	"${file_path}/stylua.toml",
	"${file_path}/.stylua.toml",
}

// Settings is one immutable snapshot of the configuration. Reloading
// produces a new value rather than mutating an existing one.
type Settings struct {
	Binary             string   `mapstructure:"binary" yaml:"binary"`
	FormatOnSave       bool     `mapstructure:"format_on_save" yaml:"format_on_save"`
	ShowErrorInline    bool     `mapstructure:"show_error_inline" yaml:"show_error_inline"`
	ScrollToErrorPoint bool     `mapstructure:"scroll_to_error_point" yaml:"scroll_to_error_point"`
	ConfigPaths        []string `mapstructure:"config_paths" yaml:"config_paths"`
	WorkingDir         string   `mapstructure:"working_dir" yaml:"working_dir"`
	Extensions         []string `mapstructure:"extensions" yaml:"extensions"`
}

// SetDefaults registers default values for every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyBinary, "stylua")
	v.SetDefault(KeyFormatOnSave, true)
	v.SetDefault(KeyShowErrorInline, true)
	v.SetDefault(KeyScrollToErrorPoint, true)
	v.SetDefault(KeyConfigPaths, DefaultConfigPaths)
	v.SetDefault(KeyWorkingDir, "")
	v.SetDefault(KeyExtensions, []string{".lua"})
}

// Default returns the settings used when no settings file exists.
func Default() *Settings {
	v := viper.New()
	SetDefaults(v)
	s, err := Load(v)
	if err != nil {
		// Defaults always decode.
		panic(err)
	}
	return s
}

// Load decodes the current state of v into a fresh snapshot.
func Load(v *viper.Viper) (*Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decoding settings: %w", err)
	}
	return &s, nil
}

// Overlay returns base with values (typically sent by an editor) merged
// on top. It works on a private viper instance, so base and the viper it
// came from are never touched.
func Overlay(base *Settings, values map[string]any) (*Settings, error) {
	if base == nil {
		base = Default()
	}
	v := viper.New()
	SetDefaults(v)
	if err := v.MergeConfigMap(base.values()); err != nil {
		return nil, fmt.Errorf("layering settings: %w", err)
	}
	return Merge(v, values)
}

// values returns s keyed like the settings file. Nil lists become empty
// so that they do not fall back to the defaults.
func (s *Settings) values() map[string]any {
	orEmpty := func(l []string) []string {
		if l == nil {
			return []string{}
		}
		return l
	}
	return map[string]any{
		KeyBinary:             s.Binary,
		KeyFormatOnSave:       s.FormatOnSave,
		KeyShowErrorInline:    s.ShowErrorInline,
		KeyScrollToErrorPoint: s.ScrollToErrorPoint,
		KeyConfigPaths:        orEmpty(s.ConfigPaths),
		KeyWorkingDir:         s.WorkingDir,
		KeyExtensions:         orEmpty(s.Extensions),
	}
}

// Merge overlays values on top of v and returns the resulting snapshot.
func Merge(v *viper.Viper, values map[string]any) (*Settings, error) {
	if err := v.MergeConfigMap(values); err != nil {
		return nil, fmt.Errorf("merging settings: %w", err)
	}
	return Load(v)
}
