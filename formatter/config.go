// Copyright © 2024 The ELPS authors

package formatter

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/luthersystems/prettylua/settings"
	log "github.com/sirupsen/logrus"
	"mvdan.cc/sh/v3/shell"
)

// Variables are the placeholder values a host supplies for expanding
// config path patterns, keyed by name without the leading "$".
type Variables map[string]string

// FileVariables returns the variables describing filename inside the
// project rooted at projectPath. Either argument may be empty.
func FileVariables(filename, projectPath string) Variables {
	vars := Variables{}
	if projectPath != "" {
		vars["project_path"] = projectPath
		vars["folder"] = projectPath
	}
	if filename != "" {
		base := filepath.Base(filename)
		ext := filepath.Ext(base)
		vars["file"] = filename
		vars["file_path"] = filepath.Dir(filename)
		vars["file_name"] = base
		vars["file_base_name"] = strings.TrimSuffix(base, ext)
		vars["file_extension"] = strings.TrimPrefix(ext, ".")
	}
	return vars
}

// Config describes how to invoke the formatter. A Config is built from one
// settings snapshot; a settings reload builds a new Config, which drops the
// cached config file path with it.
type Config struct {
	Command     string
	ConfigPaths []string
	WorkingDir  string

	mu                  sync.Mutex
	lastValidConfigPath string
}

// NewConfig builds the invocation config for a settings snapshot.
func NewConfig(s *settings.Settings) *Config {
	return &Config{
		Command:     s.Binary,
		ConfigPaths: append([]string(nil), s.ConfigPaths...),
		WorkingDir:  s.WorkingDir,
	}
}

// LastValidConfigPath returns the cached config file path, or "" if unset.
func (c *Config) LastValidConfigPath() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastValidConfigPath
}

// ResolveConfigFlag returns the --config-path flag for the first readable
// config file, or "" when no config file is in use. The last match is
// cached and reused for as long as it stays readable.
func (c *Config) ResolveConfigFlag(vars Variables) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.ConfigPaths) == 0 {
		c.lastValidConfigPath = ""
		return ""
	}
	if c.lastValidConfigPath != "" && IsReadableFile(c.lastValidConfigPath) {
		return configFlag(c.lastValidConfigPath)
	}

	c.lastValidConfigPath = ""
	for _, pattern := range c.ConfigPaths {
		path, err := ExpandVariables(pattern, vars)
		if err != nil {
			log.WithError(err).WithField("pattern", pattern).Warn("Skipping config path")
			continue
		}
		if IsReadableFile(path) {
			c.lastValidConfigPath = path
			return configFlag(path)
		}
	}
	return ""
}

// CommandLine builds the shell command line that reads the buffer from
// stdin, passing flag (as returned by ResolveConfigFlag) when non-empty.
func (c *Config) CommandLine(flag string) string {
	if flag == "" {
		return c.Command + " -"
	}
	return c.Command + " " + flag + " -"
}

func configFlag(path string) string {
	return fmt.Sprintf(`--config-path "%s"`, path)
}

// defaultRe matches the "${name:" opening of a ${name:default}
// placeholder, optionally written in the shell's ${name:-default} form.
var defaultRe = regexp.MustCompile(`\$\{(\w+):-?`)

// ExpandVariables substitutes $name, ${name} and ${name:default}
// placeholders in pattern. Names missing from vars fall back to the
// process environment; the default is used when the value is empty.
// Backslashes are kept as written, so Windows paths need no escaping.
func ExpandVariables(pattern string, vars Variables) (string, error) {
	pattern = strings.ReplaceAll(pattern, `\`, `\\`)
	pattern = defaultRe.ReplaceAllString(pattern, "$${${1}:-")
	return shell.Expand(pattern, func(name string) string {
		if v, ok := vars[name]; ok {
			return v
		}
		return os.Getenv(name)
	})
}

// IsReadableFile reports whether path names a regular file the current
// process can open for reading. It never fails; any problem means false.
func IsReadableFile(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	f, err := os.Open(path) //nolint:gosec // user-configured path
	if err != nil {
		return false
	}
	_ = f.Close()
	return true
}
