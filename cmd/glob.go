// Copyright © 2024 The ELPS authors

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ryanuber/go-glob"
)

// defaultExtensions are collected when no extensions are configured.
var defaultExtensions = []string{".lua"}

// expandArgs expands arguments, resolving patterns ending with "/..." to all
// files with one of extensions found recursively under the given directory,
// then drops the paths matching any of excludes. Non-pattern arguments pass
// through unchanged.
func expandArgs(args, excludes, extensions []string) ([]string, error) {
	if len(extensions) == 0 {
		extensions = defaultExtensions
	}
	var out []string
	for _, arg := range args {
		if dir, ok := strings.CutSuffix(arg, "/..."); ok {
			if dir == "" {
				dir = "."
			}
			files, err := findSourceFiles(dir, extensions)
			if err != nil {
				return nil, fmt.Errorf("expanding %s: %w", arg, err)
			}
			out = append(out, files...)
		} else {
			out = append(out, arg)
		}
	}
	return filterExcludes(out, excludes), nil
}

func findSourceFiles(root string, extensions []string) ([]string, error) {
	var files []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if slices.Contains(extensions, filepath.Ext(path)) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// filterExcludes returns the paths not matching any pattern, in order.
func filterExcludes(paths []string, patterns []string) []string {
	if len(patterns) == 0 {
		return paths
	}
	var kept []string
	for _, p := range paths {
		if !matchesAny(p, patterns) {
			kept = append(kept, p)
		}
	}
	return kept
}

// matchesAny reports whether a pattern matches the whole path, its base
// name, or any single directory component. Patterns use "*" wildcards.
func matchesAny(path string, patterns []string) bool {
	slashed := filepath.ToSlash(path)
	components := splitPath(path)
	for _, pat := range patterns {
		pat = filepath.ToSlash(pat)
		if glob.Glob(pat, slashed) {
			return true
		}
		for _, c := range components {
			if glob.Glob(pat, c) {
				return true
			}
		}
	}
	return false
}

// splitPath returns the non-empty components of path.
func splitPath(path string) []string {
	var parts []string
	for _, p := range strings.Split(filepath.ToSlash(filepath.Clean(path)), "/") {
		if p != "" && p != "." {
			parts = append(parts, p)
		}
	}
	return parts
}
