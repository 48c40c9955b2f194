// Copyright © 2024 The ELPS authors

package cmd

import (
	"github.com/luthersystems/prettylua/diagnostic"
)

func colorMode() diagnostic.ColorMode {
	return diagnostic.ParseColorMode(colorFlag)
}

// newRenderer returns a renderer that shows lines of src for file and
// falls back to reading other files from disk.
func newRenderer(file string, src []byte) *diagnostic.Renderer {
	r := &diagnostic.Renderer{Color: colorMode()}
	if src != nil {
		r.SourceReader = func(name string) ([]byte, error) {
			if name == file {
				return src, nil
			}
			return readFile(name)
		}
	}
	return r
}
