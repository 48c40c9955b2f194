// Copyright © 2024 The ELPS authors

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/luthersystems/prettylua/formatter"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"
)

var (
	fmtWrite     bool
	fmtDiff      bool
	fmtList      bool
	fmtExcludes  []string
	fmtStdinPath string
)

// errReported marks failures already shown to the user as an alert or an
// annotated snippet.
var errReported = errors.New("formatting failed")

// newService builds the formatter service from the loaded settings.
// Tests replace it to inject a runner.
var newService = func() (*formatter.Service, error) {
	st, err := loadSettings()
	if err != nil {
		return nil, err
	}
	return formatter.New(st), nil
}

var fmtCmd = &cobra.Command{
	Use:   "fmt [flags] [files...]",
	Short: "Format Lua source files with StyLua",
	Long: `Format Lua source files by piping them through StyLua, similar to gofmt
for Go.

With no files, reads from stdin and writes to stdout. Use --stdin-path to
name the buffer so that config_paths patterns can find a stylua.toml.
With files, prints formatted output to stdout unless -w is given. A
"dir/..." argument expands to the files under dir whose extension is
listed in the extensions setting (.lua by default).

Parse errors are shown as annotated source snippets; other formatter
failures (such as a missing stylua binary) are printed as alerts.

Modes:
  (default)   Print formatted code to stdout
  -w          Write result back to source file
  -d          Display a diff of changes
  -l          List files that would be changed

Examples:
  prettylua fmt init.lua              Print formatted output
  prettylua fmt -w init.lua           Format in place
  prettylua fmt -w ./...              Format all Lua files in place
  prettylua fmt -d init.lua           Show what would change
  prettylua fmt -l src/...            List files needing formatting
  cat init.lua | prettylua fmt        Format from stdin
  prettylua fmt --exclude 'vendor' -w ./...`,
	Run: func(cmd *cobra.Command, args []string) {
		svc, err := newService()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		if len(args) == 0 {
			if err := fmtStdin(cmd.Context(), svc, os.Stdin, os.Stdout, os.Stderr); err != nil {
				if !errors.Is(err, errReported) {
					fmt.Fprintln(os.Stderr, err)
				}
				os.Exit(1)
			}
			return
		}

		expanded, err := expandArgs(args, fmtExcludes, svc.Settings().Extensions)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		exitCode := 0
		for _, path := range expanded {
			changed, err := fmtFile(cmd.Context(), svc, path, os.Stdout, os.Stderr)
			if err != nil {
				if !errors.Is(err, errReported) {
					fmt.Fprintln(os.Stderr, err)
				}
				exitCode = 1
			} else if fmtList && changed {
				exitCode = 1
			}
		}
		os.Exit(exitCode)
	},
}

func fmtStdin(ctx context.Context, svc *formatter.Service, stdin io.Reader, stdout, stderr io.Writer) error {
	src, err := io.ReadAll(stdin)
	if err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}
	name := fmtStdinPath
	if name == "" {
		name = "<stdin>"
	}
	view := newTermView(name, fmtStdinPath, src, stderr)
	out, err := view.format(ctx, svc)
	if err != nil {
		return err
	}
	_, err = stdout.Write(out)
	return err
}

func fmtFile(ctx context.Context, svc *formatter.Service, path string, stdout, stderr io.Writer) (bool, error) {
	src, err := readFile(path)
	if err != nil {
		return false, fmt.Errorf("%s: %w", path, err)
	}
	view := newTermView(path, path, src, stderr)
	out, err := view.format(ctx, svc)
	if err != nil {
		return false, err
	}

	changed := string(src) != string(out)

	if fmtList {
		if changed {
			fmt.Fprintln(stdout, path)
		}
		return changed, nil
	}

	if fmtDiff {
		if changed {
			if err := printUnifiedDiff(stdout, path, src, out); err != nil {
				return changed, err
			}
		}
		return changed, nil
	}

	if fmtWrite {
		if !changed {
			return false, nil
		}
		info, err := os.Stat(path)
		if err != nil {
			return false, fmt.Errorf("%s: %w", path, err)
		}
		return true, os.WriteFile(path, out, info.Mode().Perm())
	}

	// Default: print to stdout
	_, err = stdout.Write(out)
	return changed, err
}

func printUnifiedDiff(w io.Writer, path string, original, formatted []byte) error {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(original)),
		B:        difflib.SplitLines(string(formatted)),
		FromFile: path,
		ToFile:   path,
		Context:  3,
	}
	return difflib.WriteUnifiedDiff(w, diff)
}

func readFile(path string) ([]byte, error) {
	return os.ReadFile(path) //nolint:gosec // CLI tool reads user-specified files
}

func init() {
	rootCmd.AddCommand(fmtCmd)

	fmtCmd.Flags().BoolVarP(&fmtWrite, "write", "w", false,
		"Write result to (source) file instead of stdout.")
	fmtCmd.Flags().BoolVarP(&fmtDiff, "diff", "d", false,
		"Display diffs instead of rewriting files.")
	fmtCmd.Flags().BoolVarP(&fmtList, "list", "l", false,
		"List files whose formatting differs from StyLua's.")
	fmtCmd.Flags().StringArrayVar(&fmtExcludes, "exclude", nil,
		"Glob pattern for files to exclude (may be repeated).")
	fmtCmd.Flags().StringVar(&fmtStdinPath, "stdin-path", "",
		"Path used to resolve StyLua config files when reading stdin.")
}
