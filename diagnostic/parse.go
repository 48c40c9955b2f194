// Copyright © 2024 The ELPS authors

package diagnostic

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Fixed fragments of StyLua's error output.
const (
	stdinPrefix     = "failed to format from stdin: "
	parsingPrefix   = "error: error parsing: "
	additionalInfo  = "additional information: "
	splitAdditional = ")\nadditional"
	joinAdditional  = ") additional"
)

var (
	digitRuns = regexp.MustCompile(`\d+`)

	// rangeClause matches the location StyLua appends to parse errors.
	rangeClause = regexp.MustCompile(`\ \(starting from line \d+, character \d+ and ending on line \d+, character \d+\)`)

	markupEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
)

// Position is a zero-based line and column into a buffer.
type Position struct {
	Line   int
	Column int
}

// NormalizeStderr collapses the formatter's error stream into a single
// line. It must run before ParsePosition so both see the same text.
func NormalizeStderr(stderr string) string {
	stderr = strings.ReplaceAll(stderr, stdinPrefix, "")
	stderr = strings.ReplaceAll(stderr, splitAdditional, joinAdditional)
	return strings.ReplaceAll(stderr, "\n", "")
}

// ParsePosition returns the end position of a parse error. StyLua reports
// start line, start column, end line and end column in that order; any
// other number of integers in the message is treated as unparseable.
func ParsePosition(stderr string) (Position, bool) {
	_, end, ok := ParseRange(stderr)
	return end, ok
}

// ParseRange is ParsePosition keeping the start position as well.
func ParseRange(stderr string) (start, end Position, ok bool) {
	if stderr == "" {
		return Position{}, Position{}, false
	}
	runs := digitRuns.FindAllString(stderr, -1)
	if len(runs) != 4 {
		return Position{}, Position{}, false
	}
	n := make([]int, len(runs))
	for i, r := range runs {
		v, err := strconv.Atoi(r)
		if err != nil {
			// Overflow on absurdly long digit runs.
			return Position{}, Position{}, false
		}
		n[i] = v
	}
	start = Position{Line: oneToZero(n[0]), Column: oneToZero(n[1])}
	end = Position{Line: oneToZero(n[2]), Column: oneToZero(n[3])}
	return start, end, true
}

func oneToZero(n int) int {
	if n > 0 {
		return n - 1
	}
	return 0
}

// CleanMessage turns raw formatter stderr into a one-line message that is
// safe to embed in markup.
func CleanMessage(stderr string) string {
	return EscapeMarkup(Tidy(stderr))
}

// Tidy performs the text surgery of CleanMessage without escaping. Only
// the first letter is upper-cased; the rest of the message keeps its
// case, so identifiers and tokens quoted by StyLua are shown verbatim.
func Tidy(stderr string) string {
	msg := strings.ReplaceAll(stderr, parsingPrefix, "")
	msg = rangeClause.ReplaceAllString(msg, "")
	msg = strings.ReplaceAll(msg, additionalInfo, " (")
	msg += ")"
	return capitalize(msg)
}

// EscapeMarkup escapes &, < and >. Quotes are left alone.
func EscapeMarkup(s string) string {
	return markupEscaper.Replace(s)
}

// capitalize upper-cases the first rune of s and leaves the rest as is.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
