// Package shell contains helpers for dealing with shell-like command strings.
package shell

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMismatchedQuotes is returned when the input string has mismatched quotes.
	ErrMismatchedQuotes = errors.New("mismatched quotes")

	// ErrTrailingBackslash is returned when the input string ends with a trailing backslash.
	ErrTrailingBackslash = errors.New("trailing backslash")
)

// Split splits the input string into segments respecting shell-like quoting.
// Variables and command substitutions are not expanded. It is used to turn
// configured command overrides into an argv without involving a shell.
func Split(input string) ([]string, error) {
	var segments []string
	var sb strings.Builder
	var inDouble, inSingle, escaped bool

	for i := 0; i < len(input); i++ {
		c := input[i]

		if escaped {
			sb.WriteByte(c)
			escaped = false
			continue
		}

		switch {
		case c == '\\' && !inSingle:
			escaped = true
		case c == '"' && !inSingle:
			inDouble = !inDouble
		case c == '\'' && !inDouble:
			inSingle = !inSingle
		case c == ' ' && !inDouble && !inSingle:
			if sb.Len() > 0 {
				segments = append(segments, sb.String())
				sb.Reset()
			}
		default:
			sb.WriteByte(c)
		}
	}

	if inDouble || inSingle {
		return nil, fmt.Errorf("split %q: %w", input, ErrMismatchedQuotes)
	}

	if escaped {
		return nil, fmt.Errorf("split %q: %w", input, ErrTrailingBackslash)
	}

	if sb.Len() > 0 {
		segments = append(segments, sb.String())
	}

	return segments, nil
}
