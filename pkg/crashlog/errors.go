package crashlog

import (
	"errors"
	"fmt"
)

// ErrFormat is returned (wrapped in a *FormatError) when a report does not follow the expected layout
var ErrFormat = errors.New("unsupported crash report format")

// FormatError describes where a report stopped matching the expected layout
type FormatError struct {
	Line   int // 1-based line number within the section being parsed, 0 if unknown
	Text   string
	Reason string
}

func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%v: %s (line %d: %q)", ErrFormat, e.Reason, e.Line, e.Text)
	}
	if e.Text != "" {
		return fmt.Sprintf("%v: %s (%q)", ErrFormat, e.Reason, e.Text)
	}
	return fmt.Sprintf("%v: %s", ErrFormat, e.Reason)
}

func (e *FormatError) Unwrap() error {
	return ErrFormat
}
