package symbolicate

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no dSYM matches an image
	ErrNotFound = errors.New("required symbol files could not be found, check that you are using the correct archive")
	// ErrToolFailure is returned when dsymutil or atos ran but did not produce a usable result
	ErrToolFailure = errors.New("could not complete operation")
)

// Kind classifies a ResolutionError
type Kind int

const (
	NotFound Kind = iota + 1
	ToolFailure
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not found"
	case ToolFailure:
		return "tool failure"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ResolutionError is returned when a frame could not be de-obfuscated or symbolicated
type ResolutionError struct {
	Kind   Kind
	Module string
	UUID   string
	// RawLog is the output of the tool that failed
	RawLog string
	Err    error
}

func (e *ResolutionError) sentinel() error {
	if e.Kind == NotFound {
		return ErrNotFound
	}
	return ErrToolFailure
}

func (e *ResolutionError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Module, e.sentinel())
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ResolutionError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.sentinel(), e.Err}
	}
	return []error{e.sentinel()}
}

// RawLog returns the captured tool output of a ResolutionError anywhere in err's chain
func RawLog(err error) string {
	var rerr *ResolutionError
	if errors.As(err, &rerr) {
		return rerr.RawLog
	}
	return ""
}
