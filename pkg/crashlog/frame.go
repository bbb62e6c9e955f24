package crashlog

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// HiddenMarker prefixes symbols stripped by bitcode compilation (e.g. _hidden#1679_)
	HiddenMarker = "hidden#"
	// RawAddressPrefix starts the call text of unsymbolicated frames
	RawAddressPrefix = "0x"
)

// Frame is a single numbered line of a thread backtrace
//
// e.g.
//
//	1   MyApplicationDataAccess  0x0000000100ee479c _hidden#1679_ (__hidden#8070_:186)
type Frame struct {
	Index   string
	Module  string
	Address string
	// CallText is everything after the address, re-joined with single spaces
	CallText string
	// Line is the full, untouched report line
	Line string
}

// Eligible reports whether the frame still needs de-obfuscation or symbolication
func (f Frame) Eligible() bool {
	return strings.Contains(f.CallText, HiddenMarker) || strings.HasPrefix(f.CallText, RawAddressPrefix)
}

// ParseFrame tokenizes a report line into a Frame.
// It returns false for anything that is not a numbered backtrace line, and a
// *FormatError for numbered lines missing the module or address.
func ParseFrame(line string) (Frame, bool, error) {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return Frame{}, false, nil
	}
	if _, err := strconv.Atoi(tokens[0]); err != nil {
		return Frame{}, false, nil
	}
	if len(tokens) < 3 {
		return Frame{}, false, &FormatError{
			Text:   line,
			Reason: fmt.Sprintf("stack frame has %d fields, expected at least 3", len(tokens)),
		}
	}
	return Frame{
		Index:    tokens[0],
		Module:   tokens[1],
		Address:  tokens[2],
		CallText: strings.Join(tokens[3:], " "),
		Line:     line,
	}, true, nil
}

// Classify returns the frame for lines that should be resolved.
// Headers, blank lines and already symbolicated frames return false.
func Classify(line string) (Frame, bool, error) {
	frame, ok, err := ParseFrame(line)
	if err != nil || !ok || !frame.Eligible() {
		return Frame{}, false, err
	}
	return frame, true, nil
}

// IsBlank reports whether the line holds no tokens
func IsBlank(line string) bool {
	return len(strings.Fields(line)) == 0
}
