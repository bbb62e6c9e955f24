// Package xcrun runs the Xcode command line tools used for symbolication
package xcrun

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/blacktop/symbolicator/internal/utils"
	"github.com/blacktop/symbolicator/pkg/symbolicate"
)

// DefaultTimeout bounds a single tool invocation
const DefaultTimeout = 2 * time.Minute

// Tool is an executable and its leading arguments, e.g. [xcrun dsymutil]
type Tool []string

var (
	// DefaultDsymutil is dsymutil as found by xcrun
	DefaultDsymutil = Tool{"xcrun", "dsymutil"}
	// DefaultAtos is atos as found by xcrun
	DefaultAtos = Tool{"xcrun", "atos"}
)

// ParseTool splits a tool command line on whitespace
func ParseTool(s string) Tool {
	return Tool(strings.Fields(s))
}

func (t Tool) String() string {
	return strings.Join(t, " ")
}

// Check verifies the tool executable is in PATH
func (t Tool) Check() error {
	if len(t) == 0 {
		return fmt.Errorf("empty tool command")
	}
	if _, err := exec.LookPath(t[0]); err != nil {
		return fmt.Errorf("%s not found (are the Xcode command line tools installed?): %w", t[0], err)
	}
	return nil
}

// Error is returned when a tool could not be run to completion
type Error struct {
	Cmd    string
	Output string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("failed to run %q: %v", e.Cmd, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Runner executes tools and returns their combined output
type Runner struct {
	// Timeout per invocation (0 disables it)
	Timeout time.Duration
}

// NewRunner creates a Runner with the given per call timeout
func NewRunner(timeout time.Duration) *Runner {
	return &Runner{Timeout: timeout}
}

// Run runs tool with args and returns stdout and stderr combined.
// A non-zero exit status is not an error: the tools report failures in their output.
// Failing to start, a timeout or a canceled context is.
func (r *Runner) Run(ctx context.Context, tool Tool, args ...string) (string, error) {
	if len(tool) == 0 {
		return "", &Error{Err: fmt.Errorf("empty tool command")}
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	var output bytes.Buffer
	cmd := exec.CommandContext(ctx, tool[0], append(tool[1:len(tool):len(tool)], args...)...)
	cmd.Stdout = &output
	cmd.Stderr = &output

	utils.Indent(log.Debug, 2)(cmd.String())

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return output.String(), &Error{Cmd: cmd.String(), Output: output.String(), Err: ctxErr}
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			log.WithField("code", exitErr.ExitCode()).Debugf("%s exited with error", tool[0])
			return output.String(), nil
		}
		return output.String(), &Error{Cmd: cmd.String(), Output: output.String(), Err: err}
	}

	return output.String(), nil
}

// Dsymutil de-obfuscates dSYMs with `dsymutil -symbol-map`
type Dsymutil struct {
	runner *Runner
	tool   Tool
}

// NewDsymutil creates a Dsymutil; a nil tool means DefaultDsymutil
func NewDsymutil(runner *Runner, tool Tool) *Dsymutil {
	if len(tool) == 0 {
		tool = DefaultDsymutil
	}
	return &Dsymutil{runner: runner, tool: tool}
}

// Deobfuscate remaps the hidden symbols of dsym in place using the BCSymbolMaps folder
func (d *Dsymutil) Deobfuscate(ctx context.Context, symbolMaps, dsym string) (string, error) {
	return d.runner.Run(ctx, d.tool, "-symbol-map", symbolMaps, dsym)
}

// Atos looks up symbols with `atos`
type Atos struct {
	runner *Runner
	tool   Tool
}

// NewAtos creates an Atos; a nil tool means DefaultAtos
func NewAtos(runner *Runner, tool Tool) *Atos {
	if len(tool) == 0 {
		tool = DefaultAtos
	}
	return &Atos{runner: runner, tool: tool}
}

// Resolve returns the raw atos output for a single address
func (a *Atos) Resolve(ctx context.Context, req symbolicate.AddressRequest) (string, error) {
	return a.runner.Run(ctx, a.tool,
		"-arch", req.Arch,
		"-o", req.Object,
		"-l", req.LoadAddress,
		req.Address,
	)
}

// NewTools wires dsymutil and atos into symbolicate.Tools
func NewTools(runner *Runner, dsymutil, atos Tool) symbolicate.Tools {
	return symbolicate.Tools{
		Deobfuscator:    NewDsymutil(runner, dsymutil),
		AddressResolver: NewAtos(runner, atos),
	}
}
