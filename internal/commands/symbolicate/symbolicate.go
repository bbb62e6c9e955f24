// Package symbolicate implements the symbolicate command
package symbolicate

import (
	"context"
	"errors"
	"fmt"

	"github.com/apex/log"
	"github.com/blacktop/symbolicator/internal/utils"
	"github.com/blacktop/symbolicator/internal/xcrun"
	"github.com/blacktop/symbolicator/pkg/crashlog"
	"github.com/blacktop/symbolicator/pkg/symbolicate"
)

// Tools returns the external tools for the options
func (o *Options) Tools() symbolicate.Tools {
	return xcrun.NewTools(xcrun.NewRunner(o.Timeout), o.Dsymutil, o.Atos)
}

// Policy returns the unresolved frame policy for the options
func (o *Options) Policy() symbolicate.Policy {
	if o.KeepGoing {
		return symbolicate.KeepGoing
	}
	return symbolicate.FailFast
}

// Symbolicator creates the symbolicator described by the options
func (o *Options) Symbolicator(tools symbolicate.Tools) *symbolicate.Symbolicator {
	return symbolicate.New(o.SymbolArchive(), tools,
		symbolicate.WithPolicy(o.Policy()),
		symbolicate.WithQuiet(o.Quiet),
	)
}

// Preflight checks the archive folders and tools before any report is touched
func (o *Options) Preflight() error {
	if err := o.SymbolArchive().Verify(); err != nil {
		return &InvalidArgumentsError{Hints: []string{err.Error(), "check that you are using the correct archive"}}
	}
	for _, tool := range []xcrun.Tool{o.dsymutil(), o.atos()} {
		if err := tool.Check(); err != nil {
			return err
		}
	}
	return nil
}

func (o *Options) dsymutil() xcrun.Tool {
	if len(o.Dsymutil) == 0 {
		return xcrun.DefaultDsymutil
	}
	return o.Dsymutil
}

func (o *Options) atos() xcrun.Tool {
	if len(o.Atos) == 0 {
		return xcrun.DefaultAtos
	}
	return o.Atos
}

// Run symbolicates every report selected by the options with the given tools
func Run(ctx context.Context, o *Options, tools symbolicate.Tools) error {
	jobs, err := o.Jobs()
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		log.Warnf("no crash reports (%v) found in %s", ReportExtensions, o.MultiDir)
		return nil
	}

	if o.MultiDir != "" {
		log.WithField("dir", o.MultiDir).Infof("Multiple reports mode: found %d crash reports", len(jobs))
		for _, job := range jobs {
			utils.Indent(log.Debug, 2)(job.Input)
		}
	}

	b := &symbolicate.Batch{
		Symbolicator: o.Symbolicator(tools),
		Parallel:     o.Parallel,
	}
	if err := b.Run(ctx, jobs); err != nil {
		return fmt.Errorf("symbolication failed: %w", err)
	}

	return nil
}

// Hints returns suggestions for the user to fix err
func Hints(err error) []string {
	var iae *InvalidArgumentsError
	if errors.As(err, &iae) {
		return iae.Hints
	}

	var hints []string
	if errors.Is(err, crashlog.ErrFormat) {
		hints = append(hints, `is this an Apple crash report with a "Binary Images:" section?`)
	}
	if errors.Is(err, symbolicate.ErrNotFound) {
		hints = append(hints,
			"check that the archive was built from the same version as the crashing app",
			"check that the archive contains the dSYMs of every framework in the report",
		)
	}
	var xerr *xcrun.Error
	if errors.Is(err, symbolicate.ErrToolFailure) || errors.As(err, &xerr) {
		hints = append(hints, "check that the Xcode command line tools are installed (xcode-select --install)")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		hints = append(hints, "try increasing the tool timeout with --timeout")
	}
	return hints
}
