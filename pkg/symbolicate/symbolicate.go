// Package symbolicate rewrites the obfuscated and unsymbolicated frames of a
// crash report using the dSYMs and BCSymbolMaps of the matching Xcode archive.
package symbolicate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/apex/log"
	"github.com/blacktop/symbolicator/pkg/crashlog"
)

// Policy decides what happens when a frame cannot be resolved
type Policy int

const (
	// FailFast aborts the whole report on the first unresolved frame
	FailFast Policy = iota
	// KeepGoing leaves unresolved frames untouched and logs a warning
	KeepGoing
)

func (p Policy) String() string {
	if p == KeepGoing {
		return "keep-going"
	}
	return "fail-fast"
}

// Render runs every eligible frame of content through t and reassembles the report.
// Output lines are joined with "\n" whatever the input line endings were.
func Render(ctx context.Context, content string, t Translator, policy Policy) (string, error) {
	lines := crashlog.Lines(content)
	out := make([]string, 0, len(lines))

	for idx, line := range lines {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		if crashlog.IsBlank(line) {
			out = append(out, "")
			continue
		}

		frame, ok, err := crashlog.Classify(line)
		if err != nil {
			var ferr *crashlog.FormatError
			if errors.As(err, &ferr) {
				ferr.Line = idx + 1
			}
			return "", err
		}
		if !ok {
			out = append(out, line)
			continue
		}

		resolved, err := t.Translate(ctx, line, frame)
		if err != nil {
			if policy == KeepGoing && ctx.Err() == nil {
				log.WithError(err).WithFields(log.Fields{
					"frame":  frame.Index,
					"module": frame.Module,
				}).Warn("Failed to symbolicate frame")
				out = append(out, line)
				continue
			}
			return "", fmt.Errorf("failed to symbolicate frame %s (%s): %w", frame.Index, frame.Module, err)
		}
		out = append(out, resolved)
	}

	return strings.Join(out, "\n"), nil
}

// Symbolicator symbolicates crash reports built from one archive
type Symbolicator struct {
	archive Archive
	tools   Tools
	policy  Policy
	quiet   bool
}

// Option configures a Symbolicator
type Option func(*Symbolicator)

// WithPolicy sets the unresolved frame policy (FailFast by default)
func WithPolicy(p Policy) Option {
	return func(s *Symbolicator) {
		s.policy = p
	}
}

// WithQuiet logs per-report progress at debug level instead of info (e.g. while a spinner is drawn)
func WithQuiet(quiet bool) Option {
	return func(s *Symbolicator) {
		s.quiet = quiet
	}
}

// New creates a Symbolicator.
// Each Symbolicate call gets its own image catalog and dSYM cache, so one
// Symbolicator can serve several reports concurrently.
func New(archive Archive, tools Tools, opts ...Option) *Symbolicator {
	s := &Symbolicator{
		archive: archive,
		tools:   tools,
		policy:  FailFast,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Symbolicate returns content with every resolvable frame replaced by its symbol
func (s *Symbolicator) Symbolicate(ctx context.Context, content string) (string, error) {
	catalog, err := crashlog.ParseImages(content)
	if err != nil {
		return "", err
	}
	log.WithField("count", catalog.Len()).Debug("Parsed binary images")

	resolver := NewResolver(catalog, s.archive, s.tools, NewCache(catalog.Len()))

	return Render(ctx, content, resolver, s.policy)
}
