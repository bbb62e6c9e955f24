package symbolicate

import (
	"context"
	"fmt"
	"os"

	"github.com/apex/log"
	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"
)

// Job is a crash report to symbolicate and where to write the result
type Job struct {
	Input  string
	Output string
}

// SymbolicateFile reads the report at in and writes the symbolicated report to out
func (s *Symbolicator) SymbolicateFile(ctx context.Context, in, out string) error {
	data, err := os.ReadFile(in)
	if err != nil {
		return fmt.Errorf("failed to read crash report %s: %w", in, err)
	}

	s.progress(log.WithFields(log.Fields{
		"report": in,
		"size":   humanize.Bytes(uint64(len(data))),
	}), "Symbolicating crash report")

	report, err := s.Symbolicate(ctx, string(data))
	if err != nil {
		return fmt.Errorf("failed to symbolicate %s: %w", in, err)
	}

	if err := os.WriteFile(out, []byte(report), 0644); err != nil {
		return fmt.Errorf("failed to write symbolicated report %s: %w", out, err)
	}

	s.progress(log.WithField("output", out), "Symbolicated crash report saved")

	return nil
}

func (s *Symbolicator) progress(e *log.Entry, msg string) {
	if s.quiet {
		e.Debug(msg)
		return
	}
	e.Info(msg)
}

// Batch symbolicates many reports with the same archive
type Batch struct {
	Symbolicator *Symbolicator
	// Parallel is the number of reports processed at once (min 1)
	Parallel int
}

// Run processes all jobs; the first failure cancels the remaining ones
func (b *Batch) Run(ctx context.Context, jobs []Job) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, b.Parallel))

	for _, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return b.Symbolicator.SymbolicateFile(gctx, job.Input, job.Output)
		})
	}

	return g.Wait()
}
