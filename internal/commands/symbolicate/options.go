package symbolicate

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/blacktop/symbolicator/internal/utils"
	"github.com/blacktop/symbolicator/internal/xcrun"
	"github.com/blacktop/symbolicator/pkg/symbolicate"
)

const (
	// DefaultOutput is where a single symbolicated report is written
	DefaultOutput = "symbolicated.crash"
	// OutputSuffix is appended to each report name in multi-report mode
	OutputSuffix = "-" + DefaultOutput

	archiveExt = ".xcarchive"
)

// ReportExtensions are the accepted crash report file extensions
var ReportExtensions = []string{".txt", ".crash"}

// InvalidArgumentsError is returned when the command line does not make sense
type InvalidArgumentsError struct {
	Hints []string
}

func (e *InvalidArgumentsError) Error() string {
	return "invalid arguments"
}

func invalid(hints ...string) error {
	return &InvalidArgumentsError{Hints: hints}
}

// Options are the settings of a symbolicate run
type Options struct {
	// Archive is the .xcarchive holding BCSymbolMaps and dSYMs
	Archive string
	// Report is the crash report to symbolicate (single report mode)
	Report string
	// Output overrides DefaultOutput (single report mode)
	Output string
	// MultiDir symbolicates every report found under the folder
	MultiDir string
	// SymbolMaps and DSYMs replace Archive ("no archive" mode)
	SymbolMaps string
	DSYMs      string

	Parallel  int
	KeepGoing bool
	// Quiet logs per-report progress at debug level
	Quiet    bool
	Timeout  time.Duration
	Dsymutil xcrun.Tool
	Atos     xcrun.Tool
}

// NoArchive reports whether the symbol folders were given directly
func (o *Options) NoArchive() bool {
	return o.SymbolMaps != "" || o.DSYMs != ""
}

// Validate checks the options and assigns the positional arguments
func (o *Options) Validate(args []string) error {
	if o.Output != "" && !utils.HasAnySuffix(o.Output, ReportExtensions...) {
		return invalid(fmt.Sprintf("have you ensured your output filename has one of the following extensions? %v", ReportExtensions))
	}

	if o.NoArchive() {
		if o.SymbolMaps == "" || o.DSYMs == "" {
			return invalid("please ensure that BCSymbolMaps and dSYMs directory paths are specified")
		}
		if !isFolder(o.SymbolMaps, "BCSymbolMaps") || !isFolder(o.DSYMs, "dSYMs") {
			return invalid("are you using correct folders (BCSymbolMaps and dSYMs)?")
		}
	}

	switch {
	case o.MultiDir != "" && o.NoArchive():
		if len(args) != 0 {
			return invalid("no archive is needed when BCSymbolMaps and dSYMs are given with --multi")
		}
	case o.MultiDir != "":
		if len(args) != 1 || !strings.HasSuffix(args[0], archiveExt) {
			return invalid(
				"check that you have provided a valid archive file and directory",
				`check that you are referring to the archive directly (no trailing "/")`,
			)
		}
		o.Archive = args[0]
	case o.NoArchive():
		if len(args) != 1 || !utils.HasAnySuffix(args[0], ReportExtensions...) {
			return invalid(fmt.Sprintf("check that you have provided a valid crash report file with one of these extensions: %v", ReportExtensions))
		}
		o.Report = args[0]
	default:
		if len(args) != 2 || !strings.HasSuffix(args[0], archiveExt) || !utils.HasAnySuffix(args[1], ReportExtensions...) {
			return invalid(
				"symbolicator requires at least two arguments (archive and crash report file), please try again",
				fmt.Sprintf("are you using Xcode archives and crash report files with one of these extensions? %v", ReportExtensions),
				`check that you are referring to the archive directly (no trailing "/")`,
			)
		}
		o.Archive = args[0]
		o.Report = args[1]
	}

	if o.Parallel < 1 {
		o.Parallel = 1
	}

	return nil
}

// SymbolArchive returns the symbol folders to use
func (o *Options) SymbolArchive() symbolicate.Archive {
	if o.NoArchive() {
		return symbolicate.Archive{BCSymbolMaps: o.SymbolMaps, DSYMs: o.DSYMs}
	}
	return symbolicate.NewArchive(o.Archive)
}

// Jobs lists the reports to symbolicate and their output paths
func (o *Options) Jobs() ([]symbolicate.Job, error) {
	if o.MultiDir == "" {
		return []symbolicate.Job{{Input: o.Report, Output: o.OutputFile()}}, nil
	}

	reports, err := FindReports(o.MultiDir)
	if err != nil {
		return nil, err
	}
	jobs := make([]symbolicate.Job, 0, len(reports))
	for _, report := range reports {
		jobs = append(jobs, symbolicate.Job{Input: report, Output: OutputPath(report)})
	}
	return jobs, nil
}

// OutputFile returns where the report is written in single report mode
func (o *Options) OutputFile() string {
	if o.Output == "" {
		return DefaultOutput
	}
	return o.Output
}

// OutputPath returns where the symbolicated copy of report is written in multi-report mode
func OutputPath(report string) string {
	return report + OutputSuffix
}

// IsReport reports whether path looks like a crash report that has not been symbolicated yet
func IsReport(path string) bool {
	return utils.HasAnySuffix(path, ReportExtensions...) && !strings.HasSuffix(path, OutputSuffix)
}

// FindReports walks dir for crash reports (sorted, absolute paths)
func FindReports(dir string) ([]string, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path of %s: %w", dir, err)
	}

	var reports []string
	if err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && IsReport(path) {
			reports = append(reports, path)
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to find crash reports in %s: %w", dir, err)
	}

	slices.Sort(reports)

	return reports, nil
}

func isFolder(path, name string) bool {
	return filepath.Base(filepath.Clean(path)) == name
}
