package symbolicate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/blacktop/symbolicator/internal/xcrun"
	"github.com/blacktop/symbolicator/pkg/crashlog"
	"github.com/blacktop/symbolicator/pkg/symbolicate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		opts       Options
		args       []string
		wantErr    bool
		wantArch   string
		wantReport string
	}{
		{
			name:       "archive and report",
			args:       []string{"Archive.xcarchive", "CrashReport.txt"},
			wantArch:   "Archive.xcarchive",
			wantReport: "CrashReport.txt",
		},
		{
			name:       "crash extension",
			args:       []string{"Archive.xcarchive", "CrashReport.crash"},
			wantArch:   "Archive.xcarchive",
			wantReport: "CrashReport.crash",
		},
		{
			name:     "multi",
			opts:     Options{MultiDir: "Directory"},
			args:     []string{"Archive.xcarchive"},
			wantArch: "Archive.xcarchive",
		},
		{
			name:       "output",
			opts:       Options{Output: "Output.txt"},
			args:       []string{"Archive.xcarchive", "CrashReport.txt"},
			wantArch:   "Archive.xcarchive",
			wantReport: "CrashReport.txt",
		},
		{
			name:    "output incorrect extension",
			opts:    Options{Output: "Output.docx"},
			args:    []string{"Archive.xcarchive", "CrashReport.txt"},
			wantErr: true,
		},
		{
			name:       "no archive",
			opts:       Options{SymbolMaps: "./BCSymbolMaps/", DSYMs: "./dSYMs/"},
			args:       []string{"CrashReport.txt"},
			wantReport: "CrashReport.txt",
		},
		{
			name:       "no archive without trailing slash",
			opts:       Options{SymbolMaps: "/tmp/BCSymbolMaps", DSYMs: "/tmp/dSYMs"},
			args:       []string{"CrashReport.crash"},
			wantReport: "CrashReport.crash",
		},
		{
			name:    "no archive missing dSYMs",
			opts:    Options{SymbolMaps: "./BCSymbolMaps/"},
			args:    []string{"CrashReport.txt"},
			wantErr: true,
		},
		{
			name:    "no archive invalid symbol maps folder",
			opts:    Options{SymbolMaps: "./NotBCSymbolMaps/", DSYMs: "./dSYMs/"},
			args:    []string{"CrashReport.txt"},
			wantErr: true,
		},
		{
			name:    "no archive invalid dSYMs folder",
			opts:    Options{SymbolMaps: "./BCSymbolMaps/", DSYMs: "./NotdSYMs/"},
			args:    []string{"CrashReport.txt"},
			wantErr: true,
		},
		{
			name:    "no archive swapped folders",
			opts:    Options{SymbolMaps: "./dSYMs/", DSYMs: "./BCSymbolMaps/"},
			args:    []string{"CrashReport.txt"},
			wantErr: true,
		},
		{
			name:    "no archive too many arguments",
			opts:    Options{SymbolMaps: "./BCSymbolMaps/", DSYMs: "./dSYMs/"},
			args:    []string{"CrashReport.txt", "Argument"},
			wantErr: true,
		},
		{
			name:    "no archive incorrect report extension",
			opts:    Options{SymbolMaps: "./BCSymbolMaps/", DSYMs: "./dSYMs/"},
			args:    []string{"CrashReport.docx"},
			wantErr: true,
		},
		{
			name: "multi no archive",
			opts: Options{MultiDir: "Directory", SymbolMaps: "./BCSymbolMaps/", DSYMs: "./dSYMs/"},
		},
		{
			name:    "multi no archive with archive",
			opts:    Options{MultiDir: "Directory", SymbolMaps: "./BCSymbolMaps/", DSYMs: "./dSYMs/"},
			args:    []string{"Archive.xcarchive"},
			wantErr: true,
		},
		{
			name:    "multi too many arguments",
			opts:    Options{MultiDir: "Directory1"},
			args:    []string{"Archive.xcarchive", "Directory2"},
			wantErr: true,
		},
		{
			name:    "multi incorrect archive",
			opts:    Options{MultiDir: "Directory"},
			args:    []string{"Archive"},
			wantErr: true,
		},
		{
			name:    "not enough arguments",
			wantErr: true,
		},
		{
			name:    "incorrect archive type",
			args:    []string{"Archive", "CrashReport.txt"},
			wantErr: true,
		},
		{
			name:    "archive trailing slash",
			args:    []string{"Archive.xcarchive/", "CrashReport.txt"},
			wantErr: true,
		},
		{
			name:    "incorrect report type",
			args:    []string{"Archive.xcarchive", "CrashReport.docx"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := tt.opts
			err := o.Validate(tt.args)
			if tt.wantErr {
				var iae *InvalidArgumentsError
				require.ErrorAs(t, err, &iae)
				assert.NotEmpty(t, iae.Hints)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantArch, o.Archive)
			assert.Equal(t, tt.wantReport, o.Report)
			assert.Equal(t, 1, o.Parallel)
		})
	}
}

func TestSymbolArchive(t *testing.T) {
	o := Options{Archive: "Archive.xcarchive"}
	assert.Equal(t, symbolicate.Archive{
		BCSymbolMaps: filepath.Join("Archive.xcarchive", "BCSymbolMaps"),
		DSYMs:        filepath.Join("Archive.xcarchive", "dSYMs"),
	}, o.SymbolArchive())

	o = Options{SymbolMaps: "/tmp/BCSymbolMaps", DSYMs: "/tmp/dSYMs"}
	assert.Equal(t, symbolicate.Archive{BCSymbolMaps: "/tmp/BCSymbolMaps", DSYMs: "/tmp/dSYMs"}, o.SymbolArchive())
}

func TestJobsSingle(t *testing.T) {
	o := Options{Report: "CrashReport.txt"}
	jobs, err := o.Jobs()
	require.NoError(t, err)
	assert.Equal(t, []symbolicate.Job{{Input: "CrashReport.txt", Output: DefaultOutput}}, jobs)

	o.Output = "Output.crash"
	jobs, err = o.Jobs()
	require.NoError(t, err)
	assert.Equal(t, "Output.crash", jobs[0].Output)
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestFindReports(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"b.crash":                    "",
		"a.txt":                      "",
		"nested/c.crash":             "",
		"notes.md":                   "",
		"a.txt-symbolicated.crash":   "",
		"nested/c.crash.docx":        "",
		"nested/deeper/d.crash":      "",
		"nested/deeper/d.crash.orig": "",
	})

	reports, err := FindReports(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.txt"),
		filepath.Join(dir, "b.crash"),
		filepath.Join(dir, "nested", "c.crash"),
		filepath.Join(dir, "nested", "deeper", "d.crash"),
	}, reports)

	_, err = FindReports(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, "/reports/a.txt-symbolicated.crash", OutputPath("/reports/a.txt"))
	assert.True(t, IsReport("/reports/a.txt"))
	assert.False(t, IsReport(OutputPath("/reports/a.txt")))
}

func TestPolicy(t *testing.T) {
	assert.Equal(t, symbolicate.FailFast, (&Options{}).Policy())
	assert.Equal(t, symbolicate.KeepGoing, (&Options{KeepGoing: true}).Policy())
}

func TestPreflightMissingArchive(t *testing.T) {
	o := Options{Archive: filepath.Join(t.TempDir(), "Missing.xcarchive")}
	var iae *InvalidArgumentsError
	assert.ErrorAs(t, o.Preflight(), &iae)
}

const testReport = `Thread 0 Crashed:
0   MyApplication   0x00000001005a2628 _hidden#46492_ (__hidden#57813_:605)
1   UIKitCore       0x00000001ba77e22c UIApplicationMain + 1928

Binary Images:
0x0000000100284000 - 0x0000000100763fff +MyApplication arm64  <219132bbc2d03cc9aabdd0df0ed9ab2d> /var/containers/Bundle/Application/6DDD326C/MyApplication.app/MyApplication
0x00000001ba000000 - 0x00000001bb3fffff UIKitCore arm64  <a1b2c3d4e5f60718293a4b5c6d7e8f90> /System/Library/PrivateFrameworks/UIKitCore.framework/UIKitCore`

type stubDsymutil struct{ out string }

func (s stubDsymutil) Deobfuscate(ctx context.Context, symbolMaps, dsym string) (string, error) {
	return s.out, nil
}

type stubAtos struct{ out string }

func (s stubAtos) Resolve(ctx context.Context, req symbolicate.AddressRequest) (string, error) {
	return s.out, nil
}

func TestRunMulti(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"first.crash":       testReport,
		"nested/second.txt": testReport,
	})

	o := Options{MultiDir: dir, SymbolMaps: "/archive/BCSymbolMaps", DSYMs: "/archive/dSYMs"}
	require.NoError(t, o.Validate(nil))

	tools := symbolicate.Tools{
		Deobfuscator:    stubDsymutil{},
		AddressResolver: stubAtos{out: "main (in MyApplication) (AppDelegate.swift:605)\n"},
	}
	require.NoError(t, Run(context.Background(), &o, tools))

	for _, report := range []string{"first.crash", filepath.Join("nested", "second.txt")} {
		data, err := os.ReadFile(OutputPath(filepath.Join(dir, report)))
		require.NoError(t, err)
		out := string(data)
		assert.Contains(t, out, "0x00000001005a2628 main (in MyApplication) (AppDelegate.swift:605)")
		assert.Contains(t, out, "UIApplicationMain + 1928")
		assert.NotContains(t, out, "hidden#")
	}
}

func TestRunNoReports(t *testing.T) {
	o := Options{MultiDir: t.TempDir(), SymbolMaps: "/archive/BCSymbolMaps", DSYMs: "/archive/dSYMs"}
	require.NoError(t, o.Validate(nil))
	assert.NoError(t, Run(context.Background(), &o, symbolicate.Tools{}))
}

func TestRunNotFound(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"report.crash": testReport})

	out := filepath.Join(dir, "out.crash")
	o := Options{
		Report:     filepath.Join(dir, "report.crash"),
		Output:     out,
		SymbolMaps: "/archive/BCSymbolMaps",
		DSYMs:      "/archive/dSYMs",
	}

	tools := symbolicate.Tools{
		Deobfuscator:    stubDsymutil{out: "error: cannot parse: No such file or directory"},
		AddressResolver: stubAtos{},
	}
	err := Run(context.Background(), &o, tools)
	require.Error(t, err)
	assert.ErrorIs(t, err, symbolicate.ErrNotFound)
	assert.True(t, strings.HasPrefix(err.Error(), "symbolication failed"))

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestHints(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid arguments", invalid("a", "b"), 2},
		{"format", &crashlog.FormatError{Reason: "missing Binary Images section"}, 1},
		{"not found", fmt.Errorf("wrapped: %w", &symbolicate.ResolutionError{Kind: symbolicate.NotFound, Module: "MyApplication"}), 2},
		{"tool failure", &symbolicate.ResolutionError{Kind: symbolicate.ToolFailure, Module: "MyApplication"}, 1},
		{"timeout", &symbolicate.ResolutionError{Kind: symbolicate.ToolFailure, Module: "MyApplication", Err: &xcrun.Error{Cmd: "xcrun atos", Err: context.DeadlineExceeded}}, 2},
		{"other", fmt.Errorf("disk full"), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, Hints(tt.err), tt.want)
		})
	}
}
