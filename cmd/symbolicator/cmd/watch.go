/*
Copyright © 2018-2023 blacktop

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/apex/log"
	symcmd "github.com/blacktop/symbolicator/internal/commands/symbolicate"
	"github.com/blacktop/symbolicator/internal/commands/watch"
	"github.com/blacktop/symbolicator/internal/config"
	"github.com/blacktop/symbolicator/internal/xcrun"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().String("symbol-maps", "", "BCSymbolMaps folder (use with --dsyms instead of an archive)")
	watchCmd.Flags().String("dsyms", "", "dSYMs folder (use with --symbol-maps instead of an archive)")
	watchCmd.Flags().Bool("keep-going", false, "Keep unresolvable frames as-is instead of failing")
	watchCmd.Flags().Duration("settle", 0, "Wait for a report to stop changing before symbolicating it (default 500ms)")
	watchCmd.Flags().Int("cache-size", 0, "Number of symbolicated reports to remember (default 1024)")
	watchCmd.Flags().String("cache", "", "Remember symbolicated reports in JSON file (survives restarts)")
	watchCmd.Flags().StringP("exec", "e", "", "Run command after each report ($SYMBOLICATOR_REPORT, $SYMBOLICATOR_OUTPUT)")
	watchCmd.MarkFlagDirname("symbol-maps")
	watchCmd.MarkFlagDirname("dsyms")
	viper.BindPFlag("watch.symbol-maps", watchCmd.Flags().Lookup("symbol-maps"))
	viper.BindPFlag("watch.dsyms", watchCmd.Flags().Lookup("dsyms"))
	viper.BindPFlag("watch.keep-going", watchCmd.Flags().Lookup("keep-going"))
	viper.BindPFlag("watch.settle", watchCmd.Flags().Lookup("settle"))
	viper.BindPFlag("watch.cache-size", watchCmd.Flags().Lookup("cache-size"))
	viper.BindPFlag("watch.cache", watchCmd.Flags().Lookup("cache"))
	viper.BindPFlag("watch.exec", watchCmd.Flags().Lookup("exec"))
}

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch <ARCHIVE.xcarchive> <DIR>",
	Short: "Symbolicate crash reports as they are added to a folder",
	Example: `  # symbolicate every crash report dropped into ./reports
  ❯ symbolicator watch MyApp.xcarchive ./reports

  # open each symbolicated report
  ❯ symbolicator watch MyApp.xcarchive ./reports --exec 'open "$SYMBOLICATOR_OUTPUT"'`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {

		if Verbose {
			log.SetLevel(log.DebugLevel)
		}

		conf, err := config.LoadConfig()
		if err != nil {
			return errors.Wrap(err, "failed to load config")
		}

		opts := &symcmd.Options{
			MultiDir:   args[len(args)-1],
			SymbolMaps: viper.GetString("watch.symbol-maps"),
			DSYMs:      viper.GetString("watch.dsyms"),
			KeepGoing:  conf.Symbolicate.KeepGoing || viper.GetBool("watch.keep-going"),
			Timeout:    conf.Tools.Timeout,
			Dsymutil:   xcrun.ParseTool(conf.Tools.Dsymutil),
			Atos:       xcrun.ParseTool(conf.Tools.Atos),
		}
		if err := opts.Validate(args[:len(args)-1]); err != nil {
			return err
		}
		if err := opts.Preflight(); err != nil {
			return err
		}

		var cache watch.SeenCache
		if conf.Watch.Cache != "" {
			cache, err = watch.NewFileCache(conf.Watch.Cache)
		} else {
			cache, err = watch.NewMemoryCache(conf.Watch.CacheSize)
		}
		if err != nil {
			return errors.Wrap(err, "failed to create watch cache")
		}

		sym := opts.Symbolicator(opts.Tools())

		w := &watch.Watcher{
			Dir:    opts.MultiDir,
			Match:  symcmd.IsReport,
			Cache:  cache,
			Settle: conf.Watch.Settle,
			OnError: func(report string, err error) {
				log.WithField("report", report).Error(err.Error())
				explain(err)
			},
			Handler: func(ctx context.Context, report string) error {
				output := symcmd.OutputPath(report)
				if err := sym.SymbolicateFile(ctx, report, output); err != nil {
					return err
				}
				if conf.Watch.Exec != "" {
					return watch.RunCommand(ctx, conf.Watch.Exec, report, output)
				}
				return nil
			},
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := w.Watch(ctx); err != nil {
			return errors.Wrapf(err, "failed to watch %s", opts.MultiDir)
		}

		log.Warn("Exiting...")

		return nil
	},
}
