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
	"time"

	"github.com/apex/log"
	symcmd "github.com/blacktop/symbolicator/internal/commands/symbolicate"
	"github.com/blacktop/symbolicator/internal/config"
	"github.com/blacktop/symbolicator/internal/xcrun"
	"github.com/briandowns/spinner"
	"github.com/caarlos0/ctrlc"
	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(symbolicateCmd)

	symbolicateCmd.Flags().StringP("output", "o", "", "Output file (.txt or .crash) (default \"symbolicated.crash\")")
	symbolicateCmd.Flags().StringP("multi", "m", "", "Symbolicate every crash report in folder (writes <report>-symbolicated.crash)")
	symbolicateCmd.Flags().String("symbol-maps", "", "BCSymbolMaps folder (use with --dsyms instead of an archive)")
	symbolicateCmd.Flags().String("dsyms", "", "dSYMs folder (use with --symbol-maps instead of an archive)")
	symbolicateCmd.Flags().IntP("parallel", "j", 1, "Number of crash reports to symbolicate at once")
	symbolicateCmd.Flags().Bool("keep-going", false, "Keep unresolvable frames as-is instead of failing")
	symbolicateCmd.MarkFlagDirname("multi")
	symbolicateCmd.MarkFlagDirname("symbol-maps")
	symbolicateCmd.MarkFlagDirname("dsyms")
	viper.BindPFlag("symbolicate.output", symbolicateCmd.Flags().Lookup("output"))
	viper.BindPFlag("symbolicate.multi", symbolicateCmd.Flags().Lookup("multi"))
	viper.BindPFlag("symbolicate.symbol-maps", symbolicateCmd.Flags().Lookup("symbol-maps"))
	viper.BindPFlag("symbolicate.dsyms", symbolicateCmd.Flags().Lookup("dsyms"))
	viper.BindPFlag("symbolicate.parallel", symbolicateCmd.Flags().Lookup("parallel"))
	viper.BindPFlag("symbolicate.keep-going", symbolicateCmd.Flags().Lookup("keep-going"))
}

// symbolicateCmd represents the symbolicate command
var symbolicateCmd = &cobra.Command{
	Use:   "symbolicate <ARCHIVE.xcarchive> <REPORT>",
	Short: "Symbolicate a bitcode obfuscated crash report with its Xcode archive",
	Example: `  # symbolicate a crash report (writes symbolicated.crash)
  ❯ symbolicator symbolicate MyApp.xcarchive MyApp-2020-12-09.crash

  # symbolicate every crash report in a folder
  ❯ symbolicator symbolicate MyApp.xcarchive --multi ./reports -j 4

  # use BCSymbolMaps and dSYMs folders directly
  ❯ symbolicator symbolicate --symbol-maps ./BCSymbolMaps --dsyms ./dSYMs MyApp.crash`,
	Args: cobra.RangeArgs(0, 2),
	RunE: func(cmd *cobra.Command, args []string) error {

		if Verbose {
			log.SetLevel(log.DebugLevel)
		}

		conf, err := config.LoadConfig()
		if err != nil {
			return errors.Wrap(err, "failed to load config")
		}

		opts := &symcmd.Options{
			Output:     viper.GetString("symbolicate.output"),
			MultiDir:   viper.GetString("symbolicate.multi"),
			SymbolMaps: viper.GetString("symbolicate.symbol-maps"),
			DSYMs:      viper.GetString("symbolicate.dsyms"),
			Parallel:   conf.Symbolicate.Parallel,
			KeepGoing:  conf.Symbolicate.KeepGoing,
			Timeout:    conf.Tools.Timeout,
			Dsymutil:   xcrun.ParseTool(conf.Tools.Dsymutil),
			Atos:       xcrun.ParseTool(conf.Tools.Atos),
		}
		if err := opts.Validate(args); err != nil {
			return err
		}
		if err := opts.Preflight(); err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var s *spinner.Spinner
		if opts.MultiDir == "" && !Verbose {
			s = spinner.New(spinner.CharSets[38], 100*time.Millisecond)
			s.Prefix = color.BlueString("   • Symbolicating... ")
			s.Start()
			opts.Quiet = true
		}

		err = ctrlc.Default.Run(ctx, func() error {
			return symcmd.Run(ctx, opts, opts.Tools())
		})
		if s != nil {
			s.Stop()
		}
		if err != nil {
			if errors.As(err, &ctrlc.ErrorCtrlC{}) {
				log.Warn("Exiting...")
				return nil
			}
			return err
		}

		if opts.Quiet {
			log.WithField("output", opts.OutputFile()).Info("Symbolicated crash report saved")
		}
		log.Info("🎉 Done!")

		return nil
	},
}
