package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/seedtray/globtail"
)

// stderrLogger reports watcher events on stderr. Discovery chatter is only
// shown with --verbose; session errors always are.
type stderrLogger struct {
	verbose bool
}

func (l stderrLogger) Debugf(format string, args ...interface{}) {
	if l.verbose {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

func (l stderrLogger) Errorf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}

func newRootCmd() *cobra.Command {
	var (
		noFilename bool
		interval   float64
		excludes   []string
		verbose    bool
	)
	cmd := &cobra.Command{
		Use:   "globtail [flags] PATTERN...",
		Short: "Follow every file matching one or more glob patterns",
		Long: `globtail follows each file matching the given glob patterns, like tail -f,
and keeps rescanning the patterns so files that appear later are picked up
and files that disappear are dropped.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			rules := make([]*globtail.ExcludeRule, 0, len(excludes))
			for _, x := range excludes {
				rules = append(rules, globtail.CompileExclude(x))
			}
			w, err := globtail.NewWatcher(afero.NewOsFs(), globtail.Config{
				Patterns:     args,
				Interval:     time.Duration(interval * float64(time.Second)),
				Excludes:     rules,
				MaxLineBytes: 1 << 20,
				Logger:       stderrLogger{verbose: verbose},
			})
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			go w.Run(ctx)
			printer := &globtail.Printer{Out: os.Stdout, NoFilename: noFilename}
			for line := range w.Lines() {
				printer.Print(line)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&noFilename, "no-filename", "n", false, "do not prefix lines with the file they came from")
	cmd.Flags().Float64VarP(&interval, "check-interval", "i", 5, "seconds between glob rescans")
	cmd.Flags().StringArrayVarP(&excludes, "exclude", "x", nil, "wildcard pattern of paths to skip (repeatable)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "report discovery events on stderr")
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
