package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/idelchi/linkstat/internal/dirstat"
)

// newLogger returns the logger used as error channel. LOG_LEVEL overrides the level.
func newLogger(w io.Writer, debug bool) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	log.SetLevel(logrus.InfoLevel)

	if debug {
		log.SetLevel(logrus.DebugLevel)
	}

	if level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		log.SetLevel(level)
	}

	return log
}

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)

	return ok && isatty.IsTerminal(f.Fd())
}

func logic(cmd *cobra.Command, options dirstat.Options) error {
	stdout := cmd.OutOrStdout()
	stderr := cmd.ErrOrStderr()

	options.Log = newLogger(stderr, options.Debug)

	enableProgress := options.Output != "json" &&
		!options.Debug &&
		isTerminal(stderr)

	// Simple progress callback that prints directly to stderr
	var progressHook func(dirs, links int64)

	if enableProgress {
		// Hide cursor for in-place updates; restore on exit.
		fmt.Fprint(stderr, "\033[?25l")
		defer fmt.Fprint(stderr, "\033[?25h")

		progressHook = func(dirs, links int64) {
			msg := fmt.Sprintf("Scanning… %s directories, %s file links",
				humanize.Comma(dirs), humanize.Comma(links))
			fmt.Fprintf(stderr, "\r\033[2K%s\r", msg)
		}
	}

	result, err := dirstat.Run(cmd.Context(), options, progressHook)

	// Clear the status line
	if enableProgress {
		fmt.Fprint(stderr, "\r\033[2K\r")
	}

	if err != nil {
		return err
	}

	switch options.Output {
	case "json":
		return PrintJSON(result, stdout)
	case "table":
		return PrintTable(result, stdout, options.Human)
	default:
		return fmt.Errorf("unknown output format: %s", options.Output)
	}
}
