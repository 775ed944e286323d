package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/idelchi/linkstat/internal/dirstat"
)

// Usage is the one-line synopsis printed after usage errors.
const Usage = "Usage: linkstat [-r] [<directory>]"

// EnvPrefix is the prefix of environment variables overriding flags.
const EnvPrefix = "LINKSTAT"

// UsageError reports a malformed invocation.
type UsageError struct {
	// Reason describes what was wrong.
	Reason string
	// Err is the underlying parse error, if any.
	Err error
}

func (e *UsageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}

	return e.Reason
}

func (e *UsageError) Unwrap() error {
	return e.Err
}

// CLI represents the command-line interface.
type CLI struct {
	version string
}

// New creates a new CLI instance with the given version.
func New(version string) CLI {
	return CLI{version: version}
}

// Execute runs the CLI with the process arguments. Interrupts cancel the walk.
func (c CLI) Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return c.Command().ExecuteContext(ctx)
}

// Command builds the root command.
func (c CLI) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "linkstat [-r] [<directory>]",
		Short: "Directory statistics with hard-link aware totals",
		Long: heredoc.Doc(`
			linkstat reports, for a directory, the number of regular files and
			immediate subdirectories and the space they use. With -r every
			subdirectory is reported as well.

			The final totals count each file once, however many hard links to it
			were found, and report the files that have hard links outside the
			scanned tree.

			Symbolic links, devices, fifos and sockets are ignored.

			Every flag can also be set through the environment (e.g. LINKSTAT_RECURSIVE=true)
			or a config file (--config, or linkstat.yaml in ~/.config/linkstat or the
			current directory).
		`),
		Version:       c.version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			switch {
			case len(args) > 2:
				return &UsageError{Reason: "incorrect number of parameters"}
			case len(args) == 2:
				return &UsageError{Reason: "incorrect parameters", Err: fmt.Errorf("unexpected argument %q", args[1])}
			}

			if n, _ := cmd.Flags().GetCount("recursive"); n > 1 {
				return &UsageError{Reason: "incorrect parameters", Err: errors.New("-r given more than once")}
			}

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			options, err := configure(cmd, args)
			if err != nil {
				return err
			}

			return logic(cmd, options)
		},
	}

	flags := cmd.Flags()
	flags.CountP("recursive", "r", "Report every subdirectory recursively")
	flags.StringP("output", "o", "table", "Output format: json or table")
	flags.BoolP("human", "H", false, "Print sizes in human-readable form")
	flags.BoolP("parallel", "p", false, "Walk subdirectories in parallel (with -r)")
	flags.IntP("workers", "w", 0, "Number of parallel walkers (0 = default)")
	flags.Duration("progress-interval", dirstat.DefaultProgressInterval, "Interval between progress updates")
	flags.Bool("debug", false, "Enable debug output")
	flags.String("config", "", "Config file (default linkstat.yaml in ~/.config/linkstat or .)")
	flags.SortFlags = false
	// Flags must precede the directory.
	flags.SetInterspersed(false)

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &UsageError{Reason: "incorrect parameters", Err: err}
	})

	return cmd
}

// configure resolves flags, environment and config file into options.
// Precedence: flag, environment, config file, default.
func configure(cmd *cobra.Command, args []string) (dirstat.Options, error) {
	var options dirstat.Options

	allowedOutputs := []string{"table", "json"}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return options, fmt.Errorf("binding flags: %w", err)
	}

	if err := readConfig(v); err != nil {
		return options, err
	}

	options.Recursive = v.GetBool("recursive")
	options.Output = strings.ToLower(v.GetString("output"))
	options.Human = v.GetBool("human")
	options.Parallel = v.GetBool("parallel")
	options.Workers = v.GetInt("workers")
	options.ProgressInterval = v.GetDuration("progress-interval")
	options.Debug = v.GetBool("debug")

	if !slices.Contains(allowedOutputs, options.Output) {
		return options, fmt.Errorf("invalid output format %q: must be one of %v", options.Output, allowedOutputs)
	}

	if options.Workers < 0 {
		return options, errors.New("workers cannot be negative")
	}

	if len(args) == 0 {
		options.Path = "."
	} else {
		options.Path = args[0]
	}

	return options, nil
}

// readConfig loads the explicit config file, or the first linkstat.yaml found
// in the default locations. A missing default file is not an error.
func readConfig(v *viper.Viper) error {
	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)

		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config %q: %w", file, err)
		}

		return nil
	}

	v.SetConfigName("linkstat")
	v.SetConfigType("yaml")

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "linkstat"))
	}

	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}

	return nil
}
