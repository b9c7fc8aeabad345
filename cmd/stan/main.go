package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/stan/internal/config"
	"github.com/vango-dev/stan/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd, c := newCLI()
	if err := rootCmd.Execute(); err != nil {
		c.report(os.Stderr, err)
		os.Exit(1)
	}
}

// cli holds the state shared by the commands.
type cli struct {
	configPath  string
	logLevel    string
	errorFormat string
	noColor     bool

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	rootCmd, _ := newCLI()
	return rootCmd
}

func newCLI() (*cobra.Command, *cli) {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:   "stan",
		Short: "Inspect and exercise stan field storage",
		Long: `stan reads and writes the values that synchronized store fields keep
in a backend (a directory of files, a SQLite database or an S3 bucket),
and runs a demo store against it.

The backend is configured in stan.toml or stan.json, looked up from the
working directory upwards. Without one, values live in ./.stan as JSON.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "Configuration file (default: nearest stan.toml or stan.json)")
	rootCmd.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&c.errorFormat, "error-format", "text", "Error output: text, compact or json")
	rootCmd.PersistentFlags().BoolVar(&c.noColor, "no-color", false, "Disable colored error output (also NO_COLOR)")

	rootCmd.AddCommand(
		initCmd(),
		getCmd(c),
		setCmd(c),
		listCmd(c),
		deleteCmd(c),
		demoCmd(c),
		versionCmd(),
	)

	return rootCmd, c
}

// report writes a failed command's error to w.
func (c *cli) report(w io.Writer, err error) {
	if c.noColor || os.Getenv("NO_COLOR") != "" {
		errors.DisableColors()
	}
	var se *errors.StoreError
	if !errors.As(err, &se) {
		errors.Fprint(w, err)
		return
	}
	switch c.errorFormat {
	case "json":
		fmt.Fprintln(w, se.FormatJSON())
	case "compact":
		fmt.Fprintln(w, se.FormatCompact())
	default:
		fmt.Fprint(w, se.Format())
	}
}

// load resolves the configuration and builds the logger.
func (c *cli) load(cmd *cobra.Command) error {
	cfg, err := c.findConfig()
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	c.cfg = cfg
	c.logger = newLogger(cmd.ErrOrStderr(), cfg)
	c.logger.Debug("configuration loaded", "path", cfg.Path(), "backend", cfg.Backend)
	return nil
}

func (c *cli) findConfig() (*config.Config, error) {
	if c.configPath != "" {
		return config.LoadFile(c.configPath)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	root, err := config.FindRoot(wd)
	if err != nil {
		return config.New(), nil
	}
	return config.Load(root)
}

func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel()}
	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}
