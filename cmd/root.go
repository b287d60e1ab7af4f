// Package cmd implements the evpop command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zalepa/evpop/config"
	"github.com/zalepa/evpop/record"
)

// app carries what every subcommand needs after flags and config are read.
type app struct {
	cfgFile   string
	dataPath  string
	logLevel  string
	logFormat string

	cfg    *config.Config
	logger *slog.Logger
}

// Execute is the entry point called by main.main().
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "evpop",
		Short: "Explore the electric vehicle population dataset",
		Long: `evpop loads the Washington State electric vehicle population CSV and
summarises it as KPIs, rankings, a filterable grid, a PDF report or an
interactive web dashboard.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}
	f := root.PersistentFlags()
	f.StringVar(&a.cfgFile, "config", "", "config file (default is ~/.evpop/config.yaml)")
	f.StringVar(&a.dataPath, "data", "", "dataset path or http(s) URL (overrides config)")
	f.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error (overrides config)")
	f.StringVar(&a.logFormat, "log-format", "", "text or json (overrides config)")

	root.AddCommand(
		newSummaryCmd(a),
		newGridCmd(a),
		newReportCmd(a),
		newWebCmd(a),
		newDownloadCmd(a),
		newConfigCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	c, err := config.Load(a.cfgFile)
	if err != nil && errors.Is(err, fs.ErrNotExist) && cmd.Annotations["config"] == "create" {
		// config init may name a file that does not exist yet.
		c, err = config.Load("")
	}
	if err != nil {
		return err
	}
	f := cmd.Flags()
	if f.Changed("data") {
		c.DataPath = a.dataPath
	}
	if f.Changed("log-level") {
		c.LogLevel = a.logLevel
	}
	if f.Changed("log-format") {
		c.LogFormat = a.logFormat
	}
	a.cfg = c
	a.logger = newLogger(cmd.ErrOrStderr(), c.LogLevel, c.LogFormat)
	slog.SetDefault(a.logger)
	return nil
}

// newLogger builds the process logger. Logs go to stderr so stdout stays
// clean for command output.
func newLogger(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(level)}
	var h slog.Handler
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (a *app) loader() record.Loader {
	return record.Loader{
		Client: &http.Client{Timeout: a.cfg.HTTPTimeout()},
		Logger: a.logger.With("component", "loader"),
	}
}

// loadDataset reads the configured dataset.
func (a *app) loadDataset(ctx context.Context) (*record.Dataset, error) {
	return a.loader().Load(ctx, a.cfg.DataPath)
}
