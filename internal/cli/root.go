// Package cli implements exoctl, the offline command-line tool for the
// observation collection. Every command works on a file store.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/exotransit/internal/analysis"
	"github.com/JonMunkholm/exotransit/internal/config"
	"github.com/JonMunkholm/exotransit/internal/core"
	"github.com/JonMunkholm/exotransit/internal/logging"
	"github.com/JonMunkholm/exotransit/internal/store"
)

// SourceCLI tags imports made with exoctl.
const SourceCLI = "cli"

// Options holds the global flags.
type Options struct {
	StorePath   string
	LogLevel    string
	MaxFileSize int64

	Analysis config.AnalysisConfig
}

// DefaultOptions reads flag defaults from the environment (STORAGE_FILE,
// IMPORT_MAX_FILE_SIZE, ANALYSIS_*).
func DefaultOptions() (Options, error) {
	var (
		storage config.StorageConfig
		imp     config.ImportConfig
		an      config.AnalysisConfig
	)
	for _, section := range []any{&storage, &imp, &an} {
		if err := config.LoadSection(section); err != nil {
			return Options{}, err
		}
	}
	return Options{
		StorePath:   storage.FilePath,
		LogLevel:    "warn",
		MaxFileSize: imp.MaxFileSize,
		Analysis:    an,
	}, nil
}

// app is the state shared by the commands of one invocation.
type app struct {
	opts   Options
	out    io.Writer
	logger *slog.Logger
}

// NewRootCommand builds the exoctl command tree. Command output goes to
// out; logs go to errOut.
func NewRootCommand(opts Options, out, errOut io.Writer) *cobra.Command {
	a := &app{opts: opts, out: out}

	root := &cobra.Command{
		Use:           "exoctl",
		Short:         "Manage exoplanet transit observations",
		Long:          "exoctl imports, exports, validates and classifies exoplanet transit observations stored in a JSON file.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.logger = logging.New(errOut, a.opts.LogLevel, "text")
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVar(&a.opts.StorePath, "store", opts.StorePath, "Path to the observation store (JSON file)")
	root.PersistentFlags().StringVar(&a.opts.LogLevel, "log-level", opts.LogLevel, "Log level: debug, info, warn, error")

	root.AddCommand(
		a.importCommand(),
		a.exportCommand(),
		a.validateCommand(),
		a.analyzeCommand(),
		a.resetCommand(),
	)
	return root
}

// openService loads the collection from the file store.
func (a *app) openService(ctx context.Context) (*core.Service, error) {
	if a.opts.StorePath == "" {
		return nil, fmt.Errorf("--store is required")
	}

	svc := core.NewService(core.ServiceOptions{
		Store:       store.NewFileStore(a.opts.StorePath),
		Logger:      a.logger,
		MaxFileSize: a.opts.MaxFileSize,
	})
	svc.Load(ctx)
	return svc, nil
}

// analyzer returns a remote client when an endpoint is set, otherwise the
// local rule engine.
func (a *app) analyzer() (analysis.Analyzer, error) {
	return analysis.New(a.opts.Analysis, nil, a.logger)
}

func (a *app) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(a.out, format, args...)
}
