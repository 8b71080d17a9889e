package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/officeloom/internal/config"
	"github.com/KaramelBytes/officeloom/internal/jobs"
	"github.com/KaramelBytes/officeloom/internal/logging"
	"github.com/KaramelBytes/officeloom/internal/metrics"
	"github.com/KaramelBytes/officeloom/internal/pipeline"
	"github.com/KaramelBytes/officeloom/internal/sysprobe"
	"github.com/KaramelBytes/officeloom/internal/telemetry"
)

// version is stamped at build time via -ldflags.
var version = "dev"

var (
	// Global flags
	cfgFile     string
	debug       bool
	metricsFile string
	traceSpans  bool
	noHistory   bool
	outFormat   string

	// Loaded configuration
	cfg      *cfgpkg.Global
	logger   = logging.Discard()
	recorder *metrics.Recorder
)

var rootCmd = &cobra.Command{
	Use:   "officeloom",
	Short: "officeloom: turn spreadsheets into analysis workbooks and documents into slide decks",
	Long: `officeloom ingests CSV/XLS/XLSX datasets and TXT/MD/DOCX/PDF documents.
Datasets become a cleaned, profiled XLSX workbook with charts; documents become
a PPTX deck of keywords and key points; task lists become a task dashboard.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.officeloom/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "write prometheus textfile metrics to this path on exit")
	rootCmd.PersistentFlags().BoolVar(&traceSpans, "trace", false, "print pipeline trace spans to stderr")
	rootCmd.PersistentFlags().BoolVar(&noHistory, "no-history", false, "do not record runs in the job history")
	rootCmd.PersistentFlags().StringVar(&outFormat, "format", "json", "summary output format: json|markdown")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to defaults so read-only commands still work
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = cfgpkg.Defaults()
	}
	cfg = c
	level := cfg.LogLevel
	if debug {
		level = "debug"
	}
	logger = logging.New(logging.Config{Level: level, Format: cfg.LogFormat, Output: os.Stderr})
	recorder = metrics.New()
}

// currentConfig returns the loaded config, or defaults when loading never ran.
func currentConfig() *cfgpkg.Global {
	if cfg == nil {
		return cfgpkg.Defaults()
	}
	return cfg
}

func newProber() *sysprobe.Prober {
	c := currentConfig()
	return sysprobe.Init(sysprobe.Config{CPUTarget: c.CPUTarget, EmbedModel: c.EmbedModel})
}

func newPipeline() *pipeline.Pipeline {
	c := currentConfig()
	return pipeline.New(pipeline.Options{
		Config:   c,
		Logger:   logger,
		Prober:   newProber(),
		Embedder: pipeline.EmbedderFromConfig(c, logger),
		Metrics:  recorder,
	})
}

// instrumented wraps a RunE so tracing is installed for the command and
// metrics are flushed even when the command fails.
func instrumented(run func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		if traceSpans {
			shutdown, terr := telemetry.Setup(telemetry.Config{Output: cmd.ErrOrStderr(), Version: version})
			if terr != nil {
				return terr
			}
			defer func() {
				if serr := shutdown(context.Background()); serr != nil {
					logger.Warn("trace shutdown failed", "error", serr)
				}
			}()
		}
		defer func() {
			if metricsFile == "" {
				return
			}
			if werr := recorder.WriteTextfile(metricsFile); werr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: %v\n", werr)
			}
		}()
		return run(cmd, args)
	}
}

// openHistory opens the job store unless history is disabled. Failures are
// reported and history is skipped; they never fail the command.
func openHistory(cmd *cobra.Command) *jobs.Store {
	if noHistory {
		return nil
	}
	s, err := jobs.Open(cmd.Context(), currentConfig().JobsDB)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: job history unavailable: %v\n", err)
		return nil
	}
	return s
}

func closeHistory(s *jobs.Store) {
	if s == nil {
		return
	}
	if err := s.Close(); err != nil {
		logger.Warn("close job history", slog.Any("error", err))
	}
}

func checkFormat() error {
	switch strings.ToLower(outFormat) {
	case "json", "markdown", "md":
		return nil
	default:
		return fmt.Errorf("unsupported --format: %s (use json|markdown)", outFormat)
	}
}

func markdownOutput() bool {
	f := strings.ToLower(outFormat)
	return f == "markdown" || f == "md"
}
