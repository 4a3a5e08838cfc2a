package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cesdm/modelkit/bootstrap"
	"github.com/cesdm/modelkit/config"
	"github.com/cesdm/modelkit/core/exchange"
	"github.com/cesdm/modelkit/core/formatter"
	"github.com/cesdm/modelkit/core/model"
)

var (
	// Global flags
	cfgFile      string
	schemaPaths  []string
	dataPath     string
	logLevel     string
	logFormat    string
	outputFormat string
	noHeader     bool
	compact      bool
	maxWidth     int
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "modelkit",
	Short: "Schema-driven entity model with validation and multi-format exchange",
	Long: `ModelKit loads entity class schemas from YAML, keeps a typed in-memory
model of entities, attributes and relations, and moves that model in
and out of JSON, YAML and CSV shapes.

Quick start:
  modelkit schema list -s schema/   # inspect the resolved classes
  modelkit validate                 # check the model against the schema
  modelkit export --format wide     # write one CSV per class

Configuration is read from modelkit.yaml in the working directory when
present; flags override the file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default modelkit.yaml when present)")
	rootCmd.PersistentFlags().StringSliceVarP(&schemaPaths, "schema", "s", nil, "schema file, directory or glob (repeatable)")
	rootCmd.PersistentFlags().StringVar(&dataPath, "data", "", "model data file (json or yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (console or json)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "", "output format (table, json or yaml)")
	rootCmd.PersistentFlags().BoolVar(&noHeader, "no-header", false, "omit header rows in table output")
	rootCmd.PersistentFlags().BoolVar(&compact, "compact", false, "compact json output")
	rootCmd.PersistentFlags().IntVar(&maxWidth, "max-width", 0, "truncate table cells to this width (0 = no limit)")
}

// loadProject reads the project configuration and layers the global
// flags on top.
func loadProject() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return nil, err
	}
	if len(schemaPaths) > 0 {
		cfg.Schema.Paths = schemaPaths
	}
	if dataPath != "" {
		cfg.Model.Path = dataPath
		cfg.Model.Format = ""
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	if outputFormat != "" {
		cfg.Output.Format = outputFormat
	}
	return cfg, nil
}

func resolveFormatter(cfg *config.Config) (formatter.Formatter, error) {
	f, ok := formatter.Get(cfg.Output.Format)
	if !ok {
		return nil, fmt.Errorf("unknown output format %q (available: %s)",
			cfg.Output.Format, strings.Join(formatter.List(), ", "))
	}
	return f, nil
}

func formatOpts() formatter.FormatOptions {
	return formatter.FormatOptions{
		NoHeader: noHeader,
		Compact:  compact,
		MaxWidth: maxWidth,
	}
}

// saveModel writes the model's nested document to path. A warning is
// logged instead when path is empty, so read-only invocations stay
// side-effect free.
func saveModel(cfg *config.Config, logger zerolog.Logger, m *model.Model, path string) error {
	if path == "" {
		logger.Warn().Msg("no output path configured, model changes were not saved")
		return nil
	}

	explicit := ""
	if path == cfg.Model.Path {
		explicit = cfg.Model.Format
	}
	format, err := bootstrap.DataFormat(path, explicit)
	if err != nil {
		return err
	}

	switch format {
	case "json":
		err = exchange.ExportJSON(m, path)
	case "yaml":
		err = exchange.ExportYAML(m, path)
	default:
		return fmt.Errorf("unsupported model format %q", format)
	}
	if err != nil {
		return fmt.Errorf("save model: %w", err)
	}

	fmt.Printf("%s Saved model to %s\n", checkMark, path)
	return nil
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
)
