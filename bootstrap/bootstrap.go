// Package bootstrap wires the CLI's dependencies: logger setup, schema
// loading and model assembly from the project configuration.
package bootstrap

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cesdm/modelkit/config"
	"github.com/cesdm/modelkit/core/exchange"
	"github.com/cesdm/modelkit/core/model"
	"github.com/cesdm/modelkit/core/schema"
)

// SetupLogger builds the CLI logger from the logging configuration.
// Log output goes to stderr so command results stay clean on stdout.
func SetupLogger(cfg config.LoggingConfig) zerolog.Logger {
	levelStr := cfg.Level
	if levelStr == "" {
		levelStr = "info"
	}

	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// LoadSchema parses and resolves the schema documents at the given paths.
func LoadSchema(paths []string) (*schema.Resolved, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no schema paths configured: set schema.paths or pass --schema")
	}

	set, err := schema.LoadPaths(paths)
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	rs, err := set.Resolve()
	if err != nil {
		return nil, fmt.Errorf("resolve schema: %w", err)
	}

	return rs, nil
}

// LoadModel assembles a model from the project configuration: resolved
// schema, logger, and the default data file when one is configured.
func LoadModel(cfg *config.Config, logger zerolog.Logger) (*model.Model, error) {
	rs, err := LoadSchema(cfg.Schema.Paths)
	if err != nil {
		return nil, err
	}
	return BuildModel(cfg, logger, rs)
}

// BuildModel creates a model on an already resolved schema and loads
// the configured data file into it. Schema watchers use this to rebuild
// after a reload without re-reading the schema files.
func BuildModel(cfg *config.Config, logger zerolog.Logger, rs *schema.Resolved) (*model.Model, error) {
	m := model.New(rs, logger)

	if cfg.Model.Path == "" {
		return m, nil
	}

	format, err := DataFormat(cfg.Model.Path, cfg.Model.Format)
	if err != nil {
		return nil, err
	}

	opts := ImportOptions(cfg)
	var sum exchange.Summary
	switch format {
	case "json":
		sum, err = exchange.ImportJSON(m, cfg.Model.Path, opts)
	case "yaml":
		sum, err = exchange.ImportYAML(m, cfg.Model.Path, opts)
	default:
		return nil, fmt.Errorf("unsupported model format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("load model data: %w", err)
	}

	logger.Debug().
		Str("path", cfg.Model.Path).
		Int("entities", sum.CreatedEntities).
		Int("attributes", sum.SetAttributes).
		Int("relations", sum.SetRelations).
		Msg("model data loaded")

	return m, nil
}

// ImportOptions converts the configured import behavior into engine options.
func ImportOptions(cfg *config.Config) exchange.ImportOptions {
	return exchange.ImportOptions{
		StrictUnknown:     cfg.Import.StrictUnknown,
		CreateMissingRefs: cfg.Import.CreateMissingRefs,
	}
}

// DataFormat resolves the document format for a data file, preferring an
// explicitly given format over the file extension.
func DataFormat(path, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json", nil
	case ".yaml", ".yml":
		return "yaml", nil
	}

	return "", fmt.Errorf("cannot infer data format from %q: use json or yaml extension, or set the format explicitly", path)
}
