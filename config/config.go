// Package config provides project configuration loading and validation.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the project file looked up when no --config flag is given.
const DefaultPath = "modelkit.yaml"

// Config is the root configuration structure.
type Config struct {
	Schema   SchemaConfig   `yaml:"schema"`
	Model    ModelConfig    `yaml:"model"`
	Import   ImportConfig   `yaml:"import"`
	Export   ExportConfig   `yaml:"export"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	Codegen  CodegenConfig  `yaml:"codegen"`
	Logging  LoggingConfig  `yaml:"logging"`
	Output   OutputConfig   `yaml:"output"`
}

// SchemaConfig locates the schema documents.
type SchemaConfig struct {
	Paths []string `yaml:"paths"` // files, directories or glob patterns
}

// ModelConfig configures the default data file commands fall back to.
type ModelConfig struct {
	Path   string `yaml:"path"`
	Format string `yaml:"format"` // "json" or "yaml"; empty sniffs the extension
}

// ImportConfig configures default import behavior.
type ImportConfig struct {
	StrictUnknown     bool `yaml:"strict_unknown"`
	CreateMissingRefs bool `yaml:"create_missing_refs"`
}

// ExportConfig configures default export behavior.
type ExportConfig struct {
	Directory        string `yaml:"directory"`
	OmitPlaceholders bool   `yaml:"omit_placeholders"`
}

// SnapshotConfig configures the SQLite snapshot store.
type SnapshotConfig struct {
	Path string `yaml:"path"`
}

// CodegenConfig configures Go binding generation.
type CodegenConfig struct {
	Package string `yaml:"package"`
	Output  string `yaml:"output"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// OutputConfig configures CLI result rendering.
type OutputConfig struct {
	Format string `yaml:"format"` // "table", "json" or "yaml"
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Default returns the built-in configuration used when no project file
// exists. Commands that need a schema or data file still require the
// corresponding flags in that case.
func Default() *Config {
	var cfg Config
	setDefaults(&cfg)
	return &cfg
}

// LoadOrDefault loads the given path, or DefaultPath when no path is
// given, falling back to the built-in defaults when the default project
// file is absent. An explicitly given path must exist.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		if _, err := os.Stat(DefaultPath); err != nil {
			return Default(), nil
		}
		path = DefaultPath
	}
	return Load(path)
}

func setDefaults(cfg *Config) {
	if cfg.Export.Directory == "" {
		cfg.Export.Directory = "out"
	}

	if cfg.Snapshot.Path == "" {
		cfg.Snapshot.Path = "model.db"
	}

	if cfg.Codegen.Package == "" {
		cfg.Codegen.Package = "bindings"
	}
	if cfg.Codegen.Output == "" {
		cfg.Codegen.Output = "bindings/bindings.go"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}

	if cfg.Output.Format == "" {
		cfg.Output.Format = "table"
	}
}

func validate(cfg *Config) error {
	for i, p := range cfg.Schema.Paths {
		if p == "" {
			return fmt.Errorf("schema.paths[%d] is empty", i)
		}
	}

	validModelFormats := map[string]bool{"": true, "json": true, "yaml": true}
	if !validModelFormats[cfg.Model.Format] {
		return fmt.Errorf("model.format must be 'json' or 'yaml', got %q", cfg.Model.Format)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	validLogFormats := map[string]bool{"json": true, "console": true}
	if !validLogFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	validOutputFormats := map[string]bool{"table": true, "json": true, "yaml": true}
	if !validOutputFormats[cfg.Output.Format] {
		return fmt.Errorf("output.format must be one of: table, json, yaml")
	}

	return nil
}
