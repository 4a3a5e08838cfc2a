package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cesdm/modelkit/config"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
schema:
  paths:
    - "schema/**/*.yaml"
    - "extra/types.yaml"

model:
  path: "data/model.json"
  format: "json"

import:
  strict_unknown: true
  create_missing_refs: true

export:
  directory: "dist"
  omit_placeholders: true

snapshot:
  path: "snapshots/model.db"

codegen:
  package: "models"
  output: "gen/models.go"

logging:
  level: "debug"
  format: "json"

output:
  format: "yaml"
`

	cfg := writeAndLoad(t, content)

	if len(cfg.Schema.Paths) != 2 {
		t.Fatalf("len(Schema.Paths) = %d, want 2", len(cfg.Schema.Paths))
	}
	if cfg.Schema.Paths[0] != "schema/**/*.yaml" {
		t.Errorf("Schema.Paths[0] = %s, want schema/**/*.yaml", cfg.Schema.Paths[0])
	}
	if cfg.Model.Path != "data/model.json" {
		t.Errorf("Model.Path = %s, want data/model.json", cfg.Model.Path)
	}
	if cfg.Model.Format != "json" {
		t.Errorf("Model.Format = %s, want json", cfg.Model.Format)
	}
	if !cfg.Import.StrictUnknown {
		t.Error("Import.StrictUnknown = false, want true")
	}
	if !cfg.Import.CreateMissingRefs {
		t.Error("Import.CreateMissingRefs = false, want true")
	}
	if cfg.Export.Directory != "dist" {
		t.Errorf("Export.Directory = %s, want dist", cfg.Export.Directory)
	}
	if !cfg.Export.OmitPlaceholders {
		t.Error("Export.OmitPlaceholders = false, want true")
	}
	if cfg.Snapshot.Path != "snapshots/model.db" {
		t.Errorf("Snapshot.Path = %s, want snapshots/model.db", cfg.Snapshot.Path)
	}
	if cfg.Codegen.Package != "models" {
		t.Errorf("Codegen.Package = %s, want models", cfg.Codegen.Package)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %s, want debug", cfg.Logging.Level)
	}
	if cfg.Output.Format != "yaml" {
		t.Errorf("Output.Format = %s, want yaml", cfg.Output.Format)
	}
}

func TestLoad_Defaults(t *testing.T) {
	content := `
schema:
  paths:
    - "schema.yaml"
`

	cfg := writeAndLoad(t, content)

	if cfg.Export.Directory != "out" {
		t.Errorf("default Export.Directory = %s, want out", cfg.Export.Directory)
	}
	if cfg.Snapshot.Path != "model.db" {
		t.Errorf("default Snapshot.Path = %s, want model.db", cfg.Snapshot.Path)
	}
	if cfg.Codegen.Package != "bindings" {
		t.Errorf("default Codegen.Package = %s, want bindings", cfg.Codegen.Package)
	}
	if cfg.Codegen.Output != "bindings/bindings.go" {
		t.Errorf("default Codegen.Output = %s, want bindings/bindings.go", cfg.Codegen.Output)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("default Logging.Level = %s, want info", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "console" {
		t.Errorf("default Logging.Format = %s, want console", cfg.Logging.Format)
	}
	if cfg.Output.Format != "table" {
		t.Errorf("default Output.Format = %s, want table", cfg.Output.Format)
	}
	if cfg.Import.StrictUnknown {
		t.Error("default Import.StrictUnknown = true, want false")
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	os.Setenv("TEST_SCHEMA_DIR", "/srv/schemas")
	defer os.Unsetenv("TEST_SCHEMA_DIR")

	content := `
schema:
  paths:
    - "${TEST_SCHEMA_DIR}/grid.yaml"
`

	cfg := writeAndLoad(t, content)

	if cfg.Schema.Paths[0] != "/srv/schemas/grid.yaml" {
		t.Errorf("Schema.Paths[0] = %s, want /srv/schemas/grid.yaml", cfg.Schema.Paths[0])
	}
}

func TestLoad_EmptySchemaPath(t *testing.T) {
	content := `
schema:
  paths:
    - "schema.yaml"
    - ""
`

	_, err := writeAndLoadErr(t, content)
	if err == nil {
		t.Fatal("expected error for empty schema path")
	}
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	content := `
logging:
  level: "verbose"
`

	_, err := writeAndLoadErr(t, content)
	if err == nil {
		t.Fatal("expected error for invalid logging.level")
	}
}

func TestLoad_InvalidOutputFormat(t *testing.T) {
	content := `
output:
  format: "xml"
`

	_, err := writeAndLoadErr(t, content)
	if err == nil {
		t.Fatal("expected error for invalid output.format")
	}
}

func TestLoad_InvalidModelFormat(t *testing.T) {
	content := `
model:
  path: "model.toml"
  format: "toml"
`

	_, err := writeAndLoadErr(t, content)
	if err == nil {
		t.Fatal("expected error for invalid model.format")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	content := "schema: [paths: ["

	_, err := writeAndLoadErr(t, content)
	if err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestDefault(t *testing.T) {
	cfg := config.Default()

	if cfg.Output.Format != "table" {
		t.Errorf("Output.Format = %s, want table", cfg.Output.Format)
	}
	if cfg.Logging.Format != "console" {
		t.Errorf("Logging.Format = %s, want console", cfg.Logging.Format)
	}
	if len(cfg.Schema.Paths) != 0 {
		t.Errorf("Schema.Paths = %v, want empty", cfg.Schema.Paths)
	}
}

func TestLoadOrDefault_NoProjectFile(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := config.LoadOrDefault("")
	if err != nil {
		t.Fatalf("LoadOrDefault error: %v", err)
	}
	if cfg.Output.Format != "table" {
		t.Errorf("Output.Format = %s, want table", cfg.Output.Format)
	}
}

func TestLoadOrDefault_DefaultFile(t *testing.T) {
	chdir(t, t.TempDir())

	content := "logging:\n  level: debug\n"
	if err := os.WriteFile(config.DefaultPath, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.LoadOrDefault("")
	if err != nil {
		t.Fatalf("LoadOrDefault error: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %s, want debug", cfg.Logging.Level)
	}
}

func TestLoadOrDefault_ExplicitMissingFile(t *testing.T) {
	_, err := config.LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error for explicitly given missing file")
	}
}

// chdir changes the working directory for the duration of the test and
// restores the previous one on cleanup.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(wd); err != nil {
			t.Errorf("restore working directory: %v", err)
		}
	})
}

func writeAndLoad(t *testing.T, content string) *config.Config {
	t.Helper()
	cfg, err := writeAndLoadErr(t, content)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	return cfg
}

func writeAndLoadErr(t *testing.T, content string) (*config.Config, error) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return config.Load(path)
}
