package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cesdm/modelkit/bootstrap"
	"github.com/cesdm/modelkit/config"
	"github.com/cesdm/modelkit/core/exchange"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the model in a wire format",
	Long: `Export the populated model.

Formats:
  json       nested JSON document
  yaml       nested YAML document
  narrow     one CSV per class, one row per field
  wide       one CSV per class, one row per entity
  wide-meta  wide CSV with unit and provenance columns
  long       a single CSV with one row per field

Examples:
  modelkit export --format json --out model.json
  modelkit export --format wide --out csv/
  modelkit export --format long`,
	RunE: runExport,
}

var (
	exportFormat string
	exportOut    string
)

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "export format")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file or directory (default: under export.directory from config)")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadProject()
	if err != nil {
		return err
	}
	logger := bootstrap.SetupLogger(cfg.Logging)

	m, err := bootstrap.LoadModel(cfg, logger)
	if err != nil {
		return err
	}

	d, ok := exchange.Lookup(exportFormat)
	if !ok {
		return fmt.Errorf("unknown format %q (available: %s)",
			exportFormat, strings.Join(exchange.DialectNames(), ", "))
	}

	out := exportOut
	if out == "" {
		out = defaultExportPath(cfg, d)
	}

	opts := exchange.ExportOptions{OmitPlaceholders: cfg.Export.OmitPlaceholders}
	if err := d.Export(m, out, opts); err != nil {
		return fmt.Errorf("export %s: %w", d.Name, err)
	}

	fmt.Printf("%s Exported %d entities to %s\n", checkMark, m.Len(), out)
	return nil
}

// defaultExportPath places directory dialects in the export directory
// itself and file dialects in a model.<ext> file under it.
func defaultExportPath(cfg *config.Config, d exchange.Dialect) string {
	if d.Dir {
		return cfg.Export.Directory
	}
	ext := "csv"
	switch d.Name {
	case "json":
		ext = "json"
	case "yaml":
		ext = "yaml"
	}
	return filepath.Join(cfg.Export.Directory, "model."+ext)
}
