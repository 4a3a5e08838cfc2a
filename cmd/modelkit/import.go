package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cesdm/modelkit/bootstrap"
	"github.com/cesdm/modelkit/core/exchange"
)

var importCmd = &cobra.Command{
	Use:   "import <path>",
	Short: "Import data into the model",
	Long: `Import a data file or CSV directory into the model on top of the
configured data, print the import summary and save the merged model.

The format is inferred from the path (.json, .yaml, .yml, .csv) unless
--format is given. Directory layouts (narrow, wide, wide-meta) always
need an explicit --format.

Examples:
  modelkit import updates.yaml
  modelkit import csv/ --format wide
  modelkit import rows.csv --strict --out merged.json`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var (
	importFormat string
	importStrict bool
	importCreate bool
	importOut    string
)

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVarP(&importFormat, "format", "f", "", "input format (default: inferred from the path)")
	importCmd.Flags().BoolVar(&importStrict, "strict", false, "abort on the first unknown class or field")
	importCmd.Flags().BoolVar(&importCreate, "create-missing-refs", false, "create shell entities for unknown relation targets")
	importCmd.Flags().StringVar(&importOut, "out", "", "write the merged model here instead of model.path")
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadProject()
	if err != nil {
		return err
	}
	logger := bootstrap.SetupLogger(cfg.Logging)

	m, err := bootstrap.LoadModel(cfg, logger)
	if err != nil {
		return err
	}

	d, err := importDialect(args[0], importFormat)
	if err != nil {
		return err
	}

	opts := bootstrap.ImportOptions(cfg)
	if cmd.Flags().Changed("strict") {
		opts.StrictUnknown = importStrict
	}
	if cmd.Flags().Changed("create-missing-refs") {
		opts.CreateMissingRefs = importCreate
	}

	sum, err := d.Import(m, args[0], opts)
	if err != nil {
		return fmt.Errorf("import %s: %w", d.Name, err)
	}

	f, err := resolveFormatter(cfg)
	if err != nil {
		return err
	}
	if err := f.FormatSummary(os.Stdout, sum, formatOpts()); err != nil {
		return err
	}

	out := importOut
	if out == "" {
		out = cfg.Model.Path
	}
	return saveModel(cfg, logger, m, out)
}

// importDialect resolves the exchange dialect for an input path,
// preferring an explicitly given format over the file extension.
func importDialect(path, explicit string) (exchange.Dialect, error) {
	name := explicit
	if name == "" {
		st, err := os.Stat(path)
		if err != nil {
			return exchange.Dialect{}, err
		}
		if st.IsDir() {
			return exchange.Dialect{}, fmt.Errorf("%s is a directory: pass --format narrow, wide or wide-meta", path)
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".json":
			name = "json"
		case ".yaml", ".yml":
			name = "yaml"
		case ".csv":
			name = "long"
		default:
			return exchange.Dialect{}, fmt.Errorf("cannot infer format of %q: pass --format", path)
		}
	}

	d, ok := exchange.Lookup(name)
	if !ok {
		return exchange.Dialect{}, fmt.Errorf("unknown format %q (available: %s)",
			name, strings.Join(exchange.DialectNames(), ", "))
	}
	return d, nil
}
