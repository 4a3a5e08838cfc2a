package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cesdm/modelkit/bootstrap"
	"github.com/cesdm/modelkit/core/frictionless"
)

var datapackageCmd = &cobra.Command{
	Use:   "datapackage",
	Short: "Export a Frictionless data package",
	Long: `Write the wide CSV export with Table Schema sidecars into a bundle
directory, plus a datapackage.json manifest referencing every class
resource with its schema inlined.

Examples:
  modelkit datapackage
  modelkit datapackage --dir dist/package`,
	RunE: runDatapackage,
}

var datapackageDir string

func init() {
	rootCmd.AddCommand(datapackageCmd)

	datapackageCmd.Flags().StringVar(&datapackageDir, "dir", "", "bundle directory (default: export.directory from config)")
}

func runDatapackage(cmd *cobra.Command, args []string) error {
	cfg, err := loadProject()
	if err != nil {
		return err
	}
	logger := bootstrap.SetupLogger(cfg.Logging)

	m, err := bootstrap.LoadModel(cfg, logger)
	if err != nil {
		return err
	}

	dir := datapackageDir
	if dir == "" {
		dir = cfg.Export.Directory
	}

	out, err := frictionless.ExportDatapackage(m, dir)
	if err != nil {
		return err
	}

	fmt.Printf("%s Wrote %s\n", checkMark, out)
	return nil
}
