package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cesdm/modelkit/bootstrap"
	"github.com/cesdm/modelkit/core/codegen"
)

var genCmd = &cobra.Command{
	Use:   "gen",
	Short: "Generate Go bindings from the schema",
	Long: `Generate Go struct declarations for the classes in the resolved
schema, with json tags and doc comments from the schema descriptions.

Examples:
  modelkit gen                      # write to codegen.output from config
  modelkit gen --out -              # print to stdout
  modelkit gen --package grid --out internal/grid/types.go`,
	RunE: runGen,
}

var (
	genPackage string
	genOut     string
)

func init() {
	rootCmd.AddCommand(genCmd)

	genCmd.Flags().StringVar(&genPackage, "package", "", "package name for the generated file")
	genCmd.Flags().StringVar(&genOut, "out", "", "output file, - for stdout")
}

func runGen(cmd *cobra.Command, args []string) error {
	cfg, err := loadProject()
	if err != nil {
		return err
	}

	rs, err := bootstrap.LoadSchema(cfg.Schema.Paths)
	if err != nil {
		return err
	}

	pkg := genPackage
	if pkg == "" {
		pkg = cfg.Codegen.Package
	}
	out := genOut
	if out == "" {
		out = cfg.Codegen.Output
	}
	opts := codegen.Options{Package: pkg}

	if out == "-" {
		code, err := codegen.Generate(rs, opts)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(code)
		return err
	}

	if err := codegen.Write(rs, out, opts); err != nil {
		return err
	}
	fmt.Printf("%s Generated %s\n", checkMark, out)
	return nil
}
