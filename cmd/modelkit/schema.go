package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cesdm/modelkit/bootstrap"
	"github.com/cesdm/modelkit/config"
	"github.com/cesdm/modelkit/core/frictionless"
	"github.com/cesdm/modelkit/core/jsonschema"
	"github.com/cesdm/modelkit/core/schema"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Inspect and export the resolved schema",
	Long: `Inspect the resolved class hierarchy or export machine-readable
schema documents.

Examples:
  modelkit schema list -s schema/
  modelkit schema tree
  modelkit schema show Generator
  modelkit schema jsonschema --out model.schema.json
  modelkit schema tableschema --layout wide --out csv/`,
}

var schemaListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the resolved classes",
	RunE:  runSchemaList,
}

var schemaTreeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the class inheritance tree",
	RunE:  runSchemaTree,
}

var schemaShowCmd = &cobra.Command{
	Use:   "show <class>",
	Short: "Show one class with its resolved attributes and relations",
	Args:  cobra.ExactArgs(1),
	RunE:  runSchemaShow,
}

var schemaJSONOut string

var schemaJSONSchemaCmd = &cobra.Command{
	Use:   "jsonschema",
	Short: "Generate a JSON Schema for the nested export",
	Long: `Generate a JSON Schema (draft 2020-12) that validates the nested JSON
export of a model built on this schema.

Examples:
  modelkit schema jsonschema                  # print to stdout
  modelkit schema jsonschema --out model.schema.json`,
	RunE: runSchemaJSONSchema,
}

var (
	tableSchemaLayout string
	tableSchemaOut    string
)

var schemaTableSchemaCmd = &cobra.Command{
	Use:   "tableschema",
	Short: "Export Frictionless Table Schema sidecars",
	Long: `Write the Table Schema documents describing the CSV exports.

Layouts:
  narrow  per-class schema for the narrow CSV layout
  wide    per-class schema for the wide CSV layout
  long    single schema for the long CSV layout

Examples:
  modelkit schema tableschema --layout wide --out csv/
  modelkit schema tableschema --layout long --out out/model.csv`,
	RunE: runSchemaTableSchema,
}

func init() {
	rootCmd.AddCommand(schemaCmd)
	schemaCmd.AddCommand(schemaListCmd)
	schemaCmd.AddCommand(schemaTreeCmd)
	schemaCmd.AddCommand(schemaShowCmd)
	schemaCmd.AddCommand(schemaJSONSchemaCmd)
	schemaCmd.AddCommand(schemaTableSchemaCmd)

	schemaJSONSchemaCmd.Flags().StringVar(&schemaJSONOut, "out", "", "output file (default stdout)")

	schemaTableSchemaCmd.Flags().StringVar(&tableSchemaLayout, "layout", "wide", "csv layout the schemas describe (narrow, wide or long)")
	schemaTableSchemaCmd.Flags().StringVar(&tableSchemaOut, "out", "", "output directory, or csv path for the long layout")
}

func loadResolvedSchema() (*schema.Resolved, *config.Config, error) {
	cfg, err := loadProject()
	if err != nil {
		return nil, nil, err
	}
	rs, err := bootstrap.LoadSchema(cfg.Schema.Paths)
	if err != nil {
		return nil, nil, err
	}
	return rs, cfg, nil
}

func runSchemaList(cmd *cobra.Command, args []string) error {
	rs, cfg, err := loadResolvedSchema()
	if err != nil {
		return err
	}
	f, err := resolveFormatter(cfg)
	if err != nil {
		return err
	}
	return f.FormatClasses(os.Stdout, rs.Summary(), formatOpts())
}

func runSchemaTree(cmd *cobra.Command, args []string) error {
	rs, _, err := loadResolvedSchema()
	if err != nil {
		return err
	}
	if rs.Len() == 0 {
		fmt.Println("No classes defined.")
		return nil
	}
	fmt.Println(rs.Tree())
	return nil
}

func runSchemaShow(cmd *cobra.Command, args []string) error {
	rs, _, err := loadResolvedSchema()
	if err != nil {
		return err
	}

	cname, err := rs.Canonical(args[0])
	if err != nil {
		return err
	}
	ec, _ := rs.Class(cname)

	fmt.Printf("Class: %s\n", ec.Name)
	if ec.Description != "" {
		fmt.Printf("Description: %s\n", ec.Description)
	}
	if len(ec.Parents) > 0 {
		fmt.Printf("Parents: %s\n", strings.Join(ec.Parents, ", "))
	}
	if ec.Abstract {
		fmt.Println("Abstract: yes")
	}

	groups := rs.GroupedAttributes(cname)
	for _, group := range sortedGroupNames(groups) {
		fmt.Printf("\n%s:\n", group)
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "  NAME\tTYPE\tREQUIRED\tUNIT\tDESCRIPTION")
		for _, ad := range groups[group] {
			unit := "-"
			if ad.Unit != nil && ad.Unit.Default != "" {
				unit = ad.Unit.Default
			}
			fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\n",
				ad.Name, ad.Type, yesNo(ad.Required), unit, ad.Description)
		}
		w.Flush()
	}

	if len(ec.Relations) > 0 {
		fmt.Println("\nRelations:")
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "  NAME\tTARGETS\tCARDINALITY\tDESCRIPTION")
		for _, rn := range ec.RelationNames() {
			rd := ec.Relations[rn]
			targets := strings.Join(rd.Targets, ", ")
			if targets == "" {
				targets = "-"
			}
			fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n",
				rd.Name, targets, rd.CardinalityOrDefault(), rd.Description)
		}
		w.Flush()
	}
	return nil
}

func runSchemaJSONSchema(cmd *cobra.Command, args []string) error {
	rs, _, err := loadResolvedSchema()
	if err != nil {
		return err
	}

	if schemaJSONOut == "" {
		b, err := json.MarshalIndent(jsonschema.Generate(rs), "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(b))
		return nil
	}

	if err := jsonschema.Export(rs, schemaJSONOut); err != nil {
		return err
	}
	fmt.Printf("%s Wrote %s\n", checkMark, schemaJSONOut)
	return nil
}

func runSchemaTableSchema(cmd *cobra.Command, args []string) error {
	rs, cfg, err := loadResolvedSchema()
	if err != nil {
		return err
	}

	out := tableSchemaOut
	switch tableSchemaLayout {
	case "narrow", "wide":
		if out == "" {
			out = cfg.Export.Directory
		}
		if err := os.MkdirAll(out, 0o755); err != nil {
			return err
		}
		if tableSchemaLayout == "narrow" {
			err = frictionless.ExportNarrowSchemas(rs, out)
		} else {
			err = frictionless.ExportWideSchemas(rs, out)
		}
	case "long":
		if out == "" {
			out = filepath.Join(cfg.Export.Directory, "model.csv")
		}
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return err
		}
		err = frictionless.ExportLongSchema(rs, out)
	default:
		return fmt.Errorf("unknown layout %q (narrow, wide or long)", tableSchemaLayout)
	}
	if err != nil {
		return err
	}

	fmt.Printf("%s Wrote table schemas for layout %s to %s\n", checkMark, tableSchemaLayout, out)
	return nil
}

func sortedGroupNames(groups map[string][]schema.AttributeDef) []string {
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
