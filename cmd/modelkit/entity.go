package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cesdm/modelkit/bootstrap"
	"github.com/cesdm/modelkit/core/model"
)

var entityCmd = &cobra.Command{
	Use:   "entity",
	Short: "Create and inspect entities",
	Long: `Create and inspect entities in the configured model.

Examples:
  modelkit entity list
  modelkit entity list --class Generator
  modelkit entity show g1
  modelkit entity add --class Generator --id g2 --set capacity=450 --set node=n1`,
}

var entityAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create an entity and save the model",
	Long: `Create an entity of the given class. The id is generated when not
given. Attribute values are coerced to the declared types; relation
values take comma-separated target ids.

Examples:
  modelkit entity add --class Node --id n9 --set name=North --set voltage=380
  modelkit entity add --class Generator --set node=n1,n2`,
	RunE: runEntityAdd,
}

var entityListCmd = &cobra.Command{
	Use:   "list",
	Short: "List entities",
	RunE:  runEntityList,
}

var entityShowCmd = &cobra.Command{
	Use:   "show <entity-id>",
	Short: "Show one entity with its attributes and relations",
	Args:  cobra.ExactArgs(1),
	RunE:  runEntityShow,
}

var (
	entityClass string
	entityID    string
	entitySets  []string
	entityOut   string
)

func init() {
	rootCmd.AddCommand(entityCmd)
	entityCmd.AddCommand(entityAddCmd)
	entityCmd.AddCommand(entityListCmd)
	entityCmd.AddCommand(entityShowCmd)

	entityAddCmd.Flags().StringVar(&entityClass, "class", "", "entity class (required)")
	entityAddCmd.Flags().StringVar(&entityID, "id", "", "entity id (default: generated)")
	entityAddCmd.Flags().StringArrayVar(&entitySets, "set", nil, "field assignment name=value (repeatable)")
	entityAddCmd.Flags().StringVar(&entityOut, "out", "", "write the model here instead of model.path")
	entityAddCmd.MarkFlagRequired("class")

	entityListCmd.Flags().StringVar(&entityClass, "class", "", "only list entities of this class")
}

func runEntityAdd(cmd *cobra.Command, args []string) error {
	cfg, err := loadProject()
	if err != nil {
		return err
	}
	logger := bootstrap.SetupLogger(cfg.Logging)

	m, err := bootstrap.LoadModel(cfg, logger)
	if err != nil {
		return err
	}

	id := entityID
	if id == "" {
		id = uuid.NewString()
	}

	ent, err := m.AddEntity(entityClass, id)
	if err != nil {
		return err
	}

	for _, assign := range entitySets {
		name, value, ok := strings.Cut(assign, "=")
		if !ok {
			return fmt.Errorf("invalid --set %q: want name=value", assign)
		}
		if err := applyField(m, ent, name, value); err != nil {
			return err
		}
	}

	fmt.Printf("%s Created [%s:%s]\n", checkMark, ent.Class(), ent.ID())

	out := entityOut
	if out == "" {
		out = cfg.Model.Path
	}
	return saveModel(cfg, logger, m, out)
}

// applyField routes an assignment to the attribute or relation write
// path. Relation values are split on commas into target ids.
func applyField(m *model.Model, ent *model.Entity, name, value string) error {
	ec, ok := m.Schema().Class(ent.Class())
	if !ok {
		return fmt.Errorf("unknown class %q", ent.Class())
	}

	if _, isRel := ec.Relations[name]; isRel {
		targets := strings.Split(value, ",")
		for i := range targets {
			targets[i] = strings.TrimSpace(targets[i])
		}
		return m.SetRelationTargets(ent.ID(), name, targets)
	}
	return m.SetAttribute(ent.ID(), name, value, model.SetOptions{})
}

func runEntityList(cmd *cobra.Command, args []string) error {
	cfg, err := loadProject()
	if err != nil {
		return err
	}
	logger := bootstrap.SetupLogger(cfg.Logging)

	m, err := bootstrap.LoadModel(cfg, logger)
	if err != nil {
		return err
	}

	classes := m.Classes()
	if entityClass != "" {
		cname, err := m.Schema().Canonical(entityClass)
		if err != nil {
			return err
		}
		classes = []string{cname}
	}

	type row struct {
		id, class  string
		attrs, rel int
	}
	var rows []row
	for _, class := range classes {
		for _, ent := range m.EntitiesOf(class) {
			rows = append(rows, row{ent.ID(), ent.Class(), len(ent.AttributeNames()), len(ent.RelationNames())})
		}
	}

	if len(rows) == 0 {
		fmt.Println("No entities found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCLASS\tATTRIBUTES\tRELATIONS")
	fmt.Fprintln(w, "--\t-----\t----------\t---------")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", r.id, r.class, r.attrs, r.rel)
	}
	w.Flush()
	fmt.Printf("\nTotal: %d\n", len(rows))
	return nil
}

func runEntityShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadProject()
	if err != nil {
		return err
	}
	logger := bootstrap.SetupLogger(cfg.Logging)

	m, err := bootstrap.LoadModel(cfg, logger)
	if err != nil {
		return err
	}

	ent, ok := m.Entity(args[0])
	if !ok {
		return fmt.Errorf("unknown entity id %q", args[0])
	}

	fmt.Printf("ID:    %s\n", ent.ID())
	fmt.Printf("Class: %s\n", ent.Class())

	if names := ent.AttributeNames(); len(names) > 0 {
		fmt.Println("\nAttributes:")
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "  NAME\tVALUE\tUNIT\tPROVENANCE")
		for _, name := range names {
			av, _ := ent.Attribute(name)
			fmt.Fprintf(w, "  %s\t%v\t%s\t%s\n", name, av.Value, orDash(av.Unit), orDash(av.ProvenanceRef))
		}
		w.Flush()
	}

	if names := ent.RelationNames(); len(names) > 0 {
		fmt.Println("\nRelations:")
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "  NAME\tTARGETS")
		for _, name := range names {
			fmt.Fprintf(w, "  %s\t%s\n", name, strings.Join(ent.RelationTargets(name), ", "))
		}
		w.Flush()
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
