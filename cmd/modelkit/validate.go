package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cesdm/modelkit/bootstrap"
	"github.com/cesdm/modelkit/core/validation"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the model against its schema",
	Long: `Load the schema and model data, run every validation rule and print
the findings.

Checks:
  - required attributes are present
  - declared constraints hold (range, enum, pattern, units)
  - relation targets exist and match the declared target classes
  - relation counts satisfy the declared cardinality

The command exits non-zero when any finding is reported.

Examples:
  modelkit validate
  modelkit validate -s schema/ --data model.json
  modelkit validate --entity n1 -o json`,
	RunE: runValidate,
}

var validateEntityID string

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateEntityID, "entity", "", "validate a single entity id instead of the whole model")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadProject()
	if err != nil {
		return err
	}
	logger := bootstrap.SetupLogger(cfg.Logging)

	m, err := bootstrap.LoadModel(cfg, logger)
	if err != nil {
		return err
	}

	var res validation.Result
	if validateEntityID != "" {
		ent, ok := m.Entity(validateEntityID)
		if !ok {
			return fmt.Errorf("unknown entity id %q", validateEntityID)
		}
		res = validation.ValidateEntity(m, ent)
	} else {
		res = validation.Validate(m)
	}

	f, err := resolveFormatter(cfg)
	if err != nil {
		return err
	}
	if err := f.FormatReport(os.Stdout, res, formatOpts()); err != nil {
		return err
	}

	if !res.Valid {
		return fmt.Errorf("%d validation finding(s)", len(res.Diagnostics))
	}
	return nil
}
