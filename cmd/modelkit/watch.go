package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cesdm/modelkit/bootstrap"
	"github.com/cesdm/modelkit/core/schema"
	"github.com/cesdm/modelkit/core/validation"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch schema files and revalidate on change",
	Long: `Watch the configured schema paths, reload the schema whenever a file
changes and rerun validation against the configured model data. Runs
until interrupted.

Examples:
  modelkit watch -s schema/ --data model.json`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadProject()
	if err != nil {
		return err
	}
	logger := bootstrap.SetupLogger(cfg.Logging)

	if len(cfg.Schema.Paths) == 0 {
		return fmt.Errorf("no schema paths configured: set schema.paths or pass --schema")
	}

	f, err := resolveFormatter(cfg)
	if err != nil {
		return err
	}

	holder, err := schema.NewHolder(cfg.Schema.Paths, logger)
	if err != nil {
		return err
	}

	check := func(rs *schema.Resolved) {
		m, err := bootstrap.BuildModel(cfg, logger, rs)
		if err != nil {
			fmt.Printf("%s %v\n", crossMark, err)
			return
		}
		res := validation.Validate(m)
		if err := f.FormatReport(os.Stdout, res, formatOpts()); err != nil {
			logger.Error().Err(err).Msg("format report")
		}
	}

	holder.OnChange(check)
	if err := holder.Watch(); err != nil {
		return err
	}
	defer holder.Stop()

	check(holder.Get())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info().Msg("watch stopped")
	return nil
}
