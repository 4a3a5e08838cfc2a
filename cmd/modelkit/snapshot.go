package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cesdm/modelkit/bootstrap"
	"github.com/cesdm/modelkit/core/model"
	"github.com/cesdm/modelkit/core/storage"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Write the model to a SQLite snapshot",
	Long: `Write the current model into a SQLite database, one table per class
with one row per entity.

Examples:
  modelkit snapshot
  modelkit snapshot --db backups/model.db`,
	RunE: runSnapshot,
}

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Rebuild the model from a SQLite snapshot",
	Long: `Rebuild a model from a SQLite snapshot against the configured schema
and print the restore summary. The restored model is only written to
disk when --out is given.

Examples:
  modelkit restore --db backups/model.db --out model.json`,
	RunE: runRestore,
}

var (
	snapshotDB string
	restoreDB  string
	restoreOut string
)

func init() {
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(restoreCmd)

	snapshotCmd.Flags().StringVar(&snapshotDB, "db", "", "snapshot database path (default: snapshot.path from config)")

	restoreCmd.Flags().StringVar(&restoreDB, "db", "", "snapshot database path (default: snapshot.path from config)")
	restoreCmd.Flags().StringVar(&restoreOut, "out", "", "write the restored model to this file")
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	cfg, err := loadProject()
	if err != nil {
		return err
	}
	logger := bootstrap.SetupLogger(cfg.Logging)

	m, err := bootstrap.LoadModel(cfg, logger)
	if err != nil {
		return err
	}

	path := snapshotDB
	if path == "" {
		path = cfg.Snapshot.Path
	}

	store, err := storage.NewSQLiteStore(path)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Snapshot(cmd.Context(), m); err != nil {
		return err
	}

	fmt.Printf("%s Snapshot of %d entities written to %s\n", checkMark, m.Len(), path)
	return nil
}

func runRestore(cmd *cobra.Command, args []string) error {
	cfg, err := loadProject()
	if err != nil {
		return err
	}
	logger := bootstrap.SetupLogger(cfg.Logging)

	rs, err := bootstrap.LoadSchema(cfg.Schema.Paths)
	if err != nil {
		return err
	}
	m := model.New(rs, logger)

	path := restoreDB
	if path == "" {
		path = cfg.Snapshot.Path
	}

	store, err := storage.NewSQLiteStore(path)
	if err != nil {
		return err
	}
	defer store.Close()

	sum, err := store.Restore(cmd.Context(), m)
	if err != nil {
		return err
	}

	f, err := resolveFormatter(cfg)
	if err != nil {
		return err
	}
	if err := f.FormatSummary(os.Stdout, sum, formatOpts()); err != nil {
		return err
	}

	return saveModel(cfg, logger, m, restoreOut)
}
