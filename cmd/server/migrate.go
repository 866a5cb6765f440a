package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/soaringjerry/VisitPulse/internal/api"
	"github.com/soaringjerry/VisitPulse/internal/catalog"
)

func newMigrateCmd(c *cli) *cobra.Command {
	var snapshot string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply SQLite migrations and optionally import a JSON snapshot",
		Long: `Applies pending migrations to the database at VISITPULSE_DB_PATH.

With --import, rows from a JSON export (the body of GET /api/survey-responses)
are copied into the database. The import only runs against an empty table.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return migrate(cmd.Context(), c, snapshot)
		},
	}
	cmd.Flags().StringVar(&snapshot, "import", "", "JSON snapshot to import into an empty database")
	return cmd
}

func migrate(ctx context.Context, c *cli, snapshot string) error {
	if c.cfg.DBPath == "" {
		return errors.New("VISITPULSE_DB_PATH is required for migrate")
	}
	store, err := openSQLite(ctx, c.cfg, c.log)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			c.log.Warn("close store", "error", err)
		}
	}()
	if snapshot == "" {
		return nil
	}

	existing, err := store.ListResponses(ctx)
	if err != nil {
		return fmt.Errorf("check existing rows: %w", err)
	}
	if len(existing) > 0 {
		c.log.Info("database already holds responses, skipping import", "rows", len(existing))
		return nil
	}
	cat, err := catalog.Load(c.cfg.CatalogPath)
	if err != nil {
		return err
	}
	rows, err := api.LoadSnapshot(snapshot, cat)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	c.log.Info("importing snapshot", "path", snapshot, "rows", len(rows))
	n, err := api.CopySnapshot(ctx, rows, store)
	if err != nil {
		return fmt.Errorf("copy data: %w", err)
	}
	c.log.Info("snapshot import completed", "rows", n)
	return nil
}
