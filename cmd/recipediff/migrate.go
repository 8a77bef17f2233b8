package main

import (
	"fmt"

	"github.com/alchemorsel/recipediff/internal/infrastructure/persistence"
	"github.com/alchemorsel/recipediff/internal/infrastructure/persistence/migrations"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newMigrateCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|version]",
		Short:     "Manage the revision store schema",
		Long:      "Apply, roll back or inspect postgres migrations. SQLite stores are migrated automatically when opened.",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"up", "down", "version"},
		RunE: func(cmd *cobra.Command, args []string) error {
			action := "up"
			if len(args) == 1 {
				action = args[0]
			}

			cfg, log, err := root.load()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			out := cmd.OutOrStdout()
			if cfg.Database.Driver != "postgres" {
				db, err := persistence.Open(cmd.Context(), cfg, log)
				if err != nil {
					return err
				}
				defer db.Close()
				fmt.Fprintf(out, "%s schema is up to date\n", cfg.Database.Driver)
				return nil
			}

			m, err := migrations.Open(cfg.GetDSN(), cfg.Database.Database, log)
			if err != nil {
				return err
			}
			defer func() {
				if err := m.Close(); err != nil {
					log.Warn("Failed to close migrator", zap.Error(err))
				}
			}()

			switch action {
			case "up":
				if err := m.Up(); err != nil {
					return err
				}
			case "down":
				if err := m.Steps(-1); err != nil {
					return err
				}
			case "version":
			default:
				return fmt.Errorf("unknown migrate action %q", action)
			}

			version, dirty, err := m.Version()
			if err != nil {
				return err
			}
			state := color.GreenString("clean")
			if dirty {
				state = color.RedString("dirty")
			}
			fmt.Fprintf(out, "Schema version %d (%s)\n", version, state)
			return nil
		},
	}
}
