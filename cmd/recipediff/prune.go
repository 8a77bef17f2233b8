package main

import (
	"fmt"
	"time"

	"github.com/alchemorsel/recipediff/internal/application/revision"
	"github.com/alchemorsel/recipediff/internal/infrastructure/persistence"
	gormRepo "github.com/alchemorsel/recipediff/internal/infrastructure/persistence/gorm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newPruneCmd(root *rootOptions) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete archived revisions past the retention period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := root.load()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			if !cmd.Flags().Changed("older-than") {
				olderThan = cfg.Retention.OlderThan
			}

			ctx := cmd.Context()
			db, err := persistence.Open(ctx, cfg, log)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() {
				if err := db.Close(); err != nil {
					log.Warn("Failed to close database", zap.Error(err))
				}
			}()

			service := revision.NewService(gormRepo.NewRevisionRepository(db.DB), nil, nil, log)
			n, err := service.PruneArchived(ctx, olderThan)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d archived revisions\n", n)
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", revision.DefaultRetention, "Delete revisions archived longer ago than this")
	return cmd
}
