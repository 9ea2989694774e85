package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/proarc/proarc/pkg/proarc/adapter/database"
	"github.com/proarc/proarc/pkg/proarc/core/config"
	"github.com/proarc/proarc/pkg/proarc/infrastructure/migration"
)

func newMigrateCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations to the batch and workflow databases",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				resolver database.DBConnectionResolver
				cfg      *config.Config
			)
			return withApp(cmd.Context(), root.envFile, func(ctx context.Context) error {
				return migrateAll(resolver, cfg)
			}, &resolver, &cfg)
		},
	}
}

// migrateAll upgrades every database connection the repositories use.
func migrateAll(resolver database.DBConnectionResolver, cfg *config.Config) error {
	ctx := context.Background()
	seen := map[string]bool{}
	for _, name := range []string{cfg.ProArc.Infrastructure.BatchDBRef, cfg.ProArc.Infrastructure.WorkflowDBRef} {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		conn, err := resolver.ResolveDBConnection(ctx, name)
		if err != nil {
			return err
		}
		if err := migration.NewMigrator(conn).Up(ctx); err != nil {
			return err
		}
	}
	return nil
}
