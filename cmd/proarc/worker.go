package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/proarc/proarc/pkg/proarc/export/process"
	"github.com/proarc/proarc/pkg/proarc/server"
	"github.com/proarc/proarc/pkg/proarc/support/util/logger"
)

func newWorkerCommand(root *rootOptions) *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Process batches until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := []fx.Option{appOptions(root.envFile)}
			if migrate {
				opts = append(opts, fx.Invoke(migrateAll))
			}
			opts = append(opts, process.WorkerModule, server.Module)
			app := fx.New(opts...)
			if err := app.Err(); err != nil {
				return err
			}
			if err := app.Start(cmd.Context()); err != nil {
				return err
			}
			<-cmd.Context().Done()
			logger.Infof("Stopping worker.")
			stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
			defer cancel()
			return app.Stop(stopCtx)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply schema migrations before starting")
	return cmd
}
