package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/proarc/proarc/pkg/proarc/core/domain/model"
	"github.com/proarc/proarc/pkg/proarc/core/domain/repository"
	"github.com/proarc/proarc/pkg/proarc/ingest"
)

func newImportCommand(root *rootOptions) *cobra.Command {
	var (
		params model.BatchParams
		userID int64
	)
	cmd := &cobra.Command{
		Use:   "import FOLDER",
		Short: "Load a staged FOXML folder and ingest it into the repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				loader   *ingest.Loader
				importer *ingest.Importer
				repo     repository.BatchRepository
			)
			return withApp(cmd.Context(), root.envFile, func(ctx context.Context) error {
				b, err := loader.Load(ctx, args[0], params, userID)
				if err != nil {
					return err
				}
				if b.State != model.BatchLoaded {
					return fmt.Errorf("batch %d stopped in state %s", b.ID, b.State)
				}
				if err := importer.Ingest(ctx, b.ID); err != nil {
					return err
				}
				if b, err = repo.FindBatch(ctx, b.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "batch %d %s\n", b.ID, b.State)
				if b.State != model.BatchIngested {
					return fmt.Errorf("batch %d: %s", b.ID, b.Log)
				}
				return nil
			}, &loader, &importer, &repo)
		},
	}
	cmd.Flags().StringVar(&params.ParentPID, "parent", "", "repository object the imported roots are appended to")
	cmd.Flags().StringVar(&params.Owner, "owner", "", "owner recorded on the ingested objects")
	cmd.Flags().Int64Var(&userID, "user", 0, "id of the user owning the batch")
	return cmd
}
