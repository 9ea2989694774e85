package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/proarc/proarc/pkg/proarc/core/domain/repository"
	"github.com/proarc/proarc/pkg/proarc/report"
)

func newReportCommand(root *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write the batch history as parquet files",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				writer *report.Writer
				repo   repository.BatchRepository
			)
			return withApp(cmd.Context(), root.envFile, func(ctx context.Context) error {
				names, err := writer.Generate(ctx, repo, limit)
				for _, n := range names {
					fmt.Fprintln(cmd.OutOrStdout(), n)
				}
				return err
			}, &writer, &repo)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of batches, 0 for all")
	return cmd
}
