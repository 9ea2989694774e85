package main

import (
	"os"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	envFile string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "proarc",
		Short: "ProArc export and import pipeline",
		Long: `proarc runs the export and import batches of a ProArc digitization
repository: METS packages for NDK, Kramerius, archive, DESA, CEJSH, Crossref
and KWIS, datastream exports, and FOXML imports.`,
		SilenceUsage: true,
	}
	envFile := os.Getenv("ENV_FILE_PATH")
	if envFile == "" {
		envFile = ".env"
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", envFile, "dotenv file loaded before the configuration")

	cmd.AddCommand(
		newWorkerCommand(opts),
		newExportCommand(opts),
		newImportCommand(opts),
		newMigrateCommand(opts),
		newReportCommand(opts),
	)
	return cmd
}
