package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/proarc/proarc/pkg/proarc/core/domain/model"
	"github.com/proarc/proarc/pkg/proarc/export/process"
	"github.com/proarc/proarc/pkg/proarc/support/util/logger"
)

type exportOptions struct {
	profile    string
	pids       []string
	dsIDs      []string
	userID     int64
	run        bool
	params     model.BatchParams
	ndkVariant string
}

func newExportCommand(root *rootOptions) *cobra.Command {
	opts := &exportOptions{}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Create an export batch and optionally run it in place",
		Example: `  proarc export --profile NDK --pid uuid:... --hierarchy --run
  proarc export --profile DATASTREAM --pid uuid:... --ds FULL`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			profile, err := model.ParseProfile(opts.profile)
			if err != nil {
				return err
			}
			params := opts.params
			params.PIDs = opts.pids
			params.DatastreamIDs = opts.dsIDs
			params.NdkVariant = opts.ndkVariant

			var (
				submitter *process.Submitter
				proc      *process.Process
			)
			return withApp(cmd.Context(), root.envFile, func(ctx context.Context) error {
				b, err := submitter.SubmitExport(ctx, profile, params, opts.userID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "batch %d %s\n", b.ID, b.State)
				if !opts.run {
					return nil
				}
				if err := proc.Run(ctx, b.ID); err != nil {
					return err
				}
				logger.Infof("Batch %d processed.", b.ID)
				return nil
			}, &submitter, &proc)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.profile, "profile", "", "export profile (NDK, KRAMERIUS, ARCHIVE, DESA, CEJSH, CROSSREF, KWIS, DATASTREAM)")
	f.StringSliceVar(&opts.pids, "pid", nil, "object to export, may be repeated")
	f.StringSliceVar(&opts.dsIDs, "ds", nil, "datastream id for the DATASTREAM profile")
	f.Int64Var(&opts.userID, "user", 0, "id of the user owning the batch")
	f.BoolVar(&opts.params.Hierarchy, "hierarchy", false, "include descendants")
	f.BoolVar(&opts.params.DryRun, "dry-run", false, "validate only, remove the output afterwards")
	f.BoolVar(&opts.params.Bagit, "bagit", false, "wrap packages into BagIt archives")
	f.BoolVar(&opts.params.LtpUpload, "ltp-upload", false, "upload NDK packages to the long term preservation storage")
	f.StringVar(&opts.params.LtpToken, "ltp-token", "", "token passed to the preservation storage")
	f.StringVar(&opts.ndkVariant, "ndk-variant", "", "psp, sip or stt")
	f.StringVar(&opts.params.Policy, "policy", "", "Kramerius access policy")
	f.StringVar(&opts.params.TargetInstance, "kramerius-instance", "", "target Kramerius instance")
	f.BoolVar(&opts.params.IgnoreMissingURNNBN, "ignore-missing-urnnbn", false, "accept NDK objects without URN:NBN")
	f.BoolVar(&opts.run, "run", false, "process the batch in this process instead of leaving it to a worker")
	_ = cmd.MarkFlagRequired("profile")
	_ = cmd.MarkFlagRequired("pid")
	return cmd
}
