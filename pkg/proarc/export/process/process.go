// Package process drives export batches from WAITING_EXPORT to a terminal
// state: it claims the batch, runs the producer of its profile, handles
// failed and invalid packages, chains BagIt and completes workflow tasks.
package process

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/proarc/proarc/pkg/proarc/core/config"
	"github.com/proarc/proarc/pkg/proarc/core/domain/model"
	"github.com/proarc/proarc/pkg/proarc/core/domain/repository"
	"github.com/proarc/proarc/pkg/proarc/export"
	"github.com/proarc/proarc/pkg/proarc/export/bagit"
	"github.com/proarc/proarc/pkg/proarc/infrastructure/metrics"
	"github.com/proarc/proarc/pkg/proarc/support/util/exception"
	"github.com/proarc/proarc/pkg/proarc/support/util/logger"
	"github.com/proarc/proarc/pkg/proarc/workflow"
)

// FolderDeletedMessage is logged when an incomplete NDK package was removed.
const FolderDeletedMessage = "Chybí URN:NBN identifikátor, složka s exportem byla smazána."

// Process runs export batches.
type Process struct {
	repo     repository.BatchRepository
	registry *export.Registry
	cfg      *config.ExportConfig
	wrapper  *bagit.Wrapper
	uploader *bagit.Uploader
	finisher workflow.TaskFinisher
	recorder metrics.MetricRecorder
	tracer   metrics.Tracer
}

// Options carries the optional collaborators of a Process.
type Options struct {
	Uploader *bagit.Uploader
	Finisher workflow.TaskFinisher
	Recorder metrics.MetricRecorder
	Tracer   metrics.Tracer
}

// New creates a process.
func New(repo repository.BatchRepository, registry *export.Registry, cfg *config.ExportConfig, opts Options) *Process {
	p := &Process{
		repo:     repo,
		registry: registry,
		cfg:      cfg,
		wrapper:  bagit.NewWrapper(cfg),
		uploader: opts.Uploader,
		finisher: opts.Finisher,
		recorder: opts.Recorder,
		tracer:   opts.Tracer,
	}
	if p.recorder == nil {
		p.recorder = metrics.NewPrometheusRecorder()
	}
	if p.tracer == nil {
		p.tracer = metrics.NewOpenTelemetryTracer()
	}
	return p
}

// outcome is the terminal state and log of a run.
type outcome struct {
	state model.BatchState
	log   exception.LogRecord
}

func failed(rec exception.LogRecord) outcome {
	return outcome{state: model.BatchExportFailed, log: rec}
}

// Run processes batch id. A batch that cannot be claimed (another worker
// owns it, or it is not waiting) is left alone.
func (p *Process) Run(ctx context.Context, id int64) error {
	b, ok, err := p.repo.ClaimBatch(ctx, id, []model.BatchState{model.BatchWaitingExport}, model.BatchExporting)
	if err != nil {
		return err
	}
	if !ok {
		logger.Debugf("Export batch %d not claimed (state %s).", id, stateOf(b))
		return nil
	}
	ctx, end := p.tracer.StartBatchSpan(ctx, b)
	started := time.Now()
	p.recorder.RecordBatchStart(ctx, b)
	logger.Infof("Export batch %d (%s) of %d root(s) started.", b.ID, b.Profile, len(b.Params.PIDs))

	res := p.export(ctx, b)

	if err := b.TransitionTo(res.state); err != nil {
		end(err)
		return err
	}
	b.Log = ""
	if res.log.Kind != "" || res.log.Message != "" {
		b.Log = res.log.String()
	}
	if err := p.repo.UpdateBatch(ctx, b); err != nil {
		end(err)
		return err
	}
	p.recorder.RecordBatchEnd(ctx, b, time.Since(started))
	logger.Infof("Export batch %d finished in %s.", b.ID, b.State)
	if res.state == model.BatchExportFailed {
		end(errors.New(res.log.Message))
	} else {
		end(nil)
	}
	return nil
}

func stateOf(b *model.Batch) model.BatchState {
	if b == nil {
		return ""
	}
	return b.State
}

func (p *Process) export(ctx context.Context, b *model.Batch) outcome {
	producer, err := p.registry.Producer(b.Profile)
	if err != nil {
		return failed(exception.FromError(err))
	}
	outputDir := export.UserFolder(p.cfg.Root, b.UserID)
	pctx, endProducer := p.tracer.StartSpan(ctx, "produce "+string(b.Profile), map[string]string{"proarc.output": outputDir})
	results, err := producer.Export(pctx, export.Request{
		BatchID:   b.ID,
		OutputDir: outputDir,
		PIDs:      b.Params.PIDs,
		Hierarchy: b.Params.Hierarchy,
		Params:    b.Params,
	})
	endProducer(err)
	if err != nil {
		return failed(exception.FromError(err))
	}
	for _, r := range results {
		p.recordResult(ctx, b.Profile, r)
	}

	sum := export.Summarize(results)
	b.Folder = p.relative(outputDir, sum.Folders)

	switch {
	case sum.Fatal != nil:
		p.markFailed(b, outputDir, sum.Folders)
		return failed(exception.FromError(sum.Fatal))
	case sum.Validation.Failed():
		if sum.Validation.OnlyMissingURNNBN() && p.cfg.NDK.DeletePackageOnMissingURNNBN {
			if err := removeAll(sum.Folders); err != nil {
				logger.Errorf("Batch %d: cannot delete incomplete package: %v", b.ID, err)
			}
			b.Folder = ""
			return failed(exception.LogRecord{
				Kind:    exception.KindValidation,
				Message: FolderDeletedMessage,
				Details: sum.Validation.Details(),
			})
		}
		p.markFailed(b, outputDir, sum.Folders)
		return failed(exception.LogRecord{
			Kind:    exception.KindValidation,
			Message: "Export validation failed",
			Details: sum.Validation.Details(),
		})
	}

	if b.Params.DryRun {
		if err := removeAll(sum.Folders); err != nil {
			logger.Warnf("Batch %d: cannot remove dry-run output: %v", b.ID, err)
		}
		b.Folder = ""
		return outcome{state: model.BatchExportDone}
	}

	if err := p.postProcess(ctx, b, results); err != nil {
		return failed(exception.FromError(err))
	}
	if err := p.finishTasks(ctx, b, results); err != nil {
		return outcome{state: model.BatchExportDoneWithWarning, log: exception.LogRecord{
			Kind:    exception.KindLinkage,
			Message: "Export finished but the workflow task could not be updated",
			Details: []exception.Detail{{Message: err.Error()}},
		}}
	}
	return outcome{state: model.BatchExportDone}
}

func (p *Process) recordResult(ctx context.Context, profile model.Profile, r export.Result) {
	switch {
	case r.Err != nil:
		p.recorder.RecordResult(ctx, profile, "failed")
	case r.ValidationError != nil:
		p.recorder.RecordResult(ctx, profile, "invalid")
	default:
		p.recorder.RecordResult(ctx, profile, "success")
		p.recorder.RecordPages(ctx, profile, r.PageCount)
	}
}

// bagitRequested reports whether successful packages get wrapped.
func (p *Process) bagitRequested(b *model.Batch) bool {
	if b.Profile == model.ProfileArchive {
		return p.cfg.Archive.Bagit || b.Params.Bagit
	}
	return b.Params.Bagit
}

// postProcess wraps every package directory into a bag and, for NDK only,
// uploads the bags to long-term preservation storage. Any failure leaves the
// package where it is for manual recovery.
func (p *Process) postProcess(ctx context.Context, b *model.Batch, results []export.Result) error {
	if !p.bagitRequested(b) {
		return nil
	}
	upload := b.Profile == model.ProfileNDK && b.Params.LtpUpload
	if upload && !p.uploader.Enabled() {
		return exception.NewConfigurationError("export", "LTP upload requested but not configured", nil)
	}
	for _, r := range results {
		if r.Target == "" {
			continue
		}
		info, err := os.Stat(r.Target)
		if err != nil {
			return exception.NewExportError(r.PID, "", "package missing", err)
		}
		if !info.IsDir() {
			logger.Debugf("Batch %d: %s is not a folder; no bag created.", b.ID, r.Target)
			continue
		}
		bag, err := p.wrapper.Wrap(ctx, r.Target)
		if err != nil {
			p.recorder.RecordBag(ctx, false, err)
			return err
		}
		if upload {
			err = p.uploader.Upload(ctx, bag)
		}
		p.recorder.RecordBag(ctx, upload, err)
		if err != nil {
			return err
		}
		p.tracer.RecordEvent(ctx, "bagit", map[string]string{"proarc.pid": r.PID, "proarc.bag": bag.Zip})
	}
	return nil
}

// finishTasks completes the workflow task of every exported root.
func (p *Process) finishTasks(ctx context.Context, b *model.Batch, results []export.Result) error {
	taskType := workflow.TaskType(b.Profile, b.Params)
	if p.finisher == nil || taskType == "" {
		return nil
	}
	var result *multierror.Error
	for _, r := range results {
		if r.Target == "" {
			continue
		}
		pages := r.PageCount
		if err := p.finisher.FinishTask(ctx, r.PID, taskType, &pages); err != nil {
			logger.Warnf("Batch %d: %v", b.ID, err)
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// markFailed renames the target folders and records the first new name.
func (p *Process) markFailed(b *model.Batch, outputDir string, folders []string) {
	renamed := make([]string, 0, len(folders))
	for _, f := range folders {
		to, err := export.MarkFailed(f)
		if err != nil {
			logger.Errorf("Batch %d: cannot mark %s as failed: %v", b.ID, f, err)
			continue
		}
		renamed = append(renamed, to)
	}
	if len(renamed) > 0 {
		b.Folder = p.relative(outputDir, renamed)
	}
}

func (p *Process) relative(outputDir string, folders []string) string {
	if len(folders) == 0 {
		return ""
	}
	rel, err := filepath.Rel(outputDir, folders[0])
	if err != nil {
		return folders[0]
	}
	return filepath.ToSlash(rel)
}

func removeAll(folders []string) error {
	var result *multierror.Error
	for _, f := range folders {
		if err := os.RemoveAll(f); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
