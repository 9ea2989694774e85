package process

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/proarc/proarc/pkg/proarc/core/config"
	"github.com/proarc/proarc/pkg/proarc/core/domain/model"
	"github.com/proarc/proarc/pkg/proarc/export"
	"github.com/proarc/proarc/pkg/proarc/infrastructure/repository/inmemory"
	"github.com/proarc/proarc/pkg/proarc/support/util/exception"
	"github.com/proarc/proarc/pkg/proarc/transform"
	"github.com/proarc/proarc/pkg/proarc/workflow"
)

type mockFinisher struct {
	mock.Mock
}

func (m *mockFinisher) FinishTask(ctx context.Context, rootPID, taskType string, param *int) error {
	args := m.Called(ctx, rootPID, taskType, *param)
	return args.Error(0)
}

// registryWith serves profile with p and every other profile with a
// producer that fails the test when called.
func registryWith(t *testing.T, profile model.Profile, p export.Producer) *export.Registry {
	t.Helper()
	producers := map[model.Profile]export.Producer{}
	for _, prof := range model.ExportProfiles() {
		producers[prof] = export.ProducerFunc(func(context.Context, export.Request) ([]export.Result, error) {
			t.Fatalf("unexpected producer call")
			return nil, nil
		})
	}
	producers[profile] = p
	r, err := export.NewRegistry(producers)
	require.NoError(t, err)
	return r
}

// packageProducer writes one file per PID into <prefix>_<n>/<pid>.
func packageProducer(prefix string, outcome func(pid, folder, target string) export.Result) export.Producer {
	return export.ProducerFunc(func(_ context.Context, req export.Request) ([]export.Result, error) {
		folder, err := export.CreateFolder(req.OutputDir, prefix)
		if err != nil {
			return nil, err
		}
		var results []export.Result
		for _, pid := range req.PIDs {
			target := filepath.Join(folder, "pkg_"+pid)
			if err := os.MkdirAll(target, 0o755); err != nil {
				return nil, err
			}
			if err := os.WriteFile(filepath.Join(target, "mets.xml"), []byte("<mets/>"), 0o644); err != nil {
				return nil, err
			}
			results = append(results, outcome(pid, folder, target))
		}
		return results, nil
	})
}

func succeed(pid, folder, target string) export.Result {
	return export.Success(pid, folder, target, 3)
}

type fixture struct {
	repo *inmemory.BatchRepository
	cfg  *config.ExportConfig
}

func newFixture(t *testing.T) *fixture {
	cfg := config.NewConfig().ProArc.Export
	cfg.Root = t.TempDir()
	return &fixture{repo: inmemory.NewBatchRepository(), cfg: &cfg}
}

func (f *fixture) submit(t *testing.T, profile model.Profile, params model.BatchParams) *model.Batch {
	t.Helper()
	if params.PIDs == nil {
		params.PIDs = []string{"uuid:1"}
	}
	b := model.NewExportBatch(profile, params, 7)
	require.NoError(t, f.repo.CreateBatch(context.Background(), b))
	return b
}

func (f *fixture) reload(t *testing.T, id int64) (*model.Batch, exception.LogRecord) {
	t.Helper()
	b, err := f.repo.FindBatch(context.Background(), id)
	require.NoError(t, err)
	return b, exception.ParseLogRecord(b.Log)
}

func (f *fixture) userDir() string { return export.UserFolder(f.cfg.Root, 7) }

func TestRunSuccessFinishesWorkflowTask(t *testing.T) {
	f := newFixture(t)
	finisher := &mockFinisher{}
	finisher.On("FinishTask", mock.Anything, "uuid:1", workflow.TaskExportKramerius, 3).Return(nil)
	p := New(f.repo, registryWith(t, model.ProfileKramerius, packageProducer("k4", succeed)), f.cfg, Options{Finisher: finisher})
	b := f.submit(t, model.ProfileKramerius, model.BatchParams{})

	require.NoError(t, p.Run(context.Background(), b.ID))

	got, _ := f.reload(t, b.ID)
	assert.Equal(t, model.BatchExportDone, got.State)
	assert.Equal(t, "k4_1", got.Folder)
	assert.Empty(t, got.Log)
	assert.DirExists(t, filepath.Join(f.userDir(), "k4_1", "pkg_uuid:1"))
	finisher.AssertExpectations(t)
}

func TestRunWorkflowFailureIsWarning(t *testing.T) {
	f := newFixture(t)
	finisher := &mockFinisher{}
	finisher.On("FinishTask", mock.Anything, "uuid:1", workflow.TaskExportKramerius, 3).
		Return(exception.NewLinkageError("uuid:1", "no task", nil))
	p := New(f.repo, registryWith(t, model.ProfileKramerius, packageProducer("k4", succeed)), f.cfg, Options{Finisher: finisher})
	b := f.submit(t, model.ProfileKramerius, model.BatchParams{})

	require.NoError(t, p.Run(context.Background(), b.ID))

	got, log := f.reload(t, b.ID)
	assert.Equal(t, model.BatchExportDoneWithWarning, got.State)
	assert.Equal(t, exception.KindLinkage, log.Kind)
	require.Len(t, log.Details, 1)
}

func TestRunFatalMarksFolderFailed(t *testing.T) {
	f := newFixture(t)
	producer := packageProducer("k4", func(pid, folder, _ string) export.Result {
		return export.Failed(pid, folder, exception.NewExportError(pid, "FULL", "cannot read", errors.New("disk")))
	})
	p := New(f.repo, registryWith(t, model.ProfileKramerius, producer), f.cfg, Options{})
	b := f.submit(t, model.ProfileKramerius, model.BatchParams{})

	require.NoError(t, p.Run(context.Background(), b.ID))

	got, log := f.reload(t, b.ID)
	assert.Equal(t, model.BatchExportFailed, got.State)
	assert.Equal(t, "failed_k4_1", got.Folder)
	assert.DirExists(t, filepath.Join(f.userDir(), "failed_k4_1"))
	assert.NoDirExists(t, filepath.Join(f.userDir(), "k4_1"))
	assert.Equal(t, exception.KindExport, log.Kind)
	assert.Equal(t, "cannot read", log.Message)
	require.Len(t, log.Details, 1)
	assert.Equal(t, "uuid:1", log.Details[0].PID)
}

func TestRunMissingURNNBNDeletesPackage(t *testing.T) {
	f := newFixture(t)
	f.cfg.NDK.DeletePackageOnMissingURNNBN = true
	producer := packageProducer("ndk", func(pid, folder, _ string) export.Result {
		v := &export.ValidationError{}
		v.Add(pid, export.MissingURNNBN, false)
		return export.Invalid(pid, folder, v)
	})
	p := New(f.repo, registryWith(t, model.ProfileNDK, producer), f.cfg, Options{})
	b := f.submit(t, model.ProfileNDK, model.BatchParams{})

	require.NoError(t, p.Run(context.Background(), b.ID))

	got, log := f.reload(t, b.ID)
	assert.Equal(t, model.BatchExportFailed, got.State)
	assert.Empty(t, got.Folder)
	assert.NoDirExists(t, filepath.Join(f.userDir(), "ndk_1"))
	assert.Equal(t, FolderDeletedMessage, log.Message)
	assert.Equal(t, exception.KindValidation, log.Kind)
	require.Len(t, log.Details, 1)
	assert.Equal(t, "uuid:1", log.Details[0].PID)
}

func TestRunValidationKeepsRenamedFolder(t *testing.T) {
	f := newFixture(t)
	f.cfg.NDK.DeletePackageOnMissingURNNBN = true
	producer := packageProducer("ndk", func(pid, folder, _ string) export.Result {
		v := &export.ValidationError{}
		v.Add(pid, export.MissingURNNBN, false)
		v.Add("uuid:page", "Missing RAW datastream", false)
		return export.Invalid(pid, folder, v)
	})
	p := New(f.repo, registryWith(t, model.ProfileNDK, producer), f.cfg, Options{})
	b := f.submit(t, model.ProfileNDK, model.BatchParams{})

	require.NoError(t, p.Run(context.Background(), b.ID))

	got, log := f.reload(t, b.ID)
	assert.Equal(t, model.BatchExportFailed, got.State)
	assert.Equal(t, "failed_ndk_1", got.Folder)
	assert.DirExists(t, filepath.Join(f.userDir(), "failed_ndk_1"))
	assert.Len(t, log.Details, 2)
}

func TestRunArchiveWrapsBag(t *testing.T) {
	f := newFixture(t)
	f.cfg.Archive.Bagit = true
	p := New(f.repo, registryWith(t, model.ProfileArchive, packageProducer("archive", succeed)), f.cfg, Options{})
	b := f.submit(t, model.ProfileArchive, model.BatchParams{})

	require.NoError(t, p.Run(context.Background(), b.ID))

	got, _ := f.reload(t, b.ID)
	assert.Equal(t, model.BatchExportDone, got.State)
	folder := filepath.Join(f.userDir(), "archive_1")
	assert.FileExists(t, filepath.Join(folder, "bagit_pkg_uuid:1.zip"))
	assert.FileExists(t, filepath.Join(folder, "bagit_pkg_uuid:1.zip.md5"))
	assert.FileExists(t, filepath.Join(folder, "bagit_pkg_uuid:1", "data", "mets.xml"))
}

func TestRunLtpUploadWithoutStorageFails(t *testing.T) {
	f := newFixture(t)
	p := New(f.repo, registryWith(t, model.ProfileNDK, packageProducer("ndk", succeed)), f.cfg, Options{})
	b := f.submit(t, model.ProfileNDK, model.BatchParams{Bagit: true, LtpUpload: true})

	require.NoError(t, p.Run(context.Background(), b.ID))

	got, log := f.reload(t, b.ID)
	assert.Equal(t, model.BatchExportFailed, got.State)
	assert.Equal(t, exception.KindConfiguration, log.Kind)
	assert.DirExists(t, filepath.Join(f.userDir(), "ndk_1", "pkg_uuid:1"))
}

func TestRunDryRunRemovesOutput(t *testing.T) {
	f := newFixture(t)
	finisher := &mockFinisher{}
	p := New(f.repo, registryWith(t, model.ProfileNDK, packageProducer("ndk", succeed)), f.cfg, Options{Finisher: finisher})
	b := f.submit(t, model.ProfileNDK, model.BatchParams{DryRun: true})

	require.NoError(t, p.Run(context.Background(), b.ID))

	got, _ := f.reload(t, b.ID)
	assert.Equal(t, model.BatchExportDone, got.State)
	assert.NoDirExists(t, filepath.Join(f.userDir(), "ndk_1"))
	finisher.AssertNotCalled(t, "FinishTask", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRunUnknownProfile(t *testing.T) {
	f := newFixture(t)
	p := New(f.repo, registryWith(t, model.ProfileNDK, packageProducer("ndk", succeed)), f.cfg, Options{})
	b := f.submit(t, model.Profile("FOO"), model.BatchParams{})

	require.NoError(t, p.Run(context.Background(), b.ID))

	got, log := f.reload(t, b.ID)
	assert.Equal(t, model.BatchExportFailed, got.State)
	assert.Equal(t, exception.KindConfiguration, log.Kind)
	assert.Contains(t, log.Message, "Unknown export profile")
}

func TestRunSkipsUnclaimableBatch(t *testing.T) {
	f := newFixture(t)
	called := false
	producer := export.ProducerFunc(func(context.Context, export.Request) ([]export.Result, error) {
		called = true
		return nil, nil
	})
	p := New(f.repo, registryWith(t, model.ProfileNDK, producer), f.cfg, Options{})
	b := model.NewExportBatch(model.ProfileNDK, model.BatchParams{PIDs: []string{"uuid:1"}}, 7)
	b.State = model.BatchExportDone
	require.NoError(t, f.repo.CreateBatch(context.Background(), b))

	require.NoError(t, p.Run(context.Background(), b.ID))

	got, _ := f.reload(t, b.ID)
	assert.False(t, called)
	assert.Equal(t, model.BatchExportDone, got.State)
	assert.Equal(t, b.Version, got.Version)
}

func TestProducerRegistryServesEveryProfile(t *testing.T) {
	cfg := config.NewConfig().ProArc.Export
	r, err := NewProducerRegistry(nil, transform.NewEngine(), &cfg)
	require.NoError(t, err)
	for _, p := range model.ExportProfiles() {
		producer, err := r.Producer(p)
		assert.NoError(t, err, p)
		assert.NotNil(t, producer, p)
	}
}

type recordingQueue struct {
	ids []int64
}

func (q *recordingQueue) Submit(id int64) error {
	q.ids = append(q.ids, id)
	return nil
}

type nopImporter struct{}

func (nopImporter) Ingest(context.Context, int64) error { return nil }
func (nopImporter) Repair(context.Context, int64) error { return nil }

func TestResumeAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	waiting := f.submit(t, model.ProfileNDK, model.BatchParams{})
	running := f.submit(t, model.ProfileNDK, model.BatchParams{})
	_, ok, err := f.repo.ClaimBatch(ctx, running.ID, []model.BatchState{model.BatchWaitingExport}, model.BatchExporting)
	require.NoError(t, err)
	require.True(t, ok)
	ingesting := &model.Batch{Profile: model.ProfileImport, State: model.BatchIngesting}
	require.NoError(t, f.repo.CreateBatch(ctx, ingesting))
	done := &model.Batch{Profile: model.ProfileNDK, State: model.BatchExportDone}
	require.NoError(t, f.repo.CreateBatch(ctx, done))

	p := New(f.repo, registryWith(t, model.ProfileNDK, packageProducer("ndk", succeed)), f.cfg, Options{})
	router := NewRouter(f.repo, p, nopImporter{})
	q := &recordingQueue{}
	require.NoError(t, router.ResumeAll(ctx, q))

	assert.ElementsMatch(t, []int64{waiting.ID, ingesting.ID}, q.ids)
	got, log := f.reload(t, running.ID)
	assert.Equal(t, model.BatchExportFailed, got.State)
	assert.Equal(t, InterruptedMessage, log.Message)
	got, _ = f.reload(t, done.ID)
	assert.Equal(t, model.BatchExportDone, got.State)

	// A second resume changes nothing for terminal batches.
	q.ids = nil
	require.NoError(t, router.ResumeAll(ctx, q))
	assert.ElementsMatch(t, []int64{waiting.ID, ingesting.ID}, q.ids)
}

func TestRouterRunsWaitingExport(t *testing.T) {
	f := newFixture(t)
	p := New(f.repo, registryWith(t, model.ProfileKramerius, packageProducer("k4", succeed)), f.cfg, Options{})
	b := f.submit(t, model.ProfileKramerius, model.BatchParams{})

	require.NoError(t, NewRouter(f.repo, p, nil).Handle(context.Background(), b.ID))

	got, _ := f.reload(t, b.ID)
	assert.Equal(t, model.BatchExportDone, got.State)
}

func TestDispatcherRunsSubmittedBatches(t *testing.T) {
	var mu sync.Mutex
	seen := map[int64]bool{}
	all := make(chan struct{})
	handler := HandlerFunc(func(_ context.Context, id int64) error {
		mu.Lock()
		defer mu.Unlock()
		seen[id] = true
		if len(seen) == 3 {
			close(all)
		}
		return nil
	})
	d := NewDispatcher(handler, nil, config.WorkerConfig{PoolSize: 2, QueueSize: 4})
	assert.ErrorIs(t, d.Submit(1), ErrNotRunning)

	d.Start(context.Background())
	for id := int64(1); id <= 3; id++ {
		require.NoError(t, d.Submit(id))
	}
	select {
	case <-all:
	case <-time.After(5 * time.Second):
		t.Fatal("batches were not handled")
	}
	d.Stop()
	assert.ErrorIs(t, d.Submit(4), ErrNotRunning)
}

func TestDispatcherStopLetsRunningBatchFinish(t *testing.T) {
	f := newFixture(t)
	started := make(chan struct{})
	release := make(chan struct{})
	inner := packageProducer("k4", succeed)
	producer := export.ProducerFunc(func(ctx context.Context, req export.Request) ([]export.Result, error) {
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return inner.Export(ctx, req)
	})
	p := New(f.repo, registryWith(t, model.ProfileKramerius, producer), f.cfg, Options{})
	b := f.submit(t, model.ProfileKramerius, model.BatchParams{})

	d := NewDispatcher(HandlerFunc(p.Run), nil, config.WorkerConfig{PoolSize: 1, QueueSize: 2})
	d.Start(context.Background())
	require.NoError(t, d.Submit(b.ID))
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("batch was not started")
	}

	stopped := make(chan struct{})
	go func() {
		d.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
		t.Fatal("Stop returned while a batch was running")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return")
	}

	got, _ := f.reload(t, b.ID)
	assert.Equal(t, model.BatchExportDone, got.State)
	assert.Empty(t, got.Log)
}

func TestSubmitExport(t *testing.T) {
	f := newFixture(t)
	q := &recordingQueue{}
	s := NewSubmitter(f.repo, q)

	b, err := s.SubmitExport(context.Background(), model.ProfileCrossref, model.BatchParams{PIDs: []string{"uuid:1"}}, 3)
	require.NoError(t, err)
	assert.Equal(t, model.BatchWaitingExport, b.State)
	assert.Equal(t, []int64{b.ID}, q.ids)

	_, err = s.SubmitExport(context.Background(), model.Profile("FOO"), model.BatchParams{PIDs: []string{"uuid:1"}}, 3)
	assert.Error(t, err)
	_, err = s.SubmitExport(context.Background(), model.ProfileNDK, model.BatchParams{}, 3)
	assert.Error(t, err)
}
