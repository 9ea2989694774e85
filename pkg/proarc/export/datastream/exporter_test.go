package datastream

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proarc/proarc/pkg/proarc/core/domain/model"
	"github.com/proarc/proarc/pkg/proarc/export"
	"github.com/proarc/proarc/pkg/proarc/fedora"
	"github.com/proarc/proarc/pkg/proarc/fedora/fedoratest"
	"github.com/proarc/proarc/pkg/proarc/support/util/exception"
)

type countingStorage struct {
	fedora.Storage
	mu    sync.Mutex
	finds map[string]int
}

func (s *countingStorage) Find(ctx context.Context, pid string) (fedora.RepositoryObject, error) {
	s.mu.Lock()
	s.finds[pid]++
	s.mu.Unlock()
	return s.Storage.Find(ctx, pid)
}

func listFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestExportOnlyExistingStreams(t *testing.T) {
	ctx := context.Background()
	store := fedoratest.NewStore(t)
	fedoratest.Ingest(t, store,
		fedora.NewObjectBuilder("uuid:root", model.ModelNdkMonographVolume, "root").Members("uuid:child1", "uuid:child2"),
		fedora.NewObjectBuilder("uuid:child1", model.ModelNdkPage, "1").Managed("THUMB", "thumb", "image/jpeg", []byte{0xff, 0xd8, 0x01}),
		fedora.NewObjectBuilder("uuid:child2", model.ModelNdkPage, "2"),
	)

	ex := NewExporter(store)
	out := t.TempDir()
	folder, err := ex.Export(ctx, out, true, []string{"uuid:root"}, []string{"THUMB"})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(out, "datastream_1"), folder)
	assert.Equal(t, []string{"child1.jpeg"}, listFiles(t, folder))
	data, err := os.ReadFile(filepath.Join(folder, "child1.jpeg"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8, 0x01}, data)
	assert.Equal(t, []string{"uuid:child1", "uuid:child2", "uuid:root"}, ex.Visited())
}

func TestExportWithoutHierarchy(t *testing.T) {
	ctx := context.Background()
	store := fedoratest.NewStore(t)
	fedoratest.Ingest(t, store,
		fedora.NewObjectBuilder("uuid:root", model.ModelNdkMonographVolume, "root").
			Members("uuid:child1").
			Managed("THUMB", "thumb", "image/png", []byte("png")),
		fedora.NewObjectBuilder("uuid:child1", model.ModelNdkPage, "1").Managed("THUMB", "thumb", "image/jpeg", []byte("jpg")),
	)

	ex := NewExporter(store)
	folder, err := ex.Export(ctx, t.TempDir(), false, []string{"uuid:root"}, []string{"THUMB"})
	require.NoError(t, err)
	assert.Equal(t, []string{"root.png"}, listFiles(t, folder))
	assert.Equal(t, []string{"uuid:root"}, ex.Visited())
}

func TestExportDiamondVisitsEachObjectOnce(t *testing.T) {
	ctx := context.Background()
	base := fedoratest.NewStore(t)
	fedoratest.Ingest(t, base,
		fedora.NewObjectBuilder("uuid:root", model.ModelNdkPeriodical, "root").Members("uuid:a", "uuid:b"),
		fedora.NewObjectBuilder("uuid:a", model.ModelNdkPeriodicalVolume, "a").Members("uuid:c"),
		fedora.NewObjectBuilder("uuid:b", model.ModelNdkPeriodicalVolume, "b").Members("uuid:c"),
		fedora.NewObjectBuilder("uuid:c", model.ModelNdkPage, "c").Managed("THUMB", "thumb", "image/jpeg", []byte("c")),
	)
	store := &countingStorage{Storage: base, finds: map[string]int{}}

	ex := NewExporter(store)
	folder, err := ex.Export(ctx, t.TempDir(), true, []string{"uuid:root", "uuid:c"}, []string{"THUMB"})
	require.NoError(t, err)

	assert.Len(t, ex.Visited(), 4)
	assert.Equal(t, 1, ex.Written())
	assert.Equal(t, []string{"c.jpeg"}, listFiles(t, folder))
	for pid, n := range store.finds {
		assert.Equal(t, 1, n, pid)
	}
}

func TestExportSeveralStreamsUseFirstExtension(t *testing.T) {
	ctx := context.Background()
	store := fedoratest.NewStore(t)
	fedoratest.Ingest(t, store,
		fedora.NewObjectBuilder("uuid:p", model.ModelNdkPage, "p").
			Managed(fedora.Full, "full", "image/jpeg", []byte("full")).
			Managed(fedora.Thumbnail, "thumb", "image/png", []byte("thumb")),
	)

	folder, err := NewExporter(store).Export(ctx, t.TempDir(), false, []string{"uuid:p"}, []string{fedora.Full, fedora.Thumbnail})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"p." + fedora.Full + ".jpeg", "p." + fedora.Thumbnail + ".jpeg"}, listFiles(t, folder))
}

func TestExportUnknownObjectFails(t *testing.T) {
	store := fedoratest.NewStore(t)
	folder, err := NewExporter(store).Export(context.Background(), t.TempDir(), true, []string{"uuid:missing"}, []string{"THUMB"})
	require.Error(t, err)
	assert.Equal(t, exception.KindExport, exception.KindOf(err))
	assert.Contains(t, err.Error(), "uuid:missing")
	assert.DirExists(t, folder)
}

func TestProducerResults(t *testing.T) {
	store := fedoratest.NewStore(t)
	fedoratest.Ingest(t, store, fedora.NewObjectBuilder("uuid:p", model.ModelNdkPage, "p"))

	results, err := NewProducer(store).Export(context.Background(), export.Request{
		OutputDir: t.TempDir(),
		PIDs:      []string{"uuid:p", "uuid:missing"},
		Params:    model.BatchParams{DatastreamIDs: []string{"THUMB"}},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.NoError(t, r.Check())
		assert.Error(t, r.Err)
	}
}
