package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proarc/proarc/pkg/proarc/core/domain/model"
	"github.com/proarc/proarc/pkg/proarc/export"
	"github.com/proarc/proarc/pkg/proarc/fedora"
	"github.com/proarc/proarc/pkg/proarc/fedora/fedoratest"
)

func seed(t *testing.T, rootModel string) fedora.Storage {
	store := fedoratest.NewStore(t)
	fedoratest.Ingest(t, store,
		fedora.NewObjectBuilder("uuid:mono", rootModel, "Monograph").
			Members("uuid:p1").
			XML(fedora.BiblioMods, "MODS", "", fedoratest.Mods("Monograph")),
		fedora.NewObjectBuilder("uuid:p1", model.ModelNdkPage, "1").
			Managed(fedora.Raw, "raw", "image/tiff", []byte("tiff")).
			Managed(fedora.Full, "full", "image/jpeg", []byte("jpeg")),
	)
	return store
}

func TestArchiveExport(t *testing.T) {
	store := seed(t, model.ModelNdkMonographVolume)
	results, err := NewProducer(store, "ProArc").Export(context.Background(), export.Request{
		OutputDir: t.TempDir(), PIDs: []string{"uuid:mono"},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	r := results[0]
	require.NoError(t, r.Check())
	require.NoError(t, r.Err)
	assert.Equal(t, 1, r.PageCount)
	assert.Equal(t, "archive_1", filepath.Base(r.Folder))

	for _, rel := range []string{"foxml/mono.xml", "foxml/p1.xml", "RAW/p1.tiff", "FULL/p1.jpeg", "mets.xml", "manifest-md5.txt"} {
		assert.FileExists(t, filepath.Join(r.Target, rel))
	}
	doc, err := os.ReadFile(filepath.Join(r.Target, "mets.xml"))
	require.NoError(t, err)
	assert.Contains(t, string(doc), `ID="MODSMD_mono"`)
	assert.Contains(t, string(doc), `FILEID="RAW_p1"`)
}

func TestArchiveOldPrintRequiresOldPrintRoot(t *testing.T) {
	store := seed(t, model.ModelNdkMonographVolume)
	results, err := NewProducer(store, "ProArc").Export(context.Background(), export.Request{
		OutputDir: t.TempDir(), PIDs: []string{"uuid:mono"}, Params: model.BatchParams{ArchiveOldPrint: true},
	})
	require.NoError(t, err)
	require.NoError(t, results[0].Check())
	require.NotNil(t, results[0].ValidationError)
	assert.Equal(t, "archive_oldprint_1", filepath.Base(results[0].Folder))

	store = seed(t, model.ModelOldPrintVolume)
	results, err = NewProducer(store, "ProArc").Export(context.Background(), export.Request{
		OutputDir: t.TempDir(), PIDs: []string{"uuid:mono"}, Params: model.BatchParams{ArchiveOldPrint: true},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, results[0].Target)
}
