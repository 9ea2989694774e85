package crossref

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proarc/proarc/pkg/proarc/core/config"
	"github.com/proarc/proarc/pkg/proarc/core/domain/model"
	"github.com/proarc/proarc/pkg/proarc/export"
	"github.com/proarc/proarc/pkg/proarc/fedora"
	"github.com/proarc/proarc/pkg/proarc/fedora/fedoratest"
)

func seed(t *testing.T, secondDOI string) fedora.Storage {
	store := fedoratest.NewStore(t)
	var ids []string
	if secondDOI != "" {
		ids = []string{"doi", secondDOI}
	}
	fedoratest.Ingest(t, store,
		fedora.NewObjectBuilder("uuid:title", model.ModelNdkPeriodical, "Journal").
			Members("uuid:vol").
			XML(fedora.BiblioMods, "MODS", "", fedoratest.Mods("Journal", "issn", "1234-5678")),
		fedora.NewObjectBuilder("uuid:vol", model.ModelNdkPeriodicalVolume, "12").
			Members("uuid:issue").
			XML(fedora.BiblioMods, "MODS", "", fedoratest.Mods("Volume")),
		fedora.NewObjectBuilder("uuid:issue", model.ModelNdkPeriodicalIssue, "3").
			Members("uuid:a1", "uuid:a2").
			XML(fedora.BiblioMods, "MODS", "", fedoratest.Mods("Issue")),
		fedora.NewObjectBuilder("uuid:a1", model.ModelNdkArticle, "First").
			XML(fedora.BiblioMods, "MODS", "", fedoratest.Mods("First", "doi", "10.5555/a1")),
		fedora.NewObjectBuilder("uuid:a2", model.ModelNdkArticle, "Second").
			XML(fedora.BiblioMods, "MODS", "", fedoratest.Mods("Second", ids...)),
	)
	return store
}

func newProducer(store fedora.Storage) *Producer {
	cfg := config.NewConfig().ProArc.Export
	cfg.Crossref.Depositor = "Library"
	cfg.Crossref.Email = "doi@example.org"
	cfg.Crossref.Registrant = "Library"
	cfg.Crossref.ResourceURLTemplate = "https://digi.example.org/uuid/{uuid}"
	p := NewProducer(store, &cfg)
	p.now = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }
	return p
}

func TestCrossrefDeposit(t *testing.T) {
	results, err := newProducer(seed(t, "10.5555/a2")).Export(context.Background(), export.Request{
		OutputDir: t.TempDir(), PIDs: []string{"uuid:vol"},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	r := results[0]
	require.NoError(t, r.Check())
	require.Nil(t, r.ValidationError)
	assert.Equal(t, "crossref_1", filepath.Base(r.Folder))

	doc, err := os.ReadFile(filepath.Join(r.Target, "issue.xml"))
	require.NoError(t, err)
	s := string(doc)
	assert.Contains(t, s, `<doi_batch_id>issue_20240501100000</doi_batch_id>`)
	assert.Contains(t, s, `<depositor_name>Library</depositor_name>`)
	assert.Contains(t, s, `<full_title>Journal</full_title>`)
	assert.Contains(t, s, `<issn media_type="print">1234-5678</issn>`)
	assert.Contains(t, s, `<volume>12</volume>`)
	assert.Contains(t, s, `<issue>3</issue>`)
	assert.Contains(t, s, `<doi>10.5555/a1</doi>`)
	assert.Contains(t, s, `<resource>https://digi.example.org/uuid/a2</resource>`)
}

func TestCrossrefMissingDOI(t *testing.T) {
	results, err := newProducer(seed(t, "")).Export(context.Background(), export.Request{
		OutputDir: t.TempDir(), PIDs: []string{"uuid:issue"},
	})
	require.NoError(t, err)
	r := results[0]
	require.NoError(t, r.Check())
	require.NotNil(t, r.ValidationError)
	require.Len(t, r.ValidationError.Issues, 1)
	assert.Equal(t, "uuid:a2", r.ValidationError.Issues[0].PID)
	assert.Equal(t, "Missing DOI", r.ValidationError.Issues[0].Message)
	assert.Empty(t, r.Target)
}

func TestYearOf(t *testing.T) {
	assert.Equal(t, "1999", yearOf("1999-05"))
	assert.Equal(t, "", yearOf("[19"))
	assert.Equal(t, "", yearOf("ca. 1900"))
}
