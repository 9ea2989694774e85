package ndk

import (
	"bufio"
	"context"
	"crypto/md5"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proarc/proarc/pkg/proarc/core/config"
	"github.com/proarc/proarc/pkg/proarc/core/domain/model"
	"github.com/proarc/proarc/pkg/proarc/export"
	"github.com/proarc/proarc/pkg/proarc/fedora"
	"github.com/proarc/proarc/pkg/proarc/fedora/fedoratest"
	"github.com/proarc/proarc/pkg/proarc/transform"
)

func page(pid string, archival bool) *fedora.ObjectBuilder {
	b := fedora.NewObjectBuilder(pid, model.ModelNdkPage, pid).
		XML(fedora.BiblioMods, "MODS", "", []byte(`<mods xmlns="http://www.loc.gov/mods/v3"><part><detail type="pageNumber"><number>[1]</number></detail></part></mods>`)).
		Managed(fedora.NdkUser, "user", "image/jp2", []byte("user-"+pid)).
		Managed(fedora.Alto, "alto", "text/xml", []byte("<alto/>")).
		Managed(fedora.TextOCR, "ocr", "text/plain", []byte("text"))
	if archival {
		b.Managed(fedora.NdkArchival, "archival", "image/jp2", []byte("archival-"+pid))
	}
	return b
}

func seedPeriodical(t *testing.T, issueMods []byte, archival bool) fedora.Storage {
	store := fedoratest.NewStore(t)
	fedoratest.Ingest(t, store,
		fedora.NewObjectBuilder("uuid:title", model.ModelNdkPeriodical, "Title").
			Members("uuid:volume").
			XML(fedora.BiblioMods, "MODS", "", fedoratest.Mods("Title", "issn", "1234-5678")),
		fedora.NewObjectBuilder("uuid:volume", model.ModelNdkPeriodicalVolume, "1990").
			Members("uuid:issue").
			XML(fedora.BiblioMods, "MODS", "", fedoratest.Mods("1990")),
		fedora.NewObjectBuilder("uuid:issue", model.ModelNdkPeriodicalIssue, "Issue 1").
			Members("uuid:p1", "uuid:p2").
			XML(fedora.BiblioMods, "MODS", "", issueMods),
		page("uuid:p1", archival),
		page("uuid:p2", true),
	)
	return store
}

func newProducer(store fedora.Storage, ndk config.NdkConfig) *Producer {
	cfg := config.NewConfig().ProArc.Export
	cfg.NDK = ndk
	p := NewProducer(store, transform.NewEngine(), &cfg)
	p.now = func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) }
	return p
}

func TestExportPSP(t *testing.T) {
	store := seedPeriodical(t, fedoratest.Mods("Issue 1", "urnnbn", "urn:nbn:cz:aba001-000001"), true)
	out := t.TempDir()

	results, err := newProducer(store, config.NdkConfig{Creator: "ProArc"}).Export(context.Background(), export.Request{
		OutputDir: out, PIDs: []string{"uuid:issue"},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	r := results[0]
	require.NoError(t, r.Check())
	require.NoError(t, r.Err)
	assert.Nil(t, r.ValidationError)
	assert.Equal(t, 2, r.PageCount)
	assert.Equal(t, filepath.Join(out, "ndk_psp_1", "issue"), r.Target)

	for _, rel := range []string{
		"mets_issue.xml", "info_issue.xml", "md5_issue.md5",
		"mastercopy/mc_issue_0001.jp2", "usercopy/uc_issue_0002.jp2",
		"alto/alto_issue_0001.xml", "txt/txt_issue_0002.txt",
		"amdsec/amd_mets_issue_0001.xml",
	} {
		assert.FileExists(t, filepath.Join(r.Target, rel))
	}

	// every manifest line matches the file on disk
	f, err := os.Open(filepath.Join(r.Target, "md5_issue.md5"))
	require.NoError(t, err)
	defer f.Close()
	lines := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		parts := strings.SplitN(sc.Text(), " ", 2)
		require.Len(t, parts, 2)
		data, err := os.ReadFile(filepath.Join(r.Target, strings.TrimPrefix(parts[1], "./")))
		require.NoError(t, err)
		sum := md5.Sum(data)
		assert.Equal(t, hex.EncodeToString(sum[:]), parts[0], parts[1])
		lines++
	}
	assert.Equal(t, 11, lines)

	data, err := os.ReadFile(filepath.Join(r.Target, "mets_issue.xml"))
	require.NoError(t, err)
	doc := string(data)
	assert.Contains(t, doc, `ID="MODSMD_TITLE_0001"`)
	assert.Contains(t, doc, `ID="DCMD_ISSUE_0001"`)
	assert.Contains(t, doc, `TYPE="PHYSICAL"`)
	assert.Contains(t, doc, `./mastercopy/mc_issue_0001.jp2`)
	assert.Contains(t, doc, `ORDERLABEL="[1]"`)

	info, err := os.ReadFile(filepath.Join(r.Target, "info_issue.xml"))
	require.NoError(t, err)
	assert.Contains(t, string(info), `<titleid type="urnnbn">urn:nbn:cz:aba001-000001</titleid>`)
	assert.Contains(t, string(info), `<mainmets>./mets_issue.xml</mainmets>`)
}

func TestExportMissingURNNBN(t *testing.T) {
	store := seedPeriodical(t, fedoratest.Mods("Issue 1"), true)
	out := t.TempDir()

	results, err := newProducer(store, config.NdkConfig{}).Export(context.Background(), export.Request{
		OutputDir: out, PIDs: []string{"uuid:issue"},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	r := results[0]
	require.NoError(t, r.Check())
	require.NotNil(t, r.ValidationError)
	require.Len(t, r.ValidationError.Issues, 1)
	assert.Equal(t, "URNNBN identifier is missing", r.ValidationError.Issues[0].Message)
	assert.Equal(t, "uuid:issue", r.ValidationError.Issues[0].PID)
	assert.True(t, r.ValidationError.OnlyMissingURNNBN())
	assert.DirExists(t, r.Folder)
}

func TestExportAllowMissingURNNBN(t *testing.T) {
	store := seedPeriodical(t, fedoratest.Mods("Issue 1"), true)

	results, err := newProducer(store, config.NdkConfig{AllowMissingURNNBN: true}).Export(context.Background(), export.Request{
		OutputDir: t.TempDir(), PIDs: []string{"uuid:issue"},
	})
	require.NoError(t, err)
	require.NoError(t, results[0].Check())
	assert.NotEmpty(t, results[0].Target)

	results, err = newProducer(store, config.NdkConfig{}).Export(context.Background(), export.Request{
		OutputDir: t.TempDir(), PIDs: []string{"uuid:issue"}, Params: model.BatchParams{IgnoreMissingURNNBN: true},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, results[0].Target)
}

func TestExportMissingStreams(t *testing.T) {
	store := seedPeriodical(t, fedoratest.Mods("Issue 1", "urnnbn", "urn:nbn:cz:x"), false)

	results, err := newProducer(store, config.NdkConfig{}).Export(context.Background(), export.Request{
		OutputDir: t.TempDir(), PIDs: []string{"uuid:issue"},
	})
	require.NoError(t, err)
	require.NotNil(t, results[0].ValidationError)
	assert.Equal(t, []export.Issue{{PID: "uuid:p1", Message: "Missing datastream NDK_ARCHIVAL"}}, results[0].ValidationError.Issues)
	assert.False(t, results[0].ValidationError.OnlyMissingURNNBN())

	results, err = newProducer(store, config.NdkConfig{AllowMissingStreams: true}).Export(context.Background(), export.Request{
		OutputDir: t.TempDir(), PIDs: []string{"uuid:issue"},
	})
	require.NoError(t, err)
	require.NoError(t, results[0].Check())
	assert.Equal(t, 2, results[0].PageCount)
	assert.NoFileExists(t, filepath.Join(results[0].Target, "mastercopy", "mc_issue_0001.jp2"))
	assert.FileExists(t, filepath.Join(results[0].Target, "mastercopy", "mc_issue_0002.jp2"))
}

func TestExportTitleMembers(t *testing.T) {
	store := fedoratest.NewStore(t)
	fedoratest.Ingest(t, store,
		fedora.NewObjectBuilder("uuid:title", model.ModelNdkPeriodical, "Title").
			Members("uuid:issue").
			XML(fedora.BiblioMods, "MODS", "", fedoratest.Mods("Title", "urnnbn", "urn:nbn:cz:t")),
		fedora.NewObjectBuilder("uuid:issue", model.ModelNdkPeriodicalIssue, "Issue"),
	)
	results, err := newProducer(store, config.NdkConfig{}).Export(context.Background(), export.Request{
		OutputDir: t.TempDir(), PIDs: []string{"uuid:title"},
	})
	require.NoError(t, err)
	require.NotNil(t, results[0].ValidationError)
	assert.Contains(t, results[0].ValidationError.Issues[0].Message, "is not allowed as a member of")
}

func TestExportVariants(t *testing.T) {
	store := seedPeriodical(t, fedoratest.Mods("Issue 1", "urnnbn", "urn:nbn:cz:x"), false)

	results, err := newProducer(store, config.NdkConfig{}).Export(context.Background(), export.Request{
		OutputDir: t.TempDir(), PIDs: []string{"uuid:issue"}, Params: model.BatchParams{NdkVariant: model.NdkVariantSIP},
	})
	require.NoError(t, err)
	require.NoError(t, results[0].Check())
	require.NotEmpty(t, results[0].Target)
	assert.NoDirExists(t, filepath.Join(results[0].Target, "mastercopy"))
	assert.NoDirExists(t, filepath.Join(results[0].Target, "amdsec"))

	results, err = newProducer(store, config.NdkConfig{AllowMissingStreams: true}).Export(context.Background(), export.Request{
		OutputDir: t.TempDir(), PIDs: []string{"uuid:issue"}, Params: model.BatchParams{NdkVariant: model.NdkVariantSTT},
	})
	require.NoError(t, err)
	require.NotNil(t, results[0].ValidationError)
	assert.Equal(t, "uuid:title", results[0].ValidationError.Issues[0].PID)

	_, err = newProducer(store, config.NdkConfig{}).Export(context.Background(), export.Request{
		OutputDir: t.TempDir(), PIDs: []string{"uuid:issue"}, Params: model.BatchParams{NdkVariant: "xyz"},
	})
	assert.Error(t, err)
}

func TestExportUnknownRootIsFatal(t *testing.T) {
	store := fedoratest.NewStore(t)
	results, err := newProducer(store, config.NdkConfig{}).Export(context.Background(), export.Request{
		OutputDir: t.TempDir(), PIDs: []string{"uuid:none"},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Check())
	assert.Error(t, results[0].Err)
}

func TestVariantOfDefaultsToPSP(t *testing.T) {
	v, ok := VariantOf("")
	require.True(t, ok)
	assert.Equal(t, model.NdkVariantPSP, v.Name)
	assert.True(t, v.TechMD)
}
