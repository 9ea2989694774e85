package bagit

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/proarc/proarc/pkg/proarc/adapter/storage"
	"github.com/proarc/proarc/pkg/proarc/adapter/storage/local"
	"github.com/proarc/proarc/pkg/proarc/core/config"
)

func newWrapper() *Wrapper {
	cfg := config.NewConfig().ProArc.Export
	cfg.Bagit.ContactEmail = "ltp@example.org"
	w := NewWrapper(&cfg)
	w.now = func() time.Time { return time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC) }
	w.newID = func() string { return "11111111-2222-3333-4444-555555555555" }
	return w
}

func writePackage(t *testing.T) string {
	t.Helper()
	pkg := filepath.Join(t.TempDir(), "ndk_psp_1", "abc")
	require.NoError(t, os.MkdirAll(filepath.Join(pkg, "txt"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(pkg, "mets_abc.xml"), []byte("<mets/>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(pkg, "txt", "txt_abc_0001.txt"), []byte("hello"), 0o644))
	return pkg
}

func TestWrap(t *testing.T) {
	pkg := writePackage(t)
	bag, err := newWrapper().Wrap(context.Background(), pkg)
	require.NoError(t, err)

	assert.Equal(t, "bagit_abc", bag.Name)
	assert.NoDirExists(t, pkg)
	assert.FileExists(t, filepath.Join(bag.Dir, "data", "mets_abc.xml"))
	assert.Equal(t, "12.2", bag.PayloadOxum)

	manifest, err := os.ReadFile(filepath.Join(bag.Dir, "manifest-md5.txt"))
	require.NoError(t, err)
	assert.Equal(t,
		"cf8a7acb620a9ff4c77db811d5a548ed data/mets_abc.xml\n5d41402abc4b2a76b9719d911017c592 data/txt/txt_abc_0001.txt\n",
		string(manifest))

	info, err := os.ReadFile(filepath.Join(bag.Dir, "bag-info.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(info), "Source-Organization: ProArc\n")
	assert.Contains(t, string(info), "Contact-Email: ltp@example.org\n")
	assert.Contains(t, string(info), "External-Identifier: 11111111-2222-3333-4444-555555555555\n")
	assert.Contains(t, string(info), "Bagging-Date: 2024-02-03\n")

	tagManifest, err := os.ReadFile(filepath.Join(bag.Dir, "tagmanifest-md5.txt"))
	require.NoError(t, err)
	for _, name := range []string{"bag-info.txt", "bagit.txt", "manifest-md5.txt"} {
		assert.Contains(t, string(tagManifest), " "+name+"\n")
	}

	zr, err := zip.OpenReader(bag.Zip)
	require.NoError(t, err)
	defer zr.Close()
	var names []string
	for _, f := range zr.File {
		assert.Equal(t, zip.Store, f.Method)
		names = append(names, f.Name)
	}
	assert.Contains(t, names, "bagit_abc/data/txt/txt_abc_0001.txt")
	assert.Contains(t, names, "bagit_abc/tagmanifest-md5.txt")

	sidecar, err := os.ReadFile(bag.ChecksumFile())
	require.NoError(t, err)
	assert.Equal(t, bag.Checksum+"  bagit_abc.zip\n", string(sidecar))
}

func TestWrapRefusesExistingBag(t *testing.T) {
	pkg := writePackage(t)
	require.NoError(t, os.MkdirAll(filepath.Join(filepath.Dir(pkg), "bagit_abc"), 0o755))
	_, err := newWrapper().Wrap(context.Background(), pkg)
	require.Error(t, err)
	assert.DirExists(t, pkg, "the package stays in place for manual recovery")
}

func TestUploadToLocalStorage(t *testing.T) {
	pkg := writePackage(t)
	bag, err := newWrapper().Wrap(context.Background(), pkg)
	require.NoError(t, err)

	base := t.TempDir()
	cfg := config.NewConfig()
	cfg.ProArc.Storage = map[string]interface{}{
		"ltp": map[string]interface{}{"type": "local", "base_dir": base},
	}
	cfg.ProArc.Export.LTP = config.LTPConfig{Enabled: true, StorageRef: "ltp", Bucket: "cesnet", Prefix: "proarc"}
	resolver := storage.NewConnectionResolver(storage.ResolverParams{
		Providers: []storage.StorageProvider{local.NewLocalProvider(cfg)},
		Cfg:       cfg,
	})
	u := NewUploader(resolver, &cfg.ProArc.Export)
	require.True(t, u.Enabled())
	require.NoError(t, u.Upload(context.Background(), bag))

	assert.FileExists(t, filepath.Join(base, "cesnet", "proarc", "bagit_abc.zip"))
	sum, err := os.ReadFile(filepath.Join(base, "cesnet", "proarc", "bagit_abc.zip.md5"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(sum), bag.Checksum))
}

type mockConnection struct {
	mock.Mock
	storage.StorageConnection
}

func (m *mockConnection) Upload(ctx context.Context, bucket, name string, data io.Reader, contentType string) error {
	_, _ = io.Copy(io.Discard, data)
	return m.Called(bucket, name).Error(0)
}

func (m *mockConnection) DeleteObject(ctx context.Context, bucket, name string) error {
	return m.Called(bucket, name).Error(0)
}

type staticResolver struct{ conn storage.StorageConnection }

func (r staticResolver) ResolveStorageConnection(context.Context, string) (storage.StorageConnection, error) {
	return r.conn, nil
}

func TestUploadRemovesArchiveWhenSidecarFails(t *testing.T) {
	dir := t.TempDir()
	bag := &Bag{Name: "bagit_x", Zip: filepath.Join(dir, "bagit_x.zip")}
	require.NoError(t, os.WriteFile(bag.Zip, []byte("zip"), 0o644))
	require.NoError(t, os.WriteFile(bag.ChecksumFile(), bytes.Repeat([]byte("0"), 32), 0o644))

	conn := &mockConnection{}
	conn.On("Upload", "b", "p/bagit_x.zip").Return(nil)
	conn.On("Upload", "b", "p/bagit_x.zip.md5").Return(errors.New("quota"))
	conn.On("DeleteObject", "b", "p/bagit_x.zip").Return(nil)

	cfg := config.NewConfig().ProArc.Export
	cfg.LTP = config.LTPConfig{Enabled: true, StorageRef: "ltp", Bucket: "b", Prefix: "p"}
	err := NewUploader(staticResolver{conn}, &cfg).Upload(context.Background(), bag)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota")
	conn.AssertExpectations(t)
}
