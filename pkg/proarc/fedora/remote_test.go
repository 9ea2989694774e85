package fedora

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proarc/proarc/pkg/proarc/core/config"
	"github.com/proarc/proarc/pkg/proarc/support/util/exception"
)

// fakeFedora serves a single object with one inline datastream.
type fakeFedora struct {
	mu       sync.Mutex
	modified time.Time
	content  string
	ingested []string
	queries  []string
}

func (f *fakeFedora) profile() string {
	return fmt.Sprintf(`<datastreamProfile xmlns="http://www.fedora.info/definitions/1/0/management/" pid="uuid:1" dsID="BIBLIO_MODS">`+
		`<dsLabel>MODS</dsLabel><dsVersionID>BIBLIO_MODS.1</dsVersionID><dsCreateDate>%s</dsCreateDate>`+
		`<dsState>A</dsState><dsMIME>text/xml</dsMIME><dsFormatURI></dsFormatURI><dsControlGroup>X</dsControlGroup>`+
		`</datastreamProfile>`, FormatTime(f.modified))
}

func (f *fakeFedora) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, p, ok := r.BasicAuth(); !ok || u != "admin" || p != "secret" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/objects/uuid:1":
		fmt.Fprint(w, `<objectProfile/>`)
	case r.Method == http.MethodGet && r.URL.Path == "/objects/uuid:1/datastreams":
		fmt.Fprint(w, `<objectDatastreams><datastream dsid="DC" label="DC" mimeType="text/xml"/>`+
			`<datastream dsid="BIBLIO_MODS" label="MODS" mimeType="text/xml"/></objectDatastreams>`)
	case r.Method == http.MethodGet && r.URL.Path == "/objects/uuid:1/datastreams/BIBLIO_MODS":
		fmt.Fprint(w, f.profile())
	case r.Method == http.MethodGet && r.URL.Path == "/objects/uuid:1/datastreams/BIBLIO_MODS/content":
		fmt.Fprint(w, f.content)
	case r.Method == http.MethodPut && r.URL.Path == "/objects/uuid:1/datastreams/BIBLIO_MODS":
		if r.URL.Query().Get("lastModifiedDate") != FormatTime(f.modified) {
			w.WriteHeader(http.StatusConflict)
			fmt.Fprint(w, "datastream modified")
			return
		}
		body, _ := io.ReadAll(r.Body)
		f.content = string(body)
		f.modified = f.modified.Add(time.Second)
		fmt.Fprint(w, f.profile())
	case r.Method == http.MethodPost && r.URL.Path == "/objects/uuid:new":
		body, _ := io.ReadAll(r.Body)
		f.ingested = append(f.ingested, r.URL.Query().Get("ownerId")+"|"+string(body))
		w.WriteHeader(http.StatusCreated)
	case r.URL.Path == "/risearch":
		f.queries = append(f.queries, r.URL.Query().Get("query"))
		fmt.Fprint(w, "\"s\"\ninfo:fedora/uuid:b\ninfo:fedora/uuid:a\n")
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newRemote(t *testing.T) (*RemoteStorage, *fakeFedora) {
	t.Helper()
	fake := &fakeFedora{modified: time.Date(2020, 5, 1, 12, 0, 0, 0, time.UTC), content: "<mods/>"}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	s, err := NewRemoteStorage(config.FedoraConfig{URL: srv.URL + "/", Username: "admin", Password: "secret"})
	require.NoError(t, err)
	return s, fake
}

func TestRemoteFindAndRead(t *testing.T) {
	ctx := context.Background()
	s, _ := newRemote(t)

	_, err := s.Find(ctx, "uuid:missing")
	assert.True(t, exception.IsNotFound(err))

	obj, err := s.Find(ctx, "uuid:1")
	require.NoError(t, err)
	profiles, err := obj.Datastreams(ctx)
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, BiblioMods, profiles[0].ID)

	ed := obj.Editor(profiles[0])
	data, err := ed.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "<mods/>", string(data))
	assert.Equal(t, "2020-05-01T12:00:00.000Z", FormatTime(ed.LastModified()))
	assert.Equal(t, ControlInline, ed.Profile().ControlGroup)

	_, err = obj.Editor(XMLProfile(Alto, "", "")).Read(ctx)
	assert.True(t, exception.IsNotFound(err))
}

func TestRemoteWriteConflictIs409(t *testing.T) {
	ctx := context.Background()
	s, fake := newRemote(t)
	obj, err := s.Find(ctx, "uuid:1")
	require.NoError(t, err)

	ed := obj.Editor(XMLProfile(BiblioMods, "MODS", ""))
	_, err = ed.Read(ctx)
	require.NoError(t, err)
	seen := ed.LastModified()

	require.NoError(t, ed.Write(ctx, []byte("<mods>1</mods>"), seen, "edit"))
	assert.Equal(t, "<mods>1</mods>", fake.content)
	assert.True(t, ed.LastModified().After(seen))

	err = ed.Write(ctx, []byte("<mods>2</mods>"), seen, "stale")
	require.Error(t, err)
	assert.True(t, exception.IsConcurrentModification(err))
	assert.Equal(t, "<mods>1</mods>", fake.content)
}

func TestRemoteIngestAndReferrers(t *testing.T) {
	ctx := context.Background()
	s, fake := newRemote(t)
	foxml, err := NewObjectBuilder("uuid:new", "model:page", "New").FOXML()
	require.NoError(t, err)
	require.NoError(t, s.Ingest(ctx, foxml, "alice", "import"))
	require.Len(t, fake.ingested, 1)
	assert.True(t, strings.HasPrefix(fake.ingested[0], "alice|"))

	refs, err := s.Referrers(ctx, "uuid:child")
	require.NoError(t, err)
	assert.Equal(t, []string{"uuid:a", "uuid:b"}, refs)
	assert.Contains(t, fake.queries[0], "<info:fedora/uuid:child>")
}

func TestNewStorageSelectsBackend(t *testing.T) {
	st, err := NewStorage(&config.RepositoryConfig{Type: "akubra", Akubra: config.AkubraConfig{Root: t.TempDir(), Depth: 1}})
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, st)

	st, err = NewStorage(&config.RepositoryConfig{Type: "fedora", Fedora: config.FedoraConfig{URL: "http://localhost:8080/fedora"}})
	require.NoError(t, err)
	assert.IsType(t, &RemoteStorage{}, st)

	_, err = NewStorage(&config.RepositoryConfig{Type: "s3"})
	assert.Error(t, err)
}
