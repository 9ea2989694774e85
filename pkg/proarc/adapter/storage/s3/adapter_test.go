package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proarc/proarc/pkg/proarc/adapter/storage"
)

// fakeS3 serves the path-style subset of the S3 API used by the adapter.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}
	respond := func(code int, body []byte) *http.Response {
		return &http.Response{
			StatusCode: code,
			Body:       io.NopCloser(bytes.NewReader(body)),
			Header: http.Header{
				"Content-Length": {strconv.Itoa(len(body))},
				"Last-Modified":  {time.Now().UTC().Format(http.TimeFormat)},
			},
			Request: req,
		}
	}
	switch {
	case req.Method == http.MethodGet && req.URL.Query().Get("list-type") == "2":
		prefix := req.URL.Query().Get("prefix")
		var keys []string
		for k := range f.objects {
			if strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteString(`<?xml version="1.0"?><ListBucketResult><IsTruncated>false</IsTruncated>`)
		for _, k := range keys {
			fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size></Contents>", k, len(f.objects[k]))
		}
		b.WriteString("</ListBucketResult>")
		return respond(http.StatusOK, []byte(b.String())), nil
	case req.Method == http.MethodPut:
		body, _ := io.ReadAll(req.Body)
		if dec, ok := decodeChunked(body); ok {
			body = dec
		}
		f.objects[key] = body
		return respond(http.StatusOK, nil), nil
	case req.Method == http.MethodGet:
		body, ok := f.objects[key]
		if !ok {
			return respond(http.StatusNotFound, []byte(`<Error><Code>NoSuchKey</Code></Error>`)), nil
		}
		return respond(http.StatusOK, body), nil
	case req.Method == http.MethodDelete:
		delete(f.objects, key)
		return respond(http.StatusNoContent, nil), nil
	}
	return respond(http.StatusNotImplemented, nil), nil
}

func decodeChunked(b []byte) ([]byte, bool) {
	parts := strings.Split(string(b), "\r\n")
	if len(parts) < 3 {
		return nil, false
	}
	n, err := strconv.ParseInt(strings.SplitN(parts[0], ";", 2)[0], 16, 64)
	if err != nil || n <= 0 || int64(len(parts[1])) != n {
		return nil, false
	}
	return []byte(parts[1]), true
}

func newFake(t *testing.T) (*s3Adapter, *fakeS3) {
	t.Helper()
	fake := &fakeS3{objects: map[string][]byte{}}
	a, err := newS3Adapter(context.Background(), storage.StorageConfig{
		Type: ProviderType, BucketName: "ltp", Endpoint: "https://s3.test.local", PathStyle: true,
		AccessKeyID: "AKIA", SecretAccessKey: "SECRET",
	}, "ltp", &http.Client{Transport: fake})
	require.NoError(t, err)
	return a, fake
}

func TestS3AdapterFlow(t *testing.T) {
	ctx := context.Background()
	a, fake := newFake(t)

	require.NoError(t, a.Upload(ctx, "", "bags/a.zip", strings.NewReader("payload"), "application/zip"))
	require.NoError(t, a.Upload(ctx, "", "bags/a.zip.md5", io.MultiReader(strings.NewReader("md5")), "text/plain"))
	assert.Equal(t, "payload", string(fake.objects["bags/a.zip"]))
	assert.Equal(t, "md5", string(fake.objects["bags/a.zip.md5"]))

	rc, err := a.Download(ctx, "", "bags/a.zip")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "payload", string(data))

	var names []string
	require.NoError(t, a.ListObjects(ctx, "", "bags/", func(n string) error {
		names = append(names, n)
		return nil
	}))
	assert.Equal(t, []string{"bags/a.zip", "bags/a.zip.md5"}, names)

	require.NoError(t, a.DeleteObject(ctx, "", "bags/a.zip"))
	assert.NotContains(t, fake.objects, "bags/a.zip")
}

func TestS3AdapterRequiresBucket(t *testing.T) {
	_, err := NewS3Adapter(context.Background(), storage.StorageConfig{Type: ProviderType}, "ltp")
	assert.Error(t, err)
}
