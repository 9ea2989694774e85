package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proarc/proarc/pkg/proarc/core/domain/model"
	"github.com/proarc/proarc/pkg/proarc/infrastructure/metrics"
	"github.com/proarc/proarc/pkg/proarc/infrastructure/repository/inmemory"
	"github.com/proarc/proarc/pkg/proarc/support/util/exception"
)

func serve(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRoutes(t *testing.T) {
	repo := inmemory.NewBatchRepository()
	b := model.NewExportBatch(model.ProfileNDK, model.BatchParams{PIDs: []string{"uuid:1"}}, 2)
	b.State = model.BatchExportFailed
	b.Log = exception.LogRecord{Kind: exception.KindValidation, Message: "Export validation failed"}.String()
	require.NoError(t, repo.CreateBatch(context.Background(), b))
	s := New(":0", repo, metrics.NewPrometheusRecorder().Handler())

	rec := serve(t, s, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, s, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")

	rec = serve(t, s, "/batches/1")
	require.Equal(t, http.StatusOK, rec.Code)
	var view BatchView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "EXPORT_FAILED", view.State)
	require.NotNil(t, view.Log)
	assert.Equal(t, exception.KindValidation, view.Log.Kind)

	rec = serve(t, s, "/batches?limit=10")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []BatchView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	assert.Equal(t, http.StatusNotFound, serve(t, s, "/batches/99").Code)
	assert.Equal(t, http.StatusBadRequest, serve(t, s, "/batches/abc").Code)
	assert.Equal(t, http.StatusBadRequest, serve(t, s, "/batches?limit=x").Code)
}
