// Package server exposes health, metrics and read-only batch status over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/proarc/proarc/pkg/proarc/core/domain/model"
	"github.com/proarc/proarc/pkg/proarc/core/domain/repository"
	"github.com/proarc/proarc/pkg/proarc/support/util/exception"
	"github.com/proarc/proarc/pkg/proarc/support/util/logger"
)

// BatchView is the JSON form of a batch.
type BatchView struct {
	ID        int64                `json:"id"`
	Profile   string               `json:"profile"`
	State     string               `json:"state"`
	Folder    string               `json:"folder,omitempty"`
	UserID    int64                `json:"userId"`
	Created   time.Time            `json:"created"`
	Timestamp time.Time            `json:"timestamp"`
	Log       *exception.LogRecord `json:"log,omitempty"`
}

// NewBatchView renders b.
func NewBatchView(b *model.Batch) BatchView {
	v := BatchView{
		ID:        b.ID,
		Profile:   string(b.Profile),
		State:     string(b.State),
		Folder:    b.Folder,
		UserID:    b.UserID,
		Created:   b.Created,
		Timestamp: b.Timestamp,
	}
	if b.Log != "" {
		rec := exception.ParseLogRecord(b.Log)
		v.Log = &rec
	}
	return v
}

// Server is the operations endpoint.
type Server struct {
	echo    *echo.Echo
	address string
}

// New registers the routes. metrics may be nil.
func New(address string, repo repository.BatchRepository, metrics http.Handler) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		e.DefaultHTTPErrorHandler(err, c)
		logger.Debugf("%s %s: %v", c.Request().Method, c.Request().URL.Path, err)
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics))
	}
	e.GET("/batches", ListBatchesHandler(repo))
	e.GET("/batches/:id", GetBatchHandler(repo))
	return &Server{echo: e, address: address}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler { return s.echo }

// Start listens in the background.
func (s *Server) Start() {
	go func() {
		if err := s.echo.Start(s.address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("Ops server stopped: %v", err)
		}
	}()
	logger.Infof("Ops server listening on %s.", s.address)
}

// Shutdown stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// GetBatchHandler serves GET /batches/:id.
func GetBatchHandler(repo repository.BatchRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid batch id")
		}
		b, err := repo.FindBatch(c.Request().Context(), id)
		if errors.Is(err, repository.ErrBatchNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "batch not found")
		}
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
		}
		return c.JSON(http.StatusOK, NewBatchView(b))
	}
}

// ListBatchesHandler serves GET /batches?limit=n, newest first.
func ListBatchesHandler(repo repository.BatchRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit := 50
		if s := c.QueryParam("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
			}
			limit = n
		}
		batches, err := repo.ListBatches(c.Request().Context(), limit)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
		}
		out := make([]BatchView, 0, len(batches))
		for _, b := range batches {
			out = append(out, NewBatchView(b))
		}
		return c.JSON(http.StatusOK, out)
	}
}
