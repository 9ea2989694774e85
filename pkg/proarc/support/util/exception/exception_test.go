package exception_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proarc/proarc/pkg/proarc/support/util/exception"
)

func TestNewDigitalObjectError(t *testing.T) {
	original := errors.New("connection refused")
	err := exception.NewDigitalObjectError("uuid:1", "cannot read RELS-EXT", original)

	assert.Equal(t, exception.KindDigitalObject, err.Kind)
	assert.Equal(t, "fedora", err.Module)
	assert.Equal(t, original, err.Unwrap())
	assert.Equal(t, "[fedora uuid:1] cannot read RELS-EXT: connection refused", err.Error())
	assert.NotEmpty(t, err.StackTrace)
}

func TestNewProArcErrorf(t *testing.T) {
	plain := exception.NewProArcErrorf(exception.KindExport, "export.ndk", "package %d incomplete", 3)
	assert.Nil(t, plain.Unwrap())
	assert.Equal(t, "[export.ndk] package 3 incomplete", plain.Error())

	io := errors.New("disk full")
	wrapped := exception.NewProArcErrorf(exception.KindExport, "export.ndk", "cannot write %s", "mets.xml", io)
	assert.Equal(t, io, wrapped.Unwrap())
	assert.Equal(t, "cannot write mets.xml", wrapped.Message)
}

func TestKindSentinels(t *testing.T) {
	nf := exception.NewNotFoundError("uuid:1", "FULL")
	assert.True(t, exception.IsNotFound(nf))
	assert.True(t, exception.IsNotFound(fmt.Errorf("lookup: %w", nf)))
	assert.Equal(t, "uuid:1/FULL not found", nf.Message)
	assert.False(t, exception.IsConcurrentModification(nf))

	cm := exception.NewConcurrentModificationError("uuid:1", "RELS-EXT", errors.New("stale"))
	assert.True(t, exception.IsConcurrentModification(cm))
	assert.Equal(t, "RELS-EXT", cm.DatastreamID)

	lock := exception.NewOptimisticLockingFailure("repository", "batch 7 changed", nil)
	assert.True(t, errors.Is(lock, exception.ErrOptimisticLockingFailure))
	assert.True(t, exception.IsConcurrentModification(lock))

	tr := exception.NewTransformError("mods", "bad root", nil)
	assert.True(t, errors.Is(tr, exception.ErrTransform))
	assert.Equal(t, "transform.mods", tr.Module)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, exception.KindLinkage, exception.KindOf(exception.NewLinkageError("uuid:1", "no task", nil)))
	assert.Equal(t, exception.KindInternal, exception.KindOf(errors.New("boom")))
}

func TestExtractErrorMessage(t *testing.T) {
	assert.Equal(t, "", exception.ExtractErrorMessage(nil))
	assert.Equal(t, "boom", exception.ExtractErrorMessage(errors.New("boom")))

	inner := exception.NewMetsExportError("uuid:2", "missing parent", nil)
	err := fmt.Errorf("export: %w", inner)
	assert.Equal(t, "missing parent", exception.ExtractErrorMessage(err))
}

func TestLogRecord(t *testing.T) {
	rec := exception.FromError(exception.NewExportError("uuid:1", "FULL", "copy failed", errors.New("short write")))
	assert.Equal(t, exception.KindExport, rec.Kind)
	assert.Equal(t, "copy failed", rec.Message)
	require.Len(t, rec.Details, 1)
	assert.Equal(t, "uuid:1", rec.Details[0].PID)
	assert.Equal(t, "short write", rec.Details[0].Message)

	parsed := exception.ParseLogRecord(rec.String())
	assert.Equal(t, rec, parsed)

	foreign := exception.FromError(errors.New("boom"))
	assert.Equal(t, exception.KindInternal, foreign.Kind)
	assert.Empty(t, foreign.Details)

	assert.Equal(t, exception.LogRecord{}, exception.FromError(nil))
}

func TestParseLogRecordLegacyText(t *testing.T) {
	rec := exception.ParseLogRecord("java.io.IOException: disk full")
	assert.Equal(t, exception.KindInternal, rec.Kind)
	assert.Equal(t, "java.io.IOException: disk full", rec.Message)
}

func TestLogRecordFromMultiError(t *testing.T) {
	single := multierror.Append(nil, context.Canceled)
	rec := exception.FromError(single)
	assert.Equal(t, exception.KindInternal, rec.Kind)
	assert.Equal(t, "context canceled", rec.Message)
	assert.NotContains(t, rec.Message, "error occurred")

	one := multierror.Append(nil, exception.NewExportError("uuid:1", "FULL", "cannot read", errors.New("disk")))
	rec = exception.FromError(one)
	assert.Equal(t, exception.KindExport, rec.Kind)
	assert.Equal(t, "cannot read", rec.Message)
	require.Len(t, rec.Details, 1)

	many := multierror.Append(nil,
		exception.NewExportError("uuid:1", "FULL", "cannot read", errors.New("disk")),
		exception.NewDigitalObjectError("uuid:2", "invalid RELS-EXT", nil),
		errors.New("boom"),
	)
	rec = exception.FromError(many)
	assert.Equal(t, exception.KindExport, rec.Kind)
	assert.Equal(t, "cannot read (3 errors)", rec.Message)
	require.Len(t, rec.Details, 3)
	assert.Equal(t, "uuid:1", rec.Details[0].PID)
	assert.Equal(t, "uuid:2", rec.Details[1].PID)
	assert.Equal(t, "boom", rec.Details[2].Message)

	assert.Equal(t, exception.LogRecord{}, exception.FromError(&multierror.Error{}))
}
