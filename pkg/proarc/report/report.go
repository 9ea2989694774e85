// Package report writes the batch history as Parquet files into a storage
// connection, partitioned by creation day.
package report

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/proarc/proarc/pkg/proarc/adapter/storage"
	"github.com/proarc/proarc/pkg/proarc/core/config"
	"github.com/proarc/proarc/pkg/proarc/core/domain/model"
	"github.com/proarc/proarc/pkg/proarc/core/domain/repository"
	"github.com/proarc/proarc/pkg/proarc/support/util/exception"
	"github.com/proarc/proarc/pkg/proarc/support/util/logger"
	"github.com/proarc/proarc/pkg/proarc/support/util/serialization"
)

const module = "report"

// BatchRecord is one row of the report.
type BatchRecord struct {
	ID        int64  `parquet:"name=id, type=INT64"`
	Profile   string `parquet:"name=profile, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	State     string `parquet:"name=state, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	UserID    int64  `parquet:"name=user_id, type=INT64"`
	Folder    string `parquet:"name=folder, type=BYTE_ARRAY, convertedtype=UTF8"`
	Params    string `parquet:"name=params, type=BYTE_ARRAY, convertedtype=UTF8"`
	LogKind   string `parquet:"name=log_kind, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	LogText   string `parquet:"name=log_message, type=BYTE_ARRAY, convertedtype=UTF8"`
	Created   int64  `parquet:"name=created, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	Timestamp int64  `parquet:"name=timestamp, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
}

// NewBatchRecord flattens a batch. Parameter values named by maskedKeys are
// replaced before they are written.
func NewBatchRecord(b *model.Batch, maskedKeys []string) (BatchRecord, error) {
	params, err := serialization.MarshalParams(b.Params.AsMap(), maskedKeys)
	if err != nil {
		return BatchRecord{}, err
	}
	rec := BatchRecord{
		ID:        b.ID,
		Profile:   string(b.Profile),
		State:     string(b.State),
		UserID:    b.UserID,
		Folder:    b.Folder,
		Params:    string(params),
		Created:   b.Created.UnixMilli(),
		Timestamp: b.Timestamp.UnixMilli(),
	}
	if b.Log != "" {
		log := exception.ParseLogRecord(b.Log)
		rec.LogKind = string(log.Kind)
		rec.LogText = log.Message
	}
	return rec, nil
}

// Writer uploads batch reports.
type Writer struct {
	resolver   storage.StorageConnectionResolver
	storageRef string
	cfg        config.ReportConfig
	maskedKeys []string
	now        func() time.Time
}

// NewWriter creates a report writer.
func NewWriter(resolver storage.StorageConnectionResolver, cfg *config.Config) *Writer {
	return &Writer{
		resolver:   resolver,
		storageRef: cfg.ProArc.Infrastructure.ReportStorageRef,
		cfg:        cfg.ProArc.Report,
		maskedKeys: cfg.ProArc.Security.MaskedParameterKeys,
		now:        time.Now,
	}
}

// Generate reports the newest limit batches (all with limit <= 0).
func (w *Writer) Generate(ctx context.Context, repo repository.BatchRepository, limit int) ([]string, error) {
	batches, err := repo.ListBatches(ctx, limit)
	if err != nil {
		return nil, err
	}
	return w.Write(ctx, batches)
}

// Write uploads one Parquet file per creation day and returns the object
// names written.
func (w *Writer) Write(ctx context.Context, batches []*model.Batch) ([]string, error) {
	if len(batches) == 0 {
		logger.Infof("No batches to report.")
		return nil, nil
	}
	if w.storageRef == "" {
		return nil, exception.NewConfigurationError(module, "report storage is not configured", nil)
	}
	codec, err := compressionCodec(w.cfg.CompressionType)
	if err != nil {
		return nil, exception.NewConfigurationError(module, err.Error(), err)
	}

	partitions := map[string][]BatchRecord{}
	for _, b := range batches {
		rec, err := NewBatchRecord(b, w.maskedKeys)
		if err != nil {
			return nil, exception.NewProArcError(exception.KindInternal, module, "", fmt.Sprintf("cannot serialize batch %d", b.ID), err)
		}
		key := "dt=" + b.Created.UTC().Format("2006-01-02")
		partitions[key] = append(partitions[key], rec)
	}
	keys := make([]string, 0, len(partitions))
	for k := range partitions {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	conn, err := w.resolver.ResolveStorageConnection(ctx, w.storageRef)
	if err != nil {
		return nil, err
	}

	var written []string
	var result *multierror.Error
	for _, key := range keys {
		buf, err := encode(partitions[key], codec)
		if err != nil {
			result = multierror.Append(result, exception.NewProArcError(exception.KindInternal, module, "", "cannot encode partition "+key, err))
			continue
		}
		name := path.Join(w.cfg.OutputBaseDir, key, fmt.Sprintf("batches_%s_%s.parquet", w.now().UTC().Format("20060102150405"), uuid.NewString()[:8]))
		if err := conn.Upload(ctx, "", name, buf, "application/octet-stream"); err != nil {
			result = multierror.Append(result, err)
			continue
		}
		logger.Infof("Batch report %s uploaded (%d row(s)).", name, len(partitions[key]))
		written = append(written, name)
	}
	return written, result.ErrorOrNil()
}

func encode(records []BatchRecord, codec parquet.CompressionCodec) (buf *bytes.Buffer, err error) {
	buf = new(bytes.Buffer)
	pw, err := writer.NewParquetWriterFromWriter(buf, new(BatchRecord), int64(len(records)))
	if err != nil {
		return nil, err
	}
	pw.CompressionType = codec
	for _, r := range records {
		if err := pw.Write(r); err != nil {
			return nil, err
		}
	}
	defer func() {
		if r := recover(); r != nil {
			buf, err = nil, fmt.Errorf("parquet writer panicked: %v", r)
		}
	}()
	if err := pw.WriteStop(); err != nil {
		return nil, err
	}
	return buf, nil
}

func compressionCodec(name string) (parquet.CompressionCodec, error) {
	switch strings.ToUpper(name) {
	case "SNAPPY":
		return parquet.CompressionCodec_SNAPPY, nil
	case "GZIP":
		return parquet.CompressionCodec_GZIP, nil
	case "NONE", "":
		return parquet.CompressionCodec_UNCOMPRESSED, nil
	}
	return 0, fmt.Errorf("unsupported compression type: %s", name)
}
