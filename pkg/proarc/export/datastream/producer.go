package datastream

import (
	"context"

	"github.com/proarc/proarc/pkg/proarc/export"
	"github.com/proarc/proarc/pkg/proarc/fedora"
)

// Producer serves the DATASTREAM profile.
type Producer struct {
	storage fedora.Storage
}

// NewProducer creates the producer.
func NewProducer(storage fedora.Storage) *Producer {
	return &Producer{storage: storage}
}

// Export runs one Exporter over all requested roots; they share the
// target folder and the visited set.
func (p *Producer) Export(ctx context.Context, req export.Request) ([]export.Result, error) {
	ex := NewExporter(p.storage)
	folder, err := ex.Export(ctx, req.OutputDir, req.Hierarchy, req.PIDs, req.Params.DatastreamIDs)
	if folder == "" && err != nil {
		return nil, err
	}
	results := make([]export.Result, 0, len(req.PIDs))
	for _, pid := range req.PIDs {
		if err != nil {
			results = append(results, export.Failed(pid, folder, err))
			continue
		}
		results = append(results, export.Success(pid, folder, folder, 0))
	}
	return results, nil
}
