// Package fedora gives uniform access to digital objects held either by a
// remote Fedora 3 repository or by a local Akubra-style object store.
package fedora

import (
	"context"
	"fmt"
	"time"

	"github.com/proarc/proarc/pkg/proarc/core/config"
	"github.com/proarc/proarc/pkg/proarc/support/util/exception"
)

// Storage is a repository of digital objects.
type Storage interface {
	// Find returns the object or a not_found error.
	Find(ctx context.Context, pid string) (RepositoryObject, error)
	Exists(ctx context.Context, pid string) (bool, error)
	// Ingest stores a new object from its FOXML.
	Ingest(ctx context.Context, foxml []byte, owner, message string) error
	// Referrers lists the PIDs whose RELS-EXT names pid as a member.
	Referrers(ctx context.Context, pid string) ([]string, error)
}

// RepositoryObject is one stored digital object.
type RepositoryObject interface {
	PID() string
	FOXML(ctx context.Context) ([]byte, error)
	Datastreams(ctx context.Context) ([]DatastreamProfile, error)
	Editor(profile DatastreamProfile) StreamEditor
}

// StreamEditor reads and writes a single datastream.
//
// Write is guarded by lastModified: it must equal the timestamp of the
// stored version (zero for a datastream that does not exist yet), otherwise
// a concurrent_modification error is returned and nothing is written.
type StreamEditor interface {
	PID() string
	Profile() DatastreamProfile
	// Read returns the content and remembers its timestamp.
	// A missing datastream yields a not_found error.
	Read(ctx context.Context) ([]byte, error)
	// LastModified is the timestamp observed by the last Read or Write.
	LastModified() time.Time
	Write(ctx context.Context, data []byte, lastModified time.Time, message string) error
}

// NewStorage builds the backend selected by the repository configuration.
func NewStorage(cfg *config.RepositoryConfig) (Storage, error) {
	switch cfg.Type {
	case "fedora":
		return NewRemoteStorage(cfg.Fedora)
	case "akubra", "":
		return NewLocalStorage(cfg.Akubra.Root, cfg.Akubra.Depth)
	default:
		return nil, exception.NewConfigurationError("fedora", fmt.Sprintf("unsupported repository type '%s'", cfg.Type), nil)
	}
}

// ReadStream is a convenience for a single datastream read.
func ReadStream(ctx context.Context, obj RepositoryObject, dsID string) ([]byte, error) {
	profiles, err := obj.Datastreams(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range profiles {
		if p.ID == dsID {
			return obj.Editor(p).Read(ctx)
		}
	}
	return nil, exception.NewNotFoundError(obj.PID(), dsID)
}

// FindProfile returns the profile of dsID among profiles.
func FindProfile(profiles []DatastreamProfile, dsID string) (DatastreamProfile, bool) {
	for _, p := range profiles {
		if p.ID == dsID {
			return p, true
		}
	}
	return DatastreamProfile{}, false
}
