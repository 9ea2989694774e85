// Package model contains the persisted records of the export and import
// pipelines: batches, their items and parameters.
package model

import (
	"fmt"
	"time"
)

// Batch is a persisted export or import job.
type Batch struct {
	ID      int64
	Profile Profile
	Params  BatchParams
	State   BatchState
	// Log holds an exception.LogRecord rendered as JSON.
	Log string
	// Folder is relative to the export root of the user (export) or the
	// staging root (import).
	Folder    string
	UserID    int64
	Title     string
	Created   time.Time
	Timestamp time.Time
	// Version guards optimistic updates.
	Version int
}

// NewExportBatch creates a batch waiting for a worker.
func NewExportBatch(profile Profile, params BatchParams, userID int64) *Batch {
	now := time.Now().UTC()
	return &Batch{
		Profile:   profile,
		Params:    params,
		State:     BatchWaitingExport,
		UserID:    userID,
		Created:   now,
		Timestamp: now,
	}
}

// TransitionTo moves the batch to next if the state machine allows it.
func (b *Batch) TransitionTo(next BatchState) error {
	if !b.State.CanTransitionTo(next) {
		return fmt.Errorf("batch %d: illegal transition %s -> %s", b.ID, b.State, next)
	}
	b.State = next
	b.Timestamp = time.Now().UTC()
	return nil
}

// Clone returns a deep copy.
func (b *Batch) Clone() *Batch {
	if b == nil {
		return nil
	}
	c := *b
	c.Params.PIDs = append([]string(nil), b.Params.PIDs...)
	c.Params.DatastreamIDs = append([]string(nil), b.Params.DatastreamIDs...)
	return &c
}

// BatchItem is one staged object (or file) of an import batch.
type BatchItem struct {
	ID      int64
	BatchID int64
	PID     string
	// File is the staged FOXML path relative to the batch folder.
	File  string
	Type  ItemType
	State ItemState
	Log   string
}
