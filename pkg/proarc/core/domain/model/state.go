package model

import "fmt"

// BatchState is the persisted lifecycle state of a Batch.
type BatchState string

const (
	BatchLoading         BatchState = "LOADING"
	BatchLoadingFailed   BatchState = "LOADING_FAILED"
	BatchLoaded          BatchState = "LOADED"
	BatchIngesting       BatchState = "INGESTING"
	BatchIngestingFailed BatchState = "INGESTING_FAILED"
	BatchIngested        BatchState = "INGESTED"

	BatchWaitingExport         BatchState = "WAITING_EXPORT"
	BatchExporting             BatchState = "EXPORTING"
	BatchExportDone            BatchState = "EXPORT_DONE"
	BatchExportDoneWithWarning BatchState = "EXPORT_DONE_WITH_WARNING"
	BatchExportFailed          BatchState = "EXPORT_FAILED"
)

var batchTransitions = map[BatchState][]BatchState{
	BatchLoading:         {BatchLoaded, BatchLoadingFailed},
	BatchLoaded:          {BatchIngesting},
	BatchIngesting:       {BatchIngested, BatchIngestingFailed, BatchIngesting},
	BatchIngestingFailed: {BatchIngesting},
	BatchWaitingExport:   {BatchExporting, BatchExportFailed},
	BatchExporting:       {BatchExportDone, BatchExportDoneWithWarning, BatchExportFailed},
}

// CanTransitionTo reports whether the state machine allows s -> next.
func (s BatchState) CanTransitionTo(next BatchState) bool {
	for _, allowed := range batchTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no worker will touch a batch in this state again
// without an explicit user action.
func (s BatchState) IsTerminal() bool {
	switch s {
	case BatchLoadingFailed, BatchIngested, BatchExportDone, BatchExportDoneWithWarning, BatchExportFailed:
		return true
	}
	return false
}

// IsFailure reports whether the state records a failed run.
func (s BatchState) IsFailure() bool {
	switch s {
	case BatchLoadingFailed, BatchIngestingFailed, BatchExportFailed:
		return true
	}
	return false
}

// ParseBatchState validates a persisted state string.
func ParseBatchState(s string) (BatchState, error) {
	st := BatchState(s)
	switch st {
	case BatchLoading, BatchLoadingFailed, BatchLoaded, BatchIngesting, BatchIngestingFailed, BatchIngested,
		BatchWaitingExport, BatchExporting, BatchExportDone, BatchExportDoneWithWarning, BatchExportFailed:
		return st, nil
	}
	return "", fmt.Errorf("unknown batch state '%s'", s)
}

// ItemState is the state of one staged object of an import batch.
type ItemState string

const (
	ItemLoading         ItemState = "LOADING"
	ItemLoadingFailed   ItemState = "LOADING_FAILED"
	ItemLoaded          ItemState = "LOADED"
	ItemIngested        ItemState = "INGESTED"
	ItemIngestingFailed ItemState = "INGESTING_FAILED"
	// ItemExcluded items are skipped on purpose; it is not an error state.
	ItemExcluded ItemState = "EXCLUDED"
)

// ItemType distinguishes digital objects from auxiliary files of a batch.
type ItemType string

const (
	ItemTypeObject ItemType = "OBJECT"
	ItemTypeFile   ItemType = "FILE"
)
