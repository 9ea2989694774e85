package exception

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Detail is one structured entry of a LogRecord, typically a validation issue.
type Detail struct {
	PID     string `json:"pid,omitempty"`
	Message string `json:"message"`
	Warning bool   `json:"warning,omitempty"`
}

// LogRecord is the single format persisted in a batch's log column:
// an error kind, a human readable message and optional details.
type LogRecord struct {
	Kind    Kind     `json:"kind"`
	Message string   `json:"message"`
	Details []Detail `json:"details,omitempty"`
}

// FromError converts an error into a LogRecord. Nested ProArcErrors contribute
// details so that the root cause is not lost. A multierror with a single
// entry is unwrapped; with more entries the first one sets the kind and each
// entry becomes a detail.
func FromError(err error) LogRecord {
	if err == nil {
		return LogRecord{}
	}
	if merr, ok := err.(*multierror.Error); ok {
		return fromMulti(merr)
	}
	rec := LogRecord{Kind: KindOf(err), Message: err.Error()}
	var pe *ProArcError
	if errors.As(err, &pe) {
		rec.Message = pe.Message
		d := Detail{PID: pe.PID, Message: pe.Error()}
		if pe.OriginalErr != nil {
			d.Message = pe.OriginalErr.Error()
		}
		rec.Details = append(rec.Details, d)
	}
	return rec
}

func fromMulti(merr *multierror.Error) LogRecord {
	switch len(merr.Errors) {
	case 0:
		return LogRecord{}
	case 1:
		return FromError(merr.Errors[0])
	}
	first := FromError(merr.Errors[0])
	rec := LogRecord{
		Kind:    first.Kind,
		Message: fmt.Sprintf("%s (%d errors)", first.Message, len(merr.Errors)),
	}
	for _, e := range merr.Errors {
		sub := FromError(e)
		if len(sub.Details) == 0 {
			rec.Details = append(rec.Details, Detail{Message: sub.Message})
			continue
		}
		rec.Details = append(rec.Details, sub.Details...)
	}
	return rec
}

// String renders the record as compact JSON.
func (r LogRecord) String() string {
	b, err := json.Marshal(r)
	if err != nil {
		return r.Message
	}
	return string(b)
}

// ParseLogRecord reads a persisted log. Legacy free-text logs become a record
// of kind internal with the text as its message.
func ParseLogRecord(s string) LogRecord {
	var rec LogRecord
	if err := json.Unmarshal([]byte(s), &rec); err != nil || rec.Kind == "" {
		return LogRecord{Kind: KindInternal, Message: s}
	}
	return rec
}
