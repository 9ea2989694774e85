// Package exception defines the error taxonomy of the ProArc export and import
// pipelines.
//
// Infrastructure failures (repository I/O, malformed FOXML, broken files) are
// returned as *ProArcError values classified by Kind. Expected validation
// outcomes are not errors; producers carry them as data in their results and
// only convert them to a LogRecord when a batch terminates.
package exception

import (
	"errors"
	"fmt"
	"runtime"
)

// Kind classifies a ProArcError.
type Kind string

const (
	KindDigitalObject          Kind = "digital_object"
	KindMetsExport             Kind = "mets_export"
	KindExport                 Kind = "export"
	KindTransform              Kind = "transform"
	KindNotFound               Kind = "not_found"
	KindConcurrentModification Kind = "concurrent_modification"
	KindValidation             Kind = "validation"
	KindLinkage                Kind = "linkage"
	KindConfiguration          Kind = "configuration"
	KindInternal               Kind = "internal"
)

// Sentinels for errors.Is checks. ProArcError values of the matching kind
// report true for them.
var (
	ErrNotFound                 = errors.New("object not found")
	ErrConcurrentModification   = errors.New("concurrent modification")
	ErrOptimisticLockingFailure = errors.New("optimistic locking failure")
	ErrTransform                = errors.New("transformation failed")
	ErrUnknownProfile           = errors.New("Unknown export profile")
)

// ProArcError is the error type shared by all pipeline components.
type ProArcError struct {
	Kind Kind
	// Module names the component that raised the error ("fedora", "mets", "export.ndk", ...).
	Module string
	// PID of the digital object involved, if any.
	PID string
	// DatastreamID is set by the exporters for per-stream failures.
	DatastreamID string
	Message      string
	OriginalErr  error
	StackTrace   string
}

func newError(kind Kind, module, pid, message string, err error) *ProArcError {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)
	return &ProArcError{
		Kind:        kind,
		Module:      module,
		PID:         pid,
		Message:     message,
		OriginalErr: err,
		StackTrace:  string(buf[:n]),
	}
}

// NewProArcError creates an error of an arbitrary kind.
func NewProArcError(kind Kind, module, pid, message string, err error) *ProArcError {
	return newError(kind, module, pid, message, err)
}

// NewProArcErrorf formats the message. A trailing error argument becomes the
// wrapped OriginalErr and is not consumed by the format string.
func NewProArcErrorf(kind Kind, module, format string, a ...interface{}) *ProArcError {
	var original error
	if len(a) > 0 {
		if err, ok := a[len(a)-1].(error); ok {
			original = err
			a = a[:len(a)-1]
		}
	}
	return newError(kind, module, "", fmt.Sprintf(format, a...), original)
}

// NewDigitalObjectError reports a repository-level failure for pid.
func NewDigitalObjectError(pid, message string, err error) *ProArcError {
	return newError(KindDigitalObject, "fedora", pid, message, err)
}

// NewMetsExportError reports a structural-walker failure for pid.
func NewMetsExportError(pid, message string, err error) *ProArcError {
	return newError(KindMetsExport, "mets", pid, message, err)
}

// NewExportError reports a failed export of one datastream of one object.
func NewExportError(pid, dsID, message string, err error) *ProArcError {
	e := newError(KindExport, "export", pid, message, err)
	e.DatastreamID = dsID
	return e
}

// NewTransformError reports malformed input to a metadata transformation.
func NewTransformError(format, message string, err error) *ProArcError {
	return newError(KindTransform, "transform."+format, "", message, err)
}

// NewNotFoundError reports a missing object or datastream.
func NewNotFoundError(pid, dsID string) *ProArcError {
	msg := fmt.Sprintf("%s not found", pid)
	if dsID != "" {
		msg = fmt.Sprintf("%s/%s not found", pid, dsID)
	}
	e := newError(KindNotFound, "fedora", pid, msg, ErrNotFound)
	e.DatastreamID = dsID
	return e
}

// NewConcurrentModificationError reports a write against a stale timestamp.
func NewConcurrentModificationError(pid, dsID string, err error) *ProArcError {
	wrapped := ErrConcurrentModification
	if err != nil {
		wrapped = errors.Join(ErrConcurrentModification, err)
	}
	e := newError(KindConcurrentModification, "fedora", pid,
		fmt.Sprintf("%s/%s was modified by another operation", pid, dsID), wrapped)
	e.DatastreamID = dsID
	return e
}

// NewOptimisticLockingFailure reports a lost compare-and-set on a persisted record.
func NewOptimisticLockingFailure(module, message string, err error) *ProArcError {
	wrapped := ErrOptimisticLockingFailure
	if err != nil {
		wrapped = errors.Join(ErrOptimisticLockingFailure, err)
	}
	return newError(KindConcurrentModification, module, "", message, wrapped)
}

// NewLinkageError reports a failed workflow-task update after a successful export.
func NewLinkageError(pid, message string, err error) *ProArcError {
	return newError(KindLinkage, "workflow", pid, message, err)
}

// NewConfigurationError reports invalid or missing configuration.
func NewConfigurationError(module, message string, err error) *ProArcError {
	return newError(KindConfiguration, module, "", message, err)
}

// Error implements error.
func (e *ProArcError) Error() string {
	prefix := fmt.Sprintf("[%s]", e.Module)
	if e.PID != "" {
		prefix = fmt.Sprintf("[%s %s]", e.Module, e.PID)
	}
	if e.OriginalErr != nil {
		return fmt.Sprintf("%s %s: %v", prefix, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("%s %s", prefix, e.Message)
}

// Unwrap supports errors.Is and errors.As.
func (e *ProArcError) Unwrap() error {
	return e.OriginalErr
}

// Is matches the kind sentinels so that callers do not need type assertions.
func (e *ProArcError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrConcurrentModification:
		return e.Kind == KindConcurrentModification
	case ErrTransform:
		return e.Kind == KindTransform
	}
	return false
}

// KindOf returns the kind of the first ProArcError in err's chain, or
// KindInternal for foreign errors.
func KindOf(err error) Kind {
	var pe *ProArcError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindInternal
}

// IsNotFound reports whether err denotes a missing object or datastream.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConcurrentModification reports whether err denotes a stale write.
func IsConcurrentModification(err error) bool {
	return errors.Is(err, ErrConcurrentModification) || errors.Is(err, ErrOptimisticLockingFailure)
}

// ExtractErrorMessage returns the innermost ProArcError message, or err.Error().
func ExtractErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for cur := err; cur != nil; cur = errors.Unwrap(cur) {
		if pe, ok := cur.(*ProArcError); ok {
			msg = pe.Message
		}
	}
	return msg
}
