// Package export holds the contract shared by every package producer: the
// request a batch hands to a producer and the per-root result it gets back.
package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/proarc/proarc/pkg/proarc/core/domain/model"
	"github.com/proarc/proarc/pkg/proarc/support/util/exception"
)

// MissingURNNBN is the validation message of an NDK root without URN:NBN.
const MissingURNNBN = "URNNBN identifier is missing"

// Request is one producer invocation.
type Request struct {
	BatchID int64
	// OutputDir is the export root of the user; producers create their
	// target folder below it.
	OutputDir string
	PIDs      []string
	Hierarchy bool
	Params    model.BatchParams
}

// Producer turns repository objects into a package on disk.
//
// Export returns one Result per requested root. The error return is only
// used when nothing could be attempted at all (for example the target
// folder cannot be created).
type Producer interface {
	Export(ctx context.Context, req Request) ([]Result, error)
}

// ProducerFunc adapts a function to Producer.
type ProducerFunc func(ctx context.Context, req Request) ([]Result, error)

func (f ProducerFunc) Export(ctx context.Context, req Request) ([]Result, error) { return f(ctx, req) }

// Issue is one finding of package validation.
type Issue struct {
	PID     string
	Message string
	// Warning issues are reported but do not fail the package.
	Warning bool
}

// ValidationError collects the issues of one root.
type ValidationError struct {
	Issues []Issue
}

// Add records an issue.
func (v *ValidationError) Add(pid, message string, warning bool) {
	v.Issues = append(v.Issues, Issue{PID: pid, Message: message, Warning: warning})
}

// Failed reports whether at least one issue is not a warning.
func (v *ValidationError) Failed() bool {
	if v == nil {
		return false
	}
	for _, i := range v.Issues {
		if !i.Warning {
			return true
		}
	}
	return false
}

// OnlyMissingURNNBN reports whether every failing issue is MissingURNNBN.
func (v *ValidationError) OnlyMissingURNNBN() bool {
	if !v.Failed() {
		return false
	}
	for _, i := range v.Issues {
		if !i.Warning && i.Message != MissingURNNBN {
			return false
		}
	}
	return true
}

// Details converts the issues for a batch log.
func (v *ValidationError) Details() []exception.Detail {
	out := make([]exception.Detail, 0, len(v.Issues))
	for _, i := range v.Issues {
		out = append(out, exception.Detail{PID: i.PID, Message: i.Message, Warning: i.Warning})
	}
	return out
}

func (v *ValidationError) Error() string {
	msgs := make([]string, 0, len(v.Issues))
	for _, i := range v.Issues {
		msgs = append(msgs, fmt.Sprintf("%s: %s", i.PID, i.Message))
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Result is the outcome for one requested root. Exactly one of Target,
// ValidationError and Err is set.
type Result struct {
	PID string
	// Folder is the batch target folder the producer wrote into.
	Folder    string
	PageCount int
	// Target is the produced package (folder or file).
	Target          string
	ValidationError *ValidationError
	Err             error
}

// Success builds a successful result.
func Success(pid, folder, target string, pages int) Result {
	return Result{PID: pid, Folder: folder, Target: target, PageCount: pages}
}

// Invalid builds a result for a root that failed validation.
func Invalid(pid, folder string, v *ValidationError) Result {
	return Result{PID: pid, Folder: folder, ValidationError: v}
}

// Failed builds a result for an infrastructure failure.
func Failed(pid, folder string, err error) Result {
	return Result{PID: pid, Folder: folder, Err: err}
}

// Check enforces that exactly one outcome is populated.
func (r Result) Check() error {
	n := 0
	if r.Target != "" {
		n++
	}
	if r.ValidationError != nil {
		n++
	}
	if r.Err != nil {
		n++
	}
	if n != 1 {
		return fmt.Errorf("result for %s has %d outcomes", r.PID, n)
	}
	return nil
}

// Outcome summarizes the results of one producer run.
type Outcome struct {
	Fatal      error
	Validation *ValidationError
	Folders    []string
	PageCount  map[string]int
}

// Summarize merges the results. Fatal errors of all roots are combined;
// validation issues are concatenated.
func Summarize(results []Result) Outcome {
	o := Outcome{PageCount: map[string]int{}}
	var fatal *multierror.Error
	seen := map[string]bool{}
	for _, r := range results {
		if r.Folder != "" && !seen[r.Folder] {
			seen[r.Folder] = true
			o.Folders = append(o.Folders, r.Folder)
		}
		if err := r.Check(); err != nil {
			fatal = multierror.Append(fatal, exception.NewProArcError(exception.KindInternal, "export", r.PID, err.Error(), nil))
			continue
		}
		switch {
		case r.Err != nil:
			fatal = multierror.Append(fatal, r.Err)
		case r.ValidationError != nil:
			if o.Validation == nil {
				o.Validation = &ValidationError{}
			}
			o.Validation.Issues = append(o.Validation.Issues, r.ValidationError.Issues...)
		default:
			o.PageCount[r.PID] = r.PageCount
		}
	}
	o.Fatal = fatal.ErrorOrNil()
	return o
}
