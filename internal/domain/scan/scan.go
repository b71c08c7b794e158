// Package scan holds the value types shared by the scan state store, the
// pipeline and the result views.
package scan

import (
	"errors"

	"github.com/nutrinom/nutrinom-go/internal/domain/product"
	apperrors "github.com/nutrinom/nutrinom-go/internal/errors"
)

// Record is one scanned product as held in memory.
type Record struct {
	Code     string
	Document *product.Document
	// Analysis is the AI nutrition summary. Empty when the product has no
	// nutrition facts or enrichment failed.
	Analysis string
}

// HasAnalysis reports whether an analysis is present.
func (r *Record) HasAnalysis() bool {
	return r != nil && r.Analysis != ""
}

// FailureKind tags a user-visible scan failure.
type FailureKind string

const (
	FailureNone         FailureKind = ""
	FailureAuthRequired FailureKind = "auth_required"
	FailureInvalidInput FailureKind = "invalid_input"
	FailureSaveFailed   FailureKind = "save_failed"
	FailureNotFound     FailureKind = "not_found"
	FailureServerError  FailureKind = "server_error"
	FailureNetworkError FailureKind = "network_error"
	// FailureEnrichmentUnavailable is reported to telemetry only and never
	// stored on the scan state.
	FailureEnrichmentUnavailable FailureKind = "enrichment_unavailable"
)

// Failure is a tagged failure with an optional detail message.
type Failure struct {
	Kind   FailureKind
	Detail string
}

func (f *Failure) Error() string {
	if f.Detail == "" {
		return string(f.Kind)
	}
	return string(f.Kind) + ": " + f.Detail
}

// IsLookupFailure reports whether the failure came from resolving the barcode.
func (f *Failure) IsLookupFailure() bool {
	if f == nil {
		return false
	}
	switch f.Kind {
	case FailureNotFound, FailureServerError, FailureNetworkError:
		return true
	default:
		return false
	}
}

// FailureFromError maps an application error onto the failure taxonomy.
// Timeouts and cancellations are network failures from the user's view.
func FailureFromError(err error) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}

	detail := apperrors.GetMessage(err)
	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeAuthRequired:
		return &Failure{Kind: FailureAuthRequired, Detail: detail}
	case apperrors.ErrCodeValidation:
		return &Failure{Kind: FailureInvalidInput, Detail: detail}
	case apperrors.ErrCodeNotFound:
		return &Failure{Kind: FailureNotFound, Detail: detail}
	case apperrors.ErrCodeServer:
		return &Failure{Kind: FailureServerError, Detail: detail}
	case apperrors.ErrCodeSaveFailed:
		return &Failure{Kind: FailureSaveFailed, Detail: detail}
	case apperrors.ErrCodeEnrichmentUnavailable:
		return &Failure{Kind: FailureEnrichmentUnavailable, Detail: detail}
	default:
		return &Failure{Kind: FailureNetworkError, Detail: detail}
	}
}

// Phase is the lifecycle of the scan state store.
type Phase int

const (
	// PhaseIdle holds nothing.
	PhaseIdle Phase = iota
	// PhaseSaving is set while a save sequence is in flight.
	PhaseSaving
	// PhaseReady holds a record with no failure.
	PhaseReady
	// PhaseFailed holds a failure, and possibly the record that failed to save.
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSaving:
		return "saving"
	case PhaseReady:
		return "ready"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is an immutable snapshot of the scan state store. Snapshots are
// replaced wholesale; callers must not mutate the pointed-to values.
type State struct {
	Phase   Phase
	Record  *Record
	Failure *Failure
	// Generation increases with every mutation.
	Generation uint64
}

// IsLoading is true while a save sequence is in flight.
func (s State) IsLoading() bool { return s.Phase == PhaseSaving }

// FailureKind returns the failure tag, FailureNone when there is none.
func (s State) FailureKind() FailureKind {
	if s.Failure == nil {
		return FailureNone
	}
	return s.Failure.Kind
}

// IsEmpty reports whether there is neither a record nor a failure.
func (s State) IsEmpty() bool { return s.Record == nil && s.Failure == nil }
