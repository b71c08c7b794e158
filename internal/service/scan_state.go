package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/nutrinom/nutrinom-go/internal/domain/barcode"
	"github.com/nutrinom/nutrinom-go/internal/domain/product"
	"github.com/nutrinom/nutrinom-go/internal/domain/scan"
	apperrors "github.com/nutrinom/nutrinom-go/internal/errors"
	"github.com/nutrinom/nutrinom-go/internal/observability/metrics"
	"github.com/nutrinom/nutrinom-go/internal/observability/statsd"
	"github.com/nutrinom/nutrinom-go/internal/ports"
)

const genericSaveFailure = "Could not save this scan. Please try again."

// ErrSuperseded is returned by a save whose result was discarded because a
// newer scan, a clear or a presented record replaced it.
var ErrSuperseded = errors.New("scan superseded by a newer one")

// ScanStateOptions groups dependencies for ScanState.
type ScanStateOptions struct {
	Session  SessionReader      // Required: authorizes saves
	Recorder ports.ScanRecorder // Required: remote history
	Deps     ScanStateDeps      // Optional collaborators and tuning
}

// ScanStateDeps holds the optional collaborators of ScanState.
type ScanStateDeps struct {
	// Enricher produces the AI analysis. Nil disables enrichment.
	Enricher      ports.Enricher
	EnrichTimeout time.Duration
	Reporter      ports.Reporter
	Metrics       statsd.Sink
	Logger        *slog.Logger
}

// ScanState holds the most recent scanned product, the failure of the last
// scan, and whether a save is in flight.
type ScanState struct {
	session  SessionReader
	recorder ports.ScanRecorder
	analyzer analyzer
	reporter ports.Reporter
	metrics  statsd.Sink
	logger   *slog.Logger

	mu    sync.RWMutex
	state scan.State
	// epoch advances on every operation that supersedes in-flight saves.
	epoch uint64
	// owner is the epoch of the save that currently holds the loading phase.
	owner uint64

	subs observers[scan.State]
}

// NewScanState constructs an idle ScanState.
func NewScanState(opts ScanStateOptions) *ScanState {
	if opts.Session == nil {
		panic("service: ScanState requires a Session")
	}
	if opts.Recorder == nil {
		panic("service: ScanState requires a Recorder")
	}
	logger := opts.Deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "scan_state")
	return &ScanState{
		session:  opts.Session,
		recorder: opts.Recorder,
		analyzer: newAnalyzer(opts.Deps.Enricher, opts.Deps.EnrichTimeout, opts.Deps.Reporter, opts.Deps.Metrics, logger),
		reporter: reporterOrNop(opts.Deps.Reporter),
		metrics:  opts.Deps.Metrics,
		logger:   logger,
	}
}

// Snapshot returns the current state. The returned value must be treated as
// read-only.
func (s *ScanState) Snapshot() scan.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe registers fn for every state change and returns a func that
// unregisters it. Once unregistered, fn is never called again.
func (s *ScanState) Subscribe(fn func(scan.State)) func() {
	return s.subs.add(fn)
}

// SaveScannedItem runs the full save sequence for a looked-up product and
// waits for it to finish. See StartSave.
func (s *ScanState) SaveScannedItem(ctx context.Context, code string, doc *product.Document) error {
	done, err := s.StartSave(ctx, code, doc)
	if err != nil {
		return err
	}
	return <-done
}

// StartSave validates the request and marks the store as saving before it
// returns; enrichment and the remote save then continue in the background.
// A request refused up front returns its *scan.Failure and a nil channel.
// Otherwise the returned channel yields the outcome exactly once.
func (s *ScanState) StartSave(ctx context.Context, code string, doc *product.Document) (<-chan error, error) {
	sess := s.session.Snapshot()
	if !sess.IsAuthenticated() {
		f := &scan.Failure{Kind: scan.FailureAuthRequired, Detail: "Sign in to save scans."}
		s.reject(ctx, "", code, f)
		return nil, f
	}

	code = barcode.Normalize(code)
	if err := barcode.Validate(code); err != nil {
		f := &scan.Failure{Kind: scan.FailureInvalidInput, Detail: err.Error()}
		s.reject(ctx, sess.UserID(), code, f)
		return nil, f
	}
	if doc.IsEmpty() {
		f := &scan.Failure{Kind: scan.FailureInvalidInput, Detail: "No product information to save."}
		s.reject(ctx, sess.UserID(), code, f)
		return nil, f
	}

	done := make(chan error, 1)
	epoch := s.begin()
	go func() {
		defer s.release(epoch)
		done <- s.save(ctx, epoch, sess.UserID(), sess.Token, code, doc)
	}()
	return done, nil
}

func (s *ScanState) save(
	ctx context.Context,
	epoch uint64,
	userID, token, code string,
	doc *product.Document,
) error {
	analysis := s.analyzer.analyze(ctx, userID, doc)

	record := &scan.Record{Code: code, Document: doc, Analysis: analysis}
	if !s.mutateIf(epoch, func(st *scan.State) { st.Record = record }) {
		return ErrSuperseded
	}

	start := time.Now()
	err := s.recorder.AddScan(ctx, ports.AddScanInput{
		Token:          token,
		UserID:         userID,
		Barcode:        code,
		FoodData:       doc,
		ExpertAnalysis: analysis,
	})
	metrics.EmitOperation(s.metrics, metrics.OpMetric{
		Operation: "add_scan",
		Result:    metrics.ResultFor(err),
		Duration:  time.Since(start),
		Err:       err,
	})
	if err != nil {
		detail := apperrors.GetMessage(err)
		if detail == "" {
			detail = genericSaveFailure
		}
		f := &scan.Failure{Kind: scan.FailureSaveFailed, Detail: detail}
		s.logger.ErrorContext(ctx, "failed to save scan", "code", code, "user_id", userID, "error", err)
		s.reporter.CaptureError(ctx, err, failureTags("add_scan", userID, err))
		if !s.mutateIf(epoch, func(st *scan.State) {
			st.Phase = scan.PhaseFailed
			st.Failure = f
		}) {
			return ErrSuperseded
		}
		return f
	}

	if !s.mutateIf(epoch, func(st *scan.State) { st.Phase = scan.PhaseReady }) {
		return ErrSuperseded
	}
	s.logger.InfoContext(ctx, "scan saved", "code", code, "user_id", userID, "analysis", analysis != "")
	return nil
}

// ClearScannedItem drops the current record and failure. An in-flight save
// is superseded but keeps the loading phase until it returns.
func (s *ScanState) ClearScannedItem() {
	s.mutate(func(st *scan.State) bool {
		s.epoch++
		if st.Record == nil && st.Failure == nil {
			return false
		}
		st.Record = nil
		st.Failure = nil
		if st.Phase != scan.PhaseSaving {
			st.Phase = scan.PhaseIdle
		}
		return true
	})
}

// Present shows a record without saving it. Used when reopening history.
func (s *ScanState) Present(record *scan.Record) {
	s.mutate(func(st *scan.State) bool {
		s.epoch++
		s.owner = 0
		st.Record = record
		st.Failure = nil
		st.Phase = scan.PhaseReady
		return true
	})
}

// Fail records a failure that happened before a save could start, such as
// a lookup error. Any previous record is dropped.
func (s *ScanState) Fail(f *scan.Failure) {
	s.mutate(func(st *scan.State) bool {
		s.epoch++
		s.owner = 0
		st.Record = nil
		st.Failure = f
		st.Phase = scan.PhaseFailed
		return true
	})
}

// reject records a save request refused before any remote call and reports
// it. Only the failure changes; the current record stays.
func (s *ScanState) reject(ctx context.Context, userID, code string, f *scan.Failure) {
	s.logger.WarnContext(ctx, "scan not saved", "code", code, "user_id", userID, "reason", f.Kind)
	s.reporter.CaptureError(ctx, f, failureTags("save_scan", userID, f))
	s.mutate(func(st *scan.State) bool {
		s.epoch++
		s.owner = 0
		st.Failure = f
		st.Phase = scan.PhaseFailed
		return true
	})
}

// begin supersedes earlier saves and enters the saving phase.
func (s *ScanState) begin() uint64 {
	var epoch uint64
	s.mutate(func(st *scan.State) bool {
		s.epoch++
		epoch = s.epoch
		s.owner = epoch
		st.Record = nil
		st.Failure = nil
		st.Phase = scan.PhaseSaving
		return true
	})
	return epoch
}

// release ends the saving phase if the save at epoch still owns it.
func (s *ScanState) release(epoch uint64) {
	s.mutate(func(st *scan.State) bool {
		if s.owner != epoch {
			return false
		}
		s.owner = 0
		if st.Phase != scan.PhaseSaving {
			return false
		}
		switch {
		case st.Failure != nil:
			st.Phase = scan.PhaseFailed
		case st.Record != nil:
			st.Phase = scan.PhaseReady
		default:
			st.Phase = scan.PhaseIdle
		}
		return true
	})
}

// mutateIf applies fn only while epoch is still current.
func (s *ScanState) mutateIf(epoch uint64, fn func(*scan.State)) bool {
	applied := false
	s.mutate(func(st *scan.State) bool {
		if s.epoch != epoch {
			return false
		}
		fn(st)
		applied = true
		return true
	})
	return applied
}

// mutate replaces the state with a modified copy when fn reports a change,
// then notifies subscribers outside the lock.
func (s *ScanState) mutate(fn func(*scan.State) bool) {
	s.mu.Lock()
	next := s.state
	if !fn(&next) {
		s.mu.Unlock()
		return
	}
	next.Generation = s.state.Generation + 1
	s.state = next
	s.mu.Unlock()

	s.subs.notify(next, next.Generation)
}
