package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/nutrinom/nutrinom-go/internal/data"
	"github.com/nutrinom/nutrinom-go/internal/domain/scan"
	"github.com/nutrinom/nutrinom-go/internal/observability/metrics"
	"github.com/nutrinom/nutrinom-go/internal/observability/statsd"
	"github.com/nutrinom/nutrinom-go/internal/ports"
)

// Rearmer re-enables code detection after a cycle.
type Rearmer interface {
	Focus()
}

// PipelineOptions groups dependencies for Pipeline.
type PipelineOptions struct {
	Lookup    ProductResolver // Required
	Scans     *ScanState      // Required
	Navigator ports.Navigator // Required
	Deps      PipelineDeps
}

// PipelineDeps holds optional collaborators.
type PipelineDeps struct {
	// Scanner is re-armed by Retry. It is usually attached later with
	// AttachScanner because the scanner forwards codes into the pipeline.
	Scanner      Rearmer
	Session      SessionReader
	Reporter     ports.Reporter
	Metrics      statsd.Sink
	TimeProvider data.TimeProvider
	Logger       *slog.Logger
}

// Pipeline drives one scan cycle: lookup, background save and navigation to
// the result screen.
type Pipeline struct {
	lookup    ProductResolver
	scans     *ScanState
	navigator ports.Navigator
	session   SessionReader
	reporter  ports.Reporter
	metrics   statsd.Sink
	clock     data.TimeProvider
	logger    *slog.Logger

	generation atomic.Uint64
	saves      sync.WaitGroup

	mu      sync.Mutex
	scanner Rearmer
	current scan.Cycle
}

// NewPipeline constructs a Pipeline.
func NewPipeline(opts PipelineOptions) *Pipeline {
	if opts.Lookup == nil || opts.Scans == nil || opts.Navigator == nil {
		panic("service: Pipeline requires Lookup, Scans and Navigator")
	}
	d := opts.Deps
	if d.TimeProvider == nil {
		d.TimeProvider = data.RealTimeProvider{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &Pipeline{
		lookup:    opts.Lookup,
		scans:     opts.Scans,
		navigator: opts.Navigator,
		session:   d.Session,
		reporter:  reporterOrNop(d.Reporter),
		metrics:   d.Metrics,
		clock:     d.TimeProvider,
		logger:    d.Logger.With("component", "pipeline"),
		scanner:   d.Scanner,
	}
}

// AttachScanner sets the scanner re-armed by Retry.
func (p *Pipeline) AttachScanner(r Rearmer) {
	p.mu.Lock()
	p.scanner = r
	p.mu.Unlock()
}

// Current returns the latest cycle.
func (p *Pipeline) Current() scan.Cycle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// HandleCode runs a new cycle for code and supersedes any earlier one. It
// returns once the cycle reached Saved or Failed and navigation happened;
// the save itself continues in the background (see Wait). Lookup failures
// and saves refused up front are reported through the returned cycle, not
// as an error. ErrSuperseded
// is returned when a newer cycle started before this one finished.
func (p *Pipeline) HandleCode(ctx context.Context, code string) (scan.Cycle, error) {
	cycle := scan.Cycle{
		ID:         uuid.NewString(),
		Generation: p.generation.Add(1),
		Code:       code,
		Stage:      scan.StageScanned,
		StartedAt:  p.clock.Now(),
	}
	if !p.advance(&cycle, scan.StageLookingUp, scan.FailureNone) {
		return cycle, ErrSuperseded
	}
	p.logger.InfoContext(ctx, "looking up barcode", "cycle_id", cycle.ID, "code", code)

	doc, err := p.lookup.Lookup(ctx, code)
	if p.stale(cycle.Generation) {
		return cycle, ErrSuperseded
	}

	if err != nil {
		f := scan.FailureFromError(err)
		if !f.IsLookupFailure() && f.Kind != scan.FailureInvalidInput {
			f = &scan.Failure{Kind: scan.FailureNetworkError, Detail: f.Detail}
		}
		if !p.advance(&cycle, scan.StageFailed, f.Kind) {
			return cycle, ErrSuperseded
		}
		p.logger.WarnContext(ctx, "lookup failed", "cycle_id", cycle.ID, "code", code, "reason", f.Kind, "error", err)
		p.reporter.CaptureError(ctx, err, failureTags("lookup", p.userID(), err))
		p.scans.Fail(f)
		p.finish(ctx, cycle)
		return cycle, nil
	}

	if !p.advance(&cycle, scan.StageSaved, scan.FailureNone) {
		return cycle, ErrSuperseded
	}
	done, err := p.scans.StartSave(context.WithoutCancel(ctx), code, doc)
	if err != nil {
		f := scan.FailureFromError(err)
		if !p.advance(&cycle, scan.StageFailed, f.Kind) {
			return cycle, ErrSuperseded
		}
		p.logger.InfoContext(ctx, "scan not saved", "cycle_id", cycle.ID, "code", code, "reason", f.Kind)
		p.finish(ctx, cycle)
		return cycle, nil
	}
	p.saves.Add(1)
	go func() {
		defer p.saves.Done()
		if err := <-done; err != nil && !errors.Is(err, ErrSuperseded) {
			p.logger.WarnContext(ctx, "scan not saved", "cycle_id", cycle.ID, "code", code, "error", err)
		}
	}()
	p.finish(ctx, cycle)
	return cycle, nil
}

// Retry clears the result, re-arms the scanner and returns to the scanner screen.
func (p *Pipeline) Retry(ctx context.Context) {
	p.generation.Add(1)
	p.scans.ClearScannedItem()

	p.mu.Lock()
	p.current = scan.Cycle{Stage: scan.StageIdle}
	scanner := p.scanner
	p.mu.Unlock()

	if scanner != nil {
		scanner.Focus()
	}
	p.navigator.Navigate(ctx, ports.RouteScanner)
}

// Wait blocks until every background save has finished.
func (p *Pipeline) Wait() {
	p.saves.Wait()
}

// advance moves the cycle to stage if it is still the newest one.
func (p *Pipeline) advance(c *scan.Cycle, stage scan.Stage, reason scan.FailureKind) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.generation.Load() != c.Generation {
		return false
	}
	c.Stage = stage
	c.Reason = reason
	p.current = *c
	return true
}

func (p *Pipeline) stale(gen uint64) bool {
	return p.generation.Load() != gen
}

func (p *Pipeline) finish(ctx context.Context, c scan.Cycle) {
	metrics.EmitScanCycle(p.metrics, metrics.CycleMetric{
		Stage:    c.Stage,
		Reason:   c.Reason,
		Duration: p.clock.Now().Sub(c.StartedAt),
	})
	p.reporter.Breadcrumb(ctx, "scan", "Scan "+c.Stage.String(), map[string]string{
		"cycle_id": c.ID,
		"code":     c.Code,
	})
	if p.stale(c.Generation) {
		return
	}
	p.navigator.Navigate(ctx, ports.RouteResult)
}

func (p *Pipeline) userID() string {
	if p.session == nil {
		return ""
	}
	return p.session.Snapshot().UserID()
}
