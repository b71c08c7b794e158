package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nutrinom/nutrinom-go/internal/domain/barcode"
	"github.com/nutrinom/nutrinom-go/internal/domain/product"
	apperrors "github.com/nutrinom/nutrinom-go/internal/errors"
	"github.com/nutrinom/nutrinom-go/internal/observability/metrics"
	"github.com/nutrinom/nutrinom-go/internal/observability/statsd"
	"github.com/nutrinom/nutrinom-go/internal/ports"
)

// ProductResolver resolves a barcode to a product document.
type ProductResolver interface {
	Lookup(ctx context.Context, code string) (*product.Document, error)
}

// LookupServiceOptions groups dependencies for LookupService.
type LookupServiceOptions struct {
	Source ports.ProductLookup // Required: remote lookup
	Cache  ports.LookupCache   // Optional: nil disables caching
	Deps   LookupServiceDeps
}

// LookupServiceDeps holds optional tuning and collaborators.
type LookupServiceDeps struct {
	TTL     time.Duration
	Metrics statsd.Sink
	Logger  *slog.Logger
}

// LookupService deduplicates product lookups: concurrent requests for the
// same code share one remote call and successful results are cached.
type LookupService struct {
	source  ports.ProductLookup
	cache   ports.LookupCache
	ttl     time.Duration
	metrics statsd.Sink
	logger  *slog.Logger

	group singleflight.Group
}

var _ ProductResolver = (*LookupService)(nil)

// NewLookupService constructs a LookupService.
func NewLookupService(opts LookupServiceOptions) *LookupService {
	if opts.Source == nil {
		panic("service: LookupService requires a Source")
	}
	logger := opts.Deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &LookupService{
		source:  opts.Source,
		cache:   opts.Cache,
		ttl:     opts.Deps.TTL,
		metrics: opts.Deps.Metrics,
		logger:  logger.With("component", "lookup"),
	}
}

// Lookup returns the product for code. Cache failures are logged and fall
// through to the remote lookup.
func (s *LookupService) Lookup(ctx context.Context, code string) (*product.Document, error) {
	code = barcode.Normalize(code)
	if err := barcode.Validate(code); err != nil {
		return nil, apperrors.ValidationField("code", err.Error())
	}

	if doc, ok := s.cached(ctx, code); ok {
		metrics.EmitOperation(s.metrics, metrics.OpMetric{Operation: "lookup_cache", Result: metrics.ResultHit})
		return doc, nil
	}

	start := time.Now()
	v, err, shared := s.group.Do(code, func() (any, error) {
		doc, err := s.source.LookupProduct(ctx, code)
		if err != nil {
			return nil, err
		}
		s.store(ctx, code, doc)
		return doc, nil
	})

	result := metrics.ResultFor(err)
	if shared && err == nil {
		result = metrics.ResultShared
	}
	metrics.EmitOperation(s.metrics, metrics.OpMetric{
		Operation: "lookup",
		Result:    result,
		Duration:  time.Since(start),
		Err:       err,
	})
	if err != nil {
		return nil, err
	}
	return v.(*product.Document), nil
}

// Invalidate removes code from the cache.
func (s *LookupService) Invalidate(ctx context.Context, code string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, barcode.Normalize(code))
}

func (s *LookupService) cached(ctx context.Context, code string) (*product.Document, bool) {
	if s.cache == nil || s.ttl <= 0 {
		return nil, false
	}
	raw, ok, err := s.cache.Get(ctx, code)
	if err != nil {
		s.logger.WarnContext(ctx, "lookup cache read failed", "code", code, "error", err)
		return nil, false
	}
	if !ok {
		metrics.EmitOperation(s.metrics, metrics.OpMetric{Operation: "lookup_cache", Result: metrics.ResultMiss})
		return nil, false
	}
	doc, err := product.ParseDocument(raw)
	if err != nil || doc.IsEmpty() {
		s.logger.WarnContext(ctx, "discarding unreadable cached product", "code", code, "error", err)
		if derr := s.cache.Delete(ctx, code); derr != nil {
			s.logger.WarnContext(ctx, "lookup cache delete failed", "code", code, "error", derr)
		}
		return nil, false
	}
	return doc, true
}

func (s *LookupService) store(ctx context.Context, code string, doc *product.Document) {
	if s.cache == nil || s.ttl <= 0 || doc.IsEmpty() {
		return
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		s.logger.WarnContext(ctx, "encode product for cache", "code", code, "error", err)
		return
	}
	if err := s.cache.Set(ctx, code, raw, s.ttl); err != nil {
		s.logger.WarnContext(ctx, "lookup cache write failed", "code", code, "error", err)
	}
}
