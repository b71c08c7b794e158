package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/nutrinom/nutrinom-go/internal/domain/product"
	apperrors "github.com/nutrinom/nutrinom-go/internal/errors"
	"github.com/nutrinom/nutrinom-go/internal/observability/metrics"
	"github.com/nutrinom/nutrinom-go/internal/observability/statsd"
	"github.com/nutrinom/nutrinom-go/internal/ports"
)

const defaultEnrichTimeout = 20 * time.Second

// analyzer runs best-effort enrichment under a deadline. Failures are
// reported as EnrichmentUnavailable and never reach the caller.
type analyzer struct {
	enricher ports.Enricher
	timeout  time.Duration
	reporter ports.Reporter
	metrics  statsd.Sink
	logger   *slog.Logger
}

func newAnalyzer(enricher ports.Enricher, timeout time.Duration, reporter ports.Reporter, sink statsd.Sink, logger *slog.Logger) analyzer {
	if timeout <= 0 {
		timeout = defaultEnrichTimeout
	}
	return analyzer{
		enricher: enricher,
		timeout:  timeout,
		reporter: reporterOrNop(reporter),
		metrics:  sink,
		logger:   logger,
	}
}

// analyze returns the AI analysis for doc, or "" when the product has no
// nutrition facts, enrichment is disabled, or the call fails.
func (a analyzer) analyze(ctx context.Context, userID string, doc *product.Document) string {
	if doc.IsEmpty() || doc.Product.Nutrition.IsEmpty() {
		return ""
	}
	if a.enricher == nil {
		metrics.EmitOperation(a.metrics, metrics.OpMetric{Operation: "enrich", Result: metrics.ResultSkipped})
		return ""
	}
	ectx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	analysis, err := a.enricher.Analyze(ectx, doc.NutritionPayload())
	if err == nil && analysis == "" {
		err = &apperrors.AppError{Code: apperrors.ErrCodeEnrichmentUnavailable, Message: "Nutrition analysis was empty"}
	}
	metrics.EmitOperation(a.metrics, metrics.OpMetric{
		Operation: "enrich",
		Result:    metrics.ResultFor(err),
		Duration:  time.Since(start),
		Err:       err,
	})
	if err != nil {
		if !apperrors.IsEnrichmentUnavailable(err) {
			err = apperrors.Wrap(err, apperrors.ErrCodeEnrichmentUnavailable, "nutrition analysis unavailable")
		}
		a.logger.WarnContext(ctx, "nutrition analysis unavailable", "code", doc.Code, "error", err)
		a.reporter.CaptureError(ctx, err, failureTags("enrich", userID, err))
		return ""
	}
	return analysis
}
