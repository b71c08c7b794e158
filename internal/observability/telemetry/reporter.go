package telemetry

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/nutrinom/nutrinom-go/internal/errors"
	obserrors "github.com/nutrinom/nutrinom-go/internal/observability/errors"
	"github.com/nutrinom/nutrinom-go/internal/observability/statsd"
	"github.com/nutrinom/nutrinom-go/internal/ports"
)

const (
	defaultMaxBreadcrumbs = 50
	deliveryTimeout       = 10 * time.Second
)

// ReporterOptions configures a Reporter.
type ReporterOptions struct {
	Logger      *slog.Logger
	Metrics     statsd.Sink
	Sink        Sink // optional remote delivery
	Environment string
	Release     string
	// MaxBreadcrumbs bounds the trail kept in memory (default 50).
	MaxBreadcrumbs int
	Now            func() time.Time
}

// Reporter implements ports.Reporter. Every report is logged and counted;
// when a Sink is configured it is also delivered in the background.
type Reporter struct {
	logger      *slog.Logger
	metrics     statsd.Sink
	sink        Sink
	environment string
	release     string
	max         int
	now         func() time.Time

	mu     sync.Mutex
	crumbs []Breadcrumb

	wg sync.WaitGroup
}

var _ ports.Reporter = (*Reporter)(nil)

// NewReporter builds a reporter.
func NewReporter(opts ReporterOptions) *Reporter {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxCrumbs := opts.MaxBreadcrumbs
	if maxCrumbs <= 0 {
		maxCrumbs = defaultMaxBreadcrumbs
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Reporter{
		logger:      logger.With("component", "telemetry"),
		metrics:     opts.Metrics,
		sink:        opts.Sink,
		environment: opts.Environment,
		release:     opts.Release,
		max:         maxCrumbs,
		now:         now,
	}
}

// Breadcrumb appends to the trail attached to later error reports.
func (r *Reporter) Breadcrumb(ctx context.Context, category, message string, data map[string]string) {
	crumb := Breadcrumb{
		Category:  category,
		Message:   message,
		Data:      ScrubTags(data),
		Timestamp: r.now().UTC(),
	}
	r.mu.Lock()
	r.crumbs = append(r.crumbs, crumb)
	if len(r.crumbs) > r.max {
		r.crumbs = append([]Breadcrumb(nil), r.crumbs[len(r.crumbs)-r.max:]...)
	}
	r.mu.Unlock()

	r.logger.DebugContext(ctx, "breadcrumb", "category", category, "message", message)
	if r.metrics != nil {
		r.metrics.Count("telemetry.breadcrumb", 1, map[string]string{"category": category})
	}
}

// CaptureError reports err with tags. Secrets in tags are replaced by fingerprints.
func (r *Reporter) CaptureError(ctx context.Context, err error, tags map[string]string) {
	if err == nil {
		return
	}
	clean := ScrubTags(tags)
	class := obserrors.Classify(err)
	if _, ok := clean["error_class"]; !ok && class != "" {
		if clean == nil {
			clean = map[string]string{}
		}
		clean["error_class"] = class
	}

	ev := Event{
		ID:          uuid.NewString(),
		Level:       LevelError,
		Message:     apperrors.GetMessage(err),
		ErrorClass:  class,
		Tags:        clean,
		Breadcrumbs: r.Breadcrumbs(),
		Environment: r.environment,
		Release:     r.release,
		OccurredAt:  r.now().UTC(),
	}

	attrs := []any{"event_id", ev.ID, "error", err.Error(), "error_class", class}
	for k, v := range clean {
		attrs = append(attrs, k, v)
	}
	r.logger.ErrorContext(ctx, "error captured", attrs...)
	if r.metrics != nil {
		r.metrics.Count("telemetry.error", 1, map[string]string{
			"error_class": class,
			"operation":   clean["operation"],
		})
	}

	if r.sink == nil {
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		// Delivery outlives the caller's request but not the process.
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deliveryTimeout)
		defer cancel()
		if sendErr := r.sink.Send(sendCtx, ev); sendErr != nil {
			r.logger.WarnContext(sendCtx, "telemetry delivery failed", "event_id", ev.ID, "error", sendErr)
			if r.metrics != nil {
				r.metrics.Count("telemetry.delivery_failed", 1, nil)
			}
		}
	}()
}

// Breadcrumbs returns a copy of the current trail.
func (r *Reporter) Breadcrumbs() []Breadcrumb {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Breadcrumb(nil), r.crumbs...)
}

// Flush waits for in-flight deliveries or until ctx is done.
func (r *Reporter) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var secretKeys = []string{"token", "authorization", "password", "secret", "cookie"}

// ScrubTags returns a copy of tags in which values under secret-looking keys
// are replaced by their fingerprint.
func ScrubTags(tags map[string]string) map[string]string {
	if len(tags) == 0 {
		return nil
	}
	out := make(map[string]string, len(tags))
	for k, v := range tags {
		if isSecretKey(k) && v != "" {
			out[k] = "fp:" + Fingerprint(v)
			continue
		}
		out[k] = v
	}
	return out
}

func isSecretKey(k string) bool {
	k = strings.ToLower(k)
	for _, s := range secretKeys {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}
