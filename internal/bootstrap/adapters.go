package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/nutrinom/nutrinom-go/config"
	"github.com/nutrinom/nutrinom-go/internal/adapters/backend"
	"github.com/nutrinom/nutrinom-go/internal/adapters/oidc"
	"github.com/nutrinom/nutrinom-go/internal/adapters/vertex"
	"github.com/nutrinom/nutrinom-go/internal/observability/statsd"
	"github.com/nutrinom/nutrinom-go/internal/observability/telemetry"
	"github.com/nutrinom/nutrinom-go/internal/ports"
)

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink   *statsd.Client
	MetricsConfig config.ObservabilityMetricsConfig
	Reporter      *telemetry.Reporter
}

// buildObservability never fails: a broken metrics or telemetry endpoint
// degrades to local logging.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	sink, err := statsd.NewClient(statsd.Config{
		Enabled: cfg.Metrics.IsEnabled(),
		Address: cfg.Metrics.StatsdAddress,
		Prefix:  "nutrinom",
		Logger:  logger,
		GlobalTags: map[string]string{
			"env": cfg.Telemetry.Environment,
		},
	})
	if err != nil {
		logger.Warn("metrics disabled: statsd client unavailable", "error", err)
		sink, _ = statsd.NewClient(statsd.Config{Logger: logger})
	}

	var remote telemetry.Sink
	if cfg.Telemetry.IsEnabled() {
		httpSink, sinkErr := telemetry.NewHTTPSink(telemetry.HTTPConfig{
			DSN:        cfg.Telemetry.DSN,
			Timeout:    cfg.Telemetry.Timeout,
			RetryLimit: cfg.Telemetry.RetryLimit,
		})
		if sinkErr != nil {
			logger.Warn("telemetry delivery disabled", "error", sinkErr)
		} else {
			remote = httpSink
		}
	}

	reporter := telemetry.NewReporter(telemetry.ReporterOptions{
		Logger:      logger,
		Metrics:     sink,
		Sink:        remote,
		Environment: cfg.Telemetry.Environment,
		Release:     cfg.Telemetry.Release,
	})

	return ObservabilityContainer{
		MetricsSink:   sink,
		MetricsConfig: cfg.Metrics,
		Reporter:      reporter,
	}
}

// buildBackendClient creates the product backend client.
func buildBackendClient(cfg config.BackendConfig, logger *slog.Logger) (*backend.Client, error) {
	client, err := backend.NewClient(backend.Config{
		BaseURL:   cfg.URL,
		Timeout:   cfg.Timeout,
		UserAgent: cfg.UserAgent,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create backend client: %w", err)
	}
	return client, nil
}

// EnricherBundle is the selected enricher and how to release it.
type EnricherBundle struct {
	// Enricher is nil when enrichment is off.
	Enricher ports.Enricher
	Closer   io.Closer
}

// buildEnricher selects the analysis source for the configured mode.
func buildEnricher(
	ctx context.Context,
	cfg config.EnrichmentConfig,
	client *backend.Client,
	logger *slog.Logger,
) (EnricherBundle, error) {
	switch cfg.Mode {
	case config.EnrichmentModeOff:
		logger.Debug("enrichment disabled")
		return EnricherBundle{}, nil
	case config.EnrichmentModeVertex:
		enricher, err := vertex.NewEnricher(ctx, vertex.Config{
			ProjectID:       cfg.Vertex.ProjectID,
			Location:        cfg.Vertex.Location,
			Model:           cfg.Vertex.Model,
			CredentialsFile: cfg.Vertex.CredentialsFile,
			Logger:          logger,
		})
		if err != nil {
			return EnricherBundle{}, fmt.Errorf("create vertex enricher: %w", err)
		}
		return EnricherBundle{Enricher: enricher, Closer: enricher}, nil
	default:
		return EnricherBundle{Enricher: client}, nil
	}
}

// buildIdentityProvider returns nil when Google sign-in is not configured.
// Discovery runs against the network, so callers only build it for login.
// ctx must outlive the provider: the key set is fetched lazily with it.
func buildIdentityProvider(ctx context.Context, cfg config.GoogleConfig, logger *slog.Logger) (*oidc.Provider, error) {
	if !cfg.Enabled() {
		logger.Debug("google sign-in not configured")
		return nil, nil //nolint:nilnil // nil provider disables google sign-in
	}

	provider, err := oidc.NewProvider(ctx, oidc.ProviderConfig{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scope:        cfg.Scope,
		DiscoveryURL: cfg.DiscoveryURL,
	})
	if err != nil {
		return nil, fmt.Errorf("create oidc provider: %w", err)
	}
	return provider, nil
}
