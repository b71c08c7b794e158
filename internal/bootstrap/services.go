package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nutrinom/nutrinom-go/config"
	"github.com/nutrinom/nutrinom-go/internal/adapters/backend"
	"github.com/nutrinom/nutrinom-go/internal/data"
	"github.com/nutrinom/nutrinom-go/internal/domain/barcode"
	"github.com/nutrinom/nutrinom-go/internal/ports"
	"github.com/nutrinom/nutrinom-go/internal/service"
)

// App holds all application services.
type App struct {
	Config        config.AppConfig
	Logger        *slog.Logger
	Observability ObservabilityContainer
	Storage       *Storage
	Backend       *backend.Client

	Session  *service.SessionState
	Scans    *service.ScanState
	Lookup   *service.LookupService
	Pipeline *service.Pipeline
	History  *service.HistoryService
	Auth     *service.AuthService

	enricher EnricherBundle
}

// AppDeps groups dependencies for BuildApp.
type AppDeps struct {
	Config *config.AppConfig
	Logger *slog.Logger
	// Navigator receives screen changes. Defaults to logging them.
	Navigator ports.Navigator
	// WithGoogle runs OIDC discovery so Google sign-in is available.
	WithGoogle bool
	// Storage overrides the configured store. The App takes ownership of it.
	Storage *Storage
	Clock   data.TimeProvider
}

// BuildApp wires every service and restores the persisted session.
func BuildApp(ctx context.Context, deps AppDeps) (*App, error) {
	if deps.Config == nil {
		return nil, errors.New("config is required")
	}
	cfg := *deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Clock == nil {
		deps.Clock = data.RealTimeProvider{}
	}
	navigator := deps.Navigator
	if navigator == nil {
		navigator = logNavigator{logger: logger}
	}

	app := &App{
		Config:        cfg,
		Logger:        logger,
		Observability: buildObservability(logger, cfg.Observability),
	}
	ok := false
	defer func() {
		if !ok {
			_ = app.Close(context.WithoutCancel(ctx))
		}
	}()

	app.Storage = deps.Storage
	if app.Storage == nil {
		st, err := OpenStorage(ctx, StorageConfig{
			Storage:     cfg.Storage,
			RedisConfig: cfg.Redis,
			LookupCache: cfg.LookupCache,
			Clock:       deps.Clock,
			Logger:      logger,
		})
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
		app.Storage = st
	}

	client, err := buildBackendClient(cfg.Backend, logger)
	if err != nil {
		return nil, err
	}
	app.Backend = client

	app.enricher, err = buildEnricher(ctx, cfg.Enrichment, client, logger)
	if err != nil {
		return nil, err
	}

	if err := app.buildServices(ctx, deps, navigator); err != nil {
		return nil, err
	}

	app.Session.Hydrate(ctx)
	ok = true
	return app, nil
}

func (a *App) buildServices(ctx context.Context, deps AppDeps, navigator ports.Navigator) error {
	reporter := a.Observability.Reporter
	metricsSink := a.Observability.MetricsSink

	a.Session = service.NewSessionState(service.SessionStateOptions{
		Store:   a.Storage.KV,
		Account: a.Backend,
		Sealer:  CreateSealer(a.Config.Storage.EncryptionKey, a.Logger),
		Deps: service.SessionStateDeps{
			Reporter: reporter,
			Logger:   a.Logger,
		},
	})

	a.Scans = service.NewScanState(service.ScanStateOptions{
		Session:  a.Session,
		Recorder: a.Backend,
		Deps: service.ScanStateDeps{
			Enricher:      a.enricher.Enricher,
			EnrichTimeout: a.Config.Enrichment.Timeout,
			Reporter:      reporter,
			Metrics:       metricsSink,
			Logger:        a.Logger,
		},
	})

	lookupOpts := service.LookupServiceOptions{
		Source: a.Backend,
		Deps: service.LookupServiceDeps{
			TTL:     a.Config.LookupCache.TTL,
			Metrics: metricsSink,
			Logger:  a.Logger,
		},
	}
	if a.Storage.Cache != nil {
		lookupOpts.Cache = a.Storage.Cache
	}
	a.Lookup = service.NewLookupService(lookupOpts)

	a.Pipeline = service.NewPipeline(service.PipelineOptions{
		Lookup:    a.Lookup,
		Scans:     a.Scans,
		Navigator: navigator,
		Deps: service.PipelineDeps{
			Session:      a.Session,
			Reporter:     reporter,
			Metrics:      metricsSink,
			TimeProvider: deps.Clock,
			Logger:       a.Logger,
		},
	})

	a.History = service.NewHistoryService(service.HistoryServiceOptions{
		Source:  a.Backend,
		Session: a.Session,
		Scans:   a.Scans,
		Deps: service.HistoryServiceDeps{
			Enricher:      a.enricher.Enricher,
			EnrichTimeout: a.Config.Enrichment.Timeout,
			Reporter:      reporter,
			Metrics:       metricsSink,
			Logger:        a.Logger,
		},
	})

	authOpts := service.AuthServiceOptions{
		Exchanger: a.Backend,
		Session:   a.Session,
	}
	if deps.WithGoogle {
		provider, err := buildIdentityProvider(ctx, a.Config.Auth.Google, a.Logger)
		if err != nil {
			return err
		}
		// A nil *oidc.Provider must not become a non-nil interface.
		if provider != nil {
			authOpts.Provider = provider
		}
	}
	a.Auth = service.NewAuthService(authOpts)
	return nil
}

// NewScanner builds a scanner over camera that feeds codes into the
// pipeline. onCycle, when set, runs after every cycle reaches the result screen.
func (a *App) NewScanner(camera ports.Camera, onCycle func(ctx context.Context, code string)) (*service.Scanner, error) {
	filter, err := ScanFilterFromConfig(a.Config.Scanner)
	if err != nil {
		return nil, err
	}
	scanner := service.NewScanner(service.ScannerOptions{
		Camera: camera,
		Filter: filter,
		OnCode: func(ctx context.Context, code string) {
			if _, err := a.Pipeline.HandleCode(ctx, code); err != nil {
				a.Logger.DebugContext(ctx, "scan cycle ended early", "code", code, "error", err)
				return
			}
			if onCycle != nil {
				onCycle(ctx, code)
			}
		},
		Logger: a.Logger,
	})
	a.Pipeline.AttachScanner(scanner)
	return scanner, nil
}

// ScanFilterFromConfig converts the scanner configuration.
func ScanFilterFromConfig(cfg config.ScannerConfig) (service.ScanFilter, error) {
	r, err := cfg.ParsedRegion()
	if err != nil {
		return service.ScanFilter{}, fmt.Errorf("scanner region: %w", err)
	}
	region, err := barcode.NewRegion(r[0], r[1], r[2], r[3])
	if err != nil {
		return service.ScanFilter{}, fmt.Errorf("scanner region: %w", err)
	}
	syms := make([]barcode.Symbology, 0, len(cfg.Symbologies))
	for _, name := range cfg.Symbologies {
		sym, err := barcode.ParseSymbology(name)
		if err != nil {
			return service.ScanFilter{}, fmt.Errorf("scanner symbologies: %w", err)
		}
		syms = append(syms, sym)
	}
	return service.ScanFilter{Region: region, Symbologies: syms}, nil
}

// Close waits for background saves, flushes telemetry and releases every
// connection. It is safe to call on a partially built App.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Pipeline != nil {
		a.Pipeline.Wait()
	}
	if a.Observability.Reporter != nil {
		if err := a.Observability.Reporter.Flush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush telemetry: %w", err))
		}
	}
	if a.enricher.Closer != nil {
		if err := a.enricher.Closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close enricher: %w", err))
		}
	}
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Observability.MetricsSink != nil {
		if err := a.Observability.MetricsSink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close metrics: %w", err))
		}
	}
	return errors.Join(errs...)
}

// logNavigator records screen changes in the log when no UI is attached.
type logNavigator struct {
	logger *slog.Logger
}

func (n logNavigator) Navigate(ctx context.Context, route ports.Route) {
	n.logger.DebugContext(ctx, "navigate", "route", route)
}
