package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nutrinom/nutrinom-go/internal/domain/product"
	"github.com/nutrinom/nutrinom-go/internal/domain/scan"
	apperrors "github.com/nutrinom/nutrinom-go/internal/errors"
	"github.com/nutrinom/nutrinom-go/internal/observability/statsd"
	"github.com/nutrinom/nutrinom-go/internal/ports"
)

// HistoryServiceOptions groups dependencies for HistoryService.
type HistoryServiceOptions struct {
	Source  ports.HistorySource // Required
	Session SessionReader       // Required
	Scans   *ScanState          // Required: reopened items are presented here
	Deps    HistoryServiceDeps
}

// HistoryServiceDeps holds optional collaborators.
type HistoryServiceDeps struct {
	// Enricher fills in an analysis for items stored without one.
	Enricher      ports.Enricher
	EnrichTimeout time.Duration
	Reporter      ports.Reporter
	Metrics       statsd.Sink
	Logger        *slog.Logger
}

// HistoryService lists past scans and reopens them without saving again.
type HistoryService struct {
	source   ports.HistorySource
	session  SessionReader
	scans    *ScanState
	analyzer analyzer
	logger   *slog.Logger
}

// NewHistoryService constructs a HistoryService.
func NewHistoryService(opts HistoryServiceOptions) *HistoryService {
	if opts.Source == nil || opts.Session == nil || opts.Scans == nil {
		panic("service: HistoryService requires Source, Session and Scans")
	}
	logger := opts.Deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "history")
	d := opts.Deps
	return &HistoryService{
		source:   opts.Source,
		session:  opts.Session,
		scans:    opts.Scans,
		analyzer: newAnalyzer(d.Enricher, d.EnrichTimeout, d.Reporter, d.Metrics, logger),
		logger:   logger,
	}
}

// List returns the signed-in user's scans, newest first as the backend orders them.
func (s *HistoryService) List(ctx context.Context) ([]scan.HistoryEntry, error) {
	sess := s.session.Snapshot()
	if !sess.IsAuthenticated() {
		return nil, apperrors.AuthRequired("sign in to see your scan history")
	}
	entries, err := s.source.ListHistory(ctx, sess.Token, sess.UserID())
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return entries, nil
}

// Open fetches a past scan's product and its stored analysis concurrently
// and presents it. A missing or failing analysis does not fail the open;
// enrichment runs only when no analysis was stored. Products without
// nutrition facts are always shown without an analysis.
func (s *HistoryService) Open(ctx context.Context, entry scan.HistoryEntry) (*scan.Record, error) {
	sess := s.session.Snapshot()
	if !sess.IsAuthenticated() {
		return nil, apperrors.AuthRequired("sign in to see your scan history")
	}
	if entry.ProductID == "" {
		return nil, apperrors.ValidationField("productId", "product id is required")
	}

	var (
		doc      *product.Document
		analysis string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d, err := s.source.ProductDetail(gctx, sess.Token, entry.ProductID)
		if err != nil {
			return fmt.Errorf("product detail: %w", err)
		}
		doc = d
		return nil
	})
	g.Go(func() error {
		a, err := s.source.CachedAnalysis(gctx, sess.Token, entry.ProductID)
		if err != nil {
			s.logger.WarnContext(gctx, "cached analysis unavailable", "product_id", entry.ProductID, "error", err)
			return nil
		}
		analysis = a
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if doc.IsEmpty() {
		return nil, apperrors.NotFound("No product information available")
	}

	switch {
	case doc.Product.Nutrition.IsEmpty():
		analysis = ""
	case analysis == "":
		analysis = s.analyzer.analyze(ctx, sess.UserID(), doc)
	}

	code := doc.Code
	if code == "" {
		code = entry.ProductID
	}
	record := &scan.Record{Code: code, Document: doc, Analysis: analysis}
	s.scans.Present(record)
	return record, nil
}
