package ports

import (
	"context"

	"github.com/nutrinom/nutrinom-go/internal/domain/product"
	"github.com/nutrinom/nutrinom-go/internal/domain/scan"
)

// ProductLookup resolves a barcode to a product document.
type ProductLookup interface {
	LookupProduct(ctx context.Context, code string) (*product.Document, error)
}

// AddScanInput is one entry for the user's remote scan history.
type AddScanInput struct {
	Token          string
	UserID         string
	Barcode        string
	FoodData       *product.Document
	ExpertAnalysis string
}

// ScanRecorder persists scans to the user's remote history.
type ScanRecorder interface {
	AddScan(ctx context.Context, in AddScanInput) error
}

// Enricher produces an AI nutrition analysis from normalized nutrition facts.
type Enricher interface {
	Analyze(ctx context.Context, payload product.NutritionPayload) (string, error)
}

// HistorySource reads the user's past scans.
type HistorySource interface {
	ListHistory(ctx context.Context, token, userID string) ([]scan.HistoryEntry, error)
	ProductDetail(ctx context.Context, token, productID string) (*product.Document, error)
	// CachedAnalysis returns the stored analysis for a product, "" when none exists.
	CachedAnalysis(ctx context.Context, token, productID string) (string, error)
}
