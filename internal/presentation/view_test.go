package presentation

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutrinom/nutrinom-go/internal/adapters/backend"
	"github.com/nutrinom/nutrinom-go/internal/domain/product"
	"github.com/nutrinom/nutrinom-go/internal/domain/scan"
	"github.com/nutrinom/nutrinom-go/internal/testutil/backendtest"
)

const gradeADoc = `{
  "code": "3017620422003",
  "status": 1,
  "product": {
    "product_name": "Rolled Oats",
    "brands": "Field Co",
    "quantity": "500 g",
    "nutriscore_grade": "a",
    "ecoscore_grade": "B",
    "nova_group": "1",
    "countries": "France",
    "nutriments": {
      "energy-kcal_100g": 372,
      "carbohydrates_100g": 58.7,
      "sugars": "0.7",
      "fat_100g": 7,
      "saturated-fat_100g": 1.3,
      "proteins_100g": 13.5,
      "salt_100g": 0.01,
      "fiber_100g": 10
    },
    "allergens": "en:gluten",
    "ingredients_text": "Whole grain oats"
  }
}`

func mustDoc(t *testing.T, raw string) *product.Document {
	t.Helper()
	doc, err := product.ParseDocument([]byte(raw))
	require.NoError(t, err)
	return doc
}

func readyState(t *testing.T, raw, analysis string) scan.State {
	t.Helper()
	doc := mustDoc(t, raw)
	return scan.State{
		Phase:  scan.PhaseReady,
		Record: &scan.Record{Code: doc.Code, Document: doc, Analysis: analysis},
	}
}

func TestBuildResultView_NutriScoreBadge(t *testing.T) {
	v := BuildResultView(readyState(t, gradeADoc, ""))

	require.Equal(t, ViewProduct, v.Kind)
	require.NotNil(t, v.NutriScore)
	assert.Equal(t, Badge{Label: "A", Color: "#1a7f37"}, *v.NutriScore)
	require.NotNil(t, v.EcoScore)
	assert.Equal(t, Badge{Label: "B", Color: "#2da44e"}, *v.EcoScore)
}

func TestGradeBadge(t *testing.T) {
	tests := []struct {
		grade product.Grade
		want  *Badge
	}{
		{"a", &Badge{"A", "#1a7f37"}},
		{"b", &Badge{"B", "#2da44e"}},
		{"c", &Badge{"C", "#d4a72c"}},
		{"d", &Badge{"D", "#e16f24"}},
		{"E", &Badge{"E", "#cf222e"}},
		{"", nil},
		{"unknown", nil},
		{"f", nil},
	}
	for _, tt := range tests {
		t.Run(string(tt.grade), func(t *testing.T) {
			assert.Equal(t, tt.want, GradeBadge(tt.grade))
		})
	}
}

func TestBuildResultView_ProductFields(t *testing.T) {
	v := BuildResultView(readyState(t, gradeADoc, "High in fibre."))

	assert.Equal(t, "Rolled Oats", v.Title)
	assert.Equal(t, "3017620422003", v.Code)
	assert.Equal(t, []Row{{"Brand", "Field Co"}, {"Quantity", "500 g"}}, v.Details)
	assert.Equal(t, []Row{
		{"Calories", "372 kcal"},
		{"Carbohydrates", "58.7 g"},
		{"Sugars", "0.7 g"},
		{"Fat", "7 g"},
		{"Saturated Fat", "1.3 g"},
		{"Proteins", "13.5 g"},
		{"Salt", "0.01 g"},
		{"Fiber", "10 g"},
	}, v.Nutrition)
	assert.Equal(t, []Row{{"NOVA Group", "1"}, {"Countries", "France"}}, v.Additional)
	assert.Equal(t, "en:gluten", v.Allergens)
	assert.Equal(t, "Whole grain oats", v.Ingredients)
	assert.Equal(t, "High in fibre.", v.Analysis)
	assert.False(t, v.Saving)
	assert.Empty(t, v.Notice)
	assert.Equal(t, ActionScanAgain, v.Action)
}

func TestBuildResultView_States(t *testing.T) {
	t.Run("loading without record", func(t *testing.T) {
		v := BuildResultView(scan.State{Phase: scan.PhaseSaving})
		assert.Equal(t, ViewLoading, v.Kind)
		assert.Equal(t, MessageLoading, v.Message)
	})

	t.Run("saving with record", func(t *testing.T) {
		st := readyState(t, gradeADoc, "")
		st.Phase = scan.PhaseSaving
		v := BuildResultView(st)
		assert.Equal(t, ViewProduct, v.Kind)
		assert.True(t, v.Saving)
	})

	for _, kind := range []scan.FailureKind{scan.FailureNotFound, scan.FailureServerError, scan.FailureNetworkError} {
		t.Run("lookup failure "+string(kind), func(t *testing.T) {
			v := BuildResultView(scan.State{Phase: scan.PhaseFailed, Failure: &scan.Failure{Kind: kind, Detail: "upstream"}})
			assert.Equal(t, ViewEmpty, v.Kind)
			assert.Equal(t, "No product information available", v.Message)
			assert.Equal(t, "Try another scan", v.Action)
			assert.Empty(t, v.Notice, "lookup failures look the same to the user")
		})
	}

	t.Run("idle", func(t *testing.T) {
		v := BuildResultView(scan.State{})
		assert.Equal(t, ViewEmpty, v.Kind)
		assert.Equal(t, ActionRetry, v.Action)
	})

	t.Run("save failure keeps product", func(t *testing.T) {
		st := readyState(t, gradeADoc, "")
		st.Phase = scan.PhaseFailed
		st.Failure = &scan.Failure{Kind: scan.FailureSaveFailed, Detail: "barcode already saved"}
		v := BuildResultView(st)
		assert.Equal(t, ViewProduct, v.Kind)
		assert.Equal(t, "barcode already saved", v.Notice)
	})

	t.Run("auth required", func(t *testing.T) {
		st := readyState(t, gradeADoc, "")
		st.Phase = scan.PhaseFailed
		st.Failure = &scan.Failure{Kind: scan.FailureAuthRequired}
		assert.Equal(t, "Sign in to save scans.", BuildResultView(st).Notice)
	})
}

func TestBuildResultView_FallsBackToCodeAsTitle(t *testing.T) {
	v := BuildResultView(readyState(t, `{"code":"5000000000001","status":1,"product":{"brands":"Spring"}}`, ""))
	assert.Equal(t, "5000000000001", v.Title)
	assert.Empty(t, v.Nutrition)
}

func TestNutritionRows_RoundTrip(t *testing.T) {
	doc := mustDoc(t, gradeADoc)

	// The saved payload is the marshalled document.
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	again := mustDoc(t, string(raw))

	assert.Equal(t, NutritionRows(doc.Product.Nutrition), NutritionRows(again.Product.Nutrition))
}

func TestNutritionRows_RoundTripThroughBackend(t *testing.T) {
	srv := backendtest.New(t)
	srv.AddProduct("3017620422003", "p-17", gradeADoc)
	client, err := backend.NewClient(backend.Config{BaseURL: srv.URL, Timeout: 2 * time.Second})
	require.NoError(t, err)

	ctx := context.Background()
	looked, err := client.LookupProduct(ctx, "3017620422003")
	require.NoError(t, err)
	detail, err := client.ProductDetail(ctx, "tok", "p-17")
	require.NoError(t, err)

	first := BuildResultView(scan.State{Phase: scan.PhaseReady, Record: &scan.Record{Code: looked.Code, Document: looked}})
	second := BuildResultView(scan.State{Phase: scan.PhaseReady, Record: &scan.Record{Code: detail.Code, Document: detail}})
	assert.Equal(t, first.Nutrition, second.Nutrition)
	assert.Equal(t, first, second)
}

func TestRenderer_Result(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf)

	require.NoError(t, r.Result(BuildResultView(readyState(t, gradeADoc, "High in fibre."))))
	out := buf.String()

	assert.Contains(t, out, "Rolled Oats")
	assert.Contains(t, out, "Calories:")
	assert.Contains(t, out, "372 kcal")
	assert.Contains(t, out, "Nutri-Score:")
	assert.Contains(t, out, "[A]")
	assert.Contains(t, out, "High in fibre.")
	assert.NotContains(t, out, "\x1b[", "a buffer is not a terminal")
}

func TestRenderer_EmptyView(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewRenderer(&buf).Result(BuildResultView(scan.State{
		Phase:   scan.PhaseFailed,
		Failure: &scan.Failure{Kind: scan.FailureNotFound},
	})))
	assert.Equal(t, "No product information available\n\n> Try another scan\n", buf.String())
}

func TestRenderer_ColorBadge(t *testing.T) {
	r := NewRenderer(&bytes.Buffer{}).WithColor(true)
	assert.Equal(t, "\x1b[1;97;48;2;26;127;55m A \x1b[0m", r.Badge(Badge{Label: "A", Color: "#1a7f37"}))
	assert.Equal(t, "[X]", r.Badge(Badge{Label: "X", Color: "nope"}))
}
