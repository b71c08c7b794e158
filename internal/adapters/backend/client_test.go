package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/nutrinom/nutrinom-go/internal/domain/auth"
	"github.com/nutrinom/nutrinom-go/internal/domain/product"
	"github.com/nutrinom/nutrinom-go/internal/domain/scan"
	apperrors "github.com/nutrinom/nutrinom-go/internal/errors"
	"github.com/nutrinom/nutrinom-go/internal/ports"
	"github.com/nutrinom/nutrinom-go/internal/testutil/backendtest"
)

const nutellaDoc = `{
  "code": "3017620422003",
  "status": 1,
  "product": {
    "product_name": "Nutella",
    "brands": "Ferrero",
    "nutriscore_grade": "e",
    "nutriments": {"energy-kcal_100g": 539, "sugars_100g": "56.3"}
  }
}`

func newTestClient(t *testing.T, srv *backendtest.Server, timeout time.Duration) *Client {
	t.Helper()
	c, err := NewClient(Config{BaseURL: srv.URL + "/", Timeout: timeout})
	require.NoError(t, err)
	return c
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)

	_, err = NewClient(Config{BaseURL: "not-a-url"})
	require.Error(t, err)

	c, err := NewClient(Config{BaseURL: "https://api.example.com/"})
	require.NoError(t, err)
	assert.Equal(t, defaultTimeout, c.timeout)
	assert.Equal(t, "nutrinom-go", c.userAgent)
}

func TestLookupProduct(t *testing.T) {
	srv := backendtest.New(t)
	srv.AddProduct("3017620422003", "p-1", nutellaDoc)
	c := newTestClient(t, srv, time.Second)

	t.Run("found", func(t *testing.T) {
		doc, err := c.LookupProduct(context.Background(), "3017620422003")
		require.NoError(t, err)
		assert.Equal(t, "3017620422003", doc.Code)
		assert.Equal(t, "Nutella", doc.Product.Name)
		require.NotNil(t, doc.Product.Nutrition.Sugars)
		assert.InDelta(t, 56.3, *doc.Product.Nutrition.Sugars, 0.001)

		reqs := srv.Requests()
		last := reqs[len(reqs)-1]
		assert.Equal(t, "/api/call", last.Path)
		assert.NotEmpty(t, last.RequestID)
		assert.Empty(t, last.Authorization)
	})

	t.Run("unknown barcode is not found", func(t *testing.T) {
		_, err := c.LookupProduct(context.Background(), "0000000000000")
		require.Error(t, err)
		assert.True(t, apperrors.IsNotFound(err))
		assert.Equal(t, http.StatusNotFound, apperrors.GetStatus(err))
	})

	t.Run("empty 200 is not found", func(t *testing.T) {
		srv.AddProduct("111", "", `{"code":"111","status":0,"status_verbose":"product not found"}`)
		_, err := c.LookupProduct(context.Background(), "111")
		require.Error(t, err)
		assert.True(t, apperrors.IsNotFound(err))
		assert.Equal(t, http.StatusOK, apperrors.GetStatus(err))
	})

	t.Run("server error carries detail", func(t *testing.T) {
		srv.SetFault(backendtest.RouteLookup, backendtest.Fault{
			Status: http.StatusInternalServerError,
			Body:   `{"error":{"message":"upstream unavailable"}}`,
		})
		defer srv.ClearFault(backendtest.RouteLookup)

		_, err := c.LookupProduct(context.Background(), "3017620422003")
		require.Error(t, err)
		assert.True(t, apperrors.IsServer(err))
		assert.Equal(t, "upstream unavailable", apperrors.GetMessage(err))
	})

	t.Run("malformed body", func(t *testing.T) {
		srv.SetFault(backendtest.RouteLookup, backendtest.Fault{Status: http.StatusOK, Body: `{"product":`})
		defer srv.ClearFault(backendtest.RouteLookup)

		_, err := c.LookupProduct(context.Background(), "3017620422003")
		require.Error(t, err)
		assert.True(t, apperrors.IsServer(err))
	})
}

func TestLookupProduct_Timeout(t *testing.T) {
	srv := backendtest.New(t)
	srv.SetFault(backendtest.RouteLookup, backendtest.Fault{Delay: 500 * time.Millisecond})
	c := newTestClient(t, srv, 50*time.Millisecond)

	_, err := c.LookupProduct(context.Background(), "3017620422003")
	require.Error(t, err)
	assert.True(t, apperrors.IsTimeout(err), "got %v", err)
	assert.Zero(t, apperrors.GetStatus(err))
}

func TestLookupProduct_Unreachable(t *testing.T) {
	srv := backendtest.New(t)
	c := newTestClient(t, srv, time.Second)
	srv.Close()

	_, err := c.LookupProduct(context.Background(), "3017620422003")
	require.Error(t, err)
	assert.True(t, apperrors.IsNetwork(err), "got %v", err)
}

func TestAddScan(t *testing.T) {
	srv := backendtest.New(t)
	c := newTestClient(t, srv, time.Second)

	doc, err := product.ParseDocument([]byte(nutellaDoc))
	require.NoError(t, err)

	in := ports.AddScanInput{
		Token:          "tok-123",
		UserID:         "42",
		Barcode:        "3017620422003",
		FoodData:       doc,
		ExpertAnalysis: "High in sugar.",
	}
	require.NoError(t, c.AddScan(context.Background(), in))

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/product/add", reqs[0].Path)
	assert.Equal(t, "Bearer tok-123", reqs[0].Authorization)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(reqs[0].Body, &body))
	assert.JSONEq(t, `"42"`, string(body["userId"]))
	assert.JSONEq(t, `"3017620422003"`, string(body["barcode"]))
	assert.JSONEq(t, `"High in sugar."`, string(body["expertAnalysis"]))
	assert.Contains(t, string(body["foodData"]), `"Nutella"`)

	t.Run("no analysis sends null", func(t *testing.T) {
		in.ExpertAnalysis = ""
		require.NoError(t, c.AddScan(context.Background(), in))
		reqs := srv.Requests()
		var body map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(reqs[len(reqs)-1].Body, &body))
		assert.Equal(t, "null", string(body["expertAnalysis"]))
	})

	t.Run("backend rejection becomes save failed", func(t *testing.T) {
		srv.SetFault(backendtest.RouteAddScan, backendtest.Fault{Status: http.StatusBadRequest, Body: `{"message":"barcode already saved"}`})
		defer srv.ClearFault(backendtest.RouteAddScan)

		err := c.AddScan(context.Background(), in)
		require.Error(t, err)
		assert.True(t, apperrors.IsSaveFailed(err))
		assert.Equal(t, "barcode already saved", apperrors.GetMessage(err))
		assert.Equal(t, http.StatusBadRequest, apperrors.GetStatus(err))
	})

	t.Run("plain text error body", func(t *testing.T) {
		srv.SetFault(backendtest.RouteAddScan, backendtest.Fault{Status: http.StatusInternalServerError, Body: "database locked"})
		defer srv.ClearFault(backendtest.RouteAddScan)

		err := c.AddScan(context.Background(), in)
		require.Error(t, err)
		assert.True(t, apperrors.IsSaveFailed(err))
		assert.Equal(t, "database locked", apperrors.GetMessage(err))
	})
}

func TestAnalyze(t *testing.T) {
	srv := backendtest.New(t)
	c := newTestClient(t, srv, time.Second)
	payload := product.NutritionPayload{FoodName: "Nutella"}

	got, err := c.Analyze(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, "Balanced snack with moderate sugar.", got)

	srv.SetAnalysis("  ")
	_, err = c.Analyze(context.Background(), payload)
	require.Error(t, err)
	assert.True(t, apperrors.IsEnrichmentUnavailable(err))

	srv.SetFault(backendtest.RouteAnalyze, backendtest.Fault{Status: http.StatusBadGateway})
	_, err = c.Analyze(context.Background(), payload)
	require.Error(t, err)
	assert.True(t, apperrors.IsEnrichmentUnavailable(err))
}

func TestHistoryEndpoints(t *testing.T) {
	srv := backendtest.New(t)
	srv.AddProduct("3017620422003", "p-1", nutellaDoc)
	srv.SetHistory("42", []scan.HistoryEntry{{ScanID: "s-1", ProductID: "p-1", ProductName: "Nutella"}})
	srv.SetCachedAnalysis("p-1", "Treat, not a staple.")
	c := newTestClient(t, srv, time.Second)
	ctx := context.Background()

	entries, err := c.ListHistory(ctx, "tok", "42")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "p-1", entries[0].ProductID)

	empty, err := c.ListHistory(ctx, "tok", "7")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = c.ListHistory(ctx, "tok", " ")
	assert.True(t, apperrors.IsValidation(err))

	doc, err := c.ProductDetail(ctx, "tok", "p-1")
	require.NoError(t, err)
	assert.Equal(t, "Ferrero", doc.Product.Brand)

	_, err = c.ProductDetail(ctx, "tok", "missing")
	assert.True(t, apperrors.IsNotFound(err))

	analysis, err := c.CachedAnalysis(ctx, "tok", "p-1")
	require.NoError(t, err)
	assert.Equal(t, "Treat, not a staple.", analysis)

	analysis, err = c.CachedAnalysis(ctx, "tok", "missing")
	require.NoError(t, err)
	assert.Empty(t, analysis)
}

func TestHistoryEntry_NumericIDs(t *testing.T) {
	var e historyEntry
	require.NoError(t, json.Unmarshal([]byte(`{"scanId":17,"productId":"p-9","productName":"Oats"}`), &e))
	got := e.toDomain()
	assert.Equal(t, "17", got.ScanID)
	assert.Equal(t, "p-9", got.ProductID)
}

func TestDeleteAccount(t *testing.T) {
	srv := backendtest.New(t)
	c := newTestClient(t, srv, time.Second)

	assert.True(t, apperrors.IsAuthRequired(c.DeleteAccount(context.Background(), "")))
	require.NoError(t, c.DeleteAccount(context.Background(), "tok"))
	assert.Equal(t, 1, srv.Count(http.MethodDelete, "/delete-account"))

	srv.SetFault(backendtest.RouteDeleteAccount, backendtest.Fault{Status: http.StatusUnauthorized})
	assert.True(t, apperrors.IsAuthRequired(c.DeleteAccount(context.Background(), "tok")))
}

func TestExchange(t *testing.T) {
	srv := backendtest.New(t)
	srv.SetSession("google-access", `{"id":42,"name":"Ada Lovelace","given_name":"Ada"}`, "backend-token")
	srv.SetSession("apple-identity", `{"id":"a-1","name":"Apple User"}`, "apple-token")
	c := newTestClient(t, srv, time.Second)
	ctx := context.Background()

	sess, err := c.ExchangeGoogle(ctx, "google-access")
	require.NoError(t, err)
	assert.Equal(t, domainauth.UserID("42"), sess.User.ID)
	assert.Equal(t, "backend-token", sess.Token)

	sess, err = c.ExchangeApple(ctx, domainauth.AppleCredential{IdentityToken: "apple-identity"})
	require.NoError(t, err)
	assert.Equal(t, domainauth.UserID("a-1"), sess.User.ID)

	_, err = c.ExchangeGoogle(ctx, "bogus")
	assert.True(t, apperrors.IsAuthRequired(err))

	_, err = c.ExchangeGoogle(ctx, "")
	assert.True(t, apperrors.IsValidation(err))

	srv.SetSession("no-token", `{"id":"1"}`, "")
	_, err = c.ExchangeGoogle(ctx, "no-token")
	require.Error(t, err)
	assert.True(t, apperrors.IsServer(err))
}

func TestExtractDetail(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"message", `{"message":"bad barcode"}`, "bad barcode"},
		{"nested", `{"error":{"message":"nested"}}`, "nested"},
		{"error string", `{"error":"flat"}`, "flat"},
		{"errors array", `{"errors":[{"message":"first"}]}`, "first"},
		{"no message", `{"ok":false}`, ""},
		{"plain text", "gateway down", "gateway down"},
		{"html", "<html>oops</html>", ""},
		{"empty", "", ""},
		{"long text", strings.Repeat("x", 300), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractDetail([]byte(tt.body)))
		})
	}
}

func TestAnalysisText(t *testing.T) {
	assert.Equal(t, "plain", analysisText(json.RawMessage(`" plain "`)))
	assert.Equal(t, "wrapped", analysisText(json.RawMessage(`{"expertAnalysis":"wrapped"}`)))
	assert.Empty(t, analysisText(nil))
	assert.Empty(t, analysisText(json.RawMessage(`42`)))
}
