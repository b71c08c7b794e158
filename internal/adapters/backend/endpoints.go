package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	domainauth "github.com/nutrinom/nutrinom-go/internal/domain/auth"
	"github.com/nutrinom/nutrinom-go/internal/domain/product"
	"github.com/nutrinom/nutrinom-go/internal/domain/scan"
	apperrors "github.com/nutrinom/nutrinom-go/internal/errors"
	"github.com/nutrinom/nutrinom-go/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.ProductLookup       = (*Client)(nil)
	_ ports.ScanRecorder        = (*Client)(nil)
	_ ports.Enricher            = (*Client)(nil)
	_ ports.HistorySource       = (*Client)(nil)
	_ ports.AccountService      = (*Client)(nil)
	_ ports.CredentialExchanger = (*Client)(nil)
)

// LookupProduct resolves a barcode via GET /api/call?scannedCode=.
// A 200 response that carries no product is reported as not found.
func (c *Client) LookupProduct(ctx context.Context, code string) (*product.Document, error) {
	var raw json.RawMessage
	err := c.do(ctx, request{
		op:     "lookup",
		method: http.MethodGet,
		path:   "api/call",
		query:  url.Values{"scannedCode": {code}},
	}, &raw)
	if err != nil {
		return nil, err
	}

	doc, err := product.ParseDocument(raw)
	if err != nil {
		return nil, &apperrors.AppError{Code: apperrors.ErrCodeServer, Message: "Unexpected lookup response", Cause: err, Status: http.StatusOK}
	}
	if doc.IsEmpty() {
		return nil, &apperrors.AppError{Code: apperrors.ErrCodeNotFound, Message: "Product not found", Status: http.StatusOK}
	}
	if doc.Code == "" {
		doc.Code = code
	}
	return doc, nil
}

type addScanBody struct {
	UserID         string            `json:"userId"`
	Barcode        string            `json:"barcode"`
	FoodData       *product.Document `json:"foodData"`
	ExpertAnalysis *string           `json:"expertAnalysis"`
}

// AddScan persists a scan via POST /product/add. Failures are reported as
// SaveFailed with the backend's message when it sent one.
func (c *Client) AddScan(ctx context.Context, in ports.AddScanInput) error {
	body := addScanBody{
		UserID:   in.UserID,
		Barcode:  in.Barcode,
		FoodData: in.FoodData,
	}
	if in.ExpertAnalysis != "" {
		analysis := in.ExpertAnalysis
		body.ExpertAnalysis = &analysis
	}

	err := c.do(ctx, request{
		op:     "add_scan",
		method: http.MethodPost,
		path:   "product/add",
		token:  in.Token,
		body:   body,
	}, nil)
	if err == nil {
		return nil
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return apperrors.Wrap(err, apperrors.ErrCodeSaveFailed, "Could not save scan")
	}
	msg := appErr.Message
	if appErr.Status == 0 {
		// Transport failures keep the generic text; the cause holds the detail.
		msg = "Could not save scan"
	}
	return &apperrors.AppError{
		Code:    apperrors.ErrCodeSaveFailed,
		Message: msg,
		Cause:   err,
		Status:  appErr.Status,
	}
}

// Analyze asks POST /api/llm for a nutrition analysis.
func (c *Client) Analyze(ctx context.Context, payload product.NutritionPayload) (string, error) {
	var out struct {
		Analysis json.RawMessage `json:"analysis"`
	}
	err := c.do(ctx, request{
		op:     "analyze",
		method: http.MethodPost,
		path:   "api/llm",
		body:   payload,
	}, &out)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeEnrichmentUnavailable, "Nutrition analysis unavailable")
	}
	analysis := analysisText(out.Analysis)
	if analysis == "" {
		return "", &apperrors.AppError{Code: apperrors.ErrCodeEnrichmentUnavailable, Message: "Nutrition analysis was empty"}
	}
	return analysis, nil
}

// ListHistory fetches GET /product/history/{userId}.
func (c *Client) ListHistory(ctx context.Context, token, userID string) ([]scan.HistoryEntry, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.ValidationField("userId", "user id is required")
	}
	var out struct {
		ScannedProducts []historyEntry `json:"scannedProducts"`
	}
	err := c.do(ctx, request{
		op:     "history",
		method: http.MethodGet,
		path:   "product/history/" + url.PathEscape(userID),
		token:  token,
	}, &out)
	if err != nil {
		return nil, err
	}
	entries := make([]scan.HistoryEntry, 0, len(out.ScannedProducts))
	for _, e := range out.ScannedProducts {
		entries = append(entries, e.toDomain())
	}
	return entries, nil
}

// ProductDetail fetches GET /product/{productId} and returns its productInfo document.
func (c *Client) ProductDetail(ctx context.Context, token, productID string) (*product.Document, error) {
	if strings.TrimSpace(productID) == "" {
		return nil, apperrors.ValidationField("productId", "product id is required")
	}
	var out struct {
		ProductInfo json.RawMessage `json:"productInfo"`
	}
	err := c.do(ctx, request{
		op:     "product_detail",
		method: http.MethodGet,
		path:   "product/" + url.PathEscape(productID),
		token:  token,
	}, &out)
	if err != nil {
		return nil, err
	}
	doc, err := product.ParseDocument(out.ProductInfo)
	if err != nil {
		return nil, &apperrors.AppError{Code: apperrors.ErrCodeServer, Message: "Unexpected product response", Cause: err, Status: http.StatusOK}
	}
	if doc.IsEmpty() {
		return nil, &apperrors.AppError{Code: apperrors.ErrCodeNotFound, Message: "Product not found", Status: http.StatusOK}
	}
	return doc, nil
}

// CachedAnalysis fetches GET /product/llm/{productId}. A 404 means no analysis
// has been stored and is not an error.
func (c *Client) CachedAnalysis(ctx context.Context, token, productID string) (string, error) {
	var out struct {
		ExpertInfo json.RawMessage `json:"expertInfo"`
	}
	err := c.do(ctx, request{
		op:     "cached_analysis",
		method: http.MethodGet,
		path:   "product/llm/" + url.PathEscape(productID),
		token:  token,
	}, &out)
	if apperrors.IsNotFound(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return analysisText(out.ExpertInfo), nil
}

// DeleteAccount calls DELETE /delete-account with the bearer token.
func (c *Client) DeleteAccount(ctx context.Context, token string) error {
	if token == "" {
		return apperrors.AuthRequired("Sign in to delete your account")
	}
	return c.do(ctx, request{
		op:     "delete_account",
		method: http.MethodDelete,
		path:   "delete-account",
		token:  token,
	}, nil)
}

type authResponse struct {
	Data struct {
		User  *domainauth.User `json:"user"`
		Token string           `json:"token"`
	} `json:"data"`
}

func (r authResponse) session() (domainauth.Session, error) {
	s := domainauth.Session{User: r.Data.User, Token: r.Data.Token}
	if !s.IsAuthenticated() {
		return domainauth.Session{}, &apperrors.AppError{
			Code:    apperrors.ErrCodeServer,
			Message: "Sign-in response did not include a user and token",
			Status:  http.StatusOK,
		}
	}
	return s, nil
}

// ExchangeGoogle trades a Google access token for a backend session via POST /auth.
func (c *Client) ExchangeGoogle(ctx context.Context, accessToken string) (domainauth.Session, error) {
	if accessToken == "" {
		return domainauth.Session{}, apperrors.ValidationField("token", "access token is required")
	}
	var out authResponse
	if err := c.do(ctx, request{
		op:     "auth_google",
		method: http.MethodPost,
		path:   "auth",
		body:   map[string]string{"token": accessToken},
	}, &out); err != nil {
		return domainauth.Session{}, err
	}
	return out.session()
}

// ExchangeApple trades an Apple identity credential via POST /auth/apple.
func (c *Client) ExchangeApple(ctx context.Context, cred domainauth.AppleCredential) (domainauth.Session, error) {
	if cred.IdentityToken == "" {
		return domainauth.Session{}, apperrors.ValidationField("identityToken", "identity token is required")
	}
	var out authResponse
	if err := c.do(ctx, request{
		op:     "auth_apple",
		method: http.MethodPost,
		path:   "auth/apple",
		body:   cred,
	}, &out); err != nil {
		return domainauth.Session{}, err
	}
	return out.session()
}

// historyEntry tolerates ids sent as numbers.
type historyEntry struct {
	ScanID       json.RawMessage `json:"scanId"`
	ProductID    json.RawMessage `json:"productId"`
	ProductName  string          `json:"productName"`
	ProductImage string          `json:"productImage"`
}

func (h historyEntry) toDomain() scan.HistoryEntry {
	return scan.HistoryEntry{
		ScanID:       rawID(h.ScanID),
		ProductID:    rawID(h.ProductID),
		ProductName:  h.ProductName,
		ProductImage: h.ProductImage,
	}
}

func rawID(b json.RawMessage) string {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		return n.String()
	}
	return ""
}

// analysisText accepts either a string or an object wrapping the analysis.
func analysisText(b json.RawMessage) string {
	if len(b) == 0 {
		return ""
	}
	var data any
	if err := json.Unmarshal(b, &data); err != nil {
		return ""
	}
	if s, ok := data.(string); ok {
		return strings.TrimSpace(s)
	}
	return searchString("analysis || expertAnalysis || text || content", data)
}
