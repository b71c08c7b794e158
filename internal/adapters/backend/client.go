// Package backend is the HTTP client for the product backend. Every call is
// bounded by a per-request timeout and every failure is returned as an
// *errors.AppError so callers can classify it.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	jmespath "github.com/jmespath-community/go-jmespath"

	apperrors "github.com/nutrinom/nutrinom-go/internal/errors"
)

const (
	defaultTimeout = 12 * time.Second
	maxBodyBytes   = 4 << 20

	// detailExpr pulls a human-readable message out of an error body.
	detailExpr = "message || error.message || error || detail || errors[0].message || msg"
)

// Config configures the backend client.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	Client    *http.Client
	Logger    *slog.Logger
}

// Client talks to the product backend.
type Client struct {
	baseURL   *url.URL
	timeout   time.Duration
	userAgent string
	client    *http.Client
	logger    *slog.Logger
}

// NewClient builds a backend client. Callers should pass a validated config.
func NewClient(cfg Config) (*Client, error) {
	raw := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if raw == "" {
		return nil, errors.New("backend base url is required")
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse backend base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("backend base url must be absolute: %q", raw)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:   base,
		timeout:   timeout,
		userAgent: fallbackString(strings.TrimSpace(cfg.UserAgent), "nutrinom-go"),
		client:    hc,
		logger:    logger.With("component", "backend"),
	}, nil
}

type request struct {
	method string
	path   string
	query  url.Values
	token  string
	body   any
	// op names the call in logs and errors.
	op string
}

// do executes req and decodes a 2xx JSON body into out (when non-nil).
func (c *Client) do(ctx context.Context, req request, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return apperrors.Wrapf(err, apperrors.ErrCodeInternal, "build %s request", req.op)
	}

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		mapped := apperrors.MapTransportError(err)
		c.logger.WarnContext(ctx, "backend request failed",
			"op", req.op,
			"request_id", httpReq.Header.Get("X-Request-ID"),
			"error", err,
		)
		return mapped
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return apperrors.MapTransportError(err)
	}

	c.logger.DebugContext(ctx, "backend request",
		"op", req.op,
		"method", req.method,
		"path", req.path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
		"request_id", httpReq.Header.Get("X-Request-ID"),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperrors.MapStatus(resp.StatusCode, extractDetail(body))
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &apperrors.AppError{
			Code:    apperrors.ErrCodeServer,
			Message: fmt.Sprintf("Unexpected %s response", req.op),
			Cause:   err,
			Status:  resp.StatusCode,
		}
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, req request) (*http.Request, error) {
	u := c.baseURL.JoinPath(req.path)
	if len(req.query) > 0 {
		u.RawQuery = req.query.Encode()
	}

	var reader io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u.String(), reader)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("X-Request-ID", uuid.NewString())
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}
	return httpReq, nil
}

// extractDetail returns the backend's error message, if the body carries one.
func extractDetail(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return ""
	}
	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		// Plain-text error bodies are used as-is when short.
		if s := string(body); len(s) <= 200 && !strings.HasPrefix(s, "<") {
			return s
		}
		return ""
	}
	return searchString(detailExpr, data)
}

// searchString evaluates expr and returns the result when it is a non-empty string.
func searchString(expr string, data any) string {
	res, err := jmespath.Search(expr, data)
	if err != nil {
		return ""
	}
	s, ok := res.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

func fallbackString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
