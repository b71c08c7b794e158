package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPConfig configures delivery to a collector endpoint.
type HTTPConfig struct {
	DSN        string
	Timeout    time.Duration
	RetryLimit int
	Client     *http.Client
}

// HTTPSink posts events as JSON to the DSN, retrying transient failures.
type HTTPSink struct {
	dsn        string
	retryLimit int
	client     *http.Client
}

var _ Sink = (*HTTPSink)(nil)

// NewHTTPSink builds a collector client. Callers should pass a validated config.
func NewHTTPSink(cfg HTTPConfig) (*HTTPSink, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("telemetry dsn is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	retries := max(cfg.RetryLimit, 0)

	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	return &HTTPSink{dsn: dsn, retryLimit: retries, client: hc}, nil
}

// Send delivers ev. 4xx responses other than 429 are not retried.
func (s *HTTPSink) Send(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode telemetry event: %w", err)
	}

	attempts := s.retryLimit + 1
	var lastErr error
	for attempt := range attempts {
		err = s.post(ctx, body)
		if err == nil {
			return nil
		}
		lastErr = err
		var perm permanentError
		if errors.As(err, &perm) {
			return err
		}
		if attempt < attempts-1 {
			// Simple linear backoff to avoid thundering retries.
			delay := time.Duration(attempt+1) * 200 * time.Millisecond
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				if !timer.Stop() {
					<-timer.C
				}
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	return lastErr
}

type permanentError struct{ error }

func (s *HTTPSink) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.dsn, bytes.NewReader(body))
	if err != nil {
		return permanentError{fmt.Errorf("create telemetry request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("telemetry request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	err = fmt.Errorf("telemetry collector %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return permanentError{err}
	}
	return err
}
