package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/nutrinom/nutrinom-go/internal/errors"
	"github.com/nutrinom/nutrinom-go/internal/observability/statsd"
)

func TestFingerprint(t *testing.T) {
	assert.Empty(t, Fingerprint(""))
	a := Fingerprint("backend-token")
	assert.Len(t, a, 12)
	assert.Equal(t, a, Fingerprint("backend-token"))
	assert.NotEqual(t, a, Fingerprint("other-token"))
}

func TestScrubTags(t *testing.T) {
	got := ScrubTags(map[string]string{
		"user_id":       "42",
		"token":         "secret-value",
		"Authorization": "Bearer x",
		"empty_token":   "",
	})
	assert.Equal(t, "42", got["user_id"])
	assert.Equal(t, "fp:"+Fingerprint("secret-value"), got["token"])
	assert.NotContains(t, got["Authorization"], "Bearer")
	assert.Equal(t, "", got["empty_token"])
	assert.Nil(t, ScrubTags(nil))
}

func TestReporter_CaptureError(t *testing.T) {
	var (
		mu   sync.Mutex
		sent []Event
	)
	sink := SinkFunc(func(_ context.Context, ev Event) error {
		mu.Lock()
		defer mu.Unlock()
		sent = append(sent, ev)
		return nil
	})
	var rec statsd.Recorder
	fixed := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	r := NewReporter(ReporterOptions{
		Metrics:     &rec,
		Sink:        sink,
		Environment: "test",
		Release:     "1.2.3",
		Now:         func() time.Time { return fixed },
	})

	r.Breadcrumb(context.Background(), "auth", "User logged out", nil)
	r.CaptureError(context.Background(), apperrors.SaveFailed("Could not save scan"), map[string]string{
		"operation":   "add_scan",
		"user_id":     "42",
		"token":       "tok",
		"status_code": "500",
	})
	r.CaptureError(context.Background(), nil, nil)
	require.NoError(t, r.Flush(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, sent, 1)
	ev := sent[0]
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, "Could not save scan", ev.Message)
	assert.Equal(t, "save_failed", ev.ErrorClass)
	assert.Equal(t, "save_failed", ev.Tags["error_class"])
	assert.NotEqual(t, "tok", ev.Tags["token"])
	assert.Equal(t, "test", ev.Environment)
	assert.Equal(t, fixed, ev.OccurredAt)
	require.Len(t, ev.Breadcrumbs, 1)
	assert.Equal(t, "auth", ev.Breadcrumbs[0].Category)

	assert.Equal(t, int64(1), rec.Total("telemetry.error", map[string]string{"operation": "add_scan"}))
	assert.Equal(t, int64(1), rec.Total("telemetry.breadcrumb", nil))
}

func TestReporter_BreadcrumbBound(t *testing.T) {
	r := NewReporter(ReporterOptions{MaxBreadcrumbs: 3})
	for i := range 5 {
		r.Breadcrumb(context.Background(), "scan", string(rune('a'+i)), nil)
	}
	crumbs := r.Breadcrumbs()
	require.Len(t, crumbs, 3)
	assert.Equal(t, "c", crumbs[0].Message)
	assert.Equal(t, "e", crumbs[2].Message)
}

func TestHTTPSink_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ev Event
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sink, err := NewHTTPSink(HTTPConfig{DSN: srv.URL, RetryLimit: 2})
	require.NoError(t, err)
	require.NoError(t, sink.Send(context.Background(), Event{ID: "1", Level: LevelError}))
	assert.Equal(t, int32(2), calls.Load())
}

func TestHTTPSink_PermanentFailureStopsRetrying(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("bad dsn key"))
	}))
	defer srv.Close()

	sink, err := NewHTTPSink(HTTPConfig{DSN: srv.URL, RetryLimit: 3})
	require.NoError(t, err)
	err = sink.Send(context.Background(), Event{ID: "1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad dsn key")
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPSink_ContextCanceledDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	sink, err := NewHTTPSink(HTTPConfig{DSN: srv.URL, RetryLimit: 5})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err = sink.Send(ctx, Event{ID: "1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestNewHTTPSink_RequiresDSN(t *testing.T) {
	_, err := NewHTTPSink(HTTPConfig{})
	assert.Error(t, err)
}
