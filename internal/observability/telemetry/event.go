// Package telemetry records breadcrumbs and error reports and ships them to
// an optional collector endpoint.
package telemetry

import (
	"context"
	"encoding/hex"
	"time"

	"golang.org/x/crypto/blake2b"
)

// Level constants recognised by collectors.
const (
	LevelError = "error"
	LevelInfo  = "info"
)

// Breadcrumb is a trail entry attached to later error events.
type Breadcrumb struct {
	Category  string            `json:"category"`
	Message   string            `json:"message"`
	Data      map[string]string `json:"data,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Event is the canonical payload delivered to a Sink.
type Event struct {
	ID          string            `json:"event_id"`
	Level       string            `json:"level"`
	Message     string            `json:"message"`
	ErrorClass  string            `json:"error_class,omitempty"`
	Tags        map[string]string `json:"tags,omitempty"`
	Breadcrumbs []Breadcrumb      `json:"breadcrumbs,omitempty"`
	Environment string            `json:"environment,omitempty"`
	Release     string            `json:"release,omitempty"`
	OccurredAt  time.Time         `json:"timestamp"`
}

// Sink describes a destination capable of consuming events.
type Sink interface {
	Send(ctx context.Context, ev Event) error
}

// SinkFunc adapts a function to the Sink interface (useful for tests).
type SinkFunc func(ctx context.Context, ev Event) error

// Send implements the Sink interface.
func (f SinkFunc) Send(ctx context.Context, ev Event) error {
	if f == nil {
		return nil
	}
	return f(ctx, ev)
}

// Fingerprint returns a short stable digest of a secret so reports can
// correlate sessions without carrying the secret itself.
func Fingerprint(secret string) string {
	if secret == "" {
		return ""
	}
	sum := blake2b.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:6])
}
