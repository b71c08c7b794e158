package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domainauth "github.com/nutrinom/nutrinom-go/internal/domain/auth"
	"github.com/nutrinom/nutrinom-go/internal/domain/product"
	"github.com/nutrinom/nutrinom-go/internal/domain/scan"
)

const (
	validCode = "0123456789012"
	validDoc  = `{
  "code": "0123456789012",
  "status": 1,
  "product": {
    "product_name": "Oat Bar",
    "brands": "Acme",
    "nutriscore_grade": "a",
    "nutriments": {"energy-kcal_100g": 410, "sugars_100g": "12.5", "proteins_100g": 9}
  }
}`
	noNutritionDoc = `{"code": "5000000000001", "status": 1, "product": {"product_name": "Bottled Water"}}`
)

// staticSession is a SessionReader with a fixed session.
type staticSession struct{ sess domainauth.Session }

func (s staticSession) Snapshot() domainauth.Session { return s.sess }

func signedIn() staticSession {
	return staticSession{sess: domainauth.Session{
		User:  &domainauth.User{ID: "42", GivenName: "Ada"},
		Token: "backend-token",
	}}
}

func mustDoc(t *testing.T, raw string) *product.Document {
	t.Helper()
	doc, err := product.ParseDocument([]byte(raw))
	require.NoError(t, err)
	return doc
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
}

// stateLog collects every snapshot a ScanState publishes.
type stateLog struct {
	ch chan scan.State
}

func watch(s *ScanState) (*stateLog, func()) {
	l := &stateLog{ch: make(chan scan.State, 64)}
	unsub := s.Subscribe(func(st scan.State) { l.ch <- st })
	return l, unsub
}

func (l *stateLog) drain() []scan.State {
	var out []scan.State
	for {
		select {
		case st := <-l.ch:
			out = append(out, st)
		default:
			return out
		}
	}
}

func ctxWithTimeout(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}
