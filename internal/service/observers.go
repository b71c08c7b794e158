// Package service holds the client core: session and scan state stores, the
// scanner gate, and the pipeline that ties lookup, save and enrichment
// together.
package service

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/nutrinom/nutrinom-go/internal/ports"
)

// subscriber wraps an observer callback. active is cleared on unsubscribe so
// a notification already in flight is not delivered afterwards. seen holds
// the newest generation delivered; older snapshots are skipped.
type subscriber[T any] struct {
	fn     func(T)
	active atomic.Bool
	seen   atomic.Uint64
}

// deliver calls fn unless v is older than what the subscriber already saw.
func (s *subscriber[T]) deliver(v T, gen uint64) {
	for {
		prev := s.seen.Load()
		if gen <= prev && prev != 0 {
			return
		}
		if s.seen.CompareAndSwap(prev, gen) {
			break
		}
	}
	if s.active.Load() {
		s.fn(v)
	}
}

// observers is a copy-on-write list of subscribers.
type observers[T any] struct {
	mu   sync.Mutex
	list []*subscriber[T]
}

func (o *observers[T]) add(fn func(T)) func() {
	sub := &subscriber[T]{fn: fn}
	sub.active.Store(true)

	o.mu.Lock()
	next := make([]*subscriber[T], 0, len(o.list)+1)
	next = append(next, o.list...)
	o.list = append(next, sub)
	o.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.active.Store(false)
			o.mu.Lock()
			defer o.mu.Unlock()
			next := make([]*subscriber[T], 0, len(o.list))
			for _, s := range o.list {
				if s != sub {
					next = append(next, s)
				}
			}
			o.list = next
		})
	}
}

func (o *observers[T]) snapshot() []*subscriber[T] {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.list
}

// notify delivers v, taken at generation gen, to every live subscriber.
// Callers must not hold their own state lock.
func (o *observers[T]) notify(v T, gen uint64) {
	for _, s := range o.snapshot() {
		s.deliver(v, gen)
	}
}

type nopReporter struct{}

func (nopReporter) CaptureError(context.Context, error, map[string]string)          {}
func (nopReporter) Breadcrumb(context.Context, string, string, map[string]string) {}

func reporterOrNop(r ports.Reporter) ports.Reporter { //nolint:ireturn
	if r == nil {
		return nopReporter{}
	}
	return r
}
