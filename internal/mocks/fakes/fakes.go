package fakes

// Package fakes contains simple hand-written test doubles for the client
// ports. These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	domainauth "github.com/nutrinom/nutrinom-go/internal/domain/auth"
	"github.com/nutrinom/nutrinom-go/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.KeyValueStore    = (*MemoryStore)(nil)
	_ ports.LookupCache      = (*MemoryLookupCache)(nil)
	_ ports.Navigator        = (*Navigator)(nil)
	_ ports.Camera           = (*Camera)(nil)
	_ ports.Reporter         = (*Reporter)(nil)
	_ ports.IdentityProvider = (*IdentityProvider)(nil)
)

// MemoryStore is an in-memory key-value store. Set GetErr, SetErr or
// DeleteErr to simulate storage failures.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string

	GetErr    error
	SetErr    error
	DeleteErr error
}

// NewMemoryStore creates an empty store, optionally seeded with values.
func NewMemoryStore(seed map[string]string) *MemoryStore {
	values := make(map[string]string, len(seed))
	for k, v := range seed {
		values[k] = v
	}
	return &MemoryStore{values: values}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return "", false, m.GetErr
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	m.values[key] = value
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.values = map[string]string{}
	return nil
}

// Keys returns the stored keys in order.
func (m *MemoryStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Value returns a stored value without error injection.
func (m *MemoryStore) Value(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok
}

// MemoryLookupCache is an in-memory lookup cache that ignores TTLs.
type MemoryLookupCache struct {
	mu   sync.Mutex
	docs map[string][]byte
	TTLs map[string]time.Duration
}

// NewMemoryLookupCache creates an empty cache.
func NewMemoryLookupCache() *MemoryLookupCache {
	return &MemoryLookupCache{docs: map[string][]byte{}, TTLs: map[string]time.Duration{}}
}

func (c *MemoryLookupCache) Get(_ context.Context, code string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	doc, ok := c.docs[code]
	return doc, ok, nil
}

func (c *MemoryLookupCache) Set(_ context.Context, code string, doc []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs[code] = append([]byte(nil), doc...)
	c.TTLs[code] = ttl
	return nil
}

func (c *MemoryLookupCache) Delete(_ context.Context, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.docs, code)
	return nil
}

// Len returns the number of cached documents.
func (c *MemoryLookupCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.docs)
}

// Navigator records every route it is asked to show.
type Navigator struct {
	mu     sync.Mutex
	routes []ports.Route
}

func (n *Navigator) Navigate(_ context.Context, route ports.Route) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.routes = append(n.routes, route)
}

// Routes returns the navigation history.
func (n *Navigator) Routes() []ports.Route {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]ports.Route(nil), n.routes...)
}

// Last returns the latest route, "" when none.
func (n *Navigator) Last() ports.Route {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.routes) == 0 {
		return ""
	}
	return n.routes[len(n.routes)-1]
}

// Camera is a scripted camera. Answer is the permission granted when asked.
type Camera struct {
	mu       sync.Mutex
	Present  bool
	Current  ports.CameraPermission
	Answer   ports.CameraPermission
	Requests int
}

func (c *Camera) Available() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Present
}

func (c *Camera) Permission() ports.CameraPermission {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Current
}

func (c *Camera) RequestPermission(_ context.Context) (ports.CameraPermission, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Requests++
	if c.Current == ports.PermissionUndetermined {
		c.Current = c.Answer
	}
	return c.Current, nil
}

// Captured is one error report.
type Captured struct {
	Err  error
	Tags map[string]string
}

// Crumb is one breadcrumb.
type Crumb struct {
	Category string
	Message  string
	Data     map[string]string
}

// Reporter records telemetry calls.
type Reporter struct {
	mu     sync.Mutex
	errors []Captured
	crumbs []Crumb
}

func (r *Reporter) CaptureError(_ context.Context, err error, tags map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, Captured{Err: err, Tags: tags})
}

func (r *Reporter) Breadcrumb(_ context.Context, category, message string, data map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.crumbs = append(r.crumbs, Crumb{Category: category, Message: message, Data: data})
}

// Errors returns captured errors.
func (r *Reporter) Errors() []Captured {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Captured(nil), r.errors...)
}

// Breadcrumbs returns recorded breadcrumbs.
func (r *Reporter) Breadcrumbs() []Crumb {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Crumb(nil), r.crumbs...)
}

// IdentityProvider simulates an IdP with deterministic state and nonce values.
type IdentityProvider struct {
	BeginFunc    func(ctx context.Context, in ports.BeginInput) (ports.BeginOutput, error)
	ExchangeFunc func(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error)

	mu        sync.Mutex
	callCount int
}

func (p *IdentityProvider) Begin(ctx context.Context, in ports.BeginInput) (ports.BeginOutput, error) {
	if p.BeginFunc != nil {
		return p.BeginFunc(ctx, in)
	}
	p.mu.Lock()
	p.callCount++
	n := p.callCount
	p.mu.Unlock()
	return ports.BeginOutput{
		AuthURL:  "https://mock-idp/auth",
		State:    "state-" + strconv.Itoa(n),
		Nonce:    "nonce-" + strconv.Itoa(n),
		Verifier: "verifier-" + strconv.Itoa(n),
	}, nil
}

func (p *IdentityProvider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error) {
	if p.ExchangeFunc != nil {
		return p.ExchangeFunc(ctx, in)
	}
	if in.Code == "" {
		return domainauth.Identity{}, errors.New("missing code")
	}
	return domainauth.Identity{
		Subject:     "mock-subject-1",
		Name:        "Mock User",
		GivenName:   "Mock",
		Email:       "mock.user@example.com",
		AccessToken: "google-access-" + in.Code,
		ExpiresAt:   time.Now().Add(time.Hour),
	}, nil
}
