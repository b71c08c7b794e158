// Package backendtest runs an in-process fake of the product backend for
// adapter and end-to-end tests.
package backendtest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/nutrinom/nutrinom-go/internal/domain/scan"
)

// Request is a recorded call.
type Request struct {
	Method        string
	Path          string
	Authorization string
	RequestID     string
	Body          []byte
}

// Fault makes an endpoint answer with a fixed status and body, optionally after a delay.
type Fault struct {
	Status int
	Body   string
	Delay  time.Duration
}

// Server is a fake backend. Fields may be set before the first request; use
// the setters afterwards.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	products map[string]string // barcode -> document JSON
	details  map[string]string // product id -> document JSON
	analyses map[string]string // product id -> stored analysis
	history  map[string][]scan.HistoryEntry
	faults   map[string]Fault // route name -> fault
	analysis string
	sessions map[string]string // provider token -> auth response JSON
	requests []Request
}

// Route names accepted by SetFault.
const (
	RouteLookup         = "lookup"
	RouteAddScan        = "add"
	RouteAnalyze        = "llm"
	RouteHistory        = "history"
	RouteProductDetail  = "product"
	RouteCachedAnalysis = "product_llm"
	RouteDeleteAccount  = "delete"
	RouteAuth           = "auth"
	RouteAuthApple      = "auth_apple"
)

// New starts a fake backend and registers its shutdown with t.
func New(t interface{ Cleanup(func()) }) *Server {
	s := &Server{
		products: map[string]string{},
		details:  map[string]string{},
		analyses: map[string]string{},
		history:  map[string][]scan.HistoryEntry{},
		faults:   map[string]Fault{},
		sessions: map[string]string{},
		analysis: "Balanced snack with moderate sugar.",
	}

	r := mux.NewRouter()
	r.Use(s.record)
	r.HandleFunc("/api/call", s.handleLookup).Methods(http.MethodGet).Name(RouteLookup)
	r.HandleFunc("/api/llm", s.handleAnalyze).Methods(http.MethodPost).Name(RouteAnalyze)
	r.HandleFunc("/product/add", s.handleAdd).Methods(http.MethodPost).Name(RouteAddScan)
	r.HandleFunc("/product/history/{userId}", s.handleHistory).Methods(http.MethodGet).Name(RouteHistory)
	r.HandleFunc("/product/llm/{productId}", s.handleCachedAnalysis).Methods(http.MethodGet).Name(RouteCachedAnalysis)
	r.HandleFunc("/product/{productId}", s.handleDetail).Methods(http.MethodGet).Name(RouteProductDetail)
	r.HandleFunc("/delete-account", s.handleDelete).Methods(http.MethodDelete).Name(RouteDeleteAccount)
	r.HandleFunc("/auth", s.handleAuth).Methods(http.MethodPost).Name(RouteAuth)
	r.HandleFunc("/auth/apple", s.handleAuthApple).Methods(http.MethodPost).Name(RouteAuthApple)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// AddProduct registers a barcode and, under productID, its detail document.
func (s *Server) AddProduct(code, productID, document string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[code] = document
	if productID != "" {
		s.details[productID] = document
	}
}

// SetCachedAnalysis stores an analysis for a product id.
func (s *Server) SetCachedAnalysis(productID, analysis string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analyses[productID] = analysis
}

// SetAnalysis sets the text returned by /api/llm.
func (s *Server) SetAnalysis(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analysis = text
}

// SetHistory sets the history returned for a user.
func (s *Server) SetHistory(userID string, entries []scan.HistoryEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[userID] = entries
}

// SetSession makes /auth (Google) or /auth/apple accept providerToken and
// answer with the given user JSON and token.
func (s *Server) SetSession(providerToken, userJSON, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, _ := json.Marshal(token)
	s.sessions[providerToken] = `{"data":{"user":` + userJSON + `,"token":` + string(tok) + `}}`
}

// SetFault overrides the response of a route.
func (s *Server) SetFault(route string, f Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[route] = f
}

// ClearFault removes a fault.
func (s *Server) ClearFault(route string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.faults, route)
}

// Requests returns a copy of the recorded requests.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Count returns how many requests hit a path prefix with the given method.
func (s *Server) Count(method, pathPrefix string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && strings.HasPrefix(r.Path, pathPrefix) {
			n++
		}
	}
	return n
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()
		r.Body = io.NopCloser(strings.NewReader(string(body)))

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-ID"),
			Body:          body,
		})
		var fault *Fault
		if route := mux.CurrentRoute(r); route != nil {
			if f, ok := s.faults[route.GetName()]; ok {
				fault = &f
			}
		}
		s.mu.Unlock()

		if fault != nil {
			if fault.Delay > 0 {
				select {
				case <-time.After(fault.Delay):
				case <-r.Context().Done():
					return
				}
			}
			if fault.Status != 0 {
				writeRaw(w, fault.Status, fault.Body)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("scannedCode")
	s.mu.Lock()
	doc, ok := s.products[code]
	s.mu.Unlock()
	if !ok {
		writeRaw(w, http.StatusNotFound, `{"message":"Product not found"}`)
		return
	}
	writeRaw(w, http.StatusOK, doc)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	text := s.analysis
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"analysis": text})
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		writeRaw(w, http.StatusUnauthorized, `{"error":{"message":"missing token"}}`)
		return
	}
	var body map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeRaw(w, http.StatusBadRequest, `{"message":"invalid body"}`)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "Product added"})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	s.mu.Lock()
	entries := s.history[userID]
	s.mu.Unlock()
	if entries == nil {
		entries = []scan.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"scannedProducts": entries})
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["productId"]
	s.mu.Lock()
	doc, ok := s.details[id]
	s.mu.Unlock()
	if !ok {
		writeRaw(w, http.StatusNotFound, `{"message":"Product not found"}`)
		return
	}
	writeRaw(w, http.StatusOK, `{"productInfo":`+doc+`}`)
}

func (s *Server) handleCachedAnalysis(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["productId"]
	s.mu.Lock()
	text, ok := s.analyses[id]
	s.mu.Unlock()
	if !ok {
		writeRaw(w, http.StatusNotFound, `{"message":"No analysis"}`)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"expertInfo": text})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		writeRaw(w, http.StatusUnauthorized, `{"message":"missing token"}`)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	s.writeSession(w, body.Token)
}

func (s *Server) handleAuthApple(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IdentityToken string `json:"identityToken"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	s.writeSession(w, body.IdentityToken)
}

func (s *Server) writeSession(w http.ResponseWriter, providerToken string) {
	s.mu.Lock()
	resp, ok := s.sessions[providerToken]
	s.mu.Unlock()
	if !ok {
		writeRaw(w, http.StatusUnauthorized, `{"message":"Invalid credentials"}`)
		return
	}
	writeRaw(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
