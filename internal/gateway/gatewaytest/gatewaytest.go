// Package gatewaytest runs an in-process fake gateway for tests.
package gatewaytest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"lotcopy-backend/internal/components/telemetry"
	"lotcopy-backend/internal/gateway"
)

const GoldenKey = "test-golden-key"

type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   string
}

// Form parses a url-encoded request body.
func (r Request) Form() url.Values {
	values, _ := url.ParseQuery(r.Body)
	return values
}

type Server struct {
	*httptest.Server
	Mux *http.ServeMux

	mutex    sync.Mutex
	requests []Request
}

// New starts a fake gateway that rejects every request without the test
// golden_key with 401. Routes are registered on Mux with method patterns.
func New(t testing.TB) *Server {
	s := &Server{Mux: http.NewServeMux()}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	r.Body = io.NopCloser(strings.NewReader(string(body)))

	s.mutex.Lock()
	s.requests = append(s.requests, Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Body:   string(body),
	})
	s.mutex.Unlock()

	if r.URL.Query().Get("golden_key") != GoldenKey {
		http.Error(w, "bad golden_key", http.StatusUnauthorized)
		return
	}
	s.Mux.ServeHTTP(w, r)
}

// Requests returns every received request whose path starts with prefix.
func (s *Server) Requests(prefix string) []Request {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var out []Request
	for _, req := range s.requests {
		if strings.HasPrefix(req.Path, prefix) {
			out = append(out, req)
		}
	}
	return out
}

func (s *Server) HandleJSON(pattern string, status int, body any) {
	s.Mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, status, body)
	})
}

func (s *Server) HandleHTML(pattern string, status int, markup string) {
	s.Mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		io.WriteString(w, markup)
	})
}

// Client returns a gateway client pointed at the server with rate limiting
// disabled.
func (s *Server) Client(t testing.TB, tel telemetry.API) *gateway.Client {
	client, err := gateway.NewClient(gateway.Options{
		BaseUrl:           s.URL,
		GoldenKey:         GoldenKey,
		RequestsPerSecond: -1,
	}, tel)
	if err != nil {
		t.Fatal(err)
	}
	return client
}

func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	if raw, ok := body.(string); ok {
		io.WriteString(w, raw)
		return
	}
	json.NewEncoder(w).Encode(body)
}
