package server

import (
	"net/http"
	"strings"
)

// Mux dispatches annotation API requests over [http.ServeMux] method patterns.
//
// Paths may carry {project}, {frame} and similar wildcards; a known path asked with another method answers 405.
type Mux struct {
	mux      *http.ServeMux
	chain    []Middleware
	patterns []string
}

func NewMux() *Mux {
	return &Mux{mux: http.NewServeMux()}
}

// Use appends to the middleware chain. The first one added sees the request first; endpoints registered earlier keep the old chain.
func (m *Mux) Use(middleware ...Middleware) {
	m.chain = append(m.chain, middleware...)
}

// Handle registers h for method and path.
func (m *Mux) Handle(method, path string, h http.Handler) {
	m.register(strings.ToUpper(method)+" "+path, m.wrap(h))
}

func (m *Mux) HandleFunc(method, path string, fn http.HandlerFunc) {
	m.Handle(method, path, fn)
}

// Mount registers every pattern of g against one wrapped handler.
func (m *Mux) Mount(g RouteGroup) {
	h := m.wrap(g)
	for _, pattern := range g.Routes() {
		m.register(pattern, h)
	}
}

// Patterns returns the registered patterns in registration order.
func (m *Mux) Patterns() []string {
	return append([]string(nil), m.patterns...)
}

func (m *Mux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mux.ServeHTTP(w, r)
}

func (m *Mux) register(pattern string, h http.Handler) {
	m.mux.Handle(pattern, h)
	m.patterns = append(m.patterns, pattern)
}

func (m *Mux) wrap(h http.Handler) http.Handler {
	for i := len(m.chain) - 1; i >= 0; i-- {
		h = m.chain[i](h)
	}
	return h
}
