package server

import "net/http"

// Middleware decorates every endpoint registered after it, e.g. with request logs or the bearer token check.
type Middleware func(http.Handler) http.Handler

// RouteGroup is a handler that answers a fixed set of patterns, such as the multipart upload flow.
type RouteGroup interface {
	http.Handler
	// Routes lists the "METHOD /path" patterns the group serves.
	Routes() []string
}
