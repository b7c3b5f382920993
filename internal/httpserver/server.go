package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// DefaultTimeout bounds a whole upload request when no timeout is configured.
const DefaultTimeout = 10 * time.Minute

// ShutdownTimeout is how long in-flight uploads get to finish once the
// gateway is asked to stop.
var ShutdownTimeout = 10 * time.Second

// Server wraps the http.Server with sensible defaults.
type Server struct {
	inner *http.Server
}

// New constructs a server listening on the provided port. timeout bounds
// reading the request body and writing the response; uploads of up to the
// configured cap must fit inside it.
func New(port int, handler http.Handler, timeout time.Duration) *Server {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Server{
		inner: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       timeout,
			WriteTimeout:      timeout,
			IdleTimeout:       2 * time.Minute,
		},
	}
}

// Addr reports the address the server listens on.
func (s *Server) Addr() string {
	return s.inner.Addr
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully terminates the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
