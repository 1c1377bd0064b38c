package infra

import (
	"context"
	"net/http"
	"time"
)

// Header parsing gets its own deadline so slow-loris clients cannot hold a
// connection open while a multipart upload is still allowed its full
// ReadTimeout.
const headerReadTimeout = 5 * time.Second

// HTTPServer runs the API with the timeouts from Config and shuts down
// gracefully, draining in-flight uploads and downloads.
type HTTPServer struct {
	srv *http.Server
}

// NewHTTPServer builds the server for the given handler on cfg.Port.
func NewHTTPServer(cfg *Config, handler http.Handler) *HTTPServer {
	return &HTTPServer{srv: &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		ReadHeaderTimeout: headerReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
	}}
}

// Addr returns the listen address the server was built with.
func (s *HTTPServer) Addr() string {
	if s == nil || s.srv == nil {
		return ""
	}
	return s.srv.Addr
}

// Start blocks serving requests until Shutdown or a listener error.
func (s *HTTPServer) Start() error {
	if s == nil || s.srv == nil {
		return nil
	}
	return s.srv.ListenAndServe()
}

// Shutdown stops accepting connections and waits for active requests up to
// the context deadline.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s == nil || s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
