package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	defaultReadHeaderTimeout = 10 * time.Second
	// Optimization runs are long; tool calls are bounded by their own timeouts.
	defaultWriteTimeout    = 30 * time.Minute
	defaultIdleTimeout     = 120 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

// NewMux routes the streamable-HTTP MCP handler at endpoint, wrapped by
// protect when it is non-nil, and the unauthenticated /healthz and /metrics
// endpoints.
func NewMux(mcpSrv *mcpserver.MCPServer, endpoint string, protect func(http.Handler) http.Handler) *http.ServeMux {
	var handler http.Handler = mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithEndpointPath(endpoint),
	)
	if protect != nil {
		handler = protect(handler)
	}

	mux := http.NewServeMux()
	mux.Handle(endpoint, handler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func newHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		WriteTimeout:      defaultWriteTimeout,
		IdleTimeout:       defaultIdleTimeout,
	}
}

// HTTPServer serves MCP over streamable HTTP without authentication.
type HTTPServer struct {
	httpServer *http.Server
}

// NewHTTPServer creates an HTTP server for mcpSrv listening on addr.
func NewHTTPServer(mcpSrv *mcpserver.MCPServer, addr, endpoint string) *HTTPServer {
	return &HTTPServer{httpServer: newHTTPServer(addr, NewMux(mcpSrv, endpoint, nil))}
}

// Start listens and serves until the server is shut down.
func (s *HTTPServer) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Server is implemented by HTTPServer and OAuthHTTPServer.
type Server interface {
	Start() error
	Shutdown(ctx context.Context) error
}

// Run starts srv and blocks until it fails or ctx is done, in which case the
// server is shut down gracefully.
func Run(ctx context.Context, srv Server) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received, stopping HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	slog.Info("HTTP server stopped")
	return nil
}
