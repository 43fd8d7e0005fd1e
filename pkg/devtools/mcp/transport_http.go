package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// StartHTTPServer serves MCP over HTTP/SSE on the configured host:port,
// blocking until ctx is canceled. Grounded on the teacher's
// StartHTTPServer (transport_http.go): a StreamableHTTPHandler mounted
// at /mcp behind auth and rate-limit middleware, plus an unauthenticated
// /health endpoint.
func (s *Server) StartHTTPServer(ctx context.Context) error {
	cfg := s.Config()
	if cfg.Transport&TransportHTTP == 0 {
		return fmt.Errorf("mcp: HTTP transport not enabled in configuration")
	}

	handler := sdk.NewStreamableHTTPHandler(
		func(*http.Request) *sdk.Server { return s.server },
		&sdk.StreamableHTTPOptions{SessionTimeout: 5 * time.Minute, Stateless: false},
	)

	auth, err := NewAuthHandler(cfg.AuthToken, cfg.EnableAuth)
	if err != nil {
		return fmt.Errorf("mcp: failed to create auth handler: %w", err)
	}
	limiter, err := NewRateLimiter(cfg.RateLimit)
	if err != nil {
		return fmt.Errorf("mcp: failed to create rate limiter: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/mcp", auth.Middleware(limiter.Middleware(handler)))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTPHost, cfg.HTTPPort),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("mcp: http server error: %w", err)
	}
}
