// Package api serves the public lead-capture HTTP endpoints.
package api

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/funildigital/funil/internal/config"
	"github.com/funildigital/funil/internal/dispatch"
	"github.com/funildigital/funil/internal/ratelimit"
	"github.com/funildigital/funil/internal/routing"
	"github.com/gin-gonic/gin"
)

// FallbackRelay is the messaging capability the fallback endpoint forwards
// to. *whatsapp.Client satisfies it.
type FallbackRelay interface {
	SendTo(ctx context.Context, number, text string) error
}

// Deps holds the collaborators the handlers need.
type Deps struct {
	Config     *config.Config
	Limiter    *ratelimit.Limiter
	Resolver   *routing.Resolver
	Dispatcher *dispatch.Dispatcher
	Relay      FallbackRelay // optional; fallback endpoint logs when nil
}

// StartOpts holds configuration for the public API server.
type StartOpts struct {
	Deps Deps
	Port int
	Out  io.Writer
}

// Start launches the API server. It blocks until ctx is cancelled, then
// shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if err := validateDeps(opts.Deps); err != nil {
		return err
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}

	router := NewRouter(opts.Deps)

	addr := fmt.Sprintf(":%d", opts.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Funil API listening on :%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}

// NewRouter builds the gin engine with all routes registered. Split out of
// Start so tests can drive it with httptest.
func NewRouter(deps Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	registerRoutes(router, deps)
	return router
}

func validateDeps(deps Deps) error {
	if deps.Config == nil {
		return fmt.Errorf("api: config is required")
	}
	if deps.Limiter == nil {
		return fmt.Errorf("api: rate limiter is required")
	}
	if deps.Resolver == nil {
		return fmt.Errorf("api: resolver is required")
	}
	if deps.Dispatcher == nil {
		return fmt.Errorf("api: dispatcher is required")
	}
	return nil
}
