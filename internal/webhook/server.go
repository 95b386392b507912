// Package webhook runs the HTTP surface: Telegram update ingestion plus
// status and metrics endpoints.
package webhook

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/boxcar/internal/cache"
	"github.com/zulandar/boxcar/internal/store"
)

// StartOpts holds configuration for the webhook server.
type StartOpts struct {
	Store   *store.Store
	Counter cache.GroupCounter
	BotID   int64
	// TypeMap assigns a content type id per source chat; unmapped chats
	// ingest with type 0.
	TypeMap map[int64]int64
	Port    int
	Out     io.Writer
}

// Start launches the webhook HTTP server. It blocks until ctx is
// cancelled, then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Store == nil {
		return fmt.Errorf("webhook: store is required")
	}
	if opts.Counter == nil {
		return fmt.Errorf("webhook: group counter is required")
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}

	router := newRouter(opts)

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
		fmt.Fprintf(opts.Out, "Webhook listening on :%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("webhook: %w", err)
	}
	return nil
}

// newRouter builds the gin engine with all routes registered.
func newRouter(opts StartOpts) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	registerRoutes(router, opts)
	return router
}
