package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alisproject111/tripeasy-client/internal/config"
	"github.com/alisproject111/tripeasy-client/internal/gateway"
	"github.com/alisproject111/tripeasy-client/internal/handlers"
	"github.com/alisproject111/tripeasy-client/internal/router"
	"github.com/alisproject111/tripeasy-client/internal/service"
	"github.com/alisproject111/tripeasy-client/internal/settlement"
	"github.com/alisproject111/tripeasy-client/internal/store"
	"github.com/alisproject111/tripeasy-client/internal/upstream"
	"github.com/alisproject111/tripeasy-client/internal/websocket"
)

func main() {
	cfg := config.Load()

	ctx := context.Background()

	// Session store: Postgres when configured, in-memory otherwise.
	var kv store.KV
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to session store: %v", err)
		}
		defer pool.Close()

		pgStore, err := store.NewPostgresStore(ctx, pool)
		if err != nil {
			log.Fatalf("Failed to initialize session store: %v", err)
		}
		kv = pgStore
		log.Println("Session store: Postgres")
	} else {
		kv = store.NewMemoryStore()
		log.Println("Session store: in-memory")
	}

	api := upstream.NewClient(cfg.APIBaseURL)
	redirector := gateway.NewRedirector(cfg.GatewayCheckoutURL, cfg.GatewayReturnURL)

	// WebSocket hub for settlement progress
	hub := websocket.NewHub()
	go hub.Run()

	settlements := settlement.NewRegistry(api, kv, hub.BroadcastStatus)

	// Initialize services
	portal := service.NewPortalService(api, kv, redirector, settlements)

	// Initialize handlers
	h := handlers.NewHandler(portal, hub)

	// Create router
	r := router.SetupRouter(h)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Portal server starting on port %s", cfg.Port)
		log.Printf("Remote API at %s", cfg.APIBaseURL)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
