package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tagboard/internal/config"
	"tagboard/internal/handlers"
	"tagboard/internal/logger"
	"tagboard/internal/models"
	"tagboard/internal/querycache"
	"tagboard/internal/services"
	"tagboard/internal/tagsclient"
	"tagboard/internal/tagscreen"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.json", "Path to config file")
	port := flag.String("port", "", "Server port (overrides config)")
	source := flag.String("source", "", "Tag source base URL (overrides config)")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfigWithDefaults(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Override with command line flags if provided
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *source != "" {
		cfg.Source.BaseURL = *source
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid flags: %v", err)
	}

	logg := logger.New(logger.Config{
		Format: cfg.Log.Format,
		Level:  logger.ParseLevel(cfg.Log.Level),
	})
	slog.SetDefault(logg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Upstream client and the shared page cache
	client, err := tagsclient.New(cfg.Source.BaseURL, tagsclient.Options{
		Timeout:   cfg.Source.Timeout(),
		RateLimit: cfg.Source.RateLimit,
		Burst:     cfg.Source.Burst,
		Logger:    logg.With(slog.String("component", "tagsclient")),
	})
	if err != nil {
		log.Fatalf("Failed to create tag source client: %v", err)
	}
	feed := services.NewTagFeed(client, cfg.Screen.PageSize)

	cache := querycache.New[models.TagPage](
		querycache.WithFreshness(cfg.Screen.Freshness()),
		querycache.WithGCTime(cfg.Screen.GC()),
		querycache.WithFetchTimeout(cfg.Source.Timeout()),
		querycache.WithLogger(logg.With(slog.String("component", "querycache"))),
	)
	defer cache.Close()

	// One screen per browser session
	screenLogger := logg.With(slog.String("component", "tagscreen"))
	registry := tagscreen.NewRegistry(ctx, cfg.Screen.SessionTTL(), func(ctx context.Context) *tagscreen.Screen {
		return tagscreen.New(ctx, feed, cache, tagscreen.Options{
			Debounce: cfg.Screen.Debounce(),
			Logger:   screenLogger,
		})
	}, screenLogger)
	defer registry.Close()
	go registry.Run(ctx)

	router := handlers.NewScreenRouter(handlers.ScreenRoutes{
		Screen: handlers.NewScreenHandler(registry, "Tags", logg),
		API:    handlers.NewAPITagsHandler(feed, cache, logg),
		Config: handlers.NewConfigHandler(cfg),
	})

	// Start server
	addr := cfg.Server.Addr()
	log.Printf("Server starting on %s", addr)
	log.Printf("Tag source: %s", cfg.Source.BaseURL)
	log.Printf("Endpoints:")
	log.Printf("  GET  /tags?page=<n>")
	log.Printf("  POST /tags/filter")
	log.Printf("  GET  /tags/table")
	log.Printf("  GET  /tags/events")
	log.Printf("  POST /tags/retry")
	log.Printf("  GET  /api/tags?page=<n>&q=<prefix>")
	log.Printf("  GET  /api/config")
	log.Printf("  GET  /health")

	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := serve(ctx, srv); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
	log.Printf("Server stopped")
}

// serve runs srv until ctx ends, then drains in-flight requests.
func serve(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
