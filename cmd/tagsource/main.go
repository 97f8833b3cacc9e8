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
	"tagboard/internal/database"
	"tagboard/internal/handlers"
	"tagboard/internal/logger"
	"tagboard/internal/services"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.json", "Path to config file")
	dbPath := flag.String("db", "", "Path to SQLite database file (overrides config)")
	port := flag.String("port", "", "Server port (overrides config)")
	seed := flag.Bool("seed", false, "Load the raw data folder before serving")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfigWithDefaults(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Override with command line flags if provided
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if *port != "" {
		cfg.TagSource.Port = *port
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid flags: %v", err)
	}

	logg := logger.New(logger.Config{
		Format: cfg.Log.Format,
		Level:  logger.ParseLevel(cfg.Log.Level),
	})
	slog.SetDefault(logg)

	// Initialize database
	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database initialized at: %s", cfg.Database.Path)

	// Initialize services
	tagsService := services.NewTagsService(db)
	loader := services.NewLoader(db, logg.With(slog.String("component", "loader")))
	generator := services.NewGenerator(db, logg.With(slog.String("component", "generator")))
	uploadService := services.NewUploadService(db)

	if *seed {
		count, files, err := loader.LoadFromFolder(cfg.Data.RawDataFolder)
		if err != nil {
			log.Fatalf("Failed to seed tags: %v", err)
		}
		log.Printf("Seeded %d tags from %d files", count, files)
	}

	router := handlers.NewSourceRouter(handlers.SourceRoutes{
		Tags:      handlers.NewTagsHandler(tagsService, logg),
		Load:      handlers.NewLoadHandler(loader, cfg.Data.RawDataFolder, logg),
		Generator: handlers.NewGeneratorHandler(generator, logg),
		Upload:    handlers.NewUploadHandler(uploadService, logg),
	})

	// Start server with CORS wrapper
	addr := cfg.TagSource.Addr()
	log.Printf("Tag source starting on %s", addr)
	log.Printf("API endpoints:")
	log.Printf("  GET    /tags?_page=<n>&_per_page=<n>&q=<text>")
	log.Printf("  GET    /tags/{id}")
	log.Printf("  POST   /tags")
	log.Printf("  DELETE /tags/{id}")
	log.Printf("  POST   /api/load")
	log.Printf("  POST   /api/generate-dummy")
	log.Printf("  POST   /api/upload-csv")
	log.Printf("  GET    /health")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              addr,
		Handler:           handlers.WithCORS(router),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := serve(ctx, srv); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
	log.Printf("Tag source stopped")
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
