package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"scholargraph/backend/internal/api"
	"scholargraph/backend/internal/comments"
	"scholargraph/backend/internal/domain"
	"scholargraph/backend/internal/feed"
	"scholargraph/backend/internal/graph"
	"scholargraph/backend/internal/ranking"
	"scholargraph/backend/internal/resilience"
	"scholargraph/backend/internal/store"
	"scholargraph/backend/pkg/config"
	"scholargraph/backend/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	// Initialize logger
	if err := logger.Init(cfg.Env); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting HTTP API server...", zap.String("store_backend", cfg.StoreBackend))

	ctx := context.Background()
	backend, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to open store", zap.Error(err))
	}

	guarded := resilience.NewGuardedStore(backend, resilience.Settings{
		Name:        cfg.StoreBackend,
		MaxFailures: uint32(cfg.BreakerMaxFailures),
		OpenTimeout: cfg.BreakerOpenTimeout,
	}, logger.Named("breaker"))
	defer guarded.Close()

	// Initialize dependencies
	recommender := ranking.NewRecommender(guarded, logger.Named("ranking"), ranking.WithFanOut(cfg.EngagementConcurrency))
	assembler := feed.NewAssembler(guarded, logger.Named("feed"), cfg.EngagementConcurrency)
	commentSvc := comments.NewService(guarded, logger.Named("comments"))

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	server := api.NewServer(guarded, recommender, assembler, commentSvc, logger.Named("api"), api.Options{
		JWTSecret:      cfg.JWTSecret,
		RequestTimeout: cfg.RequestTimeout,
		AccessLog:      true,
	})

	// Start server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started", zap.String("port", cfg.Port))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}

// openStore connects the configured backend and prepares its schema
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (domain.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendSQL:
		s, err := store.Open(cfg, logger.Named("store"))
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	default:
		repo, err := graph.Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = repo.Close()
			return nil, err
		}
		log.Info("Connected to Neo4j", zap.String("uri", cfg.Neo4jURI))
		return repo, nil
	}
}
