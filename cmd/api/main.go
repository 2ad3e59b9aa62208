package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saturnino-fabrica-de-software/facegate/internal/api"
	"github.com/saturnino-fabrica-de-software/facegate/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/facegate/internal/audit"
	"github.com/saturnino-fabrica-de-software/facegate/internal/config"
	"github.com/saturnino-fabrica-de-software/facegate/internal/database"
	"github.com/saturnino-fabrica-de-software/facegate/internal/embedding"
	"github.com/saturnino-fabrica-de-software/facegate/internal/face"
	"github.com/saturnino-fabrica-de-software/facegate/internal/repository"
	"github.com/saturnino-fabrica-de-software/facegate/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Environment)
	slog.SetDefault(logger)

	logger.Info("starting Facegate API",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
		slog.String("provider", cfg.FaceProvider),
	)

	// Database pool
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	// Face provider
	faceProvider, err := face.NewFaceProvider(cfg)
	if err != nil {
		return fmt.Errorf("failed to create face provider: %w", err)
	}

	// Repositories
	identityRepo := repository.NewIdentityRepository(pool)
	permissionRepo := repository.NewPermissionRepository(pool)
	accessRepo := repository.NewAccessRepository(pool)

	// Recognition state: embedding snapshot plus fitted classifier,
	// rebuilt from ledger reference images when the snapshot is gone.
	store := embedding.NewStore(cfg.EmbeddingsPath, logger)
	recognition := service.NewRecognitionService(store, cfg.ModelPath, faceProvider, logger)

	identities, err := identityRepo.References(ctx)
	if err != nil {
		return fmt.Errorf("failed to load identity references: %w", err)
	}
	refs := make([]embedding.Reference, 0, len(identities))
	for _, identity := range identities {
		refs = append(refs, embedding.Reference{
			Label: identity.ID,
			Image: identity.FacialData,
		})
	}
	if err := recognition.Bootstrap(ctx, refs); err != nil {
		return fmt.Errorf("failed to restore recognition state: %w", err)
	}

	// Services
	auditLog := audit.NewSlogLogger(logger)
	enrollment := service.NewEnrollmentService(
		identityRepo,
		permissionRepo,
		recognition,
		faceProvider,
		auditLog,
		logger,
		cfg.ProviderTimeout,
	)
	access := service.NewAccessService(
		permissionRepo,
		accessRepo,
		recognition,
		faceProvider,
		auditLog,
		logger,
		cfg.RecognitionThreshold,
		cfg.ProviderTimeout,
	)

	// Setup router
	router := api.NewRouter(logger, &api.Dependencies{
		IdentityRepo:   identityRepo,
		PermissionRepo: permissionRepo,
		AccessRepo:     accessRepo,
		Enrollment:     enrollment,
		Access:         access,
		APIKey:         cfg.APIKey,
		ReadyCheck:     readyCheck(pool),
	})
	router.Setup()

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down server...")
	if err := router.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.Any("error", err))
	}

	logger.Info("server stopped")

	return nil
}

func readyCheck(pool *pgxpool.Pool) handler.ReadinessChecker {
	return func(ctx context.Context) error {
		return database.HealthCheck(ctx, pool)
	}
}
