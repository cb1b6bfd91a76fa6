package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"pointmarket/api"
	"pointmarket/config"
	"pointmarket/database"
	"pointmarket/events"
	"pointmarket/repository"
	"pointmarket/service"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Info("Starting point market...")

	// Load configuration
	cfg := config.Get()

	// Initialize database connection
	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("Database connection established successfully")

	// Initialize event bus and audit sink
	eventBus := events.NewBus()
	events.RegisterAuditLogger(eventBus)

	// Initialize unit of work factory
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	// Initialize services
	userService := service.NewUserService(uowFactory, cfg)
	marketService := service.NewMarketService(uowFactory, cfg)
	bettingService := service.NewBettingService(uowFactory)
	resolutionService := service.NewResolutionService(uowFactory, cfg)
	log.Info("Services initialized successfully")

	// Initialize HTTP server
	server := api.NewServer(cfg, userService, marketService, bettingService, resolutionService)
	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Port).Infof("Market ledger is running in %s mode", cfg.Environment)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Wait for context cancellation or server failure
	select {
	case err := <-errChan:
		db.Close()
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
	}

	// Cleanup resources
	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("Error shutting down HTTP server")
	}

	log.Info("Closing database connection...")
	db.Close()

	log.Info("Shutdown completed")
	return nil
}
