// Package startup prepares the application server
package startup

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zurichjs/conference-go/internal/application/container"
	"github.com/zurichjs/conference-go/internal/infrastructure/caching/cleanup"
	schema "github.com/zurichjs/conference-go/internal/infrastructure/database"
	"github.com/zurichjs/conference-go/internal/infrastructure/email"
	"github.com/zurichjs/conference-go/internal/infrastructure/observability/logging"
	"github.com/zurichjs/conference-go/internal/infrastructure/observability/performance"
	"github.com/zurichjs/conference-go/internal/infrastructure/persistence/database"
	"github.com/zurichjs/conference-go/internal/presentation/http/server"
	"github.com/zurichjs/conference-go/pkg/config"
)

// Initialize performs the complete startup sequence and blocks until shutdown
func Initialize() error {
	setupLogging()

	start := time.Now().UTC()

	ctx, cancelBackgroundTasks := context.WithCancel(context.Background())
	defer cancelBackgroundTasks()

	log.Println("\033[33m" + `
  ┌─┐┬ ┬┬─┐┬┌─┐┬ ┬ ╦╔═╗  ┌─┐┌─┐┌┐┌┌─┐
  ┌─┘│ │├┬┘││  ├─┤ ║╚═╗  │  │ ││││├┤
  └─┘└─┘┴└─┴└─┘┴ ┴╚╝╚═╝  └─┘└─┘┘└┘└
` + "\033[0m")

	// Step 1: Initialize logging
	log.Println("Initializing channeled logger...")
	logger, err := logging.NewChanneledLogger(&logging.LoggerConfig{
		OutputToFile:    config.LogDir != "",
		OutputToConsole: true,
		LogDirectory:    config.LogDir,
		JSONFormat:      config.LogJSON,
		DefaultLevel:    logging.ParseLevel(config.LogLevel),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Close()
	logger.Startup().Info("Logger ready - switching to channeled logging", "level", config.LogLevel)

	// Step 2: Load and validate discount configuration
	stepStart := time.Now()
	discountConfig := config.LoadDiscountConfig(nil)
	if !discountConfig.Enabled {
		logger.Startup().Warn("Discount popup disabled by invalid configuration", "problems", discountConfig.Problems)
	}
	if config.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}
	logger.LogStartupPhase("config", time.Since(stepStart), true)

	// Step 3: Connect to database
	stepStart = time.Now()
	if config.DBDriver == database.DriverLibSQL {
		if err := database.TestTursoConnectionWithLogger(config.TursoDatabaseURL, config.TursoAuthToken, logger); err != nil {
			logger.LogStartupPhase("database", time.Since(stepStart), false)
			return fmt.Errorf("turso connection test failed: %w", err)
		}
	}
	db, err := database.Open(database.Options{
		Driver:       config.DBDriver,
		Path:         config.DBPath,
		TursoURL:     config.TursoDatabaseURL,
		TursoToken:   config.TursoAuthToken,
		MaxOpenConns: config.DBMaxOpenConns,
		MaxIdleConns: config.DBMaxIdleConns,
	}, logger)
	if err != nil {
		logger.LogStartupPhase("database", time.Since(stepStart), false)
		return fmt.Errorf("failed to open database: %w", err)
	}
	logger.LogStartupPhase("database", time.Since(stepStart), true)

	// Step 4: Ensure schema
	stepStart = time.Now()
	if err := schema.NewTableCreator().CreateSchema(db.DB); err != nil {
		db.Close()
		return fmt.Errorf("failed to create schema: %w", err)
	}
	logger.LogStartupPhase("schema", time.Since(stepStart), true)

	// Step 5: Email delivery (optional)
	var mailer email.Service
	if client, err := email.NewService(email.Options{
		APIKey:   config.ResendAPIKey,
		From:     config.EmailFrom,
		FromName: config.EmailFromName,
	}); err != nil {
		logger.Startup().Warn("Email delivery disabled", "reason", err.Error())
	} else {
		mailer = client
	}

	// Step 6: Create dependency injection container
	stepStart = time.Now()
	perfTracker := performance.NewTracker(performance.DefaultTrackerConfig(), logger)
	appContainer := container.NewContainer(container.Options{
		DB:                  db,
		Discount:            discountConfig,
		Logger:              logger,
		PerfTracker:         perfTracker,
		Mailer:              mailer,
		JWTSecret:           config.JWTSecret,
		AdminPasswordHash:   config.AdminPasswordHash,
		CookieSecure:        config.CookieSecure,
		TicketsURL:          config.TicketsURL,
		TicketPrice:         config.TicketPrice,
		AnalyticsBufferSize: config.AnalyticsBufferSize,
		AllowedOrigins:      config.CORSAllowedOrigins,
	})
	logger.LogStartupPhase("container", time.Since(stepStart), true)

	// Step 7: Start background cleanup worker
	logger.Startup().Info("Starting background session cleanup worker...")
	cleanupWorker := cleanup.NewWorker(appContainer.PopupSessions, cleanup.NewConfig(), logger)
	go cleanupWorker.Start(ctx)

	// Step 8: Start HTTP server
	httpServer := server.New(config.Port, appContainer)

	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- httpServer.Start()
	}()

	logger.Startup().Info("Application startup complete",
		"totalDuration", time.Since(start),
		"port", config.Port,
		"discountEnabled", discountConfig.Enabled,
		"emailEnabled", appContainer.EmailService.Enabled())

	// Wait for shutdown signal or a failed listener
	select {
	case <-gracefulShutdown:
		logger.Shutdown().Info("Shutdown signal received, starting graceful shutdown...")
	case err := <-serverErr:
		if err != nil {
			logger.System().Error("HTTP server failed", "error", err.Error())
		}
	}

	shutdownStart := time.Now()
	cancelBackgroundTasks()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Shutdown().Error("Error during server shutdown", "error", err.Error())
	} else {
		logger.Shutdown().Info("HTTP server stopped successfully")
	}

	// Stop session timers before the analytics writer drains
	closed := appContainer.PopupSessions.CloseAll()
	logger.Shutdown().Info("Popup sessions closed", "count", closed)

	appContainer.AnalyticsService.Close()
	logger.Shutdown().Info("Analytics drained", "dropped", appContainer.AnalyticsService.Dropped())

	if err := db.Close(); err != nil {
		logger.Shutdown().Error("Error closing database", "error", err.Error())
	}

	logger.Shutdown().Info("Application shutdown complete",
		"totalUptime", time.Since(start),
		"shutdownDuration", time.Since(shutdownStart))

	return nil
}

// setupLogging configures pre-container logging
func setupLogging() {
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}
