package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/librarium/librarium/internal/config"
	"github.com/librarium/librarium/internal/orchestrator"
	"github.com/librarium/librarium/internal/orchestrator/libraryclient"
	"github.com/librarium/librarium/internal/orchestrator/sagalog"
	"github.com/librarium/librarium/internal/orchestrator/users"
	"github.com/librarium/librarium/internal/token"
)

// AppState holds all users service dependencies
type AppState struct {
	DB           *bun.DB
	Logger       *zap.Logger
	Config       *config.Config
	Orchestrator *orchestrator.Orchestrator
	Reconciler   *orchestrator.Reconciler
}

func main() {
	// Load configuration
	config.Load()

	// Initialize logger with config
	logger := initLogger()
	logger.Info("Configuration loaded", zap.String("source", "config.Load()"))

	// Initialize application state
	as, err := newAppState(logger)
	if err != nil {
		logger.Fatal("Failed to initialize application state", zap.Error(err))
	}

	// Create database tables
	ctx := context.Background()
	if err := users.CreateTables(ctx, as.DB); err != nil {
		logger.Fatal("Failed to create user tables", zap.Error(err))
	}
	if err := sagalog.CreateTables(ctx, as.DB); err != nil {
		logger.Fatal("Failed to create saga log tables", zap.Error(err))
	}

	// Create HTTP server
	router := setupRouter(as)

	addr := fmt.Sprintf("%s:%d", config.UsersHttp().Host, config.UsersHttp().Port)

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Setup graceful shutdown
	done, shutdownCtx := setupSignalHandler(as, server, logger)

	// Run the reconciliation sweep in the background until shutdown
	go as.Reconciler.Run(shutdownCtx)

	// Start server
	logger.Info("Starting users server", zap.String("address", addr))

	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("Failed to start server", zap.Error(err))
	}

	<-done
	logger.Info("Server shutdown complete")
}

// newAppState creates and initializes the application state
func newAppState(logger *zap.Logger) (*AppState, error) {
	pgConfig := config.Postgres()

	logger.Info("Database configuration",
		zap.String("host", pgConfig.Host),
		zap.Int("port", pgConfig.Port),
		zap.String("database", pgConfig.Database),
		zap.String("user", pgConfig.User))

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(pgConfig.DSN())))
	if pgConfig.MaxOpenConnections > 0 {
		sqldb.SetMaxOpenConns(pgConfig.MaxOpenConnections)
	}
	db := bun.NewDB(sqldb, pgdialect.New())

	scheme, err := token.NewScheme(config.Auth().SharedSecret)
	if err != nil {
		return nil, fmt.Errorf("invalid shared secret: %w", err)
	}

	userService := users.NewUserService(users.NewPostgresStore(db, scheme))
	sagaStore := sagalog.NewPostgresStore(db)

	sagaConfig := config.Saga()
	libraryClient := libraryclient.New(
		config.LibraryHttp().BaseURL(),
		config.Auth().SharedSecret,
		time.Duration(sagaConfig.RequestTimeoutSeconds)*time.Second,
	)

	orchestratorService := orchestrator.New(userService, sagaStore, libraryClient, scheme, logger)

	reconciler := orchestrator.NewReconciler(
		sagaStore,
		userService,
		libraryClient,
		time.Duration(sagaConfig.StaleAfterSeconds)*time.Second,
		time.Duration(sagaConfig.ReconcileIntervalSeconds)*time.Second,
		logger,
	)

	return &AppState{
		DB:           db,
		Logger:       logger,
		Config:       config.Get(),
		Orchestrator: orchestratorService,
		Reconciler:   reconciler,
	}, nil
}

func initLogger() *zap.Logger {
	logConfig := config.Logger()

	var config zap.Config
	if logConfig.Format == "json" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
	}

	// Set log level
	switch logConfig.Level {
	case "debug":
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		config.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		config.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	return logger
}

func setupRouter(as *AppState) *gin.Engine {
	// Set Gin mode
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Add CORS middleware
	router.Use(cors.Default())

	// Add logging middleware
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	orchestrator.NewHandlers(as.Orchestrator).RegisterRoutes(router)

	return router
}

func setupSignalHandler(as *AppState, server *http.Server, logger *zap.Logger) (chan struct{}, context.Context) {
	done := make(chan struct{}, 1)
	shutdownCtx, cancel := context.WithCancel(context.Background())

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-signalCh

		logger.Info("Shutting down server...")

		// Stop the reconciliation sweep
		cancel()

		// Create context with timeout for graceful shutdown
		ctx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		// Shutdown server
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Error during server shutdown", zap.Error(err))
		}

		// Close database
		if err := as.DB.Close(); err != nil {
			logger.Error("Error closing database", zap.Error(err))
		}

		done <- struct{}{}
	}()

	return done, shutdownCtx
}
