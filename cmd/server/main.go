package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourorg/volatility-edge/internal/config"
	"github.com/yourorg/volatility-edge/internal/engine"
	"github.com/yourorg/volatility-edge/internal/event"
	"github.com/yourorg/volatility-edge/internal/handler"
	"github.com/yourorg/volatility-edge/internal/middleware"
	"github.com/yourorg/volatility-edge/internal/repository"
	"github.com/yourorg/volatility-edge/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Set up logger
	logger, err := createLogger(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Connect to database
	db, err := repository.Connect(repository.DBConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Initialize repositories
	instrumentRepo := repository.NewInstrumentRepository(db, logger)
	barRepo := repository.NewBarRepository(db, logger)
	featureRepo := repository.NewFeatureRepository(db, logger)
	backtestRepo := repository.NewBacktestRepository(db, logger)
	signalRepo := repository.NewSignalRepository(db, logger)
	orderRepo := repository.NewOrderRepository(db, logger)
	snapshotRepo := repository.NewSnapshotRepository(db, logger)
	positionRepo := repository.NewPositionRepository(db, logger)
	journalRepo := repository.NewJournalRepository(db, logger)

	// Initialize event producer (nil when no brokers are configured)
	producer := event.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics["backtests"], logger)
	defer producer.Close()

	featureCfg := engine.FeatureConfig{
		ATRPeriod:      cfg.Backtest.ATRPeriod,
		MAPeriod:       cfg.Backtest.MAPeriod,
		MASlopePeriod:  cfg.Backtest.MASlopePeriod,
		BreakoutPeriod: cfg.Backtest.BreakoutPeriod,
		ExitPeriod:     cfg.Backtest.ExitPeriod,
	}

	// Initialize services
	instrumentService := service.NewInstrumentService(instrumentRepo, logger)
	marketDataService := service.NewMarketDataService(barRepo, instrumentRepo, logger)
	featureService := service.NewFeatureService(featureRepo, barRepo, instrumentRepo, featureCfg, logger)
	backtestService := service.NewBacktestService(
		backtestRepo,
		featureRepo,
		instrumentRepo,
		signalRepo,
		orderRepo,
		snapshotRepo,
		positionRepo,
		producer,
		logger,
	)
	signalService := service.NewSignalService(signalRepo, logger)
	portfolioService := service.NewPortfolioService(backtestRepo, snapshotRepo, positionRepo, logger)
	journalService := service.NewJournalService(journalRepo, logger)

	// Initialize handlers
	instrumentHandler := handler.NewInstrumentHandler(instrumentService, logger)
	marketDataHandler := handler.NewMarketDataHandler(marketDataService, logger)
	featureHandler := handler.NewFeatureHandler(featureService, logger)
	backtestHandler := handler.NewBacktestHandler(backtestService, logger)
	signalHandler := handler.NewSignalHandler(signalService, logger)
	portfolioHandler := handler.NewPortfolioHandler(portfolioService, logger)
	journalHandler := handler.NewJournalHandler(journalService, logger)

	// Set up HTTP server with Gin
	router := setupRouter(
		instrumentHandler,
		marketDataHandler,
		featureHandler,
		backtestHandler,
		signalHandler,
		portfolioHandler,
		journalHandler,
		logger,
		cfg,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start the server in a goroutine
	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Create a deadline for server shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited properly")
}

func createLogger(level string) (*zap.Logger, error) {
	// Parse log level
	var zapLevel zap.AtomicLevel
	switch level {
	case "debug":
		zapLevel = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapLevel = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapLevel = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		zapLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	// Create logger config
	config := zap.Config{
		Level:            zapLevel,
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return config.Build()
}

func setupRouter(
	instrumentHandler *handler.InstrumentHandler,
	marketDataHandler *handler.MarketDataHandler,
	featureHandler *handler.FeatureHandler,
	backtestHandler *handler.BacktestHandler,
	signalHandler *handler.SignalHandler,
	portfolioHandler *handler.PortfolioHandler,
	journalHandler *handler.JournalHandler,
	logger *zap.Logger,
	cfg *config.Config,
) *gin.Engine {
	router := gin.New()

	// Use middlewares
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	// API routes
	api := router.Group("/api/v1")
	{
		// Instrument routes
		instruments := api.Group("/instruments")
		{
			instruments.GET("", instrumentHandler.GetInstruments)
			instruments.POST("", instrumentHandler.CreateInstrument)
			instruments.GET("/:id", instrumentHandler.GetInstrument)
			instruments.PUT("/:id", instrumentHandler.UpdateInstrument)
			instruments.DELETE("/:id", instrumentHandler.DeactivateInstrument)
			instruments.GET("/:id/bars", marketDataHandler.GetBars)
			instruments.GET("/:id/bars/range", marketDataHandler.GetDateRange)
			instruments.GET("/:id/features", featureHandler.GetFeatures)
			instruments.POST("/:id/features/recompute", featureHandler.RecomputeFeatures)
		}

		// Market data routes
		marketData := api.Group("/market-data")
		{
			marketData.POST("/bars", marketDataHandler.IngestBars)
			marketData.POST("/csv", marketDataHandler.IngestCSV)
		}

		// Feature routes
		features := api.Group("/features")
		{
			features.POST("/recompute", featureHandler.RecomputeAll)
		}

		// Backtest routes
		backtests := api.Group("/backtests")
		{
			backtests.POST("", backtestHandler.CreateBacktest)
			backtests.GET("", backtestHandler.ListBacktests)
			backtests.GET("/:id", backtestHandler.GetBacktest)
			backtests.DELETE("/:id", backtestHandler.DeleteBacktest)
			backtests.GET("/:id/results", backtestHandler.GetBacktestResults)
		}

		// Signal routes
		signals := api.Group("/signals")
		{
			signals.GET("/today", signalHandler.GetTodaySignals)
			signals.GET("/recent", signalHandler.GetRecentSignals)
			signals.GET("/date/:date", signalHandler.GetSignalsByDate)
			signals.GET("/:id", signalHandler.GetSignal)
		}

		// Portfolio routes
		portfolio := api.Group("/portfolio")
		{
			portfolio.GET("/status", portfolioHandler.GetStatus)
			portfolio.GET("/positions", portfolioHandler.GetPositions)
			portfolio.GET("/equity-curve", portfolioHandler.GetEquityCurve)
		}

		// Journal routes
		journal := api.Group("/journal")
		{
			journal.GET("", journalHandler.ListEntries)
			journal.POST("", journalHandler.CreateEntry)
			journal.GET("/:id", journalHandler.GetEntry)
			journal.PUT("/:id", journalHandler.UpdateEntry)
			journal.DELETE("/:id", journalHandler.DeleteEntry)
		}
	}

	// Service-to-service routes, authenticated by shared key. Used by batch
	// pipelines that push data and trigger recomputes.
	serviceRoutes := api.Group("/service")
	serviceRoutes.Use(middleware.ServiceAuthMiddleware(cfg.ServiceKey, logger))
	{
		serviceRoutes.POST("/market-data/bars", marketDataHandler.IngestBars)
		serviceRoutes.POST("/features/recompute", featureHandler.RecomputeAll)
	}

	return router
}
