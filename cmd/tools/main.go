package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yourorg/volatility-edge/internal/config"
	"github.com/yourorg/volatility-edge/internal/engine"
	"github.com/yourorg/volatility-edge/internal/model"
	"github.com/yourorg/volatility-edge/internal/repository"
	"github.com/yourorg/volatility-edge/internal/service"
)

// seedInstruments is the standard futures universe loaded by the seed command
var seedInstruments = []model.InstrumentCreate{
	{Symbol: "ES", Name: "E-mini S&P 500", Exchange: "CME", TickSize: 0.25, Multiplier: 50},
	{Symbol: "NQ", Name: "E-mini Nasdaq-100", Exchange: "CME", TickSize: 0.25, Multiplier: 20},
	{Symbol: "YM", Name: "E-mini Dow", Exchange: "CBOT", TickSize: 1.0, Multiplier: 5},
	{Symbol: "RTY", Name: "E-mini Russell 2000", Exchange: "CME", TickSize: 0.10, Multiplier: 50},
	{Symbol: "CL", Name: "Crude Oil", Exchange: "NYMEX", TickSize: 0.01, Multiplier: 1000},
	{Symbol: "GC", Name: "Gold", Exchange: "COMEX", TickSize: 0.10, Multiplier: 100},
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	configPath := "config/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		configPath = v
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := createLogger(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

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

	instrumentRepo := repository.NewInstrumentRepository(db, logger)
	barRepo := repository.NewBarRepository(db, logger)
	featureRepo := repository.NewFeatureRepository(db, logger)
	backtestRepo := repository.NewBacktestRepository(db, logger)
	signalRepo := repository.NewSignalRepository(db, logger)
	orderRepo := repository.NewOrderRepository(db, logger)
	snapshotRepo := repository.NewSnapshotRepository(db, logger)
	positionRepo := repository.NewPositionRepository(db, logger)

	featureCfg := engine.FeatureConfig{
		ATRPeriod:      cfg.Backtest.ATRPeriod,
		MAPeriod:       cfg.Backtest.MAPeriod,
		MASlopePeriod:  cfg.Backtest.MASlopePeriod,
		BreakoutPeriod: cfg.Backtest.BreakoutPeriod,
		ExitPeriod:     cfg.Backtest.ExitPeriod,
	}

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
		nil,
		logger,
	)

	ctx := context.Background()

	switch os.Args[1] {
	case "seed":
		err = runSeed(ctx, instrumentService, logger)
	case "ingest":
		err = runIngest(ctx, os.Args[2:], marketDataService, logger)
	case "recompute":
		err = runRecompute(ctx, featureService, logger)
	case "backtest":
		err = runBacktest(ctx, os.Args[2:], backtestService, logger)
	default:
		usage()
		os.Exit(1)
	}

	if err != nil {
		logger.Fatal("Command failed", zap.String("command", os.Args[1]), zap.Error(err))
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: tools <command> [flags]

Commands:
  seed                              Create the standard futures instruments
  ingest -symbol SYM -file F.csv    Ingest daily bars from a CSV file
  recompute                         Recompute features for all active instruments
  backtest -name N -symbols ES,NQ -start YYYY-MM-DD -end YYYY-MM-DD [-timeout D]
                                    Run a backtest with default parameters and
                                    wait for it to finish`)
}

// runSeed creates the standard instruments, skipping ones that already exist
func runSeed(ctx context.Context, instruments *service.InstrumentService, logger *zap.Logger) error {
	for _, create := range seedInstruments {
		create := create
		instrument, err := instruments.CreateInstrument(ctx, &create)
		if err != nil {
			if err == service.ErrDuplicateSymbol {
				logger.Info("Instrument already exists", zap.String("symbol", create.Symbol))
				continue
			}
			return err
		}
		logger.Info("Instrument seeded",
			zap.String("symbol", instrument.Symbol),
			zap.Int("id", instrument.ID))
	}
	return nil
}

func runIngest(ctx context.Context, args []string, marketData *service.MarketDataService, logger *zap.Logger) error {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	symbol := fs.String("symbol", "", "instrument symbol")
	file := fs.String("file", "", "CSV file of date,open,high,low,close[,volume] rows")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *symbol == "" || *file == "" {
		return fmt.Errorf("ingest requires -symbol and -file")
	}

	f, err := os.Open(*file)
	if err != nil {
		return err
	}
	defer f.Close()

	count, err := marketData.IngestCSV(ctx, *symbol, f)
	if err != nil {
		return err
	}

	logger.Info("Ingest complete",
		zap.String("symbol", *symbol),
		zap.String("file", *file),
		zap.Int("bars", count))
	return nil
}

func runRecompute(ctx context.Context, features *service.FeatureService, logger *zap.Logger) error {
	counts, err := features.RecomputeAll(ctx)
	if err != nil {
		return err
	}
	for symbol, count := range counts {
		logger.Info("Features recomputed", zap.String("symbol", symbol), zap.Int("rows", count))
	}
	return nil
}

func runBacktest(ctx context.Context, args []string, backtests *service.BacktestService, logger *zap.Logger) error {
	fs := flag.NewFlagSet("backtest", flag.ExitOnError)
	name := fs.String("name", "", "run name")
	symbols := fs.String("symbols", "", "comma-separated instrument symbols")
	start := fs.String("start", "", "start date, YYYY-MM-DD")
	end := fs.String("end", "", "end date, YYYY-MM-DD")
	timeout := fs.Duration("timeout", 30*time.Minute, "how long to wait for completion")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" || *symbols == "" || *start == "" || *end == "" {
		return fmt.Errorf("backtest requires -name, -symbols, -start and -end")
	}

	startDate, err := time.Parse("2006-01-02", *start)
	if err != nil {
		return fmt.Errorf("invalid start date: %w", err)
	}
	endDate, err := time.Parse("2006-01-02", *end)
	if err != nil {
		return fmt.Errorf("invalid end date: %w", err)
	}

	runCfg := model.DefaultBacktestConfig()
	runCfg.Instruments = strings.Split(*symbols, ",")
	runCfg.StartDate = startDate
	runCfg.EndDate = endDate

	run, err := backtests.CreateRun(ctx, &model.BacktestCreateRequest{
		Name:   *name,
		Config: runCfg,
	})
	if err != nil {
		return err
	}

	logger.Info("Backtest launched",
		zap.Int("run_id", run.ID),
		zap.String("name", run.Name))

	// The run executes in this process, so block until it reaches a
	// terminal state; exiting early would kill it mid-flight
	run, err = backtests.WaitForCompletion(ctx, run.ID, *timeout)
	if err != nil {
		return err
	}

	if run.Status == model.BacktestStatusFailed {
		msg := ""
		if run.ErrorMessage != nil {
			msg = *run.ErrorMessage
		}
		return fmt.Errorf("backtest failed: %s", msg)
	}

	fields := []zap.Field{zap.Int("run_id", run.ID)}
	if run.FinalEquity != nil {
		fields = append(fields, zap.Float64("final_equity", *run.FinalEquity))
	}
	if run.TotalTrades != nil {
		fields = append(fields, zap.Int("total_trades", *run.TotalTrades))
	}
	if run.SharpeRatio != nil {
		fields = append(fields, zap.Float64("sharpe_ratio", *run.SharpeRatio))
	}
	logger.Info("Backtest completed", fields...)
	return nil
}

func createLogger(level string) (*zap.Logger, error) {
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
