package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yourorg/volatility-edge/internal/engine"
	"github.com/yourorg/volatility-edge/internal/event"
	"github.com/yourorg/volatility-edge/internal/model"
	"github.com/yourorg/volatility-edge/internal/repository"
	"github.com/yourorg/volatility-edge/internal/validator"
)

// ErrRunNotFound is returned when a backtest run does not exist
var ErrRunNotFound = errors.New("backtest run not found")

// flushInterval is the number of simulated days buffered between incremental
// artifact writes. Partial output stays queryable while a run is in flight.
const flushInterval = 10

// runRecorder buffers engine output and flushes it in day-sized batches, so
// long runs show progress mid-flight and a crash keeps everything already
// flushed. A failed flush keeps the buffer and retries on the next one.
type runRecorder struct {
	flushEvery int
	flush      func(signals []model.Signal, orders []repository.OrderWithFill, snapshots []model.PortfolioSnapshot) error
	logger     *zap.Logger

	signals    []model.Signal
	orders     []repository.OrderWithFill
	snapshots  []model.PortfolioSnapshot
	sinceFlush int
}

func (r *runRecorder) RecordSignal(s model.Signal) { r.signals = append(r.signals, s) }
func (r *runRecorder) RecordOrder(o model.Order, f model.Fill) {
	r.orders = append(r.orders, repository.OrderWithFill{Order: o, Fill: f})
}

// RecordSnapshot marks the end of a simulated day, so it drives the flush
// cadence
func (r *runRecorder) RecordSnapshot(s model.PortfolioSnapshot) {
	r.snapshots = append(r.snapshots, s)
	r.sinceFlush++
	if r.flushEvery > 0 && r.sinceFlush >= r.flushEvery {
		if err := r.Flush(); err != nil {
			r.logger.Warn("Incremental artifact flush failed, will retry", zap.Error(err))
		}
	}
}

// Flush persists the buffered artifacts and clears the buffer on success
func (r *runRecorder) Flush() error {
	if len(r.signals) == 0 && len(r.orders) == 0 && len(r.snapshots) == 0 {
		r.sinceFlush = 0
		return nil
	}
	if err := r.flush(r.signals, r.orders, r.snapshots); err != nil {
		return err
	}
	r.signals = nil
	r.orders = nil
	r.snapshots = nil
	r.sinceFlush = 0
	return nil
}

// BacktestService orchestrates backtest runs: creation, background
// execution, persistence of artifacts and result retrieval
type BacktestService struct {
	backtestRepo   *repository.BacktestRepository
	featureRepo    *repository.FeatureRepository
	instrumentRepo *repository.InstrumentRepository
	signalRepo     *repository.SignalRepository
	orderRepo      *repository.OrderRepository
	snapshotRepo   *repository.SnapshotRepository
	positionRepo   *repository.PositionRepository
	producer       *event.Producer
	logger         *zap.Logger
}

// NewBacktestService creates a new backtest service
func NewBacktestService(
	backtestRepo *repository.BacktestRepository,
	featureRepo *repository.FeatureRepository,
	instrumentRepo *repository.InstrumentRepository,
	signalRepo *repository.SignalRepository,
	orderRepo *repository.OrderRepository,
	snapshotRepo *repository.SnapshotRepository,
	positionRepo *repository.PositionRepository,
	producer *event.Producer,
	logger *zap.Logger,
) *BacktestService {
	return &BacktestService{
		backtestRepo:   backtestRepo,
		featureRepo:    featureRepo,
		instrumentRepo: instrumentRepo,
		signalRepo:     signalRepo,
		orderRepo:      orderRepo,
		snapshotRepo:   snapshotRepo,
		positionRepo:   positionRepo,
		producer:       producer,
		logger:         logger,
	}
}

// CreateRun validates the request, persists a pending run and starts the
// simulation in the background. The returned run is in pending state.
func (s *BacktestService) CreateRun(ctx context.Context, req *model.BacktestCreateRequest) (*model.BacktestRun, error) {
	if err := validator.ValidateBacktestConfig(&req.Config); err != nil {
		return nil, fmt.Errorf("invalid backtest config: %w", err)
	}

	// Every configured symbol must resolve to an active instrument before
	// the run is accepted
	for _, symbol := range req.Config.Instruments {
		instrument, err := s.instrumentRepo.GetBySymbol(ctx, symbol)
		if err != nil {
			return nil, err
		}
		if instrument == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownInstrument, symbol)
		}
	}

	run := &model.BacktestRun{
		Name:           req.Name,
		Description:    req.Description,
		StartDate:      req.Config.StartDate,
		EndDate:        req.Config.EndDate,
		Config:         req.Config,
		InitialCapital: req.Config.InitialCapital,
		Status:         model.BacktestStatusPending,
	}

	id, err := s.backtestRepo.CreateRun(ctx, run)
	if err != nil {
		return nil, err
	}
	run.ID = id

	go s.executeRun(id, req.Config)

	return s.backtestRepo.GetRun(ctx, id)
}

// executeRun drives one backtest to completion. It runs detached from the
// request context; a failure marks the run failed and keeps whatever
// artifacts were already persisted.
func (s *BacktestService) executeRun(runID int, cfg model.BacktestConfig) {
	ctx := context.Background()

	if err := s.backtestRepo.UpdateStatus(ctx, runID, model.BacktestStatusRunning); err != nil {
		s.failRun(ctx, runID, cfg, fmt.Sprintf("failed to mark run running: %v", err))
		return
	}
	s.publishEvent(ctx, runID, cfg, string(model.BacktestStatusRunning), nil, nil, "")

	series, err := s.loadSeries(ctx, cfg)
	if err != nil {
		s.failRun(ctx, runID, cfg, err.Error())
		return
	}

	rec := &runRecorder{
		flushEvery: flushInterval,
		flush:      s.artifactFlusher(ctx),
		logger:     s.logger,
	}
	bt := engine.NewBacktester(cfg, rec, s.logger)

	result, err := bt.Run(ctx, runID, series)

	// Persist whatever the engine produced, even for failed runs
	if persistErr := s.persistArtifacts(ctx, runID, rec, result); persistErr != nil {
		s.failRun(ctx, runID, cfg, fmt.Sprintf("failed to persist artifacts: %v", persistErr))
		return
	}

	if err != nil {
		s.failRun(ctx, runID, cfg, err.Error())
		return
	}

	run := &model.BacktestRun{ID: runID}
	run.FinalEquity = &result.FinalEquity
	run.TotalReturn = &result.Metrics.TotalReturn
	run.CAGR = result.Metrics.CAGR
	run.SharpeRatio = result.Metrics.SharpeRatio
	run.SortinoRatio = result.Metrics.SortinoRatio
	run.MaxDrawdown = &result.Metrics.MaxDrawdown
	run.MaxDrawdownDuration = &result.Metrics.MaxDrawdownDuration
	run.TotalTrades = &result.TotalTrades
	run.WinRate = result.Metrics.WinRate
	run.ProfitFactor = result.Metrics.ProfitFactor

	if err := s.backtestRepo.CompleteRun(ctx, run); err != nil {
		s.failRun(ctx, runID, cfg, fmt.Sprintf("failed to store results: %v", err))
		return
	}

	s.logger.Info("Backtest completed",
		zap.Int("run_id", runID),
		zap.Float64("final_equity", result.FinalEquity),
		zap.Int("total_trades", result.TotalTrades))

	s.publishEvent(ctx, runID, cfg, string(model.BacktestStatusCompleted), &result.FinalEquity, &result.TotalTrades, "")
}

// loadSeries fetches the joined bar/feature rows for every configured
// instrument over the run's date window
func (s *BacktestService) loadSeries(ctx context.Context, cfg model.BacktestConfig) ([]engine.InstrumentSeries, error) {
	series := make([]engine.InstrumentSeries, 0, len(cfg.Instruments))
	for _, symbol := range cfg.Instruments {
		instrument, err := s.instrumentRepo.GetBySymbol(ctx, symbol)
		if err != nil {
			return nil, err
		}
		if instrument == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownInstrument, symbol)
		}

		bars, err := s.featureRepo.GetFeatureBars(ctx, instrument.ID, cfg.StartDate, cfg.EndDate)
		if err != nil {
			return nil, err
		}
		if len(bars) == 0 {
			return nil, fmt.Errorf("no feature data for %s in the requested range", symbol)
		}

		series = append(series, engine.InstrumentSeries{
			Instrument: *instrument,
			Bars:       bars,
		})
	}
	return series, nil
}

// artifactFlusher returns the batched-write callback the recorder uses for
// both incremental and final flushes
func (s *BacktestService) artifactFlusher(ctx context.Context) func([]model.Signal, []repository.OrderWithFill, []model.PortfolioSnapshot) error {
	return func(signals []model.Signal, orders []repository.OrderWithFill, snapshots []model.PortfolioSnapshot) error {
		if err := s.signalRepo.InsertSignals(ctx, signals); err != nil {
			return err
		}
		if err := s.orderRepo.InsertOrdersWithFills(ctx, orders); err != nil {
			return err
		}
		return s.snapshotRepo.InsertSnapshots(ctx, snapshots)
	}
}

// persistArtifacts flushes anything still buffered after the run and stores
// the final open positions
func (s *BacktestService) persistArtifacts(ctx context.Context, runID int, rec *runRecorder, result *engine.RunResult) error {
	if err := rec.Flush(); err != nil {
		return err
	}
	if result != nil {
		if err := s.positionRepo.ReplacePositions(ctx, runID, result.OpenPositions); err != nil {
			return err
		}
	}
	return nil
}

func (s *BacktestService) failRun(ctx context.Context, runID int, cfg model.BacktestConfig, message string) {
	s.logger.Error("Backtest failed",
		zap.Int("run_id", runID),
		zap.String("error", message))

	if err := s.backtestRepo.FailRun(ctx, runID, message); err != nil {
		s.logger.Error("Failed to mark run failed", zap.Error(err), zap.Int("run_id", runID))
	}
	s.publishEvent(ctx, runID, cfg, string(model.BacktestStatusFailed), nil, nil, message)
}

func (s *BacktestService) publishEvent(ctx context.Context, runID int, cfg model.BacktestConfig, status string, finalEquity *float64, totalTrades *int, errMsg string) {
	s.producer.PublishBacktestEvent(ctx, event.BacktestEvent{
		RunID:       runID,
		Status:      status,
		FinalEquity: finalEquity,
		TotalTrades: totalTrades,
		Error:       errMsg,
	})
}

// GetRun retrieves a backtest run by ID
func (s *BacktestService) GetRun(ctx context.Context, id int) (*model.BacktestRun, error) {
	if id <= 0 {
		return nil, errors.New("invalid run ID")
	}
	return s.backtestRepo.GetRun(ctx, id)
}

// ListRuns retrieves backtest runs, newest first
func (s *BacktestService) ListRuns(ctx context.Context, page, limit int) ([]model.BacktestRun, int, error) {
	return s.backtestRepo.ListRuns(ctx, page, limit)
}

// DeleteRun deletes a run and all of its artifacts
func (s *BacktestService) DeleteRun(ctx context.Context, id int) error {
	run, err := s.backtestRepo.GetRun(ctx, id)
	if err != nil {
		return err
	}
	if run == nil {
		return ErrRunNotFound
	}
	if run.Status == model.BacktestStatusRunning {
		return errors.New("cannot delete a running backtest")
	}
	return s.backtestRepo.DeleteRun(ctx, id)
}

// GetResults aggregates a run with its snapshot and signal series
func (s *BacktestService) GetResults(ctx context.Context, id int) (*model.BacktestResults, error) {
	run, err := s.backtestRepo.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, ErrRunNotFound
	}

	snapshots, err := s.snapshotRepo.GetSnapshotsByRun(ctx, id)
	if err != nil {
		return nil, err
	}
	signals, err := s.signalRepo.GetSignalsByRun(ctx, id)
	if err != nil {
		return nil, err
	}

	return &model.BacktestResults{
		Run:       *run,
		Snapshots: snapshots,
		Signals:   signals,
		Metrics: model.BacktestMetrics{
			TotalReturn:         run.TotalReturn,
			CAGR:                run.CAGR,
			SharpeRatio:         run.SharpeRatio,
			SortinoRatio:        run.SortinoRatio,
			MaxDrawdown:         run.MaxDrawdown,
			MaxDrawdownDuration: run.MaxDrawdownDuration,
			WinRate:             run.WinRate,
			ProfitFactor:        run.ProfitFactor,
			TotalTrades:         run.TotalTrades,
			InitialCapital:      run.InitialCapital,
			FinalEquity:         run.FinalEquity,
		},
	}, nil
}

// WaitForCompletion polls a run until it leaves the pending/running states
// or the timeout elapses. Used by the CLI tools.
func (s *BacktestService) WaitForCompletion(ctx context.Context, id int, timeout time.Duration) (*model.BacktestRun, error) {
	deadline := time.Now().Add(timeout)
	for {
		run, err := s.backtestRepo.GetRun(ctx, id)
		if err != nil {
			return nil, err
		}
		if run == nil {
			return nil, ErrRunNotFound
		}
		if run.Status.Terminal() {
			return run, nil
		}
		if time.Now().After(deadline) {
			return run, errors.New("timed out waiting for backtest completion")
		}
		select {
		case <-ctx.Done():
			return run, ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
}
