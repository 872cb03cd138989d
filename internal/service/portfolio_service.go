package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/yourorg/volatility-edge/internal/engine"
	"github.com/yourorg/volatility-edge/internal/model"
	"github.com/yourorg/volatility-edge/internal/repository"
)

// ErrNoCompletedRun is returned when portfolio queries run before any
// backtest has completed
var ErrNoCompletedRun = errors.New("no completed backtest run")

// PortfolioService exposes the portfolio console views derived from the
// latest completed backtest run
type PortfolioService struct {
	backtestRepo *repository.BacktestRepository
	snapshotRepo *repository.SnapshotRepository
	positionRepo *repository.PositionRepository
	logger       *zap.Logger
}

// NewPortfolioService creates a new portfolio service
func NewPortfolioService(
	backtestRepo *repository.BacktestRepository,
	snapshotRepo *repository.SnapshotRepository,
	positionRepo *repository.PositionRepository,
	logger *zap.Logger,
) *PortfolioService {
	return &PortfolioService{
		backtestRepo: backtestRepo,
		snapshotRepo: snapshotRepo,
		positionRepo: positionRepo,
		logger:       logger,
	}
}

// GetStatus computes the risk console view from the latest completed run's
// final snapshot and open positions
func (s *PortfolioService) GetStatus(ctx context.Context) (*model.RiskStatus, error) {
	run, err := s.backtestRepo.GetLatestCompletedRun(ctx)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, ErrNoCompletedRun
	}

	snapshot, err := s.snapshotRepo.GetLatestSnapshot(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, ErrNoCompletedRun
	}

	peak, err := s.snapshotRepo.GetPeakEquity(ctx, run.ID)
	if err != nil {
		return nil, err
	}

	positions, err := s.positionRepo.GetPositionsByRun(ctx, run.ID)
	if err != nil {
		return nil, err
	}

	risk := engine.NewRiskManager(engine.RiskConfig{
		RiskPerTrade:              run.Config.RiskPerTrade,
		MaxContractsPerInstrument: run.Config.MaxContractsPerInstrument,
		MaxGrossExposure:          run.Config.MaxGrossExposure,
		MaxCorrelatedExposure:     run.Config.MaxCorrelatedExposure,
		DrawdownWarningPct:        run.Config.DrawdownWarningPct,
		DrawdownHaltPct:           run.Config.DrawdownHaltPct,
		DailyLossLimitPct:         run.Config.DailyLossLimitPct,
	})

	startOfDay := snapshot.Equity - snapshot.DailyPnL
	state := risk.CalculateRiskState(snapshot.Equity, peak, snapshot.DailyPnL, startOfDay)

	dailyPnLPct := 0.0
	if startOfDay > 0 {
		dailyPnLPct = snapshot.DailyPnL / startOfDay
	}

	return &model.RiskStatus{
		CurrentEquity:    snapshot.Equity,
		PeakEquity:       peak,
		CurrentDrawdown:  snapshot.Drawdown,
		DailyPnL:         snapshot.DailyPnL,
		DailyPnLPct:      dailyPnLPct,
		RiskMode:         string(state.Mode),
		CanOpenNewTrades: state.TradingEnabled,
		ActivePositions:  len(positions),
		TotalExposure:    snapshot.TotalExposure,
		Message:          state.Reason,
	}, nil
}

// GetPositions retrieves the open positions of the latest completed run
func (s *PortfolioService) GetPositions(ctx context.Context) ([]model.PositionWithInstrument, error) {
	run, err := s.backtestRepo.GetLatestCompletedRun(ctx)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, ErrNoCompletedRun
	}
	return s.positionRepo.GetPositionsByRun(ctx, run.ID)
}

// GetEquityCurve retrieves the trailing equity curve of the latest completed
// run. A non-positive days value returns the full curve.
func (s *PortfolioService) GetEquityCurve(ctx context.Context, days int) ([]model.PortfolioSnapshot, error) {
	run, err := s.backtestRepo.GetLatestCompletedRun(ctx)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, ErrNoCompletedRun
	}
	return s.snapshotRepo.GetEquityCurve(ctx, run.ID, days)
}
