package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yourorg/volatility-edge/internal/engine"
	"github.com/yourorg/volatility-edge/internal/model"
	"github.com/yourorg/volatility-edge/internal/repository"
)

// ErrInsufficientBars is returned when an instrument has too little history
// for the configured lookback windows
var ErrInsufficientBars = errors.New("not enough bars to compute features")

// FeatureService computes and stores technical features
type FeatureService struct {
	featureRepo    *repository.FeatureRepository
	barRepo        *repository.BarRepository
	instrumentRepo *repository.InstrumentRepository
	cfg            engine.FeatureConfig
	logger         *zap.Logger
}

// NewFeatureService creates a new feature service
func NewFeatureService(
	featureRepo *repository.FeatureRepository,
	barRepo *repository.BarRepository,
	instrumentRepo *repository.InstrumentRepository,
	cfg engine.FeatureConfig,
	logger *zap.Logger,
) *FeatureService {
	return &FeatureService{
		featureRepo:    featureRepo,
		barRepo:        barRepo,
		instrumentRepo: instrumentRepo,
		cfg:            cfg,
		logger:         logger,
	}
}

// GetFeatures retrieves stored features for an instrument
func (s *FeatureService) GetFeatures(ctx context.Context, instrumentID int, startDate, endDate *time.Time) ([]model.Feature, error) {
	if instrumentID <= 0 {
		return nil, errors.New("invalid instrument ID")
	}
	return s.featureRepo.GetFeatures(ctx, instrumentID, startDate, endDate)
}

// RecomputeFeatures recomputes the full feature set of one instrument from
// its stored bars and atomically replaces the persisted rows. Rows whose ATR
// or MA window has not filled are dropped.
func (s *FeatureService) RecomputeFeatures(ctx context.Context, instrumentID int) (int, error) {
	instrument, err := s.instrumentRepo.GetByID(ctx, instrumentID)
	if err != nil {
		return 0, err
	}
	if instrument == nil {
		return 0, ErrUnknownInstrument
	}

	bars, err := s.barRepo.GetBars(ctx, instrumentID, nil, nil, 0)
	if err != nil {
		return 0, err
	}

	minBars := s.cfg.ATRPeriod + 1
	if s.cfg.MAPeriod > minBars {
		minBars = s.cfg.MAPeriod
	}
	if len(bars) < minBars {
		return 0, fmt.Errorf("%w: have %d, need %d", ErrInsufficientBars, len(bars), minBars)
	}

	rows := engine.ComputeFeatures(bars, s.cfg)

	features := make([]model.Feature, 0, len(rows))
	for _, row := range rows {
		if row.ATR == nil || row.MA == nil {
			continue
		}
		features = append(features, model.Feature{
			InstrumentID: instrumentID,
			Date:         row.Date,
			ATR:          *row.ATR,
			MA:           *row.MA,
			MASlope:      row.MASlope,
			HHLong:       row.HHLong,
			LLLong:       row.LLLong,
			HHShort:      row.HHShort,
			LLShort:      row.LLShort,
		})
	}

	count, err := s.featureRepo.ReplaceFeatures(ctx, instrumentID, features)
	if err != nil {
		return 0, err
	}

	s.logger.Info("Features recomputed",
		zap.String("symbol", instrument.Symbol),
		zap.Int("rows", count))

	return count, nil
}

// RecomputeAll recomputes features for every active instrument. Instruments
// without enough history are skipped, other errors abort.
func (s *FeatureService) RecomputeAll(ctx context.Context) (map[string]int, error) {
	instruments, err := s.instrumentRepo.GetAll(ctx, true)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(instruments))
	for _, instrument := range instruments {
		count, err := s.RecomputeFeatures(ctx, instrument.ID)
		if err != nil {
			if errors.Is(err, ErrInsufficientBars) {
				s.logger.Warn("Skipping instrument with insufficient history",
					zap.String("symbol", instrument.Symbol),
					zap.Error(err))
				continue
			}
			return nil, fmt.Errorf("recompute %s: %w", instrument.Symbol, err)
		}
		counts[instrument.Symbol] = count
	}

	return counts, nil
}
