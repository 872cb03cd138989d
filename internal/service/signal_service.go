package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/yourorg/volatility-edge/internal/model"
	"github.com/yourorg/volatility-edge/internal/repository"
)

// SignalService handles signal queries
type SignalService struct {
	signalRepo *repository.SignalRepository
	logger     *zap.Logger
}

// NewSignalService creates a new signal service
func NewSignalService(signalRepo *repository.SignalRepository, logger *zap.Logger) *SignalService {
	return &SignalService{
		signalRepo: signalRepo,
		logger:     logger,
	}
}

// GetSignal retrieves a signal by ID
func (s *SignalService) GetSignal(ctx context.Context, id int) (*model.SignalWithInstrument, error) {
	if id <= 0 {
		return nil, errors.New("invalid signal ID")
	}
	return s.signalRepo.GetSignalByID(ctx, id)
}

// GetTodaySignals retrieves all signals dated today (UTC)
func (s *SignalService) GetTodaySignals(ctx context.Context) ([]model.SignalWithInstrument, error) {
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return s.signalRepo.GetSignalsByDate(ctx, today)
}

// GetSignalsByDate retrieves all signals on a given day
func (s *SignalService) GetSignalsByDate(ctx context.Context, date time.Time) ([]model.SignalWithInstrument, error) {
	return s.signalRepo.GetSignalsByDate(ctx, date)
}

// GetRecentSignals retrieves the most recent signals, newest first
func (s *SignalService) GetRecentSignals(ctx context.Context, limit int) ([]model.SignalWithInstrument, error) {
	if limit < 1 || limit > 500 {
		limit = 50
	}
	return s.signalRepo.GetRecentSignals(ctx, limit)
}
