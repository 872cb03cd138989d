package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/yourorg/volatility-edge/internal/model"
	"github.com/yourorg/volatility-edge/internal/repository"
)

// ErrDuplicateSymbol is returned when creating an instrument whose symbol
// already exists
var ErrDuplicateSymbol = errors.New("instrument symbol already exists")

// InstrumentService handles instrument reference data operations
type InstrumentService struct {
	instrumentRepo *repository.InstrumentRepository
	logger         *zap.Logger
}

// NewInstrumentService creates a new instrument service
func NewInstrumentService(instrumentRepo *repository.InstrumentRepository, logger *zap.Logger) *InstrumentService {
	return &InstrumentService{
		instrumentRepo: instrumentRepo,
		logger:         logger,
	}
}

// GetInstruments retrieves instruments, optionally restricted to active ones
func (s *InstrumentService) GetInstruments(ctx context.Context, activeOnly bool) ([]model.Instrument, error) {
	return s.instrumentRepo.GetAll(ctx, activeOnly)
}

// GetInstrument retrieves an instrument by ID
func (s *InstrumentService) GetInstrument(ctx context.Context, id int) (*model.Instrument, error) {
	if id <= 0 {
		return nil, errors.New("invalid instrument ID")
	}
	return s.instrumentRepo.GetByID(ctx, id)
}

// GetInstrumentBySymbol retrieves an instrument by symbol
func (s *InstrumentService) GetInstrumentBySymbol(ctx context.Context, symbol string) (*model.Instrument, error) {
	if symbol == "" {
		return nil, errors.New("symbol is required")
	}
	return s.instrumentRepo.GetBySymbol(ctx, symbol)
}

// CreateInstrument creates a new instrument, rejecting duplicate symbols
func (s *InstrumentService) CreateInstrument(ctx context.Context, create *model.InstrumentCreate) (*model.Instrument, error) {
	existing, err := s.instrumentRepo.GetBySymbol(ctx, create.Symbol)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateSymbol
	}

	active := true
	if create.Active != nil {
		active = *create.Active
	}
	currency := create.Currency
	if currency == "" {
		currency = "USD"
	}

	instrument := &model.Instrument{
		Symbol:     create.Symbol,
		Name:       create.Name,
		Exchange:   create.Exchange,
		TickSize:   create.TickSize,
		Multiplier: create.Multiplier,
		Currency:   currency,
		Active:     active,
	}

	id, err := s.instrumentRepo.Create(ctx, instrument)
	if err != nil {
		return nil, fmt.Errorf("failed to create instrument: %w", err)
	}

	s.logger.Info("Instrument created",
		zap.Int("id", id),
		zap.String("symbol", instrument.Symbol))

	return s.instrumentRepo.GetByID(ctx, id)
}

// UpdateInstrument updates an instrument's reference data
func (s *InstrumentService) UpdateInstrument(ctx context.Context, id int, update *model.InstrumentCreate) (*model.Instrument, error) {
	existing, err := s.instrumentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	existing.Name = update.Name
	existing.Exchange = update.Exchange
	existing.TickSize = update.TickSize
	existing.Multiplier = update.Multiplier
	if update.Currency != "" {
		existing.Currency = update.Currency
	}
	if update.Active != nil {
		existing.Active = *update.Active
	}

	if err := s.instrumentRepo.Update(ctx, existing); err != nil {
		return nil, err
	}

	return s.instrumentRepo.GetByID(ctx, id)
}

// DeactivateInstrument soft-deletes an instrument
func (s *InstrumentService) DeactivateInstrument(ctx context.Context, id int) error {
	if id <= 0 {
		return errors.New("invalid instrument ID")
	}
	return s.instrumentRepo.Deactivate(ctx, id)
}
