package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/yourorg/volatility-edge/internal/model"
	"github.com/yourorg/volatility-edge/internal/repository"
)

// JournalService handles trading journal entries
type JournalService struct {
	journalRepo *repository.JournalRepository
	logger      *zap.Logger
}

// NewJournalService creates a new journal service
func NewJournalService(journalRepo *repository.JournalRepository, logger *zap.Logger) *JournalService {
	return &JournalService{
		journalRepo: journalRepo,
		logger:      logger,
	}
}

// CreateEntry creates a journal entry
func (s *JournalService) CreateEntry(ctx context.Context, create *model.JournalEntryCreate) (*model.JournalEntry, error) {
	id, err := s.journalRepo.Create(ctx, create)
	if err != nil {
		return nil, err
	}
	return s.journalRepo.GetByID(ctx, id)
}

// GetEntry retrieves a journal entry by ID
func (s *JournalService) GetEntry(ctx context.Context, id int) (*model.JournalEntry, error) {
	if id <= 0 {
		return nil, errors.New("invalid entry ID")
	}
	return s.journalRepo.GetByID(ctx, id)
}

// ListEntries retrieves journal entries, newest first
func (s *JournalService) ListEntries(ctx context.Context, page, limit int) ([]model.JournalEntry, int, error) {
	return s.journalRepo.List(ctx, page, limit)
}

// UpdateEntry applies a partial update and returns the updated entry
func (s *JournalService) UpdateEntry(ctx context.Context, id int, update *model.JournalEntryUpdate) (*model.JournalEntry, error) {
	if update.Title == nil && update.Content == nil && update.Tags == nil {
		return nil, errors.New("no fields to update")
	}
	if err := s.journalRepo.Update(ctx, id, update); err != nil {
		return nil, err
	}
	return s.journalRepo.GetByID(ctx, id)
}

// DeleteEntry removes a journal entry
func (s *JournalService) DeleteEntry(ctx context.Context, id int) error {
	if id <= 0 {
		return errors.New("invalid entry ID")
	}
	return s.journalRepo.Delete(ctx, id)
}
