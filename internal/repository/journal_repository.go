package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yourorg/volatility-edge/internal/model"
)

// JournalRepository handles database operations for trading journal entries
type JournalRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewJournalRepository creates a new journal repository
func NewJournalRepository(db *sqlx.DB, logger *zap.Logger) *JournalRepository {
	return &JournalRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new journal entry and returns its ID
func (r *JournalRepository) Create(ctx context.Context, entry *model.JournalEntryCreate) (int, error) {
	query := `
		INSERT INTO journal_entries (date, title, content, tags)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	var id int
	err := r.db.QueryRowContext(ctx, query, entry.Date, entry.Title, entry.Content, entry.Tags).Scan(&id)
	if err != nil {
		r.logger.Error("Failed to create journal entry", zap.Error(err), zap.String("title", entry.Title))
		return 0, err
	}

	return id, nil
}

// GetByID retrieves a journal entry by ID
func (r *JournalRepository) GetByID(ctx context.Context, id int) (*model.JournalEntry, error) {
	query := `
		SELECT id, date, title, content, tags, created_at, updated_at
		FROM journal_entries
		WHERE id = $1
	`

	var entry model.JournalEntry
	err := r.db.GetContext(ctx, &entry, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.Error("Failed to get journal entry", zap.Error(err), zap.Int("id", id))
		return nil, err
	}

	return &entry, nil
}

// List retrieves journal entries, newest first
func (r *JournalRepository) List(ctx context.Context, page, limit int) ([]model.JournalEntry, int, error) {
	offset := (page - 1) * limit

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM journal_entries`); err != nil {
		r.logger.Error("Failed to count journal entries", zap.Error(err))
		return nil, 0, err
	}

	query := `
		SELECT id, date, title, content, tags, created_at, updated_at
		FROM journal_entries
		ORDER BY date DESC, id DESC
		LIMIT $1 OFFSET $2
	`

	var entries []model.JournalEntry
	err := r.db.SelectContext(ctx, &entries, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list journal entries", zap.Error(err))
		return nil, 0, err
	}

	return entries, total, nil
}

// Update applies the non-nil fields of an update to an entry
func (r *JournalRepository) Update(ctx context.Context, id int, update *model.JournalEntryUpdate) error {
	query := `
		UPDATE journal_entries
		SET title = COALESCE($1, title),
		    content = COALESCE($2, content),
		    tags = COALESCE($3, tags),
		    updated_at = $4
		WHERE id = $5
	`

	result, err := r.db.ExecContext(ctx, query, update.Title, update.Content, update.Tags, time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to update journal entry", zap.Error(err), zap.Int("id", id))
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// Delete removes a journal entry
func (r *JournalRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM journal_entries WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete journal entry", zap.Error(err), zap.Int("id", id))
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	return nil
}
