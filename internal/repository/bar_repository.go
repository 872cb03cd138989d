package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yourorg/volatility-edge/internal/model"
)

// BarRepository handles database operations for daily OHLCV bars
type BarRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewBarRepository creates a new bar repository
func NewBarRepository(db *sqlx.DB, logger *zap.Logger) *BarRepository {
	return &BarRepository{
		db:     db,
		logger: logger,
	}
}

// GetBars retrieves bars for an instrument within an optional date range
func (r *BarRepository) GetBars(
	ctx context.Context,
	instrumentID int,
	startDate *time.Time,
	endDate *time.Time,
	limit int,
) ([]model.Bar, error) {
	query := `
		SELECT id, instrument_id, date, open, high, low, close, volume, created_at
		FROM bars
		WHERE instrument_id = $1
	`

	args := []interface{}{instrumentID}
	argCount := 2

	if startDate != nil {
		query += fmt.Sprintf(" AND date >= $%d", argCount)
		args = append(args, *startDate)
		argCount++
	}

	if endDate != nil {
		query += fmt.Sprintf(" AND date <= $%d", argCount)
		args = append(args, *endDate)
		argCount++
	}

	query += " ORDER BY date"

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argCount)
		args = append(args, limit)
	}

	var bars []model.Bar
	err := r.db.SelectContext(ctx, &bars, query, args...)
	if err != nil {
		r.logger.Error("Failed to get bars",
			zap.Error(err),
			zap.Int("instrument_id", instrumentID))
		return nil, err
	}

	return bars, nil
}

// UpsertBars inserts a batch of bars inside one transaction, updating rows
// that already exist for the instrument and date
func (r *BarRepository) UpsertBars(ctx context.Context, instrumentID int, bars []model.BarCreate) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		r.logger.Error("Failed to begin transaction", zap.Error(err))
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO bars (instrument_id, date, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (instrument_id, date)
		DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume
	`)
	if err != nil {
		r.logger.Error("Failed to prepare statement", zap.Error(err))
		return 0, err
	}
	defer stmt.Close()

	for _, bar := range bars {
		_, err = stmt.ExecContext(
			ctx,
			instrumentID,
			bar.Date,
			bar.Open,
			bar.High,
			bar.Low,
			bar.Close,
			bar.Volume,
		)
		if err != nil {
			r.logger.Error("Failed to upsert bar",
				zap.Error(err),
				zap.Int("instrument_id", instrumentID),
				zap.Time("date", bar.Date))
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("Failed to commit transaction", zap.Error(err))
		return 0, err
	}

	return len(bars), nil
}

// GetDateRange returns the span of available bar data for an instrument, or
// nil when the instrument has no bars
func (r *BarRepository) GetDateRange(ctx context.Context, instrumentID int) (*model.DateRange, error) {
	query := `
		SELECT MIN(date) AS start, MAX(date) AS end
		FROM bars
		WHERE instrument_id = $1
		HAVING COUNT(*) > 0
	`

	var dr model.DateRange
	err := r.db.GetContext(ctx, &dr, query, instrumentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.Error("Failed to get bar date range",
			zap.Error(err),
			zap.Int("instrument_id", instrumentID))
		return nil, err
	}

	return &dr, nil
}

// CountBars returns the number of bars stored for an instrument
func (r *BarRepository) CountBars(ctx context.Context, instrumentID int) (int, error) {
	query := `SELECT COUNT(*) FROM bars WHERE instrument_id = $1`

	var count int
	err := r.db.GetContext(ctx, &count, query, instrumentID)
	if err != nil {
		r.logger.Error("Failed to count bars",
			zap.Error(err),
			zap.Int("instrument_id", instrumentID))
		return 0, err
	}

	return count, nil
}
