package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yourorg/volatility-edge/internal/model"
)

// FeatureRepository handles database operations for computed features
type FeatureRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewFeatureRepository creates a new feature repository
func NewFeatureRepository(db *sqlx.DB, logger *zap.Logger) *FeatureRepository {
	return &FeatureRepository{
		db:     db,
		logger: logger,
	}
}

// GetFeatures retrieves feature rows for an instrument within an optional
// date range
func (r *FeatureRepository) GetFeatures(
	ctx context.Context,
	instrumentID int,
	startDate *time.Time,
	endDate *time.Time,
) ([]model.Feature, error) {
	query := `
		SELECT id, instrument_id, date, atr, ma, ma_slope,
		       hh_long, ll_long, hh_short, ll_short, created_at
		FROM features
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
	}

	query += " ORDER BY date"

	var features []model.Feature
	err := r.db.SelectContext(ctx, &features, query, args...)
	if err != nil {
		r.logger.Error("Failed to get features",
			zap.Error(err),
			zap.Int("instrument_id", instrumentID))
		return nil, err
	}

	return features, nil
}

// ReplaceFeatures atomically replaces the full feature set of an instrument.
// Delete and insert run in one transaction so readers never observe a partial
// recompute.
func (r *FeatureRepository) ReplaceFeatures(ctx context.Context, instrumentID int, features []model.Feature) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		r.logger.Error("Failed to begin transaction", zap.Error(err))
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM features WHERE instrument_id = $1`, instrumentID); err != nil {
		r.logger.Error("Failed to clear features",
			zap.Error(err),
			zap.Int("instrument_id", instrumentID))
		return 0, err
	}

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO features (instrument_id, date, atr, ma, ma_slope, hh_long, ll_long, hh_short, ll_short)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`)
	if err != nil {
		r.logger.Error("Failed to prepare statement", zap.Error(err))
		return 0, err
	}
	defer stmt.Close()

	for _, f := range features {
		_, err = stmt.ExecContext(
			ctx,
			instrumentID,
			f.Date,
			f.ATR,
			f.MA,
			f.MASlope,
			f.HHLong,
			f.LLLong,
			f.HHShort,
			f.LLShort,
		)
		if err != nil {
			r.logger.Error("Failed to insert feature",
				zap.Error(err),
				zap.Int("instrument_id", instrumentID),
				zap.Time("date", f.Date))
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("Failed to commit transaction", zap.Error(err))
		return 0, err
	}

	return len(features), nil
}

// GetFeatureBars retrieves the joined bar and feature rows the backtest
// engine consumes, date-ordered
func (r *FeatureRepository) GetFeatureBars(
	ctx context.Context,
	instrumentID int,
	startDate time.Time,
	endDate time.Time,
) ([]model.FeatureBar, error) {
	query := `
		SELECT b.date, b.open, b.high, b.low, b.close, b.volume,
		       f.atr, f.ma, f.ma_slope, f.hh_long, f.ll_long, f.hh_short, f.ll_short
		FROM bars b
		JOIN features f ON f.instrument_id = b.instrument_id AND f.date = b.date
		WHERE b.instrument_id = $1 AND b.date >= $2 AND b.date <= $3
		ORDER BY b.date
	`

	var rows []model.FeatureBar
	err := r.db.SelectContext(ctx, &rows, query, instrumentID, startDate, endDate)
	if err != nil {
		r.logger.Error("Failed to get feature bars",
			zap.Error(err),
			zap.Int("instrument_id", instrumentID))
		return nil, err
	}

	return rows, nil
}
