package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yourorg/volatility-edge/internal/model"
)

// PositionRepository handles database operations for open positions
type PositionRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewPositionRepository creates a new position repository
func NewPositionRepository(db *sqlx.DB, logger *zap.Logger) *PositionRepository {
	return &PositionRepository{
		db:     db,
		logger: logger,
	}
}

// ReplacePositions atomically replaces the stored open positions of a run
func (r *PositionRepository) ReplacePositions(ctx context.Context, runID int, positions []model.Position) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		r.logger.Error("Failed to begin transaction", zap.Error(err))
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM positions WHERE backtest_run_id = $1`, runID); err != nil {
		r.logger.Error("Failed to clear positions", zap.Error(err), zap.Int("run_id", runID))
		return err
	}

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO positions (
			instrument_id, backtest_run_id, date, quantity, entry_price,
			current_price, stop_price, unrealized_pnl
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`)
	if err != nil {
		r.logger.Error("Failed to prepare statement", zap.Error(err))
		return err
	}
	defer stmt.Close()

	for _, p := range positions {
		_, err = stmt.ExecContext(
			ctx,
			p.InstrumentID,
			runID,
			p.Date,
			p.Quantity,
			p.EntryPrice,
			p.CurrentPrice,
			p.StopPrice,
			p.UnrealizedPnL,
		)
		if err != nil {
			r.logger.Error("Failed to insert position",
				zap.Error(err),
				zap.Int("instrument_id", p.InstrumentID))
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("Failed to commit transaction", zap.Error(err))
		return err
	}

	return nil
}

// GetPositionsByRun retrieves the open positions of a run with instrument
// reference data, symbol-ordered
func (r *PositionRepository) GetPositionsByRun(ctx context.Context, runID int) ([]model.PositionWithInstrument, error) {
	query := `
		SELECT p.id, p.instrument_id, p.backtest_run_id, p.date, p.quantity,
		       p.entry_price, p.current_price, p.stop_price, p.unrealized_pnl, p.created_at,
		       i.symbol, i.multiplier
		FROM positions p
		JOIN instruments i ON i.id = p.instrument_id
		WHERE p.backtest_run_id = $1
		ORDER BY i.symbol
	`

	var positions []model.PositionWithInstrument
	err := r.db.SelectContext(ctx, &positions, query, runID)
	if err != nil {
		r.logger.Error("Failed to get positions by run", zap.Error(err), zap.Int("run_id", runID))
		return nil, err
	}

	return positions, nil
}
