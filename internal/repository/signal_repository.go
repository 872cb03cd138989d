package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yourorg/volatility-edge/internal/model"
)

// SignalRepository handles database operations for trading signals
type SignalRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewSignalRepository creates a new signal repository
func NewSignalRepository(db *sqlx.DB, logger *zap.Logger) *SignalRepository {
	return &SignalRepository{
		db:     db,
		logger: logger,
	}
}

// InsertSignals inserts a batch of signals inside one transaction
func (r *SignalRepository) InsertSignals(ctx context.Context, signals []model.Signal) error {
	if len(signals) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		r.logger.Error("Failed to begin transaction", zap.Error(err))
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO signals (instrument_id, backtest_run_id, date, signal_type, price, target_contracts, stop_price, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`)
	if err != nil {
		r.logger.Error("Failed to prepare statement", zap.Error(err))
		return err
	}
	defer stmt.Close()

	for _, s := range signals {
		_, err = stmt.ExecContext(
			ctx,
			s.InstrumentID,
			s.BacktestRunID,
			s.Date,
			s.SignalType,
			s.Price,
			s.TargetContracts,
			s.StopPrice,
			s.Reason,
		)
		if err != nil {
			r.logger.Error("Failed to insert signal",
				zap.Error(err),
				zap.Int("instrument_id", s.InstrumentID),
				zap.Time("date", s.Date))
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("Failed to commit transaction", zap.Error(err))
		return err
	}

	return nil
}

// GetSignalByID retrieves a signal by ID
func (r *SignalRepository) GetSignalByID(ctx context.Context, id int) (*model.SignalWithInstrument, error) {
	query := `
		SELECT s.id, s.instrument_id, s.backtest_run_id, s.date, s.signal_type,
		       s.price, s.target_contracts, s.stop_price, s.reason, s.created_at,
		       i.symbol, i.multiplier, i.tick_size
		FROM signals s
		JOIN instruments i ON i.id = s.instrument_id
		WHERE s.id = $1
	`

	var signal model.SignalWithInstrument
	err := r.db.GetContext(ctx, &signal, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.Error("Failed to get signal", zap.Error(err), zap.Int("id", id))
		return nil, err
	}

	return &signal, nil
}

// GetSignalsByDate retrieves all signals dated on the given day
func (r *SignalRepository) GetSignalsByDate(ctx context.Context, date time.Time) ([]model.SignalWithInstrument, error) {
	query := `
		SELECT s.id, s.instrument_id, s.backtest_run_id, s.date, s.signal_type,
		       s.price, s.target_contracts, s.stop_price, s.reason, s.created_at,
		       i.symbol, i.multiplier, i.tick_size
		FROM signals s
		JOIN instruments i ON i.id = s.instrument_id
		WHERE s.date = $1
		ORDER BY i.symbol
	`

	var signals []model.SignalWithInstrument
	err := r.db.SelectContext(ctx, &signals, query, date)
	if err != nil {
		r.logger.Error("Failed to get signals by date", zap.Error(err), zap.Time("date", date))
		return nil, err
	}

	return signals, nil
}

// GetRecentSignals retrieves the most recent signals, newest first
func (r *SignalRepository) GetRecentSignals(ctx context.Context, limit int) ([]model.SignalWithInstrument, error) {
	query := `
		SELECT s.id, s.instrument_id, s.backtest_run_id, s.date, s.signal_type,
		       s.price, s.target_contracts, s.stop_price, s.reason, s.created_at,
		       i.symbol, i.multiplier, i.tick_size
		FROM signals s
		JOIN instruments i ON i.id = s.instrument_id
		ORDER BY s.date DESC, s.id DESC
		LIMIT $1
	`

	var signals []model.SignalWithInstrument
	err := r.db.SelectContext(ctx, &signals, query, limit)
	if err != nil {
		r.logger.Error("Failed to get recent signals", zap.Error(err), zap.Int("limit", limit))
		return nil, err
	}

	return signals, nil
}

// GetSignalsByRun retrieves all signals produced by a backtest run
func (r *SignalRepository) GetSignalsByRun(ctx context.Context, runID int) ([]model.Signal, error) {
	query := `
		SELECT id, instrument_id, backtest_run_id, date, signal_type,
		       price, target_contracts, stop_price, reason, created_at
		FROM signals
		WHERE backtest_run_id = $1
		ORDER BY date, id
	`

	var signals []model.Signal
	err := r.db.SelectContext(ctx, &signals, query, runID)
	if err != nil {
		r.logger.Error("Failed to get signals by run", zap.Error(err), zap.Int("run_id", runID))
		return nil, err
	}

	return signals, nil
}
