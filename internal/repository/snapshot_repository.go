package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yourorg/volatility-edge/internal/model"
)

// SnapshotRepository handles database operations for portfolio snapshots
type SnapshotRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *sqlx.DB, logger *zap.Logger) *SnapshotRepository {
	return &SnapshotRepository{
		db:     db,
		logger: logger,
	}
}

// InsertSnapshots inserts a batch of snapshots inside one transaction
func (r *SnapshotRepository) InsertSnapshots(ctx context.Context, snapshots []model.PortfolioSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		r.logger.Error("Failed to begin transaction", zap.Error(err))
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO portfolio_snapshots (
			backtest_run_id, date, equity, cash, unrealized_pnl, realized_pnl,
			daily_pnl, drawdown, total_exposure, num_positions
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`)
	if err != nil {
		r.logger.Error("Failed to prepare statement", zap.Error(err))
		return err
	}
	defer stmt.Close()

	for _, s := range snapshots {
		_, err = stmt.ExecContext(
			ctx,
			s.BacktestRunID,
			s.Date,
			s.Equity,
			s.Cash,
			s.UnrealizedPnL,
			s.RealizedPnL,
			s.DailyPnL,
			s.Drawdown,
			s.TotalExposure,
			s.NumPositions,
		)
		if err != nil {
			r.logger.Error("Failed to insert snapshot",
				zap.Error(err),
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

// GetSnapshotsByRun retrieves the full snapshot series of a backtest run
func (r *SnapshotRepository) GetSnapshotsByRun(ctx context.Context, runID int) ([]model.PortfolioSnapshot, error) {
	query := `
		SELECT id, backtest_run_id, date, equity, cash, unrealized_pnl, realized_pnl,
		       daily_pnl, drawdown, total_exposure, num_positions, created_at
		FROM portfolio_snapshots
		WHERE backtest_run_id = $1
		ORDER BY date
	`

	var snapshots []model.PortfolioSnapshot
	err := r.db.SelectContext(ctx, &snapshots, query, runID)
	if err != nil {
		r.logger.Error("Failed to get snapshots by run", zap.Error(err), zap.Int("run_id", runID))
		return nil, err
	}

	return snapshots, nil
}

// GetLatestSnapshot retrieves the most recent snapshot of a run, or nil when
// the run has none
func (r *SnapshotRepository) GetLatestSnapshot(ctx context.Context, runID int) (*model.PortfolioSnapshot, error) {
	query := `
		SELECT id, backtest_run_id, date, equity, cash, unrealized_pnl, realized_pnl,
		       daily_pnl, drawdown, total_exposure, num_positions, created_at
		FROM portfolio_snapshots
		WHERE backtest_run_id = $1
		ORDER BY date DESC
		LIMIT 1
	`

	var snapshot model.PortfolioSnapshot
	err := r.db.GetContext(ctx, &snapshot, query, runID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.Error("Failed to get latest snapshot", zap.Error(err), zap.Int("run_id", runID))
		return nil, err
	}

	return &snapshot, nil
}

// GetEquityCurve retrieves the trailing snapshots of a run, oldest first. A
// non-positive days value returns the full curve.
func (r *SnapshotRepository) GetEquityCurve(ctx context.Context, runID int, days int) ([]model.PortfolioSnapshot, error) {
	query := `
		SELECT id, backtest_run_id, date, equity, cash, unrealized_pnl, realized_pnl,
		       daily_pnl, drawdown, total_exposure, num_positions, created_at
		FROM portfolio_snapshots
		WHERE backtest_run_id = $1
	`
	args := []interface{}{runID}

	if days > 0 {
		query += fmt.Sprintf(" AND date >= (SELECT MAX(date) FROM portfolio_snapshots WHERE backtest_run_id = $1) - $%d::int", 2)
		args = append(args, days)
	}

	query += " ORDER BY date"

	var snapshots []model.PortfolioSnapshot
	err := r.db.SelectContext(ctx, &snapshots, query, args...)
	if err != nil {
		r.logger.Error("Failed to get equity curve",
			zap.Error(err),
			zap.Int("run_id", runID),
			zap.Int("days", days))
		return nil, err
	}

	return snapshots, nil
}

// GetPeakEquity returns the highest equity a run has reached
func (r *SnapshotRepository) GetPeakEquity(ctx context.Context, runID int) (float64, error) {
	query := `
		SELECT COALESCE(MAX(equity), 0)
		FROM portfolio_snapshots
		WHERE backtest_run_id = $1
	`

	var peak float64
	err := r.db.GetContext(ctx, &peak, query, runID)
	if err != nil {
		r.logger.Error("Failed to get peak equity", zap.Error(err), zap.Int("run_id", runID))
		return 0, err
	}

	return peak, nil
}
