package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yourorg/volatility-edge/internal/model"
)

// BacktestRepository handles database operations for backtest runs
type BacktestRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewBacktestRepository creates a new backtest repository
func NewBacktestRepository(db *sqlx.DB, logger *zap.Logger) *BacktestRepository {
	return &BacktestRepository{
		db:     db,
		logger: logger,
	}
}

// CreateRun creates a new backtest run in pending state and returns its ID
func (r *BacktestRepository) CreateRun(ctx context.Context, run *model.BacktestRun) (int, error) {
	query := `
		INSERT INTO backtest_runs (
			name, description, start_date, end_date, config, initial_capital, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	var id int
	err := r.db.QueryRowContext(
		ctx,
		query,
		run.Name,
		run.Description,
		run.StartDate,
		run.EndDate,
		run.Config,
		run.InitialCapital,
		run.Status,
	).Scan(&id)
	if err != nil {
		r.logger.Error("Failed to create backtest run", zap.Error(err), zap.String("name", run.Name))
		return 0, err
	}

	return id, nil
}

// GetRun retrieves a backtest run by ID
func (r *BacktestRepository) GetRun(ctx context.Context, id int) (*model.BacktestRun, error) {
	query := `
		SELECT id, name, description, start_date, end_date, config, initial_capital,
		       final_equity, total_return, cagr, sharpe_ratio, sortino_ratio,
		       max_drawdown, max_drawdown_duration, total_trades, win_rate,
		       profit_factor, status, error_message, created_at, completed_at
		FROM backtest_runs
		WHERE id = $1
	`

	var run model.BacktestRun
	err := r.db.GetContext(ctx, &run, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.Error("Failed to get backtest run", zap.Error(err), zap.Int("id", id))
		return nil, err
	}

	return &run, nil
}

// ListRuns retrieves backtest runs ordered by creation time, newest first
func (r *BacktestRepository) ListRuns(ctx context.Context, page, limit int) ([]model.BacktestRun, int, error) {
	offset := (page - 1) * limit

	countQuery := `SELECT COUNT(*) FROM backtest_runs`

	var total int
	err := r.db.GetContext(ctx, &total, countQuery)
	if err != nil {
		r.logger.Error("Failed to count backtest runs", zap.Error(err))
		return nil, 0, err
	}

	query := `
		SELECT id, name, description, start_date, end_date, config, initial_capital,
		       final_equity, total_return, cagr, sharpe_ratio, sortino_ratio,
		       max_drawdown, max_drawdown_duration, total_trades, win_rate,
		       profit_factor, status, error_message, created_at, completed_at
		FROM backtest_runs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	var runs []model.BacktestRun
	err = r.db.SelectContext(ctx, &runs, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list backtest runs",
			zap.Error(err),
			zap.Int("page", page),
			zap.Int("limit", limit))
		return nil, 0, err
	}

	return runs, total, nil
}

// GetLatestCompletedRun retrieves the most recently completed run, or nil
// when none has completed yet
func (r *BacktestRepository) GetLatestCompletedRun(ctx context.Context) (*model.BacktestRun, error) {
	query := `
		SELECT id, name, description, start_date, end_date, config, initial_capital,
		       final_equity, total_return, cagr, sharpe_ratio, sortino_ratio,
		       max_drawdown, max_drawdown_duration, total_trades, win_rate,
		       profit_factor, status, error_message, created_at, completed_at
		FROM backtest_runs
		WHERE status = $1
		ORDER BY completed_at DESC
		LIMIT 1
	`

	var run model.BacktestRun
	err := r.db.GetContext(ctx, &run, query, model.BacktestStatusCompleted)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.Error("Failed to get latest completed run", zap.Error(err))
		return nil, err
	}

	return &run, nil
}

// UpdateStatus updates a run's lifecycle status
func (r *BacktestRepository) UpdateStatus(ctx context.Context, id int, status model.BacktestStatus) error {
	query := `UPDATE backtest_runs SET status = $1 WHERE id = $2`

	_, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		r.logger.Error("Failed to update backtest status",
			zap.Error(err),
			zap.Int("id", id),
			zap.String("status", string(status)))
		return err
	}

	return nil
}

// CompleteRun stores the final metrics and marks the run completed
func (r *BacktestRepository) CompleteRun(ctx context.Context, run *model.BacktestRun) error {
	query := `
		UPDATE backtest_runs
		SET status = $1, final_equity = $2, total_return = $3, cagr = $4,
		    sharpe_ratio = $5, sortino_ratio = $6, max_drawdown = $7,
		    max_drawdown_duration = $8, total_trades = $9, win_rate = $10,
		    profit_factor = $11, completed_at = $12
		WHERE id = $13
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		model.BacktestStatusCompleted,
		run.FinalEquity,
		run.TotalReturn,
		run.CAGR,
		run.SharpeRatio,
		run.SortinoRatio,
		run.MaxDrawdown,
		run.MaxDrawdownDuration,
		run.TotalTrades,
		run.WinRate,
		run.ProfitFactor,
		time.Now(),
		run.ID,
	)
	if err != nil {
		r.logger.Error("Failed to complete backtest run", zap.Error(err), zap.Int("id", run.ID))
		return err
	}

	return nil
}

// FailRun marks the run failed with an error message. Artifacts recorded
// before the failure stay in place.
func (r *BacktestRepository) FailRun(ctx context.Context, id int, message string) error {
	query := `
		UPDATE backtest_runs
		SET status = $1, error_message = $2, completed_at = $3
		WHERE id = $4
	`

	_, err := r.db.ExecContext(ctx, query, model.BacktestStatusFailed, message, time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to mark backtest run failed", zap.Error(err), zap.Int("id", id))
		return err
	}

	return nil
}

// DeleteRun deletes a run and its dependent artifacts
func (r *BacktestRepository) DeleteRun(ctx context.Context, id int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		r.logger.Error("Failed to begin transaction", zap.Error(err))
		return err
	}
	defer tx.Rollback()

	dependents := []string{
		`DELETE FROM fills WHERE backtest_run_id = $1`,
		`DELETE FROM orders WHERE backtest_run_id = $1`,
		`DELETE FROM signals WHERE backtest_run_id = $1`,
		`DELETE FROM positions WHERE backtest_run_id = $1`,
		`DELETE FROM portfolio_snapshots WHERE backtest_run_id = $1`,
	}
	for _, q := range dependents {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			r.logger.Error("Failed to delete backtest artifacts", zap.Error(err), zap.Int("id", id))
			return err
		}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM backtest_runs WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete backtest run", zap.Error(err), zap.Int("id", id))
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("Failed to commit transaction", zap.Error(err))
		return err
	}

	return nil
}
