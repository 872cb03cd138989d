package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yourorg/volatility-edge/internal/model"
)

// OrderRepository handles database operations for orders and their fills
type OrderRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *sqlx.DB, logger *zap.Logger) *OrderRepository {
	return &OrderRepository{
		db:     db,
		logger: logger,
	}
}

// OrderWithFill pairs an order with its execution record
type OrderWithFill struct {
	Order model.Order
	Fill  model.Fill
}

// InsertOrdersWithFills inserts order/fill pairs inside one transaction,
// linking each fill to its freshly assigned order ID
func (r *OrderRepository) InsertOrdersWithFills(ctx context.Context, pairs []OrderWithFill) error {
	if len(pairs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		r.logger.Error("Failed to begin transaction", zap.Error(err))
		return err
	}
	defer tx.Rollback()

	orderStmt, err := tx.PreparexContext(ctx, `
		INSERT INTO orders (instrument_id, backtest_run_id, order_date, side, quantity, order_type, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`)
	if err != nil {
		r.logger.Error("Failed to prepare order statement", zap.Error(err))
		return err
	}
	defer orderStmt.Close()

	fillStmt, err := tx.PreparexContext(ctx, `
		INSERT INTO fills (order_id, backtest_run_id, fill_date, fill_price, quantity, commission, slippage_ticks)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`)
	if err != nil {
		r.logger.Error("Failed to prepare fill statement", zap.Error(err))
		return err
	}
	defer fillStmt.Close()

	for _, p := range pairs {
		var orderID int
		err = orderStmt.QueryRowContext(
			ctx,
			p.Order.InstrumentID,
			p.Order.BacktestRunID,
			p.Order.OrderDate,
			p.Order.Side,
			p.Order.Quantity,
			p.Order.OrderType,
			p.Order.Status,
		).Scan(&orderID)
		if err != nil {
			r.logger.Error("Failed to insert order",
				zap.Error(err),
				zap.Int("instrument_id", p.Order.InstrumentID))
			return err
		}

		_, err = fillStmt.ExecContext(
			ctx,
			orderID,
			p.Fill.BacktestRunID,
			p.Fill.FillDate,
			p.Fill.FillPrice,
			p.Fill.Quantity,
			p.Fill.Commission,
			p.Fill.SlippageTicks,
		)
		if err != nil {
			r.logger.Error("Failed to insert fill",
				zap.Error(err),
				zap.Int("order_id", orderID))
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("Failed to commit transaction", zap.Error(err))
		return err
	}

	return nil
}

// GetOrdersByRun retrieves all orders produced by a backtest run
func (r *OrderRepository) GetOrdersByRun(ctx context.Context, runID int) ([]model.Order, error) {
	query := `
		SELECT id, instrument_id, backtest_run_id, order_date, side, quantity, order_type, status, created_at
		FROM orders
		WHERE backtest_run_id = $1
		ORDER BY order_date, id
	`

	var orders []model.Order
	err := r.db.SelectContext(ctx, &orders, query, runID)
	if err != nil {
		r.logger.Error("Failed to get orders by run", zap.Error(err), zap.Int("run_id", runID))
		return nil, err
	}

	return orders, nil
}

// GetFillsByRun retrieves all fills produced by a backtest run
func (r *OrderRepository) GetFillsByRun(ctx context.Context, runID int) ([]model.Fill, error) {
	query := `
		SELECT id, order_id, backtest_run_id, fill_date, fill_price, quantity, commission, slippage_ticks, created_at
		FROM fills
		WHERE backtest_run_id = $1
		ORDER BY fill_date, id
	`

	var fills []model.Fill
	err := r.db.SelectContext(ctx, &fills, query, runID)
	if err != nil {
		r.logger.Error("Failed to get fills by run", zap.Error(err), zap.Int("run_id", runID))
		return nil, err
	}

	return fills, nil
}
