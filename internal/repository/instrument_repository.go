package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yourorg/volatility-edge/internal/model"
)

// InstrumentRepository handles database operations for instruments
type InstrumentRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewInstrumentRepository creates a new instrument repository
func NewInstrumentRepository(db *sqlx.DB, logger *zap.Logger) *InstrumentRepository {
	return &InstrumentRepository{
		db:     db,
		logger: logger,
	}
}

// GetAll retrieves instruments, optionally restricted to active ones
func (r *InstrumentRepository) GetAll(ctx context.Context, activeOnly bool) ([]model.Instrument, error) {
	query := `
		SELECT id, symbol, name, exchange, tick_size, multiplier, currency, active, created_at
		FROM instruments
	`
	if activeOnly {
		query += " WHERE active = TRUE"
	}
	query += " ORDER BY symbol"

	var instruments []model.Instrument
	err := r.db.SelectContext(ctx, &instruments, query)
	if err != nil {
		r.logger.Error("Failed to get instruments", zap.Error(err))
		return nil, err
	}

	return instruments, nil
}

// GetByID retrieves an instrument by ID
func (r *InstrumentRepository) GetByID(ctx context.Context, id int) (*model.Instrument, error) {
	query := `
		SELECT id, symbol, name, exchange, tick_size, multiplier, currency, active, created_at
		FROM instruments
		WHERE id = $1
	`

	var instrument model.Instrument
	err := r.db.GetContext(ctx, &instrument, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.Error("Failed to get instrument by ID", zap.Error(err), zap.Int("id", id))
		return nil, err
	}

	return &instrument, nil
}

// GetBySymbol retrieves an instrument by symbol
func (r *InstrumentRepository) GetBySymbol(ctx context.Context, symbol string) (*model.Instrument, error) {
	query := `
		SELECT id, symbol, name, exchange, tick_size, multiplier, currency, active, created_at
		FROM instruments
		WHERE symbol = $1
	`

	var instrument model.Instrument
	err := r.db.GetContext(ctx, &instrument, query, symbol)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.Error("Failed to get instrument by symbol", zap.Error(err), zap.String("symbol", symbol))
		return nil, err
	}

	return &instrument, nil
}

// Create inserts a new instrument and returns its ID
func (r *InstrumentRepository) Create(ctx context.Context, instrument *model.Instrument) (int, error) {
	query := `
		INSERT INTO instruments (symbol, name, exchange, tick_size, multiplier, currency, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	var id int
	err := r.db.GetContext(
		ctx,
		&id,
		query,
		instrument.Symbol,
		instrument.Name,
		instrument.Exchange,
		instrument.TickSize,
		instrument.Multiplier,
		instrument.Currency,
		instrument.Active,
	)
	if err != nil {
		r.logger.Error("Failed to create instrument", zap.Error(err), zap.String("symbol", instrument.Symbol))
		return 0, err
	}

	return id, nil
}

// Update updates an instrument's reference data
func (r *InstrumentRepository) Update(ctx context.Context, instrument *model.Instrument) error {
	query := `
		UPDATE instruments
		SET name = $1, exchange = $2, tick_size = $3, multiplier = $4, currency = $5, active = $6
		WHERE id = $7
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		instrument.Name,
		instrument.Exchange,
		instrument.TickSize,
		instrument.Multiplier,
		instrument.Currency,
		instrument.Active,
		instrument.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update instrument", zap.Error(err), zap.Int("id", instrument.ID))
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

// Deactivate soft-deletes an instrument by clearing its active flag
func (r *InstrumentRepository) Deactivate(ctx context.Context, id int) error {
	query := `UPDATE instruments SET active = FALSE WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to deactivate instrument", zap.Error(err), zap.Int("id", id))
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
