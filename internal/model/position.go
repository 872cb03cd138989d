package model

import (
	"time"
)

// Position represents an open position on a given date. Quantity is signed:
// positive for long, negative for short. BacktestRunID is nil for live
// positions.
type Position struct {
	ID            int       `json:"id" db:"id"`
	InstrumentID  int       `json:"instrument_id" db:"instrument_id"`
	BacktestRunID *int      `json:"backtest_run_id,omitempty" db:"backtest_run_id"`
	Date          time.Time `json:"date" db:"date"`
	Quantity      int       `json:"quantity" db:"quantity"`
	EntryPrice    float64   `json:"entry_price" db:"entry_price"`
	CurrentPrice  *float64  `json:"current_price,omitempty" db:"current_price"`
	StopPrice     *float64  `json:"stop_price,omitempty" db:"stop_price"`
	UnrealizedPnL float64   `json:"unrealized_pnl" db:"unrealized_pnl"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// PositionWithInstrument is a position joined with its instrument reference data
type PositionWithInstrument struct {
	Position
	Symbol     string  `json:"symbol" db:"symbol"`
	Multiplier float64 `json:"multiplier" db:"multiplier"`
}
