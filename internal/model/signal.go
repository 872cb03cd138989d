package model

import (
	"time"
)

// SignalType identifies the kind of trading signal
type SignalType string

const (
	SignalEntryLong  SignalType = "entry_long"
	SignalEntryShort SignalType = "entry_short"
	SignalExitLong   SignalType = "exit_long"
	SignalExitShort  SignalType = "exit_short"
	SignalStopLong   SignalType = "stop_long"
	SignalStopShort  SignalType = "stop_short"
)

// Signal is an immutable record of one strategy decision at one bar.
// BacktestRunID is nil for live signals.
type Signal struct {
	ID              int        `json:"id" db:"id"`
	InstrumentID    int        `json:"instrument_id" db:"instrument_id"`
	BacktestRunID   *int       `json:"backtest_run_id,omitempty" db:"backtest_run_id"`
	Date            time.Time  `json:"date" db:"date"`
	SignalType      SignalType `json:"signal_type" db:"signal_type"`
	Price           float64    `json:"price" db:"price"`
	TargetContracts int        `json:"target_contracts" db:"target_contracts"`
	StopPrice       *float64   `json:"stop_price,omitempty" db:"stop_price"`
	Reason          string     `json:"reason" db:"reason"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}

// SignalWithInstrument is a signal joined with its instrument reference data
type SignalWithInstrument struct {
	Signal
	Symbol     string  `json:"symbol" db:"symbol"`
	Multiplier float64 `json:"multiplier" db:"multiplier"`
	TickSize   float64 `json:"tick_size" db:"tick_size"`
}
