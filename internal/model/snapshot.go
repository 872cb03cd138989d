package model

import (
	"time"
)

// PortfolioSnapshot is one immutable end-of-day portfolio record. The
// append-only sequence of snapshots forms the equity curve.
type PortfolioSnapshot struct {
	ID            int       `json:"id" db:"id"`
	BacktestRunID *int      `json:"backtest_run_id,omitempty" db:"backtest_run_id"`
	Date          time.Time `json:"date" db:"date"`
	Equity        float64   `json:"equity" db:"equity"`
	Cash          float64   `json:"cash" db:"cash"`
	UnrealizedPnL float64   `json:"unrealized_pnl" db:"unrealized_pnl"`
	RealizedPnL   float64   `json:"realized_pnl" db:"realized_pnl"`
	DailyPnL      float64   `json:"daily_pnl" db:"daily_pnl"`
	Drawdown      float64   `json:"drawdown" db:"drawdown"`
	TotalExposure float64   `json:"total_exposure" db:"total_exposure"`
	NumPositions  int       `json:"num_positions" db:"num_positions"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
