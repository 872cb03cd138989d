package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// BacktestStatus identifies the lifecycle state of a backtest run
type BacktestStatus string

const (
	BacktestStatusPending   BacktestStatus = "pending"
	BacktestStatusRunning   BacktestStatus = "running"
	BacktestStatusCompleted BacktestStatus = "completed"
	BacktestStatusFailed    BacktestStatus = "failed"
)

// Terminal reports whether the run has reached an end state
func (s BacktestStatus) Terminal() bool {
	return s == BacktestStatusCompleted || s == BacktestStatusFailed
}

// BacktestConfig holds every parameter of a backtest run. All fields have
// defaults (see DefaultBacktestConfig); pointer fields are limits that are
// disabled when nil.
type BacktestConfig struct {
	Instruments    []string  `json:"instruments"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	InitialCapital float64   `json:"initial_capital"`

	// Strategy parameters
	ATRPeriod       int     `json:"atr_period"`
	MAPeriod        int     `json:"ma_period"`
	MASlopePeriod   int     `json:"ma_slope_period"`
	BreakoutPeriod  int     `json:"breakout_period"`
	ExitPeriod      int     `json:"exit_period"`
	StopATRMultiple float64 `json:"stop_atr_multiple"`
	CooldownDays    int     `json:"cooldown_days"`

	// Risk parameters
	RiskPerTrade              float64  `json:"risk_per_trade"`
	MaxContractsPerInstrument *int     `json:"max_contracts_per_instrument,omitempty"`
	MaxGrossExposure          *float64 `json:"max_gross_exposure,omitempty"`
	MaxCorrelatedExposure     *float64 `json:"max_correlated_exposure,omitempty"`

	// Execution parameters
	SlippageTicks         float64 `json:"slippage_ticks"`
	CommissionPerContract float64 `json:"commission_per_contract"`

	// Risk guardrails
	DrawdownWarningPct float64 `json:"drawdown_warning_pct"`
	DrawdownHaltPct    float64 `json:"drawdown_halt_pct"`
	DailyLossLimitPct  float64 `json:"daily_loss_limit_pct"`
}

// DefaultBacktestConfig returns a config populated with the standard strategy
// and risk defaults. Instruments and the date range must still be set.
func DefaultBacktestConfig() BacktestConfig {
	return BacktestConfig{
		InitialCapital:        100000.0,
		ATRPeriod:             20,
		MAPeriod:              50,
		MASlopePeriod:         10,
		BreakoutPeriod:        20,
		ExitPeriod:            10,
		StopATRMultiple:       2.0,
		CooldownDays:          3,
		RiskPerTrade:          0.005,
		SlippageTicks:         1.0,
		CommissionPerContract: 2.50,
		DrawdownWarningPct:    0.10,
		DrawdownHaltPct:       0.15,
		DailyLossLimitPct:     0.02,
	}
}

// Value implements driver.Valuer so the config can be stored as JSONB
func (c BacktestConfig) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// Scan implements sql.Scanner for reading the config back from JSONB
func (c *BacktestConfig) Scan(value interface{}) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(b, c)
}

// BacktestRun is the persistent record of one backtest, including its final
// metrics once completed. Metric fields stay nil until the run finishes.
type BacktestRun struct {
	ID                  int            `json:"id" db:"id"`
	Name                string         `json:"name" db:"name"`
	Description         string         `json:"description" db:"description"`
	StartDate           time.Time      `json:"start_date" db:"start_date"`
	EndDate             time.Time      `json:"end_date" db:"end_date"`
	Config              BacktestConfig `json:"config" db:"config"`
	InitialCapital      float64        `json:"initial_capital" db:"initial_capital"`
	FinalEquity         *float64       `json:"final_equity,omitempty" db:"final_equity"`
	TotalReturn         *float64       `json:"total_return,omitempty" db:"total_return"`
	CAGR                *float64       `json:"cagr,omitempty" db:"cagr"`
	SharpeRatio         *float64       `json:"sharpe_ratio,omitempty" db:"sharpe_ratio"`
	SortinoRatio        *float64       `json:"sortino_ratio,omitempty" db:"sortino_ratio"`
	MaxDrawdown         *float64       `json:"max_drawdown,omitempty" db:"max_drawdown"`
	MaxDrawdownDuration *int           `json:"max_drawdown_duration,omitempty" db:"max_drawdown_duration"`
	TotalTrades         *int           `json:"total_trades,omitempty" db:"total_trades"`
	WinRate             *float64       `json:"win_rate,omitempty" db:"win_rate"`
	ProfitFactor        *float64       `json:"profit_factor,omitempty" db:"profit_factor"`
	Status              BacktestStatus `json:"status" db:"status"`
	ErrorMessage        *string        `json:"error_message,omitempty" db:"error_message"`
	CreatedAt           time.Time      `json:"created_at" db:"created_at"`
	CompletedAt         *time.Time     `json:"completed_at,omitempty" db:"completed_at"`
}

// BacktestCreateRequest is the payload for launching a backtest
type BacktestCreateRequest struct {
	Name        string         `json:"name" binding:"required"`
	Description string         `json:"description"`
	Config      BacktestConfig `json:"config" binding:"required"`
}

// BacktestResults aggregates a completed run with its full output series
type BacktestResults struct {
	Run       BacktestRun         `json:"backtest"`
	Snapshots []PortfolioSnapshot `json:"portfolio_snapshots"`
	Signals   []Signal            `json:"signals"`
	Metrics   BacktestMetrics     `json:"metrics"`
}

// BacktestMetrics is the flat summary view of a run's performance
type BacktestMetrics struct {
	TotalReturn         *float64 `json:"total_return"`
	CAGR                *float64 `json:"cagr"`
	SharpeRatio         *float64 `json:"sharpe_ratio"`
	SortinoRatio        *float64 `json:"sortino_ratio"`
	MaxDrawdown         *float64 `json:"max_drawdown"`
	MaxDrawdownDuration *int     `json:"max_drawdown_duration_days"`
	WinRate             *float64 `json:"win_rate"`
	ProfitFactor        *float64 `json:"profit_factor"`
	TotalTrades         *int     `json:"total_trades"`
	InitialCapital      float64  `json:"initial_capital"`
	FinalEquity         *float64 `json:"final_equity"`
}

// RiskStatus is the portfolio risk console view
type RiskStatus struct {
	CurrentEquity    float64 `json:"current_equity"`
	PeakEquity       float64 `json:"peak_equity"`
	CurrentDrawdown  float64 `json:"current_drawdown"`
	DailyPnL         float64 `json:"daily_pnl"`
	DailyPnLPct      float64 `json:"daily_pnl_pct"`
	RiskMode         string  `json:"risk_mode"`
	CanOpenNewTrades bool    `json:"can_open_new_trades"`
	ActivePositions  int     `json:"active_positions"`
	TotalExposure    float64 `json:"total_exposure"`
	Message          string  `json:"message"`
}
