package engine

import (
	"fmt"
	"math"
)

// RiskMode is the portfolio-level trading mode derived from drawdown and
// daily loss
type RiskMode string

const (
	RiskModeNormal  RiskMode = "NORMAL"
	RiskModeWarning RiskMode = "WARNING"
	RiskModeHalted  RiskMode = "HALTED"
)

// RiskConfig holds the portfolio risk parameters. Pointer limits are
// disabled when nil.
type RiskConfig struct {
	RiskPerTrade              float64
	MaxContractsPerInstrument *int
	MaxGrossExposure          *float64
	MaxCorrelatedExposure     *float64
	DrawdownWarningPct        float64
	DrawdownHaltPct           float64
	DailyLossLimitPct         float64
}

// DefaultRiskConfig returns the standard risk parameters
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		RiskPerTrade:       0.005,
		DrawdownWarningPct: 0.10,
		DrawdownHaltPct:    0.15,
		DailyLossLimitPct:  0.02,
	}
}

// RiskState is the evaluated portfolio risk posture for one point in time
type RiskState struct {
	Mode           RiskMode
	Drawdown       float64
	DailyLossPct   float64
	SizeMultiplier float64
	TradingEnabled bool
	Reason         string
}

// PositionValue is the notional exposure of one open position, used for
// portfolio exposure checks
type PositionValue struct {
	Symbol string
	Value  float64
}

// TradeCheck is the outcome of validating a proposed trade against the
// portfolio risk state
type TradeCheck struct {
	Approved  bool
	Contracts int
	Reason    string
}

// correlatedGroups lists symbols whose exposure is aggregated under the
// correlated exposure limit
var correlatedGroups = [][]string{
	{"ES", "NQ"},
}

// RiskManager evaluates portfolio risk state, sizes positions and enforces
// exposure limits. It holds no mutable state; every method is a pure function
// of its arguments.
type RiskManager struct {
	cfg RiskConfig
}

// NewRiskManager creates a RiskManager with the given parameters
func NewRiskManager(cfg RiskConfig) *RiskManager {
	return &RiskManager{cfg: cfg}
}

// Drawdown computes the fractional decline from peak equity. Zero when the
// peak is not positive.
func Drawdown(equity, peakEquity float64) float64 {
	if peakEquity <= 0 {
		return 0
	}
	return (peakEquity - equity) / peakEquity
}

// CalculateRiskState derives the trading mode from current drawdown and the
// day's realized loss. The daily loss limit dominates, then the drawdown halt
// threshold, then the warning threshold.
func (r *RiskManager) CalculateRiskState(equity, peakEquity, dailyPnL, startOfDayEquity float64) RiskState {
	dd := Drawdown(equity, peakEquity)

	dailyLossPct := 0.0
	if startOfDayEquity > 0 {
		dailyLossPct = dailyPnL / startOfDayEquity
	}

	switch {
	case dailyLossPct < -r.cfg.DailyLossLimitPct:
		return RiskState{
			Mode:           RiskModeHalted,
			Drawdown:       dd,
			DailyLossPct:   dailyLossPct,
			SizeMultiplier: 0.0,
			TradingEnabled: false,
			Reason:         fmt.Sprintf("Daily loss %.2f%% exceeds limit", dailyLossPct*100),
		}
	case dd >= r.cfg.DrawdownHaltPct:
		return RiskState{
			Mode:           RiskModeHalted,
			Drawdown:       dd,
			DailyLossPct:   dailyLossPct,
			SizeMultiplier: 0.0,
			TradingEnabled: false,
			Reason:         fmt.Sprintf("Drawdown %.2f%% exceeds halt threshold", dd*100),
		}
	case dd >= r.cfg.DrawdownWarningPct:
		return RiskState{
			Mode:           RiskModeWarning,
			Drawdown:       dd,
			DailyLossPct:   dailyLossPct,
			SizeMultiplier: 0.5,
			TradingEnabled: true,
			Reason:         fmt.Sprintf("Drawdown %.2f%% exceeds warning threshold", dd*100),
		}
	default:
		return RiskState{
			Mode:           RiskModeNormal,
			Drawdown:       dd,
			DailyLossPct:   dailyLossPct,
			SizeMultiplier: 1.0,
			TradingEnabled: true,
			Reason:         "Normal operation",
		}
	}
}

// CalculatePositionSize computes the number of contracts for an entry so that
// the loss at the stop approximates equity * RiskPerTrade * sizeMultiplier.
// Fractional contracts round down; the result can be zero.
func (r *RiskManager) CalculatePositionSize(
	equity, entryPrice, stopPrice, contractMultiplier, sizeMultiplier float64,
) int {
	riskPerContract := math.Abs(entryPrice-stopPrice) * contractMultiplier
	if riskPerContract <= 0 {
		return 0
	}

	riskBudget := equity * r.cfg.RiskPerTrade * sizeMultiplier
	contracts := int(math.Floor(riskBudget / riskPerContract))
	if contracts < 0 {
		contracts = 0
	}
	if r.cfg.MaxContractsPerInstrument != nil && contracts > *r.cfg.MaxContractsPerInstrument {
		contracts = *r.cfg.MaxContractsPerInstrument
	}
	return contracts
}

// CheckExposureLimits verifies that adding newValue of exposure in symbol
// keeps the portfolio inside the gross and correlated exposure limits.
// Returns nil when the trade is acceptable.
func (r *RiskManager) CheckExposureLimits(
	symbol string, newValue, equity float64, open []PositionValue,
) error {
	if equity <= 0 {
		return fmt.Errorf("equity %.2f is not positive", equity)
	}

	if r.cfg.MaxGrossExposure != nil {
		gross := math.Abs(newValue)
		for _, p := range open {
			gross += math.Abs(p.Value)
		}
		limit := equity * *r.cfg.MaxGrossExposure
		if gross > limit {
			return fmt.Errorf("gross exposure %.2f would exceed limit %.2f", gross, limit)
		}
	}

	if r.cfg.MaxCorrelatedExposure != nil {
		for _, group := range correlatedGroups {
			if !containsSymbol(group, symbol) {
				continue
			}
			correlated := math.Abs(newValue)
			for _, p := range open {
				if containsSymbol(group, p.Symbol) {
					correlated += math.Abs(p.Value)
				}
			}
			limit := equity * *r.cfg.MaxCorrelatedExposure
			if correlated > limit {
				return fmt.Errorf("correlated exposure %.2f in group %v would exceed limit %.2f",
					correlated, group, limit)
			}
		}
	}

	return nil
}

// ValidateTrade runs the full pre-trade check: trading mode, position sizing
// and exposure limits. A rejected trade carries zero contracts and the
// rejection reason.
func (r *RiskManager) ValidateTrade(
	symbol string,
	entryPrice, stopPrice, contractMultiplier float64,
	equity float64,
	state RiskState,
	open []PositionValue,
) TradeCheck {
	if !state.TradingEnabled {
		return TradeCheck{
			Approved:  false,
			Contracts: 0,
			Reason:    fmt.Sprintf("Trading disabled: %s", state.Reason),
		}
	}

	contracts := r.CalculatePositionSize(equity, entryPrice, stopPrice, contractMultiplier, state.SizeMultiplier)
	if contracts == 0 {
		return TradeCheck{
			Approved:  false,
			Contracts: 0,
			Reason:    "Position size rounds to zero contracts",
		}
	}

	newValue := entryPrice * float64(contracts) * contractMultiplier
	if err := r.CheckExposureLimits(symbol, newValue, equity, open); err != nil {
		return TradeCheck{
			Approved:  false,
			Contracts: 0,
			Reason:    err.Error(),
		}
	}

	return TradeCheck{
		Approved:  true,
		Contracts: contracts,
		Reason:    "Trade approved",
	}
}

func containsSymbol(group []string, symbol string) bool {
	for _, s := range group {
		if s == symbol {
			return true
		}
	}
	return false
}
