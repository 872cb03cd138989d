package validator

import (
	"errors"
	"fmt"

	"github.com/yourorg/volatility-edge/internal/model"
)

// ValidateBacktestConfig validates a backtest run configuration before the
// run is created
func ValidateBacktestConfig(cfg *model.BacktestConfig) error {
	if len(cfg.Instruments) == 0 {
		return errors.New("instruments cannot be empty")
	}
	for i, sym := range cfg.Instruments {
		if sym == "" {
			return fmt.Errorf("instrument %d: symbol cannot be empty", i+1)
		}
	}

	if cfg.StartDate.IsZero() || cfg.EndDate.IsZero() {
		return errors.New("start_date and end_date are required")
	}
	if !cfg.EndDate.After(cfg.StartDate) {
		return errors.New("end_date must be after start_date")
	}

	if cfg.InitialCapital <= 0 {
		return errors.New("initial_capital must be positive")
	}

	if err := validatePeriods(cfg); err != nil {
		return err
	}

	if cfg.StopATRMultiple <= 0 {
		return errors.New("stop_atr_multiple must be positive")
	}
	if cfg.CooldownDays < 0 {
		return errors.New("cooldown_days cannot be negative")
	}

	return validateRiskParameters(cfg)
}

// validatePeriods checks every lookback window
func validatePeriods(cfg *model.BacktestConfig) error {
	periods := []struct {
		name  string
		value int
	}{
		{"atr_period", cfg.ATRPeriod},
		{"ma_period", cfg.MAPeriod},
		{"ma_slope_period", cfg.MASlopePeriod},
		{"breakout_period", cfg.BreakoutPeriod},
		{"exit_period", cfg.ExitPeriod},
	}
	for _, p := range periods {
		if p.value < 2 {
			return fmt.Errorf("%s must be at least 2", p.name)
		}
		if p.value > 500 {
			return fmt.Errorf("%s must be at most 500", p.name)
		}
	}
	return nil
}

// validateRiskParameters checks the risk and execution knobs
func validateRiskParameters(cfg *model.BacktestConfig) error {
	if cfg.RiskPerTrade <= 0 || cfg.RiskPerTrade > 0.1 {
		return errors.New("risk_per_trade must be in (0, 0.1]")
	}
	if cfg.MaxContractsPerInstrument != nil && *cfg.MaxContractsPerInstrument < 1 {
		return errors.New("max_contracts_per_instrument must be at least 1")
	}
	if cfg.MaxGrossExposure != nil && *cfg.MaxGrossExposure <= 0 {
		return errors.New("max_gross_exposure must be positive")
	}
	if cfg.MaxCorrelatedExposure != nil && *cfg.MaxCorrelatedExposure <= 0 {
		return errors.New("max_correlated_exposure must be positive")
	}

	if cfg.SlippageTicks < 0 {
		return errors.New("slippage_ticks cannot be negative")
	}
	if cfg.CommissionPerContract < 0 {
		return errors.New("commission_per_contract cannot be negative")
	}

	if cfg.DrawdownWarningPct <= 0 || cfg.DrawdownWarningPct >= 1 {
		return errors.New("drawdown_warning_pct must be in (0, 1)")
	}
	if cfg.DrawdownHaltPct <= 0 || cfg.DrawdownHaltPct >= 1 {
		return errors.New("drawdown_halt_pct must be in (0, 1)")
	}
	if cfg.DrawdownHaltPct <= cfg.DrawdownWarningPct {
		return errors.New("drawdown_halt_pct must be greater than drawdown_warning_pct")
	}
	if cfg.DailyLossLimitPct <= 0 || cfg.DailyLossLimitPct >= 1 {
		return errors.New("daily_loss_limit_pct must be in (0, 1)")
	}

	return nil
}
