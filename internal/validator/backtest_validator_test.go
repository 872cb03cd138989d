package validator

import (
	"testing"
	"time"

	"github.com/yourorg/volatility-edge/internal/model"
)

func validConfig() model.BacktestConfig {
	cfg := model.DefaultBacktestConfig()
	cfg.Instruments = []string{"ES", "NQ"}
	cfg.StartDate = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg.EndDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return cfg
}

func TestValidateBacktestConfig(t *testing.T) {
	cfg := validConfig()
	if err := ValidateBacktestConfig(&cfg); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*model.BacktestConfig)
	}{
		{"no instruments", func(c *model.BacktestConfig) { c.Instruments = nil }},
		{"empty symbol", func(c *model.BacktestConfig) { c.Instruments = []string{"ES", ""} }},
		{"missing dates", func(c *model.BacktestConfig) { c.StartDate = time.Time{} }},
		{"inverted dates", func(c *model.BacktestConfig) { c.EndDate = c.StartDate.AddDate(0, 0, -1) }},
		{"zero capital", func(c *model.BacktestConfig) { c.InitialCapital = 0 }},
		{"tiny atr period", func(c *model.BacktestConfig) { c.ATRPeriod = 1 }},
		{"huge ma period", func(c *model.BacktestConfig) { c.MAPeriod = 501 }},
		{"zero stop multiple", func(c *model.BacktestConfig) { c.StopATRMultiple = 0 }},
		{"negative cooldown", func(c *model.BacktestConfig) { c.CooldownDays = -1 }},
		{"risk too large", func(c *model.BacktestConfig) { c.RiskPerTrade = 0.5 }},
		{"negative slippage", func(c *model.BacktestConfig) { c.SlippageTicks = -1 }},
		{"halt below warning", func(c *model.BacktestConfig) { c.DrawdownHaltPct = 0.05 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			if err := ValidateBacktestConfig(&cfg); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
