// Package engine implements the deterministic core of the system: feature
// computation, the breakout trend-following strategy, risk-based position
// sizing, and the daily event-driven backtest loop. Nothing in this package
// touches the database; persistence is delegated to the service layer.
package engine

import (
	"time"

	"github.com/yourorg/volatility-edge/internal/model"
)

// FeatureConfig holds the lookback periods for all computed indicators
type FeatureConfig struct {
	ATRPeriod      int
	MAPeriod       int
	MASlopePeriod  int
	BreakoutPeriod int // long window, breakout reference for entries
	ExitPeriod     int // short window, exit reference
}

// DefaultFeatureConfig returns the standard lookback periods
func DefaultFeatureConfig() FeatureConfig {
	return FeatureConfig{
		ATRPeriod:      20,
		MAPeriod:       50,
		MASlopePeriod:  10,
		BreakoutPeriod: 20,
		ExitPeriod:     10,
	}
}

// FeatureRow holds the indicator values derived from one bar and its trailing
// window. A nil field means the window has not filled yet.
type FeatureRow struct {
	Date    time.Time
	ATR     *float64
	MA      *float64
	MASlope *float64
	HHLong  *float64
	LLLong  *float64
	HHShort *float64
	LLShort *float64
}

// ComputeATR computes the Average True Range over the given period. The true
// range needs the previous close, so the first bar has no true range and the
// first defined ATR value appears at index period (period+1 bars consumed).
func ComputeATR(bars []model.Bar, period int) []*float64 {
	out := make([]*float64, len(bars))
	if period <= 0 || len(bars) <= period {
		return out
	}

	tr := make([]float64, len(bars))
	for i := 1; i < len(bars); i++ {
		prevClose := bars[i-1].Close
		r := bars[i].High - bars[i].Low
		if d := abs(bars[i].High - prevClose); d > r {
			r = d
		}
		if d := abs(bars[i].Low - prevClose); d > r {
			r = d
		}
		tr[i] = r
	}

	// tr[0] is undefined, so the rolling mean starts one bar late
	sum := 0.0
	for i := 1; i < len(bars); i++ {
		sum += tr[i]
		if i > period {
			sum -= tr[i-period]
		}
		if i >= period {
			v := sum / float64(period)
			out[i] = &v
		}
	}
	return out
}

// ComputeMA computes the simple rolling mean of closes over the given period
func ComputeMA(bars []model.Bar, period int) []*float64 {
	out := make([]*float64, len(bars))
	if period <= 0 || len(bars) < period {
		return out
	}

	sum := 0.0
	for i := range bars {
		sum += bars[i].Close
		if i >= period {
			sum -= bars[i-period].Close
		}
		if i >= period-1 {
			v := sum / float64(period)
			out[i] = &v
		}
	}
	return out
}

// ComputeMASlope fits an ordinary-least-squares line through the most recent
// period MA values (x = 0..period-1) and returns its slope. Undefined when
// fewer than period MA values exist or any of them is undefined. The window
// is refit for every bar; the bar-by-bar fit is the numerical contract even
// though an incremental update would be cheaper.
func ComputeMASlope(ma []*float64, period int) []*float64 {
	out := make([]*float64, len(ma))
	if period <= 0 {
		return out
	}

	for i := period - 1; i < len(ma); i++ {
		window := ma[i-period+1 : i+1]
		defined := true
		for _, v := range window {
			if v == nil {
				defined = false
				break
			}
		}
		if !defined {
			continue
		}
		v := olsSlope(window)
		out[i] = &v
	}
	return out
}

// olsSlope computes the least-squares slope of y against x = 0..n-1
func olsSlope(y []*float64) float64 {
	n := float64(len(y))
	xMean := (n - 1) / 2

	yMean := 0.0
	for _, v := range y {
		yMean += *v
	}
	yMean /= n

	num, den := 0.0, 0.0
	for i, v := range y {
		dx := float64(i) - xMean
		num += dx * (*v - yMean)
		den += dx * dx
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// ComputeHighestHigh computes the rolling max of highs over the given period,
// inclusive of the current bar
func ComputeHighestHigh(bars []model.Bar, period int) []*float64 {
	out := make([]*float64, len(bars))
	if period <= 0 || len(bars) < period {
		return out
	}
	for i := period - 1; i < len(bars); i++ {
		hh := bars[i-period+1].High
		for j := i - period + 2; j <= i; j++ {
			if bars[j].High > hh {
				hh = bars[j].High
			}
		}
		v := hh
		out[i] = &v
	}
	return out
}

// ComputeLowestLow computes the rolling min of lows over the given period,
// inclusive of the current bar
func ComputeLowestLow(bars []model.Bar, period int) []*float64 {
	out := make([]*float64, len(bars))
	if period <= 0 || len(bars) < period {
		return out
	}
	for i := period - 1; i < len(bars); i++ {
		ll := bars[i-period+1].Low
		for j := i - period + 2; j <= i; j++ {
			if bars[j].Low < ll {
				ll = bars[j].Low
			}
		}
		v := ll
		out[i] = &v
	}
	return out
}

// ComputeFeatures computes all indicator rows for a date-ordered bar series.
// The result has exactly one row per input bar; callers drop rows whose ATR
// or MA is still undefined before persisting. Computation is pure, so
// recomputing over the same bars yields identical output.
func ComputeFeatures(bars []model.Bar, cfg FeatureConfig) []FeatureRow {
	atr := ComputeATR(bars, cfg.ATRPeriod)
	ma := ComputeMA(bars, cfg.MAPeriod)
	maSlope := ComputeMASlope(ma, cfg.MASlopePeriod)
	hhLong := ComputeHighestHigh(bars, cfg.BreakoutPeriod)
	llLong := ComputeLowestLow(bars, cfg.BreakoutPeriod)
	hhShort := ComputeHighestHigh(bars, cfg.ExitPeriod)
	llShort := ComputeLowestLow(bars, cfg.ExitPeriod)

	rows := make([]FeatureRow, len(bars))
	for i := range bars {
		rows[i] = FeatureRow{
			Date:    bars[i].Date,
			ATR:     atr[i],
			MA:      ma[i],
			MASlope: maSlope[i],
			HHLong:  hhLong[i],
			LLLong:  llLong[i],
			HHShort: hhShort[i],
			LLShort: llShort[i],
		}
	}
	return rows
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
