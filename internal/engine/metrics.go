package engine

import (
	"math"
	"time"
)

// tradingDaysPerYear annualizes daily return statistics
const tradingDaysPerYear = 252.0

// Metrics holds the performance summary of a completed run. A nil field means
// the statistic is undefined for the realized series (too few observations,
// zero variance, or a non-positive time span).
type Metrics struct {
	TotalReturn         float64
	CAGR                *float64
	SharpeRatio         *float64
	SortinoRatio        *float64
	MaxDrawdown         float64
	MaxDrawdownDuration int
	TotalTrades         int
	WinRate             *float64
	ProfitFactor        *float64
}

// ComputeMetrics derives the performance summary from the equity curve and
// the closed-trade results. Equities, dates and drawdowns are parallel
// per-day series from the snapshots.
func ComputeMetrics(initialCapital float64, dates []time.Time, equities, drawdowns, tradePnLs []float64) Metrics {
	m := Metrics{TotalTrades: len(tradePnLs)}

	if len(equities) == 0 || initialCapital <= 0 {
		return m
	}

	final := equities[len(equities)-1]
	m.TotalReturn = (final - initialCapital) / initialCapital

	if cagr := computeCAGR(initialCapital, final, dates); cagr != nil {
		m.CAGR = cagr
	}

	returns := dailyReturns(equities)
	m.SharpeRatio = sharpeRatio(returns)
	m.SortinoRatio = sortinoRatio(returns)

	for _, dd := range drawdowns {
		if dd > m.MaxDrawdown {
			m.MaxDrawdown = dd
		}
	}
	m.MaxDrawdownDuration = maxDrawdownDuration(drawdowns)

	m.WinRate = winRate(tradePnLs)
	m.ProfitFactor = profitFactor(tradePnLs)

	return m
}

// computeCAGR annualizes the total return over the calendar span of the run.
// Undefined when the span is not positive or equity went non-positive.
func computeCAGR(initialCapital, finalEquity float64, dates []time.Time) *float64 {
	if len(dates) < 2 || finalEquity <= 0 {
		return nil
	}
	years := dates[len(dates)-1].Sub(dates[0]).Hours() / 24 / 365.25
	if years <= 0 {
		return nil
	}
	v := math.Pow(finalEquity/initialCapital, 1/years) - 1
	return &v
}

// dailyReturns converts the equity curve into simple per-day returns
func dailyReturns(equities []float64) []float64 {
	if len(equities) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(equities)-1)
	for i := 1; i < len(equities); i++ {
		prev := equities[i-1]
		if prev == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, (equities[i]-prev)/prev)
	}
	return returns
}

// sharpeRatio annualizes mean daily return over its sample standard
// deviation. Undefined for fewer than two returns or zero variance.
func sharpeRatio(returns []float64) *float64 {
	if len(returns) < 2 {
		return nil
	}
	mean := meanOf(returns)
	std := sampleStd(returns, mean)
	if std == 0 {
		return nil
	}
	v := mean / std * math.Sqrt(tradingDaysPerYear)
	return &v
}

// sortinoRatio uses the same numerator as Sharpe but only downside deviations
// in the denominator. Undefined with fewer than two negative returns.
func sortinoRatio(returns []float64) *float64 {
	if len(returns) < 2 {
		return nil
	}
	downside := make([]float64, 0, len(returns))
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(downside) < 2 {
		return nil
	}
	mean := meanOf(returns)
	std := sampleStd(downside, meanOf(downside))
	if std == 0 {
		return nil
	}
	v := mean / std * math.Sqrt(tradingDaysPerYear)
	return &v
}

// maxDrawdownDuration is the longest contiguous run of days spent below the
// running peak, in trading days. A run still open at the end of the series
// counts.
func maxDrawdownDuration(drawdowns []float64) int {
	longest, current := 0, 0
	for _, dd := range drawdowns {
		if dd > 0 {
			current++
			if current > longest {
				longest = current
			}
		} else {
			current = 0
		}
	}
	return longest
}

func winRate(tradePnLs []float64) *float64 {
	if len(tradePnLs) == 0 {
		return nil
	}
	wins := 0
	for _, pnl := range tradePnLs {
		if pnl > 0 {
			wins++
		}
	}
	v := float64(wins) / float64(len(tradePnLs))
	return &v
}

// profitFactor is gross profit over gross loss. With trades but no losers the
// factor is reported as zero rather than infinite.
func profitFactor(tradePnLs []float64) *float64 {
	if len(tradePnLs) == 0 {
		return nil
	}
	grossProfit, grossLoss := 0.0, 0.0
	for _, pnl := range tradePnLs {
		if pnl > 0 {
			grossProfit += pnl
		} else if pnl < 0 {
			grossLoss += -pnl
		}
	}
	v := 0.0
	if grossLoss > 0 {
		v = grossProfit / grossLoss
	}
	return &v
}

func meanOf(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// sampleStd is the n-1 standard deviation
func sampleStd(xs []float64, mean float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	ss := 0.0
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}
