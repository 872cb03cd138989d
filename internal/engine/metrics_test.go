package engine

import (
	"math"
	"testing"
	"time"
)

func TestComputeMetricsTotalReturnAndCAGR(t *testing.T) {
	dates := []time.Time{
		time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	equities := []float64{105000, 121000}
	drawdowns := []float64{0, 0}

	m := ComputeMetrics(100000, dates, equities, drawdowns, []float64{21000})

	if !almostEqual(m.TotalReturn, 0.21) {
		t.Fatalf("total return = %v, want 0.21", m.TotalReturn)
	}
	if m.CAGR == nil {
		t.Fatalf("CAGR undefined for a two-year run")
	}
	years := dates[1].Sub(dates[0]).Hours() / 24 / 365.25
	want := math.Pow(1.21, 1/years) - 1
	if !almostEqual(*m.CAGR, want) {
		t.Fatalf("CAGR = %v, want %v", *m.CAGR, want)
	}
}

func TestComputeMetricsCAGRUndefinedForSingleDay(t *testing.T) {
	d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := ComputeMetrics(100000, []time.Time{d}, []float64{101000}, []float64{0}, nil)
	if m.CAGR != nil {
		t.Fatalf("CAGR = %v, want nil for a zero-length span", *m.CAGR)
	}
}

func TestSharpeRatio(t *testing.T) {
	// Returns 1%, 2%, 3%: mean 0.02, sample std 0.01
	returns := []float64{0.01, 0.02, 0.03}
	got := sharpeRatio(returns)
	if got == nil {
		t.Fatalf("sharpe undefined for a valid series")
	}
	want := 0.02 / 0.01 * math.Sqrt(252)
	if !almostEqual(*got, want) {
		t.Fatalf("sharpe = %v, want %v", *got, want)
	}

	if sharpeRatio([]float64{0.01}) != nil {
		t.Fatalf("sharpe must be undefined with one return")
	}
	if sharpeRatio([]float64{0.01, 0.01, 0.01}) != nil {
		t.Fatalf("sharpe must be undefined with zero variance")
	}
}

func TestSortinoRatio(t *testing.T) {
	returns := []float64{0.02, -0.01, 0.03, -0.03, 0.01}
	got := sortinoRatio(returns)
	if got == nil {
		t.Fatalf("sortino undefined for a series with two downside returns")
	}

	mean := meanOf(returns)
	downside := []float64{-0.01, -0.03}
	want := mean / sampleStd(downside, meanOf(downside)) * math.Sqrt(252)
	if !almostEqual(*got, want) {
		t.Fatalf("sortino = %v, want %v", *got, want)
	}

	if sortinoRatio([]float64{0.01, -0.02, 0.03}) != nil {
		t.Fatalf("sortino must be undefined with fewer than two downside returns")
	}
}

func TestMaxDrawdownDuration(t *testing.T) {
	tests := []struct {
		name      string
		drawdowns []float64
		want      int
	}{
		{"no drawdown", []float64{0, 0, 0}, 0},
		{"single run", []float64{0, 0.01, 0.02, 0, 0.01}, 2},
		{"longest of two runs", []float64{0.01, 0, 0.02, 0.03, 0.01, 0}, 3},
		{"open run at the end counts", []float64{0, 0.01, 0.02, 0.03}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := maxDrawdownDuration(tt.drawdowns); got != tt.want {
				t.Fatalf("duration = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTradeStatistics(t *testing.T) {
	trades := []float64{500, -200, 300, -100, 400}

	wr := winRate(trades)
	if wr == nil || !almostEqual(*wr, 0.6) {
		t.Fatalf("win rate = %v, want 0.6", wr)
	}

	pf := profitFactor(trades)
	if pf == nil || !almostEqual(*pf, 1200.0/300.0) {
		t.Fatalf("profit factor = %v, want 4", pf)
	}

	if winRate(nil) != nil || profitFactor(nil) != nil {
		t.Fatalf("trade statistics must be undefined with no trades")
	}

	// All winners: the factor is reported as zero, not infinity
	pf = profitFactor([]float64{100, 200})
	if pf == nil || *pf != 0 {
		t.Fatalf("profit factor = %v, want 0 with no losing trades", pf)
	}
}

func TestComputeMetricsEmptySeries(t *testing.T) {
	m := ComputeMetrics(100000, nil, nil, nil, nil)
	if m.TotalReturn != 0 || m.CAGR != nil || m.SharpeRatio != nil || m.TotalTrades != 0 {
		t.Fatalf("metrics on an empty series = %+v, want zero values", m)
	}
}
