package engine

import (
	"math"
	"testing"
	"time"

	"github.com/yourorg/volatility-edge/internal/model"
)

func fp(v float64) *float64 {
	return &v
}

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n-1)
}

func mkBar(n int, open, high, low, close float64) model.Bar {
	return model.Bar{Date: day(n), Open: open, High: high, Low: low, Close: close, Volume: 1000}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestComputeATR(t *testing.T) {
	bars := []model.Bar{
		mkBar(1, 100, 102, 98, 101),
		mkBar(2, 101, 104, 100, 103), // TR = max(4, 3, 1) = 4
		mkBar(3, 103, 105, 101, 102), // TR = max(4, 2, 2) = 4
		mkBar(4, 102, 103, 99, 100),  // TR = max(4, 1, 3) = 4
		mkBar(5, 100, 106, 100, 105), // TR = max(6, 6, 0) = 6
	}

	atr := ComputeATR(bars, 2)

	for i := 0; i < 2; i++ {
		if atr[i] != nil {
			t.Fatalf("atr[%d] = %v, want nil during warmup", i, *atr[i])
		}
	}
	if atr[2] == nil || !almostEqual(*atr[2], 4.0) {
		t.Fatalf("atr[2] = %v, want 4.0", atr[2])
	}
	if atr[3] == nil || !almostEqual(*atr[3], 4.0) {
		t.Fatalf("atr[3] = %v, want 4.0", atr[3])
	}
	if atr[4] == nil || !almostEqual(*atr[4], 5.0) {
		t.Fatalf("atr[4] = %v, want 5.0", atr[4])
	}
}

func TestComputeATRTrueRangeUsesGaps(t *testing.T) {
	// Gap up: the high-prevClose leg dominates high-low
	bars := []model.Bar{
		mkBar(1, 100, 101, 99, 100),
		mkBar(2, 110, 111, 109, 110), // TR = max(2, 11, 9) = 11
	}

	atr := ComputeATR(bars, 1)
	if atr[1] == nil || !almostEqual(*atr[1], 11.0) {
		t.Fatalf("atr[1] = %v, want 11.0", atr[1])
	}
}

func TestComputeATRInsufficientBars(t *testing.T) {
	bars := []model.Bar{
		mkBar(1, 100, 102, 98, 101),
		mkBar(2, 101, 104, 100, 103),
	}

	// period+1 bars are needed for the first value
	for _, v := range ComputeATR(bars, 2) {
		if v != nil {
			t.Fatalf("expected all nil with only period bars of true range")
		}
	}
}

func TestComputeMA(t *testing.T) {
	bars := []model.Bar{
		mkBar(1, 0, 0, 0, 10),
		mkBar(2, 0, 0, 0, 20),
		mkBar(3, 0, 0, 0, 30),
		mkBar(4, 0, 0, 0, 40),
	}

	ma := ComputeMA(bars, 3)

	if ma[0] != nil || ma[1] != nil {
		t.Fatalf("expected nil MA during warmup")
	}
	if ma[2] == nil || !almostEqual(*ma[2], 20.0) {
		t.Fatalf("ma[2] = %v, want 20.0", ma[2])
	}
	if ma[3] == nil || !almostEqual(*ma[3], 30.0) {
		t.Fatalf("ma[3] = %v, want 30.0", ma[3])
	}
}

func TestComputeMASlope(t *testing.T) {
	// MA rising by exactly 2 per bar: the OLS slope is exactly 2
	ma := []*float64{fp(10), fp(12), fp(14), fp(16), fp(18)}

	slope := ComputeMASlope(ma, 3)

	if slope[0] != nil || slope[1] != nil {
		t.Fatalf("expected nil slope during warmup")
	}
	for i := 2; i < len(slope); i++ {
		if slope[i] == nil || !almostEqual(*slope[i], 2.0) {
			t.Fatalf("slope[%d] = %v, want 2.0", i, slope[i])
		}
	}
}

func TestComputeMASlopeSkipsUndefinedWindows(t *testing.T) {
	ma := []*float64{nil, nil, fp(10), fp(12), fp(14)}

	slope := ComputeMASlope(ma, 3)

	if slope[2] != nil || slope[3] != nil {
		t.Fatalf("expected nil slope while window contains undefined MA values")
	}
	if slope[4] == nil || !almostEqual(*slope[4], 2.0) {
		t.Fatalf("slope[4] = %v, want 2.0", slope[4])
	}
}

func TestComputeRollingExtremes(t *testing.T) {
	bars := []model.Bar{
		mkBar(1, 0, 105, 95, 100),
		mkBar(2, 0, 110, 99, 100),
		mkBar(3, 0, 103, 90, 100),
		mkBar(4, 0, 104, 96, 100),
	}

	hh := ComputeHighestHigh(bars, 3)
	ll := ComputeLowestLow(bars, 3)

	if hh[1] != nil || ll[1] != nil {
		t.Fatalf("expected nil extremes during warmup")
	}
	if hh[2] == nil || *hh[2] != 110 {
		t.Fatalf("hh[2] = %v, want 110", hh[2])
	}
	if hh[3] == nil || *hh[3] != 110 {
		t.Fatalf("hh[3] = %v, want 110", hh[3])
	}
	if ll[2] == nil || *ll[2] != 90 {
		t.Fatalf("ll[2] = %v, want 90", ll[2])
	}
	if ll[3] == nil || *ll[3] != 90 {
		t.Fatalf("ll[3] = %v, want 90", ll[3])
	}
}

func TestComputeFeaturesShapeAndDeterminism(t *testing.T) {
	bars := make([]model.Bar, 0, 60)
	for i := 1; i <= 60; i++ {
		px := 100 + float64(i)*0.5
		bars = append(bars, mkBar(i, px, px+1, px-1, px))
	}

	cfg := FeatureConfig{ATRPeriod: 5, MAPeriod: 10, MASlopePeriod: 3, BreakoutPeriod: 8, ExitPeriod: 4}

	rows := ComputeFeatures(bars, cfg)
	if len(rows) != len(bars) {
		t.Fatalf("got %d rows, want %d", len(rows), len(bars))
	}
	if !rows[0].Date.Equal(bars[0].Date) {
		t.Fatalf("row dates must align with bar dates")
	}
	if rows[4].ATR != nil {
		t.Fatalf("ATR defined too early")
	}
	if rows[5].ATR == nil {
		t.Fatalf("ATR undefined at first expected index")
	}
	if rows[8].MA != nil || rows[9].MA == nil {
		t.Fatalf("MA warmup boundary wrong")
	}
	// Slope needs MASlopePeriod defined MA values
	if rows[10].MASlope != nil || rows[11].MASlope == nil {
		t.Fatalf("MA slope warmup boundary wrong")
	}

	again := ComputeFeatures(bars, cfg)
	for i := range rows {
		if (rows[i].ATR == nil) != (again[i].ATR == nil) ||
			(rows[i].ATR != nil && *rows[i].ATR != *again[i].ATR) {
			t.Fatalf("recompute produced different ATR at row %d", i)
		}
		if (rows[i].MASlope == nil) != (again[i].MASlope == nil) ||
			(rows[i].MASlope != nil && *rows[i].MASlope != *again[i].MASlope) {
			t.Fatalf("recompute produced different slope at row %d", i)
		}
	}
}
