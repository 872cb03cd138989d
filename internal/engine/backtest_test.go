package engine

import (
	"context"
	"testing"

	"github.com/yourorg/volatility-edge/internal/model"
)

type memRecorder struct {
	signals   []model.Signal
	orders    []model.Order
	fills     []model.Fill
	snapshots []model.PortfolioSnapshot
}

func (m *memRecorder) RecordSignal(s model.Signal) { m.signals = append(m.signals, s) }
func (m *memRecorder) RecordOrder(o model.Order, f model.Fill) {
	m.orders = append(m.orders, o)
	m.fills = append(m.fills, f)
}
func (m *memRecorder) RecordSnapshot(s model.PortfolioSnapshot) {
	m.snapshots = append(m.snapshots, s)
}

func fb(n int, o, h, l, c, atr, ma, slope, hhLong, llLong, hhShort, llShort float64) model.FeatureBar {
	return model.FeatureBar{
		Date: day(n), Open: o, High: h, Low: l, Close: c, Volume: 1000,
		ATR: atr, MA: ma, MASlope: fp(slope),
		HHLong: fp(hhLong), LLLong: fp(llLong),
		HHShort: fp(hhShort), LLShort: fp(llShort),
	}
}

func testInstrument() model.Instrument {
	return model.Instrument{ID: 1, Symbol: "YM", Name: "E-mini Dow", TickSize: 1.0, Multiplier: 5, Active: true}
}

func testRunConfig() model.BacktestConfig {
	cfg := model.DefaultBacktestConfig()
	cfg.Instruments = []string{"YM"}
	cfg.StartDate = day(1)
	cfg.EndDate = day(10)
	return cfg
}

// longRoundTrip is a four-day series producing exactly one long entry and one
// rule exit: breakout on day 2, fill on day 3's open, exit at day 4's close.
func longRoundTrip() []model.FeatureBar {
	return []model.FeatureBar{
		fb(1, 100, 101, 99, 100, 5, 95, 0.5, 105, 85, 104, 96),
		fb(2, 101, 107, 100, 106, 5, 95, 0.5, 107, 85, 106, 96),
		fb(3, 107, 108, 106, 107, 5, 100, 0.5, 108, 85, 108, 96),
		fb(4, 106, 107, 104, 105, 5, 100, 0.5, 108, 85, 107, 105.5),
	}
}

func TestBacktesterLongRoundTrip(t *testing.T) {
	rec := &memRecorder{}
	bt := NewBacktester(testRunConfig(), rec, nil)

	res, err := bt.Run(context.Background(), 7, []InstrumentSeries{
		{Instrument: testInstrument(), Bars: longRoundTrip()},
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if len(rec.signals) != 2 {
		t.Fatalf("got %d signals, want entry and exit", len(rec.signals))
	}
	entry, exit := rec.signals[0], rec.signals[1]
	if entry.SignalType != model.SignalEntryLong || !entry.Date.Equal(day(2)) {
		t.Fatalf("entry signal = %+v, want entry_long on day 2", entry)
	}
	// Budget 100000*0.005 = 500, risk per contract |106-96|*5 = 50
	if entry.TargetContracts != 10 {
		t.Fatalf("target contracts = %d, want 10", entry.TargetContracts)
	}
	if entry.StopPrice == nil || *entry.StopPrice != 96 {
		t.Fatalf("entry stop = %v, want 96", entry.StopPrice)
	}
	if exit.SignalType != model.SignalExitLong || !exit.Date.Equal(day(4)) {
		t.Fatalf("exit signal = %+v, want exit_long on day 4", exit)
	}

	if len(rec.fills) != 2 {
		t.Fatalf("got %d fills, want 2", len(rec.fills))
	}
	// Entry fills at the next open plus one tick of slippage
	if rec.fills[0].FillPrice != 108 || !rec.fills[0].FillDate.Equal(day(3)) {
		t.Fatalf("entry fill = %+v, want 108 on day 3", rec.fills[0])
	}
	if rec.fills[0].Commission != 25 {
		t.Fatalf("entry commission = %v, want 25", rec.fills[0].Commission)
	}
	// Rule exit fills at the close with no slippage
	if rec.fills[1].FillPrice != 105 || rec.fills[1].SlippageTicks != 0 {
		t.Fatalf("exit fill = %+v, want 105 with zero slippage", rec.fills[1])
	}
	if rec.orders[0].Side != model.OrderSideBuy || rec.orders[1].Side != model.OrderSideSell {
		t.Fatalf("order sides = %v/%v, want buy then sell", rec.orders[0].Side, rec.orders[1].Side)
	}

	// Cash: 100000 - 25 entry commission + (105-108)*10*5 pnl - 25 exit commission
	wantFinal := 100000.0 - 25 - 150 - 25
	if !almostEqual(res.FinalEquity, wantFinal) {
		t.Fatalf("final equity = %v, want %v", res.FinalEquity, wantFinal)
	}
	if res.TotalTrades != 1 {
		t.Fatalf("total trades = %d, want 1", res.TotalTrades)
	}

	if len(rec.snapshots) != 4 {
		t.Fatalf("got %d snapshots, want one per trading day", len(rec.snapshots))
	}
	for i, s := range rec.snapshots {
		if !almostEqual(s.Equity, s.Cash+s.UnrealizedPnL) {
			t.Fatalf("snapshot %d breaks equity = cash + unrealized: %+v", i, s)
		}
		if s.BacktestRunID == nil || *s.BacktestRunID != 7 {
			t.Fatalf("snapshot %d missing run id", i)
		}
	}
	// Day 3 carries the open position marked at the close
	if rec.snapshots[2].NumPositions != 1 || !almostEqual(rec.snapshots[2].UnrealizedPnL, -50) {
		t.Fatalf("day 3 snapshot = %+v, want one position with -50 unrealized", rec.snapshots[2])
	}
	if rec.snapshots[3].NumPositions != 0 {
		t.Fatalf("day 4 snapshot still has positions: %+v", rec.snapshots[3])
	}
}

func TestBacktesterStopSweep(t *testing.T) {
	bars := []model.FeatureBar{
		fb(1, 100, 101, 99, 100, 5, 95, 0.5, 105, 85, 104, 80),
		fb(2, 101, 107, 100, 106, 5, 95, 0.5, 107, 85, 106, 80),
		fb(3, 107, 108, 106, 107, 5, 100, 0.5, 108, 85, 108, 80),
		// Low crashes through the 96 stop
		fb(4, 100, 101, 90, 95, 5, 100, 0.5, 108, 85, 107, 80),
	}

	rec := &memRecorder{}
	bt := NewBacktester(testRunConfig(), rec, nil)

	res, err := bt.Run(context.Background(), 1, []InstrumentSeries{
		{Instrument: testInstrument(), Bars: bars},
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if len(rec.signals) != 2 || rec.signals[1].SignalType != model.SignalStopLong {
		t.Fatalf("signals = %+v, want entry then stop_long", rec.signals)
	}
	if len(rec.fills) != 2 {
		t.Fatalf("got %d fills, want entry and stop exit only", len(rec.fills))
	}
	// The stop exit fills at the stop price, not the close
	if rec.fills[1].FillPrice != 96 {
		t.Fatalf("stop fill price = %v, want 96", rec.fills[1].FillPrice)
	}

	// (96-108)*10*5 = -600 plus 50 commission round trip
	wantFinal := 100000.0 - 600 - 50
	if !almostEqual(res.FinalEquity, wantFinal) {
		t.Fatalf("final equity = %v, want %v", res.FinalEquity, wantFinal)
	}
	if res.TotalTrades != 1 {
		t.Fatalf("total trades = %d, want 1, the sweep and the signal must not double-count", res.TotalTrades)
	}
}

func TestBacktesterCooldownAfterStop(t *testing.T) {
	bars := []model.FeatureBar{
		fb(1, 100, 101, 99, 100, 5, 95, 0.5, 105, 85, 104, 80),
		fb(2, 101, 107, 100, 106, 5, 95, 0.5, 107, 85, 106, 80),
		fb(3, 107, 108, 106, 107, 5, 100, 0.5, 108, 85, 108, 80),
		fb(4, 100, 101, 90, 95, 5, 100, 0.5, 108, 85, 107, 80),
		// Fresh breakout two days after the stop: same direction, still cooling down
		fb(5, 96, 97, 95, 96, 5, 90, 0.5, 108, 85, 107, 80),
		fb(6, 97, 110, 96, 109, 5, 90, 0.5, 108, 85, 109, 80),
	}

	rec := &memRecorder{}
	bt := NewBacktester(testRunConfig(), rec, nil)

	if _, err := bt.Run(context.Background(), 1, []InstrumentSeries{
		{Instrument: testInstrument(), Bars: bars},
	}); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	// Day 6 closes above day 5's long-window high with a long trend, but the
	// stop on day 4 blocks the re-entry
	for _, s := range rec.signals {
		if s.SignalType == model.SignalEntryLong && s.Date.Equal(day(6)) {
			t.Fatalf("re-entry on day 6 must be blocked by the cooldown")
		}
	}
}

func TestBacktesterExposureRejectionRecordsZeroContracts(t *testing.T) {
	cfg := testRunConfig()
	cfg.MaxGrossExposure = fp(0.01)

	rec := &memRecorder{}
	bt := NewBacktester(cfg, rec, nil)

	if _, err := bt.Run(context.Background(), 1, []InstrumentSeries{
		{Instrument: testInstrument(), Bars: longRoundTrip()},
	}); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if len(rec.signals) != 1 {
		t.Fatalf("got %d signals, want the rejected entry only", len(rec.signals))
	}
	if rec.signals[0].TargetContracts != 0 {
		t.Fatalf("rejected entry carries %d contracts, want 0", rec.signals[0].TargetContracts)
	}
	if len(rec.fills) != 0 {
		t.Fatalf("rejected entry must not fill, got %d fills", len(rec.fills))
	}
}

func TestBacktesterSkipsDatesWithoutBars(t *testing.T) {
	gc := model.Instrument{ID: 2, Symbol: "GC", Name: "Gold", TickSize: 0.1, Multiplier: 100, Active: true}

	// GC trades on days 1-2 and 5-6 only; YM covers 1-4. The union has six
	// days and each instrument is skipped on the days it lacks a bar.
	gcBars := []model.FeatureBar{
		fb(1, 2000, 2005, 1995, 2000, 10, 2100, -0.5, 2050, 1990, 2040, 1980),
		fb(2, 2000, 2004, 1996, 2001, 10, 2100, -0.5, 2050, 1990, 2040, 1980),
		fb(5, 2001, 2006, 1997, 2002, 10, 2100, -0.5, 2050, 1990, 2040, 1980),
		fb(6, 2002, 2007, 1998, 2003, 10, 2100, -0.5, 2050, 1990, 2040, 1980),
	}
	ymBars := longRoundTrip()

	rec := &memRecorder{}
	cfg := testRunConfig()
	cfg.Instruments = []string{"GC", "YM"}
	bt := NewBacktester(cfg, rec, nil)

	res, err := bt.Run(context.Background(), 1, []InstrumentSeries{
		{Instrument: testInstrument(), Bars: ymBars},
		{Instrument: gc, Bars: gcBars},
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if len(rec.snapshots) != 6 {
		t.Fatalf("got %d snapshots, want 6 for the union of dates", len(rec.snapshots))
	}
	if res.TotalTrades != 1 {
		t.Fatalf("total trades = %d, want only the YM round trip", res.TotalTrades)
	}
}

func TestBacktesterDeterministicReplay(t *testing.T) {
	series := func() []InstrumentSeries {
		gc := model.Instrument{ID: 2, Symbol: "GC", Name: "Gold", TickSize: 0.1, Multiplier: 100, Active: true}
		return []InstrumentSeries{
			{Instrument: testInstrument(), Bars: longRoundTrip()},
			{Instrument: gc, Bars: []model.FeatureBar{
				fb(1, 2000, 2005, 1995, 2000, 10, 1950, 0.5, 2004, 1990, 2004, 1980),
				fb(2, 2001, 2010, 2000, 2008, 10, 1950, 0.5, 2012, 1990, 2010, 1980),
				fb(3, 2009, 2012, 2007, 2010, 10, 1950, 0.5, 2014, 1990, 2012, 1980),
				fb(4, 2010, 2013, 2008, 2011, 10, 1950, 0.5, 2015, 1990, 2013, 1980),
			}},
		}
	}

	cfg := testRunConfig()
	cfg.Instruments = []string{"GC", "YM"}

	recA := &memRecorder{}
	resA, err := NewBacktester(cfg, recA, nil).Run(context.Background(), 1, series())
	if err != nil {
		t.Fatalf("first run error: %v", err)
	}
	recB := &memRecorder{}
	resB, err := NewBacktester(cfg, recB, nil).Run(context.Background(), 1, series())
	if err != nil {
		t.Fatalf("second run error: %v", err)
	}

	if resA.FinalEquity != resB.FinalEquity || resA.TotalTrades != resB.TotalTrades {
		t.Fatalf("replay diverged: %+v vs %+v", resA, resB)
	}
	if len(recA.snapshots) != len(recB.snapshots) {
		t.Fatalf("replay produced different snapshot counts")
	}
	for i := range recA.snapshots {
		a, b := recA.snapshots[i], recB.snapshots[i]
		if a.Equity != b.Equity || a.Cash != b.Cash || a.TotalExposure != b.TotalExposure {
			t.Fatalf("snapshot %d diverged: %+v vs %+v", i, a, b)
		}
	}
	if len(recA.signals) != len(recB.signals) {
		t.Fatalf("replay produced different signal counts")
	}
	for i := range recA.signals {
		if recA.signals[i].SignalType != recB.signals[i].SignalType ||
			recA.signals[i].Reason != recB.signals[i].Reason {
			t.Fatalf("signal %d diverged", i)
		}
	}
}

func TestBacktesterTwoInstrumentRoundTrips(t *testing.T) {
	gc := model.Instrument{ID: 2, Symbol: "GC", Name: "Gold", TickSize: 0.1, Multiplier: 100, Active: true}

	// GC wins: breakout on day 2 (stop 2008 - 2*2.5 = 2003, one contract),
	// fill day 3 at 2009 + one tick, rule exit day 4 at 2070.8
	gcBars := []model.FeatureBar{
		fb(1, 2000, 2005, 1995, 2000, 2.5, 1950, 0.5, 2004, 1990, 2004, 1980),
		fb(2, 2001, 2010, 2000, 2008, 2.5, 1950, 0.5, 2012, 1990, 2010, 1980),
		fb(3, 2009, 2062, 2008, 2060, 2.5, 1950, 0.5, 2014, 1990, 2012, 1990),
		fb(4, 2062, 2080, 2055, 2070.8, 2.5, 1950, 0.5, 2090, 1990, 2080, 2071),
	}

	cfg := testRunConfig()
	cfg.Instruments = []string{"GC", "YM"}

	rec := &memRecorder{}
	res, err := NewBacktester(cfg, rec, nil).Run(context.Background(), 1, []InstrumentSeries{
		{Instrument: testInstrument(), Bars: longRoundTrip()},
		{Instrument: gc, Bars: gcBars},
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if res.TotalTrades != 2 {
		t.Fatalf("total trades = %d, want one round trip per instrument", res.TotalTrades)
	}
	if len(rec.fills) != 4 {
		t.Fatalf("got %d fills, want entry and exit for each instrument", len(rec.fills))
	}

	// GC nets (2070.8-2009.1)*100 - 5 commission; YM nets (105-108)*10*5 - 50
	gcNet := (2070.8-2009.1)*100 - 5
	ymNet := -200.0
	if !almostEqual(res.FinalEquity, 100000+gcNet+ymNet) {
		t.Fatalf("final equity = %v, want %v", res.FinalEquity, 100000+gcNet+ymNet)
	}

	// One winner, one loser
	if res.Metrics.WinRate == nil || !almostEqual(*res.Metrics.WinRate, 0.5) {
		t.Fatalf("win rate = %v, want 0.5", res.Metrics.WinRate)
	}
	if res.Metrics.ProfitFactor == nil || !almostEqual(*res.Metrics.ProfitFactor, gcNet/(-ymNet)) {
		t.Fatalf("profit factor = %v, want gross profit over gross loss %v",
			res.Metrics.ProfitFactor, gcNet/(-ymNet))
	}
}

func TestBacktesterInputValidation(t *testing.T) {
	bt := NewBacktester(testRunConfig(), nil, nil)

	if _, err := bt.Run(context.Background(), 1, nil); err == nil {
		t.Fatalf("expected error for empty input")
	}

	badCfg := testRunConfig()
	badCfg.InitialCapital = 0
	if _, err := NewBacktester(badCfg, nil, nil).Run(context.Background(), 1, []InstrumentSeries{
		{Instrument: testInstrument(), Bars: longRoundTrip()},
	}); err == nil {
		t.Fatalf("expected error for non-positive capital")
	}

	unordered := longRoundTrip()
	unordered[0], unordered[1] = unordered[1], unordered[0]
	if _, err := bt.Run(context.Background(), 1, []InstrumentSeries{
		{Instrument: testInstrument(), Bars: unordered},
	}); err == nil {
		t.Fatalf("expected error for unordered bars")
	}
}

func TestBacktesterCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := &memRecorder{}
	bt := NewBacktester(testRunConfig(), rec, nil)
	if _, err := bt.Run(ctx, 1, []InstrumentSeries{
		{Instrument: testInstrument(), Bars: longRoundTrip()},
	}); err == nil {
		t.Fatalf("expected cancellation error")
	}
}
