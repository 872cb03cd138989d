package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/yourorg/volatility-edge/internal/model"
)

// Recorder receives the artifacts a backtest run produces. The engine calls
// it synchronously from the simulation loop; implementations own batching and
// persistence.
type Recorder interface {
	RecordSignal(signal model.Signal)
	RecordOrder(order model.Order, fill model.Fill)
	RecordSnapshot(snapshot model.PortfolioSnapshot)
}

// NopRecorder discards everything. Useful for dry runs and tests that only
// care about the result summary.
type NopRecorder struct{}

func (NopRecorder) RecordSignal(model.Signal)              {}
func (NopRecorder) RecordOrder(model.Order, model.Fill)    {}
func (NopRecorder) RecordSnapshot(model.PortfolioSnapshot) {}

// InstrumentSeries is the full input for one instrument: its reference data
// and its date-ordered joined bar/feature rows
type InstrumentSeries struct {
	Instrument model.Instrument
	Bars       []model.FeatureBar
}

// RunResult summarizes a completed simulation. OpenPositions lists positions
// still open on the last day, symbol-ordered.
type RunResult struct {
	FinalEquity   float64
	TotalTrades   int
	Metrics       Metrics
	OpenPositions []model.Position
}

// openPosition is the portfolio-level record of one live position
type openPosition struct {
	instrumentID int
	direction    Direction
	contracts    int
	entryPrice   float64
	entryDate    time.Time
	stopPrice    float64
	lastPrice    float64
	multiplier   float64
}

// pendingEntry is an approved entry waiting for its instrument's next bar,
// where it fills at the open
type pendingEntry struct {
	direction  Direction
	contracts  int
	stopPrice  float64
	signalDate time.Time
}

// Backtester drives the daily event-driven simulation. Each run walks the
// sorted union of all instruments' dates; per day it fills pending entries at
// the open, sweeps catastrophe stops against the bar range, generates signals
// at the close and records an end-of-day snapshot. Instruments are always
// visited in symbol order so identical inputs replay identically.
type Backtester struct {
	cfg      model.BacktestConfig
	strategy *Strategy
	risk     *RiskManager
	rec      Recorder
	logger   *zap.Logger
}

// NewBacktester assembles a Backtester from a run config. A nil recorder
// falls back to NopRecorder and a nil logger to zap.NewNop.
func NewBacktester(cfg model.BacktestConfig, rec Recorder, logger *zap.Logger) *Backtester {
	if rec == nil {
		rec = NopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backtester{
		cfg: cfg,
		strategy: NewStrategy(StrategyConfig{
			StopATRMultiple: cfg.StopATRMultiple,
			CooldownDays:    cfg.CooldownDays,
		}),
		risk: NewRiskManager(RiskConfig{
			RiskPerTrade:              cfg.RiskPerTrade,
			MaxContractsPerInstrument: cfg.MaxContractsPerInstrument,
			MaxGrossExposure:          cfg.MaxGrossExposure,
			MaxCorrelatedExposure:     cfg.MaxCorrelatedExposure,
			DrawdownWarningPct:        cfg.DrawdownWarningPct,
			DrawdownHaltPct:           cfg.DrawdownHaltPct,
			DailyLossLimitPct:         cfg.DailyLossLimitPct,
		}),
		rec:    rec,
		logger: logger,
	}
}

// runState is all mutable simulation state for one run
type runState struct {
	cash       float64
	peakEquity float64
	positions  map[string]*openPosition
	pending    map[string]*pendingEntry
	strategy   map[string]PositionState
	cursor     map[string]int

	dates     []time.Time
	equities  []float64
	drawdowns []float64
	tradePnLs []float64
}

// Run executes the full simulation and returns the result summary. Artifacts
// recorded before a cancellation or mid-run error are kept, so a failed run
// still leaves its partial output behind.
func (b *Backtester) Run(ctx context.Context, runID int, series []InstrumentSeries) (*RunResult, error) {
	if err := b.validateInput(series); err != nil {
		return nil, err
	}

	bySymbol := make(map[string]InstrumentSeries, len(series))
	symbols := make([]string, 0, len(series))
	for _, s := range series {
		bySymbol[s.Instrument.Symbol] = s
		symbols = append(symbols, s.Instrument.Symbol)
	}
	sort.Strings(symbols)

	dates := tradingDates(series)

	st := &runState{
		cash:       b.cfg.InitialCapital,
		peakEquity: b.cfg.InitialCapital,
		positions:  make(map[string]*openPosition),
		pending:    make(map[string]*pendingEntry),
		strategy:   make(map[string]PositionState),
		cursor:     make(map[string]int),
	}

	b.logger.Info("Starting backtest run",
		zap.Int("run_id", runID),
		zap.Int("instruments", len(series)),
		zap.Int("trading_days", len(dates)))

	for _, day := range dates {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("backtest cancelled on %s: %w", day.Format("2006-01-02"), err)
		}

		startOfDay := st.cash + b.unrealizedPnL(st, symbols)

		b.fillPendingEntries(runID, day, symbols, bySymbol, st)
		b.sweepStops(runID, day, symbols, bySymbol, st)
		b.markPositions(day, symbols, bySymbol, st)
		b.generateSignals(runID, day, startOfDay, symbols, bySymbol, st)
		b.markPositions(day, symbols, bySymbol, st)
		b.recordSnapshot(runID, day, startOfDay, symbols, st)
	}

	finalEquity := b.cfg.InitialCapital
	if n := len(st.equities); n > 0 {
		finalEquity = st.equities[n-1]
	}

	metrics := ComputeMetrics(b.cfg.InitialCapital, st.dates, st.equities, st.drawdowns, st.tradePnLs)

	b.logger.Info("Backtest run finished",
		zap.Int("run_id", runID),
		zap.Float64("final_equity", finalEquity),
		zap.Int("total_trades", len(st.tradePnLs)))

	open := make([]model.Position, 0, len(st.positions))
	for _, sym := range symbols {
		pos := st.positions[sym]
		if pos == nil {
			continue
		}
		qty := pos.contracts
		if pos.direction == DirectionShort {
			qty = -qty
		}
		rid := runID
		lastPrice := pos.lastPrice
		stopPrice := pos.stopPrice
		open = append(open, model.Position{
			InstrumentID:  pos.instrumentID,
			BacktestRunID: &rid,
			Date:          pos.entryDate,
			Quantity:      qty,
			EntryPrice:    pos.entryPrice,
			CurrentPrice:  &lastPrice,
			StopPrice:     &stopPrice,
			UnrealizedPnL: positionPnL(pos),
		})
	}

	return &RunResult{
		FinalEquity:   finalEquity,
		TotalTrades:   len(st.tradePnLs),
		Metrics:       metrics,
		OpenPositions: open,
	}, nil
}

func (b *Backtester) validateInput(series []InstrumentSeries) error {
	if b.cfg.InitialCapital <= 0 {
		return fmt.Errorf("initial capital must be positive, got %.2f", b.cfg.InitialCapital)
	}
	if len(series) == 0 {
		return fmt.Errorf("no instrument data supplied")
	}
	seen := make(map[string]struct{}, len(series))
	for _, s := range series {
		sym := s.Instrument.Symbol
		if sym == "" {
			return fmt.Errorf("instrument %d has no symbol", s.Instrument.ID)
		}
		if _, dup := seen[sym]; dup {
			return fmt.Errorf("duplicate instrument %s", sym)
		}
		seen[sym] = struct{}{}
		if s.Instrument.Multiplier <= 0 {
			return fmt.Errorf("instrument %s has non-positive multiplier", sym)
		}
		if s.Instrument.TickSize <= 0 {
			return fmt.Errorf("instrument %s has non-positive tick size", sym)
		}
		for i := 1; i < len(s.Bars); i++ {
			if !s.Bars[i].Date.After(s.Bars[i-1].Date) {
				return fmt.Errorf("instrument %s bars are not strictly date-ordered at index %d", sym, i)
			}
		}
	}
	return nil
}

// tradingDates returns the sorted union of all instruments' bar dates
func tradingDates(series []InstrumentSeries) []time.Time {
	set := make(map[time.Time]struct{})
	for _, s := range series {
		for _, bar := range s.Bars {
			set[dateKey(bar.Date)] = struct{}{}
		}
	}
	dates := make([]time.Time, 0, len(set))
	for d := range set {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

func dateKey(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// barFor advances the instrument's cursor to the given day and returns its
// bar index, or -1 when the instrument did not trade that day
func (b *Backtester) barFor(day time.Time, sym string, bySymbol map[string]InstrumentSeries, st *runState) int {
	bars := bySymbol[sym].Bars
	i := st.cursor[sym]
	for i < len(bars) && dateKey(bars[i].Date).Before(day) {
		i++
	}
	st.cursor[sym] = i
	if i < len(bars) && dateKey(bars[i].Date).Equal(day) {
		return i
	}
	return -1
}

// fillPendingEntries executes approved entries at the instrument's open with
// slippage applied against the trade. Entries stay pending until their
// instrument trades again; entries left pending when the data ends are
// dropped.
func (b *Backtester) fillPendingEntries(runID int, day time.Time, symbols []string, bySymbol map[string]InstrumentSeries, st *runState) {
	for _, sym := range symbols {
		pe := st.pending[sym]
		if pe == nil {
			continue
		}
		idx := b.barFor(day, sym, bySymbol, st)
		if idx < 0 {
			continue
		}
		s := bySymbol[sym]
		bar := s.Bars[idx]

		slip := b.cfg.SlippageTicks * s.Instrument.TickSize
		fillPrice := bar.Open + slip
		side := model.OrderSideBuy
		if pe.direction == DirectionShort {
			fillPrice = bar.Open - slip
			side = model.OrderSideSell
		}

		commission := b.cfg.CommissionPerContract * float64(pe.contracts)
		st.cash -= commission

		st.positions[sym] = &openPosition{
			instrumentID: s.Instrument.ID,
			direction:    pe.direction,
			contracts:    pe.contracts,
			entryPrice:   fillPrice,
			entryDate:    day,
			stopPrice:    pe.stopPrice,
			lastPrice:    fillPrice,
			multiplier:   s.Instrument.Multiplier,
		}
		delete(st.pending, sym)

		b.recordFill(runID, s.Instrument.ID, day, side, pe.contracts, fillPrice, commission, b.cfg.SlippageTicks)
	}
}

// sweepStops closes positions whose catastrophe stop was touched by today's
// range. The exit fills at the stop price. Strategy state is left alone; the
// signal pass observes the same bar and emits the stop signal with the
// cooldown bookkeeping.
func (b *Backtester) sweepStops(runID int, day time.Time, symbols []string, bySymbol map[string]InstrumentSeries, st *runState) {
	for _, sym := range symbols {
		pos := st.positions[sym]
		if pos == nil {
			continue
		}
		idx := b.barFor(day, sym, bySymbol, st)
		if idx < 0 {
			continue
		}
		bar := bySymbol[sym].Bars[idx]
		if b.strategy.StopHit(bar.High, bar.Low, pos.stopPrice, pos.direction) {
			b.closePosition(runID, day, sym, bySymbol[sym].Instrument, pos, pos.stopPrice, st)
		}
	}
}

// markPositions refreshes each position's mark price with today's close.
// Positions whose instrument did not trade today keep their previous mark.
func (b *Backtester) markPositions(day time.Time, symbols []string, bySymbol map[string]InstrumentSeries, st *runState) {
	for _, sym := range symbols {
		pos := st.positions[sym]
		if pos == nil {
			continue
		}
		idx := b.barFor(day, sym, bySymbol, st)
		if idx < 0 {
			continue
		}
		pos.lastPrice = bySymbol[sym].Bars[idx].Close
	}
}

// generateSignals runs the strategy per instrument in symbol order, applies
// its state transitions and executes or queues the resulting trades
func (b *Backtester) generateSignals(runID int, day time.Time, startOfDay float64, symbols []string, bySymbol map[string]InstrumentSeries, st *runState) {
	for _, sym := range symbols {
		idx := b.barFor(day, sym, bySymbol, st)
		if idx < 0 {
			continue
		}
		s := bySymbol[sym]
		bar := s.Bars[idx]

		fv := FeatureView{
			ATR:      &bar.ATR,
			MA:       &bar.MA,
			MASlope:  bar.MASlope,
			ExitHigh: bar.HHShort,
			ExitLow:  bar.LLShort,
		}
		var prev *model.Bar
		if idx > 0 {
			pb := toBar(s.Instrument.ID, s.Bars[idx-1])
			prev = &pb
			fv.BreakoutHigh = s.Bars[idx-1].HHLong
			fv.BreakoutLow = s.Bars[idx-1].LLLong
		}

		sig := b.strategy.GenerateSignal(day, toBar(s.Instrument.ID, bar), prev, fv, st.strategy[sym])

		switch {
		case sig.Action.IsEntry():
			b.handleEntry(runID, day, startOfDay, sym, symbols, s.Instrument, bar, sig, st)
		case sig.Action.IsExit():
			b.handleExit(runID, day, sym, s.Instrument, sig, st)
		}
	}
}

// handleEntry validates an entry signal against the risk engine, records the
// signal with the approved size and queues the fill for the next bar
func (b *Backtester) handleEntry(runID int, day time.Time, startOfDay float64, sym string, symbols []string, inst model.Instrument, bar model.FeatureBar, sig StrategySignal, st *runState) {
	equity := st.cash + b.unrealizedPnL(st, symbols)
	dailyPnL := equity - startOfDay

	riskState := b.risk.CalculateRiskState(equity, st.peakEquity, dailyPnL, startOfDay)

	entryDir := DirectionLong
	if sig.Action == ActionEntryShort {
		entryDir = DirectionShort
	}

	check := b.risk.ValidateTrade(sym, bar.Close, *sig.StopPrice, inst.Multiplier, equity, riskState, b.openValues(st, symbols))

	reason := sig.Reason
	if !check.Approved {
		reason = check.Reason
	}
	b.recordSignal(runID, inst.ID, day, sig.Action.SignalType(), sig.Price, check.Contracts, sig.StopPrice, reason)

	if !check.Approved {
		return
	}

	st.pending[sym] = &pendingEntry{
		direction:  entryDir,
		contracts:  check.Contracts,
		stopPrice:  *sig.StopPrice,
		signalDate: day,
	}
	st.strategy[sym] = PositionState{
		Direction:         entryDir,
		EntryPrice:        bar.Close,
		EntryDate:         day,
		StopPrice:         *sig.StopPrice,
		Contracts:         check.Contracts,
		LastExitDate:      st.strategy[sym].LastExitDate,
		LastExitDirection: st.strategy[sym].LastExitDirection,
	}
}

// handleExit records the exit signal, updates the strategy's cooldown state
// and closes the portfolio position when one is still open. Positions already
// removed by the stop sweep only get their signal and bookkeeping here.
func (b *Backtester) handleExit(runID int, day time.Time, sym string, inst model.Instrument, sig StrategySignal, st *runState) {
	b.recordSignal(runID, inst.ID, day, sig.Action.SignalType(), sig.Price, 0, nil, sig.Reason)

	prior := st.strategy[sym]
	exitDate := day
	st.strategy[sym] = PositionState{
		LastExitDate:      &exitDate,
		LastExitDirection: prior.Direction,
	}

	if pos := st.positions[sym]; pos != nil {
		b.closePosition(runID, day, sym, inst, pos, sig.Price, st)
	}
	// An exit while the entry fill is still pending cancels the entry
	delete(st.pending, sym)
}

// closePosition executes an exit fill at the given price and books the trade
func (b *Backtester) closePosition(runID int, day time.Time, sym string, inst model.Instrument, pos *openPosition, price float64, st *runState) {
	sign := 1.0
	side := model.OrderSideSell
	if pos.direction == DirectionShort {
		sign = -1.0
		side = model.OrderSideBuy
	}

	pnl := (price - pos.entryPrice) * sign * float64(pos.contracts) * inst.Multiplier
	commission := b.cfg.CommissionPerContract * float64(pos.contracts)
	st.cash += pnl - commission

	// Round-trip result, both commission legs included
	st.tradePnLs = append(st.tradePnLs, pnl-2*commission)

	delete(st.positions, sym)
	b.recordFill(runID, inst.ID, day, side, pos.contracts, price, commission, 0)
}

// unrealizedPnL marks all open positions at their latest known price. The
// symbol-ordered walk keeps floating-point sums identical across runs.
func (b *Backtester) unrealizedPnL(st *runState, symbols []string) float64 {
	total := 0.0
	for _, sym := range symbols {
		pos := st.positions[sym]
		if pos == nil {
			continue
		}
		total += positionPnL(pos)
	}
	return total
}

func positionPnL(pos *openPosition) float64 {
	sign := 1.0
	if pos.direction == DirectionShort {
		sign = -1.0
	}
	return (pos.lastPrice - pos.entryPrice) * sign * float64(pos.contracts) * pos.multiplier
}

// openValues returns the notional exposure of every open position for the
// risk engine's exposure checks, in symbol order
func (b *Backtester) openValues(st *runState, symbols []string) []PositionValue {
	values := make([]PositionValue, 0, len(st.positions))
	for _, sym := range symbols {
		pos := st.positions[sym]
		if pos == nil {
			continue
		}
		values = append(values, PositionValue{
			Symbol: sym,
			Value:  pos.lastPrice * float64(pos.contracts) * pos.multiplier,
		})
	}
	return values
}

// recordSnapshot books the end-of-day portfolio state and feeds the metric
// series
func (b *Backtester) recordSnapshot(runID int, day time.Time, startOfDay float64, symbols []string, st *runState) {
	unrealized := 0.0
	exposure := 0.0
	numPositions := 0
	for _, sym := range symbols {
		pos := st.positions[sym]
		if pos == nil {
			continue
		}
		numPositions++
		unrealized += positionPnL(pos)
		exposure += abs(pos.lastPrice * float64(pos.contracts) * pos.multiplier)
	}

	equity := st.cash + unrealized
	if equity > st.peakEquity {
		st.peakEquity = equity
	}
	dd := Drawdown(equity, st.peakEquity)

	rid := runID
	b.rec.RecordSnapshot(model.PortfolioSnapshot{
		BacktestRunID: &rid,
		Date:          day,
		Equity:        equity,
		Cash:          st.cash,
		UnrealizedPnL: unrealized,
		RealizedPnL:   st.cash - b.cfg.InitialCapital,
		DailyPnL:      equity - startOfDay,
		Drawdown:      dd,
		TotalExposure: exposure,
		NumPositions:  numPositions,
	})

	st.dates = append(st.dates, day)
	st.equities = append(st.equities, equity)
	st.drawdowns = append(st.drawdowns, dd)
}

func (b *Backtester) recordSignal(runID, instrumentID int, day time.Time, sigType model.SignalType, price float64, contracts int, stopPrice *float64, reason string) {
	rid := runID
	b.rec.RecordSignal(model.Signal{
		InstrumentID:    instrumentID,
		BacktestRunID:   &rid,
		Date:            day,
		SignalType:      sigType,
		Price:           price,
		TargetContracts: contracts,
		StopPrice:       stopPrice,
		Reason:          reason,
	})
}

func (b *Backtester) recordFill(runID, instrumentID int, day time.Time, side model.OrderSide, quantity int, price, commission, slippageTicks float64) {
	rid := runID
	b.rec.RecordOrder(
		model.Order{
			InstrumentID:  instrumentID,
			BacktestRunID: &rid,
			OrderDate:     day,
			Side:          side,
			Quantity:      quantity,
			OrderType:     "market",
			Status:        model.OrderStatusFilled,
		},
		model.Fill{
			BacktestRunID: &rid,
			FillDate:      day,
			FillPrice:     price,
			Quantity:      quantity,
			Commission:    commission,
			SlippageTicks: slippageTicks,
		},
	)
}

func toBar(instrumentID int, fb model.FeatureBar) model.Bar {
	return model.Bar{
		InstrumentID: instrumentID,
		Date:         fb.Date,
		Open:         fb.Open,
		High:         fb.High,
		Low:          fb.Low,
		Close:        fb.Close,
		Volume:       fb.Volume,
	}
}

