package engine

import (
	"fmt"
	"time"

	"github.com/yourorg/volatility-edge/internal/model"
)

// Direction is the trend or position direction
type Direction string

const (
	DirectionNone    Direction = ""
	DirectionLong    Direction = "long"
	DirectionShort   Direction = "short"
	DirectionNeutral Direction = "neutral"
)

// Action is the decision the strategy emits for one bar
type Action string

const (
	ActionEntryLong  Action = "entry_long"
	ActionEntryShort Action = "entry_short"
	ActionExitLong   Action = "exit_long"
	ActionExitShort  Action = "exit_short"
	ActionStopLong   Action = "stop_long"
	ActionStopShort  Action = "stop_short"
	ActionHold       Action = "hold"
	ActionNoAction   Action = "no_action"
)

// IsEntry reports whether the action opens a position
func (a Action) IsEntry() bool {
	return a == ActionEntryLong || a == ActionEntryShort
}

// IsExit reports whether the action closes a position (rule exit or stop)
func (a Action) IsExit() bool {
	switch a {
	case ActionExitLong, ActionExitShort, ActionStopLong, ActionStopShort:
		return true
	}
	return false
}

// SignalType maps a strategy action to its persisted signal type. Hold and
// no-action are not persisted and map to the empty string.
func (a Action) SignalType() model.SignalType {
	switch a {
	case ActionEntryLong:
		return model.SignalEntryLong
	case ActionEntryShort:
		return model.SignalEntryShort
	case ActionExitLong:
		return model.SignalExitLong
	case ActionExitShort:
		return model.SignalExitShort
	case ActionStopLong:
		return model.SignalStopLong
	case ActionStopShort:
		return model.SignalStopShort
	}
	return ""
}

// StrategyConfig holds the breakout strategy parameters
type StrategyConfig struct {
	StopATRMultiple float64
	CooldownDays    int
}

// DefaultStrategyConfig returns the standard strategy parameters
func DefaultStrategyConfig() StrategyConfig {
	return StrategyConfig{
		StopATRMultiple: 2.0,
		CooldownDays:    3,
	}
}

// PositionState is the per-instrument strategy state. Direction is
// DirectionNone when flat. The strategy itself never mutates this; the caller
// applies each signal after consuming it.
type PositionState struct {
	Direction         Direction
	EntryPrice        float64
	EntryDate         time.Time
	StopPrice         float64
	Contracts         int
	LastExitDate      *time.Time
	LastExitDirection Direction
}

// FeatureView is the feature slice the strategy sees for one bar. The
// breakout references (BreakoutHigh/BreakoutLow) come from the previous bar's
// long window so today's extreme is excluded, while the exit references come
// from the current bar's short window and include it.
type FeatureView struct {
	ATR          *float64
	MA           *float64
	MASlope      *float64
	BreakoutHigh *float64
	BreakoutLow  *float64
	ExitHigh     *float64
	ExitLow      *float64
}

// StrategySignal is the strategy's decision for one bar, with enough context
// for auditing
type StrategySignal struct {
	Date      time.Time
	Action    Action
	Price     float64
	StopPrice *float64
	Reason    string
	Trend     Direction
	ATR       *float64
	MA        *float64
	MASlope   *float64
}

// Strategy implements the breakout trend-following rules:
//
//   - Long filter: close > MA and MA slope > 0 (short is symmetric)
//   - Entry: close crosses the previous bar's rolling extreme
//   - Initial stop: StopATRMultiple * ATR away from entry
//   - Exit: close crosses the short-window rolling extreme
//   - Catastrophe stop enforced against the bar's high/low
//   - Cooldown after an exit before re-entering the same direction
type Strategy struct {
	cfg StrategyConfig
}

// NewStrategy creates a Strategy with the given parameters
func NewStrategy(cfg StrategyConfig) *Strategy {
	return &Strategy{cfg: cfg}
}

// TrendFilter classifies the trend from close, MA and MA slope. Undefined
// inputs yield a neutral trend.
func (s *Strategy) TrendFilter(close float64, ma, maSlope *float64) Direction {
	if ma == nil || maSlope == nil {
		return DirectionNeutral
	}
	switch {
	case close > *ma && *maSlope > 0:
		return DirectionLong
	case close < *ma && *maSlope < 0:
		return DirectionShort
	default:
		return DirectionNeutral
	}
}

// breakoutEntry returns the entry action when the close crosses the breakout
// reference from the previous bar's side, or empty when no breakout fired
func (s *Strategy) breakoutEntry(close, prevClose float64, f FeatureView, trend Direction) Action {
	if f.BreakoutHigh == nil || f.BreakoutLow == nil {
		return ""
	}
	if trend == DirectionLong && close > *f.BreakoutHigh && prevClose <= *f.BreakoutHigh {
		return ActionEntryLong
	}
	if trend == DirectionShort && close < *f.BreakoutLow && prevClose >= *f.BreakoutLow {
		return ActionEntryShort
	}
	return ""
}

// exitSignal returns the rule-based exit action for an open position, or
// empty when the position should be held
func (s *Strategy) exitSignal(close float64, f FeatureView, dir Direction) Action {
	if f.ExitHigh == nil || f.ExitLow == nil {
		return ""
	}
	if dir == DirectionLong && close < *f.ExitLow {
		return ActionExitLong
	}
	if dir == DirectionShort && close > *f.ExitHigh {
		return ActionExitShort
	}
	return ""
}

// StopHit reports whether the catastrophe stop was touched, judged against
// the bar's high/low rather than its close
func (s *Strategy) StopHit(high, low, stopPrice float64, dir Direction) bool {
	switch dir {
	case DirectionLong:
		return low <= stopPrice
	case DirectionShort:
		return high >= stopPrice
	}
	return false
}

// StopPrice computes the initial stop for an entry at the given price
func (s *Strategy) StopPrice(entryPrice, atr float64, dir Direction) float64 {
	dist := s.cfg.StopATRMultiple * atr
	if dir == DirectionLong {
		return entryPrice - dist
	}
	return entryPrice + dist
}

// InCooldown reports whether a same-direction re-entry is still blocked by
// the cooldown window. Opposite-direction entries are never blocked.
func (s *Strategy) InCooldown(currentDate time.Time, pos PositionState, entryDir Direction) bool {
	if pos.LastExitDate == nil || pos.LastExitDirection == DirectionNone {
		return false
	}
	if pos.LastExitDirection != entryDir {
		return false
	}
	daysSinceExit := int(currentDate.Sub(*pos.LastExitDate).Hours() / 24)
	return daysSinceExit < s.cfg.CooldownDays
}

// GenerateSignal produces exactly one signal for the current bar. It is a
// pure function of its inputs: identical arguments always yield an identical
// signal, and the caller owns all state mutation.
//
// With an open position the checks run in strict priority order: catastrophe
// stop (high/low), then rule exit (close), then hold. When flat, entries
// require a previous bar and pass the trend filter, breakout check and
// cooldown in that order.
func (s *Strategy) GenerateSignal(
	date time.Time,
	cur model.Bar,
	prev *model.Bar,
	f FeatureView,
	pos PositionState,
) StrategySignal {
	base := StrategySignal{
		Date:    date,
		Price:   cur.Close,
		ATR:     f.ATR,
		MA:      f.MA,
		MASlope: f.MASlope,
	}

	if pos.Direction == DirectionLong || pos.Direction == DirectionShort {
		if s.StopHit(cur.High, cur.Low, pos.StopPrice, pos.Direction) {
			sig := base
			sig.Action = ActionStopLong
			if pos.Direction == DirectionShort {
				sig.Action = ActionStopShort
			}
			sig.Price = pos.StopPrice
			sig.Reason = fmt.Sprintf("Catastrophe stop hit at %.2f", pos.StopPrice)
			return sig
		}

		if exit := s.exitSignal(cur.Close, f, pos.Direction); exit != "" {
			sig := base
			sig.Action = exit
			ref := "lowest low"
			if pos.Direction == DirectionShort {
				ref = "highest high"
			}
			sig.Reason = fmt.Sprintf("Exit signal: close crossed %s", ref)
			return sig
		}

		sig := base
		sig.Action = ActionHold
		sig.Reason = "Holding position"
		sig.Trend = pos.Direction
		return sig
	}

	// Flat: a previous bar is required to detect a breakout cross
	if prev == nil {
		sig := base
		sig.Action = ActionNoAction
		sig.Reason = "No previous bar data"
		return sig
	}

	trend := s.TrendFilter(cur.Close, f.MA, f.MASlope)
	if trend == DirectionNeutral {
		sig := base
		sig.Action = ActionNoAction
		sig.Reason = "No clear trend (neutral filter)"
		sig.Trend = trend
		return sig
	}

	entry := s.breakoutEntry(cur.Close, prev.Close, f, trend)
	if entry == "" {
		sig := base
		sig.Action = ActionNoAction
		sig.Reason = fmt.Sprintf("Trend %s but no breakout", trend)
		sig.Trend = trend
		return sig
	}

	entryDir := DirectionLong
	if entry == ActionEntryShort {
		entryDir = DirectionShort
	}
	if s.InCooldown(date, pos, entryDir) {
		daysLeft := s.cfg.CooldownDays - int(date.Sub(*pos.LastExitDate).Hours()/24)
		sig := base
		sig.Action = ActionNoAction
		sig.Reason = fmt.Sprintf("In cooldown period (%d days remaining)", daysLeft)
		sig.Trend = trend
		return sig
	}

	if f.ATR == nil {
		sig := base
		sig.Action = ActionNoAction
		sig.Reason = "ATR undefined, cannot place stop"
		sig.Trend = trend
		return sig
	}

	stop := s.StopPrice(cur.Close, *f.ATR, entryDir)
	ref := "above highest high"
	if entryDir == DirectionShort {
		ref = "below lowest low"
	}
	sig := base
	sig.Action = entry
	sig.StopPrice = &stop
	sig.Reason = fmt.Sprintf("Breakout entry: close broke %s", ref)
	sig.Trend = trend
	return sig
}
