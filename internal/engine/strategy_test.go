package engine

import (
	"testing"
	"time"
)

func testFeatureView() FeatureView {
	return FeatureView{
		ATR:          fp(5.0),
		MA:           fp(95.0),
		MASlope:      fp(0.5),
		BreakoutHigh: fp(105.0),
		BreakoutLow:  fp(85.0),
		ExitHigh:     fp(104.0),
		ExitLow:      fp(96.0),
	}
}

func TestTrendFilter(t *testing.T) {
	s := NewStrategy(DefaultStrategyConfig())

	tests := []struct {
		name    string
		close   float64
		ma      *float64
		maSlope *float64
		want    Direction
	}{
		{"long when close above rising MA", 100, fp(95), fp(0.5), DirectionLong},
		{"short when close below falling MA", 90, fp(95), fp(-0.5), DirectionShort},
		{"neutral when close above falling MA", 100, fp(95), fp(-0.5), DirectionNeutral},
		{"neutral when close below rising MA", 90, fp(95), fp(0.5), DirectionNeutral},
		{"neutral on flat slope", 100, fp(95), fp(0), DirectionNeutral},
		{"neutral on close equal to MA", 95, fp(95), fp(0.5), DirectionNeutral},
		{"neutral when MA undefined", 100, nil, fp(0.5), DirectionNeutral},
		{"neutral when slope undefined", 100, fp(95), nil, DirectionNeutral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.TrendFilter(tt.close, tt.ma, tt.maSlope); got != tt.want {
				t.Fatalf("TrendFilter() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStopPrice(t *testing.T) {
	s := NewStrategy(StrategyConfig{StopATRMultiple: 2.0, CooldownDays: 3})

	if got := s.StopPrice(100, 5, DirectionLong); got != 90 {
		t.Fatalf("long stop = %v, want 90", got)
	}
	if got := s.StopPrice(100, 5, DirectionShort); got != 110 {
		t.Fatalf("short stop = %v, want 110", got)
	}
}

func TestGenerateSignalLongBreakoutEntry(t *testing.T) {
	s := NewStrategy(DefaultStrategyConfig())

	cur := mkBar(2, 105, 107, 103, 106)
	prev := mkBar(1, 103, 105, 102, 104)
	fv := testFeatureView()

	sig := s.GenerateSignal(day(2), cur, &prev, fv, PositionState{})

	if sig.Action != ActionEntryLong {
		t.Fatalf("action = %v, want entry_long", sig.Action)
	}
	if sig.StopPrice == nil || *sig.StopPrice != 96 {
		t.Fatalf("stop = %v, want 96", sig.StopPrice)
	}
	if sig.Price != 106 {
		t.Fatalf("price = %v, want close 106", sig.Price)
	}
	if sig.Trend != DirectionLong {
		t.Fatalf("trend = %v, want long", sig.Trend)
	}
}

func TestGenerateSignalShortBreakoutEntry(t *testing.T) {
	s := NewStrategy(DefaultStrategyConfig())

	cur := mkBar(2, 86, 87, 83, 84)
	prev := mkBar(1, 87, 88, 85, 86)
	fv := testFeatureView()
	fv.MA = fp(90.0)
	fv.MASlope = fp(-0.5)

	sig := s.GenerateSignal(day(2), cur, &prev, fv, PositionState{})

	if sig.Action != ActionEntryShort {
		t.Fatalf("action = %v, want entry_short", sig.Action)
	}
	if sig.StopPrice == nil || *sig.StopPrice != 94 {
		t.Fatalf("stop = %v, want 94", sig.StopPrice)
	}
}

func TestGenerateSignalNoBreakoutWithoutCross(t *testing.T) {
	s := NewStrategy(DefaultStrategyConfig())

	// Both closes already above the reference, so no fresh cross
	cur := mkBar(2, 106, 108, 105, 107)
	prev := mkBar(1, 105, 107, 104, 106)

	sig := s.GenerateSignal(day(2), cur, &prev, testFeatureView(), PositionState{})
	if sig.Action != ActionNoAction {
		t.Fatalf("action = %v, want no_action when close was already above the reference", sig.Action)
	}
}

func TestGenerateSignalRequiresPreviousBar(t *testing.T) {
	s := NewStrategy(DefaultStrategyConfig())

	cur := mkBar(1, 105, 107, 103, 106)
	sig := s.GenerateSignal(day(1), cur, nil, testFeatureView(), PositionState{})
	if sig.Action != ActionNoAction {
		t.Fatalf("action = %v, want no_action without a previous bar", sig.Action)
	}
}

func TestGenerateSignalCooldown(t *testing.T) {
	s := NewStrategy(StrategyConfig{StopATRMultiple: 2.0, CooldownDays: 3})

	cur := mkBar(3, 105, 107, 103, 106)
	prev := mkBar(2, 103, 105, 102, 104)

	exitDay := day(1)
	pos := PositionState{LastExitDate: &exitDay, LastExitDirection: DirectionLong}

	// Two days after the exit is still inside the three-day cooldown
	sig := s.GenerateSignal(day(3), cur, &prev, testFeatureView(), pos)
	if sig.Action != ActionNoAction {
		t.Fatalf("action = %v, want no_action during cooldown", sig.Action)
	}

	// Four days after the exit the cooldown has elapsed
	cur4 := mkBar(5, 105, 107, 103, 106)
	prev4 := mkBar(4, 103, 105, 102, 104)
	sig = s.GenerateSignal(day(5), cur4, &prev4, testFeatureView(), pos)
	if sig.Action != ActionEntryLong {
		t.Fatalf("action = %v, want entry_long after cooldown", sig.Action)
	}
}

func TestGenerateSignalCooldownOnlyBlocksSameDirection(t *testing.T) {
	s := NewStrategy(StrategyConfig{StopATRMultiple: 2.0, CooldownDays: 3})

	// Short setup one day after a long exit
	cur := mkBar(2, 86, 87, 83, 84)
	prev := mkBar(1, 87, 88, 85, 86)
	fv := testFeatureView()
	fv.MA = fp(90.0)
	fv.MASlope = fp(-0.5)

	exitDay := day(1)
	pos := PositionState{LastExitDate: &exitDay, LastExitDirection: DirectionLong}

	sig := s.GenerateSignal(day(2), cur, &prev, fv, pos)
	if sig.Action != ActionEntryShort {
		t.Fatalf("action = %v, want entry_short, opposite direction is never in cooldown", sig.Action)
	}
}

func TestGenerateSignalStopBeatsRuleExit(t *testing.T) {
	s := NewStrategy(DefaultStrategyConfig())

	// Low touches the stop and the close is also below the exit reference
	cur := mkBar(5, 95, 96, 89, 94)
	prev := mkBar(4, 97, 98, 94, 95)
	pos := PositionState{
		Direction:  DirectionLong,
		EntryPrice: 106,
		EntryDate:  day(2),
		StopPrice:  90,
		Contracts:  2,
	}

	sig := s.GenerateSignal(day(5), cur, &prev, testFeatureView(), pos)
	if sig.Action != ActionStopLong {
		t.Fatalf("action = %v, want stop_long to take priority over the rule exit", sig.Action)
	}
	if sig.Price != 90 {
		t.Fatalf("price = %v, want the stop price 90", sig.Price)
	}
}

func TestGenerateSignalRuleExit(t *testing.T) {
	s := NewStrategy(DefaultStrategyConfig())

	cur := mkBar(5, 96, 97, 94.5, 95)
	prev := mkBar(4, 98, 99, 96, 97)
	pos := PositionState{
		Direction:  DirectionLong,
		EntryPrice: 106,
		StopPrice:  90,
		Contracts:  2,
	}

	sig := s.GenerateSignal(day(5), cur, &prev, testFeatureView(), pos)
	if sig.Action != ActionExitLong {
		t.Fatalf("action = %v, want exit_long when close crosses below the short-window low", sig.Action)
	}
	if sig.Price != 95 {
		t.Fatalf("price = %v, want the close 95", sig.Price)
	}
}

func TestGenerateSignalHold(t *testing.T) {
	s := NewStrategy(DefaultStrategyConfig())

	cur := mkBar(5, 100, 102, 98, 101)
	prev := mkBar(4, 99, 101, 97, 100)
	pos := PositionState{
		Direction:  DirectionLong,
		EntryPrice: 98,
		StopPrice:  90,
		Contracts:  2,
	}

	sig := s.GenerateSignal(day(5), cur, &prev, testFeatureView(), pos)
	if sig.Action != ActionHold {
		t.Fatalf("action = %v, want hold", sig.Action)
	}
}

func TestGenerateSignalDeterminism(t *testing.T) {
	s := NewStrategy(DefaultStrategyConfig())

	cur := mkBar(2, 105, 107, 103, 106)
	prev := mkBar(1, 103, 105, 102, 104)
	fv := testFeatureView()

	first := s.GenerateSignal(day(2), cur, &prev, fv, PositionState{})
	for i := 0; i < 10; i++ {
		again := s.GenerateSignal(day(2), cur, &prev, fv, PositionState{})
		if again.Action != first.Action || again.Price != first.Price || again.Reason != first.Reason {
			t.Fatalf("identical inputs produced a different signal on repeat %d", i)
		}
	}
}

func TestStopHit(t *testing.T) {
	s := NewStrategy(DefaultStrategyConfig())

	tests := []struct {
		name string
		high float64
		low  float64
		stop float64
		dir  Direction
		want bool
	}{
		{"long stop touched by low", 101, 89.9, 90, DirectionLong, true},
		{"long stop exactly at low", 101, 90, 90, DirectionLong, true},
		{"long stop untouched", 101, 90.1, 90, DirectionLong, false},
		{"short stop touched by high", 110.1, 100, 110, DirectionShort, true},
		{"short stop untouched", 109.9, 100, 110, DirectionShort, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.StopHit(tt.high, tt.low, tt.stop, tt.dir); got != tt.want {
				t.Fatalf("StopHit() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInCooldownBoundaries(t *testing.T) {
	s := NewStrategy(StrategyConfig{StopATRMultiple: 2.0, CooldownDays: 3})

	exitDay := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	pos := PositionState{LastExitDate: &exitDay, LastExitDirection: DirectionLong}

	if !s.InCooldown(exitDay.AddDate(0, 0, 2), pos, DirectionLong) {
		t.Fatalf("two days after exit must still be in cooldown")
	}
	if s.InCooldown(exitDay.AddDate(0, 0, 3), pos, DirectionLong) {
		t.Fatalf("exactly cooldown days after exit must be tradable")
	}
	if s.InCooldown(exitDay.AddDate(0, 0, 1), pos, DirectionShort) {
		t.Fatalf("cooldown must not apply to the opposite direction")
	}
	if s.InCooldown(exitDay.AddDate(0, 0, 1), PositionState{}, DirectionLong) {
		t.Fatalf("cooldown must not apply without a prior exit")
	}
}
