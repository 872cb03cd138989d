package model

import (
	"testing"
)

func TestBacktestStatusTerminal(t *testing.T) {
	tests := []struct {
		status BacktestStatus
		want   bool
	}{
		{BacktestStatusPending, false},
		{BacktestStatusRunning, false},
		{BacktestStatusCompleted, true},
		{BacktestStatusFailed, true},
	}

	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.want {
			t.Fatalf("Terminal(%q) = %v, want %v", tt.status, got, tt.want)
		}
	}
}
