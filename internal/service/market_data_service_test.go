package service

import (
	"testing"
	"time"

	"github.com/yourorg/volatility-edge/internal/model"
)

func TestParseCSVDate(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
		ok    bool
	}{
		{"2024-03-15", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), true},
		{"03/15/2024", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), true},
		{"2024-03-15 00:00:00", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), true},
		{"Date", time.Time{}, false},
		{"15-03-2024", time.Time{}, false},
		{"", time.Time{}, false},
	}

	for _, tt := range tests {
		got, err := parseCSVDate(tt.input)
		if tt.ok && err != nil {
			t.Fatalf("parseCSVDate(%q) returned error: %v", tt.input, err)
		}
		if !tt.ok {
			if err == nil {
				t.Fatalf("parseCSVDate(%q) expected error, got %v", tt.input, got)
			}
			continue
		}
		if !got.Equal(tt.want) {
			t.Fatalf("parseCSVDate(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestValidateBar(t *testing.T) {
	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	valid := model.BarCreate{Date: day, Open: 100, High: 105, Low: 98, Close: 103, Volume: 1200}
	if err := validateBar(valid); err != nil {
		t.Fatalf("valid bar rejected: %v", err)
	}

	tests := []struct {
		name string
		bar  model.BarCreate
	}{
		{"zero date", model.BarCreate{Open: 100, High: 105, Low: 98, Close: 103}},
		{"non-positive price", model.BarCreate{Date: day, Open: 0, High: 105, Low: 98, Close: 103}},
		{"high below low", model.BarCreate{Date: day, Open: 100, High: 97, Low: 98, Close: 98}},
		{"high below close", model.BarCreate{Date: day, Open: 100, High: 102, Low: 98, Close: 104}},
		{"low above open", model.BarCreate{Date: day, Open: 97, High: 105, Low: 98, Close: 103}},
		{"negative volume", model.BarCreate{Date: day, Open: 100, High: 105, Low: 98, Close: 103, Volume: -1}},
	}

	for _, tt := range tests {
		if err := validateBar(tt.bar); err == nil {
			t.Fatalf("%s: expected error", tt.name)
		}
	}
}
