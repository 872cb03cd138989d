package model

import (
	"time"
)

// Bar represents one daily OHLCV bar for an instrument
type Bar struct {
	ID           int       `json:"id" db:"id"`
	InstrumentID int       `json:"instrument_id" db:"instrument_id"`
	Date         time.Time `json:"date" db:"date"`
	Open         float64   `json:"open" db:"open"`
	High         float64   `json:"high" db:"high"`
	Low          float64   `json:"low" db:"low"`
	Close        float64   `json:"close" db:"close"`
	Volume       float64   `json:"volume" db:"volume"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// BarCreate represents a single bar in an ingest request
type BarCreate struct {
	Date   time.Time `json:"date" binding:"required"`
	Open   float64   `json:"open" binding:"required"`
	High   float64   `json:"high" binding:"required"`
	Low    float64   `json:"low" binding:"required"`
	Close  float64   `json:"close" binding:"required"`
	Volume float64   `json:"volume"`
}

// BarIngestRequest represents a batch of bars to ingest for a symbol
type BarIngestRequest struct {
	Symbol string      `json:"symbol" binding:"required"`
	Bars   []BarCreate `json:"bars" binding:"required,min=1"`
}

// BarQuery represents a query for bar data
type BarQuery struct {
	StartDate *time.Time `json:"start_date" form:"start_date" time_format:"2006-01-02"`
	EndDate   *time.Time `json:"end_date" form:"end_date" time_format:"2006-01-02"`
	Limit     int        `json:"limit" form:"limit"`
}

// DateRange represents the span of available data for an instrument
type DateRange struct {
	Start time.Time `json:"start" db:"start"`
	End   time.Time `json:"end" db:"end"`
}
