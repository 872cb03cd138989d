package model

import (
	"time"
)

// Feature holds the derived technical indicators for one instrument on one
// date. ATR and MA are always present in persisted rows; the remaining
// indicators are nil until their trailing windows fill.
type Feature struct {
	ID           int       `json:"id" db:"id"`
	InstrumentID int       `json:"instrument_id" db:"instrument_id"`
	Date         time.Time `json:"date" db:"date"`
	ATR          float64   `json:"atr" db:"atr"`
	MA           float64   `json:"ma" db:"ma"`
	MASlope      *float64  `json:"ma_slope" db:"ma_slope"`
	HHLong       *float64  `json:"hh_long" db:"hh_long"`
	LLLong       *float64  `json:"ll_long" db:"ll_long"`
	HHShort      *float64  `json:"hh_short" db:"hh_short"`
	LLShort      *float64  `json:"ll_short" db:"ll_short"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// FeatureBar is a bar joined with its feature row, the unit consumed by the
// backtest engine.
type FeatureBar struct {
	Date    time.Time `db:"date"`
	Open    float64   `db:"open"`
	High    float64   `db:"high"`
	Low     float64   `db:"low"`
	Close   float64   `db:"close"`
	Volume  float64   `db:"volume"`
	ATR     float64   `db:"atr"`
	MA      float64   `db:"ma"`
	MASlope *float64  `db:"ma_slope"`
	HHLong  *float64  `db:"hh_long"`
	LLLong  *float64  `db:"ll_long"`
	HHShort *float64  `db:"hh_short"`
	LLShort *float64  `db:"ll_short"`
}
