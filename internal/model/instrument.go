package model

import (
	"time"
)

// Instrument represents a tradable futures contract. The multiplier converts
// price points into dollar P&L (e.g. 50 for ES).
type Instrument struct {
	ID         int       `json:"id" db:"id"`
	Symbol     string    `json:"symbol" db:"symbol"`
	Name       string    `json:"name" db:"name"`
	Exchange   string    `json:"exchange" db:"exchange"`
	TickSize   float64   `json:"tick_size" db:"tick_size"`
	Multiplier float64   `json:"multiplier" db:"multiplier"`
	Currency   string    `json:"currency" db:"currency"`
	Active     bool      `json:"active" db:"active"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// InstrumentCreate represents the payload for creating or updating an instrument
type InstrumentCreate struct {
	Symbol     string  `json:"symbol" binding:"required"`
	Name       string  `json:"name" binding:"required"`
	Exchange   string  `json:"exchange"`
	TickSize   float64 `json:"tick_size" binding:"required,gt=0"`
	Multiplier float64 `json:"multiplier" binding:"required,gt=0"`
	Currency   string  `json:"currency"`
	Active     *bool   `json:"active"`
}
