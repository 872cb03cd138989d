package model

import (
	"time"
)

// OrderSide identifies the direction of an order
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderStatus identifies the lifecycle state of an order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRejected  OrderStatus = "rejected"
)

// Order represents a simulated market order produced by the backtest engine
type Order struct {
	ID            int         `json:"id" db:"id"`
	InstrumentID  int         `json:"instrument_id" db:"instrument_id"`
	BacktestRunID *int        `json:"backtest_run_id,omitempty" db:"backtest_run_id"`
	OrderDate     time.Time   `json:"order_date" db:"order_date"`
	Side          OrderSide   `json:"side" db:"side"`
	Quantity      int         `json:"quantity" db:"quantity"`
	OrderType     string      `json:"order_type" db:"order_type"`
	Status        OrderStatus `json:"status" db:"status"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
}

// Fill is the execution record for an order, including commission and the
// slippage (in ticks) baked into the fill price
type Fill struct {
	ID            int       `json:"id" db:"id"`
	OrderID       int       `json:"order_id" db:"order_id"`
	BacktestRunID *int      `json:"backtest_run_id,omitempty" db:"backtest_run_id"`
	FillDate      time.Time `json:"fill_date" db:"fill_date"`
	FillPrice     float64   `json:"fill_price" db:"fill_price"`
	Quantity      int       `json:"quantity" db:"quantity"`
	Commission    float64   `json:"commission" db:"commission"`
	SlippageTicks float64   `json:"slippage_ticks" db:"slippage_ticks"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
