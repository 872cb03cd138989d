package event

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Producer publishes backtest lifecycle events to Kafka. A nil Producer (no
// brokers configured) is valid and drops every event.
type Producer struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// BacktestEvent is the payload published on run state transitions
type BacktestEvent struct {
	RunID       int       `json:"run_id"`
	Name        string    `json:"name"`
	Status      string    `json:"status"`
	FinalEquity *float64  `json:"final_equity,omitempty"`
	TotalTrades *int      `json:"total_trades,omitempty"`
	Error       string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewProducer creates a Kafka producer for the given topic. Returns nil when
// no brokers are configured, which disables publishing.
func NewProducer(brokers string, topic string, logger *zap.Logger) *Producer {
	if brokers == "" || topic == "" {
		return nil
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(brokers, ",")...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}

	return &Producer{
		writer: writer,
		logger: logger,
	}
}

// PublishBacktestEvent sends a run lifecycle event, keyed by run ID.
// Publishing failures are logged, never propagated: event delivery must not
// fail a run.
func (p *Producer) PublishBacktestEvent(ctx context.Context, event BacktestEvent) {
	if p == nil {
		return
	}

	event.Timestamp = time.Now()

	value, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("Failed to marshal backtest event", zap.Error(err))
		return
	}

	msg := kafka.Message{
		Key:   []byte(strconv.Itoa(event.RunID)),
		Value: value,
		Time:  event.Timestamp,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish backtest event",
			zap.Int("run_id", event.RunID),
			zap.String("status", event.Status),
			zap.Error(err))
		return
	}

	p.logger.Debug("Backtest event published",
		zap.Int("run_id", event.RunID),
		zap.String("status", event.Status))
}

// Close closes the underlying Kafka writer
func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
