package service

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/yourorg/volatility-edge/internal/model"
	"github.com/yourorg/volatility-edge/internal/repository"
)

type flushCall struct {
	signals   int
	orders    int
	snapshots int
}

func snapshotOn(n int) model.PortfolioSnapshot {
	return model.PortfolioSnapshot{
		Date:   time.Date(2024, 1, n, 0, 0, 0, 0, time.UTC),
		Equity: 100000,
		Cash:   100000,
	}
}

func TestRunRecorderFlushesIncrementally(t *testing.T) {
	var calls []flushCall
	rec := &runRecorder{
		flushEvery: 3,
		logger:     zap.NewNop(),
		flush: func(signals []model.Signal, orders []repository.OrderWithFill, snapshots []model.PortfolioSnapshot) error {
			calls = append(calls, flushCall{len(signals), len(orders), len(snapshots)})
			return nil
		},
	}

	rec.RecordSignal(model.Signal{SignalType: model.SignalEntryLong})
	rec.RecordOrder(model.Order{}, model.Fill{})
	for n := 1; n <= 7; n++ {
		rec.RecordSnapshot(snapshotOn(n))
	}

	// Days 3 and 6 trigger flushes; day 7 stays buffered
	if len(calls) != 2 {
		t.Fatalf("got %d incremental flushes, want 2", len(calls))
	}
	if calls[0] != (flushCall{signals: 1, orders: 1, snapshots: 3}) {
		t.Fatalf("first flush = %+v, want the buffered signal, order and 3 snapshots", calls[0])
	}
	if calls[1] != (flushCall{snapshots: 3}) {
		t.Fatalf("second flush = %+v, want 3 fresh snapshots only", calls[1])
	}
	if len(rec.snapshots) != 1 {
		t.Fatalf("buffer holds %d snapshots after flushes, want 1", len(rec.snapshots))
	}

	// The final flush drains the remainder
	if err := rec.Flush(); err != nil {
		t.Fatalf("final flush error: %v", err)
	}
	if len(calls) != 3 || calls[2] != (flushCall{snapshots: 1}) {
		t.Fatalf("final flush = %+v, want the last snapshot", calls)
	}
	if err := rec.Flush(); err != nil {
		t.Fatalf("empty flush error: %v", err)
	}
	if len(calls) != 3 {
		t.Fatalf("empty flush must not write, got %d calls", len(calls))
	}
}

func TestRunRecorderRetriesFailedFlush(t *testing.T) {
	var calls int
	fail := true
	rec := &runRecorder{
		flushEvery: 2,
		logger:     zap.NewNop(),
		flush: func(signals []model.Signal, orders []repository.OrderWithFill, snapshots []model.PortfolioSnapshot) error {
			calls++
			if fail {
				return errors.New("db down")
			}
			if len(snapshots) != 4 {
				t.Fatalf("retry flushed %d snapshots, want all 4 buffered", len(snapshots))
			}
			return nil
		},
	}

	rec.RecordSnapshot(snapshotOn(1))
	rec.RecordSnapshot(snapshotOn(2))
	if calls != 1 {
		t.Fatalf("got %d flush attempts, want 1", calls)
	}
	if len(rec.snapshots) != 2 {
		t.Fatalf("failed flush dropped the buffer: %d snapshots left", len(rec.snapshots))
	}

	// The backlog stays due, so the next day retries immediately
	rec.RecordSnapshot(snapshotOn(3))
	if calls != 2 || len(rec.snapshots) != 3 {
		t.Fatalf("after second failure: %d attempts, %d buffered, want 2 and 3", calls, len(rec.snapshots))
	}

	fail = false
	rec.RecordSnapshot(snapshotOn(4))
	if calls != 3 {
		t.Fatalf("got %d flush attempts, want the successful retry", calls)
	}
	if len(rec.snapshots) != 0 {
		t.Fatalf("successful retry left %d snapshots buffered", len(rec.snapshots))
	}
}
