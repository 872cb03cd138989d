package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yourorg/volatility-edge/internal/model"
	"github.com/yourorg/volatility-edge/internal/repository"
)

// ErrUnknownInstrument is returned when an operation references a symbol that
// does not exist
var ErrUnknownInstrument = errors.New("unknown instrument")

// csvDateFormats are tried in order when parsing ingested dates
var csvDateFormats = []string{
	"2006-01-02",
	"01/02/2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// MarketDataService handles bar storage and ingestion
type MarketDataService struct {
	barRepo        *repository.BarRepository
	instrumentRepo *repository.InstrumentRepository
	logger         *zap.Logger
}

// NewMarketDataService creates a new market data service
func NewMarketDataService(
	barRepo *repository.BarRepository,
	instrumentRepo *repository.InstrumentRepository,
	logger *zap.Logger,
) *MarketDataService {
	return &MarketDataService{
		barRepo:        barRepo,
		instrumentRepo: instrumentRepo,
		logger:         logger,
	}
}

// GetBars retrieves bars for an instrument within an optional date range
func (s *MarketDataService) GetBars(ctx context.Context, instrumentID int, query *model.BarQuery) ([]model.Bar, error) {
	if instrumentID <= 0 {
		return nil, errors.New("invalid instrument ID")
	}
	return s.barRepo.GetBars(ctx, instrumentID, query.StartDate, query.EndDate, query.Limit)
}

// GetDateRange returns the span of stored bar data for an instrument
func (s *MarketDataService) GetDateRange(ctx context.Context, instrumentID int) (*model.DateRange, error) {
	if instrumentID <= 0 {
		return nil, errors.New("invalid instrument ID")
	}
	return s.barRepo.GetDateRange(ctx, instrumentID)
}

// IngestBars upserts a batch of bars for a symbol and returns the count
func (s *MarketDataService) IngestBars(ctx context.Context, req *model.BarIngestRequest) (int, error) {
	instrument, err := s.instrumentRepo.GetBySymbol(ctx, req.Symbol)
	if err != nil {
		return 0, err
	}
	if instrument == nil {
		return 0, ErrUnknownInstrument
	}

	for i, bar := range req.Bars {
		if err := validateBar(bar); err != nil {
			return 0, fmt.Errorf("bar %d: %w", i+1, err)
		}
	}

	count, err := s.barRepo.UpsertBars(ctx, instrument.ID, req.Bars)
	if err != nil {
		return 0, err
	}

	s.logger.Info("Bars ingested",
		zap.String("symbol", req.Symbol),
		zap.Int("count", count))

	return count, nil
}

// IngestCSV parses a CSV stream of date,open,high,low,close[,volume] rows and
// upserts the bars for the given symbol. A header row is detected and
// skipped. Rows are sorted by date before the upsert.
func (s *MarketDataService) IngestCSV(ctx context.Context, symbol string, r io.Reader) (int, error) {
	instrument, err := s.instrumentRepo.GetBySymbol(ctx, symbol)
	if err != nil {
		return 0, err
	}
	if instrument == nil {
		return 0, ErrUnknownInstrument
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var bars []model.BarCreate
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("line %d: %w", line+1, err)
		}
		line++

		if len(record) < 5 {
			return 0, fmt.Errorf("line %d: expected at least 5 columns, got %d", line, len(record))
		}

		date, err := parseCSVDate(strings.TrimSpace(record[0]))
		if err != nil {
			// The first row is allowed to be a header
			if line == 1 {
				continue
			}
			return 0, fmt.Errorf("line %d: %w", line, err)
		}

		bar := model.BarCreate{Date: date}
		fields := []*float64{&bar.Open, &bar.High, &bar.Low, &bar.Close}
		for i, dst := range fields {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[i+1]), 64)
			if err != nil {
				return 0, fmt.Errorf("line %d column %d: %w", line, i+2, err)
			}
			*dst = v
		}
		if len(record) > 5 && strings.TrimSpace(record[5]) != "" {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[5]), 64)
			if err != nil {
				return 0, fmt.Errorf("line %d column 6: %w", line, err)
			}
			bar.Volume = v
		}

		if err := validateBar(bar); err != nil {
			return 0, fmt.Errorf("line %d: %w", line, err)
		}
		bars = append(bars, bar)
	}

	if len(bars) == 0 {
		return 0, errors.New("no bar rows found in CSV")
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	count, err := s.barRepo.UpsertBars(ctx, instrument.ID, bars)
	if err != nil {
		return 0, err
	}

	s.logger.Info("CSV ingested",
		zap.String("symbol", symbol),
		zap.Int("count", count))

	return count, nil
}

// parseCSVDate tries the supported date layouts in order
func parseCSVDate(value string) (time.Time, error) {
	for _, layout := range csvDateFormats {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC().Truncate(24 * time.Hour), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}

// validateBar checks OHLC consistency
func validateBar(bar model.BarCreate) error {
	if bar.Date.IsZero() {
		return errors.New("date is required")
	}
	if bar.Open <= 0 || bar.High <= 0 || bar.Low <= 0 || bar.Close <= 0 {
		return errors.New("prices must be positive")
	}
	if bar.High < bar.Low {
		return errors.New("high is below low")
	}
	if bar.High < bar.Open || bar.High < bar.Close {
		return errors.New("high is below open or close")
	}
	if bar.Low > bar.Open || bar.Low > bar.Close {
		return errors.New("low is above open or close")
	}
	if bar.Volume < 0 {
		return errors.New("volume cannot be negative")
	}
	return nil
}
