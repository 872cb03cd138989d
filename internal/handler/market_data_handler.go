package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourorg/volatility-edge/internal/model"
	"github.com/yourorg/volatility-edge/internal/service"
	"github.com/yourorg/volatility-edge/internal/utils"
)

// MarketDataHandler handles bar data HTTP requests
type MarketDataHandler struct {
	marketDataService *service.MarketDataService
	logger            *zap.Logger
}

// NewMarketDataHandler creates a new market data handler
func NewMarketDataHandler(marketDataService *service.MarketDataService, logger *zap.Logger) *MarketDataHandler {
	return &MarketDataHandler{
		marketDataService: marketDataService,
		logger:            logger,
	}
}

// GetBars handles retrieving bars for an instrument
// GET /api/v1/instruments/:id/bars
func (h *MarketDataHandler) GetBars(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.SendError(c, http.StatusBadRequest, "Invalid instrument ID")
		return
	}

	var query model.BarQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		utils.SendError(c, http.StatusBadRequest, "Invalid query parameters. Dates use YYYY-MM-DD")
		return
	}

	bars, err := h.marketDataService.GetBars(c.Request.Context(), id, &query)
	if err != nil {
		h.logger.Error("Failed to get bars", zap.Error(err), zap.Int("instrumentID", id))
		utils.SendError(c, http.StatusInternalServerError, "Failed to get bars")
		return
	}

	c.JSON(http.StatusOK, bars)
}

// GetDateRange handles retrieving the span of stored data for an instrument
// GET /api/v1/instruments/:id/bars/range
func (h *MarketDataHandler) GetDateRange(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.SendError(c, http.StatusBadRequest, "Invalid instrument ID")
		return
	}

	dateRange, err := h.marketDataService.GetDateRange(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get date range", zap.Error(err), zap.Int("instrumentID", id))
		utils.SendError(c, http.StatusInternalServerError, "Failed to get date range")
		return
	}
	if dateRange == nil {
		utils.SendError(c, http.StatusNotFound, "No bar data for instrument")
		return
	}

	c.JSON(http.StatusOK, dateRange)
}

// IngestBars handles batch bar ingestion
// POST /api/v1/market-data/bars
func (h *MarketDataHandler) IngestBars(c *gin.Context) {
	var req model.BarIngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendError(c, http.StatusBadRequest, err.Error())
		return
	}

	count, err := h.marketDataService.IngestBars(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrUnknownInstrument) {
			utils.SendError(c, http.StatusNotFound, "Unknown instrument symbol")
			return
		}
		h.logger.Error("Failed to ingest bars", zap.Error(err), zap.String("symbol", req.Symbol))
		utils.SendError(c, http.StatusBadRequest, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol":   req.Symbol,
		"ingested": count,
	})
}

// IngestCSV handles CSV bar ingestion via multipart upload
// POST /api/v1/market-data/csv
func (h *MarketDataHandler) IngestCSV(c *gin.Context) {
	symbol := c.PostForm("symbol")
	if symbol == "" {
		utils.SendError(c, http.StatusBadRequest, "Symbol is required")
		return
	}

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		utils.SendError(c, http.StatusBadRequest, "CSV file is required")
		return
	}
	defer file.Close()

	count, err := h.marketDataService.IngestCSV(c.Request.Context(), symbol, file)
	if err != nil {
		if errors.Is(err, service.ErrUnknownInstrument) {
			utils.SendError(c, http.StatusNotFound, "Unknown instrument symbol")
			return
		}
		h.logger.Error("Failed to ingest CSV", zap.Error(err), zap.String("symbol", symbol))
		utils.SendError(c, http.StatusBadRequest, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol":   symbol,
		"ingested": count,
	})
}
