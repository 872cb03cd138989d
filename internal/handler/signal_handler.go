package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourorg/volatility-edge/internal/service"
	"github.com/yourorg/volatility-edge/internal/utils"
)

// SignalHandler handles signal HTTP requests
type SignalHandler struct {
	signalService *service.SignalService
	logger        *zap.Logger
}

// NewSignalHandler creates a new signal handler
func NewSignalHandler(signalService *service.SignalService, logger *zap.Logger) *SignalHandler {
	return &SignalHandler{
		signalService: signalService,
		logger:        logger,
	}
}

// GetTodaySignals handles retrieving today's signals
// GET /api/v1/signals/today
func (h *SignalHandler) GetTodaySignals(c *gin.Context) {
	signals, err := h.signalService.GetTodaySignals(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to get today's signals", zap.Error(err))
		utils.SendError(c, http.StatusInternalServerError, "Failed to get signals")
		return
	}

	c.JSON(http.StatusOK, signals)
}

// GetRecentSignals handles retrieving the most recent signals
// GET /api/v1/signals/recent
func (h *SignalHandler) GetRecentSignals(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	signals, err := h.signalService.GetRecentSignals(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to get recent signals", zap.Error(err))
		utils.SendError(c, http.StatusInternalServerError, "Failed to get signals")
		return
	}

	c.JSON(http.StatusOK, signals)
}

// GetSignalsByDate handles retrieving signals for one day
// GET /api/v1/signals/date/:date
func (h *SignalHandler) GetSignalsByDate(c *gin.Context) {
	date, err := time.Parse("2006-01-02", c.Param("date"))
	if err != nil {
		utils.SendError(c, http.StatusBadRequest, "Invalid date format. Use YYYY-MM-DD")
		return
	}

	signals, err := h.signalService.GetSignalsByDate(c.Request.Context(), date)
	if err != nil {
		h.logger.Error("Failed to get signals by date", zap.Error(err), zap.Time("date", date))
		utils.SendError(c, http.StatusInternalServerError, "Failed to get signals")
		return
	}

	c.JSON(http.StatusOK, signals)
}

// GetSignal handles retrieving a single signal
// GET /api/v1/signals/:id
func (h *SignalHandler) GetSignal(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.SendError(c, http.StatusBadRequest, "Invalid signal ID")
		return
	}

	signal, err := h.signalService.GetSignal(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get signal", zap.Error(err), zap.Int("id", id))
		utils.SendError(c, http.StatusInternalServerError, "Failed to get signal")
		return
	}
	if signal == nil {
		utils.SendError(c, http.StatusNotFound, "Signal not found")
		return
	}

	c.JSON(http.StatusOK, signal)
}
