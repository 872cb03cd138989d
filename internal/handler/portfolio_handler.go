package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourorg/volatility-edge/internal/service"
	"github.com/yourorg/volatility-edge/internal/utils"
)

// PortfolioHandler handles portfolio console HTTP requests
type PortfolioHandler struct {
	portfolioService *service.PortfolioService
	logger           *zap.Logger
}

// NewPortfolioHandler creates a new portfolio handler
func NewPortfolioHandler(portfolioService *service.PortfolioService, logger *zap.Logger) *PortfolioHandler {
	return &PortfolioHandler{
		portfolioService: portfolioService,
		logger:           logger,
	}
}

// GetStatus handles the risk console view
// GET /api/v1/portfolio/status
func (h *PortfolioHandler) GetStatus(c *gin.Context) {
	status, err := h.portfolioService.GetStatus(c.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrNoCompletedRun) {
			utils.SendError(c, http.StatusNotFound, "No completed backtest run")
			return
		}
		h.logger.Error("Failed to get portfolio status", zap.Error(err))
		utils.SendError(c, http.StatusInternalServerError, "Failed to get portfolio status")
		return
	}

	c.JSON(http.StatusOK, status)
}

// GetPositions handles retrieving the open positions of the latest run
// GET /api/v1/portfolio/positions
func (h *PortfolioHandler) GetPositions(c *gin.Context) {
	positions, err := h.portfolioService.GetPositions(c.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrNoCompletedRun) {
			utils.SendError(c, http.StatusNotFound, "No completed backtest run")
			return
		}
		h.logger.Error("Failed to get positions", zap.Error(err))
		utils.SendError(c, http.StatusInternalServerError, "Failed to get positions")
		return
	}

	c.JSON(http.StatusOK, positions)
}

// GetEquityCurve handles retrieving the trailing equity curve
// GET /api/v1/portfolio/equity-curve
func (h *PortfolioHandler) GetEquityCurve(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "0"))
	if err != nil || days < 0 {
		utils.SendError(c, http.StatusBadRequest, "Invalid days parameter")
		return
	}

	curve, err := h.portfolioService.GetEquityCurve(c.Request.Context(), days)
	if err != nil {
		if errors.Is(err, service.ErrNoCompletedRun) {
			utils.SendError(c, http.StatusNotFound, "No completed backtest run")
			return
		}
		h.logger.Error("Failed to get equity curve", zap.Error(err))
		utils.SendError(c, http.StatusInternalServerError, "Failed to get equity curve")
		return
	}

	c.JSON(http.StatusOK, curve)
}
