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

// BacktestHandler handles backtest HTTP requests
type BacktestHandler struct {
	backtestService *service.BacktestService
	logger          *zap.Logger
}

// NewBacktestHandler creates a new backtest handler
func NewBacktestHandler(backtestService *service.BacktestService, logger *zap.Logger) *BacktestHandler {
	return &BacktestHandler{
		backtestService: backtestService,
		logger:          logger,
	}
}

// CreateBacktest handles launching a backtest. The run executes in the
// background; the response carries the pending run.
// POST /api/v1/backtests
func (h *BacktestHandler) CreateBacktest(c *gin.Context) {
	// Start from the standard defaults so a request only has to name what
	// it overrides
	req := model.BacktestCreateRequest{Config: model.DefaultBacktestConfig()}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendError(c, http.StatusBadRequest, err.Error())
		return
	}

	run, err := h.backtestService.CreateRun(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrUnknownInstrument) {
			utils.SendError(c, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error("Failed to create backtest", zap.Error(err), zap.String("name", req.Name))
		utils.SendError(c, http.StatusBadRequest, err.Error())
		return
	}

	c.JSON(http.StatusAccepted, run)
}

// GetBacktest handles retrieving a backtest run
// GET /api/v1/backtests/:id
func (h *BacktestHandler) GetBacktest(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.SendError(c, http.StatusBadRequest, "Invalid backtest ID")
		return
	}

	run, err := h.backtestService.GetRun(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get backtest", zap.Error(err), zap.Int("id", id))
		utils.SendError(c, http.StatusInternalServerError, "Failed to get backtest")
		return
	}
	if run == nil {
		utils.SendError(c, http.StatusNotFound, "Backtest not found")
		return
	}

	c.JSON(http.StatusOK, run)
}

// ListBacktests handles listing backtest runs with pagination
// GET /api/v1/backtests
func (h *BacktestHandler) ListBacktests(c *gin.Context) {
	params := utils.ParsePageRequest(c, 20, 100)

	runs, total, err := h.backtestService.ListRuns(c.Request.Context(), params.Page, params.Limit)
	if err != nil {
		h.logger.Error("Failed to list backtests", zap.Error(err))
		utils.SendError(c, http.StatusInternalServerError, "Failed to list backtests")
		return
	}

	utils.SendPage(c, http.StatusOK, runs, total, params)
}

// DeleteBacktest handles deleting a run and its artifacts
// DELETE /api/v1/backtests/:id
func (h *BacktestHandler) DeleteBacktest(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.SendError(c, http.StatusBadRequest, "Invalid backtest ID")
		return
	}

	if err := h.backtestService.DeleteRun(c.Request.Context(), id); err != nil {
		if errors.Is(err, service.ErrRunNotFound) {
			utils.SendError(c, http.StatusNotFound, "Backtest not found")
			return
		}
		h.logger.Error("Failed to delete backtest", zap.Error(err), zap.Int("id", id))
		utils.SendError(c, http.StatusConflict, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Backtest deleted"})
}

// GetBacktestResults handles retrieving the full result series of a run
// GET /api/v1/backtests/:id/results
func (h *BacktestHandler) GetBacktestResults(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.SendError(c, http.StatusBadRequest, "Invalid backtest ID")
		return
	}

	results, err := h.backtestService.GetResults(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrRunNotFound) {
			utils.SendError(c, http.StatusNotFound, "Backtest not found")
			return
		}
		h.logger.Error("Failed to get backtest results", zap.Error(err), zap.Int("id", id))
		utils.SendError(c, http.StatusInternalServerError, "Failed to get backtest results")
		return
	}

	c.JSON(http.StatusOK, results)
}
