package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourorg/volatility-edge/internal/service"
	"github.com/yourorg/volatility-edge/internal/utils"
)

// FeatureHandler handles feature HTTP requests
type FeatureHandler struct {
	featureService *service.FeatureService
	logger         *zap.Logger
}

// NewFeatureHandler creates a new feature handler
func NewFeatureHandler(featureService *service.FeatureService, logger *zap.Logger) *FeatureHandler {
	return &FeatureHandler{
		featureService: featureService,
		logger:         logger,
	}
}

// GetFeatures handles retrieving stored features for an instrument
// GET /api/v1/instruments/:id/features
func (h *FeatureHandler) GetFeatures(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.SendError(c, http.StatusBadRequest, "Invalid instrument ID")
		return
	}

	var startDate, endDate *time.Time
	if startStr := c.Query("start_date"); startStr != "" {
		t, err := time.Parse("2006-01-02", startStr)
		if err != nil {
			utils.SendError(c, http.StatusBadRequest, "Invalid start_date format. Use YYYY-MM-DD")
			return
		}
		startDate = &t
	}
	if endStr := c.Query("end_date"); endStr != "" {
		t, err := time.Parse("2006-01-02", endStr)
		if err != nil {
			utils.SendError(c, http.StatusBadRequest, "Invalid end_date format. Use YYYY-MM-DD")
			return
		}
		endDate = &t
	}

	features, err := h.featureService.GetFeatures(c.Request.Context(), id, startDate, endDate)
	if err != nil {
		h.logger.Error("Failed to get features", zap.Error(err), zap.Int("instrumentID", id))
		utils.SendError(c, http.StatusInternalServerError, "Failed to get features")
		return
	}

	c.JSON(http.StatusOK, features)
}

// RecomputeFeatures handles recomputing features for one instrument
// POST /api/v1/instruments/:id/features/recompute
func (h *FeatureHandler) RecomputeFeatures(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.SendError(c, http.StatusBadRequest, "Invalid instrument ID")
		return
	}

	count, err := h.featureService.RecomputeFeatures(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrUnknownInstrument) {
			utils.SendError(c, http.StatusNotFound, "Instrument not found")
			return
		}
		if errors.Is(err, service.ErrInsufficientBars) {
			utils.SendError(c, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.logger.Error("Failed to recompute features", zap.Error(err), zap.Int("instrumentID", id))
		utils.SendError(c, http.StatusInternalServerError, "Failed to recompute features")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"instrument_id": id,
		"rows":          count,
	})
}

// RecomputeAll handles recomputing features for every active instrument
// POST /api/v1/features/recompute
func (h *FeatureHandler) RecomputeAll(c *gin.Context) {
	counts, err := h.featureService.RecomputeAll(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to recompute features", zap.Error(err))
		utils.SendError(c, http.StatusInternalServerError, "Failed to recompute features")
		return
	}

	c.JSON(http.StatusOK, gin.H{"rows": counts})
}
