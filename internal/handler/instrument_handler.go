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

// InstrumentHandler handles instrument HTTP requests
type InstrumentHandler struct {
	instrumentService *service.InstrumentService
	logger            *zap.Logger
}

// NewInstrumentHandler creates a new instrument handler
func NewInstrumentHandler(instrumentService *service.InstrumentService, logger *zap.Logger) *InstrumentHandler {
	return &InstrumentHandler{
		instrumentService: instrumentService,
		logger:            logger,
	}
}

// GetInstruments handles listing instruments
// GET /api/v1/instruments
func (h *InstrumentHandler) GetInstruments(c *gin.Context) {
	activeOnly := c.DefaultQuery("active", "false") == "true"

	instruments, err := h.instrumentService.GetInstruments(c.Request.Context(), activeOnly)
	if err != nil {
		h.logger.Error("Failed to get instruments", zap.Error(err))
		utils.SendError(c, http.StatusInternalServerError, "Failed to get instruments")
		return
	}

	c.JSON(http.StatusOK, instruments)
}

// GetInstrument handles retrieving a single instrument
// GET /api/v1/instruments/:id
func (h *InstrumentHandler) GetInstrument(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.SendError(c, http.StatusBadRequest, "Invalid instrument ID")
		return
	}

	instrument, err := h.instrumentService.GetInstrument(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get instrument", zap.Error(err), zap.Int("id", id))
		utils.SendError(c, http.StatusInternalServerError, "Failed to get instrument")
		return
	}
	if instrument == nil {
		utils.SendError(c, http.StatusNotFound, "Instrument not found")
		return
	}

	c.JSON(http.StatusOK, instrument)
}

// CreateInstrument handles creating an instrument
// POST /api/v1/instruments
func (h *InstrumentHandler) CreateInstrument(c *gin.Context) {
	var create model.InstrumentCreate
	if err := c.ShouldBindJSON(&create); err != nil {
		utils.SendError(c, http.StatusBadRequest, err.Error())
		return
	}

	instrument, err := h.instrumentService.CreateInstrument(c.Request.Context(), &create)
	if err != nil {
		if errors.Is(err, service.ErrDuplicateSymbol) {
			utils.SendError(c, http.StatusConflict, "Instrument symbol already exists")
			return
		}
		h.logger.Error("Failed to create instrument", zap.Error(err), zap.String("symbol", create.Symbol))
		utils.SendError(c, http.StatusInternalServerError, "Failed to create instrument")
		return
	}

	c.JSON(http.StatusCreated, instrument)
}

// UpdateInstrument handles updating an instrument
// PUT /api/v1/instruments/:id
func (h *InstrumentHandler) UpdateInstrument(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.SendError(c, http.StatusBadRequest, "Invalid instrument ID")
		return
	}

	var update model.InstrumentCreate
	if err := c.ShouldBindJSON(&update); err != nil {
		utils.SendError(c, http.StatusBadRequest, err.Error())
		return
	}

	instrument, err := h.instrumentService.UpdateInstrument(c.Request.Context(), id, &update)
	if err != nil {
		h.logger.Error("Failed to update instrument", zap.Error(err), zap.Int("id", id))
		utils.SendError(c, http.StatusInternalServerError, "Failed to update instrument")
		return
	}
	if instrument == nil {
		utils.SendError(c, http.StatusNotFound, "Instrument not found")
		return
	}

	c.JSON(http.StatusOK, instrument)
}

// DeactivateInstrument handles soft-deleting an instrument
// DELETE /api/v1/instruments/:id
func (h *InstrumentHandler) DeactivateInstrument(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.SendError(c, http.StatusBadRequest, "Invalid instrument ID")
		return
	}

	if err := h.instrumentService.DeactivateInstrument(c.Request.Context(), id); err != nil {
		h.logger.Error("Failed to deactivate instrument", zap.Error(err), zap.Int("id", id))
		utils.SendError(c, http.StatusInternalServerError, "Failed to deactivate instrument")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Instrument deactivated"})
}
