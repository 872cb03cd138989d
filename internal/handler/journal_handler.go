package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourorg/volatility-edge/internal/model"
	"github.com/yourorg/volatility-edge/internal/service"
	"github.com/yourorg/volatility-edge/internal/utils"
)

// JournalHandler handles trading journal HTTP requests
type JournalHandler struct {
	journalService *service.JournalService
	logger         *zap.Logger
}

// NewJournalHandler creates a new journal handler
func NewJournalHandler(journalService *service.JournalService, logger *zap.Logger) *JournalHandler {
	return &JournalHandler{
		journalService: journalService,
		logger:         logger,
	}
}

// CreateEntry handles creating a journal entry
// POST /api/v1/journal
func (h *JournalHandler) CreateEntry(c *gin.Context) {
	var create model.JournalEntryCreate
	if err := c.ShouldBindJSON(&create); err != nil {
		utils.SendError(c, http.StatusBadRequest, err.Error())
		return
	}

	entry, err := h.journalService.CreateEntry(c.Request.Context(), &create)
	if err != nil {
		h.logger.Error("Failed to create journal entry", zap.Error(err))
		utils.SendError(c, http.StatusInternalServerError, "Failed to create journal entry")
		return
	}

	c.JSON(http.StatusCreated, entry)
}

// GetEntry handles retrieving a journal entry
// GET /api/v1/journal/:id
func (h *JournalHandler) GetEntry(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.SendError(c, http.StatusBadRequest, "Invalid entry ID")
		return
	}

	entry, err := h.journalService.GetEntry(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get journal entry", zap.Error(err), zap.Int("id", id))
		utils.SendError(c, http.StatusInternalServerError, "Failed to get journal entry")
		return
	}
	if entry == nil {
		utils.SendError(c, http.StatusNotFound, "Journal entry not found")
		return
	}

	c.JSON(http.StatusOK, entry)
}

// ListEntries handles listing journal entries with pagination
// GET /api/v1/journal
func (h *JournalHandler) ListEntries(c *gin.Context) {
	params := utils.ParsePageRequest(c, 20, 100)

	entries, total, err := h.journalService.ListEntries(c.Request.Context(), params.Page, params.Limit)
	if err != nil {
		h.logger.Error("Failed to list journal entries", zap.Error(err))
		utils.SendError(c, http.StatusInternalServerError, "Failed to list journal entries")
		return
	}

	utils.SendPage(c, http.StatusOK, entries, total, params)
}

// UpdateEntry handles a partial update of a journal entry
// PUT /api/v1/journal/:id
func (h *JournalHandler) UpdateEntry(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.SendError(c, http.StatusBadRequest, "Invalid entry ID")
		return
	}

	var update model.JournalEntryUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		utils.SendError(c, http.StatusBadRequest, err.Error())
		return
	}

	entry, err := h.journalService.UpdateEntry(c.Request.Context(), id, &update)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			utils.SendError(c, http.StatusNotFound, "Journal entry not found")
			return
		}
		h.logger.Error("Failed to update journal entry", zap.Error(err), zap.Int("id", id))
		utils.SendError(c, http.StatusBadRequest, err.Error())
		return
	}

	c.JSON(http.StatusOK, entry)
}

// DeleteEntry handles deleting a journal entry
// DELETE /api/v1/journal/:id
func (h *JournalHandler) DeleteEntry(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.SendError(c, http.StatusBadRequest, "Invalid entry ID")
		return
	}

	if err := h.journalService.DeleteEntry(c.Request.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			utils.SendError(c, http.StatusNotFound, "Journal entry not found")
			return
		}
		h.logger.Error("Failed to delete journal entry", zap.Error(err), zap.Int("id", id))
		utils.SendError(c, http.StatusInternalServerError, "Failed to delete journal entry")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Journal entry deleted"})
}
