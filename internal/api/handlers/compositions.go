package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Conceptual-Machines/bachgen/internal/database"
	"github.com/Conceptual-Machines/bachgen/internal/logger"
)

// CompositionHandler serves the archive of generated works
type CompositionHandler struct {
	store *database.Store
}

func NewCompositionHandler(store *database.Store) *CompositionHandler {
	return &CompositionHandler{store: store}
}

// List handles GET /api/v1/compositions
func (h *CompositionHandler) List(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultListPageSize)))
	if err != nil || limit < 1 || limit > maxListPageSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("limit must be between 1 and %d", maxListPageSize)})
		return
	}
	items, err := h.store.List(c.Request.Context(), c.Query("form"), limit)
	if err != nil {
		logger.Error("Failed to list compositions", err, logger.WithContext(c))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list compositions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"compositions": items, "count": len(items)})
}

// Get handles GET /api/v1/compositions/:id
func (h *CompositionHandler) Get(c *gin.Context) {
	comp, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Composition not found"})
		return
	}
	if err != nil {
		logger.Error("Failed to load composition", err, logger.WithContext(c))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load composition"})
		return
	}
	if c.DefaultQuery("format", formatJSON) == formatMIDI {
		writeMIDI(c, fmt.Sprintf("%s-%d.mid", comp.Form, comp.Seed), comp.MIDI)
		return
	}
	c.JSON(http.StatusOK, comp)
}

// Delete handles DELETE /api/v1/compositions/:id
func (h *CompositionHandler) Delete(c *gin.Context) {
	err := h.store.Delete(c.Request.Context(), c.Param("id"))
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Composition not found"})
		return
	}
	if err != nil {
		logger.Error("Failed to delete composition", err, logger.WithContext(c))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete composition"})
		return
	}
	c.Status(http.StatusNoContent)
}
