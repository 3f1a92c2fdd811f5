package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Conceptual-Machines/bachgen/internal/generator"
	"github.com/Conceptual-Machines/bachgen/internal/logger"
	"github.com/Conceptual-Machines/bachgen/internal/models"
	"github.com/Conceptual-Machines/bachgen/internal/services"
)

type GenerationHandler struct {
	composer *services.ComposerService
}

func NewGenerationHandler(composer *services.ComposerService) *GenerationHandler {
	return &GenerationHandler{composer: composer}
}

// Goldberg handles POST /api/v1/goldberg
func (h *GenerationHandler) Goldberg(c *gin.Context) {
	h.generate(c, services.FormGoldberg)
}

// Toccata handles POST /api/v1/toccata
func (h *GenerationHandler) Toccata(c *gin.Context) {
	h.generate(c, services.FormToccata)
}

func (h *GenerationHandler) generate(c *gin.Context, form string) {
	var req models.GenerationRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if req.Form != "" && req.Form != form {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("form %q does not match endpoint %q", req.Form, form)})
		return
	}
	req.Form = form

	comp, err := h.composer.Compose(c.Request.Context(), req)
	if err != nil {
		writeGenerationError(c, err)
		return
	}
	if !comp.Result.Success {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"request_id": c.GetString("request_id"),
			"error":      comp.Result.Error,
			"result":     comp.Result,
		})
		return
	}

	if c.DefaultQuery("format", formatJSON) == formatMIDI {
		writeMIDI(c, fmt.Sprintf("%s-%d.mid", form, comp.Result.Seed), comp.MIDI)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"request_id": c.GetString("request_id"),
		"id":         comp.ID,
		"cached":     comp.Cached,
		"config_key": comp.ConfigKey,
		"result":     comp.Result,
	})
}

func writeGenerationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, generator.ErrInvalidConfig), errors.Is(err, generator.ErrEmptyPlan):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "generation cancelled"})
	default:
		logger.Error("Generation failed", err, logger.WithContext(c))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Generation failed"})
	}
}

func writeMIDI(c *gin.Context, filename string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, midiContentType, data)
}
