package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Conceptual-Machines/bachgen/internal/planner"
	"github.com/Conceptual-Machines/bachgen/internal/services"
	"github.com/Conceptual-Machines/bachgen/internal/theory"
)

// PlanEntry is one line of the Goldberg plan listing
type PlanEntry struct {
	Number        int                  `json:"number"`
	Name          string               `json:"name"`
	Type          string               `json:"type"`
	TimeSignature theory.TimeSignature `json:"time_signature"`
	Tempo         planner.TempoRatio   `json:"tempo_ratio"`
	Voices        int                  `json:"voices"`
	Minor         bool                 `json:"minor"`
}

// GoldbergPlanEntries lists the variations rendered at scale
func GoldbergPlanEntries(scale planner.DurationScale) []PlanEntry {
	var out []PlanEntry
	for _, d := range planner.SelectVariations(planner.GoldbergPlan(), scale) {
		out = append(out, PlanEntry{
			Number:        d.Number,
			Name:          d.Name(),
			Type:          d.Type.String(),
			TimeSignature: d.TimeSignature,
			Tempo:         d.Tempo,
			Voices:        d.Voices,
			Minor:         d.Minor,
		})
	}
	return out
}

// Plan handles GET /api/v1/plan. With form=toccata it lists the sections of
// an archetype, otherwise the Goldberg variations of a scale.
func Plan(c *gin.Context) {
	if c.DefaultQuery("form", services.FormGoldberg) == services.FormToccata {
		a, err := planner.ParseArchetype(c.Query("archetype"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		bars, err := strconv.Atoi(c.DefaultQuery("bars", "24"))
		if err != nil || bars < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bars must be a positive integer"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"form":      services.FormToccata,
			"archetype": a.String(),
			"bars":      bars,
			"sections":  planner.ToccataPlan(a, bars),
		})
		return
	}

	scale, err := planner.ParseDurationScale(c.Query("scale"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	entries := GoldbergPlanEntries(scale)
	c.JSON(http.StatusOK, gin.H{
		"form":       services.FormGoldberg,
		"scale":      scale.String(),
		"count":      len(entries),
		"variations": entries,
	})
}
