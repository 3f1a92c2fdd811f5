package postprocess

import (
	"github.com/Conceptual-Machines/bachgen/internal/models"
	"github.com/Conceptual-Machines/bachgen/internal/planner"
	"github.com/Conceptual-Machines/bachgen/internal/theory"
)

// ArticulationFactor returns the sounding fraction of a note of length dur
// under profile. French dotted splits by length, brillante by density.
func ArticulationFactor(profile planner.ArticulationProfile, dur theory.Tick) float64 {
	switch profile {
	case planner.ArticulationLegato:
		return 0.95
	case planner.ArticulationModerato:
		return 0.85
	case planner.ArticulationDetache:
		return 0.70
	case planner.ArticulationFrenchDotted:
		if dur >= theory.Quarter {
			return 0.90
		}
		return 0.60
	case planner.ArticulationBrillante:
		if dur <= theory.Sixteenth {
			return 0.90
		}
		return 0.70
	}
	return 1
}

// Articulate scales note durations in place, never below one tick.
func Articulate(notes []models.NoteEvent, profile planner.ArticulationProfile) {
	for i := range notes {
		n := &notes[i]
		f := ArticulationFactor(profile, n.Duration)
		d := max(theory.Tick(float64(n.Duration)*f), 1)
		if d != n.Duration {
			n.Duration = d
			n.ModifiedBy |= models.ModArticulation
		}
	}
}
