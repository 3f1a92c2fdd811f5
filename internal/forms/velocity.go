package forms

import (
	"github.com/Conceptual-Machines/bachgen/internal/models"
	"github.com/Conceptual-Machines/bachgen/internal/theory"
)

// Harpsichord velocity model.
const (
	BaseVelocity   = 72
	StrongBoost    = 6
	ClimaxBoost    = 16
	maxVelocityOut = 127
)

// ApplyVelocity sets every note's velocity: the base, a boost on strong
// beats and on the extra stressed beats, and the climax boost inside
// climax bars.
func ApplyVelocity(notes []models.NoteEvent, meter theory.TimeSignature, climaxBars, stressBeats []int) {
	climax := make(map[int]bool, len(climaxBars))
	for _, b := range climaxBars {
		climax[b] = true
	}
	stress := make(map[int]bool, len(stressBeats))
	for _, b := range stressBeats {
		stress[b] = true
	}
	for i := range notes {
		n := &notes[i]
		v := BaseVelocity
		onBeat := theory.MetricLevelAt(n.StartTick, meter) != theory.LevelOffbeat
		if theory.IsStrongBeat(n.StartTick, meter) || (onBeat && stress[theory.BeatInBar(n.StartTick, meter)]) {
			v += StrongBoost
		}
		if climax[theory.BarOf(n.StartTick, meter)] {
			v += ClimaxBoost
		}
		n.Velocity = min(v, maxVelocityOut)
		n.ModifiedBy |= models.ModVelocity
	}
}
