package forms

import (
	"fmt"
	"sort"

	"github.com/Conceptual-Machines/bachgen/internal/models"
	"github.com/Conceptual-Machines/bachgen/internal/planner"
	"github.com/Conceptual-Machines/bachgen/internal/theory"
)

// CanonAccuracyThreshold is the pitch accuracy a valid canon must reach.
const CanonAccuracyThreshold = 0.95

// CanonTimingTolerance is how far a comes onset may drift from its dux.
const CanonTimingTolerance theory.Tick = 1

const maxValidationErrors = 10

// CanonValidation is the pairwise comparison of dux and comes.
type CanonValidation struct {
	Pairs          int      `json:"pairs"`
	PitchMatches   int      `json:"pitch_matches"`
	TimingErrors   int      `json:"timing_errors"`
	DurationErrors int      `json:"duration_errors"`
	Unpaired       int      `json:"unpaired"`
	PitchAccuracy  float64  `json:"pitch_accuracy"`
	Passed         bool     `json:"passed"`
	Errors         []string `json:"errors,omitempty"`
}

func (v *CanonValidation) fail(format string, args ...any) {
	if len(v.Errors) < maxValidationErrors {
		v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
	}
}

// ValidateCanon pairs the i-th dux note with the i-th comes note and checks
// the transformed pitch, the onset delay within one tick and, under strict
// rhythm, equal durations. Dux notes without a partner count against the
// accuracy. The canon passes at 95% pitch accuracy with no timing errors.
func ValidateCanon(dux, comes []models.NoteEvent, d planner.CanonDescriptor, delay theory.Tick, axis int, key theory.Key, scale theory.ScaleType, strict bool) CanonValidation {
	dux = sortedCopy(dux)
	comes = sortedCopy(comes)
	v := CanonValidation{Pairs: len(dux)}
	for i, dn := range dux {
		if i >= len(comes) {
			v.Unpaired++
			v.fail("dux note %d at %d has no comes", i, dn.StartTick)
			continue
		}
		cn := comes[i]
		want := ComesPitch(dn.Pitch, d, axis, key, scale)
		if cn.Pitch == want {
			v.PitchMatches++
		} else {
			v.fail("pair %d: comes pitch %d, want %d", i, cn.Pitch, want)
		}
		if drift := cn.StartTick - dn.StartTick - delay; theory.Abs(int(drift)) > int(CanonTimingTolerance) {
			v.TimingErrors++
			v.fail("pair %d: comes onset off by %d ticks", i, drift)
		}
		if strict && cn.Duration != dn.Duration {
			v.DurationErrors++
			v.fail("pair %d: comes lasts %d, dux %d", i, cn.Duration, dn.Duration)
		}
	}
	if v.Pairs > 0 {
		v.PitchAccuracy = float64(v.PitchMatches) / float64(v.Pairs)
	} else {
		v.PitchAccuracy = 1
	}
	v.Passed = v.PitchAccuracy >= CanonAccuracyThreshold && v.TimingErrors == 0 && (!strict || v.DurationErrors == 0)
	return v
}

func sortedCopy(notes []models.NoteEvent) []models.NoteEvent {
	out := append([]models.NoteEvent(nil), notes...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTick < out[j].StartTick })
	return out
}
