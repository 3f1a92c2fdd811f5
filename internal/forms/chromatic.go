package forms

import (
	"github.com/Conceptual-Machines/bachgen/internal/models"
	"github.com/Conceptual-Machines/bachgen/internal/planner"
	"github.com/Conceptual-Machines/bachgen/internal/rng"
	"github.com/Conceptual-Machines/bachgen/internal/theory"
)

// ChromaticPassingProbability is the chance a whole step is filled in.
const ChromaticPassingProbability = 0.3

// ChromaticMinDuration is the shortest note split for a passing semitone.
const ChromaticMinDuration = theory.Eighth

// UsesChromaticPassing reports whether a tempo character colours whole
// steps chromatically.
func UsesChromaticPassing(c planner.TempoCharacter) bool {
	return c == planner.TempoExpressive || c == planner.TempoLament
}

// ChromaticPassing fills some whole steps between adjacent flexible notes
// of a voice with the semitone between them: the first note is halved and
// its second half becomes the passing tone.
func ChromaticPassing(notes []models.NoteEvent, ranges map[int]models.VoiceRange, r *rng.Rand) ([]models.NoteEvent, int) {
	models.SortNotes(notes)
	next := nextInVoice(notes)
	out := make([]models.NoteEvent, 0, len(notes))
	count := 0
	for i, n := range notes {
		j := next[i]
		if j < 0 || !n.IsFlexible() || n.Duration < ChromaticMinDuration {
			out = append(out, n)
			continue
		}
		m := notes[j]
		if m.StartTick != n.EndTick() || theory.Abs(m.Pitch-n.Pitch) != 2 || !r.Chance(ChromaticPassingProbability) {
			out = append(out, n)
			continue
		}
		mid := (n.Pitch + m.Pitch) / 2
		if rg, ok := ranges[n.Voice]; ok && !rg.Contains(mid) {
			out = append(out, n)
			continue
		}
		h := n.Duration / 2
		a, b := n, n
		a.Duration = h
		b.StartTick, b.Duration, b.Pitch = n.StartTick+h, n.Duration-h, mid
		b.Source = models.SourceChromaticPassing
		out = append(out, a, b)
		count++
	}
	return out, count
}
