package postprocess

import (
	"sort"

	"github.com/Conceptual-Machines/bachgen/internal/models"
	"github.com/Conceptual-Machines/bachgen/internal/theory"
)

// TrimOverlaps cuts each note short where the next note of the same voice
// begins. When two notes of a voice start together the more protected one
// survives, then the longer. It returns the cleaned slice and the number of
// notes trimmed or dropped.
func TrimOverlaps(notes []models.NoteEvent) ([]models.NoteEvent, int) {
	byVoice := models.ByVoice(notes)
	ids := make([]int, 0, len(byVoice))
	for v := range byVoice {
		ids = append(ids, v)
	}
	sort.Ints(ids)

	out := make([]models.NoteEvent, 0, len(notes))
	changed := 0
	for _, v := range ids {
		vn := byVoice[v]
		sort.SliceStable(vn, func(i, j int) bool {
			a, b := vn[i], vn[j]
			if a.StartTick != b.StartTick {
				return a.StartTick < b.StartTick
			}
			if a.Protection() != b.Protection() {
				return a.Protection() > b.Protection()
			}
			return a.Duration > b.Duration
		})
		for i := 0; i < len(vn); i++ {
			n := vn[i]
			if i > 0 && n.StartTick == vn[i-1].StartTick {
				changed++
				continue
			}
			j := i + 1
			for j < len(vn) && vn[j].StartTick == n.StartTick {
				j++
			}
			if j < len(vn) && n.EndTick() > vn[j].StartTick {
				n.Duration = vn[j].StartTick - n.StartTick
				n.ModifiedBy |= models.ModOverlapCleanup
				changed++
			}
			out = append(out, n)
		}
	}
	models.SortNotes(out)
	return out, changed
}

// RaisePicardy turns minor thirds of the tonic that sound at or after from
// into major thirds. Only notes of a minor key are touched.
func RaisePicardy(notes []models.NoteEvent, key theory.Key, from theory.Tick) int {
	if !key.Minor {
		return 0
	}
	third := theory.FloorMod(key.Tonic+3, 12)
	raised := 0
	for i := range notes {
		n := &notes[i]
		if n.EndTick() <= from || theory.PitchClass(n.Pitch) != third {
			continue
		}
		n.Pitch++
		n.Source = models.SourcePicardy
		n.ModifiedBy |= models.ModPicardy
		raised++
	}
	return raised
}
