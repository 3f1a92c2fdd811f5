package forms

import (
	"github.com/Conceptual-Machines/bachgen/internal/models"
	"github.com/Conceptual-Machines/bachgen/internal/rng"
	"github.com/Conceptual-Machines/bachgen/internal/theory"
)

// OrnamentRepeatProbability is the share of eligible notes ornamented on
// a repeat.
const OrnamentRepeatProbability = 0.25

// OrnamentMinDuration is the shortest note the repeat ornaments.
const OrnamentMinDuration = theory.Quarter

// BinaryRepeat lays notes out as A A B B, where A is the first half of
// bars grid bars. It returns the repeated notes and, for each rendered
// bar, the grid bar it plays. A note crossing the half is cut at it.
func BinaryRepeat(notes []models.NoteEvent, bars int, barTicks theory.Tick) ([]models.NoteEvent, []int) {
	half := bars / 2
	mid := theory.Tick(half) * barTicks
	halfLen := mid
	total := theory.Tick(bars) * barTicks

	out := make([]models.NoteEvent, 0, 2*len(notes))
	for _, n := range notes {
		if n.StartTick < mid {
			if n.EndTick() > mid {
				n.Duration = mid - n.StartTick
			}
			a2 := n
			a2.StartTick += halfLen
			out = append(out, n, a2)
			continue
		}
		if n.EndTick() > total {
			n.Duration = total - n.StartTick
		}
		b1 := n
		b1.StartTick += halfLen
		b2 := n
		b2.StartTick += 2 * halfLen
		out = append(out, b1, b2)
	}

	barMap := make([]int, 0, 2*bars)
	for rep := 0; rep < 2; rep++ {
		for b := 0; b < half; b++ {
			barMap = append(barMap, b)
		}
	}
	for rep := 0; rep < 2; rep++ {
		for b := half; b < bars; b++ {
			barMap = append(barMap, b)
		}
	}
	models.SortNotes(out)
	return out, barMap
}

// OrnamentRepeat decorates flexible notes of the second statement of each
// half: a lower mordent, or a passing tone into the next note of the voice
// when it lies a third away. Ornaments that would leave the voice's range
// are skipped.
func OrnamentRepeat(notes []models.NoteEvent, bars int, barTicks theory.Tick, ranges map[int]models.VoiceRange, key theory.Key, scale theory.ScaleType, r *rng.Rand) ([]models.NoteEvent, int) {
	half := theory.Tick(bars/2) * barTicks
	repeated := func(t theory.Tick) bool {
		return (t >= half && t < 2*half) || t >= 3*half
	}
	models.SortNotes(notes)
	next := nextInVoice(notes)

	var out []models.NoteEvent
	count := 0
	for i, n := range notes {
		if !repeated(n.StartTick) || !n.IsFlexible() || n.Duration < OrnamentMinDuration || !r.Chance(OrnamentRepeatProbability) {
			out = append(out, n)
			continue
		}
		rg, ok := ranges[n.Voice]
		var orn []models.NoteEvent
		if j := next[i]; j >= 0 && theory.Abs(notes[j].Pitch-n.Pitch) >= 3 && theory.Abs(notes[j].Pitch-n.Pitch) <= 4 {
			orn = passingTone(n, notes[j].Pitch, key, scale)
		} else {
			orn = mordent(n, key, scale)
		}
		if ok {
			for _, o := range orn {
				if !rg.Contains(o.Pitch) {
					orn = nil
					break
				}
			}
		}
		if len(orn) == 0 {
			out = append(out, n)
			continue
		}
		out = append(out, orn...)
		count++
	}
	return out, count
}

func nextInVoice(notes []models.NoteEvent) []int {
	next := make([]int, len(notes))
	last := map[int]int{}
	for i := len(notes) - 1; i >= 0; i-- {
		next[i] = -1
		if j, ok := last[notes[i].Voice]; ok {
			next[i] = j
		}
		last[notes[i].Voice] = i
	}
	return next
}

// mordent splits n into main, lower neighbour, main with the quick notes
// taking an eighth of its length each.
func mordent(n models.NoteEvent, key theory.Key, scale theory.ScaleType) []models.NoteEvent {
	q := n.Duration / 8
	lower := theory.StepInScale(n.Pitch, -1, key.Tonic, scale)
	a, b, c := n, n, n
	a.Duration = q
	b.StartTick, b.Duration, b.Pitch = n.StartTick+q, q, lower
	c.StartTick, c.Duration = n.StartTick+2*q, n.Duration-2*q
	for _, m := range []*models.NoteEvent{&a, &b, &c} {
		m.Source = models.SourceOrnament
		m.ModifiedBy |= models.ModOrnament
	}
	return []models.NoteEvent{a, b, c}
}

// passingTone splits n in half, the second half stepping toward target.
func passingTone(n models.NoteEvent, target int, key theory.Key, scale theory.ScaleType) []models.NoteEvent {
	h := n.Duration / 2
	a, b := n, n
	a.Duration = h
	b.StartTick, b.Duration = n.StartTick+h, n.Duration-h
	b.Pitch = theory.StepInScale(n.Pitch, theory.Sign(target-n.Pitch), key.Tonic, scale)
	for _, m := range []*models.NoteEvent{&a, &b} {
		m.Source = models.SourceOrnament
		m.ModifiedBy |= models.ModOrnament
	}
	return []models.NoteEvent{a, b}
}
