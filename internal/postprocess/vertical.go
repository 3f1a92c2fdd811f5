package postprocess

import (
	"sort"

	"github.com/Conceptual-Machines/bachgen/internal/models"
	"github.com/Conceptual-Machines/bachgen/internal/theory"
)

// Index answers "what sounds at tick" over a note slice whose timing is
// fixed. Pitches are read live, so repairs may change them in place.
type Index struct {
	notes  []models.NoteEvent
	order  []int
	maxDur theory.Tick
}

// NewIndex indexes notes by start tick.
func NewIndex(notes []models.NoteEvent) *Index {
	ix := &Index{notes: notes, order: make([]int, len(notes))}
	for i, n := range notes {
		ix.order[i] = i
		ix.maxDur = theory.MaxTick(ix.maxDur, n.Duration)
	}
	sort.SliceStable(ix.order, func(a, b int) bool {
		return notes[ix.order[a]].StartTick < notes[ix.order[b]].StartTick
	})
	return ix
}

// Sounding returns the indices of notes sounding at tick.
func (ix *Index) Sounding(tick theory.Tick) []int {
	hi := sort.Search(len(ix.order), func(i int) bool { return ix.notes[ix.order[i]].StartTick > tick })
	var out []int
	for k := hi - 1; k >= 0; k-- {
		n := ix.notes[ix.order[k]]
		if n.StartTick+ix.maxDur <= tick {
			break
		}
		if n.SoundingAt(tick) {
			out = append(out, ix.order[k])
		}
	}
	return out
}

// Others returns the pitches of other voices sounding at tick.
func (ix *Index) Others(voice int, tick theory.Tick) []int {
	var out []int
	for _, i := range ix.Sounding(tick) {
		if ix.notes[i].Voice != voice {
			out = append(out, ix.notes[i].Pitch)
		}
	}
	return out
}

// VoiceAt returns the index of voice's note sounding at tick.
func (ix *Index) VoiceAt(voice int, tick theory.Tick) (int, bool) {
	best := -1
	for _, i := range ix.Sounding(tick) {
		if ix.notes[i].Voice == voice && (best < 0 || ix.notes[i].StartTick > ix.notes[best].StartTick) {
			best = i
		}
	}
	return best, best >= 0
}

// Allowance lets a caller whitelist a weak-beat interval the safety check
// would otherwise reject.
type Allowance func(voice, pitch, other int) bool

// VerticalSafe reports whether pitch placed in voice at tick sounds
// acceptably against every other voice sounding there. Chord tones are
// always safe. On accented beats every pair must be consonant, with the
// fourth allowed only between upper voices; on weak beats only the minor
// second, tritone and major seventh are rejected.
func (c *Context) VerticalSafe(ix *Index, voice, pitch int, tick theory.Tick, allow Allowance) bool {
	if c.ChordToneAt(tick, pitch) {
		return true
	}
	others := ix.Others(voice, tick)
	if len(others) == 0 {
		return true
	}
	span := c.SpanAt(tick)
	accented := theory.IsAccentedBeat(tick-span.Start, span.Meter)

	low := pitch
	for _, o := range others {
		low = min(low, o)
	}
	for _, o := range others {
		iv := pitch - o
		if accented {
			upper := low != pitch && low != o
			if theory.ClassifyIntervalWithFourth(iv, upper) == theory.Dissonance {
				return false
			}
			continue
		}
		if theory.IsHarshWeakBeatInterval(iv) && (allow == nil || !allow(voice, pitch, o)) {
			return false
		}
	}
	return true
}
