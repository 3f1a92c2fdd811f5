package forms

import (
	"github.com/Conceptual-Machines/bachgen/internal/models"
	"github.com/Conceptual-Machines/bachgen/internal/theory"
)

// folkTune is a four-bar 4/4 popular tune as scale degrees from the tonic.
type folkTune []motifNote

func tune(notes ...[2]int) folkTune {
	var out folkTune
	t := theory.Tick(0)
	for _, n := range notes {
		d := theory.Tick(n[1]) * theory.Sixteenth
		out = append(out, motifNote{Offset: t, Dur: d, Degree: n[0]})
		t += d
	}
	return out
}

// The two folk tunes of the quodlibet; durations in sixteenths.
var (
	FolkTuneLong = tune(
		[2]int{0, 4}, [2]int{1, 4}, [2]int{2, 4}, [2]int{0, 4},
		[2]int{4, 8}, [2]int{3, 4}, [2]int{2, 4},
		[2]int{1, 4}, [2]int{2, 4}, [2]int{3, 4}, [2]int{1, 4},
		[2]int{0, 16},
	)
	FolkTuneCabbage = tune(
		[2]int{4, 4}, [2]int{5, 2}, [2]int{4, 2}, [2]int{3, 4}, [2]int{2, 4},
		[2]int{1, 4}, [2]int{2, 4}, [2]int{3, 8},
		[2]int{4, 4}, [2]int{3, 4}, [2]int{2, 4}, [2]int{1, 4},
		[2]int{0, 8}, [2]int{-3, 8},
	)
)

// MaxWeakClash bounds how far a weak-beat tune note may sit from a chord
// tone before it is snapped.
const MaxWeakClash = 2

// generateQuodlibet combines both tunes over the ground, one per upper
// voice, swapping voices in the second half.
func generateQuodlibet(c *Context) (Output, error) {
	var out Output
	vs := c.Voices()
	upper := vs[:len(vs)-1]
	if len(upper) < 2 {
		upper = []int{vs[0], vs[0]}
	}
	tunes := []folkTune{FolkTuneLong, FolkTuneCabbage}
	half := c.Bars() / 2

	for ph := 0; ph < c.Bars()/4; ph++ {
		start := c.BarStart(ph * 4)
		for i, v := range upper[:2] {
			tn := tunes[i]
			if ph*4 >= half {
				tn = tunes[1-i]
			}
			out.Notes = append(out.Notes, c.placeTune(v, start, tn)...)
		}
	}
	out.Notes = append(out.Notes, c.groundBass(c.BassVoice(), bassPulse, models.SourceGroundBass, models.SourceFreeCounterpoint)...)
	return out, nil
}

// placeTune states tn in voice from start, stretched or cut to the meter's
// four bars. Strong-beat notes are moved to the nearest chord tone; weak
// notes keep their pitch when they are short and close to a chord tone.
func (c *Context) placeTune(voice int, start theory.Tick, tn folkTune) []models.NoteEvent {
	m := motif(tn)
	span := c.PhraseTicks()
	scale := float64(span) / float64(m.length())
	base := c.baseDegree(voice, 0)
	raw := c.placeMotif(voice, start, m, base, models.SourceQuodlibetMelody)

	out := make([]models.NoteEvent, 0, len(raw))
	for i, n := range raw {
		off := theory.Tick(float64(m[i].Offset) * scale)
		end := theory.Tick(float64(m[i].Offset+m[i].Dur) * scale)
		n.StartTick = start + off
		n.Duration = end - off
		if n.StartTick >= c.Total() {
			break
		}
		n.Pitch = c.fitTuneNote(voice, n)
		out = append(out, n)
	}
	return out
}

func (c *Context) fitTuneNote(voice int, n models.NoteEvent) int {
	ch := c.ChordAt(n.StartTick)
	if ch.Contains(n.Pitch) {
		return n.Pitch
	}
	near := c.chordTone(voice, n.StartTick, n.Pitch)
	if theory.IsStrongBeat(n.StartTick, c.Meter) {
		return near
	}
	if theory.Abs(near-n.Pitch) <= MaxWeakClash && n.Duration <= c.BeatTicks() {
		return n.Pitch
	}
	return near
}
