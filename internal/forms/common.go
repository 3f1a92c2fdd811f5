package forms

import (
	"github.com/Conceptual-Machines/bachgen/internal/melody"
	"github.com/Conceptual-Machines/bachgen/internal/models"
	"github.com/Conceptual-Machines/bachgen/internal/planner"
	"github.com/Conceptual-Machines/bachgen/internal/theory"
)

// defaultVelocity is overwritten by the velocity model.
const defaultVelocity = 80

func (c *Context) note(voice int, start, dur theory.Tick, pitch int, src models.NoteSource) models.NoteEvent {
	n := models.NoteEvent{
		StartTick: start,
		Duration:  dur,
		Pitch:     pitch,
		Velocity:  defaultVelocity,
		Voice:     voice,
		Source:    src,
	}
	n.Normalize()
	return n
}

// Pulse returns the bass pulse for the meter: a dotted group in compound
// time, a half bar in 4/4, the whole bar in triple time and the beat in
// duple time.
func (c *Context) Pulse() theory.Tick {
	ts := c.Meter
	switch {
	case ts.IsCompound():
		return 3 * ts.BeatTicks()
	case ts.Numerator == 4:
		return 2 * ts.BeatTicks()
	case ts.Numerator == 3:
		return ts.BarTicks()
	}
	return ts.BeatTicks()
}

// CellUnit is the span of a one-beat figura cell: the beat, grouped in
// threes when the beat is shorter than an eighth.
func (c *Context) CellUnit() theory.Tick {
	u := c.BeatTicks()
	for u < theory.Eighth {
		u *= 3
	}
	return u
}

// bassPitch returns the grid bass of bar folded into voice's range.
func (c *Context) bassPitch(voice, bar int, resolution bool) int {
	b := c.Grid[theory.FloorMod(bar, len(c.Grid))]
	deg := b.Bass.Degree
	if resolution && b.Bass.HasResolution {
		deg = b.Bass.Resolution
	}
	return c.Range(voice).Fold(planner.BassPitch(deg, c.Key))
}

// chordTone returns the chord tone at tick nearest to pitch inside voice's
// range.
func (c *Context) chordTone(voice int, tick theory.Tick, pitch int) int {
	r := c.Range(voice)
	p := theory.NearestChordTone(c.ChordAt(tick), r.Fold(pitch))
	return r.Fold(p)
}

// scaleStep moves pitch by steps scale degrees in the variation's scale.
func (c *Context) scaleStep(pitch, steps int) int {
	return theory.StepInScale(pitch, steps, c.Key.Tonic, c.Scale)
}

// degreeOf returns pitch's absolute scale degree.
func (c *Context) degreeOf(pitch int) int {
	return theory.PitchToAbsoluteDegree(theory.NearestScaleTone(pitch, c.Key.Tonic, c.Scale), c.Key.Tonic, c.Scale)
}

// pitchOf returns the pitch of an absolute scale degree.
func (c *Context) pitchOf(deg int) int {
	return theory.AbsoluteDegreeToPitch(deg, c.Key.Tonic, c.Scale)
}

// centre returns the middle of voice's range snapped to the scale.
func (c *Context) centre(voice int) int {
	r := c.Range(voice)
	return theory.NearestScaleTone((r.Low+r.High)/2, c.Key.Tonic, c.Scale)
}

type bassStyle int

const (
	bassSustained bassStyle = iota // one note per bar, split at a resolution
	bassPulse                      // grid bass on the downbeat, chord tones on later pulses
	bassWalking                    // one note per beat walking toward the next bar
)

// groundBass writes the grid bass into voice. Downbeats carry primary;
// the notes between them carry fill.
func (c *Context) groundBass(voice int, style bassStyle, primary, fill models.NoteSource) []models.NoteEvent {
	var out []models.NoteEvent
	bar := c.BarTicks()
	r := c.Range(voice)
	for b := 0; b < c.Bars(); b++ {
		start := c.BarStart(b)
		p := c.bassPitch(voice, b, false)
		info := c.Grid[b]

		switch style {
		case bassSustained:
			if info.Bass.HasResolution {
				half := bar / 2
				out = append(out,
					c.note(voice, start, half, p, primary),
					c.note(voice, start+half, bar-half, c.bassPitch(voice, b, true), primary))
				continue
			}
			out = append(out, c.note(voice, start, bar, p, primary))

		case bassPulse:
			pulse := min(c.Pulse(), bar)
			prev := p
			for t := theory.Tick(0); t < bar; t += pulse {
				d := min(pulse, bar-t)
				if t == 0 {
					out = append(out, c.note(voice, start, d, p, primary))
					continue
				}
				tick := start + t
				if info.Bass.HasResolution && t >= bar/2 {
					q := c.bassPitch(voice, b, true)
					out = append(out, c.note(voice, tick, d, q, primary))
					prev = q
					continue
				}
				q := c.pulseTone(voice, tick, prev, p)
				out = append(out, c.note(voice, tick, d, q, fill))
				prev = q
			}

		case bassWalking:
			beat := c.BeatTicks()
			if beat < theory.Eighth {
				beat = c.CellUnit()
			}
			next := c.bassPitch(voice, b+1, false)
			prev := p
			for t := theory.Tick(0); t < bar; t += beat {
				d := min(beat, bar-t)
				if t == 0 {
					out = append(out, c.note(voice, start, d, p, primary))
					continue
				}
				q := c.walkTone(voice, start+t, prev, next, int((bar-t)/beat))
				if !r.Contains(q) {
					q = r.Fold(q)
				}
				out = append(out, c.note(voice, start+t, d, q, fill))
				prev = q
			}
		}
	}
	return out
}

// pulseTone picks a later-pulse bass note: the octave, the fifth or the
// third of the chord, never repeating prev.
func (c *Context) pulseTone(voice int, tick theory.Tick, prev, primary int) int {
	r := c.Range(voice)
	ch := c.ChordAt(tick)
	var cands []int
	for _, oct := range []int{primary - 12, primary + 12} {
		if r.Contains(oct) {
			cands = append(cands, oct)
		}
	}
	cands = append(cands,
		r.Fold(theory.NearestPitchWithClass(ch.FifthPC(), primary)),
		r.Fold(theory.NearestPitchWithClass(ch.ThirdPC(), primary)))
	var keep []int
	for _, q := range cands {
		if q != prev {
			keep = append(keep, q)
		}
	}
	if len(keep) == 0 {
		return primary
	}
	return keep[c.Rand.Index(len(keep))]
}

// walkTone moves one step toward target, or to a chord tone when the
// target is already reached or too far to arrive stepwise.
func (c *Context) walkTone(voice int, tick theory.Tick, prev, target, stepsLeft int) int {
	dist := target - prev
	if dist == 0 {
		dir := 1
		if c.Rand.Chance(0.5) {
			dir = -1
		}
		return c.chordTone(voice, tick, prev+dir*4)
	}
	if theory.Abs(dist) > 2*(stepsLeft+1) {
		return c.chordTone(voice, tick, prev+theory.Sign(dist)*4)
	}
	return c.scaleStep(prev, theory.Sign(dist))
}

// engine builds a melody engine for voice over the variation's harmony.
func (c *Context) engine(voice int, contour melody.Contour, figures bool, src models.NoteSource) *melody.Engine {
	return melody.NewEngine(melody.EngineConfig{
		Voice:    voice,
		Profile:  melody.ProfileFor(c.roleFor(voice)),
		Key:      c.Key,
		Scale:    c.Scale,
		Range:    c.Range(voice),
		Timeline: c.Timeline,
		Meter:    c.Meter,
		Contour:  contour,
		Start:    c.centre(voice),
		Source:   src,
		Figures:  figures,
	}, c.Rand)
}

// freeLine fills [from, to) in voice with engine counterpoint.
func (c *Context) freeLine(voice int, from, to theory.Tick, contour melody.Contour, src models.NoteSource) []models.NoteEvent {
	if to <= from {
		return nil
	}
	e := c.engine(voice, contour, true, src)
	return e.Line(from, to, c.PhraseTicks())
}

// pulseLine fills [from, to) in voice with one engine note per step ticks,
// chord-tone snapped on strong beats.
func (c *Context) pulseLine(e *melody.Engine, from, to, step theory.Tick, src models.NoteSource) []models.NoteEvent {
	voice := e.Config().Voice
	var out []models.NoteEvent
	for t := from; t < to; t += step {
		e.Advance(t, c.PhraseTicks())
		p := e.Choose(t)
		if theory.IsStrongBeat(t, c.Meter) && !c.ChordAt(t).Contains(p) {
			p = c.chordTone(voice, t, p)
		}
		e.Place(p)
		out = append(out, c.note(voice, t, min(step, to-t), p, src))
	}
	return out
}

// phraseProgress returns tick's position within its 4-bar phrase.
func (c *Context) phraseProgress(tick theory.Tick) float64 {
	ph := c.PhraseTicks()
	return float64(tick%ph) / float64(ph)
}
