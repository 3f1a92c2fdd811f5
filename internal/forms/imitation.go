package forms

import (
	"sort"

	"github.com/Conceptual-Machines/bachgen/internal/melody"
	"github.com/Conceptual-Machines/bachgen/internal/models"
	"github.com/Conceptual-Machines/bachgen/internal/planner"
	"github.com/Conceptual-Machines/bachgen/internal/rng"
	"github.com/Conceptual-Machines/bachgen/internal/theory"
)

// motifNote is one note of a subject, in scale degrees from its first note.
type motifNote struct {
	Offset, Dur theory.Tick
	Degree      int
}

type motif []motifNote

func (m motif) length() theory.Tick {
	if len(m) == 0 {
		return 0
	}
	last := m[len(m)-1]
	return last.Offset + last.Dur
}

// inverted mirrors the motif around its first degree.
func (m motif) inverted() motif {
	out := make(motif, len(m))
	for i, n := range m {
		out[i] = motifNote{Offset: n.Offset, Dur: n.Dur, Degree: -n.Degree}
	}
	return out
}

// head returns the notes starting before span.
func (m motif) head(span theory.Tick) motif {
	var out motif
	for _, n := range m {
		if n.Offset >= span {
			break
		}
		d := min(n.Dur, span-n.Offset)
		out = append(out, motifNote{Offset: n.Offset, Dur: d, Degree: n.Degree})
	}
	return out
}

type rhythmPool struct {
	values  []theory.Tick
	weights []float64
}

var subjectRhythms = map[planner.SubjectCharacter]rhythmPool{
	planner.SubjectPlayful:  {[]theory.Tick{theory.Quarter, theory.Eighth, theory.Sixteenth, theory.Half}, []float64{0.35, 0.40, 0.15, 0.10}},
	planner.SubjectSevere:   {[]theory.Tick{theory.Half, theory.Quarter, theory.Whole}, []float64{0.55, 0.30, 0.15}},
	planner.SubjectNoble:    {[]theory.Tick{theory.Quarter, theory.Half, theory.Eighth, theory.DottedQuarter}, []float64{0.40, 0.25, 0.20, 0.15}},
	planner.SubjectRestless: {[]theory.Tick{theory.Eighth, theory.Sixteenth, theory.Quarter}, []float64{0.50, 0.30, 0.20}},
}

// makeSubject draws a subject of span ticks: a stepwise walk with the
// character's leaps, ending on a tonic-chord degree.
func (c *Context) makeSubject(span theory.Tick, ch planner.SubjectCharacter) motif {
	pool := subjectRhythms[ch]
	maxLeap := ch.MaxLeapDegrees()
	var m motif
	deg := 0
	for t := theory.Tick(0); t < span; {
		var vals []theory.Tick
		var w []float64
		for i, v := range pool.values {
			if t+v <= span {
				vals = append(vals, v)
				w = append(w, pool.weights[i])
			}
		}
		d := span - t
		if len(vals) > 0 {
			d = rng.WeightedPick(c.Rand, vals, w)
		}
		m = append(m, motifNote{Offset: t, Dur: d, Degree: deg})
		t += d

		move := 1
		if c.Rand.Chance(0.25) {
			move = c.Rand.IntRange(2, maxLeap)
		}
		if c.Rand.Chance(0.5) {
			move = -move
		}
		if theory.Abs(deg+move) > 5 {
			move = -move
		}
		deg += move
	}
	if n := len(m); n > 1 {
		last := m[n-1].Degree
		best := 0
		for _, end := range []int{0, 2, 4, -3, -5, 7} {
			if theory.Abs(end-last) < theory.Abs(best-last) {
				best = end
			}
		}
		m[n-1].Degree = best
	}
	return m
}

// baseDegree is the tonic degree nearest voice's centre plus shift.
func (c *Context) baseDegree(voice, shift int) int {
	return theory.FloorDiv(c.degreeOf(c.centre(voice)), 7)*7 + shift
}

// placeMotif writes m into voice at start, moving the whole statement by
// octaves to fit the range and folding single notes only when no octave
// fits.
func (c *Context) placeMotif(voice int, start theory.Tick, m motif, base int, src models.NoteSource) []models.NoteEvent {
	r := c.Range(voice)
	fits := func(b int) bool {
		for _, n := range m {
			if !r.Contains(c.pitchOf(b + n.Degree)) {
				return false
			}
		}
		return true
	}
	chosen, found := base, false
	for _, k := range []int{0, -7, 7, -14, 14} {
		if fits(base + k) {
			chosen, found = base+k, true
			break
		}
	}
	out := make([]models.NoteEvent, 0, len(m))
	for _, n := range m {
		p := c.pitchOf(chosen + n.Degree)
		if !found {
			p = r.Fold(p)
		}
		if start+n.Offset >= c.Total() {
			break
		}
		out = append(out, c.note(voice, start+n.Offset, min(n.Dur, c.Total()-start-n.Offset), p, src))
	}
	return out
}

// segment is a planned statement occupying part of a voice.
type segment struct {
	voice    int
	start    theory.Tick
	notes    []models.NoteEvent
	followBy models.NoteSource // source for the counterpoint right after
}

func (s segment) end() theory.Tick {
	if len(s.notes) == 0 {
		return s.start
	}
	return s.notes[len(s.notes)-1].EndTick()
}

// weave fills every voice around its planned segments: silence before a
// voice's first segment when silentBefore is set, counterpoint between
// segments and a held cadence chord in the final bar.
func (c *Context) weave(segs []segment, silentBefore bool, filler func(voice int, from, to theory.Tick, src models.NoteSource) []models.NoteEvent) []models.NoteEvent {
	byVoice := map[int][]segment{}
	for _, s := range segs {
		byVoice[s.voice] = append(byVoice[s.voice], s)
	}
	final := c.BarStart(c.Bars() - 1)
	var out []models.NoteEvent
	for _, v := range c.Voices() {
		vs := byVoice[v]
		sort.Slice(vs, func(i, j int) bool { return vs[i].start < vs[j].start })
		cursor := theory.Tick(0)
		if silentBefore && len(vs) > 0 {
			cursor = vs[0].start
		}
		follow := models.SourceFreeCounterpoint
		for _, s := range vs {
			if s.start >= final {
				break
			}
			if s.start > cursor {
				out = append(out, c.fillGap(v, cursor, s.start, follow, filler)...)
			}
			for _, n := range s.notes {
				if n.StartTick < final {
					if n.EndTick() > final {
						n.Duration = final - n.StartTick
					}
					out = append(out, n)
				}
			}
			cursor = theory.MaxTick(cursor, min(s.end(), final))
			follow = s.followBy
		}
		if cursor < final {
			out = append(out, c.fillGap(v, cursor, final, follow, filler)...)
		}
		out = append(out, c.finalChordNote(v))
	}
	return out
}

// fillGap gives the first two bars after a statement the follow source
// (a countersubject) and the rest free counterpoint.
func (c *Context) fillGap(voice int, from, to theory.Tick, follow models.NoteSource, filler func(int, theory.Tick, theory.Tick, models.NoteSource) []models.NoteEvent) []models.NoteEvent {
	if follow == models.SourceFreeCounterpoint {
		return filler(voice, from, to, models.SourceFreeCounterpoint)
	}
	mid := min(from+2*c.BarTicks(), to)
	out := filler(voice, from, mid, follow)
	return append(out, filler(voice, mid, to, models.SourceFreeCounterpoint)...)
}

// finalChordNote holds a tonic-chord tone through the last bar; the bass
// takes the root.
func (c *Context) finalChordNote(voice int) models.NoteEvent {
	start := c.BarStart(c.Bars() - 1)
	ch := c.ChordAt(start)
	target := c.centre(voice)
	if voice == c.BassVoice() {
		target = theory.NearestPitchWithClass(ch.RootPC, target)
	}
	p := c.chordTone(voice, start, target)
	return c.note(voice, start, c.BarTicks(), p, models.SourceCadence)
}

// engineFiller returns a filler driving one engine per voice so each
// voice's line stays continuous across gaps.
func (c *Context) engineFiller(contour melody.Contour, step theory.Tick) func(int, theory.Tick, theory.Tick, models.NoteSource) []models.NoteEvent {
	engines := map[int]*melody.Engine{}
	return func(voice int, from, to theory.Tick, src models.NoteSource) []models.NoteEvent {
		if to <= from {
			return nil
		}
		e, ok := engines[voice]
		if !ok {
			e = c.engine(voice, contour, step == 0, src)
			engines[voice] = e
		}
		if step > 0 {
			return c.pulseLine(e, from, to, step, src)
		}
		notes := e.Line(from, to, c.PhraseTicks())
		for i := range notes {
			if notes[i].Source == models.SourceFreeCounterpoint {
				notes[i].Source = src
			}
		}
		return notes
	}
}
