package toccata

import (
	"github.com/Conceptual-Machines/bachgen/internal/melody"
	"github.com/Conceptual-Machines/bachgen/internal/models"
	"github.com/Conceptual-Machines/bachgen/internal/planner"
	"github.com/Conceptual-Machines/bachgen/internal/theory"
)

// MoveProbability is the chance a sustained voice leaves a chord tone it
// could keep.
const MoveProbability = 0.5

// section renders one plan section. The last bar of the piece is left for
// the final chord.
func (b *builder) section(s planner.ToccataSection, last bool) {
	from := theory.Tick(s.StartBar) * b.bar
	to := theory.Tick(s.StartBar+s.Bars) * b.bar
	if last {
		to -= b.bar
	}
	if to <= from {
		return
	}
	pp := ProfileFor(s.Phase)
	b.enterSection(s, pp)
	switch s.Kind {
	case planner.SectionMotoPerpetuo:
		b.motoPerpetuo(s, pp, from, to)
	case planner.SectionChordal:
		b.chordal(pp, from, to)
	case planner.SectionFugato:
		b.fugato(s, pp, from, to)
	case planner.SectionCadenza:
		b.cadenza(from, to)
	default:
		b.figuration(s, pp, from, to)
	}
}

// enterSection carries every voice's melodic state across the boundary
// into s. The first section installs the phase contour on fresh state.
func (b *builder) enterSection(s planner.ToccataSection, pp PhaseProfile) {
	defer func() {
		b.prev = &s
		b.seen[s.Phase] = true
	}()
	if b.prev == nil {
		for _, l := range b.lines {
			l.state.Contour = pp.Contour
		}
		return
	}
	kind := boundaryInto(*b.prev, s, b.seen)
	for _, l := range b.lines {
		l.enter(kind, pp.Contour)
	}
}

// boundaryInto classifies the change from prev to s: a cadence after block
// chords or the pedal cadenza and on entering a new phase, development when
// the phase continues, re-entry when an earlier phase returns.
func boundaryInto(prev, s planner.ToccataSection, seen map[string]bool) melody.BoundaryKind {
	switch {
	case prev.Kind == planner.SectionChordal || prev.Kind == planner.SectionCadenza:
		return melody.BoundaryCadence
	case prev.Phase == s.Phase:
		return melody.BoundaryDevelopment
	case seen[s.Phase]:
		return melody.BoundaryReentry
	}
	return melody.BoundaryCadence
}

// figuration puts the figuration engine in the top voice over sustained
// inner voices and a pedal whose motion follows the section's energy.
func (b *builder) figuration(s planner.ToccataSection, pp PhaseProfile, from, to theory.Tick) {
	b.figurate(b.lines[0], s, pp, from, to)
	step := theory.Half
	switch {
	case s.Energy < 0.5:
		step = b.bar
	case s.Energy >= 0.9:
		step = b.beat
	}
	for _, v := range b.manuals()[1:] {
		b.sustain(b.lines[v], from, to, step)
	}
	if pp.Pedal {
		b.pedalLine(from, to, pedalStep(s.Energy, b.bar, b.beat))
	}
}

func pedalStep(energy float64, bar, beat theory.Tick) theory.Tick {
	switch {
	case energy < 0.6:
		return bar
	case energy < 0.85:
		return 2 * beat
	}
	return beat
}

// motoPerpetuo keeps the top voice in unbroken sixteenths, the second
// voice in broken-chord eighths and the pedal on the beat.
func (b *builder) motoPerpetuo(s planner.ToccataSection, pp PhaseProfile, from, to theory.Tick) {
	top := b.lines[0]
	for t := from; t < to; {
		progress := float64(t-from) / float64(to-from)
		top.state.SetProgress(progress)
		if n := b.figure(top, s, pp, t, to, progress); n > 0 {
			t += n
			continue
		}
		end := min(t+b.beat, to)
		for ; t < end; t += theory.Sixteenth {
			p := b.bridge(top, t, pp.Ceiling)
			b.emit(0, t, min(theory.Sixteenth, end-t), p, models.SourceBridge)
		}
	}

	inner := b.manuals()[1:]
	if len(inner) > 0 {
		b.brokenChord(b.lines[inner[0]], from, to, theory.Eighth)
		for _, v := range inner[1:] {
			b.sustain(b.lines[v], from, to, theory.Half)
		}
	}
	b.pedalLine(from, to, b.beat)
}

// chordal writes block chords on every half bar with the pedal holding
// the root when the phase uses it.
func (b *builder) chordal(pp PhaseProfile, from, to theory.Tick) {
	step := theory.Half
	for t := from; t < to; t += step {
		dur := min(step, to-t)
		chord := b.chordAt(t)
		above := theory.MaxPitch + 1
		for _, v := range b.manuals() {
			l := b.lines[v]
			hi := min(l.rg.High, above-1)
			if hi-l.rg.Low < 12 {
				hi = l.rg.High
			}
			p := chordToneNear(chord, l.rg.Low, hi, l.prev, -1)
			b.emit(v, t, dur, p, models.SourceFreeCounterpoint)
			l.place(p, b.degreeOf(p)-b.degreeOf(l.prev))
			above = p
		}
	}
	if pp.Pedal {
		b.pedalLine(from, to, b.bar)
	}
}

// fugato states a one-bar subject in each voice a bar apart, top voice
// first and pedal last, alternating subject and answer. Voices continue
// freely after their entry and are silent before it.
func (b *builder) fugato(s planner.ToccataSection, pp PhaseProfile, from, to theory.Tick) {
	degs, durs := b.fugatoSubject()
	for v := 0; v < b.cfg.Voices; v++ {
		bar := min(v, s.Bars-1)
		start := from + theory.Tick(bar)*b.bar
		shift, src := 0, models.SourceSubject
		if v%2 == 1 {
			shift, src = 4, models.SourceAnswer
		}
		end := b.placeDegrees(b.lines[v], start, to, degs, durs, shift, src)
		if end >= to {
			continue
		}
		switch {
		case v == 0:
			b.figurate(b.lines[v], s, pp, end, to)
		case v == b.pedal:
			b.pedalLine(end, to, 2*b.beat)
		default:
			b.sustain(b.lines[v], end, to, b.beat)
		}
	}
}

var fugatoRhythm = []theory.Tick{theory.Quarter, theory.Eighth, theory.Eighth, theory.Eighth, theory.Eighth, theory.Quarter}

// fugatoSubject draws a one-bar subject from the degree Markov model. It
// starts on the tonic and ends on the tonic, dominant or lower dominant.
func (b *builder) fugatoSubject() ([]int, []theory.Tick) {
	degs := make([]int, len(fugatoRhythm))
	step := 0
	for i := 1; i < len(degs); i++ {
		top := b.markov.TopK(step, BridgeTopK)
		w := make([]float64, len(top))
		for j, sp := range top {
			w[j] = sp.Prob
			if sp.Step == 0 {
				w[j] = 0
			}
		}
		step = top[b.r.WeightedIndex(w)].Step
		degs[i] = min(max(degs[i-1]+step, -4), 5)
	}
	last := degs[len(degs)-1]
	best := 0
	for _, d := range []int{0, 4, -3} {
		if theory.Abs(d-last) < theory.Abs(best-last) {
			best = d
		}
	}
	degs[len(degs)-1] = best
	return degs, fugatoRhythm
}

// placeDegrees writes a degree pattern in l's voice from start, shifted by
// shift degrees, in the octave where every note fits. It returns the tick
// after the last note written.
func (b *builder) placeDegrees(l *line, start, to theory.Tick, degs []int, durs []theory.Tick, shift int, src models.NoteSource) theory.Tick {
	centre := theory.NearestPitchWithClass(b.cfg.Key.Tonic, (l.rg.Low+l.rg.High)/2)
	base := b.degreeOf(centre) + shift
	oct, fits := 0, false
	for _, o := range []int{0, -7, 7, -14, 14} {
		fits = true
		for _, d := range degs {
			if !l.rg.Contains(b.pitchOf(base + o + d)) {
				fits = false
				break
			}
		}
		if fits {
			oct = o
			break
		}
	}
	t := start
	for i, d := range degs {
		if t >= to {
			break
		}
		p := b.pitchOf(base + oct + d)
		if !fits {
			p = l.rg.Fold(p)
		}
		dur := min(durs[i], to-t)
		b.emit(l.voice, t, dur, p, src)
		l.place(p, b.degreeOf(p)-b.degreeOf(l.prev))
		t += dur
	}
	return t
}

// cadenza is a pedal solo in sixteenths that lands on the root of the
// last chord for its final beat. The manuals rest.
func (b *builder) cadenza(from, to theory.Tick) {
	l := b.lines[b.pedal]
	hold := min(b.beat, to-from)
	for t := from; t < to-hold; t += theory.Sixteenth {
		l.state.SetProgress(float64(t-from) / float64(to-from))
		p := b.bridge(l, t, l.rg.High)
		b.emit(l.voice, t, min(theory.Sixteenth, to-hold-t), p, models.SourceCadenza)
	}
	t := to - hold
	p := nearestIn(l.rg, b.chordAt(t).RootPC, l.prev)
	b.emit(l.voice, t, hold, p, models.SourceCadenza)
	l.place(p, b.degreeOf(p)-b.degreeOf(l.prev))
}

// sustain holds chord tones for step ticks at a time, keeping a common
// tone or moving to the nearest other chord tone.
func (b *builder) sustain(l *line, from, to, step theory.Tick) {
	for t := from; t < to; t += step {
		chord := b.chordAt(t)
		avoid := -1
		if chord.Contains(l.prev) && b.r.Chance(MoveProbability) {
			avoid = l.prev
		}
		p := chordToneNear(chord, l.rg.Low, l.rg.High, l.prev, avoid)
		b.emit(l.voice, t, min(step, to-t), p, models.SourceFreeCounterpoint)
		l.place(p, b.degreeOf(p)-b.degreeOf(l.prev))
	}
}

// brokenChord moves through neighbouring chord tones one step at a time,
// turning when it would leave the octave around where it started.
func (b *builder) brokenChord(l *line, from, to, step theory.Tick) {
	centre := l.prev
	dir := 1
	for t := from; t < to; t += step {
		tones := theory.ChordTonesInRange(b.chordAt(t), l.rg.Low, l.rg.High)
		if len(tones) == 0 {
			continue
		}
		i := closestIndex(tones, l.prev)
		if tones[i] == l.prev {
			next := i + dir
			if next < 0 || next >= len(tones) || theory.Abs(tones[next]-centre) > 7 {
				dir = -dir
				next = i + dir
			}
			i = min(max(next, 0), len(tones)-1)
		}
		p := tones[i]
		b.emit(l.voice, t, min(step, to-t), p, models.SourceFreeCounterpoint)
		l.place(p, b.degreeOf(p)-b.degreeOf(l.prev))
	}
}

// pedalLine writes the pedal: whole-bar roots held as a pedal point, or
// root and fifth alternating at the given step.
func (b *builder) pedalLine(from, to, step theory.Tick) {
	l := b.lines[b.pedal]
	k := 0
	for t := from; t < to; t += step {
		chord := b.chordAt(t)
		src := models.SourceFreeCounterpoint
		pc := chord.RootPC
		switch {
		case step >= b.bar:
			src = models.SourcePedalPoint
		case k%2 == 1:
			pc = chord.FifthPC()
		}
		if theory.BarOf(t, b.meter) != theory.BarOf(t-step, b.meter) {
			k = 0
			pc = chord.RootPC
		}
		p := nearestIn(l.rg, pc, l.prev)
		b.emit(l.voice, t, min(step, to-t), p, src)
		l.place(p, b.degreeOf(p)-b.degreeOf(l.prev))
		k++
	}
}

// finalChord holds the tonic chord for the last bar: the top voice takes
// the third, the pedal the root.
func (b *builder) finalChord(at theory.Tick) {
	tonic := theory.BuildChord(theory.DegreeI, b.cfg.Key)
	pattern := []int{tonic.ThirdPC(), tonic.FifthPC(), tonic.RootPC, tonic.ThirdPC()}
	for i, v := range b.manuals() {
		l := b.lines[v]
		p := nearestIn(l.rg, pattern[i%len(pattern)], l.prev)
		b.emit(v, at, b.bar, p, models.SourceCadence)
		l.place(p, 0)
	}
	l := b.lines[b.pedal]
	p := nearestIn(l.rg, tonic.RootPC, l.prev)
	b.emit(b.pedal, at, b.bar, p, models.SourceCadence)
	l.place(p, 0)
}

// nearestIn returns the pitch of class pc inside r closest to near.
func nearestIn(r models.VoiceRange, pc, near int) int {
	return r.Fold(theory.NearestPitchWithClass(pc, near))
}

// chordToneNear returns the chord tone in [lo, hi] closest to near, other
// than avoid. Without a chord tone in reach it folds near into the window.
func chordToneNear(c theory.Chord, lo, hi, near, avoid int) int {
	tones := theory.ChordTonesInRange(c, lo, hi)
	best, found := 0, false
	for _, p := range tones {
		if p == avoid {
			continue
		}
		if !found || theory.Abs(p-near) < theory.Abs(best-near) {
			best, found = p, true
		}
	}
	if !found {
		if len(tones) > 0 {
			return tones[0]
		}
		return theory.ClampPitchToRange(near, lo, hi)
	}
	return best
}

func closestIndex(ps []int, near int) int {
	best := 0
	for i, p := range ps {
		if theory.Abs(p-near) < theory.Abs(ps[best]-near) {
			best = i
		}
	}
	return best
}
