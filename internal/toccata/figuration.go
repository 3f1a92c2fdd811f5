package toccata

import (
	"github.com/Conceptual-Machines/bachgen/internal/melody"
	"github.com/Conceptual-Machines/bachgen/internal/models"
	"github.com/Conceptual-Machines/bachgen/internal/planner"
	"github.com/Conceptual-Machines/bachgen/internal/rng"
	"github.com/Conceptual-Machines/bachgen/internal/theory"
)

// Figuration engine constants.
const (
	// BridgeTopK is how many Markov steps are rescored for a bridge note.
	BridgeTopK = 4
	// ChordAttraction is added to chord-tone candidates over dominants.
	ChordAttraction = 0.25
	// ForceFigureAfter consecutive bridges makes the next beat try a figure.
	ForceFigureAfter = 2
	// ThirtySecondEnergy is the section energy needed before a figure may
	// be doubled into 32nds.
	ThirtySecondEnergy = 0.75
)

// line is the running melodic state of one voice across sections.
type line struct {
	voice   int
	rg      models.VoiceRange
	prev    int
	step    int // last move in scale degrees
	bridges int // consecutive bridge notes
	state   *melody.State
	profile melody.VoiceProfile
}

func (b *builder) newLine(v int) *line {
	rg := b.ranges[v]
	role := melody.RoleVirtuoso
	switch {
	case v == b.pedal:
		role = melody.RolePedal
	case v > 0:
		role = melody.RoleAlto
	}
	mid := (rg.Low + rg.High) / 2
	if v == 0 {
		mid = (rg.Low + 2*rg.High) / 3
	}
	start := theory.NearestPitchWithClass(b.cfg.Key.Tonic, mid)
	return &line{
		voice:   v,
		rg:      rg,
		prev:    rg.Fold(start),
		state:   melody.NewState(melody.ContourNeutral),
		profile: melody.ProfileFor(role),
	}
}

// enter carries the line's state into the next section. After a cadence
// the new phase's contour takes over.
func (l *line) enter(kind melody.BoundaryKind, contour melody.Contour) {
	l.state = l.state.Carry(kind)
	if kind == melody.BoundaryCadence {
		l.state.Contour = contour
	}
	l.bridges = 0
}

func (l *line) place(p, step int) {
	l.state.Update(l.prev, p)
	l.prev = p
	l.step = min(max(step, -melody.MaxDegreeStep), melody.MaxDegreeStep)
}

// bridge chooses a bridge note: the Markov model proposes the likeliest
// degree steps, the voice profile rescores them and chord tones over a
// dominant get a pull. The note is placed on the line.
func (b *builder) bridge(l *line, tick theory.Tick, ceiling int) int {
	hi := min(l.rg.High, ceiling)
	chord := b.chordAt(tick)
	in := melody.ScoreInput{
		State:     l.state,
		Profile:   l.profile,
		Prev:      l.prev,
		Level:     theory.MetricLevelAt(tick, b.meter),
		ChordTone: chord.Contains,
	}
	base := b.degreeOf(l.prev)
	var cands, steps []int
	var scores []float64
	for _, sp := range b.markov.TopK(l.step, BridgeTopK) {
		p := b.pitchOf(base + sp.Step)
		if p < l.rg.Low || p > hi {
			continue
		}
		s := sp.Prob + melody.Score(in, p)
		if chord.Degree.IsDominant() && chord.Contains(p) {
			s += ChordAttraction
		}
		cands = append(cands, p)
		steps = append(steps, sp.Step)
		scores = append(scores, s)
	}
	if len(cands) == 0 {
		// out of room: restart from the middle of the usable range
		p := theory.NearestScaleTone((l.rg.Low+hi)/2, b.cfg.Key.Tonic, b.scale)
		if p > hi {
			p = theory.StepInScale(p, -1, b.cfg.Key.Tonic, b.scale)
		}
		l.place(p, b.degreeOf(p)-base)
		return p
	}
	i := melody.SelectIndex(scores, b.r)
	l.place(cands[i], steps[i])
	return cands[i]
}

// figurate runs the span generator over [from, to): each beat either
// carries a figure from the phase's primary set or a bridge note.
func (b *builder) figurate(l *line, s planner.ToccataSection, pp PhaseProfile, from, to theory.Tick) {
	for t := from; t < to; {
		progress := float64(t-from) / float64(to-from)
		l.state.SetProgress(progress)
		if l.bridges >= ForceFigureAfter || b.r.Chance(pp.Density) {
			if n := b.figure(l, s, pp, t, to, progress); n > 0 {
				l.bridges = 0
				t += n
				continue
			}
		}
		dur := b.bridgeLength(pp, t, to-t)
		p := b.bridge(l, t, pp.Ceiling)
		b.emit(l.voice, t, dur, p, models.SourceBridge)
		l.bridges++
		t += dur
	}
}

// figure writes one cell of a primary figure at t and returns its length,
// or 0 when it does not fit in time or range. Over enough energy and
// harmonic tension the cell is played twice as fast.
func (b *builder) figure(l *line, s planner.ToccataSection, pp PhaseProfile, t, to theory.Tick, progress float64) theory.Tick {
	if len(pp.Figures) == 0 {
		return 0
	}
	bias := pp.Contour.DirectionAt(progress)
	cell := rng.Pick(b.r, pp.Figures).PickCell(b.r, bias)
	span := theory.Tick(max(cell.Beats, 1)) * b.beat
	if t+span > to {
		return 0
	}

	dir := 1
	if bias < 0 || (bias == 0 && b.r.Chance(0.5)) {
		dir = -1
	}
	anchor := b.degreeOf(l.prev) + dir
	hi := min(l.rg.High, pp.Ceiling)
	pitches := make([]int, len(cell.Degrees))
	for i, d := range cell.Degrees {
		p := b.pitchOf(anchor + d)
		if p < l.rg.Low || p > hi {
			return 0
		}
		pitches[i] = p
	}

	reps := 1
	if s.Energy >= ThirtySecondEnergy && HarmonicTension(b.chordAt(t).Degree, progress) >= pp.TensionGate {
		reps = 2
	}
	sub := span / theory.Tick(reps)
	for k := 0; k < reps; k++ {
		at := t + theory.Tick(k)*sub
		durs := cell.Durations(sub)
		for i, p := range pitches {
			if i > 0 || !cell.RestFirst {
				b.emit(l.voice, at, durs[i], p, models.SourceToccataFigure)
				l.place(p, b.degreeOf(p)-b.degreeOf(l.prev))
			}
			at += durs[i]
		}
	}
	return span
}

var recitLengths = []theory.Tick{theory.Eighth, theory.Quarter, theory.DottedQuarter, theory.Half}
var recitWeights = []float64{0.3, 0.35, 0.15, 0.2}

// bridgeLength is one beat, or a recitative length in free rhythm. It
// never crosses remain.
func (b *builder) bridgeLength(pp PhaseProfile, t, remain theory.Tick) theory.Tick {
	if !pp.FreeRhythm {
		// re-align to the beat after a free passage
		d := b.beat - t%b.beat
		return min(d, remain)
	}
	var lens []theory.Tick
	var w []float64
	for i, d := range recitLengths {
		if d <= remain {
			lens = append(lens, d)
			w = append(w, recitWeights[i])
		}
	}
	if len(lens) == 0 {
		return remain
	}
	return lens[b.r.WeightedIndex(w)]
}
