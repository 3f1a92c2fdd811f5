package forms

import (
	"errors"
	"fmt"

	"github.com/Conceptual-Machines/bachgen/internal/melody"
	"github.com/Conceptual-Machines/bachgen/internal/models"
	"github.com/Conceptual-Machines/bachgen/internal/planner"
	"github.com/Conceptual-Machines/bachgen/internal/theory"
)

// MaxCanonBacktracks is the retry budget of one canon, shared by all bars.
const MaxCanonBacktracks = 19

// StrongBeatConsonanceTarget is the share of strong beats on which dux and
// comes must be consonant.
const StrongBeatConsonanceTarget = 0.6

// MaxCanonAttempts bounds how often a canon is rebuilt to reach the
// consonance target.
const MaxCanonAttempts = 3

// ErrNoCanonDescriptor is returned for a canon variation without settings.
var ErrNoCanonDescriptor = errors.New("canon variation has no canon descriptor")

// CanonOutcome is the result of one bar attempt.
type CanonOutcome int

const (
	CanonOk CanonOutcome = iota
	CanonRetry
	CanonGiveUp
)

func (o CanonOutcome) String() string {
	switch o {
	case CanonOk:
		return "ok"
	case CanonRetry:
		return "retry"
	}
	return "give_up"
}

// MarshalText renders the outcome by name.
func (o CanonOutcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// UnmarshalText parses a name written by MarshalText.
func (o *CanonOutcome) UnmarshalText(b []byte) error {
	switch string(b) {
	case "ok":
		*o = CanonOk
	case "retry":
		*o = CanonRetry
	case "give_up":
		*o = CanonGiveUp
	default:
		return fmt.Errorf("unknown canon outcome %q", b)
	}
	return nil
}

// CanonReport summarises how a canon was built.
type CanonReport struct {
	Interval             int             `json:"interval"`
	Inverted             bool            `json:"inverted"`
	Delay                theory.Tick     `json:"delay_ticks"`
	Backtracks           int             `json:"backtracks"`
	Attempts             int             `json:"attempts"`
	Outcome              CanonOutcome    `json:"outcome"`
	PartialSuccess       bool            `json:"partial_success"`
	StrongBeatConsonance float64         `json:"strong_beat_consonance"`
	Validation           CanonValidation `json:"validation"`
}

// ComesPitch maps a dux pitch onto the comes: an optional mirror around the
// axis degree, then a transposition by interval scale degrees.
func ComesPitch(dux int, d planner.CanonDescriptor, axis int, key theory.Key, scale theory.ScaleType) int {
	deg := theory.PitchToAbsoluteDegree(dux, key.Tonic, scale)
	if d.Inverted {
		deg = 2*axis - deg
	}
	return theory.AbsoluteDegreeToPitch(deg+d.Interval, key.Tonic, scale)
}

type duxNote struct {
	unit, length int
	pitch        int
}

type canonGen struct {
	c                 *Context
	desc              planner.CanonDescriptor
	dux, comes, bassV int
	unit              theory.Tick
	delay             int // in units
	total             int // in units
	perBar            int
	axis              int
	feasible          []int
	notes             []duxNote
	at                []int // dux note index per unit, -1 before assignment
	bass              []models.NoteEvent
	maxLeap           int
}

func canonUnit(ts theory.TimeSignature) theory.Tick {
	u := ts.BeatTicks()
	for u > theory.Quarter {
		u /= 2
	}
	return u
}

// generateCanon builds a three-voice canon: the dux is generated one unit at
// a time against the comes it already implies and the free bass; the comes
// is the stored dux transformed and delayed. Bars whose downbeat clashes
// are retried from a global budget; when it runs out the canon is accepted
// as a partial success. A canon below the strong-beat consonance target is
// rebuilt, up to MaxCanonAttempts times, and the most consonant one kept.
func generateCanon(c *Context) (Output, error) {
	if c.Desc.Canon == nil {
		return Output{}, ErrNoCanonDescriptor
	}
	var best Output
	attempts := 0
	for attempts < MaxCanonAttempts {
		attempts++
		out := newCanonGen(c).build()
		if attempts == 1 || out.Diagnostics.Canon.StrongBeatConsonance > best.Diagnostics.Canon.StrongBeatConsonance {
			best = out
		}
		if best.Diagnostics.Canon.StrongBeatConsonance >= StrongBeatConsonanceTarget {
			break
		}
	}

	report := best.Diagnostics.Canon
	report.Attempts = attempts
	if !enforceConsonance(&report.Validation, report.StrongBeatConsonance) {
		best.Diagnostics.Warnf("canon strong-beat consonance %.2f below %.2f after %d attempts",
			report.StrongBeatConsonance, StrongBeatConsonanceTarget, attempts)
	}
	if !report.Validation.Passed {
		best.Diagnostics.Warnf("canon validation failed: accuracy %.3f", report.Validation.PitchAccuracy)
	}
	return best, nil
}

// enforceConsonance fails v when fewer than StrongBeatConsonanceTarget of
// the strong beats are consonant.
func enforceConsonance(v *CanonValidation, consonance float64) bool {
	if consonance >= StrongBeatConsonanceTarget {
		return true
	}
	v.Passed = false
	v.fail("strong-beat consonance %.2f below %.2f", consonance, StrongBeatConsonanceTarget)
	return false
}

func newCanonGen(c *Context) *canonGen {
	vs := c.Voices()
	if len(vs) < 3 {
		vs = []int{0, 1, 2}
	}
	g := &canonGen{
		c:       c,
		desc:    *c.Desc.Canon,
		dux:     vs[0],
		comes:   vs[1],
		bassV:   vs[len(vs)-1],
		unit:    canonUnit(c.Meter),
		maxLeap: c.Desc.Subject.MaxLeapDegrees(),
	}
	if g.desc.DelayBars < 1 {
		g.desc.DelayBars = 1
	}
	g.perBar = int(c.BarTicks() / g.unit)
	g.delay = g.desc.DelayBars * g.perBar
	g.total = c.Bars() * g.perBar
	g.at = make([]int, g.total)
	for i := range g.at {
		g.at[i] = -1
	}
	return g
}

// build runs one full attempt and returns the notes with a filled report.
func (g *canonGen) build() Output {
	c := g.c

	// Phase 1: the free bass and the dux's opening before the comes enters.
	g.bass = c.groundBass(g.bassV, bassPulse, models.SourceCanonBass, models.SourceCanonBass)
	first := g.firstPitch()
	g.axis = theory.FloorDiv(c.degreeOf(first), 7) * 7
	g.feasible = g.feasibleDux()

	report := &CanonReport{
		Interval: g.desc.Interval,
		Inverted: g.desc.Inverted,
		Delay:    theory.Tick(g.delay) * g.unit,
		Outcome:  CanonOk,
	}

	// Phase 2: dux against its own comes, bar by bar with backtracking.
	duxBars := (g.total - g.delay) / g.perBar
	for bar := 0; bar < duxBars; bar++ {
		for {
			mark := len(g.notes)
			out := g.tryBar(bar, first)
			if out == CanonOk || report.Outcome == CanonGiveUp {
				break
			}
			if report.Backtracks >= MaxCanonBacktracks {
				report.Outcome = CanonGiveUp
				report.PartialSuccess = true
				break
			}
			report.Backtracks++
			g.rollback(mark)
		}
	}

	// Phase 3: the comes tail after the dux falls silent.
	dux, comes := g.render()
	var out Output
	out.Notes = append(out.Notes, dux...)
	out.Notes = append(out.Notes, comes...)
	out.Notes = append(out.Notes, g.bass...)
	out.Notes = append(out.Notes, g.coda()...)

	// Phase 4: validation before any timing pass.
	report.Validation = ValidateCanon(dux, comes, g.desc, report.Delay, g.axis, c.Key, c.Scale, true)
	report.StrongBeatConsonance = g.strongBeatConsonance()

	out.Diagnostics.Canon = report
	return out
}

func (g *canonGen) firstPitch() int {
	c := g.c
	r := c.Range(g.dux)
	mid := (r.Low + r.High) / 2
	best := -1
	for p := r.Low; p <= r.High; p++ {
		if theory.PitchClass(p) != c.Key.Tonic {
			continue
		}
		axis := theory.FloorDiv(c.degreeOf(p), 7) * 7
		if !c.Range(g.comes).Contains(ComesPitch(p, g.desc, axis, c.Key, c.Scale)) {
			continue
		}
		if best < 0 || theory.Abs(p-mid) < theory.Abs(best-mid) {
			best = p
		}
	}
	if best < 0 {
		return c.centre(g.dux)
	}
	return best
}

// feasibleDux lists the dux scale tones whose comes stays in range.
func (g *canonGen) feasibleDux() []int {
	c := g.c
	r := c.Range(g.dux)
	var out []int
	for _, p := range theory.ScaleTonesInRange(c.Key.Tonic, c.Scale, r.Low, r.High) {
		if c.Range(g.comes).Contains(g.comesOf(p)) {
			out = append(out, p)
		}
	}
	return out
}

func (g *canonGen) comesOf(p int) int {
	return ComesPitch(p, g.desc, g.axis, g.c.Key, g.c.Scale)
}

func (g *canonGen) tick(unit int) theory.Tick { return theory.Tick(unit) * g.unit }

// comesAt returns the comes pitch sounding at unit, if the comes has entered.
func (g *canonGen) comesAt(unit int) (int, bool) {
	src := unit - g.delay
	if src < 0 || src >= len(g.at) || g.at[src] < 0 {
		return 0, false
	}
	return g.comesOf(g.notes[g.at[src]].pitch), true
}

func (g *canonGen) bassAt(t theory.Tick) (int, bool) {
	for i := len(g.bass) - 1; i >= 0; i-- {
		if g.bass[i].SoundingAt(t) {
			return g.bass[i].Pitch, true
		}
	}
	return 0, false
}

func (g *canonGen) rollback(mark int) {
	for _, n := range g.notes[mark:] {
		for u := n.unit; u < n.unit+n.length; u++ {
			g.at[u] = -1
		}
	}
	g.notes = g.notes[:mark]
}

func (g *canonGen) place(unit, length, pitch int) {
	g.notes = append(g.notes, duxNote{unit: unit, length: length, pitch: pitch})
	for u := unit; u < unit+length; u++ {
		g.at[u] = len(g.notes) - 1
	}
}

// tryBar writes one bar of dux and reports Retry when a downbeat clashes
// with the comes or no candidate exists.
func (g *canonGen) tryBar(bar, first int) CanonOutcome {
	c := g.c
	start := bar * g.perBar
	end := start + g.perBar
	for u := start; u < end; {
		length := 1
		if u+1 < end && theory.IsStrongBeat(g.tick(u), c.Meter) && c.Rand.Chance(0.25) {
			length = 2
		}
		var p int
		if u == 0 {
			p = first
		} else {
			prev := g.notes[len(g.notes)-1].pitch
			cands := g.candidates(prev)
			if len(cands) == 0 {
				return CanonRetry
			}
			scores := make([]float64, len(cands))
			for i, cand := range cands {
				scores[i] = g.score(u, prev, cand)
			}
			p = cands[melody.SelectIndex(scores, c.Rand)]
		}
		g.place(u, length, p)
		u += length
	}
	if bar*g.perBar >= g.delay {
		u := start
		cp, ok := g.comesAt(u)
		if ok && theory.ClassifyIntervalWithFourth(g.notes[g.at[u]].pitch-cp, true) == theory.Dissonance {
			return CanonRetry
		}
	}
	return CanonOk
}

func (g *canonGen) candidates(prev int) []int {
	pd := g.c.degreeOf(prev)
	var out []int
	for _, p := range g.feasible {
		d := theory.Abs(g.c.degreeOf(p) - pd)
		if d >= 1 && d <= g.maxLeap {
			out = append(out, p)
		}
	}
	if len(out) > 0 {
		return out
	}
	// nothing in reach: the nearest feasible tones
	best := -1
	for _, p := range g.feasible {
		if p == prev {
			continue
		}
		if best < 0 || theory.Abs(p-prev) < theory.Abs(best-prev) {
			best = p
		}
	}
	if best >= 0 {
		out = append(out, best)
	}
	return out
}

// score rates a dux candidate at unit: melodic shape, chord fit, the comes
// it sounds against now, the bass, and a preview of the comes it implies.
func (g *canonGen) score(unit, prev, cand int) float64 {
	c := g.c
	t := g.tick(unit)
	strong := theory.IsStrongBeat(t, c.Meter)
	s := 0.0

	step := theory.Abs(c.degreeOf(cand) - c.degreeOf(prev))
	switch step {
	case 1:
		s += 0.6
	case 2:
		s += 0.35
	case 3:
		s += 0.15
	default:
		s += 0.05
	}
	if n := len(g.notes); n >= 2 && step >= 2 {
		before := g.notes[n-2].pitch
		if theory.Abs(c.degreeOf(prev)-c.degreeOf(before)) >= 2 && theory.Sign(prev-before) == theory.Sign(cand-prev) {
			s -= 0.3
		}
	}

	chord := c.ChordAt(t)
	switch {
	case chord.Contains(cand) && strong:
		s += 0.5
	case chord.Contains(cand):
		s += 0.2
	case strong:
		s -= 0.6
	}

	if cp, ok := g.comesAt(unit); ok {
		iv := cand - cp
		cls := theory.ClassifyIntervalWithFourth(iv, true)
		switch {
		case cls != theory.Dissonance && strong:
			s += 0.6
		case cls != theory.Dissonance:
			s += 0.4
		case strong:
			s -= 1.0
		case theory.IsHarshWeakBeatInterval(iv):
			s -= 0.3
		}
		if cand == cp && g.desc.Interval != 0 {
			s -= 0.2
		}
		if pcp, ok := g.comesAt(unit - 1); ok && theory.IsParallelPerfect(prev, pcp, cand, cp) {
			s -= 0.8
		}
	}

	if bp, ok := g.bassAt(t); ok {
		if theory.IsConsonant(cand - bp) {
			s += 0.2
		} else if strong {
			s -= 0.5
		}
	}

	future := g.tick(unit + g.delay)
	if unit+g.delay < g.total {
		fp := g.comesOf(cand)
		fs := theory.IsStrongBeat(future, c.Meter)
		if c.ChordAt(future).Contains(fp) {
			s += 0.3
		} else if fs {
			s -= 0.3
		}
		if bp, ok := g.bassAt(future); ok {
			if theory.IsConsonant(fp - bp) {
				s += 0.2
			} else if fs {
				s -= 0.3
			}
		}
	}

	r := c.Range(g.dux)
	s -= 0.02 * float64(theory.Abs(cand-(r.Low+r.High)/2))
	return s
}

func (g *canonGen) render() (dux, comes []models.NoteEvent) {
	c := g.c
	for _, n := range g.notes {
		start := g.tick(n.unit)
		dur := theory.Tick(n.length) * g.unit
		dux = append(dux, c.note(g.dux, start, dur, n.pitch, models.SourceCanonDux))
		cs := g.tick(n.unit + g.delay)
		if n.unit+g.delay >= g.total {
			continue
		}
		comes = append(comes, c.note(g.comes, cs, dur, g.comesOf(n.pitch), models.SourceCanonComes))
	}
	return dux, comes
}

// coda closes the dux voice on the final tonic while the comes finishes.
func (g *canonGen) coda() []models.NoteEvent {
	c := g.c
	start := g.tick(g.total - g.delay)
	end := c.Total()
	if end <= start || len(g.notes) == 0 {
		return nil
	}
	last := g.notes[len(g.notes)-1].pitch
	p := c.chordTone(g.dux, end-1, last)
	return []models.NoteEvent{c.note(g.dux, start, end-start, p, models.SourceCadence)}
}

func (g *canonGen) strongBeatConsonance() float64 {
	total, good := 0, 0
	for u := g.delay; u < g.total-g.delay; u++ {
		if !theory.IsStrongBeat(g.tick(u), g.c.Meter) || g.at[u] < 0 {
			continue
		}
		cp, ok := g.comesAt(u)
		if !ok {
			continue
		}
		total++
		if theory.ClassifyIntervalWithFourth(g.notes[g.at[u]].pitch-cp, true) != theory.Dissonance {
			good++
		}
	}
	if total == 0 {
		return 1
	}
	return float64(good) / float64(total)
}
