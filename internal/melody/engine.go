package melody

import (
	"github.com/Conceptual-Machines/bachgen/internal/harmony"
	"github.com/Conceptual-Machines/bachgen/internal/models"
	"github.com/Conceptual-Machines/bachgen/internal/rng"
	"github.com/Conceptual-Machines/bachgen/internal/theory"
)

// FigureOffbeatBonus is added to the figure probability on offbeats.
const FigureOffbeatBonus = 0.08

// EngineConfig configures one voice's engine.
type EngineConfig struct {
	Voice    int
	Profile  VoiceProfile
	Key      theory.Key
	Scale    theory.ScaleType
	Range    models.VoiceRange
	Timeline *harmony.Timeline
	Meter    theory.TimeSignature
	Contour  Contour
	Start    int
	Source   models.NoteSource
	Figures  bool
}

// Engine drives one voice: it owns the voice's melodic state and draws
// every decision from the shared generator.
type Engine struct {
	cfg   EngineConfig
	r     *rng.Rand
	State *State
	Prev  int

	phrase  int
	located bool
}

// NewEngine returns an engine positioned at cfg.Start (folded into range).
func NewEngine(cfg EngineConfig, r *rng.Rand) *Engine {
	if cfg.Meter.Numerator == 0 {
		cfg.Meter = theory.Time4_4
	}
	if cfg.Source == models.SourceUnknown {
		cfg.Source = models.SourceFreeCounterpoint
	}
	start := cfg.Range.Fold(cfg.Start)
	start = theory.NearestScaleTone(start, cfg.Key.Tonic, cfg.Scale)
	if !cfg.Range.Contains(start) {
		start = cfg.Range.Fold(start)
	}
	return &Engine{cfg: cfg, r: r, State: NewState(cfg.Contour), Prev: start}
}

// Config returns the engine configuration.
func (e *Engine) Config() EngineConfig { return e.cfg }

// Advance moves the engine to tick. Every phrase boundary crossed since
// the previous call carries the state into the next phrase; the phrase
// progress is set from tick.
func (e *Engine) Advance(tick, phraseLen theory.Tick) {
	if phraseLen <= 0 {
		return
	}
	k := int(tick / phraseLen)
	if !e.located {
		e.phrase, e.located = k, true
	}
	for ; e.phrase < k; e.phrase++ {
		e.State = e.State.Carry(BoundaryAfter(e.phrase))
	}
	e.State.SetProgress(float64(tick%phraseLen) / float64(phraseLen))
}

// ChordToneAt reports whether pitch fits the harmony at tick.
func (e *Engine) ChordToneAt(tick theory.Tick, pitch int) bool {
	if e.cfg.Timeline == nil {
		return true
	}
	ev, ok := e.cfg.Timeline.At(tick)
	if !ok {
		return true
	}
	return ev.IsChordTone(pitch)
}

var classOffsets = map[int][]int{
	IntervalStep: {1, 2},
	IntervalSkip: {2, 1, 3},
	IntervalLeap: {3, 4, 2},
}

// Candidates lists in-range scale pitches reachable from Prev by an interval
// of the given class in direction dir. If none fit, the other direction is
// tried; if still none, Prev alone is returned.
func (e *Engine) Candidates(dir, class int) []int {
	deg := theory.PitchToAbsoluteDegree(theory.NearestScaleTone(e.Prev, e.cfg.Key.Tonic, e.cfg.Scale), e.cfg.Key.Tonic, e.cfg.Scale)
	build := func(d int) []int {
		var out []int
		for _, k := range classOffsets[class] {
			p := theory.AbsoluteDegreeToPitch(deg+d*k, e.cfg.Key.Tonic, e.cfg.Scale)
			if e.cfg.Range.Contains(p) && p != e.Prev {
				out = append(out, p)
			}
		}
		return out
	}
	if c := build(dir); len(c) > 0 {
		return c
	}
	if c := build(-dir); len(c) > 0 {
		return c
	}
	return []int{e.cfg.Range.Fold(e.Prev)}
}

// NextPitch chooses, places and records the next single pitch at tick.
func (e *Engine) NextPitch(tick theory.Tick) int {
	p := e.Choose(tick)
	e.Place(p)
	return p
}

// Choose picks the next pitch at tick without placing it.
func (e *Engine) Choose(tick theory.Tick) int {
	level := theory.MetricLevelAt(tick, e.cfg.Meter)
	dir := ChooseDirection(e.State, e.cfg.Profile, e.r)
	class := ChooseInterval(e.State, e.cfg.Profile, level, e.r)
	cands := e.Candidates(dir, class)

	all := true
	for _, c := range cands {
		if !e.ChordToneAt(tick, c) {
			all = false
			break
		}
	}
	in := ScoreInput{
		State:         e.State,
		Profile:       e.cfg.Profile,
		Prev:          e.Prev,
		Level:         level,
		ChordTone:     func(p int) bool { return e.ChordToneAt(tick, p) },
		AllChordTones: all,
	}
	scores := make([]float64, len(cands))
	for i, c := range cands {
		scores[i] = Score(in, c)
	}
	return SelectPitch(cands, scores, e.r)
}

// Place records p as the next sounding pitch without choosing it.
func (e *Engine) Place(p int) {
	e.State.Update(e.Prev, p)
	e.Prev = p
}

// ChooseDuration draws a note length from the profile that fits in remain.
func (e *Engine) ChooseDuration(remain theory.Tick) theory.Tick {
	var vals []theory.Tick
	var w []float64
	for i, d := range DurationValues {
		if d < e.cfg.Profile.MinDuration || d > remain || e.cfg.Profile.DurationWeights[i] <= 0 {
			continue
		}
		vals = append(vals, d)
		w = append(w, e.cfg.Profile.DurationWeights[i])
	}
	if len(vals) == 0 {
		if remain < 1 {
			return 1
		}
		return remain
	}
	return vals[e.r.WeightedIndex(w)]
}

// Step emits the material for span ticks starting at tick: either an
// injected figure or a single note. A figure that would leave the voice
// range is abandoned in favour of a bridge note.
func (e *Engine) Step(tick, span theory.Tick) []models.NoteEvent {
	if span < 1 {
		span = 1
	}
	if e.cfg.Figures {
		prob := e.cfg.Profile.FigureProb
		if theory.MetricLevelAt(tick, e.cfg.Meter) == theory.LevelOffbeat {
			prob += FigureOffbeatBonus
		}
		if e.r.Chance(prob) {
			if notes, ok := e.tryFigure(tick, span); ok {
				return notes
			}
			p := e.NextPitch(tick)
			return []models.NoteEvent{e.note(tick, span, p, models.SourceBridge)}
		}
	}
	p := e.NextPitch(tick)
	return []models.NoteEvent{e.note(tick, span, p, e.cfg.Source)}
}

func (e *Engine) tryFigure(tick, span theory.Tick) ([]models.NoteEvent, bool) {
	pool := FigurePool(e.State.PhraseProgress)
	if len(pool) == 0 {
		return nil, false
	}
	fig := rng.Pick(e.r, pool)
	n := theory.Tick(len(fig.Steps))
	if span/n < theory.ThirtySecond {
		return nil, false
	}
	pitches, ok := ResolveFigure(fig, e.Prev, e.cfg.Key, e.cfg.Scale, e.cfg.Range.Low, e.cfg.Range.High)
	if !ok {
		return nil, false
	}
	each := span / n
	out := make([]models.NoteEvent, 0, len(pitches))
	for i, p := range pitches {
		d := each
		if i == len(pitches)-1 {
			d = span - each*(n-1)
		}
		out = append(out, e.note(tick+each*theory.Tick(i), d, p, models.SourceFigure))
		e.Place(p)
	}
	return out, true
}

func (e *Engine) note(tick, dur theory.Tick, pitch int, src models.NoteSource) models.NoteEvent {
	n := models.NoteEvent{
		StartTick: tick,
		Duration:  dur,
		Pitch:     pitch,
		Velocity:  80,
		Voice:     e.cfg.Voice,
		Source:    src,
	}
	n.Normalize()
	return n
}

// Line generates a continuous line over [from, to) using profile durations.
// Phrases are phraseLen long and counted from tick 0; a non-positive
// phraseLen treats [from, to) as one phrase.
func (e *Engine) Line(from, to, phraseLen theory.Tick) []models.NoteEvent {
	var out []models.NoteEvent
	for t := from; t < to; {
		if phraseLen > 0 {
			e.Advance(t, phraseLen)
		} else {
			e.State.SetProgress(float64(t-from) / float64(to-from))
		}
		d := e.ChooseDuration(to - t)
		out = append(out, e.Step(t, d)...)
		t += d
	}
	return out
}
