package postprocess

import (
	"math"

	"github.com/Conceptual-Machines/bachgen/internal/models"
	"github.com/Conceptual-Machines/bachgen/internal/planner"
	"github.com/Conceptual-Machines/bachgen/internal/rng"
	"github.com/Conceptual-Machines/bachgen/internal/theory"
)

// PhraseBars is the warp's invariant unit: phrase boundaries never move.
const PhraseBars = 4

type warpShape struct {
	maxDelta  float64
	curvature float64
}

var warpShapes = map[planner.TempoCharacter]warpShape{
	planner.TempoStable:     {0.03, 1.0},
	planner.TempoDance:      {0.04, 1.0},
	planner.TempoExpressive: {0.08, 1.5},
	planner.TempoVirtuosic:  {0.05, 0.8},
	planner.TempoLament:     {0.10, 1.8},
}

// MaxDelta returns the largest fractional beat stretch for a character.
func MaxDelta(c planner.TempoCharacter) float64 { return warpShapes[c].maxDelta }

// WarpConfig drives the harmonic time warp of one variation.
type WarpConfig struct {
	Grid      []planner.BarInfo
	Meter     theory.TimeSignature
	Character planner.TempoCharacter
	Seed      uint32
	// BarMap maps each rendered bar to its grid bar; nil means identity.
	BarMap []int
	Bars   int
}

// Warp is a piecewise-linear tick map that stretches beats inside each
// phrase while keeping every phrase boundary fixed.
type Warp struct {
	beat    theory.Tick
	phrase  theory.Tick
	prefix  [][]float64 // per phrase, cumulative warped beat starts
	lengths [][]float64
}

// NewWarp computes per-beat deltas for every phrase: tension gradient,
// cadence broadening, metric emphasis and a seeded asymmetry, shaped by the
// character's curvature, mean-centred and scaled to its maximum delta.
func NewWarp(cfg WarpConfig) *Warp {
	shape, ok := warpShapes[cfg.Character]
	if !ok {
		shape = warpShapes[planner.TempoStable]
	}
	beat := cfg.Meter.BeatTicks()
	perBar := cfg.Meter.Numerator
	if perBar <= 0 {
		perBar = theory.BeatsPerBar
	}
	w := &Warp{beat: beat, phrase: cfg.Meter.BarTicks() * PhraseBars}
	if len(cfg.Grid) == 0 {
		return w
	}
	gridBar := func(rendered int) planner.BarInfo {
		g := rendered
		if cfg.BarMap != nil && rendered < len(cfg.BarMap) {
			g = cfg.BarMap[rendered]
		}
		return cfg.Grid[theory.FloorMod(g, len(cfg.Grid))]
	}

	phrases := (cfg.Bars + PhraseBars - 1) / PhraseBars
	n := perBar * PhraseBars
	for p := 0; p < phrases; p++ {
		r := rng.New(cfg.Seed ^ uint32(p+1)*rng.SeedMixer)
		asym := r.FloatRange(-0.15, 0.15)
		raw := make([]float64, n)
		for b := 0; b < n; b++ {
			k := b / perBar
			inBar := b % perBar
			bar := gridBar(p*PhraseBars + k)
			next := gridBar(p*PhraseBars + k + 1)
			pos := float64(inBar+1) / float64(perBar)

			v := -(next.Tension.Aggregate() - bar.Tension.Aggregate()) * pos
			if bar.Cadence != planner.CadenceNone && k == PhraseBars-1 {
				v += 0.6 * pos
			}
			switch {
			case inBar == 0:
				v += 0.15
			case theory.IsAccentedBeat(theory.Tick(inBar)*beat, cfg.Meter):
				v += 0.08
			}
			if n > 1 {
				v += asym * (float64(b)/float64(n-1) - 0.5)
			}
			raw[b] = math.Copysign(math.Pow(math.Abs(v), shape.curvature), v)
		}
		deltas := centreAndScale(raw, shape.maxDelta)

		lengths := make([]float64, n)
		prefix := make([]float64, n+1)
		for b, d := range deltas {
			lengths[b] = float64(beat) * (1 + d)
			prefix[b+1] = prefix[b] + lengths[b]
		}
		w.lengths = append(w.lengths, lengths)
		w.prefix = append(w.prefix, prefix)
	}
	return w
}

func centreAndScale(raw []float64, maxDelta float64) []float64 {
	out := make([]float64, len(raw))
	if len(raw) == 0 {
		return out
	}
	mean := 0.0
	for _, v := range raw {
		mean += v
	}
	mean /= float64(len(raw))
	peak := 0.0
	for i, v := range raw {
		out[i] = v - mean
		peak = math.Max(peak, math.Abs(out[i]))
	}
	if peak < 1e-12 {
		return make([]float64, len(raw))
	}
	for i := range out {
		out[i] *= maxDelta / peak
	}
	return out
}

// Map warps one tick. Ticks beyond the computed phrases pass through.
func (w *Warp) Map(t theory.Tick) theory.Tick {
	if w.phrase <= 0 || t < 0 {
		return t
	}
	p := int(t / w.phrase)
	if p >= len(w.prefix) {
		return t
	}
	local := t - theory.Tick(p)*w.phrase
	b := int(local / w.beat)
	if b >= len(w.lengths[p]) {
		return t
	}
	frac := float64(local-theory.Tick(b)*w.beat) / float64(w.beat)
	pos := w.prefix[p][b] + frac*w.lengths[p][b]
	return theory.Tick(p)*w.phrase + theory.Tick(math.Round(pos))
}

// Deltas returns the fractional stretch of each beat in phrase p.
func (w *Warp) Deltas(p int) []float64 {
	if p < 0 || p >= len(w.lengths) {
		return nil
	}
	out := make([]float64, len(w.lengths[p]))
	for i, l := range w.lengths[p] {
		out[i] = l/float64(w.beat) - 1
	}
	return out
}

// Apply warps note starts and ends in place. Ticks are relative to the
// variation start.
func (w *Warp) Apply(notes []models.NoteEvent) {
	for i := range notes {
		n := &notes[i]
		s := w.Map(n.StartTick)
		e := w.Map(n.EndTick())
		d := max(e-s, 1)
		if s != n.StartTick || d != n.Duration {
			n.StartTick, n.Duration = s, d
			n.ModifiedBy |= models.ModTimeWarp
		}
	}
}
