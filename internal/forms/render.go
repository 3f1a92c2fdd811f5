package forms

import (
	"fmt"

	"github.com/Conceptual-Machines/bachgen/internal/harmony"
	"github.com/Conceptual-Machines/bachgen/internal/models"
	"github.com/Conceptual-Machines/bachgen/internal/planner"
	"github.com/Conceptual-Machines/bachgen/internal/postprocess"
	"github.com/Conceptual-Machines/bachgen/internal/theory"
)

// RenderOptions selects the per-variation pipeline stages.
type RenderOptions struct {
	Repeats         bool
	OrnamentRepeats bool
	// Aria is the first aria after the full pipeline. The da capo replays
	// it note for note.
	Aria *Rendered
}

// Rendered is one variation after the pipeline. Ticks are relative to the
// variation start.
type Rendered struct {
	Notes       []models.NoteEvent
	Raw         Output
	Bars        int
	BarMap      []int
	Duration    theory.Tick
	Timeline    *harmony.Timeline
	Diagnostics Diagnostics
	Chromatic   int
	Ornaments   int
}

// Render generates the variation, then adds chromatic passing tones,
// velocities, the binary repeat, the harmonic time warp and the
// articulation profile. The da capo returns a copy of opts.Aria.
func Render(c *Context, opts RenderOptions) (*Rendered, error) {
	if c.Desc.Type == planner.TypeAriaDaCapo && opts.Aria != nil {
		return opts.Aria.Copy(), nil
	}
	raw, err := Generate(c)
	if err != nil {
		return nil, err
	}

	r := &Rendered{Raw: raw, Diagnostics: raw.Diagnostics, Bars: c.Bars()}
	notes := append([]models.NoteEvent(nil), raw.Notes...)

	if UsesChromaticPassing(c.Desc.TempoCharacter) {
		notes, r.Chromatic = ChromaticPassing(notes, c.Ranges, c.Rand)
	}
	ApplyVelocity(notes, c.Meter, raw.ClimaxBars, raw.StressBeats)

	if opts.Repeats {
		notes, r.BarMap = BinaryRepeat(notes, c.Bars(), c.BarTicks())
		r.Bars = len(r.BarMap)
		if opts.OrnamentRepeats {
			notes, r.Ornaments = OrnamentRepeat(notes, c.Bars(), c.BarTicks(), c.Ranges, c.Key, c.Scale, c.Rand)
		}
	}

	warp := postprocess.NewWarp(postprocess.WarpConfig{
		Grid:      c.Grid,
		Meter:     c.Meter,
		Character: c.Desc.TempoCharacter,
		Seed:      c.Seed,
		BarMap:    r.BarMap,
		Bars:      r.Bars,
	})
	warp.Apply(notes)
	postprocess.Articulate(notes, c.Desc.Articulation)
	models.SortNotes(notes)

	r.Notes = notes
	r.Duration = theory.Tick(r.Bars) * c.BarTicks()
	tl, err := c.renderedTimeline(r.BarMap, r.Bars, warp)
	if err != nil {
		return nil, fmt.Errorf("variation %d timeline: %w", c.Desc.Number, err)
	}
	r.Timeline = tl
	return r, nil
}

// Copy returns a deep copy whose notes, bar map and timeline can be shifted
// without touching r.
func (r *Rendered) Copy() *Rendered {
	cp := *r
	cp.Notes = append([]models.NoteEvent(nil), r.Notes...)
	cp.BarMap = append([]int(nil), r.BarMap...)
	if r.Timeline != nil {
		cp.Timeline = r.Timeline.Offset(0)
	}
	return &cp
}

// renderedTimeline lays the grid's bar harmonies out in rendered order with
// bar lines moved by the warp.
func (c *Context) renderedTimeline(barMap []int, bars int, w *postprocess.Warp) (*harmony.Timeline, error) {
	bar := c.BarTicks()
	events := c.Timeline.Events()
	byBar := make(map[int]harmony.Event, len(events))
	for _, e := range events {
		byBar[theory.BarOf(e.Tick, c.Meter)] = e
	}
	tl, _ := harmony.NewTimeline()
	for i := 0; i < bars; i++ {
		g := i
		if barMap != nil {
			g = barMap[i]
		}
		e, ok := byBar[g]
		if !ok {
			continue
		}
		e.Tick = w.Map(theory.Tick(i) * bar)
		e.EndTick = w.Map(theory.Tick(i+1) * bar)
		if err := tl.Append(e); err != nil {
			return nil, err
		}
	}
	return tl, nil
}
