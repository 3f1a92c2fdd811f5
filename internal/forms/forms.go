// Package forms turns one Goldberg variation descriptor into notes. Each
// variation type has its own generator; Render wraps them with repeats,
// velocity, the harmonic time warp and articulation.
package forms

import (
	"errors"
	"fmt"

	"github.com/Conceptual-Machines/bachgen/internal/harmony"
	"github.com/Conceptual-Machines/bachgen/internal/melody"
	"github.com/Conceptual-Machines/bachgen/internal/models"
	"github.com/Conceptual-Machines/bachgen/internal/planner"
	"github.com/Conceptual-Machines/bachgen/internal/rng"
	"github.com/Conceptual-Machines/bachgen/internal/theory"
)

// HarpsichordRanges are the five Goldberg voice slots, top to bottom.
var HarpsichordRanges = map[int]models.VoiceRange{
	0: {Low: 55, High: 86},
	1: {Low: 48, High: 81},
	2: {Low: 36, High: 67},
	3: {Low: 28, High: 60},
	4: {Low: 28, High: 55},
}

// ErrUnknownVariation is returned for a descriptor without a generator.
var ErrUnknownVariation = errors.New("no generator for variation type")

// Context is everything a generator needs for one variation. Ticks are
// relative to the variation start.
type Context struct {
	Desc     planner.VariationDescriptor
	Key      theory.Key
	Scale    theory.ScaleType
	Grid     []planner.BarInfo
	Timeline *harmony.Timeline
	Meter    theory.TimeSignature
	Rand     *rng.Rand
	Seed     uint32
	Ranges   map[int]models.VoiceRange
}

// NewContext prepares a variation in the work's key. The variation's
// generator is seeded from seed and the variation number.
func NewContext(desc planner.VariationDescriptor, work theory.Key, seed uint32) (*Context, error) {
	key := desc.KeyFor(work)
	grid := planner.GoldbergGrid()
	tl, err := planner.ToTimeline(grid, key, desc.TimeSignature)
	if err != nil {
		return nil, fmt.Errorf("variation %d timeline: %w", desc.Number, err)
	}
	vseed := rng.VariationSeed(seed, desc.Number)
	return &Context{
		Desc:     desc,
		Key:      key,
		Scale:    desc.ScaleFor(key),
		Grid:     grid,
		Timeline: tl,
		Meter:    desc.TimeSignature,
		Rand:     rng.New(vseed),
		Seed:     vseed,
		Ranges:   HarpsichordRanges,
	}, nil
}

// Bars returns the number of grid bars.
func (c *Context) Bars() int { return len(c.Grid) }

// BarTicks returns one bar's length.
func (c *Context) BarTicks() theory.Tick { return c.Meter.BarTicks() }

// BeatTicks returns one notated beat's length.
func (c *Context) BeatTicks() theory.Tick { return c.Meter.BeatTicks() }

// BarStart returns the tick of bar (zero-based).
func (c *Context) BarStart(bar int) theory.Tick { return theory.Tick(bar) * c.BarTicks() }

// Total returns the length of the un-repeated variation.
func (c *Context) Total() theory.Tick { return c.BarStart(c.Bars()) }

// PhraseTicks returns the length of a 4-bar phrase.
func (c *Context) PhraseTicks() theory.Tick { return 4 * c.BarTicks() }

// Voices returns the voice slots this variation writes.
func (c *Context) Voices() []int { return c.Desc.VoiceIndices() }

// BassVoice returns the lowest voice slot in use.
func (c *Context) BassVoice() int {
	v := c.Voices()
	return v[len(v)-1]
}

// Range returns a voice's pitch window.
func (c *Context) Range(voice int) models.VoiceRange {
	if r, ok := c.Ranges[voice]; ok {
		return r
	}
	return models.VoiceRange{Low: 36, High: 84}
}

// HarmonyAt returns the harmonic event at tick.
func (c *Context) HarmonyAt(tick theory.Tick) harmony.Event {
	ev, _ := c.Timeline.At(tick)
	return ev
}

// ChordAt returns the chord sounding at tick.
func (c *Context) ChordAt(tick theory.Tick) theory.Chord { return c.HarmonyAt(tick).Chord }

// BarInfo returns the grid bar containing tick.
func (c *Context) BarInfo(tick theory.Tick) planner.BarInfo {
	b := theory.BarOf(tick, c.Meter)
	return c.Grid[theory.FloorMod(b, len(c.Grid))]
}

// Diagnostics is what a generator reports besides notes.
type Diagnostics struct {
	Canon    *CanonReport `json:"canon,omitempty"`
	Warnings []string     `json:"warnings,omitempty"`
}

// Warnf records a warning.
func (d *Diagnostics) Warnf(format string, args ...any) {
	d.Warnings = append(d.Warnings, fmt.Sprintf(format, args...))
}

// Output is a generator's result.
type Output struct {
	Notes       []models.NoteEvent
	Diagnostics Diagnostics
	// ClimaxBars receive the climax velocity boost.
	ClimaxBars []int
	// StressBeats receive the strong-beat boost in addition to the meter's.
	StressBeats []int
}

// Generator renders one variation type.
type Generator func(*Context) (Output, error)

var generators = map[planner.VariationType]Generator{
	planner.TypeAria:       generateAria,
	planner.TypeAriaDaCapo: generateAria,
	planner.TypeCanon:      generateCanon,
	planner.TypeFughetta:   generateFughetta,
	planner.TypeAllaBreve:  generateFughetta,
	planner.TypeInvention:  generateInvention,
	planner.TypeOrnamental: generateOrnamental,
	planner.TypeTrillEtude: generateTrillEtude,
	planner.TypeDance:      generateDance,
	planner.TypeOverture:   generateOverture,
	planner.TypeBlackPearl: generateBlackPearl,
	planner.TypeQuodlibet:  generateQuodlibet,
	planner.TypeVirtuoso:   generateVirtuoso,
}

// Generate dispatches the context's descriptor to its generator.
func Generate(c *Context) (Output, error) {
	gen, ok := generators[c.Desc.Type]
	if !ok {
		return Output{}, fmt.Errorf("%w: %s", ErrUnknownVariation, c.Desc.Type)
	}
	out, err := gen(c)
	if err != nil {
		return out, fmt.Errorf("variation %d (%s): %w", c.Desc.Number, c.Desc.Type, err)
	}
	models.SortNotes(out.Notes)
	return out, nil
}

// roleFor maps a voice slot to a melodic role within the variation.
func (c *Context) roleFor(voice int) melody.VoiceRole {
	vs := c.Voices()
	for i, v := range vs {
		if v == voice {
			return melody.RoleForVoice(i, len(vs))
		}
	}
	return melody.RoleAlto
}
