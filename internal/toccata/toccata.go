// Package toccata generates free-standing organ toccatas. A plan from the
// planner splits the piece into phases; each phase is rendered with the
// texture its kind asks for, then the whole piece gets a final chord,
// overlap cleanup, an optional Picardy third and the counterpoint repairs.
package toccata

import (
	"context"
	"fmt"

	"github.com/Conceptual-Machines/bachgen/internal/harmony"
	"github.com/Conceptual-Machines/bachgen/internal/melody"
	"github.com/Conceptual-Machines/bachgen/internal/models"
	"github.com/Conceptual-Machines/bachgen/internal/planner"
	"github.com/Conceptual-Machines/bachgen/internal/postprocess"
	"github.com/Conceptual-Machines/bachgen/internal/rng"
	"github.com/Conceptual-Machines/bachgen/internal/theory"
)

const (
	MinVoices     = 2
	MaxVoices     = 5
	DefaultVoices = 3

	// OrganVelocity is the velocity of every organ note.
	OrganVelocity = 80
)

// ManualRanges are the ranges of the manual voices, top first.
var ManualRanges = []models.VoiceRange{
	{Low: 60, High: 88},
	{Low: 52, High: 79},
	{Low: 48, High: 74},
	{Low: 43, High: 69},
}

// PedalRange is the range of the pedal voice.
var PedalRange = models.VoiceRange{Low: 29, High: 55}

// ClampVoices bounds a voice count to what the organ layout supports.
func ClampVoices(n int) int {
	if n == 0 {
		return DefaultVoices
	}
	return min(max(n, MinVoices), MaxVoices)
}

// PedalVoice returns the voice index of the pedal in an n-voice toccata.
func PedalVoice(n int) int { return ClampVoices(n) - 1 }

// OrganRanges returns the voice ranges of an n-voice toccata: manuals
// first, the pedal last.
func OrganRanges(n int) map[int]models.VoiceRange {
	n = ClampVoices(n)
	out := make(map[int]models.VoiceRange, n)
	for v := 0; v < n-1; v++ {
		out[v] = ManualRanges[v]
	}
	out[n-1] = PedalRange
	return out
}

// Config selects a toccata.
type Config struct {
	Archetype planner.Archetype
	Key       theory.Key
	Seed      uint32
	Voices    int
	TotalBars int
	Picardy   bool
}

// PhaseRecord describes one rendered phase.
type PhaseRecord struct {
	Name       string              `json:"name"`
	Phase      string              `json:"phase"`
	Index      int                 `json:"index"`
	Kind       planner.SectionKind `json:"kind"`
	StartTick  theory.Tick         `json:"start_tick"`
	EndTick    theory.Tick         `json:"end_tick"`
	Bars       int                 `json:"bars"`
	Energy     float64             `json:"energy"`
	Manual     string              `json:"manual"`
	Notes      int                 `json:"notes"`
	PedalNotes int                 `json:"pedal_notes"`
}

// Duration returns the phase length in ticks.
func (p PhaseRecord) Duration() theory.Tick { return p.EndTick - p.StartTick }

// Registration is a registration change: from Tick on, notes sound on the
// named manual with the given velocity.
type Registration struct {
	Tick     theory.Tick `json:"tick"`
	Manual   string      `json:"manual"`
	Velocity int         `json:"velocity"`
}

// Piece is a generated toccata.
type Piece struct {
	Notes         []models.NoteEvent        `json:"notes"`
	Phases        []PhaseRecord             `json:"phases"`
	Registrations []Registration            `json:"registrations"`
	Timeline      *harmony.Timeline         `json:"-"`
	Ranges        map[int]models.VoiceRange `json:"ranges"`
	Voices        int                       `json:"voices"`
	Meter         theory.TimeSignature      `json:"meter"`
	Duration      theory.Tick               `json:"duration"`
	Report        postprocess.Report        `json:"report"`
	Warnings      []string                  `json:"warnings,omitempty"`
}

// Generate renders the toccata cfg describes.
func Generate(ctx context.Context, cfg Config) (*Piece, error) {
	if cfg.TotalBars < 1 {
		return nil, fmt.Errorf("toccata needs at least one bar, got %d", cfg.TotalBars)
	}
	cfg.Voices = ClampVoices(cfg.Voices)
	plan := planner.ToccataPlan(cfg.Archetype, cfg.TotalBars)
	if len(plan) == 0 {
		return nil, fmt.Errorf("no sections planned for %s over %d bars", cfg.Archetype, cfg.TotalBars)
	}

	b := newBuilder(cfg)
	tl, err := b.timeline(plan)
	if err != nil {
		return nil, fmt.Errorf("toccata timeline: %w", err)
	}
	b.tl = tl

	for i, s := range plan {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b.section(s, i == len(plan)-1)
	}
	finalBar := b.total - b.bar
	b.finalChord(finalBar)

	var report postprocess.Report
	notes, trimmed := postprocess.TrimOverlaps(b.notes)
	report.OverlapsTrimmed = trimmed
	if cfg.Picardy {
		report.PicardyRaised = postprocess.RaisePicardy(notes, cfg.Key, finalBar)
	}
	pc := postprocess.NewContext(b.ranges, postprocess.Span{
		Start:    0,
		End:      b.total,
		Key:      cfg.Key,
		Scale:    b.scale,
		Meter:    b.meter,
		Timeline: tl,
	})
	report.Add(pc.Repair(notes))
	if report.UnresolvedParallels > 0 {
		b.warn("%d parallel perfects left unresolved", report.UnresolvedParallels)
	}

	regs := registrations(plan, b.bar)
	applyRegistration(notes, regs)
	models.SortNotes(notes)

	return &Piece{
		Notes:         notes,
		Phases:        phaseRecords(plan, notes, b.bar, b.pedal),
		Registrations: regs,
		Timeline:      tl,
		Ranges:        b.ranges,
		Voices:        cfg.Voices,
		Meter:         b.meter,
		Duration:      b.total,
		Report:        report,
		Warnings:      b.warnings,
	}, nil
}

// registrations places one change at the start of every section.
func registrations(plan []planner.ToccataSection, bar theory.Tick) []Registration {
	out := make([]Registration, 0, len(plan))
	for _, s := range plan {
		out = append(out, Registration{
			Tick:     theory.Tick(s.StartBar) * bar,
			Manual:   s.Manual,
			Velocity: OrganVelocity,
		})
	}
	return out
}

// applyRegistration sets each note's velocity from the registration in
// force at its start.
func applyRegistration(notes []models.NoteEvent, regs []Registration) {
	for i := range notes {
		n := &notes[i]
		v := OrganVelocity
		for _, r := range regs {
			if r.Tick > n.StartTick {
				break
			}
			v = r.Velocity
		}
		n.Velocity = v
		n.ModifiedBy |= models.ModVelocity
	}
}

func phaseRecords(plan []planner.ToccataSection, notes []models.NoteEvent, bar theory.Tick, pedal int) []PhaseRecord {
	out := make([]PhaseRecord, 0, len(plan))
	for _, s := range plan {
		rec := PhaseRecord{
			Name:      s.Name,
			Phase:     s.Phase,
			Index:     s.Index,
			Kind:      s.Kind,
			StartTick: theory.Tick(s.StartBar) * bar,
			EndTick:   theory.Tick(s.StartBar+s.Bars) * bar,
			Bars:      s.Bars,
			Energy:    s.Energy,
			Manual:    s.Manual,
		}
		for _, n := range notes {
			if n.StartTick < rec.StartTick || n.StartTick >= rec.EndTick {
				continue
			}
			rec.Notes++
			if n.Voice == pedal {
				rec.PedalNotes++
			}
		}
		out = append(out, rec)
	}
	return out
}

// builder holds the state shared by every section renderer.
type builder struct {
	cfg    Config
	scale  theory.ScaleType
	meter  theory.TimeSignature
	bar    theory.Tick
	beat   theory.Tick
	total  theory.Tick
	pedal  int
	ranges map[int]models.VoiceRange
	tl     *harmony.Timeline
	r      *rng.Rand
	markov *melody.DegreeMarkov
	lines  map[int]*line
	prev   *planner.ToccataSection
	seen   map[string]bool

	notes    []models.NoteEvent
	warnings []string
}

func newBuilder(cfg Config) *builder {
	meter := theory.Time4_4
	b := &builder{
		cfg:    cfg,
		scale:  cfg.Key.Scale(),
		meter:  meter,
		bar:    meter.BarTicks(),
		beat:   meter.BeatTicks(),
		total:  theory.Tick(cfg.TotalBars) * meter.BarTicks(),
		pedal:  cfg.Voices - 1,
		ranges: OrganRanges(cfg.Voices),
		r:      rng.New(rng.ResolveSeed(cfg.Seed)),
		markov: melody.NewDegreeMarkov(),
		lines:  make(map[int]*line, cfg.Voices),
		seen:   make(map[string]bool),
	}
	for v := 0; v < cfg.Voices; v++ {
		b.lines[v] = b.newLine(v)
	}
	return b
}

func (b *builder) warn(format string, args ...any) {
	b.warnings = append(b.warnings, fmt.Sprintf(format, args...))
}

// timeline lays the plan's harmony out one chord per bar.
func (b *builder) timeline(plan []planner.ToccataSection) (*harmony.Timeline, error) {
	tl, _ := harmony.NewTimeline()
	for _, s := range plan {
		for i, d := range s.Harmony {
			start := theory.Tick(s.StartBar+i) * b.bar
			chord := theory.BuildChord(d, b.cfg.Key)
			err := tl.Append(harmony.Event{
				Tick:      start,
				EndTick:   start + b.bar,
				Key:       b.cfg.Key,
				Chord:     chord,
				BassPitch: lowestWithClass(PedalRange, chord.RootPC),
				Weight:    s.Energy,
			})
			if err != nil {
				return nil, err
			}
		}
	}
	return tl, nil
}

func (b *builder) chordAt(tick theory.Tick) theory.Chord {
	if e, ok := b.tl.At(tick); ok {
		return e.Chord
	}
	return theory.BuildChord(theory.DegreeI, b.cfg.Key)
}

func (b *builder) degreeOf(p int) int {
	p = theory.NearestScaleTone(p, b.cfg.Key.Tonic, b.scale)
	return theory.PitchToAbsoluteDegree(p, b.cfg.Key.Tonic, b.scale)
}

func (b *builder) pitchOf(deg int) int {
	return theory.AbsoluteDegreeToPitch(deg, b.cfg.Key.Tonic, b.scale)
}

func (b *builder) emit(voice int, start, dur theory.Tick, pitch int, src models.NoteSource) {
	if dur <= 0 {
		return
	}
	b.notes = append(b.notes, models.NoteEvent{
		StartTick: start,
		Duration:  dur,
		Pitch:     pitch,
		Velocity:  OrganVelocity,
		Voice:     voice,
		Source:    src,
	})
}

// manuals lists the manual voices, top first.
func (b *builder) manuals() []int {
	out := make([]int, 0, b.pedal)
	for v := 0; v < b.pedal; v++ {
		out = append(out, v)
	}
	return out
}

func lowestWithClass(r models.VoiceRange, pc int) int {
	for p := r.Low; p <= r.High; p++ {
		if theory.PitchClass(p) == theory.FloorMod(pc, 12) {
			return p
		}
	}
	return r.Low
}
