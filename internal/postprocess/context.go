// Package postprocess holds the passes that run over generated notes: the
// harmonic time warp, articulation, counterpoint repairs and organ cleanup.
package postprocess

import (
	"sort"

	"github.com/Conceptual-Machines/bachgen/internal/harmony"
	"github.com/Conceptual-Machines/bachgen/internal/models"
	"github.com/Conceptual-Machines/bachgen/internal/theory"
)

// Span is a stretch of output sharing one key and meter. Timeline ticks are
// absolute.
type Span struct {
	Start    theory.Tick
	End      theory.Tick
	Key      theory.Key
	Scale    theory.ScaleType
	Meter    theory.TimeSignature
	Timeline *harmony.Timeline
}

// Context tells the repair passes where keys, meters and voice ranges are.
type Context struct {
	Spans  []Span
	Ranges map[int]models.VoiceRange
}

// NewContext returns a context with spans sorted by start tick.
func NewContext(ranges map[int]models.VoiceRange, spans ...Span) *Context {
	c := &Context{Spans: append([]Span(nil), spans...), Ranges: ranges}
	sort.SliceStable(c.Spans, func(i, j int) bool { return c.Spans[i].Start < c.Spans[j].Start })
	return c
}

// SpanAt returns the span covering tick. Ticks past the last span belong to
// it; a context without spans reports 4/4 in G major.
func (c *Context) SpanAt(tick theory.Tick) Span {
	if len(c.Spans) == 0 {
		return Span{Key: theory.GMajor, Scale: theory.ScaleMajor, Meter: theory.Time4_4}
	}
	i := sort.Search(len(c.Spans), func(i int) bool { return c.Spans[i].Start > tick })
	if i == 0 {
		return c.Spans[0]
	}
	return c.Spans[i-1]
}

// InRange reports whether pitch fits voice's range. Voices without a range
// accept anything.
func (c *Context) InRange(voice, pitch int) bool {
	r, ok := c.Ranges[voice]
	if !ok {
		return pitch >= 0 && pitch <= 127
	}
	return r.Contains(pitch)
}

// ChordToneAt reports whether pitch belongs to the chord sounding at tick.
func (c *Context) ChordToneAt(tick theory.Tick, pitch int) bool {
	span := c.SpanAt(tick)
	if span.Timeline == nil {
		return false
	}
	ev, ok := span.Timeline.At(tick)
	return ok && ev.IsChordTone(pitch)
}

// Snap moves pitch to the nearest tone of the scale in force at tick.
func (c *Context) Snap(tick theory.Tick, pitch int) int {
	span := c.SpanAt(tick)
	return theory.NearestScaleTone(pitch, span.Key.Tonic, span.Scale)
}

// Report counts what the repair passes changed.
type Report struct {
	ParallelRepairs     int `json:"parallel_repairs"`
	ParallelPasses      int `json:"parallel_passes"`
	TritoneRepairs      int `json:"tritone_repairs"`
	LeapResolutions     int `json:"leap_resolutions"`
	OverlapsTrimmed     int `json:"overlaps_trimmed"`
	PicardyRaised       int `json:"picardy_raised"`
	UnresolvedParallels int `json:"unresolved_parallels"`
}

// Add accumulates another report.
func (r *Report) Add(o Report) {
	r.ParallelRepairs += o.ParallelRepairs
	r.ParallelPasses += o.ParallelPasses
	r.TritoneRepairs += o.TritoneRepairs
	r.LeapResolutions += o.LeapResolutions
	r.OverlapsTrimmed += o.OverlapsTrimmed
	r.PicardyRaised += o.PicardyRaised
	r.UnresolvedParallels += o.UnresolvedParallels
}

// Counts returns the per-pass change counts keyed by pass name.
func (r Report) Counts() map[string]int {
	return map[string]int{
		"parallel": r.ParallelRepairs,
		"tritone":  r.TritoneRepairs,
		"leap":     r.LeapResolutions,
		"overlap":  r.OverlapsTrimmed,
		"picardy":  r.PicardyRaised,
	}
}
