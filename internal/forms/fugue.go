package forms

import (
	"github.com/Conceptual-Machines/bachgen/internal/melody"
	"github.com/Conceptual-Machines/bachgen/internal/models"
	"github.com/Conceptual-Machines/bachgen/internal/planner"
	"github.com/Conceptual-Machines/bachgen/internal/theory"
)

// SubjectBars is the length of a fughetta subject.
const SubjectBars = 2

// fugueEntry places one statement of the subject. Shift is in scale degrees
// above the voice's tonic; an answer sits a fifth up.
type fugueEntry struct {
	Voice    int
	Bar      int
	Shift    int
	Inverted bool
	Source   models.NoteSource
}

// exposition enters alto, soprano, tenor, bass in subject/answer order.
var fugueExposition = []fugueEntry{
	{Voice: 1, Bar: 0, Shift: 0, Source: models.SourceSubject},
	{Voice: 0, Bar: 2, Shift: 4, Source: models.SourceAnswer},
	{Voice: 2, Bar: 4, Shift: 0, Source: models.SourceSubject},
	{Voice: 3, Bar: 6, Shift: 4, Source: models.SourceAnswer},
}

var fugueMiddleEntries = []fugueEntry{
	{Voice: 0, Bar: 10, Shift: 5, Source: models.SourceSubject},
	{Voice: 2, Bar: 14, Shift: 2, Inverted: true, Source: models.SourceSubject},
	{Voice: 1, Bar: 18, Shift: 1, Source: models.SourceSubject},
	{Voice: 3, Bar: 22, Shift: 4, Source: models.SourceAnswer},
	{Voice: 0, Bar: 26, Shift: 0, Source: models.SourceSubject},
	{Voice: 3, Bar: 28, Shift: 0, Source: models.SourceSubject},
}

// fugueEpisodes are sequences of the subject head, one voice per slot.
var fugueEpisodes = []struct{ Voice, Bar, Shift int }{
	{1, 8, 2}, {3, 12, 3}, {0, 16, 4}, {2, 20, 1}, {1, 24, 3},
}

// generateFughetta writes a four-voice fugal texture: a staggered
// exposition, free episodes built on the subject head and middle entries
// in related degrees. The alla breve keeps the same plan on a severe
// subject with half-note counterpoint.
func generateFughetta(c *Context) (Output, error) {
	var out Output
	allaBreve := c.Desc.Type == planner.TypeAllaBreve
	bar := c.BarTicks()

	subject := c.makeSubject(SubjectBars*bar, c.Desc.Subject)
	head := subject.head(bar)

	var segs []segment
	for _, e := range append(append([]fugueEntry(nil), fugueExposition...), fugueMiddleEntries...) {
		if e.Bar >= c.Bars()-1 || !c.hasVoice(e.Voice) {
			continue
		}
		m := subject
		if e.Inverted {
			m = subject.inverted()
		}
		start := c.BarStart(e.Bar)
		segs = append(segs, segment{
			voice:    e.Voice,
			start:    start,
			notes:    c.placeMotif(e.Voice, start, m, c.baseDegree(e.Voice, e.Shift), e.Source),
			followBy: models.SourceCountersubject,
		})
	}
	for _, ep := range fugueEpisodes {
		if ep.Bar >= c.Bars()-1 || !c.hasVoice(ep.Voice) {
			continue
		}
		start := c.BarStart(ep.Bar)
		var notes []models.NoteEvent
		for k := 0; k < 2; k++ {
			base := c.baseDegree(ep.Voice, ep.Shift-k)
			notes = append(notes, c.placeMotif(ep.Voice, start+theory.Tick(k)*bar, head, base, models.SourceEpisode)...)
		}
		segs = append(segs, segment{voice: ep.Voice, start: start, notes: notes, followBy: models.SourceFreeCounterpoint})
	}

	var step theory.Tick
	if allaBreve {
		step = theory.Half
	}
	out.Notes = c.weave(segs, true, c.engineFiller(melody.ContourArch, step))
	return out, nil
}

// hasVoice reports whether voice is one of the variation's slots.
func (c *Context) hasVoice(voice int) bool {
	for _, v := range c.Voices() {
		if v == voice {
			return true
		}
	}
	return false
}
