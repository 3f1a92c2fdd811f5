package forms

import (
	"github.com/Conceptual-Machines/bachgen/internal/melody"
	"github.com/Conceptual-Machines/bachgen/internal/models"
	"github.com/Conceptual-Machines/bachgen/internal/planner"
	"github.com/Conceptual-Machines/bachgen/internal/theory"
)

// GigueBias tilts gigue cells upward.
const GigueBias = 0.4

// generateDance drives the figura generator with the dance's profile.
func generateDance(c *Context) (Output, error) {
	switch c.Desc.Dance {
	case planner.DanceGigue:
		return generateGigue(c), nil
	case planner.DanceSarabande:
		return generateSarabande(c), nil
	}
	return generatePassepied(c), nil
}

// generatePassepied writes symmetric four-bar phrases: bars three and four
// answer bars one and two on the new harmony.
func generatePassepied(c *Context) Output {
	var out Output
	vs := c.Voices()
	top, bass := vs[0], c.BassVoice()
	bar := c.BarTicks()

	for ph := 0; ph < c.Bars()/4; ph++ {
		from := c.BarStart(ph * 4)
		first := c.figurate(figuraLine{
			Voice:       top,
			Profile:     c.Desc.Figura,
			PrimaryProb: 0.75,
			Contour:     melody.ContourArch,
			Source:      models.SourceFigure,
			From:        from,
			To:          from + 2*bar,
		})
		out.Notes = append(out.Notes, first...)
		out.Notes = append(out.Notes, c.mirrorBars(first, 2*bar)...)
	}
	if len(vs) > 2 {
		out.Notes = append(out.Notes, c.sustainedLine(vs[1], models.SourceFreeCounterpoint)...)
	}
	out.Notes = append(out.Notes, c.groundBass(bass, bassWalking, models.SourceGroundBass, models.SourceFreeCounterpoint)...)
	return out
}

// mirrorBars repeats notes shift ticks later, moved diatonically so the
// first note lands on a chord tone of its new bar.
func (c *Context) mirrorBars(notes []models.NoteEvent, shift theory.Tick) []models.NoteEvent {
	if len(notes) == 0 {
		return nil
	}
	head := notes[0]
	target := c.chordTone(head.Voice, head.StartTick+shift, head.Pitch)
	delta := c.degreeOf(target) - c.degreeOf(head.Pitch)
	r := c.Range(head.Voice)
	out := make([]models.NoteEvent, 0, len(notes))
	for _, n := range notes {
		m := n
		m.StartTick += shift
		m.Pitch = r.Fold(c.pitchOf(c.degreeOf(n.Pitch) + delta))
		if m.StartTick >= c.Total() {
			break
		}
		out = append(out, m)
	}
	return out
}

// sustainedLine holds one chord tone per bar, moving to the nearest tone of
// each new chord.
func (c *Context) sustainedLine(voice int, src models.NoteSource) []models.NoteEvent {
	var out []models.NoteEvent
	prev := c.centre(voice)
	for b := 0; b < c.Bars(); b++ {
		start := c.BarStart(b)
		p := c.chordTone(voice, start, prev)
		out = append(out, c.note(voice, start, c.BarTicks(), p, src))
		prev = p
	}
	return out
}

// generateGigue writes running compound-time figures with an upward bias
// over a dotted-pulse bass.
func generateGigue(c *Context) Output {
	var out Output
	top, bass := c.Voices()[0], c.BassVoice()
	out.Notes = c.figurate(figuraLine{
		Voice:       top,
		Profile:     c.Desc.Figura,
		PrimaryProb: 0.8,
		Bias:        GigueBias,
		Contour:     melody.ContourAscent,
		Source:      models.SourceFigure,
		From:        0,
		To:          c.Total(),
	})
	out.Notes = append(out.Notes, c.groundBass(bass, bassPulse, models.SourceGroundBass, models.SourceFreeCounterpoint)...)
	return out
}

// generateSarabande leans on the second beat: the middle voice plays a
// quarter and a held half, and the velocity model stresses beat two.
func generateSarabande(c *Context) Output {
	out := Output{StressBeats: []int{1}}
	vs := c.Voices()
	top, bass := vs[0], c.BassVoice()
	out.Notes = c.figurate(figuraLine{
		Voice:       top,
		Profile:     c.Desc.Figura,
		PrimaryProb: 0.7,
		Contour:     melody.ContourArch,
		Source:      models.SourceFigure,
		From:        0,
		To:          c.Total(),
		HoldRest:    true,
	})
	if len(vs) > 2 {
		mid := vs[1]
		beat := c.BeatTicks()
		prev := c.centre(mid)
		for b := 0; b < c.Bars(); b++ {
			start := c.BarStart(b)
			p := c.chordTone(mid, start, prev)
			q := c.chordTone(mid, start+beat, p+c.Rand.IntRange(-2, 2))
			out.Notes = append(out.Notes,
				c.note(mid, start, beat, p, models.SourceFreeCounterpoint),
				c.note(mid, start+beat, c.BarTicks()-beat, q, models.SourceFreeCounterpoint))
			prev = q
		}
	}
	out.Notes = append(out.Notes, c.groundBass(bass, bassPulse, models.SourceGroundBass, models.SourceFreeCounterpoint)...)
	return out
}
