package forms

import (
	"github.com/Conceptual-Machines/bachgen/internal/melody"
	"github.com/Conceptual-Machines/bachgen/internal/models"
	"github.com/Conceptual-Machines/bachgen/internal/planner"
	"github.com/Conceptual-Machines/bachgen/internal/theory"
)

// GraveBars is the length of the overture's slow dotted section.
const GraveBars = 16

// fugatoPlan lists (voice slot order index, bar, shift) for the fugato.
var fugatoPlan = []struct{ Slot, Bar, Shift int }{
	{0, 16, 0}, {1, 17, 4}, {2, 18, 0},
	{1, 20, 1}, {0, 22, 2}, {2, 24, 3}, {0, 26, 0}, {2, 28, 0},
}

// generateOverture writes a French overture: a dotted grave over a pulsing
// bass, then a fugato on a short running subject.
func generateOverture(c *Context) (Output, error) {
	var out Output
	vs := c.Voices()
	graveEnd := c.BarStart(min(GraveBars, c.Bars()))

	out.Notes = c.figurate(figuraLine{
		Voice:       vs[0],
		Profile:     c.Desc.Figura,
		PrimaryProb: 0.85,
		Contour:     melody.ContourArch,
		Source:      models.SourceFigure,
		From:        0,
		To:          graveEnd,
	})
	if len(vs) > 2 {
		e := c.engine(vs[1], melody.ContourNeutral, false, models.SourceFreeCounterpoint)
		out.Notes = append(out.Notes, c.pulseLine(e, 0, graveEnd, theory.Half, models.SourceFreeCounterpoint)...)
	}
	for _, n := range c.groundBass(c.BassVoice(), bassPulse, models.SourceGroundBass, models.SourceFreeCounterpoint) {
		if n.StartTick < graveEnd {
			out.Notes = append(out.Notes, n)
		}
	}
	if graveEnd >= c.Total() {
		return out, nil
	}

	subject := c.makeSubject(c.BarTicks(), planner.SubjectRestless)
	var segs []segment
	for _, e := range fugatoPlan {
		if e.Slot >= len(vs) || e.Bar >= c.Bars()-1 {
			continue
		}
		v := vs[e.Slot]
		start := c.BarStart(e.Bar)
		src := models.SourceSubject
		if e.Shift == 4 {
			src = models.SourceAnswer
		}
		segs = append(segs, segment{
			voice:    v,
			start:    start,
			notes:    c.placeMotif(v, start, subject, c.baseDegree(v, e.Shift), src),
			followBy: models.SourceCountersubject,
		})
	}
	out.Notes = append(out.Notes, c.weave(segs, true, c.engineFiller(melody.ContourAscent, 0))...)
	return out, nil
}
