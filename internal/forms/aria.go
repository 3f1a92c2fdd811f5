package forms

import (
	"github.com/Conceptual-Machines/bachgen/internal/melody"
	"github.com/Conceptual-Machines/bachgen/internal/models"
	"github.com/Conceptual-Machines/bachgen/internal/planner"
	"github.com/Conceptual-Machines/bachgen/internal/theory"
)

// generateAria writes the sarabande aria: an ornamented cantabile line over
// the ground bass, closing each perfect cadence on a held chord tone.
func generateAria(c *Context) (Output, error) {
	top, bass := c.Voices()[0], c.BassVoice()
	var out Output

	for ph := 0; ph < c.Bars()/4; ph++ {
		from := c.BarStart(ph * 4)
		to := c.BarStart(ph*4 + 4)
		last := c.Grid[ph*4+3]
		if last.Cadence == planner.CadencePerfect {
			to = c.BarStart(ph*4 + 3)
		}
		out.Notes = append(out.Notes, c.figurate(figuraLine{
			Voice:       top,
			Profile:     c.Desc.Figura,
			PrimaryProb: 0.65,
			Contour:     melody.ContourArch,
			Source:      models.SourceAriaMelody,
			From:        from,
			To:          to,
			HoldRest:    true,
		})...)
		if last.Cadence == planner.CadencePerfect {
			out.Notes = append(out.Notes, c.cadenceNote(top, ph*4+3))
		}
	}
	out.Notes = append(out.Notes, c.groundBass(bass, bassPulse, models.SourceGroundBass, models.SourceAriaBass)...)
	return out, nil
}

// cadenceNote holds the chord root of bar for the whole bar, near the
// middle of voice's range.
func (c *Context) cadenceNote(voice, bar int) models.NoteEvent {
	start := c.BarStart(bar)
	root := c.ChordAt(start).RootPC
	p := c.Range(voice).Fold(theory.NearestPitchWithClass(root, c.centre(voice)))
	return c.note(voice, start, c.BarTicks(), p, models.SourceCadence)
}
