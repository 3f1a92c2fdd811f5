package forms

import (
	"github.com/Conceptual-Machines/bachgen/internal/melody"
	"github.com/Conceptual-Machines/bachgen/internal/models"
	"github.com/Conceptual-Machines/bachgen/internal/theory"
)

// OrnamentProbability is the share of skeleton beats the ornament engine
// decorates in the ornamental variations.
const OrnamentProbability = 0.12

// generateOrnamental writes one skeleton note per beat in the upper voice,
// chord tones on strong beats, and lets the ornament engine decorate a few
// of them with the variation's figura.
func generateOrnamental(c *Context) (Output, error) {
	var out Output
	top, bass := c.Voices()[0], c.BassVoice()

	e := c.engine(top, melody.ContourArch, false, models.SourceFreeCounterpoint)
	skeleton := c.pulseLine(e, 0, c.Total(), c.BeatTicks(), models.SourceFreeCounterpoint)
	for _, n := range skeleton {
		if c.Rand.Chance(OrnamentProbability) {
			if dec, ok := c.decorate(n); ok {
				out.Notes = append(out.Notes, dec...)
				continue
			}
		}
		out.Notes = append(out.Notes, n)
	}
	out.Notes = append(out.Notes, c.groundBass(bass, bassSustained, models.SourceGroundBass, models.SourceGroundBass)...)
	return out, nil
}

// decorate replaces n by a primary figura cell anchored on its pitch. It
// fails when the cell leaves the range or the note is too short to split.
func (c *Context) decorate(n models.NoteEvent) ([]models.NoteEvent, bool) {
	if n.Duration < theory.Eighth {
		return nil, false
	}
	cell := c.Desc.Figura.Primary.PickCell(c.Rand, 0)
	notes, ok := c.placeCell(n.Voice, n.StartTick, n.Duration, cell, n.Pitch, models.SourceOrnament)
	if !ok || len(notes) == 0 {
		return nil, false
	}
	return notes, true
}

// TrillPrimaryProbability is how often the trill etude picks the Trillo.
const TrillPrimaryProbability = 0.8

// generateTrillEtude runs Trillo cells through every beat of the upper
// voice over a pulsing bass.
func generateTrillEtude(c *Context) (Output, error) {
	var out Output
	top, bass := c.Voices()[0], c.BassVoice()
	out.Notes = c.figurate(figuraLine{
		Voice:       top,
		Profile:     c.Desc.Figura,
		PrimaryProb: TrillPrimaryProbability,
		Contour:     melody.ContourWave,
		Source:      models.SourceFigure,
		From:        0,
		To:          c.Total(),
	})
	out.Notes = append(out.Notes, c.groundBass(bass, bassPulse, models.SourceGroundBass, models.SourceFreeCounterpoint)...)
	return out, nil
}
