package forms

import (
	"math"

	"github.com/Conceptual-Machines/bachgen/internal/melody"
	"github.com/Conceptual-Machines/bachgen/internal/models"
	"github.com/Conceptual-Machines/bachgen/internal/planner"
	"github.com/Conceptual-Machines/bachgen/internal/theory"
)

// figuraLine configures the figuration generator for one voice.
type figuraLine struct {
	Voice       int
	Profile     planner.FiguraProfile
	PrimaryProb float64
	Bias        float64 // cell direction bias added to the contour's
	Contour     melody.Contour
	Source      models.NoteSource
	From, To    theory.Tick
	// HoldRest sustains one note to the bar line when the chosen cell
	// cannot fit instead of falling back to the secondary figure.
	HoldRest bool
}

// anchorFor picks the chord tone a cell starts on: the previous pitch
// nudged along the contour and pulled back toward the middle of the range.
func (c *Context) anchorFor(voice int, tick theory.Tick, prev int, contour melody.Contour) int {
	r := c.Range(voice)
	drift := int(math.Round(contour.DirectionAt(c.phraseProgress(tick)) * 3))
	drift += c.Rand.IntRange(-2, 2)
	mid := (r.Low + r.High) / 2
	switch {
	case prev > mid+8:
		drift -= 3
	case prev < mid-8:
		drift += 3
	}
	return c.chordTone(voice, tick, prev+drift)
}

// placeCell resolves cell on anchor over span ticks. It reports false when
// any note would leave the voice's range.
func (c *Context) placeCell(voice int, tick, span theory.Tick, cell melody.FiguraCell, anchor int, src models.NoteSource) ([]models.NoteEvent, bool) {
	r := c.Range(voice)
	base := c.degreeOf(anchor)
	durs := cell.Durations(span)
	out := make([]models.NoteEvent, 0, len(cell.Degrees))
	t := tick
	for i, d := range cell.Degrees {
		if i >= len(durs) {
			break
		}
		p := anchor
		if d != 0 {
			p = c.pitchOf(base + d)
		}
		if !r.Contains(p) {
			return nil, false
		}
		if !(i == 0 && cell.RestFirst) && durs[i] > 0 {
			out = append(out, c.note(voice, t, durs[i], p, src))
		}
		t += durs[i]
	}
	return out, true
}

// figurate fills [From, To) with figura cells anchored on chord tones. A
// cell that leaves the range becomes a single bridge note.
func (c *Context) figurate(o figuraLine) []models.NoteEvent {
	var out []models.NoteEvent
	unit := c.CellUnit()
	bar := c.BarTicks()
	prev := c.centre(o.Voice)
	for t := o.From; t < o.To; {
		barEnd := min((t/bar+1)*bar, o.To)
		fig := o.Profile.Secondary
		if c.Rand.Chance(o.PrimaryProb) {
			fig = o.Profile.Primary
		}
		bias := o.Bias + 0.5*o.Contour.DirectionAt(c.phraseProgress(t))
		cell := fig.PickCell(c.Rand, bias)
		span := theory.Tick(cell.Beats) * unit
		if t+span > barEnd {
			if o.HoldRest {
				p := c.anchorFor(o.Voice, t, prev, o.Contour)
				out = append(out, c.note(o.Voice, t, barEnd-t, p, o.Source))
				prev = p
				t = barEnd
				continue
			}
			cell = o.Profile.Secondary.PickCell(c.Rand, bias)
			span = theory.Tick(cell.Beats) * unit
			if t+span > barEnd {
				span = barEnd - t
				cell = melody.FiguraCell{Degrees: []int{0}, Rhythm: []int{1}, Beats: 1}
			}
		}
		anchor := c.anchorFor(o.Voice, t, prev, o.Contour)
		notes, ok := c.placeCell(o.Voice, t, span, cell, anchor, o.Source)
		if !ok {
			notes = []models.NoteEvent{c.note(o.Voice, t, span, anchor, models.SourceBridge)}
		}
		out = append(out, notes...)
		if len(notes) > 0 {
			prev = notes[len(notes)-1].Pitch
		}
		t += span
	}
	return out
}
