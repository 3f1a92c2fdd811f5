package forms

import (
	"github.com/Conceptual-Machines/bachgen/internal/melody"
	"github.com/Conceptual-Machines/bachgen/internal/models"
	"github.com/Conceptual-Machines/bachgen/internal/planner"
	"github.com/Conceptual-Machines/bachgen/internal/theory"
)

// ClimaxFromBar is the first bar of the intensified close of the climax
// variation.
const ClimaxFromBar = 24

// generateVirtuoso runs the variation's figures through the upper voice
// over a bass chosen by kind; the climax variation intensifies its last
// eight bars.
func generateVirtuoso(c *Context) (Output, error) {
	var out Output
	vs := c.Voices()
	top, bass := vs[0], c.BassVoice()

	line := figuraLine{
		Voice:       top,
		Profile:     c.Desc.Figura,
		PrimaryProb: 0.75,
		Contour:     melody.ContourWave,
		Source:      models.SourceFigure,
		From:        0,
		To:          c.Total(),
	}
	style := bassWalking
	switch c.Desc.Virtuoso {
	case planner.VirtuosoScale:
		line.PrimaryProb = 0.85
		style = bassPulse
	case planner.VirtuosoBravura:
		line.PrimaryProb = 0.7
		line.Contour = melody.ContourArch
	case planner.VirtuosoClimax:
		line.Contour = melody.ContourAscent
		style = bassPulse
	}
	out.Notes = c.figurate(line)
	out.Notes = append(out.Notes, c.groundBass(bass, style, models.SourceGroundBass, models.SourceFreeCounterpoint)...)

	if len(vs) > 2 {
		mid := vs[1]
		climax := c.BarStart(c.Bars())
		if c.Desc.Virtuoso == planner.VirtuosoClimax {
			climax = c.BarStart(min(ClimaxFromBar, c.Bars()))
		}
		for _, n := range c.sustainedLine(mid, models.SourceFreeCounterpoint) {
			if n.StartTick < climax {
				out.Notes = append(out.Notes, n)
			}
		}
		if climax < c.Total() {
			out.Notes = append(out.Notes, c.figurate(figuraLine{
				Voice:       mid,
				Profile:     planner.FiguraProfile{Primary: c.Desc.Figura.Secondary, Secondary: c.Desc.Figura.Primary},
				PrimaryProb: 0.8,
				Contour:     melody.ContourAscent,
				Source:      models.SourceFigure,
				From:        climax,
				To:          c.Total(),
			})...)
		}
	}
	if c.Desc.Virtuoso == planner.VirtuosoClimax {
		for b := ClimaxFromBar; b < c.Bars(); b++ {
			out.ClimaxBars = append(out.ClimaxBars, b)
		}
		c.widen(out.Notes, c.BarStart(min(ClimaxFromBar, c.Bars())), top, bass)
	}
	return out, nil
}

// widen spreads the outer voices from tick on, bar by bar: the top voice
// moves up an octave and the bass down an octave when the whole bar fits.
func (c *Context) widen(notes []models.NoteEvent, from theory.Tick, top, bass int) {
	type barVoice struct{ bar, voice int }
	groups := map[barVoice][]int{}
	for i, n := range notes {
		if n.StartTick < from || (n.Voice != top && n.Voice != bass) || n.Protection() == models.Immutable {
			continue
		}
		k := barVoice{theory.BarOf(n.StartTick, c.Meter), n.Voice}
		groups[k] = append(groups[k], i)
	}
	for k, idx := range groups {
		shift := 12
		if k.voice == bass {
			shift = -12
		}
		r := c.Range(k.voice)
		fits := true
		for _, i := range idx {
			if !r.Contains(notes[i].Pitch + shift) {
				fits = false
				break
			}
		}
		if !fits {
			continue
		}
		for _, i := range idx {
			notes[i].Pitch += shift
		}
	}
}
