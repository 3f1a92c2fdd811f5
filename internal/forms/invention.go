package forms

import (
	"github.com/Conceptual-Machines/bachgen/internal/melody"
	"github.com/Conceptual-Machines/bachgen/internal/models"
)

var inventionShifts = []int{5, 3, 4, 1, 0, 2}

// generateInvention writes a three-voice invention on a one-bar soggetto:
// staggered entries top to bottom, then a statement every two bars rotating
// through the voices, every third one inverted.
func generateInvention(c *Context) (Output, error) {
	var out Output
	voices := c.Voices()
	soggetto := c.makeSubject(c.BarTicks(), c.Desc.Subject)

	var segs []segment
	add := func(voice, bar, shift int, m motif) {
		start := c.BarStart(bar)
		segs = append(segs, segment{
			voice:    voice,
			start:    start,
			notes:    c.placeMotif(voice, start, m, c.baseDegree(voice, shift), models.SourceSoggetto),
			followBy: models.SourceFreeCounterpoint,
		})
	}
	for i, v := range voices {
		shift := 0
		if i%2 == 1 {
			shift = 4
		}
		add(v, i, shift, soggetto)
	}
	n := 0
	for bar := 4; bar < c.Bars()-2; bar += 2 {
		v := voices[n%len(voices)]
		m := soggetto
		if n%3 == 2 {
			m = soggetto.inverted()
		}
		add(v, bar, inventionShifts[n%len(inventionShifts)], m)
		n++
	}

	out.Notes = c.weave(segs, true, c.engineFiller(melody.ContourWave, 0))
	return out, nil
}
