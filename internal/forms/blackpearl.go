package forms

import (
	"github.com/Conceptual-Machines/bachgen/internal/melody"
	"github.com/Conceptual-Machines/bachgen/internal/models"
	"github.com/Conceptual-Machines/bachgen/internal/theory"
)

// LamentoSemitones is the descending chromatic tetrachord from the tonic
// (G F# F E Eb D in G minor).
var LamentoSemitones = []int{0, -1, -2, -3, -4, -5}

// DissonanceProfile bounds suspension chains.
type DissonanceProfile struct {
	MaxChainLength   int
	ChainProbability float64
}

// BlackPearlDissonance is the suspension profile of the minor adagio.
var BlackPearlDissonance = DissonanceProfile{MaxChainLength: 3, ChainProbability: 0.6}

// lamentoPhrase reports whether the lamento bass replaces the ground in
// the four-bar phrase ph.
func lamentoPhrase(ph int) bool { return ph%2 == 0 }

// generateBlackPearl writes the minor adagio: a sighing upper line,
// suspension chains into phrase endings in the middle voice and the
// chromatic lamento in alternate bass phrases.
func generateBlackPearl(c *Context) (Output, error) {
	var out Output
	vs := c.Voices()
	top, bass := vs[0], c.BassVoice()

	out.Notes = c.figurate(figuraLine{
		Voice:       top,
		Profile:     c.Desc.Figura,
		PrimaryProb: 0.6,
		Contour:     melody.ContourDescent,
		Source:      models.SourceFigure,
		From:        0,
		To:          c.Total(),
		HoldRest:    true,
	})
	if len(vs) > 2 {
		out.Notes = append(out.Notes, c.suspensionVoice(vs[1], BlackPearlDissonance)...)
	}

	ground := c.groundBass(bass, bassSustained, models.SourceGroundBass, models.SourceGroundBass)
	for _, n := range ground {
		if !lamentoPhrase(int(n.StartTick / c.PhraseTicks())) {
			out.Notes = append(out.Notes, n)
		}
	}
	for ph := 0; ph < c.Bars()/4; ph++ {
		if lamentoPhrase(ph) {
			out.Notes = append(out.Notes, c.lamento(bass, c.BarStart(ph*4), c.PhraseTicks())...)
		}
	}
	return out, nil
}

// lamento spreads the tetrachord evenly over span ticks from start.
func (c *Context) lamento(voice int, start, span theory.Tick) []models.NoteEvent {
	r := c.Range(voice)
	top := theory.NearestPitchWithClass(c.Key.Tonic, c.centre(voice))
	low := LamentoSemitones[len(LamentoSemitones)-1]
	for top > r.High && top-12+low >= r.Low {
		top -= 12
	}
	for top+low < r.Low && top+12 <= r.High {
		top += 12
	}
	step := span / theory.Tick(len(LamentoSemitones))
	out := make([]models.NoteEvent, 0, len(LamentoSemitones))
	for i, s := range LamentoSemitones {
		t := start + theory.Tick(i)*step
		d := step
		if i == len(LamentoSemitones)-1 {
			d = start + span - t
		}
		out = append(out, c.note(voice, t, d, r.Fold(top+s), models.SourceLamento))
	}
	return out
}

// chainBars picks, for each phrase, the bars leading into its cadence that
// carry a suspension chain.
func (c *Context) chainBars(p DissonanceProfile) map[int]bool {
	bars := map[int]bool{}
	for ph := 0; ph < c.Bars()/4; ph++ {
		if !c.Rand.Chance(p.ChainProbability) {
			continue
		}
		n := c.Rand.IntRange(1, p.MaxChainLength)
		end := ph*4 + 3
		for b := end - n + 1; b <= end; b++ {
			if b > 0 {
				bars[b] = true
			}
		}
	}
	return bars
}

// suspensionVoice writes beat pulses in voice, replaced before phrase
// endings by prepare-suspend-resolve chains: the prepared tone is held into
// the downbeat and resolves down a step on the next beat.
func (c *Context) suspensionVoice(voice int, p DissonanceProfile) []models.NoteEvent {
	chains := c.chainBars(p)
	beat := c.BeatTicks()
	bar := c.BarTicks()
	e := c.engine(voice, melody.ContourDescent, false, models.SourceFreeCounterpoint)
	r := c.Range(voice)

	var out []models.NoteEvent
	for b := 0; b < c.Bars(); b++ {
		start := c.BarStart(b)
		switch {
		case chains[b] && r.Contains(c.scaleStep(e.Prev, -1)):
			held := e.Prev
			res := c.scaleStep(held, -1)
			out = append(out,
				c.note(voice, start, beat, held, models.SourceSuspension),
				c.note(voice, start+beat, bar-beat, res, models.SourceSuspension))
			e.Place(res)
		case chains[b+1]:
			body := bar - beat
			out = append(out, c.pulseLine(e, start, start+body, beat, models.SourceFreeCounterpoint)...)
			prep := c.chordTone(voice, start+body, e.Prev)
			out = append(out, c.note(voice, start+body, beat, prep, models.SourceSuspension))
			e.Place(prep)
		default:
			out = append(out, c.pulseLine(e, start, start+bar, beat, models.SourceFreeCounterpoint)...)
		}
	}
	return out
}
