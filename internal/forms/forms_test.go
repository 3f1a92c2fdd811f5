package forms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conceptual-Machines/bachgen/internal/melody"
	"github.com/Conceptual-Machines/bachgen/internal/models"
	"github.com/Conceptual-Machines/bachgen/internal/planner"
	"github.com/Conceptual-Machines/bachgen/internal/rng"
	"github.com/Conceptual-Machines/bachgen/internal/theory"
)

const testSeed = 42

func contextFor(t *testing.T, number int) *Context {
	t.Helper()
	plan := planner.GoldbergPlan()
	require.Less(t, number, len(plan))
	c, err := NewContext(plan[number], theory.GMajor, testSeed)
	require.NoError(t, err)
	return c
}

func generate(t *testing.T, number int) (*Context, Output) {
	t.Helper()
	c := contextFor(t, number)
	out, err := Generate(c)
	require.NoError(t, err)
	return c, out
}

func voiceNotes(notes []models.NoteEvent, voice int) []models.NoteEvent {
	var out []models.NoteEvent
	for _, n := range notes {
		if n.Voice == voice {
			out = append(out, n)
		}
	}
	return out
}

func TestEveryVariationStaysInsideItsVoices(t *testing.T) {
	for _, d := range planner.GoldbergPlan() {
		t.Run(d.Name(), func(t *testing.T) {
			c, out := generate(t, d.Number)
			require.NotEmpty(t, out.Notes)
			for _, n := range out.Notes {
				assert.True(t, c.hasVoice(n.Voice), "voice %d", n.Voice)
				assert.True(t, c.Range(n.Voice).Contains(n.Pitch), "voice %d pitch %d at %d", n.Voice, n.Pitch, n.StartTick)
				assert.GreaterOrEqual(t, n.StartTick, theory.Tick(0))
				assert.Positive(t, n.Duration)
				assert.LessOrEqual(t, n.EndTick(), c.Total())
			}
		})
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	for _, number := range []int{0, 3, 10, 25, 30} {
		_, a := generate(t, number)
		_, b := generate(t, number)
		assert.Equal(t, a.Notes, b.Notes, "variation %d", number)
	}
}

func TestGenerateRejectsUnknownType(t *testing.T) {
	c := contextFor(t, 1)
	c.Desc.Type = planner.VariationType(99)
	_, err := Generate(c)
	assert.ErrorIs(t, err, ErrUnknownVariation)
}

func TestComesPitch(t *testing.T) {
	axis := theory.PitchToAbsoluteDegree(67, theory.GMajor.Tonic, theory.ScaleMajor)
	tests := []struct {
		name string
		dux  int
		desc planner.CanonDescriptor
		want int
	}{
		{"unison", 67, planner.CanonDescriptor{Interval: 0}, 67},
		{"third", 67, planner.CanonDescriptor{Interval: 2}, 71},
		{"octave", 69, planner.CanonDescriptor{Interval: 7}, 81},
		{"inverted unison", 69, planner.CanonDescriptor{Interval: 0, Inverted: true}, 66},
		{"inverted axis", 67, planner.CanonDescriptor{Interval: 0, Inverted: true}, 67},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComesPitch(tt.dux, tt.desc, axis, theory.GMajor, theory.ScaleMajor))
		})
	}
}

func TestCanonsValidate(t *testing.T) {
	for _, d := range planner.GoldbergPlan() {
		if d.Type != planner.TypeCanon {
			continue
		}
		t.Run(d.Name(), func(t *testing.T) {
			_, out := generate(t, d.Number)
			rep := out.Diagnostics.Canon
			require.NotNil(t, rep)
			assert.Equal(t, d.Canon.Interval, rep.Interval)
			assert.LessOrEqual(t, rep.Backtracks, MaxCanonBacktracks)
			assert.GreaterOrEqual(t, rep.StrongBeatConsonance, StrongBeatConsonanceTarget)
			assert.GreaterOrEqual(t, rep.Attempts, 1)
			assert.LessOrEqual(t, rep.Attempts, MaxCanonAttempts)
			assert.True(t, rep.Validation.Passed, "errors: %v", rep.Validation.Errors)
			assert.InDelta(t, 1.0, rep.Validation.PitchAccuracy, 1e-9)
			assert.Zero(t, rep.Validation.TimingErrors)
			assert.Zero(t, rep.Validation.DurationErrors)
			if rep.Outcome == CanonGiveUp {
				assert.True(t, rep.PartialSuccess)
			}
		})
	}
}

func TestUnisonCanonDelaysByOneBar(t *testing.T) {
	c, out := generate(t, 3)
	var dux, comes []models.NoteEvent
	for _, n := range out.Notes {
		switch n.Source {
		case models.SourceCanonDux:
			dux = append(dux, n)
		case models.SourceCanonComes:
			comes = append(comes, n)
		}
	}
	require.NotEmpty(t, comes)
	require.Len(t, comes, len(dux))
	assert.Equal(t, c.BarTicks(), comes[0].StartTick)
	for i := range dux {
		assert.Equal(t, dux[i].Pitch, comes[i].Pitch)
		assert.Equal(t, dux[i].StartTick+c.BarTicks(), comes[i].StartTick)
	}
}

func TestValidateCanonCountsErrors(t *testing.T) {
	d := planner.CanonDescriptor{Interval: 0}
	dux := []models.NoteEvent{
		{StartTick: 0, Duration: 480, Pitch: 67},
		{StartTick: 480, Duration: 480, Pitch: 69},
	}
	comes := []models.NoteEvent{
		{StartTick: 1920, Duration: 480, Pitch: 67},
		{StartTick: 2405, Duration: 240, Pitch: 71},
	}
	v := ValidateCanon(dux, comes, d, 1920, 35, theory.GMajor, theory.ScaleMajor, true)
	assert.Equal(t, 2, v.Pairs)
	assert.Equal(t, 1, v.PitchMatches)
	assert.Equal(t, 1, v.TimingErrors)
	assert.Equal(t, 1, v.DurationErrors)
	assert.InDelta(t, 0.5, v.PitchAccuracy, 1e-9)
	assert.False(t, v.Passed)
	assert.Len(t, v.Errors, 3)
}

func TestPulseLineRecordsSnappedPitches(t *testing.T) {
	c := contextFor(t, 1)
	e := c.engine(0, melody.ContourArch, false, models.SourceFreeCounterpoint)
	start := e.Prev
	notes := c.pulseLine(e, 0, 2*c.BarTicks(), theory.Eighth, models.SourceFreeCounterpoint)
	require.NotEmpty(t, notes)

	want := melody.NewState(melody.ContourArch)
	prev := start
	for _, n := range notes {
		want.Update(prev, n.Pitch)
		prev = n.Pitch
	}
	assert.Equal(t, notes[len(notes)-1].Pitch, e.Prev)
	assert.Equal(t, want.LastDirection, e.State.LastDirection)
	assert.Equal(t, want.RunLength, e.State.RunLength)
	assert.Equal(t, want.ConsecutiveLeaps, e.State.ConsecutiveLeaps)
	assert.Equal(t, want.LastLargeLeap, e.State.LastLargeLeap)
}

func TestLowConsonanceFailsCanonValidation(t *testing.T) {
	v := CanonValidation{Pairs: 4, PitchMatches: 4, PitchAccuracy: 1, Passed: true}
	assert.True(t, enforceConsonance(&v, StrongBeatConsonanceTarget))
	assert.True(t, v.Passed)
	assert.Empty(t, v.Errors)

	assert.False(t, enforceConsonance(&v, 0.45))
	assert.False(t, v.Passed)
	require.Len(t, v.Errors, 1)
	assert.Contains(t, v.Errors[0], "consonance 0.45")
}

func averageDuration(notes []models.NoteEvent) float64 {
	var sum theory.Tick
	for _, n := range notes {
		sum += n.Duration
	}
	return float64(sum) / float64(len(notes))
}

func TestAllaBreveIsBroaderThanFughetta(t *testing.T) {
	_, fughetta := generate(t, 10)
	_, allaBreve := generate(t, 22)
	assert.GreaterOrEqual(t, averageDuration(allaBreve.Notes)/averageDuration(fughetta.Notes), 1.3)
}

func TestFughettaExpositionIsStaggered(t *testing.T) {
	c, out := generate(t, 10)
	first := map[int]theory.Tick{}
	for _, n := range out.Notes {
		if t0, ok := first[n.Voice]; !ok || n.StartTick < t0 {
			first[n.Voice] = n.StartTick
		}
	}
	require.Len(t, first, 4)
	order := []int{1, 0, 2, 3}
	for i := 1; i < len(order); i++ {
		assert.GreaterOrEqual(t, first[order[i]]-first[order[i-1]], c.BarTicks())
	}
	subjects := 0
	for _, n := range out.Notes {
		if n.Source == models.SourceSubject || n.Source == models.SourceAnswer {
			subjects++
		}
	}
	assert.Positive(t, subjects)
}

func TestInventionSharesTheWork(t *testing.T) {
	c, out := generate(t, 2)
	count := map[int]int{}
	first := map[int]theory.Tick{}
	for _, n := range out.Notes {
		count[n.Voice]++
		if t0, ok := first[n.Voice]; !ok || n.StartTick < t0 {
			first[n.Voice] = n.StartTick
		}
	}
	vs := c.Voices()
	require.Len(t, count, 3)
	for i, v := range vs {
		assert.GreaterOrEqual(t, float64(count[v])/float64(len(out.Notes)), 0.15, "voice %d", v)
		if i > 0 {
			assert.Greater(t, first[v], first[vs[i-1]])
		}
	}
}

func notesPerBeat(c *Context, notes []models.NoteEvent) float64 {
	beats := float64(c.Total()) / float64(c.BeatTicks())
	return float64(len(notes)) / beats
}

func TestTrillEtudeIsDenserThanOrnamental(t *testing.T) {
	ct, trill := generate(t, 28)
	co, orn := generate(t, 1)
	trillRate := notesPerBeat(ct, voiceNotes(trill.Notes, ct.Voices()[0]))
	ornRate := notesPerBeat(co, voiceNotes(orn.Notes, co.Voices()[0]))
	assert.GreaterOrEqual(t, trillRate, 3.0)
	assert.LessOrEqual(t, trillRate, 4.0)
	assert.GreaterOrEqual(t, ornRate, 1.0)
	assert.Less(t, ornRate, 2.0)
}

func TestPassepiedPhrasesAreSymmetric(t *testing.T) {
	c, out := generate(t, 4)
	top := voiceNotes(out.Notes, c.Voices()[0])
	bar := c.BarTicks()
	var first, second []models.NoteEvent
	for _, n := range top {
		switch {
		case n.StartTick < 2*bar:
			first = append(first, n)
		case n.StartTick < 4*bar:
			second = append(second, n)
		}
	}
	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].StartTick+2*bar, second[i].StartTick)
		assert.Equal(t, first[i].Duration, second[i].Duration)
	}
}

func TestSarabandeStressesSecondBeat(t *testing.T) {
	_, out := generate(t, 26)
	assert.Equal(t, []int{1}, out.StressBeats)
}

func TestOvertureFugatoIsBusierThanGrave(t *testing.T) {
	c, out := generate(t, 16)
	split := c.BarStart(GraveBars)
	var grave, fugato []models.NoteEvent
	for _, n := range out.Notes {
		if n.StartTick < split {
			grave = append(grave, n)
		} else {
			fugato = append(fugato, n)
		}
	}
	assert.Greater(t, len(fugato), len(grave))
	assert.Greater(t, averageDuration(grave), averageDuration(fugato))
}

func TestBlackPearlLamento(t *testing.T) {
	c, out := generate(t, 25)
	var lamento []models.NoteEvent
	for _, n := range out.Notes {
		if n.Source == models.SourceLamento {
			lamento = append(lamento, n)
		}
	}
	require.Len(t, lamento, 4*len(LamentoSemitones))
	pitches := make([]int, len(LamentoSemitones))
	for i := range pitches {
		pitches[i] = lamento[i].Pitch
	}
	assert.Equal(t, []int{55, 54, 53, 52, 51, 50}, pitches)
	assert.Equal(t, c.PhraseTicks()/6, lamento[0].Duration)
	assert.Equal(t, theory.Tick(0), lamento[0].StartTick)
}

func TestBlackPearlSuspensionsResolveDown(t *testing.T) {
	c, out := generate(t, 25)
	mid := voiceNotes(out.Notes, c.Voices()[1])
	models.SortNotes(mid)
	for i := 0; i+1 < len(mid); i++ {
		n, next := mid[i], mid[i+1]
		if n.Source != models.SourceSuspension || n.StartTick%c.BarTicks() != 0 {
			continue
		}
		require.Equal(t, models.SourceSuspension, next.Source)
		assert.Less(t, next.Pitch, n.Pitch)
	}
}

func TestQuodlibetStrongBeatsAreChordTones(t *testing.T) {
	c, out := generate(t, 30)
	strong, fit := 0, 0
	for _, n := range out.Notes {
		if n.Source != models.SourceQuodlibetMelody || !theory.IsStrongBeat(n.StartTick, c.Meter) {
			continue
		}
		strong++
		if c.ChordAt(n.StartTick).Contains(n.Pitch) {
			fit++
		}
	}
	require.Positive(t, strong)
	assert.GreaterOrEqual(t, float64(fit)/float64(strong), 0.8)
}

func TestQuodlibetVoicesSwap(t *testing.T) {
	c, out := generate(t, 30)
	onsets := func(voice int, from theory.Tick) []theory.Tick {
		var ts []theory.Tick
		for _, n := range voiceNotes(out.Notes, voice) {
			if n.StartTick >= from && n.StartTick < from+c.PhraseTicks() {
				ts = append(ts, n.StartTick-from)
			}
		}
		return ts
	}
	half := c.BarStart(c.Bars() / 2)
	assert.Equal(t, onsets(0, 0), onsets(1, half))
	assert.Equal(t, onsets(1, 0), onsets(0, half))
}

func TestClimaxVariationMarksClimaxBars(t *testing.T) {
	_, out := generate(t, 29)
	require.Len(t, out.ClimaxBars, 8)
	assert.Equal(t, ClimaxFromBar, out.ClimaxBars[0])
}

func TestBinaryRepeat(t *testing.T) {
	bar := theory.Time3_4.BarTicks()
	notes := []models.NoteEvent{
		{StartTick: 0, Duration: bar, Pitch: 67},
		{StartTick: 15 * bar, Duration: 2 * bar, Pitch: 66},
		{StartTick: 16 * bar, Duration: bar, Pitch: 64},
	}
	out, barMap := BinaryRepeat(notes, 32, bar)
	require.Len(t, barMap, 64)
	assert.Equal(t, 0, barMap[16])
	assert.Equal(t, 16, barMap[32])
	assert.Equal(t, 31, barMap[63])

	starts := map[theory.Tick]models.NoteEvent{}
	for _, n := range out {
		starts[n.StartTick] = n
	}
	require.Len(t, out, 6)
	assert.Equal(t, 67, starts[16*bar].Pitch)
	assert.Equal(t, bar, starts[15*bar].Duration)
	assert.Equal(t, 64, starts[32*bar].Pitch)
	assert.Equal(t, 64, starts[48*bar].Pitch)
}

func TestOrnaments(t *testing.T) {
	n := models.NoteEvent{StartTick: 960, Duration: 960, Pitch: 67, Voice: 0}
	m := mordent(n, theory.GMajor, theory.ScaleMajor)
	require.Len(t, m, 3)
	assert.Equal(t, []int{67, 66, 67}, []int{m[0].Pitch, m[1].Pitch, m[2].Pitch})
	assert.Equal(t, theory.Tick(1080), m[1].StartTick)
	assert.Equal(t, theory.Tick(1920), m[2].EndTick())
	assert.True(t, m[1].ModifiedBy.Has(models.ModOrnament))

	p := passingTone(models.NoteEvent{StartTick: 0, Duration: 480, Pitch: 67}, 71, theory.GMajor, theory.ScaleMajor)
	require.Len(t, p, 2)
	assert.Equal(t, 69, p[1].Pitch)
	assert.Equal(t, theory.Tick(240), p[1].StartTick)
}

func TestOrnamentRepeatOnlyTouchesRepeats(t *testing.T) {
	bar := theory.Time3_4.BarTicks()
	var notes []models.NoteEvent
	for b := 0; b < 64; b++ {
		notes = append(notes, models.NoteEvent{StartTick: theory.Tick(b) * bar, Duration: bar, Pitch: 67, Voice: 0})
	}
	out, count := OrnamentRepeat(notes, 32, bar, HarpsichordRanges, theory.GMajor, theory.ScaleMajor, rng.New(7))
	ornamented := 0
	for _, n := range out {
		if n.Source != models.SourceOrnament {
			continue
		}
		b := int(n.StartTick / bar)
		assert.True(t, (b >= 16 && b < 32) || b >= 48, "bar %d", b)
		ornamented++
	}
	assert.Equal(t, count > 0, ornamented > 0)
}

func TestChromaticPassingFillsWholeSteps(t *testing.T) {
	var notes []models.NoteEvent
	pitch := 67
	for i := 0; i < 40; i++ {
		notes = append(notes, models.NoteEvent{StartTick: theory.Tick(i) * 480, Duration: 480, Pitch: pitch, Voice: 0})
		if i%2 == 0 {
			pitch += 2
		} else {
			pitch -= 2
		}
	}
	out, count := ChromaticPassing(notes, HarpsichordRanges, rng.New(3))
	assert.Len(t, out, len(notes)+count)
	var total theory.Tick
	for _, n := range out {
		total += n.Duration
		if n.Source == models.SourceChromaticPassing {
			assert.Equal(t, 68, n.Pitch)
		}
	}
	assert.Equal(t, theory.Tick(40*480), total)
	assert.True(t, UsesChromaticPassing(planner.TempoLament))
	assert.False(t, UsesChromaticPassing(planner.TempoDance))
}

func TestApplyVelocity(t *testing.T) {
	ts := theory.Time3_4
	notes := []models.NoteEvent{
		{StartTick: 0},
		{StartTick: 480},
		{StartTick: 240},
		{StartTick: 24 * ts.BarTicks()},
	}
	ApplyVelocity(notes, ts, []int{24}, nil)
	assert.Equal(t, []int{78, 72, 72, 94}, []int{notes[0].Velocity, notes[1].Velocity, notes[2].Velocity, notes[3].Velocity})

	ApplyVelocity(notes, ts, nil, []int{1})
	assert.Equal(t, 78, notes[1].Velocity)
	assert.True(t, notes[1].ModifiedBy.Has(models.ModVelocity))
}

func TestRenderPassepiedWithRepeats(t *testing.T) {
	c := contextFor(t, 4)
	r, err := Render(c, RenderOptions{Repeats: true})
	require.NoError(t, err)
	assert.Equal(t, 64, r.Bars)
	assert.Equal(t, theory.Tick(64*720), r.Duration)
	assert.Equal(t, 64, r.Timeline.Len())
	assert.Equal(t, r.Duration, r.Timeline.TotalDuration())
	for _, n := range r.Notes {
		assert.Less(t, n.StartTick, r.Duration)
	}
}

func TestRenderWithoutRepeats(t *testing.T) {
	c := contextFor(t, 13)
	r, err := Render(c, RenderOptions{})
	require.NoError(t, err)
	assert.Equal(t, 32, r.Bars)
	assert.Nil(t, r.BarMap)
	assert.Equal(t, c.Total(), r.Duration)
}

func TestDaCapoReplaysTheAria(t *testing.T) {
	aria, err := Render(contextFor(t, 0), RenderOptions{Repeats: true})
	require.NoError(t, err)
	daCapo, err := Render(contextFor(t, 31), RenderOptions{Repeats: true, Aria: aria.Copy()})
	require.NoError(t, err)
	assert.Equal(t, aria.Notes, daCapo.Notes)
	assert.Equal(t, aria.Chromatic, daCapo.Chromatic)
	assert.Equal(t, aria.Duration, daCapo.Duration)
	assert.Equal(t, aria.Timeline.Events(), daCapo.Timeline.Events())

	// shifting the replay leaves the stored aria alone
	models.Offset(daCapo.Notes, 1000)
	assert.NotEqual(t, aria.Notes[0].StartTick, daCapo.Notes[0].StartTick)
}
