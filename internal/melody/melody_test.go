package melody

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conceptual-Machines/bachgen/internal/harmony"
	"github.com/Conceptual-Machines/bachgen/internal/models"
	"github.com/Conceptual-Machines/bachgen/internal/rng"
	"github.com/Conceptual-Machines/bachgen/internal/theory"
)

func TestStateUpdate(t *testing.T) {
	s := NewState(ContourNeutral)
	s.Update(60, 62)
	assert.Equal(t, 1, s.LastDirection)
	assert.Equal(t, 1, s.RunLength)
	assert.False(t, s.PrevWasReversal)

	s.Update(62, 64)
	assert.Equal(t, 2, s.RunLength)
	assert.Equal(t, 0, s.ConsecutiveLeaps)

	s.Update(64, 57)
	assert.Equal(t, -1, s.LastDirection)
	assert.Equal(t, 1, s.RunLength)
	assert.True(t, s.PrevWasReversal)
	assert.Equal(t, 7, s.LastLargeLeap)
	assert.Equal(t, 0, s.LastSkip)
	assert.Equal(t, 1, s.ConsecutiveLeaps)

	s.Update(57, 54)
	assert.Equal(t, 3, s.LastSkip)
	assert.Equal(t, 0, s.LastLargeLeap)
	assert.Equal(t, 2, s.ConsecutiveLeaps)
}

func TestStateCarry(t *testing.T) {
	s := State{LastDirection: 1, RunLength: 5, PhraseProgress: 0.9, Contour: ContourDescent, ContourStrength: 0.7}

	dev := s.Carry(BoundaryDevelopment)
	assert.Equal(t, 0.0, dev.PhraseProgress)
	assert.Equal(t, 2, dev.RunLength)
	assert.Equal(t, ContourDescent, dev.Contour)
	assert.Equal(t, 1, dev.LastDirection)

	cad := s.Carry(BoundaryCadence)
	assert.Equal(t, ContourNeutral, cad.Contour)
	assert.Equal(t, 0, cad.RunLength)

	re := s.Carry(BoundaryReentry)
	assert.Equal(t, ContourArch, re.Contour)
	assert.Equal(t, 1, re.LastDirection)
}

func TestReversalProbability(t *testing.T) {
	p := ProfileFor(RoleSoprano)
	p.Gravity = 0

	assert.InDelta(t, 0.35, ReversalProbability(&State{LastDirection: 1, RunLength: 2}, p), 1e-9)
	assert.InDelta(t, 0.65, ReversalProbability(&State{LastDirection: 1, RunLength: 3}, p), 1e-9)
	assert.InDelta(t, 0.05, ReversalProbability(&State{LastDirection: 1, RunLength: 1, PrevWasReversal: true}, p), 1e-9)
	assert.InDelta(t, 0.65, ReversalProbability(&State{LastDirection: 1, RunLength: 4, LastLargeLeap: 7}, p), 1e-9)

	p.Gravity = 0.1
	desc := ReversalProbability(&State{LastDirection: -1, RunLength: 3}, p)
	asc := ReversalProbability(&State{LastDirection: 1, RunLength: 3}, p)
	assert.InDelta(t, 0.55, desc, 1e-9)
	assert.InDelta(t, 0.72, asc, 1e-9)

	// Gravity fades out over the last 15% of the phrase.
	late := ReversalProbability(&State{LastDirection: -1, RunLength: 3, PhraseProgress: 1}, p)
	assert.InDelta(t, 0.65, late, 1e-9)
}

func TestChooseDirectionStart(t *testing.T) {
	r := rng.New(3)
	seen := map[int]bool{}
	for i := 0; i < 50; i++ {
		seen[ChooseDirection(&State{}, ProfileFor(RoleAlto), r)] = true
	}
	assert.True(t, seen[1])
	assert.True(t, seen[-1])
	assert.False(t, seen[0])
}

func TestIntervalWeights(t *testing.T) {
	p := ProfileFor(RoleSoprano)
	step, skip, leap := IntervalWeights(&State{}, p, theory.LevelBeat)
	assert.InDelta(t, 1.0, step+skip+leap, 1e-9)
	assert.InDelta(t, 0.60, step, 1e-9)

	afterLeap, _, _ := IntervalWeights(&State{LastLargeLeap: 7}, p, theory.LevelBeat)
	assert.Greater(t, afterLeap, step)

	barStep, barSkip, _ := IntervalWeights(&State{}, p, theory.LevelBar)
	assert.Less(t, barStep, step)
	assert.Greater(t, barSkip, skip)

	r := rng.New(1)
	for i := 0; i < 20; i++ {
		assert.Equal(t, IntervalStep, ChooseInterval(&State{ConsecutiveLeaps: 2}, p, theory.LevelBar, r))
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	in := ScoreInput{
		State:     &State{LastDirection: 1, RunLength: 2, PhraseProgress: 0.3, Contour: ContourArch, ContourStrength: 0.5},
		Profile:   ProfileFor(RoleSoprano),
		Prev:      67,
		Level:     theory.LevelBar,
		ChordTone: func(p int) bool { return theory.PitchClass(p) == 7 || theory.PitchClass(p) == 11 },
	}
	a := Score(in, 71)
	b := Score(in, 71)
	assert.Equal(t, a, b)
	// Chord tone on the bar beats a non-chord tone the same distance away.
	assert.Greater(t, Score(in, 71), Score(in, 64))
}

func TestScoreLeapRecovery(t *testing.T) {
	in := ScoreInput{
		State:   &State{LastDirection: 1, RunLength: 1, LastLargeLeap: 7},
		Profile: ProfileFor(RoleSoprano),
		Prev:    72,
		Level:   theory.LevelBeat,
	}
	assert.Greater(t, Score(in, 71), Score(in, 74), "stepwise contrary motion preferred after a leap")
}

func TestGoalTension(t *testing.T) {
	assert.Equal(t, 1.0, GoalTension(0))
	assert.Equal(t, 1.0, GoalTension(0.6))
	assert.InDelta(t, 0.7, GoalTension(0.8), 1e-9)
	assert.InDelta(t, 0.4, GoalTension(1), 1e-9)
}

func TestSelectPitch(t *testing.T) {
	r := rng.New(4)
	counts := map[int]int{}
	for i := 0; i < 1000; i++ {
		counts[SelectPitch([]int{60, 62}, []float64{-5, 5}, r)]++
	}
	assert.Greater(t, counts[62], 950)
	assert.Equal(t, theory.Unresolvable, SelectPitch(nil, nil, r))
}

func TestResolveFigure(t *testing.T) {
	fig := Figure{Name: "tirata_up", Steps: steps(1, 1, 1)}
	got, ok := ResolveFigure(fig, 67, theory.GMajor, theory.ScaleMajor, 55, 86)
	require.True(t, ok)
	assert.Equal(t, []int{69, 71, 72}, got)

	_, ok = ResolveFigure(fig, 84, theory.GMajor, theory.ScaleMajor, 55, 86)
	assert.False(t, ok, "figure leaving the range is abandoned")

	chrom := Figure{Steps: []DegreeInterval{{Degree: 0, Chromatic: -1}, {Degree: 0}}}
	got, ok = ResolveFigure(chrom, 67, theory.GMajor, theory.ScaleMajor, 55, 86)
	require.True(t, ok)
	assert.Equal(t, []int{66, 67}, got)
}

func TestFigurePool(t *testing.T) {
	for _, f := range FigurePool(0.1) {
		assert.Equal(t, FigureAscending, f.Kind)
	}
	for _, f := range FigurePool(0.5) {
		assert.Equal(t, FigureNeighbor, f.Kind)
	}
	for _, f := range FigurePool(0.9) {
		assert.Equal(t, FigureDescending, f.Kind)
	}
}

func TestFiguraCellDurations(t *testing.T) {
	c := FiguraSarabande.Cells()[0]
	d := c.Durations(1440)
	assert.Equal(t, []theory.Tick{480, 720, 240}, d)
	assert.InDelta(t, 4.0, FiguraTrillo.Cells()[0].NotesPerBeat(), 1e-9)
	assert.InDelta(t, 3.0, FiguraSuspirans.Cells()[0].NotesPerBeat(), 1e-9)
	assert.Equal(t, "circulatio", FiguraCirculatio.String())
}

func TestDegreeMarkov(t *testing.T) {
	m := NewDegreeMarkov()
	for prev := -MaxDegreeStep; prev <= MaxDegreeStep; prev++ {
		sum := 0.0
		for next := -MaxDegreeStep; next <= MaxDegreeStep; next++ {
			sum += m.Prob(prev, next)
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	}
	top := m.TopK(0, 2)
	require.Len(t, top, 2)
	assert.Equal(t, 1, absInt(top[0].Step))
	// After a leap up, the most likely move is a step down.
	assert.Equal(t, -1, m.TopK(4, 1)[0].Step)
	assert.Len(t, m.TopK(1, 100), 2*MaxDegreeStep+1)
}

func TestEngineLineStaysInRangeAndIsDeterministic(t *testing.T) {
	tl, err := harmony.NewTimeline(harmony.Event{
		Tick: 0, EndTick: 8 * theory.TicksPerBar, Key: theory.GMajor,
		Chord: theory.BuildChord(theory.DegreeI, theory.GMajor), Weight: 1,
	})
	require.NoError(t, err)
	run := func() []models.NoteEvent {
		e := NewEngine(EngineConfig{
			Profile:  ProfileFor(RoleSoprano),
			Key:      theory.GMajor,
			Scale:    theory.ScaleMajor,
			Range:    models.VoiceRange{Low: 55, High: 86},
			Timeline: tl,
			Contour:  ContourArch,
			Start:    67,
			Figures:  true,
		}, rng.New(42))
		return e.Line(0, 8*theory.TicksPerBar, 4*theory.TicksPerBar)
	}
	a, b := run(), run()
	require.NotEmpty(t, a)
	assert.Equal(t, a, b)

	var end theory.Tick
	for i, n := range a {
		assert.GreaterOrEqual(t, n.Pitch, 55)
		assert.LessOrEqual(t, n.Pitch, 86)
		assert.GreaterOrEqual(t, n.Duration, theory.Tick(1))
		if i > 0 {
			assert.GreaterOrEqual(t, n.StartTick, a[i-1].StartTick)
		}
		end = n.EndTick()
	}
	assert.Equal(t, 8*theory.TicksPerBar, end)
}

func TestBoundaryAfter(t *testing.T) {
	got := make([]BoundaryKind, 7)
	for n := range got {
		got[n] = BoundaryAfter(n)
	}
	assert.Equal(t, []BoundaryKind{
		BoundaryDevelopment, BoundaryCadence, BoundaryDevelopment, BoundaryReentry,
		BoundaryDevelopment, BoundaryCadence, BoundaryDevelopment,
	}, got)
}

func TestEngineAdvanceCarriesAcrossPhrases(t *testing.T) {
	phrase := 4 * theory.TicksPerBar
	e := NewEngine(EngineConfig{
		Profile: ProfileFor(RoleSoprano),
		Key:     theory.GMajor,
		Scale:   theory.ScaleMajor,
		Range:   models.VoiceRange{Low: 55, High: 86},
		Contour: ContourAscent,
		Start:   67,
	}, rng.New(1))

	e.Advance(0, phrase)
	e.State.LastDirection = -1
	e.State.RunLength = 5

	e.Advance(phrase/2, phrase)
	assert.Equal(t, 5, e.State.RunLength)
	assert.InDelta(t, 0.5, e.State.PhraseProgress, 1e-9)

	// half cadence: development keeps the contour
	e.Advance(phrase, phrase)
	assert.Equal(t, 2, e.State.RunLength)
	assert.Equal(t, -1, e.State.LastDirection)
	assert.Equal(t, ContourAscent, e.State.Contour)
	assert.Equal(t, 0.0, e.State.PhraseProgress)

	// perfect cadence at bar 8
	e.Advance(2*phrase, phrase)
	assert.Equal(t, 0, e.State.RunLength)
	assert.Equal(t, ContourNeutral, e.State.Contour)

	// two boundaries at once: development, then re-entry at bar 16
	e.Advance(4*phrase+phrase/4, phrase)
	assert.Equal(t, ContourArch, e.State.Contour)
	assert.Equal(t, -1, e.State.LastDirection)
	assert.InDelta(t, 0.25, e.State.PhraseProgress, 1e-9)
}

func TestEngineLineCarriesStateIntoNextPhrase(t *testing.T) {
	phrase := 4 * theory.TicksPerBar
	e := NewEngine(EngineConfig{
		Profile: ProfileFor(RoleAlto),
		Key:     theory.GMajor,
		Scale:   theory.ScaleMajor,
		Range:   models.VoiceRange{Low: 50, High: 76},
		Contour: ContourDescent,
		Start:   62,
	}, rng.New(9))
	e.Line(0, phrase, phrase)
	want := e.State.Carry(BoundaryAfter(0))

	e.Advance(phrase, phrase)
	assert.Equal(t, want, e.State)
	assert.Equal(t, ContourDescent, e.State.Contour)
}
