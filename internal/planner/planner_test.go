package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conceptual-Machines/bachgen/internal/theory"
)

func TestGoldbergGridShape(t *testing.T) {
	grid := GoldbergGrid()
	require.Len(t, grid, GridBars)

	for i, b := range grid {
		assert.Equal(t, i+1, b.Bar)
		assert.Equal(t, i%4+1, b.BarInPhrase)
		assert.Equal(t, i/4, b.Group)
		if b.BarInPhrase == 4 {
			assert.True(t, b.Structural, "bar %d", b.Bar)
			assert.NotEqual(t, CadenceNone, b.Cadence, "bar %d carries a cadence", b.Bar)
		} else {
			assert.Equal(t, CadenceNone, b.Cadence, "bar %d", b.Bar)
		}
	}

	for _, bar := range []int{4, 12, 16, 20, 28} {
		assert.Equal(t, CadenceHalf, grid[bar-1].Cadence, "bar %d", bar)
	}
	for _, bar := range []int{8, 24, 32} {
		assert.Equal(t, CadencePerfect, grid[bar-1].Cadence, "bar %d", bar)
	}

	assert.Equal(t, LevelGlobal32, grid[31].Level)
	assert.Equal(t, LevelSection16, grid[15].Level)
	assert.Equal(t, LevelPhrase8, grid[7].Level)
	assert.Equal(t, LevelPhrase8, grid[23].Level)
	assert.Equal(t, LevelPhrase4, grid[3].Level)
	assert.Equal(t, LevelBar, grid[0].Level)
}

func TestGoldbergDescendingBass(t *testing.T) {
	grid := GoldbergGrid()
	want := []int{55, 54, 52, 50, 48, 47, 45, 47} // G F# E D C B A B
	for i, p := range want {
		assert.Equal(t, p, BassPitch(grid[i].Bass.Degree, theory.GMajor), "bar %d", i+1)
	}
}

func TestTensionAggregate(t *testing.T) {
	tn := Tension{Harmonic: 1, Melodic: 1, Rhythmic: 1, Textural: 1}
	assert.InDelta(t, 1.0, tn.Aggregate(), 1e-9)
	tn = Tension{Harmonic: 0.5}
	assert.InDelta(t, 0.2, tn.Aggregate(), 1e-9)
}

func TestToTimelineRejectsZeroLengthBars(t *testing.T) {
	_, err := ToTimeline(GoldbergGrid(), theory.GMajor, theory.TimeSignature{Numerator: 3, Denominator: 4096})
	assert.Error(t, err)
}

func TestToTimeline(t *testing.T) {
	grid := GoldbergGrid()
	tl, err := ToTimeline(grid, theory.GMajor, theory.Time3_4)
	require.NoError(t, err)
	require.Equal(t, GridBars, tl.Len())
	assert.Equal(t, theory.Tick(32*1440), tl.TotalDuration())

	for i, e := range tl.Events() {
		assert.True(t, e.Immutable)
		if grid[i].Structural {
			assert.Equal(t, 1.0, e.Weight)
		} else {
			assert.Equal(t, 0.75, e.Weight)
		}
	}
	e, ok := tl.At(1440 + 10)
	require.True(t, ok)
	assert.Equal(t, theory.DegreeV, e.Chord.Degree)
	assert.Equal(t, 6, e.Chord.BassPC(), "F# in the bass")
}

func TestGoldbergPlan(t *testing.T) {
	plan := GoldbergPlan()
	require.Len(t, plan, 32)
	for i, d := range plan {
		assert.Equal(t, i, d.Number)
		assert.Positive(t, d.TimeSignature.Numerator)
		if d.Type == TypeCanon {
			require.NotNil(t, d.Canon, "var %d", i)
			assert.Equal(t, i/3-1, d.Canon.Interval, "canon interval grows by one degree every third variation")
		}
	}
	assert.Equal(t, TypeAria, plan[0].Type)
	assert.Equal(t, TypeAriaDaCapo, plan[31].Type)
	assert.Equal(t, theory.Time3_8, plan[4].TimeSignature)
	assert.True(t, plan[15].Canon.Inverted)
	assert.True(t, plan[25].Minor)
	assert.Equal(t, theory.GMinor, plan[25].KeyFor(theory.GMajor))
	assert.Equal(t, "Var. 3 canon", plan[3].Name())
}

func TestSelectVariations(t *testing.T) {
	plan := GoldbergPlan()
	tests := []struct {
		scale DurationScale
		want  int
	}{
		{ScaleShort, 12},
		{ScaleMedium, 22},
		{ScaleLong, 32},
		{ScaleFull, 32},
	}
	for _, tt := range tests {
		t.Run(tt.scale.String(), func(t *testing.T) {
			sel := SelectVariations(plan, tt.scale)
			assert.Len(t, sel, tt.want)
			assert.Equal(t, 0, sel[0].Number)
			assert.Equal(t, 31, sel[len(sel)-1].Number)
		})
	}
	short := SelectVariations(plan, ScaleShort)
	assert.Equal(t, 3, short[2].Number)
	assert.Equal(t, 4, short[3].Number)
}

func TestParseDurationScale(t *testing.T) {
	s, err := ParseDurationScale("Full")
	require.NoError(t, err)
	assert.Equal(t, ScaleFull, s)
	_, err = ParseDurationScale("epic")
	assert.Error(t, err)
}

func TestLargestRemainder(t *testing.T) {
	assert.Equal(t, []int{2, 2, 4, 3, 2, 4, 4, 3}, LargestRemainder(24, []int{2, 2, 4, 3, 2, 4, 4, 3}))
	assert.Equal(t, []int{5, 6, 4, 3, 6}, LargestRemainder(24, []int{4, 5, 3, 3, 5}))
	assert.Equal(t, []int{0, 0}, LargestRemainder(0, []int{1, 1}))
	sum := 0
	for _, b := range LargestRemainder(37, []int{3, 4, 3}) {
		sum += b
	}
	assert.Equal(t, 37, sum)
}

func TestToccataPlan(t *testing.T) {
	plan := ToccataPlan(ArchetypeDramaticus, 24)
	require.Len(t, plan, 8)
	var bars []int
	next := 0
	for _, s := range plan {
		bars = append(bars, s.Bars)
		assert.Equal(t, next, s.StartBar)
		assert.Len(t, s.Harmony, s.Bars)
		next += s.Bars
	}
	assert.Equal(t, []int{2, 2, 4, 3, 2, 4, 4, 3}, bars)
	last := plan[7].Harmony
	assert.Equal(t, theory.DegreeI, last[len(last)-1])
	assert.Equal(t, theory.DegreeV7, last[len(last)-2])

	sect := ToccataPlan(ArchetypeSectionalis, 24)
	require.Len(t, sect, 5)
	assert.Equal(t, SectionCadenza, sect[3].Kind)

	// Every section keeps at least one bar when there is room.
	small := ToccataPlan(ArchetypeDramaticus, 9)
	require.Len(t, small, 8)
	for _, s := range small {
		assert.GreaterOrEqual(t, s.Bars, 1)
	}
}

func TestParseArchetype(t *testing.T) {
	a, err := ParseArchetype("Sectionalis")
	require.NoError(t, err)
	assert.Equal(t, ArchetypeSectionalis, a)
	_, err = ParseArchetype("fantasia")
	assert.Error(t, err)
}
