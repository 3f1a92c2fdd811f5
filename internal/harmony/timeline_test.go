package harmony

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conceptual-Machines/bachgen/internal/theory"
)

func bar(i int, degree theory.ChordDegree) Event {
	start := theory.Tick(i) * theory.TicksPerBar
	return Event{
		Tick:      start,
		EndTick:   start + theory.TicksPerBar,
		Key:       theory.GMajor,
		Chord:     theory.BuildChord(degree, theory.GMajor),
		BassPitch: 43,
		Weight:    1,
		Immutable: true,
	}
}

func TestTimelineLookup(t *testing.T) {
	tl, err := NewTimeline(bar(0, theory.DegreeI), bar(1, theory.DegreeV), bar(2, theory.DegreeVI))
	require.NoError(t, err)
	assert.Equal(t, 3, tl.Len())
	assert.Equal(t, 3*theory.TicksPerBar, tl.TotalDuration())

	tests := []struct {
		tick theory.Tick
		want theory.ChordDegree
	}{
		{0, theory.DegreeI},
		{1919, theory.DegreeI},
		{1920, theory.DegreeV},
		{5000, theory.DegreeVI},
		{99999, theory.DegreeVI},
	}
	for _, tt := range tests {
		e, ok := tl.At(tt.tick)
		require.True(t, ok)
		assert.Equal(t, tt.want, e.Chord.Degree, "tick %d", tt.tick)
	}
}

func TestTimelineGapReturnsNearestBelow(t *testing.T) {
	a := bar(0, theory.DegreeI)
	b := bar(2, theory.DegreeIV)
	tl, err := NewTimeline(a, b)
	require.NoError(t, err)
	e, ok := tl.At(2500)
	require.True(t, ok)
	assert.Equal(t, theory.DegreeI, e.Chord.Degree)
}

func TestTimelineRejectsOverlap(t *testing.T) {
	tl := &Timeline{}
	require.NoError(t, tl.Append(bar(1, theory.DegreeI)))
	assert.Error(t, tl.Append(bar(0, theory.DegreeV)))
	assert.Error(t, tl.Append(Event{Tick: 5000, EndTick: 5000}))

	_, ok := (&Timeline{}).At(0)
	assert.False(t, ok)
}

func TestTimelineOffsetSliceTranspose(t *testing.T) {
	tl, err := NewTimeline(bar(0, theory.DegreeI), bar(1, theory.DegreeV))
	require.NoError(t, err)

	shifted := tl.Offset(960)
	assert.Equal(t, theory.Tick(960), shifted.Events()[0].Tick)
	assert.Equal(t, theory.Tick(0), tl.Events()[0].Tick, "original untouched")

	sl := tl.Slice(960, 2880)
	require.Equal(t, 2, sl.Len())
	assert.Equal(t, theory.Tick(0), sl.Events()[0].Tick)
	assert.Equal(t, theory.Tick(960), sl.Events()[0].EndTick)
	assert.Equal(t, theory.Tick(1920), sl.TotalDuration())

	minor := tl.Transposed(theory.DMinor)
	e := minor.Events()[1]
	assert.Equal(t, theory.QualityMajor, e.Chord.Quality)
	assert.Equal(t, 9, e.Chord.RootPC)
	assert.Equal(t, 38, e.BassPitch)

	require.NoError(t, tl.Concat(tl.Offset(tl.TotalDuration())))
	assert.Equal(t, 4, tl.Len())
}
