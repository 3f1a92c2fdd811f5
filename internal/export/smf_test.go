package export

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conceptual-Machines/bachgen/internal/generator"
	"github.com/Conceptual-Machines/bachgen/internal/theory"
)

func TestToccataRoundTrip(t *testing.T) {
	res, err := generator.GenerateToccata(context.Background(), generator.DefaultToccataConfig())
	require.NoError(t, err)

	data, err := Encode(res)
	require.NoError(t, err)
	assert.Equal(t, "MThd", string(data[:4]))

	song, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, int(theory.Quarter), song.Resolution)
	require.Len(t, song.Tracks, len(res.Tracks))
	for i, want := range res.Tracks {
		got := song.Tracks[i]
		assert.Equal(t, want.Name, got.Name)
		assert.Equal(t, want.Channel, got.Channel)
		assert.Equal(t, want.Program, got.Program)
		assert.Len(t, got.Notes, len(want.Notes))
	}
	assert.Equal(t, res.NoteCount(), song.NoteCount())

	require.Len(t, song.Tempo, 1)
	assert.InDelta(t, 80.0, song.Tempo[0].BPM, 0.01)
	assert.Equal(t, res.TimeSignatures, song.TimeSignatures)
	assert.Equal(t, res.Markers, song.Markers)
	assert.Positive(t, song.Duration)
	assert.LessOrEqual(t, song.Duration, res.TotalDuration)
}

func TestGoldbergMetersSurviveExport(t *testing.T) {
	res, err := generator.GenerateGoldberg(context.Background(), generator.DefaultGoldbergConfig())
	require.NoError(t, err)

	data, err := Encode(res)
	require.NoError(t, err)
	song, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, res.TimeSignatures, song.TimeSignatures)
	require.Len(t, song.Tempo, len(res.Tempo))
	for i := range res.Tempo {
		assert.Equal(t, res.Tempo[i].Tick, song.Tempo[i].Tick)
		assert.InDelta(t, res.Tempo[i].BPM, song.Tempo[i].BPM, 0.01)
	}
	assert.Equal(t, res.NoteCount(), song.NoteCount())
}

func TestNotesKeepPitchAndTiming(t *testing.T) {
	cfg := generator.DefaultToccataConfig()
	cfg.TotalBars = 8
	res, err := generator.GenerateToccata(context.Background(), cfg)
	require.NoError(t, err)

	data, err := Encode(res)
	require.NoError(t, err)
	song, err := Decode(data)
	require.NoError(t, err)

	// the pedal track holds a single voice, so pairing on/off is exact
	pedal := res.Tracks[len(res.Tracks)-1]
	got := song.Tracks[len(song.Tracks)-1]
	require.Len(t, got.Notes, len(pedal.Notes))
	for i, n := range pedal.Notes {
		assert.Equal(t, n.StartTick, got.Notes[i].StartTick)
		assert.Equal(t, n.Duration, got.Notes[i].Duration)
		assert.Equal(t, n.Pitch, got.Notes[i].Pitch)
		assert.Equal(t, n.Velocity, got.Notes[i].Velocity)
	}
}

func TestEncodeRejectsFailedResults(t *testing.T) {
	_, err := Encode(nil)
	assert.Error(t, err)
	_, err = Encode(&generator.Result{})
	assert.Error(t, err)
}
