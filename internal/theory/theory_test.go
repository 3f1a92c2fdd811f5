package theory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeSignatureTicks(t *testing.T) {
	tests := []struct {
		ts      TimeSignature
		beat    Tick
		bar     Tick
		compnd  bool
		display string
	}{
		{Time4_4, 480, 1920, false, "4/4"},
		{Time3_4, 480, 1440, false, "3/4"},
		{Time2_2, 960, 1920, false, "2/2"},
		{Time3_8, 240, 720, false, "3/8"},
		{Time6_8, 240, 1440, true, "6/8"},
		{Time9_8, 240, 2160, true, "9/8"},
		{Time12_8, 240, 2880, true, "12/8"},
	}
	for _, tt := range tests {
		t.Run(tt.display, func(t *testing.T) {
			assert.Equal(t, tt.beat, tt.ts.BeatTicks())
			assert.Equal(t, tt.bar, tt.ts.BarTicks())
			assert.Equal(t, tt.compnd, tt.ts.IsCompound())
			assert.Equal(t, tt.display, tt.ts.String())
		})
	}
}

func TestMetricLevel(t *testing.T) {
	assert.Equal(t, LevelBar, MetricLevelAt(0, Time4_4))
	assert.Equal(t, LevelBar, MetricLevelAt(1920, Time4_4))
	assert.Equal(t, LevelBeat, MetricLevelAt(480, Time4_4))
	assert.Equal(t, LevelOffbeat, MetricLevelAt(240, Time4_4))
	assert.Equal(t, LevelBeat, MetricLevelAt(240, Time3_8))
	assert.Equal(t, LevelBar, MetricLevelAt(720, Time3_8))
}

func TestAccentedBeats(t *testing.T) {
	assert.True(t, IsAccentedBeat(0, Time4_4))
	assert.False(t, IsAccentedBeat(480, Time4_4))
	assert.True(t, IsAccentedBeat(960, Time4_4))
	assert.False(t, IsAccentedBeat(1440, Time4_4))
	assert.False(t, IsAccentedBeat(960, Time3_4))
	assert.False(t, IsAccentedBeat(100, Time4_4))
	assert.True(t, IsStrongBeat(720, Time6_8))
	assert.False(t, IsStrongBeat(240, Time6_8))
}

func TestScaleDegreeToPitch(t *testing.T) {
	tests := []struct {
		name   string
		degree int
		key    int
		scale  ScaleType
		want   int
	}{
		{"tonic", 0, 7, ScaleMajor, 67},
		{"leading tone below", -1, 7, ScaleMajor, 66},
		{"octave up", 7, 7, ScaleMajor, 79},
		{"two octaves down", -14, 7, ScaleMajor, 43},
		{"harmonic minor seventh", 6, 2, ScaleHarmonicMinor, 73},
		{"natural minor seventh", 6, 2, ScaleNaturalMinor, 72},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ScaleDegreeToPitch(tt.degree, 60, tt.key, tt.scale))
		})
	}
}

func TestAbsoluteDegreeRoundTrip(t *testing.T) {
	for _, scale := range []ScaleType{ScaleMajor, ScaleHarmonicMinor, ScaleDorian} {
		for _, key := range []int{0, 2, 7, 11} {
			for _, p := range ScaleTonesInRange(key, scale, 24, 100) {
				deg := PitchToAbsoluteDegree(p, key, scale)
				require.Equal(t, p, AbsoluteDegreeToPitch(deg, key, scale), "scale %s key %d pitch %d", scale, key, p)
			}
		}
	}
	// Non-scale pitch maps to the degree below.
	assert.Equal(t, PitchToAbsoluteDegree(67, 7, ScaleMajor), PitchToAbsoluteDegree(68, 7, ScaleMajor))
}

func TestClassifyInterval(t *testing.T) {
	assert.Equal(t, PerfectConsonance, ClassifyInterval(0))
	assert.Equal(t, PerfectConsonance, ClassifyInterval(12))
	assert.Equal(t, PerfectConsonance, ClassifyInterval(19))
	assert.Equal(t, ImperfectConsonance, ClassifyInterval(-3))
	assert.Equal(t, ImperfectConsonance, ClassifyInterval(16))
	assert.Equal(t, Dissonance, ClassifyInterval(5))
	assert.Equal(t, PerfectConsonance, ClassifyIntervalWithFourth(5, true))
	assert.Equal(t, Dissonance, ClassifyInterval(6))
	assert.Equal(t, Dissonance, ClassifyInterval(13))
}

func TestIsParallelPerfect(t *testing.T) {
	assert.True(t, IsParallelPerfect(67, 60, 69, 62), "parallel fifths")
	assert.True(t, IsParallelPerfect(72, 60, 74, 62), "parallel octaves")
	assert.False(t, IsParallelPerfect(67, 60, 65, 62), "contrary motion")
	assert.False(t, IsParallelPerfect(67, 60, 67, 62), "oblique motion")
	assert.False(t, IsParallelPerfect(64, 60, 65, 62), "third to third")
}

func TestIsDiatonicInKey(t *testing.T) {
	// G minor accepts both F and F#, E and Eb.
	for _, p := range []int{65, 66, 63, 64} {
		assert.True(t, IsDiatonicInKey(p, 7, true), PitchName(p))
	}
	assert.False(t, IsDiatonicInKey(68, 7, true))
	assert.False(t, IsDiatonicInKey(65, 7, false))
}

func TestNearestScaleTone(t *testing.T) {
	assert.Equal(t, 67, NearestScaleTone(67, 7, ScaleMajor))
	assert.Equal(t, 67, NearestScaleTone(68, 7, ScaleMajor))
	assert.Equal(t, 71, StepInScale(69, 1, 7, ScaleMajor))
	assert.Equal(t, 66, StepInScale(67, -1, 7, ScaleMajor))
}

func TestClampPitchToRange(t *testing.T) {
	assert.Equal(t, 60, ClampPitchToRange(48, 55, 86))
	assert.Equal(t, 74, ClampPitchToRange(86+0, 48, 81))
	assert.Equal(t, 60, ClampPitchToRange(50, 60, 65))
	assert.Equal(t, 0, ClampPitch(-4))
	assert.Equal(t, 127, ClampPitch(200))
}

func TestBuildChord(t *testing.T) {
	tests := []struct {
		name    string
		degree  ChordDegree
		key     Key
		root    int
		quality ChordQuality
	}{
		{"G major tonic", DegreeI, GMajor, 7, QualityMajor},
		{"G major supertonic", DegreeII, GMajor, 9, QualityMinor},
		{"G major dominant", DegreeV, GMajor, 2, QualityMajor},
		{"G minor tonic", DegreeI, GMinor, 7, QualityMinor},
		{"G minor dominant keeps F#", DegreeV, GMinor, 2, QualityMajor},
		{"G major V of V", DegreeVofV, GMajor, 9, QualityMajor},
		{"G major V of vi", DegreeVofVI, GMajor, 11, QualityMajor},
		{"G minor neapolitan", DegreeNeapolitan, GMinor, 8, QualityMajor},
		{"D minor V7", DegreeV7, DMinor, 9, QualityDominant7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := BuildChord(tt.degree, tt.key)
			assert.Equal(t, tt.root, c.RootPC)
			assert.Equal(t, tt.quality, c.Quality)
		})
	}

	v := BuildChord(DegreeV, GMinor)
	assert.Equal(t, 6, v.ThirdPC(), "leading tone F#")
	assert.True(t, v.Contains(66))
	assert.Equal(t, 6, v.WithInversion(1).BassPC())
}

func TestChordTonesInRange(t *testing.T) {
	c := BuildChord(DegreeI, GMajor)
	tones := ChordTonesInRange(c, 55, 67)
	assert.Equal(t, []int{55, 59, 62, 67}, tones)
	assert.Equal(t, 62, NearestChordTone(c, 61))
}

func TestParseKey(t *testing.T) {
	tests := []struct {
		in   string
		want Key
		err  bool
	}{
		{"G", GMajor, false},
		{"G major", GMajor, false},
		{"Gm", GMinor, false},
		{"d minor", DMinor, false},
		{"F#-minor", Key{Tonic: 6, Minor: true}, false},
		{"Bb", Key{Tonic: 10}, false},
		{"Bbm", Key{Tonic: 10, Minor: true}, false},
		{"", Key{}, true},
		{"H", Key{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKey(tt.in)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKeySignature(t *testing.T) {
	assert.Equal(t, 1, GMajor.Signature().Sharps)
	assert.Equal(t, -2, GMinor.Signature().Sharps)
	assert.Equal(t, -1, DMinor.Signature().Sharps)
	assert.Equal(t, "G minor", GMinor.String())
}
