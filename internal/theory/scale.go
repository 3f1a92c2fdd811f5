package theory

// ScaleType selects one of the supported seven-note scales.
type ScaleType int

const (
	ScaleMajor ScaleType = iota
	ScaleNaturalMinor
	ScaleHarmonicMinor
	ScaleMelodicMinor
	ScaleDorian
	ScaleMixolydian
)

var scaleIntervals = map[ScaleType][7]int{
	ScaleMajor:         {0, 2, 4, 5, 7, 9, 11},
	ScaleNaturalMinor:  {0, 2, 3, 5, 7, 8, 10},
	ScaleHarmonicMinor: {0, 2, 3, 5, 7, 8, 11},
	ScaleMelodicMinor:  {0, 2, 3, 5, 7, 9, 11},
	ScaleDorian:        {0, 2, 3, 5, 7, 9, 10},
	ScaleMixolydian:    {0, 2, 4, 5, 7, 9, 10},
}

func (s ScaleType) String() string {
	switch s {
	case ScaleMajor:
		return "major"
	case ScaleNaturalMinor:
		return "natural_minor"
	case ScaleHarmonicMinor:
		return "harmonic_minor"
	case ScaleMelodicMinor:
		return "melodic_minor"
	case ScaleDorian:
		return "dorian"
	case ScaleMixolydian:
		return "mixolydian"
	}
	return "unknown"
}

// Intervals returns the semitone offsets of the scale from its tonic.
func (s ScaleType) Intervals() [7]int {
	if iv, ok := scaleIntervals[s]; ok {
		return iv
	}
	return scaleIntervals[ScaleMajor]
}

// IsMinor reports whether the scale has a minor third.
func (s ScaleType) IsMinor() bool {
	return s.Intervals()[2] == 3
}

// ScaleDegreeToPitch converts a (possibly negative or multi-octave) scale
// degree to a MIDI pitch: base + keyOffset + octave*12 + interval.
func ScaleDegreeToPitch(degree, base, keyOffset int, scale ScaleType) int {
	iv := scale.Intervals()
	oct := FloorDiv(degree, 7)
	idx := FloorMod(degree, 7)
	return ClampPitch(base + keyOffset + oct*12 + iv[idx])
}

// PitchToAbsoluteDegree maps pitch to octave*7 + degree-in-scale, with
// octave 0 starting at keyOffset. Non-scale pitches take the degree below.
func PitchToAbsoluteDegree(pitch, keyOffset int, scale ScaleType) int {
	rel := pitch - FloorMod(keyOffset, 12)
	oct := FloorDiv(rel, 12)
	within := rel - oct*12
	iv := scale.Intervals()
	deg := 0
	for i := 6; i >= 0; i-- {
		if iv[i] <= within {
			deg = i
			break
		}
	}
	return oct*7 + deg
}

// AbsoluteDegreeToPitch is the inverse of PitchToAbsoluteDegree for scale tones.
func AbsoluteDegreeToPitch(absDegree, keyOffset int, scale ScaleType) int {
	return ScaleDegreeToPitch(absDegree, 0, FloorMod(keyOffset, 12), scale)
}

// IsScaleTone reports whether pitch belongs to the scale rooted at tonicPC.
func IsScaleTone(pitch, tonicPC int, scale ScaleType) bool {
	rel := FloorMod(pitch-tonicPC, 12)
	for _, v := range scale.Intervals() {
		if v == rel {
			return true
		}
	}
	return false
}

// NearestScaleTone snaps pitch to the closest scale tone. Ties go downward.
func NearestScaleTone(pitch, tonicPC int, scale ScaleType) int {
	if IsScaleTone(pitch, tonicPC, scale) {
		return ClampPitch(pitch)
	}
	for d := 1; d <= 6; d++ {
		if IsScaleTone(pitch-d, tonicPC, scale) {
			return ClampPitch(pitch - d)
		}
		if IsScaleTone(pitch+d, tonicPC, scale) {
			return ClampPitch(pitch + d)
		}
	}
	return ClampPitch(pitch)
}

// StepInScale moves pitch by steps scale degrees (snapping first).
func StepInScale(pitch, steps, tonicPC int, scale ScaleType) int {
	snapped := NearestScaleTone(pitch, tonicPC, scale)
	deg := PitchToAbsoluteDegree(snapped, tonicPC, scale)
	return AbsoluteDegreeToPitch(deg+steps, tonicPC, scale)
}

var minorUnion = func() map[int]bool {
	set := map[int]bool{}
	for _, s := range []ScaleType{ScaleNaturalMinor, ScaleHarmonicMinor, ScaleMelodicMinor} {
		for _, v := range s.Intervals() {
			set[v] = true
		}
	}
	return set
}()

// IsDiatonicInKey reports whether pitch is diatonic in the key. Minor keys
// accept the union of natural, harmonic and melodic minor.
func IsDiatonicInKey(pitch, tonicPC int, minor bool) bool {
	if !minor {
		return IsScaleTone(pitch, tonicPC, ScaleMajor)
	}
	return minorUnion[FloorMod(pitch-tonicPC, 12)]
}

// ScaleTonesInRange lists every scale tone in [lo, hi] ascending.
func ScaleTonesInRange(tonicPC int, scale ScaleType, lo, hi int) []int {
	var out []int
	for p := ClampPitch(lo); p <= ClampPitch(hi); p++ {
		if IsScaleTone(p, tonicPC, scale) {
			out = append(out, p)
		}
	}
	return out
}
