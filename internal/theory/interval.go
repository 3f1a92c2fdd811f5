package theory

// IntervalClass is the consonance category of an interval.
type IntervalClass int

const (
	PerfectConsonance IntervalClass = iota
	ImperfectConsonance
	Dissonance
)

func (c IntervalClass) String() string {
	switch c {
	case PerfectConsonance:
		return "perfect"
	case ImperfectConsonance:
		return "imperfect"
	}
	return "dissonant"
}

// Named simple intervals in semitones
const (
	Unison        = 0
	MinorSecond   = 1
	MajorSecond   = 2
	MinorThird    = 3
	MajorThird    = 4
	PerfectFourth = 5
	Tritone       = 6
	PerfectFifth  = 7
	MinorSixth    = 8
	MajorSixth    = 9
	MinorSeventh  = 10
	MajorSeventh  = 11
)

// SimpleInterval reduces an absolute semitone distance to [0, 11].
func SimpleInterval(semitones int) int {
	return FloorMod(abs(semitones), 12)
}

// ClassifyInterval classifies semitones after reduction mod 12. The perfect
// fourth counts as a dissonance.
func ClassifyInterval(semitones int) IntervalClass {
	return ClassifyIntervalWithFourth(semitones, false)
}

// ClassifyIntervalWithFourth is ClassifyInterval with the fourth's treatment
// chosen by the caller (suspension handling treats it as consonant).
func ClassifyIntervalWithFourth(semitones int, fourthConsonant bool) IntervalClass {
	switch SimpleInterval(semitones) {
	case Unison, PerfectFifth:
		return PerfectConsonance
	case MinorThird, MajorThird, MinorSixth, MajorSixth:
		return ImperfectConsonance
	case PerfectFourth:
		if fourthConsonant {
			return PerfectConsonance
		}
		return Dissonance
	}
	return Dissonance
}

// IsConsonant reports whether the interval is a perfect or imperfect consonance.
func IsConsonant(semitones int) bool {
	return ClassifyInterval(semitones) != Dissonance
}

// IsPerfect reports whether the simple interval is a unison/octave or fifth.
func IsPerfect(semitones int) bool {
	s := SimpleInterval(semitones)
	return s == Unison || s == PerfectFifth
}

// IsParallelPerfect reports whether two voices moving from (a1, b1) to
// (a2, b2) form parallel unisons, octaves or fifths. Both voices must move
// in the same direction and both intervals must be the same perfect class.
func IsParallelPerfect(a1, b1, a2, b2 int) bool {
	if a1 == a2 || b1 == b2 {
		return false
	}
	if Sign(a2-a1) != Sign(b2-b1) {
		return false
	}
	i1 := SimpleInterval(a1 - b1)
	i2 := SimpleInterval(a2 - b2)
	return i1 == i2 && (i1 == Unison || i1 == PerfectFifth)
}

// IsHarshWeakBeatInterval reports m2, tritone and M7 (and their compounds).
func IsHarshWeakBeatInterval(semitones int) bool {
	switch SimpleInterval(semitones) {
	case MinorSecond, Tritone, MajorSeventh:
		return true
	}
	return false
}
