package theory

import (
	"fmt"
	"strings"
)

// MIDI pitch bounds
const (
	MinPitch = 0
	MaxPitch = 127

	// Unresolvable is returned by resolution helpers that cannot find a pitch.
	Unresolvable = 0
)

var pitchClassNames = [12]string{"C", "C#", "D", "Eb", "E", "F", "F#", "G", "Ab", "A", "Bb", "B"}

// PitchClass returns pitch modulo 12 in [0, 11].
func PitchClass(pitch int) int {
	return FloorMod(pitch, 12)
}

// Octave returns the MIDI octave of pitch where C4 = 60 is octave 4.
func Octave(pitch int) int {
	return FloorDiv(pitch, 12) - 1
}

// PitchName formats a pitch as name+octave, e.g. 67 -> "G4".
func PitchName(pitch int) string {
	return fmt.Sprintf("%s%d", pitchClassNames[PitchClass(pitch)], Octave(pitch))
}

// PitchClassName returns the note name of a pitch class.
func PitchClassName(pc int) string {
	return pitchClassNames[FloorMod(pc, 12)]
}

// ParsePitchClass parses a note name such as "G", "F#", "Bb" into a pitch class.
func ParsePitchClass(name string) (int, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("empty pitch class")
	}
	offsets := map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}
	base, ok := offsets[strings.ToUpper(name[:1])[0]]
	if !ok {
		return 0, fmt.Errorf("invalid note letter: %s", name[:1])
	}
	for _, acc := range name[1:] {
		switch acc {
		case '#', 's':
			base++
		case 'b':
			base--
		default:
			return 0, fmt.Errorf("invalid accidental in %q", name)
		}
	}
	return FloorMod(base, 12), nil
}

// ClampPitch clamps pitch to the MIDI range.
func ClampPitch(pitch int) int {
	if pitch < MinPitch {
		return MinPitch
	}
	if pitch > MaxPitch {
		return MaxPitch
	}
	return pitch
}

// ClampPitchToRange folds pitch by octaves into [lo, hi]; if the window is
// narrower than an octave the pitch is clamped instead.
func ClampPitchToRange(pitch, lo, hi int) int {
	if lo > hi {
		lo, hi = hi, lo
	}
	if hi-lo >= 11 {
		for pitch < lo {
			pitch += 12
		}
		for pitch > hi {
			pitch -= 12
		}
		return ClampPitch(pitch)
	}
	if pitch < lo {
		return ClampPitch(lo)
	}
	if pitch > hi {
		return ClampPitch(hi)
	}
	return ClampPitch(pitch)
}

// NearestPitchWithClass returns the pitch with pitch class pc closest to near.
func NearestPitchWithClass(pc, near int) int {
	base := near - PitchClass(near) + FloorMod(pc, 12)
	best := base
	for _, cand := range []int{base - 12, base + 12} {
		if abs(cand-near) < abs(best-near) {
			best = cand
		}
	}
	return ClampPitch(best)
}

// FloorDiv divides rounding toward negative infinity.
func FloorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// FloorMod returns a mod b with the sign of b.
func FloorMod(a, b int) int {
	m := a % b
	if m != 0 && ((m < 0) != (b < 0)) {
		m += b
	}
	return m
}

// Sign returns -1, 0 or +1.
func Sign(x int) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Abs returns |x|.
func Abs(x int) int { return abs(x) }
