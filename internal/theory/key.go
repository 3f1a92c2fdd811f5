package theory

import (
	"fmt"
	"strings"
)

// Key is a tonic pitch class plus mode.
type Key struct {
	Tonic int  `json:"tonic"`
	Minor bool `json:"minor"`
}

// Common keys
var (
	GMajor = Key{Tonic: 7}
	GMinor = Key{Tonic: 7, Minor: true}
	DMinor = Key{Tonic: 2, Minor: true}
	CMajor = Key{Tonic: 0}
)

func (k Key) String() string {
	mode := "major"
	if k.Minor {
		mode = "minor"
	}
	return fmt.Sprintf("%s %s", PitchClassName(k.Tonic), mode)
}

// ParseKey parses forms like "G", "G major", "Dm", "d minor", "F#-minor".
func ParseKey(s string) (Key, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Key{}, fmt.Errorf("empty key")
	}
	lower := strings.ToLower(s)
	minor := false
	for _, suffix := range []string{" minor", "-minor", "_minor", "minor", " min", "min", "m"} {
		if strings.HasSuffix(lower, suffix) && len(lower) > len(suffix) {
			minor = true
			s = s[:len(s)-len(suffix)]
			break
		}
	}
	if !minor {
		for _, suffix := range []string{" major", "-major", "_major", "major", " maj", "maj"} {
			if strings.HasSuffix(lower, suffix) && len(lower) > len(suffix) {
				s = s[:len(s)-len(suffix)]
				break
			}
		}
	}
	pc, err := ParsePitchClass(strings.TrimSpace(s))
	if err != nil {
		return Key{}, fmt.Errorf("invalid key %q: %w", s, err)
	}
	return Key{Tonic: pc, Minor: minor}, nil
}

// Scale returns the default scale for melodic generation in the key:
// major, or harmonic minor so dominant harmony keeps its leading tone.
func (k Key) Scale() ScaleType {
	if k.Minor {
		return ScaleHarmonicMinor
	}
	return ScaleMajor
}

// Parallel returns the key with the same tonic and opposite mode.
func (k Key) Parallel() Key {
	return Key{Tonic: k.Tonic, Minor: !k.Minor}
}

// Contains reports whether pitch is diatonic in the key.
func (k Key) Contains(pitch int) bool {
	return IsDiatonicInKey(pitch, k.Tonic, k.Minor)
}

// KeySignature describes the accidentals of a key for renderers.
type KeySignature struct {
	Sharps int  `json:"sharps"` // negative for flats
	Minor  bool `json:"minor"`
}

var majorSharps = map[int]int{0: 0, 7: 1, 2: 2, 9: 3, 4: 4, 11: 5, 6: 6, 1: -5, 5: -1, 10: -2, 3: -3, 8: -4}

// Signature returns the key signature of k.
func (k Key) Signature() KeySignature {
	tonic := FloorMod(k.Tonic, 12)
	if k.Minor {
		tonic = FloorMod(tonic+3, 12) // relative major
	}
	return KeySignature{Sharps: majorSharps[tonic], Minor: k.Minor}
}
