// Package melody is the rule-driven pitch chooser shared by every form
// generator: voice profiles, melodic state, direction and interval choice,
// candidate scoring, figure injection and a degree-step Markov surface.
package melody

import (
	"math"

	"github.com/Conceptual-Machines/bachgen/internal/theory"
)

// Contour is the large-scale shape a phrase leans toward.
type Contour int

const (
	ContourNeutral Contour = iota
	ContourArch
	ContourDescent
	ContourAscent
	ContourWave
)

func (c Contour) String() string {
	switch c {
	case ContourArch:
		return "arch"
	case ContourDescent:
		return "descent"
	case ContourAscent:
		return "ascent"
	case ContourWave:
		return "wave"
	}
	return "neutral"
}

// DirectionAt returns the contour's preferred direction in [-1, 1] at the
// given phrase progress.
func (c Contour) DirectionAt(progress float64) float64 {
	progress = clamp01(progress)
	switch c {
	case ContourArch:
		// rises to the apex at 0.6, falls afterwards
		if progress < 0.6 {
			return 1 - progress/0.6*0.5
		}
		return -0.5 - (progress-0.6)/0.4*0.5
	case ContourDescent:
		return -1
	case ContourAscent:
		return 1
	case ContourWave:
		return math.Sin(progress * 4 * math.Pi)
	}
	return 0
}

// BoundaryKind selects how state carries over between phrases.
type BoundaryKind int

const (
	BoundaryCadence BoundaryKind = iota
	BoundaryDevelopment
	BoundaryReentry
)

// State is the per-voice melodic memory updated after every placed note.
type State struct {
	LastDirection    int     `json:"last_direction"`
	RunLength        int     `json:"run_length"`
	LastSkip         int     `json:"last_skip"`
	LastLargeLeap    int     `json:"last_large_leap"`
	PhraseProgress   float64 `json:"phrase_progress"`
	PrevWasReversal  bool    `json:"prev_was_reversal"`
	ConsecutiveLeaps int     `json:"consecutive_leaps"`
	Contour          Contour `json:"contour"`
	ContourStrength  float64 `json:"contour_strength"`
}

// NewState returns a fresh state for the start of a piece.
func NewState(contour Contour) *State {
	return &State{Contour: contour, ContourStrength: 0.5}
}

// Update records the motion prev -> next.
func (s *State) Update(prev, next int) {
	d := next - prev
	dir := theory.Sign(d)
	s.PrevWasReversal = false
	switch {
	case dir == 0:
		// repeated note keeps the run
	case dir == s.LastDirection:
		s.RunLength++
	default:
		s.PrevWasReversal = s.LastDirection != 0
		s.RunLength = 1
		s.LastDirection = dir
	}
	a := theory.Abs(d)
	s.LastSkip = 0
	if a >= 3 && a <= 4 {
		s.LastSkip = a
	}
	s.LastLargeLeap = 0
	if a >= 5 {
		s.LastLargeLeap = a
	}
	if a >= 3 {
		s.ConsecutiveLeaps++
	} else {
		s.ConsecutiveLeaps = 0
	}
}

// SetProgress sets the phrase progress, clamped to [0, 1].
func (s *State) SetProgress(p float64) {
	s.PhraseProgress = clamp01(p)
}

// Carry returns the state for the next phrase.
func (s State) Carry(kind BoundaryKind) *State {
	next := s
	next.PhraseProgress = 0
	if next.RunLength > 2 {
		next.RunLength = 2
	}
	switch kind {
	case BoundaryCadence:
		next.Contour = ContourNeutral
		next.RunLength = 0
	case BoundaryReentry:
		next.Contour = ContourArch
		next.ContourStrength = 0.5
	}
	return &next
}

// BoundaryAfter returns how a voice crosses from 4-bar phrase n into n+1:
// re-entry at the start of each 16-bar half, cadence after the perfect
// cadences that close each 8-bar period, development after half cadences.
func BoundaryAfter(n int) BoundaryKind {
	switch next := n + 1; {
	case next%4 == 0:
		return BoundaryReentry
	case next%2 == 0:
		return BoundaryCadence
	}
	return BoundaryDevelopment
}

func clamp01(x float64) float64 {
	return clamp(x, 0, 1)
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
