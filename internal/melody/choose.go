package melody

import (
	"github.com/Conceptual-Machines/bachgen/internal/rng"
	"github.com/Conceptual-Machines/bachgen/internal/theory"
)

// Interval classes returned by ChooseInterval.
const (
	IntervalStep = 1
	IntervalSkip = 2
	IntervalLeap = 3
)

// ReversalProbability computes the chance that the next note changes
// direction, before noise and clamping.
func ReversalProbability(s *State, p VoiceProfile) float64 {
	prob := 0.35
	if s.LastLargeLeap >= 5 {
		prob = 0.65
	} else {
		if s.RunLength >= 3 {
			prob += 0.30
		}
		if s.RunLength == 1 && s.PrevWasReversal {
			prob -= 0.40
			if prob < 0.05 {
				prob = 0.05
			}
		}
	}

	chain := 1.0
	switch {
	case s.RunLength <= 1:
		chain = 0.3
	case s.RunLength == 2:
		chain = 0.7
	}
	decay := 1.0
	if s.PhraseProgress > 0.85 {
		decay = 1 - (s.PhraseProgress-0.85)/0.15
	}
	g := p.Gravity * chain * decay
	if s.LastDirection < 0 {
		prob -= g
	} else if s.LastDirection > 0 {
		prob += 0.7 * g
	}
	return prob
}

// ChooseDirection returns -1 or +1 for the next note.
func ChooseDirection(s *State, p VoiceProfile, r *rng.Rand) int {
	if s.LastDirection == 0 {
		if r.Chance(0.5) {
			return 1
		}
		return -1
	}
	prob := ReversalProbability(s, p)
	prob += r.FloatRange(-0.08, 0.08)
	prob = clamp(prob, 0.05, 0.95)
	if r.Chance(prob) {
		return -s.LastDirection
	}
	return s.LastDirection
}

// IntervalWeights returns the (step, skip, leap) distribution for the next
// note after history and beat-position adjustments, normalized to 1.
func IntervalWeights(s *State, p VoiceProfile, level theory.MetricLevel) (step, skip, leap float64) {
	step, skip, leap = p.StepProb, p.SkipProb, p.LeapProb
	switch {
	case s.LastLargeLeap >= 5:
		if p.Recovery {
			step += 0.15
		}
		skip *= 0.8
	case s.LastSkip > 0:
		step += 0.05
		skip -= 0.03
	}
	step, skip, leap = normalize3(step, skip, leap)

	switch level {
	case theory.LevelBar:
		skip *= 1.12
		step *= 0.94
	case theory.LevelOffbeat:
		step *= 1.08
		skip *= 0.95
	}
	return normalize3(step, skip, leap)
}

// ChooseInterval returns IntervalStep, IntervalSkip or IntervalLeap.
func ChooseInterval(s *State, p VoiceProfile, level theory.MetricLevel, r *rng.Rand) int {
	if p.MaxLeaps > 0 && s.ConsecutiveLeaps >= p.MaxLeaps {
		return IntervalStep
	}
	step, skip, leap := IntervalWeights(s, p, level)
	switch r.WeightedIndex([]float64{step, skip, leap}) {
	case 0:
		return IntervalStep
	case 1:
		return IntervalSkip
	}
	return IntervalLeap
}

func normalize3(a, b, c float64) (float64, float64, float64) {
	if a < 0 {
		a = 0
	}
	if b < 0 {
		b = 0
	}
	if c < 0 {
		c = 0
	}
	sum := a + b + c
	if sum <= 0 {
		return 1, 0, 0
	}
	return a / sum, b / sum, c / sum
}
