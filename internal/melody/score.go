package melody

import (
	"github.com/Conceptual-Machines/bachgen/internal/rng"
	"github.com/Conceptual-Machines/bachgen/internal/theory"
)

// ScoreInput is everything the scorer looks at for one pitch decision.
type ScoreInput struct {
	State   *State
	Profile VoiceProfile
	Prev    int
	Level   theory.MetricLevel
	// ChordTone reports whether a pitch fits the harmony at this tick; nil
	// treats every pitch as a chord tone.
	ChordTone func(pitch int) bool
	// AllChordTones disables the non-chord-tone penalty.
	AllChordTones bool
}

// GoalTension is 1.0 for the first 60% of a phrase and decays linearly to
// 0.4 at its end.
func GoalTension(progress float64) float64 {
	progress = clamp01(progress)
	if progress <= 0.6 {
		return 1
	}
	return 1 - (progress-0.6)/0.4*0.6
}

// Score returns the additive desirability of moving to cand. It draws no
// randomness.
func Score(in ScoreInput, cand int) float64 {
	s := in.State
	p := in.Profile
	d := cand - in.Prev
	a := theory.Abs(d)
	dir := theory.Sign(d)
	score := 0.0

	if dir != 0 && dir == s.LastDirection {
		score += p.ContinuationBonus
	}
	switch {
	case a <= 2:
		score += p.StepwiseBonus
	case a <= 4:
		score += p.StepwiseBonus / 2
	}
	if a == 5 || a == 7 {
		score += p.P4P5Bonus
	}

	if !in.AllChordTones && in.ChordTone != nil && !in.ChordTone(cand) {
		switch in.Level {
		case theory.LevelBar:
			score -= 0.40
		case theory.LevelBeat:
			score -= 0.15
		default:
			score -= 0.05
		}
	}

	if a >= 3 && s.ConsecutiveLeaps > 0 {
		score -= 0.15 * float64(s.ConsecutiveLeaps)
	}

	if s.LastLargeLeap >= 5 && dir != 0 && dir == -s.LastDirection {
		score += 0.20
		if a <= 2 {
			score += 0.25
		}
	}

	switch in.Level {
	case theory.LevelBar:
		if a >= 3 && a <= 5 {
			score += 0.10
		}
	case theory.LevelOffbeat:
		if a <= 2 {
			score += 0.10
		}
	}

	if s.Contour != ContourNeutral && dir != 0 {
		w := 1.0
		switch in.Level {
		case theory.LevelBar:
			w = 1.3
		case theory.LevelOffbeat:
			w = 0.6
		}
		score += s.Contour.DirectionAt(s.PhraseProgress) * s.ContourStrength * float64(dir) * w * 0.2
	}

	if a > 12 {
		score -= 1.0
	}
	return score * GoalTension(s.PhraseProgress)
}

// SelectPitch draws from candidates proportionally to their scores after
// shifting so the lowest score becomes 0.01.
func SelectPitch(cands []int, scores []float64, r *rng.Rand) int {
	if len(cands) == 0 {
		return theory.Unresolvable
	}
	return cands[SelectIndex(scores, r)]
}

// SelectIndex is SelectPitch over indices.
func SelectIndex(scores []float64, r *rng.Rand) int {
	if len(scores) == 0 {
		return 0
	}
	lowest := scores[0]
	for _, s := range scores[1:] {
		if s < lowest {
			lowest = s
		}
	}
	w := make([]float64, len(scores))
	for i, s := range scores {
		w[i] = s - lowest + 0.01
	}
	return r.WeightedIndex(w)
}
