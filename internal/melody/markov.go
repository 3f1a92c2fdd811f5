package melody

import "sort"

// MaxDegreeStep bounds the Markov surface to moves within a fifth.
const MaxDegreeStep = 4

// StepProb is a degree step with its transition probability.
type StepProb struct {
	Step int     `json:"step"`
	Prob float64 `json:"prob"`
}

// DegreeMarkov is a first-order transition surface over scale-degree steps
// in [-MaxDegreeStep, MaxDegreeStep].
type DegreeMarkov struct {
	rows [2*MaxDegreeStep + 1][2*MaxDegreeStep + 1]float64
}

var baseStepWeight = [MaxDegreeStep + 1]float64{0.05, 0.40, 0.22, 0.10, 0.08}

// NewDegreeMarkov builds the design-value surface: steps dominate, moves of
// a fourth or more pull toward a contrary step, and runs of steps tend to
// continue.
func NewDegreeMarkov() *DegreeMarkov {
	m := &DegreeMarkov{}
	for prev := -MaxDegreeStep; prev <= MaxDegreeStep; prev++ {
		row := &m.rows[prev+MaxDegreeStep]
		sum := 0.0
		for next := -MaxDegreeStep; next <= MaxDegreeStep; next++ {
			w := baseStepWeight[absInt(next)]
			switch {
			case absInt(prev) >= 3 && next*prev < 0 && absInt(next) <= 2:
				w *= 1.8
			case absInt(prev) >= 3 && next*prev > 0 && absInt(next) >= 3:
				w *= 0.4
			case absInt(prev) == 1 && next == prev:
				w *= 1.2
			}
			row[next+MaxDegreeStep] = w
			sum += w
		}
		for i := range row {
			row[i] /= sum
		}
	}
	return m
}

// Prob returns P(next | prev).
func (m *DegreeMarkov) Prob(prev, next int) float64 {
	if absInt(next) > MaxDegreeStep {
		return 0
	}
	return m.rows[clampStep(prev)+MaxDegreeStep][next+MaxDegreeStep]
}

// TopK returns the k most likely next steps after prev, most likely first.
// Ties prefer the smaller move, then the downward one.
func (m *DegreeMarkov) TopK(prev, k int) []StepProb {
	row := m.rows[clampStep(prev)+MaxDegreeStep]
	all := make([]StepProb, 0, len(row))
	for i, p := range row {
		all = append(all, StepProb{Step: i - MaxDegreeStep, Prob: p})
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Prob != all[j].Prob {
			return all[i].Prob > all[j].Prob
		}
		if absInt(all[i].Step) != absInt(all[j].Step) {
			return absInt(all[i].Step) < absInt(all[j].Step)
		}
		return all[i].Step < all[j].Step
	})
	if k > len(all) {
		k = len(all)
	}
	if k < 1 {
		k = 1
	}
	return all[:k]
}

func clampStep(s int) int {
	if s > MaxDegreeStep {
		return MaxDegreeStep
	}
	if s < -MaxDegreeStep {
		return -MaxDegreeStep
	}
	return s
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
