// Package rng wraps a seeded PCG generator so every generation pass draws
// from a single reproducible stream.
package rng

import (
	"math/rand/v2"
	"time"
)

// SeedMixer is multiplied by the variation number and XORed into the seed.
const SeedMixer uint32 = 0x9E3779B9

// Rand is a deterministic random source. It is not safe for concurrent use;
// each generation pass owns its own instance.
type Rand struct {
	r *rand.Rand
}

// New returns a generator seeded with seed.
func New(seed uint32) *Rand {
	return &Rand{r: rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0xDA3E39CB94B95BDB))}
}

// VariationSeed derives the per-variation seed.
func VariationSeed(seed uint32, n int) uint32 {
	return seed ^ (SeedMixer * uint32(n))
}

// ResolveSeed returns seed, or a time-derived seed when seed is zero.
func ResolveSeed(seed uint32) uint32 {
	if seed != 0 {
		return seed
	}
	s := uint32(time.Now().UnixNano())
	if s == 0 {
		s = 1
	}
	return s
}

// Chance performs a Bernoulli trial with probability p.
func (g *Rand) Chance(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return g.r.Float64() < p
}

// IntRange returns a uniform integer in [lo, hi].
func (g *Rand) IntRange(lo, hi int) int {
	if hi < lo {
		lo, hi = hi, lo
	}
	return lo + g.r.IntN(hi-lo+1)
}

// Float returns a uniform float in [0, 1).
func (g *Rand) Float() float64 {
	return g.r.Float64()
}

// FloatRange returns a uniform float in [lo, hi).
func (g *Rand) FloatRange(lo, hi float64) float64 {
	return lo + (hi-lo)*g.r.Float64()
}

// Index returns a uniform index in [0, n). It returns 0 when n <= 0.
func (g *Rand) Index(n int) int {
	if n <= 0 {
		return 0
	}
	return g.r.IntN(n)
}

// Pick returns a uniform element of items. The zero value is returned for an
// empty slice.
func Pick[T any](g *Rand, items []T) T {
	var zero T
	if len(items) == 0 {
		return zero
	}
	return items[g.r.IntN(len(items))]
}

// WeightedIndex draws an index proportionally to weights. If any weight is
// non-positive every weight is shifted so the minimum becomes minShift.
func (g *Rand) WeightedIndex(weights []float64) int {
	return g.WeightedIndexShift(weights, 1e-6)
}

// WeightedIndexShift is WeightedIndex with an explicit floor for the shift.
func (g *Rand) WeightedIndexShift(weights []float64, minShift float64) int {
	if len(weights) == 0 {
		return 0
	}
	lowest := weights[0]
	for _, w := range weights[1:] {
		if w < lowest {
			lowest = w
		}
	}
	shift := 0.0
	if lowest <= 0 {
		shift = minShift - lowest
	}
	total := 0.0
	for _, w := range weights {
		total += w + shift
	}
	if total <= 0 {
		return g.r.IntN(len(weights))
	}
	target := g.r.Float64() * total
	acc := 0.0
	for i, w := range weights {
		acc += w + shift
		if target < acc {
			return i
		}
	}
	return len(weights) - 1
}

// WeightedPick draws an item from parallel item/weight slices.
func WeightedPick[T any](g *Rand, items []T, weights []float64) T {
	var zero T
	if len(items) == 0 {
		return zero
	}
	n := len(items)
	if len(weights) < n {
		n = len(weights)
	}
	if n == 0 {
		return items[0]
	}
	return items[g.WeightedIndex(weights[:n])]
}

// Shuffle permutes items in place.
func Shuffle[T any](g *Rand, items []T) {
	g.r.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
}
