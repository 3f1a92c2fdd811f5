package postprocess

import (
	"sort"

	"github.com/Conceptual-Machines/bachgen/internal/models"
	"github.com/Conceptual-Machines/bachgen/internal/theory"
)

// MaxParallelPasses bounds the parallel-perfect repair loop.
const MaxParallelPasses = 8

// TritoneMinDuration is the length above which a melodic tritone is audible
// enough to repair.
const TritoneMinDuration = theory.Eighth

// LeapThreshold is the smallest ascending leap that asks for resolution.
const LeapThreshold = 5

type voices struct {
	order []int         // voice ids ascending
	seq   map[int][]int // note indices per voice by start
	pos   []int         // position of each note in its voice's sequence
}

func splitVoices(notes []models.NoteEvent) voices {
	vs := voices{seq: map[int][]int{}, pos: make([]int, len(notes))}
	for i, n := range notes {
		vs.seq[n.Voice] = append(vs.seq[n.Voice], i)
	}
	for v, s := range vs.seq {
		sort.SliceStable(s, func(a, b int) bool { return notes[s[a]].StartTick < notes[s[b]].StartTick })
		for k, i := range s {
			vs.pos[i] = k
		}
		vs.order = append(vs.order, v)
	}
	sort.Ints(vs.order)
	return vs
}

// parallelWith reports whether the move a1→a2 forms a parallel perfect
// interval with voice b over the same span.
func parallelWith(notes []models.NoteEvent, ix *Index, a1, a2, b int) (int, bool) {
	m1, ok1 := ix.VoiceAt(b, notes[a1].StartTick)
	m2, ok2 := ix.VoiceAt(b, notes[a2].StartTick)
	if !ok1 || !ok2 || m1 == m2 {
		return -1, false
	}
	if theory.IsParallelPerfect(notes[a1].Pitch, notes[m1].Pitch, notes[a2].Pitch, notes[m2].Pitch) {
		return m2, true
	}
	return -1, false
}

func (vs voices) touchesParallel(notes []models.NoteEvent, ix *Index, i int) bool {
	v := notes[i].Voice
	s := vs.seq[v]
	k := vs.pos[i]
	for _, b := range vs.order {
		if b == v {
			continue
		}
		if k > 0 {
			if _, bad := parallelWith(notes, ix, s[k-1], i, b); bad {
				return true
			}
		}
		if k+1 < len(s) {
			if _, bad := parallelWith(notes, ix, i, s[k+1], b); bad {
				return true
			}
		}
	}
	return false
}

var repairSteps = []int{1, -1, 2, -2}

// RepairParallels removes parallel unisons, octaves and fifths between
// every pair of voices by moving the flexible note of the second
// simultaneity to a nearby scale tone. It loops until a pass changes
// nothing or maxPasses is reached and returns the repairs made, the passes
// run and the parallels left standing.
func (c *Context) RepairParallels(notes []models.NoteEvent, maxPasses int) (repaired, passes, unresolved int) {
	if maxPasses <= 0 {
		maxPasses = MaxParallelPasses
	}
	ix := NewIndex(notes)
	vs := splitVoices(notes)
	for passes < maxPasses {
		passes++
		changed := false
		unresolved = 0
		for _, a := range vs.order {
			s := vs.seq[a]
			for k := 1; k < len(s); k++ {
				for _, b := range vs.order {
					if b <= a {
						continue
					}
					m2, bad := parallelWith(notes, ix, s[k-1], s[k], b)
					if !bad {
						continue
					}
					target := -1
					switch {
					case notes[s[k]].IsFlexible():
						target = s[k]
					case notes[m2].IsFlexible():
						target = m2
					}
					if target < 0 || !c.moveOffParallel(notes, ix, vs, target) {
						unresolved++
						continue
					}
					repaired++
					changed = true
				}
			}
		}
		if !changed {
			break
		}
	}
	return repaired, passes, unresolved
}

func (c *Context) moveOffParallel(notes []models.NoteEvent, ix *Index, vs voices, i int) bool {
	n := &notes[i]
	orig := n.Pitch
	span := c.SpanAt(n.StartTick)
	for _, st := range repairSteps {
		cand := theory.StepInScale(orig, st, span.Key.Tonic, span.Scale)
		if cand == orig || !c.InRange(n.Voice, cand) {
			continue
		}
		if !c.VerticalSafe(ix, n.Voice, cand, n.StartTick, nil) {
			continue
		}
		n.Pitch = cand
		if vs.touchesParallel(notes, ix, i) {
			n.Pitch = orig
			continue
		}
		n.ModifiedBy |= models.ModParallelRepair
		return true
	}
	return false
}

// SweepTritones rewrites melodic tritones between two flexible notes when
// either lasts longer than an eighth. Adjustments of ±1 and ±2 semitones
// are snapped to the scale; candidates that form another tritone with a
// neighbour or repeat the previous pitch are rejected and the smallest
// move wins.
func (c *Context) SweepTritones(notes []models.NoteEvent) int {
	vs := splitVoices(notes)
	fixed := 0
	for _, v := range vs.order {
		s := vs.seq[v]
		for k := 1; k < len(s); k++ {
			a, b := &notes[s[k-1]], &notes[s[k]]
			if theory.SimpleInterval(b.Pitch-a.Pitch) != theory.Tritone {
				continue
			}
			if !a.IsFlexible() || !b.IsFlexible() {
				continue
			}
			if a.Duration <= TritoneMinDuration && b.Duration <= TritoneMinDuration {
				continue
			}
			next := -1
			if k+1 < len(s) {
				next = notes[s[k+1]].Pitch
			}
			best, bestCost := -1, 0
			for _, d := range repairSteps {
				cand := c.Snap(b.StartTick, b.Pitch+d)
				if cand == a.Pitch || cand == b.Pitch || !c.InRange(v, cand) {
					continue
				}
				if theory.SimpleInterval(cand-a.Pitch) == theory.Tritone {
					continue
				}
				if next >= 0 && theory.SimpleInterval(next-cand) == theory.Tritone {
					continue
				}
				if cost := theory.Abs(cand - b.Pitch); best < 0 || cost < bestCost {
					best, bestCost = cand, cost
				}
			}
			if best >= 0 {
				b.Pitch = best
				b.ModifiedBy |= models.ModTritoneRepair
				fixed++
			}
		}
	}
	return fixed
}

// ResolveLeaps makes the note after an ascending leap of a fourth or more
// step back down when it does not already, provided both notes are
// flexible and the new pitch is vertically safe.
func (c *Context) ResolveLeaps(notes []models.NoteEvent) int {
	ix := NewIndex(notes)
	vs := splitVoices(notes)
	fixed := 0
	for _, v := range vs.order {
		s := vs.seq[v]
		for k := 1; k+1 < len(s); k++ {
			prev, cur, next := &notes[s[k-1]], &notes[s[k]], &notes[s[k+1]]
			if cur.Pitch-prev.Pitch < LeapThreshold || next.Pitch < cur.Pitch {
				continue
			}
			if !cur.IsFlexible() || !next.IsFlexible() {
				continue
			}
			span := c.SpanAt(next.StartTick)
			target := theory.StepInScale(cur.Pitch, -1, span.Key.Tonic, span.Scale)
			if target >= cur.Pitch || !c.InRange(v, target) {
				continue
			}
			if !c.VerticalSafe(ix, v, target, next.StartTick, nil) {
				continue
			}
			next.Pitch = target
			next.ModifiedBy |= models.ModLeapResolution
			fixed++
		}
	}
	return fixed
}

// Repair runs the parallel, tritone and leap passes in that order.
func (c *Context) Repair(notes []models.NoteEvent) Report {
	var r Report
	r.ParallelRepairs, r.ParallelPasses, r.UnresolvedParallels = c.RepairParallels(notes, MaxParallelPasses)
	r.TritoneRepairs = c.SweepTritones(notes)
	r.LeapResolutions = c.ResolveLeaps(notes)
	return r
}
