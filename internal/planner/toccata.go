package planner

import (
	"fmt"
	"strings"

	"github.com/Conceptual-Machines/bachgen/internal/theory"
)

// Archetype is one of the four toccata designs.
type Archetype int

const (
	ArchetypeDramaticus Archetype = iota
	ArchetypePerpetuus
	ArchetypeConcertato
	ArchetypeSectionalis
)

func (a Archetype) String() string {
	switch a {
	case ArchetypeDramaticus:
		return "dramaticus"
	case ArchetypePerpetuus:
		return "perpetuus"
	case ArchetypeConcertato:
		return "concertato"
	case ArchetypeSectionalis:
		return "sectionalis"
	}
	return "unknown"
}

// ParseArchetype parses an archetype name.
func ParseArchetype(s string) (Archetype, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dramaticus", "":
		return ArchetypeDramaticus, nil
	case "perpetuus":
		return ArchetypePerpetuus, nil
	case "concertato":
		return ArchetypeConcertato, nil
	case "sectionalis":
		return ArchetypeSectionalis, nil
	}
	return ArchetypeDramaticus, fmt.Errorf("unknown toccata archetype %q", s)
}

// SectionKind tells the toccata engine which texture a section uses.
type SectionKind int

const (
	SectionFiguration SectionKind = iota // three-layer figuration engine
	SectionMotoPerpetuo
	SectionChordal
	SectionFugato
	SectionCadenza
)

// ToccataSection is one phase of a toccata plan.
type ToccataSection struct {
	Name     string               `json:"name"`
	Index    int                  `json:"index"`
	Phase    string               `json:"phase"` // phase profile letter
	Kind     SectionKind          `json:"kind"`
	StartBar int                  `json:"start_bar"`
	Bars     int                  `json:"bars"`
	Energy   float64              `json:"energy"`
	Harmony  []theory.ChordDegree `json:"harmony"` // one degree per bar
	Manual   string               `json:"manual"`  // registration label
}

type sectionDesign struct {
	name    string
	phase   string
	kind    SectionKind
	weight  int
	energy  float64
	degrees []theory.ChordDegree
	manual  string
}

const (
	dI    = theory.DegreeI
	dII   = theory.DegreeII
	dIII  = theory.DegreeIII
	dIV   = theory.DegreeIV
	dV    = theory.DegreeV
	dVI   = theory.DegreeVI
	dVII  = theory.DegreeVIIDim
	dV7   = theory.DegreeV7
	dN    = theory.DegreeNeapolitan
	dbVI  = theory.DegreeFlatVI
	dbVII = theory.DegreeFlatVII
)

var toccataDesigns = map[Archetype][]sectionDesign{
	ArchetypeDramaticus: {
		{"Gesture", "A", SectionFiguration, 2, 0.9, []theory.ChordDegree{dI, dV}, "plenum"},
		{"EchoCollapse", "B", SectionFiguration, 2, 0.5, []theory.ChordDegree{dI, dV}, "positive"},
		{"RecitExpansion", "C", SectionFiguration, 4, 0.4, []theory.ChordDegree{dIV, dN, dV, dI}, "recit"},
		{"SequenceClimb1", "D", SectionFiguration, 3, 0.6, []theory.ChordDegree{dI, dIV, dVII, dIII}, "great"},
		{"HarmonicBreak", "E", SectionChordal, 2, 0.7, []theory.ChordDegree{dbVI, dN}, "great"},
		{"SequenceClimb2", "F", SectionFiguration, 4, 0.75, []theory.ChordDegree{dIV, dbVII, dIII, dVI}, "great"},
		{"DomObsession", "G", SectionFiguration, 4, 0.85, []theory.ChordDegree{dV, dV7, dV, dV7}, "plenum"},
		{"FinalExplosion", "H", SectionFiguration, 3, 1.0, []theory.ChordDegree{dIV, dV7, dI}, "plenum"},
	},
	ArchetypePerpetuus: {
		{"Ascent", "D", SectionMotoPerpetuo, 3, 0.6, []theory.ChordDegree{dI, dIV, dV, dI}, "great"},
		{"Plateau", "F", SectionMotoPerpetuo, 4, 0.75, []theory.ChordDegree{dVI, dII, dV, dI}, "great"},
		{"Climax", "H", SectionMotoPerpetuo, 3, 1.0, []theory.ChordDegree{dIV, dV7, dI}, "plenum"},
	},
	ArchetypeConcertato: {
		{"Allegro", "A", SectionFiguration, 2, 0.8, []theory.ChordDegree{dI, dV}, "plenum"},
		{"Adagio", "C", SectionChordal, 1, 0.35, []theory.ChordDegree{dVI, dIV, dV}, "recit"},
		{"Vivace", "G", SectionFiguration, 2, 0.95, []theory.ChordDegree{dI, dIV, dV, dI}, "plenum"},
	},
	ArchetypeSectionalis: {
		{"Prelude", "A", SectionFiguration, 4, 0.8, []theory.ChordDegree{dI, dV}, "plenum"},
		{"Fugato", "D", SectionFugato, 5, 0.6, []theory.ChordDegree{dI, dIV, dV, dI}, "great"},
		{"Interlude", "C", SectionChordal, 3, 0.4, []theory.ChordDegree{dVI, dIV, dV}, "recit"},
		{"Cadenza", "G", SectionCadenza, 3, 0.9, []theory.ChordDegree{dV, dI}, "pedal"},
		{"Finale", "H", SectionFiguration, 5, 1.0, []theory.ChordDegree{dIV, dV7, dI}, "plenum"},
	},
}

// LargestRemainder splits total into len(weights) integer parts
// proportional to weights. Ties in remainder go to the earlier part.
func LargestRemainder(total int, weights []int) []int {
	sum := 0
	for _, w := range weights {
		sum += w
	}
	out := make([]int, len(weights))
	if sum == 0 || total <= 0 {
		return out
	}
	rem := make([]int, len(weights))
	used := 0
	for i, w := range weights {
		out[i] = total * w / sum
		rem[i] = total * w % sum
		used += out[i]
	}
	for left := total - used; left > 0; left-- {
		best := 0
		for i := range rem {
			if rem[i] > rem[best] {
				best = i
			}
		}
		out[best]++
		rem[best] = -1
	}
	return out
}

// ToccataPlan lays out the sections of an archetype over totalBars. Each
// section gets at least one bar when totalBars allows it; the last bar of
// the final section is the tonic, preceded by the dominant.
func ToccataPlan(a Archetype, totalBars int) []ToccataSection {
	designs := toccataDesigns[a]
	weights := make([]int, len(designs))
	for i, d := range designs {
		weights[i] = d.weight
	}
	bars := LargestRemainder(totalBars, weights)
	if totalBars >= len(designs) {
		for i := range bars {
			for bars[i] == 0 {
				bars[i]++
				bars[largestIndex(bars)]--
			}
		}
	}

	var out []ToccataSection
	start := 0
	for i, d := range designs {
		if bars[i] == 0 {
			continue
		}
		h := make([]theory.ChordDegree, bars[i])
		for b := range h {
			h[b] = d.degrees[b%len(d.degrees)]
		}
		out = append(out, ToccataSection{
			Name:     d.name,
			Index:    i,
			Phase:    d.phase,
			Kind:     d.kind,
			StartBar: start,
			Bars:     bars[i],
			Energy:   d.energy,
			Harmony:  h,
			Manual:   d.manual,
		})
		start += bars[i]
	}
	if n := len(out); n > 0 {
		last := out[n-1].Harmony
		last[len(last)-1] = theory.DegreeI
		if len(last) > 1 {
			last[len(last)-2] = theory.DegreeV7
		}
	}
	return out
}

func largestIndex(xs []int) int {
	best := 0
	for i := range xs {
		if xs[i] > xs[best] {
			best = i
		}
	}
	return best
}
