package melody

import (
	"github.com/Conceptual-Machines/bachgen/internal/rng"
	"github.com/Conceptual-Machines/bachgen/internal/theory"
)

// DegreeInterval is a scale-degree move plus a chromatic inflection applied
// to the resulting note only.
type DegreeInterval struct {
	Degree    int `json:"degree"`
	Chromatic int `json:"chromatic"`
}

// FigureKind groups the vocabulary by where in a phrase it fits.
type FigureKind int

const (
	FigureAscending FigureKind = iota
	FigureNeighbor
	FigureDescending
)

// Figure is a short vocabulary pattern of successive degree moves.
type Figure struct {
	Name  string           `json:"name"`
	Kind  FigureKind       `json:"kind"`
	Steps []DegreeInterval `json:"steps"`
}

func steps(ds ...int) []DegreeInterval {
	out := make([]DegreeInterval, len(ds))
	for i, d := range ds {
		out[i] = DegreeInterval{Degree: d}
	}
	return out
}

// Vocabulary is the figure table used for injection.
var Vocabulary = []Figure{
	{Name: "tirata_up", Kind: FigureAscending, Steps: steps(1, 1, 1)},
	{Name: "turn_up", Kind: FigureAscending, Steps: steps(-1, 1, 1, 1)},
	{Name: "arpeggio_up", Kind: FigureAscending, Steps: steps(2, 2, 3)},
	{Name: "upper_neighbor", Kind: FigureNeighbor, Steps: steps(1, -1)},
	{Name: "lower_neighbor", Kind: FigureNeighbor, Steps: steps(-1, 1)},
	{Name: "chromatic_neighbor", Kind: FigureNeighbor, Steps: []DegreeInterval{{Degree: 0, Chromatic: -1}, {Degree: 0}}},
	{Name: "cambiata", Kind: FigureNeighbor, Steps: steps(-1, -2, 1)},
	{Name: "tirata_down", Kind: FigureDescending, Steps: steps(-1, -1, -1)},
	{Name: "suspirans_down", Kind: FigureDescending, Steps: steps(-1, -1, -2)},
	{Name: "cadential_fall", Kind: FigureDescending, Steps: steps(-1, -1)},
}

// FigurePool returns the figures suited to the phrase progress: ascending
// early, neighbor figures in the middle, descending late.
func FigurePool(progress float64) []Figure {
	kind := FigureDescending
	switch {
	case progress < 0.3:
		kind = FigureAscending
	case progress < 0.6:
		kind = FigureNeighbor
	}
	var out []Figure
	for _, f := range Vocabulary {
		if f.Kind == kind {
			out = append(out, f)
		}
	}
	return out
}

// ResolveFigure converts a figure starting after pitch start into concrete
// pitches. It returns false if any pitch leaves [lo, hi].
func ResolveFigure(f Figure, start int, key theory.Key, scale theory.ScaleType, lo, hi int) ([]int, bool) {
	snapped := theory.NearestScaleTone(start, key.Tonic, scale)
	deg := theory.PitchToAbsoluteDegree(snapped, key.Tonic, scale)
	out := make([]int, 0, len(f.Steps))
	for _, st := range f.Steps {
		deg += st.Degree
		p := theory.AbsoluteDegreeToPitch(deg, key.Tonic, scale) + st.Chromatic
		if p < lo || p > hi || p < theory.MinPitch || p > theory.MaxPitch {
			return nil, false
		}
		out = append(out, p)
	}
	return out, true
}

// FiguraType names a Baroque figure used by the figuration generators.
type FiguraType int

const (
	FiguraCirculatio FiguraType = iota
	FiguraTirata
	FiguraBatterie
	FiguraArpeggio
	FiguraSuspirans
	FiguraTrillo
	FiguraDottedGrave
	FiguraBariolage
	FiguraSarabande
	FiguraPassepied
	FiguraGigue
)

var figuraNames = [...]string{
	FiguraCirculatio:  "circulatio",
	FiguraTirata:      "tirata",
	FiguraBatterie:    "batterie",
	FiguraArpeggio:    "arpeggio",
	FiguraSuspirans:   "suspirans",
	FiguraTrillo:      "trillo",
	FiguraDottedGrave: "dotted_grave",
	FiguraBariolage:   "bariolage",
	FiguraSarabande:   "sarabande",
	FiguraPassepied:   "passepied",
	FiguraGigue:       "gigue",
}

func (f FiguraType) String() string {
	if f >= 0 && int(f) < len(figuraNames) {
		return figuraNames[f]
	}
	return "unknown"
}

// FiguraCell is one rhythmic-melodic cell spanning Beats beats. Degrees are
// relative to the anchor degree; Rhythm gives relative durations. RestFirst
// silences the first slot.
type FiguraCell struct {
	Degrees   []int `json:"degrees"`
	Rhythm    []int `json:"rhythm"`
	Beats     int   `json:"beats"`
	RestFirst bool  `json:"rest_first,omitempty"`
}

var figuraCells = map[FiguraType][]FiguraCell{
	FiguraCirculatio: {
		{Degrees: []int{0, 1, 0, -1}, Rhythm: []int{1, 1, 1, 1}, Beats: 1},
		{Degrees: []int{0, -1, 0, 1}, Rhythm: []int{1, 1, 1, 1}, Beats: 1},
	},
	FiguraTirata: {
		{Degrees: []int{0, 1, 2, 3}, Rhythm: []int{1, 1, 1, 1}, Beats: 1},
		{Degrees: []int{0, -1, -2, -3}, Rhythm: []int{1, 1, 1, 1}, Beats: 1},
	},
	FiguraBatterie: {
		{Degrees: []int{0, 4, 2, 4}, Rhythm: []int{1, 1, 1, 1}, Beats: 1},
		{Degrees: []int{0, -3, 0, -3}, Rhythm: []int{1, 1, 1, 1}, Beats: 1},
	},
	FiguraArpeggio: {
		{Degrees: []int{0, 2, 4, 7}, Rhythm: []int{1, 1, 1, 1}, Beats: 1},
		{Degrees: []int{7, 4, 2, 0}, Rhythm: []int{1, 1, 1, 1}, Beats: 1},
	},
	FiguraSuspirans: {
		{Degrees: []int{0, 0, 1, 2}, Rhythm: []int{1, 1, 1, 1}, Beats: 1, RestFirst: true},
		{Degrees: []int{0, 0, -1, -2}, Rhythm: []int{1, 1, 1, 1}, Beats: 1, RestFirst: true},
	},
	FiguraTrillo: {
		{Degrees: []int{1, 0, 1, 0}, Rhythm: []int{1, 1, 1, 1}, Beats: 1},
		{Degrees: []int{0, 1, 0, -1}, Rhythm: []int{1, 1, 1, 1}, Beats: 1},
	},
	FiguraDottedGrave: {
		{Degrees: []int{0, 1}, Rhythm: []int{3, 1}, Beats: 1},
		{Degrees: []int{0, -1}, Rhythm: []int{3, 1}, Beats: 1},
	},
	FiguraBariolage: {
		{Degrees: []int{0, 4, 1, 4}, Rhythm: []int{1, 1, 1, 1}, Beats: 1},
		{Degrees: []int{0, 4, -1, 4}, Rhythm: []int{1, 1, 1, 1}, Beats: 1},
	},
	FiguraSarabande: {
		{Degrees: []int{0, 1, 0}, Rhythm: []int{2, 3, 1}, Beats: 3},
		{Degrees: []int{0, -1, -2}, Rhythm: []int{2, 3, 1}, Beats: 3},
	},
	FiguraPassepied: {
		{Degrees: []int{0, 1}, Rhythm: []int{1, 1}, Beats: 1},
		{Degrees: []int{0, -1}, Rhythm: []int{1, 1}, Beats: 1},
	},
	FiguraGigue: {
		{Degrees: []int{0, 1}, Rhythm: []int{1, 1}, Beats: 1},
		{Degrees: []int{0, 2}, Rhythm: []int{1, 1}, Beats: 1},
	},
}

// Cells returns the cell variants of a figura.
func (f FiguraType) Cells() []FiguraCell {
	if c, ok := figuraCells[f]; ok {
		return c
	}
	return figuraCells[FiguraCirculatio]
}

// PickCell chooses one cell variant. Positive bias favours cells whose last
// degree rises, negative favours falling cells.
func (f FiguraType) PickCell(r *rng.Rand, bias float64) FiguraCell {
	cells := f.Cells()
	w := make([]float64, len(cells))
	for i, c := range cells {
		w[i] = 1
		last := c.Degrees[len(c.Degrees)-1]
		w[i] += bias * float64(theory.Sign(last))
	}
	return cells[r.WeightedIndex(w)]
}

// NotesPerBeat returns the average number of sounding notes per beat.
func (c FiguraCell) NotesPerBeat() float64 {
	n := len(c.Degrees)
	if c.RestFirst {
		n--
	}
	return float64(n) / float64(max(c.Beats, 1))
}

// Durations splits span ticks over the cell's rhythm. The last slot absorbs
// rounding so the durations sum to span exactly.
func (c FiguraCell) Durations(span theory.Tick) []theory.Tick {
	total := 0
	for _, r := range c.Rhythm {
		total += r
	}
	out := make([]theory.Tick, len(c.Rhythm))
	if total == 0 {
		return out
	}
	used := theory.Tick(0)
	for i, r := range c.Rhythm {
		if i == len(c.Rhythm)-1 {
			out[i] = span - used
			break
		}
		out[i] = span * theory.Tick(r) / theory.Tick(total)
		used += out[i]
	}
	return out
}
