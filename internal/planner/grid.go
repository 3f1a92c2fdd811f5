// Package planner holds the design-time structure of each form: the 32-bar
// Goldberg grid, the 32-entry variation plan and the toccata section plans.
package planner

import (
	"fmt"

	"github.com/Conceptual-Machines/bachgen/internal/harmony"
	"github.com/Conceptual-Machines/bachgen/internal/theory"
)

// GridBars is the length of the Goldberg ground.
const GridBars = 32

// PhrasePosition is a bar's role within its 4-bar phrase.
type PhrasePosition int

const (
	PositionOpening PhrasePosition = iota
	PositionExpansion
	PositionIntensification
	PositionCadence
)

// CadenceType marks the cadence a structural bar carries.
type CadenceType int

const (
	CadenceNone CadenceType = iota
	CadenceHalf
	CadencePerfect
)

func (c CadenceType) String() string {
	switch c {
	case CadenceHalf:
		return "half"
	case CadencePerfect:
		return "perfect"
	}
	return "none"
}

// HarmonicFunction is the tonal function of a bar's chord.
type HarmonicFunction int

const (
	FunctionTonic HarmonicFunction = iota
	FunctionSubdominant
	FunctionDominant
)

// StructuralLevel is the highest grouping a bar closes.
type StructuralLevel int

const (
	LevelBar StructuralLevel = iota
	LevelPhrase4
	LevelPhrase8
	LevelSection16
	LevelGlobal32
)

// Tension is the four-dimensional tension profile of a bar.
type Tension struct {
	Harmonic float64 `json:"harmonic"`
	Melodic  float64 `json:"melodic"`
	Rhythmic float64 `json:"rhythmic"`
	Textural float64 `json:"textural"`
}

// Aggregate returns the weighted tension 0.40/0.25/0.20/0.15.
func (t Tension) Aggregate() float64 {
	return 0.40*t.Harmonic + 0.25*t.Melodic + 0.20*t.Rhythmic + 0.15*t.Textural
}

// BassMotion is a bar's bass as scale degrees relative to the bass-octave
// tonic, with an optional mid-bar resolution.
type BassMotion struct {
	Degree        int  `json:"degree"`
	Resolution    int  `json:"resolution,omitempty"`
	HasResolution bool `json:"has_resolution,omitempty"`
}

// BarInfo is one bar of the structural grid.
type BarInfo struct {
	Bar         int                `json:"bar"` // 1-based
	Bass        BassMotion         `json:"bass"`
	Function    HarmonicFunction   `json:"function"`
	Chord       theory.ChordDegree `json:"chord"`
	Inversion   int                `json:"inversion"`
	BarInPhrase int                `json:"bar_in_phrase"`
	Position    PhrasePosition     `json:"position"`
	Cadence     CadenceType        `json:"cadence"`
	Structural  bool               `json:"structural"`
	Group       int                `json:"group"`
	Level       StructuralLevel    `json:"level"`
	Tension     Tension            `json:"tension"`
}

type gridRow struct {
	bass, resolution int
	resolves         bool
	chord            theory.ChordDegree
	inversion        int
	cadence          CadenceType
}

// goldbergRows is the ground: bass degree (0 = tonic in the bass octave),
// chord and cadence per bar.
var goldbergRows = [GridBars]gridRow{
	{bass: 0, chord: theory.DegreeI},
	{bass: -1, chord: theory.DegreeV, inversion: 1},
	{bass: -2, chord: theory.DegreeVI},
	{bass: -3, chord: theory.DegreeV, cadence: CadenceHalf},
	{bass: -4, chord: theory.DegreeIV},
	{bass: -5, chord: theory.DegreeI, inversion: 1},
	{bass: -6, resolution: -3, resolves: true, chord: theory.DegreeII},
	{bass: -5, resolution: -7, resolves: true, chord: theory.DegreeI, inversion: 1, cadence: CadencePerfect},

	{bass: 0, chord: theory.DegreeI},
	{bass: -1, chord: theory.DegreeV, inversion: 1},
	{bass: -2, chord: theory.DegreeVI},
	{bass: -3, chord: theory.DegreeV, cadence: CadenceHalf},
	{bass: -4, chord: theory.DegreeIV},
	{bass: -5, chord: theory.DegreeI, inversion: 1},
	{bass: -6, chord: theory.DegreeII},
	{bass: -3, chord: theory.DegreeV, cadence: CadenceHalf},

	{bass: -3, chord: theory.DegreeV},
	{bass: -2, chord: theory.DegreeVI},
	{bass: -1, chord: theory.DegreeVIIDim},
	{bass: -5, chord: theory.DegreeVofVI, cadence: CadenceHalf},
	{bass: -4, chord: theory.DegreeIV},
	{bass: -6, chord: theory.DegreeII},
	{bass: -3, chord: theory.DegreeV7},
	{bass: 0, chord: theory.DegreeI, cadence: CadencePerfect},

	{bass: -2, chord: theory.DegreeVI},
	{bass: -4, chord: theory.DegreeIV},
	{bass: -6, chord: theory.DegreeII},
	{bass: -3, chord: theory.DegreeV, cadence: CadenceHalf},
	{bass: -5, chord: theory.DegreeIII},
	{bass: -4, chord: theory.DegreeIV},
	{bass: -3, chord: theory.DegreeV7},
	{bass: -7, chord: theory.DegreeI, cadence: CadencePerfect},
}

// FunctionOf classifies a chord degree.
func FunctionOf(d theory.ChordDegree) HarmonicFunction {
	switch d {
	case theory.DegreeIV, theory.DegreeII, theory.DegreeNeapolitan, theory.DegreeFlatVI:
		return FunctionSubdominant
	}
	if d.IsDominant() || d == theory.DegreeFlatVII {
		return FunctionDominant
	}
	return FunctionTonic
}

var (
	harmonicTension = map[HarmonicFunction]float64{FunctionTonic: 0.2, FunctionSubdominant: 0.5, FunctionDominant: 0.8}
	melodicTension  = [4]float64{0.3, 0.5, 0.7, 0.4}
	rhythmicTension = [4]float64{0.4, 0.5, 0.65, 0.3}
)

func levelOf(bar int) StructuralLevel {
	switch {
	case bar == 32:
		return LevelGlobal32
	case bar%16 == 0:
		return LevelSection16
	case bar%8 == 0:
		return LevelPhrase8
	case bar%4 == 0:
		return LevelPhrase4
	}
	return LevelBar
}

// GoldbergGrid returns the 32-bar structural grid.
func GoldbergGrid() []BarInfo {
	out := make([]BarInfo, GridBars)
	for i, row := range goldbergRows {
		bar := i + 1
		inPhrase := i%4 + 1
		fn := FunctionOf(row.chord)
		h := harmonicTension[fn]
		if row.chord == theory.DegreeVofVI || row.chord == theory.DegreeVofV {
			h = 0.85
		}
		out[i] = BarInfo{
			Bar:         bar,
			Bass:        BassMotion{Degree: row.bass, Resolution: row.resolution, HasResolution: row.resolves},
			Function:    fn,
			Chord:       row.chord,
			Inversion:   row.inversion,
			BarInPhrase: inPhrase,
			Position:    PhrasePosition(inPhrase - 1),
			Cadence:     row.cadence,
			Structural:  inPhrase == 4,
			Group:       i / 4,
			Level:       levelOf(bar),
			Tension: Tension{
				Harmonic: h,
				Melodic:  melodicTension[inPhrase-1],
				Rhythmic: rhythmicTension[inPhrase-1],
				Textural: 0.3 + 0.05*float64(i/4),
			},
		}
	}
	return out
}

// BassOctaveBase places degree 0 of the bass in the third octave (G3 = 55).
const BassOctaveBase = 48

// BassPitch resolves a bass degree in key.
func BassPitch(degree int, key theory.Key) int {
	return theory.ScaleDegreeToPitch(degree, BassOctaveBase, key.Tonic, key.Scale())
}

// ChordAt builds the bar's chord in key.
func (b BarInfo) ChordAt(key theory.Key) theory.Chord {
	return theory.BuildChord(b.Chord, key).WithInversion(b.Inversion)
}

// ToTimeline converts the grid to one harmonic event per bar. Structural
// bars weigh 1.0, others 0.75; every event is immutable. A meter too fine
// for the tick grid yields zero-length bars and an error.
func ToTimeline(grid []BarInfo, key theory.Key, ts theory.TimeSignature) (*harmony.Timeline, error) {
	tl := &harmony.Timeline{}
	bar := ts.BarTicks()
	for i, b := range grid {
		w := 0.75
		if b.Structural {
			w = 1.0
		}
		err := tl.Append(harmony.Event{
			Tick:      theory.Tick(i) * bar,
			EndTick:   theory.Tick(i+1) * bar,
			Key:       key,
			Chord:     b.ChordAt(key),
			BassPitch: BassPitch(b.Bass.Degree, key),
			Weight:    w,
			Immutable: true,
		})
		if err != nil {
			return nil, fmt.Errorf("bar %d: %w", i+1, err)
		}
	}
	return tl, nil
}
