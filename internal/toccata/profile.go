package toccata

import (
	"github.com/Conceptual-Machines/bachgen/internal/melody"
	"github.com/Conceptual-Machines/bachgen/internal/theory"
)

// PhaseProfile steers the figuration engine through one phase.
type PhaseProfile struct {
	Letter  string              `json:"letter"`
	Figures []melody.FiguraType `json:"figures"` // primary figure set
	Density float64             `json:"density"` // chance a beat starts with a figure
	Contour melody.Contour      `json:"contour"`
	// FreeRhythm lets bridge notes take recitative lengths instead of the beat.
	FreeRhythm bool `json:"free_rhythm"`
	// TensionGate is the harmonic tension a beat needs before its figure
	// may be doubled into 32nds.
	TensionGate float64 `json:"tension_gate"`
	Ceiling     int     `json:"ceiling"` // highest pitch of the top voice
	Pedal       bool    `json:"pedal"`
}

var phaseProfiles = map[string]PhaseProfile{
	"A": {
		Letter: "A", Figures: []melody.FiguraType{melody.FiguraTirata, melody.FiguraArpeggio},
		Density: 0.75, Contour: melody.ContourDescent, TensionGate: 0.55, Ceiling: 86, Pedal: true,
	},
	"B": {
		Letter: "B", Figures: []melody.FiguraType{melody.FiguraCirculatio, melody.FiguraSuspirans},
		Density: 0.5, Contour: melody.ContourDescent, TensionGate: 0.8, Ceiling: 79, Pedal: true,
	},
	"C": {
		Letter: "C", Figures: []melody.FiguraType{melody.FiguraSuspirans, melody.FiguraCirculatio},
		Density: 0.3, Contour: melody.ContourWave, FreeRhythm: true, TensionGate: 2, Ceiling: 81,
	},
	"D": {
		Letter: "D", Figures: []melody.FiguraType{melody.FiguraCirculatio, melody.FiguraTirata},
		Density: 0.6, Contour: melody.ContourAscent, TensionGate: 0.65, Ceiling: 84, Pedal: true,
	},
	"E": {
		Letter: "E", Figures: []melody.FiguraType{melody.FiguraArpeggio, melody.FiguraBatterie},
		Density: 0.55, Contour: melody.ContourNeutral, TensionGate: 0.6, Ceiling: 84, Pedal: true,
	},
	"F": {
		Letter: "F", Figures: []melody.FiguraType{melody.FiguraTirata, melody.FiguraBariolage},
		Density: 0.7, Contour: melody.ContourAscent, TensionGate: 0.6, Ceiling: 86, Pedal: true,
	},
	"G": {
		Letter: "G", Figures: []melody.FiguraType{melody.FiguraBatterie, melody.FiguraTrillo},
		Density: 0.8, Contour: melody.ContourWave, TensionGate: 0.5, Ceiling: 88, Pedal: true,
	},
	"H": {
		Letter: "H", Figures: []melody.FiguraType{melody.FiguraTirata, melody.FiguraArpeggio, melody.FiguraCirculatio},
		Density: 0.9, Contour: melody.ContourArch, TensionGate: 0.45, Ceiling: 88, Pedal: true,
	},
}

// ProfileFor returns the profile of a phase letter. Unknown letters get
// the opening gesture's profile.
func ProfileFor(letter string) PhaseProfile {
	if p, ok := phaseProfiles[letter]; ok {
		return p
	}
	return phaseProfiles["A"]
}

var degreeTension = map[theory.ChordDegree]float64{
	theory.DegreeI:          0.10,
	theory.DegreeII:         0.35,
	theory.DegreeIII:        0.35,
	theory.DegreeIV:         0.30,
	theory.DegreeV:          0.60,
	theory.DegreeVI:         0.30,
	theory.DegreeVIIDim:     0.75,
	theory.DegreeV7:         0.70,
	theory.DegreeVofV:       0.65,
	theory.DegreeVofVI:      0.60,
	theory.DegreeVofIV:      0.55,
	theory.DegreeFlatIII:    0.45,
	theory.DegreeFlatVI:     0.70,
	theory.DegreeFlatVII:    0.55,
	theory.DegreeNeapolitan: 0.80,
}

// HarmonicTension rates a chord degree at a point of its section: the
// degree's own tension plus a rise toward the section end.
func HarmonicTension(d theory.ChordDegree, progress float64) float64 {
	t := degreeTension[d] + 0.3*min(max(progress, 0), 1)
	return min(t, 1)
}
