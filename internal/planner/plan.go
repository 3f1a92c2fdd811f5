package planner

import (
	"fmt"
	"strings"

	"github.com/Conceptual-Machines/bachgen/internal/melody"
	"github.com/Conceptual-Machines/bachgen/internal/theory"
)

// DurationScale selects how much of the plan is rendered.
type DurationScale int

const (
	ScaleShort DurationScale = iota
	ScaleMedium
	ScaleLong
	ScaleFull
)

func (s DurationScale) String() string {
	switch s {
	case ScaleShort:
		return "short"
	case ScaleMedium:
		return "medium"
	case ScaleLong:
		return "long"
	case ScaleFull:
		return "full"
	}
	return "unknown"
}

// ParseDurationScale parses short, medium, long or full.
func ParseDurationScale(s string) (DurationScale, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "short", "":
		return ScaleShort, nil
	case "medium":
		return ScaleMedium, nil
	case "long":
		return ScaleLong, nil
	case "full":
		return ScaleFull, nil
	}
	return ScaleShort, fmt.Errorf("unknown duration scale %q", s)
}

// VariationType routes a variation to its generator.
type VariationType int

const (
	TypeAria VariationType = iota
	TypeAriaDaCapo
	TypeCanon
	TypeFughetta
	TypeAllaBreve
	TypeInvention
	TypeOrnamental
	TypeTrillEtude
	TypeDance
	TypeOverture
	TypeBlackPearl
	TypeQuodlibet
	TypeVirtuoso
)

var typeNames = [...]string{
	TypeAria:       "aria",
	TypeAriaDaCapo: "aria_da_capo",
	TypeCanon:      "canon",
	TypeFughetta:   "fughetta",
	TypeAllaBreve:  "alla_breve",
	TypeInvention:  "invention",
	TypeOrnamental: "ornamental",
	TypeTrillEtude: "trill_etude",
	TypeDance:      "dance",
	TypeOverture:   "overture",
	TypeBlackPearl: "black_pearl",
	TypeQuodlibet:  "quodlibet",
	TypeVirtuoso:   "virtuoso",
}

func (t VariationType) String() string {
	if t >= 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "unknown"
}

// MelodyMode describes how the upper line is conceived.
type MelodyMode int

const (
	MelodyCantabile MelodyMode = iota
	MelodyFigural
	MelodyImitative
	MelodyCanonic
	MelodyBorrowed
)

// MeterProfile selects accent handling beyond the time signature.
type MeterProfile int

const (
	MeterStandard MeterProfile = iota
	MeterAllaBreve
	MeterCompound
	MeterDanceLilt
)

// ArticulationProfile selects the duration scaling applied after warp.
type ArticulationProfile int

const (
	ArticulationLegato ArticulationProfile = iota
	ArticulationModerato
	ArticulationDetache
	ArticulationFrenchDotted
	ArticulationBrillante
)

func (a ArticulationProfile) String() string {
	switch a {
	case ArticulationLegato:
		return "legato"
	case ArticulationModerato:
		return "moderato"
	case ArticulationDetache:
		return "detache"
	case ArticulationFrenchDotted:
		return "french_dotted"
	case ArticulationBrillante:
		return "brillante"
	}
	return "unknown"
}

// MinorProfile selects which minor scale a minor variation uses.
type MinorProfile int

const (
	MinorHarmonic MinorProfile = iota
	MinorNatural
	MinorMelodic
	MinorMixed
)

// Scale returns the scale for motion in the given direction. Mixed uses
// melodic minor ascending and natural minor descending.
func (m MinorProfile) Scale(ascending bool) theory.ScaleType {
	switch m {
	case MinorNatural:
		return theory.ScaleNaturalMinor
	case MinorMelodic:
		return theory.ScaleMelodicMinor
	case MinorMixed:
		if ascending {
			return theory.ScaleMelodicMinor
		}
		return theory.ScaleNaturalMinor
	}
	return theory.ScaleHarmonicMinor
}

// SubjectCharacter shapes soggetti and canon dux lines.
type SubjectCharacter int

const (
	SubjectSevere SubjectCharacter = iota
	SubjectPlayful
	SubjectNoble
	SubjectRestless
)

// MaxLeapDegrees bounds dux/subject candidate leaps in scale degrees.
func (s SubjectCharacter) MaxLeapDegrees() int {
	switch s {
	case SubjectPlayful, SubjectRestless:
		return 4
	case SubjectNoble:
		return 3
	}
	return 2
}

// TempoCharacter drives the harmonic time warp.
type TempoCharacter int

const (
	TempoStable TempoCharacter = iota
	TempoDance
	TempoExpressive
	TempoVirtuosic
	TempoLament
)

func (c TempoCharacter) String() string {
	switch c {
	case TempoStable:
		return "stable"
	case TempoDance:
		return "dance"
	case TempoExpressive:
		return "expressive"
	case TempoVirtuosic:
		return "virtuosic"
	case TempoLament:
		return "lament"
	}
	return "unknown"
}

// DanceKind selects the dance generator profile.
type DanceKind int

const (
	DancePassepied DanceKind = iota
	DanceGigue
	DanceSarabande
)

// VirtuosoKind selects the virtuoso generator profile.
type VirtuosoKind int

const (
	VirtuosoToccata VirtuosoKind = iota
	VirtuosoScale
	VirtuosoBravura
	VirtuosoClimax
)

// CanonDescriptor configures a canon variation.
type CanonDescriptor struct {
	Interval  int  `json:"interval"` // diatonic degrees, 0 = unison
	Inverted  bool `json:"inverted"`
	DelayBars int  `json:"delay_bars"`
}

// TempoRatio scales the base tempo by Num/Den.
type TempoRatio struct {
	Num int `json:"num"`
	Den int `json:"den"`
}

// Apply returns bpm scaled by the ratio.
func (r TempoRatio) Apply(bpm float64) float64 {
	if r.Den == 0 {
		return bpm
	}
	return bpm * float64(r.Num) / float64(r.Den)
}

// FiguraProfile names the primary and secondary figures of a variation.
type FiguraProfile struct {
	Primary   melody.FiguraType `json:"primary"`
	Secondary melody.FiguraType `json:"secondary"`
}

// VariationDescriptor is one entry of the Goldberg plan.
type VariationDescriptor struct {
	Number         int                  `json:"number"`
	Type           VariationType        `json:"type"`
	Melody         MelodyMode           `json:"melody_mode"`
	Minor          bool                 `json:"minor"` // parallel minor of the work's key
	TimeSignature  theory.TimeSignature `json:"time_signature"`
	Meter          MeterProfile         `json:"meter_profile"`
	Voices         int                  `json:"voice_count"`
	Canon          *CanonDescriptor     `json:"canon,omitempty"`
	Tempo          TempoRatio           `json:"tempo_ratio"`
	Articulation   ArticulationProfile  `json:"articulation"`
	MinorProfile   MinorProfile         `json:"minor_profile"`
	Figura         FiguraProfile        `json:"figura"`
	Subject        SubjectCharacter     `json:"subject_character"`
	TempoCharacter TempoCharacter       `json:"tempo_character"`
	BPMOverride    int                  `json:"bpm_override,omitempty"`
	Dance          DanceKind            `json:"dance,omitempty"`
	Virtuoso       VirtuosoKind         `json:"virtuoso,omitempty"`
}

// Name returns a display name such as "Var. 3 canon".
func (d VariationDescriptor) Name() string {
	switch d.Number {
	case 0:
		return "Aria"
	case 31:
		return "Aria da capo"
	}
	return fmt.Sprintf("Var. %d %s", d.Number, d.Type)
}

// KeyFor returns the variation's key given the work's key.
func (d VariationDescriptor) KeyFor(work theory.Key) theory.Key {
	if d.Minor && !work.Minor {
		return work.Parallel()
	}
	return work
}

// ScaleFor returns the scale the variation uses in key.
func (d VariationDescriptor) ScaleFor(key theory.Key) theory.ScaleType {
	if key.Minor {
		return d.MinorProfile.Scale(true)
	}
	return theory.ScaleMajor
}

// VoiceIndices maps the variation's voice count onto the five harpsichord
// voice slots. A two-voice texture uses the top voice and the bass slot.
func (d VariationDescriptor) VoiceIndices() []int {
	switch {
	case d.Voices <= 2:
		return []int{0, 2}
	case d.Voices == 3:
		return []int{0, 1, 2}
	case d.Voices == 4:
		return []int{0, 1, 2, 3}
	}
	return []int{0, 1, 2, 3, 4}
}

func canon(interval int, inverted bool) *CanonDescriptor {
	return &CanonDescriptor{Interval: interval, Inverted: inverted, DelayBars: 1}
}

func fig(p, s melody.FiguraType) FiguraProfile { return FiguraProfile{Primary: p, Secondary: s} }

var (
	r11 = TempoRatio{1, 1}
	r32 = TempoRatio{3, 2}
	r43 = TempoRatio{4, 3}
	r23 = TempoRatio{2, 3}
	r21 = TempoRatio{2, 1}
)

var goldbergPlan = [GridBars]VariationDescriptor{
	{Number: 0, Type: TypeAria, Melody: MelodyCantabile, TimeSignature: theory.Time3_4, Voices: 2, Tempo: r11, Articulation: ArticulationLegato, Figura: fig(melody.FiguraSarabande, melody.FiguraCirculatio), TempoCharacter: TempoExpressive},
	{Number: 1, Type: TypeOrnamental, Melody: MelodyFigural, TimeSignature: theory.Time3_4, Voices: 2, Tempo: r32, Articulation: ArticulationDetache, Figura: fig(melody.FiguraCirculatio, melody.FiguraTirata), TempoCharacter: TempoStable},
	{Number: 2, Type: TypeInvention, Melody: MelodyImitative, TimeSignature: theory.Time2_4, Voices: 3, Tempo: r43, Articulation: ArticulationModerato, Subject: SubjectPlayful, TempoCharacter: TempoStable},
	{Number: 3, Type: TypeCanon, Melody: MelodyCanonic, TimeSignature: theory.Time12_8, Meter: MeterCompound, Voices: 3, Canon: canon(0, false), Tempo: r11, Articulation: ArticulationLegato, Subject: SubjectNoble, TempoCharacter: TempoStable},
	{Number: 4, Type: TypeDance, Melody: MelodyFigural, TimeSignature: theory.Time3_8, Meter: MeterDanceLilt, Voices: 2, Tempo: r32, Articulation: ArticulationDetache, Figura: fig(melody.FiguraPassepied, melody.FiguraCirculatio), TempoCharacter: TempoDance, Dance: DancePassepied},
	{Number: 5, Type: TypeVirtuoso, Melody: MelodyFigural, TimeSignature: theory.Time3_4, Voices: 2, Tempo: r32, Articulation: ArticulationBrillante, Figura: fig(melody.FiguraBatterie, melody.FiguraTirata), TempoCharacter: TempoVirtuosic, Virtuoso: VirtuosoToccata},
	{Number: 6, Type: TypeCanon, Melody: MelodyCanonic, TimeSignature: theory.Time3_8, Voices: 3, Canon: canon(1, false), Tempo: r43, Articulation: ArticulationModerato, Subject: SubjectSevere, TempoCharacter: TempoStable},
	{Number: 7, Type: TypeDance, Melody: MelodyFigural, TimeSignature: theory.Time6_8, Meter: MeterCompound, Voices: 2, Tempo: r32, Articulation: ArticulationDetache, Figura: fig(melody.FiguraGigue, melody.FiguraDottedGrave), TempoCharacter: TempoDance, Dance: DanceGigue},
	{Number: 8, Type: TypeVirtuoso, Melody: MelodyFigural, TimeSignature: theory.Time3_4, Voices: 2, Tempo: r32, Articulation: ArticulationBrillante, Figura: fig(melody.FiguraTirata, melody.FiguraBatterie), TempoCharacter: TempoVirtuosic, Virtuoso: VirtuosoBravura},
	{Number: 9, Type: TypeCanon, Melody: MelodyCanonic, TimeSignature: theory.Time4_4, Voices: 3, Canon: canon(2, false), Tempo: r11, Articulation: ArticulationLegato, Subject: SubjectNoble, TempoCharacter: TempoStable},
	{Number: 10, Type: TypeFughetta, Melody: MelodyImitative, TimeSignature: theory.Time2_2, Meter: MeterAllaBreve, Voices: 4, Tempo: r11, Articulation: ArticulationModerato, Subject: SubjectPlayful, TempoCharacter: TempoStable},
	{Number: 11, Type: TypeVirtuoso, Melody: MelodyFigural, TimeSignature: theory.TimeSignature{Numerator: 12, Denominator: 16}, Meter: MeterCompound, Voices: 2, Tempo: r11, Articulation: ArticulationBrillante, Figura: fig(melody.FiguraTirata, melody.FiguraCirculatio), TempoCharacter: TempoVirtuosic, Virtuoso: VirtuosoScale},
	{Number: 12, Type: TypeCanon, Melody: MelodyCanonic, TimeSignature: theory.Time3_4, Voices: 3, Canon: canon(3, true), Tempo: r11, Articulation: ArticulationModerato, Subject: SubjectSevere, TempoCharacter: TempoStable},
	{Number: 13, Type: TypeOrnamental, Melody: MelodyFigural, TimeSignature: theory.Time3_4, Voices: 2, Tempo: r11, Articulation: ArticulationLegato, Figura: fig(melody.FiguraSarabande, melody.FiguraCirculatio), TempoCharacter: TempoExpressive},
	{Number: 14, Type: TypeVirtuoso, Melody: MelodyFigural, TimeSignature: theory.Time3_4, Voices: 2, Tempo: r32, Articulation: ArticulationBrillante, Figura: fig(melody.FiguraBatterie, melody.FiguraTrillo), TempoCharacter: TempoVirtuosic, Virtuoso: VirtuosoBravura},
	{Number: 15, Type: TypeCanon, Melody: MelodyCanonic, Minor: true, TimeSignature: theory.Time2_4, Voices: 3, Canon: canon(4, true), Tempo: r23, Articulation: ArticulationLegato, MinorProfile: MinorHarmonic, Subject: SubjectSevere, TempoCharacter: TempoExpressive},
	{Number: 16, Type: TypeOverture, Melody: MelodyFigural, TimeSignature: theory.Time2_2, Meter: MeterAllaBreve, Voices: 3, Tempo: r11, Articulation: ArticulationFrenchDotted, Figura: fig(melody.FiguraDottedGrave, melody.FiguraTirata), Subject: SubjectNoble, TempoCharacter: TempoStable},
	{Number: 17, Type: TypeVirtuoso, Melody: MelodyFigural, TimeSignature: theory.Time3_4, Voices: 2, Tempo: r32, Articulation: ArticulationBrillante, Figura: fig(melody.FiguraBariolage, melody.FiguraTirata), TempoCharacter: TempoVirtuosic, Virtuoso: VirtuosoToccata},
	{Number: 18, Type: TypeCanon, Melody: MelodyCanonic, TimeSignature: theory.Time2_2, Meter: MeterAllaBreve, Voices: 3, Canon: canon(5, false), Tempo: r11, Articulation: ArticulationModerato, Subject: SubjectNoble, TempoCharacter: TempoStable},
	{Number: 19, Type: TypeDance, Melody: MelodyFigural, TimeSignature: theory.Time3_8, Meter: MeterDanceLilt, Voices: 3, Tempo: r43, Articulation: ArticulationDetache, Figura: fig(melody.FiguraPassepied, melody.FiguraArpeggio), TempoCharacter: TempoDance, Dance: DancePassepied},
	{Number: 20, Type: TypeVirtuoso, Melody: MelodyFigural, TimeSignature: theory.Time3_4, Voices: 2, Tempo: r32, Articulation: ArticulationBrillante, Figura: fig(melody.FiguraBatterie, melody.FiguraArpeggio), TempoCharacter: TempoVirtuosic, Virtuoso: VirtuosoBravura},
	{Number: 21, Type: TypeCanon, Melody: MelodyCanonic, Minor: true, TimeSignature: theory.Time4_4, Voices: 3, Canon: canon(6, false), Tempo: r23, Articulation: ArticulationLegato, MinorProfile: MinorMixed, Subject: SubjectSevere, TempoCharacter: TempoExpressive},
	{Number: 22, Type: TypeAllaBreve, Melody: MelodyImitative, TimeSignature: theory.Time2_2, Meter: MeterAllaBreve, Voices: 4, Tempo: r11, Articulation: ArticulationLegato, Subject: SubjectSevere, TempoCharacter: TempoStable},
	{Number: 23, Type: TypeVirtuoso, Melody: MelodyFigural, TimeSignature: theory.Time3_4, Voices: 2, Tempo: r32, Articulation: ArticulationBrillante, Figura: fig(melody.FiguraTirata, melody.FiguraTrillo), TempoCharacter: TempoVirtuosic, Virtuoso: VirtuosoScale},
	{Number: 24, Type: TypeCanon, Melody: MelodyCanonic, TimeSignature: theory.Time9_8, Meter: MeterCompound, Voices: 3, Canon: canon(7, false), Tempo: r11, Articulation: ArticulationModerato, Subject: SubjectNoble, TempoCharacter: TempoDance},
	{Number: 25, Type: TypeBlackPearl, Melody: MelodyCantabile, Minor: true, TimeSignature: theory.Time3_4, Voices: 3, Tempo: r23, Articulation: ArticulationLegato, MinorProfile: MinorHarmonic, Figura: fig(melody.FiguraSuspirans, melody.FiguraCirculatio), TempoCharacter: TempoLament},
	{Number: 26, Type: TypeDance, Melody: MelodyFigural, TimeSignature: theory.Time3_4, Voices: 3, Tempo: r11, Articulation: ArticulationModerato, Figura: fig(melody.FiguraSarabande, melody.FiguraTirata), TempoCharacter: TempoDance, Dance: DanceSarabande},
	{Number: 27, Type: TypeCanon, Melody: MelodyCanonic, TimeSignature: theory.Time6_8, Meter: MeterCompound, Voices: 3, Canon: canon(8, false), Tempo: r43, Articulation: ArticulationDetache, Subject: SubjectPlayful, TempoCharacter: TempoDance},
	{Number: 28, Type: TypeTrillEtude, Melody: MelodyFigural, TimeSignature: theory.Time3_4, Voices: 2, Tempo: r11, Articulation: ArticulationBrillante, Figura: fig(melody.FiguraTrillo, melody.FiguraCirculatio), TempoCharacter: TempoVirtuosic},
	{Number: 29, Type: TypeVirtuoso, Melody: MelodyFigural, TimeSignature: theory.Time3_4, Voices: 3, Tempo: r21, Articulation: ArticulationBrillante, Figura: fig(melody.FiguraBatterie, melody.FiguraArpeggio), TempoCharacter: TempoVirtuosic, Virtuoso: VirtuosoClimax},
	{Number: 30, Type: TypeQuodlibet, Melody: MelodyBorrowed, TimeSignature: theory.Time4_4, Voices: 3, Tempo: r11, Articulation: ArticulationModerato, TempoCharacter: TempoStable},
	{Number: 31, Type: TypeAriaDaCapo, Melody: MelodyCantabile, TimeSignature: theory.Time3_4, Voices: 2, Tempo: r11, Articulation: ArticulationLegato, Figura: fig(melody.FiguraSarabande, melody.FiguraCirculatio), TempoCharacter: TempoExpressive},
}

// GoldbergPlan returns the 32-entry variation plan.
func GoldbergPlan() []VariationDescriptor {
	out := make([]VariationDescriptor, len(goldbergPlan))
	copy(out, goldbergPlan[:])
	return out
}

var (
	shortSelection  = []int{0, 1, 3, 4, 7, 10, 15, 16, 25, 29, 30, 31}
	mediumSelection = []int{0, 1, 2, 3, 4, 5, 6, 7, 9, 10, 12, 13, 15, 16, 18, 21, 24, 25, 28, 29, 30, 31}
)

// SelectVariations returns the plan entries rendered at the given scale,
// in plan order.
func SelectVariations(plan []VariationDescriptor, scale DurationScale) []VariationDescriptor {
	var keep map[int]bool
	switch scale {
	case ScaleShort:
		keep = toSet(shortSelection)
	case ScaleMedium:
		keep = toSet(mediumSelection)
	}
	var out []VariationDescriptor
	for _, d := range plan {
		if keep == nil || keep[d.Number] {
			out = append(out, d)
		}
	}
	return out
}

func toSet(xs []int) map[int]bool {
	m := make(map[int]bool, len(xs))
	for _, x := range xs {
		m[x] = true
	}
	return m
}
