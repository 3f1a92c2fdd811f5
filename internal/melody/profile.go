package melody

import "github.com/Conceptual-Machines/bachgen/internal/theory"

// VoiceRole indexes the voice profile table.
type VoiceRole int

const (
	RoleSoprano VoiceRole = iota
	RoleAlto
	RoleTenor
	RoleBass
	RolePedal
	RoleVirtuoso
)

func (r VoiceRole) String() string {
	switch r {
	case RoleSoprano:
		return "soprano"
	case RoleAlto:
		return "alto"
	case RoleTenor:
		return "tenor"
	case RoleBass:
		return "bass"
	case RolePedal:
		return "pedal"
	case RoleVirtuoso:
		return "virtuoso"
	}
	return "unknown"
}

// DurationValues are the note lengths DurationWeights refer to.
var DurationValues = [6]theory.Tick{
	theory.Whole, theory.Half, theory.DottedQuarter, theory.Quarter, theory.Eighth, theory.Sixteenth,
}

// VoiceProfile holds the design values that shape one voice's line.
type VoiceProfile struct {
	Role VoiceRole `json:"role"`

	StepProb   float64 `json:"step_prob"`
	SkipProb   float64 `json:"skip_prob"`
	LeapProb   float64 `json:"leap_prob"`
	MaxLeaps   int     `json:"max_consecutive_leaps"`
	Recovery   bool    `json:"stepwise_recovery"`
	FigureProb float64 `json:"figure_probability"`

	// whole, half, dotted quarter, quarter, eighth, sixteenth
	DurationWeights [6]float64  `json:"duration_weights"`
	MinDuration     theory.Tick `json:"min_duration"`

	StepwiseBonus     float64 `json:"stepwise_bonus"`
	P4P5Bonus         float64 `json:"p4p5_bonus"`
	ContinuationBonus float64 `json:"continuation_bonus"`
	Gravity           float64 `json:"gravity"`
}

var profiles = [...]VoiceProfile{
	RoleSoprano: {
		Role: RoleSoprano, StepProb: 0.60, SkipProb: 0.28, LeapProb: 0.12, MaxLeaps: 2, Recovery: true, FigureProb: 0.15,
		DurationWeights: [6]float64{0, 0.05, 0.10, 0.35, 0.40, 0.10}, MinDuration: theory.Sixteenth,
		StepwiseBonus: 0.30, P4P5Bonus: 0.10, ContinuationBonus: 0.10, Gravity: 0.08,
	},
	RoleAlto: {
		Role: RoleAlto, StepProb: 0.62, SkipProb: 0.28, LeapProb: 0.10, MaxLeaps: 2, Recovery: true, FigureProb: 0.12,
		DurationWeights: [6]float64{0, 0.08, 0.10, 0.40, 0.35, 0.07}, MinDuration: theory.Sixteenth,
		StepwiseBonus: 0.30, P4P5Bonus: 0.08, ContinuationBonus: 0.10, Gravity: 0.06,
	},
	RoleTenor: {
		Role: RoleTenor, StepProb: 0.58, SkipProb: 0.30, LeapProb: 0.12, MaxLeaps: 2, Recovery: true, FigureProb: 0.10,
		DurationWeights: [6]float64{0, 0.10, 0.10, 0.40, 0.32, 0.08}, MinDuration: theory.Sixteenth,
		StepwiseBonus: 0.28, P4P5Bonus: 0.10, ContinuationBonus: 0.08, Gravity: 0.06,
	},
	RoleBass: {
		Role: RoleBass, StepProb: 0.45, SkipProb: 0.30, LeapProb: 0.25, MaxLeaps: 3, FigureProb: 0.05,
		DurationWeights: [6]float64{0.05, 0.20, 0.10, 0.40, 0.25, 0}, MinDuration: theory.Eighth,
		StepwiseBonus: 0.20, P4P5Bonus: 0.25, ContinuationBonus: 0.05, Gravity: 0.10,
	},
	RolePedal: {
		Role: RolePedal, StepProb: 0.40, SkipProb: 0.30, LeapProb: 0.30, MaxLeaps: 3, FigureProb: 0.03,
		DurationWeights: [6]float64{0.15, 0.30, 0.10, 0.35, 0.10, 0}, MinDuration: theory.Eighth,
		StepwiseBonus: 0.15, P4P5Bonus: 0.30, ContinuationBonus: 0.05, Gravity: 0.12,
	},
	RoleVirtuoso: {
		Role: RoleVirtuoso, StepProb: 0.70, SkipProb: 0.20, LeapProb: 0.10, MaxLeaps: 2, Recovery: true, FigureProb: 0.25,
		DurationWeights: [6]float64{0, 0, 0.02, 0.10, 0.38, 0.50}, MinDuration: theory.ThirtySecond,
		StepwiseBonus: 0.35, P4P5Bonus: 0.05, ContinuationBonus: 0.20, Gravity: 0.04,
	},
}

// ProfileFor returns the design profile of role.
func ProfileFor(role VoiceRole) VoiceProfile {
	if role < 0 || int(role) >= len(profiles) {
		return profiles[RoleSoprano]
	}
	return profiles[role]
}

// RoleForVoice maps a voice index in an n-voice texture to a role: the top
// voice is the soprano and the last voice is the bass.
func RoleForVoice(voice, n int) VoiceRole {
	switch {
	case voice == 0:
		return RoleSoprano
	case voice == n-1:
		return RoleBass
	case voice == 1:
		return RoleAlto
	}
	return RoleTenor
}
