package models

import (
	"sort"

	"github.com/Conceptual-Machines/bachgen/internal/theory"
)

// NoteSource records which generator stage produced a note
type NoteSource int

const (
	SourceUnknown NoteSource = iota
	SourceFreeCounterpoint
	SourceAriaMelody
	SourceAriaBass
	SourceSubject
	SourceAnswer
	SourceCountersubject
	SourceEpisode
	SourceSoggetto
	SourceCanonDux
	SourceCanonComes
	SourceCanonBass
	SourceGroundBass
	SourceLamento
	SourceSuspension
	SourceQuodlibetMelody
	SourceFigure
	SourceBridge
	SourceOrnament
	SourceChromaticPassing
	SourceToccataFigure
	SourceCadenza
	SourcePedalPoint
	SourceCadence
	SourcePicardy
)

var sourceNames = map[NoteSource]string{
	SourceUnknown:          "unknown",
	SourceFreeCounterpoint: "free_counterpoint",
	SourceAriaMelody:       "aria_melody",
	SourceAriaBass:         "aria_bass",
	SourceSubject:          "subject",
	SourceAnswer:           "answer",
	SourceCountersubject:   "countersubject",
	SourceEpisode:          "episode",
	SourceSoggetto:         "soggetto",
	SourceCanonDux:         "canon_dux",
	SourceCanonComes:       "canon_comes",
	SourceCanonBass:        "canon_bass",
	SourceGroundBass:       "ground_bass",
	SourceLamento:          "lamento",
	SourceSuspension:       "suspension",
	SourceQuodlibetMelody:  "quodlibet_melody",
	SourceFigure:           "figure",
	SourceBridge:           "bridge",
	SourceOrnament:         "ornament",
	SourceChromaticPassing: "chromatic_passing",
	SourceToccataFigure:    "toccata_figure",
	SourceCadenza:          "cadenza",
	SourcePedalPoint:       "pedal_point",
	SourceCadence:          "cadence",
	SourcePicardy:          "picardy",
}

func (s NoteSource) String() string {
	if n, ok := sourceNames[s]; ok {
		return n
	}
	return "unknown"
}

// MarshalText renders the source by name in JSON payloads
func (s NoteSource) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a source name; unknown names decode as SourceUnknown
func (s *NoteSource) UnmarshalText(b []byte) error {
	*s = SourceUnknown
	for k, name := range sourceNames {
		if name == string(b) {
			*s = k
			break
		}
	}
	return nil
}

// Protection governs whether repair passes may alter a note
type Protection int

const (
	Flexible Protection = iota
	Structural
	Immutable
)

func (p Protection) String() string {
	switch p {
	case Immutable:
		return "immutable"
	case Structural:
		return "structural"
	}
	return "flexible"
}

// Protection returns the protection level implied by the source tag
func (s NoteSource) Protection() Protection {
	switch s {
	case SourceSubject, SourceAnswer, SourceCanonDux, SourceCanonComes:
		return Immutable
	case SourceGroundBass, SourceLamento, SourceSoggetto, SourceQuodlibetMelody,
		SourceCadence, SourcePicardy, SourcePedalPoint:
		return Structural
	}
	return Flexible
}

// ModFlag is a bit set of post-processing passes that changed a note
type ModFlag uint16

const (
	ModTimeWarp ModFlag = 1 << iota
	ModArticulation
	ModParallelRepair
	ModTritoneRepair
	ModLeapResolution
	ModPicardy
	ModOverlapCleanup
	ModOrnament
	ModVelocity
	ModRangeFold
)

// Has reports whether every bit in f is set
func (m ModFlag) Has(f ModFlag) bool { return m&f == f }

// NoteEvent is a single note on the tick grid
type NoteEvent struct {
	StartTick  theory.Tick `json:"start_tick"`
	Duration   theory.Tick `json:"duration"`
	Pitch      int         `json:"pitch"`
	Velocity   int         `json:"velocity"`
	Voice      int         `json:"voice"`
	Source     NoteSource  `json:"source"`
	ModifiedBy ModFlag     `json:"modified_by,omitempty"`
}

// EndTick returns the tick at which the note stops sounding
func (n NoteEvent) EndTick() theory.Tick { return n.StartTick + n.Duration }

// Protection returns the note's protection level
func (n NoteEvent) Protection() Protection { return n.Source.Protection() }

// IsFlexible reports whether repairs may change the note
func (n NoteEvent) IsFlexible() bool { return n.Source.Protection() == Flexible }

// SoundingAt reports whether the note sounds at tick
func (n NoteEvent) SoundingAt(tick theory.Tick) bool {
	return n.StartTick <= tick && tick < n.EndTick()
}

// Normalize clamps pitch and velocity to MIDI range and duration to at least one tick
func (n *NoteEvent) Normalize() {
	n.Pitch = theory.ClampPitch(n.Pitch)
	if n.Velocity < 1 {
		n.Velocity = 1
	}
	if n.Velocity > 127 {
		n.Velocity = 127
	}
	if n.Duration < 1 {
		n.Duration = 1
	}
	if n.StartTick < 0 {
		n.StartTick = 0
	}
}

// SortNotes orders notes by start tick with pitch as tie-break
func SortNotes(notes []NoteEvent) {
	sort.SliceStable(notes, func(i, j int) bool {
		if notes[i].StartTick != notes[j].StartTick {
			return notes[i].StartTick < notes[j].StartTick
		}
		return notes[i].Pitch < notes[j].Pitch
	})
}

// ByVoice splits notes into per-voice slices, keeping order
func ByVoice(notes []NoteEvent) map[int][]NoteEvent {
	out := make(map[int][]NoteEvent)
	for _, n := range notes {
		out[n.Voice] = append(out[n.Voice], n)
	}
	return out
}

// Offset shifts every note by delta ticks
func Offset(notes []NoteEvent, delta theory.Tick) {
	for i := range notes {
		notes[i].StartTick += delta
	}
}

// VoiceRange is an inclusive pitch window
type VoiceRange struct {
	Low  int `json:"low"`
	High int `json:"high"`
}

// Contains reports whether pitch is inside the range
func (r VoiceRange) Contains(pitch int) bool { return pitch >= r.Low && pitch <= r.High }

// Fold moves pitch by octaves into the range
func (r VoiceRange) Fold(pitch int) int { return theory.ClampPitchToRange(pitch, r.Low, r.High) }

// Union returns the smallest range covering both
func (r VoiceRange) Union(o VoiceRange) VoiceRange {
	u := r
	if o.Low < u.Low {
		u.Low = o.Low
	}
	if o.High > u.High {
		u.High = o.High
	}
	return u
}

// Track is a rendering channel holding the notes of one or more voices
type Track struct {
	Name    string      `json:"name"`
	Channel int         `json:"channel"`
	Program int         `json:"program"`
	Voices  []int       `json:"voices"`
	Range   VoiceRange  `json:"range"`
	Notes   []NoteEvent `json:"notes"`
}

// Sort orders the track's notes by tick
func (t *Track) Sort() { SortNotes(t.Notes) }

// HasVoice reports whether voice v is routed to this track
func (t *Track) HasVoice(v int) bool {
	for _, x := range t.Voices {
		if x == v {
			return true
		}
	}
	return false
}

// TempoEvent marks a tempo change
type TempoEvent struct {
	Tick theory.Tick `json:"tick"`
	BPM  float64     `json:"bpm"`
}

// TimeSignatureEvent marks a meter change
type TimeSignatureEvent struct {
	Tick          theory.Tick          `json:"tick"`
	TimeSignature theory.TimeSignature `json:"time_signature"`
}

// MarkerEvent is a named point in the score such as a registration change
type MarkerEvent struct {
	Tick theory.Tick `json:"tick"`
	Text string      `json:"text"`
}
