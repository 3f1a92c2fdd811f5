// Package generator is the top-level driver: it validates a configuration,
// runs the planner, the form generators and the merged repair pipeline,
// and assembles tracks, tempo and meter maps into a Result.
package generator

import (
	"errors"
	"fmt"

	"github.com/Conceptual-Machines/bachgen/internal/forms"
	"github.com/Conceptual-Machines/bachgen/internal/harmony"
	"github.com/Conceptual-Machines/bachgen/internal/models"
	"github.com/Conceptual-Machines/bachgen/internal/planner"
	"github.com/Conceptual-Machines/bachgen/internal/postprocess"
	"github.com/Conceptual-Machines/bachgen/internal/theory"
	"github.com/Conceptual-Machines/bachgen/internal/toccata"
)

var (
	// ErrInvalidConfig is wrapped by every configuration error.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrEmptyPlan is returned when the selection leaves nothing to render.
	ErrEmptyPlan = errors.New("variation plan is empty")
)

// ConfigError names the configuration field that was rejected.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ConfigError) Unwrap() error { return ErrInvalidConfig }

// Tempo bounds in beats per minute.
const (
	MinBPM     = 30
	MaxBPM     = 200
	DefaultBPM = 60
)

// ClampBPM bounds bpm to [MinBPM, MaxBPM]; zero selects the default.
func ClampBPM(bpm float64) float64 {
	if bpm == 0 {
		return DefaultBPM
	}
	return min(max(bpm, MinBPM), MaxBPM)
}

// GM programs (zero-based) and channels of the output tracks.
const (
	ProgramHarpsichord = 6
	ProgramChurchOrgan = 19
	ProgramReedOrgan   = 20

	ChannelUpper = 0
	ChannelLower = 1
	ChannelPedal = 3
)

// GoldbergConfig selects a Goldberg-style variation set.
type GoldbergConfig struct {
	Seed            uint32                `json:"seed"`
	Scale           planner.DurationScale `json:"scale"`
	Key             theory.Key            `json:"key"`
	BPM             float64               `json:"bpm"`
	Repeats         bool                  `json:"apply_repeats"`
	OrnamentRepeats bool                  `json:"ornament_variation_on_repeat"`
}

// DefaultGoldbergConfig is a short set in G major with repeats.
func DefaultGoldbergConfig() GoldbergConfig {
	return GoldbergConfig{
		Seed:    42,
		Scale:   planner.ScaleShort,
		Key:     theory.GMajor,
		BPM:     DefaultBPM,
		Repeats: true,
	}
}

func (c GoldbergConfig) validate() error {
	if err := validateKey(c.Key); err != nil {
		return err
	}
	if c.Scale < planner.ScaleShort || c.Scale > planner.ScaleFull {
		return &ConfigError{Field: "scale", Message: fmt.Sprintf("unknown scale %d", c.Scale)}
	}
	if c.BPM < 0 {
		return &ConfigError{Field: "bpm", Message: "must not be negative"}
	}
	return nil
}

// ToccataConfig selects an organ toccata.
type ToccataConfig struct {
	Archetype planner.Archetype `json:"archetype"`
	Key       theory.Key        `json:"key"`
	BPM       float64           `json:"bpm"`
	Seed      uint32            `json:"seed"`
	Voices    int               `json:"num_voices"`
	TotalBars int               `json:"total_bars"`
	Picardy   bool              `json:"enable_picardy"`
}

// DefaultToccataConfig is a three-voice Dramaticus in D minor.
func DefaultToccataConfig() ToccataConfig {
	return ToccataConfig{
		Archetype: planner.ArchetypeDramaticus,
		Key:       theory.Key{Tonic: 2, Minor: true},
		BPM:       80,
		Seed:      42,
		Voices:    toccata.DefaultVoices,
		TotalBars: 24,
		Picardy:   true,
	}
}

func (c ToccataConfig) validate() error {
	if err := validateKey(c.Key); err != nil {
		return err
	}
	if c.Archetype < planner.ArchetypeDramaticus || c.Archetype > planner.ArchetypeSectionalis {
		return &ConfigError{Field: "archetype", Message: fmt.Sprintf("unknown archetype %d", c.Archetype)}
	}
	if c.Voices < 0 {
		return &ConfigError{Field: "num_voices", Message: "must not be negative"}
	}
	if c.TotalBars <= 0 {
		return &ConfigError{Field: "total_bars", Message: "must be positive"}
	}
	if c.BPM < 0 {
		return &ConfigError{Field: "bpm", Message: "must not be negative"}
	}
	return nil
}

func validateKey(k theory.Key) error {
	if k.Tonic < 0 || k.Tonic > 11 {
		return &ConfigError{Field: "key", Message: fmt.Sprintf("tonic %d outside 0..11", k.Tonic)}
	}
	return nil
}

// VariationRecord describes one rendered variation.
type VariationRecord struct {
	Number        int                  `json:"number"`
	Name          string               `json:"name"`
	Type          string               `json:"type"`
	StartTick     theory.Tick          `json:"start_tick"`
	EndTick       theory.Tick          `json:"end_tick"`
	Bars          int                  `json:"bars"`
	TimeSignature theory.TimeSignature `json:"time_signature"`
	BPM           float64              `json:"bpm"`
	Notes         int                  `json:"notes"`
	Chromatic     int                  `json:"chromatic_passing,omitempty"`
	Ornaments     int                  `json:"ornaments,omitempty"`
	Canon         *forms.CanonReport   `json:"canon,omitempty"`
}

// Diagnostics collects the non-fatal anomalies of a run.
type Diagnostics struct {
	Skipped  []int    `json:"skipped_variations,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func (d *Diagnostics) warnf(format string, args ...any) {
	d.Warnings = append(d.Warnings, fmt.Sprintf(format, args...))
}

// Result is a generated work.
type Result struct {
	Form           string                      `json:"form"`
	Seed           uint32                      `json:"seed"`
	Key            theory.Key                  `json:"key"`
	Tracks         []models.Track              `json:"tracks"`
	Timeline       []harmony.Event             `json:"timeline"`
	Tempo          []models.TempoEvent         `json:"tempo_events"`
	TimeSignatures []models.TimeSignatureEvent `json:"time_signature_events"`
	Markers        []models.MarkerEvent        `json:"markers,omitempty"`
	TotalDuration  theory.Tick                 `json:"total_duration"`
	Success        bool                        `json:"success"`
	Error          string                      `json:"error,omitempty"`

	Variations    []VariationRecord      `json:"variations,omitempty"`
	Phases        []toccata.PhaseRecord  `json:"phases,omitempty"`
	Registrations []toccata.Registration `json:"registrations,omitempty"`
	Report        postprocess.Report     `json:"repairs"`
	Diagnostics   Diagnostics            `json:"diagnostics"`
}

// Notes returns every note of every track.
func (r *Result) Notes() []models.NoteEvent {
	var out []models.NoteEvent
	for _, t := range r.Tracks {
		out = append(out, t.Notes...)
	}
	return out
}

// NoteCount returns the number of notes over all tracks.
func (r *Result) NoteCount() int {
	n := 0
	for _, t := range r.Tracks {
		n += len(t.Notes)
	}
	return n
}

// distribute sorts notes into the tracks that own their voices.
func distribute(tracks []models.Track, notes []models.NoteEvent) []models.Track {
	for _, n := range notes {
		for i := range tracks {
			if tracks[i].HasVoice(n.Voice) {
				tracks[i].Notes = append(tracks[i].Notes, n)
				break
			}
		}
	}
	for i := range tracks {
		tracks[i].Sort()
	}
	return tracks
}

func rangeOf(ranges map[int]models.VoiceRange, voices []int) models.VoiceRange {
	var out models.VoiceRange
	for i, v := range voices {
		if i == 0 {
			out = ranges[v]
			continue
		}
		out = out.Union(ranges[v])
	}
	return out
}
