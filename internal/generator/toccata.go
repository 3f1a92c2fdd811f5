package generator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Conceptual-Machines/bachgen/internal/logger"
	"github.com/Conceptual-Machines/bachgen/internal/models"
	"github.com/Conceptual-Machines/bachgen/internal/rng"
	"github.com/Conceptual-Machines/bachgen/internal/toccata"
)

// ToccataTracks returns the empty organ tracks of an n-voice toccata: the
// top manual on the church organ, the other manuals on the reed organ and
// the pedal on its own channel. A track without voices is left out.
func ToccataTracks(n int) []models.Track {
	n = toccata.ClampVoices(n)
	ranges := toccata.OrganRanges(n)
	pedal := toccata.PedalVoice(n)
	var inner []int
	for v := 1; v < pedal; v++ {
		inner = append(inner, v)
	}
	tracks := []models.Track{
		{Name: "Church Organ", Channel: ChannelUpper, Program: ProgramChurchOrgan, Voices: []int{0}, Range: ranges[0]},
	}
	if len(inner) > 0 {
		tracks = append(tracks, models.Track{Name: "Reed Organ", Channel: ChannelLower, Program: ProgramReedOrgan, Voices: inner, Range: rangeOf(ranges, inner)})
	}
	return append(tracks, models.Track{Name: "Pedal", Channel: ChannelPedal, Program: ProgramChurchOrgan, Voices: []int{pedal}, Range: ranges[pedal]})
}

// GenerateToccata renders an organ toccata.
func GenerateToccata(ctx context.Context, cfg ToccataConfig) (*Result, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	started := time.Now()
	seed := rng.ResolveSeed(cfg.Seed)
	piece, err := toccata.Generate(ctx, toccata.Config{
		Archetype: cfg.Archetype,
		Key:       cfg.Key,
		Seed:      seed,
		Voices:    cfg.Voices,
		TotalBars: cfg.TotalBars,
		Picardy:   cfg.Picardy,
	})
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	res := &Result{
		Form:           "toccata",
		Seed:           seed,
		Key:            cfg.Key,
		Tracks:         distribute(ToccataTracks(piece.Voices), piece.Notes),
		Timeline:       piece.Timeline.Events(),
		Tempo:          []models.TempoEvent{{Tick: 0, BPM: ClampBPM(cfg.BPM)}},
		TimeSignatures: []models.TimeSignatureEvent{{Tick: 0, TimeSignature: piece.Meter}},
		TotalDuration:  piece.Duration,
		Success:        true,
		Phases:         piece.Phases,
		Registrations:  piece.Registrations,
		Report:         piece.Report,
		Diagnostics:    Diagnostics{Warnings: piece.Warnings},
	}
	for i, ph := range piece.Phases {
		text := ph.Name
		if i < len(piece.Registrations) {
			text = fmt.Sprintf("%s (%s)", ph.Name, piece.Registrations[i].Manual)
		}
		res.Markers = append(res.Markers, models.MarkerEvent{Tick: ph.StartTick, Text: text})
	}

	logger.Info("Toccata generated", logger.Fields{
		"seed":        seed,
		"archetype":   cfg.Archetype.String(),
		"phases":      len(piece.Phases),
		"notes":       len(piece.Notes),
		"duration_ms": time.Since(started).Milliseconds(),
	})
	return res, nil
}
