package generator

import (
	"context"
	"fmt"
	"time"

	"github.com/Conceptual-Machines/bachgen/internal/forms"
	"github.com/Conceptual-Machines/bachgen/internal/harmony"
	"github.com/Conceptual-Machines/bachgen/internal/logger"
	"github.com/Conceptual-Machines/bachgen/internal/models"
	"github.com/Conceptual-Machines/bachgen/internal/planner"
	"github.com/Conceptual-Machines/bachgen/internal/postprocess"
	"github.com/Conceptual-Machines/bachgen/internal/rng"
	"github.com/Conceptual-Machines/bachgen/internal/theory"
)

var (
	upperVoices = []int{0, 1}
	lowerVoices = []int{2, 3, 4}
)

// GoldbergTracks returns the two empty harpsichord tracks.
func GoldbergTracks() []models.Track {
	return []models.Track{
		{Name: "Harpsichord I", Channel: ChannelUpper, Program: ProgramHarpsichord, Voices: upperVoices, Range: rangeOf(forms.HarpsichordRanges, upperVoices)},
		{Name: "Harpsichord II", Channel: ChannelLower, Program: ProgramHarpsichord, Voices: lowerVoices, Range: rangeOf(forms.HarpsichordRanges, lowerVoices)},
	}
}

// GenerateGoldberg renders the selected variations one after the other,
// then repairs the merged work. The context is checked between
// variations. Only configuration problems are returned as errors.
func GenerateGoldberg(ctx context.Context, cfg GoldbergConfig) (*Result, error) {
	started := time.Now()
	w, err := renderGoldberg(ctx, cfg)
	if err != nil {
		return nil, err
	}
	res := w.res
	if len(res.Variations) == 0 {
		res.Error = "every selected variation was skipped"
		return res, nil
	}

	pc := postprocess.NewContext(forms.HarpsichordRanges, w.spans...)
	res.Report = pc.Repair(w.notes)
	if res.Report.UnresolvedParallels > 0 {
		res.Diagnostics.warnf("%d parallel perfects left unresolved", res.Report.UnresolvedParallels)
	}

	res.Tracks = distribute(GoldbergTracks(), w.notes)
	res.Timeline = w.timeline.Events()
	res.TotalDuration = w.duration
	res.Success = true

	logger.Info("Goldberg generated", logger.Fields{
		"seed":        res.Seed,
		"variations":  len(res.Variations),
		"notes":       len(w.notes),
		"duration_ms": time.Since(started).Milliseconds(),
	})
	return res, nil
}

// goldbergWork is the merged work before the counterpoint repairs.
type goldbergWork struct {
	res      *Result
	notes    []models.NoteEvent
	spans    []postprocess.Span
	timeline *harmony.Timeline
	duration theory.Tick
}

func renderGoldberg(ctx context.Context, cfg GoldbergConfig) (*goldbergWork, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	seed := rng.ResolveSeed(cfg.Seed)
	bpm := ClampBPM(cfg.BPM)
	selection := planner.SelectVariations(planner.GoldbergPlan(), cfg.Scale)
	if len(selection) == 0 {
		return nil, fmt.Errorf("%w: scale %s", ErrEmptyPlan, cfg.Scale)
	}
	repeats := cfg.Repeats || cfg.Scale == planner.ScaleFull

	res := &Result{Form: "goldberg", Seed: seed, Key: cfg.Key}
	timeline, _ := harmony.NewTimeline()
	var notes []models.NoteEvent
	var spans []postprocess.Span
	var aria *forms.Rendered
	var offset theory.Tick

	for _, desc := range selection {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c, err := forms.NewContext(desc, cfg.Key, seed)
		var r *forms.Rendered
		if err == nil {
			r, err = forms.Render(c, forms.RenderOptions{
				Repeats:         repeats,
				OrnamentRepeats: cfg.OrnamentRepeats,
				Aria:            aria,
			})
		}
		if err != nil {
			res.Diagnostics.Skipped = append(res.Diagnostics.Skipped, desc.Number)
			res.Diagnostics.warnf("variation %d skipped: %v", desc.Number, err)
			logger.Warn("Variation skipped", logger.Fields{"variation": desc.Number, "error": err.Error()})
			continue
		}
		if desc.Type == planner.TypeAria && aria == nil {
			aria = r.Copy()
		}
		if len(r.Notes) == 0 {
			res.Diagnostics.Skipped = append(res.Diagnostics.Skipped, desc.Number)
			res.Diagnostics.warnf("variation %d produced no notes", desc.Number)
			continue
		}
		for _, w := range r.Diagnostics.Warnings {
			res.Diagnostics.warnf("variation %d: %s", desc.Number, w)
		}
		if cr := r.Diagnostics.Canon; cr != nil && !cr.Validation.Passed {
			logger.Warn("Canon validation failed", logger.Fields{
				"variation":      desc.Number,
				"pitch_accuracy": cr.Validation.PitchAccuracy,
				"timing_errors":  cr.Validation.TimingErrors,
			})
		}

		vn := r.Notes
		models.Offset(vn, offset)
		notes = append(notes, vn...)

		tl := r.Timeline.Offset(offset)
		if err := timeline.Concat(tl); err != nil {
			res.Diagnostics.warnf("variation %d timeline: %v", desc.Number, err)
		}
		spans = append(spans, postprocess.Span{
			Start:    offset,
			End:      offset + r.Duration,
			Key:      c.Key,
			Scale:    c.Scale,
			Meter:    c.Meter,
			Timeline: tl,
		})

		vbpm := desc.Tempo.Apply(bpm)
		if desc.BPMOverride > 0 {
			vbpm = float64(desc.BPMOverride)
		}
		vbpm = min(max(vbpm, MinBPM), MaxBPM)
		res.Tempo = append(res.Tempo, models.TempoEvent{Tick: offset, BPM: vbpm})
		res.TimeSignatures = append(res.TimeSignatures, models.TimeSignatureEvent{Tick: offset, TimeSignature: desc.TimeSignature})
		res.Markers = append(res.Markers, models.MarkerEvent{Tick: offset, Text: desc.Name()})
		res.Variations = append(res.Variations, VariationRecord{
			Number:        desc.Number,
			Name:          desc.Name(),
			Type:          desc.Type.String(),
			StartTick:     offset,
			EndTick:       offset + r.Duration,
			Bars:          r.Bars,
			TimeSignature: desc.TimeSignature,
			BPM:           vbpm,
			Notes:         len(vn),
			Chromatic:     r.Chromatic,
			Ornaments:     r.Ornaments,
			Canon:         r.Diagnostics.Canon,
		})
		logger.Debug("Variation rendered", logger.Fields{
			"variation": desc.Number,
			"type":      desc.Type.String(),
			"notes":     len(vn),
			"bars":      r.Bars,
		})
		offset += r.Duration
	}

	return &goldbergWork{
		res:      res,
		notes:    notes,
		spans:    spans,
		timeline: timeline,
		duration: offset,
	}, nil
}
