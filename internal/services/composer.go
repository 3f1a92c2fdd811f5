package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/Conceptual-Machines/bachgen/internal/cache"
	"github.com/Conceptual-Machines/bachgen/internal/database"
	"github.com/Conceptual-Machines/bachgen/internal/export"
	"github.com/Conceptual-Machines/bachgen/internal/generator"
	"github.com/Conceptual-Machines/bachgen/internal/logger"
	"github.com/Conceptual-Machines/bachgen/internal/metrics"
	"github.com/Conceptual-Machines/bachgen/internal/models"
	"github.com/Conceptual-Machines/bachgen/internal/planner"
	"github.com/Conceptual-Machines/bachgen/internal/theory"
)

const (
	FormGoldberg = "goldberg"
	FormToccata  = "toccata"
)

// Composition is a generated work with its rendered MIDI file.
type Composition struct {
	ID        string            `json:"id,omitempty"`
	ConfigKey string            `json:"config_key,omitempty"`
	Cached    bool              `json:"cached"`
	Result    *generator.Result `json:"result"`
	MIDI      []byte            `json:"-"`
}

// ComposerService runs generation requests through the cache, the
// generator, the MIDI exporter and the archive. Every collaborator is
// optional.
type ComposerService struct {
	cache      *cache.Cache
	store      *database.Store
	prom       *metrics.Prometheus
	cloudwatch *metrics.Client
	sentry     *metrics.SentryMetrics
	defaultBPM float64
}

// ComposerOption configures a ComposerService.
type ComposerOption func(*ComposerService)

func WithCache(c *cache.Cache) ComposerOption { return func(s *ComposerService) { s.cache = c } }

func WithStore(st *database.Store) ComposerOption { return func(s *ComposerService) { s.store = st } }

func WithPrometheus(p *metrics.Prometheus) ComposerOption {
	return func(s *ComposerService) { s.prom = p }
}

func WithCloudWatch(c *metrics.Client) ComposerOption {
	return func(s *ComposerService) { s.cloudwatch = c }
}

func WithDefaultBPM(bpm float64) ComposerOption {
	return func(s *ComposerService) { s.defaultBPM = bpm }
}

func NewComposerService(opts ...ComposerOption) *ComposerService {
	s := &ComposerService{sentry: metrics.NewSentryMetrics(), defaultBPM: generator.DefaultBPM}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Store returns the archive, or nil when none is configured.
func (s *ComposerService) Store() *database.Store { return s.store }

// Compose generates the work described by req.
func (s *ComposerService) Compose(ctx context.Context, req models.GenerationRequest) (*Composition, error) {
	var (
		cfg any
		run func(context.Context) (*generator.Result, error)
	)
	switch strings.ToLower(req.Form) {
	case FormGoldberg:
		gc, err := GoldbergConfigFromRequest(req, s.defaultBPM)
		if err != nil {
			return nil, err
		}
		cfg = gc
		run = func(ctx context.Context) (*generator.Result, error) { return generator.GenerateGoldberg(ctx, gc) }
	case FormToccata:
		tc, err := ToccataConfigFromRequest(req)
		if err != nil {
			return nil, err
		}
		cfg = tc
		run = func(ctx context.Context) (*generator.Result, error) { return generator.GenerateToccata(ctx, tc) }
	default:
		return nil, &generator.ConfigError{Field: "form", Message: fmt.Sprintf("unknown form %q", req.Form)}
	}
	req.Form = strings.ToLower(req.Form)

	key, err := cache.Key(req.Form, req.Seed, cfg)
	if err != nil {
		return nil, err
	}
	if res, err := s.cache.Get(ctx, key); err == nil {
		s.prom.RecordCache(true)
		data, err := export.Encode(res)
		if err != nil {
			return nil, err
		}
		return &Composition{ConfigKey: key, Cached: true, Result: res, MIDI: data}, nil
	} else if key != "" {
		if !errors.Is(err, cache.ErrMiss) {
			logger.Warn("Cache read failed", logger.Fields{"key": key, "error": err.Error()})
		}
		s.prom.RecordCache(false)
	}

	started := time.Now()
	res, err := run(ctx)
	elapsed := time.Since(started)
	if err != nil {
		s.record(ctx, req.Form, 0, elapsed, false, nil)
		return nil, err
	}
	s.record(ctx, req.Form, res.NoteCount(), elapsed, res.Success, res.Report.Counts())
	logger.LogGeneration(ctx, req.Form, res.Seed, elapsed, res.NoteCount(), logger.Fields{
		"key":     res.Key.String(),
		"success": res.Success,
	})

	comp := &Composition{ConfigKey: key, Result: res}
	if !res.Success {
		logger.LogToSentry(sentry.LevelWarning, "Generation produced no music", logger.Fields{
			"form":  req.Form,
			"seed":  res.Seed,
			"error": res.Error,
		})
		return comp, nil
	}
	if comp.MIDI, err = export.Encode(res); err != nil {
		return nil, err
	}
	if key == "" {
		// an unseeded request is cached under the seed it resolved to
		req.Seed = res.Seed
		if comp.ConfigKey, err = s.keyFor(req); err != nil {
			return nil, err
		}
	}
	s.cache.Put(ctx, comp.ConfigKey, res)
	s.archive(ctx, req, comp)
	return comp, nil
}

func (s *ComposerService) keyFor(req models.GenerationRequest) (string, error) {
	switch req.Form {
	case FormGoldberg:
		gc, err := GoldbergConfigFromRequest(req, s.defaultBPM)
		if err != nil {
			return "", err
		}
		return cache.Key(req.Form, req.Seed, gc)
	default:
		tc, err := ToccataConfigFromRequest(req)
		if err != nil {
			return "", err
		}
		return cache.Key(req.Form, req.Seed, tc)
	}
}

func (s *ComposerService) record(ctx context.Context, form string, notes int, d time.Duration, success bool, repairs map[string]int) {
	s.prom.RecordGeneration(form, notes, d, success, repairs)
	s.sentry.RecordGeneration(ctx, form, notes, d, success)
	s.cloudwatch.RecordGeneration(form, notes, d, success)
}

func (s *ComposerService) archive(ctx context.Context, req models.GenerationRequest, comp *Composition) {
	if s.store == nil {
		return
	}
	res := comp.Result
	row := &models.Composition{
		Form:       req.Form,
		Key:        res.Key.String(),
		Seed:       res.Seed,
		Request:    req,
		ConfigKey:  comp.ConfigKey,
		TotalTicks: int(res.TotalDuration),
		NoteCount:  res.NoteCount(),
		TrackCount: len(res.Tracks),
		Success:    res.Success,
		MIDI:       comp.MIDI,
	}
	if err := s.store.Save(ctx, row); err != nil {
		logger.Error("Failed to archive composition", err, logger.Fields{"form": req.Form, "seed": res.Seed})
		return
	}
	comp.ID = row.ID
}

// GoldbergConfigFromRequest maps a request onto a Goldberg configuration.
// defaultBPM is the aria tempo used when the request names none.
func GoldbergConfigFromRequest(req models.GenerationRequest, defaultBPM float64) (generator.GoldbergConfig, error) {
	cfg := generator.DefaultGoldbergConfig()
	cfg.Seed = req.Seed
	cfg.BPM = bpmOrDefault(req.BPM, defaultBPM)
	if req.ApplyRepeats != nil {
		cfg.Repeats = *req.ApplyRepeats
	}
	cfg.OrnamentRepeats = req.OrnamentRepeats
	if req.Key != "" {
		k, err := theory.ParseKey(req.Key)
		if err != nil {
			return cfg, &generator.ConfigError{Field: "key", Message: err.Error()}
		}
		cfg.Key = k
	}
	scale, err := planner.ParseDurationScale(req.Scale)
	if err != nil {
		return cfg, &generator.ConfigError{Field: "scale", Message: err.Error()}
	}
	cfg.Scale = scale
	return cfg, nil
}

// ToccataConfigFromRequest maps a request onto a toccata configuration.
func ToccataConfigFromRequest(req models.GenerationRequest) (generator.ToccataConfig, error) {
	cfg := generator.DefaultToccataConfig()
	cfg.Seed = req.Seed
	if req.BPM > 0 {
		cfg.BPM = float64(req.BPM)
	}
	if req.EnablePicardy != nil {
		cfg.Picardy = *req.EnablePicardy
	}
	if req.Key != "" {
		k, err := theory.ParseKey(req.Key)
		if err != nil {
			return cfg, &generator.ConfigError{Field: "key", Message: err.Error()}
		}
		cfg.Key = k
	}
	if req.Archetype != "" {
		a, err := planner.ParseArchetype(req.Archetype)
		if err != nil {
			return cfg, &generator.ConfigError{Field: "archetype", Message: err.Error()}
		}
		cfg.Archetype = a
	}
	if req.NumVoices != 0 {
		cfg.Voices = req.NumVoices
	}
	if req.TotalBars != 0 {
		cfg.TotalBars = req.TotalBars
	}
	return cfg, nil
}

func bpmOrDefault(bpm int, def float64) float64 {
	if bpm > 0 {
		return float64(bpm)
	}
	return def
}
