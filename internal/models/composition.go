package models

import (
	"time"

	"gorm.io/gorm"
)

// GenerationRequest wraps the caller's generation parameters
type GenerationRequest struct {
	Form      string `json:"form" binding:"omitempty,oneof=goldberg toccata"`
	Key       string `json:"key"`                 // e.g. "G", "D minor"
	Seed      uint32 `json:"seed"`                // 0 derives a seed from the clock
	BPM       int    `json:"bpm"`                 // clamped to 30..200
	Scale     string `json:"scale,omitempty"`     // goldberg: short, medium, long, full
	Archetype string `json:"archetype,omitempty"` // toccata: dramaticus, perpetuus, concertato, sectionalis

	// Goldberg options
	ApplyRepeats    *bool `json:"apply_repeats,omitempty"` // default on
	OrnamentRepeats bool  `json:"ornament_repeats,omitempty"`

	// Toccata options
	NumVoices     int   `json:"num_voices,omitempty"`
	TotalBars     int   `json:"total_bars,omitempty"`
	EnablePicardy *bool `json:"enable_picardy,omitempty"` // default on
}

// Composition is an archived generated work
type Composition struct {
	ID        string         `gorm:"primaryKey;type:uuid" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Configuration
	Form      string            `gorm:"not null;index" json:"form"`
	Key       string            `json:"key"`
	Seed      uint32            `gorm:"not null" json:"seed"`
	Request   GenerationRequest `gorm:"type:jsonb;serializer:json" json:"request"`
	ConfigKey string            `gorm:"index" json:"config_key"` // cache key of the request

	// Summary
	TotalTicks int  `json:"total_ticks"`
	NoteCount  int  `json:"note_count"`
	TrackCount int  `json:"track_count"`
	Success    bool `json:"success"`

	// Rendered standard MIDI file
	MIDI []byte `gorm:"column:midi;type:bytea" json:"-"`
}

// TableName keeps the table name stable regardless of pluralization rules
func (Composition) TableName() string {
	return "compositions"
}
