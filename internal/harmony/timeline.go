// Package harmony holds the harmonic timeline shared by generators and
// repair passes.
package harmony

import (
	"fmt"
	"sort"

	"github.com/Conceptual-Machines/bachgen/internal/theory"
)

// Event is one harmonic span: [Tick, EndTick) under Chord in Key.
type Event struct {
	Tick      theory.Tick  `json:"tick"`
	EndTick   theory.Tick  `json:"end_tick"`
	Key       theory.Key   `json:"key"`
	Chord     theory.Chord `json:"chord"`
	BassPitch int          `json:"bass_pitch"`
	Weight    float64      `json:"weight"`
	Immutable bool         `json:"immutable"`
}

// Duration returns the length of the span.
func (e Event) Duration() theory.Tick { return e.EndTick - e.Tick }

// Contains reports whether tick falls inside the span.
func (e Event) Contains(tick theory.Tick) bool { return tick >= e.Tick && tick < e.EndTick }

// IsChordTone reports whether pitch belongs to the event's chord.
func (e Event) IsChordTone(pitch int) bool { return e.Chord.Contains(pitch) }

// Timeline is an ordered, non-overlapping sequence of events.
type Timeline struct {
	events []Event
}

// NewTimeline builds a timeline from events, validating order.
func NewTimeline(events ...Event) (*Timeline, error) {
	tl := &Timeline{}
	for _, e := range events {
		if err := tl.Append(e); err != nil {
			return nil, err
		}
	}
	return tl, nil
}

// Append adds e after the last event. Events must be non-empty and must not
// start before the previous event ends.
func (tl *Timeline) Append(e Event) error {
	if e.EndTick <= e.Tick {
		return fmt.Errorf("harmonic event at tick %d has non-positive length", e.Tick)
	}
	if n := len(tl.events); n > 0 && e.Tick < tl.events[n-1].EndTick {
		return fmt.Errorf("harmonic event at tick %d overlaps previous event ending at %d", e.Tick, tl.events[n-1].EndTick)
	}
	tl.events = append(tl.events, e)
	return nil
}

// Len returns the number of events.
func (tl *Timeline) Len() int {
	if tl == nil {
		return 0
	}
	return len(tl.events)
}

// Events returns a copy of the events.
func (tl *Timeline) Events() []Event {
	if tl == nil {
		return nil
	}
	out := make([]Event, len(tl.events))
	copy(out, tl.events)
	return out
}

// At returns the event containing tick, or the nearest event starting below
// it when tick falls in a gap. Ticks before the first event map to the first.
func (tl *Timeline) At(tick theory.Tick) (Event, bool) {
	if tl.Len() == 0 {
		return Event{}, false
	}
	i := sort.Search(len(tl.events), func(i int) bool { return tl.events[i].Tick > tick })
	if i == 0 {
		return tl.events[0], true
	}
	return tl.events[i-1], true
}

// TotalDuration returns the end tick of the last event.
func (tl *Timeline) TotalDuration() theory.Tick {
	if tl.Len() == 0 {
		return 0
	}
	return tl.events[len(tl.events)-1].EndTick
}

// Offset returns a copy of the timeline shifted by delta ticks.
func (tl *Timeline) Offset(delta theory.Tick) *Timeline {
	out := &Timeline{events: tl.Events()}
	for i := range out.events {
		out.events[i].Tick += delta
		out.events[i].EndTick += delta
	}
	return out
}

// Concat appends every event of other, which must start at or after the end
// of tl.
func (tl *Timeline) Concat(other *Timeline) error {
	for _, e := range other.Events() {
		if err := tl.Append(e); err != nil {
			return err
		}
	}
	return nil
}

// Slice returns the events intersecting [from, to), rebased so from is tick 0.
func (tl *Timeline) Slice(from, to theory.Tick) *Timeline {
	out := &Timeline{}
	for _, e := range tl.events {
		if e.EndTick <= from || e.Tick >= to {
			continue
		}
		e.Tick = theory.MaxTick(e.Tick, from) - from
		e.EndTick = theory.MinTick(e.EndTick, to) - from
		out.events = append(out.events, e)
	}
	return out
}

// Transposed returns a copy with every event moved to key.
func (tl *Timeline) Transposed(key theory.Key) *Timeline {
	out := &Timeline{events: tl.Events()}
	for i, e := range out.events {
		shift := key.Tonic - e.Key.Tonic
		e.Chord = theory.BuildChord(e.Chord.Degree, key).WithInversion(e.Chord.Inversion)
		e.BassPitch = theory.ClampPitch(e.BassPitch + shift)
		e.Key = key
		out.events[i] = e
	}
	return out
}
