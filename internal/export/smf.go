// Package export writes generated works as Standard MIDI Files and reads
// them back.
package export

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/Conceptual-Machines/bachgen/internal/generator"
	"github.com/Conceptual-Machines/bachgen/internal/models"
	"github.com/Conceptual-Machines/bachgen/internal/theory"
)

// Resolution matches the internal tick grid.
const Resolution = smf.MetricTicks(theory.Quarter)

// timed is an SMF message at an absolute tick.
type timed struct {
	tick  uint32
	order int
	msg   []byte
}

// Encode renders res as a type-1 SMF: a conductor track with the tempo
// map, meters and markers, then one track per output track.
func Encode(res *generator.Result) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, res); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write streams res as a type-1 SMF to w.
func Write(w io.Writer, res *generator.Result) error {
	if res == nil || !res.Success {
		return fmt.Errorf("nothing to export")
	}

	s := smf.New()
	s.TimeFormat = Resolution
	end := uint32(res.TotalDuration)

	if err := s.Add(conductor(res, end)); err != nil {
		return fmt.Errorf("failed to add conductor track: %w", err)
	}
	for _, t := range res.Tracks {
		if err := s.Add(noteTrack(t, end)); err != nil {
			return fmt.Errorf("failed to add track %s: %w", t.Name, err)
		}
	}

	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write MIDI file: %w", err)
	}
	return nil
}

func conductor(res *generator.Result, end uint32) smf.Track {
	var events []timed
	for _, ts := range res.TimeSignatures {
		m := ts.TimeSignature
		events = append(events, timed{uint32(ts.Tick), 0, smf.MetaMeter(uint8(m.Numerator), uint8(m.Denominator))})
	}
	for _, te := range res.Tempo {
		events = append(events, timed{uint32(te.Tick), 1, smf.MetaTempo(te.BPM)})
	}
	for _, mk := range res.Markers {
		events = append(events, timed{uint32(mk.Tick), 2, smf.MetaMarker(mk.Text)})
	}

	var track smf.Track
	track.Add(0, smf.MetaTrackSequenceName(fmt.Sprintf("bachgen %s (seed %d)", res.Form, res.Seed)))
	closeTrack(&track, events, end)
	return track
}

func noteTrack(t models.Track, end uint32) smf.Track {
	ch := uint8(t.Channel)
	events := make([]timed, 0, 2*len(t.Notes))
	for _, n := range t.Notes {
		on := uint32(n.StartTick)
		off := uint32(n.EndTick())
		// note-offs sort ahead of note-ons at the same tick
		events = append(events,
			timed{off, 0, midi.NoteOff(ch, uint8(n.Pitch))},
			timed{on, 1, midi.NoteOn(ch, uint8(n.Pitch), uint8(n.Velocity))},
		)
	}

	var track smf.Track
	track.Add(0, smf.MetaTrackSequenceName(t.Name))
	track.Add(0, midi.ProgramChange(ch, uint8(t.Program)))
	closeTrack(&track, events, end)
	return track
}

// closeTrack appends events in tick order as deltas and ends the track at end.
func closeTrack(track *smf.Track, events []timed, end uint32) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		return events[i].order < events[j].order
	})
	var last uint32
	for _, e := range events {
		track.Add(e.tick-last, e.msg)
		last = e.tick
	}
	var tail uint32
	if end > last {
		tail = end - last
	}
	track.Close(tail)
}
