package export

import (
	"bytes"
	"fmt"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/Conceptual-Machines/bachgen/internal/models"
	"github.com/Conceptual-Machines/bachgen/internal/theory"
)

// Song is the content of a decoded SMF.
type Song struct {
	Resolution     int                         `json:"resolution"`
	Tempo          []models.TempoEvent         `json:"tempo_events"`
	TimeSignatures []models.TimeSignatureEvent `json:"time_signature_events"`
	Markers        []models.MarkerEvent        `json:"markers"`
	Tracks         []models.Track              `json:"tracks"`
	Duration       theory.Tick                 `json:"total_duration"`
}

// Decode parses an SMF written by Write. Tick values are rescaled when the
// file uses another resolution.
func Decode(data []byte) (*Song, error) {
	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse MIDI file: %w", err)
	}

	ppq := uint32(Resolution)
	if mt, ok := s.TimeFormat.(smf.MetricTicks); ok {
		ppq = uint32(mt)
	}
	scale := func(t uint32) theory.Tick {
		return theory.Tick(uint64(t) * uint64(Resolution) / uint64(ppq))
	}

	song := &Song{Resolution: int(ppq)}
	for _, tr := range s.Tracks {
		var abs uint32
		var track models.Track
		open := map[uint8][]models.NoteEvent{}
		for _, ev := range tr {
			abs += ev.Delta
			at := scale(abs)
			msg := ev.Message
			cm := midi.Message(msg)

			var (
				bpm          float64
				num, den     uint8
				text         string
				ch, key, vel uint8
				program      uint8
			)
			switch {
			case msg.GetMetaTempo(&bpm):
				song.Tempo = append(song.Tempo, models.TempoEvent{Tick: at, BPM: bpm})
			case msg.GetMetaMeter(&num, &den):
				song.TimeSignatures = append(song.TimeSignatures, models.TimeSignatureEvent{
					Tick:          at,
					TimeSignature: theory.TimeSignature{Numerator: int(num), Denominator: int(den)},
				})
			case msg.GetMetaMarker(&text):
				song.Markers = append(song.Markers, models.MarkerEvent{Tick: at, Text: text})
			case msg.GetMetaTrackName(&text):
				track.Name = text
			case cm.GetProgramChange(&ch, &program):
				track.Channel = int(ch)
				track.Program = int(program)
			case cm.GetNoteStart(&ch, &key, &vel):
				track.Channel = int(ch)
				open[key] = append(open[key], models.NoteEvent{StartTick: at, Pitch: int(key), Velocity: int(vel)})
			case cm.GetNoteEnd(&ch, &key):
				q := open[key]
				if len(q) == 0 {
					continue
				}
				n := q[0]
				open[key] = q[1:]
				n.Duration = at - n.StartTick
				track.Notes = append(track.Notes, n)
			}
			if at > song.Duration {
				song.Duration = at
			}
		}
		if len(track.Notes) > 0 {
			sort.SliceStable(track.Notes, func(i, j int) bool {
				return track.Notes[i].StartTick < track.Notes[j].StartTick
			})
			song.Tracks = append(song.Tracks, track)
		}
	}
	return song, nil
}

// NoteCount returns the number of notes over all tracks.
func (s *Song) NoteCount() int {
	n := 0
	for _, t := range s.Tracks {
		n += len(t.Notes)
	}
	return n
}
