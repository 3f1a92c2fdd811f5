package theory

import "fmt"

// Tick is a position or length on the fixed 480-per-quarter grid.
type Tick int

// Grid constants
const (
	TicksPerBeat Tick = 480
	BeatsPerBar       = 4
	TicksPerBar  Tick = TicksPerBeat * BeatsPerBar

	// Common note lengths
	Whole         = TicksPerBar
	Half          = TicksPerBeat * 2
	DottedQuarter = TicksPerBeat * 3 / 2
	Quarter       = TicksPerBeat
	Eighth        = TicksPerBeat / 2
	Sixteenth     = TicksPerBeat / 4
	ThirtySecond  = TicksPerBeat / 8
)

// TimeSignature is a meter such as 3/4 or 12/8.
type TimeSignature struct {
	Numerator   int `json:"numerator"`
	Denominator int `json:"denominator"`
}

// Common meters
var (
	Time4_4  = TimeSignature{4, 4}
	Time2_2  = TimeSignature{2, 2}
	Time2_4  = TimeSignature{2, 4}
	Time3_4  = TimeSignature{3, 4}
	Time3_8  = TimeSignature{3, 8}
	Time6_8  = TimeSignature{6, 8}
	Time9_8  = TimeSignature{9, 8}
	Time12_8 = TimeSignature{12, 8}
)

func (ts TimeSignature) String() string {
	return fmt.Sprintf("%d/%d", ts.Numerator, ts.Denominator)
}

// BeatTicks returns the length of one notated beat (the denominator unit).
func (ts TimeSignature) BeatTicks() Tick {
	if ts.Denominator <= 0 {
		return TicksPerBeat
	}
	return TicksPerBar / Tick(ts.Denominator)
}

// BarTicks returns the length of one bar.
func (ts TimeSignature) BarTicks() Tick {
	if ts.Numerator <= 0 {
		return TicksPerBar
	}
	return Tick(ts.Numerator) * ts.BeatTicks()
}

// IsCompound reports whether the meter groups beats in threes (6/8, 9/8, 12/8).
func (ts TimeSignature) IsCompound() bool {
	return ts.Denominator >= 8 && ts.Numerator%3 == 0 && ts.Numerator > 3
}

// MetricLevel describes where a tick falls within its bar.
type MetricLevel int

const (
	LevelBar MetricLevel = iota
	LevelBeat
	LevelOffbeat
)

func (l MetricLevel) String() string {
	switch l {
	case LevelBar:
		return "bar"
	case LevelBeat:
		return "beat"
	default:
		return "offbeat"
	}
}

// MetricLevelAt classifies tick (relative to the start of the piece) under ts.
func MetricLevelAt(tick Tick, ts TimeSignature) MetricLevel {
	bar := ts.BarTicks()
	pos := tick % bar
	if pos < 0 {
		pos += bar
	}
	if pos == 0 {
		return LevelBar
	}
	if pos%ts.BeatTicks() == 0 {
		return LevelBeat
	}
	return LevelOffbeat
}

// BeatInBar returns the zero-based beat index of tick within its bar.
func BeatInBar(tick Tick, ts TimeSignature) int {
	bar := ts.BarTicks()
	pos := tick % bar
	if pos < 0 {
		pos += bar
	}
	return int(pos / ts.BeatTicks())
}

// IsAccentedBeat reports whether tick sits exactly on an accented beat:
// beat 0, or the middle beat of an even meter with four or more beats.
func IsAccentedBeat(tick Tick, ts TimeSignature) bool {
	if MetricLevelAt(tick, ts) == LevelOffbeat {
		return false
	}
	beat := BeatInBar(tick, ts)
	if beat == 0 {
		return true
	}
	if ts.IsCompound() {
		return beat%3 == 0 && beat == ts.Numerator/2
	}
	return ts.Numerator >= 4 && ts.Numerator%2 == 0 && beat == ts.Numerator/2
}

// IsStrongBeat reports whether tick is on a beat with metric weight: the
// downbeat or, in compound meters, the start of each dotted group.
func IsStrongBeat(tick Tick, ts TimeSignature) bool {
	if MetricLevelAt(tick, ts) == LevelOffbeat {
		return false
	}
	beat := BeatInBar(tick, ts)
	if ts.IsCompound() {
		return beat%3 == 0
	}
	return beat == 0 || IsAccentedBeat(tick, ts)
}

// BarOf returns the zero-based bar index of tick.
func BarOf(tick Tick, ts TimeSignature) int {
	return int(tick / ts.BarTicks())
}

// MaxTick returns the larger of a and b.
func MaxTick(a, b Tick) Tick {
	if a > b {
		return a
	}
	return b
}

// MinTick returns the smaller of a and b.
func MinTick(a, b Tick) Tick {
	if a < b {
		return a
	}
	return b
}
