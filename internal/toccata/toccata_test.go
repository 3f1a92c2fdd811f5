package toccata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conceptual-Machines/bachgen/internal/melody"
	"github.com/Conceptual-Machines/bachgen/internal/models"
	"github.com/Conceptual-Machines/bachgen/internal/planner"
	"github.com/Conceptual-Machines/bachgen/internal/theory"
)

func dramaticus(t *testing.T) *Piece {
	t.Helper()
	p, err := Generate(context.Background(), Config{
		Archetype: planner.ArchetypeDramaticus,
		Key:       theory.Key{Tonic: 2, Minor: true},
		Seed:      42,
		Voices:    3,
		TotalBars: 24,
		Picardy:   true,
	})
	require.NoError(t, err)
	return p
}

func TestDramaticusPhases(t *testing.T) {
	p := dramaticus(t)
	require.Len(t, p.Phases, 8)

	var bars []int
	var total theory.Tick
	for i, ph := range p.Phases {
		bars = append(bars, ph.Bars)
		total += ph.Duration()
		if i > 0 {
			assert.Equal(t, p.Phases[i-1].EndTick, ph.StartTick)
		}
	}
	assert.Equal(t, []int{2, 2, 4, 3, 2, 4, 4, 3}, bars)
	assert.Equal(t, 24*theory.TicksPerBar, total)
	assert.Equal(t, 24*theory.TicksPerBar, p.Duration)
	assert.Equal(t, "RecitExpansion", p.Phases[2].Name)
}

func TestDramaticusEndsOnPicardyThird(t *testing.T) {
	p := dramaticus(t)
	last := p.Duration - theory.TicksPerBar
	found := false
	for _, n := range p.Notes {
		if n.EndTick() > last && theory.PitchClass(n.Pitch) == 6 {
			found = true
		}
	}
	assert.True(t, found, "F# expected in the final bar")
	assert.Positive(t, p.Report.PicardyRaised)
}

func TestPedalPlaysInMostPhases(t *testing.T) {
	p := dramaticus(t)
	active := 0
	for _, ph := range p.Phases {
		if ph.PedalNotes > 0 {
			active++
		}
	}
	assert.GreaterOrEqual(t, active, 6)
	assert.Zero(t, p.Phases[2].PedalNotes, "recitative is manuals only")
}

func TestNotesStayInOrganRanges(t *testing.T) {
	for _, a := range []planner.Archetype{
		planner.ArchetypeDramaticus,
		planner.ArchetypePerpetuus,
		planner.ArchetypeConcertato,
		planner.ArchetypeSectionalis,
	} {
		for _, voices := range []int{2, 3, 4, 5} {
			p, err := Generate(context.Background(), Config{Archetype: a, Key: theory.Key{Tonic: 2, Minor: true}, Seed: 7, Voices: voices, TotalBars: 24})
			require.NoError(t, err)
			for _, n := range p.Notes {
				rg, ok := p.Ranges[n.Voice]
				require.True(t, ok, "%s voice %d", a, n.Voice)
				assert.True(t, rg.Contains(n.Pitch), "%s/%d voices: pitch %d outside voice %d", a, voices, n.Pitch, n.Voice)
				assert.Positive(t, n.Duration)
				assert.LessOrEqual(t, n.EndTick(), p.Duration)
				assert.Equal(t, OrganVelocity, n.Velocity)
			}
		}
	}
}

func TestSectionalisCadenzaIsPedalSolo(t *testing.T) {
	p, err := Generate(context.Background(), Config{
		Archetype: planner.ArchetypeSectionalis,
		Key:       theory.Key{Tonic: 2, Minor: true},
		Seed:      42,
		Voices:    3,
		TotalBars: 24,
	})
	require.NoError(t, err)
	require.Len(t, p.Phases, 5)
	cadenza := p.Phases[3]
	require.Equal(t, "Cadenza", cadenza.Name)

	var manual, short, all int
	for _, n := range p.Notes {
		if n.StartTick < cadenza.StartTick || n.StartTick >= cadenza.EndTick {
			continue
		}
		all++
		if n.Voice < 2 {
			manual++
		}
		if n.Voice == 2 && n.Duration <= 120 {
			short++
		}
	}
	assert.Zero(t, manual)
	require.Positive(t, all)
	assert.GreaterOrEqual(t, float64(short)/float64(all), 0.5)
}

func TestSectionalisFugatoEntries(t *testing.T) {
	p, err := Generate(context.Background(), Config{Archetype: planner.ArchetypeSectionalis, Key: theory.Key{Tonic: 2, Minor: true}, Seed: 42, Voices: 3, TotalBars: 24})
	require.NoError(t, err)
	fugato := p.Phases[1]
	first := map[int]theory.Tick{}
	for _, n := range p.Notes {
		if n.Source != models.SourceSubject && n.Source != models.SourceAnswer {
			continue
		}
		if _, ok := first[n.Voice]; !ok {
			first[n.Voice] = n.StartTick
		}
	}
	require.Len(t, first, 3)
	for v := 0; v < 3; v++ {
		assert.Equal(t, fugato.StartTick+theory.Tick(v)*theory.TicksPerBar, first[v], "voice %d", v)
	}
}

func TestPerpetuusKeepsTopVoiceMoving(t *testing.T) {
	p, err := Generate(context.Background(), Config{Archetype: planner.ArchetypePerpetuus, Key: theory.Key{Tonic: 0}, Seed: 3, Voices: 3, TotalBars: 12})
	require.NoError(t, err)
	last := p.Duration - theory.TicksPerBar
	for _, n := range p.Notes {
		if n.Voice == 0 && n.StartTick < last {
			assert.LessOrEqual(t, n.Duration, theory.Sixteenth, "tick %d", n.StartTick)
		}
	}
}

func TestRegistrationsFollowSections(t *testing.T) {
	p, err := Generate(context.Background(), Config{Archetype: planner.ArchetypeConcertato, Key: theory.Key{Tonic: 7}, Seed: 9, Voices: 3, TotalBars: 10})
	require.NoError(t, err)
	require.Len(t, p.Registrations, 3)
	assert.Equal(t, []string{"plenum", "recit", "plenum"}, []string{
		p.Registrations[0].Manual, p.Registrations[1].Manual, p.Registrations[2].Manual,
	})
	for i, r := range p.Registrations {
		assert.Equal(t, p.Phases[i].StartTick, r.Tick)
		assert.Equal(t, OrganVelocity, r.Velocity)
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	a := dramaticus(t)
	b := dramaticus(t)
	assert.Equal(t, a.Notes, b.Notes)
}

func TestNoOverlapsWithinAVoice(t *testing.T) {
	p := dramaticus(t)
	for v, notes := range models.ByVoice(p.Notes) {
		models.SortNotes(notes)
		for i := 1; i < len(notes); i++ {
			assert.LessOrEqual(t, notes[i-1].EndTick(), notes[i].StartTick, "voice %d at %d", v, notes[i].StartTick)
		}
	}
}

func TestGenerateRejectsEmptyPieces(t *testing.T) {
	_, err := Generate(context.Background(), Config{Archetype: planner.ArchetypeDramaticus, TotalBars: 0})
	assert.Error(t, err)
}

func TestClampVoices(t *testing.T) {
	assert.Equal(t, DefaultVoices, ClampVoices(0))
	assert.Equal(t, MinVoices, ClampVoices(1))
	assert.Equal(t, MaxVoices, ClampVoices(9))
	assert.Equal(t, 2, PedalVoice(3))
	r := OrganRanges(3)
	assert.Equal(t, PedalRange, r[2])
	assert.Equal(t, ManualRanges[1], r[1])
}

func TestHarmonicTension(t *testing.T) {
	assert.Less(t, HarmonicTension(theory.DegreeI, 0), HarmonicTension(theory.DegreeV7, 0))
	assert.Greater(t, HarmonicTension(theory.DegreeV, 1), HarmonicTension(theory.DegreeV, 0))
	assert.LessOrEqual(t, HarmonicTension(theory.DegreeNeapolitan, 1), 1.0)
}

func TestGenerateStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Generate(ctx, Config{Archetype: planner.ArchetypeDramaticus, Key: theory.Key{Tonic: 2, Minor: true}, Seed: 1, Voices: 3, TotalBars: 24})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBoundaryInto(t *testing.T) {
	fig := planner.ToccataSection{Phase: "A", Kind: planner.SectionFiguration}
	chordal := planner.ToccataSection{Phase: "A", Kind: planner.SectionChordal}
	next := planner.ToccataSection{Phase: "B", Kind: planner.SectionFiguration}
	back := planner.ToccataSection{Phase: "A", Kind: planner.SectionMotoPerpetuo}
	seen := map[string]bool{"A": true, "B": true}

	assert.Equal(t, melody.BoundaryDevelopment, boundaryInto(fig, back, seen))
	assert.Equal(t, melody.BoundaryCadence, boundaryInto(chordal, back, seen))
	assert.Equal(t, melody.BoundaryCadence, boundaryInto(fig, next, map[string]bool{"A": true}))
	assert.Equal(t, melody.BoundaryReentry, boundaryInto(next, back, seen))
}

func TestLineStateCarriesIntoNextSection(t *testing.T) {
	cfg := Config{
		Archetype: planner.ArchetypeDramaticus,
		Key:       theory.Key{Tonic: 2, Minor: true},
		Seed:      8,
		Voices:    3,
		TotalBars: 24,
	}
	plan := planner.ToccataPlan(cfg.Archetype, cfg.TotalBars)
	b := newBuilder(cfg)
	tl, err := b.timeline(plan)
	require.NoError(t, err)
	b.tl = tl

	b.section(plan[0], false)
	top := b.lines[0]
	assert.Equal(t, ProfileFor(plan[0].Phase).Contour, top.state.Contour)
	top.state.LastDirection = -1
	top.state.RunLength = 6
	before := *top.state

	kind := boundaryInto(plan[0], plan[1], b.seen)
	b.enterSection(plan[1], ProfileFor(plan[1].Phase))
	assert.Equal(t, before.LastDirection, top.state.LastDirection)
	assert.Equal(t, before.ConsecutiveLeaps, top.state.ConsecutiveLeaps)
	assert.LessOrEqual(t, top.state.RunLength, 2)
	assert.Equal(t, -1, top.state.LastDirection)
	assert.Equal(t, 0.0, top.state.PhraseProgress)
	if kind == melody.BoundaryCadence {
		assert.Equal(t, ProfileFor(plan[1].Phase).Contour, top.state.Contour)
	}
	assert.Equal(t, &plan[1], b.prev)
}
