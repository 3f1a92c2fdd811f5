package theory

// ChordDegree is the harmonic function of a chord relative to the key.
type ChordDegree int

const (
	DegreeI ChordDegree = iota
	DegreeII
	DegreeIII
	DegreeIV
	DegreeV
	DegreeVI
	DegreeVIIDim
	DegreeV7
	DegreeVofV
	DegreeVofVI
	DegreeVofIV
	DegreeFlatIII
	DegreeFlatVI
	DegreeFlatVII
	DegreeNeapolitan
)

func (d ChordDegree) String() string {
	switch d {
	case DegreeI:
		return "I"
	case DegreeII:
		return "ii"
	case DegreeIII:
		return "iii"
	case DegreeIV:
		return "IV"
	case DegreeV:
		return "V"
	case DegreeVI:
		return "vi"
	case DegreeVIIDim:
		return "vii°"
	case DegreeV7:
		return "V7"
	case DegreeVofV:
		return "V/V"
	case DegreeVofVI:
		return "V/vi"
	case DegreeVofIV:
		return "V/IV"
	case DegreeFlatIII:
		return "bIII"
	case DegreeFlatVI:
		return "bVI"
	case DegreeFlatVII:
		return "bVII"
	case DegreeNeapolitan:
		return "N6"
	}
	return "?"
}

// IsDominant reports whether the degree has dominant function.
func (d ChordDegree) IsDominant() bool {
	switch d {
	case DegreeV, DegreeV7, DegreeVIIDim, DegreeVofV, DegreeVofVI, DegreeVofIV:
		return true
	}
	return false
}

// ChordQuality is the interval structure of a chord.
type ChordQuality int

const (
	QualityMajor ChordQuality = iota
	QualityMinor
	QualityDiminished
	QualityAugmented
	QualityDominant7
	QualityMinor7
	QualityMajor7
	QualityHalfDiminished7
	QualityDiminished7
)

var qualityIntervals = map[ChordQuality][]int{
	QualityMajor:           {0, 4, 7},
	QualityMinor:           {0, 3, 7},
	QualityDiminished:      {0, 3, 6},
	QualityAugmented:       {0, 4, 8},
	QualityDominant7:       {0, 4, 7, 10},
	QualityMinor7:          {0, 3, 7, 10},
	QualityMajor7:          {0, 4, 7, 11},
	QualityHalfDiminished7: {0, 3, 6, 10},
	QualityDiminished7:     {0, 3, 6, 9},
}

func (q ChordQuality) String() string {
	switch q {
	case QualityMajor:
		return "major"
	case QualityMinor:
		return "minor"
	case QualityDiminished:
		return "diminished"
	case QualityAugmented:
		return "augmented"
	case QualityDominant7:
		return "dom7"
	case QualityMinor7:
		return "min7"
	case QualityMajor7:
		return "maj7"
	case QualityHalfDiminished7:
		return "half_dim7"
	case QualityDiminished7:
		return "dim7"
	}
	return "?"
}

// Chord is a chord built on a degree of a key.
type Chord struct {
	Degree    ChordDegree  `json:"degree"`
	Quality   ChordQuality `json:"quality"`
	RootPC    int          `json:"root_pc"`
	Inversion int          `json:"inversion"`
}

// BuildChord returns the chord for degree in key, with a quality consistent
// with the mode (minor keys use the harmonic-minor dominant).
func BuildChord(degree ChordDegree, key Key) Chord {
	t := FloorMod(key.Tonic, 12)
	at := func(semi int) int { return FloorMod(t+semi, 12) }
	c := Chord{Degree: degree}
	if !key.Minor {
		switch degree {
		case DegreeI:
			c.RootPC, c.Quality = at(0), QualityMajor
		case DegreeII:
			c.RootPC, c.Quality = at(2), QualityMinor
		case DegreeIII:
			c.RootPC, c.Quality = at(4), QualityMinor
		case DegreeIV:
			c.RootPC, c.Quality = at(5), QualityMajor
		case DegreeV:
			c.RootPC, c.Quality = at(7), QualityMajor
		case DegreeVI:
			c.RootPC, c.Quality = at(9), QualityMinor
		case DegreeVIIDim:
			c.RootPC, c.Quality = at(11), QualityDiminished
		}
	} else {
		switch degree {
		case DegreeI:
			c.RootPC, c.Quality = at(0), QualityMinor
		case DegreeII:
			c.RootPC, c.Quality = at(2), QualityDiminished
		case DegreeIII:
			c.RootPC, c.Quality = at(3), QualityMajor
		case DegreeIV:
			c.RootPC, c.Quality = at(5), QualityMinor
		case DegreeV:
			c.RootPC, c.Quality = at(7), QualityMajor
		case DegreeVI:
			c.RootPC, c.Quality = at(8), QualityMajor
		case DegreeVIIDim:
			c.RootPC, c.Quality = at(11), QualityDiminished
		}
	}
	switch degree {
	case DegreeV7:
		c.RootPC, c.Quality = at(7), QualityDominant7
	case DegreeVofV:
		c.RootPC, c.Quality = at(2), QualityMajor
	case DegreeVofVI:
		target := 9
		if key.Minor {
			target = 8
		}
		c.RootPC, c.Quality = at(target+7), QualityMajor
	case DegreeVofIV:
		c.RootPC, c.Quality = at(0), QualityDominant7
	case DegreeFlatIII:
		c.RootPC, c.Quality = at(3), QualityMajor
	case DegreeFlatVI:
		c.RootPC, c.Quality = at(8), QualityMajor
	case DegreeFlatVII:
		c.RootPC, c.Quality = at(10), QualityMajor
	case DegreeNeapolitan:
		c.RootPC, c.Quality = at(1), QualityMajor
	}
	return c
}

// WithInversion returns a copy of c in the given inversion.
func (c Chord) WithInversion(inv int) Chord {
	n := len(qualityIntervals[c.Quality])
	c.Inversion = FloorMod(inv, n)
	return c
}

// Intervals returns the semitone offsets of the chord from its root.
func (c Chord) Intervals() []int {
	return qualityIntervals[c.Quality]
}

// PitchClasses returns the chord's pitch classes, root first.
func (c Chord) PitchClasses() []int {
	iv := c.Intervals()
	out := make([]int, len(iv))
	for i, v := range iv {
		out[i] = FloorMod(c.RootPC+v, 12)
	}
	return out
}

// ThirdPC returns the pitch class of the chord's third.
func (c Chord) ThirdPC() int {
	return FloorMod(c.RootPC+c.Intervals()[1], 12)
}

// FifthPC returns the pitch class of the chord's fifth.
func (c Chord) FifthPC() int {
	return FloorMod(c.RootPC+c.Intervals()[2], 12)
}

// BassPC returns the pitch class in the bass for the chord's inversion.
func (c Chord) BassPC() int {
	pcs := c.PitchClasses()
	return pcs[FloorMod(c.Inversion, len(pcs))]
}

// Contains reports whether pitch is a chord tone.
func (c Chord) Contains(pitch int) bool {
	pc := PitchClass(pitch)
	for _, v := range c.PitchClasses() {
		if v == pc {
			return true
		}
	}
	return false
}

// ChordTonesInRange lists every chord tone in [lo, hi] ascending.
func ChordTonesInRange(c Chord, lo, hi int) []int {
	var out []int
	for p := ClampPitch(lo); p <= ClampPitch(hi); p++ {
		if c.Contains(p) {
			out = append(out, p)
		}
	}
	return out
}

// NearestChordTone returns the chord tone closest to pitch (ties downward).
func NearestChordTone(c Chord, pitch int) int {
	if c.Contains(pitch) {
		return pitch
	}
	for d := 1; d <= 6; d++ {
		if c.Contains(pitch - d) {
			return ClampPitch(pitch - d)
		}
		if c.Contains(pitch + d) {
			return ClampPitch(pitch + d)
		}
	}
	return pitch
}
