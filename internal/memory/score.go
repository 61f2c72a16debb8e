package memory

// Salience component heuristics. These are recomputable from a memory's
// stored fields so the decay sweep can rebuild raw salience without
// persisting the individual components.

var importanceNovelty = map[Importance]float64{
	ImportanceLow:      0,
	ImportanceMedium:   0.1,
	ImportanceHigh:     0.25,
	ImportanceCritical: 0.35,
}

// novelty estimates how attention-worthy a memory is from its declared
// importance, emotional weight, and content length.
func novelty(m *Memory) float64 {
	lengthBonus := float64(len(m.Content)) / 800
	if lengthBonus > 0.15 {
		lengthBonus = 0.15
	}
	return 0.5 + importanceNovelty[m.Importance] + 0.15*m.EmotionalWeight + lengthBonus
}

// effort estimates how costly the memory was to record: long untagged prose
// scores high, short pre-structured entries low.
func effort(m *Memory) float64 {
	e := float64(len(m.Content))/1200 - 0.05*float64(len(m.Tags))
	if e < 0 {
		return 0
	}
	if e > 1 {
		return 1
	}
	return e
}

// continuity is the fraction of m's tags that already appear on another
// stored memory. Untagged memories have no continuity signal.
func (s *Store) continuity(m *Memory) float64 {
	if len(m.Tags) == 0 {
		return 0
	}
	shared := 0
	for _, tag := range m.Tags {
		for _, other := range s.entries {
			if other.ID == m.ID {
				continue
			}
			if other.hasTag(tag) {
				shared++
				break
			}
		}
	}
	return float64(shared) / float64(len(m.Tags))
}

// retention grows with recall hits, saturating at ten accesses.
func retention(accessCount int) float64 {
	r := 0.1 * float64(accessCount)
	if r > 1 {
		return 1
	}
	return r
}

// momentum starts at 1 and fades linearly to 0 over one week of age.
func momentum(ageHours float64) float64 {
	m := 1 - ageHours/168
	if m < 0 {
		return 0
	}
	return m
}
