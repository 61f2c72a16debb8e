package episode

// ConsolidateStats reports one consolidation sweep.
type ConsolidateStats struct {
	Scanned   int `json:"scanned"`
	Archived  int `json:"archived"`
	Distilled int `json:"distilled"`
}

// Episodes older than this with low decay resistance are archived.
const consolidateAgeDays = 30

// Consolidate sweeps unarchived episodes: old episodes with low decay
// resistance are soft-archived; everything else has any not-yet-distilled
// lesson pushed into knowledge. Archival is reversible: the record stays in
// the index with its archived flag set.
func (s *Store) Consolidate() (ConsolidateStats, error) {
	s.ensureLoaded()
	now := s.now()

	var stats ConsolidateStats
	for _, e := range s.entries {
		if e.Archived {
			continue
		}
		stats.Scanned++

		resistance := 0.5*e.Importance + 0.3*e.EmotionalWeight + 0.2*capped(0.1*float64(e.AccessCount), 1)
		ageDays := now.Sub(e.Timestamp).Hours() / 24

		if ageDays > consolidateAgeDays && resistance < 0.3 {
			archivedAt := now
			e.Archived = true
			e.ArchivedAt = &archivedAt
			stats.Archived++
			continue
		}

		if s.knowledge == nil {
			continue
		}
		for _, lesson := range e.Lessons {
			if s.knowledge.hasDistilled(e.ID, lesson) {
				continue
			}
			topic := lessonTopic(e, lesson)
			if _, err := s.knowledge.Learn(topic, lesson, LearnOpts{
				Tags:           e.Tags,
				SourceEpisodes: []string{e.ID},
			}); err != nil {
				continue
			}
			stats.Distilled++
		}
	}

	if err := s.Flush(); err != nil {
		return stats, err
	}
	return stats, nil
}

// Unarchive clears an episode's archived flag.
func (s *Store) Unarchive(id string) error {
	e := s.Get(id)
	if e == nil {
		return ErrNotFound
	}
	e.Archived = false
	e.ArchivedAt = nil
	return s.Flush()
}
