package memory

import (
	"github.com/GetAnima/anima-memory/internal/scoring"
)

// DecayStats summarizes one decay sweep.
type DecayStats struct {
	Decayed  int `json:"decayed"`  // memories whose salience dropped
	Archived int `json:"archived"` // memories in the archived tier after the sweep
	Kept     int `json:"kept"`     // memories surviving the prune
}

// RunDecay recomputes every memory's decay and salience scores, reassigns
// tiers from salience thresholds, and finally prunes memories that are
// archived with salience at or below the prune floor. Critical memories are
// never archived or pruned.
func (s *Store) RunDecay() (DecayStats, error) {
	s.ensureLoaded()
	now := s.now()

	var stats DecayStats
	for _, m := range s.entries {
		ageHours := now.Sub(m.CreatedAt).Hours()

		d := scoring.Decay(string(m.Type), ageHours, m.AccessCount, m.EmotionalWeight, s.rates)
		raw := scoring.Salience(
			novelty(m),
			retention(m.AccessCount),
			momentum(ageHours),
			s.continuity(m),
			effort(m),
		)
		sal := scoring.Clamp01(raw * (1 - d))

		if sal < m.Salience {
			stats.Decayed++
		}
		m.Decay = d
		m.Salience = sal

		switch {
		case sal < 0.2:
			if m.Importance == ImportanceCritical {
				m.Tier = TierCold
			} else {
				m.Tier = TierArchived
			}
		case sal < 0.5:
			m.Tier = TierCold
		case sal < 0.7:
			m.Tier = TierWarm
		default:
			m.Tier = TierHot
		}

		if m.Tier == TierArchived {
			stats.Archived++
		}
	}

	// Prune only after the full pass so one sweep's counts are consistent.
	kept := s.entries[:0]
	for _, m := range s.entries {
		if m.Tier == TierArchived && m.Salience <= pruneSalience && m.Importance != ImportanceCritical {
			continue
		}
		kept = append(kept, m)
	}
	s.entries = kept
	stats.Kept = len(kept)

	if err := s.Flush(); err != nil {
		return stats, err
	}
	return stats, nil
}
