package episode

import (
	"sort"
	"strings"
	"time"
)

// Filter composes the episode query criteria. Zero values mean "no
// constraint".
type Filter struct {
	Text               string
	Tags               []string
	Participants       []string
	After              time.Time
	Before             time.Time
	MinImportance      float64
	MinEmotionalWeight float64
	IncludeArchived    bool
	Limit              int
}

// Query filters episodes and ranks them by relevance: importance plus
// recency, emotional weight, access, and text-match bonuses. Returned
// episodes have their access counts incremented and persisted.
func (s *Store) Query(f Filter) ([]*Episode, error) {
	s.ensureLoaded()
	limit := f.Limit
	if limit <= 0 {
		limit = 10
	}

	now := s.now()
	text := strings.ToLower(strings.TrimSpace(f.Text))

	type scored struct {
		e     *Episode
		score float64
	}
	var matches []scored

	for _, e := range s.entries {
		if e.Archived && !f.IncludeArchived {
			continue
		}
		if !f.After.IsZero() && e.Timestamp.Before(f.After) {
			continue
		}
		if !f.Before.IsZero() && e.Timestamp.After(f.Before) {
			continue
		}
		if e.Importance < f.MinImportance {
			continue
		}
		if e.EmotionalWeight < f.MinEmotionalWeight {
			continue
		}
		if !containsAll(e.Tags, f.Tags) {
			continue
		}
		if !containsAll(e.Participants, f.Participants) {
			continue
		}

		title := strings.ToLower(e.Title)
		summary := strings.ToLower(e.Summary)
		if text != "" && !strings.Contains(title, text) && !strings.Contains(summary, text) {
			continue
		}

		score := e.Importance
		age := now.Sub(e.Timestamp)
		switch {
		case age < 24*time.Hour:
			score += 0.3
		case age < 7*24*time.Hour:
			score += 0.1
		}
		score += 0.2 * e.EmotionalWeight
		score += capped(0.05*float64(e.AccessCount), 0.2)
		if text != "" {
			if strings.Contains(title, text) {
				score += 0.3
			} else if strings.Contains(summary, text) {
				score += 0.1
			}
		}

		matches = append(matches, scored{e: e, score: score})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]*Episode, len(matches))
	for i, sc := range matches {
		sc.e.AccessCount++
		out[i] = sc.e
	}
	if len(out) > 0 {
		if err := s.Flush(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// containsAll reports whether every wanted value appears in have,
// case-insensitively.
func containsAll(have, want []string) bool {
	for _, w := range want {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		found := false
		for _, h := range have {
			if strings.ToLower(h) == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
