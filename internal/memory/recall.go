package memory

import (
	"sort"
	"time"

	"github.com/GetAnima/anima-memory/internal/lexical"
)

// Recall finds memories by lexical word overlap: +1 per query word found in
// the content, +2 per query word found in the tags. A memory with zero word
// matches is excluded outright, not merely ranked low. Matches get additive
// boosts for importance, recency, and salience; ties keep insertion order.
// Every returned memory's access count is incremented and persisted.
func (s *Store) Recall(query string, limit int) ([]*Memory, error) {
	if limit <= 0 {
		limit = 10
	}
	s.ensureLoaded()

	queryWords := lexical.Words(query)
	if len(queryWords) == 0 {
		return nil, nil
	}

	type scored struct {
		m     *Memory
		score float64
	}
	var matches []scored

	now := s.now()
	for _, m := range s.entries {
		contentWords := lexical.WordSet(m.Content)
		tagWords := lexical.WordSet(joinTags(m.Tags))

		overlap := float64(lexical.Overlap(queryWords, contentWords)) +
			2*float64(lexical.Overlap(queryWords, tagWords))
		if overlap == 0 {
			continue
		}

		score := overlap + float64(importanceRank[m.Importance])
		age := now.Sub(m.CreatedAt)
		switch {
		case age < time.Hour:
			score += 2
		case age < 24*time.Hour:
			score += 1
		}
		score += 2 * m.Salience

		matches = append(matches, scored{m: m, score: score})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]*Memory, len(matches))
	for i, sc := range matches {
		sc.m.AccessCount++
		out[i] = sc.m
	}
	if len(out) > 0 {
		if err := s.Flush(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func joinTags(tags []string) string {
	joined := ""
	for _, t := range tags {
		joined += t + " "
	}
	return joined
}
