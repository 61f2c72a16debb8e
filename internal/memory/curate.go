package memory

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/GetAnima/anima-memory/internal/storage"
)

// CurateOpts tune which memories get promoted to the durable artifact.
// Zero values take the defaults: 48 hours back, medium importance, 0.5
// salience.
type CurateOpts struct {
	HoursBack     int
	MinImportance Importance
	MinSalience   float64
	DryRun        bool
}

// CurateStats reports a curation pass.
type CurateStats struct {
	Curated int  `json:"curated"`
	Written bool `json:"written"`
}

// Tags that keep a memory out of curation. "curated" is stamped onto
// promoted memories so a second identical pass is a no-op.
var curationExcludedTags = []string{"system", "boot", "curated"}

// Curate promotes recent, important, high-salience memories into the durable
// curated artifact. Entries whose leading content already appears in the
// artifact are skipped, which makes back-to-back passes idempotent.
func (s *Store) Curate(opts CurateOpts) (CurateStats, error) {
	if opts.HoursBack <= 0 {
		opts.HoursBack = 48
	}
	if opts.MinImportance == "" {
		opts.MinImportance = ImportanceMedium
	}
	if _, ok := importanceRank[opts.MinImportance]; !ok {
		return CurateStats{}, fmt.Errorf("%w: %q", ErrUnknownImportance, opts.MinImportance)
	}
	if opts.MinSalience == 0 {
		opts.MinSalience = 0.5
	}

	s.ensureLoaded()
	now := s.now()
	cutoff := now.Add(-time.Duration(opts.HoursBack) * time.Hour)

	var candidates []*Memory
	for _, m := range s.entries {
		if m.CreatedAt.Before(cutoff) {
			continue
		}
		if importanceRank[m.Importance] < importanceRank[opts.MinImportance] {
			continue
		}
		if m.Salience < opts.MinSalience {
			continue
		}
		if hasAnyTag(m, curationExcludedTags) {
			continue
		}
		candidates = append(candidates, m)
	}

	// Dedup against the existing artifact by leading-content match.
	artifact := s.readArtifact()
	var fresh []*Memory
	for _, m := range candidates {
		prefix := m.Content
		if r := []rune(prefix); len(r) > 50 {
			prefix = string(r[:50])
		}
		if strings.Contains(artifact, prefix) {
			continue
		}
		fresh = append(fresh, m)
	}

	stats := CurateStats{Curated: len(fresh)}
	if opts.DryRun || len(fresh) == 0 {
		return stats, nil
	}

	sort.SliceStable(fresh, func(i, j int) bool {
		ri, rj := importanceRank[fresh[i].Importance], importanceRank[fresh[j].Importance]
		if ri != rj {
			return ri > rj
		}
		return fresh[i].Salience > fresh[j].Salience
	})

	var b strings.Builder
	fmt.Fprintf(&b, "\n## %s\n", now.Format("2006-01-02 15:04"))
	for _, m := range fresh {
		fmt.Fprintf(&b, "- [%s] %s", m.Importance, m.Content)
		if len(m.Tags) > 0 {
			fmt.Fprintf(&b, " (tags: %s)", strings.Join(m.Tags, ", "))
		}
		b.WriteByte('\n')
	}

	if err := storage.AppendLine(s.layout.CuratedPath(), strings.TrimSuffix(b.String(), "\n")); err != nil {
		return stats, fmt.Errorf("write curated artifact: %w", err)
	}

	for _, m := range fresh {
		m.Tags = append(m.Tags, "curated")
	}
	if err := s.Flush(); err != nil {
		return stats, err
	}

	stats.Written = true
	return stats, nil
}

func (s *Store) readArtifact() string {
	data, err := os.ReadFile(s.layout.CuratedPath())
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("memory: read curated artifact: %v", err)
		}
		return ""
	}
	return string(data)
}

func hasAnyTag(m *Memory, tags []string) bool {
	for _, t := range tags {
		if m.hasTag(t) {
			return true
		}
	}
	return false
}
