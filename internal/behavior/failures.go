package behavior

import (
	"errors"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/GetAnima/anima-memory/internal/lexical"
	"github.com/GetAnima/anima-memory/internal/storage"
)

// Failure catalogs one known-bad situation/approach pair with its better
// alternative. Append-only except for avoidance increments and
// capacity-triggered eviction.
type Failure struct {
	ID             string    `json:"id"`
	Situation      string    `json:"situation"`
	FailedApproach string    `json:"failed_approach"`
	BetterApproach string    `json:"better_approach"`
	Tags           []string  `json:"tags,omitempty"`
	Avoidance      int       `json:"avoidance"`
	CreatedAt      time.Time `json:"created_at"`
}

// FailureMatch pairs a failure with its lexical relevance to a query.
type FailureMatch struct {
	Failure *Failure `json:"failure"`
	Score   float64  `json:"score"`
}

var (
	ErrEmptyFailedApproach = errors.New("failed approach is empty")
	ErrEmptyBetterApproach = errors.New("better approach is empty")
)

// Failures is the failure registry.
type Failures struct {
	layout   storage.Layout
	capacity int
	now      func() time.Time
	entries  []*Failure
	loaded   bool
}

func newFailures(layout storage.Layout, capacity int) *Failures {
	return &Failures{layout: layout, capacity: capacity, now: time.Now}
}

// Load reads the index; corrupt state is logged and treated as empty.
func (f *Failures) Load() error {
	var entries []*Failure
	res := storage.LoadIndex(f.layout.IndexPath("failures"), &entries)
	if res.State == storage.LoadCorrupt {
		log.Printf("failures: corrupt index, starting empty: %s", res.Reason)
		entries = nil
	}
	f.entries = entries
	f.loaded = true
	return nil
}

// Flush rewrites the index.
func (f *Failures) Flush() error {
	return storage.SaveIndex(f.layout.IndexPath("failures"), f.entries)
}

// Invalidate drops the cache so the next operation reloads.
func (f *Failures) Invalidate() { f.loaded = false }

func (f *Failures) ensureLoaded() {
	if !f.loaded {
		f.Load()
	}
}

// Len returns the number of recorded failures.
func (f *Failures) Len() int {
	f.ensureLoaded()
	return len(f.entries)
}

// Recent returns up to limit failures, newest first.
func (f *Failures) Recent(limit int) []*Failure {
	f.ensureLoaded()
	out := make([]*Failure, 0, limit)
	for i := len(f.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.entries[i])
	}
	return out
}

// RecordFailure stores a new failure. At capacity the entry with the lowest
// avoidance count is evicted, oldest first on ties; a failure that has
// repeatedly steered the agent away from a bad approach is worth keeping.
func (f *Failures) RecordFailure(situation, failedApproach, betterApproach string, tags []string) (*Failure, error) {
	situation = strings.TrimSpace(situation)
	failedApproach = strings.TrimSpace(failedApproach)
	betterApproach = strings.TrimSpace(betterApproach)
	if situation == "" {
		return nil, ErrEmptySituation
	}
	if failedApproach == "" {
		return nil, ErrEmptyFailedApproach
	}
	if betterApproach == "" {
		return nil, ErrEmptyBetterApproach
	}

	f.ensureLoaded()
	if len(f.entries) >= f.capacity {
		idx, err := storage.EvictionCandidate(f.entries,
			func(a, b *Failure) bool {
				if a.Avoidance != b.Avoidance {
					return a.Avoidance < b.Avoidance
				}
				return a.CreatedAt.Before(b.CreatedAt)
			},
			nil)
		if err != nil {
			return nil, err
		}
		f.entries = append(f.entries[:idx], f.entries[idx+1:]...)
	}

	entry := &Failure{
		ID:             ulid.Make().String(),
		Situation:      situation,
		FailedApproach: failedApproach,
		BetterApproach: betterApproach,
		Tags:           tags,
		CreatedAt:      f.now(),
	}
	f.entries = append(f.entries, entry)
	if err := f.Flush(); err != nil {
		return nil, err
	}
	return entry, nil
}

// CheckFailures scores stored failures against a situation description:
// +1 per shared situation word, +2 per shared tag word, normalized by the
// query's word count. Non-zero matches come back sorted by score descending,
// and each match's avoidance counter is bumped and persisted.
func (f *Failures) CheckFailures(situationText string) ([]FailureMatch, error) {
	f.ensureLoaded()

	queryWords := lexical.Words(situationText)
	if len(queryWords) == 0 {
		return nil, nil
	}

	var matches []FailureMatch
	for _, entry := range f.entries {
		situationWords := lexical.WordSet(entry.Situation)
		tagWords := lexical.WordSet(strings.Join(entry.Tags, " "))

		raw := float64(lexical.Overlap(queryWords, situationWords)) +
			2*float64(lexical.Overlap(queryWords, tagWords))
		if raw == 0 {
			continue
		}
		matches = append(matches, FailureMatch{
			Failure: entry,
			Score:   raw / float64(len(queryWords)),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	for _, m := range matches {
		m.Failure.Avoidance++
	}
	if len(matches) > 0 {
		if err := f.Flush(); err != nil {
			return nil, err
		}
	}
	return matches, nil
}
