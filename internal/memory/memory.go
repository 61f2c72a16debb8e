// Package memory implements the flat memory store: atomic facts with
// salience scoring, decay-driven tiering, and curation into the durable
// artifact. One JSON index, rewritten whole on every persist, plus an
// append-only dated raw log.
package memory

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/GetAnima/anima-memory/internal/scoring"
	"github.com/GetAnima/anima-memory/internal/storage"
)

// Type categorizes a memory. Lesson and decision decay slowest, insight at a
// medium rate, everything else fastest.
type Type string

const (
	TypeEvent        Type = "event"
	TypeConversation Type = "conversation"
	TypeDecision     Type = "decision"
	TypeInsight      Type = "insight"
	TypeLesson       Type = "lesson"
	TypeEmotional    Type = "emotional"
)

var validTypes = map[Type]bool{
	TypeEvent: true, TypeConversation: true, TypeDecision: true,
	TypeInsight: true, TypeLesson: true, TypeEmotional: true,
}

// Importance is the caller-declared weight of a memory. Critical memories
// are never evicted regardless of score.
type Importance string

const (
	ImportanceLow      Importance = "low"
	ImportanceMedium   Importance = "medium"
	ImportanceHigh     Importance = "high"
	ImportanceCritical Importance = "critical"
)

var importanceRank = map[Importance]int{
	ImportanceLow: 0, ImportanceMedium: 1, ImportanceHigh: 2, ImportanceCritical: 3,
}

// Tier governs retention, assigned from salience thresholds on every decay
// sweep.
type Tier string

const (
	TierHot      Tier = "hot"
	TierWarm     Tier = "warm"
	TierCold     Tier = "cold"
	TierArchived Tier = "archived"
)

// Memory is a single atomic fact.
type Memory struct {
	ID              string     `json:"id"`
	Type            Type       `json:"type"`
	Content         string     `json:"content"`
	Importance      Importance `json:"importance"`
	Tier            Tier       `json:"tier"`
	Tags            []string   `json:"tags,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	SessionID       string     `json:"session_id,omitempty"`
	Salience        float64    `json:"salience"`
	EmotionalWeight float64    `json:"emotional_weight"`
	AccessCount     int        `json:"access_count"`
	Decay           float64    `json:"decay"`
}

// Content and collection ceilings. Over-limit input is a loud validation
// error, not a silent truncation.
const (
	maxContentChars = 4000
	maxTags         = 12
	pruneSalience   = 0.05
)

var (
	ErrEmptyContent      = errors.New("memory content is empty")
	ErrContentTooLong    = fmt.Errorf("memory content exceeds %d chars", maxContentChars)
	ErrTooManyTags       = fmt.Errorf("memory has more than %d tags", maxTags)
	ErrBadWeight         = errors.New("emotional weight outside [0,1]")
	ErrUnknownType       = errors.New("unknown memory type")
	ErrUnknownImportance = errors.New("unknown importance level")
)

// Store owns the memory index. Load is explicit; every mutating operation
// rewrites the whole index before returning, so sequential callers observe
// a linearized view.
type Store struct {
	layout  storage.Layout
	rates   scoring.Rates
	now     func() time.Time
	entries []*Memory
	loaded  bool
}

// NewStore creates a store over the given layout. Nothing is read until
// Load or the first operation.
func NewStore(layout storage.Layout, rates scoring.Rates) *Store {
	return &Store{layout: layout, rates: rates, now: time.Now}
}

// Load reads the index from disk. A missing file is an empty store; a
// corrupt file is logged and treated as empty rather than surfaced.
func (s *Store) Load() error {
	var entries []*Memory
	res := storage.LoadIndex(s.layout.IndexPath("memories"), &entries)
	if res.State == storage.LoadCorrupt {
		log.Printf("memory: corrupt index, starting empty: %s", res.Reason)
		entries = nil
	}
	s.entries = entries
	s.loaded = true
	return nil
}

// Flush rewrites the index.
func (s *Store) Flush() error {
	return storage.SaveIndex(s.layout.IndexPath("memories"), s.entries)
}

// Invalidate drops the in-process cache so the next operation reloads from
// disk. Called by the serve-mode file watcher.
func (s *Store) Invalidate() { s.loaded = false }

func (s *Store) ensureLoaded() {
	if !s.loaded {
		s.Load()
	}
}

// Len returns the number of live memories.
func (s *Store) Len() int {
	s.ensureLoaded()
	return len(s.entries)
}

// Recent returns up to limit memories, newest first.
func (s *Store) Recent(limit int) []*Memory {
	s.ensureLoaded()
	out := make([]*Memory, 0, limit)
	for i := len(s.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.entries[i])
	}
	return out
}

// Get returns a memory by id, or nil if not found.
func (s *Store) Get(id string) *Memory {
	s.ensureLoaded()
	for _, m := range s.entries {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// RememberOpts are the optional attributes of a new memory.
type RememberOpts struct {
	Type            Type
	Importance      Importance
	Tags            []string
	EmotionalWeight *float64 // nil means 0.5
	SessionID       string
}

// Remember validates and stores a new memory, computes its initial salience,
// appends a line to the dated raw log, and rewrites the index.
func (s *Store) Remember(content string, opts RememberOpts) (*Memory, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if len(content) > maxContentChars {
		return nil, ErrContentTooLong
	}
	if len(opts.Tags) > maxTags {
		return nil, ErrTooManyTags
	}

	typ := opts.Type
	if typ == "" {
		typ = TypeEvent
	}
	if !validTypes[typ] {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}

	imp := opts.Importance
	if imp == "" {
		imp = ImportanceMedium
	}
	if _, ok := importanceRank[imp]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownImportance, imp)
	}

	ew := 0.5
	if opts.EmotionalWeight != nil {
		ew = *opts.EmotionalWeight
		if ew < 0 || ew > 1 {
			return nil, ErrBadWeight
		}
	}

	s.ensureLoaded()
	now := s.now()

	m := &Memory{
		ID:              ulid.Make().String(),
		Type:            typ,
		Content:         content,
		Importance:      imp,
		Tags:            normalizeTags(opts.Tags),
		CreatedAt:       now,
		SessionID:       opts.SessionID,
		EmotionalWeight: ew,
	}

	// Fresh record: retention 0, momentum 1, continuity from tag overlap
	// with what is already stored.
	m.Salience = scoring.Salience(
		novelty(m),
		0,
		1,
		s.continuity(m),
		effort(m),
	)

	m.Tier = TierWarm
	if imp == ImportanceCritical || m.Salience > 0.8 {
		m.Tier = TierHot
	}

	s.entries = append(s.entries, m)
	if err := s.Flush(); err != nil {
		return nil, err
	}

	line := fmt.Sprintf("%s [%s/%s] %s", now.Format("15:04:05"), typ, imp, content)
	if len(m.Tags) > 0 {
		line += " (tags: " + strings.Join(m.Tags, ", ") + ")"
	}
	if err := storage.AppendLine(s.layout.DailyLogPath(now), line); err != nil {
		log.Printf("memory: daily log append failed: %v", err)
	}

	return m, nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

func (m *Memory) hasTag(tag string) bool {
	for _, t := range m.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
