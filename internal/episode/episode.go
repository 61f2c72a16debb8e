// Package episode implements the episodic store, structured experience
// records with derived importance, and the knowledge store of distilled,
// topic-keyed insights that episodes feed.
package episode

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/GetAnima/anima-memory/internal/storage"
)

// Connections links an episode to related records. Three explicit id lists,
// not an open map.
type Connections struct {
	Episodes []string `json:"episodes,omitempty"`
	Opinions []string `json:"opinions,omitempty"`
	Memories []string `json:"memories,omitempty"`
}

func (c Connections) total() int {
	return len(c.Episodes) + len(c.Opinions) + len(c.Memories)
}

// Episode is a structured experience record. Importance is always derived
// from emotional weight, lessons, connections, and participants, never set
// directly.
type Episode struct {
	ID              string      `json:"id"`
	Title           string      `json:"title"`
	Summary         string      `json:"summary"`
	Timestamp       time.Time   `json:"timestamp"`
	EmotionalWeight float64     `json:"emotional_weight"`
	Importance      float64     `json:"importance"`
	Participants    []string    `json:"participants,omitempty"`
	Tags            []string    `json:"tags,omitempty"`
	Lessons         []string    `json:"lessons,omitempty"`
	Connections     Connections `json:"connections"`
	AccessCount     int         `json:"access_count"`
	Archived        bool        `json:"archived"`
	ArchivedAt      *time.Time  `json:"archived_at,omitempty"`
	SessionID       string      `json:"session_id,omitempty"`
}

const (
	maxTitleChars   = 200
	maxSummaryChars = 2000
	maxLessonChars  = 500
	maxParticipants = 20
	maxTags         = 12
	maxLessons      = 20
	maxConnections  = 30

	// Episodes at or above this importance have their lessons distilled
	// into knowledge at record time.
	distillImportance = 0.6

	// Auto-archive floor: at capacity, only episodes below this importance
	// may be displaced.
	archivableImportance = 0.3
)

var (
	ErrEmptyTitle     = errors.New("episode title is empty")
	ErrEmptySummary   = errors.New("episode summary is empty")
	ErrBadWeight      = errors.New("emotional weight outside [0,1]")
	ErrAtCapacity     = errors.New("episode store at capacity and nothing is archivable")
	ErrNotFound       = errors.New("episode not found")
	ErrTooManyLessons = fmt.Errorf("episode has more than %d lessons", maxLessons)
)

// Store owns the episode index and distills into the knowledge store.
type Store struct {
	layout    storage.Layout
	knowledge *Knowledge
	capacity  int
	now       func() time.Time
	entries   []*Episode
	loaded    bool
}

// NewStore creates an episode store with the given capacity, distilling
// into knowledge.
func NewStore(layout storage.Layout, knowledge *Knowledge, capacity int) *Store {
	if capacity <= 0 {
		capacity = 500
	}
	return &Store{layout: layout, knowledge: knowledge, capacity: capacity, now: time.Now}
}

// Load reads the index; corrupt state is logged and treated as empty.
func (s *Store) Load() error {
	var entries []*Episode
	res := storage.LoadIndex(s.layout.IndexPath("episodes"), &entries)
	if res.State == storage.LoadCorrupt {
		log.Printf("episode: corrupt index, starting empty: %s", res.Reason)
		entries = nil
	}
	s.entries = entries
	s.loaded = true
	return nil
}

// Flush rewrites the index.
func (s *Store) Flush() error {
	return storage.SaveIndex(s.layout.IndexPath("episodes"), s.entries)
}

// Invalidate drops the cache so the next operation reloads.
func (s *Store) Invalidate() { s.loaded = false }

func (s *Store) ensureLoaded() {
	if !s.loaded {
		s.Load()
	}
}

// Len returns the number of episodes, archived ones included.
func (s *Store) Len() int {
	s.ensureLoaded()
	return len(s.entries)
}

// Get returns an episode by id, or nil.
func (s *Store) Get(id string) *Episode {
	s.ensureLoaded()
	for _, e := range s.entries {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// Recent returns up to limit unarchived episodes, newest first.
func (s *Store) Recent(limit int) []*Episode {
	s.ensureLoaded()
	out := make([]*Episode, 0, limit)
	for i := len(s.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if s.entries[i].Archived {
			continue
		}
		out = append(out, s.entries[i])
	}
	return out
}

// RecordOpts carries the optional attributes of a new episode.
type RecordOpts struct {
	EmotionalWeight *float64 // nil means 0.5
	Participants    []string
	Tags            []string
	Lessons         []string
	Connections     Connections
	SessionID       string
}

// Record validates, derives importance, and stores a new episode. At
// capacity it auto-archives the lowest-importance unarchived episode below
// the archivable floor; if nothing qualifies the record is rejected.
// High-importance episodes have their lessons distilled into knowledge.
func (s *Store) Record(title, summary string, opts RecordOpts) (*Episode, error) {
	title = strings.TrimSpace(title)
	summary = strings.TrimSpace(summary)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	if summary == "" {
		return nil, ErrEmptySummary
	}
	if len(title) > maxTitleChars {
		return nil, fmt.Errorf("episode title exceeds %d chars", maxTitleChars)
	}
	if len(summary) > maxSummaryChars {
		return nil, fmt.Errorf("episode summary exceeds %d chars", maxSummaryChars)
	}
	if len(opts.Participants) > maxParticipants {
		return nil, fmt.Errorf("episode has more than %d participants", maxParticipants)
	}
	if len(opts.Tags) > maxTags {
		return nil, fmt.Errorf("episode has more than %d tags", maxTags)
	}
	if len(opts.Lessons) > maxLessons {
		return nil, ErrTooManyLessons
	}
	if opts.Connections.total() > maxConnections {
		return nil, fmt.Errorf("episode has more than %d connections", maxConnections)
	}
	for _, lesson := range opts.Lessons {
		if len(lesson) > maxLessonChars {
			return nil, fmt.Errorf("lesson exceeds %d chars", maxLessonChars)
		}
	}

	ew := 0.5
	if opts.EmotionalWeight != nil {
		ew = *opts.EmotionalWeight
		if ew < 0 || ew > 1 {
			return nil, ErrBadWeight
		}
	}

	s.ensureLoaded()
	if s.unarchivedCount() >= s.capacity {
		if err := s.displaceOne(); err != nil {
			return nil, err
		}
	}

	e := &Episode{
		ID:              ulid.Make().String(),
		Title:           title,
		Summary:         summary,
		Timestamp:       s.now(),
		EmotionalWeight: ew,
		Participants:    trimAll(opts.Participants),
		Tags:            trimAll(opts.Tags),
		Lessons:         trimAll(opts.Lessons),
		Connections:     opts.Connections,
		SessionID:       opts.SessionID,
	}
	e.Importance = deriveImportance(e)

	s.entries = append(s.entries, e)
	if err := s.Flush(); err != nil {
		return nil, err
	}

	if e.Importance >= distillImportance {
		s.distillLessons(e)
	}
	return e, nil
}

// AddLesson appends a lesson to an existing episode and re-derives its
// importance.
func (s *Store) AddLesson(id, lesson string) (*Episode, error) {
	lesson = strings.TrimSpace(lesson)
	if lesson == "" {
		return nil, errors.New("lesson is empty")
	}
	if len(lesson) > maxLessonChars {
		return nil, fmt.Errorf("lesson exceeds %d chars", maxLessonChars)
	}

	e := s.Get(id)
	if e == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if len(e.Lessons) >= maxLessons {
		return nil, ErrTooManyLessons
	}

	e.Lessons = append(e.Lessons, lesson)
	e.Importance = deriveImportance(e)
	if err := s.Flush(); err != nil {
		return nil, err
	}
	return e, nil
}

// Connect links an episode to other records and re-derives importance.
func (s *Store) Connect(id string, conns Connections) (*Episode, error) {
	e := s.Get(id)
	if e == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if e.Connections.total()+conns.total() > maxConnections {
		return nil, fmt.Errorf("episode has more than %d connections", maxConnections)
	}

	e.Connections.Episodes = append(e.Connections.Episodes, conns.Episodes...)
	e.Connections.Opinions = append(e.Connections.Opinions, conns.Opinions...)
	e.Connections.Memories = append(e.Connections.Memories, conns.Memories...)
	e.Importance = deriveImportance(e)
	if err := s.Flush(); err != nil {
		return nil, err
	}
	return e, nil
}

// deriveImportance computes the episode's importance from its attributes.
// It is the only writer of the Importance field.
func deriveImportance(e *Episode) float64 {
	imp := 0.4 * e.EmotionalWeight
	imp += capped(0.05*float64(len(e.Lessons)), 0.25)
	imp += capped(0.04*float64(e.Connections.total()), 0.2)
	imp += capped(0.05*float64(len(e.Participants)), 0.15)
	if imp > 1 {
		imp = 1
	}
	if imp < 0 {
		imp = 0
	}
	return imp
}

func capped(v, ceiling float64) float64 {
	if v > ceiling {
		return ceiling
	}
	return v
}

func (s *Store) unarchivedCount() int {
	n := 0
	for _, e := range s.entries {
		if !e.Archived {
			n++
		}
	}
	return n
}

// displaceOne soft-archives the lowest-importance unarchived episode below
// the archivable floor.
func (s *Store) displaceOne() error {
	idx, err := storage.EvictionCandidate(s.entries,
		func(a, b *Episode) bool { return a.Importance < b.Importance },
		func(e *Episode) bool { return e.Archived || e.Importance >= archivableImportance })
	if err != nil {
		return ErrAtCapacity
	}
	now := s.now()
	s.entries[idx].Archived = true
	s.entries[idx].ArchivedAt = &now
	return nil
}

// distillLessons pushes each of an episode's lessons into knowledge. Topic
// is the first tag when present, otherwise a prefix of the lesson itself.
func (s *Store) distillLessons(e *Episode) {
	if s.knowledge == nil {
		return
	}
	for _, lesson := range e.Lessons {
		topic := lessonTopic(e, lesson)
		if _, err := s.knowledge.Learn(topic, lesson, LearnOpts{
			Tags:           e.Tags,
			SourceEpisodes: []string{e.ID},
		}); err != nil {
			log.Printf("episode: distill %q: %v", topic, err)
		}
	}
}

func lessonTopic(e *Episode, lesson string) string {
	if len(e.Tags) > 0 {
		return e.Tags[0]
	}
	if len(lesson) > 40 {
		return strings.TrimSpace(lesson[:40])
	}
	return lesson
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
