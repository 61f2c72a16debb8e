// Package opinion holds the topic-keyed belief store the conflict detector
// reads. Every revision keeps the full prior value in history; conflicts are
// derived from that history, never stored here.
package opinion

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/GetAnima/anima-memory/internal/storage"
)

// Revision is a superseded opinion value.
type Revision struct {
	Value string    `json:"value"`
	Date  time.Time `json:"date"`
}

// Opinion is a topic-keyed belief with its revision history.
type Opinion struct {
	Topic     string     `json:"topic"`
	Value     string     `json:"value"`
	History   []Revision `json:"history,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

const maxValueChars = 1000

var (
	ErrEmptyTopic = errors.New("opinion topic is empty")
	ErrEmptyValue = errors.New("opinion value is empty")
)

// Store owns the opinion index.
type Store struct {
	layout  storage.Layout
	now     func() time.Time
	entries []*Opinion
	loaded  bool
}

// NewStore creates an opinion store over the layout.
func NewStore(layout storage.Layout) *Store {
	return &Store{layout: layout, now: time.Now}
}

// Load reads the index; corrupt state is logged and treated as empty.
func (s *Store) Load() error {
	var entries []*Opinion
	res := storage.LoadIndex(s.layout.IndexPath("opinions"), &entries)
	if res.State == storage.LoadCorrupt {
		log.Printf("opinion: corrupt index, starting empty: %s", res.Reason)
		entries = nil
	}
	s.entries = entries
	s.loaded = true
	return nil
}

// Flush rewrites the index.
func (s *Store) Flush() error {
	return storage.SaveIndex(s.layout.IndexPath("opinions"), s.entries)
}

// Invalidate drops the cache so the next operation reloads.
func (s *Store) Invalidate() { s.loaded = false }

func (s *Store) ensureLoaded() {
	if !s.loaded {
		s.Load()
	}
}

// Get returns the opinion for a topic (case-insensitive), or nil.
func (s *Store) Get(topic string) *Opinion {
	s.ensureLoaded()
	topic = strings.ToLower(strings.TrimSpace(topic))
	for _, o := range s.entries {
		if strings.ToLower(o.Topic) == topic {
			return o
		}
	}
	return nil
}

// All returns every opinion.
func (s *Store) All() []*Opinion {
	s.ensureLoaded()
	return append([]*Opinion(nil), s.entries...)
}

// Set records the current value for a topic, pushing any previous value into
// history. Setting the identical value is a no-op.
func (s *Store) Set(topic, value string) (*Opinion, error) {
	topic = strings.TrimSpace(topic)
	value = strings.TrimSpace(value)
	if topic == "" {
		return nil, ErrEmptyTopic
	}
	if value == "" {
		return nil, ErrEmptyValue
	}
	if len(value) > maxValueChars {
		return nil, fmt.Errorf("opinion value exceeds %d chars", maxValueChars)
	}

	s.ensureLoaded()
	now := s.now()

	if existing := s.Get(topic); existing != nil {
		if existing.Value == value {
			return existing, nil
		}
		existing.History = append(existing.History, Revision{
			Value: existing.Value,
			Date:  existing.UpdatedAt,
		})
		existing.Value = value
		existing.UpdatedAt = now
		if err := s.Flush(); err != nil {
			return nil, err
		}
		return existing, nil
	}

	o := &Opinion{Topic: topic, Value: value, UpdatedAt: now}
	s.entries = append(s.entries, o)
	if err := s.Flush(); err != nil {
		return nil, err
	}
	return o, nil
}
