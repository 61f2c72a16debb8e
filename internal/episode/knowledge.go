package episode

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/GetAnima/anima-memory/internal/lexical"
	"github.com/GetAnima/anima-memory/internal/storage"
)

// Revision is a superseded (insight, confidence) pair kept in an entry's
// history.
type Revision struct {
	Insight    string    `json:"insight"`
	Confidence float64   `json:"confidence"`
	Date       time.Time `json:"date"`
}

// Entry is a distilled, topic-keyed insight. At most one live entry per
// topic (case-insensitive); updates push the previous value into history.
type Entry struct {
	ID             string     `json:"id"`
	Topic          string     `json:"topic"`
	Insight        string     `json:"insight"`
	Confidence     float64    `json:"confidence"`
	Tags           []string   `json:"tags,omitempty"`
	SourceEpisodes []string   `json:"source_episodes,omitempty"`
	History        []Revision `json:"history,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

const (
	maxTopicChars   = 120
	maxInsightChars = 1000
)

var (
	ErrEmptyTopic        = errors.New("knowledge topic is empty")
	ErrEmptyInsight      = errors.New("knowledge insight is empty")
	ErrBadConfidence     = errors.New("confidence outside [0,1]")
	ErrKnowledgeRejected = errors.New("knowledge store at capacity and new entry's confidence is not higher than the weakest")
)

// Knowledge owns the topic-keyed insight index.
type Knowledge struct {
	layout   storage.Layout
	capacity int
	now      func() time.Time
	entries  []*Entry
	loaded   bool
}

// NewKnowledge creates a knowledge store with the given capacity.
func NewKnowledge(layout storage.Layout, capacity int) *Knowledge {
	if capacity <= 0 {
		capacity = 200
	}
	return &Knowledge{layout: layout, capacity: capacity, now: time.Now}
}

// Load reads the index; corrupt state is logged and treated as empty.
func (k *Knowledge) Load() error {
	var entries []*Entry
	res := storage.LoadIndex(k.layout.IndexPath("knowledge"), &entries)
	if res.State == storage.LoadCorrupt {
		log.Printf("knowledge: corrupt index, starting empty: %s", res.Reason)
		entries = nil
	}
	k.entries = entries
	k.loaded = true
	return nil
}

// Flush rewrites the index.
func (k *Knowledge) Flush() error {
	return storage.SaveIndex(k.layout.IndexPath("knowledge"), k.entries)
}

// Invalidate drops the cache so the next operation reloads.
func (k *Knowledge) Invalidate() { k.loaded = false }

func (k *Knowledge) ensureLoaded() {
	if !k.loaded {
		k.Load()
	}
}

// Len returns the number of live entries.
func (k *Knowledge) Len() int {
	k.ensureLoaded()
	return len(k.entries)
}

// Get returns the live entry for a topic (case-insensitive), or nil.
func (k *Knowledge) Get(topic string) *Entry {
	k.ensureLoaded()
	topic = strings.ToLower(strings.TrimSpace(topic))
	for _, e := range k.entries {
		if strings.ToLower(e.Topic) == topic {
			return e
		}
	}
	return nil
}

// All returns every live entry.
func (k *Knowledge) All() []*Entry {
	k.ensureLoaded()
	return append([]*Entry(nil), k.entries...)
}

// LearnOpts carries the optional attributes of a learned insight.
type LearnOpts struct {
	Confidence     *float64 // nil means 0.7
	Tags           []string
	SourceEpisodes []string
}

// Learn records an insight under a topic. An existing topic has its current
// value pushed into history and overwritten. A new topic at capacity evicts
// the globally lowest-confidence entry, but only when the newcomer's
// confidence is higher; otherwise the learn is rejected.
func (k *Knowledge) Learn(topic, insight string, opts LearnOpts) (*Entry, error) {
	topic = strings.TrimSpace(topic)
	insight = strings.TrimSpace(insight)
	if topic == "" {
		return nil, ErrEmptyTopic
	}
	if insight == "" {
		return nil, ErrEmptyInsight
	}
	if len(topic) > maxTopicChars {
		return nil, fmt.Errorf("knowledge topic exceeds %d chars", maxTopicChars)
	}
	if len(insight) > maxInsightChars {
		return nil, fmt.Errorf("knowledge insight exceeds %d chars", maxInsightChars)
	}

	confidence := 0.7
	if opts.Confidence != nil {
		confidence = *opts.Confidence
		if confidence < 0 || confidence > 1 {
			return nil, ErrBadConfidence
		}
	}

	k.ensureLoaded()
	now := k.now()

	if existing := k.Get(topic); existing != nil {
		// Re-learning a trivially edited insight must not grow history.
		if lexical.NearIdentical(existing.Insight, insight) {
			existing.Confidence = confidence
			existing.Tags = mergeStrings(existing.Tags, opts.Tags)
			existing.SourceEpisodes = mergeStrings(existing.SourceEpisodes, opts.SourceEpisodes)
			existing.UpdatedAt = now
			if err := k.Flush(); err != nil {
				return nil, err
			}
			return existing, nil
		}
		existing.History = append(existing.History, Revision{
			Insight:    existing.Insight,
			Confidence: existing.Confidence,
			Date:       existing.UpdatedAt,
		})
		existing.Insight = insight
		existing.Confidence = confidence
		existing.Tags = mergeStrings(existing.Tags, opts.Tags)
		existing.SourceEpisodes = mergeStrings(existing.SourceEpisodes, opts.SourceEpisodes)
		existing.UpdatedAt = now
		if err := k.Flush(); err != nil {
			return nil, err
		}
		return existing, nil
	}

	if len(k.entries) >= k.capacity {
		idx, err := storage.EvictionCandidate(k.entries,
			func(a, b *Entry) bool { return a.Confidence < b.Confidence },
			func(e *Entry) bool { return e.Confidence >= confidence })
		if err != nil {
			return nil, ErrKnowledgeRejected
		}
		k.entries = append(k.entries[:idx], k.entries[idx+1:]...)
	}

	e := &Entry{
		ID:             ulid.Make().String(),
		Topic:          topic,
		Insight:        insight,
		Confidence:     confidence,
		Tags:           mergeStrings(nil, opts.Tags),
		SourceEpisodes: mergeStrings(nil, opts.SourceEpisodes),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	k.entries = append(k.entries, e)
	if err := k.Flush(); err != nil {
		return nil, err
	}
	return e, nil
}

// hasDistilled reports whether the exact lesson text is already recorded as
// knowledge sourced from the given episode, either live or in history.
func (k *Knowledge) hasDistilled(episodeID, lesson string) bool {
	k.ensureLoaded()
	lesson = strings.TrimSpace(lesson)
	for _, e := range k.entries {
		if !containsString(e.SourceEpisodes, episodeID) {
			continue
		}
		if e.Insight == lesson {
			return true
		}
		for _, rev := range e.History {
			if rev.Insight == lesson {
				return true
			}
		}
	}
	return false
}

func mergeStrings(existing, extra []string) []string {
	out := append([]string(nil), existing...)
	for _, v := range extra {
		v = strings.TrimSpace(v)
		if v == "" || containsString(out, v) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
