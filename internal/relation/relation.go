// Package relation is the append-only contact log: who the agent has
// interacted with and what was noted. No decay, no scoring, just bookkeeping
// only.
package relation

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/GetAnima/anima-memory/internal/storage"
)

// Interaction is one logged note about a contact.
type Interaction struct {
	Note string    `json:"note"`
	At   time.Time `json:"at"`
}

// Contact is one known party and the interaction history with them.
type Contact struct {
	Name         string        `json:"name"`
	FirstSeen    time.Time     `json:"first_seen"`
	LastSeen     time.Time     `json:"last_seen"`
	Interactions []Interaction `json:"interactions,omitempty"`
}

const maxInteractionsPerContact = 500

var ErrEmptyName = errors.New("contact name is empty")

// Log owns the relations index.
type Log struct {
	layout   storage.Layout
	now      func() time.Time
	contacts []*Contact
	loaded   bool
}

// NewLog creates a relation log over the layout.
func NewLog(layout storage.Layout) *Log {
	return &Log{layout: layout, now: time.Now}
}

// Load reads the index; corrupt state is logged and treated as empty.
func (l *Log) Load() error {
	var contacts []*Contact
	res := storage.LoadIndex(l.layout.IndexPath("relations"), &contacts)
	if res.State == storage.LoadCorrupt {
		log.Printf("relation: corrupt index, starting empty: %s", res.Reason)
		contacts = nil
	}
	l.contacts = contacts
	l.loaded = true
	return nil
}

// Flush rewrites the index.
func (l *Log) Flush() error {
	return storage.SaveIndex(l.layout.IndexPath("relations"), l.contacts)
}

// Invalidate drops the cache so the next operation reloads.
func (l *Log) Invalidate() { l.loaded = false }

func (l *Log) ensureLoaded() {
	if !l.loaded {
		l.Load()
	}
}

// Get returns a contact by name (case-insensitive), or nil.
func (l *Log) Get(name string) *Contact {
	l.ensureLoaded()
	name = strings.ToLower(strings.TrimSpace(name))
	for _, c := range l.contacts {
		if strings.ToLower(c.Name) == name {
			return c
		}
	}
	return nil
}

// All returns every contact.
func (l *Log) All() []*Contact {
	l.ensureLoaded()
	return append([]*Contact(nil), l.contacts...)
}

// RecordInteraction appends a note for a contact, creating the contact on
// first sight. Oldest interactions roll off past the per-contact cap.
func (l *Log) RecordInteraction(name, note string) (*Contact, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	l.ensureLoaded()
	now := l.now()

	c := l.Get(name)
	if c == nil {
		c = &Contact{Name: name, FirstSeen: now}
		l.contacts = append(l.contacts, c)
	}
	c.LastSeen = now

	note = strings.TrimSpace(note)
	if note != "" {
		c.Interactions = append(c.Interactions, Interaction{Note: note, At: now})
		if len(c.Interactions) > maxInteractionsPerContact {
			c.Interactions = c.Interactions[len(c.Interactions)-maxInteractionsPerContact:]
		}
	}

	if err := l.Flush(); err != nil {
		return nil, err
	}
	return c, nil
}
