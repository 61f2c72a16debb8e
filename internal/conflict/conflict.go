// Package conflict detects divergence between an opinion's prior and current
// value and tracks it in a stable-keyed ledger: re-detecting an unresolved,
// still-diverging topic returns the conflict that is already on record, not
// a freshly minted one.
package conflict

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/GetAnima/anima-memory/internal/opinion"
	"github.com/GetAnima/anima-memory/internal/storage"
)

// Conflict is one detected divergence: position A is the most recent prior
// value, position B the current one.
type Conflict struct {
	ID         string     `json:"id"`
	Topic      string     `json:"topic"`
	PositionA  string     `json:"position_a"`
	PositionB  string     `json:"position_b"`
	Resolved   bool       `json:"resolved"`
	Resolution string     `json:"resolution,omitempty"`
	DetectedAt time.Time  `json:"detected_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

var ErrConflictNotFound = errors.New("conflict not found")

// Ledger owns the persisted conflict list.
type Ledger struct {
	layout  storage.Layout
	now     func() time.Time
	entries []*Conflict
	loaded  bool
}

// NewLedger creates a conflict ledger over the layout.
func NewLedger(layout storage.Layout) *Ledger {
	return &Ledger{layout: layout, now: time.Now}
}

// Load reads the ledger; corrupt state is logged and treated as empty.
func (l *Ledger) Load() error {
	var entries []*Conflict
	res := storage.LoadIndex(l.layout.IndexPath("conflicts"), &entries)
	if res.State == storage.LoadCorrupt {
		log.Printf("conflict: corrupt ledger, starting empty: %s", res.Reason)
		entries = nil
	}
	l.entries = entries
	l.loaded = true
	return nil
}

// Flush rewrites the ledger.
func (l *Ledger) Flush() error {
	return storage.SaveIndex(l.layout.IndexPath("conflicts"), l.entries)
}

// Invalidate drops the cache so the next operation reloads.
func (l *Ledger) Invalidate() { l.loaded = false }

func (l *Ledger) ensureLoaded() {
	if !l.loaded {
		l.Load()
	}
}

// Detect diffs every opinion's current value against its most recent prior
// value. An unresolved conflict already on record for the topic is returned
// as-is (stable id, refreshed position B if the opinion moved again). A
// topic whose latest conflict is resolved only yields a new conflict when
// the opinion has changed since that resolution.
func (l *Ledger) Detect(opinions []*opinion.Opinion) ([]*Conflict, error) {
	l.ensureLoaded()

	var detected []*Conflict
	dirty := false
	for _, o := range opinions {
		if len(o.History) == 0 {
			continue
		}
		positionA := strings.TrimSpace(o.History[len(o.History)-1].Value)
		positionB := strings.TrimSpace(o.Value)
		if positionA == positionB {
			continue
		}

		latest := l.latestForTopic(o.Topic)
		if latest != nil && !latest.Resolved {
			if latest.PositionB != positionB {
				latest.PositionA = positionA
				latest.PositionB = positionB
				dirty = true
			}
			detected = append(detected, latest)
			continue
		}
		if latest != nil && latest.Resolved && latest.PositionB == positionB {
			// Already settled, opinion has not moved since.
			continue
		}

		c := &Conflict{
			ID:         ulid.Make().String(),
			Topic:      o.Topic,
			PositionA:  positionA,
			PositionB:  positionB,
			DetectedAt: l.now(),
		}
		l.entries = append(l.entries, c)
		detected = append(detected, c)
		dirty = true
	}

	if dirty {
		if err := l.Flush(); err != nil {
			return nil, err
		}
	}
	return detected, nil
}

// Resolve marks a conflict resolved with the given resolution text.
func (l *Ledger) Resolve(id, resolution string) (*Conflict, error) {
	l.ensureLoaded()
	for _, c := range l.entries {
		if c.ID != id {
			continue
		}
		now := l.now()
		c.Resolved = true
		c.Resolution = strings.TrimSpace(resolution)
		c.ResolvedAt = &now
		if err := l.Flush(); err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrConflictNotFound, id)
}

// List returns conflicts, unresolved only by default.
func (l *Ledger) List(includeResolved bool) []*Conflict {
	l.ensureLoaded()
	var out []*Conflict
	for _, c := range l.entries {
		if c.Resolved && !includeResolved {
			continue
		}
		out = append(out, c)
	}
	return out
}

// latestForTopic returns the most recently recorded conflict for a topic.
func (l *Ledger) latestForTopic(topic string) *Conflict {
	topic = strings.ToLower(topic)
	for i := len(l.entries) - 1; i >= 0; i-- {
		if strings.ToLower(l.entries[i].Topic) == topic {
			return l.entries[i]
		}
	}
	return nil
}
