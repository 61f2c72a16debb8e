package behavior

import (
	"errors"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/GetAnima/anima-memory/internal/storage"
)

// Hypothesis is a belief under test. Confidence is always
// evidenceFor / (evidenceFor + evidenceAgainst) once any evidence exists;
// the starting confidence only survives until the first submission.
type Hypothesis struct {
	Belief          string    `json:"belief"`
	Confidence      float64   `json:"confidence"`
	EvidenceFor     int       `json:"evidence_for"`
	EvidenceAgainst int       `json:"evidence_against"`
	Notes           []string  `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Notes are a ring buffer: once full, the oldest note is dropped.
const maxHypothesisNotes = 50

var (
	ErrEmptyBelief   = errors.New("hypothesis belief is empty")
	ErrBadConfidence = errors.New("confidence outside [0,1]")
)

// Hypotheses is the belief-keyed table.
type Hypotheses struct {
	layout storage.Layout
	now    func() time.Time
	table  map[string]*Hypothesis
	loaded bool
}

func newHypotheses(layout storage.Layout) *Hypotheses {
	return &Hypotheses{layout: layout, now: time.Now}
}

// Load reads the index; corrupt state is logged and treated as empty.
func (h *Hypotheses) Load() error {
	var table map[string]*Hypothesis
	res := storage.LoadIndex(h.layout.IndexPath("hypotheses"), &table)
	if res.State == storage.LoadCorrupt {
		log.Printf("hypotheses: corrupt index, starting empty: %s", res.Reason)
		table = nil
	}
	if table == nil {
		table = make(map[string]*Hypothesis)
	}
	h.table = table
	h.loaded = true
	return nil
}

// Flush rewrites the index.
func (h *Hypotheses) Flush() error {
	return storage.SaveIndex(h.layout.IndexPath("hypotheses"), h.table)
}

// Invalidate drops the cache so the next operation reloads.
func (h *Hypotheses) Invalidate() { h.loaded = false }

func (h *Hypotheses) ensureLoaded() {
	if !h.loaded {
		h.Load()
	}
}

// Hypothesize creates a hypothesis with a starting confidence. If the belief
// already exists the stored record is returned unchanged.
func (h *Hypotheses) Hypothesize(belief string, startingConfidence float64) (*Hypothesis, error) {
	belief = strings.TrimSpace(belief)
	if belief == "" {
		return nil, ErrEmptyBelief
	}
	if startingConfidence < 0 || startingConfidence > 1 {
		return nil, ErrBadConfidence
	}

	h.ensureLoaded()
	if existing, ok := h.table[belief]; ok {
		return existing, nil
	}

	now := h.now()
	hyp := &Hypothesis{
		Belief:     belief,
		Confidence: startingConfidence,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	h.table[belief] = hyp
	if err := h.Flush(); err != nil {
		return nil, err
	}
	return hyp, nil
}

// Evidence submits one piece of evidence for or against a belief, creating
// the hypothesis if absent, and recomputes confidence from the counters.
func (h *Hypotheses) Evidence(belief string, supports bool, note string) (*Hypothesis, error) {
	belief = strings.TrimSpace(belief)
	if belief == "" {
		return nil, ErrEmptyBelief
	}

	h.ensureLoaded()
	hyp, ok := h.table[belief]
	if !ok {
		now := h.now()
		hyp = &Hypothesis{Belief: belief, Confidence: 0.5, CreatedAt: now}
		h.table[belief] = hyp
	}

	if supports {
		hyp.EvidenceFor++
	} else {
		hyp.EvidenceAgainst++
	}
	hyp.Confidence = float64(hyp.EvidenceFor) / float64(hyp.EvidenceFor+hyp.EvidenceAgainst)

	note = strings.TrimSpace(note)
	if note != "" {
		hyp.Notes = append(hyp.Notes, note)
		if len(hyp.Notes) > maxHypothesisNotes {
			hyp.Notes = hyp.Notes[len(hyp.Notes)-maxHypothesisNotes:]
		}
	}
	hyp.UpdatedAt = h.now()

	if err := h.Flush(); err != nil {
		return nil, err
	}
	return hyp, nil
}

// Get returns a hypothesis by belief, or nil.
func (h *Hypotheses) Get(belief string) *Hypothesis {
	h.ensureLoaded()
	return h.table[strings.TrimSpace(belief)]
}

// All returns every hypothesis sorted by belief.
func (h *Hypotheses) All() []*Hypothesis {
	h.ensureLoaded()
	beliefs := make([]string, 0, len(h.table))
	for b := range h.table {
		beliefs = append(beliefs, b)
	}
	sort.Strings(beliefs)
	out := make([]*Hypothesis, len(beliefs))
	for i, b := range beliefs {
		out[i] = h.table[b]
	}
	return out
}
