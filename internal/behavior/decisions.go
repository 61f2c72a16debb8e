package behavior

import (
	"errors"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/GetAnima/anima-memory/internal/storage"
)

// Outcome holds the cumulative counters for one (situation, action) pair.
// Purely additive, never reset.
type Outcome struct {
	Tries     int       `json:"tries"`
	Successes int       `json:"successes"`
	UpdatedAt time.Time `json:"updated_at"`
}

var (
	ErrEmptySituation = errors.New("situation is empty")
	ErrEmptyAction    = errors.New("action is empty")
)

// Decisions is the (situation, action) → outcome table.
type Decisions struct {
	layout        storage.Layout
	maxSituations int
	maxActions    int
	now           func() time.Time
	table         map[string]map[string]*Outcome
	loaded        bool
}

func newDecisions(layout storage.Layout, maxSituations, maxActions int) *Decisions {
	return &Decisions{
		layout:        layout,
		maxSituations: maxSituations,
		maxActions:    maxActions,
		now:           time.Now,
	}
}

// Load reads the index; corrupt state is logged and treated as empty.
func (d *Decisions) Load() error {
	var table map[string]map[string]*Outcome
	res := storage.LoadIndex(d.layout.IndexPath("decisions"), &table)
	if res.State == storage.LoadCorrupt {
		log.Printf("decisions: corrupt index, starting empty: %s", res.Reason)
		table = nil
	}
	if table == nil {
		table = make(map[string]map[string]*Outcome)
	}
	d.table = table
	d.loaded = true
	return nil
}

// Flush rewrites the index.
func (d *Decisions) Flush() error {
	return storage.SaveIndex(d.layout.IndexPath("decisions"), d.table)
}

// Invalidate drops the cache so the next operation reloads.
func (d *Decisions) Invalidate() { d.loaded = false }

func (d *Decisions) ensureLoaded() {
	if !d.loaded {
		d.Load()
	}
}

// Decide increments the (tries, successes) counters for a situation/action
// pair, evicting the least-tried action or situation when a cap is hit.
func (d *Decisions) Decide(situation, action string, success bool) error {
	situation = strings.TrimSpace(situation)
	action = strings.TrimSpace(action)
	if situation == "" {
		return ErrEmptySituation
	}
	if action == "" {
		return ErrEmptyAction
	}

	d.ensureLoaded()

	actions, ok := d.table[situation]
	if !ok {
		if len(d.table) >= d.maxSituations {
			d.evictSituation()
		}
		actions = make(map[string]*Outcome)
		d.table[situation] = actions
	}

	o, ok := actions[action]
	if !ok {
		if len(actions) >= d.maxActions {
			evictLeastTried(actions)
		}
		o = &Outcome{}
		actions[action] = o
	}

	o.Tries++
	if success {
		o.Successes++
	}
	o.UpdatedAt = d.now()

	return d.Flush()
}

// BestAction returns the action with the highest success rate for a
// situation. Single-try rates are discounted by half so a 1/1 fluke cannot
// outrank a consistently successful action; rate ties go to the action with
// more tries.
func (d *Decisions) BestAction(situation string) (string, *Outcome) {
	d.ensureLoaded()
	actions := d.table[strings.TrimSpace(situation)]
	if len(actions) == 0 {
		return "", nil
	}

	var bestName string
	var best *Outcome
	var bestRate float64
	for _, name := range sortedKeys(actions) {
		o := actions[name]
		rate := discountedRate(o)
		if best == nil || rate > bestRate || (rate == bestRate && o.Tries > best.Tries) {
			bestName, best, bestRate = name, o, rate
		}
	}
	return bestName, best
}

// Outcomes returns a copy of the action table for a situation.
func (d *Decisions) Outcomes(situation string) map[string]Outcome {
	d.ensureLoaded()
	out := make(map[string]Outcome)
	for name, o := range d.table[strings.TrimSpace(situation)] {
		out[name] = *o
	}
	return out
}

// Situations returns all known situations, sorted.
func (d *Decisions) Situations() []string {
	d.ensureLoaded()
	keys := make([]string, 0, len(d.table))
	for k := range d.table {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func discountedRate(o *Outcome) float64 {
	if o.Tries == 0 {
		return 0
	}
	rate := float64(o.Successes) / float64(o.Tries)
	if o.Tries == 1 {
		rate *= 0.5
	}
	return rate
}

// evictSituation drops the situation with the fewest total tries, name as
// the deterministic tie-break.
func (d *Decisions) evictSituation() {
	var victim string
	victimTries := -1
	for _, sit := range sortedKeysNested(d.table) {
		tries := 0
		for _, o := range d.table[sit] {
			tries += o.Tries
		}
		if victimTries == -1 || tries < victimTries {
			victim, victimTries = sit, tries
		}
	}
	if victim != "" {
		delete(d.table, victim)
	}
}

// evictLeastTried drops the action with the fewest tries from one situation.
func evictLeastTried(actions map[string]*Outcome) {
	var victim string
	victimTries := -1
	for _, name := range sortedKeys(actions) {
		if victimTries == -1 || actions[name].Tries < victimTries {
			victim, victimTries = name, actions[name].Tries
		}
	}
	if victim != "" {
		delete(actions, victim)
	}
}

func sortedKeys(m map[string]*Outcome) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeysNested(m map[string]map[string]*Outcome) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
