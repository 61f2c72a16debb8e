// Package behavior implements the behavioral state store: four independently
// persisted sub-tables (decision outcomes, hypotheses, tunable parameters,
// failure registry) unified by one boot-time aggregation routine.
package behavior

import "github.com/GetAnima/anima-memory/internal/storage"

// Caps bound the sub-tables. Zero values take the defaults.
type Caps struct {
	Situations          int // decision situations, default 200
	ActionsPerSituation int // default 12
	Failures            int // default 100
}

func (c Caps) withDefaults() Caps {
	if c.Situations <= 0 {
		c.Situations = 200
	}
	if c.ActionsPerSituation <= 0 {
		c.ActionsPerSituation = 12
	}
	if c.Failures <= 0 {
		c.Failures = 100
	}
	return c
}

// Store bundles the four sub-tables. Each owns its own index file and loads
// independently; nothing here shares state beyond the layout.
type Store struct {
	Decisions  *Decisions
	Hypotheses *Hypotheses
	Params     *Params
	Failures   *Failures
}

// NewStore creates the four sub-tables over one layout.
func NewStore(layout storage.Layout, caps Caps) *Store {
	caps = caps.withDefaults()
	return &Store{
		Decisions:  newDecisions(layout, caps.Situations, caps.ActionsPerSituation),
		Hypotheses: newHypotheses(layout),
		Params:     newParams(layout),
		Failures:   newFailures(layout, caps.Failures),
	}
}

// Invalidate drops the named sub-table's cache ("decisions", "hypotheses",
// "parameters", "failures"); an empty name drops all of them.
func (s *Store) Invalidate(table string) {
	switch table {
	case "decisions":
		s.Decisions.Invalidate()
	case "hypotheses":
		s.Hypotheses.Invalidate()
	case "parameters":
		s.Params.Invalidate()
	case "failures":
		s.Failures.Invalidate()
	case "":
		s.Decisions.Invalidate()
		s.Hypotheses.Invalidate()
		s.Params.Invalidate()
		s.Failures.Invalidate()
	}
}
