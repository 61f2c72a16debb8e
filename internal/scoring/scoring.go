// Package scoring holds the pure salience and decay primitives shared by the
// memory stores. No state, no I/O: everything here is a function of its
// arguments, which keeps the lifecycle math testable in isolation.
package scoring

// Salience component weights. Retention carries 0.25 but is zero at creation,
// so a brand-new record (novelty=momentum=1) tops out at 0.75 and keeps
// headroom to be differentiated later instead of saturating at 1.0.
const (
	noveltyWeight    = 0.25
	retentionWeight  = 0.25
	momentumWeight   = 0.2
	continuityWeight = 0.2
	effortWeight     = 0.1
)

// Rates are per-hour base decay rates by memory category.
type Rates struct {
	Procedural float64 `toml:"procedural"` // lessons, decisions
	Semantic   float64 `toml:"semantic"`   // insights
	Episodic   float64 `toml:"episodic"`   // everything else
}

// DefaultRates decay an untouched, emotionally neutral episodic memory to
// full staleness in about a week; procedural memories last roughly a month.
func DefaultRates() Rates {
	return Rates{
		Procedural: 0.0015,
		Semantic:   0.003,
		Episodic:   0.006,
	}
}

// Salience computes a [0,1] worth-keeping score from its five components.
// Inputs outside [0,1] are clamped before weighting.
func Salience(novelty, retention, momentum, continuity, effort float64) float64 {
	s := noveltyWeight*clamp01(novelty) +
		retentionWeight*clamp01(retention) +
		momentumWeight*clamp01(momentum) +
		continuityWeight*clamp01(continuity) +
		effortWeight*(1-clamp01(effort))
	return clamp01(s)
}

// Decay computes a [0,1] staleness score for a memory of the given type.
// The base rate is looked up by coarse category, softened by emotional
// resistance (floor 0.2) and by an access bonus (floor 0.1), then scaled by
// age in hours. Negative inputs are clamped so malformed timestamps cannot
// produce a negative score.
func Decay(memType string, ageHours float64, accessCount int, emotionalWeight float64, rates Rates) float64 {
	if ageHours < 0 {
		ageHours = 0
	}
	if accessCount < 0 {
		accessCount = 0
	}
	emotionalWeight = clamp01(emotionalWeight)

	base := rates.Episodic
	switch memType {
	case "lesson", "decision":
		base = rates.Procedural
	case "insight":
		base = rates.Semantic
	}

	resistance := 1 - 0.8*emotionalWeight
	if resistance < 0.2 {
		resistance = 0.2
	}
	accessBonus := 1 - 0.1*float64(accessCount)
	if accessBonus < 0.1 {
		accessBonus = 0.1
	}

	return clamp01(base * resistance * accessBonus * ageHours)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Clamp01 bounds v to [0,1]. Exported for the stores that derive component
// scores before calling Salience.
func Clamp01(v float64) float64 { return clamp01(v) }
