package behavior

import "math"

// DecisionDigest is one situation's compacted recommendation.
type DecisionDigest struct {
	Situation    string  `json:"situation"`
	Best         string  `json:"best"`
	Rate         float64 `json:"rate"`
	Alternatives int     `json:"alternatives"`
}

// HypothesisDigest is one belief's compacted confidence.
type HypothesisDigest struct {
	Belief     string  `json:"belief"`
	Confidence float64 `json:"confidence"`
}

// FailureDigest is one failure reduced to what to avoid and what to do
// instead.
type FailureDigest struct {
	Situation string `json:"situation"`
	Avoid     string `json:"avoid"`
	Instead   string `json:"instead"`
}

// BootPayload is the compact aggregate handed to the orchestrator at
// session start. Small by construction: only decisions with real evidence,
// only tested hypotheses, only the most recent failures.
type BootPayload struct {
	Decisions  []DecisionDigest      `json:"decisions,omitempty"`
	Hypotheses []HypothesisDigest    `json:"hypotheses,omitempty"`
	Failures   []FailureDigest       `json:"failures,omitempty"`
	Parameters map[string]ParamValue `json:"parameters,omitempty"`
}

const bootFailureLimit = 20

// Boot compacts the four sub-tables into one payload: situations where some
// action has at least two tries, hypotheses with at least two evidence
// submissions, the twenty most recent failures, and the parameters
// unchanged.
func (s *Store) Boot() BootPayload {
	var payload BootPayload

	for _, situation := range s.Decisions.Situations() {
		best, outcome := s.Decisions.BestAction(situation)
		if outcome == nil {
			continue
		}
		seasoned := false
		for _, o := range s.Decisions.Outcomes(situation) {
			if o.Tries >= 2 {
				seasoned = true
				break
			}
		}
		if !seasoned {
			continue
		}
		payload.Decisions = append(payload.Decisions, DecisionDigest{
			Situation:    situation,
			Best:         best,
			Rate:         round2(float64(outcome.Successes) / float64(outcome.Tries)),
			Alternatives: len(s.Decisions.Outcomes(situation)) - 1,
		})
	}

	for _, hyp := range s.Hypotheses.All() {
		if hyp.EvidenceFor+hyp.EvidenceAgainst < 2 {
			continue
		}
		payload.Hypotheses = append(payload.Hypotheses, HypothesisDigest{
			Belief:     hyp.Belief,
			Confidence: round2(hyp.Confidence),
		})
	}

	for _, f := range s.Failures.Recent(bootFailureLimit) {
		payload.Failures = append(payload.Failures, FailureDigest{
			Situation: f.Situation,
			Avoid:     f.FailedApproach,
			Instead:   f.BetterApproach,
		})
	}

	payload.Parameters = s.Params.All()
	return payload
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
