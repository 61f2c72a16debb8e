package behavior

import (
	"fmt"
	"testing"

	"github.com/GetAnima/anima-memory/internal/storage"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	layout, err := storage.NewLayout(t.TempDir())
	if err != nil {
		t.Fatalf("NewLayout: %v", err)
	}
	return NewStore(layout, Caps{})
}

func TestDecideAccumulates(t *testing.T) {
	s := testStore(t)

	for i := 0; i < 3; i++ {
		if err := s.Decisions.Decide("flaky test", "rerun once", i < 2); err != nil {
			t.Fatalf("Decide: %v", err)
		}
	}

	outcomes := s.Decisions.Outcomes("flaky test")
	o := outcomes["rerun once"]
	if o.Tries != 3 || o.Successes != 2 {
		t.Errorf("outcome = %+v, want 3 tries / 2 successes", o)
	}
}

func TestBestActionDiscountsSingleTry(t *testing.T) {
	s := testStore(t)

	// A: 1 try, 1 success (fluke). B: 4 tries, 4 successes.
	if err := s.Decisions.Decide("merge conflict", "force push", true); err != nil {
		t.Fatalf("Decide: %v", err)
	}
	for i := 0; i < 4; i++ {
		if err := s.Decisions.Decide("merge conflict", "rebase carefully", true); err != nil {
			t.Fatalf("Decide: %v", err)
		}
	}

	best, outcome := s.Decisions.BestAction("merge conflict")
	if best != "rebase carefully" {
		t.Errorf("best action = %q, want the 4/4 action over the 1/1 fluke", best)
	}
	if outcome.Tries != 4 {
		t.Errorf("best outcome tries = %d, want 4", outcome.Tries)
	}
}

func TestBestActionTieGoesToMoreTries(t *testing.T) {
	s := testStore(t)

	for i := 0; i < 2; i++ {
		s.Decisions.Decide("slow query", "add index", true)
	}
	for i := 0; i < 5; i++ {
		s.Decisions.Decide("slow query", "rewrite join", true)
	}

	best, _ := s.Decisions.BestAction("slow query")
	if best != "rewrite join" {
		t.Errorf("best = %q, want the higher-try action on a rate tie", best)
	}
}

func TestDecideValidation(t *testing.T) {
	s := testStore(t)
	if err := s.Decisions.Decide(" ", "act", true); err != ErrEmptySituation {
		t.Errorf("err = %v, want ErrEmptySituation", err)
	}
	if err := s.Decisions.Decide("sit", "", true); err != ErrEmptyAction {
		t.Errorf("err = %v, want ErrEmptyAction", err)
	}
}

func TestHypothesisConfidenceLaw(t *testing.T) {
	s := testStore(t)

	for i := 0; i < 3; i++ {
		if _, err := s.Hypotheses.Evidence("tests catch regressions", true, ""); err != nil {
			t.Fatalf("Evidence: %v", err)
		}
	}
	hyp, err := s.Hypotheses.Evidence("tests catch regressions", false, "missed a prod bug")
	if err != nil {
		t.Fatalf("Evidence: %v", err)
	}

	if hyp.Confidence != 0.75 {
		t.Errorf("confidence = %v, want exactly 0.75 after 3 for / 1 against", hyp.Confidence)
	}
	if hyp.EvidenceFor != 3 || hyp.EvidenceAgainst != 1 {
		t.Errorf("evidence = %d/%d, want 3/1", hyp.EvidenceFor, hyp.EvidenceAgainst)
	}
}

func TestHypothesizeIsCreateOnly(t *testing.T) {
	s := testStore(t)

	first, err := s.Hypotheses.Hypothesize("logs are enough", 0.3)
	if err != nil {
		t.Fatalf("Hypothesize: %v", err)
	}
	if first.Confidence != 0.3 {
		t.Errorf("starting confidence = %v, want 0.3", first.Confidence)
	}

	again, err := s.Hypotheses.Hypothesize("logs are enough", 0.9)
	if err != nil {
		t.Fatalf("Hypothesize again: %v", err)
	}
	if again.Confidence != 0.3 {
		t.Errorf("re-hypothesize changed confidence to %v, must return existing unchanged", again.Confidence)
	}
}

func TestHypothesisNoteRing(t *testing.T) {
	s := testStore(t)

	for i := 0; i < maxHypothesisNotes+5; i++ {
		if _, err := s.Hypotheses.Evidence("belief", true, fmt.Sprintf("note %d", i)); err != nil {
			t.Fatalf("Evidence: %v", err)
		}
	}

	hyp := s.Hypotheses.Get("belief")
	if len(hyp.Notes) != maxHypothesisNotes {
		t.Fatalf("notes = %d, want capped at %d", len(hyp.Notes), maxHypothesisNotes)
	}
	if hyp.Notes[0] != "note 5" {
		t.Errorf("oldest surviving note = %q, want notes dropped oldest-first", hyp.Notes[0])
	}
}

func TestParamsTypedLastWriteWins(t *testing.T) {
	s := testStore(t)

	if err := s.Params.Set("verbosity", NumberValue(2)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Params.Set("verbosity", NumberValue(3)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok := s.Params.Get("verbosity")
	if !ok || v.Number != 3 {
		t.Errorf("verbosity = %+v, want last write (3)", v)
	}

	if err := s.Params.Set("cautious", BoolValue(true)); err != nil {
		t.Fatalf("Set bool: %v", err)
	}
	if err := s.Params.Set("greeting", StringValue("short and direct")); err != nil {
		t.Fatalf("Set string: %v", err)
	}

	if err := s.Params.Set("bad", ParamValue{Kind: "list"}); err == nil {
		t.Error("unknown kind should be rejected")
	}
	long := make([]byte, maxParamStringChars+1)
	if err := s.Params.Set("long", StringValue(string(long))); err != ErrParamStringLong {
		t.Errorf("long string err = %v, want ErrParamStringLong", err)
	}
}

func TestFailureEvictionPolicy(t *testing.T) {
	layout, err := storage.NewLayout(t.TempDir())
	if err != nil {
		t.Fatalf("NewLayout: %v", err)
	}
	s := NewStore(layout, Caps{Failures: 2})

	if _, err := s.Failures.RecordFailure("deploy friday", "yolo push", "wait for monday", []string{"deploy"}); err != nil {
		t.Fatalf("RecordFailure: %v", err)
	}
	if _, err := s.Failures.RecordFailure("db migration", "edit prod by hand", "write a migration", nil); err != nil {
		t.Fatalf("RecordFailure: %v", err)
	}

	// Bump avoidance on the first entry so the second becomes the victim.
	if _, err := s.Failures.CheckFailures("deploy friday afternoon"); err != nil {
		t.Fatalf("CheckFailures: %v", err)
	}

	if _, err := s.Failures.RecordFailure("rate limit", "hammer the api", "back off", nil); err != nil {
		t.Fatalf("RecordFailure at capacity: %v", err)
	}

	if s.Failures.Len() != 2 {
		t.Fatalf("len = %d, want 2", s.Failures.Len())
	}
	for _, f := range s.Failures.Recent(10) {
		if f.Situation == "db migration" {
			t.Error("lowest-avoidance entry should have been evicted")
		}
		if f.Situation == "deploy friday" && f.Avoidance == 0 {
			t.Error("avoidance bump was not persisted")
		}
	}
}

func TestCheckFailuresScoring(t *testing.T) {
	s := testStore(t)

	if _, err := s.Failures.RecordFailure("parsing large json", "load whole file", "stream it", []string{"json"}); err != nil {
		t.Fatalf("RecordFailure: %v", err)
	}
	if _, err := s.Failures.RecordFailure("ssh timeout", "retry in a loop", "check the vpn", nil); err != nil {
		t.Fatalf("RecordFailure: %v", err)
	}

	matches, err := s.Failures.CheckFailures("json parsing blew up")
	if err != nil {
		t.Fatalf("CheckFailures: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1 (zero-overlap excluded)", len(matches))
	}
	// "json" hits situation (+1) and tag (+2), "parsing" hits situation
	// (+1); 4 points over 4 query words.
	if matches[0].Score != 1.0 {
		t.Errorf("score = %v, want 1.0", matches[0].Score)
	}
}

func TestBootCompaction(t *testing.T) {
	s := testStore(t)

	// Two tries → included.
	s.Decisions.Decide("flaky test", "rerun once", true)
	s.Decisions.Decide("flaky test", "rerun once", true)
	s.Decisions.Decide("flaky test", "delete it", false)
	// Single try → excluded.
	s.Decisions.Decide("novel case", "wing it", true)

	// Two submissions → included.
	s.Hypotheses.Evidence("short prs merge faster", true, "")
	s.Hypotheses.Evidence("short prs merge faster", true, "")
	// One submission → excluded.
	s.Hypotheses.Evidence("mornings are productive", true, "")

	s.Failures.RecordFailure("deploy friday", "yolo push", "wait", nil)
	s.Params.Set("verbosity", NumberValue(2))

	payload := s.Boot()

	if len(payload.Decisions) != 1 {
		t.Fatalf("decisions = %d, want 1", len(payload.Decisions))
	}
	d := payload.Decisions[0]
	if d.Situation != "flaky test" || d.Best != "rerun once" || d.Rate != 1.0 || d.Alternatives != 1 {
		t.Errorf("decision digest = %+v", d)
	}

	if len(payload.Hypotheses) != 1 || payload.Hypotheses[0].Confidence != 1.0 {
		t.Errorf("hypotheses digest = %+v", payload.Hypotheses)
	}
	if len(payload.Failures) != 1 || payload.Failures[0].Avoid != "yolo push" {
		t.Errorf("failures digest = %+v", payload.Failures)
	}
	if payload.Parameters["verbosity"].Number != 2 {
		t.Errorf("parameters = %+v", payload.Parameters)
	}
}
