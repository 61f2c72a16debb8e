package conflict

import (
	"testing"

	"github.com/GetAnima/anima-memory/internal/opinion"
	"github.com/GetAnima/anima-memory/internal/storage"
)

func testFixtures(t *testing.T) (*Ledger, *opinion.Store) {
	t.Helper()
	layout, err := storage.NewLayout(t.TempDir())
	if err != nil {
		t.Fatalf("NewLayout: %v", err)
	}
	return NewLedger(layout), opinion.NewStore(layout)
}

func TestDetectRequiresHistory(t *testing.T) {
	l, ops := testFixtures(t)

	if _, err := ops.Set("testing", "tests are overhead"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := l.Detect(ops.All())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("opinion without history produced %d conflicts, want 0", len(got))
	}
}

func TestDetectStableID(t *testing.T) {
	l, ops := testFixtures(t)

	if _, err := ops.Set("testing", "tests are overhead"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := ops.Set("testing", "tests pay for themselves"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	first, err := l.Detect(ops.All())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("got %d conflicts, want 1", len(first))
	}
	if first[0].PositionA != "tests are overhead" || first[0].PositionB != "tests pay for themselves" {
		t.Errorf("positions = %q / %q", first[0].PositionA, first[0].PositionB)
	}

	// Second detection run, no resolution in between: same id.
	second, err := l.Detect(ops.All())
	if err != nil {
		t.Fatalf("Detect again: %v", err)
	}
	if len(second) != 1 || second[0].ID != first[0].ID {
		t.Errorf("re-detection minted a new id: %q vs %q", second[0].ID, first[0].ID)
	}

	// Stability holds across a reload of the persisted ledger too.
	reopened := NewLedger(l.layout)
	third, err := reopened.Detect(ops.All())
	if err != nil {
		t.Fatalf("Detect on reopened ledger: %v", err)
	}
	if len(third) != 1 || third[0].ID != first[0].ID {
		t.Errorf("reloaded ledger minted a new id: %q vs %q", third[0].ID, first[0].ID)
	}
}

func TestResolutionThenNewDivergence(t *testing.T) {
	l, ops := testFixtures(t)

	ops.Set("style", "terse replies")
	ops.Set("style", "thorough replies")

	first, err := l.Detect(ops.All())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if _, err := l.Resolve(first[0].ID, "thoroughness wins for design questions"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	// Opinion unchanged since resolution: no new conflict.
	got, err := l.Detect(ops.All())
	if err != nil {
		t.Fatalf("Detect after resolve: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("settled topic produced %d conflicts, want 0", len(got))
	}

	// Opinion moves again: a fresh unresolved conflict with a new id.
	ops.Set("style", "match the asker's length")
	got, err = l.Detect(ops.All())
	if err != nil {
		t.Fatalf("Detect after new divergence: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d conflicts, want 1", len(got))
	}
	if got[0].ID == first[0].ID {
		t.Error("new divergence must mint a new conflict id")
	}
	if got[0].Resolved {
		t.Error("new conflict must start unresolved")
	}
}

func TestResolveAndListing(t *testing.T) {
	l, ops := testFixtures(t)

	ops.Set("tabs", "tabs")
	ops.Set("tabs", "spaces")
	detected, err := l.Detect(ops.All())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	c, err := l.Resolve(detected[0].ID, "gofmt decides")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !c.Resolved || c.Resolution != "gofmt decides" || c.ResolvedAt == nil {
		t.Errorf("resolved conflict = %+v", c)
	}

	if got := l.List(false); len(got) != 0 {
		t.Errorf("default listing includes resolved conflicts: %v", got)
	}
	if got := l.List(true); len(got) != 1 {
		t.Errorf("inclusive listing = %d conflicts, want 1", len(got))
	}

	if _, err := l.Resolve("01J00000000000000000000000", "nope"); err == nil {
		t.Error("resolving an unknown id should fail")
	}
}
