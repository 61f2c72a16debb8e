package episode

import (
	"fmt"
	"testing"
	"time"

	"github.com/GetAnima/anima-memory/internal/storage"
)

func testStores(t *testing.T) (*Store, *Knowledge) {
	t.Helper()
	layout, err := storage.NewLayout(t.TempDir())
	if err != nil {
		t.Fatalf("NewLayout: %v", err)
	}
	k := NewKnowledge(layout, 200)
	return NewStore(layout, k, 500), k
}

func fptr(v float64) *float64 { return &v }

func TestRecordValidation(t *testing.T) {
	s, _ := testStores(t)

	if _, err := s.Record("", "summary", RecordOpts{}); err != ErrEmptyTitle {
		t.Errorf("empty title err = %v, want ErrEmptyTitle", err)
	}
	if _, err := s.Record("title", "  ", RecordOpts{}); err != ErrEmptySummary {
		t.Errorf("empty summary err = %v, want ErrEmptySummary", err)
	}
	if _, err := s.Record("title", "summary", RecordOpts{EmotionalWeight: fptr(-0.1)}); err != ErrBadWeight {
		t.Errorf("bad weight err = %v, want ErrBadWeight", err)
	}
	if _, err := s.Record("title", "summary", RecordOpts{Lessons: make([]string, maxLessons+1)}); err != ErrTooManyLessons {
		t.Errorf("lesson overflow err = %v, want ErrTooManyLessons", err)
	}
}

func TestImportanceIsDerived(t *testing.T) {
	s, _ := testStores(t)

	e, err := s.Record("pairing session", "walked through the storage layer", RecordOpts{
		EmotionalWeight: fptr(0.5),
		Participants:    []string{"dana", "lee"},
		Lessons:         []string{"always flush before returning"},
		Connections:     Connections{Memories: []string{"m1", "m2"}},
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	// 0.4*0.5 + 0.05*1 + 0.04*2 + 0.05*2 = 0.43
	want := 0.43
	if diff := e.Importance - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("importance = %v, want %v", e.Importance, want)
	}
}

func TestImportanceComponentCaps(t *testing.T) {
	s, _ := testStores(t)

	lessons := make([]string, 10)
	for i := range lessons {
		lessons[i] = fmt.Sprintf("lesson %d", i)
	}
	e, err := s.Record("dense episode", "many lessons", RecordOpts{
		EmotionalWeight: fptr(1),
		Lessons:         lessons,
		Participants:    []string{"a", "b", "c", "d", "e", "f"},
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	// 0.4 + min(0.25, 0.5) + 0 + min(0.15, 0.3) = 0.8
	want := 0.8
	if diff := e.Importance - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("importance = %v, want %v (component caps)", e.Importance, want)
	}
}

func TestAddLessonRecomputesImportance(t *testing.T) {
	s, _ := testStores(t)

	e, err := s.Record("review", "code review", RecordOpts{EmotionalWeight: fptr(0.2)})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	before := e.Importance

	got, err := s.AddLesson(e.ID, "smaller diffs review faster")
	if err != nil {
		t.Fatalf("AddLesson: %v", err)
	}
	if got.Importance <= before {
		t.Errorf("importance should rise with a lesson: %v -> %v", before, got.Importance)
	}
}

func TestRecordDistillsHighImportanceLessons(t *testing.T) {
	s, k := testStores(t)

	_, err := s.Record("incident retro", "full postmortem of the outage", RecordOpts{
		EmotionalWeight: fptr(0.9),
		Participants:    []string{"oncall", "lead"},
		Tags:            []string{"retries", "outage"},
		Lessons:         []string{"cap retry backoff at one minute"},
		Connections:     Connections{Memories: []string{"m1", "m2", "m3"}},
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	entry := k.Get("retries")
	if entry == nil {
		t.Fatal("high-importance lesson should be distilled under the first tag")
	}
	if entry.Insight != "cap retry backoff at one minute" {
		t.Errorf("insight = %q", entry.Insight)
	}
}

func TestRecordLowImportanceDoesNotDistill(t *testing.T) {
	s, k := testStores(t)

	_, err := s.Record("minor note", "quick chat", RecordOpts{
		EmotionalWeight: fptr(0.1),
		Lessons:         []string{"nothing much"},
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if k.Len() != 0 {
		t.Errorf("low-importance lessons must not be distilled, knowledge has %d entries", k.Len())
	}
}

func TestCapacityDisplacesLowImportance(t *testing.T) {
	layout, err := storage.NewLayout(t.TempDir())
	if err != nil {
		t.Fatalf("NewLayout: %v", err)
	}
	s := NewStore(layout, nil, 2)

	low, err := s.Record("forgettable", "nothing happened", RecordOpts{EmotionalWeight: fptr(0.1)})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if _, err := s.Record("routine", "daily standup", RecordOpts{EmotionalWeight: fptr(0.6)}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	if _, err := s.Record("new arrival", "fresh episode", RecordOpts{}); err != nil {
		t.Fatalf("Record at capacity: %v", err)
	}

	got := s.Get(low.ID)
	if got == nil || !got.Archived {
		t.Error("lowest-importance episode below the floor should be auto-archived")
	}
}

func TestCapacityRejectsWhenNothingArchivable(t *testing.T) {
	layout, err := storage.NewLayout(t.TempDir())
	if err != nil {
		t.Fatalf("NewLayout: %v", err)
	}
	s := NewStore(layout, nil, 1)

	if _, err := s.Record("sticky", "important", RecordOpts{EmotionalWeight: fptr(0.9)}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if _, err := s.Record("overflow", "no room", RecordOpts{}); err != ErrAtCapacity {
		t.Errorf("err = %v, want ErrAtCapacity", err)
	}
}

func TestQueryFiltersAndRanks(t *testing.T) {
	s, _ := testStores(t)

	if _, err := s.Record("database migration", "moved to the new schema", RecordOpts{
		EmotionalWeight: fptr(0.8),
		Tags:            []string{"db"},
	}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if _, err := s.Record("team lunch", "a migration of a different kind", RecordOpts{
		EmotionalWeight: fptr(0.2),
	}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	got, err := s.Query(Filter{Text: "migration"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2", len(got))
	}
	// Title match + higher emotional weight ranks first.
	if got[0].Title != "database migration" {
		t.Errorf("first result = %q", got[0].Title)
	}
	if got[0].AccessCount != 1 {
		t.Errorf("access count = %d, want 1", got[0].AccessCount)
	}

	got, err = s.Query(Filter{Tags: []string{"db"}})
	if err != nil {
		t.Fatalf("Query by tag: %v", err)
	}
	if len(got) != 1 || got[0].Title != "database migration" {
		t.Errorf("tag filter results = %v", got)
	}
}

func TestConsolidateArchivesOldWeakEpisodes(t *testing.T) {
	s, _ := testStores(t)

	weak, err := s.Record("idle day", "nothing notable", RecordOpts{EmotionalWeight: fptr(0.1)})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	strong, err := s.Record("breakthrough", "shipped the big feature", RecordOpts{
		EmotionalWeight: fptr(0.9),
		Participants:    []string{"team"},
		Lessons:         []string{"ship early"},
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	s.now = func() time.Time { return weak.Timestamp.Add(31 * 24 * time.Hour) }

	stats, err := s.Consolidate()
	if err != nil {
		t.Fatalf("Consolidate: %v", err)
	}
	if stats.Archived != 1 {
		t.Errorf("archived = %d, want 1", stats.Archived)
	}
	if !s.Get(weak.ID).Archived {
		t.Error("weak old episode should be archived")
	}
	if s.Get(strong.ID).Archived {
		t.Error("high-resistance episode must survive consolidation")
	}

	// Archival is soft and reversible.
	if err := s.Unarchive(weak.ID); err != nil {
		t.Fatalf("Unarchive: %v", err)
	}
	if s.Get(weak.ID).Archived {
		t.Error("unarchive should clear the flag")
	}
}

func TestConsolidateDistillsOnce(t *testing.T) {
	s, k := testStores(t)

	// Moderate importance: not distilled at record time.
	e, err := s.Record("debug session", "chased a race condition", RecordOpts{
		EmotionalWeight: fptr(0.5),
		Tags:            []string{"races"},
		Lessons:         []string{"run the race detector in CI"},
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if e.Importance >= distillImportance {
		t.Fatalf("setup: importance %v unexpectedly above distill threshold", e.Importance)
	}
	if k.Len() != 0 {
		t.Fatal("setup: nothing should be distilled yet")
	}

	stats, err := s.Consolidate()
	if err != nil {
		t.Fatalf("Consolidate: %v", err)
	}
	if stats.Distilled != 1 {
		t.Errorf("distilled = %d, want 1", stats.Distilled)
	}
	if k.Get("races") == nil {
		t.Fatal("lesson should be distilled under the first tag")
	}

	// A second sweep must not re-distill the same lesson.
	stats, err = s.Consolidate()
	if err != nil {
		t.Fatalf("Consolidate second pass: %v", err)
	}
	if stats.Distilled != 0 {
		t.Errorf("second pass distilled = %d, want 0", stats.Distilled)
	}
	if got := k.Get("races"); len(got.History) != 0 {
		t.Errorf("re-distillation pushed history: %v", got.History)
	}
}
