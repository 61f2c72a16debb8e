package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func testLayout(t *testing.T) Layout {
	t.Helper()
	l, err := NewLayout(t.TempDir())
	if err != nil {
		t.Fatalf("NewLayout: %v", err)
	}
	return l
}

func TestLoadIndexMissingFile(t *testing.T) {
	l := testLayout(t)

	var v []string
	res := LoadIndex(l.IndexPath("memories"), &v)
	if res.State != LoadEmpty {
		t.Errorf("state = %v, want LoadEmpty", res.State)
	}
	if len(v) != 0 {
		t.Errorf("expected empty value, got %v", v)
	}
}

func TestLoadIndexCorrupt(t *testing.T) {
	l := testLayout(t)
	path := l.IndexPath("memories")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	var v map[string]int
	res := LoadIndex(path, &v)
	if res.State != LoadCorrupt {
		t.Errorf("state = %v, want LoadCorrupt", res.State)
	}
	if res.Reason == "" {
		t.Error("corrupt result should carry a reason")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	l := testLayout(t)
	path := l.IndexPath("knowledge")

	in := map[string]float64{"go": 0.9, "sqlite": 0.7}
	if err := SaveIndex(path, in); err != nil {
		t.Fatalf("SaveIndex: %v", err)
	}

	var out map[string]float64
	res := LoadIndex(path, &out)
	if res.State != LoadOK {
		t.Fatalf("state = %v, want LoadOK", res.State)
	}
	if out["go"] != 0.9 || out["sqlite"] != 0.7 {
		t.Errorf("round trip mismatch: %v", out)
	}

	// No temp file should remain after a successful save
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind after save")
	}
}

func TestAppendLine(t *testing.T) {
	l := testLayout(t)
	path := filepath.Join(l.LogDir(), "test.log")

	if err := AppendLine(path, "first"); err != nil {
		t.Fatalf("AppendLine: %v", err)
	}
	if err := AppendLine(path, "second"); err != nil {
		t.Fatalf("AppendLine: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if string(data) != "first\nsecond\n" {
		t.Errorf("log content = %q", string(data))
	}
}

func TestEvictionCandidate(t *testing.T) {
	type entry struct {
		score     float64
		protected bool
	}
	items := []entry{
		{score: 0.5},
		{score: 0.1},
		{score: 0.3, protected: true},
	}

	idx, err := EvictionCandidate(items,
		func(a, b entry) bool { return a.score < b.score },
		func(e entry) bool { return e.protected })
	if err != nil {
		t.Fatalf("EvictionCandidate: %v", err)
	}
	if idx != 1 {
		t.Errorf("evict index = %d, want 1", idx)
	}
}

func TestEvictionCandidateAllProtected(t *testing.T) {
	items := []int{1, 2, 3}
	_, err := EvictionCandidate(items,
		func(a, b int) bool { return a < b },
		func(int) bool { return true })
	if err != ErrNoEvictionCandidate {
		t.Errorf("err = %v, want ErrNoEvictionCandidate", err)
	}
}
