package scoring

import "testing"

func TestSalienceBounded(t *testing.T) {
	grid := []float64{0, 0.25, 0.5, 0.75, 1}
	for _, n := range grid {
		for _, r := range grid {
			for _, m := range grid {
				for _, c := range grid {
					for _, e := range grid {
						s := Salience(n, r, m, c, e)
						if s < 0 || s > 1 {
							t.Fatalf("Salience(%v,%v,%v,%v,%v) = %v, out of [0,1]", n, r, m, c, e, s)
						}
					}
				}
			}
		}
	}
}

func TestSalienceFreshRecordNotSaturated(t *testing.T) {
	// A newly created record has full novelty and momentum but zero
	// retention; it must not saturate at 1.0 or later differentiation
	// becomes impossible.
	s := Salience(1, 0, 1, 1, 0)
	if s >= 1.0 {
		t.Errorf("fresh record salience = %v, want < 1.0", s)
	}
	if s < 0.5 {
		t.Errorf("fresh record salience = %v, suspiciously low", s)
	}
}

func TestSalienceClampsWildInputs(t *testing.T) {
	s := Salience(5, -3, 100, -1, 2)
	if s < 0 || s > 1 {
		t.Errorf("Salience with wild inputs = %v, out of [0,1]", s)
	}
}

func TestDecayMonotonicInAge(t *testing.T) {
	rates := DefaultRates()
	prev := -1.0
	for age := 0.0; age <= 1000; age += 10 {
		d := Decay("event", age, 2, 0.4, rates)
		if d < prev {
			t.Fatalf("decay decreased with age: age=%v d=%v prev=%v", age, d, prev)
		}
		prev = d
	}
}

func TestDecayNonIncreasingInAccessAndEmotion(t *testing.T) {
	rates := DefaultRates()
	prev := 2.0
	for ac := 0; ac <= 20; ac++ {
		d := Decay("event", 100, ac, 0.3, rates)
		if d > prev {
			t.Fatalf("decay increased with access count: ac=%d d=%v prev=%v", ac, d, prev)
		}
		prev = d
	}

	prev = 2.0
	for ew := 0.0; ew <= 1.0; ew += 0.05 {
		d := Decay("event", 100, 0, ew, rates)
		if d > prev {
			t.Fatalf("decay increased with emotional weight: ew=%v d=%v prev=%v", ew, d, prev)
		}
		prev = d
	}
}

func TestDecayCategoryOrdering(t *testing.T) {
	rates := DefaultRates()
	lesson := Decay("lesson", 50, 0, 0, rates)
	insight := Decay("insight", 50, 0, 0, rates)
	event := Decay("event", 50, 0, 0, rates)
	if !(lesson < insight && insight < event) {
		t.Errorf("expected lesson < insight < event decay, got %v %v %v", lesson, insight, event)
	}
}

func TestDecayClampsBadTimestamps(t *testing.T) {
	d := Decay("event", -48, -3, -1, DefaultRates())
	if d != 0 {
		t.Errorf("negative-age decay = %v, want 0", d)
	}
}

func TestDecayFullStalenessAfterThirtyDays(t *testing.T) {
	d := Decay("event", 30*24, 0, 0, DefaultRates())
	if d != 1 {
		t.Errorf("30-day untouched episodic decay = %v, want 1", d)
	}
}
