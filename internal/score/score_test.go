package score

import "testing"

func TestOrderingInvariant(t *testing.T) {
	// MateIn(1) > MateIn(5) > Centipawns(any) > MateIn(-5) > MateIn(-1)
	vals := []Score{
		Mate(1),
		Mate(5),
		CP(1_000_000),
		CP(0),
		CP(-1_000_000),
		Mate(-5),
		Mate(-1),
	}
	for i := 0; i < len(vals)-1; i++ {
		if vals[i].Key() <= vals[i+1].Key() {
			t.Fatalf("expected vals[%d]=%v > vals[%d]=%v, got keys %d <= %d",
				i, vals[i], i+1, vals[i+1], vals[i].Key(), vals[i+1].Key())
		}
	}
}

func TestKeyDiff(t *testing.T) {
	if got := KeyDiff(CP(100), CP(-50)); got != 150 {
		t.Fatalf("KeyDiff(100,-50) = %d, want 150", got)
	}
	if got := KeyDiff(Mate(2), Mate(4)); got != 2 {
		t.Fatalf("KeyDiff(Mate(2),Mate(4)) = %d, want 2", got)
	}
}

func TestToCP(t *testing.T) {
	cases := []struct {
		s    Score
		want int32
	}{
		{CP(37), 37},
		{CP(-200), -200},
		{Mate(5), 99_995},
		{Mate(0), 100_000},
		{Mate(-5), -99_995},
		{Mate(-1), -99_999},
	}
	for _, c := range cases {
		if got := c.s.ToCP(); got != c.want {
			t.Errorf("%v.ToCP() = %d, want %d", c.s, got, c.want)
		}
	}
}

func TestStandardize(t *testing.T) {
	raw := CP(80)
	if got := Standardize(raw, true); got != CP(80) {
		t.Errorf("white-to-move should pass through unchanged, got %v", got)
	}
	if got := Standardize(raw, false); got != CP(-80) {
		t.Errorf("black-to-move should negate, got %v", got)
	}

	rawMate := Mate(3)
	if got := Standardize(rawMate, false); got != Mate(-3) {
		t.Errorf("black-to-move mate should negate, got %v", got)
	}
}

func TestMateOffsetExceedsRealisticCentipawns(t *testing.T) {
	const maxPlausibleCP = 50_000
	if MateOffset <= maxPlausibleCP {
		t.Fatalf("MateOffset must strictly exceed any realistic centipawn magnitude")
	}
}
