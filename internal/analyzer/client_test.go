package analyzer

import "testing"

func TestParseInfoLine(t *testing.T) {
	cases := []struct {
		line    string
		wantOK  bool
		depth   int
		multipv int
		isMate  bool
		value   int32
		pvLen   int
	}{
		{
			line:    "info depth 18 seldepth 24 multipv 1 score cp 37 nodes 123456 nps 900000 pv e2e4 e7e5 g1f3",
			wantOK:  true,
			depth:   18,
			multipv: 1,
			value:   37,
			pvLen:   3,
		},
		{
			line:    "info depth 12 multipv 2 score mate 3 pv d1h5 g8f6 h5f7",
			wantOK:  true,
			depth:   12,
			multipv: 2,
			isMate:  true,
			value:   3,
			pvLen:   3,
		},
		{
			line:   "info currmove e2e4 currmovenumber 1",
			wantOK: false,
		},
		{
			line:   "info depth 10 score cp 10",
			wantOK: false,
		},
	}

	for _, c := range cases {
		u, ok := parseInfoLine(c.line)
		if ok != c.wantOK {
			t.Fatalf("parseInfoLine(%q) ok = %v, want %v", c.line, ok, c.wantOK)
		}
		if !ok {
			continue
		}
		if u.depth != c.depth {
			t.Errorf("depth = %d, want %d", u.depth, c.depth)
		}
		if u.multipv != c.multipv {
			t.Errorf("multipv = %d, want %d", u.multipv, c.multipv)
		}
		if u.score.IsMate() != c.isMate {
			t.Errorf("IsMate() = %v, want %v", u.score.IsMate(), c.isMate)
		}
		if u.score.Value != c.value {
			t.Errorf("score value = %d, want %d", u.score.Value, c.value)
		}
		if len(u.pvTokens) != c.pvLen {
			t.Errorf("pv length = %d, want %d", len(u.pvTokens), c.pvLen)
		}
	}
}

func TestIsMoreComplete(t *testing.T) {
	prev := rawUpdate{depth: 10}
	next := rawUpdate{depth: 12}
	if !isMoreComplete(prev, next) {
		t.Fatalf("expected deeper update to be more complete")
	}
	if isMoreComplete(next, prev) {
		t.Fatalf("expected shallower update not to overwrite a deeper one")
	}
}
