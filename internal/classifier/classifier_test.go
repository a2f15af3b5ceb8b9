package classifier

import (
	"testing"

	"github.com/huandney/puzzleforge/internal/board"
)

func mustFEN(t *testing.T, fen string) *board.Position {
	t.Helper()
	pos, err := board.ParseFEN(fen)
	if err != nil {
		t.Fatalf("ParseFEN(%q): %v", fen, err)
	}
	return pos
}

// Starting position: material = 24/196 ≈ 0.122, plyNorm = 0, rights = 1,
// so v = (2*0.122 + 0 + 1)/4 ≈ 0.311, inside the Middlegame band.
func TestClassifyPhaseStartingPositionIsMiddlegame(t *testing.T) {
	pos := mustFEN(t, board.StartFEN)
	if got := ClassifyPhase(pos, 0); got != Middlegame {
		t.Errorf("ClassifyPhase(start, ply 0) = %v, want Middlegame", got)
	}
}

// Bare kings at ply 80: material = 0, plyNorm = 1, rights = 0, so
// v = (0 + 1 + 0)/4 = 0.25, just above the Endgame cutoff of 0.20.
func TestClassifyPhaseBareKingsAtPly80IsMiddlegame(t *testing.T) {
	pos := mustFEN(t, "8/8/8/4k3/8/8/4K3/8 w - - 0 1")
	if got := ClassifyPhase(pos, 80); got != Middlegame {
		t.Errorf("ClassifyPhase(bare kings, ply 80) = %v, want Middlegame", got)
	}
}

func TestClassifyTacticMatchOrder(t *testing.T) {
	cases := []struct {
		name              string
		postCP, finalCP   int32
		isMate            bool
		want              TacticalObjective
	}{
		{"mate wins regardless of cp", 500, -500, true, Mate},
		{"reversal", -100, 300, false, Reversal},
		{"advantage", 200, 300, false, Advantage},
		{"equalization", -150, 0, false, Equalization},
		{"resistance", -50, -10, false, Resistance},
		{"tactical fallback", 50, 50, false, Tactical},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := ClassifyTactic(c.postCP, c.finalCP, c.isMate)
			if got != c.want {
				t.Errorf("ClassifyTactic(%d, %d, %v) = %v, want %v", c.postCP, c.finalCP, c.isMate, got, c.want)
			}
		})
	}
}
