package puzzlebuilder

import (
	"context"
	"testing"

	"github.com/huandney/puzzleforge/internal/analyzer"
	"github.com/huandney/puzzleforge/internal/board"
	"github.com/huandney/puzzleforge/internal/scanner"
	"github.com/huandney/puzzleforge/internal/score"
)

// fakeEngine scripts a fixed response per Analyze/BestMove call index,
// enough to drive the builder's loop deterministically.
type fakeEngine struct {
	analyzeResponses []func(pos *board.Position) []analyzer.Line
	bestMoveResponses []func(pos *board.Position) *board.Move
	analyzeCalls      int
	bestMoveCalls     int
}

func (f *fakeEngine) Analyze(ctx context.Context, pos *board.Position, depth, k int) ([]analyzer.Line, error) {
	i := f.analyzeCalls
	f.analyzeCalls++
	if i >= len(f.analyzeResponses) {
		return nil, nil
	}
	return f.analyzeResponses[i](pos), nil
}

func (f *fakeEngine) BestMove(ctx context.Context, pos *board.Position, depth int) (*board.Move, error) {
	i := f.bestMoveCalls
	f.bestMoveCalls++
	if i >= len(f.bestMoveResponses) {
		return nil, nil
	}
	return f.bestMoveResponses[i](pos), nil
}

func mustFEN(t *testing.T, fen string) *board.Position {
	t.Helper()
	pos, err := board.ParseFEN(fen)
	if err != nil {
		t.Fatalf("ParseFEN(%q): %v", fen, err)
	}
	return pos
}

func firstMove(pos *board.Position) board.Move {
	return pos.GenerateLegalMoves().Get(0)
}

func TestIsInterestingBelowCompletelyWinning(t *testing.T) {
	eng := &fakeEngine{}
	b := New(eng, 16)
	c := &scanner.Candidate{PreCP: 300, PostBoard: mustFEN(t, board.StartFEN)}
	ok, err := b.isInteresting(context.Background(), c)
	if err != nil {
		t.Fatalf("isInteresting: %v", err)
	}
	if !ok {
		t.Fatalf("expected interesting when |pre_cp| < CompletelyWinningThreshold")
	}
	if eng.analyzeCalls != 0 {
		t.Errorf("expected no analyzer call when below threshold, got %d", eng.analyzeCalls)
	}
}

func TestIsInterestingFlipsPastDrawingRange(t *testing.T) {
	pos := mustFEN(t, board.StartFEN)
	eng := &fakeEngine{
		analyzeResponses: []func(*board.Position) []analyzer.Line{
			func(p *board.Position) []analyzer.Line {
				return []analyzer.Line{
					{Score: score.CP(600), PV: []board.Move{firstMove(p)}},
					{Score: score.CP(-200), PV: []board.Move{firstMove(p)}},
				}
			},
		},
	}
	b := New(eng, 16)
	c := &scanner.Candidate{PreCP: 600, PostBoard: pos}
	ok, err := b.isInteresting(context.Background(), c)
	if err != nil {
		t.Fatalf("isInteresting: %v", err)
	}
	if !ok {
		t.Fatalf("expected interesting: sign flipped past drawing range")
	}
}

func TestBuildLoopSingleLineNoAlternatives(t *testing.T) {
	pos := mustFEN(t, board.StartFEN)
	eng := &fakeEngine{
		analyzeResponses: []func(*board.Position) []analyzer.Line{
			func(p *board.Position) []analyzer.Line {
				return []analyzer.Line{{Score: score.CP(-500), PV: []board.Move{firstMove(p)}}}
			},
		},
		bestMoveResponses: []func(*board.Position) *board.Move{
			func(p *board.Position) *board.Move { return nil },
		},
	}
	b := New(eng, 16)
	c := &scanner.Candidate{
		PreCP:       0,
		PostBoard:   pos,
		SolverColor: board.Black,
	}
	seq, err := b.buildLoop(context.Background(), c)
	if err != nil {
		t.Fatalf("buildLoop: %v", err)
	}
	if seq == nil {
		t.Fatalf("expected a sequence")
	}
	if len(seq.Moves) != 1 {
		t.Fatalf("expected exactly one solver move (opponent had none), got %d", len(seq.Moves))
	}
	if len(seq.Alternatives) != 0 {
		t.Errorf("expected no alternatives for a single-line cluster")
	}
}
