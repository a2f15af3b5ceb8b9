package analyzer

import (
	"context"

	"github.com/huandney/puzzleforge/internal/board"
	"github.com/huandney/puzzleforge/internal/score"
)

// Origin records which backend produced an analysis Line: the engine
// subprocess, or a short-circuit lookup into the endgame oracle.
type Origin uint8

const (
	OriginEngine Origin = iota
	OriginEndgame
)

func (o Origin) String() string {
	if o == OriginEndgame {
		return "endgame"
	}
	return "engine"
}

// Line is the result of one evaluation of one principal variation: a
// single multipv slot from a search, or the oracle's one synthesized
// verdict. Its lifetime is a single request — it carries no reference
// back to the position it was computed from.
type Line struct {
	Score score.Score
	Depth int
	PV    []board.Move
	Origin Origin
}

// Engine is the unified analysis interface the Candidate Scanner and
// Puzzle Builder depend on. Both the raw UCI Client and the Oracle
// decorator that short-circuits small positions implement it, so
// downstream code is oblivious to which one actually produced a line.
type Engine interface {
	// Analyze requests up to k principal variations at the given
	// search depth, sorted best-first from the perspective of the
	// side to move in pos. Every returned Line has a non-empty PV and
	// a non-null score; len(result) may be less than k.
	Analyze(ctx context.Context, pos *board.Position, depth, k int) ([]Line, error)

	// BestMove is a convenience wrapper equivalent to taking pv[0] of
	// the single best line from Analyze(pos, depth, 1). Returns nil if
	// Analyze produced no lines (natural end of a forcing sequence).
	BestMove(ctx context.Context, pos *board.Position, depth int) (*board.Move, error)
}
