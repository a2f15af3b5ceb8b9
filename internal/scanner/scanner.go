// Package scanner implements the Candidate Scanner (C4): Phase 1 of
// the pipeline. It walks a stream of played moves, evaluates each
// resulting position, and emits a Candidate wherever the evaluation
// jumps by at least BlunderThreshold.
package scanner

import (
	"context"
	"fmt"

	"github.com/huandney/puzzleforge/internal/analyzer"
	"github.com/huandney/puzzleforge/internal/board"
	"github.com/huandney/puzzleforge/internal/config"
	"github.com/huandney/puzzleforge/internal/score"
)

// PlayedMove is one ply from the archive feed: the position it was
// played from, the move itself, and the headers of the game it came
// from (carried so a later Candidate can be formatted without a
// second pass over the archive).
type PlayedMove struct {
	GameIndex int
	MoveIndex int
	PreBoard  *board.Position
	Move      board.Move
	Headers   map[string]string
}

// Candidate is one Phase 1 output: a detected blunder, ready for the
// Puzzle Builder.
type Candidate struct {
	PreBoard     *board.Position
	PostBoard    *board.Position
	BlunderMove  board.Move
	SolverColor  board.Color
	PreCP        int32
	PostCP       int32
	MoveNumber   int
	Headers      map[string]string
}

// Options configures the optional rejection filters. Both default to
// off; the original source's drafts disagree on whether to apply
// them, so this implementation makes them explicit, opt-in knobs
// rather than guessing which draft is authoritative.
type Options struct {
	RejectHangingPieces      bool
	RejectSequentialCaptures bool
}

// Scanner holds the one piece of state Phase 1 carries across an
// entire game: the cached evaluation of the position before the most
// recently processed ply.
type Scanner struct {
	engine  analyzer.Engine
	baseDepth int
	opts    Options

	havePrev bool
	prevCP   int32
	curGame  int
}

// New builds a Scanner bound to engine (which may itself be an
// oracle-wrapped engine; the scanner does not need to know).
func New(engine analyzer.Engine, baseDepth int, opts Options) *Scanner {
	return &Scanner{engine: engine, baseDepth: baseDepth, opts: opts, curGame: -1}
}

// scanDepth is max(1, floor(base*ScanMult)).
func (s *Scanner) scanDepth() int {
	return config.ScanDepth(s.baseDepth)
}

// Process consumes one played move, returning a *Candidate if a
// blunder was detected, or nil otherwise. It returns an error when an
// evaluation fails (any error from the engine, or an engine reply with
// no lines); a skipped ply is signaled by a nil Candidate and nil error.
func (s *Scanner) Process(ctx context.Context, pm PlayedMove) (*Candidate, error) {
	if pm.GameIndex != s.curGame {
		// New game: seed prev_cp from the starting position instead of
		// carrying a stale value across game boundaries.
		s.curGame = pm.GameIndex
		cp, err := s.evaluate(ctx, pm.PreBoard)
		if err != nil {
			return nil, err
		}
		s.prevCP = cp
		s.havePrev = true
	}

	postBoard := pm.PreBoard.Copy()
	postBoard.MakeMove(pm.Move)

	if postBoard.GameOver() {
		// The game is effectively over; do not update prevCP so a later
		// ply (if any) doesn't inherit a meaningless baseline.
		return nil, nil
	}

	postCP, err := s.evaluate(ctx, postBoard)
	if err != nil {
		return nil, err
	}

	diff := postCP - s.prevCP
	if abs32(diff) < config.BlunderThreshold {
		s.prevCP = postCP
		return nil, nil
	}

	solverColor := board.Black
	if postCP > s.prevCP {
		solverColor = board.White
	}

	if postBoard.GenerateLegalMoves().Len() <= 1 {
		s.prevCP = postCP
		return nil, nil
	}

	if s.rejected(ctx, postBoard, pm.Move) {
		s.prevCP = postCP
		return nil, nil
	}

	candidate := &Candidate{
		PreBoard:    pm.PreBoard,
		PostBoard:   postBoard,
		BlunderMove: pm.Move,
		SolverColor: solverColor,
		PreCP:       s.prevCP,
		PostCP:      postCP,
		MoveNumber:  pm.PreBoard.FullMoveNumber,
		Headers:     pm.Headers,
	}
	s.prevCP = postCP
	return candidate, nil
}

func (s *Scanner) evaluate(ctx context.Context, pos *board.Position) (int32, error) {
	lines, err := s.engine.Analyze(ctx, pos, s.scanDepth(), 1)
	if err != nil {
		return 0, err
	}
	if len(lines) == 0 {
		return 0, fmt.Errorf("scanner: analyzer returned no lines for non-terminal position")
	}
	return lines[0].Score.ToCP(), nil
}

// rejected applies the optional hanging-piece and sequential-captures
// filters. Both require extra analyzer calls, so they only run when
// enabled.
func (s *Scanner) rejected(ctx context.Context, postBoard *board.Position, blunderMove board.Move) bool {
	if s.opts.RejectHangingPieces {
		if s.isHangingPiece(ctx, postBoard, blunderMove) {
			return true
		}
	}
	if s.opts.RejectSequentialCaptures {
		if s.isSequentialCaptures(ctx, postBoard) {
			return true
		}
	}
	return false
}

// isHangingPiece discards a blunder where the refutation is an
// immediate, obvious recapture on the blunder square with a large
// evaluation gap to the next-best line.
func (s *Scanner) isHangingPiece(ctx context.Context, postBoard *board.Position, blunderMove board.Move) bool {
	lines, err := s.engine.Analyze(ctx, postBoard, s.scanDepth(), 2)
	if err != nil || len(lines) < 2 {
		return false
	}
	best := lines[0]
	if len(best.PV) == 0 {
		return false
	}
	firstMove := best.PV[0]
	if firstMove.To() != blunderMove.To() {
		return false
	}
	if !firstMove.IsCapture(postBoard) {
		return false
	}
	return score.KeyDiff(best.Score, lines[1].Score) >= config.HangingThreshold
}

// isSequentialCaptures discards a blunder whose refutation is a
// trivial forced recapture sequence: the engine's best line's first
// two plies are both captures.
func (s *Scanner) isSequentialCaptures(ctx context.Context, postBoard *board.Position) bool {
	lines, err := s.engine.Analyze(ctx, postBoard, s.scanDepth(), 1)
	if err != nil || len(lines) == 0 {
		return false
	}
	pv := lines[0].PV
	if len(pv) < 2 {
		return false
	}
	walker := postBoard.Copy()
	capturesSeen := 0
	limit := len(pv)
	if limit > 5 {
		limit = 5
	}
	for i := 0; i < limit; i++ {
		m := pv[i]
		if !m.IsCapture(walker) {
			break
		}
		capturesSeen++
		walker.MakeMove(m)
	}
	return capturesSeen >= 2
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
