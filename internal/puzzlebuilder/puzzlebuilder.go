// Package puzzlebuilder implements the Puzzle Builder (C5): Phase 2 of
// the pipeline. Given a Candidate, it drives the solver/opponent
// alternation to produce a unique, unambiguous move tree.
package puzzlebuilder

import (
	"context"
	"sort"

	"github.com/huandney/puzzleforge/internal/analyzer"
	"github.com/huandney/puzzleforge/internal/board"
	"github.com/huandney/puzzleforge/internal/config"
	"github.com/huandney/puzzleforge/internal/scanner"
	"github.com/huandney/puzzleforge/internal/score"
)

// Sequence is the Phase 2 output (PuzzleSequence).
type Sequence struct {
	Moves        []board.Move
	Alternatives map[int][]board.Move // keyed by index into Moves of the solver ply
	FinalCP      int32
	IsMate       bool
}

// Builder holds the engine handle; it carries no state across calls
// (unlike the Scanner, every candidate is independent).
type Builder struct {
	engine    analyzer.Engine
	baseDepth int
}

// New builds a Builder bound to engine.
func New(engine analyzer.Engine, baseDepth int) *Builder {
	return &Builder{engine: engine, baseDepth: baseDepth}
}

func (b *Builder) solveDepth() int {
	return config.SolveDepth(b.baseDepth)
}

// Build runs the preflight check and, if interesting, the main loop.
// Returns nil, nil if the candidate was not interesting or the result
// did not meet SolverMinMoves.
func (b *Builder) Build(ctx context.Context, c *scanner.Candidate) (*Sequence, error) {
	interesting, err := b.isInteresting(ctx, c)
	if err != nil {
		return nil, err
	}
	if !interesting {
		return nil, nil
	}

	seq, err := b.buildLoop(ctx, c)
	if err != nil {
		return nil, err
	}
	if seq == nil {
		return nil, nil
	}

	solverMoves := (len(seq.Moves) + 1) / 2
	if solverMoves < config.SolverMinMoves {
		return nil, nil
	}
	return seq, nil
}

// isInteresting implements the preflight check: positions that are
// already decisively winning for the solver are uninteresting unless
// the position is close to equal or about to flip, in which case the
// blunder is still worth solving.
func (b *Builder) isInteresting(ctx context.Context, c *scanner.Candidate) (bool, error) {
	preCP := c.PreCP
	if absInt32(preCP) < config.CompletelyWinningThreshold {
		return true, nil
	}

	lines, err := b.engine.Analyze(ctx, c.PostBoard, b.solveDepth(), 2)
	if err != nil {
		return false, err
	}
	if len(lines) < 2 {
		return true, nil
	}
	secondCP := lines[1].Score.ToCP()

	if absInt32(secondCP) <= config.DrawingRange {
		return true, nil
	}
	if preCP > 0 && secondCP < -config.DrawingRange {
		return true, nil
	}
	if preCP < 0 && secondCP > config.DrawingRange {
		return true, nil
	}
	return false, nil
}

// buildLoop runs the solver/opponent alternation starting from
// c.PostBoard, with c.SolverColor always on the solver's side.
func (b *Builder) buildLoop(ctx context.Context, c *scanner.Candidate) (*Sequence, error) {
	pos := c.PostBoard.Copy()
	seq := &Sequence{Alternatives: make(map[int][]board.Move)}

	var lastSolverScore score.Score
	haveSolverScore := false

	for {
		lines, err := b.engine.Analyze(ctx, pos, b.solveDepth(), config.MaxAlternativeLines+2)
		if err != nil {
			return nil, err
		}
		lines = filterUsable(lines)
		if len(lines) == 0 {
			break
		}

		sign := int64(1)
		if c.SolverColor == board.White {
			sign = -1
		}
		sort.SliceStable(lines, func(i, j int) bool {
			return sign*lines[i].Score.Key() < sign*lines[j].Score.Key()
		})

		base := lines[0].Score
		threshold := int64(config.AltThreshold)
		if base.IsMate() {
			threshold = config.MateAltThreshold
		}

		clusterLen := 1
		for clusterLen < len(lines) && score.KeyDiff(base, lines[clusterLen].Score) <= threshold {
			clusterLen++
		}

		if len(lines) > clusterLen && score.KeyDiff(base, lines[clusterLen].Score) < config.PuzzleUnicityThreshold {
			// Ambiguous: stop here, keeping what's already built.
			break
		}

		chosen := lines[0].PV[0]
		seq.Moves = append(seq.Moves, chosen)
		solverIdx := len(seq.Moves) - 1

		if clusterLen > 1 {
			alts := make([]board.Move, 0, clusterLen-1)
			for i := 1; i < clusterLen && len(alts) < config.MaxAlternativeLines; i++ {
				if len(lines[i].PV) == 0 {
					continue
				}
				alts = append(alts, lines[i].PV[0])
			}
			if len(alts) > 0 {
				seq.Alternatives[solverIdx] = alts
			}
		}

		pos.MakeMove(chosen)
		lastSolverScore = base
		haveSolverScore = true

		opp, err := b.engine.BestMove(ctx, pos, b.solveDepth())
		if err != nil {
			return nil, err
		}
		if opp == nil {
			break
		}
		seq.Moves = append(seq.Moves, *opp)
		pos.MakeMove(*opp)
	}

	if !haveSolverScore || len(seq.Moves) == 0 {
		return nil, nil
	}

	if len(seq.Moves)%2 == 0 {
		seq.Moves = seq.Moves[:len(seq.Moves)-1]
	}

	seq.FinalCP = lastSolverScore.ToCP()
	seq.IsMate = lastSolverScore.IsMate()
	return seq, nil
}

// filterUsable drops lines with an empty PV; a non-null score is
// already guaranteed by analyzer.Engine's contract.
func filterUsable(lines []analyzer.Line) []analyzer.Line {
	out := lines[:0:0]
	for _, l := range lines {
		if len(l.PV) > 0 {
			out = append(out, l)
		}
	}
	return out
}

func absInt32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
