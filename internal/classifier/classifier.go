// Package classifier implements the Classifier (C6): assigning a
// GamePhase and TacticalObjective to a completed puzzle.
package classifier

import (
	"github.com/huandney/puzzleforge/internal/board"
	"github.com/huandney/puzzleforge/internal/config"
)

// GamePhase is the coarse phase a puzzle's starting position falls in.
type GamePhase uint8

const (
	Opening GamePhase = iota
	Middlegame
	Endgame
)

func (g GamePhase) String() string {
	switch g {
	case Opening:
		return "Opening"
	case Endgame:
		return "Endgame"
	default:
		return "Middlegame"
	}
}

// TacticalObjective labels the tactical flavor of the solution.
type TacticalObjective uint8

const (
	Mate TacticalObjective = iota
	Reversal
	Advantage
	Equalization
	Resistance
	Tactical
)

func (t TacticalObjective) String() string {
	switch t {
	case Mate:
		return "Mate"
	case Reversal:
		return "Reversal"
	case Advantage:
		return "Advantage"
	case Equalization:
		return "Equalization"
	case Resistance:
		return "Resistance"
	default:
		return "Tactical"
	}
}

// ClassifyPhase computes GamePhase from the post-blunder board and the
// ply count of the game so far.
func ClassifyPhase(pos *board.Position, ply int) GamePhase {
	material := pos.MaterialNorm()
	plyNorm := float64(ply) / 80.0
	if plyNorm > 1.0 {
		plyNorm = 1.0
	}
	rights := float64(pos.CastlingRights.RemainingCount()) / 4.0

	v := (2*material + plyNorm + rights) / 4.0
	switch {
	case v >= 0.80:
		return Opening
	case v <= 0.20:
		return Endgame
	default:
		return Middlegame
	}
}

// ClassifyTactic computes TacticalObjective from the pre-solve
// evaluation, the final evaluation, and whether the solution ends in
// forced mate. Match order is significant.
func ClassifyTactic(postCP, finalCP int32, isMate bool) TacticalObjective {
	switch {
	case isMate:
		return Mate
	case postCP < 0 && finalCP >= config.WinningAdvantage:
		return Reversal
	case finalCP >= config.WinningAdvantage:
		return Advantage
	case postCP < -config.DrawingRange && absInt32(finalCP) <= config.DrawingRange:
		return Equalization
	case postCP < 0 && finalCP < 0:
		return Resistance
	default:
		return Tactical
	}
}

func absInt32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
