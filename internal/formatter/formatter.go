// Package formatter implements the Record Formatter (C7): serializing
// a completed puzzle into the output text form (header block, then
// mainline SAN with move numbering, then per-ply alternatives).
package formatter

import (
	"fmt"
	"strings"

	"github.com/huandney/puzzleforge/internal/board"
	"github.com/huandney/puzzleforge/internal/classifier"
	"github.com/huandney/puzzleforge/internal/puzzlebuilder"
)

// Record is everything the formatter needs to produce one output
// record, gathered from the candidate, sequence, and classification.
type Record struct {
	Headers    []HeaderField // original headers, in insertion order
	PreBoard   *board.Position
	FullMoves  []board.Move // blunder_move ++ sequence.Moves, from PreBoard
	Sequence   *puzzlebuilder.Sequence
	Phase      classifier.GamePhase
	Tactical   classifier.TacticalObjective
}

// HeaderField is one "[key \"value\"]" line.
type HeaderField struct {
	Key, Value string
}

// Format renders a Record into its final text form.
func Format(r Record) string {
	var b strings.Builder

	headers := append([]HeaderField{}, r.Headers...)
	fen := r.PreBoard.ToFEN()
	if fen != board.StartFEN {
		headers = append(headers, HeaderField{"SetUp", "1"})
		headers = append(headers, HeaderField{"FEN", fen})
	}
	headers = append(headers, HeaderField{"Phase", r.Phase.String()})
	headers = append(headers, HeaderField{"Tactical", r.Tactical.String()})

	for _, h := range headers {
		fmt.Fprintf(&b, "[%s \"%s\"]\n", h.Key, h.Value)
	}
	b.WriteString("\n")

	writeMainline(&b, r.PreBoard, r.FullMoves)

	// Alternatives are indexed by the position of the solver ply within
	// sequence.Moves; the full move list is offset by one (the blunder
	// move is prepended), so add 1 to locate them in FullMoves.
	if r.Sequence != nil && len(r.Sequence.Alternatives) > 0 {
		writeAlternatives(&b, r.PreBoard, r.FullMoves, r.Sequence.Alternatives)
	}

	return b.String()
}

// writeMainline plays moves forward on a clone of start, emitting SAN
// with move-number markers. The first marker is "1." for a White
// starting side, or "1..." for Black.
func writeMainline(b *strings.Builder, start *board.Position, moves []board.Move) {
	pos := start.Copy()
	moveNumber := 1

	if pos.SideToMove == board.Black {
		fmt.Fprintf(b, "%d... ", moveNumber)
	}

	for _, m := range moves {
		plyIsWhite := pos.SideToMove == board.White
		if plyIsWhite {
			fmt.Fprintf(b, "%d. ", moveNumber)
		}

		san := m.ToSAN(pos)
		b.WriteString(san)
		b.WriteString(" ")

		pos.MakeMove(m)
		if !plyIsWhite {
			moveNumber++
		}
	}
}

// writeAlternatives emits each solver ply's alternative replies,
// parenthesized, branching from the position immediately before that
// ply and playing out only the alternative's own move in SAN.
func writeAlternatives(b *strings.Builder, start *board.Position, fullMoves []board.Move, alts map[int][]board.Move) {
	// Walk fullMoves once, building the position at each ply so each
	// alternative can be resolved against the exact branch point.
	positions := make([]*board.Position, len(fullMoves)+1)
	positions[0] = start.Copy()
	for i, m := range fullMoves {
		next := positions[i].Copy()
		next.MakeMove(m)
		positions[i+1] = next
	}

	for seqIdx := 0; seqIdx < len(fullMoves); seqIdx++ {
		altMoves, ok := alts[seqIdx-1] // sequence index is offset by the prepended blunder move
		if !ok {
			continue
		}
		branchPos := positions[seqIdx]
		for _, alt := range altMoves {
			san := alt.ToSAN(branchPos)
			fmt.Fprintf(b, "(%s) ", san)
		}
	}
}
