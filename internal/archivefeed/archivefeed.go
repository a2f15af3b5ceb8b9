// Package archivefeed reads a PGN-movetext game archive and yields
// played-move records in game-then-ply order, the shape the Candidate
// Scanner consumes. A full PGN grammar (comments, NAGs, nested
// variations, non-standard tags) is out of scope; this reader handles
// the movetext a mainline-only archive actually contains, in the style
// of the original extractor's game-by-game replay visitor.
package archivefeed

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/huandney/puzzleforge/internal/board"
)

// Move is one played ply, paired with the position it was played from
// and the originating game's headers.
type Move struct {
	GameIndex int
	MoveIndex int
	PreBoard  *board.Position
	Move      board.Move
	Headers   map[string]string
}

var headerLine = regexp.MustCompile(`^\[(\w+)\s+"(.*)"\]\s*$`)

// moveNumberPattern matches move-number tokens ("12.", "12...");
// tokenizeMovetext drops them. Result markers are matched separately
// by resultTokens.
var moveNumberPattern = regexp.MustCompile(`^\d+\.+$`)

var resultTokens = map[string]bool{
	"1-0": true, "0-1": true, "1/2-1/2": true, "*": true,
}

// Reader reads successive games from r, one at a time.
type Reader struct {
	scanner   *bufio.Scanner
	gameIndex int
}

// NewReader wraps r as a PGN archive reader.
func NewReader(r io.Reader) *Reader {
	return &Reader{scanner: bufio.NewScanner(r)}
}

// Game is one parsed game: its headers (insertion order preserved)
// and its mainline moves in SAN.
type Game struct {
	Headers   []HeaderField
	SANTokens []string
}

// HeaderField is one "[key \"value\"]" pair.
type HeaderField struct {
	Key, Value string
}

func (g Game) headerMap() map[string]string {
	m := make(map[string]string, len(g.Headers))
	for _, h := range g.Headers {
		m[h.Key] = h.Value
	}
	return m
}

// NextGame reads one game (headers + movetext) from the archive.
// Returns io.EOF when no more games remain.
func (r *Reader) NextGame() (*Game, error) {
	var g Game
	sawHeader := false
	var movetext strings.Builder

	for r.scanner.Scan() {
		line := strings.TrimSpace(r.scanner.Text())
		if line == "" {
			if sawHeader && movetext.Len() > 0 {
				break
			}
			continue
		}
		if m := headerLine.FindStringSubmatch(line); m != nil {
			g.Headers = append(g.Headers, HeaderField{Key: m[1], Value: m[2]})
			sawHeader = true
			continue
		}
		movetext.WriteString(line)
		movetext.WriteString(" ")
	}
	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	if !sawHeader && movetext.Len() == 0 {
		return nil, io.EOF
	}

	g.SANTokens = tokenizeMovetext(movetext.String())
	return &g, nil
}

// tokenizeMovetext splits raw movetext into SAN move tokens, dropping
// move-number markers, result markers, and brace comments. Semicolon
// comments and variations are not stripped.
func tokenizeMovetext(s string) []string {
	s = stripComments(s)
	fields := strings.Fields(s)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if moveNumberPattern.MatchString(f) {
			continue
		}
		if resultTokens[f] {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

func stripComments(s string) string {
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch r {
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		default:
			if depth == 0 {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}

// Replay walks g's mainline from the starting position implied by its
// headers (the standard start, or FEN/SetUp if present), applying each
// SAN token and emitting a Move per ply. Replay stops (without error)
// at the first token it cannot parse, matching the archive-level
// ArchiveError policy of skip-and-continue at the game granularity.
func Replay(gameIndex int, g *Game) ([]Move, error) {
	headers := g.headerMap()
	pos, err := startingPosition(headers)
	if err != nil {
		return nil, fmt.Errorf("archivefeed: %w", err)
	}

	moves := make([]Move, 0, len(g.SANTokens))
	for i, tok := range g.SANTokens {
		m, err := board.ParseSAN(tok, pos)
		if err != nil || m == board.NoMove {
			break
		}
		moves = append(moves, Move{
			GameIndex: gameIndex,
			MoveIndex: i,
			PreBoard:  pos,
			Move:      m,
			Headers:   headers,
		})
		next := pos.Copy()
		next.MakeMove(m)
		pos = next
	}
	return moves, nil
}

func startingPosition(headers map[string]string) (*board.Position, error) {
	if fen, ok := headers["FEN"]; ok && fen != "" {
		return board.ParseFEN(fen)
	}
	return board.ParseFEN(board.StartFEN)
}
