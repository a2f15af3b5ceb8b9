package orchestrator

import (
	"errors"
	"testing"

	"github.com/huandney/puzzleforge/internal/analyzer"
	"github.com/huandney/puzzleforge/internal/board"
	"github.com/huandney/puzzleforge/internal/resumestore"
	"github.com/huandney/puzzleforge/internal/scanner"
)

func TestIsFatalAnalyzerErr(t *testing.T) {
	cases := []struct {
		err   error
		fatal bool
	}{
		{analyzer.ErrInit, true},
		{analyzer.ErrDegraded, true},
		{analyzer.ErrTimeout, false},
		{analyzer.ErrProtocol, false},
		{analyzer.ErrLogic, false},
		{errors.New("unrelated"), false},
	}
	for _, c := range cases {
		if got := isFatalAnalyzerErr(c.err); got != c.fatal {
			t.Errorf("isFatalAnalyzerErr(%v) = %v, want %v", c.err, got, c.fatal)
		}
	}
}

func TestCandidateRecordRoundTrip(t *testing.T) {
	pre, err := board.ParseFEN(board.StartFEN)
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	move, err := board.ParseMove("e2e4", pre)
	if err != nil {
		t.Fatalf("ParseMove: %v", err)
	}
	post := pre.Copy()
	post.MakeMove(move)

	original := []*scanner.Candidate{{
		PreBoard:    pre,
		PostBoard:   post,
		BlunderMove: move,
		SolverColor: board.Black,
		PreCP:       10,
		PostCP:      -200,
		MoveNumber:  1,
		Headers:     map[string]string{"Event": "Test"},
	}}

	dir := t.TempDir()
	store, err := resumestore.Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	if err := store.SaveCandidates(toCandidateRecords(original)); err != nil {
		t.Fatalf("SaveCandidates: %v", err)
	}

	loaded, err := loadResumedCandidates(store)
	if err != nil {
		t.Fatalf("loadResumedCandidates: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(loaded))
	}
	got := loaded[0]
	if got.PreBoard.ToFEN() != pre.ToFEN() {
		t.Errorf("PreBoard FEN = %q, want %q", got.PreBoard.ToFEN(), pre.ToFEN())
	}
	if got.PostBoard.ToFEN() != post.ToFEN() {
		t.Errorf("PostBoard FEN = %q, want %q", got.PostBoard.ToFEN(), post.ToFEN())
	}
	if got.BlunderMove != move {
		t.Errorf("BlunderMove = %v, want %v", got.BlunderMove, move)
	}
	if got.SolverColor != board.Black {
		t.Errorf("SolverColor = %v, want Black", got.SolverColor)
	}
	if got.PreCP != 10 || got.PostCP != -200 || got.MoveNumber != 1 {
		t.Errorf("scalar fields not preserved: %+v", got)
	}
	if got.Headers["Event"] != "Test" {
		t.Errorf("Headers not preserved: %+v", got.Headers)
	}
}

func TestLoadResumedCandidatesEmptyWhenNothingSaved(t *testing.T) {
	store, err := resumestore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	loaded, err := loadResumedCandidates(store)
	if err != nil {
		t.Fatalf("loadResumedCandidates: %v", err)
	}
	if loaded != nil {
		t.Errorf("expected nil when nothing was saved, got %v", loaded)
	}
}
