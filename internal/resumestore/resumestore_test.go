package resumestore

import (
	"path/filepath"
	"testing"
)

func TestDirForKeysByStem(t *testing.T) {
	got := DirFor("/archives/master_games.pgn")
	want := filepath.Join("/archives", ".resume", "master_games")
	if got != want {
		t.Errorf("DirFor = %q, want %q", got, want)
	}
}

func TestSaveLoadCursorRoundTrip(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if err := s.SaveCursor(Cursor{GameIndex: 3, MoveIndex: 17}); err != nil {
		t.Fatalf("SaveCursor: %v", err)
	}
	got, err := s.LoadCursor()
	if err != nil {
		t.Fatalf("LoadCursor: %v", err)
	}
	if got.GameIndex != 3 || got.MoveIndex != 17 {
		t.Errorf("LoadCursor = %+v, want {3 17}", got)
	}
}

func TestLoadCursorDefaultsToZero(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	got, err := s.LoadCursor()
	if err != nil {
		t.Fatalf("LoadCursor: %v", err)
	}
	if got != (Cursor{}) {
		t.Errorf("expected zero Cursor on fresh store, got %+v", got)
	}
}

func TestSaveLoadCandidatesRoundTrip(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	records := []CandidateRecord{
		{PreFEN: "fen-a", BlunderUCI: "e2e4", SolverColor: "white", PreCP: 0, PostCP: -200},
		{PreFEN: "fen-b", BlunderUCI: "g8f6", SolverColor: "black", PreCP: 10, PostCP: 300},
	}
	if err := s.SaveCandidates(records); err != nil {
		t.Fatalf("SaveCandidates: %v", err)
	}
	got, err := s.LoadCandidates()
	if err != nil {
		t.Fatalf("LoadCandidates: %v", err)
	}
	if len(got) != 2 || got[0].BlunderUCI != "e2e4" || got[1].PostCP != 300 {
		t.Errorf("LoadCandidates = %+v, want round-tripped records", got)
	}
}
