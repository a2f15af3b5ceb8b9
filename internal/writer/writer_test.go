package writer

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteRecordAppendsBlankLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	s, err := Open(path, false)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.WriteRecord("[Event \"Test\"]\n\n1. e4 e5"); err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := "[Event \"Test\"]\n\n1. e4 e5\n\n"
	if string(data) != want {
		t.Errorf("file contents = %q, want %q", string(data), want)
	}
}

func TestOpenTruncatesFreshRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	if err := os.WriteFile(path, []byte("stale content"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s, err := Open(path, false)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.WriteRecord("fresh"); err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}
	s.Close()

	data, _ := os.ReadFile(path)
	if string(data) != "fresh\n\n" {
		t.Errorf("expected truncated file, got %q", string(data))
	}
}

func TestOpenAppendsOnResume(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	if err := os.WriteFile(path, []byte("existing\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s, err := Open(path, true)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.WriteRecord("appended"); err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}
	s.Close()

	data, _ := os.ReadFile(path)
	want := "existing\nappended\n\n"
	if string(data) != want {
		t.Errorf("file contents = %q, want %q", string(data), want)
	}
}
