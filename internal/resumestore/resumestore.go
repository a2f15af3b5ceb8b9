// Package resumestore persists enough state to resume an interrupted
// run: the scan cursor (which game/ply Phase 1 had reached) and the
// candidate pool, which is saved once Phase 1 completes. It is adapted from the teacher's
// badger-backed preferences store — same Update/View-plus-JSON-per-key
// shape, applied to a different key set.
package resumestore

import (
	"encoding/json"

	"github.com/dgraph-io/badger/v4"
)

const (
	keyCursor     = "cursor"
	keyCandidates = "candidates"
)

// Cursor marks how far Phase 1 has progressed through the archive.
type Cursor struct {
	GameIndex int `json:"game_index"`
	MoveIndex int `json:"move_index"`
}

// CandidateRecord is a JSON-serializable snapshot of one scanner
// Candidate, independent of the board package's in-memory types, so
// the store has no dependency on board internals surviving a schema
// change.
type CandidateRecord struct {
	PreFEN      string            `json:"pre_fen"`
	BlunderUCI  string            `json:"blunder_uci"`
	SolverColor string            `json:"solver_color"`
	PreCP       int32             `json:"pre_cp"`
	PostCP      int32             `json:"post_cp"`
	MoveNumber  int               `json:"move_number"`
	Headers     map[string]string `json:"headers"`
}

// Store wraps a badger.DB opened at a per-input-file path, keyed by
// the archive's file stem so concurrent runs over different inputs
// don't collide.
type Store struct {
	db *badger.DB
}

// Open opens (creating if absent) the resume database at dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveCursor persists the current scan position.
func (s *Store) SaveCursor(c Cursor) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyCursor), data)
	})
}

// LoadCursor loads the saved scan position, returning the zero Cursor
// if none was saved (fresh run).
func (s *Store) LoadCursor() (Cursor, error) {
	var c Cursor
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyCursor))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &c)
		})
	})
	return c, err
}

// SaveCandidates persists the full candidate pool, replacing any
// previously saved snapshot. Phase 1 calls this once on completion,
// not per-candidate — the pool is small relative to the archive scan.
func (s *Store) SaveCandidates(records []CandidateRecord) error {
	data, err := json.Marshal(records)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyCandidates), data)
	})
}

// LoadCandidates loads the saved candidate pool, returning nil if none
// was saved.
func (s *Store) LoadCandidates() ([]CandidateRecord, error) {
	var records []CandidateRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyCandidates))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &records)
		})
	})
	return records, err
}
