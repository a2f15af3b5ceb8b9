// Package orchestrator implements the Orchestrator (C8): preparing
// resources, running Phase 1 to completion, then Phase 2, writing
// records as they're produced.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/huandney/puzzleforge/internal/analyzer"
	"github.com/huandney/puzzleforge/internal/archivefeed"
	"github.com/huandney/puzzleforge/internal/board"
	"github.com/huandney/puzzleforge/internal/classifier"
	"github.com/huandney/puzzleforge/internal/config"
	"github.com/huandney/puzzleforge/internal/formatter"
	"github.com/huandney/puzzleforge/internal/obslog"
	"github.com/huandney/puzzleforge/internal/oracle"
	"github.com/huandney/puzzleforge/internal/puzzlebuilder"
	"github.com/huandney/puzzleforge/internal/resumestore"
	"github.com/huandney/puzzleforge/internal/scanner"
	"github.com/huandney/puzzleforge/internal/stats"
	"github.com/huandney/puzzleforge/internal/writer"
	"github.com/rs/zerolog"
)

func openSink(path string, resume bool) (*writer.Sink, error) {
	return writer.Open(path, resume)
}

// isFatalAnalyzerErr reports whether err is one of the analyzer's
// lifetime failures (the subprocess never came up, or already died on
// a prior request). Anything else — a single bad protocol line, a
// timed-out search, a logic-invariant miss on one position — is
// scoped to the candidate that triggered it and must not abort the
// whole run.
func isFatalAnalyzerErr(err error) bool {
	return errors.Is(err, analyzer.ErrInit) || errors.Is(err, analyzer.ErrDegraded)
}

// Run executes one end-to-end extraction: open the archive, spawn the
// analyzer, run Phase 1 then Phase 2, and write records to cfg's
// output path.
func Run(ctx context.Context, cfg config.RunConfig) error {
	log := obslog.New(cfg.LogLevel, os.Stderr)
	tracer := obslog.Tracer("orchestrator")
	metrics := stats.NewRegistry()

	client, err := analyzer.New(cfg.AnalyzerBin, analyzer.Options{
		Threads:  cfg.Threads,
		HashMiB:  cfg.HashMiB,
		Timeouts: analyzer.DefaultTimeouts(),
	}, log)
	if err != nil {
		return fmt.Errorf("orchestrator: %w", err)
	}
	client.SetMetrics(metrics)
	defer func() {
		if cerr := client.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("analyzer shutdown did not complete cleanly")
		}
	}()

	var engine analyzer.Engine = client
	if len(cfg.SyzygyPaths) > 0 {
		ds, derr := oracle.Open(cfg.SyzygyPaths[0])
		if derr != nil {
			log.Warn().Err(derr).Msg("endgame dataset unavailable, continuing without it")
		} else {
			o := oracle.New(client, ds)
			o.SetMetrics(metrics)
			engine = o
		}
	}

	resumeDir := resumestore.DirFor(cfg.InputPath)
	if mkerr := os.MkdirAll(filepath.Dir(resumeDir), 0755); mkerr != nil {
		return fmt.Errorf("orchestrator: preparing resume dir: %w", mkerr)
	}
	store, err := resumestore.Open(resumeDir)
	if err != nil {
		return fmt.Errorf("orchestrator: opening resume store: %w", err)
	}
	defer store.Close()

	sink, err := openSink(cfg.OutputPath, cfg.Resume)
	if err != nil {
		return err
	}
	defer sink.Close()

	archiveFile, err := os.Open(cfg.InputPath)
	if err != nil {
		return fmt.Errorf("orchestrator: opening archive: %w", err)
	}
	defer archiveFile.Close()

	var candidates []*scanner.Candidate
	if cfg.Resume {
		candidates, err = loadResumedCandidates(store)
		if err != nil {
			log.Warn().Err(err).Msg("could not load saved candidate pool, rescanning")
			candidates = nil
		}
	}

	if candidates != nil {
		log.Info().Int("candidates", len(candidates)).Msg("phase 1 skipped: reusing previously scanned candidate pool")
	} else {
		startGame := 0
		if cfg.Resume {
			cursor, cerr := store.LoadCursor()
			if cerr != nil {
				log.Warn().Err(cerr).Msg("could not load scan cursor, scanning from the start")
			} else {
				startGame = cursor.GameIndex
			}
		}
		candidates, err = runPhase1(ctx, engine, archiveFile, cfg.BaseDepth, startGame, store, log, metrics)
		if err != nil {
			return fmt.Errorf("orchestrator: phase 1: %w", err)
		}
		log.Info().Int("candidates", len(candidates)).Msg("phase 1 complete")

		if serr := store.SaveCandidates(toCandidateRecords(candidates)); serr != nil {
			log.Warn().Err(serr).Msg("could not persist candidate pool for resume")
		}
	}

	_, span := tracer.Start(ctx, "orchestrator.phase2")
	defer span.End()

	builder := puzzlebuilder.New(engine, cfg.BaseDepth)
	for _, c := range candidates {
		seq, err := builder.Build(ctx, c)
		if err != nil {
			if isFatalAnalyzerErr(err) {
				return fmt.Errorf("orchestrator: phase 2: %w", err)
			}
			log.Warn().Err(err).Msg("discarding candidate: builder error")
			continue
		}
		if seq == nil {
			metrics.PuzzlesAmbiguous.Inc()
			continue
		}
		if (len(seq.Moves)+1)/2 < config.SolverMinMoves {
			metrics.PuzzlesTooShort.Inc()
			continue
		}
		metrics.PuzzlesBuilt.Inc()

		phase := classifier.ClassifyPhase(c.PostBoard, c.MoveNumber*2)
		tactic := classifier.ClassifyTactic(c.PostCP, seq.FinalCP, seq.IsMate)

		fullMoves := make([]board.Move, 0, len(seq.Moves)+1)
		fullMoves = append(fullMoves, c.BlunderMove)
		fullMoves = append(fullMoves, seq.Moves...)

		record := formatter.Format(formatter.Record{
			Headers:   headerFields(c.Headers),
			PreBoard:  c.PreBoard,
			FullMoves: fullMoves,
			Sequence:  seq,
			Phase:     phase,
			Tactical:  tactic,
		})
		if werr := sink.WriteRecord(record); werr != nil {
			return fmt.Errorf("orchestrator: %w", werr)
		}
	}

	return nil
}

// runPhase1 streams the archive's played moves through the Scanner,
// accumulating the emitted Candidates in archive order. Games indexed
// below startGame are consumed from the reader (to keep it advancing)
// but not scanned, letting a resumed run skip games a prior run
// already finished. The scan cursor is persisted after each completed
// game, so an interrupted run can resume from roughly where it left
// off rather than from the beginning.
func runPhase1(ctx context.Context, engine analyzer.Engine, archive *os.File, baseDepth, startGame int, store *resumestore.Store, log zerolog.Logger, metrics *stats.Registry) ([]*scanner.Candidate, error) {
	s := scanner.New(engine, baseDepth, scanner.Options{})
	reader := archivefeed.NewReader(archive)

	var candidates []*scanner.Candidate
	gameIdx := 0
	for {
		game, err := reader.NextGame()
		if err != nil {
			break // io.EOF or a read error; either way, stop cleanly
		}
		if gameIdx < startGame {
			gameIdx++
			continue
		}
		plies, rerr := archivefeed.Replay(gameIdx, game)
		if rerr != nil {
			log.Warn().Err(rerr).Int("game", gameIdx).Msg("skipping unreadable game")
			gameIdx++
			continue
		}
		for _, ply := range plies {
			metrics.CandidatesScanned.Inc()
			pm := scanner.PlayedMove{
				GameIndex: ply.GameIndex,
				MoveIndex: ply.MoveIndex,
				PreBoard:  ply.PreBoard,
				Move:      ply.Move,
				Headers:   ply.Headers,
			}
			cand, perr := s.Process(ctx, pm)
			if perr != nil {
				if isFatalAnalyzerErr(perr) {
					return candidates, perr
				}
				log.Warn().Err(perr).Int("game", ply.GameIndex).Int("move", ply.MoveIndex).Msg("skipping ply: scanner error")
				continue
			}
			if cand != nil {
				metrics.CandidatesAccepted.Inc()
				candidates = append(candidates, cand)
			}
		}
		gameIdx++
		if serr := store.SaveCursor(resumestore.Cursor{GameIndex: gameIdx}); serr != nil {
			log.Warn().Err(serr).Int("game", gameIdx).Msg("could not persist scan cursor")
		}
	}
	return candidates, nil
}

func headerFields(headers map[string]string) []formatter.HeaderField {
	// Headers arrive as a map (archivefeed.Replay's Headers field), but
	// the original insertion order isn't preserved through a map; the
	// formatter still needs *a* deterministic order, so keys are
	// emitted in the archive's common PGN tag order where present, then
	// any remaining keys alphabetically.
	order := []string{"Event", "Site", "Date", "Round", "White", "Black", "Result"}
	seen := make(map[string]bool, len(headers))
	fields := make([]formatter.HeaderField, 0, len(headers))
	for _, k := range order {
		if v, ok := headers[k]; ok {
			fields = append(fields, formatter.HeaderField{Key: k, Value: v})
			seen[k] = true
		}
	}
	rest := make([]string, 0, len(headers))
	for k := range headers {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		fields = append(fields, formatter.HeaderField{Key: k, Value: headers[k]})
	}
	return fields
}

// loadResumedCandidates reconstructs the Phase 1 output from a
// previously saved candidate pool, returning nil (not an error) if
// nothing was saved — that means Phase 1 was never completed in an
// earlier run, so the caller should rescan instead.
func loadResumedCandidates(store *resumestore.Store) ([]*scanner.Candidate, error) {
	records, err := store.LoadCandidates()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	out := make([]*scanner.Candidate, 0, len(records))
	for _, r := range records {
		preBoard, perr := board.ParseFEN(r.PreFEN)
		if perr != nil {
			return nil, fmt.Errorf("orchestrator: resumed candidate: %w", perr)
		}
		blunderMove, merr := board.ParseMove(r.BlunderUCI, preBoard)
		if merr != nil {
			return nil, fmt.Errorf("orchestrator: resumed candidate: %w", merr)
		}
		postBoard := preBoard.Copy()
		postBoard.MakeMove(blunderMove)

		solverColor := board.White
		if r.SolverColor == "black" {
			solverColor = board.Black
		}

		out = append(out, &scanner.Candidate{
			PreBoard:    preBoard,
			PostBoard:   postBoard,
			BlunderMove: blunderMove,
			SolverColor: solverColor,
			PreCP:       r.PreCP,
			PostCP:      r.PostCP,
			MoveNumber:  r.MoveNumber,
			Headers:     r.Headers,
		})
	}
	return out, nil
}

func toCandidateRecords(candidates []*scanner.Candidate) []resumestore.CandidateRecord {
	out := make([]resumestore.CandidateRecord, 0, len(candidates))
	for _, c := range candidates {
		color := "white"
		if c.SolverColor == board.Black {
			color = "black"
		}
		out = append(out, resumestore.CandidateRecord{
			PreFEN:      c.PreBoard.ToFEN(),
			BlunderUCI:  c.BlunderMove.String(),
			SolverColor: color,
			PreCP:       c.PreCP,
			PostCP:      c.PostCP,
			MoveNumber:  c.MoveNumber,
			Headers:     c.Headers,
		})
	}
	return out
}
