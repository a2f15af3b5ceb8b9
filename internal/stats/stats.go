// Package stats exposes the extractor's run counters as Prometheus
// metrics, adapted from the original's statistics module: candidates
// scanned/accepted, puzzles built/discarded, analyzer timeouts, and
// oracle hits.
package stats

import "github.com/prometheus/client_golang/prometheus"

// Registry bundles every counter the pipeline increments. A fresh
// Registry registers its own prometheus.Registry so multiple runs in
// the same process (as in tests) don't collide on the default
// registerer.
type Registry struct {
	reg *prometheus.Registry

	CandidatesScanned  prometheus.Counter
	CandidatesAccepted prometheus.Counter
	PuzzlesBuilt       prometheus.Counter
	PuzzlesAmbiguous   prometheus.Counter
	PuzzlesTooShort    prometheus.Counter
	AnalyzerTimeouts   prometheus.Counter
	OracleHits         prometheus.Counter
}

// NewRegistry constructs and registers all counters.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	r := &Registry{
		reg: reg,
		CandidatesScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "puzzleforge",
			Name:      "candidates_scanned_total",
			Help:      "Plies examined by the candidate scanner.",
		}),
		CandidatesAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "puzzleforge",
			Name:      "candidates_accepted_total",
			Help:      "Plies that produced a Candidate.",
		}),
		PuzzlesBuilt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "puzzleforge",
			Name:      "puzzles_built_total",
			Help:      "Candidates that produced a complete PuzzleSequence.",
		}),
		PuzzlesAmbiguous: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "puzzleforge",
			Name:      "puzzles_discarded_ambiguous_total",
			Help:      "Candidates for which the builder returned no sequence: not interesting, ambiguous, or short of SolverMinMoves.",
		}),
		PuzzlesTooShort: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "puzzleforge",
			Name:      "puzzles_discarded_short_total",
			Help:      "Candidates discarded for not reaching SolverMinMoves.",
		}),
		AnalyzerTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "puzzleforge",
			Name:      "analyzer_timeouts_total",
			Help:      "Analyzer requests that exceeded their budget.",
		}),
		OracleHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "puzzleforge",
			Name:      "oracle_hits_total",
			Help:      "Analyze calls answered by the endgame oracle instead of the engine.",
		}),
	}
	reg.MustRegister(
		r.CandidatesScanned, r.CandidatesAccepted,
		r.PuzzlesBuilt, r.PuzzlesAmbiguous, r.PuzzlesTooShort,
		r.AnalyzerTimeouts, r.OracleHits,
	)
	return r
}

// Gatherer exposes the underlying registry for an HTTP /metrics
// handler, should the caller want to serve one.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// IncAnalyzerTimeout satisfies analyzer.Metrics.
func (r *Registry) IncAnalyzerTimeout() { r.AnalyzerTimeouts.Inc() }

// IncOracleHit satisfies oracle.Metrics.
func (r *Registry) IncOracleHit() { r.OracleHits.Inc() }
