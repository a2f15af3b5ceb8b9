// Package config holds the extractor's tuned constants and the
// per-run configuration assembled from CLI flags.
package config

// Tuned constants, as specified. These are compile-time defaults, not
// runtime-overridable knobs — the CLI surface exposes only depth,
// paths, resume, log level, and the analyzer binary, threads, and hash
// size.
const (
	BlunderThreshold           = 150
	PuzzleUnicityThreshold     = 200
	AltThreshold               = 25
	MateAltThreshold           = 2
	CompletelyWinningThreshold = 500
	HangingThreshold           = 400
	WinningAdvantage           = 150
	DrawingRange               = 100
	MaxAlternativeLines        = 2
	SolverMinMoves             = 2
	ScanMult                   = 1.0
	SolveMult                  = 1.2
	MateOffset                 = 2_000_000
)

// ScanDepth is scan_depth = max(1, floor(base * ScanMult)).
func ScanDepth(base int) int {
	d := int(float64(base) * ScanMult)
	if d < 1 {
		return 1
	}
	return d
}

// SolveDepth is solve_depth = max(1, floor(base * SolveMult)).
func SolveDepth(base int) int {
	d := int(float64(base) * SolveMult)
	if d < 1 {
		return 1
	}
	return d
}

// RunConfig is the full set of knobs for one invocation, assembled by
// the CLI layer from flags and defaults.
type RunConfig struct {
	InputPath   string
	OutputPath  string
	BaseDepth   int
	Resume      bool
	LogLevel    string
	AnalyzerBin string
	Threads     int
	HashMiB     int
	SyzygyPaths []string
}

// DefaultRunConfig mirrors the CLI's documented defaults.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		BaseDepth:   16,
		LogLevel:    "info",
		AnalyzerBin: "stockfish",
		Threads:     4,
		HashMiB:     1024,
	}
}
