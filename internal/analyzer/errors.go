package analyzer

import "errors"

// Error kinds from the puzzle-extraction error model. Each maps to one
// of the extractor's documented failure categories; callers type-assert
// with errors.Is against the sentinel values below.
var (
	// ErrInit is returned when the analyzer subprocess could not be
	// spawned or failed the UCI handshake within Timeouts.Init (a
	// handshake that runs out of time is reported as ErrInit, not
	// ErrTimeout). Fatal to the whole run.
	ErrInit = errors.New("analyzer: init failed")

	// ErrProtocol is returned when a command cannot be written to the
	// child after the handshake. The client is marked degraded. Info
	// lines that cannot be parsed are skipped, not reported as errors.
	ErrProtocol = errors.New("analyzer: protocol error")

	// ErrTimeout is returned when a bounded wait after the handshake
	// (the readiness wait after an option change, or a search) was
	// exceeded. The client is marked degraded and the child is killed;
	// callers must not reuse the client.
	ErrTimeout = errors.New("analyzer: timeout")

	// ErrLogic signals an invariant violation — e.g. the engine
	// returned zero analysis lines for a position later found to have
	// legal moves. Fatal to the request.
	ErrLogic = errors.New("analyzer: logic error")

	// ErrDegraded is returned by any call made after the client has
	// already failed a prior request and been marked degraded.
	ErrDegraded = errors.New("analyzer: client is degraded, spawn a new one")
)
