// Package analyzer owns the lifecycle of the external analysis
// subprocess: spawning it, speaking its line-oriented UCI protocol,
// and serving analyze/best-move requests to the rest of the pipeline.
package analyzer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/huandney/puzzleforge/internal/board"
	"github.com/huandney/puzzleforge/internal/score"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// state is the explicit protocol state machine the design calls for,
// so timeouts and option changes can be reasoned about independently
// of control flow.
type state uint8

const (
	stateSpawned state = iota
	stateReady
	stateSearching
	stateQuitting
)

func (s state) String() string {
	switch s {
	case stateSpawned:
		return "spawned"
	case stateReady:
		return "ready"
	case stateSearching:
		return "searching"
	default:
		return "quitting"
	}
}

// Timeouts bounds every protocol round trip.
type Timeouts struct {
	Init           time.Duration
	Base           time.Duration
	AnalysisFactor time.Duration
}

// DefaultTimeouts matches the extractor's documented budgets: a search
// is bounded by Base * AnalysisFactor * depth.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Init:           5 * time.Second,
		Base:           2 * time.Second,
		AnalysisFactor: 1,
	}
}

// Options configures the engine process at startup.
type Options struct {
	Threads  int
	HashMiB  int
	Timeouts Timeouts
}

// Metrics receives a count whenever a bounded wait is exceeded. A
// *stats.Registry satisfies this without stats importing analyzer.
type Metrics interface {
	IncAnalyzerTimeout()
}

// DefaultOptions matches spec defaults: 4 threads, 1024 MiB hash.
func DefaultOptions() Options {
	return Options{Threads: 4, HashMiB: 1024, Timeouts: DefaultTimeouts()}
}

// Client owns one long-running analyzer child process. It is not safe
// for concurrent Analyze/BestMove calls — the orchestrator serializes
// access, holding the client exclusively for the duration of one
// request.
type Client struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	path   string

	mu       sync.Mutex // guards state transitions against concurrent misuse
	state    state
	degraded bool
	multiPV  int

	timeouts Timeouts
	log      zerolog.Logger
	tracer   trace.Tracer
	metrics  Metrics
}

// SetMetrics attaches a counter sink. Optional; a Client with none set
// simply doesn't count timeouts.
func (c *Client) SetMetrics(m Metrics) {
	c.metrics = m
}

// New spawns the analyzer at path, negotiates the UCI handshake, and
// applies configuration. Fails with ErrInit if the process cannot be
// started or the handshake does not complete within opts.Timeouts.Init.
func New(path string, opts Options, log zerolog.Logger) (*Client, error) {
	cmd := exec.Command(path)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stdin pipe: %v", ErrInit, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stdout pipe: %v", ErrInit, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: start: %v", ErrInit, err)
	}

	c := &Client{
		cmd:      cmd,
		stdin:    stdin,
		stdout:   bufio.NewReader(stdout),
		path:     path,
		state:    stateSpawned,
		timeouts: opts.Timeouts,
		log:      log.With().Str("component", "analyzer").Str("path", path).Logger(),
		tracer:   otel.Tracer("puzzleforge/analyzer"),
	}

	if err := c.handshake(opts); err != nil {
		_ = c.cmd.Process.Kill()
		return nil, err
	}
	return c, nil
}

func (c *Client) handshake(opts Options) error {
	if err := c.send("uci"); err != nil {
		return fmt.Errorf("%w: %v", ErrInit, err)
	}
	if _, err := c.readUntil(c.timeouts.Init, "uciok"); err != nil {
		return fmt.Errorf("%w: waiting for uciok: %v", ErrInit, err)
	}
	if err := c.setOption("Threads", opts.Threads); err != nil {
		return fmt.Errorf("%w: %v", ErrInit, err)
	}
	if err := c.setOption("Hash", opts.HashMiB); err != nil {
		return fmt.Errorf("%w: %v", ErrInit, err)
	}
	if err := c.waitReady(c.timeouts.Init); err != nil {
		return fmt.Errorf("%w: %v", ErrInit, err)
	}
	c.state = stateReady
	return nil
}

func (c *Client) setOption(name string, value int) error {
	return c.send(fmt.Sprintf("setoption name %s value %d", name, value))
}

func (c *Client) waitReady(timeout time.Duration) error {
	if err := c.send("isready"); err != nil {
		return err
	}
	_, err := c.readUntil(timeout, "readyok")
	return err
}

// Analyze requests up to k principal variations at depth, sorted
// best-first from the perspective of the side to move in pos.
func (c *Client) Analyze(ctx context.Context, pos *board.Position, depth, k int) ([]Line, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.degraded {
		return nil, ErrDegraded
	}

	ctx, span := c.tracer.Start(ctx, "analyzer.Analyze")
	defer span.End()
	_ = ctx

	if k != c.multiPV {
		if err := c.send(fmt.Sprintf("setoption name MultiPV value %d", k)); err != nil {
			return nil, c.fail(err)
		}
		if err := c.send("isready"); err != nil {
			return nil, c.fail(err)
		}
		if _, err := c.readUntil(c.timeouts.Init, "readyok"); err != nil {
			c.markDegraded()
			c.countTimeout()
			return nil, fmt.Errorf("%w: waiting for readyok: %v", ErrTimeout, err)
		}
		c.multiPV = k
	}

	if err := c.send(fmt.Sprintf("position fen %s", pos.ToFEN())); err != nil {
		return nil, c.fail(err)
	}
	if err := c.send(fmt.Sprintf("go depth %d", depth)); err != nil {
		return nil, c.fail(err)
	}
	c.state = stateSearching

	budget := c.timeouts.Base * c.timeouts.AnalysisFactor * time.Duration(depth)
	if budget <= 0 {
		budget = c.timeouts.Base
	}

	updates := make(map[int]rawUpdate)
	deadline := time.Now().Add(budget)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			c.markDegraded()
			c.countTimeout()
			return nil, fmt.Errorf("%w: search exceeded %s", ErrTimeout, budget)
		}
		line, err := c.readLine(remaining)
		if err != nil {
			c.markDegraded()
			c.countTimeout()
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		if strings.HasPrefix(line, "bestmove") {
			break
		}
		if strings.HasPrefix(line, "info ") && strings.Contains(line, " pv ") {
			if u, ok := parseInfoLine(line); ok {
				if prev, exists := updates[u.multipv]; !exists || isMoreComplete(prev, u) {
					updates[u.multipv] = u
				}
			}
		}
	}
	c.state = stateReady

	lines, err := c.materialize(pos, updates, depth)
	if err != nil {
		return nil, err
	}
	sortBySideToMove(lines, pos.SideToMove == board.White)
	if len(lines) > k {
		lines = lines[:k]
	}
	return lines, nil
}

// BestMove returns the top analysis line's first move, or nil if
// Analyze produced no lines.
func (c *Client) BestMove(ctx context.Context, pos *board.Position, depth int) (*board.Move, error) {
	lines, err := c.Analyze(ctx, pos, depth, 1)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 || len(lines[0].PV) == 0 {
		return nil, nil
	}
	m := lines[0].PV[0]
	return &m, nil
}

// materialize converts raw per-multipv updates (UCI move strings) into
// Lines with concrete board.Move PVs, replaying each PV against a copy
// of pos, and standardizes the score to White's perspective.
func (c *Client) materialize(pos *board.Position, updates map[int]rawUpdate, depth int) ([]Line, error) {
	lines := make([]Line, 0, len(updates))
	for _, u := range updates {
		if len(u.pvTokens) == 0 {
			continue
		}
		walker := pos.Copy()
		pv := make([]board.Move, 0, len(u.pvTokens))
		ok := true
		for _, tok := range u.pvTokens {
			mv, err := board.ParseMove(tok, walker)
			if err != nil {
				ok = false
				break
			}
			pv = append(pv, mv)
			walker.MakeMove(mv)
		}
		if !ok || len(pv) == 0 {
			continue
		}
		std := score.Standardize(u.score, pos.SideToMove == board.White)
		lines = append(lines, Line{Score: std, Depth: u.depth, PV: pv, Origin: OriginEngine})
	}
	if len(lines) == 0 {
		if !pos.HasLegalMoves() {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: no usable analysis lines for non-terminal position", ErrLogic)
	}
	return lines, nil
}

// sortBySideToMove orders lines best-first for whoever is to move:
// ascending key favors Black (lower standardized key is better for
// Black), descending favors White.
func sortBySideToMove(lines []Line, whiteToMove bool) {
	sign := int64(1)
	if !whiteToMove {
		sign = -1
	}
	sort.SliceStable(lines, func(i, j int) bool {
		return sign*lines[i].Score.Key() > sign*lines[j].Score.Key()
	})
}

// fail wraps a protocol-level send/receive error as ErrProtocol and
// marks the client degraded — a mid-request failure leaves the child's
// state unknown, so it cannot safely be reused.
func (c *Client) fail(err error) error {
	c.markDegraded()
	return fmt.Errorf("%w: %v", ErrProtocol, err)
}

func (c *Client) countTimeout() {
	if c.metrics != nil {
		c.metrics.IncAnalyzerTimeout()
	}
}

func (c *Client) markDegraded() {
	c.degraded = true
	c.state = stateQuitting
	_ = c.cmd.Process.Kill()
}

// Close sends quit and waits briefly for a clean exit, killing the
// child if it does not respond.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.degraded {
		return nil
	}
	c.state = stateQuitting
	_ = c.send("quit")

	done := make(chan error, 1)
	go func() { done <- c.cmd.Wait() }()

	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		_ = c.cmd.Process.Kill()
		<-done
		return fmt.Errorf("analyzer: killed unresponsive child on shutdown")
	}
}

func (c *Client) send(cmd string) error {
	_, err := io.WriteString(c.stdin, cmd+"\n")
	return err
}

// readLine reads one line, bounded by timeout.
func (c *Client) readLine(timeout time.Duration) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := c.stdout.ReadString('\n')
		ch <- result{strings.TrimSpace(line), err}
	}()
	select {
	case r := <-ch:
		return r.line, r.err
	case <-time.After(timeout):
		return "", fmt.Errorf("timed out waiting for line after %s", timeout)
	}
}

// readUntil reads lines until one matches prefix, or timeout elapses.
func (c *Client) readUntil(timeout time.Duration, prefix string) (string, error) {
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", fmt.Errorf("timed out waiting for %q", prefix)
		}
		line, err := c.readLine(remaining)
		if err != nil {
			return "", err
		}
		if strings.HasPrefix(line, prefix) {
			return line, nil
		}
	}
}

// rawUpdate is one multipv slot's last fully-specified "info" update.
type rawUpdate struct {
	multipv  int
	depth    int
	score    score.Score
	pvTokens []string
}

// isMoreComplete reports whether next should overwrite prev for the
// same multipv index: it does when its depth is at least prev's. Both
// updates already carry depth, score and a PV, since parseInfoLine
// rejects lines missing any of them.
func isMoreComplete(prev, next rawUpdate) bool {
	return next.depth >= prev.depth
}

// parseInfoLine extracts depth/multipv/score/pv tokens from one UCI
// "info ..." line. Returns ok=false if depth, score, or pv is missing.
func parseInfoLine(line string) (rawUpdate, bool) {
	fields := strings.Fields(line)
	u := rawUpdate{multipv: 1}
	haveDepth, haveScore := false, false

	for i := 0; i < len(fields); i++ {
		switch fields[i] {
		case "depth":
			if i+1 < len(fields) {
				if d, err := strconv.Atoi(fields[i+1]); err == nil {
					u.depth = d
					haveDepth = true
				}
				i++
			}
		case "multipv":
			if i+1 < len(fields) {
				if m, err := strconv.Atoi(fields[i+1]); err == nil {
					u.multipv = m
				}
				i++
			}
		case "score":
			if i+2 < len(fields) {
				kind := fields[i+1]
				v, err := strconv.Atoi(fields[i+2])
				if err == nil {
					switch kind {
					case "cp":
						u.score = score.CP(int32(v))
						haveScore = true
					case "mate":
						u.score = score.Mate(int32(v))
						haveScore = true
					}
				}
				i += 2
			}
		case "pv":
			u.pvTokens = append([]string{}, fields[i+1:]...)
			i = len(fields)
		}
	}

	if !haveDepth || !haveScore || len(u.pvTokens) == 0 {
		return rawUpdate{}, false
	}
	return u, true
}
