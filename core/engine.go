package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gravityworks/blob-simulator/internal/logging"
	"github.com/gravityworks/blob-simulator/model"
)

// ErrInvariant indicates structurally invalid state reached the engine
// (non-positive mass or radius, duplicate IDs). This is a collaborator bug,
// not a user-recoverable condition.
var ErrInvariant = errors.New("simulation state invariant violated")

// Timescale defaults, in simulated seconds per real second. The default
// advances five simulated hours per frame at 60 fps.
const (
	DefaultTimescale   = 300 * model.Hour
	TimescaleIncrement = 30 * model.Hour
)

// DefaultEscapeRange is the distance from the most massive body beyond which
// a body is considered escaped and dropped from the live set.
const DefaultEscapeRange = 4 * model.AU

// TickInfo summarises one completed tick for listeners.
type TickInfo struct {
	Elapsed float64 // simulated seconds since session start
	SimDt   float64 // simulated seconds advanced by this tick
	Live    int
	Merges  []Merge
	Escaped []string
}

// MetricsRecorder receives engine-level observations. Implemented by the
// observability collector; a nil recorder is tolerated everywhere.
type MetricsRecorder interface {
	ObserveTickDuration(seconds float64)
	SetLiveBodies(n int)
	AddMerges(n int)
	AddEscapes(n int)
	SetElapsedDays(days float64)
}

// SimulationEngine owns the live body set and advances it in discrete ticks:
// pause gate, force integration, collision resolution, escape culling. All
// mutation happens inside Tick or the command methods; external collaborators
// only ever receive value copies.
type SimulationEngine struct {
	mu sync.RWMutex

	sessionID string
	bodies    []*model.Body
	elapsed   float64
	timescale float64
	paused    bool

	escapeRange float64
	swallowed   int
	escaped     int

	tickListeners []func(TickInfo)

	log     logging.Logger
	metrics MetricsRecorder
}

// EngineOption customises engine construction.
type EngineOption func(*SimulationEngine)

// WithLogger attaches a structured logger.
func WithLogger(log logging.Logger) EngineOption {
	return func(e *SimulationEngine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(m MetricsRecorder) EngineOption {
	return func(e *SimulationEngine) { e.metrics = m }
}

// WithEscapeRange overrides the escape-culling distance. A negative value
// disables culling entirely.
func WithEscapeRange(r float64) EngineOption {
	return func(e *SimulationEngine) { e.escapeRange = r }
}

// WithSessionID adopts an externally minted session ID instead of generating
// one. Empty IDs are ignored.
func WithSessionID(id string) EngineOption {
	return func(e *SimulationEngine) {
		if id != "" {
			e.sessionID = id
		}
	}
}

// WithTimescale sets the starting timescale.
func WithTimescale(ts float64) EngineOption {
	return func(e *SimulationEngine) {
		if ts > 0 {
			e.timescale = ts
		}
	}
}

// NewSimulationEngine constructs an engine owning the provided bodies.
// The bodies must already satisfy the Body invariants; a violation is
// reported as ErrInvariant.
func NewSimulationEngine(bodies []*model.Body, opts ...EngineOption) (*SimulationEngine, error) {
	e := &SimulationEngine{
		sessionID:   uuid.NewString(),
		timescale:   DefaultTimescale,
		escapeRange: DefaultEscapeRange,
		log:         logging.Noop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	e.log = e.log.With(logging.String("session_id", e.sessionID))
	if err := validateBodies(bodies); err != nil {
		return nil, err
	}
	e.bodies = bodies
	e.recordGauges()
	return e, nil
}

func validateBodies(bodies []*model.Body) error {
	seen := make(map[string]struct{}, len(bodies))
	for _, b := range bodies {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvariant, err)
		}
		if _, dup := seen[b.ID]; dup {
			return fmt.Errorf("%w: duplicate body id %q", ErrInvariant, b.ID)
		}
		seen[b.ID] = struct{}{}
	}
	return nil
}

// SessionID identifies this simulation session, e.g. in saved state.
func (e *SimulationEngine) SessionID() string {
	return e.sessionID
}

// RegisterTickListener adds a callback invoked after every completed tick,
// outside the engine lock. Listeners must not be registered concurrently
// with ticking.
func (e *SimulationEngine) RegisterTickListener(fn func(TickInfo)) {
	if fn != nil {
		e.tickListeners = append(e.tickListeners, fn)
	}
}

// Tick advances the simulation by realDt seconds of host time, scaled by the
// current timescale. While paused the tick is short-circuited entirely: no
// integration, no collision pass, no elapsed-time accrual.
func (e *SimulationEngine) Tick(realDt float64) {
	if realDt <= 0 {
		return
	}
	start := time.Now()

	e.mu.Lock()
	if e.paused {
		e.mu.Unlock()
		return
	}

	simDt := e.timescale * realDt
	Step(e.bodies, simDt)

	live, merges := ResolveCollisions(e.bodies)
	escapedIDs := e.cullEscapedLocked(live)
	e.elapsed += simDt
	e.swallowed += len(merges)
	e.escaped += len(escapedIDs)

	info := TickInfo{
		Elapsed: e.elapsed,
		SimDt:   simDt,
		Live:    len(e.bodies),
		Merges:  merges,
		Escaped: escapedIDs,
	}
	e.recordGauges()
	e.mu.Unlock()

	if e.metrics != nil {
		e.metrics.ObserveTickDuration(time.Since(start).Seconds())
		if len(merges) > 0 {
			e.metrics.AddMerges(len(merges))
		}
		if len(escapedIDs) > 0 {
			e.metrics.AddEscapes(len(escapedIDs))
		}
	}
	for _, m := range merges {
		e.log.Info(context.Background(), "bodies merged",
			logging.String("survivor", m.SurvivorID),
			logging.String("absorbed", m.AbsorbedID),
		)
	}
	for _, id := range escapedIDs {
		e.log.Info(context.Background(), "body escaped", logging.String("body", id))
	}
	for _, fn := range e.tickListeners {
		fn(info)
	}
}

// cullEscapedLocked installs the post-collision live set and removes bodies
// beyond the escape range of the most massive body. Caller holds the lock.
func (e *SimulationEngine) cullEscapedLocked(live []*model.Body) []string {
	if e.escapeRange < 0 || len(live) == 0 {
		e.bodies = live
		return nil
	}

	anchor := live[0]
	for _, b := range live[1:] {
		if b.Mass > anchor.Mass {
			anchor = b
		}
	}

	var escapedIDs []string
	kept := live[:0]
	for _, b := range live {
		if b != anchor && b.Position.DistanceTo(anchor.Position) > e.escapeRange {
			escapedIDs = append(escapedIDs, b.ID)
			continue
		}
		kept = append(kept, b)
	}
	e.bodies = kept
	return escapedIDs
}

// Bodies returns value copies of all live bodies in stable order. Each call
// reflects the state at the moment of inquiry; callers never observe later
// in-place mutation.
func (e *SimulationEngine) Bodies() []model.Body {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]model.Body, len(e.bodies))
	for i, b := range e.bodies {
		out[i] = *b
	}
	return out
}

// Elapsed returns the simulated seconds since session start.
func (e *SimulationEngine) Elapsed() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.elapsed
}

// Timescale returns the current simulated-seconds-per-real-second factor.
func (e *SimulationEngine) Timescale() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.timescale
}

// SetTimescale replaces the timescale. Non-positive values are clamped to
// the smallest permitted increment.
func (e *SimulationEngine) SetTimescale(ts float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ts < TimescaleIncrement {
		ts = TimescaleIncrement
	}
	e.timescale = ts
}

// AdjustTimescale moves the timescale by the given number of increments,
// never below one increment.
func (e *SimulationEngine) AdjustTimescale(steps int) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.timescale += float64(steps) * TimescaleIncrement
	if e.timescale < TimescaleIncrement {
		e.timescale = TimescaleIncrement
	}
	return e.timescale
}

// TogglePause flips the pause gate and returns the new state.
func (e *SimulationEngine) TogglePause() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = !e.paused
	return e.paused
}

// SetPaused forces the pause gate to the given state.
func (e *SimulationEngine) SetPaused(paused bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = paused
}

// Paused reports the pause gate.
func (e *SimulationEngine) Paused() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.paused
}

// Stats summarises the session for host display.
type Stats struct {
	Live        int
	Swallowed   int
	Escaped     int
	ElapsedDays float64
}

// Stats returns current session statistics.
func (e *SimulationEngine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Stats{
		Live:        len(e.bodies),
		Swallowed:   e.swallowed,
		Escaped:     e.escaped,
		ElapsedDays: e.elapsed / model.Day,
	}
}

// Capture returns a deep copy of the full simulation state.
func (e *SimulationEngine) Capture() *State {
	e.mu.RLock()
	defer e.mu.RUnlock()

	st := &State{
		Bodies:    make([]*model.Body, len(e.bodies)),
		Elapsed:   e.elapsed,
		Timescale: e.timescale,
		Paused:    e.paused,
	}
	for i, b := range e.bodies {
		st.Bodies[i] = b.Clone()
	}
	return st
}

// Restore replaces the live state with a deep copy of st. The elapsed
// accumulator is reset to the state's recorded time; timescale and pause
// follow the restored state. Used by the rewind controller and by load.
func (e *SimulationEngine) Restore(st *State) error {
	if st == nil {
		return fmt.Errorf("%w: nil state", ErrInvariant)
	}
	if err := validateBodies(st.Bodies); err != nil {
		return err
	}

	clone := st.Clone()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.bodies = clone.Bodies
	e.elapsed = clone.Elapsed
	if clone.Timescale > 0 {
		e.timescale = clone.Timescale
	}
	e.paused = clone.Paused
	e.recordGauges()
	return nil
}

// Reset installs a freshly generated body set and zeroes the session:
// elapsed time, swallow/escape counters. Timescale and pause survive.
func (e *SimulationEngine) Reset(bodies []*model.Body) error {
	if err := validateBodies(bodies); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bodies = bodies
	e.elapsed = 0
	e.swallowed = 0
	e.escaped = 0
	e.recordGauges()
	return nil
}

// recordGauges pushes body count and elapsed time to the metrics recorder.
// Caller holds at least the read lock, or the engine is not yet shared.
func (e *SimulationEngine) recordGauges() {
	if e.metrics == nil {
		return
	}
	e.metrics.SetLiveBodies(len(e.bodies))
	e.metrics.SetElapsedDays(e.elapsed / model.Day)
}
