// Package history records periodic snapshots of the simulation state and
// replays them for time rewind. The controller is a small state machine:
// Recording (forward simulation, snapshots at fixed simulated-time
// intervals), and Scrubbing (live state frozen while a cursor browses the
// snapshot sequence). Committing the cursor installs that snapshot as the
// new live state and discards the now-invalid future; recording resumes in
// the same tick.
package history

import (
	"context"
	"sync"

	"github.com/gravityworks/blob-simulator/core"
	"github.com/gravityworks/blob-simulator/internal/logging"
	"github.com/gravityworks/blob-simulator/model"
)

// Phase is the rewind controller state.
type Phase int

const (
	// PhaseRecording is the default: forward simulation with periodic snapshots.
	PhaseRecording Phase = iota
	// PhaseScrubbing freezes snapshotting while the cursor browses history.
	PhaseScrubbing
)

// String returns the lowercase phase name.
func (p Phase) String() string {
	if p == PhaseScrubbing {
		return "scrubbing"
	}
	return "recording"
}

// DefaultInterval is the simulated time between snapshots: 90 days.
const DefaultInterval = 90 * model.Day

// StateStore is the slice of the engine the recorder depends on. The pause
// gate is what freezes the live simulation while scrubbing; a host may keep
// issuing frame ticks and they must not advance the state.
type StateStore interface {
	Capture() *core.State
	Restore(*core.State) error
	Paused() bool
	SetPaused(paused bool)
}

// SnapshotMetrics receives the snapshot count after every change.
type SnapshotMetrics interface {
	SetSnapshots(n int)
}

// Recorder owns the snapshot sequence for one session. All methods are safe
// for use from the host loop; snapshots handed out are never mutated.
type Recorder struct {
	mu sync.Mutex

	store    StateStore
	interval float64

	snaps        []*core.Snapshot
	nextSeq      int
	nextBoundary float64

	phase  Phase
	cursor int

	// resumePaused is the store's pause state on entering Scrubbing, put
	// back when scrubbing ends by any path.
	resumePaused bool

	log     logging.Logger
	metrics SnapshotMetrics
}

// Option customises Recorder construction.
type Option func(*Recorder)

// WithLogger attaches a structured logger.
func WithLogger(log logging.Logger) Option {
	return func(r *Recorder) {
		if log != nil {
			r.log = log
		}
	}
}

// WithMetrics attaches a snapshot-count gauge.
func WithMetrics(m SnapshotMetrics) Option {
	return func(r *Recorder) { r.metrics = m }
}

// NewRecorder constructs a recorder over the given store and immediately
// takes the session-start snapshot, which anchors the earliest scrub
// position. A non-positive interval takes DefaultInterval.
func NewRecorder(store StateStore, interval float64, opts ...Option) *Recorder {
	if interval <= 0 {
		interval = DefaultInterval
	}
	r := &Recorder{
		store:    store,
		interval: interval,
		log:      logging.Noop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	r.takeSnapshotLocked()
	return r
}

// Phase returns the controller state.
func (r *Recorder) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// Count returns the number of recorded snapshots.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

// Observe is the engine tick listener. When recording and the elapsed time
// has crossed the next interval boundary, it captures a snapshot. A tick
// that jumps several boundaries yields one snapshot; the boundary then
// advances past the current time, keeping the sequence time-ordered.
func (r *Recorder) Observe(info core.TickInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase != PhaseRecording || info.Elapsed < r.nextBoundary {
		return
	}
	r.takeSnapshotLocked()
}

func (r *Recorder) takeSnapshotLocked() {
	st := r.store.Capture()
	snap := &core.Snapshot{Seq: r.nextSeq, State: st}
	r.nextSeq++
	r.snaps = append(r.snaps, snap)

	for r.nextBoundary <= st.Elapsed {
		r.nextBoundary += r.interval
	}

	r.log.Debug(context.Background(), "snapshot recorded",
		logging.Int("seq", snap.Seq),
		logging.Any("elapsed_days", st.Elapsed/model.Day),
	)
	if r.metrics != nil {
		r.metrics.SetSnapshots(len(r.snaps))
	}
}

// Scrub moves the rewind cursor by one snapshot in the given direction
// (negative = older, positive = newer), entering Scrubbing first if needed.
// Entering Scrubbing pauses the store, so frame ticks issued by the host
// while the cursor is out do not advance the live state. The cursor clamps
// at the session-start snapshot and at "now"; out-of-range requests are
// never errors. The snapshot under the cursor is returned for preview and
// must be treated as read-only.
func (r *Recorder) Scrub(direction int) *core.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase != PhaseScrubbing {
		r.phase = PhaseScrubbing
		r.cursor = len(r.snaps) - 1
		r.resumePaused = r.store.Paused()
		r.store.SetPaused(true)
	}

	switch {
	case direction < 0:
		r.cursor--
	case direction > 0:
		r.cursor++
	}
	if r.cursor < 0 {
		r.cursor = 0
	}
	if r.cursor > len(r.snaps)-1 {
		r.cursor = len(r.snaps) - 1
	}
	return r.snaps[r.cursor]
}

// Cursor returns the snapshot under the scrub cursor, or false when not
// scrubbing.
func (r *Recorder) Cursor() (*core.Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != PhaseScrubbing {
		return nil, false
	}
	return r.snaps[r.cursor], true
}

// Confirm commits the snapshot under the cursor: the live state is replaced
// with a deep copy, every later snapshot is discarded (the timeline forks),
// and recording resumes with a fresh interval boundary counting from the
// restored time. The pause state from before scrubbing is put back, whatever
// the committed snapshot recorded.
func (r *Recorder) Confirm() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase != PhaseScrubbing {
		return nil
	}

	snap := r.snaps[r.cursor]
	if err := r.store.Restore(snap.State); err != nil {
		return err
	}
	r.store.SetPaused(r.resumePaused)

	r.snaps = r.snaps[:r.cursor+1]
	r.nextSeq = snap.Seq + 1
	r.nextBoundary = snap.State.Elapsed + r.interval
	r.phase = PhaseRecording

	r.log.Info(context.Background(), "rewound to snapshot",
		logging.Int("seq", snap.Seq),
		logging.Any("elapsed_days", snap.State.Elapsed/model.Day),
	)
	if r.metrics != nil {
		r.metrics.SetSnapshots(len(r.snaps))
	}
	return nil
}

// Cancel abandons a scrub in progress without installing any snapshot; the
// live state resumes exactly as it was before scrubbing began, including its
// pause state.
func (r *Recorder) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase == PhaseScrubbing {
		r.store.SetPaused(r.resumePaused)
	}
	r.phase = PhaseRecording
}

// Reset discards the entire snapshot sequence, e.g. on start-over, and takes
// a fresh session-start snapshot from the store's current state.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase == PhaseScrubbing {
		r.store.SetPaused(r.resumePaused)
	}
	r.snaps = nil
	r.nextSeq = 0
	r.nextBoundary = 0
	r.phase = PhaseRecording
	r.takeSnapshotLocked()
}

// Adopt replaces the snapshot sequence with one loaded from persistence,
// dropping the session-start snapshot taken at construction. Snapshots must
// be in seq order. An empty sequence leaves the recorder unchanged.
func (r *Recorder) Adopt(snaps []*core.Snapshot) {
	if len(snaps) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.snaps = make([]*core.Snapshot, len(snaps))
	copy(r.snaps, snaps)
	last := r.snaps[len(r.snaps)-1]
	r.nextSeq = last.Seq + 1
	r.nextBoundary = last.State.Elapsed + r.interval
	r.phase = PhaseRecording

	if r.metrics != nil {
		r.metrics.SetSnapshots(len(r.snaps))
	}
}

// Snapshots returns the recorded sequence for persistence. The slice is a
// copy; the snapshots themselves are shared and read-only.
func (r *Recorder) Snapshots() []*core.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*core.Snapshot, len(r.snaps))
	copy(out, r.snaps)
	return out
}
