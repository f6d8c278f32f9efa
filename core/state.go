package core

import "github.com/gravityworks/blob-simulator/model"

// State is a self-contained copy of the full simulation state. The engine
// exposes it for snapshotting and persistence; a State never aliases the
// engine's live bodies.
type State struct {
	Bodies    []*model.Body
	Elapsed   float64 // simulated seconds since session start
	Timescale float64 // simulated seconds per real second
	Paused    bool
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	c := &State{
		Bodies:    make([]*model.Body, len(s.Bodies)),
		Elapsed:   s.Elapsed,
		Timescale: s.Timescale,
		Paused:    s.Paused,
	}
	for i, b := range s.Bodies {
		c.Bodies[i] = b.Clone()
	}
	return c
}

// Snapshot is an immutable deep copy of the simulation state at an
// elapsed-time checkpoint, tagged with its sequence index.
type Snapshot struct {
	Seq   int
	State *State
}

// Elapsed returns the simulated time the snapshot was taken at.
func (s *Snapshot) Elapsed() float64 {
	return s.State.Elapsed
}
