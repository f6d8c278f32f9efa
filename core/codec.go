package core

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/gravityworks/blob-simulator/model"
)

// Document bundles everything an external save/load collaborator needs to
// reconstruct an identical session: the live state plus, optionally, the
// recorded snapshot sequence.
type Document struct {
	SessionID string
	State     *State
	Snapshots []*Snapshot
}

// internal JSON shapes, kept unexported so the wire format can evolve
// independently of the in-memory types.
type documentJSON struct {
	SessionID string         `json:"session_id,omitempty"`
	Elapsed   float64        `json:"elapsed_seconds"`
	Timescale float64        `json:"timescale"`
	Paused    bool           `json:"paused"`
	Bodies    []bodyJSON     `json:"bodies"`
	Snapshots []snapshotJSON `json:"snapshots,omitempty"`
}

type bodyJSON struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Class    string  `json:"class"`
	Mass     float64 `json:"mass_kg"`
	Radius   float64 `json:"radius_m"`
	Position vecJSON `json:"position"`
	Velocity vecJSON `json:"velocity"`
}

type vecJSON struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type snapshotJSON struct {
	Seq       int        `json:"seq"`
	Elapsed   float64    `json:"elapsed_seconds"`
	Timescale float64    `json:"timescale"`
	Paused    bool       `json:"paused"`
	Bodies    []bodyJSON `json:"bodies"`
}

// SaveDocument writes the document as JSON. Elapsed time, timescale, the
// pause flag, and every persistent Body attribute are carried. Accel is
// deliberately not serialised: it is transient per-tick scratch, zeroed at
// the start of every AccumulateGravity pass, so loaded bodies start with a
// zero Accel and the first tick rebuilds it. The on-disk location and file
// mechanics stay with the caller.
func SaveDocument(w io.Writer, doc *Document) error {
	if doc == nil || doc.State == nil {
		return fmt.Errorf("SaveDocument: nil document")
	}

	payload := documentJSON{
		SessionID: doc.SessionID,
		Elapsed:   doc.State.Elapsed,
		Timescale: doc.State.Timescale,
		Paused:    doc.State.Paused,
		Bodies:    bodiesToJSON(doc.State.Bodies),
	}
	for _, snap := range doc.Snapshots {
		payload.Snapshots = append(payload.Snapshots, snapshotJSON{
			Seq:       snap.Seq,
			Elapsed:   snap.State.Elapsed,
			Timescale: snap.State.Timescale,
			Paused:    snap.State.Paused,
			Bodies:    bodiesToJSON(snap.State.Bodies),
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&payload); err != nil {
		return fmt.Errorf("SaveDocument: encode failed: %w", err)
	}
	return nil
}

// LoadDocument reads a document written by SaveDocument. It fails only on
// JSON and structural errors; physical invariants are enforced when the
// state is installed into an engine.
func LoadDocument(r io.Reader) (*Document, error) {
	var payload documentJSON
	dec := json.NewDecoder(r)
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("LoadDocument: decode failed: %w", err)
	}

	bodies, err := bodiesFromJSON(payload.Bodies)
	if err != nil {
		return nil, fmt.Errorf("LoadDocument: %w", err)
	}

	doc := &Document{
		SessionID: payload.SessionID,
		State: &State{
			Bodies:    bodies,
			Elapsed:   payload.Elapsed,
			Timescale: payload.Timescale,
			Paused:    payload.Paused,
		},
	}
	for _, js := range payload.Snapshots {
		snapBodies, err := bodiesFromJSON(js.Bodies)
		if err != nil {
			return nil, fmt.Errorf("LoadDocument: snapshot %d: %w", js.Seq, err)
		}
		doc.Snapshots = append(doc.Snapshots, &Snapshot{
			Seq: js.Seq,
			State: &State{
				Bodies:    snapBodies,
				Elapsed:   js.Elapsed,
				Timescale: js.Timescale,
				Paused:    js.Paused,
			},
		})
	}
	return doc, nil
}

func bodiesToJSON(bodies []*model.Body) []bodyJSON {
	out := make([]bodyJSON, 0, len(bodies))
	for _, b := range bodies {
		out = append(out, bodyJSON{
			ID:       b.ID,
			Name:     b.Name,
			Class:    b.Class.String(),
			Mass:     b.Mass,
			Radius:   b.Radius,
			Position: vecJSON{X: b.Position.X, Y: b.Position.Y, Z: b.Position.Z},
			Velocity: vecJSON{X: b.Velocity.X, Y: b.Velocity.Y, Z: b.Velocity.Z},
		})
	}
	return out
}

func bodiesFromJSON(in []bodyJSON) ([]*model.Body, error) {
	bodies := make([]*model.Body, 0, len(in))
	for _, js := range in {
		if js.ID == "" {
			return nil, fmt.Errorf("body with empty id")
		}
		class, err := model.ParseBodyClass(js.Class)
		if err != nil {
			return nil, fmt.Errorf("body %q: %w", js.ID, err)
		}
		bodies = append(bodies, &model.Body{
			ID:       js.ID,
			Name:     js.Name,
			Class:    class,
			Mass:     js.Mass,
			Radius:   js.Radius,
			Position: model.Vec3{X: js.Position.X, Y: js.Position.Y, Z: js.Position.Z},
			Velocity: model.Vec3{X: js.Velocity.X, Y: js.Velocity.Y, Z: js.Velocity.Z},
		})
	}
	return bodies, nil
}
