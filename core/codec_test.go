package core

import (
	"bytes"
	"strings"
	"testing"

	"github.com/gravityworks/blob-simulator/model"
)

func sampleDocument() *Document {
	return &Document{
		SessionID: "session-1",
		State: &State{
			Bodies: []*model.Body{
				{ID: "sun", Name: "Sun", Class: model.ClassSun,
					Mass: model.SolarMass, Radius: model.SolarRadius},
				{ID: "planet-1", Name: "Planet 1", Class: model.ClassPlanet,
					Mass: model.EarthMass, Radius: model.EarthRadius,
					Position: model.Vec3{X: model.AU, Z: 1e8},
					Velocity: model.Vec3{Y: 29780}},
			},
			Elapsed:   12345.5,
			Timescale: 250 * model.Hour,
			Paused:    true,
		},
		Snapshots: []*Snapshot{
			{Seq: 0, State: &State{
				Bodies:    []*model.Body{{ID: "sun", Name: "Sun", Class: model.ClassSun, Mass: model.SolarMass, Radius: model.SolarRadius}},
				Timescale: 250 * model.Hour,
			}},
			{Seq: 1, State: &State{
				Bodies:    []*model.Body{{ID: "sun", Name: "Sun", Class: model.ClassSun, Mass: model.SolarMass, Radius: model.SolarRadius}},
				Elapsed:   7776000,
				Timescale: 250 * model.Hour,
			}},
		},
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	doc := sampleDocument()

	var buf bytes.Buffer
	if err := SaveDocument(&buf, doc); err != nil {
		t.Fatalf("SaveDocument: %v", err)
	}

	loaded, err := LoadDocument(&buf)
	if err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}

	if loaded.SessionID != doc.SessionID {
		t.Fatalf("session ID = %q, want %q", loaded.SessionID, doc.SessionID)
	}
	if loaded.State.Elapsed != doc.State.Elapsed ||
		loaded.State.Timescale != doc.State.Timescale ||
		loaded.State.Paused != doc.State.Paused {
		t.Fatalf("state header mismatch: %+v", loaded.State)
	}
	if len(loaded.State.Bodies) != len(doc.State.Bodies) {
		t.Fatalf("body count = %d, want %d", len(loaded.State.Bodies), len(doc.State.Bodies))
	}
	for i, want := range doc.State.Bodies {
		got := loaded.State.Bodies[i]
		if got.ID != want.ID || got.Name != want.Name || got.Class != want.Class ||
			got.Mass != want.Mass || got.Radius != want.Radius ||
			got.Position != want.Position || got.Velocity != want.Velocity {
			t.Fatalf("body %d mismatch:\ngot  %+v\nwant %+v", i, got, want)
		}
	}

	if len(loaded.Snapshots) != 2 {
		t.Fatalf("snapshot count = %d, want 2", len(loaded.Snapshots))
	}
	for i, snap := range loaded.Snapshots {
		if snap.Seq != doc.Snapshots[i].Seq {
			t.Fatalf("snapshot %d seq = %d", i, snap.Seq)
		}
		if snap.State.Elapsed != doc.Snapshots[i].State.Elapsed {
			t.Fatalf("snapshot %d elapsed = %v", i, snap.State.Elapsed)
		}
	}
}

// Accel is per-tick scratch and must not survive a save/load cycle.
func TestLoadedBodiesCarryZeroAccel(t *testing.T) {
	doc := sampleDocument()
	doc.State.Bodies[1].Accel = model.Vec3{X: 1.5, Y: -2, Z: 0.25}

	var buf bytes.Buffer
	if err := SaveDocument(&buf, doc); err != nil {
		t.Fatalf("SaveDocument: %v", err)
	}
	loaded, err := LoadDocument(&buf)
	if err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}

	for _, b := range loaded.State.Bodies {
		if b.Accel != (model.Vec3{}) {
			t.Fatalf("body %q loaded with accel %+v", b.ID, b.Accel)
		}
	}
}

func TestSaveDocumentWireFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := SaveDocument(&buf, sampleDocument()); err != nil {
		t.Fatalf("SaveDocument: %v", err)
	}
	out := buf.String()

	for _, field := range []string{
		`"session_id"`, `"elapsed_seconds"`, `"timescale"`, `"paused"`,
		`"bodies"`, `"snapshots"`, `"mass_kg"`, `"radius_m"`,
		`"position"`, `"velocity"`, `"class"`, `"seq"`,
	} {
		if !strings.Contains(out, field) {
			t.Fatalf("expected %s in the saved JSON:\n%s", field, out)
		}
	}
	if !strings.Contains(out, `"class": "planet"`) {
		t.Fatalf("body class not serialized by name:\n%s", out)
	}
}

func TestSaveDocumentRejectsNil(t *testing.T) {
	var buf bytes.Buffer
	if err := SaveDocument(&buf, nil); err == nil {
		t.Fatalf("expected an error for a nil document")
	}
	if err := SaveDocument(&buf, &Document{}); err == nil {
		t.Fatalf("expected an error for a document without state")
	}
}

func TestLoadDocumentStructuralErrors(t *testing.T) {
	if _, err := LoadDocument(strings.NewReader("{not json")); err == nil {
		t.Fatalf("expected a decode error")
	}

	missingID := `{"bodies":[{"id":"","class":"planet","mass_kg":1,"radius_m":1}]}`
	if _, err := LoadDocument(strings.NewReader(missingID)); err == nil {
		t.Fatalf("expected an error for a body with an empty id")
	}

	badClass := `{"bodies":[{"id":"x","class":"comet","mass_kg":1,"radius_m":1}]}`
	if _, err := LoadDocument(strings.NewReader(badClass)); err == nil {
		t.Fatalf("expected an error for an unknown body class")
	}
}

func TestLoadDocumentWithoutSnapshots(t *testing.T) {
	payload := `{"elapsed_seconds":10,"timescale":100,"bodies":[{"id":"sun","class":"sun","mass_kg":1,"radius_m":1}]}`
	doc, err := LoadDocument(strings.NewReader(payload))
	if err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	if len(doc.Snapshots) != 0 {
		t.Fatalf("expected no snapshots, got %d", len(doc.Snapshots))
	}
	if doc.State.Elapsed != 10 || doc.State.Timescale != 100 {
		t.Fatalf("state header = %+v", doc.State)
	}
}
