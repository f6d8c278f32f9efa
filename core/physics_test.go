package core

import (
	"math"
	"testing"

	"github.com/gravityworks/blob-simulator/model"
)

func totalMomentum(bodies []*model.Body) model.Vec3 {
	var p model.Vec3
	for _, b := range bodies {
		p = p.Add(b.Velocity.Scale(b.Mass))
	}
	return p
}

func TestAccumulateGravityIsSymmetric(t *testing.T) {
	a := &model.Body{ID: "a", Mass: model.EarthMass, Radius: model.EarthRadius}
	b := &model.Body{
		ID: "b", Mass: 2 * model.EarthMass, Radius: model.EarthRadius,
		Position: model.Vec3{X: 1e9},
	}
	AccumulateGravity([]*model.Body{a, b})

	// Forces are equal and opposite, so m_a·a_a = -m_b·a_b.
	fa := a.Accel.Scale(a.Mass)
	fb := b.Accel.Scale(b.Mass)
	if math.Abs(fa.X+fb.X) > 1e-9*math.Abs(fa.X) {
		t.Fatalf("forces not antisymmetric: %v vs %v", fa.X, fb.X)
	}
	if a.Accel.X <= 0 || b.Accel.X >= 0 {
		t.Fatalf("accelerations point the wrong way: a=%v b=%v", a.Accel.X, b.Accel.X)
	}

	want := model.G * b.Mass / (1e9 * 1e9)
	if math.Abs(a.Accel.X-want) > 1e-9*want {
		t.Fatalf("a.Accel.X = %v, want %v", a.Accel.X, want)
	}
}

func TestAccumulateGravityResetsAccumulator(t *testing.T) {
	a := &model.Body{ID: "a", Mass: 1, Radius: 1, Accel: model.Vec3{X: 123}}
	b := &model.Body{ID: "b", Mass: 1, Radius: 1, Position: model.Vec3{X: 1e6}}

	AccumulateGravity([]*model.Body{a, b})
	first := a.Accel
	AccumulateGravity([]*model.Body{a, b})

	if a.Accel != first {
		t.Fatalf("acceleration accumulated across steps: %+v vs %+v", a.Accel, first)
	}
}

func TestAccumulateGravityClampsCloseEncounters(t *testing.T) {
	a := &model.Body{ID: "a", Mass: model.SolarMass, Radius: 1}
	b := &model.Body{ID: "b", Mass: model.SolarMass, Radius: 1, Position: model.Vec3{X: 1}}

	AccumulateGravity([]*model.Body{a, b})

	// The distance floor caps the acceleration at G·M/MinSeparation².
	max := model.G * model.SolarMass / (MinSeparation * MinSeparation)
	if got := a.Accel.Norm(); got > max*(1+1e-12) {
		t.Fatalf("clamped acceleration %v exceeds cap %v", got, max)
	}
	if math.IsInf(a.Accel.X, 0) || math.IsNaN(a.Accel.X) {
		t.Fatalf("acceleration diverged: %+v", a.Accel)
	}
}

func TestStepConservesMomentum(t *testing.T) {
	bodies := []*model.Body{
		{ID: "sun", Mass: model.SolarMass, Radius: model.SolarRadius},
		{ID: "p1", Mass: model.EarthMass, Radius: model.EarthRadius,
			Position: model.Vec3{X: model.AU}, Velocity: model.Vec3{Y: 29780}},
		{ID: "p2", Mass: model.JupiterMass, Radius: model.JupiterRadius,
			Position: model.Vec3{X: -2 * model.AU, Y: model.AU}, Velocity: model.Vec3{Y: -18000}},
	}
	before := totalMomentum(bodies)

	for i := 0; i < 1000; i++ {
		Step(bodies, model.Hour)
	}

	after := totalMomentum(bodies)
	scale := before.Norm()
	if scale == 0 {
		scale = 1
	}
	if after.Sub(before).Norm() > 1e-9*scale {
		t.Fatalf("momentum drifted: before %+v after %+v", before, after)
	}
}

func TestCircularOrbitStaysOnRadius(t *testing.T) {
	// Earth-Moon: a light satellite on a circular orbit should hold its
	// orbital radius to within a fraction of a percent over one period.
	const r = 3.844e8
	v := math.Sqrt(model.G * model.EarthMass / r)
	period := 2 * math.Pi * r / v

	earth := &model.Body{ID: "earth", Mass: model.EarthMass, Radius: model.EarthRadius}
	moon := &model.Body{ID: "moon", Mass: 7.35e22, Radius: 1.737e6,
		Position: model.Vec3{X: r}, Velocity: model.Vec3{Y: v}}
	bodies := []*model.Body{earth, moon}

	dt := 60.0
	steps := int(period / dt)
	for i := 0; i < steps; i++ {
		Step(bodies, dt)
		d := moon.Position.DistanceTo(earth.Position)
		if math.Abs(d-r)/r > 0.01 {
			t.Fatalf("orbit radius drifted to %v at step %d (want ~%v)", d, i, r)
		}
	}
}

func TestIntegrateIsSemiImplicit(t *testing.T) {
	// Position must advance with the already-updated velocity.
	b := &model.Body{ID: "b", Mass: 1, Radius: 1, Accel: model.Vec3{X: 2}}
	Integrate([]*model.Body{b}, 3)

	if b.Velocity.X != 6 {
		t.Fatalf("velocity = %v, want 6", b.Velocity.X)
	}
	if b.Position.X != 18 {
		t.Fatalf("position = %v, want 18 (explicit Euler would give 0)", b.Position.X)
	}
}
