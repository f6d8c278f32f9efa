package core

import (
	"github.com/gravityworks/blob-simulator/model"
)

// MinSeparation is the distance floor (metres) applied when computing
// pairwise gravity. Two centres closer than this are normally a collision,
// which the resolver handles after the step; the clamp only prevents the
// force from diverging in the window between integration and resolution.
const MinSeparation = 1e3

// AccumulateGravity resets every body's acceleration accumulator and then
// applies pairwise Newtonian gravitation across all unordered pairs.
//
// All accelerations are derived from the positions the bodies hold on entry;
// no position is advanced until Integrate runs. Callers must not interleave
// the two.
func AccumulateGravity(bodies []*model.Body) {
	for _, b := range bodies {
		b.Accel = model.Vec3{}
	}

	for i := 0; i < len(bodies); i++ {
		for j := i + 1; j < len(bodies); j++ {
			a, b := bodies[i], bodies[j]

			disp := b.Position.Sub(a.Position)
			d := disp.Norm()
			if d < MinSeparation {
				d = MinSeparation
			}

			// F = G·m_a·m_b / d², applied as ±F/m along the unit displacement.
			f := model.G * a.Mass * b.Mass / (d * d)
			unit := disp.Scale(1 / d)

			a.Accel = a.Accel.Add(unit.Scale(f / a.Mass))
			b.Accel = b.Accel.Sub(unit.Scale(f / b.Mass))
		}
	}
}

// Integrate advances every body by dt simulated seconds using the
// accelerations accumulated for this step: velocity first, then position
// from the updated velocity (semi-implicit).
func Integrate(bodies []*model.Body, dt float64) {
	for _, b := range bodies {
		b.Velocity = b.Velocity.Add(b.Accel.Scale(dt))
		b.Position = b.Position.Add(b.Velocity.Scale(dt))
	}
}

// Step runs one full integration step: force accumulation over current
// positions, then velocity and position updates.
func Step(bodies []*model.Body, dt float64) {
	AccumulateGravity(bodies)
	Integrate(bodies, dt)
}
