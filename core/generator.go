package core

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/gravityworks/blob-simulator/internal/logging"
	"github.com/gravityworks/blob-simulator/model"
)

// Pattern selects the starting spatial layout of the planets.
type Pattern int

const (
	// PatternCircular places planets on concentric circles around the sun.
	PatternCircular Pattern = iota
	// PatternSquare places planets on a square lattice spiralling outward.
	PatternSquare
)

// String returns the lowercase pattern name.
func (p Pattern) String() string {
	if p == PatternSquare {
		return "square"
	}
	return "circular"
}

// ParsePattern maps a pattern name back to its value.
func ParsePattern(s string) (Pattern, error) {
	switch s {
	case "circular":
		return PatternCircular, nil
	case "square":
		return PatternSquare, nil
	default:
		return 0, fmt.Errorf("unknown pattern %q", s)
	}
}

// VelocityMode selects how starting orbital velocities are assigned.
type VelocityMode int

const (
	// VelocityComputed derives v = sqrt(G·M/r) for a closed circular orbit.
	VelocityComputed VelocityMode = iota
	// VelocityRandomized samples a sub-escape band around the computed value,
	// producing eccentric but still bound orbits.
	VelocityRandomized
)

// String returns the lowercase mode name.
func (m VelocityMode) String() string {
	if m == VelocityRandomized {
		return "random"
	}
	return "computed"
}

// ParseVelocityMode maps a mode name back to its value.
func ParseVelocityMode(s string) (VelocityMode, error) {
	switch s {
	case "computed":
		return VelocityComputed, nil
	case "random":
		return VelocityRandomized, nil
	default:
		return 0, fmt.Errorf("unknown velocity mode %q", s)
	}
}

// ErrConfigUnsatisfiable indicates generation could not place a body within
// the bounded number of retries. The configured ranges leave no room; the
// simulation must not start.
var ErrConfigUnsatisfiable = errors.New("generation constraints unsatisfiable")

// GenConfig enumerates the knobs of system generation.
type GenConfig struct {
	// Seed makes generation deterministic when non-zero; zero draws a
	// fresh time-based seed.
	Seed int64

	// Planets orbit the sun directly; Moons are distributed among them.
	Planets int
	Moons   int

	Pattern      Pattern
	VelocityMode VelocityMode

	// AngularChaos perturbs each orbit's inclination and phase by a bounded
	// random offset, breaking exact coplanarity.
	AngularChaos bool

	// FirstOrbit and OrbitSpacing (metres) control the planet ring ladder.
	// Zero values take the defaults below.
	FirstOrbit   float64
	OrbitSpacing float64
}

const (
	defaultPlanets      = 5
	maxMoons            = 35
	defaultFirstOrbit   = 0.4 * model.AU
	defaultOrbitSpacing = 0.35 * model.AU

	// Randomized velocities stay inside [lo, hi]·v_circular; escape velocity
	// is sqrt(2)·v_circular, so the band keeps every orbit bound.
	randVelocityLo = 0.85
	randVelocityHi = 1.25

	maxChaosInclination = math.Pi / 8
	maxChaosPhase       = math.Pi / 8

	// A freshly placed body must clear every existing body by this multiple
	// of their summed radii, or placement is retried.
	placementClearance = 2.0
	placementRetries   = 32
)

func (c GenConfig) withDefaults() GenConfig {
	if c.Planets == 0 {
		c.Planets = defaultPlanets
	}
	if c.FirstOrbit == 0 {
		c.FirstOrbit = defaultFirstOrbit
	}
	if c.OrbitSpacing == 0 {
		c.OrbitSpacing = defaultOrbitSpacing
	}
	return c
}

// Generator procedurally builds the initial body set: one sun at the origin,
// planets on increasing orbital radii, and moons bound to random planets.
type Generator struct {
	cfg GenConfig
	rng *rand.Rand
	log logging.Logger
}

// NewGenerator constructs a generator. A nil logger is replaced with a noop.
func NewGenerator(cfg GenConfig, log logging.Logger) (*Generator, error) {
	cfg = cfg.withDefaults()
	if cfg.Planets < 0 || cfg.Moons < 0 {
		return nil, fmt.Errorf("%w: negative body counts", ErrConfigUnsatisfiable)
	}
	if cfg.Moons > maxMoons {
		return nil, fmt.Errorf("%w: %d moons exceeds the %d-moon limit", ErrConfigUnsatisfiable, cfg.Moons, maxMoons)
	}
	if log == nil {
		log = logging.Noop()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(seed)),
		log: log,
	}, nil
}

// Generate builds the full body set. The returned order is sun, planets by
// increasing orbit, then moons; the order is stable for a given seed.
func (g *Generator) Generate() ([]*model.Body, error) {
	bodies := make([]*model.Body, 0, 1+g.cfg.Planets+g.cfg.Moons)

	sun := &model.Body{
		ID:     "sun",
		Name:   "Sun",
		Class:  model.ClassSun,
		Mass:   model.SolarMass,
		Radius: model.SolarRadius,
	}
	bodies = append(bodies, sun)

	planets := make([]*model.Body, 0, g.cfg.Planets)
	for i := 0; i < g.cfg.Planets; i++ {
		p, err := g.placePlanet(i, sun, bodies)
		if err != nil {
			return nil, err
		}
		bodies = append(bodies, p)
		planets = append(planets, p)
	}

	// The moon→planet association lives only in this loop; bodies never
	// reference each other once generation finishes.
	moonsPerPlanet := make(map[int]int, len(planets))
	for i := 0; i < g.cfg.Moons && len(planets) > 0; i++ {
		parentIdx := g.rng.Intn(len(planets))
		moonsPerPlanet[parentIdx]++
		m, err := g.placeMoon(parentIdx, moonsPerPlanet[parentIdx], planets[parentIdx], bodies)
		if err != nil {
			return nil, err
		}
		bodies = append(bodies, m)
	}

	g.log.Info(context.Background(), "system generated",
		logging.Int("planets", len(planets)),
		logging.Int("moons", len(bodies)-1-len(planets)),
		logging.String("pattern", g.cfg.Pattern.String()),
		logging.String("velocity_mode", g.cfg.VelocityMode.String()),
	)
	return bodies, nil
}

// placePlanet samples mass/radius and places planet i on its ring, retrying
// placement a bounded number of times on overlap.
func (g *Generator) placePlanet(i int, sun *model.Body, existing []*model.Body) (*model.Body, error) {
	mass, radius := g.sampleCoupled(model.EarthMass, model.JupiterMass, model.EarthRadius, model.JupiterRadius)

	orbitRadius := g.cfg.FirstOrbit + float64(i)*g.cfg.OrbitSpacing
	basePhase := 2 * math.Pi * float64(i) / float64(g.cfg.Planets)

	for attempt := 0; attempt < placementRetries; attempt++ {
		var pos model.Vec3
		var tangent model.Vec3
		var r float64

		if g.cfg.Pattern == PatternSquare {
			// The lattice is fixed; retries rotate it to dodge the overlap.
			jitter := 0.0
			if attempt > 0 {
				jitter = g.rng.Float64() * 2 * math.Pi
			}
			pos = squareLatticePoint(i, g.cfg.FirstOrbit, jitter)
			r = pos.Norm()
			pos, tangent = g.orient(pos.Scale(1/r), r)
		} else {
			phase := basePhase
			r = orbitRadius
			if attempt > 0 {
				phase = g.rng.Float64() * 2 * math.Pi
				r = orbitRadius * (1 + 0.1*g.rng.Float64())
			}
			pos, tangent = g.placeOnRing(r, phase)
		}

		speed := g.orbitalSpeed(sun.Mass, r)
		p := &model.Body{
			ID:       fmt.Sprintf("planet-%d", i+1),
			Name:     fmt.Sprintf("Planet %d", i+1),
			Class:    model.ClassPlanet,
			Mass:     mass,
			Radius:   radius,
			Position: pos,
			Velocity: tangent.Scale(speed),
		}
		if clearsExisting(p, existing) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: planet %d found no clear orbit after %d attempts",
		ErrConfigUnsatisfiable, i+1, placementRetries)
}

// placeMoon places the n-th moon of the given parent planet, relative to the
// parent's position and velocity.
func (g *Generator) placeMoon(parentIdx, n int, parent *model.Body, existing []*model.Body) (*model.Body, error) {
	mass, radius := g.sampleCoupled(model.EnceladusMass, model.GanymedeMass, model.EnceladusRadius, model.GanymedeRadius)

	for attempt := 0; attempt < placementRetries; attempt++ {
		// 8..60 parent radii keeps moons well clear of the parent surface
		// and well inside its gravitational dominance.
		r := parent.Radius * (8 + 52*g.rng.Float64())
		phase := g.rng.Float64() * 2 * math.Pi

		offset, tangent := g.placeOnRing(r, phase)
		speed := g.orbitalSpeed(parent.Mass, r)

		m := &model.Body{
			ID:       fmt.Sprintf("moon-%d-%d", parentIdx+1, n),
			Name:     fmt.Sprintf("Moon %d-%d", parentIdx+1, n),
			Class:    model.ClassMoon,
			Mass:     mass,
			Radius:   radius,
			Position: parent.Position.Add(offset),
			Velocity: parent.Velocity.Add(tangent.Scale(speed)),
		}
		if clearsExisting(m, existing) {
			return m, nil
		}
	}
	return nil, fmt.Errorf("%w: moon %d of planet %d found no clear orbit after %d attempts",
		ErrConfigUnsatisfiable, n, parentIdx+1, placementRetries)
}

// sampleCoupled draws a mass and radius from the same half of their ranges,
// so small masses pair with small radii and vice versa.
func (g *Generator) sampleCoupled(minMass, maxMass, minRadius, maxRadius float64) (float64, float64) {
	midMass := minMass + (maxMass-minMass)/2
	midRadius := minRadius + (maxRadius-minRadius)/2

	if g.rng.Intn(2) == 0 {
		mass := minMass + g.rng.Float64()*(midMass-minMass)
		radius := minRadius + g.rng.Float64()*(midRadius-minRadius)
		return mass, radius
	}
	mass := midMass + g.rng.Float64()*(maxMass-midMass)
	radius := midRadius + g.rng.Float64()*(maxRadius-midRadius)
	return mass, radius
}

// placeOnRing returns the position on a ring of radius r at the given phase
// plus the in-plane unit tangent, with angular chaos applied when enabled.
func (g *Generator) placeOnRing(r, phase float64) (pos, tangent model.Vec3) {
	incl := 0.0
	if g.cfg.AngularChaos {
		incl = (g.rng.Float64()*2 - 1) * maxChaosInclination
		phase += (g.rng.Float64()*2 - 1) * maxChaosPhase
	}
	u := model.Vec3{
		X: math.Cos(phase) * math.Cos(incl),
		Y: math.Sin(phase) * math.Cos(incl),
		Z: math.Sin(incl),
	}
	return orientTangent(u, r)
}

// orient tilts an already-computed unit radial direction when chaos is on
// and returns the final position and tangent.
func (g *Generator) orient(u model.Vec3, r float64) (pos, tangent model.Vec3) {
	if g.cfg.AngularChaos {
		incl := (g.rng.Float64()*2 - 1) * maxChaosInclination
		phase := math.Atan2(u.Y, u.X) + (g.rng.Float64()*2-1)*maxChaosPhase
		u = model.Vec3{
			X: math.Cos(phase) * math.Cos(incl),
			Y: math.Sin(phase) * math.Cos(incl),
			Z: math.Sin(incl),
		}
	}
	return orientTangent(u, r)
}

// orientTangent derives the orbit tangent perpendicular to the radial
// direction within the (possibly tilted) orbital plane.
func orientTangent(u model.Vec3, r float64) (pos, tangent model.Vec3) {
	up := model.Vec3{Z: 1}
	t := up.Cross(u).Unit()
	return u.Scale(r), t
}

// orbitalSpeed returns the circular-orbit speed around a central mass at
// radius r, widened to a bound eccentric band in randomized mode.
func (g *Generator) orbitalSpeed(centralMass, r float64) float64 {
	v := math.Sqrt(model.G * centralMass / r)
	if g.cfg.VelocityMode == VelocityRandomized {
		v *= randVelocityLo + g.rng.Float64()*(randVelocityHi-randVelocityLo)
	}
	return v
}

// squareLatticePoint returns the i-th point of a square spiral around the
// origin with the given lattice step, in the orbital plane. phase is unused
// by the lattice itself but keeps retry jitter meaningful via rotation.
func squareLatticePoint(i int, step, phase float64) model.Vec3 {
	// Walk the spiral: R, U, L, L, D, D, R, R, R, ...
	x, y := 0, 0
	dx, dy := 1, 0
	leg, legLen, stepsLeft := 0, 1, 1
	for n := 0; n <= i; n++ {
		x += dx
		y += dy
		stepsLeft--
		if stepsLeft == 0 {
			dx, dy = -dy, dx
			leg++
			if leg%2 == 0 {
				legLen++
			}
			stepsLeft = legLen
		}
	}
	px := float64(x) * step
	py := float64(y) * step
	cos, sin := math.Cos(phase), math.Sin(phase)
	return model.Vec3{X: px*cos - py*sin, Y: px*sin + py*cos}
}

// clearsExisting reports whether the candidate keeps the required clearance
// from every already-placed body.
func clearsExisting(candidate *model.Body, existing []*model.Body) bool {
	for _, other := range existing {
		minDist := (candidate.Radius + other.Radius) * placementClearance
		if candidate.Position.DistanceTo(other.Position) <= minDist {
			return false
		}
	}
	return true
}
