package model

import (
	"errors"
	"fmt"
)

// BodyClass tags a body for render-scale and generation purposes.
// Physics never branches on it.
type BodyClass int

const (
	ClassSun BodyClass = iota
	ClassPlanet
	ClassMoon
)

// String returns the lowercase class name.
func (c BodyClass) String() string {
	switch c {
	case ClassSun:
		return "sun"
	case ClassPlanet:
		return "planet"
	case ClassMoon:
		return "moon"
	default:
		return "unknown"
	}
}

// ParseBodyClass maps a class name back to its tag.
func ParseBodyClass(s string) (BodyClass, error) {
	switch s {
	case "sun":
		return ClassSun, nil
	case "planet":
		return ClassPlanet, nil
	case "moon":
		return ClassMoon, nil
	default:
		return 0, fmt.Errorf("unknown body class %q", s)
	}
}

// ErrBodyInvalid indicates a body failed validation.
var ErrBodyInvalid = errors.New("invalid body")

// Body is the physical state of one blob. The engine owns Body instances
// exclusively; collaborators only ever see value copies.
//
// Moons carry no reference to their parent planet; the parent relation is a
// generation-time association that the generator builds and discards.
type Body struct {
	ID    string
	Name  string
	Class BodyClass

	// Mass in kg, true radius in metres.
	Mass   float64
	Radius float64

	// Position in true-scale metres, velocity in m/s.
	Position Vec3
	Velocity Vec3

	// Accel accumulates gravitational acceleration for the current step
	// and is reset at the start of every step.
	Accel Vec3
}

// Validate reports whether the body satisfies the engine's structural
// invariants. ID uniqueness is enforced by the owning collection.
func (b *Body) Validate() error {
	if b.ID == "" {
		return fmt.Errorf("%w: empty id", ErrBodyInvalid)
	}
	if b.Mass <= 0 {
		return fmt.Errorf("%w: body %q mass %g must be positive", ErrBodyInvalid, b.ID, b.Mass)
	}
	if b.Radius <= 0 {
		return fmt.Errorf("%w: body %q radius %g must be positive", ErrBodyInvalid, b.ID, b.Radius)
	}
	return nil
}

// Clone returns an independent deep copy.
func (b *Body) Clone() *Body {
	c := *b
	return &c
}

// RenderRadius returns the exaggerated display radius for this body's class,
// in render units.
func (b *Body) RenderRadius() float64 {
	return RenderRadius(b.Class, b.Radius)
}
