package model

import (
	"errors"
	"testing"
)

func TestBodyValidate(t *testing.T) {
	valid := &Body{ID: "planet-1", Class: ClassPlanet, Mass: EarthMass, Radius: EarthRadius}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid body rejected: %v", err)
	}

	cases := []struct {
		name string
		body *Body
	}{
		{"empty id", &Body{Mass: 1, Radius: 1}},
		{"zero mass", &Body{ID: "b", Mass: 0, Radius: 1}},
		{"negative mass", &Body{ID: "b", Mass: -1, Radius: 1}},
		{"zero radius", &Body{ID: "b", Mass: 1, Radius: 0}},
	}
	for _, tc := range cases {
		err := tc.body.Validate()
		if err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
		if !errors.Is(err, ErrBodyInvalid) {
			t.Fatalf("%s: error %v does not wrap ErrBodyInvalid", tc.name, err)
		}
	}
}

func TestBodyCloneIsIndependent(t *testing.T) {
	orig := &Body{
		ID:       "moon-1-1",
		Class:    ClassMoon,
		Mass:     GanymedeMass,
		Radius:   GanymedeRadius,
		Position: Vec3{X: 1, Y: 2, Z: 3},
		Velocity: Vec3{X: 4},
	}
	clone := orig.Clone()

	clone.Position.X = 99
	clone.Mass *= 2
	if orig.Position.X != 1 || orig.Mass != GanymedeMass {
		t.Fatalf("mutating the clone leaked into the original: %+v", orig)
	}
}

func TestBodyClassRoundTrip(t *testing.T) {
	for _, class := range []BodyClass{ClassSun, ClassPlanet, ClassMoon} {
		parsed, err := ParseBodyClass(class.String())
		if err != nil {
			t.Fatalf("ParseBodyClass(%q): %v", class.String(), err)
		}
		if parsed != class {
			t.Fatalf("round trip %v -> %q -> %v", class, class.String(), parsed)
		}
	}
	if _, err := ParseBodyClass("asteroid"); err == nil {
		t.Fatalf("expected an error for an unknown class name")
	}
}

func TestRenderRadiusExaggeratesPerClass(t *testing.T) {
	// Rendered radii are exaggerated so small bodies stay visible; the
	// planet factor is the largest, the sun's the smallest.
	sun := RenderRadius(ClassSun, SolarRadius)
	planet := RenderRadius(ClassPlanet, SolarRadius)
	moon := RenderRadius(ClassMoon, SolarRadius)

	if !(planet > moon && moon > sun) {
		t.Fatalf("exaggeration ordering wrong: sun=%v planet=%v moon=%v", sun, planet, moon)
	}
	if sun != SolarRadius*ScaleDown*10 {
		t.Fatalf("sun render radius = %v", sun)
	}
}
