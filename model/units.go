package model

// Physical constants, SI units throughout.
const (
	// G is the Newtonian gravitational constant (m^3 kg^-1 s^-2).
	G = 6.67428e-11
	// AU is one astronomical unit in metres.
	AU = 1.495978707e11
)

// Reference masses (kg) and radii (m) used to bound procedural generation.
const (
	SolarMass   = 1.98892e30
	SolarRadius = 6.96e8

	EarthMass   = 5.972e24
	EarthRadius = 6.3781e6

	JupiterMass   = 1.899e27
	JupiterRadius = 7.1492e7

	EnceladusMass   = 1.08e20
	EnceladusRadius = 2.521e5

	GanymedeMass   = 1.4819e23
	GanymedeRadius = 2.6341e6
)

// Simulated-time spans in seconds.
const (
	Minute = 60.0
	Hour   = Minute * 60
	Day    = Hour * 24
	Year   = Day * 365.25
)

// Render scaling. The renderer works in abstract render units; one AU maps
// to AUScaleFactor render units. Rendered radii are exaggerated so that more
// than one body is visible at a time; the exaggeration differs per class
// and never feeds back into physics.
const (
	AUScaleFactor = 12500.0

	// ScaleDown converts true metres to render units; ScaleUp inverts it.
	ScaleDown = AUScaleFactor / AU
	ScaleUp   = AU / AUScaleFactor

	sunExaggeration    = 10.0
	planetExaggeration = 60.0
	moonExaggeration   = 24.0
)

// RenderRadius converts a true radius in metres to an exaggerated radius in
// render units for the given class.
func RenderRadius(class BodyClass, trueRadius float64) float64 {
	switch class {
	case ClassSun:
		return trueRadius * ScaleDown * sunExaggeration
	case ClassMoon:
		return trueRadius * ScaleDown * moonExaggeration
	default:
		return trueRadius * ScaleDown * planetExaggeration
	}
}
