package scenario

import (
	"github.com/opd-ai/go-lander/pkg/lander"
	"github.com/opd-ai/go-lander/pkg/physics"
)

// Built-in scenario identifiers
const (
	CircularOrbit      = "circular-orbit"
	Descent10km        = "descent-10km"
	EllipticalPolar    = "elliptical-polar-orbit"
	EscapeLaunch       = "escape-launch"
	AtmosphereClipping = "atmosphere-clipping-orbit"
	Descent200km       = "descent-200km"
)

// Builtin returns the standard presets for a planet
func Builtin(c physics.Constants) []Scenario {
	R := c.PlanetRadius
	preset := func(pos, vel, orient physics.Vector3D, stabilized bool) lander.InitialConditions {
		return lander.InitialConditions{
			Position:           pos,
			Velocity:           vel,
			Orientation:        orient,
			StepSize:           lander.DefaultStepSize,
			Parachute:          lander.NotDeployed,
			StabilizedAttitude: stabilized,
			Autopilot:          true,
		}
	}

	return []Scenario{
		{
			ID:          CircularOrbit,
			Index:       0,
			Description: "circular orbit",
			Conditions: preset(
				physics.Vector3D{X: 1.2 * R},
				physics.Vector3D{Y: -3247.087385863725},
				physics.Vector3D{Y: 90},
				false),
		},
		{
			ID:          Descent10km,
			Index:       1,
			Description: "descent from 10km",
			Conditions: preset(
				physics.Vector3D{Y: -(R + 10000.0)},
				physics.Vector3D{},
				physics.Vector3D{Z: 90},
				true),
		},
		{
			ID:          EllipticalPolar,
			Index:       2,
			Description: "elliptical orbit, thrust changes orbital plane",
			Conditions: preset(
				physics.Vector3D{Z: 1.2 * R},
				physics.Vector3D{X: 3500},
				physics.Vector3D{Z: 90},
				false),
		},
		{
			ID:          EscapeLaunch,
			Index:       3,
			Description: "polar launch at escape velocity (but drag prevents escape)",
			Conditions: preset(
				physics.Vector3D{Z: R + c.LanderSize/2},
				physics.Vector3D{Z: 5027},
				physics.Vector3D{},
				true),
		},
		{
			ID:          AtmosphereClipping,
			Index:       4,
			Description: "elliptical orbit that clips the atmosphere and decays",
			Conditions: preset(
				physics.Vector3D{Z: R + 100000},
				physics.Vector3D{X: 4000},
				physics.Vector3D{Y: 90},
				false),
		},
		{
			ID:          Descent200km,
			Index:       5,
			Description: "descent from 200km",
			Conditions: preset(
				physics.Vector3D{Y: -(R + c.Exosphere)},
				physics.Vector3D{},
				physics.Vector3D{Z: 90},
				false),
		},
	}
}
