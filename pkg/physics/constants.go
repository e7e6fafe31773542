package physics

import "math"

// Constants holds the fixed physical and engine parameters of a simulation.
// A session copies them at construction; they never change mid-episode.
type Constants struct {
	Gravity      float64 `json:"gravity" toml:"gravity"`
	PlanetMass   float64 `json:"planet_mass" toml:"planet_mass"`
	PlanetRadius float64 `json:"planet_radius" toml:"planet_radius"`
	Exosphere    float64 `json:"exosphere" toml:"exosphere"`

	LanderSize       float64 `json:"lander_size" toml:"lander_size"`
	UnloadedMass     float64 `json:"unloaded_mass" toml:"unloaded_mass"`
	FuelCapacity     float64 `json:"fuel_capacity" toml:"fuel_capacity"`
	FuelRateAtMax    float64 `json:"fuel_rate_at_max_thrust" toml:"fuel_rate_at_max_thrust"`
	FuelDensity      float64 `json:"fuel_density" toml:"fuel_density"`
	EngineDelay      float64 `json:"engine_delay" toml:"engine_delay"`
	EngineLag        float64 `json:"engine_lag" toml:"engine_lag"`
	DragCoefLander   float64 `json:"drag_coef_lander" toml:"drag_coef_lander"`
	DragCoefChute    float64 `json:"drag_coef_chute" toml:"drag_coef_chute"`
	MaxParachuteDrag float64 `json:"max_parachute_drag" toml:"max_parachute_drag"`
	MaxParachuteSpd  float64 `json:"max_parachute_speed" toml:"max_parachute_speed"`

	MaxImpactGroundSpeed float64 `json:"max_impact_ground_speed" toml:"max_impact_ground_speed"`
	MaxImpactDescentRate float64 `json:"max_impact_descent_rate" toml:"max_impact_descent_rate"`
	ThrottleGranularity  int     `json:"throttle_granularity" toml:"throttle_granularity"`
}

// MarsConstants returns the parameters of the Mars lander model
func MarsConstants() Constants {
	return Constants{
		Gravity:              6.673e-11,
		PlanetMass:           6.42e23,
		PlanetRadius:         3386000.0,
		Exosphere:            200000.0,
		LanderSize:           1.0,
		UnloadedMass:         100.0,
		FuelCapacity:         100.0,
		FuelRateAtMax:        0.5,
		FuelDensity:          1.0,
		EngineDelay:          0.0,
		EngineLag:            0.0,
		DragCoefLander:       1.0,
		DragCoefChute:        2.0,
		MaxParachuteDrag:     20000.0,
		MaxParachuteSpd:      500.0,
		MaxImpactGroundSpeed: 1.0,
		MaxImpactDescentRate: 1.0,
		ThrottleGranularity:  20,
	}
}

// GM returns the gravitational parameter of the primary body
func (c Constants) GM() float64 {
	return c.Gravity * c.PlanetMass
}

// SurfaceGravity returns the gravitational acceleration at the surface
func (c Constants) SurfaceGravity() float64 {
	return c.GM() / (c.PlanetRadius * c.PlanetRadius)
}

// MaxThrust is 1.5 times the fully fuelled weight at the surface
func (c Constants) MaxThrust() float64 {
	return 1.5 * c.Mass(1) * c.SurfaceGravity()
}

// Mass returns the lander mass for the given fuel fraction
func (c Constants) Mass(fuel float64) float64 {
	return c.UnloadedMass + c.FuelDensity*c.FuelCapacity*fuel
}

// BodyArea is the circular cross-section of the lander body
func (c Constants) BodyArea() float64 {
	return math.Pi * c.LanderSize * c.LanderSize
}

// ChuteArea is the area of five squares of side twice the lander size
func (c Constants) ChuteArea() float64 {
	side := 2.0 * c.LanderSize
	return 5.0 * side * side
}

// ImpactRadius is the distance from the planet centre at which the lander touches down
func (c Constants) ImpactRadius() float64 {
	return c.PlanetRadius + c.LanderSize/2
}

// Altitude returns the height of a point above the planet surface
func (c Constants) Altitude(position Vector3D) float64 {
	return position.Length() - c.PlanetRadius
}

// DelayBufferLength returns the transport delay expressed in whole steps
func (c Constants) DelayBufferLength(dt float64) int {
	if dt <= 0 || c.EngineDelay <= 0 {
		return 0
	}
	return int(c.EngineDelay/dt + 0.5)
}

// SpecificEnergy returns the orbital energy per unit mass at the given state
func (c Constants) SpecificEnergy(position, velocity Vector3D) float64 {
	r := position.Length()
	if r == 0 {
		return 0.5 * velocity.LengthSquared()
	}
	return -c.GM()/r + 0.5*velocity.LengthSquared()
}
