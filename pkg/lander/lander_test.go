package lander

import (
	"errors"
	"math"
	"testing"

	"github.com/opd-ai/go-lander/pkg/physics"
)

// radial returns a point on the y axis at the given altitude
func radial(m *Model, altitude float64) physics.Vector3D {
	return physics.Vector3D{Y: -(m.Constants.PlanetRadius + altitude)}
}

func newState(t *testing.T, m *Model, ic InitialConditions) *State {
	t.Helper()
	if ic.StepSize == 0 {
		ic.StepSize = 0.1
	}
	s := &State{}
	if err := m.Reset(s, ic); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	return s
}

func TestModel_Reset(t *testing.T) {
	m := NewModel()
	pos := radial(m, 10000)
	vel := physics.Vector3D{X: 3, Y: 4}
	s := newState(t, m, InitialConditions{Position: pos, Velocity: vel, StepSize: 0.1})

	if s.Fuel != 1 {
		t.Errorf("Fuel = %v, expected 1", s.Fuel)
	}
	if s.Throttle != 0 {
		t.Errorf("Throttle = %v, expected 0", s.Throttle)
	}
	if s.Time != 0 {
		t.Errorf("Time = %v, expected 0", s.Time)
	}
	if s.ObservedVelocity != vel {
		t.Errorf("ObservedVelocity = %v, expected %v", s.ObservedVelocity, vel)
	}
	if want := pos.Sub(vel.Scale(0.1)); s.PreviousPosition != want {
		t.Errorf("PreviousPosition = %v, expected %v", s.PreviousPosition, want)
	}
	if math.Abs(s.Altitude-10000) > 1e-6 {
		t.Errorf("Altitude = %v, expected 10000", s.Altitude)
	}
	if s.Landed || s.Crashed || s.ParachuteLost {
		t.Errorf("flags after reset = landed %v crashed %v lost %v", s.Landed, s.Crashed, s.ParachuteLost)
	}
}

func TestModel_ResetUnderground(t *testing.T) {
	m := NewModel()
	s := newState(t, m, InitialConditions{
		Position: radial(m, 0.1),
		Velocity: physics.Vector3D{Y: 50},
	})
	if !s.Landed {
		t.Error("Landed = false for start below half the lander size")
	}
	if s.Velocity != (physics.Vector3D{}) {
		t.Errorf("Velocity = %v, expected zero", s.Velocity)
	}
}

func TestModel_ResetRejectsInvalid(t *testing.T) {
	m := NewModel()
	tests := []struct {
		name string
		ic   InitialConditions
		want error
	}{
		{"zero step", InitialConditions{Position: radial(m, 100)}, ErrInvalidStepSize},
		{"negative step", InitialConditions{Position: radial(m, 100), StepSize: -1}, ErrInvalidStepSize},
		{"NaN position", InitialConditions{Position: physics.Vector3D{X: math.NaN()}, StepSize: 0.1}, ErrInvalidInitialConditions},
		{"infinite velocity", InitialConditions{Position: radial(m, 100), Velocity: physics.Vector3D{Z: math.Inf(1)}, StepSize: 0.1}, ErrInvalidInitialConditions},
		{"centre", InitialConditions{StepSize: 0.1}, ErrInvalidInitialConditions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &State{Fuel: 0.25}
			err := m.Reset(s, tt.ic)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Reset() error = %v, want %v", err, tt.want)
			}
			if s.Fuel != 0.25 {
				t.Error("Reset() modified the state despite failing")
			}
		})
	}
}

func TestModel_BootstrapTick(t *testing.T) {
	for _, scheme := range []physics.Scheme{physics.Verlet, physics.Euler} {
		t.Run(scheme.String(), func(t *testing.T) {
			m := NewModel()
			m.Integrator = scheme
			start := radial(m, 10000)
			vel := physics.Vector3D{X: 12, Y: 30}
			s := newState(t, m, InitialConditions{Position: start, Velocity: vel})

			m.Integrate(s)
			if _, err := m.Detect(s); err != nil {
				t.Fatalf("Detect() error = %v", err)
			}

			if s.PreviousPosition != start {
				t.Errorf("PreviousPosition = %v, expected %v", s.PreviousPosition, start)
			}
			if want := start.Add(vel.Scale(0.1)); s.Position != want {
				t.Errorf("Position = %v, expected %v", s.Position, want)
			}
			if math.Abs(s.Time-0.1) > 1e-12 {
				t.Errorf("Time = %v, expected 0.1", s.Time)
			}
		})
	}
}

func TestModel_PreviousPositionTracksLastStep(t *testing.T) {
	m := NewModel()
	s := newState(t, m, InitialConditions{Position: radial(m, 50000), Velocity: physics.Vector3D{X: 100}})

	for i := 0; i < 20; i++ {
		before := s.Position
		m.Integrate(s)
		if _, err := m.Detect(s); err != nil {
			t.Fatalf("Detect() error = %v", err)
		}
		if s.PreviousPosition != before {
			t.Fatalf("tick %d: PreviousPosition = %v, expected %v", i, s.PreviousPosition, before)
		}
	}
}

func TestModel_DetectImpact(t *testing.T) {
	tests := []struct {
		name        string
		fromAlt     float64
		toAlt       float64
		groundSpeed float64
		crashed     bool
	}{
		{"hard_vertical", 10, -2, 0, true},
		{"soft_vertical", 0.52, 0.47, 0, false},
		{"soft_with_drift", 0.52, 0.47, 0.5, false},
		{"sliding", 0.52, 0.47, 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewModel()
			c := m.Constants
			s := newState(t, m, InitialConditions{Position: radial(m, 1000)})
			s.Time = 5
			s.PreviousPosition = radial(m, tt.fromAlt)
			s.Position = radial(m, tt.toAlt).Add(physics.Vector3D{X: tt.groundSpeed * s.StepSize})
			s.Throttle = 0.8

			events, err := m.Detect(s)
			if err != nil {
				t.Fatalf("Detect() error = %v", err)
			}

			if !s.Landed || !events.Has(EventLanded) {
				t.Fatalf("Landed = %v, events = %b", s.Landed, events)
			}
			if s.Crashed != tt.crashed {
				t.Errorf("Crashed = %v, expected %v (climb %v, ground %v)", s.Crashed, tt.crashed, s.ClimbSpeed, s.GroundSpeed)
			}
			if s.Altitude != c.LanderSize/2 {
				t.Errorf("Altitude = %v, expected %v", s.Altitude, c.LanderSize/2)
			}
			if got := c.Altitude(s.Position); math.Abs(got-c.LanderSize/2) > 1e-6 {
				t.Errorf("interpolated altitude = %v, expected %v", got, c.LanderSize/2)
			}
			if s.Time < 5 || s.Time > 5.1+1e-12 {
				t.Errorf("Time = %v, expected value in [5, 5.1]", s.Time)
			}
			if s.ObservedVelocity != (physics.Vector3D{}) {
				t.Errorf("ObservedVelocity = %v, expected zero", s.ObservedVelocity)
			}
			if s.Throttle != 0 {
				t.Errorf("Throttle = %v after landing, expected 0", s.Throttle)
			}
		})
	}
}

func TestModel_DetectImpactTimeRollback(t *testing.T) {
	m := NewModel()
	s := newState(t, m, InitialConditions{Position: radial(m, 1000)})
	s.Time = 5
	s.PreviousPosition = radial(m, 10)
	s.Position = radial(m, -2)

	if _, err := m.Detect(s); err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	mu := 9.5 / 12.0
	want := 5.1 - (1-mu)*0.1
	if math.Abs(s.Time-want) > 1e-6 {
		t.Errorf("Time = %v, expected %v", s.Time, want)
	}
}

func TestModel_DetectImpactDegenerate(t *testing.T) {
	m := NewModel()
	s := newState(t, m, InitialConditions{Position: radial(m, 1000)})
	// both ends already below the surface: the inward root lies before the segment
	s.PreviousPosition = radial(m, -1)
	s.Position = radial(m, -3)

	_, err := m.Detect(s)
	if !errors.Is(err, ErrImpactDegenerate) {
		t.Fatalf("Detect() error = %v, want ErrImpactDegenerate", err)
	}
	var inv *InvariantError
	if !errors.As(err, &inv) {
		t.Fatalf("Detect() error type = %T, want *InvariantError", err)
	}
	if inv.Step != 1 {
		t.Errorf("InvariantError.Step = %d, expected 1", inv.Step)
	}
	if s.Landed {
		t.Error("Landed = true after failed impact resolution")
	}
}

func TestModel_FuelBurn(t *testing.T) {
	m := NewModel()
	s := newState(t, m, InitialConditions{Position: radial(m, 100000)})

	s.Throttle = 1
	if _, err := m.Detect(s); err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	want := 1 - 0.1*0.5/100
	if math.Abs(s.Fuel-want) > 1e-12 {
		t.Errorf("Fuel = %v, expected %v", s.Fuel, want)
	}

	s.Fuel = 1e-6
	s.Throttle = 3
	events, err := m.Detect(s)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if s.Fuel != 0 {
		t.Errorf("Fuel = %v, expected 0", s.Fuel)
	}
	if s.Throttle != 0 {
		t.Errorf("Throttle = %v with empty tank, expected 0", s.Throttle)
	}
	if !events.Has(EventFuelExhausted) {
		t.Errorf("events = %b, expected EventFuelExhausted", events)
	}
}

func TestModel_ParachuteLoss(t *testing.T) {
	m := NewModel()
	s := newState(t, m, InitialConditions{Position: radial(m, 5000)})
	s.Parachute = Deployed
	// 1000 m/s at 5 km is far above the structural limits
	s.Position = s.PreviousPosition.Add(physics.Vector3D{X: 100})

	events, err := m.Detect(s)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if s.Parachute != Lost || !s.ParachuteLost {
		t.Fatalf("Parachute = %v, lost flag = %v", s.Parachute, s.ParachuteLost)
	}
	if !events.Has(EventParachuteLost) {
		t.Errorf("events = %b, expected EventParachuteLost", events)
	}

	m.Control(s, Command{DeployParachute: true}, false)
	if s.Parachute != Lost {
		t.Errorf("Parachute = %v after redeploy request, expected lost", s.Parachute)
	}
}

func TestModel_ParachuteSafe(t *testing.T) {
	m := NewModel()
	c := m.Constants

	tests := []struct {
		name     string
		altitude float64
		speed    float64
		safe     bool
	}{
		{"slow_low", 1000, 50, true},
		{"fast_above_exosphere", c.Exosphere + 1000, 3000, true},
		{"fast_in_atmosphere", 150000, 600, false},
		{"high_drag", 0, 400, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &State{
				Kinematics:       physics.Kinematics{Position: radial(m, tt.altitude)},
				Altitude:         tt.altitude,
				ObservedVelocity: physics.Vector3D{X: tt.speed},
			}
			if got := m.ParachuteSafe(s); got != tt.safe {
				t.Errorf("ParachuteSafe() = %v, expected %v", got, tt.safe)
			}
		})
	}
}

func TestModel_AutopilotThrottleMapping(t *testing.T) {
	m := NewModel()

	tests := []struct {
		name     string
		climb    float64
		throttle float64
	}{
		{"at_rest", 0, 0},
		{"on_bias_edge", -0.25, 0},
		{"linear", -0.6, 0.7},
		{"saturated", -1, 1},
		{"fast_descent", -20, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &State{
				Kinematics: physics.Kinematics{
					Position: radial(m, 0),
					Velocity: physics.Vector3D{Y: -tt.climb},
				},
				Fuel:      1,
				Parachute: Lost,
			}
			cmd := m.Autopilot(s)
			if math.Abs(cmd.Throttle-tt.throttle) > 1e-9 {
				t.Errorf("Autopilot() throttle = %v, expected %v", cmd.Throttle, tt.throttle)
			}
		})
	}
}

func TestModel_AutopilotDeploysWhenDecelerating(t *testing.T) {
	m := NewModel()
	s := newState(t, m, InitialConditions{Position: radial(m, 5000)})
	// moving upward against gravity: decelerating
	s.Velocity = physics.Vector3D{Y: -100}
	s.ObservedVelocity = s.Velocity

	if cmd := m.Autopilot(s); !cmd.DeployParachute {
		t.Error("Autopilot() did not request deployment while decelerating")
	}

	s.Velocity = physics.Vector3D{Y: 100}
	s.ObservedVelocity = s.Velocity
	if cmd := m.Autopilot(s); cmd.DeployParachute {
		t.Error("Autopilot() requested deployment while accelerating")
	}

	s.Landed = true
	if cmd := m.Autopilot(s); cmd != (Command{}) {
		t.Errorf("Autopilot() on terminal state = %+v, expected zero command", cmd)
	}
}

func TestModel_ControlExternal(t *testing.T) {
	m := NewModel()
	s := newState(t, m, InitialConditions{Position: radial(m, 5000), StabilizedAttitude: true})
	s.Throttle = 0.3

	m.Control(s, Command{Throttle: 0.9, DeployParachute: true}, true)
	if s.Throttle != 0.3 {
		t.Errorf("Throttle = %v, expected external value 0.3 kept", s.Throttle)
	}
	if s.Parachute != Deployed {
		t.Errorf("Parachute = %v, expected deployed", s.Parachute)
	}

	axis := physics.BodyToWorld(s.Orientation, physics.Vector3D{Z: 1})
	if !axis.ApproxEqual(s.Position.Normalize(), 1e-9) {
		t.Errorf("stabilized thrust axis = %v, expected %v", axis, s.Position.Normalize())
	}

	m.Control(s, Command{Throttle: 7}, false)
	if s.Throttle != 1 {
		t.Errorf("Throttle = %v, expected clamp to 1", s.Throttle)
	}
}

func TestModel_EngineDelay(t *testing.T) {
	m := NewModel()
	m.Constants.EngineDelay = 0.3
	s := newState(t, m, InitialConditions{Position: radial(m, 5000)})
	if len(s.Engine.History) != 3 {
		t.Fatalf("delay buffer length = %d, expected 3", len(s.Engine.History))
	}

	s.Throttle = 1
	want := []float64{0, 0, 0, 1, 1}
	for i, w := range want {
		s.Time = float64(i) * 0.1
		m.AdvanceEngine(s)
		m.AdvanceEngine(s)
		if s.Engine.Lagged != w {
			t.Errorf("tick %d: engine output = %v, expected %v", i, s.Engine.Lagged, w)
		}
	}
}

func TestModel_EngineLag(t *testing.T) {
	m := NewModel()
	m.Constants.EngineLag = 1
	s := newState(t, m, InitialConditions{Position: radial(m, 5000)})
	k := math.Exp(-0.1)

	s.Throttle = 1
	m.AdvanceEngine(s)
	if want := 1 - k; math.Abs(s.Engine.Lagged-want) > 1e-12 {
		t.Errorf("Lagged = %v, expected %v", s.Engine.Lagged, want)
	}

	s.Time = 0.1
	m.AdvanceEngine(s)
	if want := k*(1-k) + (1 - k); math.Abs(s.Engine.Lagged-want) > 1e-12 {
		t.Errorf("Lagged = %v, expected %v", s.Engine.Lagged, want)
	}

	// time moving backwards means a restarted episode
	s.Time = 0.05
	m.AdvanceEngine(s)
	if want := 1 - k; math.Abs(s.Engine.Lagged-want) > 1e-12 {
		t.Errorf("Lagged after time reversal = %v, expected %v", s.Engine.Lagged, want)
	}
}

func TestModel_EngineCutsOutWhenDry(t *testing.T) {
	m := NewModel()
	s := newState(t, m, InitialConditions{Position: radial(m, 5000)})
	s.Throttle = 1
	s.Fuel = 0
	m.AdvanceEngine(s)
	if s.Throttle != 0 || s.Engine.Lagged != 0 {
		t.Errorf("throttle = %v, output = %v with empty tank", s.Throttle, s.Engine.Lagged)
	}
}

func TestModel_ControlKeepsDryEngineOff(t *testing.T) {
	m := NewModel()
	tests := []struct {
		name     string
		fuel     float64
		landed   bool
		external bool
		want     float64
	}{
		{"autopilot with fuel", 0.5, false, false, 0.8},
		{"autopilot dry", 0, false, false, 0},
		{"external dry", 0, false, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newState(t, m, InitialConditions{Position: radial(m, 5000)})
			s.Fuel = tt.fuel
			s.Throttle = 0.6
			m.Control(s, Command{Throttle: 0.8}, tt.external)
			if s.Throttle != tt.want {
				t.Errorf("Throttle = %v, expected %v", s.Throttle, tt.want)
			}
		})
	}
}

func TestModel_Acceleration(t *testing.T) {
	m := NewModel()
	c := m.Constants
	s := newState(t, m, InitialConditions{Position: radial(m, 0), StabilizedAttitude: true})

	g := m.Acceleration(s)
	if want := c.SurfaceGravity(); math.Abs(g.Length()-want) > 1e-9 {
		t.Errorf("gravity = %v, expected %v", g.Length(), want)
	}
	if g.Dot(s.Position) >= 0 {
		t.Errorf("gravity %v does not point at the planet centre", g)
	}

	// full thrust on a full tank is 1.5 g outward, leaving 0.5 g net upward
	s.Engine.Lagged = 1
	a := m.Acceleration(s)
	if want := 0.5 * c.SurfaceGravity(); math.Abs(a.Length()-want) > 1e-9 || a.Dot(s.Position) <= 0 {
		t.Errorf("acceleration = %v, expected %v outward", a, want)
	}
	if again := m.Acceleration(s); again != a {
		t.Errorf("Acceleration() not repeatable: %v then %v", a, again)
	}
}

func TestModel_ChuteDragOnlyWhenDeployed(t *testing.T) {
	m := NewModel()
	s := newState(t, m, InitialConditions{Position: radial(m, 1000), Velocity: physics.Vector3D{Y: 50}})

	if d := m.ChuteDrag(s); d != (physics.Vector3D{}) {
		t.Errorf("ChuteDrag() packed = %v, expected zero", d)
	}
	s.Parachute = Deployed
	body := m.BodyDrag(s).Length()
	chute := m.ChuteDrag(s).Length()
	ratio := (m.Constants.DragCoefChute * m.Constants.ChuteArea()) / (m.Constants.DragCoefLander * m.Constants.BodyArea())
	if math.Abs(chute/body-ratio) > 1e-9 {
		t.Errorf("chute/body drag ratio = %v, expected %v", chute/body, ratio)
	}
}

func TestObservation_Vector(t *testing.T) {
	s := &State{
		Kinematics:  physics.Kinematics{Position: physics.Vector3D{X: 1, Y: 2, Z: 3}, Velocity: physics.Vector3D{X: 4, Y: 5, Z: 6}},
		Orientation: physics.Vector3D{X: 7, Y: 8, Z: 9},
		Time:        0.5,
		Fuel:        0.75,
		Altitude:    10,
		ClimbSpeed:  -2,
		GroundSpeed: 3,
	}
	want := []float64{0.5, 1, 2, 3, 4, 5, 6, 7, 8, 9, 0.75, 10, -2, 3}

	got := Observe(s).Vector()
	if len(got) != ObservationSize {
		t.Fatalf("len(Vector()) = %d, expected %d", len(got), ObservationSize)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Vector()[%d] = %v, expected %v", i, got[i], want[i])
		}
	}

	prefix := Observe(s).Prefix(9)
	if len(prefix) != 9 {
		t.Fatalf("len(Prefix(9)) = %d, expected 9", len(prefix))
	}
	for i, w := range want[:9] {
		if prefix[i] != w {
			t.Errorf("Prefix(9)[%d] = %v, expected %v", i, prefix[i], w)
		}
	}
	if got := Observe(s).Prefix(99); len(got) != ObservationSize {
		t.Errorf("len(Prefix(99)) = %d, expected %d", len(got), ObservationSize)
	}
}

func TestRewards_Evaluate(t *testing.T) {
	c := physics.MarsConstants()
	custom, err := RewardsFromVector([]float64{10, -50, -0.5})
	if err != nil {
		t.Fatalf("RewardsFromVector() error = %v", err)
	}

	tests := []struct {
		name    string
		rewards Rewards
		state   State
		want    float64
	}{
		{"default_step", DefaultRewards(), State{}, -1},
		{"default_landed", DefaultRewards(), State{Landed: true}, 100},
		{"default_crashed", DefaultRewards(), State{Landed: true, Crashed: true}, -100},
		{"custom_step", custom, State{}, -0.5},
		{"custom_landed", custom, State{Landed: true}, 10},
		{"custom_crashed", custom, State{Landed: true, Crashed: true}, -50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rewards.Evaluate(&tt.state, c); got != tt.want {
				t.Errorf("Evaluate() = %v, expected %v", got, tt.want)
			}
		})
	}

	if _, err := RewardsFromVector([]float64{1, 2}); !errors.Is(err, ErrInvalidRewardVector) {
		t.Errorf("RewardsFromVector() error = %v, want ErrInvalidRewardVector", err)
	}
}

func TestRewards_EnergyMode(t *testing.T) {
	c := physics.MarsConstants()
	r := DefaultRewards()
	r.Mode = RewardEnergy

	s := State{Kinematics: physics.Kinematics{
		Position: physics.Vector3D{X: 2 * c.PlanetRadius},
		Velocity: physics.Vector3D{Y: 1000},
	}}
	want := c.GM()/(2*c.PlanetRadius) - 0.5*1000*1000
	if got := r.Evaluate(&s, c); math.Abs(got-want) > 1e-6 {
		t.Errorf("Evaluate() = %v, expected %v", got, want)
	}

	s.Landed = true
	if got := r.Evaluate(&s, c); got != 100 {
		t.Errorf("Evaluate() landed in energy mode = %v, expected 100", got)
	}
}

func TestActionFromVector(t *testing.T) {
	a, err := ActionFromVector([]float64{0.4, 1, 2})
	if err != nil {
		t.Fatalf("ActionFromVector() error = %v", err)
	}
	if a.Throttle != 0.4 || len(a.Axes) != 2 {
		t.Errorf("ActionFromVector() = %+v", a)
	}
	if _, err := ActionFromVector(nil); !errors.Is(err, ErrInvalidAction) {
		t.Errorf("ActionFromVector(nil) error = %v, want ErrInvalidAction", err)
	}

	if got := FromSymmetric(-1); got != 0 {
		t.Errorf("FromSymmetric(-1) = %v, expected 0", got)
	}
	if got := FromSymmetric(0); got != 0.5 {
		t.Errorf("FromSymmetric(0) = %v, expected 0.5", got)
	}
	if got := ToSymmetric(FromSymmetric(0.3)); math.Abs(got-0.3) > 1e-12 {
		t.Errorf("ToSymmetric(FromSymmetric(0.3)) = %v", got)
	}
}

func TestThrottleSetting(t *testing.T) {
	tests := []struct {
		throttle float64
		want     int
	}{
		{0, 0}, {1, 20}, {0.5, 10}, {0.024, 0}, {0.026, 1}, {-3, 0}, {2, 20},
	}
	for _, tt := range tests {
		if got := ThrottleSetting(tt.throttle, 20); got != tt.want {
			t.Errorf("ThrottleSetting(%v) = %d, expected %d", tt.throttle, got, tt.want)
		}
	}
}

func TestModel_ReportThrottleSetting(t *testing.T) {
	m := NewModel()
	s := newState(t, m, InitialConditions{Position: radial(m, 5000)})
	s.Throttle = 0.7
	r := m.Report(s)
	if r.ThrottleSetting != 14 || r.ThrottleGranularity != 20 {
		t.Errorf("Report() throttle = %d/%d, expected 14/20", r.ThrottleSetting, r.ThrottleGranularity)
	}
}
