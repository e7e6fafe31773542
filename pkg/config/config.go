// pkg/config/config.go
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/opd-ai/go-lander/pkg/engine"
	"github.com/opd-ai/go-lander/pkg/event"
	"github.com/opd-ai/go-lander/pkg/lander"
	"github.com/opd-ai/go-lander/pkg/logging"
	"github.com/opd-ai/go-lander/pkg/physics"
	"github.com/opd-ai/go-lander/pkg/scenario"
	"github.com/opd-ai/go-lander/pkg/validation"
)

// Policy names accepted in the configuration
const (
	PolicyAutopilot = "autopilot"
	PolicyConstant  = "constant"
	PolicyRamp      = "ramp"
)

// SimulationConfig contains the configuration for simulation runs
type SimulationConfig struct {
	Integrator string            `json:"integrator" toml:"integrator"`
	Scenario   string            `json:"scenario" toml:"scenario"`
	MaxSteps   int               `json:"maxSteps" toml:"max_steps"`
	Policy     string            `json:"policy" toml:"policy"`
	Throttle   float64           `json:"throttle" toml:"throttle"`
	Rewards    RewardConfig      `json:"rewards" toml:"rewards"`
	Gains      lander.Gains      `json:"gains" toml:"gains"`
	Constants  physics.Constants `json:"constants" toml:"constants"`
	Scenarios  []ScenarioConfig  `json:"scenarios" toml:"scenarios"`
	Telemetry  TelemetryConfig   `json:"telemetry" toml:"telemetry"`
	Metrics    MetricsConfig     `json:"metrics" toml:"metrics"`
}

// RewardConfig contains the reward vector and mode
type RewardConfig struct {
	Mode   string    `json:"mode" toml:"mode"`
	Vector []float64 `json:"vector" toml:"vector"` // landed, crashed, step
}

// ScenarioConfig describes a custom preset given as an initial-condition vector
type ScenarioConfig struct {
	ID          string    `json:"id" toml:"id"`
	Index       int       `json:"index" toml:"index"`
	Description string    `json:"description" toml:"description"`
	Vector      []float64 `json:"vector" toml:"vector"`
	StepSize    float64   `json:"stepSize" toml:"step_size"`
	Parachute   bool      `json:"parachuteDeployed" toml:"parachute_deployed"`
	Stabilized  *bool     `json:"stabilized" toml:"stabilized"`
	TiltAngle   float64   `json:"tiltAngle" toml:"tilt_angle"`
	Autopilot   *bool     `json:"autopilot" toml:"autopilot"`
}

// TelemetryConfig contains trace output options
type TelemetryConfig struct {
	PlotPath       string `json:"plotPath" toml:"plot_path"`
	SampleInterval int    `json:"sampleInterval" toml:"sample_interval"`
	ASCII          bool   `json:"ascii" toml:"ascii"`
}

// MetricsConfig contains the optional metrics endpoint address
type MetricsConfig struct {
	Addr string `json:"addr" toml:"addr"`
}

// LoadConfig loads a configuration from a file. Files ending in .toml are
// decoded as TOML, everything else as JSON. Fields absent from the file
// keep their default values.
func LoadConfig(path string) (*SimulationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := validation.ValidateConfigSize(len(data)); err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if isTOML(path) {
		if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// SaveConfig saves a configuration to a file in the format implied by its
// extension
func SaveConfig(config *SimulationConfig, path string) error {
	var buf bytes.Buffer
	if isTOML(path) {
		if err := toml.NewEncoder(&buf).Encode(config); err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
	} else {
		data, err := json.MarshalIndent(config, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		buf.Write(data)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// DefaultConfig returns the default simulation configuration: the 10 km
// descent on Mars flown by the autopilot with Verlet integration
func DefaultConfig() *SimulationConfig {
	return &SimulationConfig{
		Integrator: physics.Verlet.String(),
		Scenario:   scenario.Descent10km,
		MaxSteps:   1000000,
		Policy:     PolicyAutopilot,
		Rewards: RewardConfig{
			Mode:   lander.RewardTerminal.String(),
			Vector: lander.DefaultRewards().Vector(),
		},
		Gains:     lander.DefaultGains(),
		Constants: physics.MarsConstants(),
		Telemetry: TelemetryConfig{
			SampleInterval: 10,
		},
	}
}

// Validate checks the configuration for values no simulation can run with
func (c *SimulationConfig) Validate() error {
	if _, err := physics.ParseScheme(c.Integrator); err != nil {
		return &ValidationError{Field: "Integrator", Value: c.Integrator, Message: err.Error()}
	}
	if _, err := validation.ValidateScenarioID(c.Scenario); err != nil {
		return &ValidationError{Field: "Scenario", Value: c.Scenario, Message: err.Error()}
	}
	if c.MaxSteps < 0 {
		return &ValidationError{Field: "MaxSteps", Value: c.MaxSteps, Message: "must not be negative"}
	}
	switch c.Policy {
	case PolicyAutopilot, PolicyConstant, PolicyRamp:
	default:
		return &ValidationError{Field: "Policy", Value: c.Policy, Message: "must be autopilot, constant or ramp"}
	}
	if c.Throttle < 0 || c.Throttle > 1 {
		return &ValidationError{Field: "Throttle", Value: c.Throttle, Message: "must be between 0 and 1"}
	}
	if _, err := lander.ParseRewardMode(c.Rewards.Mode); err != nil {
		return &ValidationError{Field: "Rewards.Mode", Value: c.Rewards.Mode, Message: err.Error()}
	}
	if err := validation.ValidateRewardVector(c.Rewards.Vector); err != nil {
		return &ValidationError{Field: "Rewards.Vector", Value: c.Rewards.Vector, Message: err.Error()}
	}
	if c.Constants.PlanetRadius <= 0 || c.Constants.UnloadedMass <= 0 || c.Constants.FuelCapacity <= 0 {
		return &ValidationError{Field: "Constants", Value: c.Constants.PlanetRadius, Message: "planet radius, unloaded mass and fuel capacity must be positive"}
	}
	if c.Constants.EngineDelay < 0 || c.Constants.EngineLag < 0 {
		return &ValidationError{Field: "Constants.Engine", Value: c.Constants.EngineDelay, Message: "engine delay and lag must not be negative"}
	}
	if c.Telemetry.SampleInterval < 0 {
		return &ValidationError{Field: "Telemetry.SampleInterval", Value: c.Telemetry.SampleInterval, Message: "must not be negative"}
	}
	for _, sc := range c.Scenarios {
		if _, err := sc.conditions(); err != nil {
			return &ValidationError{Field: "Scenarios", Value: sc.ID, Message: err.Error()}
		}
	}
	return nil
}

// Model builds the lander model described by the configuration
func (c *SimulationConfig) Model() (*lander.Model, error) {
	scheme, err := physics.ParseScheme(c.Integrator)
	if err != nil {
		return nil, err
	}
	m := lander.NewModel()
	m.Constants = c.Constants
	m.Integrator = scheme
	m.Gains = c.Gains
	return m, nil
}

// RewardRules builds the reward rules described by the configuration
func (c *SimulationConfig) RewardRules() (lander.Rewards, error) {
	r, err := lander.RewardsFromVector(c.Rewards.Vector)
	if err != nil {
		return lander.Rewards{}, err
	}
	if r.Mode, err = lander.ParseRewardMode(c.Rewards.Mode); err != nil {
		return lander.Rewards{}, err
	}
	return r, nil
}

// Registry returns the built-in presets plus the custom scenarios
func (c *SimulationConfig) Registry() (*scenario.Registry, error) {
	reg := scenario.NewRegistry(c.Constants)
	for _, sc := range c.Scenarios {
		ic, err := sc.conditions()
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", sc.ID, err)
		}
		err = reg.Register(scenario.Scenario{
			ID:          sc.ID,
			Index:       sc.Index,
			Description: sc.Description,
			Conditions:  ic,
		})
		if err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// SessionOptions assembles everything a session needs from the configuration
func (c *SimulationConfig) SessionOptions(logger *logging.Logger, bus *event.Bus) (engine.Options, error) {
	opts := engine.DefaultOptions()

	model, err := c.Model()
	if err != nil {
		return opts, err
	}
	rewards, err := c.RewardRules()
	if err != nil {
		return opts, err
	}
	reg, err := c.Registry()
	if err != nil {
		return opts, err
	}

	opts.Model = model
	opts.Rewards = rewards
	opts.Registry = reg
	opts.Logger = logger
	opts.EventBus = bus
	opts.DisableAutopilot = c.Policy != PolicyAutopilot
	opts.RecordMetrics = c.Metrics.Addr != ""
	return opts, nil
}

func (sc ScenarioConfig) conditions() (lander.InitialConditions, error) {
	template := scenario.VectorTemplate()
	if sc.StepSize != 0 {
		template.StepSize = sc.StepSize
	}
	if sc.Parachute {
		template.Parachute = lander.Deployed
	}
	if sc.Stabilized != nil {
		template.StabilizedAttitude = *sc.Stabilized
	}
	if sc.Autopilot != nil {
		template.Autopilot = *sc.Autopilot
	}
	template.StabilizedAngle = sc.TiltAngle

	if err := validation.ValidateStepSize(template.StepSize); err != nil {
		return lander.InitialConditions{}, err
	}
	return scenario.FromVector(sc.Vector, template)
}
