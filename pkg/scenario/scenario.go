// Package scenario holds the table of named initial-condition presets.
package scenario

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/opd-ai/go-lander/pkg/lander"
	"github.com/opd-ai/go-lander/pkg/physics"
	"github.com/opd-ai/go-lander/pkg/validation"
)

// ErrUnknownScenario is returned when a lookup finds no preset
var ErrUnknownScenario = errors.New("unknown scenario")

// Scenario is a named set of initial conditions
type Scenario struct {
	ID          string
	Index       int
	Description string
	Conditions  lander.InitialConditions
}

// Registry maps scenario identifiers to presets
type Registry struct {
	mu      sync.RWMutex
	byID    map[string]Scenario
	byIndex map[int]string
}

// NewRegistry creates a registry holding the built-in presets for the
// given planet
func NewRegistry(c physics.Constants) *Registry {
	r := &Registry{
		byID:    make(map[string]Scenario),
		byIndex: make(map[int]string),
	}
	for _, s := range Builtin(c) {
		if err := r.Register(s); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds a scenario. Identifiers and indices must be unique.
func (r *Registry) Register(s Scenario) error {
	id, err := validation.ValidateScenarioID(s.ID)
	if err != nil {
		return err
	}
	if err := validation.ValidateStepSize(s.Conditions.StepSize); err != nil {
		return fmt.Errorf("scenario %s: %w", id, err)
	}
	s.ID = id

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[id]; exists {
		return fmt.Errorf("scenario %s already registered", id)
	}
	if other, exists := r.byIndex[s.Index]; exists {
		return fmt.Errorf("scenario %s: index %d already used by %s", id, s.Index, other)
	}
	r.byID[id] = s
	r.byIndex[s.Index] = id
	return nil
}

// Lookup returns the scenario with the given identifier
func (r *Registry) Lookup(id string) (Scenario, error) {
	norm, err := validation.ValidateScenarioID(id)
	if err != nil {
		return Scenario{}, fmt.Errorf("%w: %v", ErrUnknownScenario, err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byID[norm]
	if !ok {
		return Scenario{}, fmt.Errorf("%w: %s", ErrUnknownScenario, norm)
	}
	return s, nil
}

// ByIndex returns the scenario registered under a menu index
func (r *Registry) ByIndex(index int) (Scenario, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byIndex[index]
	if !ok {
		return Scenario{}, fmt.Errorf("%w: index %d", ErrUnknownScenario, index)
	}
	return r.byID[id], nil
}

// List returns all scenarios ordered by index
func (r *Registry) List() []Scenario {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]Scenario, 0, len(r.byID))
	for _, s := range r.byID {
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Index < list[j].Index })
	return list
}

// FromVector builds initial conditions from a position₃ velocity₃
// orientation₃ vector. Everything else is taken from template.
func FromVector(v []float64, template lander.InitialConditions) (lander.InitialConditions, error) {
	if err := validation.ValidateInitialVector(v); err != nil {
		return lander.InitialConditions{}, fmt.Errorf("%w: %v", lander.ErrInvalidInitialConditions, err)
	}
	ic := template
	ic.Position = physics.Vector3D{X: v[0], Y: v[1], Z: v[2]}
	ic.Velocity = physics.Vector3D{X: v[3], Y: v[4], Z: v[5]}
	ic.Orientation = physics.Vector3D{X: v[6], Y: v[7], Z: v[8]}
	return ic, nil
}

// VectorTemplate returns the settings applied to bare initial-condition
// vectors: default step, packed parachute, stabilized attitude, autopilot on
func VectorTemplate() lander.InitialConditions {
	return lander.InitialConditions{
		StepSize:           lander.DefaultStepSize,
		Parachute:          lander.NotDeployed,
		StabilizedAttitude: true,
		Autopilot:          true,
	}
}
