// pkg/event/event.go
package event

import (
	"sync"
)

// Type represents the type of event
type Type string

// Simulation event types
const (
	EpisodeReset      Type = "episode_reset"
	EpisodeEnded      Type = "episode_ended"
	Landed            Type = "landed"
	Crashed           Type = "crashed"
	ParachuteDeployed Type = "parachute_deployed"
	ParachuteLost     Type = "parachute_lost"
	FuelExhausted     Type = "fuel_exhausted"
	InvariantViolated Type = "invariant_violated"
)

// Event is the base interface for all events
type Event interface {
	GetType() Type
	GetSource() interface{}
}

// BaseEvent provides common functionality for all events
type BaseEvent struct {
	EventType Type
	Source    interface{}
}

// GetType returns the event type
func (e *BaseEvent) GetType() Type {
	return e.EventType
}

// GetSource returns the event source
func (e *BaseEvent) GetSource() interface{} {
	return e.Source
}

// Handler is a function that handles events
type Handler func(Event)

// Subscription identifies a registered handler
type Subscription struct {
	ID        uint64
	EventType Type
}

type registration struct {
	id      uint64
	handler Handler
}

// Bus manages event subscriptions and dispatching
type Bus struct {
	handlers map[Type][]registration
	nextID   uint64
	mu       sync.RWMutex
}

// NewEventBus creates a new event bus
func NewEventBus() *Bus {
	return &Bus{
		handlers: make(map[Type][]registration),
		nextID:   1,
	}
}

// Subscribe registers a handler for a specific event type
func (b *Bus) Subscribe(eventType Type, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.handlers[eventType] = append(b.handlers[eventType], registration{id: id, handler: handler})
	return &Subscription{ID: id, EventType: eventType}
}

// Unsubscribe removes a previously registered handler
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	regs := b.handlers[sub.EventType]
	for i, r := range regs {
		if r.id == sub.ID {
			b.handlers[sub.EventType] = append(regs[:i:i], regs[i+1:]...)
			return
		}
	}
}

// Publish sends an event to all subscribed handlers
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	regs := append([]registration(nil), b.handlers[event.GetType()]...)
	b.mu.RUnlock()

	for _, r := range regs {
		r.handler(event)
	}
}

// Specific event implementations

// EpisodeEvent carries the session identifier and the simulation clock
type EpisodeEvent struct {
	BaseEvent
	SessionID string
	Scenario  string
	Time      float64
	Step      int
}

// NewEpisodeEvent creates a new episode event
func NewEpisodeEvent(eventType Type, source interface{}, sessionID, scenario string, time float64, step int) *EpisodeEvent {
	return &EpisodeEvent{
		BaseEvent: BaseEvent{
			EventType: eventType,
			Source:    source,
		},
		SessionID: sessionID,
		Scenario:  scenario,
		Time:      time,
		Step:      step,
	}
}

// Clock returns the simulation time and step at which the event occurred
func (e *EpisodeEvent) Clock() (float64, int) {
	return e.Time, e.Step
}

// TouchdownEvent describes the moment the lander reached the surface
type TouchdownEvent struct {
	EpisodeEvent
	DescentRate float64
	GroundSpeed float64
	Fuel        float64
}

// NewTouchdownEvent creates a landed or crashed event
func NewTouchdownEvent(eventType Type, source interface{}, sessionID, scenario string, time float64, step int, descentRate, groundSpeed, fuel float64) *TouchdownEvent {
	return &TouchdownEvent{
		EpisodeEvent: *NewEpisodeEvent(eventType, source, sessionID, scenario, time, step),
		DescentRate:  descentRate,
		GroundSpeed:  groundSpeed,
		Fuel:         fuel,
	}
}

// EpisodeEndedEvent reports the outcome and total reward of an episode
type EpisodeEndedEvent struct {
	EpisodeEvent
	Outcome string
	Reward  float64
}

// NewEpisodeEndedEvent creates an episode ended event
func NewEpisodeEndedEvent(source interface{}, sessionID, scenario string, time float64, step int, outcome string, reward float64) *EpisodeEndedEvent {
	return &EpisodeEndedEvent{
		EpisodeEvent: *NewEpisodeEvent(EpisodeEnded, source, sessionID, scenario, time, step),
		Outcome:      outcome,
		Reward:       reward,
	}
}
