// Package telemetry records per-step traces of an episode and renders
// them as terminal charts, PNG charts and text reports.
package telemetry

import (
	"sync"

	"github.com/opd-ai/go-lander/pkg/event"
	"github.com/opd-ai/go-lander/pkg/lander"
)

// Sample is one recorded point of a trace
type Sample struct {
	Time        float64
	Altitude    float64
	DescentRate float64
	Fuel        float64
	Throttle    float64
}

// Mark is a discrete event placed on the time axis
type Mark struct {
	Time float64
	Type event.Type
}

// Trace is the recorded history of one episode
type Trace struct {
	Label   string
	Samples []Sample
	Marks   []Mark
}

// markedEvents are the event types a recorder places on its trace
var markedEvents = []event.Type{
	event.ParachuteDeployed,
	event.ParachuteLost,
	event.FuelExhausted,
	event.Landed,
	event.Crashed,
}

// clocked is implemented by events that carry the simulation clock
type clocked interface {
	Clock() (float64, int)
}

// Recorder samples an episode every interval steps. The most recent step
// is always kept so the trace ends at the final state.
type Recorder struct {
	mu       sync.Mutex
	label    string
	interval int
	samples  []Sample
	marks    []Mark
	last     *Sample
	src      StateSource

	bus  *event.Bus
	subs []*event.Subscription
}

// NewRecorder creates a recorder. An interval below 1 records every step.
func NewRecorder(label string, interval int) *Recorder {
	if interval < 1 {
		interval = 1
	}
	return &Recorder{label: label, interval: interval}
}

// StateSource exposes the state a session actually applied
type StateSource interface {
	State() lander.State
}

// Follow makes Observe sample src after each transition, so the trace
// shows the throttle the engine applied rather than the one commanded
func (r *Recorder) Follow(src StateSource) {
	r.mu.Lock()
	r.src = src
	r.mu.Unlock()
}

// Observe records a transition; its signature matches agent.Observer.
// Without a followed source the throttle is the clamped command.
func (r *Recorder) Observe(step int, obs lander.Observation, action lander.Action, _ float64) {
	r.mu.Lock()
	src := r.src
	r.mu.Unlock()
	if src != nil {
		r.RecordState(src.State())
		return
	}
	r.record(step, Sample{
		Time:        obs.Time,
		Altitude:    obs.Altitude,
		DescentRate: -obs.ClimbSpeed,
		Fuel:        obs.Fuel,
		Throttle:    lander.ClampThrottle(action.Throttle),
	})
}

// RecordState records a state directly, for sessions flown by the
// built-in autopilot
func (r *Recorder) RecordState(st lander.State) {
	r.record(st.Steps, Sample{
		Time:        st.Time,
		Altitude:    st.Altitude,
		DescentRate: -st.ClimbSpeed,
		Fuel:        st.Fuel,
		Throttle:    st.Throttle,
	})
}

func (r *Recorder) record(step int, s Sample) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if step%r.interval == 0 {
		r.samples = append(r.samples, s)
		r.last = nil
		return
	}
	r.last = &s
}

// Attach subscribes the recorder to discrete events on bus
func (r *Recorder) Attach(bus *event.Bus) {
	r.Detach()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.bus = bus
	for _, t := range markedEvents {
		r.subs = append(r.subs, bus.Subscribe(t, r.mark))
	}
}

// Detach removes the recorder's event subscriptions
func (r *Recorder) Detach() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bus == nil {
		return
	}
	for _, sub := range r.subs {
		r.bus.Unsubscribe(sub)
	}
	r.subs = nil
	r.bus = nil
}

func (r *Recorder) mark(e event.Event) {
	m := Mark{Type: e.GetType()}
	if c, ok := e.(clocked); ok {
		m.Time, _ = c.Clock()
	}
	r.mu.Lock()
	r.marks = append(r.marks, m)
	r.mu.Unlock()
}

// Trace returns a copy of everything recorded so far
func (r *Recorder) Trace() Trace {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := Trace{
		Label:   r.label,
		Samples: make([]Sample, len(r.samples), len(r.samples)+1),
		Marks:   append([]Mark(nil), r.marks...),
	}
	copy(t.Samples, r.samples)
	if r.last != nil {
		t.Samples = append(t.Samples, *r.last)
	}
	return t
}

// Reset discards all samples and marks
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.samples = nil
	r.marks = nil
	r.last = nil
	r.mu.Unlock()
}

// Columns returns the trace as parallel time, altitude, descent rate, fuel
// and throttle series
func (t Trace) Columns() (times, altitude, descent, fuel, throttle []float64) {
	n := len(t.Samples)
	times = make([]float64, n)
	altitude = make([]float64, n)
	descent = make([]float64, n)
	fuel = make([]float64, n)
	throttle = make([]float64, n)
	for i, s := range t.Samples {
		times[i] = s.Time
		altitude[i] = s.Altitude
		descent[i] = s.DescentRate
		fuel[i] = s.Fuel
		throttle[i] = s.Throttle
	}
	return
}
