// Package health exposes liveness and readiness probes for a simulation
// process that serves metrics. Readiness aggregates the registered checks:
// running sessions, the external-policy circuit breaker and memory use.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// Status values reported by the probes
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// readinessTimeout bounds a full readiness evaluation
const readinessTimeout = 5 * time.Second

// HealthCheck defines the interface for individual health checks.
type HealthCheck interface {
	// Name returns the unique name of this health check
	Name() string
	// Check returns an error if the component is unhealthy
	Check(ctx context.Context) error
}

// HealthStatus represents the overall health status of the process.
type HealthStatus struct {
	Status string                     `json:"status"`
	Checks map[string]ComponentHealth `json:"checks"`
}

// ComponentHealth represents the health status of an individual component.
type ComponentHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthChecker manages and executes health checks.
type HealthChecker struct {
	checks map[string]HealthCheck
	mu     sync.RWMutex
}

// NewHealthChecker creates a new health checker instance.
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		checks: make(map[string]HealthCheck),
	}
}

// AddCheck registers a health check, replacing any check with the same name.
func (hc *HealthChecker) AddCheck(check HealthCheck) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks[check.Name()] = check
}

// RemoveCheck removes a health check by name.
func (hc *HealthChecker) RemoveCheck(name string) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	delete(hc.checks, name)
}

// CheckHealth runs every registered check. The overall status is healthy
// only if all checks pass.
func (hc *HealthChecker) CheckHealth(ctx context.Context) HealthStatus {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	status := HealthStatus{
		Status: StatusHealthy,
		Checks: make(map[string]ComponentHealth, len(hc.checks)),
	}

	for name, check := range hc.checks {
		if err := check.Check(ctx); err != nil {
			status.Status = StatusUnhealthy
			status.Checks[name] = ComponentHealth{Status: StatusUnhealthy, Message: err.Error()}
			continue
		}
		status.Checks[name] = ComponentHealth{Status: StatusHealthy}
	}

	return status
}

// Register mounts the liveness handler on /health and readiness on /ready.
func (hc *HealthChecker) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", hc.LivenessHandler)
	mux.HandleFunc("/ready", hc.ReadinessHandler)
}

// LivenessHandler reports 200 while the process can serve requests.
func (hc *HealthChecker) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ReadinessHandler reports 200 when every check passes and 503 otherwise.
func (hc *HealthChecker) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	health := hc.CheckHealth(ctx)

	code := http.StatusOK
	if health.Status != StatusHealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, health)
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

// SessionProbe is the part of a simulation session a health check needs
type SessionProbe interface {
	Err() error
}

// SessionHealthCheck fails once any watched session has stopped on an
// invariant violation.
type SessionHealthCheck struct {
	mu       sync.RWMutex
	sessions map[string]SessionProbe
}

// NewSessionHealthCheck creates an empty session check.
func NewSessionHealthCheck() *SessionHealthCheck {
	return &SessionHealthCheck{sessions: make(map[string]SessionProbe)}
}

// Watch adds a session under an identifier.
func (s *SessionHealthCheck) Watch(id string, session SessionProbe) {
	s.mu.Lock()
	s.sessions[id] = session
	s.mu.Unlock()
}

// Forget stops watching a session.
func (s *SessionHealthCheck) Forget(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Name returns the name of this health check.
func (s *SessionHealthCheck) Name() string {
	return "sessions"
}

// Check reports the first failed session.
func (s *SessionHealthCheck) Check(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	failed := 0
	var first error
	for id, session := range s.sessions {
		if err := session.Err(); err != nil {
			failed++
			if first == nil {
				first = fmt.Errorf("session %s: %w", id, err)
			}
		}
	}
	if failed > 1 {
		return fmt.Errorf("%d sessions failed, e.g. %w", failed, first)
	}
	return first
}

// BreakerProbe exposes the state of a circuit breaker
type BreakerProbe interface {
	State() gobreaker.State
}

// PolicyHealthCheck fails while the circuit around an external policy is open.
type PolicyHealthCheck struct {
	name    string
	breaker BreakerProbe
}

// NewPolicyHealthCheck creates a check for a guarded policy.
func NewPolicyHealthCheck(name string, breaker BreakerProbe) *PolicyHealthCheck {
	return &PolicyHealthCheck{name: name, breaker: breaker}
}

// Name returns the name of this health check.
func (p *PolicyHealthCheck) Name() string {
	return "policy_" + p.name
}

// Check verifies the circuit is not open.
func (p *PolicyHealthCheck) Check(ctx context.Context) error {
	if state := p.breaker.State(); state == gobreaker.StateOpen {
		return fmt.Errorf("policy circuit is %s, decisions come from the fallback", state)
	}
	return nil
}

// MemoryHealthCheck implements HealthCheck for memory usage monitoring.
type MemoryHealthCheck struct {
	maxMemoryMB    int64
	getMemoryUsage func() int64
}

// NewMemoryHealthCheck creates a health check for memory usage. A nil
// usage function reads the Go heap from the runtime.
func NewMemoryHealthCheck(maxMemoryMB int64, getMemoryUsage func() int64) *MemoryHealthCheck {
	if getMemoryUsage == nil {
		getMemoryUsage = heapMB
	}
	return &MemoryHealthCheck{
		maxMemoryMB:    maxMemoryMB,
		getMemoryUsage: getMemoryUsage,
	}
}

// Name returns the name of this health check.
func (m *MemoryHealthCheck) Name() string {
	return "memory"
}

// Check verifies that memory usage is within acceptable limits.
func (m *MemoryHealthCheck) Check(ctx context.Context) error {
	currentMB := m.getMemoryUsage()
	if currentMB > m.maxMemoryMB {
		return fmt.Errorf("memory usage %dMB exceeds limit %dMB", currentMB, m.maxMemoryMB)
	}
	return nil
}

func heapMB() int64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return int64(ms.HeapAlloc / 1024 / 1024)
}
