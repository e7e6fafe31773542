// pkg/config/env_config.go
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/opd-ai/go-lander/pkg/agent"
)

// Environment variable names
const (
	EnvIntegrator        = "LANDER_INTEGRATOR"
	EnvScenario          = "LANDER_SCENARIO"
	EnvMaxSteps          = "LANDER_MAX_STEPS"
	EnvRewardMode        = "LANDER_REWARD_MODE"
	EnvMetricsAddr       = "LANDER_METRICS_ADDR"
	EnvEngineDelay       = "LANDER_ENGINE_DELAY"
	EnvEngineLag         = "LANDER_ENGINE_LAG"
	EnvWorkers           = "LANDER_WORKERS"
	EnvReadTimeout       = "LANDER_READ_TIMEOUT"
	EnvWriteTimeout      = "LANDER_WRITE_TIMEOUT"
	EnvShutdownTimeout   = "LANDER_SHUTDOWN_TIMEOUT"
	EnvBreakerMaxReqs    = "LANDER_BREAKER_MAX_REQUESTS"
	EnvBreakerInterval   = "LANDER_BREAKER_INTERVAL"
	EnvBreakerTimeout    = "LANDER_BREAKER_TIMEOUT"
	EnvBreakerMaxFails   = "LANDER_BREAKER_MAX_FAILS"
	EnvDecisionTimeout   = "LANDER_DECISION_TIMEOUT"
	EnvTelemetryInterval = "LANDER_SAMPLE_INTERVAL"
	EnvASCII             = "LANDER_ASCII"
)

// EnvironmentConfig holds process-level settings read from the environment
type EnvironmentConfig struct {
	MetricsAddr     string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	Workers         int

	// Circuit Breaker Configuration
	CircuitBreakerMaxRequests         uint32
	CircuitBreakerInterval            time.Duration
	CircuitBreakerTimeout             time.Duration
	CircuitBreakerMaxConsecutiveFails uint32
	DecisionTimeout                   time.Duration
}

// ValidationError reports an invalid configuration value
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s (%v): %s", e.Field, e.Value, e.Message)
}

// LoadConfigFromEnv reads the environment configuration, falling back to
// defaults for unset variables
func LoadConfigFromEnv() (*EnvironmentConfig, error) {
	config := &EnvironmentConfig{
		MetricsAddr:     getEnvOrDefault(EnvMetricsAddr, ""),
		ReadTimeout:     getEnvAsDurationOrDefault(EnvReadTimeout, 10*time.Second),
		WriteTimeout:    getEnvAsDurationOrDefault(EnvWriteTimeout, 10*time.Second),
		ShutdownTimeout: getEnvAsDurationOrDefault(EnvShutdownTimeout, 5*time.Second),
		Workers:         getEnvAsIntOrDefault(EnvWorkers, 4),

		CircuitBreakerMaxRequests:         uint32(getEnvAsIntOrDefault(EnvBreakerMaxReqs, 3)),
		CircuitBreakerInterval:            getEnvAsDurationOrDefault(EnvBreakerInterval, 60*time.Second),
		CircuitBreakerTimeout:             getEnvAsDurationOrDefault(EnvBreakerTimeout, 30*time.Second),
		CircuitBreakerMaxConsecutiveFails: uint32(getEnvAsIntOrDefault(EnvBreakerMaxFails, 5)),
		DecisionTimeout:                   getEnvAsDurationOrDefault(EnvDecisionTimeout, time.Second),
	}

	if err := validateEnvironmentConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

// BreakerSettings converts the circuit breaker fields for agent.NewGuardedPolicy
func (c *EnvironmentConfig) BreakerSettings() agent.BreakerSettings {
	return agent.BreakerSettings{
		MaxRequests:         c.CircuitBreakerMaxRequests,
		Interval:            c.CircuitBreakerInterval,
		Timeout:             c.CircuitBreakerTimeout,
		MaxConsecutiveFails: c.CircuitBreakerMaxConsecutiveFails,
		DecisionTimeout:     c.DecisionTimeout,
	}
}

func validateEnvironmentConfig(config *EnvironmentConfig) error {
	if config.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(config.MetricsAddr); err != nil {
			return &ValidationError{Field: "MetricsAddr", Value: config.MetricsAddr, Message: "must be host:port"}
		}
	}
	if config.ReadTimeout < time.Second || config.ReadTimeout > time.Minute {
		return &ValidationError{Field: "ReadTimeout", Value: config.ReadTimeout, Message: "must be between 1s and 1m"}
	}
	if config.WriteTimeout < time.Second || config.WriteTimeout > time.Minute {
		return &ValidationError{Field: "WriteTimeout", Value: config.WriteTimeout, Message: "must be between 1s and 1m"}
	}
	if config.ShutdownTimeout < time.Second || config.ShutdownTimeout > 5*time.Minute {
		return &ValidationError{Field: "ShutdownTimeout", Value: config.ShutdownTimeout, Message: "must be between 1s and 5m"}
	}
	if config.Workers < 1 || config.Workers > 256 {
		return &ValidationError{Field: "Workers", Value: config.Workers, Message: "must be between 1 and 256"}
	}
	if config.CircuitBreakerMaxRequests < 1 {
		return &ValidationError{Field: "CircuitBreakerMaxRequests", Value: config.CircuitBreakerMaxRequests, Message: "must be at least 1"}
	}
	if config.CircuitBreakerInterval < time.Second {
		return &ValidationError{Field: "CircuitBreakerInterval", Value: config.CircuitBreakerInterval, Message: "must be at least 1s"}
	}
	if config.CircuitBreakerTimeout < time.Second {
		return &ValidationError{Field: "CircuitBreakerTimeout", Value: config.CircuitBreakerTimeout, Message: "must be at least 1s"}
	}
	if config.CircuitBreakerMaxConsecutiveFails < 1 {
		return &ValidationError{Field: "CircuitBreakerMaxConsecutiveFails", Value: config.CircuitBreakerMaxConsecutiveFails, Message: "must be at least 1"}
	}
	if config.DecisionTimeout < 0 || config.DecisionTimeout > time.Minute {
		return &ValidationError{Field: "DecisionTimeout", Value: config.DecisionTimeout, Message: "must be between 0 and 1m"}
	}
	return nil
}

// ApplyEnvironmentOverrides overwrites simulation settings with any
// LANDER_* variables present in the environment
func ApplyEnvironmentOverrides(config *SimulationConfig) error {
	if v, ok := os.LookupEnv(EnvIntegrator); ok {
		config.Integrator = v
	}
	if v, ok := os.LookupEnv(EnvScenario); ok {
		config.Scenario = v
	}
	if v, ok := os.LookupEnv(EnvRewardMode); ok {
		config.Rewards.Mode = v
	}
	if v, ok := os.LookupEnv(EnvMetricsAddr); ok {
		config.Metrics.Addr = v
	}
	config.MaxSteps = getEnvAsIntOrDefault(EnvMaxSteps, config.MaxSteps)
	config.Telemetry.SampleInterval = getEnvAsIntOrDefault(EnvTelemetryInterval, config.Telemetry.SampleInterval)
	config.Telemetry.ASCII = getEnvAsBoolOrDefault(EnvASCII, config.Telemetry.ASCII)
	config.Constants.EngineDelay = getEnvAsFloatOrDefault(EnvEngineDelay, config.Constants.EngineDelay)
	config.Constants.EngineLag = getEnvAsFloatOrDefault(EnvEngineLag, config.Constants.EngineLag)

	return config.Validate()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
