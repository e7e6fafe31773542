// cmd/landersim/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/opd-ai/go-lander/pkg/config"
	"github.com/opd-ai/go-lander/pkg/health"
	"github.com/opd-ai/go-lander/pkg/logging"
	"github.com/opd-ai/go-lander/pkg/metrics"
)

// maxMemoryMB is the heap limit of the readiness probe
const maxMemoryMB = 1024

type options struct {
	configPath    string
	createDefault bool
	scenario      string
	preset        int
	initVector    string
	policy        string
	throttle      float64
	compare       string
	integrator    string
	batch         bool
	list          bool
	plotPath      string
	ascii         bool
	metricsAddr   string
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.configPath, "config", "lander.toml", "Path to configuration file (.toml or .json)")
	flag.BoolVar(&o.createDefault, "default", false, "Create default configuration file and exit")
	flag.StringVar(&o.scenario, "scenario", "", "Scenario identifier")
	flag.IntVar(&o.preset, "preset", -1, "Scenario menu index (overrides -scenario)")
	flag.StringVar(&o.initVector, "init", "", "Initial conditions as 9 comma-separated values: position, velocity, orientation")
	flag.StringVar(&o.policy, "policy", "", "Policy: autopilot, constant or ramp")
	flag.Float64Var(&o.throttle, "throttle", -1, "Throttle of the constant policy")
	flag.StringVar(&o.compare, "compare", "", "Second policy to fly the same scenario with")
	flag.StringVar(&o.integrator, "integrator", "", "Integration scheme: verlet or euler")
	flag.BoolVar(&o.batch, "batch", false, "Fly every registered scenario concurrently")
	flag.BoolVar(&o.list, "list", false, "List registered scenarios and exit")
	flag.StringVar(&o.plotPath, "plot", "", "Write a PNG chart of the run(s) to this path")
	flag.BoolVar(&o.ascii, "ascii", false, "Print an ASCII altitude chart")
	flag.StringVar(&o.metricsAddr, "metrics-addr", "", "Serve /metrics, /health and /ready on this address")
	flag.Parse()
	return o
}

func main() {
	logger := logging.NewLogger()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := parseFlags()

	if opts.createDefault {
		if err := config.SaveConfig(config.DefaultConfig(), opts.configPath); err != nil {
			logger.Error(ctx, "Failed to create default configuration", err, "config_path", opts.configPath)
			os.Exit(1)
		}
		logger.Info(ctx, "Created default configuration file", "config_path", opts.configPath)
		return
	}

	cfg, err := loadConfig(ctx, logger, opts)
	if err != nil {
		logger.Error(ctx, "Failed to load configuration", err, "config_path", opts.configPath)
		os.Exit(1)
	}

	envConfig, err := config.LoadConfigFromEnv()
	if err != nil {
		logger.Error(ctx, "Invalid environment configuration", err)
		os.Exit(1)
	}
	if cfg.Metrics.Addr != "" {
		envConfig.MetricsAddr = cfg.Metrics.Addr
	}

	sim, err := newSimulator(cfg, envConfig, logger)
	if err != nil {
		logger.Error(ctx, "Failed to set up simulation", err)
		os.Exit(1)
	}

	if opts.list {
		sim.listScenarios(os.Stdout)
		return
	}

	var server *http.Server
	if envConfig.MetricsAddr != "" {
		server = serveMetrics(ctx, logger, envConfig, sim.health)
	}

	if opts.batch {
		err = sim.runBatch(ctx, os.Stdout)
	} else {
		err = sim.runSingle(ctx, os.Stdout, opts)
	}

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), envConfig.ShutdownTimeout)
		defer cancel()
		if serr := server.Shutdown(shutdownCtx); serr != nil {
			logger.Error(ctx, "Metrics server shutdown failed", serr)
		}
	}
	if err != nil {
		logger.Error(ctx, "Simulation failed", err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration file if present, then applies
// environment variables and command-line flags in that order
func loadConfig(ctx context.Context, logger *logging.Logger, opts options) (*config.SimulationConfig, error) {
	cfg := config.DefaultConfig()
	if _, err := os.Stat(opts.configPath); err == nil {
		if cfg, err = config.LoadConfig(opts.configPath); err != nil {
			return nil, logging.WrapError(err, "load %s", opts.configPath)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		logger.Info(ctx, "Configuration file not found, using default configuration", "config_path", opts.configPath)
	} else {
		return nil, logging.WrapError(err, "stat %s", opts.configPath)
	}

	if err := config.ApplyEnvironmentOverrides(cfg); err != nil {
		return nil, logging.WrapError(err, "environment overrides")
	}

	if opts.scenario != "" {
		cfg.Scenario = opts.scenario
	}
	if opts.policy != "" {
		cfg.Policy = opts.policy
	}
	if opts.throttle >= 0 {
		cfg.Throttle = opts.throttle
	}
	if opts.integrator != "" {
		cfg.Integrator = opts.integrator
	}
	if opts.plotPath != "" {
		cfg.Telemetry.PlotPath = opts.plotPath
	}
	if opts.ascii {
		cfg.Telemetry.ASCII = true
	}
	if opts.metricsAddr != "" {
		cfg.Metrics.Addr = opts.metricsAddr
	}
	return cfg, cfg.Validate()
}

func serveMetrics(ctx context.Context, logger *logging.Logger, envConfig *config.EnvironmentConfig, hc *health.HealthChecker) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	hc.Register(mux)

	server := &http.Server{
		Addr:              envConfig.MetricsAddr,
		Handler:           metrics.Middleware(mux),
		ReadTimeout:       envConfig.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      envConfig.WriteTimeout,
	}

	go func() {
		logger.Info(ctx, "Starting metrics server", "address", envConfig.MetricsAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "Metrics server failed", err)
		}
	}()
	return server
}

// parseVector parses comma-separated floats
func parseVector(s string) ([]float64, error) {
	fields := strings.Split(s, ",")
	v := make([]float64, 0, len(fields))
	for _, f := range fields {
		x, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q: %w", f, err)
		}
		v = append(v, x)
	}
	return v, nil
}
