// Package config provides configuration helpers for go-simview commands.
//
// Values come from the process environment, optionally seeded from a .env file
// in the working directory.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults matching the stock simulator setup.
const (
	DefaultSimHost       = "localhost"
	DefaultSimPort       = 2000
	DefaultSimTimeout    = 30 * time.Second
	DefaultTraffic       = 10
	DefaultWindowName    = "Go Simulator Client"
	DefaultCanvasWidth   = 800
	DefaultCanvasHeight  = 600
	DefaultLogLevel      = "info"
	DefaultFixedDeltaSec = 1.0 / 30.0
)

// Config holds everything cmd/simview needs at startup.
type Config struct {
	SimHost    string
	SimPort    int
	SimTimeout time.Duration
	Traffic    int
	FixedDelta time.Duration

	WindowName   string
	CanvasWidth  int
	CanvasHeight int

	// DashboardPort enables the web dashboard when non-empty.
	DashboardPort string

	LogLevel string
}

// DefaultConfig returns the configuration used when no variables are set.
func DefaultConfig() Config {
	return Config{
		SimHost:      DefaultSimHost,
		SimPort:      DefaultSimPort,
		SimTimeout:   DefaultSimTimeout,
		Traffic:      DefaultTraffic,
		FixedDelta:   time.Duration(DefaultFixedDeltaSec * float64(time.Second)),
		WindowName:   DefaultWindowName,
		CanvasWidth:  DefaultCanvasWidth,
		CanvasHeight: DefaultCanvasHeight,
		LogLevel:     DefaultLogLevel,
	}
}

// Load reads an optional .env file and then the environment.
// A missing .env file is not an error.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from a lookup function such as os.LookupEnv.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	cfg := DefaultConfig()

	if v, ok := lookup("SIM_HOST"); ok && v != "" {
		cfg.SimHost = v
	}
	if v, ok := lookup("SIM_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("SIM_PORT: %w", err)
		}
		cfg.SimPort = port
	}
	if v, ok := lookup("SIM_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("SIM_TIMEOUT: %w", err)
		}
		cfg.SimTimeout = d
	}
	if v, ok := lookup("SIM_TRAFFIC"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("SIM_TRAFFIC: %w", err)
		}
		cfg.Traffic = n
	}
	if v, ok := lookup("SIM_FIXED_DELTA"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("SIM_FIXED_DELTA: %w", err)
		}
		cfg.FixedDelta = d
	}
	if v, ok := lookup("SIMVIEW_WINDOW"); ok && v != "" {
		cfg.WindowName = v
	}
	if v, ok := lookup("SIMVIEW_CANVAS"); ok && v != "" {
		w, h, err := parseSize(v)
		if err != nil {
			return cfg, fmt.Errorf("SIMVIEW_CANVAS: %w", err)
		}
		cfg.CanvasWidth, cfg.CanvasHeight = w, h
	}
	if v, ok := lookup("SIMVIEW_DASHBOARD_PORT"); ok {
		cfg.DashboardPort = v
	}
	if v, ok := lookup("SIMVIEW_LOG_LEVEL"); ok && v != "" {
		cfg.LogLevel = v
	}

	return cfg, cfg.Validate()
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.SimHost == "" {
		return fmt.Errorf("simulator host is required")
	}
	if c.SimPort <= 0 || c.SimPort > 65535 {
		return fmt.Errorf("simulator port out of range: %d", c.SimPort)
	}
	if c.SimTimeout <= 0 {
		return fmt.Errorf("simulator timeout must be positive, got %v", c.SimTimeout)
	}
	if c.Traffic < 0 {
		return fmt.Errorf("traffic count must not be negative, got %d", c.Traffic)
	}
	if c.FixedDelta <= 0 {
		return fmt.Errorf("fixed delta must be positive, got %v", c.FixedDelta)
	}
	if c.CanvasWidth <= 0 || c.CanvasHeight <= 0 {
		return fmt.Errorf("canvas must be positive, got %dx%d", c.CanvasWidth, c.CanvasHeight)
	}
	return nil
}

// SimAddress returns host:port of the simulator.
func (c Config) SimAddress() string {
	return fmt.Sprintf("%s:%d", c.SimHost, c.SimPort)
}

func parseSize(s string) (int, int, error) {
	parts := strings.SplitN(strings.ToLower(s), "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected WIDTHxHEIGHT, got %q", s)
	}
	w, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, err
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, err
	}
	return w, h, nil
}
