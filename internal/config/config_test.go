package config

import (
	"testing"
	"time"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(lookupFrom(nil))
	if err != nil {
		t.Fatalf("FromEnv failed: %v", err)
	}
	if cfg.SimAddress() != "localhost:2000" {
		t.Errorf("SimAddress: got %s, want localhost:2000", cfg.SimAddress())
	}
	if cfg.Traffic != 10 {
		t.Errorf("Traffic: got %d, want 10", cfg.Traffic)
	}
	if cfg.SimTimeout != 30*time.Second {
		t.Errorf("SimTimeout: got %v, want 30s", cfg.SimTimeout)
	}
	if cfg.DashboardPort != "" {
		t.Errorf("dashboard should be disabled by default, got %q", cfg.DashboardPort)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(lookupFrom(map[string]string{
		"SIM_HOST":               "sim.local",
		"SIM_PORT":               "2010",
		"SIM_TIMEOUT":            "5s",
		"SIM_TRAFFIC":            "3",
		"SIMVIEW_CANVAS":         "1280x720",
		"SIMVIEW_DASHBOARD_PORT": "8181",
	}))
	if err != nil {
		t.Fatalf("FromEnv failed: %v", err)
	}
	if cfg.SimAddress() != "sim.local:2010" {
		t.Errorf("SimAddress: got %s", cfg.SimAddress())
	}
	if cfg.SimTimeout != 5*time.Second {
		t.Errorf("SimTimeout: got %v", cfg.SimTimeout)
	}
	if cfg.Traffic != 3 {
		t.Errorf("Traffic: got %d", cfg.Traffic)
	}
	if cfg.CanvasWidth != 1280 || cfg.CanvasHeight != 720 {
		t.Errorf("Canvas: got %dx%d", cfg.CanvasWidth, cfg.CanvasHeight)
	}
	if cfg.DashboardPort != "8181" {
		t.Errorf("DashboardPort: got %q", cfg.DashboardPort)
	}
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad port", map[string]string{"SIM_PORT": "abc"}},
		{"port out of range", map[string]string{"SIM_PORT": "70000"}},
		{"bad timeout", map[string]string{"SIM_TIMEOUT": "soon"}},
		{"negative traffic", map[string]string{"SIM_TRAFFIC": "-1"}},
		{"bad canvas", map[string]string{"SIMVIEW_CANVAS": "800"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := FromEnv(lookupFrom(tc.env)); err == nil {
				t.Error("expected error")
			}
		})
	}
}
