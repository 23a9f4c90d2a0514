package config

import (
	"os"
	"testing"
)

func withCleanEnv(t *testing.T, vars []string, set map[string]string) {
	t.Helper()
	original := make(map[string]string)
	for _, v := range vars {
		if val := os.Getenv(v); val != "" {
			original[v] = val
		}
		os.Unsetenv(v)
	}
	for k, v := range set {
		os.Setenv(k, v)
	}
	t.Cleanup(func() {
		for _, v := range vars {
			os.Unsetenv(v)
		}
		for k, v := range original {
			os.Setenv(k, v)
		}
	})
}

func TestNewSetsReasonableDefaults(t *testing.T) {
	withCleanEnv(t, []string{"WAX_PREFIX", "WAX_CELLAR", "WAX_DEBUG", "WAX_VERBOSE", "WAX_QUIET"}, nil)

	cfg, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if cfg.Prefix == "" {
		t.Error("Prefix should not be empty")
	}
	if cfg.Cellar == "" {
		t.Error("Cellar should not be empty")
	}
	if cfg.CurlRetries != 3 {
		t.Errorf("CurlRetries = %v, want 3", cfg.CurlRetries)
	}
	if !cfg.AutoUpdate {
		t.Error("AutoUpdate should be true by default")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	withCleanEnv(t, []string{"WAX_PREFIX", "WAX_DEBUG", "WAX_VERBOSE", "WAX_QUIET", "WAX_AUTO_UPDATE"}, map[string]string{
		"WAX_PREFIX":      "/test/prefix",
		"WAX_DEBUG":       "1",
		"WAX_VERBOSE":     "true",
		"WAX_QUIET":       "false",
		"WAX_AUTO_UPDATE": "0",
	})

	cfg, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if cfg.Prefix != "/test/prefix" {
		t.Errorf("Prefix = %v, want /test/prefix", cfg.Prefix)
	}
	if !cfg.Debug {
		t.Error("Debug should be true when WAX_DEBUG=1")
	}
	if !cfg.Verbose {
		t.Error("Verbose should be true when WAX_VERBOSE=true")
	}
	if cfg.Quiet {
		t.Error("Quiet should be false when WAX_QUIET=false")
	}
	if cfg.AutoUpdate {
		t.Error("AutoUpdate should be false when WAX_AUTO_UPDATE=0")
	}
}

func TestGetBoolEnv(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue bool
		expected     bool
	}{
		{"true string", "true", false, true},
		{"false string", "false", true, false},
		{"1 value", "1", false, true},
		{"0 value", "0", true, false},
		{"empty value", "", true, true},
		{"invalid value", "invalid", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "TEST_BOOL_ENV"
			if tt.envValue != "" {
				os.Setenv(key, tt.envValue)
			} else {
				os.Unsetenv(key)
			}
			defer os.Unsetenv(key)

			if result := getBoolEnv(key, tt.defaultValue); result != tt.expected {
				t.Errorf("getBoolEnv() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestGetIntEnv(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue int
		expected     int
	}{
		{"valid int", "42", 0, 42},
		{"empty value", "", 10, 10},
		{"invalid value", "invalid", 5, 5},
		{"zero value", "0", 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "TEST_INT_ENV"
			if tt.envValue != "" {
				os.Setenv(key, tt.envValue)
			} else {
				os.Unsetenv(key)
			}
			defer os.Unsetenv(key)

			if result := getIntEnv(key, tt.defaultValue); result != tt.expected {
				t.Errorf("getIntEnv() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestStatePathJoinsStateDir(t *testing.T) {
	cfg := &Config{StateDir: "/tmp/wax-state"}
	if got, want := cfg.StatePath(), "/tmp/wax-state/state.json"; got != want {
		t.Errorf("StatePath() = %q, want %q", got, want)
	}
}
