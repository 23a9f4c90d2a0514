// Package config resolves wax's runtime paths and behavior flags: defaults
// computed from OS/arch, then overridden by environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
)

// InstallMode distinguishes a system-wide prefix from a per-user one; wax
// auto-detects based on write access to the default prefix unless
// overridden.
type InstallMode int

const (
	ModeGlobal InstallMode = iota
	ModeUser
)

// Config holds every path and behavior flag the engine consults.
type Config struct {
	// Core paths
	Prefix       string
	Cellar       string
	Caskroom     string
	Cache        string
	StateDir     string
	Logs         string
	Temp         string
	LockfilePath string

	Mode InstallMode

	// Behavior flags
	Debug            bool
	Verbose          bool
	Quiet            bool
	AutoUpdate       bool
	ForceBottle      bool
	BuildFromSource  bool
	KeepTmp          bool
	Force            bool
	DryRun           bool
	InstallCleanup   bool
	NoInstallUpgrade bool

	// Network settings
	CurlRetries        int
	CurlConnectTimeout int

	// Index domain, overridable for self-hosted mirrors or testing.
	APIDomain string

	CI bool
}

// New creates a Config with defaults computed from the host, then applies
// WAX_*/CI environment overrides.
func New() (*Config, error) {
	cfg := &Config{
		AutoUpdate:         true,
		InstallCleanup:     true,
		CurlRetries:        3,
		CurlConnectTimeout: 5,
		APIDomain:          "https://formulae.brew.sh/api",
	}

	if err := cfg.setPaths(); err != nil {
		return nil, fmt.Errorf("failed to set paths: %w", err)
	}
	cfg.loadFromEnv()
	cfg.Mode = detectMode(cfg.Prefix)

	return cfg, nil
}

func (c *Config) setPaths() error {
	if c.Prefix == "" {
		if prefix := os.Getenv("WAX_PREFIX"); prefix != "" {
			c.Prefix = prefix
		} else {
			c.Prefix = defaultPrefix()
		}
	}

	if c.Cellar == "" {
		if cellar := os.Getenv("WAX_CELLAR"); cellar != "" {
			c.Cellar = cellar
		} else {
			c.Cellar = filepath.Join(c.Prefix, "Cellar")
		}
	}

	if c.Caskroom == "" {
		if caskroom := os.Getenv("WAX_CASKROOM"); caskroom != "" {
			c.Caskroom = caskroom
		} else {
			c.Caskroom = filepath.Join(c.Prefix, "Caskroom")
		}
	}

	cacheHome, err := xdgCacheHome()
	if err != nil {
		return err
	}
	if c.Cache == "" {
		if cache := os.Getenv("WAX_CACHE"); cache != "" {
			c.Cache = cache
		} else {
			c.Cache = filepath.Join(cacheHome, "wax")
		}
	}

	dataHome, err := xdgDataHome()
	if err != nil {
		return err
	}
	if c.StateDir == "" {
		if dir := os.Getenv("WAX_STATE_DIR"); dir != "" {
			c.StateDir = dir
		} else {
			c.StateDir = filepath.Join(dataHome, "wax")
		}
	}

	if c.Logs == "" {
		if logs := os.Getenv("WAX_LOGS"); logs != "" {
			c.Logs = logs
		} else {
			c.Logs = filepath.Join(c.StateDir, "logs")
		}
	}

	if c.Temp == "" {
		if temp := os.Getenv("WAX_TEMP"); temp != "" {
			c.Temp = temp
		} else {
			c.Temp = os.TempDir()
		}
	}

	if c.LockfilePath == "" {
		if lock := os.Getenv("WAX_LOCKFILE"); lock != "" {
			c.LockfilePath = lock
		} else {
			c.LockfilePath = "wax.lock"
		}
	}

	return nil
}

func defaultPrefix() string {
	switch {
	case runtime.GOOS == "darwin" && runtime.GOARCH == "amd64":
		return "/usr/local"
	case runtime.GOOS == "darwin":
		return "/opt/wax"
	default:
		return "/home/linuxwax/.linuxwax"
	}
}

func xdgCacheHome() (string, error) {
	if v := os.Getenv("XDG_CACHE_HOME"); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".cache"), nil
}

func xdgDataHome() (string, error) {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share"), nil
}

// detectMode picks ModeUser when the prefix exists and isn't writable by
// the current process, ModeGlobal otherwise (including when the prefix
// doesn't exist yet — installing will create it). This only stats the
// path; it never creates or removes anything.
func detectMode(prefix string) InstallMode {
	if os.Geteuid() == 0 {
		return ModeGlobal
	}
	if info, err := os.Stat(prefix); err == nil {
		if info.Mode().Perm()&0o200 == 0 {
			return ModeUser
		}
	}
	return ModeGlobal
}

func (c *Config) loadFromEnv() {
	c.Debug = getBoolEnv("WAX_DEBUG", c.Debug)
	c.Verbose = getBoolEnv("WAX_VERBOSE", c.Verbose)
	c.Quiet = getBoolEnv("WAX_QUIET", c.Quiet)
	c.AutoUpdate = getBoolEnv("WAX_AUTO_UPDATE", c.AutoUpdate)
	c.ForceBottle = getBoolEnv("WAX_FORCE_BOTTLE", c.ForceBottle)
	c.BuildFromSource = getBoolEnv("WAX_BUILD_FROM_SOURCE", c.BuildFromSource)
	c.KeepTmp = getBoolEnv("WAX_KEEP_TMP", c.KeepTmp)
	c.Force = getBoolEnv("WAX_FORCE", c.Force)
	c.InstallCleanup = getBoolEnv("WAX_INSTALL_CLEANUP", c.InstallCleanup)
	c.NoInstallUpgrade = getBoolEnv("WAX_NO_INSTALL_UPGRADE", c.NoInstallUpgrade)

	c.CurlRetries = getIntEnv("WAX_CURL_RETRIES", c.CurlRetries)
	c.CurlConnectTimeout = getIntEnv("WAX_CURL_CONNECT_TIMEOUT", c.CurlConnectTimeout)

	if domain := os.Getenv("WAX_API_DOMAIN"); domain != "" {
		c.APIDomain = domain
	}

	c.CI = getBoolEnv("CI", c.CI)
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
		if value == "1" {
			return true
		} else if value == "0" {
			return false
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// EnsureDirectories creates every directory the engine writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Cellar, c.Caskroom, c.Cache, c.StateDir, c.Logs, c.Temp}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// StatePath returns the Install State document's path under StateDir.
func (c *Config) StatePath() string {
	return filepath.Join(c.StateDir, "state.json")
}

func (m InstallMode) String() string {
	if m == ModeUser {
		return "user"
	}
	return "global"
}
