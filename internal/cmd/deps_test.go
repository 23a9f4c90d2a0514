package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/wax-pm/wax/internal/cache"
	"github.com/wax-pm/wax/internal/config"
	"github.com/wax-pm/wax/internal/formula"
	"github.com/wax-pm/wax/internal/logger"
	"github.com/wax-pm/wax/internal/model"
	"github.com/wax-pm/wax/internal/state"
)

func TestNewDepsCmd(t *testing.T) {
	logger.Init(false, false, true)
	cfg := &config.Config{}

	cmd := NewDepsCmd(cfg)

	if cmd.Use != "deps [OPTIONS] FORMULA..." {
		t.Errorf("Expected Use to be 'deps [OPTIONS] FORMULA...', got %s", cmd.Use)
	}

	if cmd.Short != "Show dependencies for formulae" {
		t.Errorf("Expected Short to be 'Show dependencies for formulae', got %s", cmd.Short)
	}

	flags := []string{"installed", "missing", "dependents", "include-optional", "include-build", "include-test", "tree", "top-level", "annotate"}
	for _, flag := range flags {
		if cmd.Flags().Lookup(flag) == nil {
			t.Errorf("Expected flag %s to exist", flag)
		}
	}
}

func depsTestConfig(t *testing.T, formulae []*formula.Formula) *config.Config {
	t.Helper()
	tempDir := t.TempDir()
	cfg := &config.Config{
		Cache:    filepath.Join(tempDir, "cache"),
		StateDir: filepath.Join(tempDir, "state"),
	}
	if err := os.MkdirAll(cfg.StateDir, 0755); err != nil {
		t.Fatalf("failed to create state dir: %v", err)
	}

	c, err := cache.New(filepath.Join(cfg.Cache, "api"))
	if err != nil {
		t.Fatalf("cache.New failed: %v", err)
	}
	if err := c.SaveFormulae(formulae, "", ""); err != nil {
		t.Fatalf("SaveFormulae failed: %v", err)
	}
	return cfg
}

func TestRunDeps(t *testing.T) {
	logger.Init(false, false, true)
	cfg := depsTestConfig(t, []*formula.Formula{
		{Name: "curl", Version: "8.9.1", Dependencies: []string{"zlib", "openssl"}},
	})

	err := runDeps(cfg, []string{"curl"}, &depsOptions{})
	if err != nil {
		t.Errorf("runDeps failed: %v", err)
	}
}

func TestRunDepsUnknownFormulaErrors(t *testing.T) {
	logger.Init(false, false, true)
	cfg := depsTestConfig(t, nil)

	if err := runDeps(cfg, []string{"nonexistent-formula"}, &depsOptions{}); err == nil {
		t.Error("expected an error for a formula absent from the catalog")
	}
}

func TestRunDepsShowInstalledFilters(t *testing.T) {
	logger.Init(false, false, true)
	cfg := depsTestConfig(t, []*formula.Formula{
		{Name: "curl", Version: "8.9.1", Dependencies: []string{"zlib", "openssl"}},
	})

	st, err := state.Load(cfg.StatePath())
	if err != nil {
		t.Fatalf("state.Load failed: %v", err)
	}
	if err := st.RecordFormula(model.InstalledPackage{Name: "zlib", Version: "1.3.1"}); err != nil {
		t.Fatalf("RecordFormula failed: %v", err)
	}

	out := captureStdout(t, func() {
		if err := runDeps(cfg, []string{"curl"}, &depsOptions{showInstalled: true}); err != nil {
			t.Errorf("runDeps failed: %v", err)
		}
	})

	if !bytes.Contains([]byte(out), []byte("zlib")) {
		t.Errorf("expected zlib (installed) in output, got %q", out)
	}
	if bytes.Contains([]byte(out), []byte("openssl")) {
		t.Errorf("expected openssl (not installed) filtered out, got %q", out)
	}
}

func TestRunDepsTree(t *testing.T) {
	logger.Init(false, false, true)
	cfg := depsTestConfig(t, []*formula.Formula{
		{Name: "curl", Version: "8.9.1", Dependencies: []string{"zlib"}},
		{Name: "zlib", Version: "1.3.1"},
	})

	out := captureStdout(t, func() {
		if err := runDeps(cfg, []string{"curl"}, &depsOptions{tree: true}); err != nil {
			t.Errorf("runDeps with tree failed: %v", err)
		}
	})

	if out == "" {
		t.Error("Expected tree output, got empty string")
	}
}

func TestRunDepsDependents(t *testing.T) {
	logger.Init(false, false, true)
	cfg := depsTestConfig(t, []*formula.Formula{
		{Name: "curl", Version: "8.9.1", Dependencies: []string{"zlib"}},
		{Name: "zlib", Version: "1.3.1"},
	})

	st, err := state.Load(cfg.StatePath())
	if err != nil {
		t.Fatalf("state.Load failed: %v", err)
	}
	if err := st.RecordFormula(model.InstalledPackage{Name: "curl", Version: "8.9.1"}); err != nil {
		t.Fatalf("RecordFormula failed: %v", err)
	}

	out := captureStdout(t, func() {
		if err := runDeps(cfg, []string{"zlib"}, &depsOptions{showDependents: true}); err != nil {
			t.Errorf("runDeps with dependents failed: %v", err)
		}
	})

	if !bytes.Contains([]byte(out), []byte("curl")) {
		t.Errorf("expected curl listed as a dependent of zlib, got %q", out)
	}
}

// Test depsOptions struct
func TestDepsOptions(t *testing.T) {
	opts := &depsOptions{
		showInstalled:   true,
		showMissing:     true,
		showDependents:  true,
		includeOptional: true,
		includeBuild:    true,
		includeTest:     true,
		tree:            true,
		topLevel:        true,
		annotate:        true,
	}

	if !opts.showInstalled {
		t.Error("Expected showInstalled to be true")
	}
	if !opts.tree {
		t.Error("Expected tree to be true")
	}
}

func TestDepsCommandExecution(t *testing.T) {
	logger.Init(false, false, true)
	cfg := depsTestConfig(t, []*formula.Formula{
		{Name: "curl", Version: "8.9.1"},
	})
	cmd := NewDepsCmd(cfg)

	if err := cmd.RunE(cmd, []string{}); err == nil {
		t.Error("Expected error when running deps with no arguments")
	}

	if err := cmd.RunE(cmd, []string{"curl"}); err != nil {
		t.Errorf("deps command failed: %v", err)
	}
}

// captureStdout runs fn with os.Stdout redirected, returning everything fn printed.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe failed: %v", err)
	}
	os.Stdout = w

	fn()

	_ = w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	return buf.String()
}
