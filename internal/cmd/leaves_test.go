package cmd

import (
	"path/filepath"
	"testing"

	"github.com/wax-pm/wax/internal/cache"
	"github.com/wax-pm/wax/internal/config"
	"github.com/wax-pm/wax/internal/formula"
	"github.com/wax-pm/wax/internal/logger"
	"github.com/wax-pm/wax/internal/model"
	"github.com/wax-pm/wax/internal/state"
)

// seedFormulaCatalog pre-populates cfg's Index Cache so apiclient.GetFormula
// resolves offline instead of reaching the network.
func seedFormulaCatalog(t *testing.T, cfg *config.Config, formulae []*formula.Formula) {
	t.Helper()
	c, err := cache.New(filepath.Join(cfg.Cache, "api"))
	if err != nil {
		t.Fatalf("cache.New failed: %v", err)
	}
	if err := c.SaveFormulae(formulae, "", ""); err != nil {
		t.Fatalf("SaveFormulae failed: %v", err)
	}
}

func leavesTestConfig(t *testing.T) *config.Config {
	t.Helper()
	tempDir := t.TempDir()
	cfg := &config.Config{
		Cellar:   filepath.Join(tempDir, "Cellar"),
		StateDir: filepath.Join(tempDir, "state"),
		Cache:    filepath.Join(tempDir, "cache"),
	}
	return cfg
}

func TestNewLeavesCmd(t *testing.T) {
	logger.Init(false, false, true)
	cfg := &config.Config{}

	cmd := NewLeavesCmd(cfg)

	if cmd.Use != "leaves [OPTIONS]" {
		t.Errorf("Expected Use to be 'leaves [OPTIONS]', got %s", cmd.Use)
	}

	if cmd.Short != "List installed formulae that are not dependencies of other installed formulae" {
		t.Errorf("Expected correct Short description, got %s", cmd.Short)
	}

	flags := []string{"installed-on-request", "installed-as-dependency"}
	for _, flag := range flags {
		if cmd.Flags().Lookup(flag) == nil {
			t.Errorf("Expected flag %s to exist", flag)
		}
	}
}

func TestRunLeavesNoFormulae(t *testing.T) {
	logger.Init(false, false, true)
	cfg := leavesTestConfig(t)

	if err := runLeaves(cfg, &leavesOptions{}); err != nil {
		t.Errorf("runLeaves failed: %v", err)
	}
}

func TestRunLeavesExcludesDependencies(t *testing.T) {
	logger.Init(false, false, true)
	cfg := leavesTestConfig(t)

	seedFormulaCatalog(t, cfg, []*formula.Formula{
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
	if err := st.RecordFormula(model.InstalledPackage{Name: "zlib", Version: "1.3.1", InstalledAsDep: true}); err != nil {
		t.Fatalf("RecordFormula failed: %v", err)
	}

	out := captureStdout(t, func() {
		if err := runLeaves(cfg, &leavesOptions{}); err != nil {
			t.Errorf("runLeaves failed: %v", err)
		}
	})

	if out != "curl\n" {
		t.Errorf("expected only curl listed as a leaf, got %q", out)
	}
}

func TestRunLeavesInstalledOnRequestFilter(t *testing.T) {
	logger.Init(false, false, true)
	cfg := leavesTestConfig(t)

	st, err := state.Load(cfg.StatePath())
	if err != nil {
		t.Fatalf("state.Load failed: %v", err)
	}
	if err := st.RecordFormula(model.InstalledPackage{Name: "curl", Version: "8.9.1", InstalledAsDep: false}); err != nil {
		t.Fatalf("RecordFormula failed: %v", err)
	}
	if err := st.RecordFormula(model.InstalledPackage{Name: "zlib", Version: "1.3.1", InstalledAsDep: true}); err != nil {
		t.Fatalf("RecordFormula failed: %v", err)
	}

	out := captureStdout(t, func() {
		if err := runLeaves(cfg, &leavesOptions{installedOnRequest: true}); err != nil {
			t.Errorf("runLeaves failed: %v", err)
		}
	})

	if out != "curl\n" {
		t.Errorf("expected only curl (installed on request), got %q", out)
	}
}

func TestGetInstalledFormulae(t *testing.T) {
	logger.Init(false, false, true)
	cfg := leavesTestConfig(t)

	formulae, err := getInstalledFormulae(cfg)
	if err != nil {
		t.Errorf("getInstalledFormulae should not error: %v", err)
	}
	if len(formulae) != 0 {
		t.Errorf("Expected empty list for fresh state, got %d formulae", len(formulae))
	}
}

func TestGetInstalledFormulaeWithState(t *testing.T) {
	logger.Init(false, false, true)
	cfg := leavesTestConfig(t)

	st, err := state.Load(cfg.StatePath())
	if err != nil {
		t.Fatalf("state.Load failed: %v", err)
	}
	for _, name := range []string{"git", "node", "python"} {
		if err := st.RecordFormula(model.InstalledPackage{Name: name, Version: "1.0.0"}); err != nil {
			t.Fatalf("RecordFormula failed: %v", err)
		}
	}

	formulae, err := getInstalledFormulae(cfg)
	if err != nil {
		t.Errorf("getInstalledFormulae failed: %v", err)
	}
	if len(formulae) != 3 {
		t.Errorf("Expected 3 formulae, got %d", len(formulae))
	}
}

func TestLeavesOptions(t *testing.T) {
	opts := &leavesOptions{
		installedOnRequest: true,
		installedAsDep:     true,
	}

	if !opts.installedOnRequest {
		t.Error("Expected installedOnRequest to be true")
	}
	if !opts.installedAsDep {
		t.Error("Expected installedAsDep to be true")
	}
}

func TestLeavesCommandExecution(t *testing.T) {
	logger.Init(false, false, true)
	cfg := leavesTestConfig(t)
	cmd := NewLeavesCmd(cfg)

	if err := cmd.RunE(cmd, []string{}); err != nil {
		t.Errorf("leaves command failed: %v", err)
	}
}
