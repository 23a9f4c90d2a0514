// Package installer implements the Installer: it turns a resolved
// dependency plan into linked Cellar kegs, driving the Archive Fetcher,
// Relocator, and Install State in sequence for each package the Dependency
// Resolver reports as missing.
package installer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wax-pm/wax/internal/apiclient"
	"github.com/wax-pm/wax/internal/builder"
	"github.com/wax-pm/wax/internal/cask"
	"github.com/wax-pm/wax/internal/config"
	"github.com/wax-pm/wax/internal/errors"
	"github.com/wax-pm/wax/internal/fetcher"
	"github.com/wax-pm/wax/internal/formula"
	"github.com/wax-pm/wax/internal/lockfile"
	"github.com/wax-pm/wax/internal/logger"
	"github.com/wax-pm/wax/internal/model"
	"github.com/wax-pm/wax/internal/platform"
	"github.com/wax-pm/wax/internal/relocator"
	"github.com/wax-pm/wax/internal/resolver"
	"github.com/wax-pm/wax/internal/state"
	"github.com/wax-pm/wax/internal/tap"
	"github.com/wax-pm/wax/internal/verification"
)

// cellarSubdirs are the prefix-level directories the linker populates, in
// the order they're walked.
var cellarSubdirs = []string{"bin", "lib", "include", "share", "etc", "sbin"}

// Installer handles formula and cask installation.
type Installer struct {
	cfg        *config.Config
	opts       *Options
	apiClient  *apiclient.Client
	verifier   *verification.PackageVerifier
	fetcher    *fetcher.Fetcher
	relocator  *relocator.Relocator
	builder    builder.Builder
	state      *state.State
	detector   platform.Detector
}

// Options contains installation options.
type Options struct {
	BuildFromSource    bool
	ForceBottle        bool
	IgnoreDependencies bool
	OnlyDependencies   bool
	IncludeTest        bool
	HeadOnly           bool
	KeepTmp            bool
	DebugSymbols       bool
	Force              bool
	DryRun             bool
	Verbose            bool
	CC                 string
	StrictVerification bool
}

// InstallResult contains the result of an installation.
type InstallResult struct {
	Name     string
	Version  string
	Duration time.Duration
	Source   string // "bottle" or "source"
	Success  bool
	Error    error
}

// New creates a new installer. State load failures are non-fatal; an
// unreadable install state falls back to an empty one rather than
// blocking every subsequent install.
func New(cfg *config.Config, opts *Options) *Installer {
	st, err := state.Load(cfg.StatePath())
	if err != nil {
		logger.Warn("failed to load install state, starting fresh: %v", err)
		st, _ = state.Load(os.DevNull)
	}

	detector := platform.NewDetector()

	return &Installer{
		cfg:       cfg,
		opts:      opts,
		apiClient: apiclient.NewClient(cfg),
		verifier:  verification.NewPackageVerifier(opts.StrictVerification),
		fetcher:   fetcher.New(platform.UserAgent("3.0.0")),
		relocator: relocator.New(),
		builder:   builder.NullBuilder{},
		state:     st,
		detector:  detector,
	}
}

// apiCatalog adapts the Index Client's on-demand formula lookup to the
// resolver's Catalog interface, falling back to tap resolution so formulae
// from third-party taps still resolve inside a mixed dependency graph.
type apiCatalog struct {
	i      *Installer
	cached map[string]*formula.Formula
}

func newAPICatalog(i *Installer, root *formula.Formula) *apiCatalog {
	return &apiCatalog{i: i, cached: map[string]*formula.Formula{root.Name: root}}
}

func (c *apiCatalog) Lookup(name string) (*formula.Formula, bool) {
	if f, ok := c.cached[name]; ok {
		return f, true
	}
	f, err := c.i.resolveFormula(name)
	if err != nil {
		return nil, false
	}
	c.cached[name] = f
	return f, true
}

// InstallFormula installs a formula and its unmet dependencies.
func (i *Installer) InstallFormula(name string) (*InstallResult, error) {
	start := time.Now()
	result := &InstallResult{Name: name}

	logger.Progress("Installing formula: %s", name)

	root, err := i.resolveFormula(name)
	if err != nil {
		result.Error = err
		formErr := errors.NewFormulaNotFoundError(name)
		logger.LogDetailedError(logger.ErrorContext{
			Operation:   formErr.Operation,
			Formula:     formErr.Package,
			Error:       formErr,
			Suggestions: formErr.Suggestions,
		})
		return result, formErr
	}
	result.Version = root.Version

	plan, err := i.planFor(root)
	if err != nil {
		result.Error = err
		return result, err
	}

	if i.opts.OnlyDependencies {
		plan = dropRoot(plan, root.Name)
	}

	if len(plan) == 0 {
		result.Duration = time.Since(start)
		result.Success = true
		return result, nil
	}

	if i.opts.DryRun {
		for _, f := range plan {
			logger.Info("Would install %s %s", f.Name, f.Version)
		}
		result.Duration = time.Since(start)
		result.Success = true
		return result, nil
	}

	if err := i.installPlan(plan); err != nil {
		result.Error = err
		if waxErr, ok := err.(*errors.WaxError); ok {
			logger.LogDetailedError(logger.ErrorContext{
				Operation:   waxErr.Operation,
				Formula:     waxErr.Package,
				Version:     waxErr.Version,
				Platform:    waxErr.Platform,
				Error:       waxErr,
				Suggestions: waxErr.Suggestions,
			})
		}
		return result, err
	}

	if err := i.syncLockfile(); err != nil {
		logger.Warn("Failed to update wax.lock: %v", err)
	}

	result.Duration = time.Since(start)
	result.Success = true
	return result, nil
}

// syncLockfile regenerates wax.lock from the current install state so it
// never drifts from what's actually linked into the prefix.
func (i *Installer) syncLockfile() error {
	lf := lockfile.SyncFrom(i.state.Formulae())
	return lf.Save(filepath.Join(i.cfg.StateDir, lockfile.DefaultPath))
}

// planFor resolves root's dependency closure (or just root, when
// dependencies are ignored) against the current install state.
func (i *Installer) planFor(root *formula.Formula) ([]*formula.Formula, error) {
	installed := i.state.InstalledNames()

	if i.opts.IgnoreDependencies {
		if installed[root.Name] {
			return nil, nil
		}
		return []*formula.Formula{root}, nil
	}

	catalog := newAPICatalog(i, root)
	plan, err := resolver.Resolve(root, catalog, installed, resolver.Options{
		IncludeBuild: false,
		IncludeTest:  i.opts.IncludeTest,
	})
	if err != nil {
		return nil, err
	}
	return plan.Order, nil
}

func dropRoot(plan []*formula.Formula, rootName string) []*formula.Formula {
	out := plan[:0]
	for _, f := range plan {
		if f.Name != rootName {
			out = append(out, f)
		}
	}
	return out
}

// installPlan installs every formula in the resolver's order, fetching all
// bottle-eligible packages concurrently through the Archive Fetcher before
// unpacking each one in turn; per-package failures don't cancel
// siblings already in flight).
func (i *Installer) installPlan(plan []*formula.Formula) error {
	hostTag := string(i.detector.Tag())

	var reqs []fetcher.Request
	byName := make(map[string]*formula.Formula, len(plan))
	bottleTag := make(map[string]string, len(plan))

	downloadDir := filepath.Join(i.cfg.Cache, "downloads")
	if err := os.MkdirAll(downloadDir, 0o755); err != nil {
		return errors.NewPermissionError("create download directory", downloadDir, err)
	}

	for _, f := range plan {
		byName[f.Name] = f
		if tag, ok := i.shouldUseBottle(f); ok {
			bottleTag[f.Name] = tag
			reqs = append(reqs, fetcher.Request{
				Name:           f.Name,
				Version:        f.Version,
				URL:            f.GetBottleURL(tag),
				ExpectedSHA256: f.GetBottleSHA256(tag),
				DestDir:        downloadDir,
			})
		}
	}

	results := i.fetcher.FetchAll(context.Background(), reqs)
	byFetchName := make(map[string]fetcher.Result, len(results))
	for _, r := range results {
		byFetchName[r.Request.Name] = r
	}

	var failures []string
	for _, f := range plan {
		logger.Step("Installing %s %s", f.Name, f.Version)

		tag := hostTag
		fromBottle := false
		var err error

		if resolvedTag, ok := bottleTag[f.Name]; ok {
			fromBottle = true
			tag = resolvedTag
			if fr, ok := byFetchName[f.Name]; ok && fr.Err == nil {
				err = i.installFromBottle(f, fr.ArchivePath, tag)
			} else if ok {
				err = errors.NewDownloadError("download", f.GetBottleURL(tag), fr.Err)
			}
		} else {
			err = i.builder.Build(context.Background(), f, "", f.GetCellarPath(i.cfg.Cellar))
		}

		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", f.Name, err))
			logger.Warn("Failed to install %s: %v", f.Name, err)
			continue
		}

		// Linking must be the last action before the state write: a crash
		// between the two would otherwise leave a recorded package with no
		// symlinks in the prefix.
		if !f.KegOnly {
			if err := i.linkFormula(f); err != nil {
				logger.Warn("Failed to link %s: %v", f.Name, err)
			}
		}

		if err := i.recordInstalled(f, tag, fromBottle); err != nil {
			logger.Warn("Failed to record install state for %s: %v", f.Name, err)
		}

		logger.Success("Installed %s %s", f.Name, f.Version)
	}

	if len(failures) > 0 {
		return errors.NewInstallationError(plan[len(plan)-1].Name, plan[len(plan)-1].Version,
			fmt.Errorf("%d package(s) failed: %s", len(failures), strings.Join(failures, "; ")))
	}
	return nil
}

// installFromBottle extracts a fetched bottle archive into the Cellar and
// runs the Relocator over the copied tree.
func (i *Installer) installFromBottle(f *formula.Formula, archivePath, tag string) error {
	if i.opts.StrictVerification {
		if err := i.verifier.VerifyBottle(archivePath, f.GetBottleSHA256(tag), 0); err != nil {
			return errors.Wrap(err, "verify bottle", f.Name)
		}
	}

	extractDir, err := os.MkdirTemp(i.cfg.Temp, f.Name+"-*")
	if err != nil {
		return errors.NewPermissionError("create extract directory", i.cfg.Temp, err)
	}
	defer func() {
		if !i.opts.KeepTmp {
			os.RemoveAll(extractDir)
		}
	}()

	if err := fetcher.Extract(archivePath, extractDir); err != nil {
		return errors.Wrap(err, "extract bottle", f.Name)
	}

	payload := extractDir
	if nested := filepath.Join(extractDir, f.Name, f.Version); dirExists(nested) {
		payload = nested
	} else if nested := filepath.Join(extractDir, f.Name); dirExists(nested) {
		payload = nested
	}

	cellarPath := f.GetCellarPath(i.cfg.Cellar)
	if err := os.RemoveAll(cellarPath); err != nil {
		return errors.NewPermissionError("clear cellar path", cellarPath, err)
	}
	if err := copyTree(payload, cellarPath); err != nil {
		return errors.Wrap(err, "copy bottle payload", f.Name)
	}

	if err := i.relocator.Relocate(cellarPath, relocator.Replacements{
		Prefix: i.cfg.Prefix,
		Cellar: i.cfg.Cellar,
	}); err != nil {
		return errors.Wrap(err, "relocate bottle", f.Name)
	}

	if !i.opts.KeepTmp {
		os.Remove(archivePath)
	}

	return nil
}

// shouldUseBottle reports the bottle tag to install f from, picked by the
// platform Detector out of whatever tags f's bottle manifest actually
// publishes (falling back to "all" per platform.Detector.SupportsTag).
func (i *Installer) shouldUseBottle(f *formula.Formula) (string, bool) {
	if i.opts.BuildFromSource && !i.opts.ForceBottle {
		return "", false
	}
	if i.opts.HeadOnly && !f.IsStable() {
		return "", false
	}
	tag, ok := i.detector.SupportsTag(f.BottleTags())
	return string(tag), ok
}

// linkFormula symlinks each standard subdirectory's files into the prefix,
// skipping any path that's already occupied.
func (i *Installer) linkFormula(f *formula.Formula) error {
	cellarPath := f.GetCellarPath(i.cfg.Cellar)

	for _, subdir := range cellarSubdirs {
		srcDir := filepath.Join(cellarPath, subdir)
		entries, err := os.ReadDir(srcDir)
		if err != nil {
			continue
		}

		linkDir := filepath.Join(i.cfg.Prefix, subdir)
		if err := os.MkdirAll(linkDir, 0o755); err != nil {
			return errors.NewPermissionError("create link directory", linkDir, err)
		}

		for _, entry := range walkFiles(srcDir, entries) {
			rel, err := filepath.Rel(srcDir, entry)
			if err != nil {
				continue
			}
			dst := filepath.Join(linkDir, rel)
			if _, err := os.Lstat(dst); err == nil {
				continue // collision: pre-existing file wins
			}
			if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
				return err
			}
			if err := os.Symlink(entry, dst); err != nil {
				return err
			}
		}
	}

	return nil
}

// unlinkFormula removes only the symlinks this formula owns: entries under
// a standard subdir whose resolved target lives inside the formula's own
// Cellar subtree.
func (i *Installer) unlinkFormula(f *formula.Formula) error {
	cellarPath := f.GetCellarPath(i.cfg.Cellar)

	for _, subdir := range cellarSubdirs {
		linkDir := filepath.Join(i.cfg.Prefix, subdir)
		entries, err := os.ReadDir(linkDir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			path := filepath.Join(linkDir, entry.Name())
			target, err := os.Readlink(path)
			if err != nil {
				continue
			}
			if strings.HasPrefix(target, cellarPath) {
				os.Remove(path)
			}
		}
	}

	return nil
}

// UnlinkFormula removes f's symlinks from the prefix without touching its
// Cellar keg, letting callers (e.g. `wax uninstall`) reuse the same
// ownership check the installer uses when linking.
func (i *Installer) UnlinkFormula(f *formula.Formula) error {
	return i.unlinkFormula(f)
}

// RemoveFromState drops name from the install state and regenerates
// wax.lock to match, used by `wax uninstall` after removing a keg.
func (i *Installer) RemoveFromState(name string) error {
	if err := i.state.RemoveFormula(name); err != nil {
		return err
	}
	return i.syncLockfile()
}

func (i *Installer) recordInstalled(f *formula.Formula, tag string, fromBottle bool) error {
	return i.state.RecordFormula(model.InstalledPackage{
		Name:        f.Name,
		Version:     f.Version,
		Tap:         "homebrew/core",
		Linked:      !f.KegOnly,
		BottleURL:   f.GetBottleURL(tag),
		Platform:    tag,
		FromSource:  !fromBottle,
		InstalledAt: time.Now(),
	})
}

// InstallCask installs a cask.
func (i *Installer) InstallCask(name string) (*InstallResult, error) {
	start := time.Now()
	result := &InstallResult{Name: name, Source: "cask"}

	logger.Debug("Installing cask: %s", name)

	caskData, err := i.apiClient.GetCask(name)
	if err != nil {
		result.Error = fmt.Errorf("failed to fetch cask '%s': %w", name, err)
		return result, result.Error
	}

	caskInstaller := cask.NewCaskInstaller(i.cfg)
	opts := &cask.CaskInstallOptions{
		Force:        i.opts.Force,
		RequireSHA:   true,
		Verbose:      i.opts.Verbose,
		DryRun:       i.opts.DryRun,
		NoQuarantine: false,
	}

	caskResult, err := caskInstaller.InstallCask(caskData, opts)
	if err != nil {
		result.Error = err
		return result, err
	}

	result.Version = caskResult.Version
	result.Success = caskResult.Success
	result.Error = caskResult.Error
	result.Duration = time.Since(start)

	if caskResult.Success {
		if err := i.state.RecordCask(model.InstalledCask{
			Token:       caskData.Token,
			Version:     caskResult.Version,
			InstalledAt: time.Now(),
		}); err != nil {
			logger.Warn("Failed to record cask install state: %v", err)
		}
	}

	if caskResult.Caveats != "" {
		logger.Info("Caveats:")
		logger.Info(caskResult.Caveats)
	}

	return result, nil
}

// UninstallCask removes a cask's artifacts and drops its install record.
func (i *Installer) UninstallCask(name string) error {
	logger.Debug("Uninstalling cask: %s", name)

	rec, ok := i.state.Cask(name)
	if !ok {
		return fmt.Errorf("cask %s is not installed", name)
	}

	caskData, err := i.apiClient.GetCask(name)
	if err != nil {
		return fmt.Errorf("failed to fetch cask '%s': %w", name, err)
	}
	installedAt := rec.InstalledAt
	caskData.InstallTime = &installedAt

	caskInstaller := cask.NewCaskInstaller(i.cfg)
	if err := caskInstaller.UninstallCask(caskData, &cask.CaskInstallOptions{Force: i.opts.Force}); err != nil {
		return err
	}

	return i.state.RemoveCask(name)
}

// resolveFormula looks up a formula by name, trying the Index Client first
// and falling back to tap-qualified and tap-local resolution.
func (i *Installer) resolveFormula(name string) (*formula.Formula, error) {
	if f, err := i.apiClient.GetFormula(name); err == nil {
		logger.Verbose("Resolved formula %s from API", name)
		return f, nil
	} else {
		logger.Debug("API resolution failed for %s: %v", name, err)
	}

	tapManager := tap.NewManager(i.cfg)

	parts := strings.Split(name, "/")
	if len(parts) == 3 {
		tapName := parts[0] + "/" + parts[1]
		formulaName := parts[2]

		t, err := tapManager.GetTap(tapName)
		if err != nil {
			return nil, fmt.Errorf("tap %s not found: %w", tapName, err)
		}
		return t.GetFormula(formulaName)
	}

	if coreTap, err := tapManager.GetTap("homebrew/core"); err == nil {
		if f, err := coreTap.GetFormula(name); err == nil {
			return f, nil
		}
	}

	taps, err := tapManager.ListTaps()
	if err != nil {
		return nil, fmt.Errorf("failed to list taps: %w", err)
	}
	for _, t := range taps {
		if f, err := t.GetFormula(name); err == nil {
			return f, nil
		}
	}

	return nil, fmt.Errorf("formula %s not found", name)
}

// VerifyInstallation verifies the integrity of an installed package.
func (i *Installer) VerifyInstallation(formulaName string) (*verification.VerificationResult, error) {
	cellarPath := filepath.Join(i.cfg.Cellar, formulaName)
	return i.verifier.VerifyInstallation(cellarPath), nil
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// walkFiles returns every regular file (recursively) under dir, given its
// top-level entries.
func walkFiles(dir string, entries []os.DirEntry) []string {
	var files []string
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if e.IsDir() {
			sub, err := os.ReadDir(path)
			if err != nil {
				continue
			}
			files = append(files, walkFiles(path, sub)...)
			continue
		}
		files = append(files, path)
	}
	return files
}

// copyTree recursively copies src into dst, preserving symlinks as symlinks.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		info, err := d.Info()
		if err != nil {
			return err
		}

		switch {
		case info.Mode()&os.ModeSymlink != 0:
			linkTarget, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(linkTarget, target)
		case d.IsDir():
			return os.MkdirAll(target, info.Mode().Perm())
		default:
			return copyFile(path, target, info.Mode().Perm())
		}
	})
}

func copyFile(src, dst string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, mode)
}
