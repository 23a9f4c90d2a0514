// Package lockfile reads and writes wax.lock, the TOML document pinning
// each installed package to the exact version and platform tag it was
// installed under.
package lockfile

import (
	"fmt"
	"os"
	"sort"

	"github.com/pelletier/go-toml/v2"

	waxerrors "github.com/wax-pm/wax/internal/errors"
	"github.com/wax-pm/wax/internal/formula"
	"github.com/wax-pm/wax/internal/model"
)

// DefaultPath is the lockfile's conventional location, relative to the
// directory wax was invoked from.
const DefaultPath = "wax.lock"

// Lockfile is the in-memory form of wax.lock.
type Lockfile struct {
	Packages map[string]model.LockfileEntry `toml:"packages"`
}

// New returns an empty lockfile.
func New() *Lockfile {
	return &Lockfile{Packages: make(map[string]model.LockfileEntry)}
}

// Load reads path, returning an empty Lockfile (not an error) if it
// doesn't exist yet — a fresh project has no lock until its first install.
func Load(path string) (*Lockfile, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return New(), nil
	}
	if err != nil {
		return nil, waxerrors.NewLockfileError("read", err)
	}

	var lf Lockfile
	if err := toml.Unmarshal(data, &lf); err != nil {
		return nil, waxerrors.NewLockfileError("decode", err)
	}
	if lf.Packages == nil {
		lf.Packages = make(map[string]model.LockfileEntry)
	}
	return &lf, nil
}

// Save writes the lockfile to path in pretty TOML form.
func (l *Lockfile) Save(path string) error {
	data, err := toml.Marshal(l)
	if err != nil {
		return waxerrors.NewLockfileError("encode", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return waxerrors.NewLockfileError("write", err)
	}
	return nil
}

// Set records (or overwrites) a package's pinned version and the platform
// tag kept in the entry's Bottle field.
func (l *Lockfile) Set(name, version, bottle string) {
	l.Packages[name] = model.LockfileEntry{Version: version, Bottle: bottle}
}

// Remove drops a package from the lockfile, e.g. on uninstall.
func (l *Lockfile) Remove(name string) {
	delete(l.Packages, name)
}

// Get returns the pinned entry for name, if any.
func (l *Lockfile) Get(name string) (model.LockfileEntry, bool) {
	entry, ok := l.Packages[name]
	return entry, ok
}

// SyncFrom replaces the lockfile's contents with exactly the given set of
// installed packages (generate()), used to regenerate wax.lock from the
// Install State document. The Bottle field of each entry holds the
// platform tag the package was installed under, not a download URL.
func SyncFrom(installed []model.InstalledPackage) *Lockfile {
	lf := New()
	for _, pkg := range installed {
		lf.Set(pkg.Name, pkg.Version, pkg.Platform)
	}
	return lf
}

// Catalog is the minimal lookup surface Sync needs to confirm a locked
// entry's version still exists, satisfied by the Index Client.
type Catalog interface {
	GetFormula(name string) (*formula.Formula, error)
}

// InstalledLookup is the minimal Install State surface Sync needs.
type InstalledLookup interface {
	Formula(name string) (model.InstalledPackage, bool)
}

// SyncResult reports what Sync did.
type SyncResult struct {
	Installed []string
	Warnings  []string
}

// Sync reconciles the lockfile against the current install state: any
// entry missing from state, or installed under a different version or
// platform, is (re)installed via install. A locked entry whose version no
// longer matches the catalog's current version for that name is a fatal
// LockfileError. A locked platform that doesn't match detectedPlatform is
// reported as a non-fatal warning regardless of whether a (re)install
// happened — the package still works, it just wasn't built for this host.
func Sync(l *Lockfile, installed InstalledLookup, detectedPlatform string, catalog Catalog, install func(name, version string) error) (*SyncResult, error) {
	result := &SyncResult{}

	names := make([]string, 0, len(l.Packages))
	for name := range l.Packages {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		entry := l.Packages[name]

		f, err := catalog.GetFormula(name)
		if err != nil || f.Version != entry.Version {
			return result, waxerrors.NewLockfileError("sync",
				fmt.Errorf("%s@%s no longer exists in the catalog", name, entry.Version))
		}

		if entry.Bottle != "" && entry.Bottle != detectedPlatform {
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"%s: locked platform %s does not match detected platform %s", name, entry.Bottle, detectedPlatform))
		}

		rec, ok := installed.Formula(name)
		if ok && rec.Version == entry.Version && rec.Platform == entry.Bottle {
			continue
		}

		if err := install(name, entry.Version); err != nil {
			return result, waxerrors.NewLockfileError("sync", fmt.Errorf("install %s: %w", name, err))
		}
		result.Installed = append(result.Installed, name)
	}

	return result, nil
}
