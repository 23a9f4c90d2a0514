// Package state implements the Install State: a single JSON document
// recording every formula and cask wax has linked into the prefix, instead
// of one receipt file per keg, that the installer and uninstaller read and
// write, and that commands such as `wax leaves`, `wax deps` and
// `wax outdated --cask` read.
package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	waxerrors "github.com/wax-pm/wax/internal/errors"
	"github.com/wax-pm/wax/internal/model"
)

// Document is the on-disk shape of the install state file.
type Document struct {
	Formulae map[string]model.InstalledPackage `json:"formulae"`
	Casks    map[string]model.InstalledCask    `json:"casks"`
}

// State guards Document with a mutex so concurrent installer goroutines
// (fetches run concurrently; linking is serialized in resolver order) can
// safely record results as they complete.
type State struct {
	mu   sync.Mutex
	path string
	doc  Document
}

// Load reads the install state document at path, creating an empty one in
// memory if the file doesn't exist yet.
func Load(path string) (*State, error) {
	s := &State{path: path, doc: Document{
		Formulae: make(map[string]model.InstalledPackage),
		Casks:    make(map[string]model.InstalledCask),
	}}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, waxerrors.NewConfigurationError("load install state", err)
	}
	if err := json.Unmarshal(data, &s.doc); err != nil {
		return nil, waxerrors.NewConfigurationError("decode install state", err)
	}
	if s.doc.Formulae == nil {
		s.doc.Formulae = make(map[string]model.InstalledPackage)
	}
	if s.doc.Casks == nil {
		s.doc.Casks = make(map[string]model.InstalledCask)
	}
	return s, nil
}

// Save persists the current document to disk.
func (s *State) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *State) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return waxerrors.NewPermissionError("create state directory", filepath.Dir(s.path), err)
	}
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return waxerrors.NewConfigurationError("encode install state", err)
	}
	return os.WriteFile(s.path, data, 0o644)
}

// RecordFormula adds or updates a formula's install record and persists
// immediately, so a crash mid-batch-install never loses already-linked
// packages from the state document.
func (s *State) RecordFormula(pkg model.InstalledPackage) error {
	s.mu.Lock()
	s.doc.Formulae[pkg.Name] = pkg
	s.mu.Unlock()
	return s.Save()
}

// RemoveFormula deletes a formula's record, e.g. on uninstall.
func (s *State) RemoveFormula(name string) error {
	s.mu.Lock()
	delete(s.doc.Formulae, name)
	s.mu.Unlock()
	return s.Save()
}

// Formula returns the install record for name, if present.
func (s *State) Formula(name string) (model.InstalledPackage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pkg, ok := s.doc.Formulae[name]
	return pkg, ok
}

// Formulae returns every installed formula record.
func (s *State) Formulae() []model.InstalledPackage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.InstalledPackage, 0, len(s.doc.Formulae))
	for _, pkg := range s.doc.Formulae {
		out = append(out, pkg)
	}
	return out
}

// InstalledNames returns the set of installed formula names, for the
// resolver's already-installed exclusion.
func (s *State) InstalledNames() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make(map[string]bool, len(s.doc.Formulae))
	for name := range s.doc.Formulae {
		names[name] = true
	}
	return names
}

// Cask returns the install record for token, if present.
func (s *State) Cask(token string) (model.InstalledCask, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.doc.Casks[token]
	return c, ok
}

// RecordCask adds or updates a cask's install record.
func (s *State) RecordCask(c model.InstalledCask) error {
	s.mu.Lock()
	s.doc.Casks[c.Token] = c
	s.mu.Unlock()
	return s.Save()
}

// RemoveCask deletes a cask's record.
func (s *State) RemoveCask(token string) error {
	s.mu.Lock()
	delete(s.doc.Casks, token)
	s.mu.Unlock()
	return s.Save()
}

// Casks returns every installed cask record.
func (s *State) Casks() []model.InstalledCask {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.InstalledCask, 0, len(s.doc.Casks))
	for _, c := range s.doc.Casks {
		out = append(out, c)
	}
	return out
}

// SyncFromCellar reconciles the state document against what's actually on
// disk under cellarDir, adding a record for each keg the document lacks and
// leaving existing records untouched. No wax command calls it.
func (s *State) SyncFromCellar(cellarDir string) error {
	entries, err := os.ReadDir(cellarDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return waxerrors.NewConfigurationError("sync from cellar", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if _, ok := s.doc.Formulae[name]; ok {
			continue
		}
		versions, err := os.ReadDir(filepath.Join(cellarDir, name))
		if err != nil || len(versions) == 0 {
			continue
		}
		s.doc.Formulae[name] = model.InstalledPackage{
			Name:    name,
			Version: versions[len(versions)-1].Name(),
		}
	}
	return s.saveLocked()
}
