// Package cache implements the Index Cache: the on-disk store of the last
// successfully fetched formula/cask catalog plus the HTTP validators needed
// to make the next fetch conditional.
//
// Grounded on the original Rust Cache (cache.rs), generalized from a plain
// last-write-wins file pair into one that also persists ETag/Last-Modified
// validators so the Index Client can issue conditional GETs.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/wax-pm/wax/internal/cask"
	waxerrors "github.com/wax-pm/wax/internal/errors"
	"github.com/wax-pm/wax/internal/formula"
	"github.com/wax-pm/wax/internal/model"
)

// Cache owns the formula/cask catalog snapshot under a single directory.
type Cache struct {
	dir string

	// tapProjections is a process-lifetime cache of per-tap formula views,
	// never persisted to disk, invalidated whenever a tap is added,
	// removed, or updated.
	tapProjections *lru.Cache[string, []*formula.Formula]
}

// New opens the cache rooted at dir, creating it if needed.
func New(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, waxerrors.NewCacheError("init", err)
	}
	projections, err := lru.New[string, []*formula.Formula](32)
	if err != nil {
		return nil, waxerrors.NewCacheError("init", err)
	}
	return &Cache{dir: dir, tapProjections: projections}, nil
}

func (c *Cache) formulaePath() string { return filepath.Join(c.dir, "formulae.json") }
func (c *Cache) casksPath() string    { return filepath.Join(c.dir, "casks.json") }
func (c *Cache) metadataPath() string { return filepath.Join(c.dir, "metadata.json") }

// LoadMetadata returns the last-saved cache metadata, or a zero value if
// nothing has ever been cached (callers treat that as "cache is empty").
func (c *Cache) LoadMetadata() (*model.CacheMetadata, error) {
	data, err := os.ReadFile(c.metadataPath())
	if os.IsNotExist(err) {
		return &model.CacheMetadata{}, nil
	}
	if err != nil {
		return nil, waxerrors.NewCacheError("load metadata", err)
	}
	var meta model.CacheMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, waxerrors.NewCacheError("decode metadata", err)
	}
	return &meta, nil
}

func (c *Cache) saveMetadata(meta *model.CacheMetadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return waxerrors.NewCacheError("encode metadata", err)
	}
	return os.WriteFile(c.metadataPath(), data, 0o644)
}

// SaveFormulae persists the formula catalog and updates the stored ETag/
// Last-Modified validators so the next Index Client fetch can be
// conditional.
func (c *Cache) SaveFormulae(formulae []*formula.Formula, etag, lastModified string) error {
	data, err := json.MarshalIndent(formulae, "", "  ")
	if err != nil {
		return waxerrors.NewCacheError("encode formulae", err)
	}
	if err := os.WriteFile(c.formulaePath(), data, 0o644); err != nil {
		return waxerrors.NewCacheError("write formulae", err)
	}

	meta, err := c.LoadMetadata()
	if err != nil {
		return err
	}
	meta.LastUpdated = time.Now()
	meta.FormulaETag = etag
	meta.FormulaModTime = lastModified
	meta.FormulaCount = len(formulae)
	if err := c.saveMetadata(meta); err != nil {
		return err
	}

	c.tapProjections.Purge()
	return nil
}

// SaveCasks persists the cask catalog and its validators.
func (c *Cache) SaveCasks(casks []*cask.Cask, etag, lastModified string) error {
	data, err := json.MarshalIndent(casks, "", "  ")
	if err != nil {
		return waxerrors.NewCacheError("encode casks", err)
	}
	if err := os.WriteFile(c.casksPath(), data, 0o644); err != nil {
		return waxerrors.NewCacheError("write casks", err)
	}

	meta, err := c.LoadMetadata()
	if err != nil {
		return err
	}
	meta.LastUpdated = time.Now()
	meta.CaskETag = etag
	meta.CaskModTime = lastModified
	meta.CaskCount = len(casks)
	return c.saveMetadata(meta)
}

// LoadFormulae reads the cached formula catalog. Returns an empty slice,
// not an error, when nothing has been cached yet.
func (c *Cache) LoadFormulae() ([]*formula.Formula, error) {
	data, err := os.ReadFile(c.formulaePath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, waxerrors.NewCacheError("load formulae", err)
	}
	var formulae []*formula.Formula
	if err := json.Unmarshal(data, &formulae); err != nil {
		return nil, waxerrors.NewCacheError("decode formulae", err)
	}
	return formulae, nil
}

// LoadCasks reads the cached cask catalog.
func (c *Cache) LoadCasks() ([]*cask.Cask, error) {
	data, err := os.ReadFile(c.casksPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, waxerrors.NewCacheError("load casks", err)
	}
	var casks []*cask.Cask
	if err := json.Unmarshal(data, &casks); err != nil {
		return nil, waxerrors.NewCacheError("decode casks", err)
	}
	return casks, nil
}

// FormulaeForTap returns the cached projection of formulae belonging to a
// single tap, computing and memoizing it on first access.
func (c *Cache) FormulaeForTap(tapFullName string, all []*formula.Formula) []*formula.Formula {
	if projected, ok := c.tapProjections.Get(tapFullName); ok {
		return projected
	}
	var projected []*formula.Formula
	for _, f := range all {
		if f.Tap == tapFullName {
			projected = append(projected, f)
		}
	}
	c.tapProjections.Add(tapFullName, projected)
	return projected
}

// InvalidateTap drops the memoized projection for a tap; called by the Tap
// Manager whenever a tap is added, removed, or updated.
func (c *Cache) InvalidateTap(tapFullName string) {
	c.tapProjections.Remove(tapFullName)
}
