package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wax-pm/wax/internal/cache"
	"github.com/wax-pm/wax/internal/cask"
	"github.com/wax-pm/wax/internal/config"
	"github.com/wax-pm/wax/internal/fetcher"
	"github.com/wax-pm/wax/internal/formula"
	"github.com/wax-pm/wax/internal/logger"
	"github.com/wax-pm/wax/internal/model"
	"github.com/wax-pm/wax/internal/platform"
)

// Client handles metadata requests against the formula/cask index; bottle
// bytes are fetched by internal/fetcher, which this client delegates to so
// download retry/auth logic lives in one place. The formula/cask catalog
// itself is backed by internal/cache, which makes bulk refetches conditional
// on the ETag/Last-Modified validators of the last successful fetch.
type Client struct {
	config     *config.Config
	httpClient *http.Client
	apiDomain  string
	userAgent  string
	detector   platform.Detector
	fetcher    *fetcher.Fetcher
	cache      *cache.Cache
}

// FormulaAPIResponse represents the API response for a formula
type FormulaAPIResponse struct {
	Name                string                 `json:"name"`
	FullName            string                 `json:"full_name"`
	Tap                 string                 `json:"tap"`
	Oldname             string                 `json:"oldname,omitempty"`
	Aliases             []string               `json:"aliases"`
	VersionedFormulae   []string               `json:"versioned_formulae"`
	Desc                string                 `json:"desc"`
	License             string                 `json:"license"`
	Homepage            string                 `json:"homepage"`
	Versions            map[string]interface{} `json:"versions"`
	Urls                map[string]interface{} `json:"urls"`
	Revision            int                    `json:"revision"`
	VersionScheme       int                    `json:"version_scheme"`
	Bottle              map[string]interface{} `json:"bottle"`
	KegOnly             bool                   `json:"keg_only"`
	KegOnlyReason       map[string]string      `json:"keg_only_reason,omitempty"`
	Options             []interface{}          `json:"options"`
	BuildDependencies   []string               `json:"build_dependencies"`
	Dependencies        []string               `json:"dependencies"`
	TestDependencies    []string               `json:"test_dependencies"`
	RecommendedDependencies []string           `json:"recommended_dependencies"`
	OptionalDependencies    []string           `json:"optional_dependencies"`
	UsesFromMacos       []interface{}          `json:"uses_from_macos"`
	Requirements        []interface{}          `json:"requirements"`
	ConflictsWith       []string               `json:"conflicts_with"`
	ConflictsWithReasons []string              `json:"conflicts_with_reasons"`
	LinkOverwrite       []string               `json:"link_overwrite"`
	Caveats             string                 `json:"caveats,omitempty"`
	Installed           []interface{}          `json:"installed"`
	LinkedKeg           string                 `json:"linked_keg,omitempty"`
	Pinned              bool                   `json:"pinned"`
	Outdated            bool                   `json:"outdated"`
	Deprecated          bool                   `json:"deprecated"`
	DeprecationDate     string                 `json:"deprecation_date,omitempty"`
	DeprecationReason   string                 `json:"deprecation_reason,omitempty"`
	Disabled            bool                   `json:"disabled"`
	DisableDate         string                 `json:"disable_date,omitempty"`
	DisableReason       string                 `json:"disable_reason,omitempty"`
	PostInstallDefined  bool                   `json:"post_install_defined"`
	Service             map[string]interface{} `json:"service,omitempty"`
	TapGitHead          string                 `json:"tap_git_head"`
	RubySourcePath      string                 `json:"ruby_source_path"`
	RubySourceChecksum  map[string]string      `json:"ruby_source_checksum"`
}

// SearchResult represents a search result
type SearchResult struct {
	Name        string `json:"name"`
	FullName    string `json:"full_name"`
	Tap         string `json:"tap"`
	Desc        string `json:"desc"`
	Homepage    string `json:"homepage"`
	Deprecated  bool   `json:"deprecated"`
	Disabled    bool   `json:"disabled"`
}

// NewClient creates a new API client
func NewClient(cfg *config.Config) *Client {
	apiDomain := os.Getenv("WAX_API_DOMAIN")
	if apiDomain == "" {
		apiDomain = "https://formulae.brew.sh/api"
	}

	detector := platform.NewDetector()
	userAgent := platform.UserAgent("3.0.0")

	indexCache, err := cache.New(filepath.Join(cfg.Cache, "api"))
	if err != nil {
		logger.Warn("Failed to open index cache, falling back to uncached API reads: %v", err)
		indexCache = nil
	}

	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		apiDomain: apiDomain,
		userAgent: userAgent,
		detector:  detector,
		fetcher:   fetcher.New(userAgent),
		cache:     indexCache,
	}
}

// GetFormula returns formula data, preferring the cached catalog populated by
// the last `wax update` (or first touch) and falling back to a live
// single-formula fetch when the name isn't in it yet.
func (c *Client) GetFormula(name string) (*formula.Formula, error) {
	if c.cache != nil {
		if cached, err := c.cache.LoadFormulae(); err == nil {
			for _, f := range cached {
				if f.Name == name {
					return f, nil
				}
			}
		}
	}

	logger.Debug("Fetching formula %s from API", name)

	url := fmt.Sprintf("%s/formula/%s.json", c.apiDomain, name)

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch formula: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == 404 {
		return nil, fmt.Errorf("formula %s not found", name)
	}

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("API request failed with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var apiResponse FormulaAPIResponse
	if err := json.Unmarshal(body, &apiResponse); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	f := convertFormulaAPIResponse(&apiResponse)
	logger.Debug("Successfully fetched formula %s", name)
	return f, nil
}

// convertFormulaAPIResponse maps one formulae.brew.sh API entry onto our
// Formula type; shared by the single-formula and bulk-catalog fetch paths.
func convertFormulaAPIResponse(apiResponse *FormulaAPIResponse) *formula.Formula {
	f := &formula.Formula{
		Name:              apiResponse.Name,
		FullName:          apiResponse.FullName,
		Description:       apiResponse.Desc,
		Homepage:          apiResponse.Homepage,
		License:           apiResponse.License,
		Dependencies:      apiResponse.Dependencies,
		BuildDependencies: apiResponse.BuildDependencies,
		TestDependencies:  apiResponse.TestDependencies,
		Caveats:           apiResponse.Caveats,
		KegOnly:           apiResponse.KegOnly,
		Deprecated:        apiResponse.Deprecated,
		Disabled:          apiResponse.Disabled,
		Tap:               apiResponse.Tap,
	}

	if versions, ok := apiResponse.Versions["stable"].(string); ok {
		f.Version = versions
	}

	if urls, ok := apiResponse.Urls["stable"].(map[string]interface{}); ok {
		if url, ok := urls["url"].(string); ok {
			f.URL = url
		}
		if sha256, ok := urls["checksum"].(string); ok {
			f.SHA256 = sha256
		}
	}

	if bottle, ok := apiResponse.Bottle["stable"].(map[string]interface{}); ok {
		if files, ok := bottle["files"].(map[string]interface{}); ok {
			f.Bottle = &formula.Bottle{
				Stable: &formula.BottleSpec{
					Rebuild: 0,
					Files:   make(map[string]formula.BottleFile),
				},
			}

			for platform, fileInfo := range files {
				if fileData, ok := fileInfo.(map[string]interface{}); ok {
					bottleFile := formula.BottleFile{}
					if url, ok := fileData["url"].(string); ok {
						bottleFile.URL = url
					}
					if sha256, ok := fileData["sha256"].(string); ok {
						bottleFile.SHA256 = sha256
					}
					f.Bottle.Stable.Files[platform] = bottleFile
				}
			}
		}
	}

	return f
}

// SearchFormulae searches for formulae by name or description against the
// cached catalog, auto-populating it on first use.
func (c *Client) SearchFormulae(query string) ([]SearchResult, error) {
	logger.Debug("Searching formulae for: %s", query)

	catalog, err := c.AllFormulae()
	if err != nil {
		return nil, fmt.Errorf("failed to get formulae list: %w", err)
	}

	var results []SearchResult
	query = strings.ToLower(query)

	for _, f := range catalog {
		if len(results) >= 20 {
			break
		}
		if strings.Contains(strings.ToLower(f.Name), query) || strings.Contains(strings.ToLower(f.Description), query) {
			results = append(results, SearchResult{
				Name:       f.Name,
				FullName:   f.FullName,
				Desc:       f.Description,
				Homepage:   f.Homepage,
				Deprecated: f.Deprecated,
				Disabled:   f.Disabled,
			})
		}
	}

	logger.Debug("Found %d formulae matching '%s'", len(results), query)
	return results, nil
}

// AllFormulae returns the full formula catalog. Every call issues a
// conditional GET carrying the cached ETag/Last-Modified validators and
// serves the cached copy when the server answers 304. A transport failure
// on a warm cache falls back to the last good copy rather than failing the
// caller outright.
func (c *Client) AllFormulae() ([]*formula.Formula, error) {
	var meta *model.CacheMetadata
	if c.cache != nil {
		var err error
		meta, err = c.cache.LoadMetadata()
		if err != nil {
			logger.Warn("Failed to read index cache metadata: %v", err)
			meta = &model.CacheMetadata{}
		}
	} else {
		meta = &model.CacheMetadata{}
	}

	url := fmt.Sprintf("%s/formula.json", c.apiDomain)
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if meta.FormulaETag != "" {
		req.Header.Set("If-None-Match", meta.FormulaETag)
	}
	if meta.FormulaModTime != "" {
		req.Header.Set("If-Modified-Since", meta.FormulaModTime)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if c.cache != nil {
			if cached, cacheErr := c.cache.LoadFormulae(); cacheErr == nil && len(cached) > 0 {
				logger.Warn("Failed to refresh formula catalog, serving cached copy: %v", err)
				return cached, nil
			}
		}
		return nil, fmt.Errorf("failed to fetch formulae list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		if c.cache != nil {
			if cached, err := c.cache.LoadFormulae(); err == nil {
				return cached, nil
			}
		}
		return nil, fmt.Errorf("formula catalog not modified but no cached copy available")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var apiFormulae []FormulaAPIResponse
	if err := json.Unmarshal(body, &apiFormulae); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	formulae := make([]*formula.Formula, 0, len(apiFormulae))
	for i := range apiFormulae {
		formulae = append(formulae, convertFormulaAPIResponse(&apiFormulae[i]))
	}

	if c.cache != nil {
		if err := c.cache.SaveFormulae(formulae, resp.Header.Get("ETag"), resp.Header.Get("Last-Modified")); err != nil {
			logger.Warn("Failed to persist formula catalog to cache: %v", err)
		}
	}

	return formulae, nil
}

// listAllFormulae returns just the names from the cached/fetched catalog.
func (c *Client) listAllFormulae() ([]string, error) {
	formulae, err := c.AllFormulae()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(formulae))
	for _, f := range formulae {
		names = append(names, f.Name)
	}
	return names, nil
}

// DownloadBottle fetches the bottle for the given platform tag into the
// cache's downloads directory, delegating the actual transfer (retries,
// GHCR auth, checksum verification) to internal/fetcher.
func (c *Client) DownloadBottle(f *formula.Formula, tag string) (string, error) {
	if f.Bottle == nil || f.Bottle.Stable == nil {
		return "", fmt.Errorf("no bottle available for %s", f.Name)
	}

	bottleFile, exists := f.Bottle.Stable.Files[tag]
	if !exists {
		return "", fmt.Errorf("no bottle available for platform %s", tag)
	}

	downloadDir := filepath.Join(c.config.Cache, "downloads")
	if err := os.MkdirAll(downloadDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}

	req := fetcher.Request{
		Name:           f.Name,
		Version:        f.Version,
		URL:            bottleFile.URL,
		ExpectedSHA256: bottleFile.SHA256,
		DestDir:        downloadDir,
	}

	results := c.fetcher.FetchAll(context.Background(), []fetcher.Request{req})
	result := results[0]
	if result.Err != nil {
		return "", fmt.Errorf("failed to download bottle: %w", result.Err)
	}

	logger.Success("Downloaded bottle: %s", filepath.Base(result.ArchivePath))
	return result.ArchivePath, nil
}

// GetPlatformTag returns the bottle tag for the host, delegating to
// internal/platform's full macOS-codename/linux-arch matrix.
func (c *Client) GetPlatformTag() string {
	return string(c.detector.Tag())
}

// FormulaeForTap returns the catalog's formulae belonging to a single tap,
// memoized by internal/cache until the tap manager invalidates it.
func (c *Client) FormulaeForTap(tapFullName string) ([]*formula.Formula, error) {
	all, err := c.AllFormulae()
	if err != nil {
		return nil, err
	}
	if c.cache == nil {
		var projected []*formula.Formula
		for _, f := range all {
			if f.Tap == tapFullName {
				projected = append(projected, f)
			}
		}
		return projected, nil
	}
	return c.cache.FormulaeForTap(tapFullName, all), nil
}

// GetCask returns a single cask, checking the cached catalog before falling
// back to a live per-token fetch.
func (c *Client) GetCask(name string) (*cask.Cask, error) {
	if c.cache != nil {
		if cached, err := c.cache.LoadCasks(); err == nil {
			for _, ck := range cached {
				if ck.Token == name {
					return ck, nil
				}
			}
		}
	}

	url := fmt.Sprintf("%s/cask/%s.json", c.apiDomain, name)

	resp, err := http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cask: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("cask '%s' not found", name)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed: %s", resp.Status)
	}

	var apiResponse map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, fmt.Errorf("failed to decode API response: %w", err)
	}

	return c.parseCaskFromAPI(apiResponse)
}

// SearchCasks searches the cached cask catalog, auto-populating it on first
// use the same way AllFormulae does for formulae.
func (c *Client) SearchCasks(query string) ([]*cask.Cask, error) {
	catalog, err := c.AllCasks()
	if err != nil {
		return nil, fmt.Errorf("failed to search casks: %w", err)
	}

	var results []*cask.Cask
	queryLower := strings.ToLower(query)

	for _, ck := range catalog {
		if strings.Contains(strings.ToLower(ck.Token), queryLower) || strings.Contains(strings.ToLower(ck.Name), queryLower) {
			results = append(results, ck)
		}
		if len(results) >= 50 {
			break
		}
	}

	return results, nil
}

// AllCasks returns the full cask catalog, conditionally refetched the same
// way AllFormulae is.
func (c *Client) AllCasks() ([]*cask.Cask, error) {
	var meta *model.CacheMetadata
	if c.cache != nil {
		var err error
		meta, err = c.cache.LoadMetadata()
		if err != nil {
			logger.Warn("Failed to read index cache metadata: %v", err)
			meta = &model.CacheMetadata{}
		}
	} else {
		meta = &model.CacheMetadata{}
	}

	url := fmt.Sprintf("%s/cask.json", c.apiDomain)
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if meta.CaskETag != "" {
		req.Header.Set("If-None-Match", meta.CaskETag)
	}
	if meta.CaskModTime != "" {
		req.Header.Set("If-Modified-Since", meta.CaskModTime)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if c.cache != nil {
			if cached, cacheErr := c.cache.LoadCasks(); cacheErr == nil && len(cached) > 0 {
				logger.Warn("Failed to refresh cask catalog, serving cached copy: %v", err)
				return cached, nil
			}
		}
		return nil, fmt.Errorf("failed to fetch cask list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		if c.cache != nil {
			if cached, err := c.cache.LoadCasks(); err == nil {
				return cached, nil
			}
		}
		return nil, fmt.Errorf("cask catalog not modified but no cached copy available")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed: %s", resp.Status)
	}

	var rawList []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&rawList); err != nil {
		return nil, fmt.Errorf("failed to decode cask catalog: %w", err)
	}

	casks := make([]*cask.Cask, 0, len(rawList))
	for _, raw := range rawList {
		if ck, err := c.parseCaskFromAPI(raw); err == nil {
			casks = append(casks, ck)
		}
	}

	if c.cache != nil {
		if err := c.cache.SaveCasks(casks, resp.Header.Get("ETag"), resp.Header.Get("Last-Modified")); err != nil {
			logger.Warn("Failed to persist cask catalog to cache: %v", err)
		}
	}

	return casks, nil
}

// parseCaskFromAPI converts API response to Cask struct
func (c *Client) parseCaskFromAPI(apiData map[string]interface{}) (*cask.Cask, error) {
	caskData := &cask.Cask{}
	
	// Extract basic information
	if token, ok := apiData["token"].(string); ok {
		caskData.Token = token
	}
	
	if name, ok := apiData["name"].(string); ok {
		caskData.Name = name
	}
	
	if fullName, ok := apiData["full_name"].(string); ok {
		caskData.FullName = fullName
	}
	
	if homepage, ok := apiData["homepage"].(string); ok {
		caskData.Homepage = homepage
	}
	
	if desc, ok := apiData["desc"].(string); ok {
		caskData.Description = desc
	}
	
	if version, ok := apiData["version"].(string); ok {
		caskData.Version = version
	}
	
	if sha256, ok := apiData["sha256"].(string); ok {
		caskData.Sha256 = sha256
	}
	
	if caveats, ok := apiData["caveats"].(string); ok {
		caskData.Caveats = caveats
	}
	
	// Extract URL information
	if urlData, ok := apiData["url"].([]interface{}); ok && len(urlData) > 0 {
		for _, urlItem := range urlData {
			if urlMap, ok := urlItem.(map[string]interface{}); ok {
				caskURL := cask.CaskURL{}
				if url, ok := urlMap["url"].(string); ok {
					caskURL.URL = url
				}
				caskData.URL = append(caskData.URL, caskURL)
			}
		}
	} else if urlStr, ok := apiData["url"].(string); ok {
		// Handle simple string URL
		caskData.URL = []cask.CaskURL{{URL: urlStr}}
	}
	
	// Extract artifacts
	if artifactsData, ok := apiData["artifacts"].([]interface{}); ok && len(artifactsData) > 0 {
		artifact := cask.CaskArtifact{}
		
		for _, artifactItem := range artifactsData {
			if artifactMap, ok := artifactItem.(map[string]interface{}); ok {
				// Extract apps
				if apps, ok := artifactMap["app"].([]interface{}); ok {
					for _, appItem := range apps {
						if appStr, ok := appItem.(string); ok {
							artifact.App = append(artifact.App, cask.CaskApp{Source: appStr})
						} else if appMap, ok := appItem.(map[string]interface{}); ok {
							app := cask.CaskApp{}
							if source, ok := appMap["source"].(string); ok {
								app.Source = source
							}
							if target, ok := appMap["target"].(string); ok {
								app.Target = target
							}
							artifact.App = append(artifact.App, app)
						}
					}
				}
				
				// Extract binaries
				if binaries, ok := artifactMap["binary"].([]interface{}); ok {
					for _, binaryItem := range binaries {
						if binaryStr, ok := binaryItem.(string); ok {
							artifact.Binary = append(artifact.Binary, cask.CaskBinary{Source: binaryStr})
						} else if binaryMap, ok := binaryItem.(map[string]interface{}); ok {
							binary := cask.CaskBinary{}
							if source, ok := binaryMap["source"].(string); ok {
								binary.Source = source
							}
							if target, ok := binaryMap["target"].(string); ok {
								binary.Target = target
							}
							artifact.Binary = append(artifact.Binary, binary)
						}
					}
				}
				
				// Extract packages
				if pkgs, ok := artifactMap["pkg"].([]interface{}); ok {
					for _, pkgItem := range pkgs {
						if pkgStr, ok := pkgItem.(string); ok {
							artifact.Pkg = append(artifact.Pkg, pkgStr)
						}
					}
				}
			}
		}
		
		caskData.Artifacts = []cask.CaskArtifact{artifact}
	}
	
	// Extract dependencies
	if depsData, ok := apiData["depends_on"].(map[string]interface{}); ok {
		dep := cask.CaskDependency{}
		
		if macosData, ok := depsData["macos"].(map[string]interface{}); ok {
			macos := &cask.CaskMacOSRequirement{}
			if min, ok := macosData[">="].(string); ok {
				macos.Minimum = min
			}
			if max, ok := macosData["<="].(string); ok {
				macos.Maximum = max
			}
			if exact, ok := macosData["=="].(string); ok {
				macos.Exact = exact
			}
			dep.Macos = macos
		}
		
		if archData, ok := depsData["arch"].([]interface{}); ok {
			for _, archItem := range archData {
				if archStr, ok := archItem.(string); ok {
					dep.Arch = append(dep.Arch, archStr)
				}
			}
		}
		
		caskData.Depends = []cask.CaskDependency{dep}
	}
	
	// Basic validation
	if caskData.Token == "" {
		return nil, fmt.Errorf("invalid cask data: missing token")
	}
	
	return caskData, nil
}