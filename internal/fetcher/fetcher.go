// Package fetcher implements the Archive Fetcher: concurrent, checksum-
// verified download and extraction of formula bottles, bounded by a
// process-global semaphore so a large install plan never opens more than
// a handful of sockets at once. Each package's fetch runs as an
// independent task under golang.org/x/sync/semaphore + errgroup, so one
// failure never cancels its siblings.
package fetcher

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	waxerrors "github.com/wax-pm/wax/internal/errors"
	"github.com/wax-pm/wax/internal/logger"
	"github.com/wax-pm/wax/internal/utils"
)

// MaxConcurrentFetches bounds how many bottle downloads run at once.
const MaxConcurrentFetches = 8

// processSem is the process-global limiter every Fetcher acquires from.
var processSem = semaphore.NewWeighted(MaxConcurrentFetches)

// PerPackageTimeout bounds a single package's entire fetch, from request to
// verified-on-disk archive.
const PerPackageTimeout = 5 * time.Minute

// Request describes one bottle to fetch and verify.
type Request struct {
	Name           string
	Version        string
	URL            string
	ExpectedSHA256 string
	DestDir        string
}

// Result is what a completed (or failed) fetch produced.
type Result struct {
	Request    Request
	ArchivePath string
	Err        error
}

// Fetcher owns the HTTP client shared by every download in a single install
// run and acquires slots from the process-global limiter.
type Fetcher struct {
	client    *http.Client
	userAgent string
	sem       *semaphore.Weighted
}

// New builds a Fetcher with the given User-Agent string and the package's
// fixed concurrency cap.
func New(userAgent string) *Fetcher {
	return &Fetcher{
		client:    &http.Client{Timeout: PerPackageTimeout},
		userAgent: userAgent,
		sem:       processSem,
	}
}

// FetchAll runs every request concurrently under the shared semaphore and
// returns one Result per request, index-aligned with reqs. A single
// package's failure never cancels its siblings: each goroutine's outcome,
// success or error, is captured into results rather than propagated through
// errgroup's Wait.
func (f *Fetcher) FetchAll(ctx context.Context, reqs []Request) []Result {
	results := make([]Result, len(reqs))
	g, gctx := errgroup.WithContext(context.Background())

	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			if err := f.sem.Acquire(gctx, 1); err != nil {
				results[i] = Result{Request: req, Err: err}
				return nil
			}
			defer f.sem.Release(1)

			fetchCtx, cancel := context.WithTimeout(ctx, PerPackageTimeout)
			defer cancel()

			path, err := f.fetchOne(fetchCtx, req)
			results[i] = Result{Request: req, ArchivePath: path, Err: err}
			return nil
		})
	}

	_ = g.Wait()
	return results
}

func (f *Fetcher) fetchOne(ctx context.Context, req Request) (string, error) {
	if err := os.MkdirAll(req.DestDir, 0o755); err != nil {
		return "", waxerrors.NewPermissionError("create download directory", req.DestDir, err)
	}

	filename := fmt.Sprintf("%s-%s.bottle.tar.gz", req.Name, req.Version)
	dest := filepath.Join(req.DestDir, filename)

	if isFileValid(dest, req.ExpectedSHA256) {
		logger.Verbose("using cached archive for %s: %s", req.Name, dest)
		return dest, nil
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return "", waxerrors.NewDownloadError("build request", req.URL, err)
	}
	httpReq.Header.Set("User-Agent", f.userAgent)

	if strings.Contains(req.URL, "ghcr.io") {
		if err := f.addGHCRAuth(ctx, httpReq); err != nil {
			logger.Debug("GHCR authentication for %s failed, continuing anonymously: %v", req.Name, err)
		}
	}

	resp, err := f.downloadWithRetry(ctx, httpReq, req.URL)
	if err != nil {
		return "", waxerrors.NewDownloadError("download", req.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", waxerrors.NewDownloadError("download", req.URL, fmt.Errorf("status %d", resp.StatusCode))
	}

	out, err := os.Create(dest)
	if err != nil {
		return "", waxerrors.NewPermissionError("create archive file", dest, err)
	}

	written, err := io.Copy(out, resp.Body)
	closeErr := out.Close()
	if err != nil {
		os.Remove(dest)
		return "", waxerrors.NewDownloadError("save archive", req.URL, err)
	}
	if closeErr != nil {
		os.Remove(dest)
		return "", waxerrors.NewDownloadError("save archive", req.URL, closeErr)
	}

	if !isFileValid(dest, req.ExpectedSHA256) {
		actual, _ := utils.ComputeSHA256(dest)
		os.Remove(dest)
		return "", waxerrors.NewChecksumMismatchError(req.Name, req.Version, req.ExpectedSHA256, actual)
	}

	logger.Success("fetched %s (%s)", req.Name, humanize.Bytes(uint64(written)))
	return dest, nil
}

func isFileValid(path, expectedSHA256 string) bool {
	if _, err := os.Stat(path); err != nil {
		return false
	}
	if expectedSHA256 == "" {
		return true
	}
	return utils.VerifySHA256(path, expectedSHA256) == nil
}

// downloadWithRetry retries up to two extra attempts, re-authenticating
// against GHCR on 401/403 before giving up.
func (f *Fetcher) downloadWithRetry(ctx context.Context, req *http.Request, url string) (*http.Response, error) {
	const maxRetries = 2

	for attempt := 0; attempt <= maxRetries; attempt++ {
		clone := req.Clone(ctx)

		resp, err := f.client.Do(clone)
		if err != nil {
			if attempt == maxRetries {
				return nil, err
			}
			logger.Debug("download attempt %d for %s failed: %v, retrying", attempt+1, url, err)
			continue
		}

		if (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) &&
			strings.Contains(url, "ghcr.io") && attempt < maxRetries {
			resp.Body.Close()
			clone.Header.Del("Authorization")
			if err := f.addGHCRAuth(ctx, clone); err != nil {
				logger.Debug("failed to refresh GHCR auth: %v", err)
			}
			continue
		}

		return resp, nil
	}

	return nil, fmt.Errorf("download failed after %d attempts", maxRetries+1)
}

// addGHCRAuth implements the Docker Registry v2 anonymous-token flow,
// extracting the exact repository scope from the blob URL's path
// (/v2/<repo>/blobs/...) instead of defaulting to a fixed repository name.
func (f *Fetcher) addGHCRAuth(ctx context.Context, req *http.Request) error {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
		return nil
	}

	scope := ghcrScopeFromPath(req.URL.Path)
	tokenURL := fmt.Sprintf("https://ghcr.io/token?service=ghcr.io&scope=repository:%s:pull", scope)

	tokenReq, err := http.NewRequestWithContext(ctx, http.MethodGet, tokenURL, nil)
	if err != nil {
		return err
	}
	tokenReq.Header.Set("User-Agent", f.userAgent)
	tokenReq.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(tokenReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GHCR token request failed with status %d", resp.StatusCode)
	}

	var tokenResponse struct {
		Token       string `json:"token"`
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResponse); err != nil {
		return err
	}

	token := tokenResponse.Token
	if token == "" {
		token = tokenResponse.AccessToken
	}
	if token == "" {
		return fmt.Errorf("no token in GHCR response")
	}

	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// ghcrScopeFromPath extracts "<owner>/<repo>" from a registry blob path of
// the form /v2/<owner>/<repo>/blobs/sha256:....
func ghcrScopeFromPath(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	var segments []string
	for _, p := range parts {
		if p == "v2" || p == "blobs" || p == "" {
			continue
		}
		if strings.HasPrefix(p, "sha256:") {
			break
		}
		segments = append(segments, p)
	}
	if len(segments) == 0 {
		return "homebrew/core"
	}
	return strings.Join(segments, "/")
}

// Extract unpacks a gzip-tar bottle archive into destDir, preserving file
// modes and symlinks.
func Extract(archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return waxerrors.Wrap(err, "extract: open archive", archivePath)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return waxerrors.Wrap(err, "extract: gzip", archivePath)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return waxerrors.Wrap(err, "extract: read tar entry", archivePath)
		}

		target := filepath.Join(destDir, header.Name)
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return waxerrors.Wrap(fmt.Errorf("tar entry %q escapes destination", header.Name), "extract", archivePath)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, os.FileMode(header.Mode)); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, os.FileMode(header.Mode))
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return err
			}
			out.Close()
		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			os.Remove(target)
			if err := os.Symlink(header.Linkname, target); err != nil {
				return err
			}
		}
	}
}
