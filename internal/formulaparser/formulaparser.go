// Package formulaparser heuristically scrapes a tap's Ruby formula source
// into a formula.Formula, since tap-sourced formulae carry no bottle and no
// structured index entry the way the official catalog does. Fields are
// extracted by locating `field "` and the next quote; dependency lines are
// scanned for `depends_on` with a `=> :build` suffix distinguishing
// build-only deps; version is inferred from the tarball filename when the
// formula doesn't declare one explicitly.
package formulaparser

import (
	"regexp"
	"strings"

	waxerrors "github.com/wax-pm/wax/internal/errors"
	"github.com/wax-pm/wax/internal/formula"
)

var fieldPattern = func(field string) *regexp.Regexp {
	return regexp.MustCompile(field + `\s+"([^"]*)"`)
}

var (
	urlRe      = fieldPattern("url")
	shaRe      = fieldPattern("sha256")
	descRe     = fieldPattern("desc")
	homepageRe = fieldPattern("homepage")
	licenseRe  = fieldPattern("license")
	versionRe  = fieldPattern("version")
	dependsRe  = regexp.MustCompile(`depends_on\s+"([^"]+)"(.*)`)
)

// Parse scrapes Ruby formula source into a Formula. Unparseable content
// (missing url/sha256, the two fields every formula must declare) yields a
// ParseError; callers should log and skip rather than treat this as fatal —
// a single malformed tap formula must not block the rest of the tap's
// catalog from loading.
func Parse(name string, content []byte) (*formula.Formula, error) {
	text := string(content)

	url := extractField(urlRe, text)
	if url == "" {
		return nil, waxerrors.NewParseError(name, errMissingField("url"))
	}
	sha256 := extractField(shaRe, text)
	if sha256 == "" {
		return nil, waxerrors.NewParseError(name, errMissingField("sha256"))
	}

	version := extractField(versionRe, text)
	if version == "" {
		version = versionFromURL(url)
	}

	deps, buildDeps := extractDependencies(text)

	return &formula.Formula{
		Name:              name,
		Version:           version,
		URL:               url,
		SHA256:            sha256,
		Description:       extractField(descRe, text),
		Homepage:          extractField(homepageRe, text),
		License:           extractField(licenseRe, text),
		Dependencies:      deps,
		BuildDependencies: buildDeps,
	}, nil
}

func extractField(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

func extractDependencies(text string) (runtime, build []string) {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "depends_on") {
			continue
		}
		m := dependsRe.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		name, rest := m[1], m[2]
		if strings.Contains(rest, "=> :build") || strings.Contains(rest, ":build") {
			build = append(build, name)
		} else {
			runtime = append(runtime, name)
		}
	}
	return runtime, build
}

var archiveSuffixes = []string{".tar.gz", ".tar.bz2", ".tar.xz", ".zip"}

// versionFromURL infers a version from the tarball filename when a
// formula doesn't declare one with an explicit `version "..."` line.
func versionFromURL(url string) string {
	parts := strings.Split(url, "/")
	filename := parts[len(parts)-1]
	for _, suffix := range archiveSuffixes {
		filename = strings.TrimSuffix(filename, suffix)
	}
	idx := strings.LastIndex(filename, "-")
	if idx == -1 {
		return "unknown"
	}
	candidate := filename[idx+1:]
	if candidate == "" || !isDigit(candidate[0]) {
		return "unknown"
	}
	return candidate
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func errMissingField(field string) error {
	return &missingFieldError{field: field}
}

type missingFieldError struct{ field string }

func (e *missingFieldError) Error() string {
	return "required field '" + e.field + "' not found in formula"
}
