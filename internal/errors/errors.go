// Package errors provides the structured error taxonomy shared across wax's
// components, covering the full set of failure kinds the engine can report.
package errors

import (
	"fmt"
	"strings"
)

// Kind categorizes a failure so callers can branch on it with errors.As
// without string-matching messages.
type Kind int

const (
	NetworkError Kind = iota
	DependencyError
	DependencyCycleError
	BuildError
	PermissionError
	FormulaNotFoundError
	CaskNotFoundError
	NotInstalledError
	BottleNotAvailableError
	ChecksumError
	ConfigurationError
	InstallationError
	DownloadError
	CacheErrorKind
	LockfileErrorKind
	TapErrorKind
	ParseErrorKind
	PlatformNotSupportedError
)

// WaxError is the structured error type every component returns instead of
// a bare fmt.Errorf, so the CLI layer can render consistent diagnostics.
type WaxError struct {
	Kind        Kind
	Operation   string
	Package     string
	Version     string
	Platform    string
	Cause       error
	Suggestions []string
	Recoverable bool
}

func (e *WaxError) Error() string {
	var parts []string

	if e.Operation != "" {
		parts = append(parts, fmt.Sprintf("%s failed", e.Operation))
	}
	if e.Package != "" {
		parts = append(parts, fmt.Sprintf("for %s", e.Package))
	}
	if e.Version != "" {
		parts = append(parts, fmt.Sprintf("version %s", e.Version))
	}
	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("reason: %v", e.Cause))
	}
	return strings.Join(parts, " ")
}

func (e *WaxError) Unwrap() error { return e.Cause }

func (e *WaxError) Is(target error) bool {
	if other, ok := target.(*WaxError); ok {
		return e.Kind == other.Kind
	}
	return false
}

func NewNetworkError(operation, url string, cause error) *WaxError {
	suggestions := []string{
		"check your internet connection",
		"verify that the URL is reachable",
		"try again in a few minutes",
	}
	if strings.Contains(url, "github.com") || strings.Contains(url, "ghcr.io") {
		suggestions = append(suggestions, "check GitHub's status at https://status.github.com")
	}
	return &WaxError{Kind: NetworkError, Operation: operation, Cause: cause, Suggestions: suggestions, Recoverable: true}
}

func NewDependencyError(pkg, dependency string, cause error) *WaxError {
	return &WaxError{
		Kind:      DependencyError,
		Operation: "dependency resolution",
		Package:   pkg,
		Cause:     cause,
		Suggestions: []string{
			fmt.Sprintf("try installing %q separately first", dependency),
			"check if the dependency name is correct",
			"use --ignore-dependencies to skip dependency checks",
		},
		Recoverable: true,
	}
}

func NewDependencyCycleError(cycle []string) *WaxError {
	return &WaxError{
		Kind:      DependencyCycleError,
		Operation: "dependency resolution",
		Package:   strings.Join(cycle, " -> "),
		Cause:     fmt.Errorf("circular dependency: %s", strings.Join(cycle, " -> ")),
		Suggestions: []string{
			"one of these formulae has a dependency loop that needs to be fixed upstream",
		},
		Recoverable: false,
	}
}

func NewBuildError(pkg, version string, cause error) *WaxError {
	return &WaxError{
		Kind:      BuildError,
		Operation: "build",
		Package:   pkg,
		Version:   version,
		Cause:     cause,
		Suggestions: []string{
			"this installer does not build from source; wait for a bottle or install it yourself",
		},
		Recoverable: false,
	}
}

func NewPermissionError(operation, path string, cause error) *WaxError {
	return &WaxError{
		Kind:      PermissionError,
		Operation: operation,
		Cause:     cause,
		Suggestions: []string{
			"check file and directory permissions at " + path,
			"ensure you have write access to the installation prefix",
		},
		Recoverable: true,
	}
}

func NewFormulaNotFoundError(name string) *WaxError {
	return &WaxError{
		Kind:      FormulaNotFoundError,
		Operation: "formula lookup",
		Package:   name,
		Suggestions: []string{
			fmt.Sprintf("search for similar formulae with 'wax search %s'", name),
			"check if the formula name is spelled correctly",
			"run 'wax update' to refresh the catalog",
			"check if the formula lives in a tap that still needs to be added",
		},
		Recoverable: false,
	}
}

func NewCaskNotFoundError(token string) *WaxError {
	return &WaxError{
		Kind:      CaskNotFoundError,
		Operation: "cask lookup",
		Package:   token,
		Suggestions: []string{
			fmt.Sprintf("search for similar casks with 'wax search --cask %s'", token),
			"run 'wax update' to refresh the catalog",
		},
		Recoverable: false,
	}
}

func NewNotInstalledError(name string) *WaxError {
	return &WaxError{
		Kind:        NotInstalledError,
		Operation:   "lookup",
		Package:     name,
		Suggestions: []string{fmt.Sprintf("install it first with 'wax install %s'", name)},
		Recoverable: false,
	}
}

func NewBottleNotAvailableError(name, version, platform string) *WaxError {
	return &WaxError{
		Kind:      BottleNotAvailableError,
		Operation: "bottle selection",
		Package:   name,
		Version:   version,
		Platform:  platform,
		Cause:     fmt.Errorf("no bottle published for platform %s", platform),
		Suggestions: []string{
			"this formula has no prebuilt bottle for your platform",
			"check upstream for a newer release that may add one",
		},
		Recoverable: false,
	}
}

func NewDownloadError(operation, url string, cause error) *WaxError {
	suggestions := []string{
		"check your internet connection",
		"verify the download URL is still valid",
	}
	if cause != nil {
		msg := cause.Error()
		if strings.Contains(msg, "404") {
			suggestions = append(suggestions, "the archive may have been moved or deleted upstream")
		}
		if strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded") {
			suggestions = append(suggestions, "the server may be slow right now, try again later")
		}
	}
	return &WaxError{Kind: DownloadError, Operation: operation, Cause: cause, Suggestions: suggestions, Recoverable: true}
}

func NewChecksumMismatchError(pkg, version, expected, actual string) *WaxError {
	return &WaxError{
		Kind:      ChecksumError,
		Operation: "checksum verification",
		Package:   pkg,
		Version:   version,
		Cause:     fmt.Errorf("checksum mismatch: expected %s, got %s", expected, actual),
		Suggestions: []string{
			"the download may be corrupted, try clearing the cache and retrying",
			"report this if it persists, the upstream bottle may be broken",
		},
		Recoverable: true,
	}
}

func NewConfigurationError(operation string, cause error) *WaxError {
	return &WaxError{
		Kind:      ConfigurationError,
		Operation: operation,
		Cause:     cause,
		Suggestions: []string{
			"check your wax configuration and WAX_* environment variables",
		},
		Recoverable: true,
	}
}

func NewInstallationError(pkg, version string, cause error) *WaxError {
	return &WaxError{
		Kind:      InstallationError,
		Operation: "installation",
		Package:   pkg,
		Version:   version,
		Cause:     cause,
		Suggestions: []string{
			"re-run with --verbose for more detail",
		},
		Recoverable: false,
	}
}

func NewCacheError(operation string, cause error) *WaxError {
	return &WaxError{Kind: CacheErrorKind, Operation: operation, Cause: cause, Recoverable: true}
}

func NewLockfileError(operation string, cause error) *WaxError {
	return &WaxError{Kind: LockfileErrorKind, Operation: operation, Cause: cause, Recoverable: true}
}

func NewTapError(tap, operation string, cause error) *WaxError {
	return &WaxError{Kind: TapErrorKind, Operation: operation, Package: tap, Cause: cause, Recoverable: true}
}

func NewParseError(source string, cause error) *WaxError {
	return &WaxError{Kind: ParseErrorKind, Operation: "parse", Package: source, Cause: cause, Recoverable: false}
}

func NewPlatformNotSupportedError(platform string) *WaxError {
	return &WaxError{
		Kind:        PlatformNotSupportedError,
		Operation:   "platform detection",
		Platform:    platform,
		Cause:       fmt.Errorf("platform %s is not supported", platform),
		Recoverable: false,
	}
}

// Recovery describes how the CLI layer may react to a given error.
type Recovery struct {
	CanRetry          bool
	CanIgnore         bool
	CanUseAlternative bool
	RetryDelay        int
	MaxRetries        int
}

func GetRecoveryOptions(err *WaxError) Recovery {
	switch err.Kind {
	case NetworkError, DownloadError:
		return Recovery{CanRetry: true, RetryDelay: 5, MaxRetries: 3}
	case ChecksumError:
		return Recovery{CanRetry: true, RetryDelay: 1, MaxRetries: 2}
	case DependencyError:
		return Recovery{CanRetry: true, CanIgnore: true, CanUseAlternative: true, MaxRetries: 1}
	case PermissionError, ConfigurationError:
		return Recovery{CanRetry: true, MaxRetries: 1}
	default:
		return Recovery{}
	}
}

// Wrap attaches operation/package context to err, promoting it to a
// *WaxError if it isn't one already.
func Wrap(err error, operation, pkg string) error {
	if err == nil {
		return nil
	}
	if waxErr, ok := err.(*WaxError); ok {
		waxErr.Operation = operation
		if waxErr.Package == "" {
			waxErr.Package = pkg
		}
		return waxErr
	}
	return &WaxError{Kind: InstallationError, Operation: operation, Package: pkg, Cause: err}
}

func IsRecoverable(err error) bool {
	if waxErr, ok := err.(*WaxError); ok {
		return waxErr.Recoverable
	}
	return false
}

func GetKind(err error) Kind {
	if waxErr, ok := err.(*WaxError); ok {
		return waxErr.Kind
	}
	return InstallationError
}
