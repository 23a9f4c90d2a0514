package errors

import (
	"fmt"
	"strings"
	"testing"
)

func TestWaxError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *WaxError
		expected []string
	}{
		{
			name: "network error with all fields",
			err: &WaxError{
				Kind:      NetworkError,
				Operation: "download",
				Package:   "hello",
				Version:   "2.12.2",
				Cause:     fmt.Errorf("connection timeout"),
			},
			expected: []string{"download failed", "for hello", "version 2.12.2", "connection timeout"},
		},
		{
			name: "minimal error",
			err: &WaxError{
				Kind:      BuildError,
				Operation: "compilation",
				Cause:     fmt.Errorf("make failed"),
			},
			expected: []string{"compilation failed", "make failed"},
		},
		{
			name: "formula not found",
			err: &WaxError{
				Kind:    FormulaNotFoundError,
				Package: "nonexistent",
			},
			expected: []string{"for nonexistent"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.err.Error()
			for _, expected := range tt.expected {
				if !strings.Contains(result, expected) {
					t.Errorf("WaxError.Error() = %q, should contain %q", result, expected)
				}
			}
		})
	}
}

func TestWaxError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("underlying error")
	err := &WaxError{Kind: NetworkError, Cause: cause}

	if err.Unwrap() != cause {
		t.Errorf("WaxError.Unwrap() should return the underlying error")
	}
}

func TestWaxError_Is(t *testing.T) {
	err1 := &WaxError{Kind: NetworkError}
	err2 := &WaxError{Kind: NetworkError}
	err3 := &WaxError{Kind: BuildError}
	genericErr := fmt.Errorf("generic error")

	if !err1.Is(err2) {
		t.Errorf("WaxError.Is() should return true for same kind")
	}
	if err1.Is(err3) {
		t.Errorf("WaxError.Is() should return false for different kind")
	}
	if err1.Is(genericErr) {
		t.Errorf("WaxError.Is() should return false for non-WaxError")
	}
}

func TestNewNetworkError(t *testing.T) {
	operation := "download"
	url := "https://github.com/example/repo"
	cause := fmt.Errorf("connection timeout")

	err := NewNetworkError(operation, url, cause)

	if err.Kind != NetworkError {
		t.Errorf("NewNetworkError() Kind = %v, want %v", err.Kind, NetworkError)
	}
	if err.Operation != operation {
		t.Errorf("NewNetworkError() Operation = %v, want %v", err.Operation, operation)
	}
	if err.Cause != cause {
		t.Errorf("NewNetworkError() Cause = %v, want %v", err.Cause, cause)
	}
	if !err.Recoverable {
		t.Errorf("NewNetworkError() should be recoverable")
	}
	if len(err.Suggestions) == 0 {
		t.Errorf("NewNetworkError() should have suggestions")
	}
	if !strings.Contains(strings.Join(err.Suggestions, " "), "GitHub") {
		t.Errorf("NewNetworkError() should include GitHub-specific suggestions for GitHub URLs")
	}
}

func TestNewDependencyError(t *testing.T) {
	pkg := "main-formula"
	dependency := "dep-formula"
	cause := fmt.Errorf("dependency not found")

	err := NewDependencyError(pkg, dependency, cause)

	if err.Kind != DependencyError {
		t.Errorf("NewDependencyError() Kind = %v, want %v", err.Kind, DependencyError)
	}
	if err.Package != pkg {
		t.Errorf("NewDependencyError() Package = %v, want %v", err.Package, pkg)
	}
	if !err.Recoverable {
		t.Errorf("NewDependencyError() should be recoverable")
	}

	hasDepSuggestion := false
	for _, suggestion := range err.Suggestions {
		if strings.Contains(suggestion, dependency) {
			hasDepSuggestion = true
			break
		}
	}
	if !hasDepSuggestion {
		t.Errorf("NewDependencyError() should include dependency-specific suggestions")
	}
}

func TestNewDependencyCycleError(t *testing.T) {
	cycle := []string{"a", "b", "c", "a"}
	err := NewDependencyCycleError(cycle)

	if err.Kind != DependencyCycleError {
		t.Errorf("NewDependencyCycleError() Kind = %v, want %v", err.Kind, DependencyCycleError)
	}
	if err.Recoverable {
		t.Errorf("NewDependencyCycleError() should not be recoverable")
	}
	if !strings.Contains(err.Error(), "a -> b -> c -> a") {
		t.Errorf("NewDependencyCycleError() should describe the cycle, got: %s", err.Error())
	}
}

func TestNewBuildError(t *testing.T) {
	pkg := "test-formula"
	version := "1.0.0"
	cause := fmt.Errorf("compilation failed")

	err := NewBuildError(pkg, version, cause)

	if err.Kind != BuildError {
		t.Errorf("NewBuildError() Kind = %v, want %v", err.Kind, BuildError)
	}
	if err.Package != pkg {
		t.Errorf("NewBuildError() Package = %v, want %v", err.Package, pkg)
	}
	if err.Version != version {
		t.Errorf("NewBuildError() Version = %v, want %v", err.Version, version)
	}
	if err.Recoverable {
		t.Errorf("NewBuildError() should not be recoverable")
	}
}

func TestNewFormulaNotFoundError(t *testing.T) {
	name := "nonexistent-formula"

	err := NewFormulaNotFoundError(name)

	if err.Kind != FormulaNotFoundError {
		t.Errorf("NewFormulaNotFoundError() Kind = %v, want %v", err.Kind, FormulaNotFoundError)
	}
	if err.Package != name {
		t.Errorf("NewFormulaNotFoundError() Package = %v, want %v", err.Package, name)
	}
	if err.Recoverable {
		t.Errorf("NewFormulaNotFoundError() should not be recoverable")
	}

	hasSearchSuggestion := false
	for _, suggestion := range err.Suggestions {
		if strings.Contains(suggestion, "wax search") && strings.Contains(suggestion, name) {
			hasSearchSuggestion = true
			break
		}
	}
	if !hasSearchSuggestion {
		t.Errorf("NewFormulaNotFoundError() should include a search suggestion")
	}
}

func TestNewChecksumMismatchError(t *testing.T) {
	pkg := "test-formula"
	version := "1.0.0"
	expected := "abc123"
	actual := "def456"

	err := NewChecksumMismatchError(pkg, version, expected, actual)

	if err.Kind != ChecksumError {
		t.Errorf("NewChecksumMismatchError() Kind = %v, want %v", err.Kind, ChecksumError)
	}
	if err.Package != pkg {
		t.Errorf("NewChecksumMismatchError() Package = %v, want %v", err.Package, pkg)
	}
	if err.Version != version {
		t.Errorf("NewChecksumMismatchError() Version = %v, want %v", err.Version, version)
	}
	if !err.Recoverable {
		t.Errorf("NewChecksumMismatchError() should be recoverable")
	}

	errMsg := err.Error()
	if !strings.Contains(errMsg, expected) || !strings.Contains(errMsg, actual) {
		t.Errorf("NewChecksumMismatchError() error message should contain both checksums")
	}
}

func TestGetRecoveryOptions(t *testing.T) {
	tests := []struct {
		name         string
		kind         Kind
		expectRetry  bool
		expectIgnore bool
		maxRetries   int
	}{
		{name: "network error", kind: NetworkError, expectRetry: true, expectIgnore: false, maxRetries: 3},
		{name: "dependency error", kind: DependencyError, expectRetry: true, expectIgnore: true, maxRetries: 1},
		{name: "build error", kind: BuildError, expectRetry: false, expectIgnore: false, maxRetries: 0},
		{name: "checksum error", kind: ChecksumError, expectRetry: true, expectIgnore: false, maxRetries: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &WaxError{Kind: tt.kind}
			recovery := GetRecoveryOptions(err)

			if recovery.CanRetry != tt.expectRetry {
				t.Errorf("GetRecoveryOptions() CanRetry = %v, want %v", recovery.CanRetry, tt.expectRetry)
			}
			if recovery.CanIgnore != tt.expectIgnore {
				t.Errorf("GetRecoveryOptions() CanIgnore = %v, want %v", recovery.CanIgnore, tt.expectIgnore)
			}
			if recovery.MaxRetries != tt.maxRetries {
				t.Errorf("GetRecoveryOptions() MaxRetries = %v, want %v", recovery.MaxRetries, tt.maxRetries)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		operation  string
		pkg        string
		expectNil  bool
		expectKind Kind
	}{
		{
			name:      "nil error",
			err:       nil,
			operation: "test",
			pkg:       "test",
			expectNil: true,
		},
		{
			name:       "existing WaxError",
			err:        &WaxError{Kind: NetworkError, Package: "original"},
			operation:  "new-operation",
			pkg:        "new-formula",
			expectNil:  false,
			expectKind: NetworkError,
		},
		{
			name:       "generic error",
			err:        fmt.Errorf("generic error"),
			operation:  "test-operation",
			pkg:        "test-formula",
			expectNil:  false,
			expectKind: InstallationError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Wrap(tt.err, tt.operation, tt.pkg)

			if tt.expectNil {
				if result != nil {
					t.Errorf("Wrap() should return nil for nil error")
				}
				return
			}

			waxErr, ok := result.(*WaxError)
			if !ok {
				t.Errorf("Wrap() should return a *WaxError")
				return
			}
			if waxErr.Kind != tt.expectKind {
				t.Errorf("Wrap() Kind = %v, want %v", waxErr.Kind, tt.expectKind)
			}
			if waxErr.Operation != tt.operation {
				t.Errorf("Wrap() Operation = %v, want %v", waxErr.Operation, tt.operation)
			}
		})
	}
}

func TestIsRecoverable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "recoverable WaxError", err: &WaxError{Recoverable: true}, expected: true},
		{name: "non-recoverable WaxError", err: &WaxError{Recoverable: false}, expected: false},
		{name: "generic error", err: fmt.Errorf("generic error"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := IsRecoverable(tt.err); result != tt.expected {
				t.Errorf("IsRecoverable() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestGetKind(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Kind
	}{
		{name: "WaxError", err: &WaxError{Kind: NetworkError}, expected: NetworkError},
		{name: "generic error", err: fmt.Errorf("generic error"), expected: InstallationError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := GetKind(tt.err); result != tt.expected {
				t.Errorf("GetKind() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestNewDownloadError(t *testing.T) {
	tests := []struct {
		name          string
		operation     string
		url           string
		cause         error
		expectedSuggs []string
	}{
		{
			name:          "404 error",
			operation:     "download",
			url:           "https://example.com/file.tar.gz",
			cause:         fmt.Errorf("HTTP 404: Not Found"),
			expectedSuggs: []string{"moved or deleted"},
		},
		{
			name:          "timeout error",
			operation:     "download",
			url:           "https://example.com/file.tar.gz",
			cause:         fmt.Errorf("context deadline exceeded"),
			expectedSuggs: []string{"slow", "try again later"},
		},
		{
			name:          "generic error",
			operation:     "download",
			url:           "https://example.com/file.tar.gz",
			cause:         fmt.Errorf("connection refused"),
			expectedSuggs: []string{"internet connection"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewDownloadError(tt.operation, tt.url, tt.cause)

			if err.Kind != DownloadError {
				t.Errorf("NewDownloadError() Kind = %v, want %v", err.Kind, DownloadError)
			}
			if !err.Recoverable {
				t.Errorf("NewDownloadError() should be recoverable")
			}

			suggestions := strings.Join(err.Suggestions, " ")
			for _, expectedSugg := range tt.expectedSuggs {
				if !strings.Contains(suggestions, expectedSugg) {
					t.Errorf("NewDownloadError() suggestions should contain %q, got: %v", expectedSugg, err.Suggestions)
				}
			}
		})
	}
}
