// Package builder defines the narrow interface the installer falls back to
// when a formula has no bottle for the host platform. Building from
// source (autotools/cmake/meson/etc. drivers) is out of scope for this
// installer; NullBuilder keeps that fallback path real and testable
// without reimplementing a source-build system.
package builder

import (
	"context"

	waxerrors "github.com/wax-pm/wax/internal/errors"
	"github.com/wax-pm/wax/internal/formula"
)

// Builder compiles a formula's source tree into a Cellar keg.
type Builder interface {
	Build(ctx context.Context, f *formula.Formula, sourceDir, cellarPath string) error
}

// NullBuilder always refuses, surfacing a clear BuildError instead of
// silently pretending source builds are supported.
type NullBuilder struct{}

// Build implements Builder.
func (NullBuilder) Build(_ context.Context, f *formula.Formula, _, _ string) error {
	return waxerrors.NewBuildError(f.Name, f.Version, errSourceBuildsUnsupported)
}

var errSourceBuildsUnsupported = buildUnsupportedError{}

type buildUnsupportedError struct{}

func (buildUnsupportedError) Error() string {
	return "source builds are not implemented by this installer; install a version with a published bottle"
}
