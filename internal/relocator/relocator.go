// Package relocator rewrites the Homebrew placeholder tokens baked into a
// bottle's text files and patches the dynamic-linker metadata of its ELF
// binaries so the extracted tree works from wherever it was actually
// installed.
//
// A placeholder replacement must never change a file's length, or every
// byte offset after it, including ELF section headers, is invalidated.
// Replacements here are NUL-padded to the original token's length instead
// of using a plain bytes.ReplaceAll.
package relocator

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	waxerrors "github.com/wax-pm/wax/internal/errors"
	"github.com/wax-pm/wax/internal/logger"
)

const (
	// PrefixPlaceholder is the token Homebrew bakes into bottle payloads in
	// place of the build-time install prefix.
	PrefixPlaceholder = "@@HOMEBREW_PREFIX@@"
	// CellarPlaceholder is the token baked in place of the build-time
	// Cellar path.
	CellarPlaceholder = "@@HOMEBREW_CELLAR@@"
)

var elfMagic = []byte{0x7f, 'E', 'L', 'F'}

// Relocator rewrites placeholder tokens in a freshly-extracted keg.
type Relocator struct {
	// PatchelfPath is the resolved path to the patchelf binary, or "" if
	// it could not be found — ELF rpath patching is then skipped with a
	// warning rather than failing the install.
	PatchelfPath string
}

// New resolves patchelf on PATH once, at construction, so every Relocate
// call doesn't re-probe the filesystem.
func New() *Relocator {
	path, _ := exec.LookPath("patchelf")
	return &Relocator{PatchelfPath: path}
}

// Replacements maps each placeholder token to the real path it should be
// replaced with.
type Replacements struct {
	Prefix string
	Cellar string
}

// Relocate walks root and rewrites every placeholder occurrence it finds in
// non-ELF files, then patches rpath/interpreter metadata in ELF binaries.
// Mach-O load commands are not rewritten; Mach-O files only get the
// placeholder byte pass.
func (r *Relocator) Relocate(root string, repl Replacements) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return nil
		}

		elf, err := hasELFMagic(path)
		if err != nil {
			return waxerrors.Wrap(err, "relocate: inspect file", path)
		}

		if elf {
			return r.relocateBinary(path, repl)
		}
		// Mach-O and any other non-ELF binary still carries placeholder
		// tokens and goes through the byte pass like any text file.
		return relocateText(path, repl)
	})
}

// hasELFMagic reports whether path's first four bytes are the ELF header.
func hasELFMagic(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	buf := make([]byte, 4)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return false, err
	}
	return n == 4 && bytes.Equal(buf, elfMagic), nil
}

// relocateText rewrites placeholder tokens in place, padding each
// replacement with NUL bytes to preserve the file's exact length and every
// subsequent byte offset.
func relocateText(path string, repl Replacements) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return waxerrors.Wrap(err, "relocate: read", path)
	}

	rewritten := padReplace(data, PrefixPlaceholder, repl.Prefix)
	rewritten = padReplace(rewritten, CellarPlaceholder, repl.Cellar)

	if bytes.Equal(rewritten, data) {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return waxerrors.Wrap(err, "relocate: stat", path)
	}
	originalMode := info.Mode()

	if err := os.Chmod(path, 0o200); err != nil {
		return waxerrors.Wrap(err, "relocate: chmod for write", path)
	}
	defer os.Chmod(path, originalMode)

	if err := os.WriteFile(path, rewritten, originalMode); err != nil {
		return waxerrors.Wrap(err, "relocate: write", path)
	}
	return nil
}

// padReplace replaces every occurrence of token in data with replacement,
// NUL-padded on the right out to len(token) if replacement is shorter.
// If replacement is longer than token, the original bytes are left
// untouched rather than risk corrupting the file — a bottle whose
// replacement value doesn't fit in the placeholder's reserved width is a
// packaging bug, not something this function can safely repair.
func padReplace(data []byte, token, replacement string) []byte {
	if len(replacement) > len(token) {
		return data
	}
	padded := make([]byte, len(token))
	copy(padded, replacement)

	return bytes.ReplaceAll(data, []byte(token), padded)
}

func (r *Relocator) relocateBinary(path string, repl Replacements) error {
	return r.fixELFRpath(path, repl)
}

func (r *Relocator) fixELFRpath(path string, repl Replacements) error {
	if r.PatchelfPath == "" {
		logger.Debug("patchelf not found on PATH, skipping rpath fix for %s", path)
		return nil
	}

	libDir := filepath.Join(repl.Prefix, "lib")
	rel, err := filepath.Rel(filepath.Dir(path), libDir)
	if err != nil {
		rel = libDir
	}
	rpath := "$ORIGIN"
	if rel != "." {
		rpath = fmt.Sprintf("$ORIGIN/%s", rel)
	}

	if out, err := exec.Command(r.PatchelfPath, "--remove-rpath", path).CombinedOutput(); err != nil {
		logger.Debug("patchelf --remove-rpath failed for %s: %v (%s)", path, err, out)
	}

	if out, err := exec.Command(r.PatchelfPath, "--force-rpath", "--set-rpath", rpath, path).CombinedOutput(); err != nil {
		return waxerrors.Wrap(fmt.Errorf("%w: %s", err, out), "relocate: set rpath", path)
	}

	interpreter := systemInterpreter()
	if interpreter == "" {
		return nil
	}
	printOut, err := exec.Command(r.PatchelfPath, "--print-interpreter", path).Output()
	if err != nil {
		// Not every ELF object is a dynamically linked executable (e.g.
		// static libraries, relocatable objects); absence of an
		// interpreter is not an error.
		return nil
	}
	_ = printOut
	if out, err := exec.Command(r.PatchelfPath, "--set-interpreter", interpreter, path).CombinedOutput(); err != nil {
		logger.Debug("patchelf --set-interpreter failed for %s: %v (%s)", path, err, out)
	}
	return nil
}

func systemInterpreter() string {
	if runtime.GOOS != "linux" {
		return ""
	}
	switch runtime.GOARCH {
	case "amd64":
		return "/lib64/ld-linux-x86-64.so.2"
	case "arm64":
		return "/lib/ld-linux-aarch64.so.1"
	default:
		return ""
	}
}
