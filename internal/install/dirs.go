// Package install resolves where the pdfcat binary belongs on this
// machine and puts it there.
package install

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// PlacementError reports a failure to resolve the install directory
// or to place the binary into it. Always fatal.
type PlacementError struct {
	Dir     string
	Message string
	Err     error
}

func (e *PlacementError) Error() string {
	if e.Dir == "" {
		return fmt.Sprintf("install: %s", e.Message)
	}
	return fmt.Sprintf("install to %s: %s", e.Dir, e.Message)
}

func (e *PlacementError) Unwrap() error {
	return e.Err
}

// ResolveDir picks the installation directory for a run, in
// precedence order: the explicit override, the build tree's
// conventional output directory (source builds only), then the first
// usable per-user default. Directories are created as needed; none of
// the defaults require elevation.
func ResolveDir(override, conventionalDir string) (string, error) {
	if override != "" {
		if err := ensureUsable(override); err != nil {
			return "", &PlacementError{Dir: override, Message: "explicit install directory is unusable", Err: err}
		}
		return filepath.Abs(override)
	}
	if conventionalDir != "" {
		if err := ensureUsable(conventionalDir); err != nil {
			return "", &PlacementError{Dir: conventionalDir, Message: "build output directory is unusable", Err: err}
		}
		return filepath.Abs(conventionalDir)
	}

	candidates := defaultCandidates()
	for _, dir := range candidates {
		if err := ensureUsable(dir); err == nil {
			return dir, nil
		}
	}
	return "", &PlacementError{
		Message: fmt.Sprintf("no usable install directory among defaults %v", candidates),
	}
}

// defaultCandidates lists the conventional per-user binary
// directories for this OS, in preference order.
func defaultCandidates() []string {
	if runtime.GOOS == "windows" {
		var dirs []string
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			dirs = append(dirs, filepath.Join(localAppData, "Programs", "pdfcat"))
		}
		if profile := os.Getenv("USERPROFILE"); profile != "" {
			dirs = append(dirs, filepath.Join(profile, "bin"))
		}
		return dirs
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return []string{
		filepath.Join(home, ".local", "bin"),
		filepath.Join(home, "bin"),
	}
}

// ensureUsable creates dir if needed and probes that files can
// actually be written there. Stat alone lies on directories that
// exist but are read-only.
func ensureUsable(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	probe, err := os.CreateTemp(dir, ".pdfcat-install-probe-*")
	if err != nil {
		return fmt.Errorf("directory not writable: %w", err)
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)
	return nil
}
