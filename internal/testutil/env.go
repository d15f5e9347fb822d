// Package testutil provides utilities for testing the installer in
// isolation.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// SetupTestEnv points every ambient input the installer reads at a
// scratch directory, so tests never touch:
// - the account's real shell rc files
// - the user config directory and any previous install receipt
// - installer overrides exported in the developer's own environment
//
// PATH is re-set to its current value so mutations made by the code
// under test are rolled back with the rest. Cleanup is handled by
// t.Setenv and t.TempDir. Returns the scratch home directory.
func SetupTestEnv(t *testing.T) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("SHELL", "/bin/bash")
	t.Setenv("PATH", os.Getenv("PATH"))

	for _, key := range []string{
		"PDFCAT_VERSION",
		"PDFCAT_INSTALL_DIR",
		"PDFCAT_BUILD_FROM_SOURCE",
		"PDFCAT_GITHUB_TOKEN",
		"PDFCAT_REPO",
		"PDFCAT_API_BASE",
		"GITHUB_TOKEN",
	} {
		t.Setenv(key, "")
	}

	return home
}
