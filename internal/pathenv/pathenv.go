// Package pathenv reconciles PATH membership for the install
// directory: if the directory is not already on PATH it is appended
// to the per-user durable store (shell rc file on unix, the user
// environment registry key on Windows) and to this process's own
// PATH so later stages see it.
//
// Failures here never abort an install; the caller reports them as
// warnings alongside an otherwise successful run.
package pathenv

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// ShellType is a login shell whose rc file the installer knows how to
// edit.
type ShellType string

const (
	ShellBash    ShellType = "bash"
	ShellZsh     ShellType = "zsh"
	ShellFish    ShellType = "fish"
	ShellUnknown ShellType = "unknown"
)

func (s ShellType) String() string {
	return string(s)
}

// UpdateError reports a failed durable PATH update.
type UpdateError struct {
	Store   string // rc file path or registry key
	Message string
	Cause   error
}

func (e *UpdateError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("path update (%s): %s: %v", e.Store, e.Message, e.Cause)
	}
	return fmt.Sprintf("path update (%s): %s", e.Store, e.Message)
}

func (e *UpdateError) Unwrap() error {
	return e.Cause
}

// Result describes what reconciliation did.
type Result struct {
	AlreadyOnPath bool      // the live PATH already had the directory
	AlreadyStored bool      // the durable store already had the entry
	Updated       bool      // this run added the entry to the store
	Store         string    // rc file path or registry key touched
	Shell         ShellType // unix only
	NeedsNewShell bool      // existing sessions must restart to see it
}

// Contains reports whether dir is a member of the given PATH value.
// Segments are compared exactly after cleaning, so an overlapping
// prefix ("/usr/local/bin" vs "/usr/local/bin2") never counts.
func Contains(pathList, dir string) bool {
	want := filepath.Clean(dir)
	for _, seg := range filepath.SplitList(pathList) {
		if seg == "" {
			continue
		}
		seg = filepath.Clean(seg)
		if seg == want {
			return true
		}
		if runtime.GOOS == "windows" && strings.EqualFold(seg, want) {
			return true
		}
	}
	return false
}

// Reconcile ensures dir is reachable from PATH. When the live PATH
// already contains it nothing is touched. Otherwise the entry is
// appended once to the durable per-user store and exported into this
// process so the verification stage can run the installed binary.
func Reconcile(dir string) (*Result, error) {
	if Contains(os.Getenv("PATH"), dir) {
		return &Result{AlreadyOnPath: true}, nil
	}

	res, err := persistUserPath(dir)
	if err != nil {
		return nil, err
	}

	os.Setenv("PATH", os.Getenv("PATH")+string(os.PathListSeparator)+dir)
	res.NeedsNewShell = true
	return res, nil
}

// ExportLine renders the line that puts dir on PATH for the given
// shell. Fish gets its own builtin, which is idempotent by itself;
// bash and zsh share POSIX export syntax. On Windows the line targets
// PowerShell, the default terminal shell there.
func ExportLine(shell ShellType, dir string) string {
	if runtime.GOOS == "windows" {
		return fmt.Sprintf(`$env:Path += ";%s"`, dir)
	}
	if shell == ShellFish {
		return fmt.Sprintf("fish_add_path %s", dir)
	}
	return fmt.Sprintf("export PATH=\"$PATH:%s\"", dir)
}
