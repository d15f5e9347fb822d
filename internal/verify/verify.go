// Package verify checks that a placed binary is actually present and
// runnable before the installer declares success.
package verify

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// smokeTimeout bounds the version smoke test. A healthy binary
// answers --version instantly; a hang counts as a failed check.
const smokeTimeout = 30 * time.Second

// MissingError reports an installed binary that is absent or not
// executable. This is the only fatal condition after placement.
type MissingError struct {
	Path    string
	Message string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.Path)
}

// Report is the outcome of verification.
type Report struct {
	Path          string
	Version       string // first line of --version output when the check passed
	VersionFailed bool   // the smoke test failed; the install still stands
	VersionOutput string // captured output of a failed smoke test
}

// Verify confirms the binary at path exists with execute permission,
// then smoke-tests it by running --version. Absence is fatal; a smoke
// test that exits non-zero, crashes, or times out is recorded on the
// report for the caller to warn about.
func Verify(ctx context.Context, path string) (*Report, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &MissingError{Path: path, Message: "installed binary is missing"}
	}
	if !info.Mode().IsRegular() {
		return nil, &MissingError{Path: path, Message: "installed path is not a regular file"}
	}
	if runtime.GOOS != "windows" && info.Mode()&0111 == 0 {
		return nil, &MissingError{Path: path, Message: "installed binary is not executable"}
	}

	rep := &Report{Path: path}

	ctx, cancel := context.WithTimeout(ctx, smokeTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, path, "--version").CombinedOutput()
	if err != nil {
		rep.VersionFailed = true
		rep.VersionOutput = strings.TrimSpace(string(out))
		if rep.VersionOutput == "" {
			rep.VersionOutput = err.Error()
		}
		return rep, nil
	}

	rep.Version = firstLine(string(out))
	return rep, nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
