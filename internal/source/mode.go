// Package source handles source-build installs: deciding whether a
// run builds from a checkout, materializing a checkout when the
// operator forces a source build, and driving the cargo build.
package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	gogit "github.com/go-git/go-git/v5"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
)

// Marker is the file whose presence identifies a pdfcat checkout.
const Marker = "Cargo.toml"

// Mode is how the binary gets onto the machine. It is decided once
// per run and never changes afterwards.
type Mode int

const (
	// ModeBinaryFetch downloads a prebuilt release asset.
	ModeBinaryFetch Mode = iota
	// ModeSourceBuild compiles pdfcat from a local checkout.
	ModeSourceBuild
)

func (m Mode) String() string {
	switch m {
	case ModeSourceBuild:
		return "source-build"
	case ModeBinaryFetch:
		return "binary-fetch"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// Selection is the decided mode and, for source builds, the project
// directory the build will run in.
type Selection struct {
	Mode       Mode
	ProjectDir string // set only for ModeSourceBuild
	Cloned     bool   // true when the checkout was created by this run
}

// CloneError reports a failed attempt to materialize a checkout for a
// forced source build. It is fatal; the run never falls back to a
// binary fetch once source mode was requested.
type CloneError struct {
	URL     string
	Dir     string
	Message string
	Err     error
}

func (e *CloneError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("clone %s: %s: %v", e.URL, e.Message, e.Err)
	}
	return fmt.Sprintf("clone %s: %s", e.URL, e.Message)
}

func (e *CloneError) Unwrap() error {
	return e.Err
}

// Selector decides the install mode for a run.
type Selector struct {
	cloneURL string
	repoName string
	token    string
}

// NewSelector creates a selector. The clone URL and repository name
// are only used when a source build is forced without a checkout; the
// token, when present, authenticates the clone for private
// repositories.
func NewSelector(cloneURL, repoName, token string) *Selector {
	return &Selector{cloneURL: cloneURL, repoName: repoName, token: token}
}

// Select decides the install mode for a run started in workDir.
//
// A checkout in workDir always wins: when the marker file is present
// the run builds from source regardless of any other setting. With
// force set and no checkout, a clone is created at workDir/<repo> (or
// an existing one with the marker is adopted) and the run proceeds as
// a source build from there. Otherwise the run fetches a prebuilt
// binary.
func (s *Selector) Select(ctx context.Context, workDir string, force bool) (*Selection, error) {
	if hasMarker(workDir) {
		return &Selection{Mode: ModeSourceBuild, ProjectDir: workDir}, nil
	}
	if !force {
		return &Selection{Mode: ModeBinaryFetch}, nil
	}

	dir := filepath.Join(workDir, s.repoName)
	if hasMarker(dir) {
		return &Selection{Mode: ModeSourceBuild, ProjectDir: dir}, nil
	}

	// A build only needs the tip of the default branch.
	opts := &gogit.CloneOptions{URL: s.cloneURL, Depth: 1}
	if s.token != "" {
		// GitHub accepts any username when the password is a token.
		opts.Auth = &githttp.BasicAuth{Username: "x-access-token", Password: s.token}
	}
	if _, err := gogit.PlainCloneContext(ctx, dir, false, opts); err != nil {
		return nil, &CloneError{URL: s.cloneURL, Dir: dir, Message: "cloning repository", Err: err}
	}
	if !hasMarker(dir) {
		return nil, &CloneError{URL: s.cloneURL, Dir: dir, Message: fmt.Sprintf("cloned repository has no %s", Marker)}
	}
	return &Selection{Mode: ModeSourceBuild, ProjectDir: dir, Cloned: true}, nil
}

func hasMarker(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, Marker))
	return err == nil && !info.IsDir()
}

// ReleaseDir is the cargo release-profile output directory for a
// project. The built executable lands here, and in source mode it
// also serves as the conventional install directory.
func ReleaseDir(projectDir string) string {
	return filepath.Join(projectDir, "target", "release")
}
