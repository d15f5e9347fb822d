// Package config captures the installer's environment-derived
// settings as an immutable snapshot taken once at process start.
//
// The installer has no flags; every knob is an environment variable.
// Capturing them in one place keeps later stages deterministic even
// if the environment changes mid-run.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/coreos/go-semver/semver"
)

// BinaryName is the canonical name of the installed executable,
// before any OS suffix.
const BinaryName = "pdfcat"

// Defaults for the release source.
const (
	DefaultOwner   = "pdfcat-dev"
	DefaultRepo    = "pdfcat"
	DefaultAPIBase = "https://api.github.com"
)

// SelectorLatest asks the release host for its latest published
// release rather than a specific tag.
const SelectorLatest = "latest"

// Environment variables honored by the installer.
const (
	EnvVersion     = "PDFCAT_VERSION"
	EnvInstallDir  = "PDFCAT_INSTALL_DIR"
	EnvForceSource = "PDFCAT_BUILD_FROM_SOURCE"
	EnvRepo        = "PDFCAT_REPO"
	EnvAPIBase     = "PDFCAT_API_BASE"
	EnvToken       = "PDFCAT_GITHUB_TOKEN"
	EnvTokenShared = "GITHUB_TOKEN"
)

// Snapshot is the configuration for a single installer run. It is
// populated once by FromEnv and never mutated afterwards.
type Snapshot struct {
	Owner       string // release repository owner
	Repo        string // release repository name
	Selector    string // release selector: SelectorLatest or a tag
	InstallDir  string // explicit install directory, empty when unset
	ForceSource bool   // build from source even without a checkout
	APIBase     string // release API base URL
	Token       string // bearer credential, empty when unavailable
	TokenSource string // provenance of the credential, for progress output
}

// FromEnv reads the environment exactly once and resolves every
// setting. A missing credential is not an error; a malformed
// repository override is.
func FromEnv() (*Snapshot, error) {
	s := &Snapshot{
		Owner:    DefaultOwner,
		Repo:     DefaultRepo,
		Selector: NormalizeSelector(os.Getenv(EnvVersion)),
		APIBase:  DefaultAPIBase,
	}

	if repo := strings.TrimSpace(os.Getenv(EnvRepo)); repo != "" {
		owner, name, ok := strings.Cut(repo, "/")
		if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
			return nil, fmt.Errorf("malformed %s %q: want owner/name", EnvRepo, repo)
		}
		s.Owner, s.Repo = owner, name
	}

	if base := strings.TrimSpace(os.Getenv(EnvAPIBase)); base != "" {
		s.APIBase = strings.TrimRight(base, "/")
	}

	s.InstallDir = strings.TrimSpace(os.Getenv(EnvInstallDir))
	s.ForceSource = isTruthy(os.Getenv(EnvForceSource))
	s.Token, s.TokenSource = resolveToken()

	return s, nil
}

// RepoSlug renders the release repository as "owner/name".
func (s *Snapshot) RepoSlug() string {
	return s.Owner + "/" + s.Repo
}

// CloneURL is the HTTPS clone address of the release repository.
func (s *Snapshot) CloneURL() string {
	return fmt.Sprintf("https://github.com/%s/%s.git", s.Owner, s.Repo)
}

// NormalizeSelector maps a bare semver selector to its v-prefixed
// release tag ("1.0.2" becomes "v1.0.2"). Empty input means latest;
// selectors that do not parse as semver pass through opaquely so
// projects with unconventional tags still resolve.
func NormalizeSelector(selector string) string {
	selector = strings.TrimSpace(selector)
	if selector == "" || selector == SelectorLatest {
		return SelectorLatest
	}
	bare := strings.TrimPrefix(selector, "v")
	if _, err := semver.NewVersion(bare); err != nil {
		return selector
	}
	return "v" + bare
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
