// Package run drives one install from platform detection through
// verification, in a fixed stage order.
package run

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcat-dev/pdfcat-installer/internal/artifact"
	"github.com/pdfcat-dev/pdfcat-installer/internal/config"
	"github.com/pdfcat-dev/pdfcat-installer/internal/install"
	"github.com/pdfcat-dev/pdfcat-installer/internal/pathenv"
	"github.com/pdfcat-dev/pdfcat-installer/internal/platform"
	"github.com/pdfcat-dev/pdfcat-installer/internal/receipt"
	"github.com/pdfcat-dev/pdfcat-installer/internal/release"
	"github.com/pdfcat-dev/pdfcat-installer/internal/source"
	"github.com/pdfcat-dev/pdfcat-installer/internal/ui"
	"github.com/pdfcat-dev/pdfcat-installer/internal/verify"
)

// SourceTag marks a local build in place of a release tag.
const SourceTag = "source"

// Stage names the phase of the run a failure or warning belongs to.
type Stage string

const (
	StagePlatform Stage = "detect platform"
	StageMode     Stage = "select mode"
	StageResolve  Stage = "resolve release"
	StageSelect   Stage = "select asset"
	StageDownload Stage = "download"
	StageExtract  Stage = "extract"
	StageLocate   Stage = "locate binary"
	StageBuild    Stage = "build from source"
	StagePlace    Stage = "place binary"
	StagePath     Stage = "update PATH"
	StageVerify   Stage = "verify install"
	StageCleanup  Stage = "clean workspace"
	StageReceipt  Stage = "write receipt"
)

// Failure is the fatal error that ended a run, tagged with the stage
// it happened in. There is at most one per run; the coordinator stops
// at the first.
type Failure struct {
	Stage Stage
	Err   error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Stage, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Warning records a problem the install survived.
type Warning struct {
	Stage   Stage
	Message string
}

// Outcome is what a run produced. On failure the early fields still
// describe how far the run got.
type Outcome struct {
	Platform        platform.Tag
	Mode            source.Mode
	Tag             string          // release tag, or SourceTag for local builds
	Previous        *receipt.Record // receipt of an earlier install, if one was readable
	Installed       string          // final path of the binary, empty on failure
	InstallDir      string
	ReportedVersion string // what the binary said to --version
	NeedsNewShell   bool   // PATH changed; existing sessions will not see it
	ExportHint      string // line to add manually when the PATH store was not updated
	WorkspaceDir    string // scratch dir used by this run, already removed
	Warnings        []Warning
}

func (o *Outcome) warnf(stage Stage, format string, a ...any) {
	o.Warnings = append(o.Warnings, Warning{Stage: stage, Message: fmt.Sprintf(format, a...)})
}

// Coordinator wires the stages of one install run together.
type Coordinator struct {
	cfg      *config.Snapshot
	version  string // installer version, reported in the User-Agent
	detector platform.Detector
	out      *ui.Printer
	workDir  string // mode selection root, defaults to the current directory
}

// New creates a coordinator for one run.
func New(cfg *config.Snapshot, installerVersion string, out *ui.Printer) *Coordinator {
	return &Coordinator{
		cfg:      cfg,
		version:  installerVersion,
		detector: platform.NewDetector(),
		out:      out,
	}
}

// Run executes the install. The returned Outcome is never nil. A nil
// error means the binary is installed, possibly with warnings; a
// non-nil error is always a *Failure and the scratch workspace has
// been cleaned up either way.
func (c *Coordinator) Run(ctx context.Context) (*Outcome, error) {
	out := &Outcome{}

	var ws *Workspace
	defer func() {
		if err := ws.Close(); err != nil {
			c.out.Warnf("warning: %v\n", err)
			out.warnf(StageCleanup, "%v", err)
		}
	}()

	host, err := c.detector.Detect(ctx)
	if err != nil {
		return out, &Failure{Stage: StagePlatform, Err: err}
	}
	out.Platform = host.Tag
	c.out.Donef("✓ Detected %s\n", host.Describe())

	// A readable receipt from an earlier run is reported for context.
	// Missing or unreadable receipts never influence a fresh install.
	if prev, err := receipt.Load(); err == nil {
		out.Previous = prev
		c.out.Stepf("Previous install: %s (%s)\n", prev.Version, prev.Path)
	}

	workDir := c.workDir
	if workDir == "" {
		if workDir, err = os.Getwd(); err != nil {
			return out, &Failure{Stage: StageMode, Err: err}
		}
	}
	if c.cfg.TokenSource != "" {
		c.out.Stepf("Using credential from %s\n", c.cfg.TokenSource)
	}

	sel, err := source.NewSelector(c.cfg.CloneURL(), c.cfg.Repo, c.cfg.Token).
		Select(ctx, workDir, c.cfg.ForceSource)
	if err != nil {
		return out, &Failure{Stage: StageMode, Err: err}
	}
	out.Mode = sel.Mode

	exeName := host.Tag.ExecutableName(config.BinaryName)

	var exePath, conventionalDir string
	switch sel.Mode {
	case source.ModeSourceBuild:
		c.out.Stepf("Building %s from source in %s\n", config.BinaryName, sel.ProjectDir)
		res, err := source.NewBuilder(sel.ProjectDir).Build(ctx, exeName)
		if err != nil {
			return out, &Failure{Stage: StageBuild, Err: err}
		}
		if res.TestsFailed {
			msg := fmt.Sprintf("test suite failed, continuing with the build: %s", clip(res.TestOutput, 2000))
			c.out.Warnf("warning: %s\n", msg)
			out.warnf(StageBuild, "%s", msg)
		}
		c.out.Donef("✓ Built %s\n", exeName)
		exePath = res.ExePath
		conventionalDir = source.ReleaseDir(sel.ProjectDir)
		out.Tag = SourceTag

	default:
		exePath, ws, err = c.fetchArtifact(ctx, host, out)
		if err != nil {
			return out, err
		}
	}

	dir, err := install.ResolveDir(c.cfg.InstallDir, conventionalDir)
	if err != nil {
		return out, &Failure{Stage: StagePlace, Err: err}
	}
	placed, err := install.Place(exePath, dir, exeName)
	if err != nil {
		return out, &Failure{Stage: StagePlace, Err: err}
	}
	out.Installed = placed.Path
	out.InstallDir = placed.Dir
	c.out.Donef("✓ Installed %s\n", placed.Path)

	// Source builds stay inside the checkout; pointing PATH at a
	// target/release directory would go stale on the next cargo clean.
	if sel.Mode == source.ModeBinaryFetch {
		c.reconcilePath(placed.Dir, out)
	}

	rep, err := verify.Verify(ctx, placed.Path)
	if err != nil {
		return out, &Failure{Stage: StageVerify, Err: err}
	}
	if rep.VersionFailed {
		msg := fmt.Sprintf("installed binary failed its version check: %s", clip(rep.VersionOutput, 2000))
		c.out.Warnf("warning: %s\n", msg)
		out.warnf(StageVerify, "%s", msg)
	} else {
		out.ReportedVersion = rep.Version
		c.out.Donef("✓ %s\n", rep.Version)
	}

	rec := receipt.NewRecord(out.Tag, out.Mode.String(), out.Platform.String(), placed.Path)
	if err := receipt.Write(rec); err != nil {
		c.out.Warnf("warning: %v\n", err)
		out.warnf(StageReceipt, "%v", err)
	}

	return out, nil
}

// fetchArtifact resolves the release and pulls the platform asset out
// of it. The returned workspace is non-nil once the download began,
// even on failure, so the caller's deferred Close always runs.
func (c *Coordinator) fetchArtifact(ctx context.Context, host *platform.Host, out *Outcome) (string, *Workspace, error) {
	client := release.NewClient(c.cfg.APIBase, c.cfg.Token, c.version)

	c.out.Stepf("Resolving %s release %s\n", c.cfg.RepoSlug(), c.cfg.Selector)
	rel, err := client.Resolve(ctx, c.cfg.Owner, c.cfg.Repo, c.cfg.Selector)
	if err != nil {
		return "", nil, &Failure{Stage: StageResolve, Err: err}
	}
	out.Tag = rel.TagName
	c.out.Donef("✓ Release %s (%d assets)\n", rel.TagName, len(rel.Assets))

	asset, err := artifact.SelectAsset(rel, host.Tag, config.BinaryName)
	if err != nil {
		return "", nil, &Failure{Stage: StageSelect, Err: err}
	}

	ws, err := NewWorkspace()
	if err != nil {
		return "", nil, &Failure{Stage: StageDownload, Err: err}
	}
	out.WorkspaceDir = ws.Dir

	c.out.Stepf("Downloading %s (%s)\n", asset.Name, formatSize(asset.Size))
	archivePath, err := artifact.NewDownloader(client.Token(), client.UserAgent()).
		Fetch(ctx, asset, ws.Dir)
	if err != nil {
		return "", ws, &Failure{Stage: StageDownload, Err: err}
	}

	extractDir := filepath.Join(ws.Dir, "extracted")
	if err := artifact.NewExtractor().Extract(archivePath, extractDir); err != nil {
		return "", ws, &Failure{Stage: StageExtract, Err: err}
	}

	exeName := host.Tag.ExecutableName(config.BinaryName)
	exePath, err := artifact.Locate(extractDir, exeName)
	if err != nil {
		return "", ws, &Failure{Stage: StageLocate, Err: err}
	}
	c.out.Donef("✓ Extracted %s\n", exeName)
	return exePath, ws, nil
}

// reconcilePath makes sure the install directory is reachable from
// PATH. Nothing here can fail the run.
func (c *Coordinator) reconcilePath(dir string, out *Outcome) {
	res, err := pathenv.Reconcile(dir)
	if err != nil {
		out.ExportHint = pathenv.ExportLine(pathenv.ShellUnknown, dir)
		c.out.Warnf("warning: %v\n", err)
		out.warnf(StagePath, "%v", err)
		return
	}
	switch {
	case res.AlreadyOnPath:
		c.out.Donef("✓ %s already on PATH\n", dir)
	case res.AlreadyStored:
		c.out.Donef("✓ %s already configured in %s\n", dir, res.Store)
	case res.Updated:
		c.out.Donef("✓ Added %s to PATH via %s\n", dir, res.Store)
	}
	if res.NeedsNewShell {
		out.NeedsNewShell = true
		out.ExportHint = pathenv.ExportLine(res.Shell, dir)
	}
}

func clip(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max] + " ..."
}

func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
