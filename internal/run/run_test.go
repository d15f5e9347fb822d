package run

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/pdfcat-dev/pdfcat-installer/internal/artifact"
	"github.com/pdfcat-dev/pdfcat-installer/internal/config"
	"github.com/pdfcat-dev/pdfcat-installer/internal/platform"
	"github.com/pdfcat-dev/pdfcat-installer/internal/receipt"
	"github.com/pdfcat-dev/pdfcat-installer/internal/release"
	"github.com/pdfcat-dev/pdfcat-installer/internal/source"
	"github.com/pdfcat-dev/pdfcat-installer/internal/testutil"
	"github.com/pdfcat-dev/pdfcat-installer/internal/ui"
)

// packageEntry builds a one-entry tar.gz in the release asset layout.
func packageEntry(t *testing.T, name, content string, mode int64) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	if err := tw.WriteHeader(&tar.Header{
		Name:     name,
		Mode:     mode,
		Size:     int64(len(content)),
		Typeflag: tar.TypeReg,
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := tw.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// packageBinary wraps a shell script as the packaged pdfcat executable.
func packageBinary(t *testing.T, script string) []byte {
	return packageEntry(t, "pdfcat-dist/pdfcat", "#!/bin/sh\n"+script+"\n", 0o755)
}

// hostAssetName names an asset the way a release for this host would.
func hostAssetName(t *testing.T, tag string) string {
	t.Helper()
	host, err := platform.NewDetector().Detect(context.Background())
	if err != nil {
		t.Skipf("host platform unsupported: %v", err)
	}
	return "pdfcat-" + tag + "-" + host.Tag.String() + host.Tag.ArchiveExt()
}

// releaseServer serves a single release whose one asset downloads the
// given archive bytes.
func releaseServer(t *testing.T, tag, assetName string, archive []byte) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	assetURL := srv.URL + "/assets/1"
	mux.HandleFunc("/repos/pdfcat-dev/pdfcat/releases/latest", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"tag_name":%q,"assets":[{"name":%q,"url":%q,"size":%d}]}`,
			tag, assetName, assetURL, len(archive))
	})
	mux.HandleFunc("/assets/1", func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	})
	return srv
}

func testConfig(apiBase, installDir string) *config.Snapshot {
	return &config.Snapshot{
		Owner:      "pdfcat-dev",
		Repo:       "pdfcat",
		Selector:   config.SelectorLatest,
		InstallDir: installDir,
		APIBase:    apiBase,
	}
}

func TestRunInstallsReleaseBinary(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fixture packages a shell script binary")
	}
	home := testutil.SetupTestEnv(t)

	archive := packageBinary(t, `echo "pdfcat 1.0.2"`)
	srv := releaseServer(t, "v1.0.2", hostAssetName(t, "v1.0.2"), archive)

	binDir := filepath.Join(t.TempDir(), "bin")
	c := New(testConfig(srv.URL, binDir), "test", ui.Discard())
	c.workDir = t.TempDir()

	out, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if out.Mode != source.ModeBinaryFetch {
		t.Errorf("Mode = %v, want binary fetch", out.Mode)
	}
	if out.Tag != "v1.0.2" {
		t.Errorf("Tag = %q, want v1.0.2", out.Tag)
	}
	want := filepath.Join(binDir, "pdfcat")
	if out.Installed != want {
		t.Errorf("Installed = %q, want %q", out.Installed, want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("installed binary missing: %v", err)
	}
	if out.ReportedVersion != "pdfcat 1.0.2" {
		t.Errorf("ReportedVersion = %q, want %q", out.ReportedVersion, "pdfcat 1.0.2")
	}
	if len(out.Warnings) != 0 {
		t.Errorf("Warnings = %v, want none", out.Warnings)
	}

	if out.WorkspaceDir == "" {
		t.Fatal("WorkspaceDir empty, want a recorded scratch dir")
	}
	if _, err := os.Stat(out.WorkspaceDir); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("workspace %s not cleaned up: %v", out.WorkspaceDir, err)
	}

	if !out.NeedsNewShell {
		t.Error("NeedsNewShell = false, want true for a fresh install dir")
	}
	rc, err := os.ReadFile(filepath.Join(home, ".bashrc"))
	if err != nil {
		t.Fatalf("rc file not written: %v", err)
	}
	if !strings.Contains(string(rc), binDir) {
		t.Errorf(".bashrc missing install dir:\n%s", rc)
	}

	rec, err := receipt.Load()
	if err != nil {
		t.Fatalf("receipt not written: %v", err)
	}
	if rec.Version != "v1.0.2" || rec.Path != want {
		t.Errorf("receipt = %+v", rec)
	}
}

func TestRunSkipsPathUpdateWhenAlreadyOnPath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fixture packages a shell script binary")
	}
	home := testutil.SetupTestEnv(t)

	binDir := filepath.Join(t.TempDir(), "bin")
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))

	archive := packageBinary(t, `echo "pdfcat 1.0.2"`)
	srv := releaseServer(t, "v1.0.2", hostAssetName(t, "v1.0.2"), archive)

	c := New(testConfig(srv.URL, binDir), "test", ui.Discard())
	c.workDir = t.TempDir()

	out, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.NeedsNewShell {
		t.Error("NeedsNewShell = true, want false when dir already on PATH")
	}
	if _, err := os.Stat(filepath.Join(home, ".bashrc")); !errors.Is(err, fs.ErrNotExist) {
		t.Error("rc file written even though dir was already on PATH")
	}
}

func TestRunReleaseLookupFailureIsFatal(t *testing.T) {
	testutil.SetupTestEnv(t)
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	c := New(testConfig(srv.URL, filepath.Join(t.TempDir(), "bin")), "test", ui.Discard())
	c.workDir = t.TempDir()

	out, err := c.Run(context.Background())
	var fail *Failure
	if !errors.As(err, &fail) {
		t.Fatalf("Run() error = %v, want *Failure", err)
	}
	if fail.Stage != StageResolve {
		t.Errorf("Stage = %q, want %q", fail.Stage, StageResolve)
	}
	var lookup *release.LookupError
	if !errors.As(err, &lookup) {
		t.Errorf("cause = %v, want LookupError", fail.Err)
	}
	if out.Installed != "" {
		t.Errorf("Installed = %q, want empty on failure", out.Installed)
	}
	if out.WorkspaceDir != "" {
		t.Errorf("workspace %s created before the download stage", out.WorkspaceDir)
	}
}

func TestRunNoMatchingAssetIsFatal(t *testing.T) {
	testutil.SetupTestEnv(t)
	srv := releaseServer(t, "v1.0.0", "pdfcat-v1.0.0-plan9-mips.tar.gz", []byte("unused"))

	c := New(testConfig(srv.URL, filepath.Join(t.TempDir(), "bin")), "test", ui.Discard())
	c.workDir = t.TempDir()

	out, err := c.Run(context.Background())
	var fail *Failure
	if !errors.As(err, &fail) {
		t.Fatalf("Run() error = %v, want *Failure", err)
	}
	if fail.Stage != StageSelect {
		t.Errorf("Stage = %q, want %q", fail.Stage, StageSelect)
	}
	var noAsset *artifact.NoAssetError
	if !errors.As(err, &noAsset) {
		t.Errorf("cause = %v, want NoAssetError", fail.Err)
	}
	if out.Tag != "v1.0.0" {
		t.Errorf("Tag = %q, want the resolved tag even on failure", out.Tag)
	}
	if out.WorkspaceDir != "" {
		t.Error("workspace created for a release with no matching asset")
	}
}

func TestRunDownloadFailureCleansWorkspace(t *testing.T) {
	testutil.SetupTestEnv(t)
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	assetURL := srv.URL + "/assets/1"
	name := hostAssetName(t, "v1.0.0")
	mux.HandleFunc("/repos/pdfcat-dev/pdfcat/releases/latest", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"tag_name":"v1.0.0","assets":[{"name":%q,"url":%q,"size":10}]}`, name, assetURL)
	})
	mux.HandleFunc("/assets/1", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "mirror offline", http.StatusInternalServerError)
	})

	c := New(testConfig(srv.URL, filepath.Join(t.TempDir(), "bin")), "test", ui.Discard())
	c.workDir = t.TempDir()

	out, err := c.Run(context.Background())
	var fail *Failure
	if !errors.As(err, &fail) {
		t.Fatalf("Run() error = %v, want *Failure", err)
	}
	if fail.Stage != StageDownload {
		t.Errorf("Stage = %q, want %q", fail.Stage, StageDownload)
	}
	if out.WorkspaceDir == "" {
		t.Fatal("WorkspaceDir empty, want the scratch dir the download used")
	}
	if _, err := os.Stat(out.WorkspaceDir); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("workspace %s not cleaned up after failure: %v", out.WorkspaceDir, err)
	}
}

func TestRunCorruptArchiveCleansWorkspace(t *testing.T) {
	testutil.SetupTestEnv(t)
	srv := releaseServer(t, "v1.0.0", hostAssetName(t, "v1.0.0"), []byte("this is not an archive"))

	c := New(testConfig(srv.URL, filepath.Join(t.TempDir(), "bin")), "test", ui.Discard())
	c.workDir = t.TempDir()

	out, err := c.Run(context.Background())
	var fail *Failure
	if !errors.As(err, &fail) {
		t.Fatalf("Run() error = %v, want *Failure", err)
	}
	if fail.Stage != StageExtract {
		t.Errorf("Stage = %q, want %q", fail.Stage, StageExtract)
	}
	if _, err := os.Stat(out.WorkspaceDir); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("workspace %s not cleaned up after failure: %v", out.WorkspaceDir, err)
	}
}

func TestRunBinaryMissingFromArchive(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fixture is a tar.gz")
	}
	testutil.SetupTestEnv(t)
	archive := packageEntry(t, "pdfcat-dist/README.md", "docs only", 0o644)
	srv := releaseServer(t, "v1.0.0", hostAssetName(t, "v1.0.0"), archive)

	c := New(testConfig(srv.URL, filepath.Join(t.TempDir(), "bin")), "test", ui.Discard())
	c.workDir = t.TempDir()

	out, err := c.Run(context.Background())
	var fail *Failure
	if !errors.As(err, &fail) {
		t.Fatalf("Run() error = %v, want *Failure", err)
	}
	if fail.Stage != StageLocate {
		t.Errorf("Stage = %q, want %q", fail.Stage, StageLocate)
	}
	var notFound *artifact.NotFoundError
	if !errors.As(err, &notFound) {
		t.Errorf("cause = %v, want NotFoundError", fail.Err)
	}
	if _, err := os.Stat(out.WorkspaceDir); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("workspace %s not cleaned up after failure: %v", out.WorkspaceDir, err)
	}
}

func TestRunVersionCheckFailureIsWarning(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fixture packages a shell script binary")
	}
	testutil.SetupTestEnv(t)
	archive := packageBinary(t, `echo "cannot load libpdf"; exit 3`)
	srv := releaseServer(t, "v1.0.2", hostAssetName(t, "v1.0.2"), archive)

	binDir := filepath.Join(t.TempDir(), "bin")
	c := New(testConfig(srv.URL, binDir), "test", ui.Discard())
	c.workDir = t.TempDir()

	out, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v, want success with warnings", err)
	}
	if out.Installed == "" {
		t.Fatal("Installed empty, want the placed binary")
	}
	if out.ReportedVersion != "" {
		t.Errorf("ReportedVersion = %q, want empty after failed check", out.ReportedVersion)
	}
	found := false
	for _, w := range out.Warnings {
		if w.Stage == StageVerify && strings.Contains(w.Message, "cannot load libpdf") {
			found = true
		}
	}
	if !found {
		t.Errorf("Warnings = %v, want a verify warning with the captured output", out.Warnings)
	}
}

func TestRunReceiptFailureIsWarning(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fixture packages a shell script binary")
	}
	home := testutil.SetupTestEnv(t)
	// A file where the config dir should be makes the receipt write fail.
	if err := os.WriteFile(filepath.Join(home, ".config"), []byte("blocker"), 0o644); err != nil {
		t.Fatal(err)
	}

	archive := packageBinary(t, `echo "pdfcat 1.0.2"`)
	srv := releaseServer(t, "v1.0.2", hostAssetName(t, "v1.0.2"), archive)

	c := New(testConfig(srv.URL, filepath.Join(t.TempDir(), "bin")), "test", ui.Discard())
	c.workDir = t.TempDir()

	out, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v, want success with warnings", err)
	}
	found := false
	for _, w := range out.Warnings {
		if w.Stage == StageReceipt {
			found = true
		}
	}
	if !found {
		t.Errorf("Warnings = %v, want a receipt warning", out.Warnings)
	}
}

func TestRunReportsPreviousInstall(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fixture packages a shell script binary")
	}
	testutil.SetupTestEnv(t)
	old := receipt.NewRecord("v1.0.1", "binary-fetch", "linux-x86_64", "/old/path/pdfcat")
	if err := receipt.Write(old); err != nil {
		t.Fatalf("seeding old receipt: %v", err)
	}

	archive := packageBinary(t, `echo "pdfcat 1.0.2"`)
	srv := releaseServer(t, "v1.0.2", hostAssetName(t, "v1.0.2"), archive)

	c := New(testConfig(srv.URL, filepath.Join(t.TempDir(), "bin")), "test", ui.Discard())
	c.workDir = t.TempDir()

	out, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.Previous == nil || out.Previous.Version != "v1.0.1" {
		t.Errorf("Previous = %+v, want the seeded v1.0.1 receipt", out.Previous)
	}

	rec, err := receipt.Load()
	if err != nil {
		t.Fatalf("reading receipt after run: %v", err)
	}
	if rec.Version != "v1.0.2" {
		t.Errorf("receipt version = %q, want the new install to replace it", rec.Version)
	}
}

// writeFakeCargo puts a cargo stand-in on disk that builds a script
// binary into target/release.
func writeFakeCargo(t *testing.T, dir, testBehavior string) {
	t.Helper()
	script := `#!/bin/sh
case "$1" in
test)
  ` + testBehavior + `
  ;;
build)
  mkdir -p target/release
  printf '#!/bin/sh\necho "pdfcat 7.7.7"\n' > target/release/pdfcat
  chmod +x target/release/pdfcat
  ;;
esac
exit 0
`
	if err := os.WriteFile(filepath.Join(dir, "cargo"), []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
}

func sourceCheckout(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	manifest := "[package]\nname = \"pdfcat\"\nversion = \"0.0.0\"\n"
	if err := os.WriteFile(filepath.Join(dir, "Cargo.toml"), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestRunBuildsFromCheckout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake cargo is a shell script")
	}
	home := testutil.SetupTestEnv(t)

	toolDir := t.TempDir()
	writeFakeCargo(t, toolDir, "exit 0")
	t.Setenv("PATH", toolDir+string(os.PathListSeparator)+os.Getenv("PATH"))

	checkout := sourceCheckout(t)
	c := New(testConfig("http://unused.invalid", ""), "test", ui.Discard())
	c.workDir = checkout

	out, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.Mode != source.ModeSourceBuild {
		t.Errorf("Mode = %v, want source build", out.Mode)
	}
	if out.Tag != SourceTag {
		t.Errorf("Tag = %q, want %q", out.Tag, SourceTag)
	}
	want := filepath.Join(checkout, "target", "release", "pdfcat")
	if out.Installed != want {
		t.Errorf("Installed = %q, want adopted in place at %q", out.Installed, want)
	}
	if out.ReportedVersion != "pdfcat 7.7.7" {
		t.Errorf("ReportedVersion = %q", out.ReportedVersion)
	}
	if out.WorkspaceDir != "" {
		t.Error("source build created a workspace")
	}
	if _, err := os.Stat(filepath.Join(home, ".bashrc")); !errors.Is(err, fs.ErrNotExist) {
		t.Error("source build touched the rc file")
	}
	if len(out.Warnings) != 0 {
		t.Errorf("Warnings = %v, want none", out.Warnings)
	}
}

func TestRunSourceBuildSurvivesFailingTests(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake cargo is a shell script")
	}
	testutil.SetupTestEnv(t)

	toolDir := t.TempDir()
	writeFakeCargo(t, toolDir, `echo "1 test failed"; exit 101`)
	t.Setenv("PATH", toolDir+string(os.PathListSeparator)+os.Getenv("PATH"))

	c := New(testConfig("http://unused.invalid", ""), "test", ui.Discard())
	c.workDir = sourceCheckout(t)

	out, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v, want install despite failing tests", err)
	}
	if out.Installed == "" {
		t.Fatal("Installed empty, want the built binary")
	}
	found := false
	for _, w := range out.Warnings {
		if w.Stage == StageBuild && strings.Contains(w.Message, "1 test failed") {
			found = true
		}
	}
	if !found {
		t.Errorf("Warnings = %v, want a build warning with the test output", out.Warnings)
	}
}

func TestRunCompileFailureIsFatal(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake cargo is a shell script")
	}
	testutil.SetupTestEnv(t)

	toolDir := t.TempDir()
	script := "#!/bin/sh\nif [ \"$1\" = build ]; then echo \"error[E0308]\"; exit 101; fi\nexit 0\n"
	if err := os.WriteFile(filepath.Join(toolDir, "cargo"), []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", toolDir+string(os.PathListSeparator)+os.Getenv("PATH"))

	c := New(testConfig("http://unused.invalid", ""), "test", ui.Discard())
	c.workDir = sourceCheckout(t)

	_, err := c.Run(context.Background())
	var fail *Failure
	if !errors.As(err, &fail) {
		t.Fatalf("Run() error = %v, want *Failure", err)
	}
	if fail.Stage != StageBuild {
		t.Errorf("Stage = %q, want %q", fail.Stage, StageBuild)
	}
	var buildErr *source.BuildError
	if !errors.As(err, &buildErr) {
		t.Errorf("cause = %v, want BuildError", fail.Err)
	}
}
