package source

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// BuildError reports a failed compilation. The combined toolchain
// output is carried along so the report can show what went wrong
// without the operator re-running the build.
type BuildError struct {
	Step   string
	Output string
	Err    error
}

func (e *BuildError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Step, e.Err)
	}
	return e.Step
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// Result is a completed source build.
type Result struct {
	ExePath     string // the built executable inside target/release
	TestsFailed bool   // the test phase failed but the build continued
	TestOutput  string // combined output of the failed test run
}

// Builder compiles pdfcat from a checkout with the cargo toolchain.
// The toolchain inherits the full environment: cargo needs PATH,
// CARGO_HOME, and RUSTUP_HOME to find its own pieces.
type Builder struct {
	dir string // project directory containing the marker file
	bin string // cargo executable, overridable in tests
}

// NewBuilder creates a builder for the given project directory.
func NewBuilder(projectDir string) *Builder {
	return &Builder{dir: projectDir, bin: "cargo"}
}

// Build runs the project test suite, compiles the release profile,
// and verifies the expected executable appeared. A failing test phase
// is recorded on the result and the build continues; a failing
// compile stops the run.
func (b *Builder) Build(ctx context.Context, exeName string) (*Result, error) {
	res := &Result{}

	if out, err := b.run(ctx, "test"); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("build cancelled: %w", ctx.Err())
		}
		res.TestsFailed = true
		res.TestOutput = out
	}

	out, err := b.run(ctx, "build", "--release")
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("build cancelled: %w", ctx.Err())
		}
		return nil, &BuildError{Step: "cargo build --release", Output: out, Err: err}
	}

	exePath := filepath.Join(ReleaseDir(b.dir), exeName)
	info, err := os.Stat(exePath)
	if err != nil || info.IsDir() {
		return nil, &BuildError{
			Step:   "verify build output",
			Output: fmt.Sprintf("expected executable at %s", exePath),
		}
	}

	res.ExePath = exePath
	return res, nil
}

func (b *Builder) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, b.bin, args...)
	cmd.Dir = b.dir
	out, err := cmd.CombinedOutput()
	return string(out), err
}
