package run

import (
	"fmt"
	"os"
)

// Workspace is the scratch directory downloads and extractions run in.
// It exists only while a release artifact is in flight; source builds
// never create one.
type Workspace struct {
	Dir string
}

// NewWorkspace creates the scratch directory under the system temp
// root.
func NewWorkspace() (*Workspace, error) {
	dir, err := os.MkdirTemp("", "pdfcat-install-*")
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &Workspace{Dir: dir}, nil
}

// Close removes the workspace and everything in it. Closing a nil or
// already closed workspace is a no-op, so callers can defer it
// unconditionally. A removal failure is the caller's warning to
// report; it never becomes the run outcome.
func (w *Workspace) Close() error {
	if w == nil || w.Dir == "" {
		return nil
	}
	dir := w.Dir
	w.Dir = ""
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove workspace %s: %w", dir, err)
	}
	return nil
}
