package install

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Placed describes an installed binary. Resolved once per run and
// never mutated.
type Placed struct {
	Path    string // final absolute path of the executable
	Dir     string // installation directory
	Adopted bool   // the binary already lived in Dir, no copy happened
}

// Place puts the executable at exePath into dir under the canonical
// name. A build product that already sits in dir is adopted as-is;
// anything else is copied, silently overwriting a previous install.
func Place(exePath, dir, exeName string) (*Placed, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, &PlacementError{Dir: dir, Message: "resolve directory", Err: err}
	}
	absSrc, err := filepath.Abs(exePath)
	if err != nil {
		return nil, &PlacementError{Dir: dir, Message: "resolve source path", Err: err}
	}

	destPath := filepath.Join(absDir, exeName)
	if absSrc == destPath {
		return &Placed{Path: destPath, Dir: absDir, Adopted: true}, nil
	}

	if err := copyExecutable(absSrc, destPath); err != nil {
		return nil, &PlacementError{Dir: absDir, Message: "copy binary", Err: err}
	}
	return &Placed{Path: destPath, Dir: absDir}, nil
}

func copyExecutable(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0755)
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy contents: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close destination: %w", err)
	}
	// O_CREATE perms are masked by umask; make the mode explicit.
	if err := os.Chmod(dest, 0755); err != nil {
		return fmt.Errorf("set executable: %w", err)
	}
	return nil
}
