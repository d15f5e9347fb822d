package artifact

import (
	"fmt"
	"io/fs"
	"path/filepath"
)

// NotFoundError reports an extracted archive that does not contain
// the expected executable anywhere in its tree.
type NotFoundError struct {
	Name string
	Root string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("executable %q not found in extracted archive", e.Name)
}

// Locate finds the named executable under root. The walk is
// depth-first in lexical order, so archives that somehow carry the
// name twice still resolve deterministically; archives that nest the
// binary inside subdirectories resolve the same as flat ones.
func Locate(root, exeName string) (string, error) {
	var found string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if filepath.Base(path) == exeName {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("scan extracted tree: %w", err)
	}
	if found == "" {
		return "", &NotFoundError{Name: exeName, Root: root}
	}
	return found, nil
}
