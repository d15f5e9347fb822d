// Package receipt records what an install run produced so later runs
// and humans can see what is on disk.
package receipt

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

const (
	dirName  = "pdfcat"
	fileName = "install-receipt.yaml"
)

// Record describes one completed install.
type Record struct {
	ID          string    `yaml:"id"`       // ties the receipt to one installer invocation
	Version     string    `yaml:"version"`  // release tag, or "source" for local builds
	Mode        string    `yaml:"mode"`     // binary-fetch or source-build
	Platform    string    `yaml:"platform"` // e.g. linux-x86_64
	Path        string    `yaml:"path"`
	InstalledAt time.Time `yaml:"installed_at"`
}

// NewRecord stamps a fresh record for the install that just finished.
func NewRecord(version, mode, platformTag, path string) *Record {
	return &Record{
		ID:          uuid.New().String(),
		Version:     version,
		Mode:        mode,
		Platform:    platformTag,
		Path:        path,
		InstalledAt: time.Now().UTC(),
	}
}

// Path returns the receipt location under the user config directory.
func Path() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate user config dir: %w", err)
	}
	return filepath.Join(base, dirName, fileName), nil
}

// Write persists the record. Failures here are for the caller to warn
// about; they never fail an install that already happened.
func Write(rec *Record) error {
	path, err := Path()
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode receipt: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create receipt dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write receipt: %w", err)
	}
	return nil
}

// Load reads the receipt from a previous run, if one exists.
func Load() (*Record, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read receipt: %w", err)
	}
	var rec Record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode receipt: %w", err)
	}
	return &rec, nil
}
