// Package platform identifies the host operating system and CPU
// architecture and renders them as the canonical tag used to match
// published pdfcat release assets.
//
// Identification happens before any network activity so an unsupported
// host fails fast. Linux distribution details are detected with
// gopsutil and degrade gracefully when unavailable.
package platform

import (
	"context"
	"fmt"
)

// OS is an operating system family with published pdfcat builds.
type OS string

const (
	Linux   OS = "linux"
	MacOS   OS = "macos"
	Windows OS = "windows"
)

// Arch is a CPU architecture with published pdfcat builds.
type Arch string

const (
	X8664   Arch = "x86_64"
	AArch64 Arch = "aarch64"
)

// Tag is the canonical platform identifier, rendered "os-arch" exactly
// as it appears in release asset names (e.g. "linux-x86_64").
type Tag struct {
	OS   OS
	Arch Arch
}

func (t Tag) String() string {
	return string(t.OS) + "-" + string(t.Arch)
}

// ArchiveExt returns the archive extension conventionally published
// for this platform: zip on Windows, gzip-compressed tar elsewhere.
func (t Tag) ArchiveExt() string {
	if t.OS == Windows {
		return ".zip"
	}
	return ".tar.gz"
}

// ExeSuffix returns the executable filename suffix for this platform.
func (t Tag) ExeSuffix() string {
	if t.OS == Windows {
		return ".exe"
	}
	return ""
}

// ExecutableName returns the platform-correct filename for a binary
// with the given base name.
func (t Tag) ExecutableName(base string) string {
	return base + t.ExeSuffix()
}

// AssetPattern returns the glob used to match release assets for this
// platform, e.g. "pdfcat*linux-x86_64.tar.gz". The pattern tolerates a
// version segment between the base name and the tag.
func (t Tag) AssetPattern(base string) string {
	return base + "*" + t.String() + t.ArchiveExt()
}

// UnsupportedError reports an operating system or architecture for
// which no pdfcat build exists.
type UnsupportedError struct {
	Kind  string // "operating system" or "architecture"
	Value string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("unsupported %s: %q", e.Kind, e.Value)
}

// Host carries best-effort details about the running system for
// progress output. Fields other than Tag may be empty when
// distribution detection fails; that is never an error.
type Host struct {
	Tag     Tag
	Distro  string // distro ID, Linux only (e.g. "ubuntu")
	Version string // distro version, Linux only (e.g. "22.04")
}

// Describe renders the host for progress output, including
// distribution details when known.
func (h *Host) Describe() string {
	if h.Distro == "" {
		return h.Tag.String()
	}
	if h.Version == "" {
		return fmt.Sprintf("%s (%s)", h.Tag, h.Distro)
	}
	return fmt.Sprintf("%s (%s %s)", h.Tag, h.Distro, h.Version)
}

// Detector is the interface for host identification.
type Detector interface {
	Detect(ctx context.Context) (*Host, error)
}
