package platform

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v4/host"
)

// HostDetector implements Detector for the running process.
type HostDetector struct{}

// NewDetector creates a detector for the running process.
func NewDetector() Detector {
	return &HostDetector{}
}

// Detect identifies the current host. The OS/architecture pair comes
// from the Go runtime; on Linux, gopsutil supplies distribution
// details for progress output.
//
// Distribution lookup failures fall back to the bare tag. Only an
// unsupported OS/architecture pair or a cancelled context is an
// error.
func (d *HostDetector) Detect(ctx context.Context) (*Host, error) {
	tag, err := Identify(runtime.GOOS, runtime.GOARCH)
	if err != nil {
		return nil, err
	}
	h := &Host{Tag: tag}

	if tag.OS == Linux {
		distro, _, version, err := host.PlatformInformationWithContext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("platform detection cancelled: %w", ctx.Err())
			}
			// Distro details are cosmetic; carry on with the tag alone.
			return h, nil
		}
		h.Distro = strings.ToLower(strings.TrimSpace(distro))
		h.Version = strings.TrimSpace(version)
	}

	return h, nil
}
