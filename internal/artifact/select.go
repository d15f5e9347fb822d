// Package artifact turns a resolved release into a runnable binary:
// it selects the platform-matched asset, downloads it, unpacks the
// archive, and locates the executable inside the extracted tree.
//
// Every step is fatal on failure. The caller owns the scratch
// directory all intermediate files land in.
package artifact

import (
	"fmt"
	"path"

	"github.com/pdfcat-dev/pdfcat-installer/internal/platform"
	"github.com/pdfcat-dev/pdfcat-installer/internal/release"
)

// NoAssetError reports a release that has no asset for the host
// platform. The pattern that failed to match is kept so the report
// can show exactly what was looked for.
type NoAssetError struct {
	Pattern    string
	ReleaseTag string
}

func (e *NoAssetError) Error() string {
	return fmt.Sprintf("release %s has no asset matching %q", e.ReleaseTag, e.Pattern)
}

// SelectAsset picks the asset for the given platform. Assets are
// tried in index order and the first match wins, so a release that
// accidentally carries two matching assets behaves deterministically.
func SelectAsset(rel *release.Release, tag platform.Tag, base string) (*release.Asset, error) {
	pattern := tag.AssetPattern(base)
	for i := range rel.Assets {
		ok, err := path.Match(pattern, rel.Assets[i].Name)
		if err != nil {
			return nil, fmt.Errorf("asset pattern %q: %w", pattern, err)
		}
		if ok {
			return &rel.Assets[i], nil
		}
	}
	return nil, &NoAssetError{Pattern: pattern, ReleaseTag: rel.TagName}
}
