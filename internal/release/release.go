// Package release resolves pdfcat releases through a GitHub-style
// release API.
//
// Only the fields the installer consumes are decoded. Asset order is
// preserved exactly as the index reports it because asset selection
// is first-match-wins.
package release

// Latest selects the newest published release instead of a named tag.
const Latest = "latest"

// Asset is one downloadable file attached to a release.
//
// URL is the API asset endpoint, not the browser download link. It
// serves the raw bytes when requested with Accept:
// application/octet-stream and honors the same bearer credential as
// the release lookup, which keeps private releases reachable.
type Asset struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// Release is a published release and its assets in index order.
type Release struct {
	TagName string  `json:"tag_name"`
	Assets  []Asset `json:"assets"`
}
