package artifact

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/pdfcat-dev/pdfcat-installer/internal/release"
)

// downloadTimeout bounds one asset download end to end. Release
// archives are a few megabytes; the generous ceiling covers slow
// links without letting a stalled transfer hang the run.
const downloadTimeout = 15 * time.Minute

// DownloadError reports a failed asset download. Downloads are never
// retried: the failure surfaces immediately in the final report.
type DownloadError struct {
	Asset      string
	StatusCode int // zero when the request never completed
	Message    string
	Err        error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s: %s", e.Asset, e.Message)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// Downloader fetches release assets over HTTP.
type Downloader struct {
	client    *http.Client
	token     string
	userAgent string
}

// NewDownloader creates a downloader. The token and user agent should
// match the ones used for release resolution so private repositories
// behave consistently across both calls.
func NewDownloader(token, userAgent string) *Downloader {
	return &Downloader{
		client: &http.Client{
			Timeout: downloadTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		token:     token,
		userAgent: userAgent,
	}
}

// Fetch downloads one asset into destDir under its published name and
// returns the path of the downloaded archive. The asset endpoint
// serves raw bytes only when asked for application/octet-stream;
// anything else comes back as JSON metadata.
func (d *Downloader) Fetch(ctx context.Context, asset *release.Asset, destDir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, asset.URL, nil)
	if err != nil {
		return "", &DownloadError{Asset: asset.Name, Message: "building request", Err: err}
	}
	req.Header.Set("Accept", "application/octet-stream")
	req.Header.Set("User-Agent", d.userAgent)
	if d.token != "" {
		req.Header.Set("Authorization", "Bearer "+d.token)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", &DownloadError{Asset: asset.Name, Message: "executing request", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &DownloadError{
			Asset:      asset.Name,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("unexpected status %d", resp.StatusCode),
		}
	}

	destPath := filepath.Join(destDir, asset.Name)
	if err := writeAtomically(destPath, resp.Body); err != nil {
		return "", &DownloadError{Asset: asset.Name, Message: "writing archive", Err: err}
	}
	return destPath, nil
}

// writeAtomically streams r to path via a sibling partial file so an
// interrupted transfer never leaves a plausible-looking archive.
func writeAtomically(path string, r io.Reader) error {
	tmpPath := path + ".partial"
	tmpFile, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create partial file: %w", err)
	}

	cleanupNeeded := true
	defer func() {
		tmpFile.Close()
		if cleanupNeeded {
			os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmpFile, r); err != nil {
		return fmt.Errorf("copy body: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close partial file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename partial file: %w", err)
	}
	cleanupNeeded = false
	return nil
}
