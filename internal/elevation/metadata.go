package elevation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/updeck/updeck/internal/httputil"
	"github.com/updeck/updeck/internal/logging"
)

var log = logging.L("elevation")

// DefaultReleaseURL is the registry endpoint describing the latest gsudo
// release, used by the helper install flow and the doctor command.
const DefaultReleaseURL = "https://api.github.com/repos/gerardog/gsudo/releases/latest"

// Release is the subset of release metadata the install flow needs.
type Release struct {
	TagName     string `json:"tag_name"`
	Name        string `json:"name"`
	HTMLURL     string `json:"html_url"`
	PublishedAt string `json:"published_at"`
}

// Version returns the release version with any leading "v" stripped.
func (r Release) Version() string {
	return strings.TrimPrefix(r.TagName, "v")
}

// LatestRelease fetches the latest helper release metadata from url.
func LatestRelease(ctx context.Context, client *http.Client, url string) (Release, error) {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	headers := http.Header{}
	headers.Set("Accept", "application/vnd.github+json")

	resp, err := httputil.Get(ctx, client, url, headers, httputil.DefaultRetryPolicy())
	if err != nil {
		return Release{}, fmt.Errorf("fetch helper release metadata: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Release{}, fmt.Errorf("fetch helper release metadata: unexpected status %d", resp.StatusCode)
	}

	var release Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return Release{}, fmt.Errorf("decode helper release metadata: %w", err)
	}

	log.Debug("fetched helper release", "tag", release.TagName)
	return release, nil
}
