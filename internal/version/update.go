package version

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	RepoOwner = "khanglvm"
	RepoName  = "api-hub-mcp"

	// checkInterval throttles release lookups. Agent hosts restart the
	// server often; a quiet cache hit keeps startup fast and offline-safe.
	checkInterval = 24 * time.Hour
)

// releaseURL is a variable so tests can point it at a stub server.
var releaseURL = "https://api.github.com/repos/" + RepoOwner + "/" + RepoName + "/releases/latest"

// cachePath is swappable for the same reason.
var cachePath = defaultCachePath

var checkMu sync.Mutex

// ReleaseInfo describes a published release newer than the running build.
type ReleaseInfo struct {
	Version string
	URL     string
}

// githubRelease is the subset of the GitHub release payload we read.
type githubRelease struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

// updateCache records the last lookup so restarts within the throttle
// window make no network calls.
type updateCache struct {
	CheckedAt     time.Time `json:"checkedAt"`
	LatestVersion string    `json:"latestVersion"`
	ReleaseURL    string    `json:"releaseUrl"`
}

// CheckUpdate returns info about a newer published release, or nil when
// the running build is current. A lookup within checkInterval of the
// previous one returns nil without touching the network.
func CheckUpdate(ctx context.Context) (*ReleaseInfo, error) {
	checkMu.Lock()
	defer checkMu.Unlock()

	cache, err := loadCache()
	if err == nil && time.Since(cache.CheckedAt) < checkInterval {
		return nil, nil
	}

	release, err := fetchLatestRelease(ctx)
	if err != nil {
		return nil, err
	}

	latest := strings.TrimPrefix(release.TagName, "v")
	if err := saveCache(&updateCache{
		CheckedAt:     time.Now(),
		LatestVersion: latest,
		ReleaseURL:    release.HTMLURL,
	}); err != nil {
		log.Printf("Warning: failed to save update cache: %v", err)
	}

	return newerThanCurrent(latest, release.HTMLURL), nil
}

// newerThanCurrent wraps latest in a ReleaseInfo unless it matches the
// running version.
func newerThanCurrent(latest, url string) *ReleaseInfo {
	if latest == "" || latest == strings.TrimPrefix(Version, "v") {
		return nil
	}
	return &ReleaseInfo{Version: latest, URL: url}
}

func fetchLatestRelease(ctx context.Context) (*githubRelease, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", releaseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to check for updates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GitHub API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var release githubRelease
	if err := json.Unmarshal(body, &release); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &release, nil
}

func defaultCachePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".api-hub-mcp-cache.json"), nil
}

func loadCache() (*updateCache, error) {
	path, err := cachePath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cache updateCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil, err
	}
	return &cache, nil
}

func saveCache(cache *updateCache) error {
	path, err := cachePath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
