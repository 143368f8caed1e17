package version

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// stubRelease points the checker at a local server and an isolated cache.
func stubRelease(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	oldURL, oldPath := releaseURL, cachePath
	releaseURL = server.URL
	dir := t.TempDir()
	cachePath = func() (string, error) {
		return filepath.Join(dir, "cache.json"), nil
	}
	t.Cleanup(func() {
		releaseURL, cachePath = oldURL, oldPath
	})

	return server
}

func TestCheckUpdate_NewerRelease(t *testing.T) {
	stubRelease(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"tag_name": "v9.9.9", "html_url": "https://example.com/releases/v9.9.9"}`)
	})

	release, err := CheckUpdate(context.Background())
	if err != nil {
		t.Fatalf("CheckUpdate failed: %v", err)
	}
	if release == nil {
		t.Fatal("expected a release, got nil")
	}
	if release.Version != "9.9.9" {
		t.Errorf("expected version 9.9.9 (v prefix stripped), got %q", release.Version)
	}
	if release.URL != "https://example.com/releases/v9.9.9" {
		t.Errorf("unexpected release URL %q", release.URL)
	}
}

func TestCheckUpdate_UpToDate(t *testing.T) {
	stubRelease(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"tag_name": "v%s", "html_url": ""}`, Version)
	})

	release, err := CheckUpdate(context.Background())
	if err != nil {
		t.Fatalf("CheckUpdate failed: %v", err)
	}
	if release != nil {
		t.Errorf("current build must report no update, got %+v", release)
	}
}

func TestCheckUpdate_ThrottledByCache(t *testing.T) {
	hits := 0
	stubRelease(t, func(w http.ResponseWriter, r *http.Request) {
		hits++
		fmt.Fprint(w, `{"tag_name": "v9.9.9", "html_url": ""}`)
	})

	if err := saveCache(&updateCache{CheckedAt: time.Now(), LatestVersion: "9.9.9"}); err != nil {
		t.Fatalf("saveCache failed: %v", err)
	}

	release, err := CheckUpdate(context.Background())
	if err != nil {
		t.Fatalf("CheckUpdate failed: %v", err)
	}
	if release != nil {
		t.Errorf("throttled check must stay quiet, got %+v", release)
	}
	if hits != 0 {
		t.Errorf("throttled check must not hit the network, got %d requests", hits)
	}
}

func TestCheckUpdate_ServerError(t *testing.T) {
	stubRelease(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	if _, err := CheckUpdate(context.Background()); err == nil {
		t.Error("expected an error for a failing release endpoint")
	}
}

func TestCheckUpdate_WritesCache(t *testing.T) {
	stubRelease(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"tag_name": "v9.9.9", "html_url": "https://example.com/r"}`)
	})

	if _, err := CheckUpdate(context.Background()); err != nil {
		t.Fatalf("CheckUpdate failed: %v", err)
	}

	cache, err := loadCache()
	if err != nil {
		t.Fatalf("loadCache failed: %v", err)
	}
	if cache.LatestVersion != "9.9.9" {
		t.Errorf("expected cached version 9.9.9, got %q", cache.LatestVersion)
	}
	if cache.CheckedAt.IsZero() {
		t.Error("expected CheckedAt to be recorded")
	}
}

func TestNewerThanCurrent(t *testing.T) {
	tests := []struct {
		name   string
		latest string
		want   bool
	}{
		{"newer release", "99.0.0", true},
		{"same as running build", strings.TrimPrefix(Version, "v"), false},
		{"empty tag", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newerThanCurrent(tt.latest, "https://example.com")
			if (got != nil) != tt.want {
				t.Errorf("newerThanCurrent(%q) = %v, want release=%v", tt.latest, got, tt.want)
			}
		})
	}
}

func TestDefaultCachePath(t *testing.T) {
	path, err := defaultCachePath()
	if err != nil {
		t.Fatalf("defaultCachePath failed: %v", err)
	}
	if !strings.Contains(path, ".api-hub-mcp-cache.json") {
		t.Errorf("path %q does not contain the cache filename", path)
	}
}
