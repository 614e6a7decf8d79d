package updater

import (
	"fmt"
	"io"
	"time"

	"github.com/stacksmith-labs/stacksmith/internal/branding"
)

// CheckAndPrintBanner prints an update banner if the cached check found a
// newer version. It never blocks: a stale cache is refreshed by a
// background goroutine for the next invocation.
func (u *Updater) CheckAndPrintBanner(w io.Writer, configDir string) {
	cache, err := LoadCache(configDir)
	if err != nil {
		// A broken cache file is not worth interrupting the command for.
		return
	}

	if cache != nil && cache.UpdateAvailable {
		PrintUpdateBanner(w, cache.CurrentVersion, cache.LatestVersion)
	}

	if IsCacheStale(cache, DefaultCacheMaxAge) {
		go u.RefreshCache(configDir)
	}
}

// PrintUpdateBanner prints the update notification to w.
func PrintUpdateBanner(w io.Writer, current, latest string) {
	fmt.Fprintf(w, "\nUpdate available: %s -> %s\n", current, latest)
	fmt.Fprintf(w, "    Run `%s update` for upgrade instructions\n\n", branding.CLIName())
}

// RefreshCache fetches the latest release and rewrites the cache file.
// Failures stay silent; the next startup simply tries again.
func (u *Updater) RefreshCache(configDir string) {
	release, err := u.CheckLatestVersion()
	if err != nil {
		return
	}

	available, err := IsUpdateAvailable(u.currentVersion, release.Version)
	if err != nil {
		return
	}

	_ = SaveCache(configDir, &VersionCache{
		LatestVersion:   release.Version,
		CurrentVersion:  u.currentVersion,
		ReleaseURL:      release.HTMLURL,
		CheckedAt:       time.Now(),
		UpdateAvailable: available,
	})
}
