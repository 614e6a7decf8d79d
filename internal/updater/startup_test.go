package updater

import (
	"strings"
	"testing"
	"time"
)

func TestCheckAndPrintBannerFromCache(t *testing.T) {
	tmp := t.TempDir()
	if err := SaveCache(tmp, &VersionCache{
		LatestVersion:   "1.2.0",
		CurrentVersion:  "1.1.0",
		CheckedAt:       time.Now(),
		UpdateAvailable: true,
	}); err != nil {
		t.Fatalf("SaveCache: %v", err)
	}

	var out strings.Builder
	New("1.1.0").CheckAndPrintBanner(&out, tmp)

	if !strings.Contains(out.String(), "1.1.0 -> 1.2.0") {
		t.Errorf("banner output = %q, want version transition", out.String())
	}
	if !strings.Contains(out.String(), "update") {
		t.Errorf("banner output = %q, want update hint", out.String())
	}
}

func TestCheckAndPrintBannerQuietWhenCurrent(t *testing.T) {
	tmp := t.TempDir()
	if err := SaveCache(tmp, &VersionCache{
		LatestVersion:   "1.1.0",
		CurrentVersion:  "1.1.0",
		CheckedAt:       time.Now(),
		UpdateAvailable: false,
	}); err != nil {
		t.Fatalf("SaveCache: %v", err)
	}

	var out strings.Builder
	New("1.1.0").CheckAndPrintBanner(&out, tmp)

	if out.Len() != 0 {
		t.Errorf("banner printed on a current version: %q", out.String())
	}
}
