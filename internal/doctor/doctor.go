// Package doctor runs environment health checks: config and cache state,
// library sources, package managers on PATH, and registry reachability.
// Each check prints its findings in [ OK ]/[MISS]/[WARN]/[FAIL] lines and
// reports whether it passed.
package doctor

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/stacksmith-labs/stacksmith/internal/catalog"
	"github.com/stacksmith-labs/stacksmith/internal/installer"
	"github.com/stacksmith-labs/stacksmith/internal/library"
	"github.com/stacksmith-labs/stacksmith/internal/peers"
)

// registryPinger is the slice of the registry client the doctor needs.
type registryPinger interface {
	Ping(ctx context.Context) error
}

// CheckConfig verifies the config directory and the source registry file.
func CheckConfig(w io.Writer, configDir string) bool {
	fmt.Fprintln(w, "Config check:")

	info, err := os.Stat(configDir)
	if os.IsNotExist(err) {
		fmt.Fprintf(w, "  [MISS] %s does not exist (created on first write)\n", configDir)
		return true
	}
	if err != nil || !info.IsDir() {
		fmt.Fprintf(w, "  [FAIL] %s is not a usable directory\n", configDir)
		return false
	}
	fmt.Fprintf(w, "  [ OK ] %s exists\n", configDir)

	if _, err := library.Load(configDir); err != nil {
		fmt.Fprintf(w, "  [FAIL] %s\n", err)
		return false
	}
	fmt.Fprintf(w, "  [ OK ] %s is valid\n", library.ConfigFile)
	return true
}

// CheckCache reports the peer-metadata cache state.
func CheckCache(w io.Writer, cacheDir string, ttl time.Duration) bool {
	fmt.Fprintln(w, "Peer cache check:")

	stats, err := peers.NewCache(cacheDir, ttl).Stats()
	if err != nil {
		fmt.Fprintf(w, "  [FAIL] reading cache: %v\n", err)
		return false
	}
	if stats.Entries == 0 {
		fmt.Fprintf(w, "  [INFO] cache is empty (%s)\n", cacheDir)
		return true
	}
	fmt.Fprintf(w, "  [ OK ] %d entries (%d fresh, %d stale), %d bytes\n",
		stats.Entries, stats.Fresh, stats.Stale, stats.Size)
	return true
}

// CheckSources verifies every library source resolves to a scannable
// template directory.
func CheckSources(w io.Writer, sources []library.Source) bool {
	fmt.Fprintln(w, "Library sources check:")

	if len(sources) == 0 {
		fmt.Fprintln(w, "  [MISS] no template sources configured")
		return false
	}

	ok := true
	for _, src := range sources {
		info, err := os.Stat(src.Path)
		if err != nil || !info.IsDir() {
			fmt.Fprintf(w, "  [FAIL] %s (%s) is not a directory\n", src.Name, src.Path)
			ok = false
			continue
		}
		entries, err := catalog.Discover(src.Path)
		if err != nil {
			fmt.Fprintf(w, "  [FAIL] %s (%s): %v\n", src.Name, src.Path, err)
			ok = false
			continue
		}
		if len(entries) == 0 {
			fmt.Fprintf(w, "  [WARN] %s (%s): no templates\n", src.Name, src.Path)
			continue
		}
		fmt.Fprintf(w, "  [ OK ] %s (%s): %d templates\n", src.Name, src.Path, len(entries))
	}
	return ok
}

// CheckManagers looks for supported package managers on PATH.
func CheckManagers(w io.Writer) bool {
	fmt.Fprintln(w, "Package manager check:")

	found := false
	for _, name := range installer.Managers {
		path, err := exec.LookPath(name)
		if err != nil {
			fmt.Fprintf(w, "  [MISS] %s not found\n", name)
			continue
		}
		fmt.Fprintf(w, "  [ OK ] %s found at %s\n", name, path)
		found = true
	}
	if !found {
		fmt.Fprintln(w, "  [WARN] no package manager on PATH; --install will not work")
	}
	return found
}

// CheckRegistry pings the package registry unless offline mode is on.
func CheckRegistry(ctx context.Context, w io.Writer, client registryPinger, registryURL string, offline bool) bool {
	fmt.Fprintln(w, "Registry check:")

	if offline {
		fmt.Fprintln(w, "  [INFO] offline mode, skipping registry ping")
		return true
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx); err != nil {
		fmt.Fprintf(w, "  [FAIL] %s unreachable: %v\n", registryURL, err)
		return false
	}
	fmt.Fprintf(w, "  [ OK ] %s reachable\n", registryURL)
	return true
}
