package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/stacksmith-labs/stacksmith/internal/branding"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Keys recognized in config.yaml and as STACKSMITH_* env overrides.
const (
	KeyRegistryURL    = "registry.url"
	KeyStrategy       = "strategy"
	KeyOffline        = "offline"
	KeyPackageManager = "package_manager"
	KeyCacheDir       = "cache.dir"
	KeyCacheTTL       = "cache.ttl"
	KeyTemplatesDir   = "templates.dir"
)

// DefaultCacheTTL is how long a cached peer-dependency record stays valid.
const DefaultCacheTTL = 24 * time.Hour

// Dir returns the path to the StackSmith config directory (~/.stacksmith/).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file (~/.stacksmith/config.yaml).
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir() error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

// Load initializes Viper to read from the config file and environment.
func Load() {
	viper.SetConfigFile(FilePath())
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix(branding.EnvPrefix())
	viper.AutomaticEnv()

	viper.SetDefault(KeyRegistryURL, branding.RegistryURL())
	viper.SetDefault(KeyStrategy, "smart")
	viper.SetDefault(KeyOffline, false)
	viper.SetDefault(KeyPackageManager, "")
	viper.SetDefault(KeyCacheDir, filepath.Join(Dir(), "peer-cache"))
	viper.SetDefault(KeyCacheTTL, DefaultCacheTTL)

	// Ignore error if config file doesn't exist yet.
	_ = viper.ReadInConfig()
}

// Get returns a config value by key. Returns empty string if not set.
func Get(key string) string {
	return viper.GetString(key)
}

// RegistryURL returns the package registry base URL for peer lookups.
func RegistryURL() string {
	return viper.GetString(KeyRegistryURL)
}

// Strategy returns the default version conflict-resolution strategy name.
func Strategy() string {
	return viper.GetString(KeyStrategy)
}

// Offline reports whether all network activity should be skipped.
func Offline() bool {
	return viper.GetBool(KeyOffline)
}

// PackageManager returns the configured package manager binary name.
// Empty means detect from the target's lockfiles.
func PackageManager() string {
	return viper.GetString(KeyPackageManager)
}

// CacheDir returns the directory holding the on-disk peer-dependency cache.
func CacheDir() string {
	return viper.GetString(KeyCacheDir)
}

// TemplatesDir returns the configured template library root, if any.
func TemplatesDir() string {
	return viper.GetString(KeyTemplatesDir)
}

// CacheTTL returns how long cached peer records stay valid.
func CacheTTL() time.Duration {
	d := viper.GetDuration(KeyCacheTTL)
	if d <= 0 {
		return DefaultCacheTTL
	}
	return d
}

// Set writes a config key-value pair and saves the config file.
func Set(key, value string) error {
	if err := EnsureDir(); err != nil {
		return err
	}

	viper.Set(key, value)

	configFile := FilePath()

	// Create the file if it doesn't exist.
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("creating config file %s: %w", configFile, err)
		}
		f.Close()
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
