// Package branding provides compile-time identity values for the CLI.
//
// Forkers edit branding.yaml in this package, then run `make build`.
// Go's //go:embed bakes the values into the binary.
package branding

import (
	_ "embed"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"
)

//go:embed branding.yaml
var rawBranding []byte

// Parsed branding values, loaded once on first access.
var (
	once     sync.Once
	defaults brand
)

type brand struct {
	CLIName     string `yaml:"cli_name"`
	DisplayName string `yaml:"display_name"`
	Description string `yaml:"description"`
	HomeDir     string `yaml:"home_dir"`
	EnvPrefix   string `yaml:"env_prefix"`
	GoModule    string `yaml:"go_module"`
	RegistryURL string `yaml:"registry_url"`
	GitHubRepo  string `yaml:"github_repo"`
}

func load() {
	once.Do(func() {
		// Set hard defaults in case the embedded file is missing/empty.
		defaults = brand{
			CLIName:     "stacksmith",
			DisplayName: "StackSmith",
			Description: "Compose multi-service web projects from template plugins",
			HomeDir:     ".stacksmith",
			EnvPrefix:   "STACKSMITH",
			GoModule:    "github.com/stacksmith-labs/stacksmith",
			RegistryURL: "https://registry.npmjs.org",
			GitHubRepo:  "stacksmith-labs/stacksmith",
		}
		// Overlay with embedded YAML values.
		_ = yaml.Unmarshal(rawBranding, &defaults)
	})
}

// CLIName returns the root command name (e.g., "stacksmith").
func CLIName() string { load(); return defaults.CLIName }

// DisplayName returns the human-readable product name (e.g., "StackSmith").
func DisplayName() string { load(); return defaults.DisplayName }

// Description returns the short product description.
func Description() string { load(); return defaults.Description }

// HomeDir returns the dot-directory name under $HOME (e.g., ".stacksmith").
func HomeDir() string { load(); return defaults.HomeDir }

// EnvPrefix returns the environment variable prefix (e.g., "STACKSMITH").
func EnvPrefix() string { load(); return defaults.EnvPrefix }

// GoModule returns the Go module path. Used by scripts/rebrand.sh — not
// consumed at runtime.
func GoModule() string { load(); return defaults.GoModule }

// RegistryURL returns the default package registry used for peer-dependency
// metadata lookups.
func RegistryURL() string { load(); return defaults.RegistryURL }

// GitHubRepo returns the "owner/repo" slug used for release update checks.
func GitHubRepo() string { load(); return defaults.GitHubRepo }

// EnvVar returns a fully qualified env var name, e.g., EnvVar("HOME") → "STACKSMITH_HOME".
func EnvVar(suffix string) string {
	load()
	return defaults.EnvPrefix + "_" + strings.ToUpper(suffix)
}
