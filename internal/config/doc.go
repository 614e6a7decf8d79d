// Package config manages user-level settings stored at ~/.stacksmith/config.yaml.
// It provides functions to load, read, and write configuration keys such as
// the registry URL, default conflict-resolution strategy, and peer-cache
// location. Environment variables prefixed STACKSMITH_ override file values.
package config
