// Package logging configures the process-wide slog logger from the
// STACKSMITH_LOG_LEVEL environment variable. Diagnostic output goes to
// stderr so it never mixes with command output on stdout.
package logging

import (
	"log/slog"
	"os"

	"github.com/stacksmith-labs/stacksmith/internal/branding"
)

// Init installs the default slog handler. Unset or empty level means "info".
func Init() error {
	level, ok := os.LookupEnv(branding.EnvVar("LOG_LEVEL"))
	if !ok {
		return initLevel("info")
	}
	return initLevel(level)
}

func initLevel(level string) error {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return err
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})
	slog.SetDefault(slog.New(handler))
	return nil
}
