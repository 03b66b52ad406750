// Package utils provides shared state and helpers for the CLI commands.
package utils

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/oar-cd/skiff/app"
	"github.com/oar-cd/skiff/config"
)

// Runtime carries the application from the root command to its subcommands.
// Env and Options are set by tests before the root command runs.
type Runtime struct {
	Env     config.EnvProvider
	Options []app.Option

	Config *config.Config
	App    *app.App
}

// GetApp returns the initialized application
func (r *Runtime) GetApp() (*app.App, error) {
	if r == nil || r.App == nil {
		return nil, errors.New("application is not initialized")
	}
	return r.App, nil
}

// Close releases the application, if one was created
func (r *Runtime) Close() {
	if r == nil || r.App == nil {
		return
	}
	if err := r.App.Close(); err != nil {
		slog.Debug("Failed to close application", "layer", "cmd", "error", err)
	}
	r.App = nil
}

// CommandError logs err and returns it prefixed with the operation that failed
func CommandError(operation string, err error, context ...any) error {
	slog.Error("Command failed", append([]any{"layer", "cmd", "operation", operation, "error", err}, context...)...)
	return fmt.Errorf("%s failed: %w", operation, err)
}
