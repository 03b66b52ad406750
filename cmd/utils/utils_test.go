package utils

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandError(t *testing.T) {
	var logBuf bytes.Buffer
	originalLogger := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logBuf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer slog.SetDefault(originalLogger)

	cause := errors.New("database connection failed")
	err := CommandError("listing projects", cause, "project", "demo")

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "listing projects failed: database connection failed", err.Error())

	logOutput := logBuf.String()
	assert.Contains(t, logOutput, "Command failed")
	assert.Contains(t, logOutput, "layer=cmd")
	assert.Contains(t, logOutput, `operation="listing projects"`)
	assert.Contains(t, logOutput, "project=demo")
}

func TestRuntime_GetAppUninitialized(t *testing.T) {
	var rt *Runtime
	_, err := rt.GetApp()
	require.Error(t, err)

	_, err = (&Runtime{}).GetApp()
	require.Error(t, err)
}

func TestRuntime_CloseWithoutApp(t *testing.T) {
	assert.NotPanics(t, func() {
		(&Runtime{}).Close()
		var rt *Runtime
		rt.Close()
	})
}
