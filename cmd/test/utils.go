// Package test provides helpers for testing Skiff CLI commands
package test

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/oar-cd/skiff/app"
	"github.com/oar-cd/skiff/cmd/utils"
	"github.com/oar-cd/skiff/config"
	"github.com/oar-cd/skiff/docker"
	"github.com/oar-cd/skiff/testing/mocks"
)

// NewRuntime returns a Runtime whose App uses engine, a temporary data directory
// and an in-process database. env seeds the configuration environment.
func NewRuntime(t *testing.T, engine docker.Engine, env map[string]string, opts ...app.Option) *utils.Runtime {
	t.Helper()

	if m, ok := engine.(*mocks.MockEngine); ok {
		m.On("Close").Return(nil).Maybe()
	}

	home := t.TempDir()
	cfg, err := config.NewConfigWithEnv(mocks.NewMockEnvProvider(home, env), config.Overrides{
		DataDir: filepath.Join(home, "data"),
	})
	require.NoError(t, err)

	a, err := app.New(cfg, append([]app.Option{app.WithEngine(engine)}, opts...)...)
	require.NoError(t, err)

	rt := &utils.Runtime{Config: cfg, App: a}
	t.Cleanup(rt.Close)
	return rt
}

// Run executes cmd with args and returns what it wrote to stdout and stderr
func Run(cmd *cobra.Command, args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// Trim trims trailing spaces left by tablewriter on each line to make the lines length-aligned
func Trim(input string) string {
	lines := strings.Split(input, "\n")

	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \n")
	}

	return strings.Join(lines, "\n")
}
