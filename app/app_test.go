package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oar-cd/skiff/config"
	"github.com/oar-cd/skiff/testing/mocks"
)

func newTestConfig(t *testing.T, env map[string]string) *config.Config {
	t.Helper()
	home := t.TempDir()
	cfg, err := config.NewConfigWithEnv(mocks.NewMockEnvProvider(home, env), config.Overrides{
		DataDir: filepath.Join(home, "data"),
	})
	require.NoError(t, err)
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config, opts ...Option) (*App, *mocks.MockEngine) {
	t.Helper()
	engine := &mocks.MockEngine{}
	engine.On("Close").Return(nil)

	a, err := New(cfg, append([]Option{WithEngine(engine)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a, engine
}

func TestNew_CreatesDirectoriesAndDatabase(t *testing.T) {
	cfg := newTestConfig(t, nil)
	a, _ := newTestApp(t, cfg)

	for _, dir := range []string{cfg.DataDir, cfg.WorkspaceDir, cfg.LocksDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
	assert.FileExists(t, cfg.DatabasePath)

	projects, err := a.Projects.List()
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestPipeline_RequiresLLMSettings(t *testing.T) {
	a, _ := newTestApp(t, newTestConfig(t, nil))

	_, err := a.Pipeline()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is required")
}

func TestPipeline_WithLLMSettings(t *testing.T) {
	a, _ := newTestApp(t, newTestConfig(t, map[string]string{
		"AZURE_API_KEY":    "key",
		"AZURE_DEPLOYMENT": "gpt-4o",
		"AZURE_END_POINT":  "https://example.openai.azure.com",
		"AZURE_VERSION":    "2024-06-01",
	}))

	p, err := a.Pipeline()
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestPipeline_InjectedGeneratorSkipsValidation(t *testing.T) {
	a, _ := newTestApp(t, newTestConfig(t, nil), WithGenerator(&mocks.MockGenerator{}))

	p, err := a.Pipeline()
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestClose_ClosesEngine(t *testing.T) {
	cfg := newTestConfig(t, nil)
	engine := &mocks.MockEngine{}
	engine.On("Close").Return(nil)

	a, err := New(cfg, WithEngine(engine))
	require.NoError(t, err)

	require.NoError(t, a.Close())
	engine.AssertCalled(t, "Close")
}
