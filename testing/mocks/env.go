package mocks

import "path/filepath"

// MockEnvProvider implements config.EnvProvider over a fixed map
type MockEnvProvider struct {
	EnvVars map[string]string
	HomeDir string
}

func NewMockEnvProvider(homeDir string, envVars map[string]string) *MockEnvProvider {
	if envVars == nil {
		envVars = make(map[string]string)
	}
	return &MockEnvProvider{EnvVars: envVars, HomeDir: homeDir}
}

func (m *MockEnvProvider) Getenv(key string) string {
	return m.EnvVars[key]
}

func (m *MockEnvProvider) UserHomeDir() (string, error) {
	return m.HomeDir, nil
}

func (m *MockEnvProvider) Getwd() (string, error) {
	return filepath.Join(m.HomeDir, "work"), nil
}
