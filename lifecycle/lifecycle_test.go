package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/oar-cd/skiff/docker"
	"github.com/oar-cd/skiff/domain"
	"github.com/oar-cd/skiff/testing/mocks"
)

func lookupFrom(env map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func notFound(name string) error {
	return fmt.Errorf("%w: %s", domain.ErrContainerNotFound, name)
}

func TestForwardedEnv_OmitsUnset(t *testing.T) {
	m := NewManager(&mocks.MockEngine{}, "localhost", []string{"OPENAI_API_KEY", "TAVILY_API_KEY", "AZURE_DEPLOYMENT"}).
		WithLookup(lookupFrom(map[string]string{
			"OPENAI_API_KEY":   "sk-test",
			"AZURE_DEPLOYMENT": "",
			"UNRELATED":        "x",
		}))

	assert.Equal(t, []string{"OPENAI_API_KEY=sk-test", "AZURE_DEPLOYMENT="}, m.ForwardedEnv())
}

func TestReplace_NoPreviousContainer(t *testing.T) {
	engine := &mocks.MockEngine{}
	engine.On("FindContainer", mock.Anything, "demo").Return(nil, notFound("demo"))
	engine.On("RunContainer", mock.Anything, docker.RunSpec{
		Name:         "demo",
		Image:        "demo",
		InternalPort: 5000,
		Env:          []string{"OPENAI_API_KEY=sk-test"},
	}).Return(&domain.ContainerInstance{ID: "c1", Name: "demo", HostPort: 49153, InternalPort: 5000}, nil)

	m := NewManager(engine, "localhost", []string{"OPENAI_API_KEY", "TAVILY_API_KEY"}).
		WithLookup(lookupFrom(map[string]string{"OPENAI_API_KEY": "sk-test"}))

	instance, address, err := m.Replace(context.Background(), "demo", "demo", 0)
	require.NoError(t, err)
	assert.Equal(t, "c1", instance.ID)
	assert.Equal(t, "http://localhost:49153", address)
	engine.AssertNotCalled(t, "StopContainer", mock.Anything, mock.Anything)
	engine.AssertExpectations(t)
}

func TestReplace_RemovesPreviousContainer(t *testing.T) {
	engine := &mocks.MockEngine{}
	var calls []string
	engine.On("FindContainer", mock.Anything, "demo").
		Return(&domain.ContainerInfo{ID: "old", Name: "demo", Running: true}, nil)
	engine.On("StopContainer", mock.Anything, "old").
		Run(func(mock.Arguments) { calls = append(calls, "stop") }).Return(nil)
	engine.On("RemoveContainer", mock.Anything, "old").
		Run(func(mock.Arguments) { calls = append(calls, "remove") }).Return(nil)
	engine.On("RunContainer", mock.Anything, mock.AnythingOfType("docker.RunSpec")).
		Run(func(mock.Arguments) { calls = append(calls, "run") }).
		Return(&domain.ContainerInstance{ID: "new", HostPort: 8001}, nil)

	m := NewManager(engine, "10.0.0.5", nil).WithLookup(lookupFrom(nil))

	instance, address, err := m.Replace(context.Background(), "demo", "demo", 8001)
	require.NoError(t, err)
	assert.Equal(t, "new", instance.ID)
	assert.Equal(t, "http://10.0.0.5:8001", address)
	assert.Equal(t, []string{"stop", "remove", "run"}, calls)

	spec := engine.Calls[len(engine.Calls)-1].Arguments.Get(1).(docker.RunSpec)
	assert.Equal(t, 8001, spec.HostPort)
	assert.Empty(t, spec.Env)
}

func TestReplace_IgnoresCleanupErrors(t *testing.T) {
	engine := &mocks.MockEngine{}
	engine.On("FindContainer", mock.Anything, "demo").
		Return(&domain.ContainerInfo{ID: "old", Name: "demo"}, nil)
	engine.On("StopContainer", mock.Anything, "old").Return(errors.New("already stopped"))
	engine.On("RemoveContainer", mock.Anything, "old").Return(errors.New("removal in progress"))
	engine.On("RunContainer", mock.Anything, mock.Anything).
		Return(&domain.ContainerInstance{ID: "new", HostPort: 8000}, nil)

	_, _, err := NewManager(engine, "localhost", nil).Replace(context.Background(), "demo", "demo", 0)
	assert.NoError(t, err)
}

func TestReplace_IgnoresLookupFailure(t *testing.T) {
	engine := &mocks.MockEngine{}
	engine.On("FindContainer", mock.Anything, "demo").Return(nil, errors.New("permission denied"))
	engine.On("RunContainer", mock.Anything, mock.Anything).
		Return(&domain.ContainerInstance{ID: "new", HostPort: 8000}, nil)

	_, _, err := NewManager(engine, "localhost", nil).Replace(context.Background(), "demo", "demo", 0)
	assert.NoError(t, err)
}

func TestReplace_LaunchFailure(t *testing.T) {
	engine := &mocks.MockEngine{}
	engine.On("FindContainer", mock.Anything, "demo").Return(nil, notFound("demo"))
	engine.On("RunContainer", mock.Anything, mock.Anything).
		Return(nil, errors.New("port is already allocated"))

	_, _, err := NewManager(engine, "localhost", nil).Replace(context.Background(), "demo", "demo", 8000)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrContainerLaunchFailed)
	assert.Contains(t, err.Error(), "port is already allocated")
	engine.AssertNumberOfCalls(t, "RunContainer", 1)
}

func TestStop(t *testing.T) {
	engine := &mocks.MockEngine{}
	engine.On("FindContainer", mock.Anything, "demo").
		Return(&domain.ContainerInfo{ID: "c1", Running: true}, nil)
	engine.On("StopContainer", mock.Anything, "c1").Return(nil)
	engine.On("RemoveContainer", mock.Anything, "c1").Return(nil)

	require.NoError(t, NewManager(engine, "localhost", nil).Stop(context.Background(), "demo"))
	engine.AssertExpectations(t)
}

func TestStop_NotFound(t *testing.T) {
	engine := &mocks.MockEngine{}
	engine.On("FindContainer", mock.Anything, "demo").Return(nil, notFound("demo"))

	err := NewManager(engine, "localhost", nil).Stop(context.Background(), "demo")
	assert.ErrorIs(t, err, domain.ErrContainerNotFound)
}

func TestLogs(t *testing.T) {
	engine := &mocks.MockEngine{}
	engine.On("FindContainer", mock.Anything, "demo").Return(&domain.ContainerInfo{ID: "c1"}, nil)
	engine.On("ContainerLogs", mock.Anything, "c1", 20).Return("Starting Server on 0.0.0.0:5000\n", nil)

	logs, err := NewManager(engine, "localhost", nil).Logs(context.Background(), "demo", 20)
	require.NoError(t, err)
	assert.Equal(t, "Starting Server on 0.0.0.0:5000\n", logs)
}
