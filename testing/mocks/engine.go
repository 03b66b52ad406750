// Package mocks provides mock implementations for testing.
package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/oar-cd/skiff/docker"
	"github.com/oar-cd/skiff/domain"
)

// MockEngine implements docker.Engine for testing
type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) BuildImage(ctx context.Context, dir, tag string) (docker.BuildStream, error) {
	args := m.Called(ctx, dir, tag)
	if stream := args.Get(0); stream != nil {
		return stream.(docker.BuildStream), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEngine) ImageExists(ctx context.Context, ref string) (bool, error) {
	args := m.Called(ctx, ref)
	return args.Bool(0), args.Error(1)
}

func (m *MockEngine) FindContainer(ctx context.Context, name string) (*domain.ContainerInfo, error) {
	args := m.Called(ctx, name)
	if info := args.Get(0); info != nil {
		return info.(*domain.ContainerInfo), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEngine) StopContainer(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockEngine) RemoveContainer(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockEngine) RunContainer(ctx context.Context, spec docker.RunSpec) (*domain.ContainerInstance, error) {
	args := m.Called(ctx, spec)
	if instance := args.Get(0); instance != nil {
		return instance.(*domain.ContainerInstance), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEngine) ContainerLogs(ctx context.Context, id string, tail int) (string, error) {
	args := m.Called(ctx, id, tail)
	return args.String(0), args.Error(1)
}

func (m *MockEngine) Close() error {
	args := m.Called()
	return args.Error(0)
}

// ScriptedStream replays a fixed list of events, then reports Err (io.EOF when nil)
type ScriptedStream struct {
	Events []domain.BuildEvent
	Err    error
	Closed bool

	pos int
}

func NewScriptedStream(events ...domain.BuildEvent) *ScriptedStream {
	return &ScriptedStream{Events: events}
}

func (s *ScriptedStream) Next() (domain.BuildEvent, error) {
	if s.pos < len(s.Events) {
		event := s.Events[s.pos]
		s.pos++
		return event, nil
	}
	if s.Err != nil {
		return domain.BuildEvent{}, s.Err
	}
	return domain.BuildEvent{}, io.EOF
}

func (s *ScriptedStream) Close() error {
	s.Closed = true
	return nil
}

// Consumed returns how many events were read
func (s *ScriptedStream) Consumed() int {
	return s.pos
}
