package builder

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/oar-cd/skiff/domain"
	"github.com/oar-cd/skiff/testing/mocks"
)

func TestBuild_Success(t *testing.T) {
	engine := &mocks.MockEngine{}
	stream := mocks.NewScriptedStream(
		domain.ProgressEvent("Step 1/2 : FROM python:3.9-slim\n"),
		domain.UnknownEvent(`{"aux":{"ID":"sha256:abc"}}`),
		domain.ProgressEvent("Successfully tagged demo:latest\n"),
	)
	engine.On("BuildImage", mock.Anything, "/srv/demo", "demo").Return(stream, nil)
	engine.On("ImageExists", mock.Anything, "demo").Return(true, nil)

	var out bytes.Buffer
	result, err := NewBuilder(engine, time.Minute).Build(context.Background(), "/srv/demo", "demo", &out)
	require.NoError(t, err)

	assert.True(t, result.Productive)
	assert.Equal(t, []string{"Step 1/2 : FROM python:3.9-slim\n", "Successfully tagged demo:latest\n"}, result.Log)
	assert.Equal(t, "Step 1/2 : FROM python:3.9-slim\nSuccessfully tagged demo:latest\n", out.String())
	assert.Equal(t, out.String(), Output(result))
	assert.True(t, stream.Closed)
	engine.AssertExpectations(t)
}

func TestBuild_ErrorEventAborts(t *testing.T) {
	engine := &mocks.MockEngine{}
	stream := mocks.NewScriptedStream(
		domain.ProgressEvent("Step 1/6 : FROM python:3.9-slim\n"),
		domain.ErrorEvent("pip: not found"),
		domain.ProgressEvent("never read\n"),
	)
	engine.On("BuildImage", mock.Anything, "/srv/demo", "demo").Return(stream, nil)

	_, err := NewBuilder(engine, 0).Build(context.Background(), "/srv/demo", "demo", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBuildFailed)
	assert.Contains(t, err.Error(), "pip: not found")
	assert.Equal(t, 2, stream.Consumed())
	engine.AssertNotCalled(t, "ImageExists", mock.Anything, mock.Anything)
}

func TestBuild_MissingImageAfterCleanStream(t *testing.T) {
	engine := &mocks.MockEngine{}
	stream := mocks.NewScriptedStream(domain.ProgressEvent("Step 1/1 : FROM python:3.9-slim\n"))
	engine.On("BuildImage", mock.Anything, "/srv/demo", "demo").Return(stream, nil)
	engine.On("ImageExists", mock.Anything, "demo").Return(false, nil)

	_, err := NewBuilder(engine, 0).Build(context.Background(), "/srv/demo", "demo", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBuildVerificationFailed)
}

func TestBuild_UnproductiveStreamStillVerified(t *testing.T) {
	engine := &mocks.MockEngine{}
	stream := mocks.NewScriptedStream(domain.UnknownEvent(`{"aux":{}}`))
	engine.On("BuildImage", mock.Anything, "/srv/demo", "demo").Return(stream, nil)
	engine.On("ImageExists", mock.Anything, "demo").Return(true, nil)

	result, err := NewBuilder(engine, 0).Build(context.Background(), "/srv/demo", "demo", nil)
	require.NoError(t, err)
	assert.False(t, result.Productive)
	assert.Empty(t, result.Log)
}

func TestBuild_SubmitFailure(t *testing.T) {
	engine := &mocks.MockEngine{}
	engine.On("BuildImage", mock.Anything, "/srv/demo", "demo").Return(nil, errors.New("daemon unreachable"))

	_, err := NewBuilder(engine, 0).Build(context.Background(), "/srv/demo", "demo", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBuildFailed)
	assert.Contains(t, err.Error(), "daemon unreachable")
}

func TestBuild_StreamErrorAfterTimeout(t *testing.T) {
	engine := &mocks.MockEngine{}
	stream := &mocks.ScriptedStream{Err: context.DeadlineExceeded}
	engine.On("BuildImage", mock.Anything, "/srv/demo", "demo").Return(stream, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewBuilder(engine, time.Minute).Build(ctx, "/srv/demo", "demo", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBuildFailed)
	assert.Contains(t, err.Error(), "build did not finish")
}
