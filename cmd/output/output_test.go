package output

import (
	"bytes"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oar-cd/skiff/domain"
)

func TestPrintMessage_NoColor(t *testing.T) {
	InitColors(true)
	defer func() { maybeColorize = nil }()

	assert.Equal(t, "done: 3\n", PrintMessage(Success, "done: %d", 3))
	assert.Equal(t, "plain\n", PrintMessage(Plain, "plain"))
}

func TestFprintHelpers(t *testing.T) {
	InitColors(true)
	defer func() { maybeColorize = nil }()

	var stdout, stderr bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	require.NoError(t, FprintPlain(cmd, "hello %s", "world"))
	require.NoError(t, FprintSuccess(cmd, "ok"))
	require.NoError(t, FprintError(cmd, "bad"))

	assert.Equal(t, "hello world\nok\n", stdout.String())
	assert.Equal(t, "bad\n", stderr.String())
}

func TestFprintText_KeepsTrailingNewline(t *testing.T) {
	var stdout bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&stdout)

	out, err := PrintProjectList(nil)
	require.NoError(t, err)
	require.NoError(t, FprintText(cmd, out))

	assert.Equal(t, "No projects found.\n", stdout.String())
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		maxLength int
		expected  string
	}{
		{name: "string shorter than max", input: "hello", maxLength: 10, expected: "hello"},
		{name: "string equal to max", input: "hello", maxLength: 5, expected: "hello"},
		{name: "string longer than max", input: "hello world", maxLength: 8, expected: "hello..."},
		{name: "very short max length", input: "hello world", maxLength: 3, expected: "..."},
		{name: "max length 4", input: "hello world", maxLength: 4, expected: "h..."},
		{name: "empty string", input: "", maxLength: 5, expected: ""},
		{name: "multibyte runes", input: "héllo wörld", maxLength: 6, expected: "hél..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TruncateString(tt.input, tt.maxLength))
		})
	}
}

func TestPrintProjectList(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		out, err := PrintProjectList(nil)
		require.NoError(t, err)
		assert.Equal(t, "No projects found.\n", out)
	})

	t.Run("rows", func(t *testing.T) {
		out, err := PrintProjectList([]*domain.ProjectRecord{
			{
				ID:        uuid.New(),
				Identity:  "my-flask-app",
				Path:      "/srv/my_flask_app",
				Status:    domain.ProjectStatusRunning,
				Address:   "http://localhost:8001",
				UpdatedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
			},
			{
				ID:       uuid.New(),
				Identity: "quote-service",
				GitURL:   "https://github.com/example/quote_service.git",
				Status:   domain.ProjectStatusError,
			},
		})
		require.NoError(t, err)
		assert.Contains(t, out, "my-flask-app")
		assert.Contains(t, out, "running")
		assert.Contains(t, out, "http://localhost:8001")
		assert.Contains(t, out, "/srv/my_flask_app")
		assert.Contains(t, out, "2025-03-01 12:00:00")
		assert.Contains(t, out, "https://github.com/example/quote_service.git")
	})
}

func TestPrintDeploymentList(t *testing.T) {
	out, err := PrintDeploymentList([]*domain.Deployment{
		{
			ID:     uuid.MustParse("0b8e6a3c-1111-4222-8333-444455556666"),
			Status: domain.DeploymentStatusFailed,
			Stage:  domain.StageBuildImage,
			Error:  "build failed: The command '/bin/sh -c pip install -r requirements.txt' returned a non-zero code: 1",
		},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "0b8e6a3c")
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "BuildImage")
	assert.Contains(t, out, "...")
	assert.NotContains(t, out, "non-zero code: 1")
}

func TestPrintContainerStatus(t *testing.T) {
	out, err := PrintContainerStatus("demo", &domain.ContainerInfo{
		ID:    "abc123",
		Image: "demo",
		State: "running",
	}, "http://localhost:8001")
	require.NoError(t, err)
	assert.Contains(t, out, "abc123")
	assert.Contains(t, out, "running")
	assert.Contains(t, out, "http://localhost:8001")
}

func TestNoColorFlag(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected bool
		wantErr  bool
	}{
		{name: "true", value: "true", expected: true},
		{name: "false", value: "false", expected: false},
		{name: "numeric", value: "1", expected: true},
		{name: "invalid", value: "maybe", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag := &noColorFlag{}
			err := flag.Set(tt.value)
			if tt.wantErr {
				require.Error(t, err)
				assert.False(t, flag.IsSet())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, flag.IsSet())
			assert.Equal(t, strconv.FormatBool(tt.expected), flag.String())
		})
	}
}

func TestNoColorFlag_Default(t *testing.T) {
	flag := &noColorFlag{}

	assert.False(t, flag.IsSet())
	assert.Equal(t, "false", flag.String())
	assert.Equal(t, "bool", flag.Type())
}
