package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeployResultReport(t *testing.T) {
	tests := []struct {
		name     string
		result   DeployResult
		expected []string
	}{
		{
			name: "success",
			result: DeployResult{
				Success:             true,
				BuildDefinitionPath: "/srv/app/Dockerfile",
				Address:             "http://localhost:8000",
			},
			expected: []string{
				"Build definition: /srv/app/Dockerfile",
				"Deployed! Access at: http://localhost:8000",
			},
		},
		{
			name: "failure after build definition",
			result: DeployResult{
				BuildDefinitionPath: "/srv/app/Dockerfile",
				Stage:               StageBuildImage,
				Cause:               "build failed: pip not found",
			},
			expected: []string{
				"Build definition: /srv/app/Dockerfile",
				"Deployment failed at BuildImage: build failed: pip not found",
			},
		},
		{
			name: "failure before build definition",
			result: DeployResult{
				Stage: StageWriteBuildDefinition,
				Cause: "generation service error: timeout",
			},
			expected: []string{
				"Build definition: not written",
				"Deployment failed at WriteBuildDefinition: generation service error: timeout",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.result.Report())
		})
	}
}

func TestStatusParsing(t *testing.T) {
	for _, s := range []ProjectStatus{ProjectStatusRunning, ProjectStatusStopped, ProjectStatusError, ProjectStatusUnknown} {
		parsed, err := ParseProjectStatus(s.String())
		assert.NoError(t, err)
		assert.Equal(t, s, parsed)
	}
	_, err := ParseProjectStatus("sleeping")
	assert.Error(t, err)

	_, err = ParseDeploymentStatus("in_progress")
	assert.Error(t, err)
}

func TestContextBundleRender(t *testing.T) {
	bundle := ContextBundle{Entries: []ContextEntry{
		{Filename: "requirements.txt", Excerpt: "flask\n", Lines: 1},
		{Filename: "app.py", Excerpt: "from flask import Flask\n", Lines: 1},
	}}

	rendered := bundle.Render()
	assert.Contains(t, rendered, "--- FILE: requirements.txt ---\nflask\n")
	assert.Contains(t, rendered, "--- FILE: app.py ---\nfrom flask import Flask\n")
	assert.Less(t, strings.Index(rendered, "requirements.txt"), strings.Index(rendered, "app.py"))
	assert.Equal(t, []string{"requirements.txt", "app.py"}, bundle.Filenames())

	assert.True(t, ContextBundle{}.IsEmpty())
	assert.Empty(t, ContextBundle{}.Render())
}
