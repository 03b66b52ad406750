package projects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oar-cd/skiff/cmd/test"
	"github.com/oar-cd/skiff/domain"
	"github.com/oar-cd/skiff/testing/mocks"
)

func TestNewCmdProjects(t *testing.T) {
	t.Run("no projects", func(t *testing.T) {
		rt := test.NewRuntime(t, &mocks.MockEngine{}, nil)

		stdout, _, err := test.Run(NewCmdProjects(rt))
		require.NoError(t, err)
		assert.Equal(t, "No projects found.\n", stdout)
	})

	t.Run("lists records", func(t *testing.T) {
		rt := test.NewRuntime(t, &mocks.MockEngine{}, nil)
		for _, identity := range []string{"beta", "alpha"} {
			record := domain.NewProjectRecord(&domain.Project{Identity: identity, Path: "/srv/" + identity}, "")
			_, err := rt.App.Projects.Create(&record)
			require.NoError(t, err)
		}

		stdout, _, err := test.Run(NewCmdProjects(rt))
		require.NoError(t, err)

		out := test.Trim(stdout)
		assert.Contains(t, out, "/srv/alpha")
		assert.Less(t, indexOf(out, "alpha"), indexOf(out, "beta"))
	})

	t.Run("rejects arguments", func(t *testing.T) {
		_, _, err := test.Run(NewCmdProjects(nil), "extra")
		require.Error(t, err)
	})
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
