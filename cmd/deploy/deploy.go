// Package deploy implements the deploy command.
package deploy

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/oar-cd/skiff/cmd/output"
	"github.com/oar-cd/skiff/cmd/utils"
	"github.com/oar-cd/skiff/pipeline"
)

func NewCmdDeploy(rt *utils.Runtime) *cobra.Command {
	var gitURL, branch string

	cmd := &cobra.Command{
		Use:   "deploy [path]",
		Short: "Build and run a project as a container",
		Long: `Write an entrypoint into the project, generate a build definition from its
manifest files, build an image and replace the project's running container.

The project is the given directory (the current directory by default), or a Git
repository cloned into the workspace when --git-url is set.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeploy(cmd, rt, args, gitURL, branch)
		},
	}

	cmd.Flags().StringVar(&gitURL, "git-url", "", "Clone and deploy this Git repository")
	cmd.Flags().StringVar(&branch, "branch", "", "Branch to clone (remote default when empty)")
	return cmd
}

func runDeploy(cmd *cobra.Command, rt *utils.Runtime, args []string, gitURL, branch string) error {
	if gitURL != "" && len(args) > 0 {
		return errors.New("a path and --git-url cannot be used together")
	}
	if gitURL == "" && branch != "" {
		return errors.New("--branch requires --git-url")
	}

	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}

	a, err := rt.GetApp()
	if err != nil {
		return err
	}
	p, err := a.Pipeline()
	if err != nil {
		return utils.CommandError("preparing deployment", err)
	}

	source := dir
	if gitURL != "" {
		source = gitURL
	}
	if err := output.FprintPlain(cmd, "Deploying %s\n", source); err != nil {
		return err
	}

	result, err := p.Deploy(cmd.Context(), pipeline.DeployRequest{
		Dir:    dir,
		GitURL: gitURL,
		Branch: branch,
		Out:    cmd.OutOrStdout(),
	})

	report := result.Report()
	if printErr := output.FprintPlain(cmd, "\n%s", report[0]); printErr != nil {
		return printErr
	}

	if err != nil {
		if printErr := output.FprintError(cmd, "%s", report[1]); printErr != nil {
			return printErr
		}
		if hint := pipeline.FormatErrorForUser(err); hint != "an unexpected error occurred" {
			if printErr := output.FprintWarning(cmd, "Hint: %s", hint); printErr != nil {
				return printErr
			}
		}
		return utils.CommandError("deploying project", err, "stage", result.Stage)
	}

	return output.FprintSuccess(cmd, "%s", report[1])
}
