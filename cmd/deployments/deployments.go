// Package deployments implements the deployments command.
package deployments

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oar-cd/skiff/cmd/output"
	"github.com/oar-cd/skiff/cmd/utils"
	"github.com/oar-cd/skiff/repository"
)

func NewCmdDeployments(rt *utils.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "deployments <identity>",
		Short: "Show the deployment history of a project",
		Long:  `List the pipeline runs of a project, newest first, with the stage each one reached.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			identity := args[0]

			a, err := rt.GetApp()
			if err != nil {
				return err
			}

			record, err := a.Projects.FindByIdentity(identity)
			if repository.IsNotFound(err) {
				return fmt.Errorf("project %s not found", identity)
			}
			if err != nil {
				return utils.CommandError("finding project", err, "project", identity)
			}

			history, err := a.Deployments.ListByProjectID(record.ID)
			if err != nil {
				return utils.CommandError("listing deployments", err, "project", identity)
			}

			out, err := output.PrintDeploymentList(history)
			if err != nil {
				return utils.CommandError("printing deployment list table", err)
			}
			return output.FprintText(cmd, out)
		},
	}
}
