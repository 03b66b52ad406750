// Package projects implements the projects command.
package projects

import (
	"github.com/spf13/cobra"

	"github.com/oar-cd/skiff/cmd/output"
	"github.com/oar-cd/skiff/cmd/utils"
)

func NewCmdProjects(rt *utils.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List deployed projects",
		Long: `Display every project Skiff has deployed with its last known status,
address and source.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rt.GetApp()
			if err != nil {
				return err
			}

			records, err := a.Projects.List()
			if err != nil {
				return utils.CommandError("listing projects", err)
			}

			out, err := output.PrintProjectList(records)
			if err != nil {
				return utils.CommandError("printing project list table", err)
			}
			return output.FprintText(cmd, out)
		},
	}
}
