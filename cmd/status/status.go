// Package status implements the status command.
package status

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/oar-cd/skiff/cmd/output"
	"github.com/oar-cd/skiff/cmd/utils"
	"github.com/oar-cd/skiff/domain"
)

func NewCmdStatus(rt *utils.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "status <identity>",
		Short: "Show the container of a project",
		Long:  `Ask the container engine for the state of the container named after the project.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			identity := args[0]

			a, err := rt.GetApp()
			if err != nil {
				return err
			}

			info, err := a.Containers.Status(cmd.Context(), identity)
			if errors.Is(err, domain.ErrContainerNotFound) {
				return output.FprintWarning(cmd, "No container found for %s", identity)
			}
			if err != nil {
				return utils.CommandError("getting container status", err, "project", identity)
			}

			address := ""
			if info.Running && info.HostPort > 0 {
				address = a.Containers.Address(info.HostPort)
			}

			out, err := output.PrintContainerStatus(identity, info, address)
			if err != nil {
				return utils.CommandError("printing container status", err)
			}
			return output.FprintText(cmd, out)
		},
	}
}
