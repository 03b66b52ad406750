// Package stop implements the stop command.
package stop

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/oar-cd/skiff/cmd/output"
	"github.com/oar-cd/skiff/cmd/utils"
	"github.com/oar-cd/skiff/domain"
)

func NewCmdStop(rt *utils.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "stop <identity>",
		Short: "Stop and remove the container of a project",
		Long: `Stop the container named after the project and remove it. The image and the
project directory are kept, so the next deploy starts from them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			identity := args[0]

			a, err := rt.GetApp()
			if err != nil {
				return err
			}

			err = a.Containers.Stop(cmd.Context(), identity)
			if errors.Is(err, domain.ErrContainerNotFound) {
				return output.FprintWarning(cmd, "No container found for %s", identity)
			}
			if err != nil {
				return utils.CommandError("stopping project", err, "project", identity)
			}

			if record, err := a.Projects.FindByIdentity(identity); err == nil {
				record.Status = domain.ProjectStatusStopped
				record.Address = ""
				record.ContainerID = ""
				if err := a.Projects.Update(record); err != nil {
					slog.Warn("Failed to update project status",
						"layer", "cmd",
						"operation", "stop",
						"project", identity,
						"error", err)
				}
			}

			return output.FprintSuccess(cmd, "Project %s stopped", identity)
		},
	}
}
