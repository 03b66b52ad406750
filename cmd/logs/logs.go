// Package logs implements the logs command.
package logs

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oar-cd/skiff/cmd/utils"
)

func NewCmdLogs(rt *utils.Runtime) *cobra.Command {
	var tail int

	cmd := &cobra.Command{
		Use:   "logs <identity>",
		Short: "Print the output of a project's container",
		Long:  `Print the last lines of stdout and stderr of the container named after the project.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			identity := args[0]

			a, err := rt.GetApp()
			if err != nil {
				return err
			}

			logs, err := a.Containers.Logs(cmd.Context(), identity, tail)
			if err != nil {
				return utils.CommandError("getting container logs", err, "project", identity)
			}

			_, err = fmt.Fprint(cmd.OutOrStdout(), logs)
			return err
		},
	}

	cmd.Flags().IntVarP(&tail, "tail", "n", 100, "Number of lines to show from the end (0 for all)")
	return cmd
}
