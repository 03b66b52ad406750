// Package root implements the command line interface for Skiff.
package root

import (
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/oar-cd/skiff/app"
	"github.com/oar-cd/skiff/cmd/deploy"
	"github.com/oar-cd/skiff/cmd/deployments"
	"github.com/oar-cd/skiff/cmd/logs"
	"github.com/oar-cd/skiff/cmd/output"
	"github.com/oar-cd/skiff/cmd/projects"
	"github.com/oar-cd/skiff/cmd/server"
	"github.com/oar-cd/skiff/cmd/status"
	"github.com/oar-cd/skiff/cmd/stop"
	"github.com/oar-cd/skiff/cmd/utils"
	"github.com/oar-cd/skiff/cmd/version"
	"github.com/oar-cd/skiff/config"
	"github.com/oar-cd/skiff/logging"
)

// skipInitCommands run without configuration or application state
var skipInitCommands = []string{"version", "help", "completion"}

func Execute() {
	rt := &utils.Runtime{}
	cmd := NewCmdRoot(rt)
	if err := cmd.Execute(); err != nil {
		_ = output.FprintError(cmd, "Error: %v", err)
		os.Exit(1)
	}
}

func NewCmdRoot(rt *utils.Runtime) *cobra.Command {
	var dataDir, configPath string

	cmd := &cobra.Command{
		Use:   "skiff",
		Short: "Deploy a project directory as a container",
		Long: `Skiff turns a source directory or Git repository into a running container.
It scans the project, writes an entrypoint, generates a build definition,
builds the image and replaces the previous container of the project.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if slices.Contains(skipInitCommands, cmd.Name()) {
				return nil
			}
			return initRuntime(rt, config.Overrides{
				DataDir:    dataDir,
				ConfigPath: configPath,
				LogLevel:   logging.LogLevel.Resolve(""),
				NoColor:    output.NoColor.IsSet(),
			})
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			rt.Close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().
		StringVarP(&dataDir, "data-dir", "d", "", "Data directory for Skiff state (default "+config.GetDefaultDataDir()+")")
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration file (default <data-dir>/config.yaml)")
	cmd.PersistentFlags().VarP(logging.LogLevel, "log-level", "l", "Set log verbosity level")
	cmd.PersistentFlags().VarP(output.NoColor, "no-color", "c", "Disable colored terminal output")
	cmd.PersistentFlags().Lookup("no-color").NoOptDefVal = "true"

	cmd.AddCommand(deploy.NewCmdDeploy(rt))
	cmd.AddCommand(projects.NewCmdProjects(rt))
	cmd.AddCommand(deployments.NewCmdDeployments(rt))
	cmd.AddCommand(status.NewCmdStatus(rt))
	cmd.AddCommand(stop.NewCmdStop(rt))
	cmd.AddCommand(logs.NewCmdLogs(rt))
	cmd.AddCommand(server.NewCmdServe(rt))
	cmd.AddCommand(version.NewCmdVersion())
	return cmd
}

func initRuntime(rt *utils.Runtime, overrides config.Overrides) error {
	env := rt.Env
	if env == nil {
		env = &config.DefaultEnvProvider{}
	}

	cfg, err := config.NewConfigWithEnv(env, overrides)
	if err != nil {
		return err
	}
	rt.Config = cfg

	output.InitColors(!cfg.ColorEnabled)
	logging.InitLogging(cfg.LogLevel)

	a, err := app.New(cfg, rt.Options...)
	if err != nil {
		return utils.CommandError("initializing application", err)
	}
	rt.App = a
	return nil
}
