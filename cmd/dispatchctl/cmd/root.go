package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/G-Research/engine-dispatch/internal/dispatchctl"
)

const (
	CustomConfigLocation = "config"
	DefaultConfigFlag    = "defaultConfig"
	SnapshotFlag         = "snapshot"
	ArtifactFlag         = "artifact"
	TypeIdFlag           = "type"
)

// RootCmd is the root Cobra command that gets called from the main func.
// All other sub-commands should be registered here.
func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "dispatchctl",
		SilenceUsage: true,
		Short:        "dispatchctl checks jobs against free cluster resources and dispatches them to their engine.",
		Long: `dispatchctl checks jobs against free cluster resources and dispatches them to their engine.

Jobs are read from YAML files:

jobId: job-1
engineType: flink
confProperties:
  sql.env.parallelism: 4

Free resources are read from a snapshot file keyed by engine type, worker and metric:

flink:
  worker-1:
    freeSlots: 8`,
	}

	cmd.PersistentFlags().StringSlice(
		CustomConfigLocation,
		[]string{},
		"Fully qualified path to application configuration file (for multiple config files repeat this arg or separate paths with commas)")
	cmd.PersistentFlags().String(DefaultConfigFlag, dispatchctl.DefaultConfigPath, "Directory holding the base config.yaml")

	cmd.AddCommand(
		unitsCmd(dispatchctl.New()),
		judgeCmd(dispatchctl.New()),
		acquireCmd(dispatchctl.New()),
		dispatchCmd(dispatchctl.New()),
		versionCmd(dispatchctl.New()),
	)

	return cmd
}

func initParams(cmd *cobra.Command, app *dispatchctl.App) error {
	configs, err := cmd.Flags().GetStringSlice(CustomConfigLocation)
	if err != nil {
		return err
	}
	defaultConfig, err := cmd.Flags().GetString(DefaultConfigFlag)
	if err != nil {
		return err
	}
	app.Params.ConfigPaths = configs
	app.Params.DefaultConfigPath = defaultConfig

	flags := cmd.Flags()
	app.Params.SnapshotPath = optionalString(flags, SnapshotFlag)
	app.Params.Artifact.Path = optionalString(flags, ArtifactFlag)
	app.Params.Artifact.TypeId = optionalString(flags, TypeIdFlag)
	return nil
}

// optionalString returns the value of a flag not every subcommand defines.
func optionalString(flags *pflag.FlagSet, name string) string {
	if flag := flags.Lookup(name); flag != nil {
		return flag.Value.String()
	}
	return ""
}

func addSnapshotFlag(cmd *cobra.Command) {
	cmd.Flags().String(SnapshotFlag, "", "YAML or JSON file holding free cluster resources")
	_ = cmd.MarkFlagRequired(SnapshotFlag)
}

func addArtifactFlags(cmd *cobra.Command) {
	cmd.Flags().String(ArtifactFlag, "", "Path of the execution client artifact")
	cmd.Flags().String(TypeIdFlag, "", "Type id of the execution client")
	_ = cmd.MarkFlagRequired(ArtifactFlag)
	_ = cmd.MarkFlagRequired(TypeIdFlag)
}
