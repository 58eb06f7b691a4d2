package cmd

import (
	"github.com/spf13/cobra"

	"github.com/G-Research/engine-dispatch/internal/common/app"
	"github.com/G-Research/engine-dispatch/internal/dispatchctl"
)

func unitsCmd(a *dispatchctl.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "units <capacity>...",
		Short: "Convert capacity strings such as 2g or 512m to megabytes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.Units(args)
		},
	}
	return cmd
}

func judgeCmd(a *dispatchctl.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "judge <job.yaml>",
		Short: "Print whether a job would be admitted, without submitting it",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd, a)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.Judge(app.CreateContextWithShutdown(), args[0])
		},
	}
	addSnapshotFlag(cmd)
	return cmd
}

func acquireCmd(a *dispatchctl.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "acquire",
		Short: "Load an execution client and show whether repeated requests share it",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd, a)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			times, err := cmd.Flags().GetInt("times")
			if err != nil {
				return err
			}
			return a.Acquire(times)
		},
	}
	addArtifactFlags(cmd)
	cmd.Flags().Int("times", 2, "Number of times to request the client")
	return cmd
}

func dispatchCmd(a *dispatchctl.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dispatch <job.yaml>",
		Short: "Submit a job if its cluster has enough free resources",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd, a)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			interval, err := cmd.Flags().GetDuration("retryInterval")
			if err != nil {
				return err
			}
			return a.DispatchUntilAdmitted(app.CreateContextWithShutdown(), args[0], interval)
		},
	}
	addSnapshotFlag(cmd)
	addArtifactFlags(cmd)
	cmd.Flags().Duration("retryInterval", 0, "Keep retrying a rejected job at this interval; zero tries once")
	return cmd
}

// Print version info and exit.
func versionCmd(a *dispatchctl.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.Version()
		},
	}
	return cmd
}
