package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the service is up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := ctx.client().Health(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.jsonMode {
				return writeJSON(cmd, map[string]string{"status": status})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", ctx.server, status)
			return nil
		},
	}
}

func newStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show job counts and host load",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.client().Stats(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.jsonMode {
				return writeJSON(cmd, st)
			}

			rows := [][]string{
				{"Pending", strconv.Itoa(st.Jobs.Pending)},
				{"Processing", strconv.Itoa(st.Jobs.Processing)},
				{"Completed", strconv.Itoa(st.Jobs.Completed)},
				{"Failed", strconv.Itoa(st.Jobs.Failed)},
				{"Total", strconv.Itoa(st.Jobs.Total)},
				{"Workers", strconv.Itoa(st.Workers)},
				{"Accelerator", st.Accelerator},
				{"Uptime", st.Uptime},
			}
			if st.Host != nil {
				busy := "no"
				if st.Host.Busy {
					busy = "yes"
				}
				rows = append(rows,
					[]string{"Host CPU", fmt.Sprintf("%.1f%%", st.Host.CPUPercent)},
					[]string{"Host memory", fmt.Sprintf("%.1f%%", st.Host.MemoryPercent)},
					[]string{"Host busy", busy},
				)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"Metric", "Value"}, rows, []columnAlignment{alignLeft, alignRight}), "\n")
			return nil
		},
	}
}

func newVersionCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the server build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := ctx.client().Version(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.jsonMode {
				return writeJSON(cmd, info)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (commit %s, built %s, %s)\n",
				info["version"], info["commit"], info["buildTime"], info["goVersion"])
			return nil
		},
	}
}
