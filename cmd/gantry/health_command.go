package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show job store health and service readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			var health struct {
				Ready bool `json:"ready"`
				Jobs  struct {
					Total   int `json:"total"`
					Pending int `json:"pending"`
					Running int `json:"running"`
					Failed  int `json:"failed"`
				} `json:"jobs"`
			}
			if err := ctx.getJSON(cmd.Context(), "/api/health", &health); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			fmt.Fprintln(out, renderStatusLine("Service ready", boolKind(health.Ready), yesNo(health.Ready), colorize))
			fmt.Fprintln(out, renderStatusLine("Jobs total", statusInfo, fmt.Sprintf("%d", health.Jobs.Total), colorize))
			fmt.Fprintln(out, renderStatusLine("Jobs in flight", statusInfo, fmt.Sprintf("%d", health.Jobs.Pending+health.Jobs.Running), colorize))

			failedKind := statusOK
			if health.Jobs.Failed > 0 {
				failedKind = statusWarn
			}
			fmt.Fprintln(out, renderStatusLine("Jobs failed", failedKind, fmt.Sprintf("%d", health.Jobs.Failed), colorize))
			return nil
		},
	}
}
