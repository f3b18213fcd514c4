package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type daemonStatusPayload struct {
	Running      bool           `json:"running"`
	Ready        bool           `json:"ready"`
	ServicePID   int            `json:"service_pid"`
	ServiceURL   string         `json:"service_url"`
	ServiceLog   string         `json:"service_log"`
	JobsDBPath   string         `json:"jobs_db_path"`
	LockFilePath string         `json:"lock_file_path"`
	JobCounts    map[string]int `json:"job_counts"`
	Dependencies []struct {
		Name      string `json:"name"`
		Command   string `json:"command"`
		Optional  bool   `json:"optional"`
		Available bool   `json:"available"`
		Detail    string `json:"detail"`
	} `json:"dependencies"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, service, and job queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			var status daemonStatusPayload
			if err := ctx.getJSON(cmd.Context(), "/api/status", &status); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			titler := cases.Title(language.English)

			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, renderStatusLine("Running", boolKind(status.Running), yesNo(status.Running), colorize))
			fmt.Fprintln(out, renderStatusLine("Service ready", boolKind(status.Ready), yesNo(status.Ready), colorize))
			if status.ServicePID > 0 {
				fmt.Fprintln(out, renderStatusLine("Service PID", statusInfo, fmt.Sprintf("%d", status.ServicePID), colorize))
			}
			fmt.Fprintln(out, renderStatusLine("Service URL", statusInfo, status.ServiceURL, colorize))
			fmt.Fprintln(out, renderStatusLine("Jobs DB", statusInfo, status.JobsDBPath, colorize))
			fmt.Fprintln(out, renderStatusLine("Lock file", statusInfo, status.LockFilePath, colorize))

			if len(status.JobCounts) > 0 {
				fmt.Fprintln(out)
				for _, line := range renderSectionHeader("Jobs", colorize) {
					fmt.Fprintln(out, line)
				}
				for _, name := range []string{"pending", "running", "completed", "failed"} {
					count, ok := status.JobCounts[name]
					if !ok {
						continue
					}
					label := titler.String(strings.ReplaceAll(name, "_", " "))
					fmt.Fprintln(out, renderStatusLine(label, statusInfo, fmt.Sprintf("%d", count), colorize))
				}
			}

			if len(status.Dependencies) > 0 {
				fmt.Fprintln(out)
				for _, line := range renderSectionHeader("Dependencies", colorize) {
					fmt.Fprintln(out, line)
				}
				for _, dep := range status.Dependencies {
					kind := statusOK
					message := "available"
					if !dep.Available {
						message = dep.Detail
						kind = statusError
						if dep.Optional {
							kind = statusWarn
						}
					}
					fmt.Fprintln(out, renderStatusLine(titler.String(dep.Name), kind, message, colorize))
				}
			}
			return nil
		},
	}
}

func boolKind(ok bool) statusKind {
	if ok {
		return statusOK
	}
	return statusWarn
}
