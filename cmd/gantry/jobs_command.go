package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"gantry/internal/jobs"
)

type jobPayload struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	BatchID      string `json:"batch_id"`
	RemoteJobID  string `json:"remote_job_id"`
	VideoPath    string `json:"video_path"`
	UploadURL    string `json:"upload_url"`
	ErrorMessage string `json:"error"`
	CreatedAt    string `json:"created_at"`
	StartedAt    string `json:"started_at"`
	FinishedAt   string `json:"finished_at"`
}

type jobDetailPayload struct {
	jobPayload
	Result json.RawMessage `json:"result"`
}

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect the job queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listJobs(ctx, cmd, nil)
		},
	}

	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, optionally filtered by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listJobs(ctx, cmd, statuses)
		},
	}

	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Filter by status (pending, running, completed, failed)")
	return cmd
}

func listJobs(ctx *commandContext, cmd *cobra.Command, statuses []string) error {
	path := "/api/jobs"
	var params []string
	for _, status := range statuses {
		trimmed := strings.TrimSpace(status)
		if trimmed == "" {
			continue
		}
		if !jobs.Status(trimmed).Valid() {
			return fmt.Errorf("unknown status %q", trimmed)
		}
		params = append(params, "status="+trimmed)
	}
	if len(params) > 0 {
		path += "?" + strings.Join(params, "&")
	}

	var response struct {
		Jobs []jobPayload `json:"jobs"`
	}
	if err := ctx.getJSON(cmd.Context(), path, &response); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(response.Jobs) == 0 {
		fmt.Fprintln(out, "No jobs found")
		return nil
	}

	rows := make([][]string, 0, len(response.Jobs))
	for _, job := range response.Jobs {
		detail := job.VideoPath
		if job.ErrorMessage != "" {
			detail = job.ErrorMessage
		}
		rows = append(rows, []string{
			job.ID,
			job.Status,
			formatTimestamp(job.CreatedAt),
			formatTimestamp(job.FinishedAt),
			truncateCell(detail, 60),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"ID", "Status", "Created", "Finished", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
	))
	return nil
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one job with its stored result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var job jobDetailPayload
			if err := ctx.getJSON(cmd.Context(), "/api/jobs/"+args[0], &job); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			kind := statusInfo
			switch job.Status {
			case string(jobs.StatusCompleted):
				kind = statusOK
			case string(jobs.StatusFailed):
				kind = statusError
			}

			fmt.Fprintln(out, renderStatusLine("Job", statusInfo, job.ID, colorize))
			fmt.Fprintln(out, renderStatusLine("Status", kind, job.Status, colorize))
			if job.BatchID != "" {
				fmt.Fprintln(out, renderStatusLine("Batch", statusInfo, job.BatchID, colorize))
			}
			if job.VideoPath != "" {
				fmt.Fprintln(out, renderStatusLine("Video", statusInfo, job.VideoPath, colorize))
			}
			if job.UploadURL != "" {
				fmt.Fprintln(out, renderStatusLine("Upload", statusInfo, job.UploadURL, colorize))
			}
			if job.ErrorMessage != "" {
				fmt.Fprintln(out, renderStatusLine("Error", statusError, job.ErrorMessage, colorize))
			}
			if len(job.Result) > 0 {
				pretty, err := json.MarshalIndent(json.RawMessage(job.Result), "", "  ")
				if err == nil {
					fmt.Fprintln(out)
					fmt.Fprintln(out, string(pretty))
				}
			}
			return nil
		},
	}
}

func formatTimestamp(value string) string {
	if value == "" {
		return "-"
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return value
	}
	return parsed.Local().Format("2006-01-02 15:04:05")
}

func truncateCell(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max-3] + "..."
}
