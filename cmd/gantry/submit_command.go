package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "submit <settings.json>",
		Short: "Queue a render job from a settings document",
		Long:  "Reads a JSON settings document (or - for stdin) and queues it as a render job. The document is relayed to the service untouched.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read settings: %w", err)
			}
			if !json.Valid(data) {
				return fmt.Errorf("settings document is not valid JSON")
			}

			var job jobPayload
			if err := ctx.postJSON(cmd.Context(), "/api/jobs", data, &job); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Queued job %s\n", job.ID)
			fmt.Fprintf(out, "Track it with `gantry jobs show %s`\n", job.ID)
			return nil
		},
	}
}
